package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/moments/pkg/recurrence"
)

// dayRefresher re-runs a subscription's query at every local midnight, so
// DaysDifference and DisplayText follow the calendar without a store change.
// It owns exactly one pending timer and stops it when the subscription ends.
type dayRefresher struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func startDayRefresher(ctx context.Context, clock Clock, sub *Subscription, logger *slog.Logger) *dayRefresher {
	ctx, cancel := context.WithCancel(ctx)
	r := &dayRefresher{cancel: cancel, done: make(chan struct{})}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(r.done)
		for {
			now := clock.Now()
			t := clock.NewTimer(recurrence.NextMidnight(now).Sub(now))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-sub.Done():
				t.Stop()
				return nil
			case <-t.C():
				logger.Debug("day boundary reached, refreshing subscription", "subscription", sub.id)
				sub.Resync(ctx)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("day refresher panic", "subscription", sub.id, "error", err)
	}))
	return r
}

func (r *dayRefresher) stop() {
	r.once.Do(r.cancel)
}
