// Package lifecycle exposes live moment queries as lifecycle event sources.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/moments/pkg/core"
)

// Snapshot is one delivery of a live query. Err is set on the final delivery
// of a failed subscription.
type Snapshot struct {
	Entities []core.Entity
	Err      error
}

func (s Snapshot) String() string {
	if s.Err != nil {
		return "moments snapshot failed: " + s.Err.Error()
	}
	return fmt.Sprintf("moments snapshot: %d entities", len(s.Entities))
}

// Subscriber is implemented by core.Service.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func([]core.Entity, error), opts ...core.QueryOption) (*core.LiveQuery, error)
}

type momentSource struct {
	svc  Subscriber
	opts []core.QueryOption
	out  chan lifecycle.Event

	mu     sync.Mutex
	closed bool
}

// NewSource creates a lifecycle.Source that emits a Snapshot every time the
// live query selected by opts is re-evaluated. Events is closed once the
// context given to Start is cancelled or the subscription fails.
func NewSource(svc Subscriber, opts ...core.QueryOption) lifecycle.Source {
	return &momentSource{
		svc:  svc,
		opts: opts,
		out:  make(chan lifecycle.Event),
	}
}

func (s *momentSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *momentSource) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	live, err := s.svc.Subscribe(runCtx, func(list []core.Entity, err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		select {
		case s.out <- Snapshot{Entities: list, Err: err}:
		case <-runCtx.Done():
		}
	}, s.opts...)
	if err != nil {
		cancel()
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
		case <-live.Done():
		}
		// Cancelling first releases a delivery blocked on a slow reader, so
		// the lock below is always obtainable.
		cancel()
		live.Unsubscribe()

		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
		return nil
	})
	return nil
}
