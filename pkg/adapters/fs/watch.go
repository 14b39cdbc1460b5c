package fs

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/moments/pkg/core"
)

// Watch reports changes to documents whose file name matches pattern, such as
// edits made by hand or by another process. The channel is closed once ctx is
// cancelled or the repository is closed.
//
// The watcher runs under a supervisor and is restarted if fsnotify fails.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	events := make(chan core.Event)
	spec := r.watchSpec(pattern, events, watchBackoff, nil)

	runCtx, cancel := context.WithCancel(ctx)
	sup := supervisor.New("fs-watch-"+pattern, supervisor.StrategyOneForOne, spec)
	if err := sup.Start(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	r.mu.Lock()
	r.watchers = append(r.watchers, cancel)
	r.mu.Unlock()

	lifecycle.Go(runCtx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		r.config.Logger.Error("watcher shutdown failed", "error", err)
	}))

	r.config.Logger.Debug("watching store", "path", r.Path, "pattern", pattern)
	return events, nil
}

var watchBackoff = supervisor.Backoff{
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Multiplier:      2,
	ResetDuration:   time.Minute,
	MaxRestarts:     10,
	MaxDuration:     10 * time.Minute,
}

// watchSpec describes the supervised watch worker. When created is set it
// sees every worker the supervisor builds, restarts included.
func (r *Repository) watchSpec(pattern string, events chan<- core.Event, backoff supervisor.Backoff, created func(*watchWorker)) supervisor.Spec {
	return supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(r, pattern, events)
			if created != nil {
				created(w)
			}
			return w, nil
		},
		Backoff:       backoff,
		RestartPolicy: supervisor.RestartOnFailure,
	}
}
