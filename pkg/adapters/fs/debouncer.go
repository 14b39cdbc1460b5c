package fs

import (
	"sync"
	"time"

	"github.com/aretw0/moments/pkg/core"
)

// debouncer coalesces events per record ID. The first event for an ID opens a
// window; the last event seen before the window closes is emitted.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[string]core.Event
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		pending:  make(map[string]core.Event),
		timers:   make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[e.ID] = e
	if _, open := d.timers[e.ID]; open {
		return
	}

	d.wg.Add(1)
	d.timers[e.ID] = time.AfterFunc(d.interval, func() {
		defer d.wg.Done()

		d.mu.Lock()
		last, ok := d.pending[e.ID]
		delete(d.pending, e.ID)
		delete(d.timers, e.ID)
		stopped := d.stopped
		d.mu.Unlock()

		if ok && !stopped {
			emit(last)
		}
	})
}

// stopAndWait drops pending events and waits up to timeout for in-flight
// emissions to finish.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, id)
	}
	clear(d.pending)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
