package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/moments/pkg/adapters/memory"
	"github.com/aretw0/moments/pkg/core"
)

// fakeClock is a manually advanced core.Clock.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) core.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.at.After(c.now) {
			kept = append(kept, t)
			continue
		}
		t.ch <- c.now
	}
	c.timers = kept
}

// Set moves the clock to now without firing timers, e.g. to simulate a clock
// that jumped backwards.
func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Pending returns the number of armed timers.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	ch    chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// countingObserver records what the service reports.
type countingObserver struct {
	mu        sync.Mutex
	mutations map[string]int
	failures  int
	emissions int
	active    int
}

func (o *countingObserver) ObserveMutation(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mutations == nil {
		o.mutations = make(map[string]int)
	}
	o.mutations[op]++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) ObserveEmission(int) {
	o.mu.Lock()
	o.emissions++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveSubscriptions(active int) {
	o.mu.Lock()
	o.active = active
	o.mu.Unlock()
}

func (o *countingObserver) snapshot() (map[string]int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := make(map[string]int, len(o.mutations))
	for k, v := range o.mutations {
		m[k] = v
	}
	return m, o.failures, o.active
}

// collector buffers deliveries so tests can assert on them in order.
type collector[T any] struct {
	ch   chan T
	errs chan error
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{ch: make(chan T, 64), errs: make(chan error, 64)}
}

func (c *collector[T]) fn(v T, err error) {
	if err != nil {
		c.errs <- err
		return
	}
	c.ch <- v
}

func (c *collector[T]) next(t *testing.T) T {
	t.Helper()
	select {
	case v := <-c.ch:
		return v
	case err := <-c.errs:
		t.Fatalf("unexpected error delivery: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func (c *collector[T]) nextErr(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.errs:
		return err
	case v := <-c.ch:
		t.Fatalf("expected an error, got %v", v)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
	return nil
}

func (c *collector[T]) quiet(t *testing.T) {
	t.Helper()
	select {
	case v := <-c.ch:
		t.Fatalf("unexpected delivery: %v", v)
	case err := <-c.errs:
		t.Fatalf("unexpected error delivery: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

var testNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...core.ServiceOption) (*core.Service, *memory.Repository, *fakeClock) {
	t.Helper()
	repo := memory.NewRepository()
	clock := newFakeClock(testNow)
	svc := core.NewService(repo, append([]core.ServiceOption{core.WithClock(clock)}, opts...)...)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Close() })
	return svc, repo, clock
}
