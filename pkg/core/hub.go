package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/lifecycle"
)

// DefaultEventBuffer is the number of pending deliveries a subscription keeps
// before older snapshots are dropped in favour of newer ones.
const DefaultEventBuffer = 100

// Hub is the reactive query layer. Every call to Publish re-runs the query of
// each live subscription and queues the complete result for delivery.
//
// Publish calls are serialized, so queued results follow notification order.
// Each subscription delivers from its own goroutine: callbacks for one
// subscription never overlap, and they may call back into the repository or
// the service without deadlocking the hub.
type Hub struct {
	repo     Repository
	logger   *slog.Logger
	observer Observer
	buffer   int

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger used by the hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHubObserver registers an Observer for emissions and subscription counts.
func WithHubObserver(o Observer) HubOption {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

// WithHubBuffer bounds the pending deliveries of each subscription.
// Zero or negative means DefaultEventBuffer.
func WithHubBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// NewHub creates a Hub that answers queries from repo.
func NewHub(repo Repository, opts ...HubOption) *Hub {
	h := &Hub{
		repo:     repo,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
		buffer:   DefaultEventBuffer,
		subs:     make(map[uint64]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers fn for the records matching q. The current matching set
// is queued immediately; afterwards every Publish queues a fresh one.
//
// A query error is delivered once, with a nil slice, and ends the
// subscription. Cancelling ctx also ends it.
func (h *Hub) Subscribe(ctx context.Context, q Query, fn func([]Record, error)) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	s := &Subscription{
		id:    h.nextID,
		hub:   h,
		query: q,
		fn:    fn,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h.subs[s.id] = s
	s.refresh(ctx)
	active := len(h.subs)
	h.mu.Unlock()

	h.observer.ObserveSubscriptions(active)
	h.logger.Debug("subscription opened", "subscription", s.id)

	lifecycle.Go(ctx, s.run, lifecycle.WithErrorHandler(func(err error) {
		h.logger.Error("subscription panic", "subscription", s.id, "error", err)
		s.Unsubscribe()
	}))
	return s, nil
}

// Publish notifies the hub that the store changed. It re-runs every live
// query before returning. Cancellation of ctx does not abort the re-queries:
// the mutation has already happened and subscribers must see it.
func (h *Hub) Publish(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.logger.Debug("change published", "type", e.Type, "id", e.ID, "subscriptions", len(h.subs))
	for id, s := range h.subs {
		if !s.refresh(ctx) {
			delete(h.subs, id)
		}
	}
}

// Bridge forwards events from an external source (e.g. a file watcher) into
// Publish until the channel closes or ctx is cancelled.
func (h *Hub) Bridge(ctx context.Context, events <-chan Event) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				h.Publish(ctx, e)
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		h.logger.Error("event bridge panic", "error", err)
	}))
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Further Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s.id)
	active := len(h.subs)
	h.mu.Unlock()
	h.observer.ObserveSubscriptions(active)
}

type delivery struct {
	records []Record
	err     error
}

// Subscription is a live query handle returned by Hub.Subscribe.
type Subscription struct {
	id    uint64
	hub   *Hub
	query Query
	fn    func([]Record, error)

	mu      sync.Mutex
	pending []delivery
	failed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool
}

// Resync queues a fresh result set without any store change, e.g. when the
// day boundary moves and computed fields must be refreshed.
func (s *Subscription) Resync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[s.id]; !ok {
		return
	}
	if !s.refresh(ctx) {
		delete(h.subs, s.id)
	}
}

// Unsubscribe stops further deliveries and releases the delivery goroutine.
// It is idempotent and may be called from inside the callback.
//
// Unsubscribe does not wait: a callback already running on the delivery
// goroutine finishes, but no new one starts. Wait on Stopped when the caller
// needs the callback to be quiet.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)

		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()

		s.hub.remove(s)
		s.hub.logger.Debug("subscription closed", "subscription", s.id)
	})
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Stopped is closed once the delivery goroutine has exited; from then on no
// callback is running or will run. Never wait on it from inside the callback.
func (s *Subscription) Stopped() <-chan struct{} {
	return s.stopped
}

// refresh runs the query and queues its result. It must be called with the
// hub lock held. It returns false once the subscription should be dropped.
func (s *Subscription) refresh(ctx context.Context) bool {
	if s.closed.Load() {
		return false
	}

	records, err := s.hub.repo.FindAll(ctx, s.query)

	s.mu.Lock()
	if s.failed {
		s.mu.Unlock()
		return false
	}
	if err != nil {
		s.failed = true
		s.pending = append(s.pending, delivery{err: wrapStorage("find all", err)})
	} else {
		s.pending = append(s.pending, delivery{records: records})
		if over := len(s.pending) - s.hub.buffer; over > 0 {
			// Each snapshot is complete, so dropping older ones loses no state.
			s.pending = append(s.pending[:0], s.pending[over:]...)
			s.hub.logger.Debug("subscription lagging, dropped stale snapshots", "subscription", s.id, "dropped", over)
		}
	}
	failed := s.failed
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return !failed
}

func (s *Subscription) next() (delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return delivery{}, false
	}
	d := s.pending[0]
	s.pending[0] = delivery{}
	s.pending = s.pending[1:]
	return d, true
}

func (s *Subscription) run(ctx context.Context) error {
	defer close(s.stopped)
	defer s.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-s.wake:
		}

		for {
			d, ok := s.next()
			if !ok {
				break
			}
			if s.closed.Load() {
				return nil
			}
			s.fn(d.records, d.err)
			s.hub.observer.ObserveEmission(len(d.records))
			if d.err != nil {
				return nil
			}
		}
	}
}
