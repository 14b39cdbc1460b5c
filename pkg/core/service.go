package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service handles the business logic for moments: it validates input, owns
// the repository handle, publishes every successful write to the Hub and
// projects records into entities on the way out.
type Service struct {
	repo     Repository
	hub      *Hub
	logger   *slog.Logger
	clock    Clock
	observer Observer
	newID    func() string

	readOnly     bool
	watchPattern string
	eventBuffer  int

	mu          sync.RWMutex
	initialized bool
	closed      bool
	cancel      context.CancelFunc
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service and its hub.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithObserver registers an Observer for mutations and emissions.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithEventBuffer bounds the pending deliveries of each subscription.
func WithEventBuffer(size int) ServiceOption {
	return func(s *Service) {
		s.eventBuffer = size
	}
}

// WithReadOnly makes every write fail with ErrReadOnly.
func WithReadOnly(enabled bool) ServiceOption {
	return func(s *Service) {
		s.readOnly = enabled
	}
}

// WithWatch forwards external changes of a Watchable repository matching
// pattern to subscribers. An empty pattern disables watching.
func WithWatch(pattern string) ServiceOption {
	return func(s *Service) {
		s.watchPattern = pattern
	}
}

// WithIDGenerator replaces the UUID generator used by Create.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService creates a new Service over repo. Call Init before use and Close
// when done.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:     repo,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    SystemClock{},
		observer: nopObserver{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(repo,
		WithHubLogger(s.logger),
		WithHubObserver(s.observer),
		WithHubBuffer(s.eventBuffer),
	)
	return s
}

// Init prepares the repository and, when configured, starts forwarding
// external changes to subscribers. It is safe to call more than once.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.initialized {
		return nil
	}

	if err := s.repo.Initialize(ctx); err != nil {
		return wrapStorage("initialize", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if s.watchPattern != "" {
		w, ok := s.repo.(Watchable)
		if !ok {
			cancel()
			return errors.New("repository does not support watching")
		}
		events, err := w.Watch(runCtx, s.watchPattern)
		if err != nil {
			cancel()
			return wrapStorage("watch", err)
		}
		s.hub.Bridge(runCtx, events)
	}

	s.initialized = true
	s.logger.Debug("moment service initialized", "read_only", s.readOnly, "watch", s.watchPattern)
	return nil
}

// Close ends every subscription, stops watching and closes the repository.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.hub.Close()
	return s.repo.Close()
}

func (s *Service) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Service) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}

// Create validates in, persists a new record and returns its projection.
func (s *Service) Create(ctx context.Context, in Input) (Entity, error) {
	if err := s.checkWritable(); err != nil {
		return Entity{}, err
	}

	in = NormalizeInput(in)
	if err := ValidateInput(in); err != nil {
		return Entity{}, err
	}

	now := s.now()
	rec := Record{
		ID:              s.newID(),
		Title:           in.Title,
		Description:     in.Description,
		Date:            in.Date,
		RepeatFrequency: in.RepeatFrequency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	start := time.Now()
	err := s.repo.Insert(ctx, rec)
	s.observer.ObserveMutation("create", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to create moment", "id", rec.ID, "error", err)
		return Entity{}, wrapStorage("insert", err)
	}

	s.logger.Debug("moment created", "id", rec.ID)
	s.hub.Publish(ctx, Event{Type: EventCreate, ID: rec.ID, Timestamp: now.Unix()})
	return Project(rec, s.clock.Now()), nil
}

// Update validates in, replaces the editable fields of the record and returns
// the new projection.
func (s *Service) Update(ctx context.Context, id string, in Input) (Entity, error) {
	if err := s.checkWritable(); err != nil {
		return Entity{}, err
	}

	in = NormalizeInput(in)
	if err := ValidateInput(in); err != nil {
		return Entity{}, err
	}

	now := s.now()
	start := time.Now()
	rec, err := s.repo.Update(ctx, id, PatchFrom(in, now))
	s.observer.ObserveMutation("update", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entity{}, &NotFoundError{ID: id}
		}
		s.logger.Error("failed to update moment", "id", id, "error", err)
		return Entity{}, wrapStorage("update", err)
	}

	s.logger.Debug("moment updated", "id", id)
	s.hub.Publish(ctx, Event{Type: EventModify, ID: id, Timestamp: now.Unix()})
	return Project(rec, s.clock.Now()), nil
}

// Delete removes a moment immediately.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.checkWritable(); err != nil {
		return err
	}

	start := time.Now()
	err := s.repo.Remove(ctx, id)
	s.observer.ObserveMutation("delete", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		s.logger.Error("failed to delete moment", "id", id, "error", err)
		return wrapStorage("remove", err)
	}

	s.logger.Debug("moment deleted", "id", id)
	s.hub.Publish(ctx, Event{Type: EventDelete, ID: id, Timestamp: s.clock.Now().Unix()})
	return nil
}

// Prune removes every moment matching f and returns how many were removed.
func (s *Service) Prune(ctx context.Context, f Filter) (int, error) {
	if err := s.checkWritable(); err != nil {
		return 0, err
	}

	start := time.Now()
	n, err := s.repo.RemoveAll(ctx, f)
	s.observer.ObserveMutation("prune", time.Since(start), err)
	if err != nil {
		s.logger.Error("failed to prune moments", "error", err)
		return 0, wrapStorage("remove all", err)
	}

	if n > 0 {
		s.logger.Debug("moments pruned", "count", n)
		s.hub.Publish(ctx, Event{Type: EventDelete, Timestamp: s.clock.Now().Unix()})
	}
	return n, nil
}

// Get returns the projection of a single moment.
func (s *Service) Get(ctx context.Context, id string) (Entity, error) {
	if err := s.checkOpen(); err != nil {
		return Entity{}, err
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Entity{}, &NotFoundError{ID: id}
		}
		return Entity{}, wrapStorage("find by id", err)
	}
	return Project(rec, s.clock.Now()), nil
}

// List returns the projections of every moment matching opts, in display
// order unless a record sort was requested.
func (s *Service) List(ctx context.Context, opts ...QueryOption) ([]Entity, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	q := buildQuery(opts)
	records, err := s.repo.FindAll(ctx, q.Query)
	if err != nil {
		return nil, wrapStorage("find all", err)
	}
	return q.project(records, s.clock.Now()), nil
}

// Subscribe delivers the projections of every moment matching opts now,
// after each change, and again at every local midnight so countdowns stay
// current. Deliveries are serialized. A storage error is delivered once and
// ends the subscription.
func (s *Service) Subscribe(ctx context.Context, fn func([]Entity, error), opts ...QueryOption) (*LiveQuery, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	q := buildQuery(opts)
	sub, err := s.hub.Subscribe(ctx, q.Query, func(records []Record, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(q.project(records, s.clock.Now()), nil)
	})
	if err != nil {
		return nil, err
	}

	lq := &LiveQuery{sub: sub}
	lq.refresher = startDayRefresher(ctx, s.clock, sub, s.logger)
	return lq, nil
}

// Hub exposes the underlying reactive query layer for record-level
// subscriptions.
func (s *Service) Hub() *Hub {
	return s.hub
}

// LiveQuery is the handle returned by Service.Subscribe.
type LiveQuery struct {
	sub       *Subscription
	refresher *dayRefresher
}

// Unsubscribe stops deliveries and the day-boundary timer. It is idempotent
// and, like Subscription.Unsubscribe, does not wait for a running callback.
func (l *LiveQuery) Unsubscribe() {
	l.sub.Unsubscribe()
	l.refresher.stop()
}

// Done is closed once the subscription has ended.
func (l *LiveQuery) Done() <-chan struct{} {
	return l.sub.Done()
}

// Stopped is closed once no callback is running or will run.
func (l *LiveQuery) Stopped() <-chan struct{} {
	return l.sub.Stopped()
}

// QueryOption narrows or orders List and Subscribe results.
type QueryOption func(*queryOptions)

type queryOptions struct {
	Query
	recordOrder bool
}

// WithFilter restricts results to records matching f.
func WithFilter(f Filter) QueryOption {
	return func(o *queryOptions) {
		o.Filter = f
	}
}

// WithSort keeps the record order given by srt instead of the display order.
func WithSort(srt Sort) QueryOption {
	return func(o *queryOptions) {
		o.Sort = srt
		o.recordOrder = true
	}
}

func buildQuery(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o queryOptions) project(records []Record, now time.Time) []Entity {
	entities := ProjectAll(records, now)
	if !o.recordOrder {
		SortEntities(entities)
	}
	return entities
}
