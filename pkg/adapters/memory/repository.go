// Package memory is an in-process Repository. It backs tests and ephemeral
// sessions; nothing survives Close.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/moments/pkg/core"
)

// Repository keeps records in a map guarded by a single RWMutex, which makes
// every write atomic with respect to every other.
type Repository struct {
	mu      sync.RWMutex
	records map[string]core.Record
	closed  bool
	fail    error
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{records: make(map[string]core.Record)}
}

func (r *Repository) check() error {
	if r.closed {
		return core.ErrClosed
	}
	return r.fail
}

// Initialize implements core.Repository.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.check()
}

// Insert implements core.Repository.
func (r *Repository) Insert(ctx context.Context, rec core.Record) error {
	if err := core.ValidateRecord(rec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("insert %s: %w", rec.ID, core.ErrAlreadyExists)
	}
	r.records[rec.ID] = rec
	return nil
}

// FindByID implements core.Repository.
func (r *Repository) FindByID(ctx context.Context, id string) (core.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return core.Record{}, err
	}
	rec, ok := r.records[id]
	if !ok {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	return rec, nil
}

// FindAll implements core.Repository.
func (r *Repository) FindAll(ctx context.Context, q core.Query) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(); err != nil {
		return nil, err
	}
	all := make([]core.Record, 0, len(r.records))
	for _, rec := range r.records {
		all = append(all, rec)
	}
	return q.Apply(all), nil
}

// Update implements core.Repository.
func (r *Repository) Update(ctx context.Context, id string, p core.Patch) (core.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return core.Record{}, err
	}
	cur, ok := r.records[id]
	if !ok {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	next := p.Apply(cur)
	if err := core.ValidateRecord(next); err != nil {
		return core.Record{}, err
	}
	r.records[id] = next
	return next, nil
}

// Remove implements core.Repository.
func (r *Repository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	if _, ok := r.records[id]; !ok {
		return &core.NotFoundError{ID: id}
	}
	delete(r.records, id)
	return nil
}

// RemoveAll implements core.Repository.
func (r *Repository) RemoveAll(ctx context.Context, f core.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return 0, err
	}
	n := 0
	for id, rec := range r.records {
		if f.Match(rec) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

// Close implements core.Repository. The records are discarded.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.records = nil
	return nil
}

// Fail makes every subsequent operation return err, simulating a broken
// backend. Pass nil to recover.
func (r *Repository) Fail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]any{
		"records": len(r.records),
		"closed":  r.closed,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "memory-repository"
}

var (
	_ core.Repository              = (*Repository)(nil)
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
