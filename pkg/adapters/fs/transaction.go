package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/aretw0/moments/pkg/core"
)

// Transaction stages removals and applies them in one commit, saving the
// index cache once instead of per document.
type Transaction struct {
	repo    *Repository
	deleted map[string]bool
	guard   func(core.Record) bool
	mu      sync.Mutex
	closed  bool
}

// Begin starts a new transaction.
func (r *Repository) Begin(ctx context.Context) *Transaction {
	return &Transaction{
		repo:    r,
		deleted: make(map[string]bool),
	}
}

// beginMatching starts a transaction whose Commit only removes documents that
// still satisfy match when their lock is held.
func (r *Repository) beginMatching(ctx context.Context, match func(core.Record) bool) *Transaction {
	tx := r.Begin(ctx)
	tx.guard = match
	return tx
}

// Delete stages the removal of id.
func (t *Transaction) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transaction closed")
	}
	if err := validID(id); err != nil {
		return err
	}
	t.deleted[id] = true
	return nil
}

// Commit removes every staged document and returns how many were removed.
// A document already removed by a concurrent writer is not counted, nor is one
// that a concurrent update moved out of the transaction's filter.
func (t *Transaction) Commit(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, fmt.Errorf("transaction already closed")
	}
	t.closed = true
	if err := t.repo.checkOpen(); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(t.deleted))
	for id := range t.deleted {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		unlock := t.repo.locks.Lock(id)
		err := t.removeLocked(id)
		unlock()
		switch {
		case err == nil:
			removed++
		case errors.Is(err, core.ErrNotFound):
		default:
			return removed, err
		}
	}

	if err := t.repo.cache.Save(); err != nil {
		t.repo.config.Logger.Warn("failed to save index cache", "error", err)
	}
	return removed, nil
}

func (t *Transaction) removeLocked(id string) error {
	if t.guard != nil {
		name, err := t.repo.locate(id)
		if err != nil {
			return err
		}
		rec, _, err := t.repo.read(name)
		if err != nil {
			if errors.Is(err, core.ErrCorrupt) || os.IsNotExist(err) {
				return &core.NotFoundError{ID: id}
			}
			return err
		}
		if !t.guard(rec) {
			return &core.NotFoundError{ID: id}
		}
	}
	return t.repo.remove(id)
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deleted = nil
	t.closed = true
	return nil
}
