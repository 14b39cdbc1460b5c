package core

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// Repository defines the contract for storing and retrieving moment records.
// Adhering to this interface keeps the core independent of the underlying
// storage mechanism (memory, filesystem, SQLite).
//
// Writes touching the same ID must be atomic with respect to each other: when
// an Update races a Remove on one record, whichever runs second observes the
// outcome of the first and reports ErrNotFound instead of acting on stale data.
type Repository interface {
	// Initialize ensures the underlying storage is ready (directories, schema).
	Initialize(ctx context.Context) error

	// Insert persists a new record. It fails with ErrAlreadyExists on ID collision.
	Insert(ctx context.Context, r Record) error

	// FindByID retrieves a record. It fails with ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (Record, error)

	// FindAll returns the records matching q.Filter ordered by q.Sort.
	FindAll(ctx context.Context, q Query) ([]Record, error)

	// Update merges p into the stored record and returns the result.
	// It fails with ErrNotFound when the record is absent.
	Update(ctx context.Context, id string, p Patch) (Record, error)

	// Remove deletes a record. It fails with ErrNotFound when absent.
	Remove(ctx context.Context, id string) error

	// RemoveAll deletes every record matching f and returns how many were removed.
	RemoveAll(ctx context.Context, f Filter) (int, error)

	// Close releases the storage handle.
	Close() error
}

// Watchable is implemented by repositories whose contents can change outside
// the process (e.g. files edited by hand).
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// Query selects and orders records.
type Query struct {
	Filter Filter
	Sort   Sort
}

// Filter restricts a query. Zero fields do not constrain the result.
type Filter struct {
	IDs         []string
	Frequencies []RepeatFrequency
	DateFrom    string // inclusive, YYYY-MM-DD
	DateTo      string // inclusive, YYYY-MM-DD
	Search      string // case-insensitive substring of title or description
}

// IsZero reports whether f matches every record.
func (f Filter) IsZero() bool {
	return len(f.IDs) == 0 && len(f.Frequencies) == 0 && f.DateFrom == "" && f.DateTo == "" && f.Search == ""
}

// Match reports whether r satisfies f. ISO dates compare correctly as strings.
func (f Filter) Match(r Record) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, r.ID) {
		return false
	}
	if len(f.Frequencies) > 0 && !slices.Contains(f.Frequencies, r.RepeatFrequency) {
		return false
	}
	if f.DateFrom != "" && r.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), needle) &&
			!strings.Contains(strings.ToLower(r.Description), needle) {
			return false
		}
	}
	return true
}

// SortField names a record field usable for ordering.
type SortField string

const (
	SortByDate      SortField = "date"
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// Sort orders query results. The zero value sorts by date ascending.
// Ties are always broken by ID ascending so results are deterministic.
type Sort struct {
	Field      SortField
	Descending bool
}

// Compare orders a and b according to s.
func (s Sort) Compare(a, b Record) int {
	var c int
	switch s.Field {
	case SortByTitle:
		c = cmp.Compare(a.Title, b.Title)
	case SortByCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		c = cmp.Compare(a.Date, b.Date)
	}
	if s.Descending {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Apply filters and sorts records in memory. Adapters without a native query
// engine use it to implement FindAll.
func (q Query) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q.Filter.Match(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, q.Sort.Compare)
	return out
}
