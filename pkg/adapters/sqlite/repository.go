// Package sqlite stores moments in a single SQLite database file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/aretw0/moments/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/moments/pkg/core"
)

// Config holds the configuration for the SQLite repository.
type Config struct {
	Path   string // database file; its directory is created on Initialize
	Logger *slog.Logger
}

// Repository implements core.Repository on SQLite.
type Repository struct {
	Path   string
	logger *slog.Logger

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewRepository creates a repository. The database is opened by Initialize.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Repository{Path: config.Path, logger: config.Logger}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Initialize opens the database and applies the embedded migrations.
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return core.ErrClosed
	}
	if r.db != nil {
		return nil
	}
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(r.Path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	// Immediate transactions take the write lock up front, so a read-modify-write
	// in Update cannot deadlock against another writer.
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite db: %w", classify(err))
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return fmt.Errorf("run migrations: %w", classify(err))
	}

	r.db = db
	r.logger.Debug("sqlite store opened", "path", cleanPath)
	return nil
}

// handle returns the open database or the reason it cannot be used.
func (r *Repository) handle() (*sql.DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, core.ErrClosed
	}
	if r.db == nil {
		return nil, fmt.Errorf("storage is not initialized")
	}
	return r.db, nil
}

const selectColumns = `SELECT id, title, description, date, repeat_frequency, created_at, updated_at FROM moments`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (core.Record, error) {
	var rec core.Record
	var freq string
	var createdAt, updatedAt int64
	if err := row.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Date, &freq, &createdAt, &updatedAt); err != nil {
		return core.Record{}, err
	}
	if err := rec.RepeatFrequency.UnmarshalText([]byte(freq)); err != nil {
		return core.Record{}, fmt.Errorf("%w: %s: %v", core.ErrCorrupt, rec.ID, err)
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

// Insert implements core.Repository.
func (r *Repository) Insert(ctx context.Context, rec core.Record) error {
	db, err := r.handle()
	if err != nil {
		return err
	}
	if err := core.ValidateRecord(rec); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO moments (id, title, description, date, repeat_frequency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Description, rec.Date, rec.RepeatFrequency.String(),
		toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", rec.ID, core.ErrAlreadyExists)
		}
		return fmt.Errorf("insert %s: %w", rec.ID, classify(err))
	}
	return nil
}

// FindByID implements core.Repository.
func (r *Repository) FindByID(ctx context.Context, id string) (core.Record, error) {
	db, err := r.handle()
	if err != nil {
		return core.Record{}, err
	}
	return findByID(ctx, db, id)
}

func findByID(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string) (core.Record, error) {
	rec, err := scanRecord(q.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Record{}, &core.NotFoundError{ID: id}
		}
		return core.Record{}, fmt.Errorf("get %s: %w", id, classify(err))
	}
	return rec, nil
}

// FindAll implements core.Repository. Structured filters and ordering run in
// SQL; the text search runs in Go because SQLite only folds ASCII case.
func (r *Repository) FindAll(ctx context.Context, q core.Query) ([]core.Record, error) {
	db, err := r.handle()
	if err != nil {
		return nil, err
	}

	where, args := whereClause(q.Filter)
	rows, err := db.QueryContext(ctx, selectColumns+where+orderClause(q.Sort), args...)
	if err != nil {
		return nil, fmt.Errorf("list moments: %w", classify(err))
	}
	defer rows.Close()

	search := core.Filter{Search: q.Filter.Search}
	var records []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan moment: %w", classify(err))
		}
		if search.Match(rec) {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list moments: %w", classify(err))
	}
	return records, nil
}

func whereClause(f core.Filter) (string, []any) {
	var conds []string
	var args []any
	if len(f.IDs) > 0 {
		conds = append(conds, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.Frequencies) > 0 {
		conds = append(conds, "repeat_frequency IN ("+placeholders(len(f.Frequencies))+")")
		for _, freq := range f.Frequencies {
			args = append(args, freq.String())
		}
	}
	if f.DateFrom != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.DateTo)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// orderClause mirrors core.Sort.Compare: ties are broken by id ascending.
func orderClause(s core.Sort) string {
	column := "date"
	switch s.Field {
	case core.SortByTitle:
		column = "title"
	case core.SortByCreatedAt:
		column = "created_at"
	case core.SortByUpdatedAt:
		column = "updated_at"
	}
	direction := "ASC"
	if s.Descending {
		direction = "DESC"
	}
	return " ORDER BY " + column + " " + direction + ", id ASC"
}

// Update implements core.Repository. The read and the write share one
// transaction, so a concurrent Remove either happens before (ErrNotFound) or
// after (removing the updated row).
func (r *Repository) Update(ctx context.Context, id string, p core.Patch) (core.Record, error) {
	db, err := r.handle()
	if err != nil {
		return core.Record{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return core.Record{}, fmt.Errorf("begin update %s: %w", id, classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := findByID(ctx, tx, id)
	if err != nil {
		return core.Record{}, err
	}
	next := p.Apply(cur)
	if err := core.ValidateRecord(next); err != nil {
		return core.Record{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE moments
		    SET title = ?, description = ?, date = ?, repeat_frequency = ?, updated_at = ?
		  WHERE id = ?`,
		next.Title, next.Description, next.Date, next.RepeatFrequency.String(), toMillis(next.UpdatedAt), id,
	)
	if err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", id, classify(err))
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", id, classify(err))
	} else if n == 0 {
		return core.Record{}, &core.NotFoundError{ID: id}
	}

	if err := tx.Commit(); err != nil {
		return core.Record{}, fmt.Errorf("commit update %s: %w", id, classify(err))
	}
	return next, nil
}

// Remove implements core.Repository.
func (r *Repository) Remove(ctx context.Context, id string) error {
	db, err := r.handle()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM moments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, classify(err))
	}
	if n == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// RemoveAll implements core.Repository.
func (r *Repository) RemoveAll(ctx context.Context, f core.Filter) (int, error) {
	db, err := r.handle()
	if err != nil {
		return 0, err
	}

	// Search is evaluated in Go, so matching ids are resolved first.
	if f.Search != "" {
		matches, err := r.FindAll(ctx, core.Query{Filter: f})
		if err != nil {
			return 0, err
		}
		if len(matches) == 0 {
			return 0, nil
		}
		f = core.Filter{IDs: make([]string, len(matches))}
		for i, rec := range matches {
			f.IDs[i] = rec.ID
		}
	}

	where, args := whereClause(f)
	res, err := db.ExecContext(ctx, `DELETE FROM moments`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("remove all: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("remove all: %w", classify(err))
	}
	r.logger.Debug("moments removed", "count", n)
	return int(n), nil
}

// Close closes the database handle.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}

// classify maps driver result codes onto the core sentinels. Errors raised
// while the driver sets up a connection may arrive without a code, so the
// message is checked as well.
func classify(err error) error {
	code := 0
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code = sqliteErr.Code() & 0xff
	}
	message := strings.ToLower(err.Error())
	switch {
	case code == sqlite3lib.SQLITE_FULL, strings.Contains(message, "database or disk is full"):
		return fmt.Errorf("%w: %w", core.ErrQuotaExceeded, err)
	case code == sqlite3lib.SQLITE_CORRUPT, code == sqlite3lib.SQLITE_NOTADB,
		strings.Contains(message, "file is not a database"),
		strings.Contains(message, "disk image is malformed"):
		return fmt.Errorf("%w: %w", core.ErrCorrupt, err)
	}
	return err
}

var _ core.Repository = (*Repository)(nil)
