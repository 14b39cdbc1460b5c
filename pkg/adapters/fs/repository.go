// Package fs stores moments as one document per record in a local directory.
// Documents can be JSON or YAML and may be edited by hand; Watch reports such
// external edits.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/moments/pkg/core"
)

// ErrInvalidID is returned when a record ID cannot be used as a file name.
var ErrInvalidID = errors.New("id is not a valid file name")

// Repository implements core.Repository using the filesystem.
type Repository struct {
	Path        string
	config      Config
	cache       *cache
	serializers map[string]Serializer
	ext         string
	locks       keyedMutex

	mu            sync.RWMutex
	closed        bool
	watchers      []context.CancelFunc
	watcherActive bool
	lastReconcile *time.Time
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	SystemDir string // defaults to ".moments"
	Format    string // "json" (default) or "yaml"; existing documents keep their format
	Strict    bool   // reject documents with unknown fields
	Logger    *slog.Logger

	// ErrorHandler receives watcher failures in addition to the logger.
	ErrorHandler func(error)
	// Debounce coalesces bursts of filesystem events per record (default 50ms).
	Debounce time.Duration
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = ".moments"
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	format := strings.ToLower(strings.TrimPrefix(config.Format, "."))
	if format == "" {
		format = "json"
	}
	return &Repository{
		Path:        config.Path,
		config:      config,
		cache:       newCache(config.Path, config.SystemDir),
		serializers: DefaultSerializers(config.Strict),
		ext:         "." + format,
	}
}

// Initialize creates the directory if needed, checks the format and loads the
// index cache.
func (r *Repository) Initialize(ctx context.Context) error {
	if _, ok := r.serializers[r.ext]; !ok {
		return fmt.Errorf("unsupported document format %q", r.config.Format)
	}

	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", r.Path)
		}
	} else if err := os.MkdirAll(r.Path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", classify(err))
	}

	if err := r.cache.Load(); err != nil {
		r.config.Logger.Warn("index cache unreadable, starting fresh", "error", err)
	}
	return nil
}

func (r *Repository) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return core.ErrClosed
	}
	return nil
}

// validID keeps every record inside the store directory and out of the
// system directory.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.HasPrefix(id, ".") ||
		strings.ContainsAny(id, `/\`+"\x00") || strings.HasPrefix(id, TempFilePrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// extensions returns the registered extensions, preferred format first.
func (r *Repository) extensions() []string {
	exts := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		if ext != r.ext {
			exts = append(exts, ext)
		}
	}
	slices.Sort(exts)
	return append([]string{r.ext}, exts...)
}

// locate finds the document holding id, whatever its format.
func (r *Repository) locate(id string) (string, error) {
	if validID(id) != nil {
		return "", &core.NotFoundError{ID: id}
	}
	for _, ext := range r.extensions() {
		name := id + ext
		if _, err := os.Stat(filepath.Join(r.Path, name)); err == nil {
			return name, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return "", &core.NotFoundError{ID: id}
}

// read decodes the document stored under name.
func (r *Repository) read(name string) (core.Record, os.FileInfo, error) {
	full := filepath.Join(r.Path, name)
	data, err := os.ReadFile(full)
	if err != nil {
		return core.Record{}, nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return core.Record{}, nil, err
	}

	ext := filepath.Ext(name)
	rec, err := r.serializers[ext].Decode(data)
	if err != nil {
		return core.Record{}, nil, fmt.Errorf("%w: %s: %v", core.ErrCorrupt, name, err)
	}
	if id := strings.TrimSuffix(name, ext); rec.ID != id {
		return core.Record{}, nil, fmt.Errorf("%w: %s holds id %q", core.ErrCorrupt, name, rec.ID)
	}
	// A hand-written document may leave the frequency out entirely.
	if rec.RepeatFrequency == "" {
		rec.RepeatFrequency = core.RepeatNone
	}
	if err := core.ValidateRecord(rec); err != nil {
		return core.Record{}, nil, fmt.Errorf("%w: %s: %v", core.ErrCorrupt, name, err)
	}
	return rec, info, nil
}

// write encodes rec into name and refreshes its cache entry.
func (r *Repository) write(name string, rec core.Record) error {
	data, err := r.serializers[filepath.Ext(name)].Encode(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", rec.ID, err)
	}

	full := filepath.Join(r.Path, name)
	if err := writeFileAtomic(full, data, 0644); err != nil {
		return err
	}

	if info, err := os.Stat(full); err == nil {
		r.cache.Set(name, &indexEntry{Record: rec, LastModified: info.ModTime(), Size: info.Size()})
	}
	return nil
}

// Insert implements core.Repository.
func (r *Repository) Insert(ctx context.Context, rec core.Record) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if err := core.ValidateRecord(rec); err != nil {
		return err
	}
	if err := validID(rec.ID); err != nil {
		return err
	}

	unlock := r.locks.Lock(rec.ID)
	defer unlock()

	if _, err := r.locate(rec.ID); err == nil {
		return fmt.Errorf("insert %s: %w", rec.ID, core.ErrAlreadyExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}

	if err := r.write(rec.ID+r.ext, rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	r.config.Logger.Debug("document written", "id", rec.ID)
	return nil
}

// FindByID implements core.Repository.
func (r *Repository) FindByID(ctx context.Context, id string) (core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return core.Record{}, err
	}

	name, err := r.locate(id)
	if err != nil {
		return core.Record{}, err
	}
	rec, _, err := r.read(name)
	if os.IsNotExist(err) {
		return core.Record{}, &core.NotFoundError{ID: id}
	}
	return rec, err
}

// FindAll implements core.Repository. Documents that fail to decode are
// logged and skipped so one broken hand edit does not hide every moment.
func (r *Repository) FindAll(ctx context.Context, q core.Query) ([]core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	names, err := doublestar.Glob(os.DirFS(r.Path), r.globPattern())
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	records := make([]core.Record, 0, len(names))
	seen := make(map[string]bool, len(names))
	ids := make(map[string]string, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if validID(id) != nil {
			continue
		}

		rec, err := r.load(name)
		if err != nil {
			if !os.IsNotExist(err) {
				r.config.Logger.Error("skipping unreadable document", "file", name, "error", err)
			}
			continue
		}
		seen[name] = true

		if other, dup := ids[rec.ID]; dup {
			r.config.Logger.Warn("duplicate document for id, keeping first", "id", rec.ID, "kept", other, "skipped", name)
			continue
		}
		ids[rec.ID] = name
		records = append(records, rec)
	}

	r.cache.Prune(seen)
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to save index cache", "error", err)
	}

	return q.Apply(records), nil
}

// load returns the record in name, from the cache when the file is unchanged.
func (r *Repository) load(name string) (core.Record, error) {
	info, err := os.Stat(filepath.Join(r.Path, name))
	if err != nil {
		return core.Record{}, err
	}
	if entry, hit := r.cache.Get(name, info); hit {
		return entry.Record, nil
	}

	r.config.Logger.Debug("index cache miss", "file", name)
	rec, info, err := r.read(name)
	if err != nil {
		return core.Record{}, err
	}
	r.cache.Set(name, &indexEntry{Record: rec, LastModified: info.ModTime(), Size: info.Size()})
	return rec, nil
}

func (r *Repository) globPattern() string {
	exts := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(exts)
	return "*.{" + strings.Join(exts, ",") + "}"
}

// Update implements core.Repository. The document keeps its format.
func (r *Repository) Update(ctx context.Context, id string, p core.Patch) (core.Record, error) {
	if err := r.checkOpen(); err != nil {
		return core.Record{}, err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	name, err := r.locate(id)
	if err != nil {
		return core.Record{}, err
	}
	cur, _, err := r.read(name)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Record{}, &core.NotFoundError{ID: id}
		}
		return core.Record{}, err
	}

	next := p.Apply(cur)
	if err := core.ValidateRecord(next); err != nil {
		return core.Record{}, err
	}
	if err := r.write(name, next); err != nil {
		return core.Record{}, fmt.Errorf("update %s: %w", id, err)
	}
	r.config.Logger.Debug("document rewritten", "id", id)
	return next, nil
}

// Remove implements core.Repository.
func (r *Repository) Remove(ctx context.Context, id string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	return r.remove(id)
}

// remove deletes the document of id. The caller holds the id lock.
func (r *Repository) remove(id string) error {
	name, err := r.locate(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(r.Path, name)); err != nil {
		if os.IsNotExist(err) {
			return &core.NotFoundError{ID: id}
		}
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	r.cache.Delete(name)
	r.config.Logger.Debug("document removed", "id", id)
	return nil
}

// RemoveAll implements core.Repository. Matching documents are staged in a
// Transaction and removed in one commit; each is matched again under its
// lock, so a record updated out of f in the meantime survives.
func (r *Repository) RemoveAll(ctx context.Context, f core.Filter) (int, error) {
	matches, err := r.FindAll(ctx, core.Query{Filter: f})
	if err != nil {
		return 0, err
	}

	tx := r.beginMatching(ctx, f.Match)
	for _, rec := range matches {
		if err := tx.Delete(ctx, rec.ID); err != nil {
			_ = tx.Rollback(ctx)
			return 0, err
		}
	}
	return tx.Commit(ctx)
}

// Close stops every watcher and flushes the index cache.
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	watchers := r.watchers
	r.watchers = nil
	r.mu.Unlock()

	for _, cancel := range watchers {
		cancel()
	}
	return r.cache.Save()
}

var _ core.Repository = (*Repository)(nil)
