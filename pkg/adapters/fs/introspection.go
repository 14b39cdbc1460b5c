package fs

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Format        string     `json:"format"`
	CacheSize     int        `json:"cache_size"`
	CachePath     string     `json:"cache_path"`
	Strict        bool       `json:"strict"`
	Serializers   []string   `json:"serializers"`
	Watchers      int        `json:"watchers"`
	WatcherActive bool       `json:"watcher_active"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
	Closed        bool       `json:"closed"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	serializers := make([]string, 0, len(r.serializers))
	for ext := range r.serializers {
		serializers = append(serializers, ext)
	}
	slices.Sort(serializers)

	return RepositoryState{
		Path:          r.Path,
		SystemDir:     r.config.SystemDir,
		Format:        r.ext,
		CacheSize:     r.cache.Len(),
		CachePath:     filepath.ToSlash(r.cache.Path),
		Strict:        r.config.Strict,
		Serializers:   serializers,
		Watchers:      len(r.watchers),
		WatcherActive: r.watcherActive,
		LastReconcile: r.lastReconcile,
		Closed:        r.closed,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}

func (r *Repository) recordReconcile() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.lastReconcile = &now
}
