package sqlite

import "github.com/aretw0/introspection"

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path       string `json:"path"`
	Open       bool   `json:"open"`
	OpenConns  int    `json:"open_connections"`
	InUseConns int    `json:"in_use_connections"`
	WaitCount  int64  `json:"wait_count"`
	Closed     bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := RepositoryState{Path: r.Path, Open: r.db != nil && !r.closed, Closed: r.closed}
	if state.Open {
		stats := r.db.Stats()
		state.OpenConns = stats.OpenConnections
		state.InUseConns = stats.InUse
		state.WaitCount = stats.WaitCount
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
