package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	RepositoryType string `json:"repository_type"`
	EventBuffer    int    `json:"event_buffer"`
	Subscriptions  int    `json:"subscriptions"`
	ReadOnly       bool   `json:"read_only"`
	Watching       string `json:"watching,omitempty"`
	Initialized    bool   `json:"initialized"`
	Closed         bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repoType := "unknown"
	if s.repo != nil {
		repoType = "repository"
		if comp, ok := s.repo.(introspection.Component); ok {
			repoType = comp.ComponentType()
		}
	}

	buffer := s.eventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}

	return ServiceState{
		RepositoryType: repoType,
		EventBuffer:    buffer,
		Subscriptions:  s.hub.Len(),
		ReadOnly:       s.readOnly,
		Watching:       s.watchPattern,
		Initialized:    s.initialized,
		Closed:         s.closed,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "moment-service"
}

// HubState exposes the reactive layer for observability.
type HubState struct {
	Subscriptions int  `json:"subscriptions"`
	Buffer        int  `json:"buffer"`
	Closed        bool `json:"closed"`
}

// State implements introspection.Introspectable.
func (h *Hub) State() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HubState{
		Subscriptions: len(h.subs),
		Buffer:        h.buffer,
		Closed:        h.closed,
	}
}

// ComponentType implements introspection.Component.
func (h *Hub) ComponentType() string {
	return "hub"
}

var (
	_ introspection.Introspectable = (*Service)(nil)
	_ introspection.Component      = (*Service)(nil)
	_ introspection.Introspectable = (*Hub)(nil)
	_ introspection.Component      = (*Hub)(nil)
)
