package session

import (
	"sync"
)

// Registry is the global table of live sessions, grounded on the
// teacher's Hub.Join/Hub.Subscribe map-of-live-entities pattern but
// keyed by the attach-matching triple instead of a player id. Per
// spec.md §5, the registry is touched only from each session's own
// goroutine at create/destroy time and from the accept loop at attach
// time, so a mutex (rather than the no-lock discipline of World and
// Coordinator) is sufficient and matches how the teacher guards Hub.
type Registry struct {
	mu       sync.Mutex
	sessions map[Key]*Session
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[Key]*Session)}
}

// Put registers a newly created session under its key.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Key] = s
}

// Remove unregisters a session, e.g. on teardown.
func (r *Registry) Remove(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// FindForAttach implements the §4.6 rule-1/rule-2 match policy: an
// attaching client joins a live session for the same
// (username, server_index, character_index) triple if one exists,
// including one mid-reconnect, rather than starting a new upstream
// session.
func (r *Registry) FindForAttach(key Key) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Snapshot returns every live session, for the admin dashboard and
// the %who command. It is the one place outside a session's own
// goroutine permitted to read session state, via the externally
// synchronized accessors below.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
