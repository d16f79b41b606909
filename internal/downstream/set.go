package downstream

import "sync"

// Set tracks every endpoint attached to one session, grounded on the
// mutex-guarded add/remove/close pattern used for tracking live
// subscribers in a broadcast hub.
type Set struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	order     []string // attachment order, for ordering guarantee §5.2
}

func NewSet() *Set {
	return &Set{endpoints: make(map[string]*Endpoint)}
}

// Add registers an endpoint in attachment order.
func (s *Set) Add(e *Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.endpoints[e.ID]; exists {
		return
	}
	s.endpoints[e.ID] = e
	s.order = append(s.order, e.ID)
}

// Remove unlinks an endpoint, e.g. once it is disposed.
func (s *Set) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return
	}
	delete(s.endpoints, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get looks an endpoint up by id.
func (s *Set) Get(id string) (*Endpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.endpoints[id]
	return e, ok
}

// Active returns every endpoint currently in the active state, in
// attachment order, for broadcast.
func (s *Set) Active() []*Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Endpoint, 0, len(s.order))
	for _, id := range s.order {
		e := s.endpoints[id]
		if e.State() == StateActive {
			out = append(out, e)
		}
	}
	return out
}

// All returns every tracked endpoint in attachment order, including
// zombies and handshakes.
func (s *Set) All() []*Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Endpoint, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.endpoints[id])
	}
	return out
}

// Len reports the number of tracked endpoints, any state.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.endpoints)
}

// HasActive reports whether any endpoint is currently active, used to
// decide session teardown (§3 Lifecycles: destroyed when the last
// downstream leaves and auto-reconnect is not in effect).
func (s *Set) HasActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if s.endpoints[id].State() == StateActive {
			return true
		}
	}
	return false
}
