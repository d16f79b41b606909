// Package downstream tracks the set of game clients attached to a
// session and their lifecycle states.
package downstream

import "sync"

// State is one of the four lifecycle states a downstream endpoint can be
// in, per §4.5.
type State int

const (
	StateHandshake State = iota
	StateActive
	StateZombie
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateActive:
		return "active"
	case StateZombie:
		return "zombie"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Writer is the minimum a downstream endpoint needs to implement so the
// session can fan packets out to it; it is typically a thin wrapper
// around a net.Conn.
type Writer interface {
	WritePacket(buf []byte) error
	Close() error
}

// Endpoint is one downstream client attached to a session.
type Endpoint struct {
	ID       string
	Revision int // 6 or 7, declared at attach time

	mu    sync.Mutex
	state State
	conn  Writer
}

// NewEndpoint constructs an endpoint in the handshake state.
func NewEndpoint(id string, conn Writer) *Endpoint {
	return &Endpoint{ID: id, conn: conn, state: StateHandshake}
}

// State reports the endpoint's current lifecycle state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Activate transitions handshake -> active, on attach/login.
func (e *Endpoint) Activate(revision int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateActive
	e.Revision = revision
}

// Zombify transitions active -> zombie, used during session migration;
// the socket stays open but the endpoint is excluded from broadcast.
func (e *Endpoint) Zombify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDisposed {
		e.state = StateZombie
	}
}

// Dispose transitions any state -> disposed and releases the socket.
func (e *Endpoint) Dispose() {
	e.mu.Lock()
	conn := e.conn
	e.state = StateDisposed
	e.conn = nil
	e.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Write sends buf if the endpoint is active; zombie/handshake/disposed
// endpoints silently drop it (zombie endpoints may still be drained
// explicitly via WriteDrain).
func (e *Endpoint) Write(buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive || e.conn == nil {
		return nil
	}
	return e.conn.WritePacket(buf)
}

// WriteDrain writes buf regardless of state as long as the socket is
// still open, for final drain during zombie teardown.
func (e *Endpoint) WriteDrain(buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	return e.conn.WritePacket(buf)
}
