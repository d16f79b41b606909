// Package session owns the per-character proxy session: the upstream
// connection, the world mirror, the walk coordinator, the set of
// attached downstream endpoints, and the broadcast/divert/attach/
// reconnect operations that tie them together. It is grounded on the
// teacher's Hub, scoped down from one global world to one upstream
// connection per session.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"uoproxy/internal/downstream"
	"uoproxy/internal/telemetry"
	"uoproxy/internal/walk"
	"uoproxy/internal/wire"
	"uoproxy/internal/world"
	"uoproxy/logging"
	"uoproxy/logging/lifecycle"
)

// Key identifies a session for attach matching, per §4.6 rule 1.
type Key struct {
	Username       string
	ServerIndex    int
	CharacterIndex int
}

// Upstream is the narrow surface Session needs from the single
// upstream connection, so tests can fake it without a real socket.
type Upstream interface {
	Send([]byte) error
	Close() error
}

// Session aggregates the upstream handle, the world mirror, the walk
// coordinator, and the attached downstream set for one character.
// Per the single-writer concurrency model, every method here runs on
// the session's owning goroutine; the mutex only protects the handful
// of fields the Registry's externally-synchronized snapshot methods
// read from other goroutines (state, counts, the admin dashboard).
type Session struct {
	Key Key

	mu            sync.Mutex
	background    bool
	autoreconnect bool
	revision      int

	world     *world.World
	endpoints *downstream.Set
	upstream  Upstream

	logger  logging.Publisher
	actor   logging.EntityRef
	metrics telemetry.Metrics
}

// New constructs a Session bound to one upstream connection.
func New(key Key, revision int, upstream Upstream, pub logging.Publisher) *Session {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	actor := logging.EntityRef{ID: sessionID(key), Kind: logging.EntityKindSession}
	return &Session{
		Key:           key,
		revision:      revision,
		autoreconnect: true,
		world:         world.New(nil, logging.WithFields(pub, map[string]any{"session": actor.ID})),
		endpoints:     downstream.NewSet(),
		upstream:      upstream,
		logger:        pub,
		actor:         actor,
		metrics:       telemetry.WrapMetrics(&logging.Metrics{}),
	}
}

func sessionID(k Key) string {
	return fmt.Sprintf("%s#%d.%d", k.Username, k.ServerIndex, k.CharacterIndex)
}

// World exposes the mirror for the walk coordinator and replay code
// that must run on the same goroutine as Session.
func (s *Session) World() *world.World { return s.world }

// Endpoints exposes the downstream set for replay/attach plumbing.
func (s *Session) Endpoints() *downstream.Set { return s.endpoints }

// SetAutoreconnect toggles the %auto command-channel flag.
func (s *Session) SetAutoreconnect(v bool) {
	s.mu.Lock()
	s.autoreconnect = v
	s.mu.Unlock()
}

// Autoreconnect reports the current %auto flag.
func (s *Session) Autoreconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoreconnect
}

// SetBackground toggles whether the session survives zero attached
// downstreams.
func (s *Session) SetBackground(v bool) {
	s.mu.Lock()
	s.background = v
	s.mu.Unlock()
}

// Background reports whether the session runs unattended.
func (s *Session) Background() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// ShouldTeardown reports whether the last downstream has left and the
// session is not configured to survive unattended (§3 Lifecycles).
func (s *Session) ShouldTeardown() bool {
	if s.Background() {
		return false
	}
	return !s.endpoints.HasActive()
}

// Broadcast sends bytes to every attached downstream whose declared
// revision matches rev, in attachment order (§4.4, invariant 2).
func (s *Session) Broadcast(rev world.Rev, payload []byte) {
	for _, ep := range s.endpoints.Active() {
		if world.Rev(ep.Revision) != rev {
			continue
		}
		if err := ep.Write(payload); err != nil {
			s.logger.Publish(context.Background(), logging.Event{
				Type:     "session.broadcast_failed",
				Actor:    s.actor,
				Severity: logging.SeverityWarn,
				Category: logging.CategorySession,
				Payload:  map[string]any{"endpoint": ep.ID, "err": err.Error()},
			})
		}
	}
	s.metrics.Add("broadcast_packets", 1)
	s.metrics.Add("broadcast_bytes", uint64(len(payload)))
}

// Divert delivers a downstream-client-specific payload to one
// endpoint, bypassing broadcast — used when a packet must be reshaped
// per client revision instead of shared verbatim.
func (s *Session) Divert(id string, payload []byte) error {
	ep, ok := s.endpoints.Get(id)
	if !ok {
		return fmt.Errorf("session: unknown endpoint %q", id)
	}
	return ep.Write(payload)
}

// SpeakConsole synthesizes a server-origin chat packet and broadcasts
// it to every attached downstream, used for reconnect/attach/command
// feedback (§4.4).
func (s *Session) SpeakConsole(text string) {
	pkt := wire.EncodeSpeak(text)
	for _, ep := range s.endpoints.Active() {
		_ = ep.Write(pkt)
	}
}

// SetUpstream replaces the live upstream connection after a successful
// reconnect. The old connection, if any, is left for the caller to close.
func (s *Session) SetUpstream(u Upstream) {
	s.mu.Lock()
	s.upstream = u
	s.mu.Unlock()
}

// ForwardUpstream sends a payload to the real game server, satisfying
// walk.Forwarder.
func (s *Session) ForwardUpstream(payload []byte) {
	s.mu.Lock()
	up := s.upstream
	s.mu.Unlock()
	if up == nil {
		return
	}
	if err := up.Send(payload); err != nil {
		s.logger.Publish(context.Background(), logging.Event{
			Type:     "session.upstream_send_failed",
			Actor:    s.actor,
			Severity: logging.SeverityWarn,
			Category: logging.CategorySession,
			Payload:  map[string]any{"err": err.Error()},
		})
	}
}

// ForwardToClient routes a walk ack/cancel back to the downstream
// client that made the request, satisfying walk.Forwarder.
func (s *Session) ForwardToClient(client walk.ClientID, payload []byte) {
	id, ok := client.(string)
	if !ok {
		return
	}
	if err := s.Divert(id, payload); err != nil {
		s.logger.Publish(context.Background(), logging.Event{
			Type:     "session.divert_failed",
			Actor:    s.actor,
			Severity: logging.SeverityDebug,
			Category: logging.CategoryWalk,
			Payload:  map[string]any{"endpoint": id, "err": err.Error()},
		})
	}
}

// Teardown disposes every downstream endpoint with a console-speak
// farewell and closes the upstream connection. cause, if non-nil, is
// unwrapped with errors.Cause to produce the farewell text, per
// spec.md §7's "errors are recovered at the session boundary".
func (s *Session) Teardown(ctx context.Context, cause error) {
	reason := "session closed"
	if cause != nil {
		reason = errors.Cause(cause).Error()
		s.SpeakConsole(fmt.Sprintf("connection lost: %s", reason))
	}
	for _, ep := range s.endpoints.All() {
		ep.Dispose()
	}
	if s.upstream != nil {
		_ = s.upstream.Close()
	}
	lifecycle.SessionTornDown(ctx, s.logger, s.actor, lifecycle.SessionTornDownPayload{Reason: reason})
}

// Metrics exposes the session's local counters for the admin dashboard.
func (s *Session) Metrics() map[string]uint64 {
	return s.metrics.Snapshot()
}
