package session

import (
	"context"

	"uoproxy/internal/downstream"
	"uoproxy/internal/world"
	"uoproxy/logging"
	"uoproxy/logging/lifecycle"
)

// Attach implements §4.6: a downstream endpoint joins this session,
// either newly created (rule 1, no existing session for the key) or
// rejoining one already live, possibly mid-reconnect (rule 2). The
// endpoint is activated and the world is replayed to it in the fixed
// order spec.md §4.6 and §8 scenario 6 specify.
func (s *Session) Attach(ctx context.Context, ep *downstream.Endpoint, revision int, newSession bool) {
	ep.Activate(revision)
	s.endpoints.Add(ep)

	rev := world.Rev(revision)
	for _, pkt := range s.world.Replay(rev) {
		_ = ep.Write(pkt)
	}

	lifecycle.SessionAttached(ctx, s.logger, s.actor, lifecycle.SessionAttachedPayload{
		NewSession:     newSession,
		ServerIndex:    s.Key.ServerIndex,
		CharacterIndex: s.Key.CharacterIndex,
	})
	s.metrics.Add("attach_count", 1)
}

// Detach moves an endpoint to zombie (session migration) rather than
// disposing it outright, so a brief socket handoff doesn't need a
// fresh TCP connection.
func (s *Session) Detach(ctx context.Context, id string, reason string) {
	ep, ok := s.endpoints.Get(id)
	if !ok {
		return
	}
	ep.Zombify()
	s.logger.Publish(ctx, logging.Event{
		Type:     "session.endpoint_zombified",
		Actor:    s.actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAttach,
		Payload:  map[string]any{"endpoint": id, "reason": reason},
	})
}
