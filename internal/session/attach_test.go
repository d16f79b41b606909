package session

import (
	"context"
	"testing"

	"uoproxy/internal/downstream"
	"uoproxy/internal/wire"
)

func TestAttachReplaysWorldToFreshEndpoint(t *testing.T) {
	s := New(Key{Username: "carol"}, 7, &fakeUpstream{}, nil)
	s.World().SetStart(wire.Start{Serial: 0x1001, X: 10, Y: 20, Z: 0, Direction: 1})

	conn := &fakeConn{}
	ep := downstream.NewEndpoint("e1", conn)

	s.Attach(context.Background(), ep, 7, true)

	if ep.State() != downstream.StateActive {
		t.Fatalf("expected endpoint to be active after attach, got %v", ep.State())
	}
	if len(conn.written) == 0 {
		t.Fatalf("expected the replay bootstrap to write at least one packet")
	}
	if _, ok := s.endpoints.Get("e1"); !ok {
		t.Fatalf("expected endpoint to be registered in the session's set")
	}
}

func TestDetachZombifiesWithoutDisposingSocket(t *testing.T) {
	s := New(Key{Username: "dave"}, 7, &fakeUpstream{}, nil)
	conn := &fakeConn{}
	ep := downstream.NewEndpoint("e1", conn)
	s.Attach(context.Background(), ep, 7, true)

	s.Detach(context.Background(), "e1", "migrating")

	if ep.State() != downstream.StateZombie {
		t.Fatalf("expected endpoint to be zombified, got %v", ep.State())
	}
	if err := ep.WriteDrain([]byte{0x01}); err != nil {
		t.Fatalf("expected the socket to still accept a drained write: %v", err)
	}
}

func TestDetachUnknownEndpointIsNoop(t *testing.T) {
	s := New(Key{Username: "erin"}, 7, &fakeUpstream{}, nil)
	s.Detach(context.Background(), "missing", "noop")
}
