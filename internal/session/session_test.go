package session

import (
	"context"
	"testing"

	"uoproxy/internal/downstream"
)

type fakeConn struct {
	written [][]byte
}

func (f *fakeConn) WritePacket(buf []byte) error {
	f.written = append(f.written, buf)
	return nil
}
func (f *fakeConn) Close() error { return nil }

type fakeUpstream struct {
	sent   [][]byte
	closed bool
}

func (f *fakeUpstream) Send(b []byte) error { f.sent = append(f.sent, b); return nil }
func (f *fakeUpstream) Close() error        { f.closed = true; return nil }

func TestBroadcastOnlyToMatchingRevisionActive(t *testing.T) {
	up := &fakeUpstream{}
	s := New(Key{Username: "alice", ServerIndex: 0, CharacterIndex: 0}, 7, up, nil)

	connA, connB := &fakeConn{}, &fakeConn{}
	a := downstream.NewEndpoint("a", connA)
	b := downstream.NewEndpoint("b", connB)
	a.Activate(7)
	b.Activate(6)
	s.Endpoints().Add(a)
	s.Endpoints().Add(b)

	s.Broadcast(7, []byte{0x01})
	if len(connA.written) != 1 {
		t.Fatalf("expected rev7 endpoint to receive broadcast, got %d writes", len(connA.written))
	}
	if len(connB.written) != 0 {
		t.Fatalf("expected rev6 endpoint to be skipped, got %d writes", len(connB.written))
	}
}

func TestShouldTeardownRespectsBackground(t *testing.T) {
	s := New(Key{Username: "bob"}, 7, &fakeUpstream{}, nil)
	if !s.ShouldTeardown() {
		t.Fatal("expected teardown with zero endpoints and no background flag")
	}
	s.SetBackground(true)
	if s.ShouldTeardown() {
		t.Fatal("expected no teardown once background is set")
	}
}

func TestTeardownDisposesEndpointsAndClosesUpstream(t *testing.T) {
	up := &fakeUpstream{}
	s := New(Key{Username: "carol"}, 7, up, nil)
	conn := &fakeConn{}
	ep := downstream.NewEndpoint("c", conn)
	ep.Activate(7)
	s.Endpoints().Add(ep)

	s.Teardown(context.Background(), nil)

	if ep.State() != downstream.StateDisposed {
		t.Fatalf("expected endpoint disposed, got %v", ep.State())
	}
	if !up.closed {
		t.Fatal("expected upstream closed")
	}
}

func TestRegistryFindForAttach(t *testing.T) {
	r := NewRegistry()
	key := Key{Username: "dave", ServerIndex: 1, CharacterIndex: 2}
	s := New(key, 7, &fakeUpstream{}, nil)
	r.Put(s)

	found, ok := r.FindForAttach(key)
	if !ok || found != s {
		t.Fatal("expected to find registered session by key")
	}

	if _, ok := r.FindForAttach(Key{Username: "dave", ServerIndex: 1, CharacterIndex: 3}); ok {
		t.Fatal("expected no match for a different character index")
	}

	r.Remove(key)
	if _, ok := r.FindForAttach(key); ok {
		t.Fatal("expected session gone after Remove")
	}
}
