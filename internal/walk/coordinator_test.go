package walk

import (
	"testing"

	"uoproxy/internal/wire"
)

type fakeWorld struct {
	walked     []walkCall
	cancels    []cancelCall
}

type walkCall struct {
	x, y      uint16
	direction byte
	notoriety byte
}

type cancelCall struct {
	x, y      uint16
	direction byte
}

func (f *fakeWorld) Walked(x, y uint16, direction, notoriety byte) {
	f.walked = append(f.walked, walkCall{x, y, direction, notoriety})
}

func (f *fakeWorld) WalkCancel(x, y uint16, direction byte) {
	f.cancels = append(f.cancels, cancelCall{x, y, direction})
}

type fakeForwarder struct {
	upstream [][]byte
	toClient map[ClientID][][]byte
}

func newFakeForwarder() *fakeForwarder {
	return &fakeForwarder{toClient: make(map[ClientID][][]byte)}
}

func (f *fakeForwarder) ForwardUpstream(buf []byte) {
	f.upstream = append(f.upstream, buf)
}

func (f *fakeForwarder) ForwardToClient(client ClientID, buf []byte) {
	f.toClient[client] = append(f.toClient[client], buf)
}

func TestWalkAckRoutedToOwnerOnly(t *testing.T) {
	world := &fakeWorld{}
	fwd := newFakeForwarder()
	c := New(world, fwd)

	c.Request("A", wire.Walk{Direction: 1}, 1, 1, 1)
	c.Request("B", wire.Walk{Direction: 2}, 2, 2, 2)

	if c.Len() != 2 {
		t.Fatalf("expected queue depth 2, got %d", c.Len())
	}

	c.Ack(wire.WalkAck{Seq: 1, Notoriety: 5})

	if len(fwd.toClient["A"]) != 1 {
		t.Fatalf("expected exactly one ack forwarded to A, got %d", len(fwd.toClient["A"]))
	}
	if len(fwd.toClient["B"]) != 0 {
		t.Fatalf("expected no ack forwarded to B, got %d", len(fwd.toClient["B"]))
	}
	if c.Len() != 1 {
		t.Fatalf("expected queue head to now be B's request, depth=%d", c.Len())
	}
	if len(world.walked) != 1 || world.walked[0].notoriety != 5 {
		t.Fatalf("expected world.Walked applied once with notoriety 5, got %+v", world.walked)
	}
}

func TestWalkCancelFlushesQueue(t *testing.T) {
	world := &fakeWorld{}
	fwd := newFakeForwarder()
	c := New(world, fwd)

	c.Request("A", wire.Walk{}, 0, 0, 0)
	c.Request("A", wire.Walk{}, 0, 0, 0)

	c.Cancel(wire.WalkCancel{Seq: 1, X: 5, Y: 6, Direction: 0})

	if c.Len() != 0 {
		t.Fatalf("expected queue flushed to empty, got depth %d", c.Len())
	}
	if len(world.cancels) != 1 || world.cancels[0].x != 5 || world.cancels[0].y != 6 {
		t.Fatalf("expected world.WalkCancel applied with (5,6), got %+v", world.cancels)
	}
	if len(fwd.toClient["A"]) != 1 {
		t.Fatalf("expected cancel forwarded to A exactly once, got %d", len(fwd.toClient["A"]))
	}
}

func TestQueueOverflowDrops(t *testing.T) {
	world := &fakeWorld{}
	fwd := newFakeForwarder()
	c := New(world, fwd)

	for i := 0; i < MaxQueueDepth+1; i++ {
		c.Request("A", wire.Walk{}, 0, 0, 0)
	}

	if c.Len() != MaxQueueDepth {
		t.Fatalf("expected queue capped at %d, got %d", MaxQueueDepth, c.Len())
	}
	if len(fwd.upstream) != MaxQueueDepth {
		t.Fatalf("expected only %d forwarded upstream, got %d", MaxQueueDepth, len(fwd.upstream))
	}
}

func TestSeqNeverZeroAndWraps(t *testing.T) {
	world := &fakeWorld{}
	fwd := newFakeForwarder()
	c := New(world, fwd)

	var lastSeq byte
	for i := 0; i < 300; i++ {
		c.Request("A", wire.Walk{}, 0, 0, 0)
		buf := fwd.upstream[len(fwd.upstream)-1]
		seq := buf[2]
		if seq == 0 {
			t.Fatalf("assigned seq was zero at iteration %d", i)
		}
		if lastSeq == 255 && seq != 1 {
			t.Fatalf("expected seq to wrap from 255 to 1, got %d", seq)
		}
		lastSeq = seq
		c.Ack(wire.WalkAck{Seq: seq}) // drain immediately so the queue never overflows
	}
	_ = lastSeq
}

func TestServerRemovedNullsOwnerButAppliesWorld(t *testing.T) {
	world := &fakeWorld{}
	fwd := newFakeForwarder()
	c := New(world, fwd)

	c.Request("A", wire.Walk{}, 9, 9, 9)
	c.ServerRemoved("A")
	c.Ack(wire.WalkAck{Seq: 1})

	if len(world.walked) != 1 {
		t.Fatalf("expected world still updated for a removed client, got %+v", world.walked)
	}
	if len(fwd.toClient["A"]) != 0 {
		t.Fatalf("expected nothing forwarded to a removed client, got %d", len(fwd.toClient["A"]))
	}
}

func TestStepEachOfEightDirections(t *testing.T) {
	cases := []struct {
		dir    byte
		dx, dy int
	}{
		{0, 0, -1},
		{1, 1, -1},
		{2, 1, 0},
		{3, 1, 1},
		{4, 0, 1},
		{5, -1, 1},
		{6, -1, 0},
		{7, -1, -1},
	}
	for _, tc := range cases {
		x, y := Step(100, 100, tc.dir)
		wantX, wantY := uint16(100+tc.dx), uint16(100+tc.dy)
		if x != wantX || y != wantY {
			t.Errorf("direction %d: got (%d, %d), want (%d, %d)", tc.dir, x, y, wantX, wantY)
		}
	}
}

func TestStepMasksRunningBit(t *testing.T) {
	x, y := Step(100, 100, 0)
	xRun, yRun := Step(100, 100, 0x80|0)
	if x != xRun || y != yRun {
		t.Errorf("running bit changed the predicted tile: (%d,%d) vs (%d,%d)", x, y, xRun, yRun)
	}
}
