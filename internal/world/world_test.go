package world

import (
	"testing"

	"uoproxy/internal/wire"
)

func TestGroundThenContainer(t *testing.T) {
	w := New(nil, nil)
	w.UpsertWorldItem7(wire.WorldItem7{Serial: 0x40000001, X: 10, Y: 20})
	w.UpsertContainerUpdate(wire.ContainerUpdate{Serial: 0x40000001, Parent: 0x40000002})

	it, ok := w.Item(0x40000001)
	if !ok {
		t.Fatal("item not found")
	}
	if it.SocketKind() != SocketContainer {
		t.Fatalf("expected SocketContainer, got %v", it.SocketKind())
	}
	parent, ok := it.Parent()
	if !ok || parent != 0x40000002 {
		t.Fatalf("expected parent 0x40000002, got %#x ok=%v", uint32(parent), ok)
	}
}

func TestContainerSweep(t *testing.T) {
	w := New(nil, nil)
	w.ReplaceContainerContent(0x40000010, []wire.ContainerContentEntry{
		{Serial: 0x40000011, Parent: 0x40000010},
		{Serial: 0x40000012, Parent: 0x40000010},
	})
	if _, ok := w.Item(0x40000011); !ok {
		t.Fatal("item 0x40000011 should exist after first sweep")
	}

	w.ReplaceContainerContent(0x40000010, []wire.ContainerContentEntry{
		{Serial: 0x40000012, Parent: 0x40000010},
	})

	if _, ok := w.Item(0x40000011); ok {
		t.Fatal("item 0x40000011 should have been swept")
	}
	remaining, ok := w.Item(0x40000012)
	if !ok {
		t.Fatal("item 0x40000012 should remain")
	}
	if remaining.AttachSequence == 0 {
		t.Fatal("remaining item should carry the new generation stamp")
	}
}

func TestRecursiveRemoval(t *testing.T) {
	w := New(nil, nil)
	w.mobileOrNew(0x00000001) // seed the mobile directly; no incoming packet needed for this scenario
	w.UpsertEquip(wire.Equip{Serial: 0x40000020, Parent: 0x00000001})
	w.UpsertEquip(wire.Equip{Serial: 0x40000021, Parent: 0x40000020})

	w.RemoveSerial(0x00000001)

	if _, ok := w.Mobile(0x00000001); ok {
		t.Fatal("mobile should be removed")
	}
	if _, ok := w.Item(0x40000020); ok {
		t.Fatal("direct child item should be removed")
	}
	if _, ok := w.Item(0x40000021); ok {
		t.Fatal("grandchild item should be removed")
	}
}

func TestMobileStatusMonotone(t *testing.T) {
	w := New(nil, nil)
	w.UpsertMobileStatus(wire.MobileStatus{Serial: 1, Flags: 5})
	w.UpsertMobileStatus(wire.MobileStatus{Serial: 1, Flags: 2}) // lower flags, should be ignored

	m, _ := w.Mobile(1)
	if m.Status.Flags != 5 {
		t.Fatalf("expected flags to remain 5, got %d", m.Status.Flags)
	}

	w.UpsertMobileStatus(wire.MobileStatus{Serial: 1, Flags: 7})
	m, _ = w.Mobile(1)
	if m.Status.Flags != 7 {
		t.Fatalf("expected flags to advance to 7, got %d", m.Status.Flags)
	}
}

func TestPlayerPositionAgreement(t *testing.T) {
	w := New(nil, nil)
	w.SetStart(wire.Start{Serial: 0x01, X: 100, Y: 200, Z: 5, Direction: 3})
	w.UpsertMobileIncoming(wire.MobileIncoming{Serial: 0x01, X: 150, Y: 250, Z: 6, Direction: 1})

	if w.Ambient.Start.X != 150 || w.Ambient.Start.Y != 250 || w.Ambient.Start.Direction != 1 {
		t.Fatalf("packet_start did not mirror player update: %+v", w.Ambient.Start)
	}
	if w.Ambient.MobileUpdate.X != 150 || w.Ambient.MobileUpdate.Y != 250 || w.Ambient.MobileUpdate.Direction != 1 {
		t.Fatalf("packet_mobile_update mismatch: %+v", w.Ambient.MobileUpdate)
	}
}

func TestWalkedPatchesAmbientAndIncoming(t *testing.T) {
	w := New(nil, nil)
	w.SetStart(wire.Start{Serial: 0x01, X: 1, Y: 1, Direction: 0})
	w.UpsertMobileIncoming(wire.MobileIncoming{Serial: 0x01, X: 1, Y: 1})

	w.Walked(5, 6, 2, 0x01)

	m, _ := w.Mobile(0x01)
	if m.Incoming.X != 5 || m.Incoming.Y != 6 || m.Incoming.Direction != 2 {
		t.Fatalf("player mobile_incoming not patched: %+v", m.Incoming)
	}
	if w.Ambient.Start.X != 5 || w.Ambient.Start.Y != 6 {
		t.Fatalf("ambient start not patched: %+v", w.Ambient.Start)
	}
}

func TestReattachReplayOrder(t *testing.T) {
	w := New(nil, nil)
	w.SetStart(wire.Start{Serial: 0x01, X: 1, Y: 1})
	w.UpsertMobileIncoming(wire.MobileIncoming{Serial: 0x01})
	w.UpsertMobileIncoming(wire.MobileIncoming{Serial: 0x02})
	w.UpsertMobileStatus(wire.MobileStatus{Serial: 0x02, Flags: 1})

	w.UpsertWorldItem7(wire.WorldItem7{Serial: 0x40000001})
	w.OpenContainer(wire.ContainerOpen{Serial: 0x40000002, GumpID: 7})
	w.UpsertContainerUpdate(wire.ContainerUpdate{Serial: 0x40000003, Parent: 0x40000002})
	w.UpsertEquip(wire.Equip{Serial: 0x40000004, Parent: 0x01})

	packets := w.Replay(Rev7)
	if len(packets) == 0 {
		t.Fatal("expected a non-empty replay stream")
	}
	// First packet must be the Start ambient packet.
	if wire.Opcode(packets[0][0]) != wire.OpStart {
		t.Fatalf("expected first packet to be Start, got opcode %#x", packets[0][0])
	}
	// Two ambient packets and three mobile packets come first; the items
	// follow: the socketless opened container's record, then the ground,
	// container and equipped items.
	if len(packets) != 9 {
		t.Fatalf("expected 9 replayed packets, got %d", len(packets))
	}
	want := []wire.Opcode{wire.OpContainerOpen7, wire.OpWorldItem7, wire.OpContainerUpdate, wire.OpEquip}
	tail := packets[len(packets)-len(want):]
	for i, op := range want {
		if wire.Opcode(tail[i][0]) != op {
			t.Fatalf("item packet %d: got opcode %#x, want %#x", i, tail[i][0], byte(op))
		}
	}
}

func TestWorldMirrorAtCapacitySkipsInsert(t *testing.T) {
	w := New(nil, nil)
	w.MaxEntities = 1
	w.UpsertWorldItem7(wire.WorldItem7{Serial: 0x40000001})
	w.UpsertWorldItem7(wire.WorldItem7{Serial: 0x40000002}) // should be dropped, mirror at capacity

	if _, ok := w.Item(0x40000002); ok {
		t.Fatal("expected second insert to be skipped at capacity")
	}
	advisory, pending := w.resync.Consume()
	_ = advisory
	if !pending {
		t.Fatal("expected a resync advisory once the loss ratio crossed the threshold")
	}
}
