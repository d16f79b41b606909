package world

import "uoproxy/internal/wire"

// Rev is a client protocol revision, 6 or 7, as declared at attach time.
type Rev int

const (
	Rev6 Rev = 6
	Rev7 Rev = 7
)

// Replay produces the fixed bootstrap sequence of wire packets that
// resynchronizes a freshly attached downstream client, in the order
// §3/§4.6 specify: ambient packets, then every mobile (incoming then
// status), then every item grouped ground -> container -> equipped. An
// item's container-open record is emitted just before that item's own
// packet; the records of opened items that have no socket come ahead of
// every item.
//
// Applying this stream to a fresh mirror rebuilds the current items,
// mobiles and parent relations. The group order does not affect that:
// container and equipped packets carry their parent serial, and the
// mirror accepts a child before its parent has arrived.
func (w *World) Replay(rev Rev) [][]byte {
	var out [][]byte

	out = append(out, w.replayAmbient()...)

	for _, m := range w.Mobiles() {
		if m.HasIncoming {
			out = append(out, wire.EncodeMobileIncoming(wire.MobileIncoming{
				Serial: m.Serial,
				BodyID: m.Incoming.BodyID,
				X:      m.Incoming.X,
				Y:      m.Incoming.Y,
				Z:      m.Incoming.Z,
				Direction: m.Incoming.Direction,
				Hue:       m.Incoming.Hue,
				Flags:     m.Incoming.Flags,
			}))
		}
		if m.HasStatus {
			out = append(out, wire.EncodeMobileStatus(wire.MobileStatus{Serial: m.Serial, Flags: m.Status.Flags}))
		}
	}

	for _, it := range w.itemsInSocketOrder(SocketNone) {
		if it.HasContainerOpen {
			out = append(out, w.encodeContainerOpen(rev, it)...)
		}
	}
	for _, socket := range []Socket{SocketGround, SocketContainer, SocketEquipped} {
		for _, it := range w.itemsInSocketOrder(socket) {
			if it.HasContainerOpen {
				out = append(out, w.encodeContainerOpen(rev, it)...)
			}
			out = append(out, w.encodeItem(rev, it)...)
		}
	}

	return out
}

// itemsInSocketOrder returns items currently in the given socket, ordered
// by serial for determinism (map iteration order is not stable).
func (w *World) itemsInSocketOrder(socket Socket) []*Item {
	var out []*Item
	for _, it := range w.items {
		if it.socket == socket {
			out = append(out, it)
		}
	}
	sortItemsBySerial(out)
	return out
}

func sortItemsBySerial(items []*Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].Serial > items[j].Serial; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
}

func (w *World) encodeContainerOpen(rev Rev, it *Item) [][]byte {
	open := wire.ContainerOpen{Serial: it.Serial, GumpID: it.ContainerOpen.GumpID}
	if rev >= Rev7 {
		return [][]byte{wire.EncodeContainerOpen7(wire.ToContainerOpen7(open))}
	}
	return [][]byte{wire.EncodeContainerOpen(open)}
}

func (w *World) encodeItem(rev Rev, it *Item) [][]byte {
	switch it.socket {
	case SocketGround:
		g := it.Ground
		if rev >= Rev7 {
			return [][]byte{wire.EncodeWorldItem7(wire.WorldItem7{Serial: it.Serial, ItemID: g.ItemID, Amount: g.Amount, X: g.X, Y: g.Y, Z: g.Z})}
		}
		return [][]byte{wire.EncodeWorldItem(wire.WorldItem{Serial: it.Serial, ItemID: g.ItemID, Amount: g.Amount, X: g.X, Y: g.Y, Z: g.Z})}
	case SocketContainer:
		c := it.Container
		return [][]byte{wire.EncodeContainerUpdate(wire.ContainerUpdate{Serial: it.Serial, Parent: c.Parent, ItemID: c.ItemID, Amount: c.Amount, X: c.X, Y: c.Y, GridIndex: c.GridIndex, Hue: c.Hue})}
	case SocketEquipped:
		e := it.Equipped
		return [][]byte{wire.EncodeEquip(wire.Equip{Serial: it.Serial, Parent: e.Parent, ItemID: e.ItemID, Layer: e.Layer, Hue: e.Hue})}
	default:
		return nil
	}
}

func (w *World) replayAmbient() [][]byte {
	var out [][]byte
	if w.Ambient.HasStart {
		out = append(out, wire.EncodeStart(wire.Start{
			Serial:    w.Ambient.Start.Serial,
			X:         w.Ambient.Start.X,
			Y:         w.Ambient.Start.Y,
			Z:         w.Ambient.Start.Z,
			Direction: w.Ambient.Start.Direction,
		}))
	}
	appendIfSet(&out, w.Ambient.MapChange)
	appendIfSet(&out, w.Ambient.MapPatches)
	appendIfSet(&out, w.Ambient.Season)
	if w.Ambient.HasMobileUpdate {
		m := w.Ambient.MobileUpdate
		out = append(out, wire.EncodeMobileUpdate(wire.MobileUpdate{
			Serial: m.Serial, BodyID: m.BodyID, X: m.X, Y: m.Y, Z: m.Z, Direction: m.Direction, Hue: m.Hue, Flags: m.Flags,
		}))
	}
	appendIfSet(&out, w.Ambient.GlobalLight)
	appendIfSet(&out, w.Ambient.PersonalLight)
	appendIfSet(&out, w.Ambient.WarMode)
	appendIfSet(&out, w.Ambient.Target)
	return out
}

func appendIfSet(out *[][]byte, raw []byte) {
	if len(raw) == 0 {
		return
	}
	cloned := append([]byte(nil), raw...)
	*out = append(*out, cloned)
}
