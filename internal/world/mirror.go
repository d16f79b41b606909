package world

import (
	"uoproxy/internal/serial"
	"uoproxy/internal/wire"
)

// UpsertWorldItem inserts or replaces an item's ground socket from a
// rev-6 world-item packet, masking the legacy high bit off the serial.
func (w *World) UpsertWorldItem(p wire.WorldItem) {
	s := serial.MaskRev6HighBit(p.Serial)
	w.setGround(s, GroundState{ItemID: p.ItemID, Amount: p.Amount, X: p.X, Y: p.Y, Z: p.Z})
}

// UpsertWorldItem7 inserts or replaces an item's ground socket from a
// rev-7 world-item packet.
func (w *World) UpsertWorldItem7(p wire.WorldItem7) {
	w.setGround(p.Serial, GroundState{ItemID: p.ItemID, Amount: p.Amount, X: p.X, Y: p.Y, Z: p.Z})
}

func (w *World) setGround(s Serial, g GroundState) {
	it, ok := w.itemOrNew(s)
	if !ok {
		return
	}
	it.socket = SocketGround
	it.Ground = g
}

// UpsertEquip inserts or replaces an item's equipped socket; the parent
// is the wearing mobile's serial.
func (w *World) UpsertEquip(p wire.Equip) {
	it, ok := w.itemOrNew(p.Serial)
	if !ok {
		return
	}
	it.socket = SocketEquipped
	it.Equipped = EquippedState{Parent: p.Parent, ItemID: p.ItemID, Layer: p.Layer, Hue: p.Hue}
}

// UpsertContainerUpdate inserts or replaces an item's container socket.
func (w *World) UpsertContainerUpdate(p wire.ContainerUpdate) {
	it, ok := w.itemOrNew(p.Serial)
	if !ok {
		return
	}
	it.socket = SocketContainer
	it.Container = ContainerState{Parent: p.Parent, ItemID: p.ItemID, Amount: p.Amount, X: p.X, Y: p.Y, GridIndex: p.GridIndex, Hue: p.Hue}
}

// OpenContainer inserts or replaces an item's container-open record.
// The socket is left untouched.
func (w *World) OpenContainer(p wire.ContainerOpen) {
	it, ok := w.itemOrNew(p.Serial)
	if !ok {
		return
	}
	it.ContainerOpen = ContainerOpenState{GumpID: p.GumpID}
	it.HasContainerOpen = true
}

// OpenContainer7 is OpenContainer's rev-7 form.
func (w *World) OpenContainer7(p wire.ContainerOpen7) {
	w.OpenContainer(wire.ToContainerOpen(p))
}

// ReplaceContainerContent implements the only mechanism for detecting
// silent removals from a container: the generation counter is bumped,
// every listed child is stamped with the new generation, and anything
// still claiming parent as its container but not stamped is swept.
func (w *World) ReplaceContainerContent(parent Serial, items []wire.ContainerContentEntry) {
	w.attachSequence++
	generation := w.attachSequence

	for _, entry := range items {
		it, ok := w.itemOrNew(entry.Serial)
		if !ok {
			continue
		}
		it.socket = SocketContainer
		it.Container = ContainerState{Parent: parent, ItemID: entry.ItemID, Amount: entry.Amount, X: entry.X, Y: entry.Y, GridIndex: entry.GridIndex, Hue: entry.Hue}
		it.AttachSequence = generation
	}

	var stale []Serial
	for s, it := range w.items {
		if it.socket != SocketContainer || it.Container.Parent != parent {
			continue
		}
		if it.AttachSequence == generation {
			continue
		}
		stale = append(stale, s)
	}
	for _, s := range stale {
		w.RemoveSerial(s)
	}
}

// RemoveSerial deletes the mobile or item s, then recursively deletes
// every entity reachable via the parent relation.
func (w *World) RemoveSerial(s Serial) {
	switch {
	case s.IsMobile():
		w.removeMobileTree(s)
	case s.IsItem():
		w.removeItemTree(s)
	}
}

func (w *World) removeMobileTree(s Serial) {
	if _, ok := w.mobiles[s]; !ok {
		return
	}
	delete(w.mobiles, s)
	w.removeChildrenOf(s)
}

func (w *World) removeItemTree(s Serial) {
	if _, ok := w.items[s]; !ok {
		return
	}
	delete(w.items, s)
	w.removeChildrenOf(s)
}

// removeChildrenOf sweeps every item whose parent relation points at s,
// two-phase: gather direct children first so recursive deletes below
// don't mutate the map out from under the range loop that found them.
func (w *World) removeChildrenOf(s Serial) {
	var children []Serial
	for cs, it := range w.items {
		if parent, ok := it.Parent(); ok && parent == s {
			children = append(children, cs)
		}
	}
	for _, cs := range children {
		w.removeItemTree(cs)
	}
}

// UpsertMobileIncoming inserts or replaces a mobile's incoming record. If
// the mobile is the player, position/body/direction/flags mirror into the
// ambient snapshots. The embedded equipment list synthesizes one
// UpsertEquip call per non-zero entry.
func (w *World) UpsertMobileIncoming(p wire.MobileIncoming) {
	m, ok := w.mobileOrNew(p.Serial)
	if !ok {
		return
	}
	m.HasIncoming = true
	m.Incoming = IncomingState{BodyID: p.BodyID, X: p.X, Y: p.Y, Z: p.Z, Direction: p.Direction, Hue: p.Hue, Flags: p.Flags}

	if player, ok := w.PlayerSerial(); ok && player == p.Serial {
		w.mirrorPlayerPosition(p.X, p.Y, p.Direction, &p.Z)
		w.Ambient.HasMobileUpdate = true
		w.Ambient.MobileUpdate.Hue = p.Hue
		w.Ambient.MobileUpdate.Flags = p.Flags
		w.Ambient.MobileUpdate.BodyID = p.BodyID
	}

	for _, entry := range p.Equipment {
		if entry.Serial == 0 {
			continue
		}
		w.UpsertEquip(wire.Equip{Serial: entry.Serial, Parent: p.Serial, ItemID: entry.ItemID, Layer: entry.Layer, Hue: entry.Hue})
	}
}

// UpsertMobileStatus replaces the stored status record only when the
// incoming flags are at least as detailed as the one already stored, per
// the monotone-capability heuristic. This is retained literally even
// though it is conservative: a status with identical-but-reordered
// capability bits could regress information a naive bit comparison
// would accept.
func (w *World) UpsertMobileStatus(p wire.MobileStatus) {
	m, ok := w.mobileOrNew(p.Serial)
	if !ok {
		return
	}
	if m.HasStatus && p.Flags < m.Status.Flags {
		return
	}
	m.HasStatus = true
	m.Status = StatusState{Flags: p.Flags}
}

// UpdateMobileUpdate updates an existing mobile's positional fields. It
// warns and does not create a record if the mobile is unknown.
func (w *World) UpdateMobileUpdate(p wire.MobileUpdate) {
	m, ok := w.mobiles[p.Serial]
	if !ok {
		w.logger.Printf("world: mobile-update for unknown serial=%#x", uint32(p.Serial))
		return
	}
	m.HasIncoming = true
	m.Incoming.X, m.Incoming.Y, m.Incoming.Z, m.Incoming.Direction = p.X, p.Y, p.Z, p.Direction

	if player, ok := w.PlayerSerial(); ok && player == p.Serial {
		w.mirrorPlayerPosition(p.X, p.Y, p.Direction, &p.Z)
	}
}

// UpdateMobileMoving mirrors UpdateMobileUpdate for the moving opcode,
// which shares its wire layout.
func (w *World) UpdateMobileMoving(p wire.MobileMoving) {
	w.UpdateMobileUpdate(p)
}

// ZoneChange updates the player's ambient position only; it does not
// touch any per-mobile record.
func (w *World) ZoneChange(p wire.ZoneChange) {
	if !w.Ambient.HasStart {
		return
	}
	w.Ambient.Start.X, w.Ambient.Start.Y = p.X, p.Y
	w.Ambient.Start.Z = int16(p.Z)
	if w.Ambient.HasMobileUpdate {
		w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y = p.X, p.Y
		w.Ambient.MobileUpdate.Z = p.Z
	}
}

// Walked updates the ambient player position after a walk request is
// acknowledged, and patches the player's cached mobile-incoming record
// if one exists.
func (w *World) Walked(x, y uint16, direction, notoriety byte) {
	z := w.currentPlayerZ()
	w.mirrorPlayerPosition(x, y, direction, &z)
	if player, ok := w.PlayerSerial(); ok {
		if m, ok := w.mobiles[player]; ok && m.HasIncoming {
			m.Incoming.X, m.Incoming.Y, m.Incoming.Direction = x, y, direction
		}
	}
}

// WalkCancel applies the cancel's position exactly as Walked does; it
// takes no notoriety argument.
func (w *World) WalkCancel(x, y uint16, direction byte) {
	w.Walked(x, y, direction, 0)
}

func (w *World) currentPlayerZ() int8 {
	if w.Ambient.HasMobileUpdate {
		return w.Ambient.MobileUpdate.Z
	}
	return int8(w.Ambient.Start.Z)
}

// mirrorPlayerPosition keeps packet_start and packet_mobile_update
// agreeing on (x, y, direction); z is copied into both as a decoded
// integer, and byte order is left to the wire encoders.
func (w *World) mirrorPlayerPosition(x, y uint16, direction byte, z *int8) {
	if w.Ambient.HasStart {
		w.Ambient.Start.X, w.Ambient.Start.Y, w.Ambient.Start.Direction = x, y, direction
		if z != nil {
			w.Ambient.Start.Z = int16(*z)
		}
	}
	w.Ambient.HasMobileUpdate = true
	w.Ambient.MobileUpdate.X, w.Ambient.MobileUpdate.Y, w.Ambient.MobileUpdate.Direction = x, y, direction
	if z != nil {
		w.Ambient.MobileUpdate.Z = *z
	}
	if player, ok := w.PlayerSerial(); ok {
		w.Ambient.MobileUpdate.Serial = player
	}
}

// SetStart installs the player-start ambient packet, establishing the
// player serial for the remainder of the session.
func (w *World) SetStart(p wire.Start) {
	w.Ambient.HasStart = true
	w.Ambient.Start = StartState{Serial: p.Serial, X: p.X, Y: p.Y, Z: p.Z, Direction: p.Direction}
}

// SetMapChange captures the map-change ambient packet verbatim (§3:
// "opaque blobs replayed verbatim to newly attached clients").
func (w *World) SetMapChange(raw []byte) { w.Ambient.MapChange = cloneBytes(raw) }

// SetMapPatches captures the map-patches ambient packet verbatim.
func (w *World) SetMapPatches(raw []byte) { w.Ambient.MapPatches = cloneBytes(raw) }

// SetSeason captures the season ambient packet verbatim.
func (w *World) SetSeason(raw []byte) { w.Ambient.Season = cloneBytes(raw) }

// SetGlobalLight captures the global light-level ambient packet verbatim.
func (w *World) SetGlobalLight(raw []byte) { w.Ambient.GlobalLight = cloneBytes(raw) }

// SetPersonalLight captures the personal light-level ambient packet verbatim.
func (w *World) SetPersonalLight(raw []byte) { w.Ambient.PersonalLight = cloneBytes(raw) }

// SetWarMode captures the war-mode ambient packet verbatim.
func (w *World) SetWarMode(raw []byte) { w.Ambient.WarMode = cloneBytes(raw) }

// SetTarget captures the target ambient packet verbatim.
func (w *World) SetTarget(raw []byte) { w.Ambient.Target = cloneBytes(raw) }

func cloneBytes(raw []byte) []byte {
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}
