// Package world implements the per-session mirror of items, mobiles, and
// ambient packets needed to resynchronize a freshly attached downstream
// client, per the world-mirror component of the proxy's session core.
package world

import (
	"context"

	"uoproxy/internal/telemetry"
	"uoproxy/logging"
)

// Ambient holds the fixed set of "last seen" packets replayed verbatim to
// newly attached clients, in the order §3/§4.6 specifies.
type Ambient struct {
	HasStart bool
	Start    StartState

	MapChange  []byte
	MapPatches []byte
	Season     []byte

	// MobileUpdate mirrors the player's own positional state. Its Z is a
	// bare signed byte; Start.Z holds the same height as a decoded int16
	// (the Start packet carries it as a 2-byte big-endian field). Both
	// must agree on (x, y, direction).
	HasMobileUpdate bool
	MobileUpdate    MobileUpdateState

	GlobalLight   []byte
	PersonalLight []byte
	WarMode       []byte
	Target        []byte
}

// StartState is the parsed form of the player-start packet; Z is the
// decoded value of the packet's 2-byte big-endian field, not its raw
// wire bytes.
type StartState struct {
	Serial    Serial
	X, Y      uint16
	Z         int16
	Direction byte
}

type MobileUpdateState struct {
	Serial    Serial
	BodyID    uint16
	X, Y      uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
}

// World is the per-session mirror. It has no internal locking: per the
// proxy's single-writer concurrency model, a World is only ever touched
// from its owning session's event loop.
type World struct {
	Ambient Ambient

	items   map[Serial]*Item
	mobiles map[Serial]*Mobile

	attachSequence uint64

	// MaxEntities bounds the combined item+mobile count. Zero means
	// unbounded. Exceeding it is the mirror's analog of the "out of
	// memory on insert" error case: the insert is logged and skipped.
	MaxEntities int

	logger  telemetry.Logger
	publish logging.Publisher
	resync  *ResyncPolicy
}

// New constructs an empty world mirror. logger and publisher may be nil;
// a nil logger discards messages and a nil publisher discards events.
func New(logger telemetry.Logger, publisher logging.Publisher) *World {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &World{
		items:   make(map[Serial]*Item),
		mobiles: make(map[Serial]*Mobile),
		logger:  logger,
		publish: publisher,
		resync:  NewResyncPolicy(),
	}
}

// PlayerSerial reports the serial of the player this world mirrors, if a
// Start packet has ever been seen.
func (w *World) PlayerSerial() (Serial, bool) {
	if !w.Ambient.HasStart {
		return 0, false
	}
	return w.Ambient.Start.Serial, true
}

// Item looks up an item by serial without creating it.
func (w *World) Item(s Serial) (*Item, bool) {
	it, ok := w.items[s]
	return it, ok
}

// Mobile looks up a mobile by serial without creating it.
func (w *World) Mobile(s Serial) (*Mobile, bool) {
	m, ok := w.mobiles[s]
	return m, ok
}

// Items returns a snapshot slice of all live items, for replay/iteration.
func (w *World) Items() []*Item {
	out := make([]*Item, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, it)
	}
	return out
}

// Mobiles returns a snapshot slice of all live mobiles, for replay/iteration.
func (w *World) Mobiles() []*Mobile {
	out := make([]*Mobile, 0, len(w.mobiles))
	for _, m := range w.mobiles {
		out = append(out, m)
	}
	return out
}

func (w *World) entityCount() int {
	return len(w.items) + len(w.mobiles)
}

// atCapacity reports whether inserting one more entity would exceed
// MaxEntities, and if so logs and records the drop against the resync
// policy.
func (w *World) atCapacity(kind string, s Serial) bool {
	if w.MaxEntities <= 0 {
		return false
	}
	if w.entityCount() < w.MaxEntities {
		return false
	}
	w.logger.Printf("world: dropping %s insert for serial=%#x: mirror at capacity (%d)", kind, uint32(s), w.MaxEntities)
	w.resync.NoteLoss(ctxBackground(), w.publish, "capacity", s)
	return true
}

func (w *World) itemOrNew(s Serial) (*Item, bool) {
	if it, ok := w.items[s]; ok {
		w.resync.NoteOp()
		return it, true
	}
	if w.atCapacity("item", s) {
		return nil, false
	}
	it := &Item{Serial: s}
	w.items[s] = it
	w.resync.NoteOp()
	return it, true
}

func (w *World) mobileOrNew(s Serial) (*Mobile, bool) {
	if m, ok := w.mobiles[s]; ok {
		w.resync.NoteOp()
		return m, true
	}
	if w.atCapacity("mobile", s) {
		return nil, false
	}
	m := &Mobile{Serial: s}
	w.mobiles[s] = m
	w.resync.NoteOp()
	return m, true
}

func ctxBackground() context.Context { return context.Background() }
