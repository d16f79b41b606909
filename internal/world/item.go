package world

import "uoproxy/internal/serial"

// Socket identifies which of an item's three mutually exclusive locations
// is currently authoritative.
type Socket int

const (
	SocketNone Socket = iota
	SocketGround
	SocketContainer
	SocketEquipped
)

// Item mirrors the last-known state of one UO item, keyed by serial.
type Item struct {
	Serial Serial

	socket Socket

	Ground    GroundState
	Container ContainerState
	Equipped  EquippedState

	// ContainerOpen is the most recent container-open record referring to
	// this item, if it has ever been opened as a container. It does not
	// participate in the socket state machine.
	ContainerOpen    ContainerOpenState
	HasContainerOpen bool

	// AttachSequence is stamped by ReplaceContainerContent and used to
	// detect silent removals on the next sweep.
	AttachSequence uint64
}

type GroundState struct {
	ItemID uint16
	Amount uint16
	X, Y   uint16
	Z      int8
}

type ContainerState struct {
	Parent    Serial
	ItemID    uint16
	Amount    uint16
	X, Y      uint16
	GridIndex byte
	Hue       uint16
}

type EquippedState struct {
	Parent Serial // the wearing mobile
	ItemID uint16
	Layer  byte
	Hue    uint16
}

type ContainerOpenState struct {
	GumpID uint16
}

// SocketKind reports which variant is currently set.
func (i *Item) SocketKind() Socket { return i.socket }

// Parent derives the parent relation from the current socket, per §4.2:
// container -> outer container, equipped -> wearing mobile, ground -> none.
func (i *Item) Parent() (Serial, bool) {
	switch i.socket {
	case SocketContainer:
		return i.Container.Parent, true
	case SocketEquipped:
		return i.Equipped.Parent, true
	default:
		return 0, false
	}
}

// Serial is a local alias so package world does not force every caller to
// import internal/serial directly.
type Serial = serial.Serial
