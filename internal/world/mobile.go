package world

// Mobile mirrors the last-known state of one character or NPC, keyed by
// serial.
type Mobile struct {
	Serial Serial

	HasIncoming bool
	Incoming    IncomingState

	HasStatus bool
	Status    StatusState
}

type IncomingState struct {
	BodyID    uint16
	X, Y      uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
}

type StatusState struct {
	Flags byte
}
