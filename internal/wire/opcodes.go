// Package wire implements the Ultima Online packet catalog: opcode
// constants, a length lookup usable while framing a raw TCP stream, typed
// views over length-tagged packet buffers, and the revision 6/7 bridge.
package wire

import "fmt"

// Opcode is the one-byte leading field of every UO packet.
type Opcode byte

const (
	OpWorldItem          Opcode = 0x1A
	OpWorldItem7         Opcode = 0xF3
	OpEquip              Opcode = 0x2E
	OpContainerOpen      Opcode = 0x24
	OpContainerOpen7     Opcode = 0x7C
	OpContainerUpdate    Opcode = 0x25
	OpContainerContent   Opcode = 0x3C
	OpMobileIncoming     Opcode = 0x78
	OpMobileStatus       Opcode = 0x11
	OpMobileUpdate       Opcode = 0x77
	OpMobileMoving       Opcode = 0x7A
	OpZoneChange         Opcode = 0xF0
	OpWalk               Opcode = 0x02
	OpWalkAck            Opcode = 0x22
	OpWalkCancel         Opcode = 0x23
	OpSpeak              Opcode = 0x03
	OpStart              Opcode = 0x1B
	OpMapChange          Opcode = 0x96
	OpMapPatches         Opcode = 0xF5
	OpSeason             Opcode = 0xBC
	OpWarMode            Opcode = 0x72
	OpTarget             Opcode = 0x6C
	OpLightLevelGlobal   Opcode = 0x4F
	OpLightLevelPersonal Opcode = 0x4E
)

// kind describes how the catalog should compute a packet's total length.
type kind int

const (
	kindFixed kind = iota
	kindLengthPrefixed
)

type entry struct {
	kind   kind
	fixed  int // total length including opcode, for kindFixed
	minLen int // minimum bytes needed before the length field can be read, for kindLengthPrefixed
}

// catalog is the opcode -> framing rule table. The length field for
// kindLengthPrefixed entries is the 2-byte big-endian value at buf[1:3]
// and is itself the total packet length, opcode and length field included.
var catalog = map[Opcode]entry{
	OpWorldItem:          {kind: kindFixed, fixed: 14},
	OpWorldItem7:         {kind: kindFixed, fixed: 26},
	OpEquip:              {kind: kindFixed, fixed: 15},
	OpContainerOpen:      {kind: kindFixed, fixed: 7},
	OpContainerOpen7:     {kind: kindFixed, fixed: 13},
	OpContainerUpdate:    {kind: kindFixed, fixed: 20},
	OpContainerContent:   {kind: kindLengthPrefixed, minLen: 3},
	OpMobileIncoming:     {kind: kindLengthPrefixed, minLen: 3},
	OpMobileStatus:       {kind: kindLengthPrefixed, minLen: 3},
	OpMobileUpdate:       {kind: kindFixed, fixed: 17},
	OpMobileMoving:       {kind: kindFixed, fixed: 17},
	OpZoneChange:         {kind: kindFixed, fixed: 6},
	OpWalk:               {kind: kindFixed, fixed: 7},
	OpWalkAck:            {kind: kindFixed, fixed: 3},
	OpWalkCancel:         {kind: kindFixed, fixed: 9},
	OpSpeak:              {kind: kindLengthPrefixed, minLen: 3},
	OpStart:              {kind: kindFixed, fixed: 37},
	OpMapChange:          {kind: kindFixed, fixed: 5},
	OpMapPatches:         {kind: kindLengthPrefixed, minLen: 3},
	OpSeason:             {kind: kindFixed, fixed: 3},
	OpWarMode:            {kind: kindFixed, fixed: 5},
	OpTarget:             {kind: kindFixed, fixed: 19},
	OpLightLevelGlobal:   {kind: kindFixed, fixed: 2},
	OpLightLevelPersonal: {kind: kindFixed, fixed: 6},
}

// ErrMalformed is returned by Length when a packet's announced length
// disagrees with the catalog or the buffer is too short to decide.
type ErrMalformed struct {
	Kind   Opcode
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("wire: malformed packet opcode=%#x: %s", byte(e.Kind), e.Reason)
}

// Length returns the total length of a packet of the given kind, reading
// from buf as needed and validating against announced (the caller's
// external upper bound on available bytes, e.g. bytes read so far from the
// socket). Unknown opcodes are not malformed by themselves — the catalog
// reports ok=false so the caller can choose to forward the packet
// verbatim per the proxy's permissive-by-default policy.
func Length(k Opcode, buf []byte, announced int) (length int, ok bool, err error) {
	e, known := catalog[k]
	if !known {
		return 0, false, nil
	}
	switch e.kind {
	case kindFixed:
		if announced < e.fixed {
			return 0, true, &ErrMalformed{Kind: k, Reason: "announced length shorter than fixed catalog length"}
		}
		return e.fixed, true, nil
	case kindLengthPrefixed:
		if len(buf) < e.minLen || announced < e.minLen {
			return 0, true, &ErrMalformed{Kind: k, Reason: "not enough bytes to read inline length field"}
		}
		total := int(buf[1])<<8 | int(buf[2])
		if total < e.minLen {
			return 0, true, &ErrMalformed{Kind: k, Reason: "inline length shorter than header"}
		}
		if announced < total {
			return 0, true, &ErrMalformed{Kind: k, Reason: "announced length shorter than inline length field"}
		}
		return total, true, nil
	default:
		return 0, false, nil
	}
}
