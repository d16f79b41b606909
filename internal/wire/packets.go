package wire

import (
	"encoding/binary"
	"fmt"

	"uoproxy/internal/serial"
)

// Packets are treated as opaque byte blobs at rest; these types are views
// materialized on demand from a length-tagged buffer, per the catalog's
// framing. A view never outlives the buffer it was built from — callers
// that need to retain one copy buf first.

type WorldItem struct {
	Serial serial.Serial
	ItemID uint16
	Amount uint16
	X      uint16
	Y      uint16
	Z      int8
}

func ParseWorldItem(buf []byte) (WorldItem, error) {
	if len(buf) < 14 {
		return WorldItem{}, fmt.Errorf("wire: short WorldItem buffer: %d bytes", len(buf))
	}
	return WorldItem{
		Serial: serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		ItemID: binary.BigEndian.Uint16(buf[5:7]),
		Amount: binary.BigEndian.Uint16(buf[7:9]),
		X:      binary.BigEndian.Uint16(buf[9:11]),
		Y:      binary.BigEndian.Uint16(buf[11:13]),
		Z:      int8(buf[13]),
	}, nil
}

func EncodeWorldItem(p WorldItem) []byte {
	buf := make([]byte, 14)
	buf[0] = byte(OpWorldItem)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.ItemID)
	binary.BigEndian.PutUint16(buf[7:9], p.Amount)
	binary.BigEndian.PutUint16(buf[9:11], p.X)
	binary.BigEndian.PutUint16(buf[11:13], p.Y)
	buf[13] = byte(p.Z)
	return buf
}

type WorldItem7 struct {
	Serial serial.Serial
	ItemID uint16
	Amount uint16
	X      uint16
	Y      uint16
	Z      int8
	Hue    uint16
}

func ParseWorldItem7(buf []byte) (WorldItem7, error) {
	if len(buf) < 26 {
		return WorldItem7{}, fmt.Errorf("wire: short WorldItem7 buffer: %d bytes", len(buf))
	}
	return WorldItem7{
		Serial: serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		ItemID: binary.BigEndian.Uint16(buf[5:7]),
		Amount: binary.BigEndian.Uint16(buf[8:10]),
		X:      binary.BigEndian.Uint16(buf[10:12]),
		Y:      binary.BigEndian.Uint16(buf[12:14]),
		Z:      int8(buf[14]),
		Hue:    binary.BigEndian.Uint16(buf[15:17]),
	}, nil
}

func EncodeWorldItem7(p WorldItem7) []byte {
	buf := make([]byte, 26)
	buf[0] = byte(OpWorldItem7)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.ItemID)
	binary.BigEndian.PutUint16(buf[8:10], p.Amount)
	binary.BigEndian.PutUint16(buf[10:12], p.X)
	binary.BigEndian.PutUint16(buf[12:14], p.Y)
	buf[14] = byte(p.Z)
	binary.BigEndian.PutUint16(buf[15:17], p.Hue)
	return buf
}

// ToRev7 upshifts a rev-6 world-item packet: positional and identity
// fields copy 1:1, the hue extension is zeroed.
func ToRev7(p WorldItem) WorldItem7 {
	return WorldItem7{
		Serial: p.Serial,
		ItemID: p.ItemID,
		Amount: p.Amount,
		X:      p.X,
		Y:      p.Y,
		Z:      p.Z,
		Hue:    0,
	}
}

// ToRev6 downshifts a rev-7 world-item packet, masking the serial's high
// bit (the legacy flag bit rev 6 overloads it with) and discarding hue.
func ToRev6(p WorldItem7) WorldItem {
	return WorldItem{
		Serial: serial.MaskRev6HighBit(p.Serial),
		ItemID: p.ItemID,
		Amount: p.Amount,
		X:      p.X,
		Y:      p.Y,
		Z:      p.Z,
	}
}

type Equip struct {
	Serial serial.Serial
	Parent serial.Serial
	ItemID uint16
	Layer  byte
	Hue    uint16
}

func ParseEquip(buf []byte) (Equip, error) {
	if len(buf) < 15 {
		return Equip{}, fmt.Errorf("wire: short Equip buffer: %d bytes", len(buf))
	}
	return Equip{
		Serial: serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		Parent: serial.Serial(binary.BigEndian.Uint32(buf[5:9])),
		Layer:  buf[9],
		ItemID: binary.BigEndian.Uint16(buf[10:12]),
		Hue:    binary.BigEndian.Uint16(buf[12:14]),
	}, nil
}

func EncodeEquip(p Equip) []byte {
	buf := make([]byte, 15)
	buf[0] = byte(OpEquip)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint32(buf[5:9], uint32(p.Parent))
	buf[9] = p.Layer
	binary.BigEndian.PutUint16(buf[10:12], p.ItemID)
	binary.BigEndian.PutUint16(buf[12:14], p.Hue)
	return buf
}

type ContainerOpen struct {
	Serial serial.Serial
	GumpID uint16
}

func ParseContainerOpen(buf []byte) (ContainerOpen, error) {
	if len(buf) < 7 {
		return ContainerOpen{}, fmt.Errorf("wire: short ContainerOpen buffer: %d bytes", len(buf))
	}
	return ContainerOpen{
		Serial: serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		GumpID: binary.BigEndian.Uint16(buf[5:7]),
	}, nil
}

type ContainerOpen7 struct {
	Serial     serial.Serial
	GumpID     uint16
	Extension  [6]byte
}

func ParseContainerOpen7(buf []byte) (ContainerOpen7, error) {
	if len(buf) < 13 {
		return ContainerOpen7{}, fmt.Errorf("wire: short ContainerOpen7 buffer: %d bytes", len(buf))
	}
	var p ContainerOpen7
	p.Serial = serial.Serial(binary.BigEndian.Uint32(buf[1:5]))
	p.GumpID = binary.BigEndian.Uint16(buf[5:7])
	copy(p.Extension[:], buf[7:13])
	return p, nil
}

func EncodeContainerOpen(p ContainerOpen) []byte {
	buf := make([]byte, 7)
	buf[0] = byte(OpContainerOpen)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.GumpID)
	return buf
}

func EncodeContainerOpen7(p ContainerOpen7) []byte {
	buf := make([]byte, 13)
	buf[0] = byte(OpContainerOpen7)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.GumpID)
	copy(buf[7:13], p.Extension[:])
	return buf
}

// ToContainerOpen7 upshifts by appending zeroed extension bytes.
func ToContainerOpen7(p ContainerOpen) ContainerOpen7 {
	return ContainerOpen7{Serial: p.Serial, GumpID: p.GumpID}
}

// ToContainerOpen downshifts by discarding the extension.
func ToContainerOpen(p ContainerOpen7) ContainerOpen {
	return ContainerOpen{Serial: p.Serial, GumpID: p.GumpID}
}

type ContainerUpdate struct {
	Serial     serial.Serial
	Parent     serial.Serial
	ItemID     uint16
	Amount     uint16
	X          uint16
	Y          uint16
	GridIndex  byte
	Hue        uint16
}

func ParseContainerUpdate(buf []byte) (ContainerUpdate, error) {
	if len(buf) < 20 {
		return ContainerUpdate{}, fmt.Errorf("wire: short ContainerUpdate buffer: %d bytes", len(buf))
	}
	return ContainerUpdate{
		Serial:    serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		ItemID:    binary.BigEndian.Uint16(buf[5:7]),
		Amount:    binary.BigEndian.Uint16(buf[8:10]),
		X:         binary.BigEndian.Uint16(buf[10:12]),
		Y:         binary.BigEndian.Uint16(buf[12:14]),
		GridIndex: buf[14],
		Parent:    serial.Serial(binary.BigEndian.Uint32(buf[15:19])),
		Hue:       uint16(buf[19]),
	}, nil
}

func EncodeContainerUpdate(p ContainerUpdate) []byte {
	buf := make([]byte, 20)
	buf[0] = byte(OpContainerUpdate)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.ItemID)
	binary.BigEndian.PutUint16(buf[8:10], p.Amount)
	binary.BigEndian.PutUint16(buf[10:12], p.X)
	binary.BigEndian.PutUint16(buf[12:14], p.Y)
	buf[14] = p.GridIndex
	binary.BigEndian.PutUint32(buf[15:19], uint32(p.Parent))
	buf[19] = byte(p.Hue)
	return buf
}

const containerContentEntryLen = 20

type ContainerContentEntry struct {
	Serial    serial.Serial
	Parent    serial.Serial
	ItemID    uint16
	Amount    uint16
	X         uint16
	Y         uint16
	GridIndex byte
	Hue       uint16
}

type ContainerContent struct {
	Items []ContainerContentEntry
}

func ParseContainerContent(buf []byte) (ContainerContent, error) {
	if len(buf) < 5 {
		return ContainerContent{}, fmt.Errorf("wire: short ContainerContent buffer: %d bytes", len(buf))
	}
	count := int(binary.BigEndian.Uint16(buf[3:5]))
	need := 5 + count*containerContentEntryLen
	if len(buf) < need {
		return ContainerContent{}, fmt.Errorf("wire: ContainerContent declares %d entries but buffer is %d bytes", count, len(buf))
	}
	out := ContainerContent{Items: make([]ContainerContentEntry, 0, count)}
	off := 5
	for i := 0; i < count; i++ {
		e := buf[off : off+containerContentEntryLen]
		out.Items = append(out.Items, ContainerContentEntry{
			Serial:    serial.Serial(binary.BigEndian.Uint32(e[0:4])),
			ItemID:    binary.BigEndian.Uint16(e[4:6]),
			Amount:    binary.BigEndian.Uint16(e[7:9]),
			X:         binary.BigEndian.Uint16(e[9:11]),
			Y:         binary.BigEndian.Uint16(e[11:13]),
			GridIndex: e[13],
			Parent:    serial.Serial(binary.BigEndian.Uint32(e[14:18])),
			Hue:       binary.BigEndian.Uint16(e[18:20]),
		})
		off += containerContentEntryLen
	}
	return out, nil
}

// EquipEntry is one slot of a MobileIncoming packet's embedded equipment
// list. Hue is only present on the wire when ItemID's 0x8000 bit is set.
type EquipEntry struct {
	Serial serial.Serial
	ItemID uint16
	Layer  byte
	Hue    uint16
}

type MobileIncoming struct {
	Serial    serial.Serial
	BodyID    uint16
	X         uint16
	Y         uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
	Equipment []EquipEntry
}

// ParseMobileIncoming reads the fixed header plus the variable-width
// equipment array, which is terminated by a zero serial. Each entry's
// ItemID carries a trailing hue field in the wire image iff its 0x8000
// bit is set; the layer/id value itself is then the low 14 bits.
func ParseMobileIncoming(buf []byte) (MobileIncoming, error) {
	const headerLen = 18
	if len(buf) < headerLen {
		return MobileIncoming{}, fmt.Errorf("wire: short MobileIncoming buffer: %d bytes", len(buf))
	}
	m := MobileIncoming{
		Serial:    serial.Serial(binary.BigEndian.Uint32(buf[3:7])),
		BodyID:    binary.BigEndian.Uint16(buf[7:9]),
		X:         binary.BigEndian.Uint16(buf[9:11]),
		Y:         binary.BigEndian.Uint16(buf[11:13]),
		Z:         int8(buf[13]),
		Direction: buf[14],
		Hue:       binary.BigEndian.Uint16(buf[15:17]),
		Flags:     buf[17],
	}
	off := headerLen
	for {
		if off+4 > len(buf) {
			return MobileIncoming{}, fmt.Errorf("wire: MobileIncoming equipment list runs past buffer")
		}
		s := serial.Serial(binary.BigEndian.Uint32(buf[off : off+4]))
		if s == 0 {
			break
		}
		off += 4
		if off+2 > len(buf) {
			return MobileIncoming{}, fmt.Errorf("wire: MobileIncoming equipment entry truncated")
		}
		rawID := binary.BigEndian.Uint16(buf[off : off+2])
		off += 2
		if off+1 > len(buf) {
			return MobileIncoming{}, fmt.Errorf("wire: MobileIncoming equipment entry missing layer")
		}
		layer := buf[off]
		off++
		entry := EquipEntry{Serial: s, Layer: layer, ItemID: rawID & 0x3fff}
		if rawID&0x8000 != 0 {
			if off+2 > len(buf) {
				return MobileIncoming{}, fmt.Errorf("wire: MobileIncoming equipment entry missing hue")
			}
			entry.Hue = binary.BigEndian.Uint16(buf[off : off+2])
			off += 2
		}
		m.Equipment = append(m.Equipment, entry)
	}
	return m, nil
}

// EncodeMobileIncoming serializes the fixed header plus the equipment
// list, terminated by a zero serial, hue-extending an entry only when it
// carries a non-zero hue.
func EncodeMobileIncoming(m MobileIncoming) []byte {
	const headerLen = 18
	size := headerLen
	for _, e := range m.Equipment {
		size += 7
		if e.Hue != 0 {
			size += 2
		}
	}
	size += 4 // terminator
	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf[1:3], uint16(size))
	buf[0] = byte(OpMobileIncoming)
	binary.BigEndian.PutUint32(buf[3:7], uint32(m.Serial))
	binary.BigEndian.PutUint16(buf[7:9], m.BodyID)
	binary.BigEndian.PutUint16(buf[9:11], m.X)
	binary.BigEndian.PutUint16(buf[11:13], m.Y)
	buf[13] = byte(m.Z)
	buf[14] = m.Direction
	binary.BigEndian.PutUint16(buf[15:17], m.Hue)
	buf[17] = m.Flags

	off := headerLen
	for _, e := range m.Equipment {
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(e.Serial))
		off += 4
		rawID := e.ItemID & 0x3fff
		if e.Hue != 0 {
			rawID |= 0x8000
		}
		binary.BigEndian.PutUint16(buf[off:off+2], rawID)
		off += 2
		buf[off] = e.Layer
		off++
		if e.Hue != 0 {
			binary.BigEndian.PutUint16(buf[off:off+2], e.Hue)
			off += 2
		}
	}
	// terminator is already zeroed by make([]byte, ...)
	return buf
}

type MobileStatus struct {
	Serial serial.Serial
	Flags  byte
}

func ParseMobileStatus(buf []byte) (MobileStatus, error) {
	if len(buf) < 8 {
		return MobileStatus{}, fmt.Errorf("wire: short MobileStatus buffer: %d bytes", len(buf))
	}
	return MobileStatus{
		Serial: serial.Serial(binary.BigEndian.Uint32(buf[3:7])),
		Flags:  buf[7],
	}, nil
}

func EncodeMobileStatus(p MobileStatus) []byte {
	buf := make([]byte, 8)
	buf[0] = byte(OpMobileStatus)
	binary.BigEndian.PutUint16(buf[1:3], 8)
	binary.BigEndian.PutUint32(buf[3:7], uint32(p.Serial))
	buf[7] = p.Flags
	return buf
}

type MobileUpdate struct {
	Serial    serial.Serial
	BodyID    uint16
	X         uint16
	Y         uint16
	Z         int8
	Direction byte
	Hue       uint16
	Flags     byte
}

func parseMobileUpdateLike(buf []byte) (MobileUpdate, error) {
	if len(buf) < 17 {
		return MobileUpdate{}, fmt.Errorf("wire: short mobile-update-shaped buffer: %d bytes", len(buf))
	}
	return MobileUpdate{
		Serial:    serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		BodyID:    binary.BigEndian.Uint16(buf[5:7]),
		X:         binary.BigEndian.Uint16(buf[7:9]),
		Y:         binary.BigEndian.Uint16(buf[9:11]),
		Z:         int8(buf[11]),
		Direction: buf[12],
		Hue:       binary.BigEndian.Uint16(buf[13:15]),
		Flags:     buf[15],
	}, nil
}

func ParseMobileUpdate(buf []byte) (MobileUpdate, error) { return parseMobileUpdateLike(buf) }

func encodeMobileUpdateLike(op Opcode, p MobileUpdate) []byte {
	buf := make([]byte, 17)
	buf[0] = byte(op)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[5:7], p.BodyID)
	binary.BigEndian.PutUint16(buf[7:9], p.X)
	binary.BigEndian.PutUint16(buf[9:11], p.Y)
	buf[11] = byte(p.Z)
	buf[12] = p.Direction
	binary.BigEndian.PutUint16(buf[13:15], p.Hue)
	buf[15] = p.Flags
	return buf
}

func EncodeMobileUpdate(p MobileUpdate) []byte { return encodeMobileUpdateLike(OpMobileUpdate, p) }
func EncodeMobileMoving(p MobileMoving) []byte { return encodeMobileUpdateLike(OpMobileMoving, p) }

// MobileMoving shares MobileUpdate's wire layout under a different opcode.
type MobileMoving = MobileUpdate

func ParseMobileMoving(buf []byte) (MobileMoving, error) { return parseMobileUpdateLike(buf) }

type ZoneChange struct {
	X uint16
	Y uint16
	Z int8
}

func ParseZoneChange(buf []byte) (ZoneChange, error) {
	if len(buf) < 6 {
		return ZoneChange{}, fmt.Errorf("wire: short ZoneChange buffer: %d bytes", len(buf))
	}
	return ZoneChange{
		X: binary.BigEndian.Uint16(buf[1:3]),
		Y: binary.BigEndian.Uint16(buf[3:5]),
		Z: int8(buf[5]),
	}, nil
}

type Walk struct {
	Seq       byte
	Direction byte
}

func ParseWalk(buf []byte) (Walk, error) {
	if len(buf) < 3 {
		return Walk{}, fmt.Errorf("wire: short Walk buffer: %d bytes", len(buf))
	}
	return Walk{Direction: buf[1], Seq: buf[2]}, nil
}

func EncodeWalk(p Walk) []byte {
	buf := make([]byte, 7)
	buf[0] = byte(OpWalk)
	buf[1] = p.Direction
	buf[2] = p.Seq
	return buf
}

type WalkAck struct {
	Seq       byte
	Notoriety byte
}

func ParseWalkAck(buf []byte) (WalkAck, error) {
	if len(buf) < 3 {
		return WalkAck{}, fmt.Errorf("wire: short WalkAck buffer: %d bytes", len(buf))
	}
	return WalkAck{Seq: buf[1], Notoriety: buf[2]}, nil
}

func EncodeWalkAck(p WalkAck) []byte {
	return []byte{byte(OpWalkAck), p.Seq, p.Notoriety}
}

type WalkCancel struct {
	Seq       byte
	X         uint16
	Y         uint16
	Direction byte
}

func ParseWalkCancel(buf []byte) (WalkCancel, error) {
	if len(buf) < 7 {
		return WalkCancel{}, fmt.Errorf("wire: short WalkCancel buffer: %d bytes", len(buf))
	}
	return WalkCancel{
		Seq:       buf[1],
		X:         binary.BigEndian.Uint16(buf[2:4]),
		Y:         binary.BigEndian.Uint16(buf[4:6]),
		Direction: buf[6],
	}, nil
}

func EncodeWalkCancel(p WalkCancel) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(OpWalkCancel)
	buf[1] = p.Seq
	binary.BigEndian.PutUint16(buf[2:4], p.X)
	binary.BigEndian.PutUint16(buf[4:6], p.Y)
	buf[6] = p.Direction
	return buf
}

type Speak struct {
	Text string
}

const speakHeaderLen = 12

func ParseSpeak(buf []byte) (Speak, error) {
	if len(buf) < speakHeaderLen {
		return Speak{}, fmt.Errorf("wire: short Speak buffer: %d bytes", len(buf))
	}
	text := buf[speakHeaderLen:]
	for len(text) > 0 && text[len(text)-1] == 0 {
		text = text[:len(text)-1]
	}
	return Speak{Text: string(text)}, nil
}

func EncodeSpeak(text string) []byte {
	buf := make([]byte, speakHeaderLen+len(text)+1)
	buf[0] = byte(OpSpeak)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(buf)))
	copy(buf[speakHeaderLen:], text)
	return buf
}

// Start is the player-start ambient packet. Z is stored big-endian
// on the wire, unlike MobileUpdate's single-byte Z.
type Start struct {
	Serial    serial.Serial
	X         uint16
	Y         uint16
	Z         int16
	Direction byte
}

func ParseStart(buf []byte) (Start, error) {
	if len(buf) < 37 {
		return Start{}, fmt.Errorf("wire: short Start buffer: %d bytes", len(buf))
	}
	return Start{
		Serial:    serial.Serial(binary.BigEndian.Uint32(buf[1:5])),
		X:         binary.BigEndian.Uint16(buf[9:11]),
		Y:         binary.BigEndian.Uint16(buf[11:13]),
		Z:         int16(binary.BigEndian.Uint16(buf[13:15])),
		Direction: buf[15],
	}, nil
}

func EncodeStart(p Start) []byte {
	buf := make([]byte, 37)
	buf[0] = byte(OpStart)
	binary.BigEndian.PutUint32(buf[1:5], uint32(p.Serial))
	binary.BigEndian.PutUint16(buf[9:11], p.X)
	binary.BigEndian.PutUint16(buf[11:13], p.Y)
	binary.BigEndian.PutUint16(buf[13:15], uint16(p.Z))
	buf[15] = p.Direction
	return buf
}
