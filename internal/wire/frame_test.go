package wire

import (
	"bufio"
	"bytes"
	"testing"
)

func TestReadPacketFixed(t *testing.T) {
	raw := make([]byte, 14)
	raw[0] = byte(OpWorldItem)
	raw[1] = 0xAB
	r := bufio.NewReader(bytes.NewReader(raw))

	buf, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 14 || buf[1] != 0xAB {
		t.Fatalf("got %v, want a 14-byte WorldItem frame", buf)
	}
}

func TestReadPacketLengthPrefixed(t *testing.T) {
	raw := []byte{byte(OpSpeak), 0x00, 0x05, 0xFF, 0xEE}
	r := bufio.NewReader(bytes.NewReader(raw))

	buf, err := ReadPacket(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 5 || buf[3] != 0xFF || buf[4] != 0xEE {
		t.Fatalf("got %v, want the full 5-byte Speak frame", buf)
	}
}

func TestReadPacketUnknownOpcode(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{0xFE, 0x01, 0x02}))
	if _, err := ReadPacket(r); err == nil {
		t.Fatalf("expected an error framing an opcode absent from the catalog")
	}
}

func TestReadPacketTwoInARow(t *testing.T) {
	raw := make([]byte, 0, 17)
	walk := make([]byte, 7)
	walk[0] = byte(OpWalk)
	raw = append(raw, walk...)
	ack := make([]byte, 3)
	ack[0] = byte(OpWalkAck)
	raw = append(raw, ack...)
	r := bufio.NewReader(bytes.NewReader(raw))

	first, err := ReadPacket(r)
	if err != nil || len(first) != 7 {
		t.Fatalf("first frame: got (%v, %v), want a 7-byte Walk frame", first, err)
	}
	second, err := ReadPacket(r)
	if err != nil || len(second) != 3 {
		t.Fatalf("second frame: got (%v, %v), want a 3-byte WalkAck frame", second, err)
	}
}

func TestFrameLengthIncompleteBuffer(t *testing.T) {
	buf := []byte{byte(OpWorldItem), 0x01, 0x02}
	total, ok, err := FrameLength(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for a buffer shorter than the catalog length, got total=%d", total)
	}
}

func TestFrameLengthCompleteBuffer(t *testing.T) {
	buf := make([]byte, 14)
	buf[0] = byte(OpWorldItem)
	total, ok, err := FrameLength(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || total != 14 {
		t.Fatalf("got (%d, %v), want (14, true)", total, ok)
	}
}

func TestFrameLengthLengthPrefixedWaitsForHeader(t *testing.T) {
	buf := []byte{byte(OpSpeak), 0x00}
	_, ok, err := FrameLength(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false before the 2-byte inline length field is fully buffered")
	}
}

func TestFrameLengthUnknownOpcode(t *testing.T) {
	_, ok, err := FrameLength([]byte{0xFE, 0x00})
	if ok || err == nil {
		t.Fatalf("expected ok=false with an error for an unframeable opcode, got ok=%v err=%v", ok, err)
	}
}
