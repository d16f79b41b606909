// Package serial classifies Ultima Online serial numbers into the
// namespace partitions the world mirror cares about.
package serial

// Serial is a 32-bit entity identifier. Values arriving on the wire are
// big-endian; Serial itself is host-order once decoded.
type Serial uint32

// Class identifies which namespace a Serial belongs to.
type Class int

const (
	ClassMobile Class = iota
	ClassItem
	ClassUnmanaged
)

const (
	mobileUpperBound = 0x40000000
	itemUpperBound   = 0x80000000
)

// Classify partitions s by its host-order value, per the high-nibble rule:
// < 0x40000000 is a mobile, 0x40000000..0x7fffffff is an item, everything
// else is not managed by the mirror.
func Classify(s Serial) Class {
	switch {
	case uint32(s) < mobileUpperBound:
		return ClassMobile
	case uint32(s) < itemUpperBound:
		return ClassItem
	default:
		return ClassUnmanaged
	}
}

// IsMobile reports whether s falls in the mobile namespace.
func (s Serial) IsMobile() bool { return Classify(s) == ClassMobile }

// IsItem reports whether s falls in the item namespace.
func (s Serial) IsItem() bool { return Classify(s) == ClassItem }

// MaskRev6HighBit clears the high bit of a rev-6 world-item serial, the bit
// that encoded a legacy flag and has no meaning once bridged to rev 7.
func MaskRev6HighBit(s Serial) Serial {
	return s &^ 0x80000000
}
