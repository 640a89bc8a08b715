// Package layout describes the per-device-model memory map the
// ringbuffer extractor and memory reader need: ringbuffer bounds,
// sentinel values, and fixed packet/read sizing. Layouts are immutable
// and shared by every Session opened against a given device model.
package layout

// Family identifies which wire protocol and extraction algorithm a
// Layout belongs to.
type Family int

const (
	FamilyA Family = iota // paired logbook/profile ringbuffers, backward index traversal
	FamilyB                // single ringbuffer, trailer-linked chain
)

func (f Family) String() string {
	switch f {
	case FamilyA:
		return "familyA"
	case FamilyB:
		return "familyB"
	default:
		return "unknown"
	}
}

// Layout is the static, per-model memory map. Zero-value fields that
// don't apply to a family (e.g. logbook bounds for Family B) are left
// at zero and unused.
type Layout struct {
	Name   string
	Family Family

	// Profile ringbuffer, used by both families.
	ProfileBegin uint32
	ProfileEnd   uint32

	// Logbook ringbuffer, Family A only.
	LogbookBegin uint32
	LogbookEnd   uint32
	LogbookEmpty uint32 // sentinel pointer value meaning "no dives"

	// Fixed metadata addresses.
	PointersAddr uint32 // Family A: address of the logbook first/last pointer block
	HeaderAddr   uint32 // Family B: address of the 8-byte last/count/end/begin header
	SerialOffset uint32
	HeaderOffset uint32

	// Transfer sizing.
	PacketSize int
	MinRead    int

	// Fingerprint slice, as an offset and width counted from the first
	// byte of a dive record.
	FingerprintOffset int
	FingerprintSize   int
}

// EntrySize is the Family A logbook entry size, derived as
// packet_size/2 per the device protocol rather than stored directly.
func (l Layout) EntrySize() int {
	return l.PacketSize / 2
}

// FamilyALayout is a representative Oceanic-style layout: paired logbook and
// profile ringbuffers with fixed sentinel values.
var FamilyALayout = Layout{
	Name:         "familyA-reference",
	Family:       FamilyA,
	ProfileBegin: 0x0A40,
	ProfileEnd:   0x7FE0,
	LogbookBegin: 0x0240,
	LogbookEnd:   0x0A40,
	LogbookEmpty: 0x0230,
	PointersAddr: 0x0220,
	SerialOffset: 0x0008,
	HeaderOffset: 0x0010,
	PacketSize:   32,
	MinRead:      32,

	FingerprintOffset: 0,
	FingerprintSize:   4,
}

// FamilyBLayout is a representative Suunto-style layout: a single profile
// ringbuffer with trailer-linked dives and a header block.
var FamilyBLayout = Layout{
	Name:         "familyB-reference",
	Family:       FamilyB,
	ProfileBegin: 0x019A,
	ProfileEnd:   0x7FF0,
	HeaderAddr:   0x0190,
	PacketSize:   32,
	MinRead:      4,

	FingerprintOffset: 6,
	FingerprintSize:   4,
}
