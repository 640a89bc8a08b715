package ringbuf

import (
	"encoding/binary"

	"github.com/divebridge/divecore/internal/layout"
)

// ReaderA is what the Family A extractor needs from the memory layer:
// linear and ringbuffer-aware reads.
type ReaderA interface {
	Read(address uint32, length int) ([]byte, error)
	ReadRingbuffer(address uint32, length int, begin, end uint32) ([]byte, error)
}

// DiveCallback receives one dive's raw bytes and fingerprint slice. It
// returns false to stop traversal; that is success, not an error.
type DiveCallback func(raw, fingerprint []byte) bool

// ExtractFamilyA walks a Family A device's paired logbook/profile
// ringbuffers newest-first, invoking cb once per dive. fingerprint is
// the caller's stored fingerprint (zero-length or all-zero disables
// incremental stop), matched the same way ExtractFamilyB does.
func ExtractFamilyA(r ReaderA, l layout.Layout, fingerprint []byte, cb DiveCallback) error {
	pointers, err := r.Read(l.PointersAddr, l.PacketSize)
	if err != nil {
		return err
	}
	if len(pointers) < 4 {
		return &DataFormatError{Reason: "pointers block too short"}
	}
	first := uint32(binary.LittleEndian.Uint16(pointers[0:2]))
	last := uint32(binary.LittleEndian.Uint16(pointers[2:4]))

	if first == l.LogbookEmpty && last == l.LogbookEmpty {
		return nil
	}
	if first == l.LogbookEmpty || last == l.LogbookEmpty {
		return &DataFormatError{Reason: "only one logbook pointer holds the empty sentinel"}
	}

	entrySize := uint32(l.EntrySize())
	count := Distance(first, last, l.LogbookBegin, l.LogbookEnd, false)/entrySize + 1

	packetSize := uint32(l.PacketSize)
	alignedFirst := (first / packetSize) * packetSize
	alignedLast := (last / packetSize) * packetSize
	logbookLen := int(Distance(alignedFirst, alignedLast, l.LogbookBegin, l.LogbookEnd, false)) + l.PacketSize

	logbook, err := r.ReadRingbuffer(alignedFirst, logbookLen, l.LogbookBegin, l.LogbookEnd)
	if err != nil {
		return err
	}

	pos := int(Distance(alignedFirst, last, l.LogbookBegin, l.LogbookEnd, false))

	for i := uint32(0); i < count; i++ {
		if pos+int(entrySize) > len(logbook) {
			return &DataFormatError{Reason: "logbook entry out of bounds"}
		}
		entry := logbook[pos : pos+int(entrySize)]
		if len(entry) < 8 {
			return &DataFormatError{Reason: "logbook entry shorter than 8 bytes"}
		}

		profileFirstIdx := uint32(entry[5]) | (uint32(entry[6]&0x0F) << 8)
		profileLastIdx := uint32(entry[6]>>4) | (uint32(entry[7]) << 4)
		profileFirst := profileFirstIdx * packetSize
		profileLast := profileLastIdx * packetSize

		if profileFirst < l.ProfileBegin || profileFirst >= l.ProfileEnd ||
			profileLast < l.ProfileBegin || profileLast >= l.ProfileEnd {
			return &DataFormatError{Reason: "profile pointer out of range"}
		}

		profileLen := int(Distance(profileFirst, profileLast, l.ProfileBegin, l.ProfileEnd, false)) + l.PacketSize
		profile, err := r.ReadRingbuffer(profileFirst, profileLen, l.ProfileBegin, l.ProfileEnd)
		if err != nil {
			return err
		}

		raw := make([]byte, 0, 8+len(profile))
		raw = append(raw, entry[:8]...)
		raw = append(raw, profile...)

		fpEnd := l.FingerprintOffset + l.FingerprintSize
		var fp []byte
		if fpEnd <= len(raw) {
			fp = raw[l.FingerprintOffset:fpEnd]
		}

		if len(fingerprint) > 0 && fpMatches(fp, fingerprint) {
			return nil
		}

		if !cb(raw, fp) {
			return nil
		}

		pos -= int(entrySize)
	}

	return nil
}

// DataFormatError reports structurally valid but semantically invalid
// device bytes: an out-of-range pointer, a broken chain link, or an
// impossibly large dive size.
type DataFormatError struct {
	Reason string
}

func (e *DataFormatError) Error() string {
	return "ringbuf: data format error: " + e.Reason
}
