package ringbuf

import (
	"encoding/binary"

	"github.com/divebridge/divecore/internal/layout"
)

// ReaderB is what the Family B extractor needs from the memory layer:
// a single-packet-or-more linear read at an arbitrary address.
type ReaderB interface {
	Read(address uint32, length int) ([]byte, error)
}

// ExtractFamilyB walks a Family B device's single trailer-linked
// ringbuffer backward from its head pointer, invoking cb once per
// dive. fingerprint is the caller's stored fingerprint (zero-length or
// all-zero disables incremental stop).
func ExtractFamilyB(r ReaderB, l layout.Layout, fingerprint []byte, cb DiveCallback) error {
	header, err := r.Read(l.HeaderAddr, 8)
	if err != nil {
		return err
	}
	last := uint32(binary.LittleEndian.Uint16(header[0:2]))
	count := uint32(binary.LittleEndian.Uint16(header[2:4]))
	end := uint32(binary.LittleEndian.Uint16(header[4:6]))
	begin := uint32(binary.LittleEndian.Uint16(header[6:8]))

	for _, p := range []uint32{last, end, begin} {
		if p < l.ProfileBegin || p >= l.ProfileEnd {
			return &DataFormatError{Reason: "ringbuffer header pointer out of range"}
		}
	}

	remaining := Distance(begin, end, l.ProfileBegin, l.ProfileEnd, count != 0)
	if remaining == 0 {
		return nil
	}

	bufSize := int(l.ProfileEnd-l.ProfileBegin) + l.MinRead
	buf := make([]byte, bufSize)

	current := last
	previous := end
	address := previous
	offset := int(remaining) + l.MinRead
	available := 0

	var deferredErr error

	for remaining > 0 {
		size := int(Distance(current, previous, l.ProfileBegin, l.ProfileEnd, true))
		if size < 4 || uint32(size) > remaining {
			return &DataFormatError{Reason: "dive size out of range"}
		}

		nbytes := available
		for available < size {
			if address == l.ProfileBegin {
				address = l.ProfileEnd
			}
			readLen := l.PacketSize
			if d := int(address - l.ProfileBegin); d < readLen {
				readLen = d
			}
			if d := int(remaining) - nbytes; d < readLen {
				readLen = d
			}

			offset -= readLen
			address -= uint32(readLen)

			extra := 0
			if readLen < l.MinRead {
				extra = l.MinRead - readLen
			}

			chunk, err := r.Read(address-uint32(extra), readLen+extra)
			if err != nil {
				return err
			}
			copy(buf[offset-extra:], chunk)

			nbytes += readLen
			available += readLen
		}

		start := offset + available - size
		if start < 0 || start+size > len(buf) {
			return &DataFormatError{Reason: "dive buffer window out of range"}
		}
		dive := buf[start : start+size]
		if size < 4 {
			return &DataFormatError{Reason: "dive shorter than trailer"}
		}
		prevPtr := uint32(binary.LittleEndian.Uint16(dive[size-4 : size-2]))
		nextPtr := uint32(binary.LittleEndian.Uint16(dive[size-2 : size]))

		if prevPtr < l.ProfileBegin || prevPtr >= l.ProfileEnd ||
			nextPtr < l.ProfileBegin || nextPtr >= l.ProfileEnd {
			return &DataFormatError{Reason: "trailer pointer out of range"}
		}

		if nextPtr != previous && nextPtr != current {
			return &DataFormatError{Reason: "broken dive chain linkage"}
		}

		if nextPtr == current {
			deferredErr = &DataFormatError{Reason: "incomplete dive (self-linked trailer)"}
		} else {
			fpStart := start + l.FingerprintOffset
			fpEnd := fpStart + l.FingerprintSize
			var fp []byte
			if fpStart >= 0 && fpEnd <= len(buf) {
				fp = buf[fpStart:fpEnd]
			}

			if len(fingerprint) > 0 && fpMatches(fp, fingerprint) {
				return nil
			}

			if !cb(dive[4:size], fp) {
				return nil
			}
		}

		remaining -= uint32(size)
		available -= size
		previous = current
		current = prevPtr
	}

	return deferredErr
}

func fpMatches(a, b []byte) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	allZero := true
	for _, v := range a {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
