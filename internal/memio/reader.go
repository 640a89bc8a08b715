// Package memio splits arbitrary (address, length) reads into
// packet-sized transfer chunks and linearises reads across a
// ringbuffer's wrap-around boundary.
package memio

// Chunker is the subset of the transfer layer the memory reader needs:
// one packet read at a given device address.
type Chunker interface {
	ReadPacket(address uint32, length int) ([]byte, error)
}

// Reader implements read(address, length) and read_ringbuffer(address,
// length, begin, end) on top of a Chunker.
type Reader struct {
	chunker    Chunker
	packetSize int
	minRead    int
	aligned    bool // Family A requires packet-size-aligned address/length.
}

// NewReader builds a Reader. aligned is true for Family A layouts,
// which require address and length to be multiples of packetSize;
// false for Family B, which instead enforces minRead by padding short
// chunks on the left and discarding the padding.
func NewReader(chunker Chunker, packetSize, minRead int, aligned bool) *Reader {
	if minRead <= 0 {
		minRead = packetSize
	}
	return &Reader{chunker: chunker, packetSize: packetSize, minRead: minRead, aligned: aligned}
}

// Read issues ceil(length/packetSize) chunked reads and concatenates
// the payloads into one contiguous buffer.
func (r *Reader) Read(address uint32, length int) ([]byte, error) {
	if r.aligned {
		if address%uint32(r.packetSize) != 0 || length%r.packetSize != 0 {
			return nil, &AlignmentError{Address: address, Length: length, PacketSize: r.packetSize}
		}
	}

	out := make([]byte, 0, length)
	remaining := length
	addr := address
	for remaining > 0 {
		n := remaining
		if n > r.packetSize {
			n = r.packetSize
		}

		if n < r.minRead {
			pad := r.minRead - n
			padded, err := r.chunker.ReadPacket(addr-uint32(pad), r.minRead)
			if err != nil {
				return nil, err
			}
			out = append(out, padded[pad:]...)
		} else {
			chunk, err := r.chunker.ReadPacket(addr, n)
			if err != nil {
				return nil, err
			}
			out = append(out, chunk...)
		}

		addr += uint32(n)
		remaining -= n
	}
	return out, nil
}

// ReadRingbuffer reads length bytes starting at address within the
// circular region [begin, end), splitting the read in two and
// concatenating when it straddles the end boundary.
func (r *Reader) ReadRingbuffer(address uint32, length int, begin, end uint32) ([]byte, error) {
	if address < begin || address >= end {
		return nil, &AlignmentError{Address: address, Length: length, PacketSize: r.packetSize}
	}
	if uint32(length) > end-begin {
		return nil, &AlignmentError{Address: address, Length: length, PacketSize: r.packetSize}
	}

	if address+uint32(length) <= end {
		return r.Read(address, length)
	}

	firstLen := int(end - address)
	first, err := r.Read(address, firstLen)
	if err != nil {
		return nil, err
	}
	secondLen := length - firstLen
	second, err := r.Read(begin, secondLen)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

// AlignmentError reports a precondition violation on a read request.
type AlignmentError struct {
	Address    uint32
	Length     int
	PacketSize int
}

func (e *AlignmentError) Error() string {
	return "memio: misaligned or out-of-range read request"
}
