package ringbuf

import (
	"encoding/binary"
	"testing"

	"github.com/divebridge/divecore/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReaderB struct {
	mem []byte
}

func (f *fakeReaderB) Read(address uint32, length int) ([]byte, error) {
	return append([]byte{}, f.mem[address:int(address)+length]...), nil
}

func testLayoutB() layout.Layout {
	l := layout.FamilyBLayout
	l.ProfileBegin = 0x0100
	l.ProfileEnd = 0x0300
	l.HeaderAddr = 0x00F0
	l.PacketSize = 32
	l.MinRead = 4
	l.FingerprintOffset = 0
	l.FingerprintSize = 4
	return l
}

func putLE16b(buf []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(buf[off:off+2], v)
}

// buildSingleDiveImage places one 16-byte dive at [0x150,0x160) whose
// trailer points both prev and next at `end` (0x160). previous starts
// as `end`, so the one dive's next pointer equal to `end` is the normal
// "next == previous" link, and the header's span ends the chain there.
func buildSingleDiveImage(t *testing.T, l layout.Layout) []byte {
	t.Helper()
	mem := make([]byte, 0x400)

	diveAddr := uint32(0x0150)
	diveSize := 16
	last := diveAddr
	begin := diveAddr
	end := diveAddr + uint32(diveSize)
	count := uint16(1)

	putLE16b(mem, int(l.HeaderAddr), uint16(last))
	putLE16b(mem, int(l.HeaderAddr)+2, count)
	putLE16b(mem, int(l.HeaderAddr)+4, uint16(end))
	putLE16b(mem, int(l.HeaderAddr)+6, uint16(begin))

	dive := mem[diveAddr : int(diveAddr)+diveSize]
	// trailer: prev, next both = end (closes the chain at the single dive).
	putLE16b(dive, diveSize-4, uint16(end))
	putLE16b(dive, diveSize-2, uint16(end))

	return mem
}

func TestExtractFamilyBSingleDive(t *testing.T) {
	l := testLayoutB()
	mem := buildSingleDiveImage(t, l)

	var gotRaw []byte
	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		calls++
		gotRaw = raw
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, gotRaw, 16-4)
}

func TestExtractFamilyBInvalidHeaderPointer(t *testing.T) {
	l := testLayoutB()
	mem := make([]byte, 0x400)
	putLE16b(mem, int(l.HeaderAddr), 0xFFFF) // out of [ProfileBegin, ProfileEnd)
	putLE16b(mem, int(l.HeaderAddr)+2, 1)
	putLE16b(mem, int(l.HeaderAddr)+4, uint16(l.ProfileBegin))
	putLE16b(mem, int(l.HeaderAddr)+6, uint16(l.ProfileBegin))

	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		return true
	})
	assert.Error(t, err)
}

func TestExtractFamilyBEmptyHeaderCountZero(t *testing.T) {
	l := testLayoutB()
	mem := make([]byte, 0x400)
	addr := uint16(l.ProfileBegin)
	putLE16b(mem, int(l.HeaderAddr), addr)
	putLE16b(mem, int(l.HeaderAddr)+2, 0)
	putLE16b(mem, int(l.HeaderAddr)+4, addr)
	putLE16b(mem, int(l.HeaderAddr)+6, addr)

	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestExtractFamilyBCallbackStopsTraversal(t *testing.T) {
	l := testLayoutB()
	mem := buildSingleDiveImage(t, l)

	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

// buildTwoDiveImage places two consecutive 16-byte dives at
// [dive1Addr,dive1Addr+16) and [dive2Addr,dive2Addr+16), dive2 being
// the newest (pointed to by the header's `last`), linked dive2 -> dive1
// -> chain head. If fp is non-empty it is written into dive1's
// fingerprint field (the first FingerprintSize bytes of its window).
func buildTwoDiveImage(t *testing.T, l layout.Layout, fp []byte) (mem []byte, dive1Addr, dive2Addr uint32) {
	t.Helper()
	mem = make([]byte, 0x400)

	dive1Addr = 0x0160
	dive2Addr = 0x0170
	const diveSize = 16
	begin := dive1Addr
	end := dive2Addr + diveSize

	putLE16b(mem, int(l.HeaderAddr), uint16(dive2Addr))
	putLE16b(mem, int(l.HeaderAddr)+2, 2)
	putLE16b(mem, int(l.HeaderAddr)+4, uint16(end))
	putLE16b(mem, int(l.HeaderAddr)+6, uint16(begin))

	// dive2 (newest): prev points at dive1, next closes back to `end`.
	putLE16b(mem, int(dive2Addr)+diveSize-4, uint16(dive1Addr))
	putLE16b(mem, int(dive2Addr)+diveSize-2, uint16(end))

	// dive1 (oldest): prev points at its own start (`begin`), next at
	// dive2, the normal link to the dive recorded after it.
	putLE16b(mem, int(dive1Addr)+diveSize-4, uint16(begin))
	putLE16b(mem, int(dive1Addr)+diveSize-2, uint16(dive2Addr))

	if len(fp) > 0 {
		copy(mem[dive1Addr:dive1Addr+uint32(len(fp))], fp)
	}

	return mem, dive1Addr, dive2Addr
}

func TestExtractFamilyBMultiDiveBackwardTraversal(t *testing.T) {
	l := testLayoutB()
	mem, _, _ := buildTwoDiveImage(t, l, nil)

	var lens []int
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		lens = append(lens, len(raw))
		return true
	})
	require.NoError(t, err)
	// Newest dive delivered first, then the older one.
	require.Len(t, lens, 2)
	assert.Equal(t, []int{16 - 4, 16 - 4}, lens)
}

// TestExtractFamilyBFingerprintStop covers S4: traversal halts at the
// dive whose fingerprint matches the caller's stored one, without
// invoking cb for it, while the newer dive ahead of it is still
// delivered.
func TestExtractFamilyBFingerprintStop(t *testing.T) {
	l := testLayoutB()
	fp := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	mem, _, _ := buildTwoDiveImage(t, l, fp)

	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, fp, func(raw, got []byte) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

// TestExtractFamilyBWrapAcrossRingBoundary covers S3: a dive whose
// bytes straddle the physical end of the ringbuffer, reassembled from
// two separate reads joined at the wrap point.
func TestExtractFamilyBWrapAcrossRingBoundary(t *testing.T) {
	l := testLayoutB()
	mem := make([]byte, 0x400)

	// The dive spans [0x2F0,0x300) then wraps to [0x100,0x108): 24
	// bytes total, straddling ProfileEnd/ProfileBegin.
	last := uint32(0x2F0)
	end := uint32(0x108)
	begin := last

	putLE16b(mem, int(l.HeaderAddr), uint16(last))
	putLE16b(mem, int(l.HeaderAddr)+2, 1)
	putLE16b(mem, int(l.HeaderAddr)+4, uint16(end))
	putLE16b(mem, int(l.HeaderAddr)+6, uint16(begin))

	// Trailer (last 4 logical bytes of the 24-byte dive) lands at
	// physical [0x104,0x108), the wrapped remainder past ProfileBegin.
	putLE16b(mem, 0x104, uint16(end)) // prevPtr
	putLE16b(mem, 0x106, uint16(end)) // nextPtr, closes the single-dive chain

	var gotRaw []byte
	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		calls++
		gotRaw = raw
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, gotRaw, 24-4)
}

// TestExtractFamilyBSelfLinkedIncompleteDiveLatch covers the §4.5 step
// 5 / invariant 3 case: the oldest dive's trailer points to itself,
// marking an in-progress record. It is excluded from cb but its
// presence is surfaced as a deferred error once traversal finishes, so
// the caller can distinguish "ring exhausted cleanly" from "ring ends
// in a still-recording dive."
func TestExtractFamilyBSelfLinkedIncompleteDiveLatch(t *testing.T) {
	l := testLayoutB()
	mem := make([]byte, 0x400)

	dive1 := uint32(0x0160) // oldest, self-linked
	dive2 := uint32(0x0170) // newest, well-formed
	const diveSize = 16
	begin := dive1
	end := dive2 + diveSize

	putLE16b(mem, int(l.HeaderAddr), uint16(dive2))
	putLE16b(mem, int(l.HeaderAddr)+2, 2)
	putLE16b(mem, int(l.HeaderAddr)+4, uint16(end))
	putLE16b(mem, int(l.HeaderAddr)+6, uint16(begin))

	// dive2 (newest): normal trailer, closes back through dive1 to end.
	putLE16b(mem, int(dive2)+diveSize-4, uint16(dive1))
	putLE16b(mem, int(dive2)+diveSize-2, uint16(end))

	// dive1 (oldest): next points at its own start.
	putLE16b(mem, int(dive1)+diveSize-4, uint16(dive1))
	putLE16b(mem, int(dive1)+diveSize-2, uint16(dive1))

	calls := 0
	err := ExtractFamilyB(&fakeReaderB{mem: mem}, l, nil, func(raw, fp []byte) bool {
		calls++
		return true
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls) // only the well-formed newer dive is delivered
}
