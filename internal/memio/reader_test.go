package memio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChunker struct {
	mem      []byte
	requests [][2]int
}

func (f *fakeChunker) ReadPacket(address uint32, length int) ([]byte, error) {
	f.requests = append(f.requests, [2]int{int(address), length})
	return f.mem[address : int(address)+length], nil
}

func sequentialMem(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestReadChunksExactMultiple(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(64)}
	r := NewReader(chunker, 16, 16, true)

	got, err := r.Read(0, 32)
	require.NoError(t, err)
	assert.Equal(t, sequentialMem(64)[0:32], got)
	assert.Len(t, chunker.requests, 2)
}

func TestReadRejectsMisalignmentWhenAligned(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(64)}
	r := NewReader(chunker, 16, 16, true)

	_, err := r.Read(1, 16)
	assert.Error(t, err)

	_, err = r.Read(0, 15)
	assert.Error(t, err)
}

func TestReadPadsShortChunkToMinRead(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(64)}
	r := NewReader(chunker, 16, 8, false)

	got, err := r.Read(20, 4)
	require.NoError(t, err)
	assert.Equal(t, sequentialMem(64)[20:24], got)
	// Expect one padded request: asked for minRead=8 at address 20-(8-4)=16.
	require.Len(t, chunker.requests, 1)
	assert.Equal(t, 16, chunker.requests[0][0])
	assert.Equal(t, 8, chunker.requests[0][1])
}

func TestReadRingbufferNoWrap(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(128)}
	r := NewReader(chunker, 16, 16, true)

	got, err := r.ReadRingbuffer(16, 32, 0, 128)
	require.NoError(t, err)
	assert.Equal(t, sequentialMem(128)[16:48], got)
}

func TestReadRingbufferWrap(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(128)}
	r := NewReader(chunker, 16, 16, true)

	// Region [0,128). Read 32 bytes starting at 112: straddles the end.
	got, err := r.ReadRingbuffer(112, 32, 0, 128)
	require.NoError(t, err)
	want := append(append([]byte{}, sequentialMem(128)[112:128]...), sequentialMem(128)[0:16]...)
	assert.Equal(t, want, got)
}

func TestReadRingbufferOutOfRange(t *testing.T) {
	chunker := &fakeChunker{mem: sequentialMem(128)}
	r := NewReader(chunker, 16, 16, true)

	_, err := r.ReadRingbuffer(200, 16, 0, 128)
	assert.Error(t, err)

	_, err = r.ReadRingbuffer(0, 200, 0, 128)
	assert.Error(t, err)
}
