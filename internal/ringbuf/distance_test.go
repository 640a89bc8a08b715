package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceForward(t *testing.T) {
	assert.Equal(t, uint32(10), Distance(100, 110, 0, 1000, false))
}

func TestDistanceWrap(t *testing.T) {
	// begin=0, end=100: a=90, b=10 wraps around the end.
	assert.Equal(t, uint32(20), Distance(90, 10, 0, 100, false))
}

func TestDistanceEqualWrapFullTrue(t *testing.T) {
	assert.Equal(t, uint32(1000-200), Distance(500, 500, 200, 1000, true))
}

func TestDistanceEqualWrapFullFalse(t *testing.T) {
	assert.Equal(t, uint32(0), Distance(500, 500, 200, 1000, false))
}

func TestDistanceModularInvariant(t *testing.T) {
	const begin, end = 50, 250
	size := int64(end - begin)
	for a := int64(begin); a < end; a += 7 {
		for b := int64(begin); b < end; b += 11 {
			got := Distance(uint32(a), uint32(b), begin, end, false)
			assert.Less(t, got, uint32(size))
			want := ((b-a)%size + size) % size
			assert.Equal(t, uint32(want), got)
		}
	}
}
