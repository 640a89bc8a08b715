// Package simulator provides an in-memory fake dive computer that
// speaks the real Family A and Family B wire protocols, for use in
// tests and demos without a physical device attached.
package simulator

import "sync"

// shardSize bounds how many bytes a single lock guards. Device memory
// images here are a few tens of KB at most, so one shard is plenty;
// the sharding is kept to mirror the concurrent-access pattern the
// layer above (several Sessions, each against its own Device) can
// exercise, not because contention is expected within one instance.
const shardSize = 4096

// memory is a sharded-lock byte store standing in for a device's
// flash memory image. Reads and writes only ever touch the shards
// their range overlaps.
type memory struct {
	data   []byte
	shards []sync.RWMutex
}

func newMemory(size int) *memory {
	numShards := (size + shardSize - 1) / shardSize
	if numShards < 1 {
		numShards = 1
	}
	return &memory{
		data:   make([]byte, size),
		shards: make([]sync.RWMutex, numShards),
	}
}

func (m *memory) shardRange(off, length int) (start, end int) {
	if length <= 0 {
		length = 1
	}
	start = off / shardSize
	end = (off + length - 1) / shardSize
	if end >= len(m.shards) {
		end = len(m.shards) - 1
	}
	return start, end
}

// readAt copies len(p) bytes starting at off into p. Out-of-range
// reads return zeroed bytes rather than an error: the simulator only
// ever rejects requests at the protocol-framing level.
func (m *memory) readAt(p []byte, off int) {
	start, end := m.shardRange(off, len(p))
	for i := start; i <= end; i++ {
		m.shards[i].RLock()
	}
	defer func() {
		for i := start; i <= end; i++ {
			m.shards[i].RUnlock()
		}
	}()

	for i := range p {
		src := off + i
		if src >= 0 && src < len(m.data) {
			p[i] = m.data[src]
		} else {
			p[i] = 0
		}
	}
}

func (m *memory) writeAt(p []byte, off int) {
	start, end := m.shardRange(off, len(p))
	for i := start; i <= end; i++ {
		m.shards[i].Lock()
	}
	defer func() {
		for i := start; i <= end; i++ {
			m.shards[i].Unlock()
		}
	}()

	for i, b := range p {
		dst := off + i
		if dst >= 0 && dst < len(m.data) {
			m.data[dst] = b
		}
	}
}

func (m *memory) size() int { return len(m.data) }
