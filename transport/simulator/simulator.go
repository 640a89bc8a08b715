package simulator

import (
	"sync"
	"time"

	"github.com/divebridge/divecore/internal/framing"
	"github.com/divebridge/divecore/internal/interfaces"
	"github.com/divebridge/divecore/internal/layout"
)

// Family A command headers and opcodes, mirrored from internal/ctrl,
// which keeps its copies unexported, so the simulator answers them
// without depending on ctrl.
const (
	familyAHandshakeCmd    = 0xA8
	familyAReadCmd         = 0xB1
	familyAQuitCmd         = 0x6A
	familyAHeaderNormal    = 0x5A
	familyAHeaderHandshake = 0xA5
)

const (
	familyBVersionCmd = 0x0F
	familyBReadCmd    = 0x05
	familyBWriteCmd   = 0x06
)

// Device is an in-memory fake dive computer. It implements
// interfaces.Transport: Write hands it one framed command, Read
// returns the framed response a real device would send. Device has
// no notion of a serial line's byte-at-a-time timing; every command is
// answered synchronously.
type Device struct {
	family layout.Family
	mem    *memory

	mu      sync.Mutex
	pending []byte
	closed  bool
}

// NewFamilyA creates a Device backed by a memory image large enough
// to span l's logbook and profile ringbuffers.
func NewFamilyA(l layout.Layout) *Device {
	return &Device{family: layout.FamilyA, mem: newMemory(int(l.ProfileEnd))}
}

// NewFamilyB creates a Device backed by a memory image large enough
// to span l's profile ringbuffer.
func NewFamilyB(l layout.Layout) *Device {
	return &Device{family: layout.FamilyB, mem: newMemory(int(l.ProfileEnd))}
}

// LoadImage writes data into the simulated device memory starting at
// address, for seeding a dive log before a test or demo reads it back.
func (s *Device) LoadImage(address uint32, data []byte) {
	s.mem.writeAt(data, int(address))
}

// Write accepts one framed command and queues its response for the
// next Read.
func (s *Device) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.family == layout.FamilyA {
		s.pending = s.handleFamilyA(p)
	} else {
		s.pending = s.handleFamilyB(p)
	}
	return len(p), nil
}

func (s *Device) handleFamilyA(req []byte) []byte {
	if len(req) == 0 {
		return nil
	}
	switch req[0] {
	case familyAHandshakeCmd:
		payload := []byte{familyAHeaderHandshake}
		return append([]byte{familyAHeaderHandshake}, append(payload, framing.ChecksumSum(payload, 0))...)
	case familyAReadCmd:
		index := uint32(req[1])<<8 | uint32(req[2])
		packetSize := 32
		addr := index * uint32(packetSize)
		payload := make([]byte, packetSize)
		s.mem.readAt(payload, int(addr))
		out := append([]byte{familyAHeaderNormal}, payload...)
		return append(out, framing.ChecksumSum(payload, 0))
	case familyAQuitCmd:
		return []byte{familyAHeaderHandshake}
	default:
		return nil
	}
}

func (s *Device) handleFamilyB(req []byte) []byte {
	if len(req) < 3 {
		return nil
	}
	cmd := req[0]
	body := req[3:]

	switch cmd {
	case familyBVersionCmd:
		payload := []byte{0x01, 0x02, 0x03, 0x04}
		return s.buildF2Response(familyBReadCmd, payload)
	case familyBReadCmd:
		addr := uint32(body[0])<<8 | uint32(body[1])
		count := int(body[2])
		echo := []byte{body[0], body[1], body[2]}
		data := make([]byte, count)
		s.mem.readAt(data, int(addr))
		payload := append(echo, data...)
		return s.buildF2Response(familyBReadCmd, payload)
	case familyBWriteCmd:
		addr := uint32(body[0])<<8 | uint32(body[1])
		count := int(body[2])
		data := body[3 : 3+count]
		s.mem.writeAt(data, int(addr))
		return s.buildF2Response(familyBWriteCmd, nil)
	default:
		return nil
	}
}

func (s *Device) buildF2Response(header byte, payload []byte) []byte {
	frame := make([]byte, 3, 3+len(payload)+1)
	frame[0] = header
	frame[1] = 0x00
	frame[2] = byte(len(payload))
	frame = append(frame, payload...)
	return append(frame, framing.ChecksumXOR(frame))
}

// Read copies the most recently queued response into p.
func (s *Device) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.pending)
	return n, nil
}

// Drain is a no-op; Device has no outbound buffering.
func (s *Device) Drain() error { return nil }

// Flush is a no-op.
func (s *Device) Flush(_ interfaces.FlushDirection) error { return nil }

// SetTimeout is a no-op; Device never blocks on Read.
func (s *Device) SetTimeout(_ time.Duration) error { return nil }

// Configure is a no-op; Device does not represent a physical line.
func (s *Device) Configure(_ interfaces.LineConfig) error { return nil }

// Sleep is a no-op so simulated sessions run at full speed.
func (s *Device) Sleep(_ time.Duration) {}

// Close marks the simulator closed.
func (s *Device) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ interfaces.Transport = (*Device)(nil)
