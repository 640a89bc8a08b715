package divecore

import (
	"sync"
	"time"

	"github.com/divebridge/divecore/internal/interfaces"
)

// MockTransport is a scriptable fake Transport for library consumers'
// own tests. Queue one response per expected Write/Read round trip
// with QueueResponse; each Read call consumes the next queued
// response. Every Write is recorded and can be inspected with
// WrittenAt/WriteCount.
type MockTransport struct {
	mu        sync.Mutex
	responses [][]byte
	written   [][]byte
	closed    bool
	timeout   time.Duration
	config    interfaces.LineConfig
	sleeps    []time.Duration

	// ReadErr, if set, is returned by every Read instead of consuming
	// a queued response, until the caller clears it.
	ReadErr error
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// QueueResponse appends a response to be returned by a future Read.
func (m *MockTransport) QueueResponse(resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, append([]byte{}, resp...))
}

// Write records p and returns len(p), nil.
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, append([]byte{}, p...))
	return len(p), nil
}

// Drain is a no-op; MockTransport has no write buffering to flush.
func (m *MockTransport) Drain() error { return nil }

// Read pops the next queued response into p. If ReadErr is set, it is
// returned instead and not cleared, so repeated Reads keep failing
// until the caller clears it.
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	if len(m.responses) == 0 {
		return 0, interfaces.ErrTimeout
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	n := copy(p, resp)
	return n, nil
}

// Flush is a no-op.
func (m *MockTransport) Flush(_ interfaces.FlushDirection) error { return nil }

// SetTimeout records the requested timeout; MockTransport never
// actually blocks.
func (m *MockTransport) SetTimeout(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
	return nil
}

// Configure records the requested line configuration.
func (m *MockTransport) Configure(cfg interfaces.LineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}

// Sleep records the requested duration instead of actually sleeping,
// so tests that exercise retry backoff run instantly.
func (m *MockTransport) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCount returns the number of Write calls observed.
func (m *MockTransport) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

// WrittenAt returns the bytes passed to the nth Write call (0-indexed).
func (m *MockTransport) WrittenAt(n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.written) {
		return nil
	}
	return m.written[n]
}

// Sleeps returns every duration passed to Sleep, in call order.
func (m *MockTransport) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration{}, m.sleeps...)
}

// LastConfigure returns the line configuration from the most recent
// Configure call.
func (m *MockTransport) LastConfigure() interfaces.LineConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

var _ interfaces.Transport = (*MockTransport)(nil)
