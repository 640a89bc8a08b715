// Package interfaces provides internal interface definitions for divecore.
// These are separate from the public interfaces to avoid circular imports
// between the root package and the layers beneath it.
package interfaces

import (
	"errors"
	"time"
)

// ErrTimeout is the sentinel a Transport's Read wraps (via errors.Is)
// when no bytes arrive before the configured deadline.
var ErrTimeout = errors.New("interfaces: transport read timeout")

// Transport is the byte-oriented duplex channel the core drives every
// framed request/response exchange over. Serial port discovery, opening,
// and platform-specific naming are the caller's responsibility; the core
// only ever sees this interface.
type Transport interface {
	// Write sends bytes to the device.
	Write(p []byte) (n int, err error)

	// Read fills p and returns the number of bytes read. It returns a
	// timeout error (checked with errors.Is against a sentinel the
	// transport defines) if no bytes arrive before the configured
	// timeout.
	Read(p []byte) (n int, err error)

	// Drain blocks until all previously written bytes have left the
	// local buffer.
	Drain() error

	// Flush discards any buffered bytes that have not yet been
	// consumed, in the given direction.
	Flush(dir FlushDirection) error

	// SetTimeout configures the deadline applied to subsequent Read
	// calls.
	SetTimeout(d time.Duration) error

	// Configure sets line parameters. Transports that do not represent
	// a physical serial line (e.g. an in-memory simulator) may treat
	// this as a no-op.
	Configure(cfg LineConfig) error

	// Sleep pauses for the given duration. Exposed on the interface so
	// deterministic transports (tests) can fast-forward it.
	Sleep(d time.Duration)

	// Close releases the underlying resource.
	Close() error
}

// FlushDirection selects which buffered direction Flush discards.
type FlushDirection int

const (
	FlushInput FlushDirection = iota
	FlushOutput
	FlushBoth
)

// LineConfig mirrors the parameters a real serial line needs configured
// before a device will talk to it.
type LineConfig struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits int
	FlowCtrl FlowControl
}

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowHardware
	FlowXonXoff
)

// Logger is the structured logging sink the core consumes. It is
// injected rather than looked up from process-wide state so that two
// Sessions in the same process can log independently.
type Logger interface {
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
}

// Observer receives progress and timing events from the transfer and
// extractor layers. Implementations must be safe for concurrent use
// since a caller may drive several Sessions in parallel.
type Observer interface {
	ObserveTransfer(bytes uint64, latencyNs uint64, retries int, success bool)
	ObserveDive(bytes uint64, success bool)
	ObserveProgress(current, total uint64)
}
