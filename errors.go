// Package divecore is the public API: open a session against a
// connected dive computer, download its dive log, and decode each raw
// record. The structured error type and taxonomy below are defined in
// internal/protoerr so every layer beneath the session — transfer,
// ctrl, ringbuf — can construct and classify them without importing
// this package.
package divecore

import "github.com/divebridge/divecore/internal/protoerr"

// Error represents a structured divecore error: which operation failed,
// for which device family, and why.
type Error = protoerr.Error

// ErrorCode represents the error taxonomy of the device protocol:
// caller contract violations, allocation failures, transport failures,
// and the two retryable/non-retryable protocol error kinds.
type ErrorCode = protoerr.ErrorCode

const (
	// ErrCodeInvalidArgs is a caller contract violation (nil handle,
	// undersized buffer).
	ErrCodeInvalidArgs = protoerr.ErrCodeInvalidArgs
	// ErrCodeNoMemory is an allocation failure.
	ErrCodeNoMemory = protoerr.ErrCodeNoMemory
	// ErrCodeIOError is a transport-level failure; not retried.
	ErrCodeIOError = protoerr.ErrCodeIOError
	// ErrCodeTimeout is a missed deadline; retried at the transfer layer.
	ErrCodeTimeout = protoerr.ErrCodeTimeout
	// ErrCodeProtocol is a header/checksum/length mismatch; retried at
	// the transfer layer.
	ErrCodeProtocol = protoerr.ErrCodeProtocol
	// ErrCodeDataFormat is structurally valid bytes that are
	// semantically invalid (pointer out of range, broken link, an
	// impossibly large dive size). Not retried; may be latched and
	// reported only at the end of a traversal.
	ErrCodeDataFormat = protoerr.ErrCodeDataFormat
	// ErrCodeUnsupported means the operation isn't implemented by this
	// backend.
	ErrCodeUnsupported = protoerr.ErrCodeUnsupported
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error { return protoerr.New(op, code, msg) }

// NewFamilyError creates a new structured error scoped to a device family.
func NewFamilyError(op, family string, code ErrorCode, msg string) *Error {
	return protoerr.NewFamily(op, family, code, msg)
}

// WrapError wraps an existing error with divecore context. If inner is
// already a structured *Error its Code/Family/Msg are preserved and
// only Op is updated, matching the teacher's op-rewriting behavior.
func WrapError(op string, inner error) *Error { return protoerr.Wrap(op, inner) }

// IsCode checks whether err (or something it wraps) carries the given
// ErrorCode.
func IsCode(err error, code ErrorCode) bool { return protoerr.IsCode(err, code) }

// IsRetryable reports whether the transfer layer should retry an error.
// Only TimeoutError and ProtocolError are retried; I/O errors and data
// format errors surface immediately.
func IsRetryable(err error) bool { return protoerr.IsRetryable(err) }
