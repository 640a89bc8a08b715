// Package divecore downloads recorded dive logs from consumer
// dive-computer hardware over serial transports and decodes the
// on-device binary memory layout into a structured per-dive stream.
//
// The hard engineering, and the sole subject of this package, is the
// device memory protocol and ringbuffer extraction core: for each
// supported device family, a request/response byte protocol on a
// serial line, plus the algorithm that walks a circular on-device
// memory region and reconstructs discrete dive records in
// most-recent-first order while tolerating wrap-around, partial
// reads, and fingerprint-based incremental download.
package divecore

import (
	"errors"

	"github.com/divebridge/divecore/internal/ctrl"
	"github.com/divebridge/divecore/internal/interfaces"
	"github.com/divebridge/divecore/internal/layout"
	"github.com/divebridge/divecore/internal/logging"
	"github.com/divebridge/divecore/internal/memio"
	"github.com/divebridge/divecore/internal/ringbuf"
	"github.com/divebridge/divecore/internal/transfer"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"
)

// Transport is the byte-oriented duplex channel a Session drives every
// framed request/response exchange over. Serial port discovery,
// opening, and platform-specific naming are the caller's
// responsibility; a Session only ever sees this interface.
type Transport = interfaces.Transport

// Logger is the structured logging sink a Session consumes.
type Logger = interfaces.Logger

// Observer receives progress and timing events from the transfer and
// extractor layers.
type Observer = interfaces.Observer

// DiveCallback receives one dive's raw bytes and fingerprint slice. It
// returns false to stop traversal; that is success, not an error.
type DiveCallback func(raw, fingerprint []byte) bool

// Options configures a Session beyond its Transport and Layout.
// Logger and Observer may be nil.
type Options struct {
	Logger   Logger
	Observer Observer
	MaxRetry int // 0 uses the package default (constants.MaxRetries)
}

// Session is the live association with one connected dive computer. It
// owns a transport handle and an immutable reference to its Layout,
// plus an opaque Fingerprint used for incremental downloads.
//
// Scheduling model: a Session is a mutable resource with exclusive
// ownership. No operation on a Session may run concurrently with
// another operation on the same Session; independent Sessions share no
// mutable state and may run in parallel on independent goroutines.
type Session struct {
	id          string
	transport   Transport
	layout      Layout
	fingerprint []byte
	logger      Logger
	observer    Observer

	xfer    *transfer.Transfer
	ctrlA   *ctrl.ControllerA
	ctrlB   *ctrl.ControllerB
	reader  *memio.Reader
	closed  bool
}

// Open associates a Session with an already-opened Transport and a
// device Layout. For a Family A layout, Open performs the handshake
// exchange that Family A devices require before any read; Family B
// devices need no such handshake and Open is a pure association.
func Open(transport Transport, l layout.Layout, opts *Options) (*Session, error) {
	if transport == nil {
		return nil, NewError("OPEN", ErrCodeInvalidArgs, "nil transport")
	}
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	s := &Session{
		id:        xid.New().String(),
		transport: transport,
		layout:    l,
		logger:    logger,
		observer:  opts.Observer,
	}

	s.xfer = transfer.New(transfer.Config{
		Transport: transport,
		Logger:    logger,
		Observer:  opts.Observer,
		MaxRetry:  opts.MaxRetry,
	})

	aligned := l.Family == layout.FamilyA
	minRead := l.MinRead
	if minRead == 0 {
		minRead = l.PacketSize
	}

	switch l.Family {
	case layout.FamilyA:
		s.ctrlA = ctrl.NewControllerA(s.xfer, l)
		s.reader = memio.NewReader(s.ctrlA, l.PacketSize, minRead, aligned)
		if err := s.ctrlA.Handshake(); err != nil {
			return nil, WrapError("OPEN", err)
		}
	case layout.FamilyB:
		s.ctrlB = ctrl.NewControllerB(s.xfer)
		s.reader = memio.NewReader(s.ctrlB, l.PacketSize, minRead, aligned)
	default:
		return nil, NewError("OPEN", ErrCodeInvalidArgs, "unknown device family")
	}

	return s, nil
}

// SetFingerprint sets the stored fingerprint used to terminate
// traversal early at the first previously-seen dive. An empty or
// all-zero fingerprint disables incremental mode.
func (s *Session) SetFingerprint(fp []byte) {
	s.fingerprint = append([]byte{}, fp...)
}

// Version reads the device's version string into buf, returning the
// number of bytes written. Only Family B devices expose a version
// command; Family A returns ErrCodeUnsupported.
func (s *Session) Version(buf []byte) (int, error) {
	if s.closed {
		return 0, NewError("VERSION", ErrCodeInvalidArgs, "session closed")
	}
	if s.layout.Family != layout.FamilyB {
		return 0, NewError("VERSION", ErrCodeUnsupported, "version query not supported by this family")
	}
	v, err := s.ctrlB.Version()
	if err != nil {
		return 0, WrapError("VERSION", err)
	}
	n := copy(buf, v)
	return n, nil
}

// Dump reads the full linear memory image spanned by the Layout's
// profile ringbuffer into buffer, returning the number of bytes
// written.
func (s *Session) Dump(buffer []byte) (int, error) {
	if s.closed {
		return 0, NewError("DUMP", ErrCodeInvalidArgs, "session closed")
	}
	length := int(s.layout.ProfileEnd - s.layout.ProfileBegin)
	if len(buffer) < length {
		return 0, NewError("DUMP", ErrCodeInvalidArgs, "buffer too small for full memory image")
	}
	data, err := s.reader.Read(s.layout.ProfileBegin, length)
	if err != nil {
		return 0, WrapError("DUMP", err)
	}
	return copy(buffer, data), nil
}

// Foreach walks the device's dive ringbuffer newest-first, invoking
// callback once per dive. Traversal stops early, with success, either
// when callback returns false or when a dive matching the session's
// stored fingerprint is encountered.
func (s *Session) Foreach(callback DiveCallback) error {
	if s.closed {
		return NewError("FOREACH", ErrCodeInvalidArgs, "session closed")
	}

	callID := xid.New().String()
	s.logger.Debug("starting dive traversal", "session", s.id, "call_id", callID, "family", s.layout.Family.String())

	cb := ringbuf.DiveCallback(callback)
	if s.observer != nil {
		cb = func(raw, fp []byte) bool {
			s.observer.ObserveDive(uint64(len(raw)), true)
			return callback(raw, fp)
		}
	}

	var err error
	switch s.layout.Family {
	case layout.FamilyA:
		err = ringbuf.ExtractFamilyA(s.reader, s.layout, s.fingerprint, cb)
	case layout.FamilyB:
		err = ringbuf.ExtractFamilyB(s.reader, s.layout, s.fingerprint, cb)
	default:
		err = NewError("FOREACH", ErrCodeInvalidArgs, "unknown device family")
	}

	if err != nil {
		s.logger.Warn("dive traversal ended with error", "session", s.id, "call_id", callID, "error", err)
		var dfe *ringbuf.DataFormatError
		if errors.As(err, &dfe) {
			return &Error{Op: "FOREACH", Code: ErrCodeDataFormat, Msg: err.Error(), Inner: err}
		}
		return WrapError("FOREACH", err)
	}
	return nil
}

// Close releases the transport. For Family A devices this first sends
// the quit command the device expects at the end of a session.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var result *multierror.Error
	if s.layout.Family == layout.FamilyA && s.ctrlA != nil {
		if err := s.ctrlA.Quit(); err != nil {
			result = multierror.Append(result, WrapError("CLOSE", err))
		}
	}
	if err := s.transport.Close(); err != nil {
		result = multierror.Append(result, WrapError("CLOSE", err))
	}
	return result.ErrorOrNil()
}

var _ interfaces.Logger = (*logging.Logger)(nil)
