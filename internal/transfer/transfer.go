// Package transfer issues one framed command and receives one framed
// response over a Transport, retrying on timeout or protocol error up
// to a bounded count.
package transfer

import (
	"errors"
	"time"

	"github.com/divebridge/divecore/internal/constants"
	"github.com/divebridge/divecore/internal/interfaces"
	"github.com/divebridge/divecore/internal/protoerr"
	"github.com/rs/xid"
)

// Verifier is the subset of a framing codec the transfer layer needs:
// check a response frame and return its payload.
type Verifier interface {
	Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error)
}

// Transfer drives one request/response exchange with bounded retry.
type Transfer struct {
	transport interfaces.Transport
	logger    interfaces.Logger
	observer  interfaces.Observer
	maxRetry  int
}

// Config configures a Transfer. Logger and Observer may be nil.
type Config struct {
	Transport interfaces.Transport
	Logger    interfaces.Logger
	Observer  interfaces.Observer
	MaxRetry  int // 0 uses constants.MaxRetries
}

// New builds a Transfer.
func New(cfg Config) *Transfer {
	maxRetry := cfg.MaxRetry
	if maxRetry == 0 {
		maxRetry = constants.MaxRetries
	}
	return &Transfer{transport: cfg.Transport, logger: cfg.Logger, observer: cfg.Observer, maxRetry: maxRetry}
}

// Transfer writes req, reads exactly respLen bytes, and validates the
// response with verifier (the response's payload is payloadLen bytes
// once header/length/checksum framing is stripped). Transport errors
// are classified timeout-vs-I/O via interfaces.ErrTimeout; verify
// failures are always protocol errors. Timeout and protocol errors are
// retried up to Config.MaxRetry additional times (MaxRetries=2 means 3
// total attempts); I/O errors fail immediately.
func (t *Transfer) Transfer(op string, req []byte, respLen, payloadLen int, verifier Verifier, headers ...byte) ([]byte, error) {
	attemptID := xid.New().String()
	var lastErr error
	start := time.Now()
	attempts := 0

	if t.logger != nil {
		t.logger.Debug("transfer starting", "op", op, "attempt_id", attemptID)
	}

	for attempt := 0; attempt <= t.maxRetry; attempt++ {
		attempts++
		payload, err := t.attempt(op, req, respLen, payloadLen, verifier, headers...)
		if err == nil {
			t.observe(op, start, uint64(len(payload)), attempts, true)
			return payload, nil
		}
		lastErr = err
		if !protoerr.IsRetryable(err) {
			t.observe(op, start, 0, attempts, false)
			return nil, err
		}
		if t.logger != nil {
			t.logger.Warn("transfer retrying", "op", op, "attempt_id", attemptID, "attempt", attempt, "err", err.Error())
		}
	}

	t.observe(op, start, 0, attempts, false)
	return nil, lastErr
}

func (t *Transfer) attempt(op string, req []byte, respLen, payloadLen int, verifier Verifier, headers ...byte) ([]byte, error) {
	if _, err := t.transport.Write(req); err != nil {
		return nil, classifyTransportErr(op, err)
	}
	if err := t.transport.Drain(); err != nil {
		return nil, classifyTransportErr(op, err)
	}

	resp := getRespBuf(respLen)
	defer putRespBuf(resp)

	n := 0
	for n < len(resp) {
		m, err := t.transport.Read(resp[n:])
		if err != nil {
			return nil, classifyTransportErr(op, err)
		}
		if m == 0 {
			break
		}
		n += m
	}
	resp = resp[:n]

	payload, err := verifier.Verify(resp, payloadLen, headers...)
	if err != nil {
		return nil, protoerr.WrapAs(op, protoerr.ErrCodeProtocol, err)
	}
	// Verify returns a subslice of the pooled resp buffer; copy it out
	// before resp is released back to the pool by the deferred put.
	owned := make([]byte, len(payload))
	copy(owned, payload)
	return owned, nil
}

func classifyTransportErr(op string, err error) error {
	if errors.Is(err, interfaces.ErrTimeout) {
		return protoerr.WrapAs(op, protoerr.ErrCodeTimeout, err)
	}
	return protoerr.WrapAs(op, protoerr.ErrCodeIOError, err)
}

// WriteAndDrain issues a bare write with no expected framed response,
// for exchanges like Family A's quit command whose response carries no
// length or checksum.
func (t *Transfer) WriteAndDrain(req []byte) (int, error) {
	n, err := t.transport.Write(req)
	if err != nil {
		return 0, classifyTransportErr("WRITE", err)
	}
	if err := t.transport.Drain(); err != nil {
		return n, classifyTransportErr("WRITE", err)
	}
	return n, nil
}

// ReadExact reads exactly n bytes with no framing validation.
func (t *Transfer) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := t.transport.Read(buf[got:])
		if err != nil {
			return nil, classifyTransportErr("READ", err)
		}
		if m == 0 {
			break
		}
		got += m
	}
	return buf[:got], nil
}

func (t *Transfer) observe(op string, start time.Time, bytes uint64, attempts int, success bool) {
	if t.observer == nil {
		return
	}
	t.observer.ObserveTransfer(bytes, uint64(time.Since(start).Nanoseconds()), attempts-1, success)
}
