package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/divebridge/divecore/internal/interfaces"
	"github.com/divebridge/divecore/internal/protoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	writeErr   error
	drainErr   error
	readErrs   []error // one per Read call, reused from the last entry once exhausted
	readBytes  [][]byte
	readCalls  int
	writeCalls int
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeTransport) Drain() error { return f.drainErr }

func (f *fakeTransport) Read(p []byte) (int, error) {
	idx := f.readCalls
	if idx >= len(f.readErrs) {
		idx = len(f.readErrs) - 1
	}
	f.readCalls++
	if f.readErrs[idx] != nil {
		return 0, f.readErrs[idx]
	}
	data := f.readBytes[idx]
	n := copy(p, data)
	return n, nil
}

func (f *fakeTransport) Flush(_ interfaces.FlushDirection) error { return nil }
func (f *fakeTransport) SetTimeout(_ time.Duration) error        { return nil }
func (f *fakeTransport) Configure(_ interfaces.LineConfig) error { return nil }
func (f *fakeTransport) Sleep(_ time.Duration)                   {}
func (f *fakeTransport) Close() error                            { return nil }

var _ interfaces.Transport = (*fakeTransport)(nil)

type fakeVerifier struct {
	err     error
	payload []byte
}

func (v *fakeVerifier) Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.payload, nil
}

func TestTransferSucceedsFirstTry(t *testing.T) {
	tr := &fakeTransport{
		readErrs:  []error{nil},
		readBytes: [][]byte{{0xAA}},
	}
	v := &fakeVerifier{payload: []byte{0x01}}

	xfer := New(Config{Transport: tr})
	got, err := xfer.Transfer("READ", []byte{0x01}, 1, 1, v)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, got)
	assert.Equal(t, 1, tr.writeCalls)
}

func TestTransferRetriesProtocolErrorThenSucceeds(t *testing.T) {
	tr := &fakeTransport{
		readErrs:  []error{nil, nil},
		readBytes: [][]byte{{0x00}, {0x00}},
	}
	calls := 0
	v := &retryThenOKVerifier{okAfter: 1, calls: &calls}

	xfer := New(Config{Transport: tr})
	_, err := xfer.Transfer("READ", []byte{0x01}, 1, 1, v)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.writeCalls)
}

type retryThenOKVerifier struct {
	okAfter int
	calls   *int
}

func (v *retryThenOKVerifier) Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error) {
	n := *v.calls
	*v.calls = n + 1
	if n < v.okAfter {
		return nil, errors.New("checksum mismatch")
	}
	return []byte{0x01}, nil
}

func TestTransferExhaustsRetriesOnProtocolError(t *testing.T) {
	tr := &fakeTransport{
		readErrs:  []error{nil},
		readBytes: [][]byte{{0x00}},
	}
	v := &fakeVerifier{err: errors.New("checksum mismatch")}

	xfer := New(Config{Transport: tr, MaxRetry: 2})
	_, err := xfer.Transfer("READ", []byte{0x01}, 1, 1, v)

	assert.Error(t, err)
	assert.True(t, protoerr.IsRetryable(err)) // exhausted, but still tagged protocol
	assert.True(t, protoerr.IsCode(err, protoerr.ErrCodeProtocol))
	assert.Equal(t, 3, tr.writeCalls)
}

func TestTransferRetriesTimeout(t *testing.T) {
	tr := &fakeTransport{
		readErrs:  []error{interfaces.ErrTimeout, nil},
		readBytes: [][]byte{nil, {0x01}},
	}
	v := &fakeVerifier{payload: []byte{0x01}}

	xfer := New(Config{Transport: tr, MaxRetry: 2})
	_, err := xfer.Transfer("READ", []byte{0x01}, 1, 1, v)

	require.NoError(t, err)
	assert.Equal(t, 2, tr.writeCalls)
}

func TestTransferIOErrorNotRetried(t *testing.T) {
	tr := &fakeTransport{writeErr: errors.New("port disconnected")}

	xfer := New(Config{Transport: tr, MaxRetry: 2})
	_, err := xfer.Transfer("READ", []byte{0x01}, 1, 1, &fakeVerifier{})

	assert.Error(t, err)
	assert.True(t, protoerr.IsCode(err, protoerr.ErrCodeIOError))
	assert.Equal(t, 1, tr.writeCalls)
}

func TestWriteAndDrainReadExact(t *testing.T) {
	tr := &fakeTransport{
		readErrs:  []error{nil},
		readBytes: [][]byte{{0xA5}},
	}
	xfer := New(Config{Transport: tr})

	_, err := xfer.WriteAndDrain([]byte{0x6A, 0x05, 0xA5, 0x00})
	require.NoError(t, err)

	resp, err := xfer.ReadExact(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5}, resp)
}
