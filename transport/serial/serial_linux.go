//go:build linux

// Package serial implements interfaces.Transport over a real POSIX tty,
// configuring line discipline directly with termios ioctls rather than
// going through the stdlib (which has no serial-port support at all).
package serial

import (
	"fmt"
	"os"
	"time"

	"github.com/divebridge/divecore/internal/constants"
	"github.com/divebridge/divecore/internal/interfaces"
	"golang.org/x/sys/unix"
)

// Port is a Transport backed by an open tty file descriptor.
type Port struct {
	f       *os.File
	fd      int
	timeout time.Duration
}

// Open opens path (e.g. "/dev/ttyUSB0") and puts it into raw mode with
// the line parameters cfg describes. The caller is responsible for
// calling Close.
func Open(path string, cfg interfaces.LineConfig) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", path, err)
	}

	p := &Port{f: f, fd: int(f.Fd()), timeout: constants.TransportReadTimeout}
	if err := p.Configure(cfg); err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

// Write sends bytes to the device.
func (p *Port) Write(buf []byte) (int, error) {
	return p.f.Write(buf)
}

// Read fills buf, applying the configured timeout via a deadline on
// the underlying file. A timeout is reported as interfaces.ErrTimeout
// so the transfer layer can classify it as retryable.
func (p *Port) Read(buf []byte) (int, error) {
	if p.timeout > 0 {
		if err := p.f.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
			return 0, fmt.Errorf("serial: set read deadline: %w", err)
		}
	}

	n, err := p.f.Read(buf)
	if err != nil {
		if os.IsTimeout(err) {
			return n, interfaces.ErrTimeout
		}
		return n, err
	}
	return n, nil
}

// Drain blocks until the kernel's output queue for this fd is empty.
func (p *Port) Drain() error {
	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// Flush discards buffered but unconsumed bytes in the given direction.
func (p *Port) Flush(dir interfaces.FlushDirection) error {
	var queue int
	switch dir {
	case interfaces.FlushInput:
		queue = unix.TCIFLUSH
	case interfaces.FlushOutput:
		queue = unix.TCOFLUSH
	default:
		queue = unix.TCIOFLUSH
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, queue)
}

// SetTimeout configures the deadline applied to subsequent Read calls.
func (p *Port) SetTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

// Configure applies baud rate, data bits, parity, stop bits, and flow
// control to the tty via TCGETS/TCSETS, and puts it into raw
// (non-canonical) mode — no line editing, no signal characters, 8
// bits pass through untranslated.
func (p *Port) Configure(cfg interfaces.LineConfig) error {
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("serial: get termios: %w", err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CREAD | unix.CLOCAL

	switch cfg.DataBits {
	case 7:
		t.Cflag |= unix.CS7
	default:
		t.Cflag |= unix.CS8
	}

	switch cfg.Parity {
	case interfaces.ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case interfaces.ParityEven:
		t.Cflag |= unix.PARENB
	}

	if cfg.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}

	if cfg.FlowCtrl == interfaces.FlowHardware {
		t.Cflag |= unix.CRTSCTS
	}
	if cfg.FlowCtrl == interfaces.FlowXonXoff {
		t.Iflag |= unix.IXON | unix.IXOFF
	}

	rate := baudConst(cfg.BaudRate)
	t.Ispeed = rate
	t.Ospeed = rate
	t.Cflag &^= unix.CBAUD
	t.Cflag |= rate

	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("serial: set termios: %w", err)
	}
	return nil
}

// Sleep pauses the calling goroutine; exposed on the interface so a
// fake transport (e.g. the simulator) can skip real time.
func (p *Port) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Close releases the underlying file descriptor.
func (p *Port) Close() error {
	return p.f.Close()
}

func baudConst(rate int) uint32 {
	switch rate {
	case 1200:
		return unix.B1200
	case 2400:
		return unix.B2400
	case 4800:
		return unix.B4800
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	default:
		return unix.B9600
	}
}

var _ interfaces.Transport = (*Port)(nil)
