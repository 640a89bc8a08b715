// Package ctrl issues the structured command set each device family
// exposes — handshake/read/quit for Family A, version/read/write for
// Family B — by composing a framing codec with the retrying transfer
// layer.
package ctrl

import (
	"github.com/divebridge/divecore/internal/framing"
	"github.com/divebridge/divecore/internal/layout"
	"github.com/divebridge/divecore/internal/transfer"
)

// Family A command headers and opcodes, taken directly from the wire
// protocol examples.
const (
	familyAHandshakeCmd    = 0xA8
	familyAReadCmd         = 0xB1
	familyAQuitCmd         = 0x6A
	familyAHeaderNormal    = 0x5A
	familyAHeaderHandshake = 0xA5
)

// Family B command opcodes and response headers.
const (
	familyBVersionCmd  = 0x0F
	familyBReadCmd     = 0x05
	familyBWriteCmd    = 0x06
	familyBHeaderRead  = 0x05
	familyBHeaderWrite = 0x06
)

// ControllerA issues Family A requests.
type ControllerA struct {
	xfer   *transfer.Transfer
	layout layout.Layout
	codec  framing.F1Codec
}

// NewControllerA builds a ControllerA over an already-configured
// Transfer (which itself owns the Transport, logger, and observer).
func NewControllerA(xfer *transfer.Transfer, l layout.Layout) *ControllerA {
	return &ControllerA{xfer: xfer, layout: l}
}

// Handshake performs the Family A init exchange: request A8 99 00,
// expecting response A5 A5 chk.
func (c *ControllerA) Handshake() error {
	req := c.codec.Build([]byte{familyAHandshakeCmd, 0x99, 0x00})
	_, err := c.xfer.Transfer("HANDSHAKE", req, 3, 1, c.codec, familyAHeaderHandshake)
	return err
}

// ReadPacket reads one packet_size chunk at the given byte address,
// matching the B1 hi lo 00 wire command (hi/lo carry the packet
// index, address/packet_size).
func (c *ControllerA) ReadPacket(address uint32, length int) ([]byte, error) {
	index := address / uint32(c.layout.PacketSize)
	req := c.codec.Build([]byte{familyAReadCmd, byte(index >> 8), byte(index), 0x00})
	return c.xfer.Transfer("READ", req, length+2, length, c.codec, familyAHeaderNormal)
}

// Quit sends the session-close command. The response is a single bare
// byte with no length field or checksum, so it bypasses the generic
// codec.Verify path entirely.
func (c *ControllerA) Quit() error {
	req := c.codec.Build([]byte{familyAQuitCmd, 0x05, familyAHeaderHandshake, 0x00})
	if _, err := c.xfer.WriteAndDrain(req); err != nil {
		return err
	}
	_, err := c.xfer.ReadExact(1)
	return err
}

// ControllerB issues Family B requests.
type ControllerB struct {
	xfer  *transfer.Transfer
	codec framing.F2Codec
}

// NewControllerB builds a ControllerB over an already-configured Transfer.
func NewControllerB(xfer *transfer.Transfer) *ControllerB {
	return &ControllerB{xfer: xfer}
}

// Version reads the device's 4-byte version string.
func (c *ControllerB) Version() ([]byte, error) {
	req := c.codec.Build(familyBVersionCmd, nil)
	return c.xfer.Transfer("VERSION", req, 3+4+1, 4, c.codec, familyBHeaderRead)
}

// ReadPacket reads length bytes at address. The response echoes
// addr_hi, addr_lo, count ahead of the data; the 3-byte echo is
// stripped before returning to the caller.
func (c *ControllerB) ReadPacket(address uint32, length int) ([]byte, error) {
	body := []byte{byte(address >> 8), byte(address), byte(length)}
	req := c.codec.Build(familyBReadCmd, body)

	respPayloadLen := 3 + length
	resp, err := c.xfer.Transfer("READ", req, 3+respPayloadLen+1, respPayloadLen, c.codec, familyBHeaderRead)
	if err != nil {
		return nil, err
	}
	return resp[3:], nil
}

// WritePacket writes data at address.
func (c *ControllerB) WritePacket(address uint32, data []byte) error {
	count := len(data)
	body := make([]byte, 0, 3+count)
	body = append(body, byte(address>>8), byte(address), byte(count))
	body = append(body, data...)
	req := c.codec.Build(familyBWriteCmd, body)

	_, err := c.xfer.Transfer("WRITE", req, 3+0+1, 0, c.codec, familyBHeaderWrite)
	return err
}
