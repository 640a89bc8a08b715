package framing

import "fmt"

// Codec builds a request frame and validates a response frame for one
// checksum variant. Both implementations are stateless.
type Codec interface {
	// Verify checks a response frame's header, length, and checksum,
	// returning the payload on success. headers lists the response
	// header bytes the caller will accept for this exchange (e.g. a
	// handshake accepts 0xA5 where a normal read only accepts 0x5A).
	Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error)
}

func containsByte(haystack []byte, b byte) bool {
	for _, h := range haystack {
		if h == b {
			return true
		}
	}
	return false
}

// F1Codec implements the additive-checksum, single-byte-length-implicit
// variant: request = [cmd_bytes...]; response = [header, payload..., crc]
// with crc = sum(payload) mod 256.
type F1Codec struct{}

// Build passes the caller-assembled command bytes through unchanged;
// Family A requests carry no checksum of their own.
func (F1Codec) Build(cmd []byte) []byte {
	out := make([]byte, len(cmd))
	copy(out, cmd)
	return out
}

func (F1Codec) Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error) {
	want := payloadLen + 2
	if len(resp) != want {
		return nil, fmt.Errorf("framing: response length %d, want %d", len(resp), want)
	}
	if !containsByte(headers, resp[0]) {
		return nil, fmt.Errorf("framing: unexpected header byte 0x%02x", resp[0])
	}
	payload := resp[1 : 1+payloadLen]
	crc := ChecksumSum(payload, 0)
	if crc != resp[len(resp)-1] {
		return nil, fmt.Errorf("framing: checksum mismatch (got 0x%02x, want 0x%02x)", resp[len(resp)-1], crc)
	}
	return payload, nil
}

// F2Codec implements the XOR, length-prefixed variant: request =
// [cmd, 0x00, plen, body..., xor(bytes[0..len-1])]; response =
// [header, 0x00, plen, payload..., xor].
type F2Codec struct{}

// Build assembles cmd, a fixed reserved zero byte, a single-byte body
// length, body, and a trailing XOR checksum over everything preceding
// it. This is general enough to produce the version/read/write
// requests in the wire protocol: the command byte and body are the
// only things that vary.
func (F2Codec) Build(cmd byte, body []byte) []byte {
	frame := make([]byte, 3, 3+len(body)+1)
	frame[0] = cmd
	frame[1] = 0x00
	frame[2] = byte(len(body))
	frame = append(frame, body...)
	frame = append(frame, ChecksumXOR(frame))
	return frame
}

func (F2Codec) Verify(resp []byte, payloadLen int, headers ...byte) ([]byte, error) {
	want := 3 + payloadLen + 1
	if len(resp) != want {
		return nil, fmt.Errorf("framing: response length %d, want %d", len(resp), want)
	}
	if !containsByte(headers, resp[0]) {
		return nil, fmt.Errorf("framing: unexpected header byte 0x%02x", resp[0])
	}
	if resp[1] != 0x00 {
		return nil, fmt.Errorf("framing: reserved byte 0x%02x, want 0x00", resp[1])
	}
	plen := int(resp[2])
	if plen != payloadLen {
		return nil, fmt.Errorf("framing: length prefix %d, want %d", plen, payloadLen)
	}
	body := resp[:3+payloadLen]
	x := ChecksumXOR(body)
	if x != resp[len(resp)-1] {
		return nil, fmt.Errorf("framing: checksum mismatch (got 0x%02x, want 0x%02x)", resp[len(resp)-1], x)
	}
	return resp[3 : 3+payloadLen], nil
}
