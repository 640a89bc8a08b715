package simulator

import (
	"testing"

	"github.com/divebridge/divecore/internal/framing"
	"github.com/divebridge/divecore/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchange(t *testing.T, d *Device, req []byte, respLen int) []byte {
	t.Helper()
	_, err := d.Write(req)
	require.NoError(t, err)
	buf := make([]byte, respLen)
	n, err := d.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestDeviceFamilyAHandshake(t *testing.T) {
	l := layout.FamilyALayout
	d := NewFamilyA(l)

	var codec framing.F1Codec
	req := codec.Build([]byte{familyAHandshakeCmd, 0x99, 0x00})
	resp := exchange(t, d, req, 3)

	payload, err := codec.Verify(resp, 1, familyAHeaderHandshake)
	require.NoError(t, err)
	assert.Equal(t, []byte{familyAHeaderHandshake}, payload)
}

func TestDeviceFamilyAReadPacket(t *testing.T) {
	l := layout.FamilyALayout
	d := NewFamilyA(l)

	want := make([]byte, 32)
	copy(want, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	d.LoadImage(0, want)

	var codec framing.F1Codec
	req := codec.Build([]byte{familyAReadCmd, 0x00, 0x00, 0x00})
	resp := exchange(t, d, req, 34)

	payload, err := codec.Verify(resp, 32, familyAHeaderNormal)
	require.NoError(t, err)
	assert.Equal(t, want, payload)
}

func TestDeviceFamilyAQuit(t *testing.T) {
	l := layout.FamilyALayout
	d := NewFamilyA(l)

	var codec framing.F1Codec
	req := codec.Build([]byte{familyAQuitCmd, 0x05, familyAHeaderHandshake, 0x00})
	resp := exchange(t, d, req, 1)
	assert.Equal(t, []byte{familyAHeaderHandshake}, resp)
}

func TestDeviceFamilyBVersion(t *testing.T) {
	l := layout.FamilyBLayout
	d := NewFamilyB(l)

	var codec framing.F2Codec
	req := codec.Build(familyBVersionCmd, nil)
	resp := exchange(t, d, req, 3+4+1)

	payload, err := codec.Verify(resp, 4, familyBReadCmd)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, payload)
}

func TestDeviceFamilyBWriteThenRead(t *testing.T) {
	l := layout.FamilyBLayout
	d := NewFamilyB(l)

	var codec framing.F2Codec
	data := []byte{1, 2, 3, 4, 5}

	writeBody := append([]byte{0x00, 0x10, byte(len(data))}, data...)
	writeReq := codec.Build(familyBWriteCmd, writeBody)
	writeResp := exchange(t, d, writeReq, 3+0+1)
	_, err := codec.Verify(writeResp, 0, familyBWriteCmd)
	require.NoError(t, err)

	readBody := []byte{0x00, 0x10, byte(len(data))}
	readReq := codec.Build(familyBReadCmd, readBody)
	readResp := exchange(t, d, readReq, 3+3+len(data)+1)

	payload, err := codec.Verify(readResp, 3+len(data), familyBReadCmd)
	require.NoError(t, err)
	assert.Equal(t, data, payload[3:])
}

func TestDeviceCloseMarksClosed(t *testing.T) {
	l := layout.FamilyALayout
	d := NewFamilyA(l)
	require.NoError(t, d.Close())
	assert.True(t, d.closed)
}
