package wire_test

import (
	"testing"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/wire"
	"github.com/stretchr/testify/assert"
)

func TestDecodeNoteOn(t *testing.T) {
	e, err := wire.Decode(0, 0x91, []byte{60, 100})
	assert.NoError(t, err)
	assert.Equal(t, ev.Ev{Cmd: ev.NON, Dev: 0, Ch: 1, V0: 60, V1: 100}, e)
}

func TestDecodeProgramChangeSingleByte(t *testing.T) {
	e, err := wire.Decode(2, 0xc3, []byte{41})
	assert.NoError(t, err)
	assert.Equal(t, ev.Ev{Cmd: ev.PC, Dev: 2, Ch: 3, V0: 41}, e)
}

func TestDecodeBendCombinesTwoBytesInto14Bit(t *testing.T) {
	e, err := wire.Decode(0, 0xe0, []byte{0x7f, 0x3f})
	assert.NoError(t, err)
	assert.Equal(t, uint(0x3f<<7|0x7f), e.V0)
}

func TestDecodeRejectsNonStatusByte(t *testing.T) {
	_, err := wire.Decode(0, 0x40, []byte{1, 2})
	assert.Error(t, err)
}

func TestDecodeRejectsSystemMessage(t *testing.T) {
	_, err := wire.Decode(0, 0xf8, nil)
	assert.Error(t, err)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := wire.Decode(0, 0x90, []byte{60})
	assert.Error(t, err)
}

func TestEncodeRoundTripsWithDecode(t *testing.T) {
	original := ev.Ev{Cmd: ev.CTL, Dev: 0, Ch: 5, V0: 7, V1: 64}
	status, data, err := wire.Encode(original)
	assert.NoError(t, err)

	decoded, err := wire.Decode(0, status, data)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeBendRoundTrips(t *testing.T) {
	original := ev.Ev{Cmd: ev.BEND, Ch: 0, V0: 0x1234}
	status, data, err := wire.Encode(original)
	assert.NoError(t, err)

	decoded, err := wire.Decode(0, status, data)
	assert.NoError(t, err)
	assert.Equal(t, original.V0, decoded.V0)
}

func TestEncodeRejectsMetaCommands(t *testing.T) {
	_, _, err := wire.Encode(ev.Ev{Cmd: ev.TEMPO, V0: 500000})
	assert.Error(t, err)
}

func TestDataLengthKnownAndUnknown(t *testing.T) {
	assert.Equal(t, 2, wire.DataLength(0x90))
	assert.Equal(t, 1, wire.DataLength(0xc4))
	assert.Equal(t, -1, wire.DataLength(0xf8))
}
