// Package wire translates between raw MIDI status/data bytes, as they
// travel inside an RTP-MIDI command section, and the canonical ev.Ev
// wire events the sequencer core packs and unpacks. It is the single place that
// knows how many data bytes follow a given status nibble and how
// those bytes map onto an Ev's V0/V1 fields, mirroring the rtp
// package's commandsInfos table.
package wire

import (
	"fmt"

	"github.com/laenzlinger/go-midi-rtp/ev"
)

// status nibbles, matching the high nibble of a MIDI channel voice
// status byte.
const (
	noteOff         byte = 0x80
	noteOn          byte = 0x90
	polyAftertouch  byte = 0xa0
	controlChange   byte = 0xb0
	programChange   byte = 0xc0
	chanAftertouch  byte = 0xd0
	pitchBend       byte = 0xe0
	systemStatus    byte = 0xf0
	statusBit       byte = 0x80
	channelMask     byte = 0x0f
	statusNibbleOff byte = 0xf0
)

type commandInfo struct {
	dataLength int
	cmd        ev.Cmd
}

// commandsInfos mirrors the rtp package's midi.commandsInfos table:
// one entry per status nibble, giving the number of data bytes that
// follow and the wire command it decodes to. System common and
// realtime messages (0xf0-0xff) carry no channel and are rejected by
// Decode/Encode; the core has no representation for them.
var commandsInfos = map[byte]commandInfo{
	noteOff:        {dataLength: 2, cmd: ev.NOFF},
	noteOn:         {dataLength: 2, cmd: ev.NON},
	polyAftertouch: {dataLength: 2, cmd: ev.KAT},
	controlChange:  {dataLength: 2, cmd: ev.CTL},
	programChange:  {dataLength: 1, cmd: ev.PC},
	chanAftertouch: {dataLength: 1, cmd: ev.CAT},
	pitchBend:      {dataLength: 2, cmd: ev.BEND},
}

var cmdToStatus = func() map[ev.Cmd]byte {
	m := make(map[ev.Cmd]byte, len(commandsInfos))
	for status, info := range commandsInfos {
		m[info.cmd] = status
	}
	return m
}()

// DataLength returns the number of data bytes following status, or -1
// if status is not a recognized channel voice message (system common,
// realtime, or an unknown nibble).
func DataLength(status byte) int {
	info, ok := commandsInfos[status&statusNibbleOff]
	if !ok {
		return -1
	}
	return info.dataLength
}

// Decode turns a status byte plus its data bytes into a wire-stage Ev
// (still in NON/NOFF/CTL/PC/CAT/BEND/KAT form; callers run it through
// conv.Pack for the context-free view). dev
// identifies which MIDI device/port the bytes arrived on, since Ev
// carries no notion of a wire connection.
func Decode(dev uint8, status byte, data []byte) (ev.Ev, error) {
	if status&statusBit == 0 {
		return ev.Ev{}, fmt.Errorf("wire: byte %#x is not a status byte", status)
	}
	nibble := status & statusNibbleOff
	info, ok := commandsInfos[nibble]
	if !ok {
		return ev.Ev{}, fmt.Errorf("wire: status %#x is not a channel voice message", status)
	}
	if len(data) < info.dataLength {
		return ev.Ev{}, fmt.Errorf("wire: status %#x needs %d data bytes, got %d", status, info.dataLength, len(data))
	}
	ch := status & channelMask
	e := ev.Ev{Cmd: info.cmd, Dev: dev, Ch: ch}
	switch {
	case info.cmd == ev.BEND:
		// pitch bend packs a single 14-bit value as LSB, MSB.
		e.V0 = uint(data[0]) | uint(data[1])<<7
	case info.dataLength == 1:
		e.V0 = uint(data[0])
	case info.dataLength == 2:
		e.V0 = uint(data[0])
		e.V1 = uint(data[1])
	}
	return e, nil
}

// Encode turns a wire-stage Ev back into a status byte and its data
// bytes, the inverse of Decode.
func Encode(e ev.Ev) (status byte, data []byte, err error) {
	nibble, ok := cmdToStatus[e.Cmd]
	if !ok {
		return 0, nil, fmt.Errorf("wire: %v has no wire representation", e.Cmd)
	}
	status = nibble | (byte(e.Ch) & channelMask)
	switch {
	case e.Cmd == ev.BEND:
		data = []byte{byte(e.V0 & 0x7f), byte((e.V0 >> 7) & 0x7f)}
	case commandsInfos[nibble].dataLength == 1:
		data = []byte{byte(e.V0)}
	case commandsInfos[nibble].dataLength == 2:
		data = []byte{byte(e.V0), byte(e.V1)}
	}
	return status, data, nil
}
