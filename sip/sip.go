// Package sip decodes and encodes the Apple MIDI Network Driver's
// session-control messages: invitation, acceptance, rejection, end,
// and clock synchronization. These share a common envelope (the 0xffff
// signature followed by a two-character command code) distinct from
// the RTP-MIDI data packets the rtpmidi package handles; netsession
// tells the two apart by socket, decoding everything that arrives on
// its control port with this package and everything on its data port
// with rtpmidi.
//
// see https://developer.apple.com/library/archive/documentation/Audio/Conceptual/MIDINetworkDriverProtocol/MIDI/MIDI.html
package sip

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// signature marks every Apple MIDI control packet.
const signature uint16 = 0xffff

// Cmd identifies a control message's two-character command code.
type Cmd uint16

const (
	Invitation         Cmd = 0x494e // "IN"
	InvitationAccepted Cmd = 0x4f4b // "OK"
	InvitationRejected Cmd = 0x4e4f // "NO"
	End                Cmd = 0x4259 // "BY"
	Sync               Cmd = 0x434b // "CK"
	ReceiverFeedback   Cmd = 0x5253 // "RS"
)

func (c Cmd) String() string {
	return string([]byte{byte(c >> 8), byte(c)})
}

const protocolVersion uint32 = 2

// ControlMessage is a decoded Apple MIDI session-control packet.
// Not every field is meaningful for every Cmd: Name is set from any
// bytes trailing a non-Sync message's fixed header, and Sync carries
// its three timestamps in SyncTimestamps instead of Name.
type ControlMessage struct {
	Cmd            Cmd
	Version        uint32
	Token          uint32
	SSRC           uint32
	Name           string
	SyncCount      uint8
	SyncTimestamps [3]uint64
}

func (m ControlMessage) String() string {
	if m.Name != "" {
		return fmt.Sprintf("%s SSRC=%#x name=%q", m.Cmd, m.SSRC, m.Name)
	}
	return fmt.Sprintf("%s SSRC=%#x", m.Cmd, m.SSRC)
}

// Decode parses a control packet. It verifies the 0xffff signature and
// rejects buffers that lack it.
func Decode(buffer []byte) (ControlMessage, error) {
	if len(buffer) < 4 {
		return ControlMessage{}, fmt.Errorf("sip: buffer too small: %d bytes", len(buffer))
	}
	if binary.BigEndian.Uint16(buffer[0:2]) != signature {
		return ControlMessage{}, fmt.Errorf("sip: missing 0xffff signature")
	}
	cmd := Cmd(binary.BigEndian.Uint16(buffer[2:4]))

	if cmd == Sync {
		return decodeSync(buffer)
	}
	return decodeInvitationLike(cmd, buffer)
}

func decodeInvitationLike(cmd Cmd, buffer []byte) (ControlMessage, error) {
	const head = 4 + 4 + 4 + 4 // signature+cmd, version, token, ssrc
	if len(buffer) < head {
		return ControlMessage{}, fmt.Errorf("sip: %s buffer too small: %d bytes", cmd, len(buffer))
	}
	msg := ControlMessage{
		Cmd:     cmd,
		Version: binary.BigEndian.Uint32(buffer[4:8]),
		Token:   binary.BigEndian.Uint32(buffer[8:12]),
		SSRC:    binary.BigEndian.Uint32(buffer[12:16]),
	}
	if len(buffer) > head {
		if i := bytes.IndexByte(buffer[head:], 0); i >= 0 {
			msg.Name = string(buffer[head : head+i])
		} else {
			msg.Name = string(buffer[head:])
		}
	}
	return msg, nil
}

func decodeSync(buffer []byte) (ControlMessage, error) {
	const want = 4 + 4 + 1 + 3 + 8*3
	if len(buffer) < want {
		return ControlMessage{}, fmt.Errorf("sip: sync buffer too small: %d bytes", len(buffer))
	}
	msg := ControlMessage{
		Cmd:       Sync,
		SSRC:      binary.BigEndian.Uint32(buffer[4:8]),
		SyncCount: buffer[8],
	}
	offset := 12
	for i := 0; i < 3; i++ {
		msg.SyncTimestamps[i] = binary.BigEndian.Uint64(buffer[offset : offset+8])
		offset += 8
	}
	return msg, nil
}

// EncodeInvitation builds an Invitation, InvitationAccepted,
// InvitationRejected, or End packet. name is included only for
// Invitation and InvitationAccepted.
func EncodeInvitation(cmd Cmd, token, ssrc uint32, name string) []byte {
	b := new(bytes.Buffer)
	binary.Write(b, binary.BigEndian, signature)
	binary.Write(b, binary.BigEndian, uint16(cmd))
	binary.Write(b, binary.BigEndian, protocolVersion)
	binary.Write(b, binary.BigEndian, token)
	binary.Write(b, binary.BigEndian, ssrc)
	if name != "" {
		b.WriteString(name)
		b.WriteByte(0)
	}
	return b.Bytes()
}

// EncodeSync builds a clock-synchronization packet carrying count and
// the three timestamps exchanged during the three-way sync handshake.
func EncodeSync(ssrc uint32, count uint8, timestamps [3]uint64) []byte {
	b := new(bytes.Buffer)
	binary.Write(b, binary.BigEndian, signature)
	binary.Write(b, binary.BigEndian, uint16(Sync))
	binary.Write(b, binary.BigEndian, ssrc)
	b.WriteByte(count)
	b.Write([]byte{0, 0, 0})
	for _, ts := range timestamps {
		binary.Write(b, binary.BigEndian, ts)
	}
	return b.Bytes()
}
