// Package rtpmidi implements the RTP-MIDI packet format: the fixed
// RTP header, the MIDI command list header (B/J/Z/P/LEN), and the
// list of delta-time-prefixed MIDI commands it carries. Reworked to
// exchange []ev.Ev instead of raw byte payloads so a Message is
// something netsession can feed straight into conv.Unpack/conv.Pack.
//
// see https://en.wikipedia.org/wiki/RTP-MIDI
// see https://developer.apple.com/library/archive/documentation/Audio/Conceptual/MIDINetworkDriverProtocol/MIDI/MIDI.html
// see https://tools.ietf.org/html/rfc6295
package rtpmidi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/timestamp"
	"github.com/laenzlinger/go-midi-rtp/wire"
)

// Generic RTP constants
const (
	version2Bit  = 0x80
	extensionBit = 0x10
	paddingBit   = 0x20
	markerBit    = 0x80
	ccMask       = 0x0f
	ptMask       = 0x7f
)

const (
	minimumBufferLength = 12
	padding             = 0x00
	extension           = 0x00
	ccBits              = 0x00
	firstByte           = version2Bit | padding | extension | ccBits
	marker              = markerBit
	payloadType         = 0x61
	secondByte          = payloadType
)

// MIDI list header bits.
const (
	emptyHeader  = byte(0x00)
	bigHeaderBit = 0x80 // B: big header, 2 octets
	journalBit   = 0x40 // J: journal present
	zeroDeltaBit = 0x20 // Z: delta time present for first command
	lenMask      = 0x0f
)

const (
	deltaTimeMask    = 0x7f
	deltaTimeHasNext = 0x80
)

// Header is the fixed 12-byte RTP header fields relevant to RTP-MIDI;
// CSRC identifiers and header extensions never appear in Apple MIDI
// Network Driver traffic and are not represented.
type Header struct {
	Version        uint8
	Padding        bool
	Extension      bool
	CSRCCount      uint8
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	SSRC           uint32
}

func (h Header) Valid() error {
	if h.PayloadType != payloadType {
		return fmt.Errorf("rtpmidi: payload type mismatch: expected %#x, got %#x", payloadType, h.PayloadType)
	}
	return nil
}

// Command is a single decoded MIDI command: the time since the
// previous command in the same Message (or since the message's own
// timestamp, for the first command), and the wire event it carries.
type Command struct {
	DeltaTime time.Duration
	Ev        ev.Ev
}

// Message is one RTP-MIDI packet: a sequence number, the sending
// SSRC, and the list of timed commands it carries.
type Message struct {
	SequenceNumber uint16
	SSRC           uint32
	Timestamp      time.Time
	Commands       []Command
}

func (m Message) String() string {
	return fmt.Sprintf("rtpmidi SSRC=%#x sn=%d commands=%d", m.SSRC, m.SequenceNumber, len(m.Commands))
}

// Decode parses an RTP-MIDI packet. dev is stamped onto every decoded
// event (see wire.Decode); recvTime is the time of interest for
// callers measuring network latency. Commands the wire package can't
// map onto an ev.Ev (system common/realtime, sysex) are
// skipped rather than failing the whole packet.
func Decode(buffer []byte, dev uint8, recvTime time.Time) (Message, error) {
	if len(buffer) < minimumBufferLength {
		return Message{}, fmt.Errorf("rtpmidi: buffer is too small: %d bytes", len(buffer))
	}

	header := Header{
		Version:     (buffer[0] & version2Bit) >> 6,
		Padding:     buffer[0]&paddingBit > 0,
		Extension:   buffer[0]&extensionBit > 0,
		CSRCCount:   buffer[0] & ccMask,
		PayloadType: buffer[1] & ptMask,
		Marker:      (buffer[1] & markerBit) > 0,
	}
	header.SequenceNumber = binary.BigEndian.Uint16(buffer[2:4])
	header.SSRC = binary.BigEndian.Uint32(buffer[8:12])

	if err := header.Valid(); err != nil {
		return Message{}, err
	}

	offset := 12
	listHeader := buffer[offset]
	big := listHeader&bigHeaderBit > 0
	var length int
	listStart := offset + 1
	if big {
		length = int(binary.BigEndian.Uint16(buffer[offset:offset+2]) & 0x0fff)
		listStart = offset + 2
	} else {
		length = int(listHeader & lenMask)
	}

	hasLeadingDelta := listHeader&zeroDeltaBit > 0
	commands, err := parseCommandList(buffer, listStart, length, hasLeadingDelta, dev)

	msg := Message{
		SequenceNumber: header.SequenceNumber,
		SSRC:           header.SSRC,
		Timestamp:      recvTime,
		Commands:       commands,
	}
	return msg, err
}

func parseCommandList(buffer []byte, offset, length int, hasLeadingDelta bool, dev uint8) ([]Command, error) {
	commands := make([]Command, 0)
	var lastStatus byte

	end := offset + length
	for offset < end {
		deltaTicks := uint32(0)
		if len(commands) > 0 || hasLeadingDelta {
			for k := 0; k < 4; k++ {
				if offset >= len(buffer) {
					return commands, fmt.Errorf("rtpmidi: truncated delta time")
				}
				octet := buffer[offset]
				deltaTicks <<= 7
				deltaTicks |= uint32(octet) & deltaTimeMask
				offset++
				if octet&deltaTimeHasNext == 0 {
					break
				}
			}
		}

		if offset >= len(buffer) {
			return commands, fmt.Errorf("rtpmidi: truncated command")
		}
		status := buffer[offset]
		if status&0x80 == 0x80 {
			lastStatus = status
			offset++
		} else {
			status = lastStatus
		}

		if status == 0xf0 {
			// Sysex: skip to the terminating 0xf7, events outside the
			// voice-message set have no canonical representation.
			for offset < len(buffer) && buffer[offset] != 0xf7 {
				offset++
			}
			if offset < len(buffer) {
				offset++
			}
			continue
		}

		dataLength := wire.DataLength(status)
		if dataLength < 0 {
			// Unrepresentable system common/realtime message: skip it
			// alone, no data bytes to consume.
			continue
		}
		if len(buffer) < offset+dataLength {
			return commands, fmt.Errorf("rtpmidi: not enough buffer for %d data bytes", dataLength)
		}
		data := buffer[offset : offset+dataLength]
		offset += dataLength

		decoded, err := wire.Decode(dev, status, data)
		if err != nil {
			continue
		}
		commands = append(commands, Command{
			DeltaTime: time.Duration(deltaTicks) * time.Second / timestamp.Rate,
			Ev:        decoded,
		})
	}
	return commands, nil
}

// Encode serializes msg into an RTP-MIDI packet. start is the
// session's epoch, used to compute the RTP timestamp field and each
// command's encoded delta time.
func Encode(msg Message, start time.Time) ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteByte(firstByte)
	b.WriteByte(secondByte)
	binary.Write(b, binary.BigEndian, msg.SequenceNumber)
	ts := timestamp.Of(msg.Timestamp, start).Uint32()
	binary.Write(b, binary.BigEndian, ts)
	binary.Write(b, binary.BigEndian, msg.SSRC)

	payload := new(bytes.Buffer)
	for i, cmd := range msg.Commands {
		if i == 0 && cmd.DeltaTime == 0 {
			// no leading delta time: Z bit stays clear
		} else {
			timestamp.EncodeDeltaTime(msg.Timestamp, start, cmd.DeltaTime, payload)
		}
		status, data, err := wire.Encode(cmd.Ev)
		if err != nil {
			return nil, err
		}
		payload.WriteByte(status)
		payload.Write(data)
	}

	header := emptyHeader
	if len(msg.Commands) > 0 && msg.Commands[0].DeltaTime > 0 {
		header |= zeroDeltaBit
	}
	if payload.Len() > 15 {
		header |= bigHeaderBit | (byte(payload.Len()>>8) & lenMask)
		b.WriteByte(header)
		b.WriteByte(byte(payload.Len()))
	} else {
		header |= byte(payload.Len()) & lenMask
		b.WriteByte(header)
	}
	b.Write(payload.Bytes())

	return b.Bytes(), nil
}
