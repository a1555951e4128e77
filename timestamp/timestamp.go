// Package timestamp converts between wall-clock time.Time values and
// the RTP timestamp field carried in an RTP-MIDI packet: a 32-bit
// counter that increments at a fixed rate from an arbitrary session
// epoch (RFC 6295 uses a 100us tick; this is also what the Apple MIDI
// Network Driver expects).
package timestamp

import (
	"bytes"
	"time"
)

// Rate is the number of timestamp ticks per second.
const Rate = 10000

// Timestamp is an RTP timestamp: ticks of 1/Rate seconds since a
// session's start time, truncated to 32 bits by Uint32.
type Timestamp uint64

// Of returns the timestamp for t relative to the session's start
// time. A t before start yields 0 rather than wrapping negative.
func Of(t time.Time, start time.Time) Timestamp {
	d := t.Sub(start)
	if d < 0 {
		return 0
	}
	return Timestamp(d * Rate / time.Second)
}

// Uint32 truncates the timestamp to the 32-bit field an RTP header
// carries.
func (ts Timestamp) Uint32() uint32 {
	return uint32(ts)
}

// EncodeDeltaTime writes d, measured from commandTimestamp relative
// to start, as a variable-length RTP-MIDI delta time (1-4 octets, 7
// bits of value per octet, high bit set on every octet but the last).
//
// The teacher's rtp package calls this with the MIDI list's overall
// Timestamp and each command's own DeltaTime; the value encoded is
// the command's delta time itself; commandTimestamp is accepted for
// API symmetry with other command encoders but the encoding only
// depends on d.
func EncodeDeltaTime(commandTimestamp time.Time, start time.Time, d time.Duration, b *bytes.Buffer) {
	ticks := uint32(d * Rate / time.Second)
	var octets [4]byte
	n := 0
	octets[n] = byte(ticks & 0x7f)
	ticks >>= 7
	n++
	for ticks > 0 && n < 4 {
		octets[n] = byte(ticks&0x7f) | 0x80
		ticks >>= 7
		n++
	}
	for i := n - 1; i >= 0; i-- {
		b.WriteByte(octets[i])
	}
}
