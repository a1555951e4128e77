// Package seqptr implements a tick-granular cursor over a track.Track,
// corresponding to struct seqptr in the original sources (frame.h
// declares seqptr_init/_eot/_evget/_evput/_ticskip/_ticdel/_ticput/
// _skip/_seek; frame.c, which defines them, is not part of the
// retrieved sources, so the bodies below are written from the declared
// contract and the delta-list invariants in track.c).
//
// A SeqPtr never owns node allocation directly: every node insertion
// goes through the owning *track.Track so the free-list pool and
// sentinel bookkeeping stay centralized in one place. TicDelete and
// TicPut only adjust the Delta of the node the cursor is walking toward.
package seqptr

import (
	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/track"
)

// SeqPtr is a cursor into a track: pos is the node the cursor is
// walking toward, and delta counts how many of pos's Delta ticks have
// already been consumed. The invariant delta <= pos.Delta always holds;
// delta == pos.Delta means the cursor sits exactly on pos.
type SeqPtr struct {
	Track *track.Track
	pos   *track.SeqEv
	delta uint
}

// New returns a cursor positioned at the very start of t.
func New(t *track.Track) *SeqPtr {
	return &SeqPtr{Track: t, pos: t.First(), delta: 0}
}

// Pos exposes the node the cursor is currently walking toward, mainly
// for tests and frame-package introspection.
func (sp *SeqPtr) Pos() *track.SeqEv { return sp.pos }

// Eot reports whether the cursor has reached the end of the track: no
// more real events remain and no gap ticks remain before the sentinel.
func (sp *SeqPtr) Eot() bool {
	return sp.pos == sp.Track.Eot() && sp.delta == sp.pos.Delta
}

// EvGet returns the event the cursor currently sits on, without moving
// it. ok is false when the cursor is still inside a gap (delta <
// pos.Delta) or has reached end-of-track.
func (sp *SeqPtr) EvGet() (e ev.Ev, ok bool) {
	if sp.delta != sp.pos.Delta || !sp.pos.Avail() {
		return ev.Ev{}, false
	}
	return sp.pos.Ev, true
}

// Advance steps the cursor past the event it currently sits on, landing
// at the start of the next gap. It is a no-op if the cursor is mid-gap
// or already at end-of-track.
func (sp *SeqPtr) Advance() {
	if sp.delta == sp.pos.Delta && sp.pos.Avail() {
		sp.pos = sp.pos.Next()
		sp.delta = 0
	}
}

// EvPut inserts e at the cursor's current tick position, splitting the
// gap the cursor sits in, and leaves the cursor just past the new
// event. Mirrors seqptr_evput. Returns the freshly linked node.
func (sp *SeqPtr) EvPut(e ev.Ev) *track.SeqEv {
	se := sp.Track.InsertBefore(sp.pos, sp.delta, e)
	sp.pos = se.Next()
	sp.delta = 0
	return se
}

// TicSkip advances the cursor by up to max ticks without crossing an
// event boundary, returning the number of ticks actually consumed (0 if
// the cursor already sits on an event or at end-of-track). Mirrors
// seqptr_ticskip.
func (sp *SeqPtr) TicSkip(max uint) uint {
	remaining := sp.pos.Delta - sp.delta
	n := max
	if n > remaining {
		n = remaining
	}
	sp.delta += n
	return n
}

// TicDelete removes up to max ticks of silence immediately ahead of the
// cursor, shrinking the current gap without touching any event, and
// returns the number of ticks actually removed. Mirrors seqptr_ticdel.
func (sp *SeqPtr) TicDelete(max uint) uint {
	remaining := sp.pos.Delta - sp.delta
	n := max
	if n > remaining {
		n = remaining
	}
	sp.pos.Delta -= n
	return n
}

// TicPut inserts ntics of silence immediately ahead of the cursor,
// growing the current gap. Mirrors seqptr_ticput.
func (sp *SeqPtr) TicPut(ntics uint) {
	sp.pos.Delta += ntics
}

// Skip advances the cursor by exactly ntics ticks, stepping over as
// many events as needed without reading them, and returns the number of
// ticks actually advanced (less than ntics only if the track runs out
// first). Mirrors seqptr_skip.
func (sp *SeqPtr) Skip(ntics uint) uint {
	var moved uint
	for moved < ntics {
		n := sp.TicSkip(ntics - moved)
		moved += n
		if moved >= ntics {
			break
		}
		if sp.pos == sp.Track.Eot() {
			break
		}
		sp.Advance()
	}
	return moved
}

// Seek repositions the cursor to the start of the track and walks
// forward exactly ntics ticks. If the track is shorter than ntics, it
// is extended with trailing silence so the cursor always lands exactly
// at tick offset ntics. Mirrors seqptr_seek.
func (sp *SeqPtr) Seek(ntics uint) {
	sp.pos = sp.Track.First()
	sp.delta = 0
	moved := sp.Skip(ntics)
	if moved < ntics {
		short := ntics - moved
		sp.TicPut(short)
		sp.delta += short
	}
}
