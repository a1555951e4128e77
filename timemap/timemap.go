// Package timemap implements the tempo/time-signature meta track:
// tick<->measure translation and the tempo/timesig editing operations
// that keep a dedicated meta track.Track consistent.
//
// The meta track carries only ev.TEMPO and ev.TIMESIG events. Grounded
// on frame.h's declared contract (track_findmeasure/track_timeinfo/
// track_settempo/track_timeins/track_timerm/track_check), reusing the
// same flatten/rebuild machinery package frame already provides rather
// than re-deriving delta-list traversal here.
package timemap

import (
	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/frame"
	"github.com/laenzlinger/go-midi-rtp/seqerr"
	"github.com/laenzlinger/go-midi-rtp/track"
)

// Defaults in force before the meta track records its first TEMPO or
// TIMESIG event.
const (
	DefaultUsec24          = 20833 // ~120 BPM expressed as usec per 24th note
	DefaultBeatsPerMeasure = 4
	DefaultTicksPerBeat    = 24
)

// FindMeasure returns the absolute tick at which measure m0 begins,
// walking the meta track from its start and accumulating measure
// lengths from whatever time signatures are in force. Measure 0 always
// starts at tick 0.
func FindMeasure(meta *track.Track, m0 uint) uint {
	events := frame.Flatten(meta)
	tick := uint(0)
	beats, tics := uint(DefaultBeatsPerMeasure), uint(DefaultTicksPerBeat)
	idx := 0

	for measure := uint(0); measure < m0; measure++ {
		for idx < len(events) && events[idx].Tick == tick {
			if events[idx].Ev.Cmd == ev.TIMESIG {
				beats = events[idx].Ev.TimesigBeats()
				tics = events[idx].Ev.TimesigTics()
			}
			idx++
		}
		tick += beats * tics
	}
	return tick
}

// TimeInfo returns the tempo (microseconds per 24th note) and meter
// (beats per measure, ticks per beat) in force at tick.
func TimeInfo(meta *track.Track, tick uint) (usec24, beatsPerMeasure, ticksPerBeat uint) {
	usec24 = DefaultUsec24
	beatsPerMeasure = DefaultBeatsPerMeasure
	ticksPerBeat = DefaultTicksPerBeat
	for _, te := range frame.Flatten(meta) {
		if te.Tick > tick {
			break
		}
		switch te.Ev.Cmd {
		case ev.TEMPO:
			usec24 = te.Ev.TempoUsec24()
		case ev.TIMESIG:
			beatsPerMeasure = te.Ev.TimesigBeats()
			ticksPerBeat = te.Ev.TimesigTics()
		}
	}
	return
}

// SetTempo installs a tempo change at the start of measure, replacing
// any tempo event already recorded exactly there.
func SetTempo(meta *track.Track, measure, tempo uint) {
	tick := FindMeasure(meta, measure)
	events := removeAt(frame.Flatten(meta), tick, ev.TEMPO)
	events = append(events, frame.TimedEv{Tick: tick, Ev: ev.Ev{Cmd: ev.TEMPO, V0: tempo}})
	frame.Rebuild(meta, events, meta.NumTic())
}

// TimeIns inserts amount measures of (beatsPerMeasure, ticksPerBeat)
// meter at the start of measure, lengthening the meta track (and, by
// the caller's convention, every track sharing its timebase) and
// recording the new meter with a TIMESIG event. Rejected with a
// Semantic error if amount is zero (callers must seek to a measure
// boundary, which FindMeasure already guarantees here).
func TimeIns(meta *track.Track, measure, amount, beatsPerMeasure, ticksPerBeat uint) error {
	if amount == 0 {
		return seqerr.NewSemantic("TimeIns", "amount must be > 0")
	}
	tick := FindMeasure(meta, measure)
	length := amount * beatsPerMeasure * ticksPerBeat
	frame.Insert(meta, tick, length)

	events := removeAt(frame.Flatten(meta), tick, ev.TIMESIG)
	events = append(events, frame.TimedEv{
		Tick: tick,
		Ev:   ev.Ev{Cmd: ev.TIMESIG, V0: beatsPerMeasure, V1: ticksPerBeat},
	})
	frame.Rebuild(meta, events, meta.NumTic())
	Check(meta)
	return nil
}

// TimeRm removes amount measures starting at measure: the span is cut
// out of the meta track with frame.Cut, which drops every TEMPO/TIMESIG
// event inside it, and a Check pass then drops any event the removal
// left redundant. A meter or tempo change that was inside the span is
// not carried over to the measures that follow it.
func TimeRm(meta *track.Track, measure, amount uint) error {
	if amount == 0 {
		return seqerr.NewSemantic("TimeRm", "amount must be > 0")
	}
	start := FindMeasure(meta, measure)
	end := FindMeasure(meta, measure+amount)
	if end < start {
		seqerr.Invariant("TimeRm", "measure %d precedes measure %d", measure+amount, measure)
	}
	frame.Cut(meta, nil, start, end-start)
	Check(meta)
	return nil
}

// Check performs a consistency pass over the meta track, dropping any
// TEMPO or TIMESIG event that is a no-op given the value already in
// force immediately before it (e.g. left behind by a TimeRm that cut
// through the middle of a steady run of identical meter changes).
func Check(meta *track.Track) {
	events := frame.Flatten(meta)
	usec24 := uint(DefaultUsec24)
	beats, tics := uint(DefaultBeatsPerMeasure), uint(DefaultTicksPerBeat)

	kept := events[:0]
	for _, te := range events {
		switch te.Ev.Cmd {
		case ev.TEMPO:
			if te.Ev.TempoUsec24() == usec24 {
				continue
			}
			usec24 = te.Ev.TempoUsec24()
		case ev.TIMESIG:
			if te.Ev.TimesigBeats() == beats && te.Ev.TimesigTics() == tics {
				continue
			}
			beats, tics = te.Ev.TimesigBeats(), te.Ev.TimesigTics()
		}
		kept = append(kept, te)
	}
	frame.Rebuild(meta, kept, meta.NumTic())
}

func removeAt(events []frame.TimedEv, tick uint, cmd ev.Cmd) []frame.TimedEv {
	out := events[:0]
	for _, te := range events {
		if te.Tick == tick && te.Ev.Cmd == cmd {
			continue
		}
		out = append(out, te)
	}
	return out
}
