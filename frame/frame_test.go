package frame_test

import (
	"testing"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/frame"
	"github.com/laenzlinger/go-midi-rtp/track"
	"github.com/stretchr/testify/assert"
)

func non(n, vel uint) ev.Ev { return ev.Ev{Cmd: ev.NON, V0: n, V1: vel} }
func noff(n, vel uint) ev.Ev { return ev.Ev{Cmd: ev.NOFF, V0: n, V1: vel} }

// Cutting [24,72) out of NON(60,100)@0, NOFF(60,64)@48 synthesizes a
// NOFF(60,100)@24 and shrinks the track by 48 ticks.
func TestCutSynthesizesCloseForStraddlingNote(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(60, 100))
	tr.Append(48, noff(60, 64))
	tr.Eot().Delta = 24 // total length 72

	frame.Cut(tr, nil, 24, 48)

	events := frame.Flatten(tr)
	assert.Len(t, events, 2)
	assert.Equal(t, uint(0), events[0].Tick)
	assert.Equal(t, non(60, 100), events[0].Ev)
	assert.Equal(t, uint(24), events[1].Tick)
	assert.Equal(t, noff(60, 100), events[1].Ev)
	assert.Equal(t, uint(24), tr.NumTic())
}

// After a cut across a straddling note frame, no NON appears without a
// matching later NOFF within the remaining track.
func TestCutPreservesFrameClosure(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(60, 100))
	tr.Append(48, noff(60, 64))
	tr.Eot().Delta = 24

	frame.Cut(tr, nil, 24, 48)

	events := frame.Flatten(tr)
	open := map[uint]bool{}
	for _, te := range events {
		switch te.Ev.Cmd {
		case ev.NON:
			open[te.Ev.V0] = true
		case ev.NOFF:
			delete(open, te.Ev.V0)
		}
	}
	assert.Empty(t, open, "every NON must be matched by a later NOFF")
}

// quantum=24, offset=0: tick 10 -> 0 and tick 13 -> 24 at rate 100.
func TestQuantizeFullRateSnapsToGrid(t *testing.T) {
	tr := track.New(nil)
	tr.Append(10, non(60, 100))
	tr.Append(3, non(61, 100)) // absolute tick 13
	tr.Eot().Delta = 50

	frame.Quantize(tr, 0, 100, 0, 24, 100)

	events := frame.Flatten(tr)
	assert.Equal(t, uint(0), events[0].Tick)
	assert.Equal(t, uint(24), events[1].Tick)
}

// Same grid at rate 50: tick 10 -> 5 and tick 13 -> 18, halfway to the
// full-rate target.
func TestQuantizeHalfRateMovesHalfway(t *testing.T) {
	tr := track.New(nil)
	tr.Append(10, non(60, 100))
	tr.Append(3, non(61, 100))
	tr.Eot().Delta = 50

	frame.Quantize(tr, 0, 100, 0, 24, 50)

	events := frame.Flatten(tr)
	assert.Equal(t, uint(5), events[0].Tick)
	assert.Equal(t, uint(18), events[1].Tick)
}

// Every event displaced by a full-rate quantize lands within quantum/2
// of its rounded target.
func TestQuantizeBound(t *testing.T) {
	tr := track.New(nil)
	ticks := []uint{1, 5, 11, 17, 23, 29}
	prev := uint(0)
	for _, tk := range ticks {
		tr.Append(tk-prev, non(60, 100))
		prev = tk
	}
	tr.Eot().Delta = 10

	frame.Quantize(tr, 0, 100, 0, 12, 100)

	events := frame.Flatten(tr)
	for i, te := range events {
		old := ticks[i]
		rounded := (old + 6) / 12 * 12
		var diff uint
		if te.Tick > rounded {
			diff = te.Tick - rounded
		} else {
			diff = rounded - te.Tick
		}
		assert.LessOrEqual(t, diff, uint(6))
	}
}

func TestTransposeClampsIntoRange(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(125, 100))
	tr.Eot().Delta = 10

	clipped := frame.Transpose(tr, 0, 10, 10)
	assert.Equal(t, 1, clipped)

	events := frame.Flatten(tr)
	assert.Equal(t, uint(127), events[0].Ev.V0)
}

func TestTransposeWithinRangeDoesNotClip(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(60, 100))
	tr.Eot().Delta = 10

	clipped := frame.Transpose(tr, 0, 10, 5)
	assert.Equal(t, 0, clipped)

	events := frame.Flatten(tr)
	assert.Equal(t, uint(65), events[0].Ev.V0)
}

func TestInsertShiftsLaterEvents(t *testing.T) {
	tr := track.New(nil)
	tr.Append(10, non(60, 100))
	tr.Eot().Delta = 10

	frame.Insert(tr, 5, 20)

	events := frame.Flatten(tr)
	assert.Equal(t, uint(30), events[0].Tick)
	assert.Equal(t, uint(40), tr.NumTic())
}

func TestFrameGetAndPutRoundTrip(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(60, 100))
	tr.Append(48, noff(60, 64))
	tr.Eot().Delta = 20

	fr, ok := frame.FrameGet(tr, nil, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, fr.NumEv())
	assert.Equal(t, 0, tr.NumEv())

	frame.FramePut(tr, 0, fr)
	events := frame.Flatten(tr)
	assert.Len(t, events, 2)
	assert.Equal(t, uint(0), events[0].Tick)
	assert.Equal(t, uint(48), events[1].Tick)
}

func TestCopyPrependsActiveState(t *testing.T) {
	tr := track.New(nil)
	tr.Append(0, non(60, 100))
	tr.Eot().Delta = 100

	cp := frame.Copy(tr, nil, 10, 20)
	events := frame.Flatten(cp)
	assert.Len(t, events, 1)
	assert.Equal(t, uint(0), events[0].Tick)
	assert.Equal(t, non(60, 100), events[0].Ev)
}

func TestMergeCombinesTracksInTickOrder(t *testing.T) {
	a := track.New(nil)
	a.Append(10, non(60, 100))
	a.Eot().Delta = 10

	b := track.New(nil)
	b.Append(5, non(61, 100))
	b.Eot().Delta = 15

	frame.Merge(a, b)

	events := frame.Flatten(a)
	assert.Len(t, events, 2)
	assert.Equal(t, uint(5), events[0].Tick)
	assert.Equal(t, uint(10), events[1].Tick)
}
