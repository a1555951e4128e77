package seqenv_test

import (
	"testing"

	"github.com/laenzlinger/go-midi-rtp/seqenv"
	"github.com/stretchr/testify/assert"
)

func TestNewWithNilSinkUsesDiscard(t *testing.T) {
	env := seqenv.New(nil)
	assert.NotNil(t, env.Sink)
	assert.NotPanics(t, func() { env.Sink.Logf("hello %d", 1) })
}

func TestNewTrackSharesPool(t *testing.T) {
	env := seqenv.New(nil)
	a := env.NewTrack()
	b := env.NewTrack()
	assert.Same(t, a.Pool(), b.Pool())
}

func TestStdSinkWritesThroughLogger(t *testing.T) {
	sink := seqenv.NewStdSink(nil)
	assert.NotPanics(t, func() { sink.Logf("test %s", "message") })
}
