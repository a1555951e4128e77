package ev_test

import (
	"testing"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/stretchr/testify/assert"
)

func TestSpecResetMatchesAnyVoiceEvent(t *testing.T) {
	s := ev.Reset()
	assert.True(t, s.Match(ev.Ev{Cmd: ev.NON, Dev: 3, Ch: 9, V0: 60, V1: 100}))
	assert.True(t, s.Match(ev.Ev{Cmd: ev.CTL, Dev: 0, Ch: 0, V0: 7, V1: 127}))
	assert.False(t, s.Match(ev.Ev{Cmd: ev.NIL}))
}

func TestSpecNarrowRange(t *testing.T) {
	s := ev.Spec{
		Cmd:    ev.CTL,
		DevMin: 0, DevMax: 0,
		ChMin: 0, ChMax: 3,
		B0Min: 7, B0Max: 7,
		B1Min: 0, B1Max: ev.MaxCoarse,
	}
	assert.True(t, s.Match(ev.Ev{Cmd: ev.CTL, Dev: 0, Ch: 2, V0: 7, V1: 50}))
	assert.False(t, s.Match(ev.Ev{Cmd: ev.CTL, Dev: 1, Ch: 2, V0: 7, V1: 50}), "device out of range")
	assert.False(t, s.Match(ev.Ev{Cmd: ev.CTL, Dev: 0, Ch: 9, V0: 7, V1: 50}), "channel out of range")
	assert.False(t, s.Match(ev.Ev{Cmd: ev.CTL, Dev: 0, Ch: 2, V0: 8, V1: 50}), "byte0 out of range")
	assert.False(t, s.Match(ev.Ev{Cmd: ev.PC, Dev: 0, Ch: 2, V0: 7, V1: 50}), "wrong cmd")
}
