package evctl_test

import (
	"testing"

	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/evctl"
	"github.com/stretchr/testify/assert"
)

func TestNewTableStartsParametric(t *testing.T) {
	tbl := evctl.NewTable()
	assert.True(t, tbl.IsParam(7))
	assert.Equal(t, uint(ev.Undef), tbl.DefVal(7))
}

func TestConfigureUnconfigure(t *testing.T) {
	tbl := evctl.NewTable()
	tbl.Configure(7, "volume", 100)
	assert.True(t, tbl.IsFrame(7))
	assert.Equal(t, "volume", tbl.Name(7))
	assert.Equal(t, uint(100), tbl.DefVal(7))

	num, found := tbl.LookupByName("volume")
	assert.True(t, found)
	assert.Equal(t, uint(7), num)

	tbl.Unconfigure(7)
	assert.True(t, tbl.IsParam(7))
	assert.Equal(t, "", tbl.Name(7))
	_, found = tbl.LookupByName("volume")
	assert.False(t, found)
}

func TestIsReserved(t *testing.T) {
	for _, n := range []uint{0, 32, 6, 38, 98, 99, 100, 101, 40, 63} {
		assert.True(t, evctl.IsReserved(n), n)
	}
	for _, n := range []uint{1, 7, 10, 64, 80, 127} {
		assert.False(t, evctl.IsReserved(n), n)
	}
}

func TestFineSet(t *testing.T) {
	var s evctl.FineSet
	assert.False(t, s.IsFine(7))
	s = s.SetFine(7, true)
	assert.True(t, s.IsFine(7))
	s = s.SetFine(7, false)
	assert.False(t, s.IsFine(7))
	assert.False(t, s.IsFine(40), "out of fine-index range")
}

func TestDeviceBits(t *testing.T) {
	d := evctl.NewDeviceBits()
	assert.Equal(t, evctl.FineSet(0), d.Get(0))
	d.Set(0, evctl.FineSet(0).SetFine(1, true))
	assert.True(t, d.Get(0).IsFine(1))
	assert.False(t, d.Get(1).IsFine(1))
}

func TestClassifyPhase(t *testing.T) {
	tbl := evctl.NewTable()
	tbl.Configure(7, "volume", 100)

	cases := []struct {
		name string
		e    ev.Ev
		want evctl.Phase
	}{
		{"note-on", ev.Ev{Cmd: ev.NON}, evctl.First},
		{"note-off", ev.Ev{Cmd: ev.NOFF}, evctl.Last},
		{"key-aftertouch", ev.Ev{Cmd: ev.KAT}, evctl.Next},
		{"channel-aftertouch nonzero", ev.Ev{Cmd: ev.CAT, V0: 5}, evctl.First | evctl.Next},
		{"channel-aftertouch zero", ev.Ev{Cmd: ev.CAT, V0: 0}, evctl.Last},
		{"bend center", ev.Ev{Cmd: ev.BEND, V0: ev.BendDefault}, evctl.Last},
		{"bend off-center", ev.Ev{Cmd: ev.BEND, V0: 0x3000}, evctl.First | evctl.Next},
		{"xctl parametric", ev.Ev{Cmd: ev.XCTL, V0: 74, V1: 3}, evctl.First | evctl.Last},
		{"xctl frame at default", ev.Ev{Cmd: ev.XCTL, V0: 7, V1: 100}, evctl.Last},
		{"xctl frame away from default", ev.Ev{Cmd: ev.XCTL, V0: 7, V1: 50}, evctl.First | evctl.Next},
		{"xpc", ev.Ev{Cmd: ev.XPC}, evctl.First | evctl.Last},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, evctl.Classify(tbl, c.e))
		})
	}
}
