// Package conv implements the context<->context-free converter: Pack
// folds coarse/fine controller pairs, bank+program pairs, and (N)RPN +
// data-entry quadruples into single self-contained events; Unpack
// performs the inverse expansion back to wire form while suppressing
// redundant state changes.
//
// Grounded line-by-line on conv.c's conv_packev/conv_unpackev.
package conv

import (
	"github.com/laenzlinger/go-midi-rtp/ev"
	"github.com/laenzlinger/go-midi-rtp/evctl"
	"github.com/laenzlinger/go-midi-rtp/state"
)

// Conv holds the mutable state a single (device,channel) packer or
// unpacker needs across calls: the controller-state cache and the
// per-device fine-controller bitmap. Pack and Unpack are independent
// operations that may be run against different Conv instances wrapping
// different StateLists: reentrant across disjoint StateList instances,
// never across a shared one.
type Conv struct {
	States *state.List
	Fine   *evctl.DeviceBits
}

// New returns a Conv with a fresh, empty state list.
func New(fine *evctl.DeviceBits) *Conv {
	return &Conv{States: state.New(), Fine: fine}
}

func (c *Conv) fineSet(dev uint8) evctl.FineSet {
	if c.Fine == nil {
		return 0
	}
	return c.Fine.Get(dev)
}

// Pack converts a wire event into 0 or 1 canonical events, mutating the
// packer's state list. ok is false when e carried no new information to
// emit (e.g. it only updated context for a future event) — this is a
// silent contextual absence, not an error.
func (c *Conv) Pack(e ev.Ev) (out ev.Ev, ok bool) {
	switch e.Cmd {
	case ev.PC:
		bank := c.States.Get14(e, ev.BankHi, ev.BankLo)
		return ev.Ev{Cmd: ev.XPC, Dev: e.Dev, Ch: e.Ch, V1: bank, V0: e.PcProg()}, true
	case ev.CTL:
		return c.packCtl(e)
	default:
		return e, true
	}
}

func (c *Conv) packCtl(e ev.Ev) (out ev.Ev, ok bool) {
	num := e.CtlNum()
	switch num {
	case ev.BankHi:
		c.States.Remove(e, ev.BankLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.RpnHi:
		c.States.Remove(e, ev.NrpnLo)
		c.States.Remove(e, ev.RpnLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.NrpnHi:
		c.States.Remove(e, ev.RpnLo)
		c.States.Remove(e, ev.NrpnLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.DataEntHi:
		c.States.Remove(e, ev.DataEntLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.BankLo:
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.NrpnLo:
		c.States.Remove(e, ev.RpnLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.RpnLo:
		c.States.Remove(e, ev.NrpnLo)
		c.States.Set(e)
		return ev.Ev{}, false
	case ev.DataEntLo:
		return c.packDataEntryLo(e)
	default:
		return c.packPlainCtl(e, num)
	}
}

// packDataEntryLo resolves a DATAENT_LO event against whichever of
// NRPN/RPN context is currently selected. NRPN is tried first and wins
// when both exist; the original's RPN branch incorrectly paired RPN_HI
// with NRPN_LO — this corrected version always pairs RPN_HI with
// RPN_LO (see DESIGN.md).
func (c *Conv) packDataEntryLo(e ev.Ev) (out ev.Ev, ok bool) {
	var cmd ev.Cmd
	num := c.States.Get14(e, ev.NrpnHi, ev.NrpnLo)
	if num != ev.Undef {
		cmd = ev.NRPN
	} else {
		num = c.States.Get14(e, ev.RpnHi, ev.RpnLo)
		if num == ev.Undef {
			return ev.Ev{}, false
		}
		cmd = ev.RPN
	}
	hi := c.States.Get(e, ev.DataEntHi)
	if hi == ev.Undef {
		return ev.Ev{}, false
	}
	return ev.Ev{Cmd: cmd, Dev: e.Dev, Ch: e.Ch, V0: num, V1: e.CtlVal() + (hi << 7)}, true
}

func (c *Conv) packPlainCtl(e ev.Ev, num uint) (out ev.Ev, ok bool) {
	fine := c.fineSet(e.Dev)
	switch {
	case num < 32:
		if fine.IsFine(num) {
			c.States.Set(e)
			return ev.Ev{}, false
		}
		return ev.Ev{Cmd: ev.XCTL, Dev: e.Dev, Ch: e.Ch, V0: num, V1: e.CtlVal() << 7}, true
	case num < 64:
		lo := num - 32
		if !fine.IsFine(lo) {
			return ev.Ev{}, false
		}
		hi := c.States.Get(e, lo)
		if hi == ev.Undef {
			return ev.Ev{}, false
		}
		return ev.Ev{Cmd: ev.XCTL, Dev: e.Dev, Ch: e.Ch, V0: lo, V1: e.CtlVal() + (hi << 7)}, true
	default:
		return ev.Ev{Cmd: ev.XCTL, Dev: e.Dev, Ch: e.Ch, V0: num, V1: e.CtlVal() << 7}, true
	}
}

// Unpack converts a canonical event into 1..4 wire events, appended to
// out (which may be nil), mutating the unpacker's mirror state list to
// reflect what the wire recipient will now remember. It returns the
// extended slice.
func (c *Conv) Unpack(e ev.Ev, out []ev.Ev) []ev.Ev {
	switch e.Cmd {
	case ev.XCTL:
		return c.unpackXCtl(e, out)
	case ev.XPC:
		return c.unpackXPC(e, out)
	case ev.NRPN:
		return c.unpackRpnFamily(e, ev.NrpnHi, ev.NrpnLo, ev.RpnHi, ev.RpnLo, out)
	case ev.RPN:
		return c.unpackRpnFamily(e, ev.RpnHi, ev.RpnLo, ev.NrpnHi, ev.NrpnLo, out)
	default:
		return append(out, e)
	}
}

func (c *Conv) unpackXCtl(e ev.Ev, out []ev.Ev) []ev.Ev {
	num := e.CtlNum()
	fine := c.fineSet(e.Dev)
	if num < 32 && fine.IsFine(num) {
		hi := e.CtlVal() >> 7
		cur := c.States.Get(e, num)
		if cur != hi || cur == ev.Undef {
			hiEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: num, V1: hi}
			c.States.Set(hiEv)
			out = append(out, hiEv)
		}
		loEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: num + 32, V1: e.CtlVal() & 0x7F}
		return append(out, loEv)
	}
	return append(out, ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: num, V1: e.CtlVal() >> 7})
}

func (c *Conv) unpackXPC(e ev.Ev, out []ev.Ev) []ev.Ev {
	bank := e.PcBank()
	cur := c.States.Get14(e, ev.BankHi, ev.BankLo)
	if bank != ev.Undef && cur != bank {
		hiEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: ev.BankHi, V1: bank >> 7}
		loEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: ev.BankLo, V1: bank & 0x7F}
		c.States.Set(hiEv)
		c.States.Set(loEv)
		out = append(out, hiEv, loEv)
	}
	return append(out, ev.Ev{Cmd: ev.PC, Dev: e.Dev, Ch: e.Ch, V0: e.PcProg()})
}

// unpackRpnFamily implements both the NRPN and RPN branches of
// conv_unpackev, which are symmetric: emitting hi/lo select bytes for
// (selHi, selLo) when the context differs from e's number, invalidating
// the *other* family's recorded state, then always emitting the
// data-entry hi/lo pair.
func (c *Conv) unpackRpnFamily(e ev.Ev, selHi, selLo, otherHi, otherLo uint, out []ev.Ev) []ev.Ev {
	cur := c.States.Get14(e, selHi, selLo)
	if cur != e.RpnNum() {
		c.States.Remove(e, otherHi)
		c.States.Remove(e, otherLo)
		hiEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: selHi, V1: e.RpnNum() >> 7}
		loEv := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: selLo, V1: e.RpnNum() & 0x7F}
		c.States.Set(hiEv)
		c.States.Set(loEv)
		out = append(out, hiEv, loEv)
	}
	dataHi := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: ev.DataEntHi, V1: e.RpnVal() >> 7}
	dataLo := ev.Ev{Cmd: ev.CTL, Dev: e.Dev, Ch: e.Ch, V0: ev.DataEntLo, V1: e.RpnVal() & 0x7F}
	return append(out, dataHi, dataLo)
}
