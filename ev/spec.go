package ev

// Any matches every voice event regardless of kind, used as the Cmd
// field of a Spec that should match any voice event.
const Any Cmd = numCmd

// Spec is an inclusive event range: (cmd, device range, channel range,
// byte0 range, byte1 range). Grounded on struct evspec in ev.h.
type Spec struct {
	Cmd                Cmd
	DevMin, DevMax     uint8
	ChMin, ChMax       uint8
	B0Min, B0Max       uint
	B1Min, B1Max       uint
}

// Reset returns the zero Spec that matches every voice event on every
// device/channel/byte range (the original evspec_reset()).
func Reset() Spec {
	return Spec{
		Cmd:    Any,
		DevMin: 0, DevMax: MaxDev,
		ChMin: 0, ChMax: MaxCh,
		B0Min: 0, B0Max: MaxFine,
		B1Min: 0, B1Max: MaxFine,
	}
}

// Match reports whether e falls within the range described by s.
func (s Spec) Match(e Ev) bool {
	if s.Cmd != Any && s.Cmd != e.Cmd {
		return false
	}
	if !e.IsVoice() && !e.IsMeta() {
		return false
	}
	if e.Dev < s.DevMin || e.Dev > s.DevMax {
		return false
	}
	if e.Ch < s.ChMin || e.Ch > s.ChMax {
		return false
	}
	if e.V0 < s.B0Min || e.V0 > s.B0Max {
		return false
	}
	if e.V1 < s.B1Min || e.V1 > s.B1Max {
		return false
	}
	return true
}
