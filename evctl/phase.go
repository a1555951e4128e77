package evctl

import "github.com/laenzlinger/go-midi-rtp/ev"

// Phase is a bitmask classification of an event's role inside a frame.
type Phase uint8

const (
	// First marks an event that opens a frame.
	First Phase = 1 << iota
	// Next marks an event that continues an already-open frame.
	Next
	// Last marks an event that closes a frame.
	Last
)

// Has reports whether p includes bit.
func (p Phase) Has(bit Phase) bool { return p&bit != 0 }

// Classify returns the phase of e. Controller-aware kinds (XCTL)
// consult t to decide whether e's controller is parametric (always
// First|Last) or a frame controller (First|Next while away from its
// default value, Last once it returns to it).
func Classify(t *Table, e ev.Ev) Phase {
	switch e.Cmd {
	case ev.NON:
		return First
	case ev.NOFF:
		return Last
	case ev.KAT:
		return Next
	case ev.CAT:
		if e.CatVal() != ev.CatDefault {
			return First | Next
		}
		return Last
	case ev.BEND:
		if e.BendVal() != ev.BendDefault {
			return First | Next
		}
		return Last
	case ev.XCTL:
		num := e.CtlNum()
		if t == nil || t.IsParam(num) {
			return First | Last
		}
		if e.CtlVal() != t.DefVal(num) {
			return First | Next
		}
		return Last
	default:
		return First | Last
	}
}
