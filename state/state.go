// Package state implements StateList: an ordered mutable set of
// controller-value entries keyed by
// (device, channel, controller-number), used by the packer/unpacker as
// a cache of "what value does each controller currently hold?". It is
// deliberately separate from Track — the same canonical track can be
// rendered against different wire mirror states.
//
// Grounded on conv.c's conv_setctl/conv_getctl/conv_rmctl/conv_getctx,
// which implement this as a linear scan over a linked list of
// struct state; this package keeps the linear-scan semantics (lists in
// this domain are small — at most a handful of live controllers per
// channel) but backs them with a slice rather than a linked list, since
// Go has no need for the original's pool-allocated struct state nodes.
package state

import "github.com/laenzlinger/go-midi-rtp/ev"

// List is an ordered set of controller-state events.
type List struct {
	entries []ev.Ev
}

// New returns an empty state list.
func New() *List { return &List{} }

// Set records or updates the value of the controller event ev describes
// (matched by device/channel/controller-number), mirroring conv_setctl.
func (l *List) Set(e ev.Ev) {
	for i := range l.entries {
		if l.entries[i].SameCtl(e) {
			l.entries[i].V1 = e.V1
			return
		}
	}
	l.entries = append(l.entries, e)
}

// Get returns the value currently recorded for controller num on the
// same device/channel as ref, or ev.Undef if none is recorded.
// Mirrors conv_getctl.
func (l *List) Get(ref ev.Ev, num uint) uint {
	for _, e := range l.entries {
		if e.V0 == num && e.SameChan(ref) {
			return e.V1
		}
	}
	return ev.Undef
}

// Remove deletes the recorded state for controller num on the same
// device/channel as ref, if any. Mirrors conv_rmctl.
func (l *List) Remove(ref ev.Ev, num uint) {
	for i, e := range l.entries {
		if e.V0 == num && e.SameChan(ref) {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Get14 returns the 14-bit value formed by the (hi, lo) controller pair
// recorded for the same device/channel as ref. If either half is
// missing, it returns ev.Undef. Mirrors conv_getctx.
func (l *List) Get14(ref ev.Ev, hi, lo uint) uint {
	vlo := l.Get(ref, lo)
	if vlo == ev.Undef {
		return ev.Undef
	}
	vhi := l.Get(ref, hi)
	if vhi == ev.Undef {
		return ev.Undef
	}
	return vlo + (vhi << 7)
}

// Len returns the number of entries currently recorded.
func (l *List) Len() int { return len(l.entries) }

// Clear empties the list.
func (l *List) Clear() { l.entries = l.entries[:0] }

// Snapshot returns a copy of every entry currently recorded, in
// insertion order; later changes to the list do not affect the copy.
func (l *List) Snapshot() []ev.Ev {
	out := make([]ev.Ev, len(l.entries))
	copy(out, l.entries)
	return out
}
