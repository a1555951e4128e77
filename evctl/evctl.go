// Package evctl implements the controller registry: per-controller-number
// metadata (symbolic name, default value) and the per-device fine/coarse
// controller bitmap. Grounded on struct evctl / evctl_tab in ev.h.
package evctl

import (
	"sync"

	"github.com/laenzlinger/go-midi-rtp/ev"
)

// NumCtl is the number of distinct MIDI controller numbers (0..127).
const NumCtl = 128

// entry mirrors struct evctl: a controller's symbolic name and default
// value ('defval == ev.Undef' means "parametric": always emit the exact
// value, never assume a rest state).
type entry struct {
	name   string
	defval uint
}

// Table is the 128-entry controller registry. Create one with NewTable:
// in the zero value every default is 0 rather than Undef, so every
// controller reads as a frame controller with rest value 0.
type Table struct {
	mu      sync.RWMutex
	entries [NumCtl]entry
}

// NewTable returns a Table with every entry at its default (no name,
// Undef default value — every controller starts "parametric").
func NewTable() *Table {
	t := &Table{}
	for i := range t.entries {
		t.entries[i] = entry{defval: ev.Undef}
	}
	return t
}

// Configure sets the symbolic name and default value for controller
// number num. A defval of ev.Undef makes the controller parametric.
func (t *Table) Configure(num uint, name string, defval uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[num] = entry{name: name, defval: defval}
}

// Unconfigure clears the name and resets the default to ev.Undef (the
// controller becomes parametric again).
func (t *Table) Unconfigure(num uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[num] = entry{defval: ev.Undef}
}

// LookupByName returns the controller number registered under name, if
// any.
func (t *Table) LookupByName(name string) (num uint, found bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, e := range t.entries {
		if e.name != "" && e.name == name {
			return uint(i), true
		}
	}
	return 0, false
}

// Name returns the symbolic name configured for num, or "" if none.
func (t *Table) Name(num uint) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[num].name
}

// DefVal returns the default ("rest") value configured for num, or
// ev.Undef if the controller is parametric.
func (t *Table) DefVal(num uint) uint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[num].defval
}

// IsParam reports whether controller num is parametric (no default —
// its exact value must always be emitted).
func (t *Table) IsParam(num uint) bool { return t.DefVal(num) == ev.Undef }

// IsFrame reports whether controller num is a frame controller (has an
// implicit rest value and therefore participates in phase computation).
func (t *Table) IsFrame(num uint) bool { return !t.IsParam(num) }

// IsReserved reports whether num never carries user-defined meaning:
// bank-select hi/lo, data-entry hi/lo, RPN hi/lo, NRPN hi/lo, or any
// number in the low-byte companion range 32..63.
func IsReserved(num uint) bool {
	switch num {
	case ev.BankHi, ev.BankLo, ev.DataEntHi, ev.DataEntLo,
		ev.RpnHi, ev.RpnLo, ev.NrpnHi, ev.NrpnLo:
		return true
	}
	return num >= 32 && num <= 63
}

// FineSet is a 32-bit bitmap over controller numbers 0..31, indicating
// which of them are fine-resolution (their low-byte companion is
// number+32). Stored per device in DeviceBits.
type FineSet uint32

// IsFine reports whether controller number num (which must be < 32) is
// marked fine-resolution in s.
func (s FineSet) IsFine(num uint) bool {
	if num >= 32 {
		return false
	}
	return s&(1<<num) != 0
}

// SetFine returns a copy of s with controller number num marked as
// fine-resolution (or cleared, if fine is false).
func (s FineSet) SetFine(num uint, fine bool) FineSet {
	if num >= 32 {
		return s
	}
	if fine {
		return s | (1 << num)
	}
	return s &^ (1 << num)
}

// DeviceBits maps a device number to its FineSet, matching the "per
// device basis in mididev structure" comment in ev.h.
type DeviceBits struct {
	mu   sync.RWMutex
	bits map[uint8]FineSet
}

// NewDeviceBits returns an empty per-device fine-controller map.
func NewDeviceBits() *DeviceBits {
	return &DeviceBits{bits: make(map[uint8]FineSet)}
}

// Get returns the FineSet configured for dev (zero value if unset).
func (d *DeviceBits) Get(dev uint8) FineSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bits[dev]
}

// Set replaces the FineSet configured for dev.
func (d *DeviceBits) Set(dev uint8, s FineSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bits[dev] = s
}
