// Package track implements a delta-encoded event sequence: an
// intrusive doubly-linked list of SeqEv nodes with a stable
// end-of-track sentinel, backed by a free-list pool.
//
// Grounded on track.c (seqev_new/seqev_del/seqev_ins/seqev_rm,
// track_init/track_clearall/track_moveall/track_numev/track_numtic/
// track_setchan/track_chanmap). The original's prev field is a pointer
// to the previous node's "next" field (**struct seqev), giving
// branch-free head insertion/removal; this package instead always
// links through the sentinel, so prev is simply *SeqEv and the
// sentinel itself carries the list's "first" pointer — equivalent
// behavior without exposing raw pointer-to-pointer links to callers
// (design note §9: "avoid exposing raw pointers").
package track

import (
	"sync"

	"github.com/laenzlinger/go-midi-rtp/ev"
)

// SeqEv is one node of the track's delta-encoded event list: the number
// of ticks elapsed since the previous node, and the event itself.
type SeqEv struct {
	Delta uint
	Ev    ev.Ev

	next, prev *SeqEv
	owner      *Track
}

// Next returns the node following se, or nil if se is the last node of
// its track (the end-of-track sentinel has no Next).
func (se *SeqEv) Next() *SeqEv { return se.next }

// Avail reports whether se carries a real event (as opposed to being
// the end-of-track sentinel). Mirrors seqev_avail.
func (se *SeqEv) Avail() bool { return se.Ev.Cmd != ev.NIL }

// Pool is a free-list of SeqEv nodes, mirroring the original's
// pool-allocated struct seqev arena (track.c: seqev_pool). Sharing one
// Pool across Tracks amortizes allocation churn during frame
// operations; the zero value is usable but allocates a fresh node
// whenever the free list is empty.
type Pool struct {
	mu   sync.Mutex
	free []*SeqEv
}

// NewPool returns an empty Pool.
func NewPool() *Pool { return &Pool{} }

func (p *Pool) get() *SeqEv {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return &SeqEv{}
	}
	se := p.free[n-1]
	p.free = p.free[:n-1]
	*se = SeqEv{}
	return se
}

func (p *Pool) put(se *SeqEv) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, se)
}

// Track is a delta-encoded sequence of events: a doubly-linked list
// with a stable end-of-track sentinel (Cmd == ev.NIL) always in the
// tail position.
type Track struct {
	pool  *Pool
	first *SeqEv
	eot   *SeqEv
}

// New returns an empty track backed by pool (or a private pool if pool
// is nil).
func New(pool *Pool) *Track {
	if pool == nil {
		pool = NewPool()
	}
	t := &Track{pool: pool}
	t.eot = &SeqEv{owner: t}
	t.eot.Ev.Cmd = ev.NIL
	t.first = t.eot
	return t
}

// Pool returns the free-list pool backing t.
func (t *Track) Pool() *Pool { return t.pool }

// First returns the first node of the track (possibly the sentinel, if
// the track is empty).
func (t *Track) First() *SeqEv { return t.first }

// Eot returns the track's end-of-track sentinel node.
func (t *Track) Eot() *SeqEv { return t.eot }

// alloc returns a fresh node owned by t, sourced from t.pool.
func (t *Track) alloc() *SeqEv {
	se := t.pool.get()
	se.owner = t
	return se
}

// release returns se to its owning track's pool. se must already be
// unlinked.
func (se *SeqEv) release() {
	if se.owner != nil {
		se.owner.pool.put(se)
	}
}

// link splices se immediately before pos with delta ticks separating se
// from its new predecessor; pos's own delta shrinks by the same amount
// so the cumulative tick position of pos and everything after it is
// unchanged. Mirrors seqev_ins. Caller must ensure delta <= pos.Delta
// when pos already carries one (true whenever the insertion point was
// found by walking ticks down to exactly delta).
func link(se, pos *SeqEv, delta uint) {
	se.next = pos
	se.prev = pos.prev
	if pos.prev != nil {
		pos.prev.next = se
	}
	pos.prev = se
	se.Delta = delta
	pos.Delta -= delta
}

// unlink removes pos from its list, folding its delta into the
// following node so cumulative tick positions of subsequent events are
// unchanged. Mirrors seqev_rm. pos must not be the sentinel.
func unlink(pos *SeqEv) {
	pos.next.Delta += pos.Delta
	pos.Delta = 0
	if pos.prev != nil {
		pos.prev.next = pos.next
	}
	pos.next.prev = pos.prev
}

// InsertBefore splices a new node carrying e immediately before pos,
// with delta ticks between the new node and whatever now precedes it.
// pos is typically a cursor position obtained by walking the list; it
// may be the sentinel, in which case the new event becomes the new
// last real event. Returns the freshly linked node. Mirrors
// seqev_new+seqev_ins as used by seqptr_evput.
func (t *Track) InsertBefore(pos *SeqEv, delta uint, e ev.Ev) *SeqEv {
	se := t.alloc()
	se.Ev = e
	link(se, pos, delta)
	if pos == t.first {
		t.first = se
	}
	return se
}

// Append adds a new last event with delta ticks after the track's
// current last event (or its start, if empty). Unlike InsertBefore, it
// does not touch the sentinel's own trailing delta, since nothing
// follows the appended node but the sentinel itself — callers rebuilding
// a track event-by-event use Append for every event and then set
// t.Eot().Delta directly for the trailing silence.
func (t *Track) Append(delta uint, e ev.Ev) *SeqEv {
	se := t.alloc()
	se.Ev = e
	se.next = t.eot
	se.prev = t.eot.prev
	if t.eot.prev != nil {
		t.eot.prev.next = se
	}
	t.eot.prev = se
	se.Delta = delta
	if se.prev == nil {
		t.first = se
	}
	return se
}

// Remove unlinks pos from t and returns it to the pool. pos must not be
// the end-of-track sentinel. Mirrors seqev_rm+seqev_del.
func (t *Track) Remove(pos *SeqEv) {
	if pos == t.eot {
		panic("track: Remove called on end-of-track sentinel")
	}
	if pos == t.first {
		t.first = pos.next
	}
	unlink(pos)
	pos.release()
}

// Clear removes every event from t, returning its nodes to the pool.
// The end-of-track sentinel's delta is reset to zero.
func (t *Track) Clear() {
	for se := t.first; se != t.eot; {
		next := se.next
		se.release()
		se = next
	}
	t.eot.Delta = 0
	t.eot.prev = nil
	t.first = t.eot
}

// MoveAll clears dst and transfers every node (events and the
// remaining end-of-track delta) from src to dst, leaving src empty.
// Mirrors track_moveall.
func MoveAll(dst, src *Track) {
	dst.Clear()
	dst.eot.Delta = src.eot.Delta
	if src.first == src.eot {
		dst.first = dst.eot
		dst.eot.prev = nil
	} else {
		dst.first = src.first
		dst.first.prev = nil
		for se := dst.first; se != src.eot; se = se.next {
			se.owner = dst
		}
		tail := src.eot.prev
		tail.next = dst.eot
		dst.eot.prev = tail
	}
	src.eot.Delta = 0
	src.eot.prev = nil
	src.first = src.eot
}

// NumEv returns the number of real events on t (excluding the
// sentinel). Mirrors track_numev.
func (t *Track) NumEv() int {
	n := 0
	for se := t.first; se != t.eot; se = se.next {
		n++
	}
	return n
}

// NumTic returns the track's total tick length, sentinel included.
// Mirrors track_numtic.
func (t *Track) NumTic() uint {
	var n uint
	for se := t.first; se != nil; se = se.next {
		n += se.Delta
	}
	return n
}

// SetChan rewrites the device/channel of every voice event on t.
// Mirrors track_setchan.
func (t *Track) SetChan(dev, ch uint8) {
	for se := t.first; se != t.eot; se = se.next {
		if se.Ev.IsVoice() {
			se.Ev.Dev = dev
			se.Ev.Ch = ch
		}
	}
}

// ChanMap returns, for every (device, channel) pair addressed by a
// voice event on t, whether it is used. Mirrors track_chanmap; ndev and
// nch bound the returned map's dimensions.
func (t *Track) ChanMap(ndev, nch int) [][]bool {
	used := make([][]bool, ndev)
	for i := range used {
		used[i] = make([]bool, nch)
	}
	for se := t.first; se != nil; se = se.next {
		if se.Ev.IsVoice() {
			d, c := int(se.Ev.Dev), int(se.Ev.Ch)
			if d < ndev && c < nch {
				used[d][c] = true
			}
		}
	}
	return used
}
