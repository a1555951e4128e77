// Package seqenv bundles the mutable resources every core operation
// needs into one explicit handle, replacing the process-global
// singletons the original C sources use (evctl_tab, seqev_pool): a
// controller registry, a shared SeqEv pool, and a logging sink.
package seqenv

import (
	"log"

	"github.com/laenzlinger/go-midi-rtp/evctl"
	"github.com/laenzlinger/go-midi-rtp/track"
)

// Sink receives diagnostics from core operations. The core never logs
// to stderr directly at steady state; callers inject a Sink, which may
// wrap the standard logger, discard everything in tests, or forward to
// an application's own logging stack.
type Sink interface {
	Logf(format string, args ...any)
}

// StdSink adapts the standard library logger to Sink, mirroring the
// direct log.Printf/log.Println calls a session package would make.
type StdSink struct {
	*log.Logger
}

// NewStdSink returns a Sink that writes through l, or through
// log.Default() if l is nil.
func NewStdSink(l *log.Logger) StdSink {
	if l == nil {
		l = log.Default()
	}
	return StdSink{Logger: l}
}

func (s StdSink) Logf(format string, args ...any) { s.Printf(format, args...) }

// DiscardSink drops every message; useful in tests that don't want
// log noise but still need a non-nil Sink.
type DiscardSink struct{}

func (DiscardSink) Logf(string, ...any) {}

// Environment is the handle passed to every core operation that needs
// more than the track/event arguments it's given directly: the
// controller registry (names, defaults, parametric/frame
// classification) and fine-controller bitmap, the SeqEv pool backing
// every track created within it, and a logging sink.
type Environment struct {
	Ctl  *evctl.Table
	Fine *evctl.DeviceBits
	Pool *track.Pool
	Sink Sink
}

// New returns a fully initialized Environment: a fresh controller
// table, an empty fine-controller bitmap, a fresh SeqEv pool, and sink
// (or DiscardSink{} if sink is nil).
func New(sink Sink) *Environment {
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Environment{
		Ctl:  evctl.NewTable(),
		Fine: evctl.NewDeviceBits(),
		Pool: track.NewPool(),
		Sink: sink,
	}
}

// NewTrack returns an empty track backed by the environment's shared
// pool, so nodes freed by one track's edits can be reused by another
// without returning to the garbage collector.
func (e *Environment) NewTrack() *track.Track {
	return track.New(e.Pool)
}
