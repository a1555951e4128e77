// Package seqerr implements the error taxonomy shared across this
// module: invariant violations panic (they indicate a structurally
// impossible state), while semantic input rejection and resource
// exhaustion are reported as plain errors that leave the caller's
// track/state list untouched.
package seqerr

import "fmt"

// Semantic reports a rejected but otherwise well-formed request (bad
// measure number, beat/tick out of range, unknown track name, ...). The
// operation that returns one must not have mutated anything.
type Semantic struct {
	Op  string
	Msg string
}

func (e *Semantic) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

// NewSemantic constructs a Semantic error.
func NewSemantic(op, format string, args ...any) error {
	return &Semantic{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Resource reports that an operation could not complete because a
// resource (e.g. the SeqEv pool) was exhausted. The operation that
// returns one must leave state unchanged.
type Resource struct {
	Op  string
	Msg string
}

func (e *Resource) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Msg) }

// NewResource constructs a Resource error.
func NewResource(op, format string, args ...any) error {
	return &Resource{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Invariant panics with a diagnostic identifying the broken invariant.
// Mirrors the original C source's dbg_panic() calls guarding "this
// should be structurally impossible" conditions (e.g. track.c's
// seqev_rm guard against removing the end-of-track sentinel).
func Invariant(op, format string, args ...any) {
	panic(fmt.Sprintf("%s: invariant violated: %s", op, fmt.Sprintf(format, args...)))
}
