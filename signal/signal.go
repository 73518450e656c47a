// Package signal implements the suspension signal: an in-band sentinel that
// propagates up the call stack via panic/recover to trigger frame capture at
// each transformed frame (spec §4.E, §9 "exception-for-control-flow ⇒
// sum-typed signal"). It is grounded on the teacher's generator delegation
// model (runtime/generator.go) and the pack's durable-coroutine reference
// (other_examples/…coroutine-durable-fork…), both of which model suspension
// as an unwind that the boundary catches and converts into a resumable
// value.
package signal

import (
	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/values"
)

// Suspension is raised (via panic) by ExecutionContext.HandleYieldPoint when
// a yield has been requested or the instruction budget is exhausted. Every
// transformed frame's catch block must: capture its locals into a
// frame.FrameRecord via frame.CaptureFrame, prepend it onto Chain, and
// re-panic with the updated Suspension. The outermost boundary (package
// runner) recovers it and converts it into a Suspended result.
type Suspension struct {
	YieldPointID int32
	Chain        *frame.FrameRecord
	YieldedValue values.Value
}

// Prepend returns a new Suspension with a frame record for (methodToken,
// yieldPointID, slots) prepended onto s.Chain — the operation a transformed
// frame's catch block performs before re-raising.
func (s *Suspension) Prepend(methodToken, yieldPointID int32, slots []values.Value) *Suspension {
	return &Suspension{
		YieldPointID: s.YieldPointID,
		Chain:        frame.CaptureFrame(methodToken, yieldPointID, slots, s.Chain),
		YieldedValue: s.YieldedValue,
	}
}

// Raise panics with a fresh Suspension carrying no chain yet (the innermost
// frame is responsible for the first Prepend). Only ExecutionContext calls
// this; user code never constructs a Suspension directly.
func Raise(yieldPointID int32, yielded values.Value) {
	panic(&Suspension{YieldPointID: yieldPointID, YieldedValue: yielded})
}

// Recover inspects a recovered panic value. It returns the Suspension and ok
// if r is one, letting the caller re-panic anything else unchanged.
func Recover(r any) (*Suspension, bool) {
	s, ok := r.(*Suspension)
	return s, ok
}
