package main

import (
	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/signal"
	"github.com/wudi/continuum/token"
	"github.com/wudi/continuum/values"
)

// demoEntries are the fixed, built-in continuable entry points cmd/continuum
// operates on. This module has no language frontend to compile arbitrary
// user scripts into FrameDescriptor-bearing code (that transformer is
// explicitly out of scope, per spec.md's Non-goals), so the CLI's
// run/resume/validate/serve subcommands all work against this small,
// hand-written set — the same role the teacher's bundled PHP scripts under
// examples/ played for exercising cmd/hey, rebuilt as Go entry points
// instead of parsed source.
var (
	counterToken   = token.MethodToken("Demo", "Counter")
	fibonacciToken = token.MethodToken("Demo", "Fibonacci")
)

// counterEntry yields three times, each time waiting to be resumed with a
// value it adds to its running total, then returns the sum. Exercises the
// simplest possible suspend/resume-with-value/.../complete cycle end to
// end. Like the teacher's generator frames, it must catch its own
// HandleYieldPoint panic and prepend its captured locals before
// re-raising — the runner only ever sees a fully-chained Suspension.
func counterEntry(ctx *execctx.ExecutionContext) (total values.Value, err error) {
	var t int64
	yp := int32(1)
	if ctx.IsRestoring {
		slot, gerr := frame.GetSlot(ctx.RestoreChain.Slots, 0, values.KindInt64)
		if gerr != nil {
			return values.Null(), gerr
		}
		t = slot.Int() + ctx.ResumeValue.Int()
		yp = ctx.RestoreChain.YieldPointID + 1
	}

	if yp > 3 {
		return values.Int64(t), nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			s, ok := signal.Recover(rec)
			if !ok {
				panic(rec)
			}
			panic(s.Prepend(counterToken, yp, frame.PackSlots(values.Int64(t))))
		}
	}()
	ctx.RequestYield()
	ctx.HandleYieldPointValue(yp, values.Int64(t))
	panic("unreachable: HandleYieldPointValue must suspend when a yield was requested")
}

// fibonacciEntry yields successive Fibonacci numbers forever; useful for
// exercising the scheduler's priority-weighted requeue with a continuation
// that never completes on its own.
func fibonacciEntry(ctx *execctx.ExecutionContext) (result values.Value, err error) {
	var a, b int64 = 0, 1
	yp := int32(1)
	if ctx.IsRestoring {
		av, gerr := frame.GetSlot(ctx.RestoreChain.Slots, 0, values.KindInt64)
		if gerr != nil {
			return values.Null(), gerr
		}
		bv, gerr := frame.GetSlot(ctx.RestoreChain.Slots, 1, values.KindInt64)
		if gerr != nil {
			return values.Null(), gerr
		}
		a, b = av.Int(), bv.Int()
		yp = ctx.RestoreChain.YieldPointID + 1
	}
	a, b = b, a+b

	defer func() {
		if rec := recover(); rec != nil {
			s, ok := signal.Recover(rec)
			if !ok {
				panic(rec)
			}
			panic(s.Prepend(fibonacciToken, yp, frame.PackSlots(values.Int64(a), values.Int64(b))))
		}
	}()
	ctx.RequestYield()
	ctx.HandleYieldPointValue(yp, values.Int64(b))
	panic("unreachable: HandleYieldPointValue must suspend when a yield was requested")
}

// registerDemoEntries populates reg with the fixed demo set and returns a
// name -> token map the CLI uses to resolve a --entry flag.
func registerDemoEntries(reg *registry.Registry) map[string]int32 {
	reg.Register(counterToken, counterEntry)
	reg.Register(fibonacciToken, fibonacciEntry)
	return map[string]int32{
		"counter":   counterToken,
		"fibonacci": fibonacciToken,
	}
}
