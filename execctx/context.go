// Package execctx implements ExecutionContext, the per-worker state the
// yield-point protocol reads and mutates (spec §3, §4.D). It is grounded on
// the teacher's vm.ExecutionContextV2 — a per-run struct of separated
// concerns (Variables, CallStack, debug log) installed and torn down around
// one invocation — generalized from "one PHP script execution" to "one
// continuable entry invocation".
package execctx

import (
	"sync"
	"sync/atomic"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/signal"
	"github.com/wudi/continuum/values"
)

// DefaultBudget is the instruction budget ResetBudget installs when called
// with n <= 0, and the budget a fresh context starts with.
const DefaultBudget = 1000

// ExecutionContext is owned by exactly one worker for the duration of one
// entry invocation (spec §3's ownership note). Its yield_requested flag is
// the one piece of state another worker may touch, via RequestYield, so it
// alone is kept atomic; everything else here is plain, single-writer state.
type ExecutionContext struct {
	yieldRequested atomic.Bool
	budget         int32

	IsRestoring  bool
	RestoreChain *frame.FrameRecord
	ResumeValue  values.Value

	traceMu  sync.Mutex
	trace    []string
	traceCap int
}

// New returns a fresh, non-restoring context with the default budget.
func New() *ExecutionContext {
	ctx := &ExecutionContext{budget: DefaultBudget, traceCap: 256}
	return ctx
}

// NewRestoring returns a context primed to resume a suspended computation:
// is_restoring is set, restore_chain is the state's stack head, and
// resume_value is the value the caller is feeding back in (spec §4.F).
func NewRestoring(restoreChain *frame.FrameRecord, resumeValue values.Value) *ExecutionContext {
	ctx := New()
	ctx.IsRestoring = true
	ctx.RestoreChain = restoreChain
	ctx.ResumeValue = resumeValue
	return ctx
}

// RequestYield marks the context for suspension at its next yield point. It
// is the only ExecutionContext method safe to call from a worker other than
// the one currently running the context (spec §5's cancellation model).
func (c *ExecutionContext) RequestYield() {
	c.yieldRequested.Store(true)
}

// Budget reports the remaining instruction budget.
func (c *ExecutionContext) Budget() int32 {
	return atomic.LoadInt32(&c.budget)
}

// ResetBudget sets the instruction budget, defaulting to DefaultBudget when
// n <= 0.
func (c *ExecutionContext) ResetBudget(n int32) {
	if n <= 0 {
		n = DefaultBudget
	}
	atomic.StoreInt32(&c.budget, n)
}

// HandleYieldPoint is the hot path transformed code calls at every yield
// point. If a yield was requested, it clears the flag and raises the
// suspension signal carrying id; otherwise it returns normally.
func (c *ExecutionContext) HandleYieldPoint(id int32) {
	if c.yieldRequested.CompareAndSwap(true, false) {
		signal.Raise(id, values.Null())
	}
}

// HandleYieldPointValue is HandleYieldPoint's value-carrying form: generated
// code for a `yield expr`-shaped construct calls this instead of
// HandleYieldPoint so the suspended computation's YieldedValue is the actual
// expression result rather than values.Null() — HandleYieldPoint alone only
// ever raises with Null, since its callers (a bare budget/cancellation
// check) have no value in hand to carry.
func (c *ExecutionContext) HandleYieldPointValue(id int32, value values.Value) {
	if c.yieldRequested.CompareAndSwap(true, false) {
		signal.Raise(id, value)
	}
}

// HandleYieldPointWithBudget decrements the budget by cost and raises the
// suspension signal if a yield was requested OR the budget has been
// exhausted (spec §4.D, property P5).
func (c *ExecutionContext) HandleYieldPointWithBudget(id int32, cost int32) {
	remaining := atomic.AddInt32(&c.budget, -cost)
	requested := c.yieldRequested.CompareAndSwap(true, false)
	if requested || remaining <= 0 {
		signal.Raise(id, values.Null())
	}
}

// Trace appends a bounded diagnostic line (spec-full ambient stack: the
// debug-record texture of vm.ExecutionContextV2.appendDebugRecord,
// generalized from variable assignments to yield-point/budget events). Only
// lines a caller passes in are kept: HandleYieldPoint and its siblings do not
// call Trace.
func (c *ExecutionContext) Trace(line string) {
	c.traceMu.Lock()
	defer c.traceMu.Unlock()
	if c.traceCap <= 0 {
		c.traceCap = 256
	}
	c.trace = append(c.trace, line)
	if len(c.trace) > c.traceCap {
		c.trace = c.trace[len(c.trace)-c.traceCap:]
	}
}

// DrainTrace returns and clears the accumulated trace lines.
func (c *ExecutionContext) DrainTrace() []string {
	c.traceMu.Lock()
	defer c.traceMu.Unlock()
	out := c.trace
	c.trace = nil
	return out
}
