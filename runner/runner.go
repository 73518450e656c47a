// Package runner implements Runner (spec §4.F): the component that drives
// one invocation of a continuable entry point, converting a caught
// suspension signal into a Suspended result and installing a restoring
// ExecutionContext to resume one. Grounded on the teacher's vm.VM.Run /
// vm.VM.executeInstruction outer loop — the try/catch-at-the-boundary shape
// that turns an internal control-flow signal (there: exceptions; here:
// Suspension) into a typed outer result.
package runner

import (
	"errors"
	"fmt"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/signal"
	"github.com/wudi/continuum/validator"
	"github.com/wudi/continuum/values"
)

// ErrUnregisteredEntry is returned by Resume(continuation) when no entry
// point is registered for the outermost frame's method token.
var ErrUnregisteredEntry = errors.New("no entry point registered for continuation's outermost method token")

// UnregisteredEntryError carries the offending token alongside
// ErrUnregisteredEntry so callers can report it without string parsing.
type UnregisteredEntryError struct {
	MethodToken int32
}

func (e *UnregisteredEntryError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnregisteredEntry, e.MethodToken)
}

func (e *UnregisteredEntryError) Unwrap() error { return ErrUnregisteredEntry }

// Kind distinguishes a Completed result from a Suspended one.
type Kind int

const (
	Completed Kind = iota
	Suspended
)

// Result is what Run/Resume return: either a completed value or a suspended
// continuation state plus the value it yielded.
type Result struct {
	Kind            Kind
	Value           values.Value
	YieldedValue    values.Value
	State           frame.ContinuationState
	RemainingBudget int32
}

// Runner drives entry-point invocations. The zero value has no validator and
// no entry-point registry; New wires a fresh registry, and a validator is set
// through the Validator field.
type Runner struct {
	Validator   *validator.Validator // optional; nil skips untrusted-state validation
	EntryPoints *registry.Registry   // optional; required for Resume(continuation)

	// OnValidationRejected, if set, is called synchronously whenever resume's
	// Validator rejects an untrusted state, just before the ValidationError
	// is returned. It lets a caller observe rejections (e.g. a metrics
	// counter) without Runner knowing anything about who's listening — the
	// same AddEventListener-shaped decoupling scheduler uses for admin.
	OnValidationRejected func(res validator.Result)
}

// New returns a Runner with no validator and a fresh, empty entry-point
// registry.
func New() *Runner {
	return &Runner{EntryPoints: registry.New()}
}

// Run creates a fresh context, installs it, and invokes entry, converting
// whatever happens into a Result.
func (r *Runner) Run(entry registry.Entry) (Result, error) {
	ctx := execctx.New()
	return r.invoke(ctx, entry)
}

// RunWithBudget is Run with an explicit instruction budget instead of
// execctx.DefaultBudget — the form the Scheduler uses to enforce its
// per-slice budget (spec §4.J step 4).
func (r *Runner) RunWithBudget(budget int32, entry registry.Entry) (Result, error) {
	ctx := execctx.New()
	ctx.ResetBudget(budget)
	return r.invoke(ctx, entry)
}

// Resume validates state (if r.Validator is set), builds a restoring context
// seeded with state.StackHead and resumeValue, and invokes entry.
func (r *Runner) Resume(state frame.ContinuationState, resumeValue values.Value, entry registry.Entry) (Result, error) {
	return r.resume(state, resumeValue, execctx.DefaultBudget, entry)
}

// ResumeWithBudget is Resume with an explicit instruction budget — the form
// the Scheduler uses.
func (r *Runner) ResumeWithBudget(state frame.ContinuationState, resumeValue values.Value, budget int32, entry registry.Entry) (Result, error) {
	return r.resume(state, resumeValue, budget, entry)
}

func (r *Runner) resume(state frame.ContinuationState, resumeValue values.Value, budget int32, entry registry.Entry) (Result, error) {
	if r.Validator != nil {
		res := r.Validator.TryValidate(state)
		if !res.Valid() {
			if r.OnValidationRejected != nil {
				r.OnValidationRejected(res)
			}
			return Result{}, &validator.ValidationError{Errors: res.Errors}
		}
	}
	ctx := execctx.NewRestoring(state.StackHead, resumeValue)
	ctx.ResetBudget(budget)
	return r.invoke(ctx, entry)
}

// ResumeContinuation resumes state without being handed its entry point
// directly: it looks the entry up in r.EntryPoints by the outermost frame's
// method token.
func (r *Runner) ResumeContinuation(state frame.ContinuationState, resumeValue values.Value) (Result, error) {
	if r.EntryPoints == nil {
		return Result{}, &UnregisteredEntryError{MethodToken: outermostToken(state.StackHead)}
	}
	token := outermostToken(state.StackHead)
	entry, ok := r.EntryPoints.Lookup(token)
	if !ok {
		return Result{}, &UnregisteredEntryError{MethodToken: token}
	}
	return r.Resume(state, resumeValue, entry)
}

func outermostToken(head *frame.FrameRecord) int32 {
	if head == nil {
		return 0
	}
	// Each unwinding frame prepends itself, so the head is the outermost
	// frame and the tail (reached through Caller) is the innermost.
	return head.MethodToken
}

// invoke installs ctx, runs entry under it, and converts a recovered
// Suspension into a Suspended Result. Any other panic propagates unchanged;
// a returned error propagates unchanged and terminates the continuation with
// no partial state saved, per spec §7's propagation policy.
func (r *Runner) invoke(ctx *execctx.ExecutionContext, entry registry.Entry) (result Result, err error) {
	defer func() {
		result.RemainingBudget = ctx.Budget()
		rec := recover()
		if rec == nil {
			return
		}
		s, ok := signal.Recover(rec)
		if !ok {
			panic(rec)
		}
		result = Result{
			Kind:            Suspended,
			YieldedValue:    s.YieldedValue,
			State:           frame.NewContinuationState(s.Chain, s.YieldedValue),
			RemainingBudget: ctx.Budget(),
		}
		err = nil
	}()

	out, runErr := execctx.RunWith(ctx, func() (any, error) {
		v, e := entry(ctx)
		return v, e
	})
	if runErr != nil {
		return Result{}, runErr
	}
	return Result{Kind: Completed, Value: out.(values.Value), RemainingBudget: ctx.Budget()}, nil
}
