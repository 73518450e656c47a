// Package scheduler implements the cooperative round-robin Scheduler (spec
// §4.J): many ScriptInstances, one worker, a run queue, and a tiny
// synchronous event feed for observing state transitions. Grounded on the
// teacher's vm.VM outer loop for the tick/run shape (one iteration pulls
// one unit of work, runs it to its next stopping point, reacts to the
// outcome) and, for the event-dispatch shape only (DOM-style
// AddEventListener/DispatchEvent, not the code itself), on
// github.com/joeycumines/go-eventloop's EventTarget — not imported, since
// adopting a full event loop with promises/microtasks for three
// synchronously-fired event names would be pulling in an entire runtime to
// replace four lines of `for _, l := range listeners { l(evt) }` (see
// DESIGN.md).
package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/registry"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/values"
)

// State is a ScriptInstance's lifecycle state.
type State byte

const (
	Ready State = iota
	Running
	Suspended
	Waiting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Suspended:
		return "Suspended"
	case Waiting:
		return "Waiting"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ScriptInstance is one scheduled computation (spec §3).
type ScriptInstance struct {
	ID         uint32
	ExternalID uuid.UUID
	Name       string
	Priority   uint8

	State             State
	ContinuationState *frame.ContinuationState
	Entry             registry.Entry
	LastYieldedValue  values.Value
	Result            values.Value
	Err               error
	YieldCount        int64
	TickCount         int64
}

// Event is fired synchronously, inside the scheduler's lock, for one of
// "state_changed", "yielded", "completed", or "failed".
type Event struct {
	Type     string
	Script   *ScriptInstance
	Previous State
}

// Listener receives Events. Per spec §4.J's isolation note, a Listener must
// not call back into Scheduler mutation methods — events fire while the
// scheduler's lock is held, and every exported Scheduler method (Scripts
// included) takes that lock.
type Listener func(Event)

// Scheduler is the cooperative round-robin driver. Use New to construct.
// AddScript/AddEventListener/Wake/SuspendToWait/Stop are safe to call from
// any goroutine; Tick/Run/RunFor must be driven by exactly one worker
// goroutine at a time (spec §5's single-worker-per-scheduler model) — they
// don't hold the lock for the duration of an invocation, only to dequeue and
// to record its outcome, so two concurrent callers would interleave ticks
// rather than serialize them.
type Scheduler struct {
	mu             sync.Mutex
	runner         *runner.Runner
	budgetPerSlice int32

	scripts  []*ScriptInstance
	runQueue []*ScriptInstance
	nextID   uint32
	stopped  bool

	listeners map[string][]Listener
}

// New returns a Scheduler driving invocations through r, with each slice
// capped at budgetPerSlice instructions (spec §4.J step 4).
func New(r *runner.Runner, budgetPerSlice int32) *Scheduler {
	if budgetPerSlice <= 0 {
		budgetPerSlice = 1000
	}
	return &Scheduler{
		runner:         r,
		budgetPerSlice: budgetPerSlice,
		listeners:      make(map[string][]Listener),
	}
}

// AddEventListener registers fn for events of eventType.
func (sch *Scheduler) AddEventListener(eventType string, fn Listener) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.listeners[eventType] = append(sch.listeners[eventType], fn)
}

// dispatch fires every listener registered for evt.Type. Caller must hold
// sch.mu — per spec, events fire "inside the scheduler's lock briefly".
func (sch *Scheduler) dispatch(evt Event) {
	for _, fn := range sch.listeners[evt.Type] {
		fn(evt)
	}
}

// AddScript registers entry under name at priority (defaulting to 1),
// marks it Ready, and enqueues it once.
func (sch *Scheduler) AddScript(entry registry.Entry, name string, priority uint8) *ScriptInstance {
	if priority == 0 {
		priority = 1
	}
	sch.mu.Lock()
	defer sch.mu.Unlock()

	sch.nextID++
	inst := &ScriptInstance{
		ID:         sch.nextID,
		ExternalID: uuid.New(),
		Name:       name,
		Priority:   priority,
		State:      Ready,
		Entry:      entry,
	}
	sch.scripts = append(sch.scripts, inst)
	sch.runQueue = append(sch.runQueue, inst)
	return inst
}

// Scripts returns a snapshot slice of every registered ScriptInstance, in
// registration order. The ScriptInstances themselves are shared pointers —
// callers must not mutate their fields, only read them (the admin package's
// introspection server is the intended reader).
func (sch *Scheduler) Scripts() []*ScriptInstance {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	out := make([]*ScriptInstance, len(sch.scripts))
	copy(out, sch.scripts)
	return out
}

// RemoveScript drops inst from both the script list and the run queue.
func (sch *Scheduler) RemoveScript(inst *ScriptInstance) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.scripts = removeInstance(sch.scripts, inst)
	sch.runQueue = removeInstance(sch.runQueue, inst)
}

func removeInstance(list []*ScriptInstance, target *ScriptInstance) []*ScriptInstance {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Tick runs one scheduler step (spec §4.J). It returns false only when the
// run queue was empty and rebuilding it from Ready/Suspended scripts
// produced no work.
func (sch *Scheduler) Tick() bool {
	sch.mu.Lock()

	if len(sch.runQueue) == 0 {
		for _, s := range sch.scripts {
			st := s.State
			if st == Ready || st == Suspended {
				for i := uint8(0); i < s.Priority; i++ {
					sch.runQueue = append(sch.runQueue, s)
				}
			}
		}
		if len(sch.runQueue) == 0 {
			sch.mu.Unlock()
			return false
		}
	}

	inst := sch.runQueue[0]
	sch.runQueue = sch.runQueue[1:]

	prev := inst.State
	inst.State = Running
	sch.dispatch(Event{Type: "state_changed", Script: inst, Previous: prev})
	sch.mu.Unlock()

	sch.runSlice(inst)
	return true
}

// runSlice invokes the Runner for inst and reacts to the outcome (spec §4.J
// step 4-6). It runs outside sch.mu — invocation may take arbitrarily long
// and must not hold the scheduler lock for its duration — and re-acquires
// the lock only to record the result and fire events.
func (sch *Scheduler) runSlice(inst *ScriptInstance) {
	var res runner.Result
	var err error
	if inst.ContinuationState == nil {
		res, err = sch.runner.RunWithBudget(sch.budgetPerSlice, inst.Entry)
	} else {
		res, err = sch.runner.ResumeWithBudget(*inst.ContinuationState, inst.LastYieldedValue, sch.budgetPerSlice, inst.Entry)
	}

	sch.mu.Lock()
	defer sch.mu.Unlock()

	inst.TickCount += int64(sch.budgetPerSlice - res.RemainingBudget)
	prev := inst.State

	switch {
	case err != nil:
		inst.Err = err
		inst.State = Failed
		inst.ContinuationState = nil
		sch.dispatch(Event{Type: "failed", Script: inst, Previous: prev})
	case res.Kind == runner.Completed:
		inst.Result = res.Value
		inst.State = Completed
		inst.ContinuationState = nil
		sch.dispatch(Event{Type: "completed", Script: inst, Previous: prev})
	default: // Suspended
		state := res.State
		inst.ContinuationState = &state
		inst.LastYieldedValue = res.YieldedValue
		inst.YieldCount++
		inst.State = Suspended
		sch.dispatch(Event{Type: "yielded", Script: inst, Previous: prev})
	}

	if inst.State == Suspended {
		for i := uint8(0); i < inst.Priority; i++ {
			sch.runQueue = append(sch.runQueue, inst)
		}
	}
}

// Run ticks until every script is terminal or Stop is called, sleeping
// briefly between rounds that find no work.
func (sch *Scheduler) Run() {
	for !sch.stopRequested() {
		if !sch.Tick() {
			if sch.allTerminal() {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// RunFor ticks at most n times, stopping early if Stop is called or the
// queue runs dry with everything terminal.
func (sch *Scheduler) RunFor(n int) {
	for i := 0; i < n && !sch.stopRequested(); i++ {
		if !sch.Tick() && sch.allTerminal() {
			return
		}
	}
}

// Stop requests that Run return after its current tick.
func (sch *Scheduler) Stop() {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	sch.stopped = true
}

func (sch *Scheduler) stopRequested() bool {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.stopped
}

func (sch *Scheduler) allTerminal() bool {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	for _, s := range sch.scripts {
		if st := s.State; st != Completed && st != Failed {
			return false
		}
	}
	return true
}

// Wake moves inst from Waiting to Suspended, records value as its next
// resume value, and re-enqueues it.
func (sch *Scheduler) Wake(inst *ScriptInstance, value values.Value) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if inst.State != Waiting {
		return
	}
	inst.State = Suspended
	inst.LastYieldedValue = value
	for i := uint8(0); i < inst.Priority; i++ {
		sch.runQueue = append(sch.runQueue, inst)
	}
}

// SuspendToWait moves inst from Suspended to Waiting, removing it from the
// run rotation until a matching Wake.
func (sch *Scheduler) SuspendToWait(inst *ScriptInstance) {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if inst.State != Suspended {
		return
	}
	inst.State = Waiting
	sch.runQueue = removeInstance(sch.runQueue, inst)
}
