package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/runner"
	"github.com/wudi/continuum/values"
)

func completingEntry(ctx *execctx.ExecutionContext) (values.Value, error) {
	return values.Int64(1), nil
}

func TestAddScriptAndRunToCompletion(t *testing.T) {
	sch := New(runner.New(), 1000)
	var events []string
	sch.AddEventListener("completed", func(e Event) { events = append(events, e.Script.Name) })

	inst := sch.AddScript(completingEntry, "job", 1)
	sch.Run()

	assert.Equal(t, Completed, inst.State)
	assert.Equal(t, int64(1), inst.Result.Int())
	assert.Equal(t, []string{"job"}, events)
}

func TestFailingEntryMarksFailed(t *testing.T) {
	boom := errors.New("boom")
	sch := New(runner.New(), 1000)
	inst := sch.AddScript(func(ctx *execctx.ExecutionContext) (values.Value, error) {
		return values.Null(), boom
	}, "bad", 1)

	sch.Run()
	assert.Equal(t, Failed, inst.State)
	assert.ErrorIs(t, inst.Err, boom)
}

// yieldingEntry suspends once, then completes on resume.
func yieldingEntry(ctx *execctx.ExecutionContext) (values.Value, error) {
	if !ctx.IsRestoring {
		ctx.RequestYield()
		ctx.HandleYieldPoint(1)
		return values.Int64(0), nil
	}
	return values.Int64(99), nil
}

func TestSuspendThenCompleteAcrossTicks(t *testing.T) {
	sch := New(runner.New(), 1000)
	var transitions []string
	sch.AddEventListener("yielded", func(e Event) { transitions = append(transitions, "yielded") })
	sch.AddEventListener("completed", func(e Event) { transitions = append(transitions, "completed") })

	inst := sch.AddScript(yieldingEntry, "gen", 1)
	sch.RunFor(10)

	assert.Equal(t, Completed, inst.State)
	assert.Equal(t, int64(99), inst.Result.Int())
	assert.Equal(t, []string{"yielded", "completed"}, transitions)
	assert.Equal(t, int64(1), inst.YieldCount)
}

func TestTickReturnsFalseWhenNoWork(t *testing.T) {
	sch := New(runner.New(), 1000)
	assert.False(t, sch.Tick())
}

func TestWakeAndSuspendToWait(t *testing.T) {
	sch := New(runner.New(), 1000)
	inst := sch.AddScript(completingEntry, "job", 1)

	// Drive it to Suspended manually to exercise the Waiting transitions.
	inst.State = Suspended
	sch.SuspendToWait(inst)
	assert.Equal(t, Waiting, inst.State)

	sch.Wake(inst, values.Int64(5))
	assert.Equal(t, Suspended, inst.State)
	assert.Equal(t, int64(5), inst.LastYieldedValue.Int())
}

func TestRemoveScript(t *testing.T) {
	sch := New(runner.New(), 1000)
	inst := sch.AddScript(completingEntry, "job", 1)
	sch.RemoveScript(inst)
	require.False(t, sch.Tick())
}

// alwaysYields suspends every slice, never completing, so repeated rounds
// exercise priority's effect on how many slices each script gets.
func alwaysYields(ctx *execctx.ExecutionContext) (values.Value, error) {
	ctx.RequestYield()
	ctx.HandleYieldPoint(1)
	return values.Null(), nil
}

func TestPriorityGrantsMoreSlicesPerRound(t *testing.T) {
	sch := New(runner.New(), 1000)
	low := sch.AddScript(alwaysYields, "low", 1)
	high := sch.AddScript(alwaysYields, "high", 3)

	// AddScript enqueues each script once, and every suspension re-enqueues
	// the script Priority times, so high's share of the queue grows each time
	// it runs: the first six ticks run low, high, low, high, high, high.
	for i := 0; i < 6; i++ {
		require.True(t, sch.Tick())
	}

	assert.Equal(t, int64(2), low.YieldCount)
	assert.Equal(t, int64(4), high.YieldCount)
}
