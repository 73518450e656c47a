package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/execctx"
	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/signal"
	"github.com/wudi/continuum/values"
)

func TestRunCompletes(t *testing.T) {
	r := New()
	res, err := r.Run(func(ctx *execctx.ExecutionContext) (values.Value, error) {
		return values.Int64(42), nil
	})
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Kind)
	assert.Equal(t, int64(42), res.Value.Int())
}

func TestRunPropagatesUserError(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	_, err := r.Run(func(ctx *execctx.ExecutionContext) (values.Value, error) {
		return values.Null(), boom
	})
	assert.ErrorIs(t, err, boom)
}

// suspendingEntry yields once at yield point 1, carrying a single slot (9),
// then completes on resume with that slot's value plus the resume value.
func suspendingEntry(ctx *execctx.ExecutionContext) (values.Value, error) {
	const token int32 = 7
	if !ctx.IsRestoring {
		defer func() {
			if rec := recover(); rec != nil {
				s, ok := signal.Recover(rec)
				if !ok {
					panic(rec)
				}
				panic(s.Prepend(token, 1, frame.PackSlots(values.Int64(9))))
			}
		}()
		ctx.HandleYieldPoint(1)
		return values.Int64(1), nil
	}
	v, err := frame.GetSlot(ctx.RestoreChain.Slots, 0, values.KindInt64)
	if err != nil {
		return values.Null(), err
	}
	return values.Int64(v.Int() + ctx.ResumeValue.Int()), nil
}

func TestRunSuspendsAndResumeFeedsValueBack(t *testing.T) {
	r := New()
	ctx := execctx.New()
	ctx.RequestYield()

	res, err := r.invoke(ctx, suspendingEntry)
	require.NoError(t, err)
	require.Equal(t, Suspended, res.Kind)
	require.NotNil(t, res.State.StackHead)
	assert.Equal(t, int32(7), res.State.StackHead.MethodToken)

	res2, err := r.Resume(res.State, values.Int64(33), suspendingEntry)
	require.NoError(t, err)
	require.Equal(t, Completed, res2.Kind)
	assert.Equal(t, int64(42), res2.Value.Int())
}

func TestResumeContinuationLooksUpRegistry(t *testing.T) {
	r := New()
	r.EntryPoints.Register(7, suspendingEntry)

	ctx := execctx.New()
	ctx.RequestYield()
	res, err := r.invoke(ctx, suspendingEntry)
	require.NoError(t, err)
	require.Equal(t, Suspended, res.Kind)

	res2, err := r.ResumeContinuation(res.State, values.Int64(1))
	require.NoError(t, err)
	assert.Equal(t, Completed, res2.Kind)
}

func TestResumeContinuationUnregisteredEntry(t *testing.T) {
	r := New()
	head := frame.CaptureFrame(999, 0, nil, nil)
	state := frame.NewContinuationState(head, values.Null())

	_, err := r.ResumeContinuation(state, values.Null())
	require.Error(t, err)
	var uee *UnregisteredEntryError
	assert.ErrorAs(t, err, &uee)
	assert.Equal(t, int32(999), uee.MethodToken)
}
