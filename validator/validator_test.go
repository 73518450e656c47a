package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/values"
)

func descriptorFor(token int32) *frame.FrameDescriptor {
	return &frame.FrameDescriptor{
		MethodToken:   token,
		MethodName:    "demo",
		Slots:         []frame.FrameSlot{{Index: 0, DeclaredType: frame.TypeRef{Kind: values.KindInt64}}},
		YieldPointIDs: []int32{0},
		LiveSlotsAtYieldPoint: map[int32][]bool{
			0: {true},
		},
	}
}

func TestValidateAcceptsWellFormedState(t *testing.T) {
	v := New(Default())
	require.NoError(t, v.RegisterDescriptor(descriptorFor(1)))

	head := frame.CaptureFrame(1, 0, frame.PackSlots(values.Int64(42)), nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	assert.True(t, res.Valid(), "%v", res.Errors)
}

func TestValidateRejectsUnregisteredMethod(t *testing.T) {
	v := New(Default())
	head := frame.CaptureFrame(99, 0, nil, nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrUnregisteredMethod))
}

func TestValidateLenientAllowsUnregisteredMethod(t *testing.T) {
	v := New(Lenient())
	head := frame.CaptureFrame(99, -1, nil, nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	// Lenient doesn't require registration, but a negative yield point id on
	// an unknown method is still flagged.
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrYieldPointOutOfRange))
}

func TestValidateRejectsUnknownYieldPoint(t *testing.T) {
	v := New(Default())
	require.NoError(t, v.RegisterDescriptor(descriptorFor(1)))

	head := frame.CaptureFrame(1, 7, frame.PackSlots(values.Int64(1)), nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrYieldPointOutOfRange))
}

func TestValidateRejectsSlotCountMismatch(t *testing.T) {
	v := New(Default())
	require.NoError(t, v.RegisterDescriptor(descriptorFor(1)))

	head := frame.CaptureFrame(1, 0, nil, nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrSlotCountMismatch))
}

func TestValidateRejectsSlotTypeMismatch(t *testing.T) {
	v := New(Default())
	require.NoError(t, v.RegisterDescriptor(descriptorFor(1)))

	head := frame.CaptureFrame(1, 0, frame.PackSlots(values.String("wrong kind")), nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrSlotTypeMismatch))
}

func TestValidateAllowsNumericWidening(t *testing.T) {
	v := New(Default())
	require.NoError(t, v.RegisterDescriptor(descriptorFor(1)))

	head := frame.CaptureFrame(1, 0, frame.PackSlots(values.Int32(5)), nil)
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	assert.True(t, res.Valid(), "%v", res.Errors)
}

func TestValidateRejectsCyclicChain(t *testing.T) {
	v := New(Lenient())
	a := &frame.FrameRecord{MethodToken: 1}
	b := &frame.FrameRecord{MethodToken: 2, Caller: a}
	a.Caller = b
	state := frame.NewContinuationState(a, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	found := false
	for _, e := range res.Errors {
		if errors.Is(e, ErrMalformedChain) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateRejectsStackTooDeep(t *testing.T) {
	opts := Lenient()
	opts.MaxStackDepth = 2
	v := New(opts)

	var head *frame.FrameRecord
	for i := 0; i < 5; i++ {
		head = frame.CaptureFrame(int32(i), -1, nil, head)
	}
	state := frame.NewContinuationState(head, values.Null())

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	found := false
	for _, e := range res.Errors {
		if errors.Is(e, ErrStackTooDeep) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateRejectsDisallowedYieldedValueType(t *testing.T) {
	v := New(Default())
	state := frame.NewContinuationState(nil, values.Null())
	// Construct a yielded value and then revoke its kind from the allow-list
	// to exercise the DisallowedType path deterministically.
	v.allowedKinds[values.KindString] = false
	state.YieldedValue = values.String("hi")

	res := v.TryValidate(state)
	require.False(t, res.Valid())
	assert.True(t, errors.Is(res.Errors[0], ErrDisallowedType))
}

func TestRegisterAllowedTypeIdempotent(t *testing.T) {
	v := New(Default())
	v.RegisterAllowedType(values.KindString)
	v.RegisterAllowedType(values.KindString)
	assert.True(t, v.allowedKinds[values.KindString])
}

func TestIsTypeAllowedRecursesIntoArrays(t *testing.T) {
	v := New(Default())
	good := values.Array(values.Int64(1), values.String("ok"))
	assert.True(t, v.IsTypeAllowed(good))

	v.allowedKinds[values.KindString] = false
	bad := values.Array(values.Int64(1), values.String("nope"))
	assert.False(t, v.IsTypeAllowed(bad))
}
