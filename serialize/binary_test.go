package serialize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/values"
)

func sampleState() frame.ContinuationState {
	inner := frame.CaptureFrame(1, 0, frame.PackSlots(
		values.Int64(42),
		values.String("hello"),
		values.Null(),
		values.Array(values.Int8(1), values.Int8(2)),
		values.Bool(true),
		values.Float64(3.5),
		values.UUID(uuid.New()),
		values.Timestamp(time.Now().UTC().Round(time.Microsecond)),
		values.Duration(5*time.Second),
		values.DecimalValue(values.Decimal{Unscaled: "12345", Scale: 2}),
		values.EnumValue(values.Enum{TypeName: "Color", Ordinal: 2}),
	), nil)
	outer := frame.CaptureFrame(2, 1, frame.PackSlots(values.Int32(7)), inner)
	return frame.NewContinuationState(outer, values.String("yielded"))
}

func TestBinaryRoundTrip(t *testing.T) {
	var codec BinaryCodec
	state := sampleState()

	data, err := codec.Serialize(state)
	require.NoError(t, err)

	got, err := codec.Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, state.Version, got.Version)
	assert.True(t, values.Equal(state.YieldedValue, got.YieldedValue))
	assertFrameChainEqual(t, state.StackHead, got.StackHead)
}

func assertFrameChainEqual(t *testing.T, a, b *frame.FrameRecord) {
	t.Helper()
	for a != nil || b != nil {
		require.NotNil(t, a)
		require.NotNil(t, b)
		assert.Equal(t, a.MethodToken, b.MethodToken)
		assert.Equal(t, a.YieldPointID, b.YieldPointID)
		require.Equal(t, len(a.Slots), len(b.Slots))
		for i := range a.Slots {
			assert.True(t, values.Equal(a.Slots[i], b.Slots[i]))
		}
		a, b = a.Caller, b.Caller
	}
}

func TestBinaryDeserializeRejectsTruncated(t *testing.T) {
	var codec BinaryCodec
	data, err := codec.Serialize(sampleState())
	require.NoError(t, err)

	_, err = codec.Deserialize(data[:len(data)/2])
	assert.Error(t, err)
}

func TestBinarySharedArrayRoundTripsIdentityStable(t *testing.T) {
	var codec BinaryCodec
	shared := values.Array(values.Int64(1), values.Int64(2), values.Int64(3))
	frameRec := frame.CaptureFrame(1, 0, frame.PackSlots(shared, shared), nil)
	state := frame.NewContinuationState(frameRec, values.Null())

	data, err := codec.Serialize(state)
	require.NoError(t, err)

	got, err := codec.Deserialize(data)
	require.NoError(t, err)

	require.Len(t, got.StackHead.Slots, 2)
	first, second := got.StackHead.Slots[0], got.StackHead.Slots[1]
	assert.True(t, values.Equal(first, second))

	// Both slots decoded to the same backing slice, not independent copies —
	// the back-reference scheme, not coincidental value equality.
	assert.Same(t, &first.Elements[0], &second.Elements[0])
}

func TestBinaryEmptyChain(t *testing.T) {
	var codec BinaryCodec
	state := frame.NewContinuationState(nil, values.Null())

	data, err := codec.Serialize(state)
	require.NoError(t, err)

	got, err := codec.Deserialize(data)
	require.NoError(t, err)
	assert.Nil(t, got.StackHead)
}
