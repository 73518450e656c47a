package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/values"
)

func TestJSONRoundTrip(t *testing.T) {
	var codec JSONCodec
	state := sampleState()

	data, err := codec.Serialize(state)
	require.NoError(t, err)

	got, err := codec.Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, state.Version, got.Version)
	assert.True(t, values.Equal(state.YieldedValue, got.YieldedValue))
	assertFrameChainEqual(t, state.StackHead, got.StackHead)
}

func TestJSONEmptyChain(t *testing.T) {
	var codec JSONCodec
	state := frame.NewContinuationState(nil, values.Null())

	data, err := codec.Serialize(state)
	require.NoError(t, err)

	got, err := codec.Deserialize(data)
	require.NoError(t, err)
	assert.Nil(t, got.StackHead)
}

func TestJSONSharedArrayRoundTripsIdentityStable(t *testing.T) {
	var codec JSONCodec
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
	assert.Same(t, &first.Elements[0], &second.Elements[0])
}

func TestBinaryAndJSONAgree(t *testing.T) {
	var bc BinaryCodec
	var jc JSONCodec
	state := sampleState()

	bdata, err := bc.Serialize(state)
	require.NoError(t, err)
	bgot, err := bc.Deserialize(bdata)
	require.NoError(t, err)

	jdata, err := jc.Serialize(state)
	require.NoError(t, err)
	jgot, err := jc.Deserialize(jdata)
	require.NoError(t, err)

	assert.True(t, values.Equal(bgot.YieldedValue, jgot.YieldedValue))
	assertFrameChainEqual(t, bgot.StackHead, jgot.StackHead)
}
