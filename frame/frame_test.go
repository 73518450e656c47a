package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/continuum/values"
)

func chainOfLength(n int) *FrameRecord {
	var head *FrameRecord
	for i := 0; i < n; i++ {
		head = CaptureFrame(int32(i), int32(i), nil, head)
	}
	return head
}

func TestStackDepthAcyclic(t *testing.T) {
	for _, n := range []int{0, 1, 5, 100} {
		depth, ok := StackDepth(chainOfLength(n))
		assert.True(t, ok)
		assert.Equal(t, n, depth)
	}
}

func TestStackDepthCyclicTerminates(t *testing.T) {
	a := &FrameRecord{MethodToken: 1}
	b := &FrameRecord{MethodToken: 2, Caller: a}
	a.Caller = b // cycle: a -> b -> a

	depth, ok := StackDepth(a)
	assert.False(t, ok)
	assert.LessOrEqual(t, depth, 4)
}

func TestPackAndGetSlot(t *testing.T) {
	slots := PackSlots(values.Int32(7), values.Null(), values.String("hi"))

	v, err := GetSlot(slots, 0, values.KindInt32)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int())

	v, err = GetSlot(slots, 1, values.KindInt32)
	require.NoError(t, err)
	assert.Equal(t, values.KindInt32, v.Kind)
	assert.Equal(t, int64(0), v.Int())

	_, err = GetSlot(slots, 5, values.KindInt32)
	require.Error(t, err)
	var oob *ErrSlotIndexOutOfRange
	assert.ErrorAs(t, err, &oob)
}

func TestFrameDescriptorValidate(t *testing.T) {
	d := &FrameDescriptor{
		MethodToken: 1,
		Slots:       []FrameSlot{{Index: 0}, {Index: 1}},
		YieldPointIDs: []int32{0, 1},
		LiveSlotsAtYieldPoint: map[int32][]bool{
			0: {true, false},
			1: {true, true},
		},
	}
	assert.NoError(t, d.Validate())
	assert.Equal(t, 1, d.CountLiveSlots(0))
	assert.Equal(t, 2, d.CountLiveSlots(1))
	assert.True(t, d.HasYieldPoint(1))
	assert.False(t, d.HasYieldPoint(2))
}

func TestFrameDescriptorValidateRejectsMismatch(t *testing.T) {
	d := &FrameDescriptor{
		MethodToken:   1,
		Slots:         []FrameSlot{{Index: 0}},
		YieldPointIDs: []int32{0, 1},
		LiveSlotsAtYieldPoint: map[int32][]bool{
			0: {true},
		},
	}
	assert.Error(t, d.Validate())
}
