package frame

import (
	"fmt"

	"github.com/wudi/continuum/values"
)

// ErrSlotIndexOutOfRange is returned by GetSlot when asked for an index
// beyond the slot array. Per spec §7 this indicates a bug in generated code
// and is always surfaced, never swallowed.
type ErrSlotIndexOutOfRange struct {
	Index int
	Len    int
}

func (e *ErrSlotIndexOutOfRange) Error() string {
	return fmt.Sprintf("slot index %d out of range (have %d slots)", e.Index, e.Len)
}

// PackSlots copies values positionally into a new slot array — the
// transformer calls this from a yield-point catch to snapshot hoisted
// locals before re-raising the suspension signal (spec §4.C, §4.E).
func PackSlots(vs ...values.Value) []values.Value {
	out := make([]values.Value, len(vs))
	copy(out, vs)
	return out
}

// GetSlot returns slots[i], or the zero value of kind if the slot holds
// null, or an error if i is out of range.
func GetSlot(slots []values.Value, i int, kind values.Kind) (values.Value, error) {
	if i < 0 || i >= len(slots) {
		return values.Value{}, &ErrSlotIndexOutOfRange{Index: i, Len: len(slots)}
	}
	v := slots[i]
	if v.IsNull() {
		return values.ZeroOf(kind), nil
	}
	return v, nil
}

// CaptureFrame constructs a new FrameRecord prepended onto caller — the
// transformer's yield-point catch block does exactly this, once per
// ancestor frame, while the suspension signal unwinds (spec §4.E).
func CaptureFrame(methodToken, yieldPointID int32, slots []values.Value, caller *FrameRecord) *FrameRecord {
	return &FrameRecord{
		MethodToken:  methodToken,
		YieldPointID: yieldPointID,
		Slots:        slots,
		Caller:       caller,
	}
}
