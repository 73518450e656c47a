// Package frame holds the data model captured at a suspension: FrameRecord,
// ContinuationState, and the compile-time descriptors the validator checks
// them against. It is grounded on the teacher's vm.CallFrame (call_stack.go,
// context.go) — the same shape (method identity, locals, a caller link) —
// generalized from a live, in-process call stack to an immutable, shareable,
// serializable chain.
package frame

import (
	"fmt"

	"github.com/wudi/continuum/values"
)

// FrameRecord captures one logical call's state at the moment its containing
// computation suspended. Records form a singly-linked list from outermost
// (head, prepended last while unwinding) to innermost via Caller. Immutable
// once constructed — see the
// ownership note in spec §3.
type FrameRecord struct {
	MethodToken  int32
	YieldPointID int32
	Slots        []values.Value
	Caller       *FrameRecord
}

// ContinuationState is the full serializable snapshot of a suspended
// computation: spec §3's "(version, stack_head) fully determines resumption
// semantics".
type ContinuationState struct {
	Version      uint32
	StackHead    *FrameRecord
	YieldedValue values.Value
}

// CurrentVersion is the version NewContinuationState stamps on every state.
// The codecs decode any version; validator.TryValidate reports any other
// version as ErrUnsupportedVersion.
const CurrentVersion uint32 = 1

// NewContinuationState builds a state at the current wire version.
func NewContinuationState(head *FrameRecord, yielded values.Value) ContinuationState {
	return ContinuationState{
		Version:      CurrentVersion,
		StackHead:    head,
		YieldedValue: yielded,
	}
}

// SlotKind distinguishes the provenance of a descriptor's FrameSlot.
type SlotKind byte

const (
	SlotLocal SlotKind = iota
	SlotArgument
	SlotEvalStack
)

// TypeRef names a declared slot type for validator compatibility checks. It
// mirrors values.Kind but is declared independently of a live Value so a
// descriptor can be built without constructing one (and so "object" can be
// expressed, which values.Kind alone cannot). Spec §4.H(2)(e)'s
// declared-is-nullable-of-actual case needs no field here: validateFrame
// already skips a null actual value before compatible is ever consulted, so
// "nullable" carries no information a bare TypeRef could act on.
type TypeRef struct {
	Kind values.Kind
	// Object marks a declared type of "object" — the validator treats this
	// as a supertype of every other Kind bar none, per spec §4.H(2)(e).
	Object bool
}

// FrameSlot is compile-time metadata for one local/argument/eval-stack slot.
type FrameSlot struct {
	Index                uint16
	Name                 string
	Kind                 SlotKind
	DeclaredType          TypeRef
	RequiresSerialization bool
}

// FrameDescriptor is the compile-time metadata the transformer emits per
// continuable method: its slots and the yield points reachable inside it,
// plus which slots are live (must be restored) at each yield point.
type FrameDescriptor struct {
	MethodToken          int32
	MethodName           string
	Slots                []FrameSlot
	YieldPointIDs         []int32 // sorted
	LiveSlotsAtYieldPoint map[int32][]bool // yield_point_id -> bitset over Slots
}

// HasYieldPoint reports whether yp is one of the descriptor's known yield
// points (a sorted-slice binary search since YieldPointIDs is kept sorted).
func (d *FrameDescriptor) HasYieldPoint(yp int32) bool {
	ids := d.YieldPointIDs
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid] < yp {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(ids) && ids[lo] == yp
}

// CountLiveSlots returns how many slots are marked live at yield point yp,
// or 0 if yp is unknown to the descriptor.
func (d *FrameDescriptor) CountLiveSlots(yp int32) int {
	bits, ok := d.LiveSlotsAtYieldPoint[yp]
	if !ok {
		return 0
	}
	n := 0
	for _, live := range bits {
		if live {
			n++
		}
	}
	return n
}

// Validate checks the descriptor's own invariants (spec §3): the yield-point
// and live-slot-map domains agree, and every live slot index is in range.
func (d *FrameDescriptor) Validate() error {
	if len(d.YieldPointIDs) != len(d.LiveSlotsAtYieldPoint) {
		return &MalformedDescriptorError{
			MethodToken: d.MethodToken,
			Reason:      "yield_point_ids and live_slots_at_yield_point have different cardinality",
		}
	}
	for yp, bits := range d.LiveSlotsAtYieldPoint {
		if !d.HasYieldPoint(yp) {
			return &MalformedDescriptorError{
				MethodToken: d.MethodToken,
				Reason:      "live_slots_at_yield_point references an unknown yield point",
			}
		}
		for i := range bits {
			if i >= len(d.Slots) {
				return &MalformedDescriptorError{
					MethodToken: d.MethodToken,
					Reason:      "live slot index out of range",
				}
			}
		}
	}
	return nil
}

// MalformedDescriptorError reports a self-inconsistent FrameDescriptor.
type MalformedDescriptorError struct {
	MethodToken int32
	Reason      string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed frame descriptor for method token %d: %s", e.MethodToken, e.Reason)
}
