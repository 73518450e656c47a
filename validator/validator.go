// Package validator implements the security gate a Runner must pass any
// untrusted ContinuationState through before resuming it (spec §4.H).
// Resuming an attacker-supplied state is equivalent to goto attacker.code()
// unless every method token it names is known-safe and every value it
// carries has a known shape — so Validator is the only place those two
// checks happen, and Runner.Resume refuses to proceed without a Valid
// result when a validator is configured.
//
// Grounded on the teacher's registry.Registry (mutex-guarded map, seed-once
// globals) for the descriptor set, and on errors.ErrorReporter/ErrorList
// (collect-don't-short-circuit, typed findings) for the result shape,
// rebuilt against continuation states instead of parse diagnostics.
package validator

import (
	"sync"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/values"
)

// Options configures a Validator's strictness (spec §6).
type Options struct {
	RequireRegisteredMethods bool
	ValidateSlotCounts       bool
	ValidateSlotTypes        bool
	MaxStackDepth            int
}

// Default returns the strict preset: every check on, depth capped at 1000.
func Default() Options {
	return Options{
		RequireRegisteredMethods: true,
		ValidateSlotCounts:       true,
		ValidateSlotTypes:        true,
		MaxStackDepth:            1000,
	}
}

// Lenient returns the permissive preset: every check off except the depth
// cap, which remains a hard backstop against unbounded chains.
func Lenient() Options {
	return Options{MaxStackDepth: 1000}
}

// Validator gates untrusted ContinuationStates against a registered set of
// FrameDescriptors and a type allow-list.
type Validator struct {
	opts Options

	mu          sync.RWMutex
	descriptors map[int32]*frame.FrameDescriptor

	allowedKinds [32]bool
	allowedNames map[string]struct{}
}

// New returns a Validator configured with opts. The type allow-list starts
// seeded with every Kind in the closed AnyValue set (spec §3, §4.H) — hosts
// never need to, and the API gives them no way to, narrow it below that
// floor; RegisterAllowedType/RegisterAllowedTypeName only ever widen it
// further for host-specific named types layered on top of Kind.
func New(opts Options) *Validator {
	v := &Validator{
		opts:         opts,
		descriptors:  make(map[int32]*frame.FrameDescriptor),
		allowedNames: make(map[string]struct{}),
	}
	for k := values.KindNull; k <= values.KindArray; k++ {
		v.allowedKinds[k] = true
	}
	return v
}

// RegisterDescriptor adds (or replaces) one method's descriptor.
func (v *Validator) RegisterDescriptor(d *frame.FrameDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.descriptors[d.MethodToken] = d
	return nil
}

// RegisterDescriptors is a convenience for registering many descriptors.
func (v *Validator) RegisterDescriptors(ds []*frame.FrameDescriptor) error {
	for _, d := range ds {
		if err := v.RegisterDescriptor(d); err != nil {
			return err
		}
	}
	return nil
}

// GetDescriptor returns the descriptor registered for token, if any.
func (v *Validator) GetDescriptor(token int32) (*frame.FrameDescriptor, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	d, ok := v.descriptors[token]
	return d, ok
}

// RegisterAllowedType widens the allow-list to include kind. Idempotent
// (property P9): registering the same kind twice has no additional effect.
func (v *Validator) RegisterAllowedType(kind values.Kind) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if int(kind) < len(v.allowedKinds) {
		v.allowedKinds[kind] = true
	}
}

// RegisterAllowedTypeName records a host-specific named type. Idempotent.
// The recorded names are not consulted by IsTypeAllowed or TryValidate.
func (v *Validator) RegisterAllowedTypeName(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.allowedNames[name] = struct{}{}
}

// IsTypeAllowed reports whether val's dynamic type is in the allow-list,
// checking array elements recursively.
func (v *Validator) IsTypeAllowed(val values.Value) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isTypeAllowedLocked(val)
}

func (v *Validator) isTypeAllowedLocked(val values.Value) bool {
	if val.IsNull() {
		return true
	}
	if int(val.Kind) >= len(v.allowedKinds) || !v.allowedKinds[val.Kind] {
		return false
	}
	if val.Kind == values.KindArray {
		for _, e := range val.Elements {
			if !v.isTypeAllowedLocked(e) {
				return false
			}
		}
	}
	return true
}

// Result is the outcome of Validate: either Valid (Errors is empty) or
// Invalid, carrying every collected FrameError.
type Result struct {
	Errors []*FrameError
}

// Valid reports whether the result contains no errors.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// TryValidate runs every configured check, collecting (not short-circuiting
// across frames) every finding, and returns a Result.
func (v *Validator) TryValidate(state frame.ContinuationState) Result {
	var res Result
	add := func(index int, token int32, kind error, detail string) {
		res.Errors = append(res.Errors, &FrameError{Kind: kind, Index: index, MethodToken: token, Detail: detail})
	}

	if state.Version != frame.CurrentVersion {
		add(-1, 0, ErrUnsupportedVersion, "state version does not match the current wire version")
	}

	depth, acyclic := frame.StackDepth(state.StackHead)
	if !acyclic {
		add(-1, 0, ErrMalformedChain, "cycle detected while walking the frame chain")
	}

	walkLimit := depth
	idx := 0
	for f := state.StackHead; f != nil && idx < walkLimit; f, idx = f.Caller, idx+1 {
		v.validateFrame(&res, add, idx, f)
	}

	maxDepth := v.opts.MaxStackDepth
	if maxDepth <= 0 {
		maxDepth = 1000
	}
	if depth > maxDepth {
		add(-1, 0, ErrStackTooDeep, "frame chain depth exceeds configured maximum")
	}

	if v.opts.ValidateSlotTypes && !state.YieldedValue.IsNull() {
		if !v.IsTypeAllowed(state.YieldedValue) {
			add(-1, 0, ErrDisallowedType, "yielded_value has a disallowed dynamic type")
		}
	}

	return res
}

func (v *Validator) validateFrame(res *Result, add func(int, int32, error, string), idx int, f *frame.FrameRecord) {
	descriptor, known := v.GetDescriptor(f.MethodToken)

	if v.opts.RequireRegisteredMethods && !known {
		add(idx, f.MethodToken, ErrUnregisteredMethod, "method token is not registered with this validator")
		return // short-circuit the rest of this frame only
	}

	if !known {
		if f.YieldPointID < 0 {
			add(idx, f.MethodToken, ErrYieldPointOutOfRange, "yield point id is negative")
		}
		if v.opts.ValidateSlotTypes {
			for _, s := range f.Slots {
				if !v.IsTypeAllowed(s) {
					add(idx, f.MethodToken, ErrDisallowedType, "slot value has a disallowed dynamic type")
				}
			}
		}
		return
	}

	if !descriptor.HasYieldPoint(f.YieldPointID) {
		add(idx, f.MethodToken, ErrYieldPointOutOfRange, "yield point id is not declared by the method descriptor")
	}

	if v.opts.ValidateSlotCounts {
		need := descriptor.CountLiveSlots(f.YieldPointID)
		if len(f.Slots) < need {
			add(idx, f.MethodToken, ErrSlotCountMismatch, "fewer slots present than the descriptor's live-slot count requires")
		}
	}

	if v.opts.ValidateSlotTypes {
		live := descriptor.LiveSlotsAtYieldPoint[f.YieldPointID]
		for i, s := range f.Slots {
			if s.IsNull() {
				continue
			}
			if !v.IsTypeAllowed(s) {
				add(idx, f.MethodToken, ErrDisallowedType, "slot value has a disallowed dynamic type")
				continue
			}
			if i < len(live) && live[i] && i < len(descriptor.Slots) {
				if !compatible(s.Kind, descriptor.Slots[i].DeclaredType) {
					add(idx, f.MethodToken, ErrSlotTypeMismatch, "live slot value incompatible with its declared type")
				}
			}
		}
	}
}

// compatible implements spec §4.H(2)(e)'s equal / declared-is-supertype /
// declared-is-object / declared-is-nullable-of-actual compatibility rule. The
// supertype relation is resolved here (an Open Question spec.md leaves
// implicit) as same-family integer/float widening — see DESIGN.md.
func compatible(actual values.Kind, declared frame.TypeRef) bool {
	if declared.Object {
		return true
	}
	if declared.Kind == actual {
		return true
	}
	return isNumericWidening(declared.Kind, actual)
}

func isNumericWidening(declared, actual values.Kind) bool {
	rank := func(k values.Kind) (family int, width int) {
		switch k {
		case values.KindInt8:
			return 1, 1
		case values.KindInt16:
			return 1, 2
		case values.KindInt32:
			return 1, 3
		case values.KindInt64:
			return 1, 4
		case values.KindUint8:
			return 2, 1
		case values.KindUint16:
			return 2, 2
		case values.KindUint32:
			return 2, 3
		case values.KindUint64:
			return 2, 4
		case values.KindFloat32:
			return 3, 1
		case values.KindFloat64:
			return 3, 2
		default:
			return 0, 0
		}
	}
	df, dw := rank(declared)
	af, aw := rank(actual)
	return df != 0 && df == af && dw >= aw
}
