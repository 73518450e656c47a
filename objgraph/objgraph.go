// Package objgraph implements the identity-preserving object-graph tracker
// the serializer uses to assign and resolve stable integer ids across a
// ContinuationState's values (spec §4.K). Grounded on the teacher's
// vm.ObjectStore (runtime-wide object identity table keyed by handle) —
// generalized from "the VM's single live heap" to "one serialize or
// deserialize pass," with reference equality on the encode side and
// explicit, bounds-checked id binding on the decode side since decoded ids
// come from untrusted bytes.
package objgraph

import (
	"errors"
	"fmt"
	"reflect"
)

// MaxAllowedID is the default ceiling register_deserialized enforces.
const MaxAllowedID = 10000

// ErrMalformedObjectGraph is the sentinel wrapped by MalformedObjectGraphError.
var ErrMalformedObjectGraph = errors.New("malformed object graph")

// MalformedObjectGraphError reports a conflicting or out-of-range id binding
// observed while reconstructing an object graph from untrusted bytes.
type MalformedObjectGraphError struct {
	ID     int64
	Reason string
}

func (e *MalformedObjectGraphError) Error() string {
	return fmt.Sprintf("%s: id %d: %s", ErrMalformedObjectGraph, e.ID, e.Reason)
}

func (e *MalformedObjectGraphError) Unwrap() error { return ErrMalformedObjectGraph }

// nullSentinel is a distinct value stored for an id explicitly registered as
// "null was here," distinguishing it from "id unknown" in Lookup.
var nullSentinel = new(struct{})

// Tracker assigns and resolves identity across one serialize or deserialize
// pass. The zero value is not usable; use New.
type Tracker struct {
	maxAllowedID int64

	// Encode side: reference identity -> assigned id.
	byIdentity map[any]int64
	nextID     int64

	// Decode side: id -> the object bound to it (or nullSentinel).
	byID map[int64]any
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithMaxAllowedID overrides the default 10000 ceiling RegisterDeserialized
// enforces.
func WithMaxAllowedID(n int64) Option {
	return func(t *Tracker) { t.maxAllowedID = n }
}

// New returns an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		maxAllowedID: MaxAllowedID,
		byIdentity:   make(map[any]int64),
		byID:         make(map[int64]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TryRegister is the encode-side operation: obj is compared by reference
// identity (its pointer value, passed in by the caller as a comparable key —
// in this module, the backing-array address serialize's arrayIdentity
// computes for a KindArray value) against previously registered
// objects. Returns the id and whether this is the first time obj was seen;
// callers use is_new to decide whether to emit the object's full body or
// just a back-reference to id.
func (t *Tracker) TryRegister(identity any) (id int64, isNew bool) {
	if id, ok := t.byIdentity[identity]; ok {
		return id, false
	}
	id = t.nextID
	t.nextID++
	t.byIdentity[identity] = id
	return id, true
}

// RegisterDeserialized is the decode-side operation: binds id to obj (which
// may be nil, registered via the null sentinel). Rejects a negative id, an
// id above maxAllowedID, or an id already bound to a different object.
func (t *Tracker) RegisterDeserialized(id int64, obj any) error {
	if id < 0 {
		return &MalformedObjectGraphError{ID: id, Reason: "negative id"}
	}
	if id > t.maxAllowedID {
		return &MalformedObjectGraphError{ID: id, Reason: "id exceeds maximum allowed"}
	}
	stored := obj
	if stored == nil {
		stored = nullSentinel
	}
	if existing, ok := t.byID[id]; ok {
		ev, sv := reflect.ValueOf(existing), reflect.ValueOf(stored)
		same := ev.Type() == sv.Type()
		switch {
		case same && ev.Kind() == reflect.Slice:
			// Slices are not comparable with ==; compare backing array and length.
			same = ev.Pointer() == sv.Pointer() && ev.Len() == sv.Len()
		case same:
			same = ev.Comparable() && ev.Equal(sv)
		}
		if !same {
			return &MalformedObjectGraphError{ID: id, Reason: "id already bound to a different object"}
		}
		return nil
	}
	t.byID[id] = stored
	return nil
}

// Lookup returns the object bound to id. found is false if id was never
// registered; a registered null binding returns (nil, true).
func (t *Tracker) Lookup(id int64) (obj any, found bool) {
	stored, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	if stored == nullSentinel {
		return nil, true
	}
	return stored, true
}
