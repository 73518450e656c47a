package serialize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/objgraph"
	"github.com/wudi/continuum/values"
)

// JSONCodec implements the textual sibling of BinaryCodec (spec §4.I): same
// logical schema, field order irrelevant, canonically equivalent
// ContinuationState on round-trip. The zero value is ready to use.
type JSONCodec struct{}

// wire DTOs — exported fields only so encoding/json can see them; values.Value
// and frame.FrameRecord keep their fields private/pointer-linked, so this is
// the translation layer between "in-memory shape" and "JSON shape."

type jsonState struct {
	Version      uint32       `json:"version"`
	YieldedValue jsonAnyValue `json:"yielded_value"`
	StackHead    *jsonFrame   `json:"stack_head,omitempty"`
}

type jsonFrame struct {
	MethodToken  int32          `json:"method_token"`
	YieldPointID int32          `json:"yield_point_id"`
	Slots        []jsonAnyValue `json:"slots"`
	Caller       *jsonFrame     `json:"caller,omitempty"`
}

// jsonAnyValue is tagged explicitly with the Kind name so the format is
// self-describing without relying on JSON's own (lossy, for e.g. int64 vs
// float64) type inference. ID/Ref are populated only for "array": ID marks
// the first occurrence of a shared backing slice (registered with
// objgraph.Tracker), Ref points back to it on every later occurrence
// instead of repeating Elems — the JSON sibling of BinaryCodec's
// back-reference scheme.
type jsonAnyValue struct {
	Kind  string         `json:"kind"`
	Value any            `json:"value,omitempty"`
	Elems []jsonAnyValue `json:"elements,omitempty"`
	ID    *int64         `json:"id,omitempty"`
	Ref   *int64         `json:"ref,omitempty"`
}

// Serialize converts state to its JSON form.
func (JSONCodec) Serialize(state frame.ContinuationState) ([]byte, error) {
	objects := objgraph.New()
	yv, err := valueToJSON(state.YieldedValue, objects)
	if err != nil {
		return nil, err
	}
	head, err := frameToJSON(state.StackHead, 0, objects)
	if err != nil {
		return nil, err
	}
	js := jsonState{Version: state.Version, YieldedValue: yv, StackHead: head}
	return json.Marshal(js)
}

// Deserialize parses bytes produced by Serialize. The frame chain is
// reconstructed by walking the already-unmarshaled jsonFrame tree with a
// plain loop (JSON unmarshaling itself recurses per object, bounded only by
// Go's stack and the caller's own input size — the iterative-reconstruction
// guarantee below is about avoiding *our* additional recursive walk, not
// encoding/json's).
func (JSONCodec) Deserialize(data []byte) (frame.ContinuationState, error) {
	var js jsonState
	if err := json.Unmarshal(data, &js); err != nil {
		return frame.ContinuationState{}, err
	}
	objects := objgraph.New()
	yv, err := valueFromJSON(js.YieldedValue, 0, objects)
	if err != nil {
		return frame.ContinuationState{}, err
	}
	head, err := frameFromJSON(js.StackHead, objects)
	if err != nil {
		return frame.ContinuationState{}, err
	}
	return frame.ContinuationState{Version: js.Version, StackHead: head, YieldedValue: yv}, nil
}

func valueToJSON(v values.Value, objects *objgraph.Tracker) (jsonAnyValue, error) {
	switch v.Kind {
	case values.KindNull:
		return jsonAnyValue{Kind: "null"}, nil
	case values.KindBool:
		return jsonAnyValue{Kind: "bool", Value: v.Bool()}, nil
	case values.KindInt8, values.KindInt16, values.KindInt32, values.KindInt64, values.KindChar:
		return jsonAnyValue{Kind: v.Kind.String(), Value: v.Int()}, nil
	case values.KindUint8, values.KindUint16, values.KindUint32, values.KindUint64:
		return jsonAnyValue{Kind: v.Kind.String(), Value: v.Uint()}, nil
	case values.KindFloat32:
		return jsonAnyValue{Kind: "float32", Value: v.Float32()}, nil
	case values.KindFloat64:
		return jsonAnyValue{Kind: "float64", Value: v.Float64()}, nil
	case values.KindDecimal:
		d := v.DecimalVal()
		return jsonAnyValue{Kind: "decimal", Value: map[string]any{"unscaled": d.Unscaled, "scale": d.Scale}}, nil
	case values.KindString:
		return jsonAnyValue{Kind: "string", Value: v.Str()}, nil
	case values.KindTimestamp:
		return jsonAnyValue{Kind: "timestamp", Value: v.Time().UTC().Format(time.RFC3339Nano)}, nil
	case values.KindDuration:
		return jsonAnyValue{Kind: "duration", Value: int64(v.Dur())}, nil
	case values.KindUUID:
		return jsonAnyValue{Kind: "uuid", Value: v.UUIDVal().String()}, nil
	case values.KindEnum:
		e := v.EnumVal()
		return jsonAnyValue{Kind: "enum", Value: map[string]any{"type_name": e.TypeName, "ordinal": e.Ordinal}}, nil
	case values.KindArray:
		id, isNew := objects.TryRegister(arrayIdentity(v.Elements))
		if !isNew {
			return jsonAnyValue{Kind: "array", Ref: &id}, nil
		}
		elems := make([]jsonAnyValue, len(v.Elements))
		for i, e := range v.Elements {
			je, err := valueToJSON(e, objects)
			if err != nil {
				return jsonAnyValue{}, err
			}
			elems[i] = je
		}
		return jsonAnyValue{Kind: "array", ID: &id, Elems: elems}, nil
	default:
		return jsonAnyValue{}, &DisallowedTypeError{Context: "encode value", Tag: byte(v.Kind)}
	}
}

func valueFromJSON(j jsonAnyValue, depth int, objects *objgraph.Tracker) (values.Value, error) {
	if depth >= maxArrayDepth {
		return values.Value{}, ErrLimitExceeded
	}
	switch j.Kind {
	case "", "null":
		return values.Null(), nil
	case "bool":
		b, _ := j.Value.(bool)
		return values.Bool(b), nil
	case "int8":
		return values.Int8(int8(asInt64(j.Value))), nil
	case "int16":
		return values.Int16(int16(asInt64(j.Value))), nil
	case "int32":
		return values.Int32(int32(asInt64(j.Value))), nil
	case "int64":
		return values.Int64(asInt64(j.Value)), nil
	case "char":
		return values.Char(rune(asInt64(j.Value))), nil
	case "uint8":
		return values.Uint8(uint8(asInt64(j.Value))), nil
	case "uint16":
		return values.Uint16(uint16(asInt64(j.Value))), nil
	case "uint32":
		return values.Uint32(uint32(asInt64(j.Value))), nil
	case "uint64":
		return values.Uint64(uint64(asInt64(j.Value))), nil
	case "float32":
		f, _ := j.Value.(float64)
		return values.Float32(float32(f)), nil
	case "float64":
		f, _ := j.Value.(float64)
		return values.Float64(f), nil
	case "decimal":
		m, _ := j.Value.(map[string]any)
		unscaled, _ := m["unscaled"].(string)
		scale := asInt64(m["scale"])
		return values.DecimalValue(values.Decimal{Unscaled: unscaled, Scale: uint8(scale)}), nil
	case "string":
		s, _ := j.Value.(string)
		return values.String(s), nil
	case "timestamp":
		s, _ := j.Value.(string)
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return values.Value{}, fmt.Errorf("decode timestamp: %w", err)
		}
		return values.Timestamp(t.UTC()), nil
	case "duration":
		return values.Duration(time.Duration(asInt64(j.Value))), nil
	case "uuid":
		s, _ := j.Value.(string)
		id, err := uuid.Parse(s)
		if err != nil {
			return values.Value{}, fmt.Errorf("decode uuid: %w", err)
		}
		return values.UUID(id), nil
	case "enum":
		m, _ := j.Value.(map[string]any)
		name, _ := m["type_name"].(string)
		ordinal := asInt64(m["ordinal"])
		return values.EnumValue(values.Enum{TypeName: name, Ordinal: ordinal}), nil
	case "array":
		if j.Ref != nil {
			obj, found := objects.Lookup(*j.Ref)
			if !found {
				return values.Value{}, &objgraph.MalformedObjectGraphError{ID: *j.Ref, Reason: "back-reference to an id never registered"}
			}
			elems, _ := obj.([]values.Value)
			return values.Array(elems...), nil
		}
		if len(j.Elems) > maxArrayLen {
			return values.Value{}, ErrLimitExceeded
		}
		elems := make([]values.Value, len(j.Elems))
		for i, je := range j.Elems {
			v, err := valueFromJSON(je, depth+1, objects)
			if err != nil {
				return values.Value{}, err
			}
			elems[i] = v
		}
		if j.ID != nil {
			if err := objects.RegisterDeserialized(*j.ID, elems); err != nil {
				return values.Value{}, err
			}
		}
		return values.Array(elems...), nil
	default:
		return values.Value{}, &DisallowedTypeError{Context: "decode value", Tag: 0xFF}
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func frameToJSON(f *frame.FrameRecord, depth int, objects *objgraph.Tracker) (*jsonFrame, error) {
	if f == nil {
		return nil, nil
	}
	if depth > maxFrameCount {
		return nil, ErrMalformedChain
	}
	slots := make([]jsonAnyValue, len(f.Slots))
	for i, s := range f.Slots {
		js, err := valueToJSON(s, objects)
		if err != nil {
			return nil, err
		}
		slots[i] = js
	}
	caller, err := frameToJSON(f.Caller, depth+1, objects)
	if err != nil {
		return nil, err
	}
	return &jsonFrame{
		MethodToken:  f.MethodToken,
		YieldPointID: f.YieldPointID,
		Slots:        slots,
		Caller:       caller,
	}, nil
}

// frameFromJSON rebuilds the FrameRecord chain with a plain loop over the
// already-unmarshaled jsonFrame tree, not by recursing frame-by-frame, so an
// attacker-supplied chain's depth cannot grow our own call stack (spec
// §4.I's iterative-reconstruction requirement).
func frameFromJSON(head *jsonFrame, objects *objgraph.Tracker) (*frame.FrameRecord, error) {
	var chain []*jsonFrame
	for jf := head; jf != nil; jf = jf.Caller {
		chain = append(chain, jf)
		if len(chain) > maxFrameCount {
			return nil, ErrMalformedChain
		}
	}
	records := make([]*frame.FrameRecord, len(chain))
	for i, jf := range chain {
		slots := make([]values.Value, len(jf.Slots))
		for k, js := range jf.Slots {
			v, err := valueFromJSON(js, 0, objects)
			if err != nil {
				return nil, err
			}
			slots[k] = v
		}
		records[i] = &frame.FrameRecord{MethodToken: jf.MethodToken, YieldPointID: jf.YieldPointID, Slots: slots}
	}
	for i := 0; i+1 < len(records); i++ {
		records[i].Caller = records[i+1]
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
