// Package values implements AnyValue, the closed, allow-listed value type
// carried inside frame slots, yielded payloads, and the wire format. Nothing
// outside this package's Kind set may ever reach a serialized
// ContinuationState: that closure is what makes resuming an untrusted state
// safe to validate (see package validator).
package values

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the dynamic type of an AnyValue. The set is closed by
// design — spec §3 calls it "the allow-listed primitive set" — and every
// Kind here must have a matching entry in validator's default type allow-list
// and a wire tag in serialize's codec.
type Kind byte

const (
	KindNull Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindChar
	KindString
	KindTimestamp
	KindDuration
	KindUUID
	KindEnum
	KindArray
)

// String renders a Kind for diagnostics and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindDecimal:
		return "decimal"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindDuration:
		return "duration"
	case KindUUID:
		return "uuid"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Decimal is a simple base-10 fixed value: an arbitrary-precision digit
// string plus a scale, good enough to round-trip exactly through the wire
// format without pulling in an ecosystem decimal library (the corpus has
// none — see DESIGN.md).
type Decimal struct {
	Unscaled string // decimal digits, optionally preceded by '-'
	Scale    uint8  // number of digits after the decimal point
}

func (d Decimal) String() string {
	if d.Scale == 0 {
		return d.Unscaled
	}
	neg := false
	digits := d.Unscaled
	if len(digits) > 0 && digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}
	for len(digits) <= int(d.Scale) {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-int(d.Scale)]
	fracPart := digits[len(digits)-int(d.Scale):]
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%s", sign, intPart, fracPart)
}

// Enum is an enum value encoded as its underlying integral, carrying the
// declaring type's name so the validator can report a meaningful
// DisallowedType/SlotTypeMismatch.
type Enum struct {
	TypeName string
	Ordinal  int64
}

// Value is the AnyValue sum type. Exactly one of the typed fields is
// meaningful for a given Kind; Elements is populated only for KindArray.
type Value struct {
	Kind     Kind
	boolean  bool
	i64      int64
	u64      uint64
	f32      float32
	f64      float64
	str      string
	decimal  Decimal
	ts       time.Time
	dur      time.Duration
	id       uuid.UUID
	enum     Enum
	Elements []Value
}

func Null() Value                    { return Value{Kind: KindNull} }
func Bool(b bool) Value              { return Value{Kind: KindBool, boolean: b} }
func Int8(v int8) Value              { return Value{Kind: KindInt8, i64: int64(v)} }
func Int16(v int16) Value            { return Value{Kind: KindInt16, i64: int64(v)} }
func Int32(v int32) Value            { return Value{Kind: KindInt32, i64: int64(v)} }
func Int64(v int64) Value            { return Value{Kind: KindInt64, i64: v} }
func Uint8(v uint8) Value            { return Value{Kind: KindUint8, u64: uint64(v)} }
func Uint16(v uint16) Value          { return Value{Kind: KindUint16, u64: uint64(v)} }
func Uint32(v uint32) Value          { return Value{Kind: KindUint32, u64: uint64(v)} }
func Uint64(v uint64) Value          { return Value{Kind: KindUint64, u64: v} }
func Float32(v float32) Value        { return Value{Kind: KindFloat32, f32: v} }
func Float64(v float64) Value        { return Value{Kind: KindFloat64, f64: v} }
func DecimalValue(d Decimal) Value   { return Value{Kind: KindDecimal, decimal: d} }
func Char(r rune) Value              { return Value{Kind: KindChar, i64: int64(r)} }
func String(s string) Value          { return Value{Kind: KindString, str: s} }
func Timestamp(t time.Time) Value    { return Value{Kind: KindTimestamp, ts: t} }
func Duration(d time.Duration) Value { return Value{Kind: KindDuration, dur: d} }
func UUID(id uuid.UUID) Value        { return Value{Kind: KindUUID, id: id} }
func EnumValue(e Enum) Value         { return Value{Kind: KindEnum, enum: e} }
func Array(elems ...Value) Value     { return Value{Kind: KindArray, Elements: elems} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) Bool() bool          { return v.boolean }
func (v Value) Int() int64          { return v.i64 }
func (v Value) Uint() uint64        { return v.u64 }
func (v Value) Float32() float32    { return v.f32 }
func (v Value) Float64() float64    { return v.f64 }
func (v Value) Str() string         { return v.str }
func (v Value) DecimalVal() Decimal { return v.decimal }
func (v Value) Time() time.Time     { return v.ts }
func (v Value) Dur() time.Duration  { return v.dur }
func (v Value) UUIDVal() uuid.UUID  { return v.id }
func (v Value) EnumVal() Enum       { return v.enum }

// String renders the value for diagnostics; it is not the wire format.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.boolean)
	case KindInt8, KindInt16, KindInt32, KindInt64, KindChar:
		return fmt.Sprintf("%d", v.i64)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return fmt.Sprintf("%d", v.u64)
	case KindFloat32:
		return fmt.Sprintf("%g", v.f32)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f64)
	case KindDecimal:
		return v.decimal.String()
	case KindString:
		return v.str
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	case KindDuration:
		return v.dur.String()
	case KindUUID:
		return v.id.String()
	case KindEnum:
		return fmt.Sprintf("%s(%d)", v.enum.TypeName, v.enum.Ordinal)
	case KindArray:
		return fmt.Sprintf("array[%d]", len(v.Elements))
	default:
		return "?"
	}
}

// Equal reports deep, type-exact equality — used by round-trip tests (P1).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindInt8, KindInt16, KindInt32, KindInt64, KindChar:
		return a.i64 == b.i64
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return a.u64 == b.u64
	case KindFloat32:
		return a.f32 == b.f32
	case KindFloat64:
		return a.f64 == b.f64
	case KindDecimal:
		return a.decimal == b.decimal
	case KindString:
		return a.str == b.str
	case KindTimestamp:
		return a.ts.Equal(b.ts)
	case KindDuration:
		return a.dur == b.dur
	case KindUUID:
		return a.id == b.id
	case KindEnum:
		return a.enum == b.enum
	case KindArray:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
