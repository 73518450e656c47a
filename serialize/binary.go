package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/klauspost/compress/lz4"

	"github.com/wudi/continuum/frame"
	"github.com/wudi/continuum/objgraph"
	"github.com/wudi/continuum/values"
)

// BinaryCodec implements the wire format of spec §4.I: a little-endian
// binary encoding wrapped in an outer LZ4 frame. Fields are written in a
// fixed order with no per-field keys; only values carry a Kind tag. The zero
// value is ready to use.
type BinaryCodec struct{}

// Serialize converts state to its compressed wire form, rejecting any value
// whose dynamic type is outside the closed AnyValue set.
func (BinaryCodec) Serialize(state frame.ContinuationState) ([]byte, error) {
	var raw bytes.Buffer
	w := &binWriter{buf: &raw, objects: objgraph.New()}

	w.writeU32(state.Version)
	if err := w.writeValue(state.YieldedValue); err != nil {
		return nil, err
	}
	if err := w.writeFrameChain(state.StackHead); err != nil {
		return nil, err
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("serialize: lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("serialize: lz4 close: %w", err)
	}
	return compressed.Bytes(), nil
}

// Deserialize decompresses and parses bytes produced by Serialize (or any
// equivalently-shaped producer), reconstructing the FrameRecord chain
// iteratively — never by recursing on caller links, per spec §4.I.
func (BinaryCodec) Deserialize(data []byte) (frame.ContinuationState, error) {
	zr := lz4.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return frame.ContinuationState{}, fmt.Errorf("deserialize: lz4 decompress: %w", err)
	}

	r := &binReader{data: raw, objects: objgraph.New()}
	version, err := r.readU32()
	if err != nil {
		return frame.ContinuationState{}, err
	}

	yielded, err := r.readValue(0)
	if err != nil {
		return frame.ContinuationState{}, err
	}

	head, err := r.readFrameChain()
	if err != nil {
		return frame.ContinuationState{}, err
	}

	return frame.ContinuationState{Version: version, StackHead: head, YieldedValue: yielded}, nil
}

// --- writer ---

// binWriter holds one Serialize call's objgraph.Tracker alongside its output
// buffer, so repeated KindArray values sharing a backing slice are written
// once and back-referenced thereafter (spec §4.K's identity-stable
// round-trip, applied to the one place this codec's AnyValue closure allows
// a shared, pointer-bearing sub-structure to exist).
type binWriter struct {
	buf     *bytes.Buffer
	objects *objgraph.Tracker
}

func (w *binWriter) writeByte(b byte) { w.buf.WriteByte(b) }

func (w *binWriter) writeU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeI32(v int32) { w.writeU32(uint32(v)) }

func (w *binWriter) writeU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) writeI64(v int64) { w.writeU64(uint64(v)) }

func (w *binWriter) writeBlob(b []byte) {
	w.writeU32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *binWriter) writeValue(v values.Value) error {
	w.writeByte(byte(v.Kind))
	switch v.Kind {
	case values.KindNull:
		// no payload
	case values.KindBool:
		if v.Bool() {
			w.writeByte(1)
		} else {
			w.writeByte(0)
		}
	case values.KindInt8, values.KindInt16, values.KindInt32, values.KindInt64, values.KindChar:
		w.writeI64(v.Int())
	case values.KindUint8, values.KindUint16, values.KindUint32, values.KindUint64:
		w.writeU64(v.Uint())
	case values.KindFloat32:
		w.writeU32(math.Float32bits(v.Float32()))
	case values.KindFloat64:
		w.writeU64(math.Float64bits(v.Float64()))
	case values.KindDecimal:
		d := v.DecimalVal()
		w.writeBlob([]byte(d.Unscaled))
		w.writeByte(d.Scale)
	case values.KindString:
		w.writeBlob([]byte(v.Str()))
	case values.KindTimestamp:
		w.writeI64(v.Time().UnixNano())
	case values.KindDuration:
		w.writeI64(int64(v.Dur()))
	case values.KindUUID:
		id := v.UUIDVal()
		w.buf.Write(id[:])
	case values.KindEnum:
		e := v.EnumVal()
		w.writeBlob([]byte(e.TypeName))
		w.writeI64(e.Ordinal)
	case values.KindArray:
		id, isNew := w.objects.TryRegister(arrayIdentity(v.Elements))
		if !isNew {
			w.writeByte(0)
			w.writeU64(uint64(id))
			return nil
		}
		w.writeByte(1)
		w.writeU64(uint64(id))
		w.writeU32(uint32(len(v.Elements)))
		for _, e := range v.Elements {
			if err := w.writeValue(e); err != nil {
				return err
			}
		}
	default:
		return &DisallowedTypeError{Context: "encode value", Tag: byte(v.Kind)}
	}
	return nil
}

// writeFrameChain walks head.Caller.Caller... (an ordinary loop, not
// recursion — the chain is already a flat linked list) and writes it as a
// count-prefixed, head-first (outermost-first) sequence.
func (w *binWriter) writeFrameChain(head *frame.FrameRecord) error {
	var frames []*frame.FrameRecord
	for f := head; f != nil; f = f.Caller {
		frames = append(frames, f)
		if len(frames) > maxFrameCount {
			return ErrMalformedChain
		}
	}
	w.writeU32(uint32(len(frames)))
	for _, f := range frames {
		w.writeI32(f.MethodToken)
		w.writeI32(f.YieldPointID)
		w.writeU32(uint32(len(f.Slots)))
		for _, s := range f.Slots {
			if err := w.writeValue(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- reader ---

type binReader struct {
	data    []byte
	pos     int
	objects *objgraph.Tracker
}

func (r *binReader) need(n int) error {
	if len(r.data)-r.pos < n {
		return ErrTruncated
	}
	return nil
}

func (r *binReader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *binReader) readU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *binReader) readI32() (int32, error) {
	v, err := r.readU32()
	return int32(v), err
}

func (r *binReader) readU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *binReader) readI64() (int64, error) {
	v, err := r.readU64()
	return int64(v), err
}

func (r *binReader) readBlob() ([]byte, error) {
	n, err := r.readU32()
	if err != nil {
		return nil, err
	}
	if n > maxBlobLen {
		return nil, ErrLimitExceeded
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *binReader) readValue(depth int) (values.Value, error) {
	tag, err := r.readByte()
	if err != nil {
		return values.Value{}, err
	}
	kind := values.Kind(tag)
	switch kind {
	case values.KindNull:
		return values.Null(), nil
	case values.KindBool:
		b, err := r.readByte()
		if err != nil {
			return values.Value{}, err
		}
		return values.Bool(b != 0), nil
	case values.KindInt8:
		v, err := r.readI64()
		return values.Int8(int8(v)), err
	case values.KindInt16:
		v, err := r.readI64()
		return values.Int16(int16(v)), err
	case values.KindInt32:
		v, err := r.readI64()
		return values.Int32(int32(v)), err
	case values.KindInt64:
		v, err := r.readI64()
		return values.Int64(v), err
	case values.KindChar:
		v, err := r.readI64()
		return values.Char(rune(v)), err
	case values.KindUint8:
		v, err := r.readU64()
		return values.Uint8(uint8(v)), err
	case values.KindUint16:
		v, err := r.readU64()
		return values.Uint16(uint16(v)), err
	case values.KindUint32:
		v, err := r.readU64()
		return values.Uint32(uint32(v)), err
	case values.KindUint64:
		v, err := r.readU64()
		return values.Uint64(v), err
	case values.KindFloat32:
		v, err := r.readU32()
		if err != nil {
			return values.Value{}, err
		}
		return values.Float32(math.Float32frombits(v)), nil
	case values.KindFloat64:
		v, err := r.readU64()
		if err != nil {
			return values.Value{}, err
		}
		return values.Float64(math.Float64frombits(v)), nil
	case values.KindDecimal:
		digits, err := r.readBlob()
		if err != nil {
			return values.Value{}, err
		}
		scale, err := r.readByte()
		if err != nil {
			return values.Value{}, err
		}
		return values.DecimalValue(values.Decimal{Unscaled: string(digits), Scale: scale}), nil
	case values.KindString:
		b, err := r.readBlob()
		if err != nil {
			return values.Value{}, err
		}
		return values.String(string(b)), nil
	case values.KindTimestamp:
		v, err := r.readI64()
		if err != nil {
			return values.Value{}, err
		}
		return values.Timestamp(time.Unix(0, v).UTC()), nil
	case values.KindDuration:
		v, err := r.readI64()
		return values.Duration(time.Duration(v)), err
	case values.KindUUID:
		if err := r.need(16); err != nil {
			return values.Value{}, err
		}
		var id [16]byte
		copy(id[:], r.data[r.pos:r.pos+16])
		r.pos += 16
		return values.UUID(id), nil
	case values.KindEnum:
		name, err := r.readBlob()
		if err != nil {
			return values.Value{}, err
		}
		ordinal, err := r.readI64()
		if err != nil {
			return values.Value{}, err
		}
		return values.EnumValue(values.Enum{TypeName: string(name), Ordinal: ordinal}), nil
	case values.KindArray:
		isNew, err := r.readByte()
		if err != nil {
			return values.Value{}, err
		}
		id, err := r.readU64()
		if err != nil {
			return values.Value{}, err
		}
		if isNew == 0 {
			obj, found := r.objects.Lookup(int64(id))
			if !found {
				return values.Value{}, &objgraph.MalformedObjectGraphError{ID: int64(id), Reason: "back-reference to an id never registered"}
			}
			elems, _ := obj.([]values.Value)
			return values.Array(elems...), nil
		}

		if depth >= maxArrayDepth {
			return values.Value{}, ErrLimitExceeded
		}
		n, err := r.readU32()
		if err != nil {
			return values.Value{}, err
		}
		if n > maxArrayLen {
			return values.Value{}, ErrLimitExceeded
		}
		elems := make([]values.Value, 0, min(int(n), 1024))
		for i := uint32(0); i < n; i++ {
			e, err := r.readValue(depth + 1)
			if err != nil {
				return values.Value{}, err
			}
			elems = append(elems, e)
		}
		if err := r.objects.RegisterDeserialized(int64(id), elems); err != nil {
			return values.Value{}, err
		}
		return values.Array(elems...), nil
	default:
		return values.Value{}, &DisallowedTypeError{Context: "decode value", Tag: tag}
	}
}

// readFrameChain reads the count-prefixed, head-first frame sequence
// and links it into a caller chain with a plain loop (iterative
// reconstruction, per spec §4.I — no recursion on caller links regardless
// of how deep an attacker-supplied chain claims to be).
func (r *binReader) readFrameChain() (*frame.FrameRecord, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	if count > maxFrameCount {
		return nil, ErrLimitExceeded
	}

	records := make([]*frame.FrameRecord, count)
	for i := uint32(0); i < count; i++ {
		token, err := r.readI32()
		if err != nil {
			return nil, err
		}
		yp, err := r.readI32()
		if err != nil {
			return nil, err
		}
		slotCount, err := r.readU32()
		if err != nil {
			return nil, err
		}
		if slotCount > maxArrayLen {
			return nil, ErrLimitExceeded
		}
		slots := make([]values.Value, 0, min(int(slotCount), 1024))
		for j := uint32(0); j < slotCount; j++ {
			v, err := r.readValue(0)
			if err != nil {
				return nil, err
			}
			slots = append(slots, v)
		}
		records[i] = &frame.FrameRecord{MethodToken: token, YieldPointID: yp, Slots: slots}
	}
	for i := 0; i+1 < len(records); i++ {
		records[i].Caller = records[i+1]
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}
