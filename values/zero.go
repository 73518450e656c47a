package values

import (
	"time"

	"github.com/google/uuid"
)

// ZeroOf returns the zero value for kind k, used by get_slot<T> when the
// stored slot is null (spec §4.C).
func ZeroOf(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt8:
		return Int8(0)
	case KindInt16:
		return Int16(0)
	case KindInt32:
		return Int32(0)
	case KindInt64:
		return Int64(0)
	case KindUint8:
		return Uint8(0)
	case KindUint16:
		return Uint16(0)
	case KindUint32:
		return Uint32(0)
	case KindUint64:
		return Uint64(0)
	case KindFloat32:
		return Float32(0)
	case KindFloat64:
		return Float64(0)
	case KindDecimal:
		return DecimalValue(Decimal{Unscaled: "0"})
	case KindChar:
		return Char(0)
	case KindString:
		return String("")
	case KindTimestamp:
		return Timestamp(time.Time{})
	case KindDuration:
		return Duration(0)
	case KindUUID:
		return UUID(uuid.Nil)
	case KindEnum:
		return EnumValue(Enum{})
	case KindArray:
		return Array()
	default:
		return Null()
	}
}
