package pxdata

import "github.com/pxbase/pxread/pkg/pxfile"

// Epoch re-basing between the Paradox origin (1899-12-30) and the Unix
// origin (1970-01-01).
const (
	epochOffsetDays    = 719163
	epochOffsetSeconds = epochOffsetDays * 86400
)

// bcdBlankSentinel is the string a backend produces for an all-blank
// binary-coded-decimal cell; it decodes to absent.
const bcdBlankSentinel = "-??????????????????????????.??????"

// cell is one decoded value, either absent or exactly one scalar.
type cell struct {
	absent  bool
	intVal  int64
	realVal float64
	boolVal bool
	strVal  string
	rawVal  []byte
}

var absentCell = cell{absent: true}

// decodeValue converts one raw typed value into a cell. The raw value is
// released on every branch, including the ones that turn out absent; the
// deferred release is the single point where the backend gets its buffer
// back.
func (s *Session) decodeValue(v *pxfile.Value, t pxfile.FieldType) cell {
	defer v.Release()

	if v.Null {
		return absentCell
	}

	switch t {
	case pxfile.TypeAlpha:
		if v.Buf == nil {
			return absentCell
		}
		return cell{strVal: string(v.Buf)}

	case pxfile.TypeBCD:
		if v.Buf == nil || string(v.Buf) == bcdBlankSentinel {
			return absentCell
		}
		return cell{strVal: string(v.Buf)}

	case pxfile.TypeMemoBlob, pxfile.TypeFmtMemo:
		// Memo text is not NUL-terminated; the buffer's explicit length is
		// authoritative. An unresolved or empty buffer is absent.
		if len(v.Buf) == 0 {
			return absentCell
		}
		return cell{strVal: string(v.Buf)}

	case pxfile.TypeBytes:
		if v.Buf == nil {
			return absentCell
		}
		return cell{rawVal: copyBuf(v.Buf)}

	case pxfile.TypeBlob, pxfile.TypeOLE, pxfile.TypeGraphic:
		// A zero-length large object is absent even when a buffer was
		// produced; the deferred release still returns that buffer.
		if len(v.Buf) == 0 {
			return absentCell
		}
		return cell{rawVal: copyBuf(v.Buf)}

	case pxfile.TypeShort, pxfile.TypeLong, pxfile.TypeAutoInc:
		return cell{intVal: v.Int}

	case pxfile.TypeNumber, pxfile.TypeCurrency:
		return cell{realVal: v.Real}

	case pxfile.TypeLogical:
		return cell{boolVal: v.Int != 0}

	case pxfile.TypeDate:
		// Days since 1899-12-30. Non-positive counts and counts past the
		// blank sentinel bound are blank cells.
		if v.Int <= 0 || v.Int > s.dateUpperBound {
			return absentCell
		}
		return cell{realVal: float64(v.Int) - epochOffsetDays}

	case pxfile.TypeTime:
		// Milliseconds since midnight, presented as seconds.
		if v.Int < 0 {
			return absentCell
		}
		return cell{realVal: float64(v.Int) / 1000.0}

	case pxfile.TypeTimestamp:
		// Milliseconds since 1899-12-30, presented as seconds since the
		// Unix epoch. A raw zero is treated as blank even though it names
		// a representable instant; consumers depend on that reading.
		seconds := v.Real / 1000.0
		if v.Real == 0 || seconds < 0 {
			return absentCell
		}
		return cell{realVal: seconds - epochOffsetSeconds}

	default:
		logger.Warnf("unhandled field type code %d, returning absent", int(t))
		return absentCell
	}
}

func copyBuf(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
