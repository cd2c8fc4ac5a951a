package pxfile

// FieldType is the on-disk Paradox field type code.
type FieldType int

// Paradox field type codes.
const (
	TypeAlpha     FieldType = 0x01
	TypeDate      FieldType = 0x02
	TypeShort     FieldType = 0x03
	TypeLong      FieldType = 0x04
	TypeCurrency  FieldType = 0x05
	TypeNumber    FieldType = 0x06
	TypeLogical   FieldType = 0x09
	TypeMemoBlob  FieldType = 0x0C
	TypeBlob      FieldType = 0x0D
	TypeFmtMemo   FieldType = 0x0E
	TypeOLE       FieldType = 0x0F
	TypeGraphic   FieldType = 0x10
	TypeTime      FieldType = 0x14
	TypeTimestamp FieldType = 0x15
	TypeAutoInc   FieldType = 0x16
	TypeBCD       FieldType = 0x17
	TypeBytes     FieldType = 0x18
)

// String returns the short name used in field listings.
func (t FieldType) String() string {
	switch t {
	case TypeAlpha:
		return "alpha"
	case TypeDate:
		return "date"
	case TypeShort:
		return "short"
	case TypeLong:
		return "long"
	case TypeCurrency:
		return "currency"
	case TypeNumber:
		return "number"
	case TypeLogical:
		return "logical"
	case TypeMemoBlob:
		return "memo"
	case TypeBlob:
		return "blob"
	case TypeFmtMemo:
		return "fmtmemo"
	case TypeOLE:
		return "ole"
	case TypeGraphic:
		return "graphic"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	case TypeAutoInc:
		return "autoinc"
	case TypeBCD:
		return "bcd"
	case TypeBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Field describes one column of a Paradox table: its name, declared type
// code and declared size. Field values are only meaningful while the Doc
// that produced them is open.
type Field struct {
	Name string
	Type FieldType
	Size int
}

// storageSize is the number of bytes the field occupies inside a record.
// BCD fields always occupy 17 bytes regardless of their declared decimal
// count; every other type stores exactly its declared size.
func (f Field) storageSize() int {
	if f.Type == TypeBCD {
		return bcdStorageSize
	}
	return f.Size
}

const bcdStorageSize = 17
