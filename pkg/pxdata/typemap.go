package pxdata

import "github.com/pxbase/pxread/pkg/pxfile"

// Category is the host storage class a field maps to. It is fixed when
// the column is allocated and never changes while populating.
type Category int

const (
	CategoryInteger Category = iota
	CategoryReal
	CategoryBoolean
	CategoryText
	CategoryBinary
)

func (c Category) String() string {
	switch c {
	case CategoryInteger:
		return "integer"
	case CategoryReal:
		return "real"
	case CategoryBoolean:
		return "boolean"
	case CategoryText:
		return "text"
	case CategoryBinary:
		return "binary"
	default:
		return "invalid"
	}
}

// Semantic is the presentation meaning of a real column's numbers. It is
// attached after the column is filled.
type Semantic int

const (
	SemanticNone Semantic = iota
	// SemanticDate: days since 1970-01-01.
	SemanticDate
	// SemanticTimeOfDay: seconds since midnight.
	SemanticTimeOfDay
	// SemanticTimestamp: seconds since 1970-01-01 UTC.
	SemanticTimestamp
)

func (s Semantic) String() string {
	switch s {
	case SemanticDate:
		return "date"
	case SemanticTimeOfDay:
		return "time"
	case SemanticTimestamp:
		return "timestamp"
	default:
		return ""
	}
}

// categoryOf classifies a field type code. The second result reports
// whether the code was recognized; unrecognized codes fall back to text so
// exotic or future codes never abort a parse.
func categoryOf(t pxfile.FieldType) (Category, bool) {
	switch t {
	case pxfile.TypeShort, pxfile.TypeLong, pxfile.TypeAutoInc:
		return CategoryInteger, true
	case pxfile.TypeNumber, pxfile.TypeCurrency, pxfile.TypeDate, pxfile.TypeTime, pxfile.TypeTimestamp:
		return CategoryReal, true
	case pxfile.TypeLogical:
		return CategoryBoolean, true
	case pxfile.TypeAlpha, pxfile.TypeBCD, pxfile.TypeMemoBlob, pxfile.TypeFmtMemo:
		return CategoryText, true
	case pxfile.TypeBlob, pxfile.TypeOLE, pxfile.TypeGraphic, pxfile.TypeBytes:
		return CategoryBinary, true
	default:
		return CategoryText, false
	}
}

// semanticOf returns the presentation meaning attached after fill.
func semanticOf(t pxfile.FieldType) Semantic {
	switch t {
	case pxfile.TypeDate:
		return SemanticDate
	case pxfile.TypeTime:
		return SemanticTimeOfDay
	case pxfile.TypeTimestamp:
		return SemanticTimestamp
	default:
		return SemanticNone
	}
}

// Column is one field's values in a single host category. Length equals
// the record count; Valid marks present cells (binary columns additionally
// keep nil elements for absent cells).
type Column struct {
	Name     string
	Type     pxfile.FieldType
	Category Category
	Semantic Semantic

	Ints    []int64
	Reals   []float64
	Bools   []bool
	Strings []string
	Blobs   [][]byte
	Valid   []bool
}

// newColumn allocates the container for one field. Unrecognized type
// codes warn and map to text.
func newColumn(f pxfile.Field, records int) *Column {
	cat, known := categoryOf(f.Type)
	if !known {
		logger.Warnf("field %q has unrecognized type code %d, mapping to text", f.Name, int(f.Type))
	}

	c := &Column{
		Name:     f.Name,
		Type:     f.Type,
		Category: cat,
		Valid:    make([]bool, records),
	}
	switch cat {
	case CategoryInteger:
		c.Ints = make([]int64, records)
	case CategoryReal:
		c.Reals = make([]float64, records)
	case CategoryBoolean:
		c.Bools = make([]bool, records)
	case CategoryText:
		c.Strings = make([]string, records)
	case CategoryBinary:
		c.Blobs = make([][]byte, records)
	}
	return c
}

// Len returns the column length.
func (c *Column) Len() int {
	return len(c.Valid)
}

// IsNull reports whether the cell at row i is absent.
func (c *Column) IsNull(i int) bool {
	return !c.Valid[i]
}

// Cell returns the value at row i as a generic scalar (int64, float64,
// bool, string or []byte), or nil for an absent cell.
func (c *Column) Cell(i int) interface{} {
	if !c.Valid[i] {
		return nil
	}
	switch c.Category {
	case CategoryInteger:
		return c.Ints[i]
	case CategoryReal:
		return c.Reals[i]
	case CategoryBoolean:
		return c.Bools[i]
	case CategoryText:
		return c.Strings[i]
	case CategoryBinary:
		return c.Blobs[i]
	default:
		return nil
	}
}

// place stores one decoded cell at row i. The column's category decides
// which payload of the cell applies.
func (c *Column) place(i int, v cell) {
	if v.absent {
		return
	}
	c.Valid[i] = true
	switch c.Category {
	case CategoryInteger:
		c.Ints[i] = v.intVal
	case CategoryReal:
		c.Reals[i] = v.realVal
	case CategoryBoolean:
		c.Bools[i] = v.boolVal
	case CategoryText:
		c.Strings[i] = v.strVal
	case CategoryBinary:
		c.Blobs[i] = v.rawVal
	}
}
