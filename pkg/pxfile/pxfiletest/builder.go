// Package pxfiletest builds small Paradox table files for tests. It is the
// writing counterpart of pkg/pxfile's reader and exists only as test
// support; the reader is the product.
package pxfiletest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pxbase/pxread/pkg/pxfile"
)

// Builder assembles a table file cell by cell.
type Builder struct {
	fields     []pxfile.Field
	rows       [][]byte
	encryption uint32
	codepage   int
	blob       []byte
	hasBlob    bool
}

// New returns an empty table builder.
func New() *Builder {
	return &Builder{}
}

// Field appends a field descriptor.
func (b *Builder) Field(name string, t pxfile.FieldType, size int) *Builder {
	b.fields = append(b.fields, pxfile.Field{Name: name, Type: t, Size: size})
	return b
}

// Encrypt marks the table as password protected.
func (b *Builder) Encrypt(password string) *Builder {
	b.encryption = pxfile.PasswordChecksum(password)
	return b
}

// Codepage sets the header's DOS codepage number.
func (b *Builder) Codepage(n int) *Builder {
	b.codepage = n
	return b
}

// Row appends one record built from per-field cells. The number of cells
// must match the number of fields declared so far.
func (b *Builder) Row(cells ...[]byte) *Builder {
	if len(cells) != len(b.fields) {
		panic(fmt.Sprintf("row has %d cells, table has %d fields", len(cells), len(b.fields)))
	}
	var rec []byte
	for i, c := range cells {
		want := storageSize(b.fields[i])
		if len(c) != want {
			panic(fmt.Sprintf("field %s: cell is %d bytes, want %d", b.fields[i].Name, len(c), want))
		}
		rec = append(rec, c...)
	}
	b.rows = append(b.rows, rec)
	return b
}

// Write writes the .db file (and the .MB side file when any blob cell was
// added) into dir and returns both paths; mbPath is empty when no side
// file was produced.
func (b *Builder) Write(dir, name string) (dbPath, mbPath string, err error) {
	recordSize := 0
	for _, f := range b.fields {
		recordSize += storageSize(f)
	}

	block := make([]byte, 0x800)
	binary.LittleEndian.PutUint16(block[0x00:], uint16(recordSize))
	binary.LittleEndian.PutUint16(block[0x02:], 2) // header size in KiB
	binary.LittleEndian.PutUint32(block[0x06:], uint32(len(b.rows)))
	binary.LittleEndian.PutUint16(block[0x21:], uint16(len(b.fields)))
	binary.LittleEndian.PutUint32(block[0x25:], b.encryption)
	binary.LittleEndian.PutUint16(block[0x6A:], uint16(b.codepage))

	for i, f := range b.fields {
		block[0x78+2*i] = byte(f.Type)
		block[0x78+2*i+1] = byte(f.Size)
	}
	pos := 0x220
	for _, f := range b.fields {
		copy(block[pos:], f.Name)
		pos += len(f.Name) + 1
	}

	data := block
	for _, rec := range b.rows {
		data = append(data, rec...)
	}

	dbPath = filepath.Join(dir, name+".db")
	if err := os.WriteFile(dbPath, data, 0644); err != nil {
		return "", "", err
	}

	if b.hasBlob {
		mbPath = filepath.Join(dir, name+".mb")
		if err := os.WriteFile(mbPath, b.blob, 0644); err != nil {
			return "", "", err
		}
	}
	return dbPath, mbPath, nil
}

// Null returns an all-zero cell for the i-th declared field.
func (b *Builder) Null(i int) []byte {
	return make([]byte, storageSize(b.fields[i]))
}

// Alpha encodes a fixed-width text cell, NUL-padded.
func Alpha(size int, s string) []byte {
	cell := make([]byte, size)
	copy(cell, s)
	return cell
}

// Short encodes a 16-bit integer cell.
func Short(v int16) []byte {
	cell := make([]byte, 2)
	binary.LittleEndian.PutUint16(cell, uint16(v))
	return cell
}

// Long encodes a 32-bit integer cell (long and autoincrement fields).
func Long(v int32) []byte {
	cell := make([]byte, 4)
	binary.LittleEndian.PutUint32(cell, uint32(v))
	return cell
}

// Number encodes a floating number cell (number and currency fields).
func Number(v float64) []byte {
	cell := make([]byte, 8)
	binary.LittleEndian.PutUint64(cell, math.Float64bits(v))
	return cell
}

// Logical encodes a boolean cell.
func Logical(v bool) []byte {
	if v {
		return []byte{0x81}
	}
	return []byte{0x80}
}

// Date encodes a days-since-1899-12-30 cell.
func Date(days int32) []byte {
	return Long(days)
}

// Time encodes a milliseconds-since-midnight cell.
func Time(ms int32) []byte {
	return Long(ms)
}

// Timestamp encodes a milliseconds-since-1899-12-30 cell.
func Timestamp(ms float64) []byte {
	return Number(ms)
}

// Bytes encodes an inline binary cell of the given width.
func Bytes(size int, data []byte) []byte {
	cell := make([]byte, size)
	copy(cell, data)
	return cell
}

// BCD encodes a packed decimal cell. digits must contain only the digits
// themselves, fractional part last, without a decimal point; the declared
// field size decides where the point lands on read.
func BCD(negative bool, digits string) []byte {
	cell := make([]byte, 17)
	if !negative {
		cell[0] = 0x80
	}
	// Digits pack two per byte, right-aligned.
	di := len(digits) - 1
	for i := 16; i > 0 && di >= 0; i-- {
		cell[i] = digits[di] - '0'
		di--
		if di >= 0 {
			cell[i] |= (digits[di] - '0') << 4
			di--
		}
	}
	return cell
}

// BlankBCD encodes the all-blank BCD cell.
func BlankBCD() []byte {
	cell := make([]byte, 17)
	for i := range cell {
		cell[i] = 0xFF
	}
	return cell
}

// Blob stores data in the side file and encodes a cell of the given width
// pointing at it. The cell's inline prefix (everything before the trailing
// 8-byte pointer) is left empty.
func (b *Builder) Blob(size int, data []byte) []byte {
	b.hasBlob = true
	offset := len(b.blob)
	b.blob = append(b.blob, data...)

	cell := make([]byte, size)
	binary.LittleEndian.PutUint32(cell[size-8:], uint32(offset))
	binary.LittleEndian.PutUint32(cell[size-4:], uint32(len(data)))
	return cell
}

// EmptyBlob encodes a blob cell with a nonzero offset and zero length: the
// backend produces an empty (but non-nil) buffer for it.
func (b *Builder) EmptyBlob(size int) []byte {
	b.hasBlob = true
	cell := make([]byte, size)
	binary.LittleEndian.PutUint32(cell[size-8:], 1)
	return cell
}

func storageSize(f pxfile.Field) int {
	if f.Type == pxfile.TypeBCD {
		return 17
	}
	return f.Size
}
