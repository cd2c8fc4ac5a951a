package pxfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Logical cell encoding: the high bit marks a present value, the low bit
// carries it. A zero byte is a null cell.
const (
	logicalNull  = 0x00
	logicalFalse = 0x80
	logicalTrue  = 0x81
)

// bcdBlankSentinel is the string produced for an all-blank BCD cell. The
// consuming layer treats it as a null marker.
const bcdBlankSentinel = "-??????????????????????????.??????"

// RetrieveRecord reads record i (0-based) and decodes one raw value per
// field. Every returned value must be released by the caller, including
// null ones.
func (d *Doc) RetrieveRecord(i int) ([]*Value, error) {
	if d.file == nil {
		return nil, fmt.Errorf("document is not open")
	}
	if i < 0 || i >= d.header.numRecords {
		return nil, fmt.Errorf("record index %d out of range [0,%d)", i, d.header.numRecords)
	}

	data := make([]byte, d.recordSize)
	if _, err := d.file.ReadAt(data, d.dataStart+int64(i)*int64(d.recordSize)); err != nil {
		return nil, fmt.Errorf("failed to read record %d: %w", i, err)
	}

	values := make([]*Value, len(d.fields))
	offset := 0
	for j, field := range d.fields {
		width := field.storageSize()
		if offset+width > len(data) {
			// Roll back what was already handed out.
			for _, v := range values[:j] {
				v.Release()
			}
			return nil, fmt.Errorf("record %d truncated at field %s", i, field.Name)
		}
		values[j] = d.decodeCell(field, data[offset:offset+width])
		offset += width
	}

	return values, nil
}

// decodeCell converts one fixed-width cell into a tagged raw value. An
// all-zero cell is null regardless of type.
func (d *Doc) decodeCell(field Field, cell []byte) *Value {
	if allZero(cell) {
		return d.newValue(true, 0, 0, nil)
	}

	switch field.Type {
	case TypeAlpha:
		return d.newValue(false, 0, 0, d.transcode(trimZero(cell)))

	case TypeShort:
		return d.newValue(false, int64(int16(binary.LittleEndian.Uint16(cell))), 0, nil)

	case TypeLong, TypeAutoInc:
		return d.newValue(false, int64(int32(binary.LittleEndian.Uint32(cell))), 0, nil)

	case TypeNumber, TypeCurrency:
		return d.newValue(false, 0, math.Float64frombits(binary.LittleEndian.Uint64(cell)), nil)

	case TypeLogical:
		if cell[0] == logicalTrue {
			return d.newValue(false, 1, 0, nil)
		}
		return d.newValue(false, 0, 0, nil)

	case TypeDate, TypeTime:
		return d.newValue(false, int64(int32(binary.LittleEndian.Uint32(cell))), 0, nil)

	case TypeTimestamp:
		return d.newValue(false, 0, math.Float64frombits(binary.LittleEndian.Uint64(cell)), nil)

	case TypeBCD:
		return d.newValue(false, 0, 0, []byte(decodeBCD(cell, field.Size)))

	case TypeBytes:
		buf := make([]byte, len(cell))
		copy(buf, cell)
		return d.newValue(false, 0, 0, buf)

	case TypeMemoBlob, TypeFmtMemo:
		return d.newValue(false, 0, 0, d.transcode(d.resolveBlob(cell)))

	case TypeBlob, TypeOLE, TypeGraphic:
		return d.newValue(false, 0, 0, d.resolveBlob(cell))

	default:
		// Unknown type code: hand the raw bytes up and let the consumer
		// decide what to do with them.
		buf := make([]byte, len(cell))
		copy(buf, cell)
		return d.newValue(false, 0, 0, buf)
	}
}

// resolveBlob reads externally stored data through the cell's trailing
// (offset, length) pointer. A missing side file or a zero length yields a
// produced-but-empty buffer, never nil, so the release discipline still
// applies downstream.
func (d *Doc) resolveBlob(cell []byte) []byte {
	if len(cell) < 8 {
		return []byte{}
	}
	ptr := cell[len(cell)-8:]
	offset := int64(binary.LittleEndian.Uint32(ptr[0:4]))
	length := int(binary.LittleEndian.Uint32(ptr[4:8]))

	if length == 0 || d.blob == nil {
		return []byte{}
	}

	buf := make([]byte, length)
	if _, err := d.blob.ReadAt(buf, offset); err != nil {
		return []byte{}
	}
	return buf
}

// transcode converts raw codepage bytes to the negotiated output encoding.
// Without a negotiated conversion the bytes pass through unchanged.
func (d *Doc) transcode(b []byte) []byte {
	if d.conv == nil || len(b) == 0 {
		return b
	}
	s, err := d.conv.Decode(b)
	if err != nil {
		return b
	}
	return []byte(s)
}

// decodeBCD unpacks a binary-coded-decimal cell into its digit string.
// The declared field size is the number of decimal places. An all-blank
// cell (every nibble 0xF) decodes to the blank sentinel.
func decodeBCD(cell []byte, decimals int) string {
	blank := true
	for _, b := range cell {
		if b != 0xFF {
			blank = false
			break
		}
	}
	if blank {
		return bcdBlankSentinel
	}

	// First byte carries the sign; remaining bytes carry two digits each.
	negative := cell[0]&0x80 == 0
	digits := make([]byte, 0, (len(cell)-1)*2)
	for _, b := range cell[1:] {
		digits = append(digits, '0'+(b>>4), '0'+(b&0x0F))
	}

	if decimals < 0 {
		decimals = 0
	}
	if decimals > len(digits) {
		decimals = len(digits)
	}
	intPart := trimLeadingZeros(string(digits[:len(digits)-decimals]))
	out := intPart
	if decimals > 0 {
		out += "." + string(digits[len(digits)-decimals:])
	}
	if negative {
		out = "-" + out
	}
	return out
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func trimZero(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
