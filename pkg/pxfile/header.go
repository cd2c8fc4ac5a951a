package pxfile

import (
	"encoding/binary"
	"fmt"
)

// headerBlockSize is the fixed region read from the start of the file. It
// holds the numeric header, the field descriptor pairs and the field name
// table.
const headerBlockSize = 0x800

// Header offsets.
const (
	offRecordSize = 0x00 // uint16
	offHeaderSize = 0x02 // uint16, in KiB units
	offFileType   = 0x04 // byte
	offMaxTable   = 0x05 // byte
	offNumRecords = 0x06 // uint32
	offNumFields  = 0x21 // uint16
	offEncryption = 0x25 // uint32, password checksum, 0 = not encrypted
	offCodepage   = 0x6A // uint16, DOS codepage number
	offFieldTypes = 0x78 // (type byte, size byte) pairs
	offFieldNames = 0x220
)

type header struct {
	recordSize int
	headerSize int
	fileType   byte
	numRecords int
	numFields  int
	encryption uint32
	codepage   int
}

// parseHeader decodes the fixed header region. Field descriptors are
// handled separately because they extend into the name table.
func parseHeader(block []byte) (*header, error) {
	if len(block) < headerBlockSize {
		return nil, fmt.Errorf("header truncated: %d bytes", len(block))
	}

	h := &header{
		recordSize: int(binary.LittleEndian.Uint16(block[offRecordSize:])),
		headerSize: int(binary.LittleEndian.Uint16(block[offHeaderSize:])),
		fileType:   block[offFileType],
		numRecords: int(binary.LittleEndian.Uint32(block[offNumRecords:])),
		numFields:  int(binary.LittleEndian.Uint16(block[offNumFields:])),
		encryption: binary.LittleEndian.Uint32(block[offEncryption:]),
		codepage:   int(binary.LittleEndian.Uint16(block[offCodepage:])),
	}

	if h.recordSize <= 0 {
		return nil, fmt.Errorf("invalid record size: %d", h.recordSize)
	}
	if h.headerSize <= 0 {
		return nil, fmt.Errorf("invalid header size: %d", h.headerSize)
	}
	if h.numFields <= 0 || h.numFields > 255 {
		return nil, fmt.Errorf("invalid field count: %d", h.numFields)
	}
	return h, nil
}

// parseFields reads the (type, size) descriptor pairs and the
// NUL-terminated name table.
func parseFields(block []byte, numFields int) ([]Field, error) {
	fields := make([]Field, numFields)

	for i := 0; i < numFields; i++ {
		off := offFieldTypes + 2*i
		if off+1 >= offFieldNames {
			return nil, fmt.Errorf("field descriptor table overflow at field %d", i)
		}
		fields[i].Type = FieldType(block[off])
		fields[i].Size = int(block[off+1])
	}

	pos := offFieldNames
	for i := 0; i < numFields; i++ {
		end := pos
		for end < len(block) && block[end] != 0 {
			end++
		}
		if end >= len(block) {
			return nil, fmt.Errorf("field name table overflow at field %d", i)
		}
		fields[i].Name = string(block[pos:end])
		pos = end + 1
	}

	return fields, nil
}
