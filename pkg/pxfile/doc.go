// Package pxfile reads the on-disk layout of Paradox database files: the
// header, the field descriptor table, fixed-width records and the optional
// .MB side file holding externally stored blobs. It produces tagged raw
// values with an explicit per-value release discipline; the marshalling
// layer on top of it is pkg/pxdata.
package pxfile

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pxbase/pxread/pkg/pxcodec"
)

// Doc is an open Paradox document. A Doc is not safe for concurrent use;
// callers sharing one across goroutines must serialize access.
type Doc struct {
	file       *os.File
	blob       *os.File
	header     *header
	fields     []Field
	conv       *pxcodec.Converter
	dataStart  int64
	recordSize int

	outstanding atomic.Int64
}

// New returns an empty document. Open must be called before any other
// method.
func New() *Doc {
	return &Doc{}
}

// Open reads the file's header and field descriptors and negotiates the
// text encoding from the header codepage. It does not validate encryption;
// that is the caller's concern (the header checksum is exposed through
// EncryptionChecksum).
func (d *Doc) Open(path string) error {
	if d.file != nil {
		return fmt.Errorf("document already open")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	block := make([]byte, headerBlockSize)
	if _, err := file.ReadAt(block, 0); err != nil {
		file.Close()
		return fmt.Errorf("failed to read header: %w", err)
	}

	h, err := parseHeader(block)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read header: %w", err)
	}

	fields, err := parseFields(block, h.numFields)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to read fields: %w", err)
	}

	d.file = file
	d.header = h
	d.fields = fields
	d.recordSize = h.recordSize
	d.dataStart = int64(h.headerSize) * 1024

	// Negotiate text conversion from the header codepage. A codepage the
	// conversion tables do not know leaves text untranscoded rather than
	// failing the open.
	if h.codepage > 0 {
		if conv, err := pxcodec.Open("UTF-8", pxcodec.CodepageName(h.codepage)); err == nil {
			d.conv = conv
		}
	}

	return nil
}

// Close releases the document's files and conversion handle. Calling Close
// on an already-closed or never-opened document is a no-op.
func (d *Doc) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	if d.blob != nil {
		d.blob.Close()
		d.blob = nil
	}
	if d.conv != nil {
		d.conv.Close()
		d.conv = nil
	}
	d.header = nil
	d.fields = nil
	return err
}

// SetBlobFile associates the .MB side file holding externally stored
// blobs. Rejection (unreadable path) is reported as an error; the document
// stays usable, blob fields simply fail to resolve.
func (d *Doc) SetBlobFile(path string) error {
	if d.file == nil {
		return fmt.Errorf("document is not open")
	}
	blob, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open blob file: %w", err)
	}
	if d.blob != nil {
		d.blob.Close()
	}
	d.blob = blob
	return nil
}

// SetEncoding replaces the negotiated output encoding, re-opening the
// conversion handle against the header codepage.
func (d *Doc) SetEncoding(target string) error {
	if d.file == nil {
		return fmt.Errorf("document is not open")
	}
	if d.header.codepage <= 0 {
		return fmt.Errorf("file header carries no codepage")
	}
	conv, err := pxcodec.Open(target, pxcodec.CodepageName(d.header.codepage))
	if err != nil {
		return err
	}
	if d.conv != nil {
		d.conv.Close()
	}
	d.conv = conv
	return nil
}

// RecordCount returns the number of records, or 0 on a closed document.
func (d *Doc) RecordCount() int {
	if d.header == nil {
		return 0
	}
	return d.header.numRecords
}

// FieldCount returns the number of fields, or 0 on a closed document.
func (d *Doc) FieldCount() int {
	if d.header == nil {
		return 0
	}
	return d.header.numFields
}

// Fields returns the field descriptors. The slice is invalid once the
// document is closed.
func (d *Doc) Fields() ([]Field, error) {
	if d.file == nil {
		return nil, fmt.Errorf("document is not open")
	}
	return d.fields, nil
}

// EncryptionChecksum returns the header's encryption word; 0 means the
// file is not encrypted.
func (d *Doc) EncryptionChecksum() uint32 {
	if d.header == nil {
		return 0
	}
	return d.header.encryption
}

// CodepageNumber returns the header's DOS codepage number, 0 when absent.
func (d *Doc) CodepageNumber() int {
	if d.header == nil {
		return 0
	}
	return d.header.codepage
}

// OutstandingValues returns the number of raw values handed out by
// RetrieveRecord that have not been released yet.
func (d *Doc) OutstandingValues() int64 {
	return d.outstanding.Load()
}

// newValue wires a raw value into the document's outstanding accounting.
func (d *Doc) newValue(null bool, i int64, r float64, buf []byte) *Value {
	d.outstanding.Add(1)
	v := &Value{Null: null, Int: i, Real: r, Buf: buf}
	v.free = func() { d.outstanding.Add(-1) }
	return v
}
