package pxdata

import "github.com/pxbase/pxread/pkg/pxfile"

// Document is the decoding backend contract the session consumes: header
// access, field descriptors and per-record raw values. *pxfile.Doc is the
// default implementation; tests substitute doubles through
// Options.OpenDocument.
type Document interface {
	Close() error
	SetBlobFile(path string) error
	RecordCount() int
	FieldCount() int
	Fields() ([]pxfile.Field, error)
	RetrieveRecord(i int) ([]*pxfile.Value, error)
	EncryptionChecksum() uint32
	CodepageNumber() int
}

var _ Document = (*pxfile.Doc)(nil)
