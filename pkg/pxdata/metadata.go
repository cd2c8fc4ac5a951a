package pxdata

import (
	"github.com/pxbase/pxread/pkg/pxcodec"
	"github.com/pxbase/pxread/pkg/pxfile"
)

// Metadata describes an open document without touching its records.
type Metadata struct {
	NumRecords int         `json:"num_records"`
	NumFields  int         `json:"num_fields"`
	Fields     []FieldInfo `json:"fields"`
}

// FieldInfo is one field's name, declared type code and declared size.
type FieldInfo struct {
	Name string           `json:"name"`
	Type pxfile.FieldType `json:"type"`
	Size int              `json:"size"`
}

// TypeName returns the field type's short name.
func (f FieldInfo) TypeName() string {
	return f.Type.String()
}

// GetMetadata reports record count, field count and the per-field
// descriptors. Read-only; the handle is not mutated.
func (s *Session) GetMetadata() (*Metadata, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}

	fields, err := doc.Fields()
	if err != nil {
		return nil, &ParadoxError{
			Number:      ErrCodeFieldDefs,
			Message:     "could not retrieve field definitions: %v",
			MessageArgs: []interface{}{err},
		}
	}

	info := make([]FieldInfo, len(fields))
	for i, f := range fields {
		info[i] = FieldInfo{Name: f.Name, Type: f.Type, Size: f.Size}
	}

	return &Metadata{
		NumRecords: doc.RecordCount(),
		NumFields:  doc.FieldCount(),
		Fields:     info,
	}, nil
}

// GetCodepage returns the header codepage as "CP<n>". ok is false when
// the header carries no positive codepage number.
func (s *Session) GetCodepage() (name string, ok bool, err error) {
	doc, err := s.document()
	if err != nil {
		return "", false, err
	}
	n := doc.CodepageNumber()
	if n <= 0 {
		return "", false, nil
	}
	return pxcodec.CodepageName(n), true, nil
}
