package pxdata

// Dataset is the column-oriented result of a full data fetch: one column
// per field in declaration order. It is built fresh on every GetData call
// and outlives the session that produced it.
type Dataset struct {
	Columns []*Column
}

// Names returns the column names in declaration order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NumRecords returns the number of rows.
func (d *Dataset) NumRecords() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Row returns record i as a generic slice in column order, nil entries
// for absent cells.
func (d *Dataset) Row(i int) []interface{} {
	row := make([]interface{}, len(d.Columns))
	for j, c := range d.Columns {
		row[j] = c.Cell(i)
	}
	return row
}

// GetData reads every record and returns the dataset, or nil when the
// file has no records. A failure to retrieve any record aborts the whole
// call; partial datasets are never returned.
func (s *Session) GetData() (*Dataset, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}

	numRecords := doc.RecordCount()
	if numRecords <= 0 {
		return nil, nil
	}

	fields, err := doc.Fields()
	if err != nil {
		return nil, &ParadoxError{
			Number:      ErrCodeFieldDefs,
			Message:     "could not retrieve field definitions: %v",
			MessageArgs: []interface{}{err},
		}
	}

	columns := make([]*Column, len(fields))
	for j, f := range fields {
		columns[j] = newColumn(f, numRecords)
	}

	for i := 0; i < numRecords; i++ {
		values, err := doc.RetrieveRecord(i)
		if err != nil || len(values) != len(fields) {
			for _, v := range values {
				v.Release()
			}
			return nil, &ParadoxError{
				Number:      ErrCodeRecordRetrieval,
				Message:     "failed to retrieve record #%d",
				MessageArgs: []interface{}{i + 1},
			}
		}
		for j, f := range fields {
			columns[j].place(i, s.decodeValue(values[j], f.Type))
		}
	}

	// Presentation metadata goes on after all records are filled.
	for j, f := range fields {
		columns[j].Semantic = semanticOf(f.Type)
	}

	return &Dataset{Columns: columns}, nil
}
