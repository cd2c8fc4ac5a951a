// Package export writes datasets to JSON and CSV files.
package export

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pxbase/pxread/pkg/pxdata"
)

// Format is the export output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Exporter writes datasets to files.
type Exporter struct{}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// ToJSON writes the dataset as an array of row objects. Absent cells
// become JSON null; binary cells are base64-encoded strings.
func (e *Exporter) ToJSON(ds *pxdata.Dataset, outputPath string) error {
	rows := Rows(ds)

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// ToCSV writes the dataset with a header row of column names. Absent
// cells become empty cells.
func (e *Exporter) ToCSV(ds *pxdata.Dataset, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(ds.Names()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := 0; i < ds.NumRecords(); i++ {
		row := make([]string, len(ds.Columns))
		for j, col := range ds.Columns {
			row[j] = formatCell(col.Cell(i))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Rows flattens a column-oriented dataset into row maps for serialization.
func Rows(ds *pxdata.Dataset) []map[string]interface{} {
	if ds == nil {
		return []map[string]interface{}{}
	}
	names := ds.Names()
	rows := make([]map[string]interface{}, ds.NumRecords())
	for i := range rows {
		row := make(map[string]interface{}, len(names))
		for j, col := range ds.Columns {
			v := col.Cell(i)
			if b, isBinary := v.([]byte); isBinary {
				row[names[j]] = base64.StdEncoding.EncodeToString(b)
				continue
			}
			row[names[j]] = v
		}
		rows[i] = row
	}
	return rows
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	case []byte:
		return base64.StdEncoding.EncodeToString(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
