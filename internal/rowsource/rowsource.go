// Package rowsource decodes spreadsheet extracts into the row stream the
// importer consumes. CSV and XLSX are supported; headers are lowercased
// and trimmed so the importer can look cells up by stable column names.
package rowsource

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

// FromFile opens a source for an uploaded file, dispatching on the
// filename extension.
func FromFile(filename string, r io.Reader) (importer.RowReader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return NewCSV(r)
	case ".xlsx":
		return NewXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

// recordReader adapts pre-split records into the RowReader contract. The
// first record is the header; blank rows are skipped.
type recordReader struct {
	columns []string
	next    func() ([]string, error)
}

func newRecordReader(header []string, next func() ([]string, error)) *recordReader {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return &recordReader{columns: columns, next: next}
}

func (r *recordReader) Columns() []string {
	return r.columns
}

func (r *recordReader) Next() (importer.Row, error) {
	for {
		record, err := r.next()
		if err != nil {
			return nil, err
		}
		if blankRecord(record) {
			continue
		}
		row := make(importer.Row, len(r.columns))
		for i, col := range r.columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			}
		}
		return row, nil
	}
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// FromRecords builds a source from in-memory records, header first.
// Intended for tests and programmatic imports.
func FromRecords(records [][]string) importer.RowReader {
	if len(records) == 0 {
		return newRecordReader(nil, func() ([]string, error) { return nil, io.EOF })
	}
	rest := records[1:]
	i := 0
	return newRecordReader(records[0], func() ([]string, error) {
		if i >= len(rest) {
			return nil, io.EOF
		}
		rec := rest[i]
		i++
		return rec, nil
	})
}
