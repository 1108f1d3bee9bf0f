package rowsource

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// NewXLSX reads the first sheet of an XLSX workbook. The whole sheet is
// materialized up front; extracts are small enough that streaming is not
// worth the complexity.
func NewXLSX(r io.Reader) (*recordReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	rest := rows[1:]
	i := 0
	return newRecordReader(rows[0], func() ([]string, error) {
		if i >= len(rest) {
			return nil, io.EOF
		}
		rec := rest[i]
		i++
		return rec, nil
	}), nil
}
