package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmpty is returned when the input has no header line.
var ErrEmpty = errors.New("empty dataset")

// Row maps column names to raw cell values. A missing key is a missing cell.
type Row map[string]string

// Get returns the trimmed cell value and whether the cell is present.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Table is a decoded tabular dataset.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether every named column is present.
func (t *Table) Has(cols ...string) bool {
	return len(t.Missing(cols...)) == 0
}

// Missing returns the named columns that the table does not carry.
func (t *Table) Missing(cols ...string) []string {
	present := make(map[string]struct{})
	if t != nil {
		for _, c := range t.Columns {
			present[c] = struct{}{}
		}
	}

	var missing []string
	for _, c := range cols {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// DecodeCSV reads a CSV document whose first line names the columns.
// Short rows leave their trailing cells missing; extra cells are ignored.
func DecodeCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Columns: cols}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if i >= len(record) {
				break
			}
			row[col] = record[i]
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
