package report

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoHeaders is returned when a dataset is built without columns.
var ErrNoHeaders = errors.New("report: dataset requires at least one header")

// ArityError reports a row whose cell count differs from the header count.
type ArityError struct {
	Row      int
	Got      int
	Expected int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("report: row %d has %d cells, expected %d", e.Row, e.Got, e.Expected)
}

// Dataset is the tabular input of every report: ordered headers and rows of
// pre-formatted cells.
type Dataset struct {
	headers []string
	rows    [][]string
}

// NewDataset validates that every row has exactly one cell per header.
func NewDataset(headers []string, rows [][]string) (*Dataset, error) {
	if len(headers) == 0 {
		return nil, ErrNoHeaders
	}
	for i, row := range rows {
		if len(row) != len(headers) {
			return nil, &ArityError{Row: i, Got: len(row), Expected: len(headers)}
		}
	}
	cp := make([][]string, len(rows))
	for i, row := range rows {
		cp[i] = slices.Clone(row)
	}
	return &Dataset{headers: slices.Clone(headers), rows: cp}, nil
}

// Headers returns the column labels.
func (d *Dataset) Headers() []string {
	return d.headers
}

// Rows returns the data rows.
func (d *Dataset) Rows() [][]string {
	return d.rows
}

// Columns returns the column count.
func (d *Dataset) Columns() int {
	return len(d.headers)
}

// Len returns the row count.
func (d *Dataset) Len() int {
	return len(d.rows)
}
