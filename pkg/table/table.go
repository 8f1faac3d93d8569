// Package table loads tabular files of unknown format and encoding into a
// uniform, string-typed row set.
package table

import "strings"

// Table is an in-memory row set with heterogeneous column names.
// Rows may be shorter than Columns; missing cells read as "".
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns a table with the given header and rows.
func New(columns []string, rows ...[]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Column returns the index of the column named name (case-insensitive), or -1.
func (t *Table) Column(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Value returns the cell at (row, col), or "" when out of range.
func (t *Table) Value(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Filter returns a table sharing t's header with only the rows keep accepts.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := &Table{Columns: t.Columns}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

func cleanHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.Trim(strings.TrimSpace(c), `"`)
	}
	return out
}
