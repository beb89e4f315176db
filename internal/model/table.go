package model

import "strings"

// Table is an in-memory labeled dataset: a header row plus string cells,
// the shape a CSV upload or a catalog download produces.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex resolves a header name case-insensitively, -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), or "" when the row is ragged.
func (t *Table) Cell(row, col int) string {
	if col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}
