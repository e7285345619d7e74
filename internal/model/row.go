// Package model defines the core records flowing through the ingestion pipeline.
package model

import "strings"

// RawRow is one non-empty row extracted from a sheet. Position is the
// 1-based index of the row in the filtered (empty rows removed) sequence.
type RawRow struct {
	Cells    []string
	Position int
}

// IsEmpty reports whether every cell is blank or whitespace.
func (r RawRow) IsEmpty() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Cell returns the trimmed cell at index i, or "" when the row is short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}
