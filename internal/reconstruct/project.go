// Package reconstruct groups mapped rows into shipment bundles and scores
// them for review.
package reconstruct

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/shipment-ingest/internal/model"
)

// Record is a row projected through the header mappings: canonical fields
// plus the free-form overflow bag, kept strictly apart.
type Record struct {
	Fields map[model.CanonicalField]string
	Misc   map[string]string
}

// Project folds a raw row's cells into a Record using the per-sheet header
// mappings. Columns mapped to miscellaneous land in the overflow bag keyed
// by the original header string.
func Project(row model.RawRow, mappings []model.HeaderMapping) Record {
	rec := Record{
		Fields: make(map[model.CanonicalField]string),
		Misc:   make(map[string]string),
	}

	for i, m := range mappings {
		val := row.Cell(i)
		if val == "" {
			continue
		}
		if m.Field == model.FieldMiscellaneous {
			if m.Header != "" {
				rec.Misc[m.Header] = val
			}
			continue
		}
		// First non-empty value wins when two columns map to one field.
		if _, exists := rec.Fields[m.Field]; !exists {
			rec.Fields[m.Field] = val
		}
	}

	return rec
}

// Get returns the value for a canonical field, "" when absent.
func (r Record) Get(f model.CanonicalField) string {
	return r.Fields[f]
}

// dateLayouts lists accepted spreadsheet date formats, most specific first.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"01/02/06",
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate parses a spreadsheet date cell. Returns nil when the value is
// empty or matches no known layout.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseFloat parses a numeric cell, tolerating thousands separators and
// trailing units. Returns 0 when nothing numeric is present.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	// Strip a trailing unit like "kg" or "pcs".
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		end--
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s[:end]), 64)
	if err != nil {
		return 0
	}
	return f
}
