package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/model"
)

const (
	// headerScanLimit bounds how many leading rows are scored.
	headerScanLimit = 15
	// headerMinMatches is the minimum vocabulary hits to accept a row.
	headerMinMatches = 4
)

// headerVocabulary lists normalized column names expected in partner
// exports. Matching is exact per cell after normalization.
var headerVocabulary = map[string]bool{
	"load no":         true,
	"load number":     true,
	"load #":          true,
	"order no":        true,
	"order number":    true,
	"po no":           true,
	"po number":       true,
	"ship date":       true,
	"delivery date":   true,
	"eta":             true,
	"etd":             true,
	"customer":        true,
	"consignee":       true,
	"shipper":         true,
	"origin":          true,
	"destination":     true,
	"ship to":         true,
	"ship to address": true,
	"address":         true,
	"city":            true,
	"state":           true,
	"postal code":     true,
	"zip":             true,
	"country":         true,
	"truck":           true,
	"truck no":        true,
	"plate no":        true,
	"driver":          true,
	"driver name":     true,
	"driver phone":    true,
	"item":            true,
	"item no":         true,
	"description":     true,
	"lot":             true,
	"serial":          true,
	"qty":             true,
	"quantity":        true,
	"uom":             true,
	"weight":          true,
	"volume":          true,
	"remarks":         true,
	"status":          true,
}

// DetectHeaderRow scores the first rows of the sheet against the expected
// column vocabulary and returns the 0-based index of the best row, or the
// supplied default when no row clears the threshold. Ties break toward the
// earliest row.
func DetectHeaderRow(rows []model.RawRow, defaultIdx int) int {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	bestIdx := -1
	bestScore := 0
	for i := 0; i < limit; i++ {
		score := 0
		for _, cell := range rows[i].Cells {
			if headerVocabulary[normalizeHeaderCell(cell)] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestScore < headerMinMatches {
		zap.L().Warn("extract: no header row detected, using default",
			zap.Int("default_index", defaultIdx),
			zap.Int("best_score", bestScore),
		)
		return defaultIdx
	}
	return bestIdx
}

// normalizeHeaderCell lowercases, trims, and collapses inner whitespace.
func normalizeHeaderCell(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
