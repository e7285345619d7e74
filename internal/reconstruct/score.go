package reconstruct

import (
	"github.com/sells-group/shipment-ingest/internal/config"
	"github.com/sells-group/shipment-ingest/internal/model"
)

// Score computes the bundle's aggregate confidence as 1 minus capped
// penalties for weak header mappings, weak location resolutions, and
// processing errors, clamped to [0,1]. It also sets the needs-review flag.
// The penalty weights come from configuration; they are tunables, not
// contract.
func Score(b *model.ShipmentBundle, mappings []model.HeaderMapping, cfg config.ReviewConfig) {
	var penalty float64
	var anyFlagged bool

	// Fraction of mapped headers below full confidence.
	if len(mappings) > 0 {
		weak := 0
		for _, m := range mappings {
			if m.NeedsReview || m.Field == model.FieldMiscellaneous {
				weak++
				anyFlagged = anyFlagged || m.NeedsReview
			}
		}
		penalty += cfg.MappingPenaltyCap * float64(weak) / float64(len(mappings))
	}

	// Location resolution shortfall, averaged over origin and destination.
	locShortfall := (1 - b.Origin.Confidence + 1 - b.Destination.Confidence) / 2
	penalty += cfg.LocationPenaltyCap * locShortfall

	// Processing errors, each at a fixed cost, capped.
	errPenalty := cfg.ErrorPenalty * float64(len(b.Errors))
	if errPenalty > cfg.ErrorPenaltyCap {
		errPenalty = cfg.ErrorPenaltyCap
	}
	penalty += errPenalty

	confidence := 1 - penalty
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	b.Confidence = confidence
	b.NeedsReview = confidence < cfg.Cutoff || anyFlagged
}

// ScoreAll scores every finished bundle of an accumulator.
func ScoreAll(acc Accumulator, mappings []model.HeaderMapping, cfg config.ReviewConfig) {
	for _, b := range acc.Finished {
		Score(b, mappings, cfg)
	}
}
