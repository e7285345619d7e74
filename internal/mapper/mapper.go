// Package mapper resolves raw spreadsheet headers to canonical field names
// using a direct alias table with a cached, confidence-gated inference
// fallback.
package mapper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/config"
	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/pkg/inference"
)

// Mapper maps header strings to canonical fields for one document type.
// The alias table is fixed at construction; inference and cache are optional
// collaborators.
type Mapper struct {
	table     map[string]model.CanonicalField
	infer     inference.Client
	cache     CacheStore
	threshold float64
	ttl       time.Duration
	enabled   bool
}

// New creates a Mapper for the given document type.
func New(docType model.DocumentType, cfg config.MapperConfig, infer inference.Client, cache CacheStore) *Mapper {
	ttl := time.Duration(cfg.CacheTTLDays) * 24 * time.Hour
	return &Mapper{
		table:     AliasTable(docType),
		infer:     infer,
		cache:     cache,
		threshold: cfg.ConfidenceThreshold,
		ttl:       ttl,
		enabled:   cfg.InferenceEnabled && infer != nil,
	}
}

// MapHeader resolves one header string. Unresolvable headers map to the
// miscellaneous field with zero confidence rather than being dropped.
func (m *Mapper) MapHeader(ctx context.Context, header string) model.HeaderMapping {
	key := NormalizeHeader(header)

	if field, ok := m.table[key]; ok {
		return model.HeaderMapping{
			Header:     header,
			Field:      field,
			Method:     model.MappingDirect,
			Confidence: 1.0,
		}
	}

	if m.enabled && key != "" {
		if hm, ok := m.inferHeader(ctx, header, key); ok {
			return hm
		}
	}

	return model.HeaderMapping{
		Header:      header,
		Field:       model.FieldMiscellaneous,
		Method:      model.MappingUnmapped,
		Confidence:  0,
		NeedsReview: true,
	}
}

// inferHeader consults the cache, then the inference capability. Results
// below the confidence threshold are rejected; capability failures are
// logged and degrade to unmapped.
func (m *Mapper) inferHeader(ctx context.Context, header, key string) (model.HeaderMapping, bool) {
	if m.cache != nil {
		cached, err := m.cache.Get(ctx, key, m.ttl)
		if err != nil {
			zap.L().Warn("mapper: cache get failed", zap.String("header", header), zap.Error(err))
		} else if cached != nil {
			return model.HeaderMapping{
				Header:      header,
				Field:       cached.Field,
				Method:      model.MappingInferred,
				Confidence:  cached.Confidence,
				NeedsReview: cached.Confidence < m.threshold,
			}, true
		}
	}

	candidates := model.Candidates()
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = string(c)
	}

	guess, err := m.infer.InferField(ctx, header, names)
	if err != nil {
		zap.L().Warn("mapper: inference failed", zap.String("header", header), zap.Error(err))
		return model.HeaderMapping{}, false
	}
	if guess == nil || guess.Confidence < m.threshold {
		return model.HeaderMapping{}, false
	}

	mapping := model.HeaderMapping{
		Header:     header,
		Field:      model.CanonicalField(guess.Field),
		Method:     model.MappingInferred,
		Confidence: guess.Confidence,
	}

	if m.cache != nil {
		err := m.cache.Set(ctx, key, CachedMapping{
			Field:      mapping.Field,
			Confidence: mapping.Confidence,
			CachedAt:   time.Now().UTC(),
		})
		if err != nil {
			zap.L().Warn("mapper: cache set failed", zap.String("header", header), zap.Error(err))
		}
	}

	return mapping, true
}

// MapHeaders resolves every header of a sheet once. The returned slice is
// positional: index i maps column i for all subsequent data rows.
func (m *Mapper) MapHeaders(ctx context.Context, headerRow model.RawRow) []model.HeaderMapping {
	mappings := make([]model.HeaderMapping, len(headerRow.Cells))
	for i := range headerRow.Cells {
		header := headerRow.Cell(i)
		if header == "" {
			mappings[i] = model.HeaderMapping{
				Field:       model.FieldMiscellaneous,
				Method:      model.MappingUnmapped,
				Confidence:  0,
				NeedsReview: true,
			}
			continue
		}
		mappings[i] = m.MapHeader(ctx, header)
	}
	return mappings
}
