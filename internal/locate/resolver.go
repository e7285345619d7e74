// Package locate resolves free-text origin/destination tokens to normalized
// address records. Resolution failure is data (method "none"), never an
// error.
package locate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/pkg/geocode"
)

// directFieldConfidence scores resolutions assembled from structured row
// fields; no external lookup was needed.
const directFieldConfidence = 0.9

// Fields carries structured address columns present on the row, if any.
type Fields struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Context carries route information used to disambiguate hub tokens,
// e.g. the shipment's destination state when resolving the origin.
type Context struct {
	DestinationState string
}

// Resolver resolves location tokens. The geocoder is optional; without it
// the keyword table is the last resort before "none".
type Resolver struct {
	geo geocode.Client
}

// NewResolver creates a Resolver with an optional geocoding client.
func NewResolver(geo geocode.Client) *Resolver {
	return &Resolver{geo: geo}
}

// Resolve produces an AddressResolution for the raw token. It tries, in
// order: direct structured fields, the known-location keyword table, and
// external geocoding. It never returns an error; an unresolvable input
// yields method "none" with the raw input preserved for manual review.
func (r *Resolver) Resolve(ctx context.Context, raw string, fields Fields, rctx Context) model.AddressResolution {
	raw = strings.TrimSpace(raw)

	if fields.Street != "" || (fields.City != "" && fields.State != "") {
		return model.AddressResolution{
			RawInput:   raw,
			Street:     fields.Street,
			City:       fields.City,
			State:      fields.State,
			PostalCode: fields.PostalCode,
			Country:    fields.Country,
			Method:     model.ResolveDirect,
			Confidence: directFieldConfidence,
		}
	}

	if res, ok := r.resolveKeyword(raw, rctx); ok {
		return res
	}

	if r.geo != nil {
		if res, ok := r.resolveGeocode(ctx, raw, fields); ok {
			return res
		}
	}

	return model.AddressResolution{
		RawInput:   raw,
		Method:     model.ResolveNone,
		Confidence: 0,
	}
}

// resolveKeyword tests the normalized token against the ordered
// known-location table. A direct keyword hit wins over a hub inferred from
// the route context.
func (r *Resolver) resolveKeyword(raw string, rctx Context) (model.AddressResolution, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" && rctx.DestinationState == "" {
		return model.AddressResolution{}, false
	}

	for _, loc := range knownLocations {
		for _, kw := range loc.Keywords {
			if normalized != "" && strings.Contains(normalized, kw) {
				return keywordResolution(raw, loc, keywordMatchConfidence), true
			}
		}
	}

	if rctx.DestinationState != "" {
		ctxState := strings.ToUpper(strings.TrimSpace(rctx.DestinationState))
		for _, loc := range knownLocations {
			for _, st := range loc.States {
				if ctxState == st {
					return keywordResolution(raw, loc, contextMatchConfidence), true
				}
			}
		}
	}

	return model.AddressResolution{}, false
}

func keywordResolution(raw string, loc knownLocation, confidence float64) model.AddressResolution {
	return model.AddressResolution{
		RawInput:   raw,
		Street:     loc.Street,
		City:       loc.City,
		State:      loc.State,
		PostalCode: loc.PostalCode,
		Country:    loc.Country,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		HasCoords:  true,
		Method:     model.ResolveKeyword,
		Confidence: confidence,
	}
}

// resolveGeocode submits the best available address string to the external
// geocoder. Failures degrade to "none" upstream; they never propagate.
func (r *Resolver) resolveGeocode(ctx context.Context, raw string, fields Fields) (model.AddressResolution, bool) {
	query := bestAddressString(raw, fields)
	if query == "" {
		return model.AddressResolution{}, false
	}

	result, err := r.geo.Geocode(ctx, query)
	if err != nil {
		zap.L().Warn("locate: geocode failed", zap.String("query", query), zap.Error(err))
		return model.AddressResolution{}, false
	}
	if !result.Matched {
		return model.AddressResolution{}, false
	}

	return model.AddressResolution{
		RawInput:   raw,
		Street:     result.Street,
		City:       result.City,
		State:      result.State,
		PostalCode: result.PostalCode,
		Country:    result.Country,
		Latitude:   result.Latitude,
		Longitude:  result.Longitude,
		HasCoords:  true,
		Method:     model.ResolveGeocode,
		Confidence: result.Confidence,
	}, true
}

// bestAddressString prefers the raw input, falling back to whatever
// structured fields exist, joined in address order.
func bestAddressString(raw string, fields Fields) string {
	if raw != "" {
		return raw
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{fields.Street, fields.City, fields.State, fields.PostalCode, fields.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
