package locate

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/pkg/geocode"
)

// fakeGeocoder returns a canned result.
type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func TestResolve_DirectFields(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), "Jalan Tampoi 7", Fields{
		Street:     "Jalan Tampoi 7",
		City:       "Johor Bahru",
		State:      "Johor",
		PostalCode: "81200",
	}, Context{})

	assert.Equal(t, model.ResolveDirect, res.Method)
	assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	assert.Equal(t, "Johor Bahru", res.City)
}

func TestResolve_KeywordHit(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), "PTP", Fields{}, Context{})

	assert.Equal(t, model.ResolveKeyword, res.Method)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, "Gelang Patah", res.City)
	assert.Equal(t, "Johor", res.State)
	assert.True(t, res.HasCoords)
	assert.Equal(t, "PTP", res.RawInput)
}

func TestResolve_KeywordSubstring(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), "wh transfer via tanjung pelepas", Fields{}, Context{})

	assert.Equal(t, model.ResolveKeyword, res.Method)
	assert.Equal(t, "Gelang Patah", res.City)
}

func TestResolve_ContextInferredHub(t *testing.T) {
	r := NewResolver(nil)

	// No usable raw token; the destination state picks the hub.
	res := r.Resolve(context.Background(), "", Fields{}, Context{DestinationState: "Penang"})

	assert.Equal(t, model.ResolveKeyword, res.Method)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
	assert.Equal(t, "Butterworth", res.City)
}

func TestResolve_GeocodeFallback(t *testing.T) {
	geo := &fakeGeocoder{result: &geocode.Result{
		Latitude:   3.1390,
		Longitude:  101.6869,
		City:       "Kuala Lumpur",
		State:      "Wilayah Persekutuan",
		Country:    "Malaysia",
		Confidence: 0.72,
		Matched:    true,
	}}
	r := NewResolver(geo)

	res := r.Resolve(context.Background(), "Menara XYZ, Jalan Ampang KL", Fields{}, Context{})

	assert.Equal(t, model.ResolveGeocode, res.Method)
	assert.InDelta(t, 0.72, res.Confidence, 1e-9)
	assert.Equal(t, "Kuala Lumpur", res.City)
	assert.True(t, res.HasCoords)
	assert.Equal(t, 1, geo.calls)
}

func TestResolve_GeocodeErrorDegradesToNone(t *testing.T) {
	geo := &fakeGeocoder{err: eris.New("timeout")}
	r := NewResolver(geo)

	res := r.Resolve(context.Background(), "somewhere unknown", Fields{}, Context{})

	assert.Equal(t, model.ResolveNone, res.Method)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "somewhere unknown", res.RawInput)
}

func TestResolve_EmptyInputIsNoneNotError(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), "   ", Fields{}, Context{})

	assert.Equal(t, model.ResolveNone, res.Method)
	assert.Zero(t, res.Confidence)
	assert.False(t, res.Resolved())
}

func TestResolve_UnmatchedGeocodeIsNone(t *testing.T) {
	geo := &fakeGeocoder{}
	r := NewResolver(geo)

	res := r.Resolve(context.Background(), "gibberish xyzzy", Fields{}, Context{})

	require.Equal(t, model.ResolveNone, res.Method)
	assert.Equal(t, "gibberish xyzzy", res.RawInput)
}

func TestResolve_DirectKeywordBeatsContext(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(context.Background(), "Westports", Fields{}, Context{DestinationState: "Johor"})

	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, "Port Klang", res.City)
}
