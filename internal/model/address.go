package model

// ResolutionMethod identifies the technique that produced an address resolution.
type ResolutionMethod string

const (
	ResolveDirect  ResolutionMethod = "direct"
	ResolveKeyword ResolutionMethod = "keyword-lookup"
	ResolveGeocode ResolutionMethod = "geocode"
	ResolveNone    ResolutionMethod = "none"
)

// AddressResolution is the outcome of resolving a free-text location string.
// Resolution failure is represented as Method == ResolveNone with zero
// confidence; it is data, never an error.
type AddressResolution struct {
	RawInput   string           `json:"raw_input"`
	Street     string           `json:"street,omitempty"`
	City       string           `json:"city,omitempty"`
	State      string           `json:"state,omitempty"`
	PostalCode string           `json:"postal_code,omitempty"`
	Country    string           `json:"country,omitempty"`
	Latitude   float64          `json:"latitude,omitempty"`
	Longitude  float64          `json:"longitude,omitempty"`
	HasCoords  bool             `json:"has_coords,omitempty"`
	Method     ResolutionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
}

// Resolved reports whether any method produced structured fields.
func (a AddressResolution) Resolved() bool {
	return a.Method != ResolveNone && a.Method != ""
}

// HasStructuredFields reports whether enough structured address content
// exists to match or insert an address row.
func (a AddressResolution) HasStructuredFields() bool {
	return a.Street != "" || a.City != "" || a.State != "" || a.PostalCode != ""
}
