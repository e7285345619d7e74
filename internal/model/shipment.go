package model

import "time"

// LineItem is one freight line belonging to a ShipmentBundle. It has no
// identity outside its owning bundle.
type LineItem struct {
	ItemNumber    string  `json:"item_number,omitempty"`
	Description   string  `json:"description,omitempty"`
	LotSerial     string  `json:"lot_serial,omitempty"`
	Quantity      float64 `json:"quantity,omitempty"`
	UnitOfMeasure string  `json:"unit_of_measure,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

// Present reports whether the line carries at least one identifying value.
// Rows with none of these contribute nothing to the open bundle.
func (li LineItem) Present() bool {
	return li.ItemNumber != "" || li.Description != "" || li.Quantity != 0 || li.LotSerial != ""
}

// ShipmentBundle is the reconstructed, not-yet-persisted representation of
// one shipment plus its line items and resolved locations. It is mutated by
// the row classifier while open and treated as immutable once handed to
// persistence.
type ShipmentBundle struct {
	LoadNumber  string `json:"load_number"`
	OrderNumber string `json:"order_number,omitempty"`
	PONumber    string `json:"po_number,omitempty"`

	ShipDate     *time.Time `json:"ship_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Customer     string     `json:"customer,omitempty"`
	Remarks      string     `json:"remarks,omitempty"`
	Status       string     `json:"status,omitempty"`

	Items       []LineItem        `json:"items,omitempty"`
	Origin      AddressResolution `json:"origin"`
	Destination AddressResolution `json:"destination"`

	TruckID     string `json:"truck_id,omitempty"`
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty"`

	// Misc holds values from headers mapped to the miscellaneous field,
	// keyed by the original header string. Free-form overflow only; never
	// conflated with the typed fields above.
	Misc map[string]string `json:"misc,omitempty"`

	TotalWeight float64  `json:"total_weight"`
	TotalVolume float64  `json:"total_volume,omitempty"`
	Confidence  float64  `json:"confidence"`
	NeedsReview bool     `json:"needs_review"`
	Errors      []string `json:"errors,omitempty"`

	// SourceRow is the 1-based position of the row that opened the bundle.
	SourceRow int `json:"source_row,omitempty"`
}

// Finalize recomputes the weight aggregate from the line items. Called when
// the next new-shipment row appears or input ends.
func (b *ShipmentBundle) Finalize() {
	var weight float64
	for _, li := range b.Items {
		weight += li.Weight
	}
	if weight > 0 {
		b.TotalWeight = weight
	}
}

// AddError appends a processing error string without failing the bundle.
func (b *ShipmentBundle) AddError(msg string) {
	b.Errors = append(b.Errors, msg)
}
