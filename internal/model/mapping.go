package model

// CanonicalField is a fixed attribute name raw spreadsheet headers map onto.
type CanonicalField string

const (
	FieldLoadNumber    CanonicalField = "load_number"
	FieldOrderNumber   CanonicalField = "order_number"
	FieldPONumber      CanonicalField = "po_number"
	FieldShipDate      CanonicalField = "ship_date"
	FieldDeliveryDate  CanonicalField = "delivery_date"
	FieldCustomer      CanonicalField = "customer"
	FieldRemarks       CanonicalField = "remarks"
	FieldStatus        CanonicalField = "status"
	FieldOrigin        CanonicalField = "origin"
	FieldDestination   CanonicalField = "destination_address"
	FieldDestCity      CanonicalField = "destination_city"
	FieldDestState     CanonicalField = "destination_state"
	FieldDestPostal    CanonicalField = "destination_postal"
	FieldDestCountry   CanonicalField = "destination_country"
	FieldTruckID       CanonicalField = "truck_id"
	FieldDriverName    CanonicalField = "driver_name"
	FieldDriverPhone   CanonicalField = "driver_phone"
	FieldItemNumber    CanonicalField = "item_number"
	FieldItemDesc      CanonicalField = "item_description"
	FieldLotSerial     CanonicalField = "lot_serial"
	FieldQuantity      CanonicalField = "quantity"
	FieldUnitOfMeasure CanonicalField = "unit_of_measure"
	FieldWeight        CanonicalField = "weight"
	FieldVolume        CanonicalField = "volume"
	FieldMiscellaneous CanonicalField = "miscellaneous"
)

// Candidates lists the canonical fields offered to the inference capability
// when a header misses the direct alias table.
func Candidates() []CanonicalField {
	return []CanonicalField{
		FieldLoadNumber, FieldOrderNumber, FieldPONumber,
		FieldShipDate, FieldDeliveryDate, FieldCustomer,
		FieldRemarks, FieldStatus, FieldOrigin,
		FieldDestination, FieldDestCity, FieldDestState,
		FieldDestPostal, FieldDestCountry,
		FieldTruckID, FieldDriverName, FieldDriverPhone,
		FieldItemNumber, FieldItemDesc, FieldLotSerial,
		FieldQuantity, FieldUnitOfMeasure, FieldWeight, FieldVolume,
	}
}

// MappingMethod records how a header was mapped to its canonical field.
type MappingMethod string

const (
	MappingDirect   MappingMethod = "direct"
	MappingInferred MappingMethod = "inferred"
	MappingUnmapped MappingMethod = "unmapped"
)

// HeaderMapping binds one raw header string to a canonical field. Computed
// once per sheet and reused for every data row.
type HeaderMapping struct {
	Header      string         `json:"header"`
	Field       CanonicalField `json:"field"`
	Method      MappingMethod  `json:"method"`
	Confidence  float64        `json:"confidence"`
	NeedsReview bool           `json:"needs_review"`
}
