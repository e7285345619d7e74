package mapper

import "github.com/sells-group/shipment-ingest/internal/model"

// baseAliases maps normalized header strings to canonical fields. Shared by
// every document-type variant.
var baseAliases = map[string]model.CanonicalField{
	"load no":          model.FieldLoadNumber,
	"load number":      model.FieldLoadNumber,
	"load #":           model.FieldLoadNumber,
	"load":             model.FieldLoadNumber,
	"do no":            model.FieldLoadNumber,
	"order no":         model.FieldOrderNumber,
	"order number":     model.FieldOrderNumber,
	"so no":            model.FieldOrderNumber,
	"sales order":      model.FieldOrderNumber,
	"po no":            model.FieldPONumber,
	"po number":        model.FieldPONumber,
	"purchase order":   model.FieldPONumber,
	"ship date":        model.FieldShipDate,
	"shipment date":    model.FieldShipDate,
	"date":             model.FieldShipDate,
	"delivery date":    model.FieldDeliveryDate,
	"eta":              model.FieldDeliveryDate,
	"customer":         model.FieldCustomer,
	"customer name":    model.FieldCustomer,
	"consignee":        model.FieldCustomer,
	"remarks":          model.FieldRemarks,
	"notes":            model.FieldRemarks,
	"status":           model.FieldStatus,
	"origin":           model.FieldOrigin,
	"from":             model.FieldOrigin,
	"shipper":          model.FieldOrigin,
	"pickup location":  model.FieldOrigin,
	"destination":      model.FieldDestination,
	"ship to":          model.FieldDestination,
	"ship to address":  model.FieldDestination,
	"delivery address": model.FieldDestination,
	"address":          model.FieldDestination,
	"to":               model.FieldDestination,
	"city":             model.FieldDestCity,
	"town":             model.FieldDestCity,
	"state":            model.FieldDestState,
	"province":         model.FieldDestState,
	"postal code":      model.FieldDestPostal,
	"postcode":         model.FieldDestPostal,
	"zip":              model.FieldDestPostal,
	"zip code":         model.FieldDestPostal,
	"country":          model.FieldDestCountry,
	"truck":            model.FieldTruckID,
	"truck no":         model.FieldTruckID,
	"vehicle no":       model.FieldTruckID,
	"plate no":         model.FieldTruckID,
	"plate number":     model.FieldTruckID,
	"driver":           model.FieldDriverName,
	"driver name":      model.FieldDriverName,
	"driver phone":     model.FieldDriverPhone,
	"driver contact":   model.FieldDriverPhone,
	"phone":            model.FieldDriverPhone,
	"contact no":       model.FieldDriverPhone,
	"item":             model.FieldItemNumber,
	"item no":          model.FieldItemNumber,
	"item number":      model.FieldItemNumber,
	"sku":              model.FieldItemNumber,
	"description":      model.FieldItemDesc,
	"item description": model.FieldItemDesc,
	"product":          model.FieldItemDesc,
	"lot":              model.FieldLotSerial,
	"lot no":           model.FieldLotSerial,
	"serial":           model.FieldLotSerial,
	"serial no":        model.FieldLotSerial,
	"lot/serial":       model.FieldLotSerial,
	"qty":              model.FieldQuantity,
	"quantity":         model.FieldQuantity,
	"pcs":              model.FieldQuantity,
	"uom":              model.FieldUnitOfMeasure,
	"unit":             model.FieldUnitOfMeasure,
	"unit of measure":  model.FieldUnitOfMeasure,
	"weight":           model.FieldWeight,
	"gross weight":     model.FieldWeight,
	"weight kg":        model.FieldWeight,
	"volume":           model.FieldVolume,
	"cbm":              model.FieldVolume,
}

// etdAliases adds ETD-export header spellings on top of the base table.
var etdAliases = map[string]model.CanonicalField{
	"etd":               model.FieldShipDate,
	"etd date":          model.FieldShipDate,
	"vessel eta":        model.FieldDeliveryDate,
	"port of discharge": model.FieldDestination,
	"pod":               model.FieldDestination,
	"port of loading":   model.FieldOrigin,
	"pol":               model.FieldOrigin,
}

// outstationAliases adds outstation-trip header spellings.
var outstationAliases = map[string]model.CanonicalField{
	"outstation":     model.FieldDestination,
	"station":        model.FieldDestination,
	"hub":            model.FieldOrigin,
	"departure":      model.FieldShipDate,
	"departure date": model.FieldShipDate,
	"return date":    model.FieldDeliveryDate,
	"driver mobile":  model.FieldDriverPhone,
	"vehicle plate":  model.FieldTruckID,
}

// AliasTable returns the direct-lookup table for a document type. The
// variant table shadows the base table on key collisions.
func AliasTable(docType model.DocumentType) map[string]model.CanonicalField {
	var variant map[string]model.CanonicalField
	switch docType {
	case model.DocTypeETD:
		variant = etdAliases
	case model.DocTypeOutstation:
		variant = outstationAliases
	}

	table := make(map[string]model.CanonicalField, len(baseAliases)+len(variant))
	for k, v := range baseAliases {
		table[k] = v
	}
	for k, v := range variant {
		table[k] = v
	}
	return table
}
