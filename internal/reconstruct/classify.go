package reconstruct

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/locate"
	"github.com/sells-group/shipment-ingest/internal/model"
)

// OrphanPolicy controls what happens to item-only rows with no open bundle.
type OrphanPolicy string

const (
	OrphanDiscard OrphanPolicy = "discard"
	OrphanFlag    OrphanPolicy = "flag"
)

// Accumulator is the explicit fold state for row classification: at most one
// open bundle plus everything already finalized.
type Accumulator struct {
	Open     *model.ShipmentBundle
	Finished []*model.ShipmentBundle

	// ReviewNotes collects document-level observations (orphan rows under
	// the flag policy, rejected header rows).
	ReviewNotes []string
}

// Classifier turns projected rows into shipment bundles. One instance per
// sheet; the header mappings are fixed for its lifetime.
type Classifier struct {
	mappings []model.HeaderMapping
	resolver *locate.Resolver
	orphans  OrphanPolicy
}

// NewClassifier creates a Classifier for one sheet.
func NewClassifier(mappings []model.HeaderMapping, resolver *locate.Resolver, orphans OrphanPolicy) *Classifier {
	if orphans == "" {
		orphans = OrphanDiscard
	}
	return &Classifier{mappings: mappings, resolver: resolver, orphans: orphans}
}

// Fold classifies every data row in order and returns the final accumulator
// with the still-open bundle finalized.
func (c *Classifier) Fold(ctx context.Context, rows []model.RawRow) Accumulator {
	acc := Accumulator{}
	for _, row := range rows {
		acc = c.Step(ctx, acc, row)
	}
	return c.Finish(acc)
}

// Step advances the fold by one row. A row carrying a load or order number
// starts a new shipment; anything else contributes an item to the open
// bundle.
func (c *Classifier) Step(ctx context.Context, acc Accumulator, row model.RawRow) Accumulator {
	rec := Project(row, c.mappings)

	loadNo := rec.Get(model.FieldLoadNumber)
	orderNo := rec.Get(model.FieldOrderNumber)

	if loadNo != "" || orderNo != "" {
		return c.openBundle(ctx, acc, row, rec)
	}
	return c.appendItem(acc, row, rec)
}

// Finish finalizes any still-open bundle at end of input.
func (c *Classifier) Finish(acc Accumulator) Accumulator {
	if acc.Open != nil {
		acc.Open.Finalize()
		acc.Finished = append(acc.Finished, acc.Open)
		acc.Open = nil
	}
	return acc
}

// openBundle closes the current bundle and starts a fresh one from the row,
// rejecting rows missing the mandatory identifying fields.
func (c *Classifier) openBundle(ctx context.Context, acc Accumulator, row model.RawRow, rec Record) Accumulator {
	if acc.Open != nil {
		acc.Open.Finalize()
		acc.Finished = append(acc.Finished, acc.Open)
		acc.Open = nil
	}

	loadNo := rec.Get(model.FieldLoadNumber)
	shipDateRaw := rec.Get(model.FieldShipDate)
	destRaw := rec.Get(model.FieldDestination)

	if loadNo == "" || destRaw == "" {
		msg := fmt.Sprintf("row %d: rejected shipment row (load=%q destination=%q)",
			row.Position, loadNo, destRaw)
		zap.L().Warn("reconstruct: "+msg,
			zap.Int("row", row.Position),
		)
		acc.ReviewNotes = append(acc.ReviewNotes, msg)
		return acc
	}

	b := &model.ShipmentBundle{
		LoadNumber:  loadNo,
		OrderNumber: rec.Get(model.FieldOrderNumber),
		PONumber:    rec.Get(model.FieldPONumber),
		ShipDate:    ParseDate(shipDateRaw),
		Customer:    rec.Get(model.FieldCustomer),
		Remarks:     rec.Get(model.FieldRemarks),
		Status:      rec.Get(model.FieldStatus),
		TruckID:     rec.Get(model.FieldTruckID),
		DriverName:  rec.Get(model.FieldDriverName),
		DriverPhone: rec.Get(model.FieldDriverPhone),
		TotalVolume: ParseFloat(rec.Get(model.FieldVolume)),
		SourceRow:   row.Position,
	}
	if d := ParseDate(rec.Get(model.FieldDeliveryDate)); d != nil {
		b.DeliveryDate = d
	}
	switch {
	case shipDateRaw == "":
		b.AddError("missing ship date")
	case b.ShipDate == nil:
		b.AddError(fmt.Sprintf("unparseable ship date %q", shipDateRaw))
	}
	if len(rec.Misc) > 0 {
		b.Misc = rec.Misc
	}

	destFields := locate.Fields{
		Street:     destRaw,
		City:       rec.Get(model.FieldDestCity),
		State:      rec.Get(model.FieldDestState),
		PostalCode: rec.Get(model.FieldDestPostal),
		Country:    rec.Get(model.FieldDestCountry),
	}
	// The destination cell is the street line only when other structured
	// columns exist; otherwise it is a free-text token.
	if destFields.City == "" && destFields.State == "" && destFields.PostalCode == "" {
		destFields.Street = ""
	}
	b.Destination = c.resolver.Resolve(ctx, destRaw, destFields, locate.Context{})

	b.Origin = c.resolver.Resolve(ctx, rec.Get(model.FieldOrigin), locate.Fields{}, locate.Context{
		DestinationState: b.Destination.State,
	})

	if li := lineItemFrom(rec); li.Present() {
		b.Items = append(b.Items, li)
	}

	acc.Open = b
	return acc
}

// appendItem adds a line item to the open bundle, or handles the orphan row
// per policy when no bundle is open.
func (c *Classifier) appendItem(acc Accumulator, row model.RawRow, rec Record) Accumulator {
	li := lineItemFrom(rec)
	if !li.Present() {
		return acc
	}

	if acc.Open == nil {
		zap.L().Warn("reconstruct: orphan item row, no open shipment",
			zap.Int("row", row.Position),
		)
		if c.orphans == OrphanFlag {
			acc.ReviewNotes = append(acc.ReviewNotes,
				fmt.Sprintf("row %d: orphan item row discarded (no open shipment)", row.Position))
		}
		return acc
	}

	acc.Open.Items = append(acc.Open.Items, li)
	return acc
}

func lineItemFrom(rec Record) model.LineItem {
	return model.LineItem{
		ItemNumber:    rec.Get(model.FieldItemNumber),
		Description:   rec.Get(model.FieldItemDesc),
		LotSerial:     rec.Get(model.FieldLotSerial),
		Quantity:      ParseFloat(rec.Get(model.FieldQuantity)),
		UnitOfMeasure: rec.Get(model.FieldUnitOfMeasure),
		Weight:        ParseFloat(rec.Get(model.FieldWeight)),
	}
}
