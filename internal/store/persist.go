package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/db"
	"github.com/sells-group/shipment-ingest/internal/model"
)

// PersistBundle writes one finalized bundle as a single transaction: entity
// resolution, trip, shipment, pickup/dropoff, details, line items, and the
// document link all commit together or not at all. The outcome carries any
// failure; the caller continues with the next bundle.
func (s *PostgresStore) PersistBundle(ctx context.Context, docID string, b *model.ShipmentBundle) model.PersistenceOutcome {
	outcome := model.PersistenceOutcome{LoadNumber: b.LoadNumber}

	shipmentID, err := s.persistBundleTx(ctx, docID, b)
	if err != nil {
		zap.L().Error("persist: bundle failed",
			zap.String("load_number", b.LoadNumber),
			zap.String("document_id", docID),
			zap.Error(err),
		)
		outcome.Error = eris.ToString(err, false)
		return outcome
	}

	outcome.Success = true
	outcome.ShipmentID = shipmentID
	return outcome
}

func (s *PostgresStore) persistBundleTx(ctx context.Context, docID string, b *model.ShipmentBundle) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "persist: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Step 1: origin address. Absence is tolerated; the shipment persists
	// with a null origin reference.
	var originID *string
	if b.Origin.HasStructuredFields() {
		id, err := s.matchOrInsertAddress(ctx, tx, b.Origin)
		if err != nil {
			return "", eris.Wrap(err, "persist: origin address")
		}
		originID = &id
	}

	// Step 2: destination address, with opportunistic coordinate backfill.
	var destID *string
	if b.Destination.HasStructuredFields() {
		id, err := s.matchOrInsertDestination(ctx, tx, b.Destination)
		if err != nil {
			return "", eris.Wrap(err, "persist: destination address")
		}
		destID = &id
	}

	// Step 3: vehicle and driver are looked up, never blind-inserted.
	vehicleID, err := lookupVehicle(ctx, tx, b.TruckID)
	if err != nil {
		return "", eris.Wrap(err, "persist: lookup vehicle")
	}
	driverID, err := lookupDriver(ctx, tx, b.DriverPhone, b.DriverName)
	if err != nil {
		return "", eris.Wrap(err, "persist: lookup driver")
	}

	// Step 4: trip. Raw identifiers are kept for audit even when linkage
	// failed.
	tripID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO trips (id, vehicle_id, driver_id, raw_plate, raw_driver_name, raw_driver_phone) VALUES ($1, $2, $3, $4, $5, $6)`,
		tripID, vehicleID, driverID, nilIfEmpty(b.TruckID), nilIfEmpty(b.DriverName), nilIfEmpty(b.DriverPhone),
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert trip")
	}

	// Step 5: shipment.
	shipmentID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO shipments (id, load_number, order_number, po_number, ship_date, delivery_date, customer, remarks, status, trip_id, origin_id, destination_id, total_weight, total_volume)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		shipmentID, b.LoadNumber, nilIfEmpty(b.OrderNumber), nilIfEmpty(b.PONumber),
		b.ShipDate, b.DeliveryDate, nilIfEmpty(b.Customer), nilIfEmpty(b.Remarks), nilIfEmpty(b.Status),
		tripID, originID, destID, b.TotalWeight, b.TotalVolume,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert shipment")
	}

	// Step 6: pickup and dropoff reference the shipment, then the shipment
	// is patched with their ids (two-phase write).
	pickupID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO pickups (id, shipment_id, address_id, scheduled_at) VALUES ($1, $2, $3, $4)`,
		pickupID, shipmentID, originID, b.ShipDate,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert pickup")
	}

	dropoffID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO dropoffs (id, shipment_id, address_id, scheduled_at) VALUES ($1, $2, $3, $4)`,
		dropoffID, shipmentID, destID, b.DeliveryDate,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert dropoff")
	}

	_, err = tx.Exec(ctx,
		`UPDATE shipments SET pickup_id = $1, dropoff_id = $2 WHERE id = $3`,
		pickupID, dropoffID, shipmentID,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: patch shipment legs")
	}

	// Step 7: details, line items, document link.
	if err := insertDetails(ctx, tx, shipmentID, b); err != nil {
		return "", err
	}
	if err := insertLineItems(ctx, tx, shipmentID, b.Items); err != nil {
		return "", err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO document_shipments (document_id, shipment_id) VALUES ($1, $2)`,
		docID, shipmentID,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert document link")
	}

	// Step 8: commit.
	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "persist: commit tx")
	}
	return shipmentID, nil
}

// addrHash returns SHA-256 hex of the normalized structured fields, the
// dedup key for address rows.
func addrHash(a model.AddressResolution) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(a.Street)),
		strings.ToLower(strings.TrimSpace(a.City)),
		strings.ToLower(strings.TrimSpace(a.State)),
		strings.TrimSpace(a.PostalCode),
		strings.ToLower(strings.TrimSpace(a.Country)),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// matchOrInsertAddress matches an address row on structured-field equality,
// inserting when absent.
func (s *PostgresStore) matchOrInsertAddress(ctx context.Context, tx pgx.Tx, a model.AddressResolution) (string, error) {
	hash := addrHash(a)

	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM addresses WHERE addr_hash = $1`, hash).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrap(err, "persist: match address")
	}

	id = uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO addresses (id, street, city, state, postal_code, country, latitude, longitude, addr_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, a.Street, a.City, a.State, a.PostalCode, a.Country, coordOrNil(a, true), coordOrNil(a, false), hash,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert address")
	}
	return id, nil
}

// matchOrInsertDestination is matchOrInsertAddress plus coordinate
// backfill: missing coordinates are geocoded before insert, and an existing
// row without coordinates is updated in place.
func (s *PostgresStore) matchOrInsertDestination(ctx context.Context, tx pgx.Tx, a model.AddressResolution) (string, error) {
	hash := addrHash(a)

	var id string
	var lat, lon *float64
	err := tx.QueryRow(ctx, `SELECT id, latitude, longitude FROM addresses WHERE addr_hash = $1`, hash).Scan(&id, &lat, &lon)
	if err == nil {
		if lat == nil || lon == nil {
			if geocoded, ok := s.geocodeAddress(ctx, a); ok {
				_, updErr := tx.Exec(ctx,
					`UPDATE addresses SET latitude = $1, longitude = $2 WHERE id = $3`,
					geocoded.Latitude, geocoded.Longitude, id,
				)
				if updErr != nil {
					return "", eris.Wrap(updErr, "persist: backfill address coords")
				}
			}
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrap(err, "persist: match destination")
	}

	if !a.HasCoords {
		if geocoded, ok := s.geocodeAddress(ctx, a); ok {
			a.Latitude = geocoded.Latitude
			a.Longitude = geocoded.Longitude
			a.HasCoords = true
		}
	}

	return s.insertAddress(ctx, tx, a, hash)
}

func (s *PostgresStore) insertAddress(ctx context.Context, tx pgx.Tx, a model.AddressResolution, hash string) (string, error) {
	id := uuid.New().String()
	_, err := tx.Exec(ctx,
		`INSERT INTO addresses (id, street, city, state, postal_code, country, latitude, longitude, addr_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, a.Street, a.City, a.State, a.PostalCode, a.Country, coordOrNil(a, true), coordOrNil(a, false), hash,
	)
	if err != nil {
		return "", eris.Wrap(err, "persist: insert address")
	}
	return id, nil
}

// geocodeAddress asks the external geocoder for coordinates. Failures are
// logged and ignored; coordinate backfill is best-effort.
func (s *PostgresStore) geocodeAddress(ctx context.Context, a model.AddressResolution) (*geocodePoint, bool) {
	if s.geo == nil {
		return nil, false
	}

	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}

	result, err := s.geo.Geocode(ctx, strings.Join(parts, ", "))
	if err != nil {
		zap.L().Warn("persist: geocode backfill failed", zap.Error(err))
		return nil, false
	}
	if !result.Matched {
		return nil, false
	}
	return &geocodePoint{Latitude: result.Latitude, Longitude: result.Longitude}, true
}

type geocodePoint struct {
	Latitude  float64
	Longitude float64
}

// lookupVehicle finds a vehicle by plate. Ambiguous matches are treated as
// not found, never guessed.
func lookupVehicle(ctx context.Context, tx pgx.Tx, plate string) (*string, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, nil
	}

	ids, err := collectIDs(ctx, tx, `SELECT id FROM vehicles WHERE plate_number = $1`, plate)
	if err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, nil
	}
	return &ids[0], nil
}

// lookupDriver finds a driver by phone, falling back to name only when the
// phone lookup fails and exactly one name match exists.
func lookupDriver(ctx context.Context, tx pgx.Tx, phone, name string) (*string, error) {
	phone = strings.TrimSpace(phone)
	if phone != "" {
		ids, err := collectIDs(ctx, tx, `SELECT id FROM drivers WHERE phone = $1`, phone)
		if err != nil {
			return nil, err
		}
		if len(ids) == 1 {
			return &ids[0], nil
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	ids, err := collectIDs(ctx, tx, `SELECT id FROM drivers WHERE name = $1`, name)
	if err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, nil
	}
	return &ids[0], nil
}

func collectIDs(ctx context.Context, tx pgx.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "persist: entity lookup")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "persist: scan entity id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "persist: entity lookup iterate")
}

func insertDetails(ctx context.Context, tx pgx.Tx, shipmentID string, b *model.ShipmentBundle) error {
	var miscJSON, errsJSON []byte
	var err error
	if len(b.Misc) > 0 {
		miscJSON, err = json.Marshal(b.Misc)
		if err != nil {
			return eris.Wrap(err, "persist: marshal misc")
		}
	}
	if len(b.Errors) > 0 {
		errsJSON, err = json.Marshal(b.Errors)
		if err != nil {
			return eris.Wrap(err, "persist: marshal errors")
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO shipment_details (id, shipment_id, misc, confidence, needs_review, errors) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), shipmentID, miscJSON, b.Confidence, b.NeedsReview, errsJSON,
	)
	return eris.Wrap(err, "persist: insert details")
}

// insertLineItems bulk-inserts the bundle's items via COPY inside the
// transaction.
func insertLineItems(ctx context.Context, tx pgx.Tx, shipmentID string, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, len(items))
	for i, li := range items {
		rows[i] = []any{
			uuid.New().String(), shipmentID,
			nilIfEmpty(li.ItemNumber), nilIfEmpty(li.Description), nilIfEmpty(li.LotSerial),
			li.Quantity, nilIfEmpty(li.UnitOfMeasure), li.Weight, i + 1,
		}
	}

	_, err := db.CopyInto(ctx, tx, "line_items",
		[]string{"id", "shipment_id", "item_number", "description", "lot_serial", "quantity", "uom", "weight", "position"},
		rows,
	)
	if err != nil {
		return eris.Wrap(err, "persist: insert line items")
	}
	return nil
}

func coordOrNil(a model.AddressResolution, lat bool) any {
	if !a.HasCoords {
		return nil
	}
	if lat {
		return a.Latitude
	}
	return a.Longitude
}
