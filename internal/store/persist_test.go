package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipment-ingest/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var lineItemColumns = []string{"id", "shipment_id", "item_number", "description", "lot_serial", "quantity", "uom", "weight", "position"}

func testBundle() *model.ShipmentBundle {
	shipDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.ShipmentBundle{
		LoadNumber: "L-100",
		ShipDate:   &shipDate,
		Customer:   "Acme Sdn Bhd",
		Destination: model.AddressResolution{
			RawInput:   "PTP",
			Street:     "Blok A, Wisma PTP, Jalan Pelabuhan Tanjung Pelepas",
			City:       "Gelang Patah",
			State:      "Johor",
			PostalCode: "81560",
			Country:    "Malaysia",
			Latitude:   1.3623,
			Longitude:  103.5449,
			HasCoords:  true,
			Method:     model.ResolveKeyword,
			Confidence: 0.85,
		},
		Items: []model.LineItem{
			{ItemNumber: "ITM-1", Quantity: 10, Weight: 100},
			{ItemNumber: "ITM-2", Quantity: 5, Weight: 50},
		},
		TotalWeight: 150,
		Confidence:  0.95,
	}
}

func TestPersistBundle_Success(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := testBundle()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, latitude, longitude FROM addresses WHERE addr_hash = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO addresses`).
		WithArgs(pgxmock.AnyArg(), b.Destination.Street, b.Destination.City, b.Destination.State,
			b.Destination.PostalCode, b.Destination.Country, b.Destination.Latitude, b.Destination.Longitude, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pickups`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dropoffs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE shipments SET pickup_id`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO shipment_details`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"line_items"}, lineItemColumns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO document_shipments`).
		WithArgs("doc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome := s.PersistBundle(context.Background(), "doc-1", b)

	assert.True(t, outcome.Success)
	assert.Equal(t, "L-100", outcome.LoadNumber)
	assert.NotEmpty(t, outcome.ShipmentID)
	assert.Empty(t, outcome.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBundle_ReusesExistingAddress(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := testBundle()
	b.Items = nil

	lat, lon := 1.3623, 103.5449
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, latitude, longitude FROM addresses WHERE addr_hash = \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "latitude", "longitude"}).
			AddRow("addr-existing", &lat, &lon))
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pickups`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dropoffs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), strPtr("addr-existing"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE shipments SET pickup_id`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO shipment_details`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome := s.PersistBundle(context.Background(), "doc-1", b)

	assert.True(t, outcome.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBundle_LineItemFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := testBundle()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, latitude, longitude FROM addresses`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO addresses`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pickups`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dropoffs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE shipments SET pickup_id`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO shipment_details`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"line_items"}, lineItemColumns).
		WillReturnError(eris.New("copy failed"))
	mock.ExpectRollback()

	outcome := s.PersistBundle(context.Background(), "doc-1", b)

	assert.False(t, outcome.Success)
	assert.Empty(t, outcome.ShipmentID)
	assert.Contains(t, outcome.Error, "line items")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBundle_BeginFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(eris.New("pool exhausted"))

	outcome := s.PersistBundle(context.Background(), "doc-1", testBundle())

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "begin tx")
}

func TestPersistBundle_VehicleAndDriverLookups(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := testBundle()
	b.Items = nil
	b.TruckID = "JSC 1234"
	b.DriverName = "Rahman"
	b.DriverPhone = "012-3456789"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, latitude, longitude FROM addresses`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO addresses`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT id FROM vehicles WHERE plate_number = \$1`).
		WithArgs("JSC 1234").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("veh-1"))
	mock.ExpectQuery(`SELECT id FROM drivers WHERE phone = \$1`).
		WithArgs("012-3456789").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("drv-1"))
	mock.ExpectExec(`INSERT INTO trips`).
		WithArgs(pgxmock.AnyArg(), strPtr("veh-1"), strPtr("drv-1"), "JSC 1234", "Rahman", "012-3456789").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pickups`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dropoffs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE shipments SET pickup_id`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO shipment_details`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome := s.PersistBundle(context.Background(), "doc-1", b)

	assert.True(t, outcome.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBundle_AmbiguousDriverNameNotLinked(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	b := testBundle()
	b.Items = nil
	b.DriverName = "Ali"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, latitude, longitude FROM addresses`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO addresses`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT id FROM drivers WHERE name = \$1`).
		WithArgs("Ali").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("drv-1").AddRow("drv-2"))
	mock.ExpectExec(`INSERT INTO trips`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO pickups`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO dropoffs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE shipments SET pickup_id`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO shipment_details`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO document_shipments`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome := s.PersistBundle(context.Background(), "doc-1", b)

	assert.True(t, outcome.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddrHash_Deterministic(t *testing.T) {
	a := model.AddressResolution{Street: "Jalan Satu", City: "Gelang Patah", State: "Johor", PostalCode: "81560", Country: "Malaysia"}
	b := model.AddressResolution{Street: "JALAN SATU ", City: " gelang patah", State: "johor", PostalCode: "81560", Country: "MALAYSIA"}

	assert.Equal(t, addrHash(a), addrHash(b))
	assert.Len(t, addrHash(a), 64)

	c := a
	c.PostalCode = "81700"
	assert.NotEqual(t, addrHash(a), addrHash(c))
}

func strPtr(s string) *string { return &s }
