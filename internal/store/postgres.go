// Package store persists documents and reconstructed shipments in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shipment-ingest/internal/config"
	"github.com/sells-group/shipment-ingest/internal/db"
	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/pkg/geocode"
)

// PostgresStore implements document persistence and the per-bundle
// persistence engine on a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	geo     geocode.Client
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool. The geocode
// client is optional; without it, destination coordinate backfill is
// skipped.
func NewPostgres(ctx context.Context, cfg config.StoreConfig, geo geocode.Client) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, geo: geo, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filename       TEXT NOT NULL,
	doc_type       TEXT NOT NULL DEFAULT 'default',
	status         TEXT NOT NULL DEFAULT 'pending',
	shipment_count INTEGER NOT NULL DEFAULT 0,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS addresses (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	street      TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	country     TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION,
	longitude   DOUBLE PRECISION,
	addr_hash   TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vehicles (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	plate_number TEXT NOT NULL UNIQUE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS drivers (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	phone      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trips (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vehicle_id      TEXT REFERENCES vehicles(id),
	driver_id       TEXT REFERENCES drivers(id),
	raw_plate       TEXT,
	raw_driver_name TEXT,
	raw_driver_phone TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS shipments (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	load_number    TEXT NOT NULL,
	order_number   TEXT,
	po_number      TEXT,
	ship_date      TIMESTAMPTZ,
	delivery_date  TIMESTAMPTZ,
	customer       TEXT,
	remarks        TEXT,
	status         TEXT,
	trip_id        TEXT REFERENCES trips(id),
	origin_id      TEXT REFERENCES addresses(id),
	destination_id TEXT REFERENCES addresses(id),
	pickup_id      TEXT,
	dropoff_id     TEXT,
	total_weight   DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_volume   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pickups (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	shipment_id TEXT NOT NULL REFERENCES shipments(id),
	address_id  TEXT REFERENCES addresses(id),
	scheduled_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS dropoffs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	shipment_id TEXT NOT NULL REFERENCES shipments(id),
	address_id  TEXT REFERENCES addresses(id),
	scheduled_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS shipment_details (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	shipment_id  TEXT NOT NULL REFERENCES shipments(id),
	misc         JSONB,
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	needs_review BOOLEAN NOT NULL DEFAULT false,
	errors       JSONB
);

CREATE TABLE IF NOT EXISTS line_items (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	shipment_id TEXT NOT NULL REFERENCES shipments(id),
	item_number TEXT,
	description TEXT,
	lot_serial  TEXT,
	quantity    DOUBLE PRECISION NOT NULL DEFAULT 0,
	uom         TEXT,
	weight      DOUBLE PRECISION NOT NULL DEFAULT 0,
	position    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS document_shipments (
	document_id TEXT NOT NULL REFERENCES documents(id),
	shipment_id TEXT NOT NULL REFERENCES shipments(id),
	PRIMARY KEY (document_id, shipment_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_shipments_load_number ON shipments(load_number);
CREATE INDEX IF NOT EXISTS idx_line_items_shipment_id ON line_items(shipment_id);
CREATE INDEX IF NOT EXISTS idx_drivers_phone ON drivers(phone);
CREATE INDEX IF NOT EXISTS idx_drivers_name ON drivers(name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// CreateDocument records a new uploaded document in pending state.
func (s *PostgresStore) CreateDocument(ctx context.Context, filename string, docType model.DocumentType) (*model.Document, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, filename, doc_type, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, filename, string(docType), string(model.DocStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert document")
	}

	return &model.Document{
		ID:        id,
		Filename:  filename,
		Type:      docType,
		Status:    model.DocStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateDocumentStatus transitions a document's status. Written once at
// batch start (processing) and once at the end (processed or error).
func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus, shipmentCount int, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, shipment_count = $2, error = $3, updated_at = $4 WHERE id = $5`,
		string(status), shipmentCount, nilIfEmpty(errMsg), time.Now().UTC(), docID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document status %s", docID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", docID)
	}
	return nil
}

// GetDocument fetches one document by id, or nil when absent.
func (s *PostgresStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	var d model.Document
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, doc_type, status, shipment_count, error, created_at, updated_at FROM documents WHERE id = $1`,
		docID,
	).Scan(&d.ID, &d.Filename, &d.Type, &d.Status, &d.ShipmentCount, &errMsg, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", docID)
	}
	if errMsg != nil {
		d.Error = *errMsg
	}
	return &d, nil
}

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Status model.DocumentStatus
	Limit  int
	Offset int
}

// ListDocuments returns documents newest-first.
func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, filename, doc_type, status, shipment_count, error, created_at, updated_at FROM documents WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var errMsg *string
		if err := rows.Scan(&d.ID, &d.Filename, &d.Type, &d.Status, &d.ShipmentCount, &errMsg, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		if errMsg != nil {
			d.Error = *errMsg
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

// nilIfEmpty returns nil for empty strings, allowing NULL storage.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
