package mapper

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/shipment-ingest/internal/model"
)

// SQLiteCache is a persistent CacheStore using modernc.org/sqlite, so
// accepted inference results survive process restarts.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database at the given path
// and configures WAL mode.
func NewSQLiteCache(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "mapper: open cache db")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "mapper: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS mapping_cache (
	header     TEXT PRIMARY KEY,
	field      TEXT NOT NULL,
	confidence REAL NOT NULL,
	cached_at  DATETIME NOT NULL
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "mapper: migrate cache db")
	}

	return &SQLiteCache{db: db}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string, ttl time.Duration) (*CachedMapping, error) {
	var field string
	var confidence float64
	var cachedAt time.Time

	err := c.db.QueryRowContext(ctx,
		`SELECT field, confidence, cached_at FROM mapping_cache WHERE header = ?`,
		key,
	).Scan(&field, &confidence, &cachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "mapper: cache get")
	}

	if ttl > 0 && time.Since(cachedAt) > ttl {
		return nil, nil
	}

	return &CachedMapping{
		Field:      model.CanonicalField(field),
		Confidence: confidence,
		CachedAt:   cachedAt,
	}, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, m CachedMapping) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO mapping_cache (header, field, confidence, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (header) DO UPDATE SET field = excluded.field, confidence = excluded.confidence, cached_at = excluded.cached_at`,
		key, string(m.Field), m.Confidence, m.CachedAt,
	)
	return eris.Wrap(err, "mapper: cache set")
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
