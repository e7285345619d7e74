package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/ingest"
	"github.com/sells-group/shipment-ingest/internal/locate"
	"github.com/sells-group/shipment-ingest/internal/mapper"
	"github.com/sells-group/shipment-ingest/internal/store"
	"github.com/sells-group/shipment-ingest/pkg/geocode"
	"github.com/sells-group/shipment-ingest/pkg/inference"
)

// pipelineEnv bundles everything a command needs to run ingestion.
type pipelineEnv struct {
	Store   *store.PostgresStore
	Cache   mapper.CacheStore
	Service *ingest.Service
}

func (e *pipelineEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close mapping cache", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initPipeline wires the store, geocoder, inference client, mapping cache,
// and ingestion service from configuration.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("SHIPMENT_STORE_DATABASE_URL is required")
	}

	geoOpts := []geocode.Option{
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithRateLimit(cfg.Geocode.RateLimitRPS),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
	}
	if cfg.Geocode.GoogleAPIKey != "" {
		geoOpts = append(geoOpts, geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey))
		zap.L().Info("google geocoding fallback enabled")
	}
	geo := geocode.NewClient(geoOpts...)

	st, err := store.NewPostgres(ctx, cfg.Store, geo)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var infer inference.Client
	if cfg.Inference.Key != "" {
		infer = inference.NewClient(cfg.Inference.Key, inference.Options{
			Model:     cfg.Inference.Model,
			MaxTokens: cfg.Inference.MaxTokens,
		})
	} else {
		zap.L().Debug("SHIPMENT_INFERENCE_KEY not set, header inference disabled")
	}

	cache, err := initMappingCache()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc := ingest.NewService(st, cfg, infer, cache, locate.NewResolver(geo))

	return &pipelineEnv{Store: st, Cache: cache, Service: svc}, nil
}

func initMappingCache() (mapper.CacheStore, error) {
	switch cfg.Mapper.CacheDriver {
	case "sqlite":
		c, err := mapper.NewSQLiteCache(cfg.Mapper.CachePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite mapping cache")
		}
		zap.L().Info("mapping cache using sqlite", zap.String("path", cfg.Mapper.CachePath))
		return c, nil
	case "", "memory":
		return mapper.NewMemoryCache(), nil
	default:
		return nil, eris.Errorf("unknown mapper cache driver: %s", cfg.Mapper.CacheDriver)
	}
}
