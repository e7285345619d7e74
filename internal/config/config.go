// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mapper    MapperConfig    `yaml:"mapper" mapstructure:"mapper"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Review    ReviewConfig    `yaml:"review" mapstructure:"review"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MapperConfig configures header-to-field mapping.
type MapperConfig struct {
	InferenceEnabled    bool    `yaml:"inference_enabled" mapstructure:"inference_enabled"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	CacheTTLDays        int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	CacheDriver         string  `yaml:"cache_driver" mapstructure:"cache_driver"` // "memory" or "sqlite"
	CachePath           string  `yaml:"cache_path" mapstructure:"cache_path"`
}

// GeocodeConfig configures the geocoding client.
type GeocodeConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// InferenceConfig configures the LLM field-inference capability.
type InferenceConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// IngestConfig configures document ingestion behavior.
type IngestConfig struct {
	DefaultHeaderRow  int    `yaml:"default_header_row" mapstructure:"default_header_row"`
	OrphanPolicy      string `yaml:"orphan_policy" mapstructure:"orphan_policy"` // "discard" or "flag"
	MaxConcurrentDocs int    `yaml:"max_concurrent_docs" mapstructure:"max_concurrent_docs"`
}

// ReviewConfig holds the confidence-penalty tunables for bundle scoring.
// Heuristics, exposed as configuration rather than constants.
type ReviewConfig struct {
	Cutoff             float64 `yaml:"cutoff" mapstructure:"cutoff"`
	MappingPenaltyCap  float64 `yaml:"mapping_penalty_cap" mapstructure:"mapping_penalty_cap"`
	LocationPenaltyCap float64 `yaml:"location_penalty_cap" mapstructure:"location_penalty_cap"`
	ErrorPenalty       float64 `yaml:"error_penalty" mapstructure:"error_penalty"`
	ErrorPenaltyCap    float64 `yaml:"error_penalty_cap" mapstructure:"error_penalty_cap"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHIPMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("mapper.inference_enabled", true)
	v.SetDefault("mapper.confidence_threshold", 0.7)
	v.SetDefault("mapper.cache_ttl_days", 7)
	v.SetDefault("mapper.cache_driver", "memory")
	v.SetDefault("mapper.cache_path", "mapping_cache.db")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.rate_limit_rps", 1)
	v.SetDefault("geocode.user_agent", "shipment-ingest/1.0")
	v.SetDefault("inference.model", "claude-haiku-4-5-20251001")
	v.SetDefault("inference.max_tokens", 256)
	v.SetDefault("ingest.default_header_row", 0)
	v.SetDefault("ingest.orphan_policy", "discard")
	v.SetDefault("ingest.max_concurrent_docs", 4)
	v.SetDefault("review.cutoff", 0.8)
	v.SetDefault("review.mapping_penalty_cap", 0.3)
	v.SetDefault("review.location_penalty_cap", 0.3)
	v.SetDefault("review.error_penalty", 0.05)
	v.SetDefault("review.error_penalty_cap", 0.2)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
