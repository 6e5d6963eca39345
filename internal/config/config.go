package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loglake/loglake/internal/db"
)

// View targets for the canonical read surface.
const (
	ViewTargetFlat     = "flat"
	ViewTargetEnvelope = "envelope"
)

// Config holds the full service configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Ingest   IngestConfig
	Query    QueryConfig
	Logging  LoggingConfig
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// IngestConfig bounds extraction and scheduling behavior.
type IngestConfig struct {
	MaxRowsPerExtract int
	Interval          time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	UpstreamTimeout   time.Duration
}

// QueryConfig bounds the query surface.
type QueryConfig struct {
	// ViewTarget selects the canonical projection: "flat" or "envelope".
	ViewTarget string
	// MaxScannedBytes rejects queries whose estimated scan exceeds the cap.
	MaxScannedBytes int64
	// MaxLookbackHours caps the query time window.
	MaxLookbackHours int
	// DefaultLimit applies when a request omits the page size.
	DefaultLimit int
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string
	Format string
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Ingest: IngestConfig{
			MaxRowsPerExtract: 5000,
			Interval:          time.Minute,
			RetryAttempts:     3,
			RetryBaseDelay:    time.Second,
			UpstreamTimeout:   30 * time.Second,
		},
		Query: QueryConfig{
			ViewTarget:       ViewTargetEnvelope,
			MaxScannedBytes:  1 << 30, // 1 GiB
			MaxLookbackHours: 168,
			DefaultLimit:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config.yaml from configPath and applies LOGLAKE_* env overrides
// on top of the defaults.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("LOGLAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("ingest.max_rows_per_extract") {
		cfg.Ingest.MaxRowsPerExtract = v.GetInt("ingest.max_rows_per_extract")
	}
	if v.IsSet("ingest.interval") {
		cfg.Ingest.Interval = v.GetDuration("ingest.interval")
	}
	if v.IsSet("ingest.retry_attempts") {
		cfg.Ingest.RetryAttempts = v.GetInt("ingest.retry_attempts")
	}
	if v.IsSet("ingest.retry_base_delay") {
		cfg.Ingest.RetryBaseDelay = v.GetDuration("ingest.retry_base_delay")
	}
	if v.IsSet("ingest.upstream_timeout") {
		cfg.Ingest.UpstreamTimeout = v.GetDuration("ingest.upstream_timeout")
	}
	if v.IsSet("query.view_target") {
		cfg.Query.ViewTarget = v.GetString("query.view_target")
	}
	if v.IsSet("query.max_scanned_bytes") {
		cfg.Query.MaxScannedBytes = v.GetInt64("query.max_scanned_bytes")
	}
	if v.IsSet("query.max_lookback_hours") {
		cfg.Query.MaxLookbackHours = v.GetInt("query.max_lookback_hours")
	}
	if v.IsSet("query.default_limit") {
		cfg.Query.DefaultLimit = v.GetInt("query.default_limit")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.format") {
		cfg.Logging.Format = v.GetString("logging.format")
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Query.ViewTarget {
	case ViewTargetFlat, ViewTargetEnvelope:
	default:
		return fmt.Errorf("invalid query.view_target %q", cfg.Query.ViewTarget)
	}
	if cfg.Query.MaxScannedBytes <= 0 {
		return fmt.Errorf("query.max_scanned_bytes must be positive")
	}
	if cfg.Query.MaxLookbackHours < 1 || cfg.Query.MaxLookbackHours > 168 {
		return fmt.Errorf("query.max_lookback_hours must be within [1, 168]")
	}
	if cfg.Ingest.MaxRowsPerExtract <= 0 {
		return fmt.Errorf("ingest.max_rows_per_extract must be positive")
	}
	return nil
}
