// Package loader reads and validates the wardend YAML configuration.
//
// The file has four sections:
//
//	store:     backend selection and connection settings
//	retention: trim window, interval, jitter
//	archive:   optional Parquet archive of evicted frames
//	seed:      first-boot admin credentials for the users table
//	log:       level and format
//
// Unknown keys anywhere in the file are rejected rather than ignored, so
// a typo fails fast instead of silently running with defaults.
package loader

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/errors"
)

// Config is the root configuration structure for wardend.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Retention RetentionConfig `yaml:"retention"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Seed      SeedConfig      `yaml:"seed"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	// Backend is "duckdb" (persistent) or "memory" (ephemeral).
	// Default: "duckdb"
	Backend string `yaml:"backend"`

	// Path is the DuckDB database file. Empty means in-memory DuckDB.
	Path string `yaml:"path"`

	// MaxOpenConns bounds the connection pool.
	// Default: config.DefaultStoreMaxOpenConns
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns bounds idle pooled connections.
	// Default: config.DefaultStoreMaxIdleConns
	MaxIdleConns int `yaml:"max_idle_conns"`

	// ReadyTimeout bounds each table readiness wait during bootstrap.
	// Default: config.DefaultReadyTimeout
	ReadyTimeout Duration `yaml:"ready_timeout"`
}

// RetentionConfig configures the frame retention trimmer.
type RetentionConfig struct {
	// RetainedFrames is the per-device window size.
	// Default: config.DefaultRetainedFrames
	RetainedFrames int `yaml:"retained_frames"`

	// TrimInterval is the period between trim passes.
	// Default: config.DefaultTrimInterval
	TrimInterval Duration `yaml:"trim_interval"`

	// TrimJitter is the maximum random delay before each pass.
	// Default: config.DefaultTrimJitter
	TrimJitter Duration `yaml:"trim_jitter"`
}

// ArchiveConfig configures the evicted-frame archive. Disabled unless a
// directory is set.
type ArchiveConfig struct {
	// Dir is the archive root. Empty disables archiving.
	Dir string `yaml:"dir"`

	// Compression is the Parquet codec: zstd, snappy, lz4, gzip, none.
	// Default: config.DefaultArchiveCompression
	Compression string `yaml:"compression"`
}

// SeedConfig carries the admin credentials used the first time the users
// table is created. Ignored on every later boot.
type SeedConfig struct {
	AdminUser string `yaml:"admin_user"`
	AdminPass string `yaml:"admin_pass"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// JSON switches output from text to JSON.
	JSON bool `yaml:"json"`
}

// Duration wraps time.Duration for YAML parsing: accepts "15m" style
// strings or a bare integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if i, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "duckdb"
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = config.DefaultStoreMaxOpenConns
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = config.DefaultStoreMaxIdleConns
	}
	if c.Store.ReadyTimeout == 0 {
		c.Store.ReadyTimeout = Duration(config.DefaultReadyTimeout)
	}
	if c.Retention.RetainedFrames == 0 {
		c.Retention.RetainedFrames = config.DefaultRetainedFrames
	}
	if c.Retention.TrimInterval == 0 {
		c.Retention.TrimInterval = Duration(config.DefaultTrimInterval)
	}
	if c.Retention.TrimJitter == 0 {
		c.Retention.TrimJitter = Duration(config.DefaultTrimJitter)
	}
	if c.Archive.Compression == "" {
		c.Archive.Compression = config.DefaultArchiveCompression
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for consistency. Call after
// ApplyDefaults.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "duckdb", "memory":
	default:
		return fmt.Errorf("store.backend %q: %w", c.Store.Backend, errors.ErrInvalidConfig)
	}
	if c.Retention.RetainedFrames < 1 {
		return fmt.Errorf("retention.retained_frames must be positive: %w", errors.ErrInvalidConfig)
	}
	if c.Retention.TrimInterval.Duration() < time.Second {
		return fmt.Errorf("retention.trim_interval below 1s: %w", errors.ErrInvalidConfig)
	}
	switch c.Archive.Compression {
	case "zstd", "snappy", "lz4", "gzip", "none":
	default:
		return fmt.Errorf("archive.compression %q: %w", c.Archive.Compression, errors.ErrInvalidConfig)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: %w", c.Log.Level, errors.ErrInvalidConfig)
	}
	return nil
}
