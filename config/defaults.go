// Package config provides configuration defaults and utilities
// for the warden application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Retention Defaults
// =============================================================================

const (
	// DefaultRetainedFrames is the per-device retention window on the
	// received-frame log. After a trim pass every device holds at most
	// this many frames. The bound is enforced at trim time only; a burst
	// of inserts may transiently exceed it until the next pass.
	// Override via config: retention.retained_frames
	DefaultRetainedFrames = 50

	// DefaultTrimInterval is how often the janitor runs a trim pass over
	// all known devices.
	// Override via config: retention.trim_interval
	DefaultTrimInterval = 15 * time.Minute

	// DefaultTrimJitter is the maximum random delay added to each trim
	// tick so that restarted fleets do not trim in lockstep.
	// Override via config: retention.trim_jitter
	DefaultTrimJitter = 30 * time.Second
)

// =============================================================================
// Schema Bootstrap Defaults
// =============================================================================

const (
	// DefaultReadyTimeout bounds the wait for a table to become ready
	// after creation or reconciliation. Exceeding it is a fatal
	// bootstrap failure.
	// Override via config: store.ready_timeout
	DefaultReadyTimeout = 30 * time.Second
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultStoreMaxOpenConns is the connection pool size for the
	// DuckDB-backed store.
	// Override via config: store.max_open_conns
	DefaultStoreMaxOpenConns = 25

	// DefaultStoreMaxIdleConns is the number of idle pooled connections.
	// Override via config: store.max_idle_conns
	DefaultStoreMaxIdleConns = 5

	// DefaultStoreConnMaxLifetime is the maximum lifetime of a pooled
	// connection.
	DefaultStoreConnMaxLifetime = 5 * time.Minute
)

// =============================================================================
// Archive Defaults
// =============================================================================

const (
	// DefaultArchiveCompression is the Parquet compression codec used for
	// archived frames.
	// Override via config: archive.compression
	DefaultArchiveCompression = "zstd"
)

// =============================================================================
// Stats Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy used for
	// maintenance latency quantiles. 0.01 keeps p99 within 1%.
	DefaultSketchAccuracy = 0.01
)
