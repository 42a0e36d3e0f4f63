// Package store defines the client surface of the replicated record
// store and the record model shared by every engine component.
//
// The store itself (replication, durability, index maintenance) is an
// external system. This package pins down exactly what the engine relies
// on: atomic single-table operations, secondary-index maintenance
// primitives, and key/pattern-based reads and deletes. Two backends
// implement it - memstore (in-memory reference, used by tests) and
// duckstore (DuckDB-backed, used by wardend).
package store

import (
	"context"
)

// TableSpec describes the physical shape requested when a table is
// created: its field order, which positions carry secondary indexes,
// the storage tier, the record type tag, and whether the table keeps
// its records in natural key order.
type TableSpec struct {
	FieldOrder     []string
	IndexPositions []int
	Tier           Tier
	RecordTag      string
	Ordered        bool
}

// Client is the engine's handle to the record store.
//
// All operations are independently atomic with respect to other store
// operations; no call spans tables and no call requires a lock held by
// the caller. Blocking operations honor context cancellation, and
// readiness waits are bounded by the context deadline.
//
// Index positions are 1-based: position = 1 + the 0-based offset of the
// indexed field in the field order currently in effect.
type Client interface {
	// Exists reports whether the table is known to the store.
	Exists(ctx context.Context, table string) (bool, error)

	// CreateTable creates a table with the given shape. It fails with
	// ErrTableExists if the table is already present.
	CreateTable(ctx context.Context, table string, spec TableSpec) error

	// WaitReady blocks until the table is loaded and consistent on this
	// node, or until the context expires (ErrReadinessTimeout).
	WaitReady(ctx context.Context, table string) error

	// FieldOrder returns the field order currently in effect.
	FieldOrder(ctx context.Context, table string) ([]string, error)

	// IndexPositions returns the sorted set of secondary index positions
	// currently maintained for the table.
	IndexPositions(ctx context.Context, table string) ([]int, error)

	// AddIndex starts maintaining a secondary index at the given position.
	AddIndex(ctx context.Context, table string, pos int) error

	// DropIndex stops maintaining the secondary index at the given position.
	DropIndex(ctx context.Context, table string, pos int) error

	// Transform atomically rewrites every record in the table with fn and
	// installs newOrder as the table's field order. Either every record is
	// transformed and the order updates, or neither happens
	// (ErrTransformFailed wraps any partial failure the store rolled back).
	Transform(ctx context.Context, table string, newOrder []string, fn func(Record) Record) error

	// Insert writes a record. For unordered tables a record with an equal
	// key replaces the existing one. A nil key on an ordered append log is
	// assigned by the store, monotonically increasing.
	Insert(ctx context.Context, table string, rec Record) error

	// Lookup returns the record with the given primary key, or ErrNotFound.
	Lookup(ctx context.Context, table string, key any) (Record, error)

	// Keys returns every primary key present in the table.
	Keys(ctx context.Context, table string) ([]any, error)

	// ReadIndexed returns all records whose field at the given index
	// position equals value. The position must carry a secondary index
	// (ErrNotIndexed otherwise). Order of results is unspecified.
	ReadIndexed(ctx context.Context, table string, pos int, value any) ([]Record, error)

	// DeleteRecord deletes a record by full value. Deleting a record that
	// is no longer present is not an error.
	DeleteRecord(ctx context.Context, table string, rec Record) error

	// DeleteMatch deletes every record matching the pattern (nil values
	// are wildcards) and returns how many were removed.
	DeleteMatch(ctx context.Context, table string, pattern Record) (int, error)

	// Close releases the client's resources.
	Close() error
}
