// Package duckstore implements the store client on DuckDB.
//
// Logical tables map to relations whose columns follow the declared
// field order; secondary indexes map to real indexes; the atomic
// full-table transform runs as a single transaction that rebuilds the
// relation and swaps it in. A small meta table tracks each table's
// field order, index positions, tag and tier, so schema introspection
// does not depend on database catalogs.
//
// Storage tiers are recorded but not differentiated: a single-node
// DuckDB file has one durability class. A clustered store would map
// them to replica placement.
package duckstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/warden/config"
	"github.com/xtxerr/warden/internal/store"
)

// Config holds store configuration options.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    config.DefaultStoreMaxOpenConns,
		MaxIdleConns:    config.DefaultStoreMaxIdleConns,
		ConnMaxLifetime: config.DefaultStoreConnMaxLifetime,
	}
}

// Store is a DuckDB-backed record store.
//
// DDL and transforms serialize on an internal mutex; plain record
// operations rely on DuckDB's own transaction isolation.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

var _ store.Client = (*Store)(nil)

// New opens (or creates) the database and the meta table. Zero config
// fields take their defaults.
func New(cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = def.MaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = def.ConnMaxLifetime
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS warden_tables (
			name            VARCHAR PRIMARY KEY,
			record_tag      VARCHAR NOT NULL,
			tier            VARCHAR NOT NULL,
			ordered         BOOLEAN NOT NULL,
			field_order     VARCHAR NOT NULL,
			index_positions VARCHAR NOT NULL,
			next_key        BIGINT  NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create meta table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// transaction executes fn in a transaction with rollback on error.
func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// =============================================================================
// Meta table access
// =============================================================================

type tableMeta struct {
	name       string
	recordTag  string
	tier       store.Tier
	ordered    bool
	fieldOrder []string
	indexes    []int
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func readMeta(ctx context.Context, q querier, name string) (*tableMeta, error) {
	var (
		tag, tierName, fields, positions string
		ordered                          bool
	)
	err := q.QueryRowContext(ctx, `
		SELECT record_tag, tier, ordered, field_order, index_positions
		FROM warden_tables WHERE name = ?
	`, name).Scan(&tag, &tierName, &ordered, &fields, &positions)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %q: %w", name, store.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read meta for %s: %w", name, err)
	}
	tier, err := store.ParseTier(tierName)
	if err != nil {
		return nil, err
	}
	return &tableMeta{
		name:       name,
		recordTag:  tag,
		tier:       tier,
		ordered:    ordered,
		fieldOrder: splitFields(fields),
		indexes:    splitPositions(positions),
	}, nil
}

func writeMetaShape(ctx context.Context, q querier, name string, fields []string, positions []int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE warden_tables SET field_order = ?, index_positions = ? WHERE name = ?
	`, joinFields(fields), joinPositions(positions), name)
	if err != nil {
		return fmt.Errorf("update meta for %s: %w", name, err)
	}
	return nil
}

func joinFields(fields []string) string { return strings.Join(fields, ",") }

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinPositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}

func splitPositions(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func indexName(table string, pos int) string {
	return fmt.Sprintf("idx_%s_%d", table, pos)
}
