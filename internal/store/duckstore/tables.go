package duckstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xtxerr/warden/internal/store"
)

// Exists reports whether the table is known to the store.
func (s *Store) Exists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM warden_tables WHERE name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

// CreateTable creates the relation and registers it in the meta table.
func (s *Store) CreateTable(ctx context.Context, table string, spec store.TableSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	exists, err := s.Exists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("table %q: %w", table, store.ErrTableExists)
	}

	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createTableSQL(table, spec.FieldOrder)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		for _, pos := range spec.IndexPositions {
			if _, err := tx.ExecContext(ctx, createIndexSQL(table, spec.FieldOrder, pos)); err != nil {
				return fmt.Errorf("create index %d on %s: %w", pos, table, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO warden_tables (name, record_tag, tier, ordered, field_order, index_positions)
			VALUES (?, ?, ?, ?, ?, ?)
		`, table, spec.RecordTag, spec.Tier.String(), spec.Ordered,
			joinFields(spec.FieldOrder), joinPositions(spec.IndexPositions))
		if err != nil {
			return fmt.Errorf("register %s: %w", table, err)
		}
		return nil
	})
}

// WaitReady polls until the table answers a trivial read or the context
// expires. A local DuckDB file answers on the first try; the loop exists
// because the client contract allows a store that loads tables
// asynchronously after creation.
func (s *Store) WaitReady(ctx context.Context, table string) error {
	for {
		if _, err := readMeta(ctx, s.db, table); err == nil {
			var n int
			probe := fmt.Sprintf(`SELECT count(*) FROM (SELECT 1 FROM %s LIMIT 1)`, quoteIdent(table))
			if scanErr := s.db.QueryRowContext(ctx, probe).Scan(&n); scanErr == nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("table %q: %w", table, store.ErrReadinessTimeout)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// FieldOrder returns the field order currently in effect.
func (s *Store) FieldOrder(ctx context.Context, table string) ([]string, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	return meta.fieldOrder, nil
}

// IndexPositions returns the sorted secondary index positions.
func (s *Store) IndexPositions(ctx context.Context, table string) ([]int, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	return sortedPositions(meta.indexes), nil
}

// AddIndex creates the index and records its position.
func (s *Store) AddIndex(ctx context.Context, table string, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return err
	}
	if pos < 1 || pos > len(meta.fieldOrder) {
		return fmt.Errorf("table %q position %d: %w", table, pos, store.ErrIndexOutOfRange)
	}
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createIndexSQL(table, meta.fieldOrder, pos)); err != nil {
			return fmt.Errorf("create index %d on %s: %w", pos, table, err)
		}
		return writeMetaShape(ctx, tx, table, meta.fieldOrder, addPosition(meta.indexes, pos))
	})
}

// DropIndex drops the index and removes its position.
func (s *Store) DropIndex(ctx context.Context, table string, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return err
	}
	if !hasPosition(meta.indexes, pos) {
		return fmt.Errorf("table %q position %d: %w", table, pos, store.ErrNotIndexed)
	}
	return s.transaction(ctx, func(tx *sql.Tx) error {
		drop := fmt.Sprintf(`DROP INDEX IF EXISTS %s`, quoteIdent(indexName(table, pos)))
		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return fmt.Errorf("drop index %d on %s: %w", pos, table, err)
		}
		return writeMetaShape(ctx, tx, table, meta.fieldOrder, removePosition(meta.indexes, pos))
	})
}

// Transform rebuilds the relation under the new field order inside one
// transaction: every row is read, rewritten through fn, and loaded into
// a replacement relation that is swapped in before commit. Surviving
// indexes (positions still within the new order) are recreated on the
// replacement. Any failure rolls the whole rebuild back.
func (s *Store) Transform(ctx context.Context, table string, newOrder []string, fn func(store.Record) store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return err
	}

	err = s.transaction(ctx, func(tx *sql.Tx) error {
		rows, err := queryRecords(ctx, tx, table, meta, "", nil)
		if err != nil {
			return err
		}

		tmp := table + "__migrating"
		if _, err := tx.ExecContext(ctx, createTableSQL(tmp, newOrder)); err != nil {
			return fmt.Errorf("create replacement: %w", err)
		}

		for _, rec := range rows {
			out := fn(rec)
			if len(out.Values) != len(newOrder) {
				return fmt.Errorf("record arity %d does not match new field order %d",
					len(out.Values), len(newOrder))
			}
			if err := insertRecord(ctx, tx, tmp, newOrder, out); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE %s`, quoteIdent(table))); err != nil {
			return fmt.Errorf("drop original: %w", err)
		}
		rename := fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, quoteIdent(tmp), quoteIdent(table))
		if _, err := tx.ExecContext(ctx, rename); err != nil {
			return fmt.Errorf("swap in replacement: %w", err)
		}

		// Indexes do not survive the rebuild; recreate the ones whose
		// positions still fall inside the new order.
		var kept []int
		for _, pos := range meta.indexes {
			if pos >= 1 && pos <= len(newOrder) {
				if _, err := tx.ExecContext(ctx, createIndexSQL(table, newOrder, pos)); err != nil {
					return fmt.Errorf("recreate index %d: %w", pos, err)
				}
				kept = append(kept, pos)
			}
		}

		return writeMetaShape(ctx, tx, table, newOrder, kept)
	})
	if err != nil {
		return fmt.Errorf("transform %s: %v: %w", table, err, store.ErrTransformFailed)
	}
	return nil
}

func createTableSQL(table string, fields []string) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f) + " VARCHAR"
	}
	return fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(table), strings.Join(cols, ", "))
}

func createIndexSQL(table string, fields []string, pos int) string {
	return fmt.Sprintf(`CREATE INDEX %s ON %s (%s)`,
		quoteIdent(indexName(table, pos)), quoteIdent(table), quoteIdent(fields[pos-1]))
}

func sortedPositions(positions []int) []int {
	out := append([]int(nil), positions...)
	sort.Ints(out)
	return out
}

func hasPosition(positions []int, pos int) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}

func addPosition(positions []int, pos int) []int {
	if hasPosition(positions, pos) {
		return positions
	}
	return sortedPositions(append(append([]int(nil), positions...), pos))
}

func removePosition(positions []int, pos int) []int {
	var out []int
	for _, p := range positions {
		if p != pos {
			out = append(out, p)
		}
	}
	return out
}
