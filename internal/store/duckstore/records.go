package duckstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xtxerr/warden/internal/store"
)

// Insert writes a record. Unordered tables replace on equal key; ordered
// tables with a nil key get the table's next monotonic key.
func (s *Store) Insert(ctx context.Context, table string, rec store.Record) error {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return err
	}
	if len(rec.Values) != len(meta.fieldOrder) {
		return fmt.Errorf("table %q: record arity %d does not match field order %d",
			table, len(rec.Values), len(meta.fieldOrder))
	}

	return s.transaction(ctx, func(tx *sql.Tx) error {
		rec := rec.Clone()
		if rec.Key() == nil && meta.ordered {
			var next int64
			err := tx.QueryRowContext(ctx, `
				UPDATE warden_tables SET next_key = next_key + 1
				WHERE name = ? RETURNING next_key
			`, table).Scan(&next)
			if err != nil {
				return fmt.Errorf("assign key for %s: %w", table, err)
			}
			rec.Values[0] = uint64(next)
		}
		if !meta.ordered {
			del := fmt.Sprintf(`DELETE FROM %s WHERE %s IS NOT DISTINCT FROM ?`,
				quoteIdent(table), quoteIdent(meta.fieldOrder[0]))
			if _, err := tx.ExecContext(ctx, del, encodeValue(rec.Key())); err != nil {
				return fmt.Errorf("replace in %s: %w", table, err)
			}
		}
		return insertRecord(ctx, tx, table, meta.fieldOrder, rec)
	})
}

// Lookup returns the record with the given primary key.
func (s *Store) Lookup(ctx context.Context, table string, key any) (store.Record, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return store.Record{}, err
	}
	where := fmt.Sprintf(`WHERE %s IS NOT DISTINCT FROM ?`, quoteIdent(meta.fieldOrder[0]))
	recs, err := queryRecords(ctx, s.db, table, meta, where, []any{encodeValue(key)})
	if err != nil {
		return store.Record{}, err
	}
	if len(recs) == 0 {
		return store.Record{}, fmt.Errorf("table %q key %v: %w", table, key, store.ErrNotFound)
	}
	return recs[0], nil
}

// Keys returns every primary key present in the table.
func (s *Store) Keys(ctx context.Context, table string) ([]any, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT %s FROM %s`, quoteIdent(meta.fieldOrder[0]), quoteIdent(table))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", table, err)
	}
	defer rows.Close()

	var keys []any
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan key of %s: %w", table, err)
		}
		keys = append(keys, decodeValue(v))
	}
	return keys, rows.Err()
}

// ReadIndexed returns all records whose field at the index position
// equals value.
func (s *Store) ReadIndexed(ctx context.Context, table string, pos int, value any) ([]store.Record, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	if !hasPosition(meta.indexes, pos) {
		return nil, fmt.Errorf("table %q position %d: %w", table, pos, store.ErrNotIndexed)
	}
	where := fmt.Sprintf(`WHERE %s IS NOT DISTINCT FROM ?`, quoteIdent(meta.fieldOrder[pos-1]))
	return queryRecords(ctx, s.db, table, meta, where, []any{encodeValue(value)})
}

// DeleteRecord deletes one record by full value. Absence is not an error.
func (s *Store) DeleteRecord(ctx context.Context, table string, rec store.Record) error {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return err
	}
	if len(rec.Values) != len(meta.fieldOrder) {
		return fmt.Errorf("table %q: record arity %d does not match field order %d",
			table, len(rec.Values), len(meta.fieldOrder))
	}
	conds := make([]string, len(meta.fieldOrder))
	args := make([]any, len(meta.fieldOrder))
	for i, f := range meta.fieldOrder {
		conds[i] = fmt.Sprintf(`%s IS NOT DISTINCT FROM ?`, quoteIdent(f))
		args[i] = encodeValue(rec.Values[i])
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s`, quoteIdent(table), strings.Join(conds, " AND "))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// DeleteMatch deletes every record matching the pattern (nil values are
// wildcards) and returns how many were removed.
func (s *Store) DeleteMatch(ctx context.Context, table string, pattern store.Record) (int, error) {
	meta, err := readMeta(ctx, s.db, table)
	if err != nil {
		return 0, err
	}
	var conds []string
	var args []any
	for i, v := range pattern.Values {
		if v == nil || i >= len(meta.fieldOrder) {
			continue
		}
		conds = append(conds, fmt.Sprintf(`%s IS NOT DISTINCT FROM ?`, quoteIdent(meta.fieldOrder[i])))
		args = append(args, encodeValue(v))
	}
	q := fmt.Sprintf(`DELETE FROM %s`, quoteIdent(table))
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("delete match from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete match from %s: %w", table, err)
	}
	return int(n), nil
}

// insertRecord inserts one encoded record within a transaction.
func insertRecord(ctx context.Context, tx *sql.Tx, table string, fields []string, rec store.Record) error {
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f)
		marks[i] = "?"
		args[i] = encodeValue(rec.Values[i])
	}
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// queryRecords scans full rows back into records.
func queryRecords(ctx context.Context, q querier, table string, meta *tableMeta, where string, args []any) ([]store.Record, error) {
	cols := make([]string, len(meta.fieldOrder))
	for i, f := range meta.fieldOrder {
		cols[i] = quoteIdent(f)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(cols, ", "), quoteIdent(table))
	if where != "" {
		query += " " + where
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		raw := make([]*string, len(meta.fieldOrder))
		ptrs := make([]any, len(meta.fieldOrder))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := store.Record{Tag: meta.recordTag, Values: make([]any, len(raw))}
		for i, v := range raw {
			rec.Values[i] = decodeValue(v)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
