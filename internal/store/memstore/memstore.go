// Package memstore provides an in-memory implementation of the store
// client. It mirrors the semantics the engine expects from the real
// replicated store - single-table atomicity, 1-based index positions,
// key-replacement on unordered tables, store-assigned monotonic keys on
// ordered append logs - without any I/O.
//
// It backs the package tests and is also usable as an ephemeral backend
// for wardend (-memory).
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xtxerr/warden/internal/errors"
	"github.com/xtxerr/warden/internal/store"
)

type table struct {
	spec    store.TableSpec
	fields  []string
	indexes map[int]struct{}
	rows    []store.Record
	nextKey uint64
}

// Store is an in-memory record store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

var _ store.Client = (*Store)(nil)

func (s *Store) table(name string) (*table, error) {
	if s.closed {
		return nil, store.ErrClosed
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, store.ErrTableNotFound)
	}
	return t, nil
}

// Exists reports whether the table is present.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, store.ErrClosed
	}
	_, ok := s.tables[name]
	return ok, nil
}

// CreateTable creates a table with the given shape.
func (s *Store) CreateTable(ctx context.Context, name string, spec store.TableSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("table %q: %w", name, store.ErrTableExists)
	}
	t := &table{
		spec:    spec,
		fields:  append([]string(nil), spec.FieldOrder...),
		indexes: make(map[int]struct{}),
	}
	for _, pos := range spec.IndexPositions {
		if pos < 1 || pos > len(spec.FieldOrder) {
			return fmt.Errorf("table %q position %d: %w", name, pos, errors.ErrIndexOutOfRange)
		}
		t.indexes[pos] = struct{}{}
	}
	s.tables[name] = t
	return nil
}

// WaitReady returns immediately for existing tables; memory tables have
// no load phase.
func (s *Store) WaitReady(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("table %q: %w", name, store.ErrReadinessTimeout)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.table(name)
	return err
}

// FieldOrder returns the field order currently in effect.
func (s *Store) FieldOrder(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), t.fields...), nil
}

// IndexPositions returns the sorted secondary index positions.
func (s *Store) IndexPositions(ctx context.Context, name string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(t.indexes))
	for pos := range t.indexes {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out, nil
}

// AddIndex starts maintaining an index at the given position.
func (s *Store) AddIndex(ctx context.Context, name string, pos int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if pos < 1 || pos > len(t.fields) {
		return fmt.Errorf("table %q position %d: %w", name, pos, errors.ErrIndexOutOfRange)
	}
	t.indexes[pos] = struct{}{}
	return nil
}

// DropIndex stops maintaining the index at the given position.
func (s *Store) DropIndex(ctx context.Context, name string, pos int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if _, ok := t.indexes[pos]; !ok {
		return fmt.Errorf("table %q position %d: %w", name, pos, store.ErrNotIndexed)
	}
	delete(t.indexes, pos)
	return nil
}

// Transform atomically rewrites every record and installs the new field
// order. The table lock makes the rewrite indivisible for observers.
func (s *Store) Transform(ctx context.Context, name string, newOrder []string, fn func(store.Record) store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	rewritten := make([]store.Record, len(t.rows))
	for i, row := range t.rows {
		out := fn(row.Clone())
		if len(out.Values) != len(newOrder) {
			return fmt.Errorf("table %q: record arity %d does not match new field order %d: %w",
				name, len(out.Values), len(newOrder), store.ErrTransformFailed)
		}
		rewritten[i] = out
	}
	t.rows = rewritten
	t.fields = append([]string(nil), newOrder...)
	return nil
}

// Insert writes a record. Unordered tables replace on equal key; ordered
// tables with a nil key get a store-assigned monotonic key.
func (s *Store) Insert(ctx context.Context, name string, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	if len(rec.Values) != len(t.fields) {
		return fmt.Errorf("table %q: record arity %d does not match field order %d: %w",
			name, len(rec.Values), len(t.fields), errors.ErrKeyMismatch)
	}
	rec = rec.Clone()
	if rec.Key() == nil && t.spec.Ordered {
		t.nextKey++
		rec.Values[0] = t.nextKey
	}
	if !t.spec.Ordered {
		for i := range t.rows {
			if matchKey(t.rows[i], rec.Key()) {
				t.rows[i] = rec
				return nil
			}
		}
	}
	t.rows = append(t.rows, rec)
	return nil
}

// Lookup returns the record with the given primary key.
func (s *Store) Lookup(ctx context.Context, name string, key any) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return store.Record{}, err
	}
	for _, row := range t.rows {
		if matchKey(row, key) {
			return row.Clone(), nil
		}
	}
	return store.Record{}, fmt.Errorf("table %q key %v: %w", name, key, store.ErrNotFound)
}

// Keys returns every primary key present in the table.
func (s *Store) Keys(ctx context.Context, name string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(t.rows))
	for _, row := range t.rows {
		keys = append(keys, row.Key())
	}
	return keys, nil
}

// ReadIndexed returns all records whose field at the index position
// equals value.
func (s *Store) ReadIndexed(ctx context.Context, name string, pos int, value any) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(name)
	if err != nil {
		return nil, err
	}
	if _, ok := t.indexes[pos]; !ok {
		return nil, fmt.Errorf("table %q position %d: %w", name, pos, store.ErrNotIndexed)
	}
	var out []store.Record
	for _, row := range t.rows {
		if pos <= len(row.Values) && row.Matches(patternAt(pos, value)) {
			out = append(out, row.Clone())
		}
	}
	return out, nil
}

// DeleteRecord deletes a record by full value.
func (s *Store) DeleteRecord(ctx context.Context, name string, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return err
	}
	for i := range t.rows {
		if t.rows[i].Equal(rec) {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	// Already gone; deletion is idempotent.
	return nil
}

// DeleteMatch deletes every record matching the pattern.
func (s *Store) DeleteMatch(ctx context.Context, name string, pattern store.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(name)
	if err != nil {
		return 0, err
	}
	kept := t.rows[:0]
	deleted := 0
	for _, row := range t.rows {
		if row.Matches(pattern) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return deleted, nil
}

// Close marks the store closed. Further operations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Count returns the number of records in a table. Test helper.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return 0
	}
	return len(t.rows)
}

func matchKey(row store.Record, key any) bool {
	if len(row.Values) == 0 {
		return false
	}
	if key == nil {
		return row.Values[0] == nil
	}
	return row.Matches(patternAt(1, key))
}

func patternAt(pos int, value any) store.Record {
	p := store.Record{Values: make([]any, pos)}
	p.Values[pos-1] = value
	return p
}
