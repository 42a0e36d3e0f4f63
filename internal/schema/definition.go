// Package schema declares the logical tables of the network store and
// reconciles the live store against them.
//
// Reconciliation runs once at bootstrap, leaf to root: for every table in
// the catalog, ensure it exists, converge its secondary index set, and
// migrate its field layout if the declaration changed since the store was
// last written. Tables are not usable until their reconciliation
// completes; any failure is fatal to bootstrap.
package schema

import (
	"fmt"
	"sort"

	"github.com/xtxerr/warden/internal/errors"
	"github.com/xtxerr/warden/internal/store"
)

// TableDefinition declares the desired shape of one logical table.
// Definitions are static configuration: declared once, immutable at
// runtime. The live store is converged toward them, never the reverse.
type TableDefinition struct {
	// Name is the table name.
	Name string

	// FieldOrder is the declared sequence of named fields. It defines
	// both value position and index position; the first field is the
	// primary key.
	FieldOrder []string

	// IndexFields names the fields carrying secondary indexes. Every
	// entry must appear in FieldOrder.
	IndexFields []string

	// Tier is the storage tier requested at creation.
	Tier store.Tier

	// RecordTag is the record type tag stored on every record.
	RecordTag string

	// Ordered marks tables whose records are kept in natural key order
	// with store-assigned monotonic keys (append logs).
	Ordered bool
}

// IndexPositions returns the sorted set of declared index positions:
// 1 + the 0-based offset of each index field in the declared field order.
func (d TableDefinition) IndexPositions() []int {
	offsets := make(map[string]int, len(d.FieldOrder))
	for i, f := range d.FieldOrder {
		offsets[f] = i
	}
	positions := make([]int, 0, len(d.IndexFields))
	for _, f := range d.IndexFields {
		if off, ok := offsets[f]; ok {
			positions = append(positions, 1+off)
		}
	}
	sort.Ints(positions)
	return positions
}

// Spec converts the definition to the physical shape handed to the store.
func (d TableDefinition) Spec() store.TableSpec {
	return store.TableSpec{
		FieldOrder:     append([]string(nil), d.FieldOrder...),
		IndexPositions: d.IndexPositions(),
		Tier:           d.Tier,
		RecordTag:      d.RecordTag,
		Ordered:        d.Ordered,
	}
}

// Validate checks the definition for internal consistency.
func (d TableDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("table name: %w", errors.ErrInvalidName)
	}
	if len(d.FieldOrder) == 0 {
		return fmt.Errorf("table %q: empty field order: %w", d.Name, errors.ErrInvalidDefinition)
	}
	if d.RecordTag == "" {
		return fmt.Errorf("table %q: empty record tag: %w", d.Name, errors.ErrInvalidDefinition)
	}
	seen := make(map[string]struct{}, len(d.FieldOrder))
	for _, f := range d.FieldOrder {
		if f == "" {
			return fmt.Errorf("table %q: empty field name: %w", d.Name, errors.ErrInvalidName)
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("table %q field %q: %w", d.Name, f, errors.ErrDuplicateField)
		}
		seen[f] = struct{}{}
	}
	for _, f := range d.IndexFields {
		if _, ok := seen[f]; !ok {
			return fmt.Errorf("table %q: index field %q not in field order: %w",
				d.Name, f, errors.ErrInvalidDefinition)
		}
		if f == d.FieldOrder[0] {
			return fmt.Errorf("table %q: index field %q is the primary key: %w",
				d.Name, f, errors.ErrInvalidDefinition)
		}
	}
	return nil
}
