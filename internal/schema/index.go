package schema

import (
	"context"
	"fmt"

	"github.com/xtxerr/warden/internal/store"
)

// IndexReconciler converges a table's secondary index set to its
// declaration. Because index positions are defined against the field
// order, and the field order itself may change during reconciliation,
// index work is interleaved with the attribute migration:
//
//  1. drop indexes no longer declared, validated against the field order
//     in effect before migration
//  2. migrate the field layout (AttributeReconciler)
//  3. add newly declared indexes, validated against the field order in
//     effect after migration
//
// A position outside the bounds of the order in effect for its phase is
// skipped as stale rather than applied. The bound is protective: an index
// operation referencing a position past the live field count cannot name
// a real field, whatever produced it.
type IndexReconciler struct {
	store store.Client
	attrs *AttributeReconciler
}

// NewIndexReconciler creates an index reconciler using the given store
// client.
func NewIndexReconciler(c store.Client) *IndexReconciler {
	return &IndexReconciler{
		store: c,
		attrs: NewAttributeReconciler(c),
	}
}

// Reconcile converges the table's index set and field layout.
func (r *IndexReconciler) Reconcile(ctx context.Context, def TableDefinition) error {
	desired := def.IndexPositions()
	current, err := r.store.IndexPositions(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("read index positions: %w", err)
	}

	if equalPositions(desired, current) {
		// No index churn needed; the layout may still have drifted.
		return r.attrs.Reconcile(ctx, def)
	}

	log.Info("reconciling indexes",
		"table", def.Name,
		"current", current,
		"desired", desired,
	)

	// Drop phase, bounded by the pre-migration field order.
	currentOrder, err := r.store.FieldOrder(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("read field order: %w", err)
	}
	for _, pos := range diffPositions(current, desired) {
		if pos > len(currentOrder)+1 {
			log.Warn("skipping stale index drop",
				"table", def.Name, "position", pos, "fields", len(currentOrder))
			continue
		}
		if err := r.store.DropIndex(ctx, def.Name, pos); err != nil {
			return fmt.Errorf("drop index %d on %s: %w", pos, def.Name, err)
		}
	}

	if err := r.attrs.Reconcile(ctx, def); err != nil {
		return err
	}

	// Add phase, bounded by the post-migration field order.
	for _, pos := range diffPositions(desired, current) {
		if pos > len(def.FieldOrder)+1 {
			log.Warn("skipping stale index add",
				"table", def.Name, "position", pos, "fields", len(def.FieldOrder))
			continue
		}
		if err := r.store.AddIndex(ctx, def.Name, pos); err != nil {
			return fmt.Errorf("add index %d on %s: %w", pos, def.Name, err)
		}
	}

	return nil
}

// diffPositions returns the positions in a that are not in b, in order.
// Inputs are sorted.
func diffPositions(a, b []int) []int {
	inB := make(map[int]struct{}, len(b))
	for _, pos := range b {
		inB[pos] = struct{}{}
	}
	var out []int
	for _, pos := range a {
		if _, ok := inB[pos]; !ok {
			out = append(out, pos)
		}
	}
	return out
}

func equalPositions(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
