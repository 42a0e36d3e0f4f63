package schema

import (
	"context"
	"fmt"

	"github.com/xtxerr/warden/internal/store"
)

// AttributeReconciler converges a table's field layout to its declared
// field order.
type AttributeReconciler struct {
	store store.Client
}

// NewAttributeReconciler creates an attribute reconciler using the given
// store client.
func NewAttributeReconciler(c store.Client) *AttributeReconciler {
	return &AttributeReconciler{store: c}
}

// Reconcile migrates the table's records to the declared field order.
//
// When the live order already equals the declared order this is a no-op.
// Otherwise every record is rewritten in one atomic store-wide transform:
// values are re-projected by field name, so a field keeps its value under
// any reordering, a newly introduced field starts nil, and a removed
// field is discarded. The store guarantees all-or-nothing application;
// a transform the store cannot apply atomically fails the whole
// reconciliation.
//
// Renaming a field is not expressible here: the old name is a removal
// and the new name an addition, so the data does not follow. Known
// limitation.
func (r *AttributeReconciler) Reconcile(ctx context.Context, def TableDefinition) error {
	current, err := r.store.FieldOrder(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("read field order: %w", err)
	}
	if equalFields(current, def.FieldOrder) {
		return nil
	}

	log.Info("migrating field layout",
		"table", def.Name,
		"from", current,
		"to", def.FieldOrder,
	)

	err = r.store.Transform(ctx, def.Name, def.FieldOrder, func(rec store.Record) store.Record {
		return reproject(rec, current, def.FieldOrder)
	})
	if err != nil {
		return fmt.Errorf("transform %s: %w", def.Name, err)
	}
	return nil
}

// reproject rebuilds a record under a new field order, keyed by name.
// Values of fields present in both orders are preserved; fields only in
// the new order come out nil.
func reproject(rec store.Record, from, to []string) store.Record {
	byName := make(map[string]any, len(from))
	for i, f := range from {
		if i < len(rec.Values) {
			byName[f] = rec.Values[i]
		}
	}
	out := store.Record{Tag: rec.Tag, Values: make([]any, len(to))}
	for i, f := range to {
		out.Values[i] = byName[f] // absent -> nil
	}
	return out
}

func equalFields(a, b []string) bool {
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
