package schema

import (
	"context"
	"testing"

	"github.com/xtxerr/warden/internal/store"
	"github.com/xtxerr/warden/internal/store/memstore"
)

func positionsEqual(a, b []int) bool {
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

func TestIndexReconciler_AddMissing(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	// Live table has no indexes; the declaration wants two.
	live := store.TableSpec{
		FieldOrder: []string{"frid", "mac", "devaddr"},
		RecordTag:  "rxframe",
		Ordered:    true,
	}
	if err := s.CreateTable(ctx, "rxframes", live); err != nil {
		t.Fatalf("create: %v", err)
	}

	def := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr"},
		IndexFields: []string{"mac", "devaddr"},
		RecordTag:   "rxframe",
		Ordered:     true,
	}
	if err := NewIndexReconciler(s).Reconcile(ctx, def); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, _ := s.IndexPositions(ctx, "rxframes")
	if !positionsEqual(got, []int{2, 3}) {
		t.Errorf("expected [2 3], got %v", got)
	}
}

func TestIndexReconciler_DropStray(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	live := store.TableSpec{
		FieldOrder:     []string{"frid", "mac", "devaddr"},
		IndexPositions: []int{2, 3},
		RecordTag:      "rxframe",
		Ordered:        true,
	}
	if err := s.CreateTable(ctx, "rxframes", live); err != nil {
		t.Fatalf("create: %v", err)
	}

	def := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr"},
		IndexFields: []string{"devaddr"},
		RecordTag:   "rxframe",
		Ordered:     true,
	}
	if err := NewIndexReconciler(s).Reconcile(ctx, def); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, _ := s.IndexPositions(ctx, "rxframes")
	if !positionsEqual(got, []int{3}) {
		t.Errorf("expected [3], got %v", got)
	}
}

func TestIndexReconciler_IndexChurnWithFieldMigration(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	// Live: three fields, index on 2. Declared: four fields, index on 4.
	// The drop must be validated against the old order, the add against
	// the new one.
	live := store.TableSpec{
		FieldOrder:     []string{"frid", "mac", "devaddr"},
		IndexPositions: []int{2},
		RecordTag:      "rxframe",
		Ordered:        true,
	}
	if err := s.CreateTable(ctx, "rxframes", live); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Insert(ctx, "rxframes", store.NewRecord("rxframe", nil, "aa:bb", "00112233")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	def := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr", "freq"},
		IndexFields: []string{"freq"},
		RecordTag:   "rxframe",
		Ordered:     true,
	}
	if err := NewIndexReconciler(s).Reconcile(ctx, def); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	got, _ := s.IndexPositions(ctx, "rxframes")
	if !positionsEqual(got, []int{4}) {
		t.Errorf("expected [4], got %v", got)
	}
	order, _ := s.FieldOrder(ctx, "rxframes")
	if len(order) != 4 || order[3] != "freq" {
		t.Errorf("field migration did not run: %v", order)
	}
	// The existing record survived the migration with a nil new field.
	recs, err := s.ReadIndexed(ctx, "rxframes", 4, nil)
	if err != nil {
		t.Fatalf("read indexed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
}

func TestIndexReconciler_ConvergedIsNoop(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	def := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr"},
		IndexFields: []string{"mac", "devaddr"},
		RecordTag:   "rxframe",
		Ordered:     true,
	}
	if err := s.CreateTable(ctx, def.Name, def.Spec()); err != nil {
		t.Fatalf("create: %v", err)
	}

	r := NewIndexReconciler(s)
	for i := 0; i < 3; i++ {
		if err := r.Reconcile(ctx, def); err != nil {
			t.Fatalf("reconcile %d: %v", i, err)
		}
	}
	got, _ := s.IndexPositions(ctx, "rxframes")
	if !positionsEqual(got, []int{2, 3}) {
		t.Errorf("expected [2 3], got %v", got)
	}
}

func TestDiffPositions(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []int
		expected []int
	}{
		{"disjoint", []int{2, 3}, []int{4}, []int{2, 3}},
		{"subset", []int{2, 3}, []int{2, 3, 4}, nil},
		{"overlap", []int{2, 3, 4}, []int{3}, []int{2, 4}},
		{"empty a", nil, []int{2}, nil},
		{"empty b", []int{2}, nil, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diffPositions(tt.a, tt.b)
			if !positionsEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
