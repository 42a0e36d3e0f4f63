package schema

import (
	"errors"
	"testing"

	werrors "github.com/xtxerr/warden/internal/errors"
	"github.com/xtxerr/warden/internal/store"
)

func TestTableDefinition_IndexPositions(t *testing.T) {
	tests := []struct {
		name     string
		def      TableDefinition
		expected []int
	}{
		{
			name: "no indexes",
			def: TableDefinition{
				FieldOrder: []string{"a", "b"},
			},
			expected: []int{},
		},
		{
			name: "positions are 1 plus field offset",
			def: TableDefinition{
				FieldOrder:  []string{"frid", "mac", "devaddr"},
				IndexFields: []string{"mac", "devaddr"},
			},
			expected: []int{2, 3},
		},
		{
			name: "sorted regardless of declaration order",
			def: TableDefinition{
				FieldOrder:  []string{"frid", "mac", "devaddr"},
				IndexFields: []string{"devaddr", "mac"},
			},
			expected: []int{2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.def.IndexPositions()
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestTableDefinition_Validate(t *testing.T) {
	valid := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr"},
		IndexFields: []string{"mac"},
		RecordTag:   "rxframe",
	}

	tests := []struct {
		name     string
		mutate   func(d *TableDefinition)
		sentinel error
	}{
		{"valid", func(d *TableDefinition) {}, nil},
		{"empty name", func(d *TableDefinition) { d.Name = "" }, werrors.ErrInvalidName},
		{"empty field order", func(d *TableDefinition) { d.FieldOrder = nil }, werrors.ErrInvalidDefinition},
		{"empty record tag", func(d *TableDefinition) { d.RecordTag = "" }, werrors.ErrInvalidDefinition},
		{"empty field name", func(d *TableDefinition) {
			d.FieldOrder = []string{"frid", ""}
		}, werrors.ErrInvalidName},
		{"duplicate field", func(d *TableDefinition) {
			d.FieldOrder = []string{"frid", "mac", "mac"}
		}, werrors.ErrDuplicateField},
		{"index field not in order", func(d *TableDefinition) {
			d.IndexFields = []string{"ghost"}
		}, werrors.ErrInvalidDefinition},
		{"index on primary key", func(d *TableDefinition) {
			d.IndexFields = []string{"frid"}
		}, werrors.ErrInvalidDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid
			def.FieldOrder = append([]string(nil), valid.FieldOrder...)
			def.IndexFields = append([]string(nil), valid.IndexFields...)
			tt.mutate(&def)

			err := def.Validate()
			if tt.sentinel == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestTableDefinition_Spec(t *testing.T) {
	def := TableDefinition{
		Name:        "rxframes",
		FieldOrder:  []string{"frid", "mac", "devaddr"},
		IndexFields: []string{"devaddr"},
		Tier:        store.TierDiskOnly,
		RecordTag:   "rxframe",
		Ordered:     true,
	}
	spec := def.Spec()

	if len(spec.IndexPositions) != 1 || spec.IndexPositions[0] != 3 {
		t.Errorf("unexpected index positions %v", spec.IndexPositions)
	}
	if spec.Tier != store.TierDiskOnly || !spec.Ordered || spec.RecordTag != "rxframe" {
		t.Errorf("spec did not carry definition attributes: %+v", spec)
	}

	// Spec must not alias the definition's slices.
	spec.FieldOrder[0] = "mutated"
	if def.FieldOrder[0] != "frid" {
		t.Error("spec shares field order slice with definition")
	}
}

func TestCatalog_Valid(t *testing.T) {
	if err := ValidateCatalog(Catalog()); err != nil {
		t.Fatalf("declared catalog does not validate: %v", err)
	}
}

func TestCatalog_RxFramesShape(t *testing.T) {
	def, err := Definition(TableRxFrames)
	if err != nil {
		t.Fatalf("definition: %v", err)
	}
	if !def.Ordered {
		t.Error("rxframes must be an ordered append log")
	}
	if def.Tier != store.TierDiskOnly {
		t.Errorf("expected disk-only tier, got %v", def.Tier)
	}
	positions := def.IndexPositions()
	if len(positions) != 2 || positions[0] != 2 || positions[1] != 3 {
		t.Errorf("expected indexes at mac and devaddr positions [2 3], got %v", positions)
	}
	if def.FieldOrder[0] != FieldFrameID {
		t.Errorf("frame id must be the primary key, got %q", def.FieldOrder[0])
	}
}

func TestDefinition_Unknown(t *testing.T) {
	_, err := Definition("nope")
	if !errors.Is(err, werrors.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestValidateCatalog_Duplicate(t *testing.T) {
	defs := []TableDefinition{
		{Name: "a", FieldOrder: []string{"k"}, RecordTag: "a"},
		{Name: "a", FieldOrder: []string{"k"}, RecordTag: "a"},
	}
	if err := ValidateCatalog(defs); !errors.Is(err, werrors.ErrInvalidDefinition) {
		t.Errorf("expected ErrInvalidDefinition, got %v", err)
	}
}
