package store

// Record is a tagged, ordered tuple of values positionally aligned to a
// table's field order. Field identity is by name, not position: the same
// record means the same thing under any field order that carries the same
// names, and position is derived from whichever order is currently in
// effect for the table.
//
// A nil value represents an absent field.
type Record struct {
	// Tag is the record type tag (e.g. "rxframe", "user").
	Tag string

	// Values holds one value per field, in the table's field order.
	Values []any
}

// NewRecord builds a record with the given tag and values.
func NewRecord(tag string, values ...any) Record {
	return Record{Tag: tag, Values: values}
}

// Key returns the record's primary key: the value of the first field.
// Returns nil for an empty record.
func (r Record) Key() any {
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[0]
}

// Clone returns a copy of the record with its own values slice.
func (r Record) Clone() Record {
	out := Record{Tag: r.Tag, Values: make([]any, len(r.Values))}
	copy(out.Values, r.Values)
	return out
}

// Field returns the value of the named field under the given field order,
// or nil if the name is not present.
func (r Record) Field(order []string, name string) any {
	for i, f := range order {
		if f == name && i < len(r.Values) {
			return r.Values[i]
		}
	}
	return nil
}

// Equal reports whether two records have the same tag and values.
// Values are compared with ==; nil matches only nil. Byte slices are
// compared by content.
func (r Record) Equal(other Record) bool {
	if r.Tag != other.Tag || len(r.Values) != len(other.Values) {
		return false
	}
	for i := range r.Values {
		if !valueEqual(r.Values[i], other.Values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		if !aok || !bok || len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// Matches reports whether the record matches a pattern under positional
// comparison. A nil pattern value is a wildcard; non-nil values must be
// equal. A pattern longer than the record never matches.
func (r Record) Matches(pattern Record) bool {
	if pattern.Tag != "" && pattern.Tag != r.Tag {
		return false
	}
	if len(pattern.Values) > len(r.Values) {
		return false
	}
	for i, pv := range pattern.Values {
		if pv == nil {
			continue
		}
		if !valueEqual(r.Values[i], pv) {
			return false
		}
	}
	return true
}
