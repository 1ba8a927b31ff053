package domain

import (
	"bytes"
	"encoding/json"
)

// Query is a flat field-equality filter: every entry must match the
// document's flattened JSON projection for the document to be selected.
type Query map[string]any

// IsEmpty reports whether the query selects nothing in particular.
// An empty query means "create, don't look up" to the session layer.
func (q Query) IsEmpty() bool {
	return len(q) == 0
}

// Matches reports whether every query field is present in flat with an
// equal value. Equality is JSON equality, so values that only differ in Go
// representation (int 3 vs float64 3 after a JSON round trip) still match.
func (q Query) Matches(flat map[string]any) bool {
	for field, want := range q {
		got, ok := flat[field]
		if !ok {
			return false
		}
		if !jsonEqual(want, got) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the query.
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
