package domain

import "livedoc/internal/codec"

// Document is a stored unit: a structural state tree, a flattened JSON
// projection of it, and a driver-assigned id.
type Document struct {
	// ID is assigned by the driver exactly once, at creation, and is stable
	// for the document's lifetime.
	ID string `json:"id"`
	// Tree is the structural snapshot (including container-type tags) from
	// which the live object is reconstructed.
	Tree *codec.Node `json:"state_tree"`
	// Flat is the plain-JSON mirror of Tree, used only for equality
	// filtering. Never read back into live objects.
	Flat map[string]any `json:"state_json"`
}

// Valid reports whether the document carries the shape every driver is
// required to return: a usable state tree and a non-empty id.
func (d *Document) Valid() bool {
	return d != nil && d.ID != "" && d.Tree != nil
}

// Clone returns a copy whose Flat map is independent of the receiver's.
// The state tree is shared; callers treat trees as immutable once stored.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	flat := make(map[string]any, len(d.Flat))
	for k, v := range d.Flat {
		flat[k] = v
	}
	return &Document{ID: d.ID, Tree: d.Tree, Flat: flat}
}
