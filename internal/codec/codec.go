// Package codec turns live mutable state into structural snapshots and back.
//
// A snapshot is a tree of Nodes. Every node is tagged with its container
// kind, so reconstruction does not have to guess whether an empty value was
// a map, a list, or a scalar. The flattened plain-JSON projection produced
// by Flatten is only suitable for equality filtering; reconstruction always
// goes through the tagged tree.
package codec

import (
	"fmt"
)

// Kind tags the container type of a node.
type Kind string

const (
	// KindMap is a string-keyed container.
	KindMap Kind = "map"
	// KindList is an ordered container.
	KindList Kind = "list"
	// KindValue is a scalar leaf.
	KindValue Kind = "value"
)

// Node is one element of a structural snapshot.
type Node struct {
	Kind   Kind             `json:"kind"`
	Value  any              `json:"value,omitempty"`
	Fields map[string]*Node `json:"fields,omitempty"`
	Items  []*Node          `json:"items,omitempty"`
}

// Encode builds a structural snapshot of v. Maps and slices become tagged
// container nodes; everything else is stored as a scalar leaf.
func Encode(v any) *Node {
	switch val := v.(type) {
	case map[string]any:
		fields := make(map[string]*Node, len(val))
		for k, item := range val {
			fields[k] = Encode(item)
		}
		return &Node{Kind: KindMap, Fields: fields}
	case []any:
		items := make([]*Node, 0, len(val))
		for _, item := range val {
			items = append(items, Encode(item))
		}
		return &Node{Kind: KindList, Items: items}
	default:
		return &Node{Kind: KindValue, Value: val}
	}
}

// EncodeObject snapshots a top-level field map. A nil map encodes as an
// empty map node, never as a scalar nil.
func EncodeObject(fields map[string]any) *Node {
	if fields == nil {
		fields = map[string]any{}
	}
	return Encode(fields)
}

// Decode reconstructs the value a node was encoded from.
func Decode(n *Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindMap:
		out := make(map[string]any, len(n.Fields))
		for k, child := range n.Fields {
			out[k] = Decode(child)
		}
		return out
	case KindList:
		out := make([]any, 0, len(n.Items))
		for _, child := range n.Items {
			out = append(out, Decode(child))
		}
		return out
	default:
		return n.Value
	}
}

// DecodeObject reconstructs a top-level field map from a snapshot. It fails
// if the root node is not a map, since live objects are always maps.
func DecodeObject(n *Node) (map[string]any, error) {
	if n == nil {
		return nil, fmt.Errorf("decode object: nil snapshot")
	}
	if n.Kind != KindMap {
		return nil, fmt.Errorf("decode object: root node is %q, want %q", n.Kind, KindMap)
	}
	return Decode(n).(map[string]any), nil
}

// Flatten projects a snapshot onto plain JSON values with the container tags
// stripped. The result is what drivers persist as state_json and match
// equality filters against.
func Flatten(n *Node) map[string]any {
	fields, err := DecodeObject(n)
	if err != nil {
		return map[string]any{}
	}
	return fields
}
