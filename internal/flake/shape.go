package flake

import (
	"encoding/json"
	"slices"
)

// field lists the accepted spellings of a single attribute.
type field []string

var (
	fieldLastModified = field{"lastModified", "last_modified"}
	fieldNarHash      = field{"narHash", "nar_hash"}
	fieldType         = field{"type", "node_type"}
	fieldOwner        = field{"owner"}
	fieldRepo         = field{"repo"}
	fieldRev          = field{"rev"}
	fieldID           = field{"id"}
	fieldPath         = field{"path"}
	fieldURL          = field{"url"}
)

// shape describes the JSON layout of one node variant. A node object matches
// a shape when it only uses permitted keys, carries every required key, its
// locked and original records carry their required attributes, and it decodes
// into the variant's type.
type shape struct {
	variant  Variant
	keys     []string
	required []string
	locked   []field
	original []field
	decode   func(data []byte) (Node, error)
}

// shapes is tried in order; the first match wins and anything left over is
// kept as an OpaqueNode.
var shapes = []shape{
	{
		variant:  VariantRoot,
		keys:     []string{"inputs"},
		required: []string{"inputs"},
		decode:   decodeAs[RootNode],
	},
	{
		variant:  VariantRepo,
		keys:     []string{"flake", "inputs", "locked", "original"},
		required: []string{"locked", "original"},
		locked:   []field{fieldLastModified, fieldNarHash, fieldOwner, fieldRepo, fieldRev, fieldType},
		original: []field{fieldOwner, fieldRepo, fieldType},
		decode:   decodeAs[RepoNode],
	},
	{
		variant:  VariantIndirect,
		keys:     []string{"inputs", "locked", "original"},
		required: []string{"locked", "original"},
		locked:   []field{fieldLastModified, fieldNarHash, fieldOwner, fieldRepo, fieldRev, fieldType},
		original: []field{fieldID, fieldType},
		decode:   decodeAs[IndirectNode],
	},
	{
		variant:  VariantPath,
		keys:     []string{"inputs", "locked", "original"},
		required: []string{"locked", "original"},
		locked:   []field{fieldLastModified, fieldNarHash, fieldPath, fieldType},
		original: []field{fieldPath, fieldType},
		decode:   decodeAs[PathNode],
	},
	{
		variant:  VariantTarball,
		required: []string{"locked", "original"},
		locked:   []field{fieldNarHash, fieldType, fieldURL},
		original: []field{fieldURL, fieldType},
		decode:   decodeAs[TarballNode],
	},
}

// ShapeOrder returns the order in which node variants are tried when a node
// is decoded. VariantOpaque is always last.
func ShapeOrder() []Variant {
	order := make([]Variant, 0, len(shapes)+1)
	for _, s := range shapes {
		order = append(order, s.variant)
	}
	return append(order, VariantOpaque)
}

func (s shape) match(obj map[string]json.RawMessage, data []byte) (Node, bool) {
	if s.keys != nil {
		for key := range obj {
			if !slices.Contains(s.keys, key) {
				return nil, false
			}
		}
	}
	for _, key := range s.required {
		if _, ok := obj[key]; !ok {
			return nil, false
		}
	}
	if !hasFields(obj["locked"], s.locked) || !hasFields(obj["original"], s.original) {
		return nil, false
	}

	node, err := s.decode(data)
	if err != nil {
		return nil, false
	}
	return node, true
}

func hasFields(data json.RawMessage, fields []field) bool {
	if len(fields) == 0 {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return false
	}
	for _, f := range fields {
		if !slices.ContainsFunc(f, func(name string) bool {
			v, ok := obj[name]
			return ok && string(v) != "null"
		}) {
			return false
		}
	}
	return true
}

func decodeAs[T Node](data []byte) (Node, error) {
	var node T
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return node, nil
}

// decodeNode picks the first shape the node matches.
func decodeNode(data json.RawMessage) Node {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		for _, s := range shapes {
			if node, ok := s.match(obj, data); ok {
				return node
			}
		}
	}
	return OpaqueNode{Raw: data}
}
