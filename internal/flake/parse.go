package flake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"go.trai.ch/zerr"
)

// Load reads and parses the flake.lock at path.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrNotFound, err.Error()), "path", path)
	}

	lock, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return lock, nil
}

// Parse decodes a flake.lock document, classifies every node by its shape and
// resolves the inputs of the root node. Parsing either yields a complete Lock
// or fails; there is no partially resolved result.
func Parse(data []byte) (*Lock, error) {
	if !json.Valid(data) {
		var v any
		reason := "invalid JSON"
		if err := json.Unmarshal(data, &v); err != nil {
			reason = err.Error()
		}
		return nil, zerr.Wrap(ErrMalformedJSON, reason)
	}

	top, err := decodeObject(data, "flake.lock")
	if err != nil {
		return nil, err
	}

	rawNodes, ok := top["nodes"]
	if !ok {
		return nil, invalid("missing field `nodes`")
	}
	rawRoot, ok := top["root"]
	if !ok {
		return nil, invalid("missing field `root`")
	}
	rawVersion, ok := top["version"]
	if !ok {
		return nil, invalid("missing field `version`")
	}

	var root string
	if err := json.Unmarshal(rawRoot, &root); err != nil || string(rawRoot) == "null" {
		return nil, invalid("field `root` must be a string")
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil || string(rawVersion) == "null" {
		return nil, invalid("field `version` must be an integer")
	}

	fields, err := decodeObject(rawNodes, "nodes")
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]Node, len(fields))
	for name, raw := range fields {
		if err := rejectDuplicates(name, raw); err != nil {
			return nil, err
		}
		nodes[name] = decodeNode(raw)
	}

	roots, err := resolveRoots(nodes, root)
	if err != nil {
		return nil, err
	}

	return &Lock{
		Nodes:   nodes,
		Root:    root,
		Version: version,
		Roots:   roots,
	}, nil
}

// decodeObject splits a JSON object into its members, rejecting duplicate
// keys, which encoding/json would otherwise silently collapse.
func decodeObject(data []byte, what string) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, invalid(fmt.Sprintf("%s: %v", what, err))
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, invalid(fmt.Sprintf("%s must be a JSON object", what))
	}

	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid(fmt.Sprintf("%s: %v", what, err))
		}
		key, _ := tok.(string)
		if _, dup := fields[key]; dup {
			return nil, zerr.With(invalid(fmt.Sprintf("duplicate field `%s` in %s", key, what)), "field", key)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, invalid(fmt.Sprintf("%s: %v", what, err))
		}
		fields[key] = raw
	}
	return fields, nil
}

// rejectDuplicates checks a node object and its inputs mapping for repeated
// keys. Nodes that are not objects are left to decodeNode.
func rejectDuplicates(name string, raw json.RawMessage) error {
	if !isObject(raw) {
		return nil
	}
	obj, err := decodeObject(raw, fmt.Sprintf("node `%s`", name))
	if err != nil {
		return zerr.With(err, "node", name)
	}
	if inputs, ok := obj["inputs"]; ok && isObject(inputs) {
		if _, err := decodeObject(inputs, fmt.Sprintf("inputs of node `%s`", name)); err != nil {
			return zerr.With(err, "node", name)
		}
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (l *Lock) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}

// MarshalJSON writes the lock back in flake.lock layout. Resolved roots are
// derived data and are not written.
func (l Lock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Nodes   map[string]Node `json:"nodes"`
		Root    string          `json:"root"`
		Version int             `json:"version"`
	}{l.Nodes, l.Root, l.Version})
}
