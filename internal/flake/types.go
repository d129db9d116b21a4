package flake

import "encoding/json"

// Lock is a parsed flake.lock.
type Lock struct {
	Nodes   map[string]Node
	Root    string
	Version int

	// Roots maps every input declared on the root node to the node it
	// ultimately refers to, with all follows chains resolved.
	Roots map[string]Node
}

// Variant names the structural kind of a Node.
type Variant string

const (
	VariantRoot     Variant = "Root"
	VariantRepo     Variant = "Repo"
	VariantIndirect Variant = "Indirect"
	VariantPath     Variant = "Path"
	VariantTarball  Variant = "Tarball"
	VariantOpaque   Variant = "Opaque"
)

// Node is one entry of the lock's node table.
type Node interface {
	Variant() Variant

	// NodeInputs returns the node's inputs mapping, or nil if it has none.
	NodeInputs() (map[string]Input, error)
}

type RootNode struct {
	Inputs map[string]Input `json:"inputs"`
}

// RepoNode is an input fetched from a Git forge or another VCS.
type RepoNode struct {
	Flake    *bool            `json:"flake,omitempty"`
	Inputs   map[string]Input `json:"inputs,omitempty"`
	Locked   RepoLocked       `json:"locked"`
	Original RepoOriginal     `json:"original"`
}

// IndirectNode is an input given as a flake registry reference, such as
// `inputs.nixpkgs.url = "nixpkgs";`.
type IndirectNode struct {
	Inputs   map[string]Input `json:"inputs,omitempty"`
	Locked   RepoLocked       `json:"locked"`
	Original IndirectOriginal `json:"original"`
}

// PathNode is an input given as a filesystem path.
type PathNode struct {
	Inputs   map[string]Input `json:"inputs,omitempty"`
	Locked   PathLocked       `json:"locked"`
	Original PathOriginal     `json:"original"`
}

// TarballNode is an input fetched as an archive.
type TarballNode struct {
	Inputs   map[string]Input `json:"inputs,omitempty"`
	Locked   TarballLocked    `json:"locked"`
	Original TarballOriginal  `json:"original"`
}

// OpaqueNode holds any node whose shape is not modelled above.
type OpaqueNode struct {
	Raw json.RawMessage
}

type RepoLocked struct {
	LastModified int64  `json:"lastModified"`
	NarHash      string `json:"narHash"`
	Owner        string `json:"owner"`
	Repo         string `json:"repo"`
	Rev          string `json:"rev"`
	Type         string `json:"type"`
	Host         string `json:"host,omitempty"`
}

type RepoOriginal struct {
	Owner string  `json:"owner"`
	Repo  string  `json:"repo"`
	Ref   *string `json:"ref,omitempty"`
	Type  string  `json:"type"`
}

type IndirectOriginal struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type PathLocked struct {
	LastModified int64  `json:"lastModified"`
	NarHash      string `json:"narHash"`
	Path         string `json:"path"`
	Type         string `json:"type"`
}

type PathOriginal struct {
	Path string  `json:"path"`
	Ref  *string `json:"ref,omitempty"`
	Type string  `json:"type"`
}

type TarballLocked struct {
	LastModified *int64 `json:"lastModified,omitempty"`
	NarHash      string `json:"narHash"`
	Type         string `json:"type"`
	URL          string `json:"url"`
}

type TarballOriginal struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (RootNode) Variant() Variant     { return VariantRoot }
func (RepoNode) Variant() Variant     { return VariantRepo }
func (IndirectNode) Variant() Variant { return VariantIndirect }
func (PathNode) Variant() Variant     { return VariantPath }
func (TarballNode) Variant() Variant  { return VariantTarball }
func (OpaqueNode) Variant() Variant   { return VariantOpaque }

func (n RootNode) NodeInputs() (map[string]Input, error)     { return n.Inputs, nil }
func (n RepoNode) NodeInputs() (map[string]Input, error)     { return n.Inputs, nil }
func (n IndirectNode) NodeInputs() (map[string]Input, error) { return n.Inputs, nil }
func (n PathNode) NodeInputs() (map[string]Input, error)     { return n.Inputs, nil }
func (n TarballNode) NodeInputs() (map[string]Input, error)  { return n.Inputs, nil }

// NodeInputs decodes the "inputs" member of the raw node. A node without one,
// or one that is not a JSON object, has no inputs.
func (n OpaqueNode) NodeInputs() (map[string]Input, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(n.Raw, &fields); err != nil {
		return nil, nil
	}
	raw, ok := fields["inputs"]
	if !ok || string(raw) == "null" {
		return nil, nil
	}

	var inputs map[string]Input
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, invalid("opaque node has a malformed inputs mapping: " + err.Error())
	}
	return inputs, nil
}

// MarshalJSON emits the node exactly as it appeared in the lock.
func (n OpaqueNode) MarshalJSON() ([]byte, error) {
	if len(n.Raw) == 0 {
		return []byte("null"), nil
	}
	return n.Raw, nil
}
