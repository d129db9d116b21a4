package flake

import (
	"encoding/json"
	"strings"

	"go.trai.ch/zerr"
)

// Input is a reference from a node's inputs mapping to another node. It is
// either the name of a node in the lock's node table, or a follows path: a
// chain of input names starting from a node in the node table.
type Input struct {
	Name    string
	Follows []string
	chain   bool
}

// NodeRef returns a reference to a single node.
func NodeRef(name string) Input {
	return Input{Name: name}
}

// FollowsRef returns a reference through a chain of inputs.
func FollowsRef(path ...string) Input {
	return Input{Follows: path, chain: true}
}

// IsFollows reports whether the input is a follows path rather than a direct
// node name.
func (in Input) IsFollows() bool {
	return in.chain
}

// Chain normalizes the input into a chain of names. A direct reference becomes
// a chain of one.
func (in Input) Chain() []string {
	if in.chain {
		return in.Follows
	}
	return []string{in.Name}
}

func (in Input) String() string {
	if in.chain {
		return "[" + strings.Join(in.Follows, ", ") + "]"
	}
	return in.Name
}

func (in *Input) UnmarshalJSON(data []byte) error {
	var name string
	if strings.TrimSpace(string(data)) == "null" {
		return zerr.New("input reference must not be null")
	}
	if err := json.Unmarshal(data, &name); err == nil {
		*in = NodeRef(name)
		return nil
	}

	var path []string
	if err := json.Unmarshal(data, &path); err != nil {
		return zerr.With(zerr.New("input reference must be a string or a list of strings"), "value", string(data))
	}
	*in = FollowsRef(path...)
	return nil
}

func (in Input) MarshalJSON() ([]byte, error) {
	if in.chain {
		path := in.Follows
		if path == nil {
			path = []string{}
		}
		return json.Marshal(path)
	}
	return json.Marshal(in.Name)
}
