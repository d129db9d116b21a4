package flake

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// MaxResolveDepth bounds how deeply follows chains may nest inside one
// another before resolution gives up with ErrCycleSuspected.
const MaxResolveDepth = 64

// Resolve follows a chain of input names through the node table and returns
// the node it ends at.
//
// The first name selects a node from nodes. Every further name is looked up in
// the current node's inputs: a direct reference re-enters nodes by name, and a
// follows path is resolved recursively, again starting from nodes.
func Resolve(nodes map[string]Node, chain []string) (Node, error) {
	return resolve(nodes, chain, 0)
}

func resolve(nodes map[string]Node, chain []string, depth int) (Node, error) {
	if depth > MaxResolveDepth {
		err := zerr.With(zerr.Wrap(ErrCycleSuspected, "failed to resolve follows path"), "chain", strings.Join(chain, "/"))
		return nil, zerr.With(err, "depth", depth)
	}
	if len(chain) == 0 {
		return nil, invalid("empty input reference")
	}

	current, err := lookup(nodes, chain[0])
	if err != nil {
		return nil, err
	}

	for _, name := range chain[1:] {
		inputs, err := current.NodeInputs()
		if err != nil {
			return nil, err
		}
		if inputs == nil {
			return nil, zerr.With(invalid(fmt.Sprintf("lock node should have had some inputs but had none (a %s node)", current.Variant())), "input", name)
		}

		next, ok := inputs[name]
		if !ok {
			return nil, zerr.With(invalid(fmt.Sprintf("lock node has no input named %q", name)), "input", name)
		}

		if next.IsFollows() {
			current, err = resolve(nodes, next.Follows, depth+1)
		} else {
			current, err = lookup(nodes, next.Name)
		}
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}

func lookup(nodes map[string]Node, name string) (Node, error) {
	node, ok := nodes[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrMissingNode, fmt.Sprintf("no node named %q", name)), "node", name)
	}
	return node, nil
}

// resolveRoots maps every input of the root node to the node it refers to.
// The first input that cannot be resolved fails the whole projection.
func resolveRoots(nodes map[string]Node, root string) (map[string]Node, error) {
	node, err := lookup(nodes, root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to find root node")
	}
	rootNode, ok := node.(RootNode)
	if !ok {
		return nil, invalid(fmt.Sprintf("root node was not a Root node, but was a %s node", node.Variant()))
	}

	names := make([]string, 0, len(rootNode.Inputs))
	for name := range rootNode.Inputs {
		names = append(names, name)
	}
	slices.Sort(names)

	roots := make(map[string]Node, len(names))
	for _, name := range names {
		resolved, err := Resolve(nodes, rootNode.Inputs[name].Chain())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to chase input %s", name)), "input", name)
		}
		roots[name] = resolved
	}
	return roots, nil
}
