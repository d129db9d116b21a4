package policy

import (
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/zerr"
	"notashelf.dev/flakecheck/internal/flake"
)

// Dependency is a resolved root input together with the facts the checks
// look at. Facts the node does not record are nil.
type Dependency struct {
	Name         string
	Node         flake.Node
	Ref          *string
	LastModified *int64
	Owner        *string
}

// Select picks the configured inputs out of the resolved roots. Every key
// must be present; all missing keys are reported together. Keys whose node
// records nothing checkable are skipped. The result follows the order of
// cfg.NixpkgsKeys.
func Select(roots map[string]flake.Node, cfg Config) ([]Dependency, error) {
	keys := cfg.keys()

	var missing []string
	for _, key := range keys {
		if _, ok := roots[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		noun := "key"
		if len(missing) > 1 {
			noun = "keys"
		}
		reason := fmt.Sprintf("no dependency found for specified %s: %s", noun, strings.Join(missing, ", "))
		return nil, zerr.With(zerr.Wrap(flake.ErrInvalidLock, reason), "missing_keys", missing)
	}

	deps := make([]Dependency, 0, len(keys))
	for _, key := range keys {
		if dep, ok := dependency(key, roots[key], cfg); ok {
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// keys returns the configured keys without duplicates.
func (c Config) keys() []string {
	if len(c.NixpkgsKeys) == 0 {
		return []string{"nixpkgs"}
	}
	keys := make([]string, 0, len(c.NixpkgsKeys))
	for _, key := range c.NixpkgsKeys {
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func dependency(name string, node flake.Node, cfg Config) (Dependency, bool) {
	dep := Dependency{Name: name, Node: node}
	if ref, ok := flake.Ref(node); ok {
		dep.Ref = &ref
	}

	switch n := node.(type) {
	case flake.RepoNode:
		lastModified := n.Locked.LastModified
		owner := n.Original.Owner
		dep.LastModified = &lastModified
		dep.Owner = &owner
	case flake.TarballNode:
		dep.LastModified = n.Locked.LastModified
	case flake.PathNode:
		// NOTE: it is unclear whether a local path should ever stand in for
		// Nixpkgs, so this is opt-in.
		if !cfg.AllowPath {
			return Dependency{}, false
		}
		lastModified := n.Locked.LastModified
		dep.LastModified = &lastModified
	default:
		return Dependency{}, false
	}
	return dep, true
}
