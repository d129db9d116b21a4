package flake

import (
	"encoding/json"
	"testing"
)

func TestURL(t *testing.T) {
	ref := "nixos-unstable"
	testCases := []struct {
		name     string
		node     Node
		expected string
	}{
		{
			name: "github repository",
			node: RepoNode{
				Locked: RepoLocked{Type: "github", Owner: "NixOS", Repo: "nixpkgs", Rev: "abcdef"},
			},
			expected: "github:NixOS/nixpkgs/abcdef",
		},
		{
			name: "gitlab with custom host",
			node: RepoNode{
				Locked: RepoLocked{Type: "gitlab", Owner: "user", Repo: "project", Host: "gitlab.example.com"},
			},
			expected: "gitlab:user/project?host=gitlab.example.com",
		},
		{
			name: "gitlab with default host",
			node: RepoNode{
				Locked: RepoLocked{Type: "gitlab", Owner: "user", Repo: "project", Host: "gitlab.com"},
			},
			expected: "gitlab:user/project",
		},
		{
			name: "indirect resolved to github",
			node: IndirectNode{
				Locked:   RepoLocked{Type: "github", Owner: "NixOS", Repo: "nixpkgs", Rev: "123"},
				Original: IndirectOriginal{ID: "nixpkgs", Type: "indirect"},
			},
			expected: "github:NixOS/nixpkgs/123",
		},
		{
			name:     "path repository",
			node:     PathNode{Locked: PathLocked{Type: "path", Path: "/local/path"}},
			expected: "path:/local/path",
		},
		{
			name: "tarball repository",
			node: TarballNode{
				Locked: TarballLocked{Type: "tarball", URL: "https://example.com/archive.tar.gz"},
			},
			expected: "https://example.com/archive.tar.gz",
		},
		{
			name:     "root node",
			node:     RootNode{},
			expected: "",
		},
		{
			name:     "opaque node",
			node:     OpaqueNode{Raw: json.RawMessage(`{"locked": {"type": "git"}}`)},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := URL(tc.node)
			if result != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, result)
			}
		})
	}

	t.Run("ref", func(t *testing.T) {
		if got, ok := Ref(RepoNode{Original: RepoOriginal{Ref: &ref}}); !ok || got != ref {
			t.Errorf("expected %s, got %q (%v)", ref, got, ok)
		}
		if _, ok := Ref(RepoNode{}); ok {
			t.Error("expected no ref for repo without one")
		}
		if _, ok := Ref(TarballNode{}); ok {
			t.Error("expected no ref for tarball")
		}
	})
}
