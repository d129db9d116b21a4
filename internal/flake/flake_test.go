package flake

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"
)

func loadLock(t *testing.T, name string) *Lock {
	t.Helper()
	lock, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err, "failed to load %s", name)
	return lock
}

func rootInputNames(t *testing.T, lock *Lock) []string {
	t.Helper()
	root, ok := lock.Nodes[lock.Root].(RootNode)
	require.True(t, ok, "root node is a %s node", lock.Nodes[lock.Root].Variant())

	names := make([]string, 0, len(root.Inputs))
	for name := range root.Inputs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func rootNames(lock *Lock) []string {
	names := make([]string, 0, len(lock.Roots))
	for name := range lock.Roots {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func TestLoad_CleanLock(t *testing.T) {
	lock := loadLock(t, "flake.clean.0.lock")

	assert.Equal(t, "root", lock.Root)
	assert.Equal(t, 7, lock.Version)
	assert.Len(t, lock.Nodes, 4)
	assert.Equal(t, []string{"flake-utils", "nixpkgs"}, rootNames(lock))

	nixpkgs, ok := lock.Roots["nixpkgs"].(RepoNode)
	require.True(t, ok, "expected a Repo node, got %s", lock.Roots["nixpkgs"].Variant())
	assert.Equal(t, "NixOS", nixpkgs.Original.Owner)
	require.NotNil(t, nixpkgs.Original.Ref)
	assert.Equal(t, "nixos-unstable", *nixpkgs.Original.Ref)
	assert.Equal(t, int64(1716715802), nixpkgs.Locked.LastModified)
	assert.Equal(t, "github", nixpkgs.Locked.Type)
}

func TestLoad_RootsMatchDeclaredInputs(t *testing.T) {
	for _, name := range []string{
		"flake.clean.0.lock",
		"flake.follows.lock",
		"flake.nested-follows.lock",
		"flake.variants.lock",
	} {
		t.Run(name, func(t *testing.T) {
			lock := loadLock(t, name)
			assert.Equal(t, rootInputNames(t, lock), rootNames(lock))
		})
	}
}

func TestLoad_FollowsThroughAnotherInput(t *testing.T) {
	lock := loadLock(t, "flake.follows.lock")

	assert.Equal(t, lock.Nodes["nixpkgs_2"], lock.Roots["pkgs-via-tool"])
	assert.Equal(t, lock.Nodes["nixpkgs"], lock.Roots["nixpkgs"])
	assert.Equal(t, lock.Nodes["tool"], lock.Roots["tool"])
}

func TestLoad_NestedFollowsThroughOpaqueNode(t *testing.T) {
	lock := loadLock(t, "flake.nested-follows.lock")

	assert.Equal(t, VariantOpaque, lock.Nodes["c"].Variant())

	leaf, ok := lock.Roots["nixpkgs"].(RepoNode)
	require.True(t, ok, "expected a Repo node, got %s", lock.Roots["nixpkgs"].Variant())
	assert.Equal(t, "2222222222222222222222222222222222222222", leaf.Locked.Rev)
}

func TestLoad_FieldAliases(t *testing.T) {
	lock := loadLock(t, "flake.nested-follows.lock")

	leaf, ok := lock.Nodes["leaf"].(RepoNode)
	require.True(t, ok)
	assert.Equal(t, int64(1700000001), leaf.Locked.LastModified)
	assert.Equal(t, "sha256-leaf", leaf.Locked.NarHash)
	assert.Equal(t, "github", leaf.Locked.Type)
	assert.Equal(t, "github", leaf.Original.Type)
}

func TestLoad_Variants(t *testing.T) {
	lock := loadLock(t, "flake.variants.lock")

	testCases := map[string]Variant{
		"root":    VariantRoot,
		"local":   VariantPath,
		"nixpkgs": VariantIndirect,
		"src":     VariantOpaque,
		"stable":  VariantTarball,
	}
	for name, want := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, lock.Nodes[name].Variant())
		})
	}

	stable := lock.Nodes["stable"].(TarballNode)
	require.NotNil(t, stable.Locked.LastModified)
	assert.Equal(t, int64(1716500000), *stable.Locked.LastModified)
}

func TestLoad_CycleSuspected(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "flake.cycle.lock"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleSuspected), "expected ErrCycleSuspected, got %v", err)
	assert.Contains(t, err.Error(), "failed to chase input loop")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "flake.lock"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)
	assert.Contains(t, zErr.Metadata()["path"], "flake.lock")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		target  error
		message string
	}{
		{
			name:   "malformed json",
			data:   `{"nodes": {`,
			target: ErrMalformedJSON,
		},
		{
			name:    "not an object",
			data:    `[]`,
			target:  ErrInvalidLock,
			message: "flake.lock must be a JSON object",
		},
		{
			name:    "missing nodes",
			data:    `{"root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "missing field `nodes`",
		},
		{
			name:    "missing root",
			data:    `{"nodes": {}, "version": 7}`,
			target:  ErrInvalidLock,
			message: "missing field `root`",
		},
		{
			name:    "missing version",
			data:    `{"nodes": {}, "root": "root"}`,
			target:  ErrInvalidLock,
			message: "missing field `version`",
		},
		{
			name:    "duplicate top-level key",
			data:    `{"nodes": {}, "root": "root", "root": "other", "version": 7}`,
			target:  ErrInvalidLock,
			message: "duplicate field `root`",
		},
		{
			name:    "duplicate node",
			data:    `{"nodes": {"root": {"inputs": {}}, "root": {"inputs": {}}}, "root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "duplicate field `root` in nodes",
		},
		{
			name:    "duplicate field in node",
			data:    `{"nodes": {"root": {"inputs": {}, "inputs": {}}}, "root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "duplicate field `inputs` in node `root`",
		},
		{
			name:    "duplicate input",
			data:    `{"nodes": {"root": {"inputs": {"a": "x", "a": "y"}}, "x": {"inputs": {}}, "y": {"inputs": {}}}, "root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "duplicate field `a` in inputs of node `root`",
		},
		{
			name:    "version not an integer",
			data:    `{"nodes": {}, "root": "root", "version": "7"}`,
			target:  ErrInvalidLock,
			message: "field `version` must be an integer",
		},
		{
			name:   "root node missing",
			data:   `{"nodes": {}, "root": "root", "version": 7}`,
			target: ErrMissingNode,
		},
		{
			name: "root node is not a root",
			data: `{"nodes": {"root": {"locked": {"lastModified": 1, "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github"},
				"original": {"owner": "o", "repo": "r", "type": "github"}}}, "root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "root node was not a Root node, but was a Repo node",
		},
		{
			name:    "root input references missing node",
			data:    `{"nodes": {"root": {"inputs": {"nixpkgs": "nixpkgs"}}}, "root": "root", "version": 7}`,
			target:  ErrMissingNode,
			message: "failed to chase input nixpkgs",
		},
		{
			name: "hop through node without inputs",
			data: `{"nodes": {"root": {"inputs": {"x": ["a", "b"]}},
				"a": {"locked": {"lastModified": 1, "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github"},
				"original": {"owner": "o", "repo": "r", "type": "github"}}}, "root": "root", "version": 7}`,
			target:  ErrInvalidLock,
			message: "should have had some inputs but had none",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lock, err := Parse([]byte(tc.data))
			require.Error(t, err)
			assert.Nil(t, lock)
			assert.True(t, errors.Is(err, tc.target), "expected %v, got %v", tc.target, err)
			if tc.message != "" {
				assert.Contains(t, err.Error(), tc.message)
			}
		})
	}
}

func TestLock_UnmarshalJSON(t *testing.T) {
	data := `
{
  "nodes": {
    "nixpkgs": {
      "locked": {
        "lastModified": 1759381078,
        "narHash": "sha256-abc",
        "owner": "NixOS",
        "repo": "nixpkgs",
        "rev": "abcdef",
        "type": "github"
      },
      "original": {
        "owner": "NixOS",
        "ref": "nixos-unstable",
        "repo": "nixpkgs",
        "type": "github"
      }
    },
    "root": {
      "inputs": {
        "nixpkgs": "nixpkgs"
      }
    }
  },
  "root": "root",
  "version": 7
}
`
	var lock Lock
	require.NoError(t, json.Unmarshal([]byte(data), &lock))
	assert.Equal(t, VariantRepo, lock.Roots["nixpkgs"].Variant())

	out, err := json.Marshal(lock)
	require.NoError(t, err)

	var again Lock
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, lock.Nodes, again.Nodes)
	assert.Equal(t, lock.Roots, again.Roots)
}

func TestShapeOrder(t *testing.T) {
	assert.Equal(t, []Variant{
		VariantRoot,
		VariantRepo,
		VariantIndirect,
		VariantPath,
		VariantTarball,
		VariantOpaque,
	}, ShapeOrder())
}

func TestDecodeNode_Priority(t *testing.T) {
	testCases := []struct {
		name string
		data string
		want Variant
	}{
		{
			name: "inputs only is a root",
			data: `{"inputs": {"nixpkgs": "nixpkgs"}}`,
			want: VariantRoot,
		},
		{
			name: "inputs with extra keys is not a root",
			data: `{"inputs": {"nixpkgs": "nixpkgs"}, "extra": 1}`,
			want: VariantOpaque,
		},
		{
			name: "repo shape wins over tarball shape",
			data: `{"locked": {"lastModified": 1, "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github", "url": "u"},
				"original": {"owner": "o", "repo": "r", "type": "github", "url": "u"}}`,
			want: VariantRepo,
		},
		{
			name: "registry original is indirect",
			data: `{"locked": {"lastModified": 1, "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github"},
				"original": {"id": "nixpkgs", "type": "indirect"}}`,
			want: VariantIndirect,
		},
		{
			name: "flake attribute rules out indirect",
			data: `{"flake": false, "locked": {"lastModified": 1, "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github"},
				"original": {"id": "nixpkgs", "type": "indirect"}}`,
			want: VariantOpaque,
		},
		{
			name: "unknown keys fall back to tarball",
			data: `{"parent": [], "locked": {"narHash": "h", "type": "tarball", "url": "u"}, "original": {"type": "tarball", "url": "u"}}`,
			want: VariantTarball,
		},
		{
			name: "wrong attribute type is opaque",
			data: `{"locked": {"lastModified": "yesterday", "narHash": "h", "owner": "o", "repo": "r", "rev": "x", "type": "github"},
				"original": {"owner": "o", "repo": "r", "type": "github"}}`,
			want: VariantOpaque,
		},
		{
			name: "scalar is opaque",
			data: `"just a string"`,
			want: VariantOpaque,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decodeNode(json.RawMessage(tc.data)).Variant())
		})
	}
}
