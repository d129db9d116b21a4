package flake

import (
	"fmt"
)

// URL renders the flake reference a resolved node was locked to, e.g.
// "github:NixOS/nixpkgs/<rev>". Nodes without a locked source render as "".
func URL(node Node) string {
	switch n := node.(type) {
	case RepoNode:
		return repoURL(n.Locked)
	case IndirectNode:
		return repoURL(n.Locked)
	case PathNode:
		return fmt.Sprintf("path:%s", n.Locked.Path)
	case TarballNode:
		return n.Locked.URL
	default:
		return ""
	}
}

func repoURL(locked RepoLocked) string {
	switch locked.Type {
	case "github", "gitlab", "sourcehut":
		url := fmt.Sprintf("%s:%s/%s", locked.Type, locked.Owner, locked.Repo)
		if locked.Rev != "" {
			url += "/" + locked.Rev
		}
		if locked.Host != "" && locked.Host != "github.com" && locked.Host != "gitlab.com" {
			url += fmt.Sprintf("?host=%s", locked.Host)
		}
		return url
	default:
		return fmt.Sprintf("%s:%s/%s", locked.Type, locked.Owner, locked.Repo)
	}
}

// Ref returns the Git ref the user asked for, if the node records one.
func Ref(node Node) (string, bool) {
	switch n := node.(type) {
	case RepoNode:
		if n.Original.Ref != nil {
			return *n.Original.Ref, true
		}
	case PathNode:
		if n.Original.Ref != nil {
			return *n.Original.Ref, true
		}
	}
	return "", false
}
