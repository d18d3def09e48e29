package tree

import (
	"fmt"
	"sort"

	"github.com/marmos91/backpak/internal/objectid"
)

// Callbacks receives the typed change events compare_trees emits while
// walking two trees in lockstep. TypeChanged has a default-shaped
// implementation (remove then add) via DefaultCallbacks, which embedding
// callers can use to opt out of special-casing a kind mismatch.
type Callbacks interface {
	NodeAdded(path string, newNode Node, newForest Forest)
	NodeRemoved(path string, oldNode Node, oldForest Forest)
	ContentsChanged(path string, oldNode, newNode Node)
	MetadataChanged(path string, oldNode, newNode Node)
	NothingChanged(path string, node Node)
	TypeChanged(path string, oldNode Node, oldForest Forest, newNode Node, newForest Forest)
}

// DefaultCallbacks gives TypeChanged its default meaning (node_removed
// then node_added) so embedders only need to implement the rest. Its
// TypeChanged calls NodeRemoved and NodeAdded through the embedded
// Callbacks field, so an embedder sets that field to itself.
type DefaultCallbacks struct {
	Callbacks
}

func (d DefaultCallbacks) TypeChanged(path string, oldNode Node, oldForest Forest, newNode Node, newForest Forest) {
	d.NodeRemoved(path, oldNode, oldForest)
	d.NodeAdded(path, newNode, newForest)
}

// CompareTrees compares the tree named id1 in forest1 against the tree
// named id2 in forest2, dispatching callbacks for every path. pathPrefix
// is prepended to every emitted path ("" at the root).
//
// Absence of either tree is a programming error: every Tree ID passed here
// must have been produced by a prior snapshot or by NullForest.
func CompareTrees(id1 objectid.ID, forest1 Forest, id2 objectid.ID, forest2 Forest, pathPrefix string, cb Callbacks) {
	tree1, ok := forest1.Tree(id1)
	if !ok {
		panic(fmt.Sprintf("tree: CompareTrees: tree %s missing from forest", id1))
	}
	tree2, ok := forest2.Tree(id2)
	if !ok {
		panic(fmt.Sprintf("tree: CompareTrees: tree %s missing from forest", id2))
	}

	keys := unionKeysSorted(tree1, tree2)
	for _, key := range keys {
		path := joinPath(pathPrefix, key)
		n1, in1 := tree1[key]
		n2, in2 := tree2[key]

		switch {
		case !in1 && !in2:
			panic("tree: CompareTrees: key in union but absent from both trees")
		case !in1 && in2:
			cb.NodeAdded(path, n2, forest2)
		case in1 && !in2:
			cb.NodeRemoved(path, n1, forest1)
		default:
			compareNodes(n1, forest1, n2, forest2, path, cb)
		}
	}
}

func compareNodes(n1 Node, forest1 Forest, n2 Node, forest2 Forest, path string, cb Callbacks) {
	switch {
	case n1.Kind == File && n2.Kind == File, n1.Kind == Symlink && n2.Kind == Symlink:
		switch {
		case n1.Contents != n2.Contents:
			cb.ContentsChanged(path, n1, n2)
		case n1.Meta != n2.Meta:
			cb.MetadataChanged(path, n1, n2)
		default:
			cb.NothingChanged(path, n1)
		}

	case n1.Kind == Directory && n2.Kind == Directory:
		changed := false
		if n1.Contents != n2.Contents {
			changed = true
			CompareTrees(n1.Contents, forest1, n2.Contents, forest2, path, cb)
		}
		if n1.Meta != n2.Meta {
			changed = true
			cb.MetadataChanged(path, n1, n2)
		}
		if !changed {
			cb.NothingChanged(path, n1)
		}

	default:
		cb.TypeChanged(path, n1, forest1, n2, forest2)
	}
}

func unionKeysSorted(t1, t2 Tree) []string {
	seen := make(map[string]struct{}, len(t1)+len(t2))
	for k := range t1 {
		seen[k] = struct{}{}
	}
	for k := range t2 {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
