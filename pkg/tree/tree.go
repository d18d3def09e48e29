// Package tree implements the content-addressed tree structure and the
// recursive structural diff engine (§4.5) used to compare two snapshots,
// or a snapshot against the empty "null forest".
package tree

import (
	"github.com/marmos91/backpak/internal/objectid"
)

// NodeKind classifies a tree entry.
type NodeKind int

const (
	File NodeKind = iota
	Directory
	Symlink
)

// Metadata carries the attributes compared by metadata_changed: anything
// other than the node's content reference. ModTime and AccessTime are
// tracked separately (as a real filesystem node's mtime/atime are) so a
// touch-only access can be told apart from a content modification.
type Metadata struct {
	Mode       uint32
	UID        uint32
	GID        uint32
	ModTime    int64 // unix seconds
	AccessTime int64 // unix seconds
}

// Node is one entry in a Tree: a file, directory, or symlink.
type Node struct {
	Kind NodeKind
	Meta Metadata

	// Contents is the blob ID for File/Symlink, or the subtree ID for
	// Directory. Exactly one of Contents is meaningful per Kind.
	Contents objectid.ID
}

// Tree maps path components (immediate child names) to nodes.
type Tree map[string]Node

// Forest is a lookup from tree ID to tree contents, the in-memory index
// compare_trees walks while recursing into subdirectories.
type Forest interface {
	Tree(id objectid.ID) (Tree, bool)
}

// MapForest is a Forest backed by a plain map, used by tests and by the
// null forest.
type MapForest map[objectid.ID]Tree

func (f MapForest) Tree(id objectid.ID) (Tree, bool) {
	t, ok := f[id]
	return t, ok
}
