package tree

import (
	"sync"

	"github.com/marmos91/backpak/internal/objectid"
)

var (
	nullForestOnce sync.Once
	nullForestID   objectid.ID
	nullForestTree MapForest
)

// emptyTreeSerialization is the canonical empty-tree encoding whose hash
// identifies the null tree: a tree with no entries.
var emptyTreeSerialization = []byte("tree\x00")

// NullForest returns the process-wide, lazily-initialized empty tree and
// the forest containing it, so a snapshot can be diffed against "nothing"
// (e.g. the first snapshot of a backup set). It is immutable after first
// use.
func NullForest() (objectid.ID, Forest) {
	nullForestOnce.Do(func() {
		nullForestID = objectid.Hash(emptyTreeSerialization)
		nullForestTree = MapForest{nullForestID: Tree{}}
	})
	return nullForestID, nullForestTree
}
