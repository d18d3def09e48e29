package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/backpak/internal/objectid"
)

// recording is a Callbacks implementation that records every event it
// receives as a plain string line, in the order it was called.
type recording struct {
	DefaultCallbacks
	events []string
}

func (r *recording) NodeAdded(path string, _ Node, _ Forest) {
	r.events = append(r.events, "added "+path)
}

func (r *recording) NodeRemoved(path string, _ Node, _ Forest) {
	r.events = append(r.events, "removed "+path)
}

func (r *recording) ContentsChanged(path string, _, _ Node) {
	r.events = append(r.events, "contents "+path)
}

func (r *recording) MetadataChanged(path string, _, _ Node) {
	r.events = append(r.events, "metadata "+path)
}

func (r *recording) NothingChanged(path string, _ Node) {
	r.events = append(r.events, "nothing "+path)
}

func blobID(s string) objectid.ID { return objectid.Hash([]byte(s)) }

// TestCompareTreesAddRemoveContentMetadata exercises scenario 5 of
// spec.md §8 exactly.
func TestCompareTreesAddRemoveContentMetadata(t *testing.T) {
	blobX := blobID("X")
	blobXPrime := blobID("X-prime")
	blobY := blobID("Y")
	blobZ := blobID("Z")

	meta := Metadata{Mode: 0o644, UID: 1, GID: 1, ModTime: 100}
	metaPrime := Metadata{Mode: 0o644, UID: 1, GID: 1, ModTime: 200}

	subtreeS1 := Tree{
		"bar.txt": Node{Kind: File, Contents: blobY, Meta: meta},
	}
	subtreeS1Prime := Tree{
		"bar.txt": Node{Kind: File, Contents: blobY, Meta: meta},
		"baz.txt": Node{Kind: File, Contents: blobZ, Meta: meta},
	}
	s1ID := objectid.Hash([]byte("s1"))
	s1PrimeID := objectid.Hash([]byte("s1-prime"))

	treeA := Tree{
		"foo.txt": Node{Kind: File, Contents: blobX, Meta: meta},
		"dir":     Node{Kind: Directory, Contents: s1ID, Meta: meta},
	}
	treeB := Tree{
		"foo.txt": Node{Kind: File, Contents: blobXPrime, Meta: meta},
		"dir":     Node{Kind: Directory, Contents: s1PrimeID, Meta: metaPrime},
	}

	idA := objectid.Hash([]byte("a"))
	idB := objectid.Hash([]byte("b"))

	forestA := MapForest{idA: treeA, s1ID: subtreeS1}
	forestB := MapForest{idB: treeB, s1PrimeID: subtreeS1Prime}

	rec := &recording{}
	CompareTrees(idA, forestA, idB, forestB, "", rec)

	// Directory recursion happens before the directory's own metadata
	// event (§4.4's "recurse first, metadata second"), and top-level keys
	// are visited in sorted order ("dir" before "foo.txt").
	assert.Equal(t, []string{
		"nothing dir/bar.txt",
		"added dir/baz.txt",
		"metadata dir",
		"contents foo.txt",
	}, rec.events)
}

func TestCompareTreesReflexive(t *testing.T) {
	blob := blobID("same")
	meta := Metadata{Mode: 0o644}
	tr := Tree{"f.txt": Node{Kind: File, Contents: blob, Meta: meta}}
	id := objectid.Hash([]byte("root"))
	forest := MapForest{id: tr}

	rec := &recording{}
	CompareTrees(id, forest, id, forest, "", rec)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "nothing f.txt", rec.events[0])
}

func TestCompareTreesSymmetric(t *testing.T) {
	blobOld := blobID("old")
	blobNew := blobID("new")
	meta := Metadata{Mode: 0o644}

	treeOld := Tree{"f.txt": Node{Kind: File, Contents: blobOld, Meta: meta}}
	treeNew := Tree{"f.txt": Node{Kind: File, Contents: blobNew, Meta: meta}}
	idOld := objectid.Hash([]byte("old-root"))
	idNew := objectid.Hash([]byte("new-root"))
	forestOld := MapForest{idOld: treeOld}
	forestNew := MapForest{idNew: treeNew}

	fwd := &recording{}
	CompareTrees(idOld, forestOld, idNew, forestNew, "", fwd)
	assert.Equal(t, []string{"contents f.txt"}, fwd.events)

	rev := &recording{}
	CompareTrees(idNew, forestNew, idOld, forestOld, "", rev)
	assert.Equal(t, []string{"contents f.txt"}, rev.events)
}

func TestCompareTreesTypeChangedDefaultsToRemoveThenAdd(t *testing.T) {
	meta := Metadata{Mode: 0o644}
	oldNode := Node{Kind: File, Contents: blobID("file"), Meta: meta}
	newNode := Node{Kind: Symlink, Contents: blobID("link-target"), Meta: meta}

	treeOld := Tree{"x": oldNode}
	treeNew := Tree{"x": newNode}
	idOld := objectid.Hash([]byte("type-old"))
	idNew := objectid.Hash([]byte("type-new"))
	forestOld := MapForest{idOld: treeOld}
	forestNew := MapForest{idNew: treeNew}

	rec := &recording{}
	rec.Callbacks = rec
	CompareTrees(idOld, forestOld, idNew, forestNew, "", rec)

	assert.Equal(t, []string{"removed x", "added x"}, rec.events)
}

func TestCompareTreesPanicsOnMissingTree(t *testing.T) {
	forest := MapForest{}
	assert.Panics(t, func() {
		CompareTrees(objectid.Hash([]byte("missing1")), forest, objectid.Hash([]byte("missing2")), forest, "", &recording{})
	})
}

func TestNullForestIsEmptyAndStable(t *testing.T) {
	id1, forest1 := NullForest()
	id2, forest2 := NullForest()
	assert.Equal(t, id1, id2)

	tr, ok := forest1.Tree(id1)
	require.True(t, ok)
	assert.Empty(t, tr)

	tr2, ok := forest2.Tree(id2)
	require.True(t, ok)
	assert.Empty(t, tr2)
}

func TestCompareTreesAgainstNullForestIsAllAdds(t *testing.T) {
	meta := Metadata{Mode: 0o644}
	tr := Tree{"a.txt": Node{Kind: File, Contents: blobID("a"), Meta: meta}}
	id := objectid.Hash([]byte("snap"))
	forest := MapForest{id: tr}

	nullID, nullForest := NullForest()

	rec := &recording{}
	CompareTrees(nullID, nullForest, id, forest, "", rec)
	assert.Equal(t, []string{"added a.txt"}, rec.events)
}
