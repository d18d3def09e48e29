// Package diffprint renders tree.Callbacks events in the stable,
// human-facing format described in §6: one line per changed node.
package diffprint

import (
	"fmt"
	"io"

	"github.com/marmos91/backpak/pkg/tree"
)

// Printer implements tree.Callbacks, writing one line per event to W in
// the repository's standard diff output format.
type Printer struct {
	W               io.Writer
	ShowMetadata    bool
	SymlinkTargetOf func(id string) string // resolves a symlink node's blob to its target path text, for the "-> target" suffix
}

func (p *Printer) NodeAdded(path string, n tree.Node, _ tree.Forest) {
	fmt.Fprintf(p.W, "+ %s%s\n", path, p.suffix(n))
	if n.Kind == tree.Directory {
		// Printer formats only the single line for the node it was given;
		// the children of an added (or removed) directory are not listed.
	}
}

func (p *Printer) NodeRemoved(path string, n tree.Node, _ tree.Forest) {
	fmt.Fprintf(p.W, "- %s%s\n", path, p.suffix(n))
}

func (p *Printer) ContentsChanged(path string, oldNode, newNode tree.Node) {
	switch oldNode.Kind {
	case tree.Symlink:
		// A symlink's changed target is shown as a remove then an add, not
		// a single "C" line, since the whole target string changed.
		fmt.Fprintf(p.W, "- %s%s\n", path, p.suffix(oldNode))
		fmt.Fprintf(p.W, "+ %s%s\n", path, p.suffix(newNode))
	case tree.File:
		fmt.Fprintf(p.W, "C %s\n", path)
	default:
		panic("diffprint: ContentsChanged on non-File/Symlink node")
	}
}

func (p *Printer) MetadataChanged(path string, oldNode, newNode tree.Node) {
	if !p.ShowMetadata {
		return
	}
	fmt.Fprintf(p.W, "%c %s\n", metaDiffChar(oldNode.Meta, newNode.Meta), path)
}

func (p *Printer) NothingChanged(path string, n tree.Node) {}

func (p *Printer) TypeChanged(path string, oldNode tree.Node, oldForest tree.Forest, newNode tree.Node, newForest tree.Forest) {
	p.NodeRemoved(path, oldNode, oldForest)
	p.NodeAdded(path, newNode, newForest)
}

func (p *Printer) suffix(n tree.Node) string {
	if n.Kind == tree.Symlink && p.SymlinkTargetOf != nil {
		return " -> " + p.SymlinkTargetOf(n.Contents.String())
	}
	return ""
}

// metaDiffChar picks the single leading character for a metadata_changed
// line, one of {O,P,T,A,M}: Ownership, Permissions, modification Time,
// Access time, Multiple (more than one category changed).
func metaDiffChar(old, new tree.Metadata) byte {
	changed := 0
	var last byte

	if old.UID != new.UID || old.GID != new.GID {
		changed++
		last = 'O'
	}
	if old.Mode != new.Mode {
		changed++
		last = 'P'
	}
	if old.ModTime != new.ModTime {
		changed++
		last = 'T'
	}
	if old.AccessTime != new.AccessTime {
		changed++
		last = 'A'
	}
	if changed > 1 {
		return 'M'
	}
	return last
}

var _ tree.Callbacks = (*Printer)(nil)
