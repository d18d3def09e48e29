package commands

import (
	"encoding/json"
	"io"

	"github.com/marmos91/backpak/internal/objectid"
	"github.com/marmos91/backpak/pkg/tree"
)

// snapshotEnvelope is the JSON-encoded snapshot shape this CLI reads: a
// root tree ID plus every tree reachable from it. The real wire format is
// owned by snapshot creation (out of scope); this is the seam the diff
// command uses to get from bytes to a tree.Forest.
type snapshotEnvelope struct {
	RootTree objectid.ID            `json:"root_tree"`
	Trees    map[string]tree.Tree   `json:"trees"`
}

func loadSnapshotTree(r io.Reader) (objectid.ID, tree.MapForest, error) {
	var env snapshotEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return objectid.Zero, nil, err
	}

	forest := make(tree.MapForest, len(env.Trees))
	for idStr, t := range env.Trees {
		id, err := objectid.Parse(idStr)
		if err != nil {
			return objectid.Zero, nil, err
		}
		forest[id] = t
	}
	return env.RootTree, forest, nil
}
