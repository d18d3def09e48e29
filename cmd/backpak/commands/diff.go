package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/backpak/internal/objectid"
	"github.com/marmos91/backpak/pkg/diffprint"
	"github.com/marmos91/backpak/pkg/repository"
	"github.com/marmos91/backpak/pkg/tree"
)

var showMetadata bool

var diffCmd = &cobra.Command{
	Use:   "diff <snapshot> [snapshot]",
	Short: "Show structural changes between two snapshots",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cacheDir := filepath.Join(repoPath, ".cache")
		repo, err := repository.Open(ctx, repoPath, cacheDir, 1<<30, repository.Normal)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		id1, err := objectid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse snapshot id: %w", err)
		}
		forest1, err := forestForSnapshot(ctx, repo, id1)
		if err != nil {
			return err
		}
		root1 := forest1.root

		var root2 objectid.ID
		var forest2 tree.Forest
		if len(args) == 2 {
			id2, err := objectid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("parse snapshot id: %w", err)
			}
			f2, err := forestForSnapshot(ctx, repo, id2)
			if err != nil {
				return err
			}
			root2, forest2 = f2.root, f2
		} else {
			root2, forest2 = tree.NullForest()
		}

		printer := &diffprint.Printer{W: os.Stdout, ShowMetadata: showMetadata}
		tree.CompareTrees(root1, forest1, root2, forest2, "", printer)
		return nil
	},
}

func init() {
	diffCmd.Flags().BoolVar(&showMetadata, "metadata", false, "also report metadata-only changes")
}

// snapshotForest is a tree.Forest scoped to the trees reachable from one
// snapshot's root, built from the trees embedded in the snapshot object's
// JSON envelope (see snapshotEnvelope). Trees are not looked up through
// the repository's indexes or packs; this is the seam a full
// implementation would replace with an index-backed Forest.
type snapshotForest struct {
	root objectid.ID
	tree.MapForest
}

func forestForSnapshot(ctx context.Context, repo *repository.CachedBackend, id objectid.ID) (*snapshotForest, error) {
	rc, err := repo.ReadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	defer rc.Close()

	root, forest, err := loadSnapshotTree(rc)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return &snapshotForest{root: root, MapForest: forest}, nil
}
