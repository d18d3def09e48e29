package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/backpak/internal/logger"
	"github.com/marmos91/backpak/pkg/rebuild"
	"github.com/marmos91/backpak/pkg/repository"
)

var dryRun bool

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the repository index from the packs currently present",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cacheDir := filepath.Join(repoPath, ".cache")
		repo, err := repository.Open(ctx, repoPath, cacheDir, 1<<30, repository.Normal)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}

		result, err := rebuild.Rebuild(ctx, repo, loadJSONManifest, dryRun)
		if err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}

		logger.Info("index rebuilt",
			logger.Count(result.IndexedPacks),
			logger.Kind("index"),
		)
		if dryRun {
			cmd.Println("dry run: no index uploaded, no indexes removed")
		} else {
			cmd.Printf("uploaded new index covering %d packs, retired %d old indexes\n",
				result.IndexedPacks, len(result.Superseded))
		}
		return nil
	},
}

func init() {
	rebuildIndexCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "build the index in memory without uploading or retiring anything")
}

// loadJSONManifest is the default manifest loader, decoding a JSON-encoded
// rebuild.Manifest from the start of the pack stream; it does not seek to
// the pack's tail and ignores size. Real pack manifests are written by the
// packer (out of scope); this loader matches what pkg/rebuild/index_test.go's
// fixtures produce.
func loadJSONManifest(ctx context.Context, r io.Reader, size int64) (rebuild.Manifest, error) {
	var m rebuild.Manifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return rebuild.Manifest{}, err
	}
	return m, nil
}
