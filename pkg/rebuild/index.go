// Package rebuild implements the index rebuild protocol (§4.6): scan every
// pack in parallel, fold their manifests into one new index on a single
// consumer goroutine, upload it, and only then retire the indexes it
// supersedes.
package rebuild

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/backpak/internal/objectid"
	"github.com/marmos91/backpak/internal/repoerr"
	"github.com/marmos91/backpak/pkg/repository"
)

// Manifest is the set of blob IDs a single pack contains. The packer that
// writes this manifest into the tail of a pack object is out of scope;
// LoadManifest is the seam a caller plugs in to read it back.
type Manifest struct {
	BlobIDs []objectid.ID `json:"blob_ids"`
}

// PackMetadata pairs a pack's ID with its manifest, the unit of work
// flowing through the scan-to-index pipeline.
type PackMetadata struct {
	ID       objectid.ID
	Manifest Manifest
}

// Index is the rebuilt repository index: a pack-to-blobs mapping plus the
// set of older indexes it supersedes.
type Index struct {
	Supersedes []objectid.ID          `json:"supersedes"`
	Packs      map[string][]objectid.ID `json:"packs"` // pack ID string -> blob IDs
}

// LoadManifestFunc loads a pack's manifest given a reader positioned at
// zero over the pack object and its total size. The concrete encoding is
// owned by the packer (out of scope); this is the seam tests and real
// callers supply.
type LoadManifestFunc func(ctx context.Context, r io.Reader, size int64) (Manifest, error)

// Result reports what a Rebuild run did, for logging and tests.
type Result struct {
	NewIndex      *Index
	IndexedPacks  int
	Superseded    []objectid.ID
	DryRun        bool
}

// Rebuild runs the full protocol against repo: enumerate existing indexes,
// scan packs concurrently, build the new index on a single consumer,
// upload it (unless dryRun), then retire every superseded index only after
// the upload has durably succeeded.
func Rebuild(ctx context.Context, repo *repository.CachedBackend, loadManifest LoadManifestFunc, dryRun bool) (*Result, error) {
	existingIndexes, err := repo.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}
	superseded := make([]objectid.ID, 0, len(existingIndexes))
	for _, e := range existingIndexes {
		id, _, err := objectid.FromName(baseName(e.Key))
		if err != nil {
			return nil, repoerr.New(repoerr.KindFatal, "rebuild_index", e.Key, err)
		}
		superseded = append(superseded, id)
	}

	packs, err := repo.ListPacks(ctx)
	if err != nil {
		return nil, err
	}

	packCh := make(chan PackMetadata, physicalCPUs())
	built := make(chan *Index, 1)

	group, gctx := errgroup.WithContext(ctx)

	// Single consumer: folds every scanned pack into one new index.
	group.Go(func() error {
		idx := &Index{Supersedes: superseded, Packs: make(map[string][]objectid.ID)}
		for pm := range packCh {
			idx.Packs[pm.ID.String()] = pm.Manifest.BlobIDs
		}
		built <- idx
		return nil
	})

	// Parallel pack scan: each pack's manifest is loaded independently and
	// fed to the single consumer above.
	group.Go(func() error {
		defer close(packCh)

		scan, sctx := errgroup.WithContext(gctx)
		scan.SetLimit(physicalCPUs())
		for _, e := range packs {
			e := e
			scan.Go(func() error {
				id, _, err := objectid.FromName(baseName(e.Key))
				if err != nil {
					return repoerr.New(repoerr.KindFatal, "rebuild_index", e.Key, err)
				}
				rc, err := repo.ReadPack(sctx, id)
				if err != nil {
					return err
				}
				defer rc.Close()
				manifest, err := loadManifest(sctx, rc, e.Size)
				if err != nil {
					return err
				}
				select {
				case packCh <- PackMetadata{ID: id, Manifest: manifest}:
					return nil
				case <-sctx.Done():
					return sctx.Err()
				}
			})
		}
		return scan.Wait()
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	newIndex := <-built

	if dryRun {
		return &Result{NewIndex: newIndex, IndexedPacks: len(newIndex.Packs), Superseded: superseded, DryRun: true}, nil
	}

	if err := uploadIndex(ctx, repo, newIndex); err != nil {
		return nil, err
	}

	// Stage 5 is totally ordered after stage 4's completion: retirement
	// only happens once the new index is confirmed durable.
	for _, old := range superseded {
		if err := repo.RemoveIndex(ctx, old); err != nil {
			return nil, err
		}
	}

	return &Result{NewIndex: newIndex, IndexedPacks: len(newIndex.Packs), Superseded: superseded}, nil
}

func uploadIndex(ctx context.Context, repo *repository.CachedBackend, idx *Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return repoerr.New(repoerr.KindFatal, "rebuild_index", "", err)
	}

	id := objectid.Hash(data)
	tmp, err := os.CreateTemp("", "backpak-index-*")
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "rebuild_index", "", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return repoerr.New(repoerr.KindTransport, "rebuild_index", "", err)
	}

	return repo.Write(ctx, objectid.Name(id, objectid.KindIndex), tmp)
}

func baseName(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[i+1:]
		}
	}
	return key
}

func physicalCPUs() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
