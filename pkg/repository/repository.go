// Package repository implements the CachedBackend facade: the write-through,
// layout-aware front door that every other component uses to read, write,
// list, and remove packs, indexes, and snapshots. It is the only place that
// knows about the flat-name/repository-key split, the local disk cache, and
// the routing between direct-filesystem, cached, and in-memory modes.
package repository

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/marmos91/backpak/internal/objectid"
	"github.com/marmos91/backpak/internal/repoerr"
	"github.com/marmos91/backpak/pkg/backend"
	"github.com/marmos91/backpak/pkg/cache"
	"github.com/marmos91/backpak/pkg/repoconfig"
)

// CacheBehavior controls whether the Cached mode ever bypasses the cache.
type CacheBehavior int

const (
	// Normal tries the cache first on every read, falling back to the
	// backend on a miss.
	Normal CacheBehavior = iota
	// AlwaysRead always fetches from the backend, still populating the
	// cache for later readers. Used for integrity-sensitive operations
	// (e.g. verifying a pack against its upstream copy).
	AlwaysRead
)

type mode int

const (
	modeDirectFS mode = iota
	modeCached
	modeMemory
)

// CachedBackend is the core facade described in §4.4: it routes to exactly
// one mode selected at construction time, tracks bytes transferred, and
// exposes only the flat-name, kind-typed surface to the rest of the system.
type CachedBackend struct {
	m mode

	fs       *backend.Filesystem // modeDirectFS and the fs half of modeCached's layout
	inner    backend.Backend     // modeCached's wrapped (filter/throttle) backend
	cache    *cache.Cache        // modeCached only
	behavior CacheBehavior

	mem *backend.Memory // modeMemory only

	bytesDownloaded atomic.Uint64
	bytesUploaded   atomic.Uint64
}

// InMemory returns a CachedBackend over a fresh, empty in-memory store, for
// tests that don't need real filesystem or network I/O.
func InMemory() *CachedBackend {
	return &CachedBackend{m: modeMemory, mem: backend.NewMemory()}
}

// Open opens the repository rooted at repoRoot (which must contain
// config.toml), choosing a routing mode per the table in §4.4.
func Open(ctx context.Context, repoRoot, cacheDir string, cacheBudget int64, behavior CacheBehavior) (*CachedBackend, error) {
	cfg, err := repoconfig.Load(filepath.Join(repoRoot, "config.toml"))
	if err != nil {
		return nil, err
	}

	fsBackend, err := backend.NewFilesystem(repoRoot)
	if err != nil {
		return nil, err
	}

	if cfg.DirectFS() {
		return &CachedBackend{m: modeDirectFS, fs: fsBackend}, nil
	}

	var inner backend.Backend = fsBackend
	if cfg.Backend.Type == repoconfig.BackendBackblaze {
		remote, err := backend.NewRemote(ctx, backend.RemoteConfig{
			Region:         "us-west-000",
			Bucket:         cfg.Backend.Bucket,
			KeyID:          cfg.Backend.KeyID,
			ApplicationKey: cfg.Backend.ApplicationKey,
		})
		if err != nil {
			return nil, err
		}
		inner = backend.NewThrottle(remote, int64(cfg.Backend.ConcurrentConnections))
	}

	if cfg.HasFilter() {
		inner = backend.NewFilter(inner, shellCommand(cfg.Filter), shellCommand(cfg.Unfilter))
	}

	diskCache, err := cache.New(cacheDir, cacheBudget)
	if err != nil {
		return nil, err
	}

	return &CachedBackend{m: modeCached, fs: fsBackend, inner: inner, cache: diskCache, behavior: behavior}, nil
}

func shellCommand(cmd string) []string {
	return []string{"/bin/sh", "-c", cmd}
}

// BytesDownloaded returns the cumulative bytes physically fetched from a
// backend (cache hits do not count).
func (c *CachedBackend) BytesDownloaded() uint64 { return c.bytesDownloaded.Load() }

// BytesUploaded returns the cumulative bytes physically sent to a backend.
func (c *CachedBackend) BytesUploaded() uint64 { return c.bytesUploaded.Load() }

// Read returns the object named by the flat name (e.g. "<id>.pack")
// positioned at zero.
func (c *CachedBackend) Read(ctx context.Context, name string) (io.ReadCloser, error) {
	switch c.m {
	case modeDirectFS:
		f, err := os.Open(c.fs.PathOf(destination(name)))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, repoerr.New(repoerr.KindNotFound, "read", name, err)
			}
			return nil, repoerr.New(repoerr.KindTransport, "read", name, err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, repoerr.New(repoerr.KindTransport, "read", name, err)
		}
		c.bytesDownloaded.Add(uint64(info.Size()))
		return f, nil

	case modeMemory:
		return c.mem.Read(ctx, destination(name))

	default: // modeCached
		return c.readCached(ctx, name)
	}
}

func (c *CachedBackend) readCached(ctx context.Context, name string) (io.ReadCloser, error) {
	if c.behavior == Normal {
		if h, ok, err := c.cache.TryRead(name); err != nil {
			return nil, err
		} else if ok {
			return h, nil
		}
	}

	raw, err := c.inner.Read(ctx, destination(name))
	if err != nil {
		return nil, err
	}
	counted := &countingReadCloser{ReadCloser: raw, counter: &c.bytesDownloaded}

	handle, err := c.cache.Insert(name, counted)
	closeErr := counted.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		// A failed unfilter is reported here, before the entry is handed
		// out, and the entry it produced is dropped from the cache.
		handle.Close()
		c.cache.Evict(name)
		return nil, closeErr
	}
	if err := c.cache.Prune(); err != nil {
		return nil, err
	}

	// Insertion must precede rewind, and rewind must precede return, so the
	// caller always receives a stream ready to read from the start.
	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		handle.Close()
		return nil, repoerr.New(repoerr.KindTransport, "read", name, err)
	}
	return handle, nil
}

// Write durably stores file (a temp file handle containing the finished
// object) under name. file is logically transferred to the CachedBackend,
// which deletes it once storage is confirmed (even on the direct-fs path,
// where "storage" means a rename of file itself).
func (c *CachedBackend) Write(ctx context.Context, name string, file *os.File) error {
	switch c.m {
	case modeDirectFS:
		info, err := file.Stat()
		if err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		dest := c.fs.PathOf(destination(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		if err := file.Close(); err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		if err := os.Rename(file.Name(), dest); err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		c.bytesUploaded.Add(uint64(info.Size()))
		return nil

	case modeMemory:
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		info, err := file.Stat()
		if err != nil {
			return repoerr.New(repoerr.KindTransport, "write", name, err)
		}
		if err := c.mem.Write(ctx, destination(name), info.Size(), file); err != nil {
			return err
		}
		c.bytesUploaded.Add(uint64(info.Size()))
		path := file.Name()
		file.Close()
		os.Remove(path)
		return nil

	default: // modeCached
		return c.writeCached(ctx, name, file)
	}
}

func (c *CachedBackend) writeCached(ctx context.Context, name string, file *os.File) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return repoerr.New(repoerr.KindTransport, "write", name, err)
	}
	info, err := file.Stat()
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "write", name, err)
	}

	counted := &countingReader{Reader: file, counter: &c.bytesUploaded}

	// The object must be durable at the backend before it may appear in the
	// cache: a crash after a premature cache-insert could leave a cache
	// entry with no backing object.
	if err := c.inner.Write(ctx, destination(name), info.Size(), counted); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}

	if err := c.cache.InsertFile(name, file); err != nil {
		return err
	}
	return c.cache.Prune()
}

// Remove deletes the object named by name. Idempotent: a missing object is
// not an error.
func (c *CachedBackend) Remove(ctx context.Context, name string) error {
	switch c.m {
	case modeDirectFS:
		if err := os.Remove(c.fs.PathOf(destination(name))); err != nil && !os.IsNotExist(err) {
			return repoerr.New(repoerr.KindTransport, "remove", name, err)
		}
		return nil

	case modeMemory:
		return c.mem.Remove(ctx, destination(name))

	default: // modeCached
		if err := c.cache.Evict(name); err != nil {
			return err
		}
		return c.inner.Remove(ctx, destination(name))
	}
}

// List enumerates objects whose repository-relative key begins with
// prefix (e.g. "packs/").
func (c *CachedBackend) List(ctx context.Context, prefix string) ([]backend.Entry, error) {
	switch c.m {
	case modeDirectFS:
		return c.fs.List(ctx, prefix)
	case modeMemory:
		return c.mem.List(ctx, prefix)
	default:
		return c.inner.List(ctx, prefix)
	}
}

func (c *CachedBackend) ListPacks(ctx context.Context) ([]backend.Entry, error) {
	return c.List(ctx, packsPrefix)
}

func (c *CachedBackend) ListIndexes(ctx context.Context) ([]backend.Entry, error) {
	return c.List(ctx, indexesPrefix)
}

func (c *CachedBackend) ListSnapshots(ctx context.Context) ([]backend.Entry, error) {
	return c.List(ctx, snapshotsPrefix)
}

func (c *CachedBackend) ReadPack(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	return c.Read(ctx, objectid.Name(id, objectid.KindPack))
}

func (c *CachedBackend) ReadIndex(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	return c.Read(ctx, objectid.Name(id, objectid.KindIndex))
}

func (c *CachedBackend) ReadSnapshot(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	return c.Read(ctx, objectid.Name(id, objectid.KindSnapshot))
}

func (c *CachedBackend) RemovePack(ctx context.Context, id objectid.ID) error {
	return c.Remove(ctx, objectid.Name(id, objectid.KindPack))
}

func (c *CachedBackend) RemoveIndex(ctx context.Context, id objectid.ID) error {
	return c.Remove(ctx, objectid.Name(id, objectid.KindIndex))
}

func (c *CachedBackend) RemoveSnapshot(ctx context.Context, id objectid.ID) error {
	return c.Remove(ctx, objectid.Name(id, objectid.KindSnapshot))
}

// ProbePack verifies that listing contains exactly one entry for id's pack.
// Zero matches is a NotFound error; more than one is a Fatal repository
// corruption.
func ProbePack(listing []backend.Entry, id objectid.ID) error {
	want := packsPrefix + objectid.Name(id, objectid.KindPack)
	count := 0
	for _, e := range listing {
		if e.Key == want {
			count++
		}
	}
	switch {
	case count == 0:
		return repoerr.New(repoerr.KindNotFound, "probe_pack", id.String(), nil)
	case count > 1:
		return repoerr.New(repoerr.KindFatal, "probe_pack", id.String(), nil)
	default:
		return nil
	}
}
