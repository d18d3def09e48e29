// Package cache implements the size-bounded, disk-backed LRU cache that
// sits between the repository facade and its backend, so repeated reads of
// the same object never cross the network or re-read a cold file.
package cache

import (
	"container/list"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/backpak/internal/repoerr"
)

// Cache is a size-bounded disk cache keyed by flat object name. It owns its
// on-disk entries exclusively: filenames, sizing, and eviction are internal
// and not coordinated by callers.
type Cache struct {
	mu      sync.Mutex
	dir     string
	budget  int64
	used    int64
	order   *list.List // front = most recently used
	entries map[string]*list.Element
}

type entry struct {
	name string
	size int64
	refs int
}

// New returns a Cache rooted at dir with the given size budget in bytes.
// dir is created if it does not already exist.
func New(dir string, budget int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, repoerr.New(repoerr.KindTransport, "open", dir, err)
	}
	return &Cache{
		dir:     dir,
		budget:  budget,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}, nil
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name)
}

// handle is the ReadSeekCloser returned to callers. Closing it releases the
// entry's reference so prune may later evict it.
type handle struct {
	*os.File
	cache *Cache
	name  string
}

func (h *handle) Close() error {
	err := h.File.Close()
	h.cache.release(h.name)
	return err
}

func (c *Cache) addRef(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[name]; ok {
		el.Value.(*entry).refs++
	}
}

func (c *Cache) release(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[name]; ok {
		el.Value.(*entry).refs--
	}
}

// TryRead returns a handle to the cached entry for name, or ok=false if
// absent. It never fails for a missing entry; only I/O errors on an entry
// known to exist are returned.
func (c *Cache) TryRead(name string) (io.ReadSeekCloser, bool, error) {
	c.mu.Lock()
	el, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		return nil, false, nil
	}
	e := el.Value.(*entry)
	e.refs++
	c.order.MoveToFront(el)
	c.mu.Unlock()

	f, err := os.Open(c.path(name))
	if err != nil {
		c.release(name)
		if os.IsNotExist(err) {
			// Entry was evicted racily between the map check and the open;
			// treat as a miss rather than surfacing integrity corruption.
			c.mu.Lock()
			delete(c.entries, name)
			c.mu.Unlock()
			return nil, false, nil
		}
		return nil, false, repoerr.New(repoerr.KindIntegrity, "cache_read", name, err)
	}
	return &handle{File: f, cache: c, name: name}, true, nil
}

// Insert streams r into a new entry under name and returns a handle to read
// it back from the start. The entry is fsynced before Insert returns, so a
// subsequent TryRead is guaranteed coherent even across a crash.
func (c *Cache) Insert(name string, r io.Reader) (io.ReadSeekCloser, error) {
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}

	dest := c.path(name)
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}

	c.register(name, size)

	f, err := os.Open(dest)
	if err != nil {
		return nil, repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	c.addRef(name)
	return &handle{File: f, cache: c, name: name}, nil
}

// InsertFile hands an already-materialized file to the cache, moving it
// into place rather than copying.
func (c *Cache) InsertFile(name string, file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	if err := file.Sync(); err != nil {
		return repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	srcPath := file.Name()
	if err := file.Close(); err != nil {
		return repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	if err := os.Rename(srcPath, c.path(name)); err != nil {
		return repoerr.New(repoerr.KindTransport, "cache_insert", name, err)
	}
	c.register(name, info.Size())
	return nil
}

func (c *Cache) register(name string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[name]; ok {
		e := el.Value.(*entry)
		c.used += size - e.size
		e.size = size
		c.order.MoveToFront(el)
		return
	}
	e := &entry{name: name, size: size}
	el := c.order.PushFront(e)
	c.entries[name] = el
	c.used += size
}

// Evict removes name if present; a missing entry is not an error. An entry
// with a live read handle is not removed: it stays cached and Evict
// returns nil.
func (c *Cache) Evict(name string) error {
	c.mu.Lock()
	el, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	e := el.Value.(*entry)
	if e.refs > 0 {
		c.mu.Unlock()
		return nil
	}
	c.order.Remove(el)
	delete(c.entries, name)
	c.used -= e.size
	c.mu.Unlock()

	if err := os.Remove(c.path(name)); err != nil && !os.IsNotExist(err) {
		return repoerr.New(repoerr.KindTransport, "cache_evict", name, err)
	}
	return nil
}

// Prune evicts least-recently-used entries until the cache is within
// budget. Entries with a live read handle are never evicted, even if that
// means temporarily exceeding budget.
func (c *Cache) Prune() error {
	for {
		c.mu.Lock()
		if c.budget <= 0 || c.used <= c.budget {
			c.mu.Unlock()
			return nil
		}

		victim := c.lruUnreferenced()
		if victim == nil {
			// Nothing evictable right now; all remaining entries are in use.
			c.mu.Unlock()
			return nil
		}
		e := victim.Value.(*entry)
		c.order.Remove(victim)
		delete(c.entries, e.name)
		c.used -= e.size
		name := e.name
		c.mu.Unlock()

		if err := os.Remove(c.path(name)); err != nil && !os.IsNotExist(err) {
			return repoerr.New(repoerr.KindTransport, "cache_prune", name, err)
		}
	}
}

// lruUnreferenced returns the least-recently-used element with no live
// handle, walking from the back of the list. Caller must hold c.mu.
func (c *Cache) lruUnreferenced() *list.Element {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		if el.Value.(*entry).refs == 0 {
			return el
		}
	}
	return nil
}

// Size returns the current total size of cached entries, for tests and
// observability.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
