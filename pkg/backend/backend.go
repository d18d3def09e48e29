// Package backend implements the raw byte-level object stores that sit
// beneath the repository's cache and routing layers: a filesystem store,
// a throttled remote object store, and an in-memory store for tests.
package backend

import (
	"context"
	"io"
)

// Entry describes one object returned by List.
type Entry struct {
	Key  string
	Size int64
}

// Backend is the minimal byte store contract every concrete store and
// wrapper (filter, throttle) implements uniformly.
//
// Overwrite semantics are undefined; callers never reuse keys, since every
// key is a content hash.
type Backend interface {
	// Read returns a stream positioned at zero for key. Returns a
	// repoerr.KindNotFound error if the key does not exist.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Write consumes exactly size bytes from r and commits them under key
	// atomically: observers never see a partial object.
	Write(ctx context.Context, key string, size int64, r io.Reader) error

	// List enumerates every committed object whose key begins with prefix.
	// Ordering is unspecified and duplicates are forbidden.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Remove idempotently deletes key; a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
