package repository

import (
	"io"
	"sync/atomic"
)

// countingReader wraps an io.Reader and adds every byte read to counter.
// The CachedBackend owns the counter; neither the cache nor any backend
// variant needs a back-reference to it.
type countingReader struct {
	io.Reader
	counter *atomic.Uint64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if n > 0 {
		r.counter.Add(uint64(n))
	}
	return n, err
}

type countingReadCloser struct {
	io.ReadCloser
	counter *atomic.Uint64
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.counter.Add(uint64(n))
	}
	return n, err
}
