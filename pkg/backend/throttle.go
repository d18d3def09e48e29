package backend

import (
	"context"
	"io"

	"golang.org/x/sync/semaphore"
)

// Throttle wraps a Backend with a semaphore of N permits so only N
// operations are in flight at once, protecting remote API quotas.
type Throttle struct {
	inner Backend
	sem   *semaphore.Weighted
}

// NewThrottle wraps inner with a throttle allowing at most concurrent
// operations simultaneously.
func NewThrottle(inner Backend, concurrent int64) *Throttle {
	if concurrent < 1 {
		concurrent = 1
	}
	return &Throttle{inner: inner, sem: semaphore.NewWeighted(concurrent)}
}

func (t *Throttle) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	rc, err := t.inner.Read(ctx, key)
	if err != nil {
		t.sem.Release(1)
		return nil, err
	}
	return &releasingReadCloser{ReadCloser: rc, release: func() { t.sem.Release(1) }}, nil
}

// releasingReadCloser holds a semaphore permit until the stream it wraps is
// closed, so the permit covers the whole transfer, not just the request
// that opened it.
type releasingReadCloser struct {
	io.ReadCloser
	release  func()
	released bool
}

func (r *releasingReadCloser) Close() error {
	err := r.ReadCloser.Close()
	if !r.released {
		r.released = true
		r.release()
	}
	return err
}

func (t *Throttle) Write(ctx context.Context, key string, size int64, r io.Reader) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)
	return t.inner.Write(ctx, key, size, r)
}

func (t *Throttle) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.sem.Release(1)
	return t.inner.List(ctx, prefix)
}

func (t *Throttle) Remove(ctx context.Context, key string) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer t.sem.Release(1)
	return t.inner.Remove(ctx, key)
}

var _ Backend = (*Throttle)(nil)
