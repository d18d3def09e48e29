package backend

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/marmos91/backpak/internal/repoerr"
)

// Filter adapts a Backend so every write is piped through a filter command
// and every read through an unfilter command. The caller still sees the
// plain Backend contract: Read returns an unfiltered stream, Write accepts
// unfiltered bytes.
type Filter struct {
	inner           Backend
	filterCommand   []string
	unfilterCommand []string
}

// NewFilter wraps inner so writes pass through filterCommand and reads
// through unfilterCommand before reaching the caller. Both commands are
// run via the shell's argv convention: argv[0] is the program, the rest
// are its arguments.
func NewFilter(inner Backend, filterCommand, unfilterCommand []string) *Filter {
	return &Filter{inner: inner, filterCommand: filterCommand, unfilterCommand: unfilterCommand}
}

// Read fetches the filtered object from inner and decodes it through the
// unfilter command. The child is spawned eagerly but reaped only when the
// returned stream is closed — callers (the cache, in the common case) must
// close it after fully consuming the stream and before treating the read
// as complete, so a non-zero exit is never silently swallowed.
func (f *Filter) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	raw, err := f.inner.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, f.unfilterCommand[0], f.unfilterCommand[1:]...)
	cmd.Stdin = raw
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		raw.Close()
		return nil, repoerr.New(repoerr.KindFilterFailed, "unfilter", key, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		raw.Close()
		return nil, repoerr.New(repoerr.KindFilterFailed, "unfilter", key, err)
	}

	return &filteredRead{stdout: stdout, cmd: cmd, raw: raw, key: key, stderr: &stderr}, nil
}

type filteredRead struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
	raw    io.ReadCloser
	key    string
	stderr *bytes.Buffer
	closed bool
}

func (r *filteredRead) Read(p []byte) (int, error) {
	return r.stdout.Read(p)
}

// Close reaps the child process. It must be called inside the same scope
// that consumed the stream, not deferred to a later point, so a decoder
// failure is observed before the caller treats the read as durable.
func (r *filteredRead) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	r.stdout.Close()
	err := r.cmd.Wait()
	r.raw.Close()
	if err != nil {
		return repoerr.New(repoerr.KindFilterFailed, "unfilter", r.key, err)
	}
	return nil
}

// Write pipes r through the filter command before handing the encoded
// bytes to inner. The filtered length is unknown up front (the transform
// may grow or shrink the stream), so the output is staged to a temp file
// to learn its size before calling inner.Write with an accurate length.
func (f *Filter) Write(ctx context.Context, key string, size int64, r io.Reader) error {
	cmd := exec.CommandContext(ctx, f.filterCommand[0], f.filterCommand[1:]...)
	cmd.Stdin = io.LimitReader(r, size)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return repoerr.New(repoerr.KindFilterFailed, "filter", key, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	tmp, err := os.CreateTemp("", "backpak-filter-*")
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "filter", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := cmd.Start(); err != nil {
		tmp.Close()
		return repoerr.New(repoerr.KindFilterFailed, "filter", key, err)
	}

	n, copyErr := io.Copy(tmp, stdout)

	// The child is reaped here, inside this function's scope, before the
	// staged output is ever handed to inner.Write.
	waitErr := cmd.Wait()
	closeErr := tmp.Close()

	if waitErr != nil {
		return repoerr.New(repoerr.KindFilterFailed, "filter", key, waitErr)
	}
	if copyErr != nil {
		return repoerr.New(repoerr.KindTransport, "filter", key, copyErr)
	}
	if closeErr != nil {
		return repoerr.New(repoerr.KindTransport, "filter", key, closeErr)
	}

	staged, err := os.Open(tmpName)
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "filter", key, err)
	}
	defer staged.Close()

	return f.inner.Write(ctx, key, n, staged)
}

func (f *Filter) List(ctx context.Context, prefix string) ([]Entry, error) {
	return f.inner.List(ctx, prefix)
}

func (f *Filter) Remove(ctx context.Context, key string) error {
	return f.inner.Remove(ctx, key)
}

var _ Backend = (*Filter)(nil)
