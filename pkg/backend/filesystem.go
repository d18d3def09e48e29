package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/backpak/internal/repoerr"
)

// Filesystem stores objects as files under a root directory. Writes land
// via a temp-name-then-rename so a reader never observes a torn object.
type Filesystem struct {
	root string
}

// NewFilesystem returns a Filesystem rooted at dir. dir is created if absent.
func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, repoerr.New(repoerr.KindTransport, "open", dir, err)
	}
	return &Filesystem{root: dir}, nil
}

// PathOf returns the filesystem path key would resolve to. Exposed so the
// repository facade can bypass the backend for a direct rename in
// direct-fs mode (§4.4).
func (f *Filesystem) PathOf(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *Filesystem) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.PathOf(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repoerr.New(repoerr.KindNotFound, "read", key, err)
		}
		return nil, repoerr.New(repoerr.KindTransport, "read", key, err)
	}
	return file, nil
}

func (f *Filesystem) Write(ctx context.Context, key string, size int64, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := f.PathOf(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, io.LimitReader(r, size))
	closeErr := tmp.Close()
	if err != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, err)
	}
	if closeErr != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, closeErr)
	}
	if n != size {
		return repoerr.New(repoerr.KindIntegrity, "write", key, io.ErrShortWrite)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return repoerr.New(repoerr.KindTransport, "write", key, err)
	}
	return nil
}

func (f *Filesystem) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dirRel, stem string
	if idx := strings.LastIndexByte(prefix, '/'); idx >= 0 {
		dirRel, stem = prefix[:idx], prefix[idx+1:]
	} else {
		stem = prefix
	}
	dir := filepath.Join(f.root, filepath.FromSlash(dirRel))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, repoerr.New(repoerr.KindTransport, "list", prefix, err)
	}

	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), stem) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, repoerr.New(repoerr.KindTransport, "list", prefix, err)
		}
		key := e.Name()
		if dirRel != "" {
			key = dirRel + "/" + key
		}
		out = append(out, Entry{Key: key, Size: info.Size()})
	}
	return out, nil
}

func (f *Filesystem) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(f.PathOf(key)); err != nil && !os.IsNotExist(err) {
		return repoerr.New(repoerr.KindTransport, "remove", key, err)
	}
	return nil
}

var _ Backend = (*Filesystem)(nil)
