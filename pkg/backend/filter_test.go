package backend

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/backpak/internal/repoerr"
)

func TestFilterWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	f := NewFilter(inner, []string{"cat"}, []string{"cat"})

	data := []byte("object contents piped through a shell filter")
	require.NoError(t, f.Write(ctx, "packs/aaaa.pack", int64(len(data)), bytes.NewReader(data)))

	rc, err := f.Read(ctx, "packs/aaaa.pack")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)
}

func TestFilterWriteTransformsBytes(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	// tr uppercases the stream, so the object stored by inner differs from
	// what the caller handed to Write but round-trips back through Read.
	f := NewFilter(inner, []string{"tr", "a-z", "A-Z"}, []string{"tr", "A-Z", "a-z"})

	data := []byte("lowercase payload")
	require.NoError(t, f.Write(ctx, "packs/bbbb.pack", int64(len(data)), bytes.NewReader(data)))

	storedRC, err := inner.Read(ctx, "packs/bbbb.pack")
	require.NoError(t, err)
	stored, err := io.ReadAll(storedRC)
	require.NoError(t, err)
	storedRC.Close()
	assert.Equal(t, []byte("LOWERCASE PAYLOAD"), stored)

	rc, err := f.Read(ctx, "packs/bbbb.pack")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)
}

func TestFilterReadNonZeroExitIsFilterFailed(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	require.NoError(t, inner.Write(ctx, "packs/cccc.pack", 4, bytes.NewReader([]byte("data"))))

	f := NewFilter(inner, []string{"cat"}, []string{"sh", "-c", "exit 1"})

	rc, err := f.Read(ctx, "packs/cccc.pack")
	require.NoError(t, err, "the child is spawned eagerly; failure surfaces on Close")
	_, _ = io.ReadAll(rc)
	err = rc.Close()
	assert.True(t, repoerr.Is(err, repoerr.KindFilterFailed))
}

func TestFilterWriteNonZeroExitIsFilterFailed(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	f := NewFilter(inner, []string{"sh", "-c", "exit 1"}, []string{"cat"})

	err := f.Write(ctx, "packs/dddd.pack", 4, bytes.NewReader([]byte("data")))
	assert.True(t, repoerr.Is(err, repoerr.KindFilterFailed))
}

func TestFilterListAndRemoveForwardToInner(t *testing.T) {
	ctx := context.Background()
	inner := NewMemory()
	f := NewFilter(inner, []string{"cat"}, []string{"cat"})

	require.NoError(t, f.Write(ctx, "packs/eeee.pack", 1, bytes.NewReader([]byte("x"))))

	entries, err := f.List(ctx, "packs/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "packs/eeee.pack", entries[0].Key)

	require.NoError(t, f.Remove(ctx, "packs/eeee.pack"))
	_, err = inner.Read(ctx, "packs/eeee.pack")
	assert.True(t, repoerr.IsNotFound(err))
}
