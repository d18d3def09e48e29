package cache

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheInsertThenTryReadRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	data := []byte("pack contents")
	rc, err := c.Insert("aaaa.pack", bytes.NewReader(data))
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	require.NoError(t, rc.Close())

	rc2, ok, err := c.TryRead("aaaa.pack")
	require.NoError(t, err)
	require.True(t, ok)
	defer rc2.Close()
	got2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	assert.Equal(t, data, got2)
}

func TestCacheTryReadMissingIsNotAnError(t *testing.T) {
	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	rc, ok, err := c.TryRead("nope.index")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rc)
}

func TestCacheInsertFileMovesIntoPlace(t *testing.T) {
	dir := t.TempDir()
	c, err := New(filepath.Join(dir, "cache"), 1<<20)
	require.NoError(t, err)

	tmp, err := os.CreateTemp(dir, "staged-*")
	require.NoError(t, err)
	_, err = tmp.Write([]byte("snapshot bytes"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	tmp, err = os.Open(tmp.Name())
	require.NoError(t, err)
	require.NoError(t, c.InsertFile("bbbb.snapshot", tmp))

	rc, ok, err := c.TryRead("bbbb.snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot bytes"), got)
}

func TestCacheEvictIsIdempotent(t *testing.T) {
	c, err := New(t.TempDir(), 1<<20)
	require.NoError(t, err)

	require.NoError(t, c.Evict("never-inserted.pack"))

	rc, err := c.Insert("cccc.pack", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, c.Evict("cccc.pack"))
	require.NoError(t, c.Evict("cccc.pack"))

	_, ok, err := c.TryRead("cccc.pack")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePruneEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(t.TempDir(), 10)
	require.NoError(t, err)

	insert := func(name string, n int) {
		rc, err := c.Insert(name, bytes.NewReader(bytes.Repeat([]byte("a"), n)))
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}

	insert("a.pack", 4)
	insert("b.pack", 4)
	// touch a.pack so it becomes more-recently-used than b.pack
	rc, ok, err := c.TryRead("a.pack")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, rc.Close())

	insert("c.pack", 4) // pushes total to 12 > budget of 10, b.pack is the LRU victim
	require.NoError(t, c.Prune())

	_, ok, err = c.TryRead("b.pack")
	require.NoError(t, err)
	assert.False(t, ok, "least-recently-used entry should have been evicted")

	_, ok, err = c.TryRead("a.pack")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = c.TryRead("c.pack")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.LessOrEqual(t, c.Size(), int64(10))
}

func TestCachePruneNeverEvictsEntryWithLiveHandle(t *testing.T) {
	c, err := New(t.TempDir(), 4)
	require.NoError(t, err)

	rc, err := c.Insert("held.pack", bytes.NewReader([]byte("abcd")))
	require.NoError(t, err)
	defer rc.Close()

	rc2, err := c.Insert("other.pack", bytes.NewReader([]byte("efgh")))
	require.NoError(t, err)
	require.NoError(t, rc2.Close())

	require.NoError(t, c.Prune())

	_, ok, err := c.TryRead("held.pack")
	require.NoError(t, err)
	assert.True(t, ok, "entry with a live handle must never be evicted")
}
