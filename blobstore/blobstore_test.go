package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store BlobStore) {
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	data := []byte("hello world, this is a checkpoint")
	require.NoError(t, store.Put(ctx, "checkpoints/run-a/000001.ckpt", data))
	require.NoError(t, store.Put(ctx, "checkpoints/run-a/000002.ckpt", []byte("second")))
	require.NoError(t, store.Put(ctx, "checkpoints/run-b/000001.ckpt", []byte("other")))

	blob, err := store.Open(ctx, "checkpoints/run-a/000001.ckpt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	n, err = blob.ReadAt(ctx, make([]byte, 100), int64(len(data))-4)
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, blob.Close())

	got, err := ReadAll(ctx, store, "checkpoints/run-a/000001.ckpt")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Overwrite replaces the content.
	require.NoError(t, store.Put(ctx, "checkpoints/run-a/000002.ckpt", []byte("2nd")))
	got, err = ReadAll(ctx, store, "checkpoints/run-a/000002.ckpt")
	require.NoError(t, err)
	assert.Equal(t, "2nd", string(got))

	names, err := store.List(ctx, "checkpoints/run-a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"checkpoints/run-a/000001.ckpt", "checkpoints/run-a/000002.ckpt"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(ctx, "checkpoints/run-a/000001.ckpt"))
	require.NoError(t, store.Delete(ctx, "checkpoints/run-a/000001.ckpt"))
	_, err = store.Open(ctx, "checkpoints/run-a/000001.ckpt")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "empty", nil))
	got, err = ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte("abc")
	require.NoError(t, s.Put(ctx, "x", data))
	data[0] = 'z'

	got, err := ReadAll(ctx, s, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStoreLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStore(root)

	require.NoError(t, s.Put(ctx, "a/b/c.ckpt", []byte("x")))
	_, err := os.Stat(filepath.Join(root, "a", "b", "c.ckpt"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	names, err := NewLocalStore(filepath.Join(root, "missing")).List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBlobPointer(t *testing.T) {
	ctx := context.Background()
	p := NewBlobPointer(NewMemoryStore())

	_, err := p.Load(ctx, "CURRENT")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.CompareAndSwap(ctx, "CURRENT", "", "a"))
	assert.ErrorIs(t, p.CompareAndSwap(ctx, "CURRENT", "", "b"), ErrConflict)
	assert.ErrorIs(t, p.CompareAndSwap(ctx, "CURRENT", "x", "b"), ErrConflict)
	require.NoError(t, p.CompareAndSwap(ctx, "CURRENT", "a", "b"))

	v, err := p.Load(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}
