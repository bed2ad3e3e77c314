package checkpoint

import (
	"context"
	"testing"

	"github.com/hupe1980/cash/blobstore"
	"github.com/hupe1980/cash/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveLoad(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	m := NewManager(bs)

	_, err := m.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)

	for i := 1; i <= 3; i++ {
		name, err := m.Save(ctx, testCheckpoint("run-1", i))
		require.NoError(t, err)
		assert.Equal(t, m.Name("run-1", i), name)
	}

	got, err := m.Load(ctx, "run-1")
	require.NoError(t, err)
	assertSameCheckpoint(t, testCheckpoint("run-1", 3), got)

	names, err := m.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"checkpoints/run-1/0000000001.ckpt",
		"checkpoints/run-1/0000000002.ckpt",
		"checkpoints/run-1/0000000003.ckpt",
	}, names)

	first, err := m.LoadName(ctx, names[0])
	require.NoError(t, err)
	assert.Equal(t, 1, first.Iteration)
}

func TestManager_Runs(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blobstore.NewMemoryStore(), func(o *Options) { o.Prefix = "ckpt" })

	for _, run := range []string{"b", "a", "b"} {
		_, err := m.Save(ctx, testCheckpoint(run, 1))
		require.NoError(t, err)
	}

	runs, err := m.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, runs)
}

func TestManager_InvalidRunID(t *testing.T) {
	m := NewManager(blobstore.NewMemoryStore())

	_, err := m.Save(context.Background(), testCheckpoint("", 1))
	assert.Error(t, err)
	_, err = m.Save(context.Background(), testCheckpoint("a/b", 1))
	assert.Error(t, err)
}

func TestManager_SecondWriterConflicts(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	m1 := NewManager(bs)
	m2 := NewManager(bs)

	_, err := m1.Save(ctx, testCheckpoint("run", 1))
	require.NoError(t, err)
	_, err = m2.Save(ctx, testCheckpoint("run", 2))
	require.NoError(t, err)

	_, err = m1.Save(ctx, testCheckpoint("run", 3))
	assert.ErrorIs(t, err, blobstore.ErrConflict)

	got, err := m2.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Iteration)
}

func TestManager_Prune(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blobstore.NewMemoryStore())

	for i := 1; i <= 5; i++ {
		_, err := m.Save(ctx, testCheckpoint("run", i))
		require.NoError(t, err)
	}

	deleted, err := m.Prune(ctx, "run", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	names, err := m.List(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, names, 2)

	got, err := m.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Iteration)
}

func TestManager_RateLimited(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	m := NewManager(blobstore.NewMemoryStore(), func(o *Options) { o.Resources = rc })

	_, err := m.Save(ctx, testCheckpoint("run", 1))
	require.NoError(t, err)

	got, err := m.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, "run", got.RunID)
}

func TestManager_LocalStore(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blobstore.NewLocalStore(t.TempDir()))

	_, err := m.Save(ctx, testCheckpoint("run", 7))
	require.NoError(t, err)

	got, err := m.Load(ctx, "run")
	require.NoError(t, err)
	assertSameCheckpoint(t, testCheckpoint("run", 7), got)
}
