package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/cash/store"
	"github.com/hupe1980/cash/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultyPassThrough(t *testing.T) {
	ctx := context.Background()
	f := store.NewFaulty(newMemory(t, storetest.LinePoints()))

	n, err := f.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 1, f.Calls(store.OpActiveCount))
	assert.Equal(t, 0, f.Failures(store.OpActiveCount))
}

func TestFaultyRules(t *testing.T) {
	ctx := context.Background()
	f := store.NewFaulty(newMemory(t, storetest.LinePoints()))
	alpha := storetest.LineAlpha()

	f.AddRule(store.OpInsertDeltas, store.Fault{Skip: 1, Times: 1})

	_, err := f.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	require.NoError(t, f.CleanDeltasTable(ctx))

	_, err = f.InsertDeltas(ctx, alpha)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = f.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Calls(store.OpInsertDeltas))
	assert.Equal(t, 1, f.Failures(store.OpInsertDeltas))

	custom := errors.New("boom")
	f.AddRule(store.OpClusters, store.Fault{Times: -1, Err: custom})
	for range 3 {
		_, err = f.Clusters(ctx)
		assert.ErrorIs(t, err, custom)
	}

	f.Clear()
	_, err = f.Clusters(ctx)
	assert.NoError(t, err)
}

func TestFaultyForwardsSnapshots(t *testing.T) {
	ctx := context.Background()
	f := store.NewFaulty(newMemory(t, storetest.LinePoints()))

	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Dimension)
	require.NoError(t, f.Restore(ctx, snap))
}
