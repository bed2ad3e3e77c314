// Package storetest provides a conformance suite for store.Store implementations.
package storetest

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory creates a store over points using opts.
type Factory func(t *testing.T, points []model.Point, opts ...store.Option) store.Store

// LinePoints returns four points on y = 2x (ids 1..4) and two outliers (5, 6).
func LinePoints() []model.Point {
	return []model.Point{
		{ID: 1, Coords: []float64{1, 2}},
		{ID: 2, Coords: []float64{2, 4}},
		{ID: 3, Coords: []float64{3, 6}},
		{ID: 4, Coords: []float64{4, 8}},
		{ID: 5, Coords: []float64{1, 5}},
		{ID: 6, Coords: []float64{3, -1}},
	}
}

// LineAlpha is the alpha that maps every point of y = 2x to delta 0.
func LineAlpha() hough.Alpha {
	return hough.Alpha{math.Pi - math.Atan(0.5)}
}

// Run runs the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("Iteration", func(t *testing.T) { testIteration(t, newStore) })
	t.Run("Enumerator", func(t *testing.T) { testEnumerator(t, newStore) })
	t.Run("CleanDropsUncommitted", func(t *testing.T) { testClean(t, newStore) })
	t.Run("PointerFiltersCommit", func(t *testing.T) { testPointer(t, newStore) })
	t.Run("AlphaMismatch", func(t *testing.T) { testAlphaMismatch(t, newStore) })
	t.Run("DoubleInsert", func(t *testing.T) { testDoubleInsert(t, newStore) })
	t.Run("Snapshot", func(t *testing.T) { testSnapshot(t, newStore) })
}

func listEnumerator(t *testing.T, alphas ...hough.Alpha) permutation.Enumerator {
	t.Helper()
	l, err := permutation.NewList(alphas...)
	require.NoError(t, err)
	return l
}

func testIteration(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints(), store.WithEnumerator(listEnumerator(t, LineAlpha())), store.WithWorkers(2))

	assert.Equal(t, 2, s.Dimension())
	n, err := s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	pointer, err := s.NextClusterID(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ClusterID(1), pointer)

	left, err := s.PermutationLeft(ctx)
	require.NoError(t, err)
	require.True(t, left)

	alpha, err := s.NextPermutation(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AdvancePermutation(ctx))

	rep, err := s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Inserted)
	assert.Empty(t, rep.Skipped)

	require.NoError(t, s.ExtractClusters(ctx, 0.05, alpha))
	require.NoError(t, s.FilterClusters(ctx, 4))

	got, err := s.DeleteClusteredObjects(ctx, pointer)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ClusterID(1), got[0].ID)
	assert.Equal(t, []model.PointID{1, 2, 3, 4}, got[0].Points)
	assert.True(t, got[0].Alpha.Equal(alpha))

	require.NoError(t, s.CleanDeltasTable(ctx))

	// Deletions are visible to the next read.
	active, err := s.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{5, 6}, active)
	n, err = s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clusters, err := s.Clusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, clusters)

	next, err := s.NextClusterID(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ClusterID(2), next)

	left, err = s.PermutationLeft(ctx)
	require.NoError(t, err)
	assert.False(t, left)
	assert.ErrorIs(t, s.AdvancePermutation(ctx), permutation.ErrExhausted)
}

func testEnumerator(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints())

	// Default grid: 4 splits over [0, pi] for one angle.
	var seen []hough.Alpha
	for {
		left, err := s.PermutationLeft(ctx)
		require.NoError(t, err)
		if !left {
			break
		}
		a, err := s.NextPermutation(ctx)
		require.NoError(t, err)
		seen = append(seen, a)
		require.NoError(t, s.AdvancePermutation(ctx))
	}
	require.Len(t, seen, 5)
	assert.InDelta(t, 0, seen[0][0], 1e-12)
	assert.InDelta(t, math.Pi, seen[4][0], 1e-12)
}

func testClean(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints(), store.WithEnumerator(listEnumerator(t, LineAlpha())))
	alpha := LineAlpha()

	_, err := s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	require.NoError(t, s.ExtractClusters(ctx, 0.05, alpha))
	require.NoError(t, s.FilterClusters(ctx, 4))
	require.NoError(t, s.CleanDeltasTable(ctx))

	got, err := s.DeleteClusteredObjects(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
	n, err := s.ActiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	// Ids handed out before the clean are not reused.
	next, err := s.NextClusterID(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ClusterID(2), next)
}

func testPointer(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints())
	alpha := LineAlpha()

	_, err := s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	require.NoError(t, s.ExtractClusters(ctx, 0.05, alpha))
	require.NoError(t, s.FilterClusters(ctx, 4))

	got, err := s.DeleteClusteredObjects(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.DeleteClusteredObjects(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func testAlphaMismatch(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints())

	_, err := s.InsertDeltas(ctx, hough.Alpha{0, 1})
	assert.ErrorIs(t, err, hough.ErrDimensionMismatch)

	_, err = s.InsertDeltas(ctx, hough.Alpha{0})
	require.NoError(t, err)
	assert.Error(t, s.ExtractClusters(ctx, 0.05, hough.Alpha{1}))
	assert.Error(t, s.ExtractClusters(ctx, 0, hough.Alpha{0}))
}

func testDoubleInsert(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints())
	alpha := LineAlpha()

	rep, err := s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Inserted)

	_, err = s.InsertDeltas(ctx, alpha)
	assert.ErrorIs(t, err, store.ErrDeltasPending)

	require.NoError(t, s.ExtractClusters(ctx, 0.05, alpha))
	require.NoError(t, s.FilterClusters(ctx, 2))

	got, err := s.DeleteClusteredObjects(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []model.PointID{1, 2, 3, 4}, got[0].Points)

	active, err := s.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{5, 6}, active)

	// A cleaned table accepts the next insert.
	require.NoError(t, s.CleanDeltasTable(ctx))
	rep, err = s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Inserted)
}

func testSnapshot(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, LinePoints(), store.WithEnumerator(listEnumerator(t, LineAlpha(), hough.Alpha{0})))
	snapper, ok := s.(store.Snapshotter)
	if !ok {
		t.Skip("store does not support snapshots")
	}

	alpha, err := s.NextPermutation(ctx)
	require.NoError(t, err)
	require.NoError(t, s.AdvancePermutation(ctx))
	_, err = s.InsertDeltas(ctx, alpha)
	require.NoError(t, err)
	require.NoError(t, s.ExtractClusters(ctx, 0.05, alpha))
	require.NoError(t, s.FilterClusters(ctx, 4))
	_, err = s.DeleteClusteredObjects(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.CleanDeltasTable(ctx))

	snap, err := snapper.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Dimension)
	assert.Equal(t, model.ClusterID(2), snap.NextClusterID)
	assert.Equal(t, 1, snap.Enumerator.Position)
	require.Len(t, snap.Clusters, 1)

	fresh := newStore(t, LinePoints(), store.WithEnumerator(listEnumerator(t, LineAlpha(), hough.Alpha{0})))
	require.NoError(t, fresh.(store.Snapshotter).Restore(ctx, snap))

	active, err := fresh.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{5, 6}, active)
	next, err := fresh.NextClusterID(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ClusterID(2), next)
	a, err := fresh.NextPermutation(ctx)
	require.NoError(t, err)
	assert.True(t, a.Equal(hough.Alpha{0}))
	clusters, err := fresh.Clusters(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Clusters, clusters)
}
