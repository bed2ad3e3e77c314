package region

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/hupe1980/cash/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deltas(values ...float64) []model.Delta {
	out := make([]model.Delta, len(values))
	for i, v := range values {
		out[i] = model.Delta{Point: model.PointID(i + 1), Value: v}
	}
	return out
}

func TestExtract(t *testing.T) {
	t.Run("TwoRegionsAndNoise", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(5.01, 0, 10, 0.02, 5, 0.01), 0.05, Options{MinSize: 2, Workers: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, []model.PointID{2, 6, 4}, got[0].Points)
		assert.Equal(t, 0.0, got[0].Center)
		assert.Equal(t, 0.0, got[0].Low)
		assert.Equal(t, 0.02, got[0].High)

		assert.Equal(t, []model.PointID{5, 1}, got[1].Points)
		assert.Equal(t, []float64{5, 5.01}, got[1].Values)
	})

	t.Run("DensestNeighbourhoodWins", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(0, 0.04, 0.08), 0.05, Options{MinSize: 2, Workers: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 0.04, got[0].Center)
		assert.Equal(t, 3, got[0].Size())
	})

	t.Run("TiesGoToLowerValue", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(1.01, 1, 0.01, 0), 0.05, Options{MinSize: 2, Workers: 3})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0.0, got[0].Center)
		assert.Equal(t, []model.PointID{4, 3}, got[0].Points)
		assert.Equal(t, 1.0, got[1].Center)
	})

	t.Run("SingletonsWithMinSizeOne", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(0, 10), 0.1, Options{MinSize: 1, Workers: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Size())
		assert.Equal(t, 1, got[1].Size())
	})

	t.Run("StopsBelowMinSize", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(0, 0.01, 0.02, 3, 3.01), 0.05, Options{MinSize: 3})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Size())
	})

	t.Run("IdenticalValues", func(t *testing.T) {
		got, err := Extract(context.Background(), deltas(2, 2, 2, 2, 2), 1e-9, Options{MinSize: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, []model.PointID{1, 2, 3, 4, 5}, got[0].Points)
	})

	t.Run("Empty", func(t *testing.T) {
		got, err := Extract(context.Background(), nil, 0.1, Options{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("InvalidEps", func(t *testing.T) {
		for _, eps := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			_, err := Extract(context.Background(), deltas(1, 2), eps, Options{})
			assert.ErrorIs(t, err, ErrInvalidEps)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Extract(ctx, deltas(1, 1, 1), 0.1, Options{Workers: 2})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 2000)
	for i := range values {
		// A few tight bands plus uniform noise.
		switch i % 4 {
		case 0:
			values[i] = 1 + rng.Float64()*0.01
		case 1:
			values[i] = -3 + rng.Float64()*0.01
		default:
			values[i] = rng.Float64()*100 - 50
		}
	}
	in := deltas(values...)
	const eps = 0.02

	serial, err := Extract(context.Background(), in, eps, Options{MinSize: 4, Workers: 1})
	require.NoError(t, err)
	par, err := Extract(context.Background(), in, eps, Options{MinSize: 4, Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, serial, par)

	seen := make(map[model.PointID]bool)
	prev := math.MaxInt
	for _, c := range par {
		assert.GreaterOrEqual(t, c.Size(), 4)
		assert.LessOrEqual(t, c.Size(), prev, "candidates are discovered densest first")
		prev = c.Size()
		for i, id := range c.Points {
			assert.False(t, seen[id], "point %d claimed twice", id)
			seen[id] = true
			assert.LessOrEqual(t, math.Abs(c.Values[i]-c.Center), eps+1e-12)
		}
	}
	// The two bands are recovered as the two densest regions.
	require.GreaterOrEqual(t, len(par), 2)
	assert.GreaterOrEqual(t, par[0].Size(), 500)
	assert.GreaterOrEqual(t, par[1].Size(), 500)
}

func TestFenwick(t *testing.T) {
	f := newFenwick(10)
	assert.Equal(t, 10, f.prefix(10))
	assert.Equal(t, 3, f.rangeSum(2, 5))
	f.add(3, -1)
	assert.Equal(t, 2, f.rangeSum(2, 5))
	assert.Equal(t, 9, f.rangeSum(0, 10))
	assert.Equal(t, 0, f.rangeSum(5, 5))
}
