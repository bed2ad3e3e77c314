package permutation

import (
	"math"
	"testing"

	"github.com/hupe1980/cash/hough"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	t.Run("OdometerOrder", func(t *testing.T) {
		g, err := NewGrid(GridConfig{Dimension: 3, Splits: 2, Low: 0, High: 2})
		require.NoError(t, err)
		assert.Equal(t, 9, g.Len())
		assert.Equal(t, []float64{0, 1, 2}, g.Values())

		var got []hough.Alpha
		for g.HasNext() {
			a, err := g.Next()
			require.NoError(t, err)
			got = append(got, a)
		}
		want := []hough.Alpha{
			{0, 0}, {0, 1}, {0, 2},
			{1, 0}, {1, 1}, {1, 2},
			{2, 0}, {2, 1}, {2, 2},
		}
		assert.Equal(t, want, got)
		assert.Equal(t, 9, g.Position())
	})

	t.Run("ExhaustedStaysExhausted", func(t *testing.T) {
		g, err := NewGrid(GridConfig{Dimension: 2, Splits: 1, Low: 0, High: math.Pi})
		require.NoError(t, err)
		_, _ = g.Next()
		_, _ = g.Next()
		assert.False(t, g.HasNext())

		_, err = g.Next()
		assert.ErrorIs(t, err, ErrExhausted)
		g.Advance()
		assert.False(t, g.HasNext())
		assert.Equal(t, 2, g.Position())

		g.Reset()
		assert.True(t, g.HasNext())
		a, err := g.Peek()
		require.NoError(t, err)
		assert.Equal(t, hough.Alpha{0}, a)
	})

	t.Run("DefaultConfig", func(t *testing.T) {
		g, err := NewGrid(DefaultGridConfig(2))
		require.NoError(t, err)
		assert.Equal(t, 5, g.Len())
		vals := g.Values()
		assert.Equal(t, 0.0, vals[0])
		assert.Equal(t, math.Pi, vals[4])
	})

	t.Run("EndsSelectSameHyperplanes", func(t *testing.T) {
		g, err := NewGrid(DefaultGridConfig(3))
		require.NoError(t, err)
		vals := g.Values()
		first, last := vals[0], vals[len(vals)-1]

		p := []float64{1.5, -2, 3}
		for _, inner := range vals {
			d0, err := hough.Transform(p, hough.Alpha{first, inner})
			require.NoError(t, err)
			d1, err := hough.Transform(p, hough.Alpha{last, inner})
			require.NoError(t, err)
			assert.InDelta(t, 1.5, d0, 1e-12)
			assert.InDelta(t, -d0, d1, 1e-12)
		}
	})

	t.Run("PeekDoesNotConsume", func(t *testing.T) {
		g, err := NewGrid(GridConfig{Dimension: 2, Splits: 3, Low: 0, High: 3})
		require.NoError(t, err)
		a1, err := g.Peek()
		require.NoError(t, err)
		a2, err := g.Peek()
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, 0, g.Position())
	})

	t.Run("StateRoundTrip", func(t *testing.T) {
		g, err := NewGrid(GridConfig{Dimension: 4, Splits: 3, Low: 0, High: math.Pi})
		require.NoError(t, err)
		for range 23 {
			g.Advance()
		}
		s := g.State()
		want, err := g.Peek()
		require.NoError(t, err)

		other, err := NewGrid(GridConfig{Dimension: 4, Splits: 3, Low: 0, High: math.Pi})
		require.NoError(t, err)
		require.NoError(t, other.Restore(s))
		got, err := other.Peek()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, 23, other.Position())

		assert.ErrorIs(t, other.Restore(State{Position: 1, Digits: []int{0, 0, 2}}), ErrInvalidState)
		assert.ErrorIs(t, other.Restore(State{Position: 1}), ErrInvalidState)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		for _, cfg := range []GridConfig{
			{Dimension: 1, Splits: 4, High: 1},
			{Dimension: 2, Splits: 0, High: 1},
			{Dimension: 2, Splits: 2, Low: 1, High: 1},
			{Dimension: 2, Splits: 2, Low: 0, High: math.Inf(1)},
		} {
			_, err := NewGrid(cfg)
			assert.Error(t, err)
		}
	})
}

func TestList(t *testing.T) {
	l, err := NewList(hough.Alpha{0.1}, hough.Alpha{0.2})
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())

	a, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, hough.Alpha{0.1}, a)

	// Mutating a returned alpha does not affect the enumerator.
	a[0] = 9
	l.Reset()
	a, err = l.Peek()
	require.NoError(t, err)
	assert.Equal(t, hough.Alpha{0.1}, a)

	l.Advance()
	l.Advance()
	assert.False(t, l.HasNext())
	_, err = l.Peek()
	assert.ErrorIs(t, err, ErrExhausted)

	require.NoError(t, l.Restore(State{Position: 1}))
	a, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, hough.Alpha{0.2}, a)
	assert.ErrorIs(t, l.Restore(State{Position: 3}), ErrInvalidState)

	_, err = NewList()
	assert.Error(t, err)
	_, err = NewList(hough.Alpha{0.1}, hough.Alpha{0.1, 0.2})
	assert.Error(t, err)
	_, err = NewList(hough.Alpha{math.NaN()})
	assert.Error(t, err)
}

func TestEnumeratorInterface(t *testing.T) {
	var _ Enumerator = (*Grid)(nil)
	var _ Enumerator = (*List)(nil)
}
