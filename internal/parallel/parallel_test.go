package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/cash/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	assert.Nil(t, Split(0, 4))
	assert.Equal(t, []Range{{0, 3}}, Split(3, 1))
	assert.Equal(t, []Range{{0, 1}, {1, 2}}, Split(2, 8))
	assert.Equal(t, []Range{{0, 4}, {4, 8}, {8, 10}}, Split(10, 3))

	total := 0
	for _, r := range Split(1001, 7) {
		assert.Positive(t, r.Len())
		total += r.Len()
	}
	assert.Equal(t, 1001, total)
}

func TestForEach(t *testing.T) {
	ranges := Split(100, 4)
	sums := make([]int, len(ranges))

	err := ForEach(context.Background(), ranges, resource.NewController(resource.Config{MaxWorkers: 2}),
		func(_ context.Context, i int, r Range) error {
			for k := r.Lo; k < r.Hi; k++ {
				sums[i] += k
			}
			return nil
		})
	require.NoError(t, err)

	total := 0
	for _, s := range sums {
		total += s
	}
	assert.Equal(t, 4950, total)
}

func TestForEachError(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	err := ForEach(context.Background(), Split(10, 5), nil, func(_ context.Context, i int, _ Range) error {
		calls.Add(1)
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Positive(t, calls.Load())
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ForEach(ctx, Split(10, 2), nil, func(context.Context, int, Range) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
