package bitmap

import (
	"slices"
	"testing"

	"github.com/hupe1980/cash/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveSet(t *testing.T) {
	s := NewActiveSet(5, 1, 3, 9)
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contains(3))
	assert.Equal(t, []model.PointID{1, 3, 5, 9}, s.IDs())

	assert.True(t, s.Remove(3))
	assert.False(t, s.Remove(3))
	assert.False(t, s.Contains(3))

	assert.Equal(t, 2, s.RemoveAll([]model.PointID{1, 2, 9}))
	assert.Equal(t, []model.PointID{5}, s.IDs())

	s.Add(7)
	assert.Equal(t, []model.PointID{5, 7}, slices.Collect(s.All()))

	s.RemoveAll(s.IDs())
	assert.True(t, s.IsEmpty())
}

func TestActiveSetClone(t *testing.T) {
	s := NewActiveSet(1, 2, 3)
	c := s.Clone()
	c.Remove(2)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestActiveSetBinary(t *testing.T) {
	s := NewActiveSet(0, 17, 1<<20, 42)
	data, err := s.MarshalBinary()
	require.NoError(t, err)

	var decoded ActiveSet
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, s.IDs(), decoded.IDs())

	assert.Error(t, decoded.UnmarshalBinary([]byte{1, 2, 3}))
}

func TestActiveSetEarlyStop(t *testing.T) {
	s := NewActiveSet(1, 2, 3, 4)
	var seen []model.PointID
	for id := range s.All() {
		seen = append(seen, id)
		if id == 2 {
			break
		}
	}
	assert.Equal(t, []model.PointID{1, 2}, seen)
}
