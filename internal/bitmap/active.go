package bitmap

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/cash/model"
)

// ActiveSet is the set of points not yet claimed by any cluster.
// It is not safe for concurrent mutation.
type ActiveSet struct {
	rb *roaring.Bitmap
}

// NewActiveSet creates an active set holding ids.
func NewActiveSet(ids ...model.PointID) *ActiveSet {
	s := &ActiveSet{rb: roaring.New()}
	for _, id := range ids {
		s.rb.Add(uint32(id))
	}
	return s
}

// Add adds id to the set.
func (s *ActiveSet) Add(id model.PointID) {
	s.rb.Add(uint32(id))
}

// Remove removes id from the set and reports whether it was present.
func (s *ActiveSet) Remove(id model.PointID) bool {
	return s.rb.CheckedRemove(uint32(id))
}

// RemoveAll removes every id in ids and returns how many were present.
func (s *ActiveSet) RemoveAll(ids []model.PointID) int {
	n := 0
	for _, id := range ids {
		if s.rb.CheckedRemove(uint32(id)) {
			n++
		}
	}
	return n
}

// Contains reports whether id is active.
func (s *ActiveSet) Contains(id model.PointID) bool {
	return s.rb.Contains(uint32(id))
}

// Len returns the number of active points.
func (s *ActiveSet) Len() int {
	return int(s.rb.GetCardinality())
}

// IsEmpty returns true if no point is active.
func (s *ActiveSet) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// IDs returns the active ids in ascending order.
func (s *ActiveSet) IDs() []model.PointID {
	raw := s.rb.ToArray()
	out := make([]model.PointID, len(raw))
	for i, v := range raw {
		out[i] = model.PointID(v)
	}
	return out
}

// All returns an iterator over the active ids in ascending order.
func (s *ActiveSet) All() iter.Seq[model.PointID] {
	return func(yield func(model.PointID) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(model.PointID(it.Next())) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the set.
func (s *ActiveSet) Clone() *ActiveSet {
	return &ActiveSet{rb: s.rb.Clone()}
}

// MarshalBinary encodes the set in the portable Roaring format.
func (s *ActiveSet) MarshalBinary() ([]byte, error) {
	return s.rb.ToBytes()
}

// UnmarshalBinary replaces the set with the decoded Roaring data.
func (s *ActiveSet) UnmarshalBinary(data []byte) error {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return err
	}
	s.rb = rb
	return nil
}
