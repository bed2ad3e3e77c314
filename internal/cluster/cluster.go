// Package cluster validates region candidates and turns them into clusters.
package cluster

import (
	"cmp"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/region"
	"github.com/hupe1980/cash/model"
)

// Sequence allocates cluster ids. The first id is 1; ids are never reused.
// Sequence is safe for concurrent use.
type Sequence struct {
	next atomic.Uint64
}

// NewSequence returns a sequence whose next id is start (at least 1).
func NewSequence(start model.ClusterID) *Sequence {
	s := &Sequence{}
	s.next.Store(uint64(max(start, 1)))
	return s
}

// Peek returns the id the next call to Next will return.
func (s *Sequence) Peek() model.ClusterID {
	return model.ClusterID(s.next.Load())
}

// Next allocates an id.
func (s *Sequence) Next() model.ClusterID {
	return model.ClusterID(s.next.Add(1) - 1)
}

// Filter resolves overlaps between candidates and drops the ones below minPts.
//
// Candidates are ranked by size, larger first, keeping discovery order among
// equal sizes. In rank order each candidate claims its points that no earlier
// candidate claimed and that claimed (if non-nil) does not report as already
// taken. A point listed twice in one candidate counts once. A candidate left
// with fewer than minPts points is noise. The survivors are returned in rank
// order with their points sorted ascending.
func Filter(candidates []region.Candidate, minPts int, claimed func(model.PointID) bool) []region.Candidate {
	minPts = max(minPts, 1)

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(candidates[b].Size(), candidates[a].Size())
	})

	taken := make(map[model.PointID]struct{})
	var out []region.Candidate
	for _, i := range order {
		c := candidates[i]
		if c.Size() < minPts {
			continue
		}

		kept := region.Candidate{
			Center: c.Center,
			Points: make([]model.PointID, 0, c.Size()),
			Values: make([]float64, 0, c.Size()),
		}
		own := make(map[model.PointID]struct{}, c.Size())
		for k, id := range c.Points {
			if _, ok := taken[id]; ok {
				continue
			}
			if _, ok := own[id]; ok {
				continue
			}
			if claimed != nil && claimed(id) {
				continue
			}
			own[id] = struct{}{}
			kept.Points = append(kept.Points, id)
			kept.Values = append(kept.Values, c.Values[k])
		}
		if kept.Size() < minPts {
			continue
		}
		for _, id := range kept.Points {
			taken[id] = struct{}{}
		}

		kept.Low = slices.Min(kept.Values)
		kept.High = slices.Max(kept.Values)
		sortByPoint(&kept)
		out = append(out, kept)
	}
	return out
}

func sortByPoint(c *region.Candidate) {
	idx := make([]int, len(c.Points))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return cmp.Compare(c.Points[a], c.Points[b]) })

	points := make([]model.PointID, len(idx))
	values := make([]float64, len(idx))
	for i, j := range idx {
		points[i] = c.Points[j]
		values[i] = c.Values[j]
	}
	c.Points, c.Values = points, values
}

// Materializer assigns identities to accepted candidates.
type Materializer struct {
	seq *Sequence
}

// NewMaterializer creates a Materializer drawing ids from seq.
// A nil seq starts a fresh sequence at 1.
func NewMaterializer(seq *Sequence) *Materializer {
	if seq == nil {
		seq = NewSequence(1)
	}
	return &Materializer{seq: seq}
}

// Sequence returns the id sequence.
func (m *Materializer) Sequence() *Sequence { return m.seq }

// Materialize turns filtered candidates into clusters of alpha, allocating one
// id per candidate in order.
func (m *Materializer) Materialize(candidates []region.Candidate, alpha hough.Alpha) []model.Cluster {
	out := make([]model.Cluster, 0, len(candidates))
	for _, c := range candidates {
		var sum float64
		for _, v := range c.Values {
			sum += v
		}
		out = append(out, model.Cluster{
			ID:     m.seq.Next(),
			Alpha:  alpha.Clone(),
			Offset: sum / float64(len(c.Values)),
			Points: slices.Clone(c.Points),
		})
	}
	return out
}

// FilterAndMaterialize runs Filter and Materialize in one step.
func (m *Materializer) FilterAndMaterialize(candidates []region.Candidate, minPts int, alpha hough.Alpha, claimed func(model.PointID) bool) []model.Cluster {
	return m.Materialize(Filter(candidates, minPts, claimed), alpha)
}
