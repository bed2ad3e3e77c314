package region

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/cash/internal/parallel"
	"github.com/hupe1980/cash/resource"
	"github.com/hupe1980/cash/model"
)

// ErrInvalidEps is returned for a non-positive or non-finite tolerance.
var ErrInvalidEps = errors.New("region: eps must be a positive finite number")

// Candidate is one dense region of the parameter space.
type Candidate struct {
	// Center is the value of the delta whose neighbourhood formed the region.
	Center float64
	// Low and High are the smallest and largest member values.
	Low, High float64
	// Points lists the members in ascending value order.
	Points []model.PointID
	// Values holds the member values, parallel to Points.
	Values []float64
}

// Size returns the number of members.
func (c Candidate) Size() int { return len(c.Points) }

// Options controls Extract.
type Options struct {
	// MinSize stops extraction once the densest remaining neighbourhood has fewer
	// members. Values < 1 are treated as 1.
	MinSize int

	// Workers is the number of partitions for the density search. <= 0 means runtime.NumCPU().
	Workers int

	// Resources bounds the goroutines running at the same time. May be nil.
	Resources *resource.Controller
}

type best struct {
	count int
	idx   int
}

func (b best) better(o best) bool {
	if b.count != o.count {
		return b.count > o.count
	}
	return b.idx < o.idx
}

// Extract returns the dense regions of deltas in discovery order.
// Candidates are disjoint; deltas not covered by any candidate are noise.
func Extract(ctx context.Context, deltas []model.Delta, eps float64, opts Options) ([]Candidate, error) {
	if !(eps > 0) || math.IsInf(eps, 0) {
		return nil, ErrInvalidEps
	}
	n := len(deltas)
	if n == 0 {
		return nil, nil
	}
	minSize := max(opts.MinSize, 1)

	sorted := slices.Clone(deltas)
	slices.SortFunc(sorted, func(a, b model.Delta) int {
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Point, b.Point)
	})

	ranges := parallel.Split(n, opts.Workers)

	// Window [lo[i], hi[i]) holds every delta within eps of delta i.
	lo := make([]int, n)
	hi := make([]int, n)
	err := parallel.ForEach(ctx, ranges, opts.Resources, func(_ context.Context, _ int, r parallel.Range) error {
		for i := r.Lo; i < r.Hi; i++ {
			v := sorted[i].Value
			lo[i] = sort.Search(n, func(j int) bool { return sorted[j].Value >= v-eps })
			hi[i] = sort.Search(n, func(j int) bool { return sorted[j].Value > v+eps })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	alive := newFenwick(n)
	removed := bitset.New(uint(n))
	remaining := n
	partial := make([]best, len(ranges))

	var out []Candidate
	for remaining >= minSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := parallel.ForEach(ctx, ranges, opts.Resources, func(_ context.Context, k int, r parallel.Range) error {
			b := best{idx: -1}
			for i := r.Lo; i < r.Hi; i++ {
				if removed.Test(uint(i)) {
					continue
				}
				c := best{count: alive.rangeSum(lo[i], hi[i]), idx: i}
				if b.idx < 0 || c.better(b) {
					b = c
				}
			}
			partial[k] = b
			return nil
		})
		if err != nil {
			return nil, err
		}

		top := best{idx: -1}
		for _, b := range partial {
			if b.idx >= 0 && (top.idx < 0 || b.better(top)) {
				top = b
			}
		}
		if top.idx < 0 || top.count < minSize {
			break
		}

		c := Candidate{
			Center: sorted[top.idx].Value,
			Points: make([]model.PointID, 0, top.count),
			Values: make([]float64, 0, top.count),
		}
		for j := lo[top.idx]; j < hi[top.idx]; j++ {
			if removed.Test(uint(j)) {
				continue
			}
			removed.Set(uint(j))
			alive.add(j, -1)
			c.Points = append(c.Points, sorted[j].Point)
			c.Values = append(c.Values, sorted[j].Value)
		}
		c.Low = c.Values[0]
		c.High = c.Values[len(c.Values)-1]
		remaining -= len(c.Points)

		out = append(out, c)
	}

	return out, nil
}
