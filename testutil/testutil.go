package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"
	"testing"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Alpha returns a random alpha vector for points of dimension dim,
// every angle uniform in [0, π).
func (r *RNG) Alpha(dim int) hough.Alpha {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := make(hough.Alpha, dim-1)
	for i := range a {
		a[i] = r.rand.Float64() * math.Pi
	}
	return a
}

// PlanePoints generates n points on the hyperplane {x : <hough.Normal(alpha), x> = offset}.
// Coordinates start uniform in [-span, span) and are projected onto the plane;
// noise is the standard deviation of a Gaussian displacement along the normal.
// Ids are assigned consecutively from firstID.
func (r *RNG) PlanePoints(n int, alpha hough.Alpha, offset, noise, span float64, firstID model.PointID) []model.Point {
	normal := hough.Normal(alpha)

	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]model.Point, n)
	for i := range points {
		x := make([]float64, len(normal))
		var dot float64
		for j := range x {
			x[j] = (r.rand.Float64()*2 - 1) * span
			dot += x[j] * normal[j]
		}
		shift := offset - dot + r.rand.NormFloat64()*noise
		for j := range x {
			x[j] += shift * normal[j]
		}
		points[i] = model.Point{ID: firstID + model.PointID(i), Coords: x}
	}
	return points
}

// NoisePoints generates n points uniform in [-span, span)^dim with ids from firstID.
func (r *RNG) NoisePoints(n, dim int, span float64, firstID model.PointID) []model.Point {
	r.mu.Lock()
	defer r.mu.Unlock()

	points := make([]model.Point, n)
	for i := range points {
		x := make([]float64, dim)
		for j := range x {
			x[j] = (r.rand.Float64()*2 - 1) * span
		}
		points[i] = model.Point{ID: firstID + model.PointID(i), Coords: x}
	}
	return points
}

// Shuffle permutes points in place.
func (r *RNG) Shuffle(points []model.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(points), func(i, j int) { points[i], points[j] = points[j], points[i] })
}

// AssertClusters checks the invariants of a clustering result: every cluster
// has at least minPts members in ascending order, ids strictly increase, and
// no point belongs to two clusters.
func AssertClusters(t testing.TB, clusters []model.Cluster, minPts int) {
	t.Helper()

	seen := make(map[model.PointID]model.ClusterID)
	var last model.ClusterID
	for _, c := range clusters {
		if c.ID <= last {
			t.Errorf("cluster id %d does not increase after %d", c.ID, last)
		}
		last = c.ID

		if c.Size() < minPts {
			t.Errorf("cluster %d has %d points, want >= %d", c.ID, c.Size(), minPts)
		}
		if !slices.IsSorted(c.Points) {
			t.Errorf("cluster %d members are not sorted", c.ID)
		}
		for _, p := range c.Points {
			if other, ok := seen[p]; ok {
				t.Errorf("point %d is in clusters %d and %d", p, other, c.ID)
			}
			seen[p] = c.ID
		}
	}
}

// Residual returns the largest distance of the members of c from the
// cluster hyperplane.
func Residual(c model.Cluster, points []model.Point) float64 {
	byID := make(map[model.PointID][]float64, len(points))
	for _, p := range points {
		byID[p.ID] = p.Coords
	}

	normal := c.Normal()
	var worst float64
	for _, id := range c.Points {
		var dot float64
		for j, v := range byID[id] {
			dot += v * normal[j]
		}
		worst = max(worst, math.Abs(dot-c.Offset))
	}
	return worst
}
