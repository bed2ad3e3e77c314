package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/bitmap"
	"github.com/hupe1980/cash/internal/delta"
	"github.com/hupe1980/cash/internal/engine"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
)

var (
	_ Store       = (*Memory)(nil)
	_ SizeHinter  = (*Memory)(nil)
	_ Snapshotter = (*Memory)(nil)
)

// Memory is an in-process Store.
type Memory struct {
	mu sync.Mutex

	dim    int
	points []model.Point
	index  map[model.PointID]int

	active   *bitmap.ActiveSet
	clusters []model.Cluster
	enum     permutation.Enumerator
	engine   *engine.Engine
	opts     Options
	minSize  int
}

// NewMemory creates a Memory store over points. The points are copied.
func NewMemory(points []model.Point, opts ...Option) (*Memory, error) {
	dim, err := ValidatePoints(points)
	if err != nil {
		return nil, err
	}
	o, err := ApplyOptions(dim, opts...)
	if err != nil {
		return nil, err
	}

	m := &Memory{
		dim:    dim,
		points: make([]model.Point, len(points)),
		index:  make(map[model.PointID]int, len(points)),
		active: bitmap.NewActiveSet(),
		enum:   o.Enumerator,
		opts:   o,
		engine: engine.New(engine.Options{Workers: o.Workers, Resources: o.Resources}),
	}
	for i, p := range points {
		m.points[i] = model.Point{ID: p.ID, Coords: slices.Clone(p.Coords)}
		m.index[p.ID] = i
		m.active.Add(p.ID)
	}
	return m, nil
}

// Dimension implements Store.
func (m *Memory) Dimension() int { return m.dim }

// HintMinSize implements SizeHinter.
func (m *Memory) HintMinSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minSize = n
	m.engine.SetMinSize(n)
}

// ActiveCount implements Store.
func (m *Memory) ActiveCount(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Len(), nil
}

// NextClusterID implements Store.
func (m *Memory) NextClusterID(context.Context) (model.ClusterID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.NextClusterID(), nil
}

// PermutationLeft implements Store.
func (m *Memory) PermutationLeft(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enum.HasNext(), nil
}

// NextPermutation implements Store.
func (m *Memory) NextPermutation(context.Context) (hough.Alpha, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enum.Peek()
}

// AdvancePermutation implements Store.
func (m *Memory) AdvancePermutation(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enum.HasNext() {
		return permutation.ErrExhausted
	}
	m.enum.Advance()
	return nil
}

// InsertDeltas implements Store.
func (m *Memory) InsertDeltas(ctx context.Context, alpha hough.Alpha) (Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(alpha) != m.dim-1 {
		return Report{}, fmt.Errorf("%w: alpha has %d angles, want %d", hough.ErrDimensionMismatch, len(alpha), m.dim-1)
	}

	active := make([]model.Point, 0, m.active.Len())
	for id := range m.active.All() {
		active = append(active, m.points[m.index[id]])
	}

	rep, err := m.engine.InsertDeltas(ctx, active, alpha)
	if errors.Is(err, delta.ErrNotEmpty) {
		return Report{}, fmt.Errorf("%w: %w", ErrDeltasPending, err)
	}
	if err != nil {
		return Report{}, err
	}
	return toReport(rep), nil
}

// ExtractClusters implements Store.
func (m *Memory) ExtractClusters(ctx context.Context, eps float64, alpha hough.Alpha) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.ExtractClusters(ctx, eps, alpha)
}

// FilterClusters implements Store.
func (m *Memory) FilterClusters(_ context.Context, minPts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.FilterClusters(minPts, m.clustered)
}

func (m *Memory) clustered(id model.PointID) bool {
	return !m.active.Contains(id)
}

// DeleteClusteredObjects implements Store.
func (m *Memory) DeleteClusteredObjects(_ context.Context, pointer model.ClusterID) ([]model.Cluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted := m.engine.Pending(pointer)
	for _, c := range accepted {
		m.active.RemoveAll(c.Points)
	}
	m.clusters = append(m.clusters, accepted...)
	m.engine.Commit(pointer)
	return accepted, nil
}

// CleanDeltasTable implements Store.
func (m *Memory) CleanDeltasTable(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.Reset()
	return nil
}

// Clusters implements Store.
func (m *Memory) Clusters(context.Context) ([]model.Cluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.clusters), nil
}

// Active implements Store.
func (m *Memory) Active(context.Context) ([]model.PointID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.IDs(), nil
}

// Points returns a copy of the stored points in insertion order.
func (m *Memory) Points() []model.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.points)
}

// Snapshot implements Snapshotter.
func (m *Memory) Snapshot(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.active.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Dimension:     m.dim,
		Clusters:      slices.Clone(m.clusters),
		Active:        active,
		Enumerator:    m.enum.State(),
		NextClusterID: m.engine.NextClusterID(),
	}, nil
}

// Restore implements Snapshotter. The snapshot must come from a store over the
// same points and enumerator.
func (m *Memory) Restore(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Dimension != m.dim {
		return fmt.Errorf("%w: snapshot dimension %d, store dimension %d", ErrDimension, snap.Dimension, m.dim)
	}
	active := bitmap.NewActiveSet()
	if err := active.UnmarshalBinary(snap.Active); err != nil {
		return err
	}
	for id := range active.All() {
		if _, ok := m.index[id]; !ok {
			return fmt.Errorf("store: snapshot references unknown point %d", id)
		}
	}
	if err := m.enum.Restore(snap.Enumerator); err != nil {
		return err
	}

	m.active = active
	m.clusters = slices.Clone(snap.Clusters)
	m.engine = engine.New(engine.Options{
		Workers:       m.opts.Workers,
		Resources:     m.opts.Resources,
		NextClusterID: snap.NextClusterID,
	})
	m.engine.SetMinSize(m.minSize)
	return nil
}

func toReport(rep delta.Report) Report {
	out := Report{Inserted: rep.Inserted}
	for _, s := range rep.Skipped {
		out.Skipped = append(out.Skipped, model.Delta{Point: s.Point, Value: s.Value})
	}
	return out
}
