package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/cluster"
	"github.com/hupe1980/cash/internal/delta"
	"github.com/hupe1980/cash/internal/region"
	"github.com/hupe1980/cash/resource"
	"github.com/hupe1980/cash/model"
)

var (
	// ErrNoDeltas is returned when extraction runs before deltas were inserted.
	ErrNoDeltas = errors.New("engine: no deltas inserted for this alpha")

	// ErrNoCandidates is returned when filtering runs before extraction.
	ErrNoCandidates = errors.New("engine: clusters not extracted")
)

// Options configures an Engine.
type Options struct {
	// Workers is the degree of parallelism of the delta and region stages.
	// <= 0 means runtime.NumCPU().
	Workers int

	// Resources is shared with other stages to bound concurrency. May be nil.
	Resources *resource.Controller

	// NextClusterID is the first id handed out. Values < 1 mean 1.
	NextClusterID model.ClusterID
}

// Engine computes deltas, candidate regions and accepted clusters for one
// alpha at a time. It is not safe for concurrent use.
type Engine struct {
	opts Options

	table      *delta.Table
	extracted  bool
	candidates []region.Candidate
	pending    []model.Cluster
	minSize    int

	materializer *cluster.Materializer
}

// New creates an Engine.
func New(opts Options) *Engine {
	return &Engine{
		opts:         opts,
		table:        delta.NewTable(),
		minSize:      1,
		materializer: cluster.NewMaterializer(cluster.NewSequence(opts.NextClusterID)),
	}
}

// NextClusterID returns the id the next accepted cluster will receive.
func (e *Engine) NextClusterID() model.ClusterID {
	return e.materializer.Sequence().Peek()
}

// SetMinSize sets the smallest neighbourhood the extractor keeps looking for.
// Regions smaller than minPts can never survive filtering, so callers pass
// minPts here before ExtractClusters.
func (e *Engine) SetMinSize(n int) {
	e.minSize = max(n, 1)
}

// Alpha returns the alpha of the current delta table, or nil.
func (e *Engine) Alpha() hough.Alpha { return e.table.Alpha() }

// InsertDeltas transforms points under alpha into the delta table.
func (e *Engine) InsertDeltas(ctx context.Context, points []model.Point, alpha hough.Alpha) (delta.Report, error) {
	return delta.Build(ctx, e.table, points, alpha, delta.Options{
		Workers:   e.opts.Workers,
		Resources: e.opts.Resources,
	})
}

// ExtractClusters finds the eps-dense regions of the delta table of alpha.
func (e *Engine) ExtractClusters(ctx context.Context, eps float64, alpha hough.Alpha) error {
	if e.table.Alpha() == nil {
		return ErrNoDeltas
	}
	if !e.table.Alpha().Equal(alpha) {
		return delta.ErrAlphaMismatch
	}

	candidates, err := region.Extract(ctx, e.table.Entries(), eps, region.Options{
		MinSize:   e.minSize,
		Workers:   e.opts.Workers,
		Resources: e.opts.Resources,
	})
	if err != nil {
		return err
	}
	e.candidates = candidates
	e.extracted = true
	return nil
}

// FilterClusters accepts the candidates with at least minPts unclaimed points
// and assigns them ids. clustered reports points that already belong to a
// cluster and may be nil.
func (e *Engine) FilterClusters(minPts int, clustered func(model.PointID) bool) error {
	if minPts < 1 {
		return fmt.Errorf("engine: minPts must be >= 1, got %d", minPts)
	}
	if !e.extracted {
		return ErrNoCandidates
	}
	accepted := e.materializer.FilterAndMaterialize(e.candidates, minPts, e.table.Alpha(), clustered)
	e.pending = append(e.pending, accepted...)
	e.candidates = nil
	e.extracted = false
	return nil
}

// Pending returns the accepted clusters with an id >= pointer, without
// removing them.
func (e *Engine) Pending(pointer model.ClusterID) []model.Cluster {
	var out []model.Cluster
	for _, c := range e.pending {
		if c.ID >= pointer {
			out = append(out, c)
		}
	}
	return out
}

// Commit drops the pending clusters with an id >= pointer and the deltas of
// their points. Stores call it once the clusters are durable.
func (e *Engine) Commit(pointer model.ClusterID) {
	var ids []model.PointID
	e.pending = slices.DeleteFunc(e.pending, func(c model.Cluster) bool {
		if c.ID < pointer {
			return false
		}
		ids = append(ids, c.Points...)
		return true
	})
	e.table.Delete(ids)
}

// Reset clears the delta table, the candidates and the pending clusters.
// Allocated cluster ids are not reused.
func (e *Engine) Reset() {
	e.table.Reset()
	e.candidates = nil
	e.pending = nil
	e.extracted = false
}

// Table returns the current delta table.
func (e *Engine) Table() *delta.Table { return e.table }
