package cash

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/cash/checkpoint"
	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/store"
)

// StopReason tells why a run stopped.
type StopReason int

const (
	// StopExhausted means every alpha of the enumeration was tried.
	StopExhausted StopReason = iota + 1
	// StopBelowMinPts means fewer than minPts points were left unclustered.
	StopBelowMinPts
	// StopHalted means the run was halted or its context was cancelled.
	StopHalted
	// StopFailed means a store operation kept failing.
	StopFailed
)

// String returns the name of the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopExhausted:
		return "exhausted"
	case StopBelowMinPts:
		return "below_min_pts"
	case StopHalted:
		return "halted"
	case StopFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *StopReason) UnmarshalText(text []byte) error {
	for _, v := range []StopReason{StopExhausted, StopBelowMinPts, StopHalted, StopFailed} {
		if v.String() == string(text) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("cash: unknown stop reason %q", text)
}

// Result is the outcome of a run.
type Result struct {
	RunID string `json:"run_id"`

	// Clusters holds every cluster of the run in id order, including those
	// restored from a checkpoint.
	Clusters []model.Cluster `json:"clusters"`

	// Iterations is the number of alphas tried so far.
	Iterations int `json:"iterations"`

	// Remaining is the number of points left unclustered.
	Remaining int `json:"remaining"`

	// Skipped counts the deltas dropped because their value was not finite.
	Skipped int `json:"skipped"`

	Reason   StopReason    `json:"reason"`
	Duration time.Duration `json:"duration"`
}

// Driver runs the CASH iteration against a store.Store.
//
// A Driver is single-writer: at most one Cash call runs at a time. A halted
// run continues where it stopped when Cash is called again.
type Driver struct {
	store store.Store
	opts  options

	running atomic.Bool
	halted  atomic.Bool

	// Owned by the running Cash call.
	runID     string
	iteration int
	clusters  []model.Cluster
}

// New creates a Driver for s.
func New(s store.Store, optFns ...Option) (*Driver, error) {
	if s == nil {
		return nil, &ConfigError{Field: "store", Value: nil, Reason: "store is required"}
	}

	o := applyOptions(optFns)
	if o.checkpointer != nil {
		if _, ok := s.(store.Snapshotter); !ok {
			return nil, &ConfigError{Field: "checkpointer", Value: fmt.Sprintf("%T", s), Reason: "store cannot take snapshots", cause: ErrNotResumable}
		}
		if o.checkpointEvery < 1 {
			return nil, &ConfigError{Field: "checkpoint interval", Value: o.checkpointEvery, Reason: "must be >= 1"}
		}
	}

	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &Driver{
		store: s,
		opts:  o,
		runID: runID,
	}, nil
}

// RunID returns the id used in logs and checkpoints.
func (d *Driver) RunID() string { return d.runID }

// Running reports whether Cash is in progress.
func (d *Driver) Running() bool { return d.running.Load() }

// Halt stops a running Cash before its next iteration. The current
// iteration completes. Halt has no effect on later calls to Cash.
func (d *Driver) Halt() { d.halted.Store(true) }

// Resume restores the store from cp and continues numbering iterations and
// collecting clusters from it. The next Cash call picks up the run.
func (d *Driver) Resume(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer d.running.Store(false)

	snapper, ok := d.store.(store.Snapshotter)
	if !ok {
		return ErrNotResumable
	}
	if err := snapper.Restore(ctx, &cp.Snapshot); err != nil {
		return fmt.Errorf("cash: restore checkpoint %s/%d: %w", cp.RunID, cp.Iteration, err)
	}

	d.runID = cp.RunID
	d.iteration = cp.Iteration
	d.clusters = slices.Clone(cp.Snapshot.Clusters)
	return nil
}

func validateParams(eps float64, minPts int) error {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps <= 0 {
		return &ConfigError{Field: "eps", Value: eps, Reason: "must be a positive finite number"}
	}
	if minPts < 1 {
		return &ConfigError{Field: "minPts", Value: minPts, Reason: "must be >= 1"}
	}
	return nil
}

// Cash runs the iteration until the enumeration is exhausted, fewer than
// minPts points remain, or the run is halted.
//
// Each iteration tries one alpha: the active points are transformed into
// the delta table, eps-dense regions are extracted, regions keeping at least
// minPts unclaimed points become clusters, and their points leave the active
// set. A failing iteration is retried after cleaning the delta table; when
// retries are used up, or the store error cannot be cured by retrying, the
// run stops with a *StorageError and the Result holds the clusters found so
// far.
//
// Only the alphas of the enumeration are tried. A hyperplane is found when
// its normal is close enough to one of them that the deltas of its points
// stay within eps of each other: the default grid of four
// splits finds axis-aligned and diagonal lines but misses y = 2x, whose
// normal angle is π - atan(0.5). Use a finer grid or list the alphas.
func (d *Driver) Cash(ctx context.Context, eps float64, minPts int) (*Result, error) {
	if err := validateParams(eps, minPts); err != nil {
		return nil, err
	}
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}
	defer d.running.Store(false)
	d.halted.Store(false)

	start := time.Now()

	r := &run{
		d:      d,
		log:    d.opts.logger.WithRun(d.runID).WithDimension(d.store.Dimension()),
		eps:    eps,
		minPts: minPts,
		res: &Result{
			RunID:      d.runID,
			Clusters:   slices.Clone(d.clusters),
			Iterations: d.iteration,
		},
		saved: -1,
	}

	if h, ok := d.store.(store.SizeHinter); ok {
		h.HintMinSize(minPts)
	}

	err := r.loop(ctx)
	if err == nil && d.opts.checkpointer != nil && r.saved != r.res.Iterations {
		err = r.checkpoint(ctx)
	}
	if err != nil && r.res.Reason != StopHalted {
		r.res.Reason = StopFailed
	}
	r.res.Duration = time.Since(start)

	d.iteration = r.res.Iterations
	d.clusters = slices.Clone(r.res.Clusters)

	r.log.LogRunStop(ctx, r.res, err)
	d.opts.metricsCollector.RecordRun(r.res.Iterations, len(r.res.Clusters), r.res.Reason, r.res.Duration, err)

	return r.res, err
}

// run is the state of one Cash call.
type run struct {
	d      *Driver
	log    *Logger
	eps    float64
	minPts int
	res    *Result
	saved  int // iteration of the last checkpoint
}

func (r *run) loop(ctx context.Context) error {
	// A store without points fails here, before the first iteration.
	if err := r.activeCount(ctx); err != nil {
		return translateError(err)
	}
	r.log.LogRunStart(ctx, r.eps, r.minPts, r.res.Remaining)

	for {
		if err := ctx.Err(); err != nil {
			r.res.Reason = StopHalted
			return err
		}
		if r.d.halted.Load() {
			r.res.Reason = StopHalted
			return nil
		}
		if r.res.Remaining < r.minPts {
			r.res.Reason = StopBelowMinPts
			return nil
		}

		left, err := retry(ctx, r, store.OpPermutationLeft, func() (bool, error) {
			return r.d.store.PermutationLeft(ctx)
		})
		if err != nil {
			return err
		}
		if !left {
			r.res.Reason = StopExhausted
			return nil
		}

		if err := r.iterate(ctx); err != nil {
			return err
		}
		if err := r.activeCount(ctx); err != nil {
			return err
		}
	}
}

func (r *run) activeCount(ctx context.Context) error {
	n, err := retry(ctx, r, store.OpActiveCount, func() (int, error) {
		return r.d.store.ActiveCount(ctx)
	})
	if err != nil {
		return err
	}
	r.res.Remaining = n
	return nil
}

func (r *run) iterate(ctx context.Context) error {
	start := time.Now()
	s := r.d.store

	pointer, err := retry(ctx, r, store.OpNextClusterID, func() (model.ClusterID, error) {
		return s.NextClusterID(ctx)
	})
	if err != nil {
		return err
	}
	alpha, err := retry(ctx, r, store.OpNextPermutation, func() (hough.Alpha, error) {
		return s.NextPermutation(ctx)
	})
	if err != nil {
		return err
	}
	if _, err := retry(ctx, r, store.OpAdvancePermutation, func() (struct{}, error) {
		return struct{}{}, s.AdvancePermutation(ctx)
	}); err != nil {
		return err
	}

	clusters, rep, err := r.step(ctx, alpha, pointer)
	if err != nil {
		return err
	}

	r.res.Iterations++
	r.res.Clusters = append(r.res.Clusters, clusters...)

	removed := 0
	for _, c := range clusters {
		removed += c.Size()
		r.log.LogCluster(ctx, c)
	}
	if len(rep.Skipped) > 0 {
		r.res.Skipped += len(rep.Skipped)
		r.d.opts.metricsCollector.RecordSkipped(len(rep.Skipped))
		for _, dl := range rep.Skipped {
			r.log.LogSkippedPoint(ctx, r.res.Iterations, dl)
		}
	}

	if _, err := retry(ctx, r, store.OpCleanDeltasTable, func() (struct{}, error) {
		return struct{}{}, s.CleanDeltasTable(ctx)
	}); err != nil {
		return err
	}

	elapsed := time.Since(start)
	r.d.opts.metricsCollector.RecordIteration(len(clusters), removed, elapsed)
	r.log.LogIteration(ctx, r.res.Iterations, alpha, len(clusters), r.res.Remaining-removed, elapsed)

	if r.d.opts.checkpointer != nil && r.res.Iterations%r.d.opts.checkpointEvery == 0 {
		return r.checkpoint(ctx)
	}
	return nil
}

// step runs the delta, region, filter and commit steps for alpha. The steps
// are retried together: a failure cleans the delta table and starts over
// with the same alpha and pointer.
func (r *run) step(ctx context.Context, alpha hough.Alpha, pointer model.ClusterID) ([]model.Cluster, store.Report, error) {
	var (
		op      store.Op
		lastErr error
	)
	for attempt := 0; attempt <= r.d.opts.retries; attempt++ {
		if attempt > 0 {
			r.retrying(ctx, op, attempt, lastErr)
			if err := r.d.store.CleanDeltasTable(ctx); err != nil {
				op, lastErr = store.OpCleanDeltasTable, err
				continue
			}
		}

		clusters, rep, failed, err := r.attempt(ctx, alpha, pointer)
		if err == nil {
			return clusters, rep, nil
		}
		if ctx.Err() != nil {
			r.res.Reason = StopHalted
			return nil, store.Report{}, ctx.Err()
		}
		if permanent(err) {
			return nil, store.Report{}, &StorageError{Op: failed, Err: err}
		}
		op, lastErr = failed, err
	}
	return nil, store.Report{}, &StorageError{Op: op, Err: lastErr}
}

func (r *run) attempt(ctx context.Context, alpha hough.Alpha, pointer model.ClusterID) ([]model.Cluster, store.Report, store.Op, error) {
	s := r.d.store

	rep, err := s.InsertDeltas(ctx, alpha)
	if err != nil {
		return nil, rep, store.OpInsertDeltas, err
	}
	if err := s.ExtractClusters(ctx, r.eps, alpha); err != nil {
		return nil, rep, store.OpExtractClusters, err
	}
	if err := s.FilterClusters(ctx, r.minPts); err != nil {
		return nil, rep, store.OpFilterClusters, err
	}
	clusters, err := s.DeleteClusteredObjects(ctx, pointer)
	if err != nil {
		return nil, rep, store.OpDeleteClusteredObjects, err
	}
	return clusters, rep, "", nil
}

func (r *run) retrying(ctx context.Context, op store.Op, attempt int, err error) {
	r.log.LogRetry(ctx, string(op), attempt, err)
	r.d.opts.metricsCollector.RecordRetry(string(op))
}

// retry calls fn until it succeeds, fails permanently or the retries are
// used up.
func retry[T any](ctx context.Context, r *run, op store.Op, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			r.res.Reason = StopHalted
			return zero, ctx.Err()
		}
		if permanent(err) || attempt >= r.d.opts.retries {
			return zero, &StorageError{Op: op, Err: err}
		}
		r.retrying(ctx, op, attempt+1, err)
	}
}

func (r *run) checkpoint(ctx context.Context) error {
	snap, err := r.d.store.(store.Snapshotter).Snapshot(ctx)
	if err != nil {
		return &StorageError{Op: "Snapshot", Err: err}
	}

	cp := &checkpoint.Checkpoint{
		RunID:     r.res.RunID,
		Iteration: r.res.Iterations,
		Eps:       r.eps,
		MinPts:    r.minPts,
		CreatedAt: time.Now().UTC(),
		Snapshot:  *snap,
	}
	name, err := r.d.opts.checkpointer.Save(ctx, cp)
	r.log.LogCheckpoint(ctx, r.res.Iterations, name, err)
	if err != nil {
		return fmt.Errorf("cash: checkpoint: %w", err)
	}
	r.saved = r.res.Iterations
	return nil
}

// Cluster clusters points in memory. Like Driver.Cash it only finds
// hyperplanes whose normal is close to an alpha of the enumeration.
//
// The store is a store.Memory configured with WithEnumerator, WithGrid,
// WithWorkers and WithResourceController; the remaining options configure
// the driver.
func Cluster(ctx context.Context, points []model.Point, eps float64, minPts int, optFns ...Option) (*Result, error) {
	if err := validateParams(eps, minPts); err != nil {
		return nil, err
	}
	dim, err := store.ValidatePoints(points)
	if err != nil {
		return nil, translateError(err)
	}

	o := applyOptions(optFns)
	enum := o.enumerator
	if enum == nil && o.splits != 0 {
		if o.splits < 1 {
			return nil, &ConfigError{Field: "splits", Value: o.splits, Reason: "must be >= 1"}
		}
		cfg := permutation.DefaultGridConfig(dim)
		cfg.Splits = o.splits
		grid, err := permutation.NewGrid(cfg)
		if err != nil {
			return nil, &ConfigError{Field: "splits", Value: o.splits, Reason: err.Error(), cause: err}
		}
		enum = grid
	}

	mem, err := store.NewMemory(points,
		store.WithEnumerator(enum),
		store.WithWorkers(o.workers),
		store.WithResourceController(o.resources),
	)
	if err != nil {
		return nil, translateError(err)
	}

	d, err := New(mem, optFns...)
	if err != nil {
		return nil, err
	}
	return d.Cash(ctx, eps, minPts)
}
