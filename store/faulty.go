package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
)

// Op names a Store operation for fault injection.
type Op string

// Store operations.
const (
	OpActiveCount            Op = "ActiveCount"
	OpNextClusterID          Op = "NextClusterID"
	OpPermutationLeft        Op = "PermutationLeft"
	OpNextPermutation        Op = "NextPermutation"
	OpAdvancePermutation     Op = "AdvancePermutation"
	OpInsertDeltas           Op = "InsertDeltas"
	OpExtractClusters        Op = "ExtractClusters"
	OpFilterClusters         Op = "FilterClusters"
	OpDeleteClusteredObjects Op = "DeleteClusteredObjects"
	OpCleanDeltasTable       Op = "CleanDeltasTable"
	OpClusters               Op = "Clusters"
	OpActive                 Op = "Active"
)

// Fault defines the failure behaviour of one operation.
type Fault struct {
	// Skip lets this many calls through before failing.
	Skip int
	// Times is the number of calls that fail. -1 fails forever.
	Times int
	// Err is returned by failing calls. nil means ErrUnavailable.
	Err error
}

// Faulty is a Store wrapper that can inject errors.
type Faulty struct {
	Store Store

	mu     sync.Mutex
	rules  map[Op]*Fault
	calls  map[Op]int
	failed map[Op]int
}

var (
	_ Store       = (*Faulty)(nil)
	_ SizeHinter  = (*Faulty)(nil)
	_ Snapshotter = (*Faulty)(nil)
)

// NewFaulty wraps s.
func NewFaulty(s Store) *Faulty {
	return &Faulty{
		Store:  s,
		rules:  make(map[Op]*Fault),
		calls:  make(map[Op]int),
		failed: make(map[Op]int),
	}
}

// AddRule sets the fault of op, replacing any previous rule.
func (f *Faulty) AddRule(op Op, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc := fault
	f.rules[op] = &fc
}

// Clear removes every rule.
func (f *Faulty) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.rules)
}

// Calls returns how often op was called.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Failures returns how often op failed through an injected fault.
func (f *Faulty) Failures(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed[op]
}

func (f *Faulty) check(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	rule, ok := f.rules[op]
	if !ok {
		return nil
	}
	if rule.Skip > 0 {
		rule.Skip--
		return nil
	}
	if rule.Times == 0 {
		return nil
	}
	if rule.Times > 0 {
		rule.Times--
	}
	f.failed[op]++
	if rule.Err != nil {
		return rule.Err
	}
	return fmt.Errorf("%w: injected fault in %s", ErrUnavailable, op)
}

func (f *Faulty) Dimension() int { return f.Store.Dimension() }

func (f *Faulty) HintMinSize(n int) {
	if h, ok := f.Store.(SizeHinter); ok {
		h.HintMinSize(n)
	}
}

func (f *Faulty) ActiveCount(ctx context.Context) (int, error) {
	if err := f.check(OpActiveCount); err != nil {
		return 0, err
	}
	return f.Store.ActiveCount(ctx)
}

func (f *Faulty) NextClusterID(ctx context.Context) (model.ClusterID, error) {
	if err := f.check(OpNextClusterID); err != nil {
		return 0, err
	}
	return f.Store.NextClusterID(ctx)
}

func (f *Faulty) PermutationLeft(ctx context.Context) (bool, error) {
	if err := f.check(OpPermutationLeft); err != nil {
		return false, err
	}
	return f.Store.PermutationLeft(ctx)
}

func (f *Faulty) NextPermutation(ctx context.Context) (hough.Alpha, error) {
	if err := f.check(OpNextPermutation); err != nil {
		return nil, err
	}
	return f.Store.NextPermutation(ctx)
}

func (f *Faulty) AdvancePermutation(ctx context.Context) error {
	if err := f.check(OpAdvancePermutation); err != nil {
		return err
	}
	return f.Store.AdvancePermutation(ctx)
}

func (f *Faulty) InsertDeltas(ctx context.Context, alpha hough.Alpha) (Report, error) {
	if err := f.check(OpInsertDeltas); err != nil {
		return Report{}, err
	}
	return f.Store.InsertDeltas(ctx, alpha)
}

func (f *Faulty) ExtractClusters(ctx context.Context, eps float64, alpha hough.Alpha) error {
	if err := f.check(OpExtractClusters); err != nil {
		return err
	}
	return f.Store.ExtractClusters(ctx, eps, alpha)
}

func (f *Faulty) FilterClusters(ctx context.Context, minPts int) error {
	if err := f.check(OpFilterClusters); err != nil {
		return err
	}
	return f.Store.FilterClusters(ctx, minPts)
}

func (f *Faulty) DeleteClusteredObjects(ctx context.Context, pointer model.ClusterID) ([]model.Cluster, error) {
	if err := f.check(OpDeleteClusteredObjects); err != nil {
		return nil, err
	}
	return f.Store.DeleteClusteredObjects(ctx, pointer)
}

func (f *Faulty) CleanDeltasTable(ctx context.Context) error {
	if err := f.check(OpCleanDeltasTable); err != nil {
		return err
	}
	return f.Store.CleanDeltasTable(ctx)
}

func (f *Faulty) Clusters(ctx context.Context) ([]model.Cluster, error) {
	if err := f.check(OpClusters); err != nil {
		return nil, err
	}
	return f.Store.Clusters(ctx)
}

func (f *Faulty) Active(ctx context.Context) ([]model.PointID, error) {
	if err := f.check(OpActive); err != nil {
		return nil, err
	}
	return f.Store.Active(ctx)
}

// Snapshot forwards to the wrapped store when it is a Snapshotter.
func (f *Faulty) Snapshot(ctx context.Context) (*Snapshot, error) {
	s, ok := f.Store.(Snapshotter)
	if !ok {
		return nil, fmt.Errorf("store: %T does not support snapshots", f.Store)
	}
	return s.Snapshot(ctx)
}

// Restore forwards to the wrapped store when it is a Snapshotter.
func (f *Faulty) Restore(ctx context.Context, snap *Snapshot) error {
	s, ok := f.Store.(Snapshotter)
	if !ok {
		return fmt.Errorf("store: %T does not support snapshots", f.Store)
	}
	return s.Restore(ctx, snap)
}
