// Package delta builds the per-alpha table of parameter-space values.
//
// A Table belongs to exactly one alpha at a time. Build fills a fresh table in
// parallel: every worker transforms a contiguous slice of the active points into
// its own partition, and the partitions are concatenated once all workers finish,
// so no insert is ever lost or shared between goroutines.
package delta

import (
	"context"
	"errors"
	"math"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/internal/parallel"
	"github.com/hupe1980/cash/resource"
	"github.com/hupe1980/cash/model"
)

var (
	// ErrAlphaMismatch is returned when a table still holds deltas of another alpha.
	ErrAlphaMismatch = errors.New("delta: table holds deltas of a different alpha; reset it first")

	// ErrNotEmpty is returned when a table was already built and not reset.
	ErrNotEmpty = errors.New("delta: table already built; reset it first")
)

// Table holds the deltas of the active points under one alpha.
type Table struct {
	alpha   hough.Alpha
	entries []model.Delta
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Alpha returns the alpha the table was built for, or nil when empty.
func (t *Table) Alpha() hough.Alpha { return t.alpha }

// Len returns the number of deltas.
func (t *Table) Len() int { return len(t.entries) }

// Entries returns the deltas. The slice is owned by the table.
func (t *Table) Entries() []model.Delta { return t.entries }

// Reset drops every delta and detaches the table from its alpha.
func (t *Table) Reset() {
	t.alpha = nil
	t.entries = t.entries[:0]
}

// Delete removes the deltas of the given points and returns how many were removed.
func (t *Table) Delete(ids []model.PointID) int {
	if len(ids) == 0 || len(t.entries) == 0 {
		return 0
	}
	drop := make(map[model.PointID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := t.entries[:0]
	for _, d := range t.entries {
		if _, ok := drop[d.Point]; !ok {
			kept = append(kept, d)
		}
	}
	removed := len(t.entries) - len(kept)
	t.entries = kept
	return removed
}

// Skipped describes a point excluded from the table.
type Skipped struct {
	Point model.PointID
	Value float64
}

// Report summarises one Build.
type Report struct {
	Inserted int
	Skipped  []Skipped
}

// Options controls Build.
type Options struct {
	// Workers is the number of partitions. <= 0 means runtime.NumCPU().
	Workers int

	// Resources bounds the goroutines running at the same time. May be nil.
	Resources *resource.Controller
}

// Build transforms every point under alpha into t.
//
// t must be new or reset. A table built for another alpha yields
// ErrAlphaMismatch, one built for the same alpha ErrNotEmpty; t is left
// untouched in both cases. Points whose value is not finite are left out of
// the table and listed in the report.
func Build(ctx context.Context, t *Table, points []model.Point, alpha hough.Alpha, opts Options) (Report, error) {
	if t.alpha != nil {
		if !t.alpha.Equal(alpha) {
			return Report{}, ErrAlphaMismatch
		}
		return Report{}, ErrNotEmpty
	}
	if len(points) == 0 {
		t.alpha = alpha.Clone()
		return Report{}, nil
	}

	ranges := parallel.Split(len(points), opts.Workers)
	parts := make([][]model.Delta, len(ranges))
	skipped := make([][]Skipped, len(ranges))

	err := parallel.ForEach(ctx, ranges, opts.Resources, func(_ context.Context, i int, r parallel.Range) error {
		out := make([]model.Delta, 0, r.Len())
		for _, p := range points[r.Lo:r.Hi] {
			v, err := hough.Transform(p.Coords, alpha)
			if err != nil {
				return err
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				skipped[i] = append(skipped[i], Skipped{Point: p.ID, Value: v})
				continue
			}
			out = append(out, model.Delta{Point: p.ID, Value: v})
		}
		parts[i] = out
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for i := range parts {
		t.entries = append(t.entries, parts[i]...)
		rep.Inserted += len(parts[i])
		rep.Skipped = append(rep.Skipped, skipped[i]...)
	}
	t.alpha = alpha.Clone()

	return rep, nil
}
