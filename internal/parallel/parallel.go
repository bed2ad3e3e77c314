// Package parallel runs index-range work across a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"

	"github.com/hupe1980/cash/resource"
	"golang.org/x/sync/errgroup"
)

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in r.
func (r Range) Len() int { return r.Hi - r.Lo }

// Workers resolves a worker count: values <= 0 mean runtime.NumCPU().
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Split divides [0, n) into at most workers contiguous, non-empty ranges.
func Split(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	workers = min(Workers(workers), n)
	per := (n + workers - 1) / workers

	ranges := make([]Range, 0, workers)
	for lo := 0; lo < n; lo += per {
		ranges = append(ranges, Range{Lo: lo, Hi: min(lo+per, n)})
	}
	return ranges
}

// ForEach runs fn once per range. Ranges execute concurrently, each holding a
// worker slot of rc while it runs. The first error cancels the remaining work.
//
// Every fn owns its range index i exclusively, so callers can write results into
// a pre-sized per-range slice without locking.
func ForEach(ctx context.Context, ranges []Range, rc *resource.Controller, fn func(ctx context.Context, i int, r Range) error) error {
	if len(ranges) == 1 {
		if err := rc.AcquireWorker(ctx); err != nil {
			return err
		}
		defer rc.ReleaseWorker()
		return fn(ctx, 0, ranges[0])
	}

	g, gctx := errgroup.WithContext(ctx)

	for i, r := range ranges {
		g.Go(func() error {
			if err := rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer rc.ReleaseWorker()
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i, r)
		})
	}

	return g.Wait()
}
