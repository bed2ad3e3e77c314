package cash

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
)

// Logger wraps slog.Logger with cash-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithRun adds a run id field to the logger.
func (l *Logger) WithRun(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogRunStart logs the start of a run.
func (l *Logger) LogRunStart(ctx context.Context, eps float64, minPts, active int) {
	l.InfoContext(ctx, "run started",
		"eps", eps,
		"min_pts", minPts,
		"active", active,
	)
}

// LogIteration logs one completed iteration.
func (l *Logger) LogIteration(ctx context.Context, iteration int, alpha hough.Alpha, clusters, active int, duration time.Duration) {
	l.DebugContext(ctx, "iteration completed",
		"iteration", iteration,
		"alpha", alpha.String(),
		"clusters", clusters,
		"active", active,
		"duration", duration,
	)
}

// LogCluster logs a materialised cluster.
func (l *Logger) LogCluster(ctx context.Context, c model.Cluster) {
	l.InfoContext(ctx, "cluster found",
		"id", c.ID.String(),
		"size", c.Size(),
		"alpha", c.Alpha.String(),
		"offset", c.Offset,
	)
}

// LogSkippedPoint logs a point left out of an iteration because its
// parameter-space value was not finite.
func (l *Logger) LogSkippedPoint(ctx context.Context, iteration int, d model.Delta) {
	l.WarnContext(ctx, "point skipped: non-finite delta",
		"iteration", iteration,
		"point", d.Point,
		"value", d.Value,
	)
}

// LogRetry logs a storage failure that is about to be retried.
func (l *Logger) LogRetry(ctx context.Context, op string, attempt int, err error) {
	l.WarnContext(ctx, "storage operation failed, retrying",
		"op", op,
		"attempt", attempt,
		"error", err,
	)
}

// LogRunStop logs the end of a run.
func (l *Logger) LogRunStop(ctx context.Context, res *Result, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"iterations", res.Iterations,
			"clusters", len(res.Clusters),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run stopped",
			"reason", res.Reason.String(),
			"iterations", res.Iterations,
			"clusters", len(res.Clusters),
			"remaining", res.Remaining,
			"duration", res.Duration,
		)
	}
}

// LogCheckpoint logs a checkpoint write.
func (l *Logger) LogCheckpoint(ctx context.Context, iteration int, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"iteration", iteration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint saved",
			"iteration", iteration,
			"name", name,
		)
	}
}
