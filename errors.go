package cash

import (
	"errors"
	"fmt"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/permutation"
	"github.com/hupe1980/cash/store"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("cash: invalid configuration")

	// ErrRunning is returned when Cash is called on a driver that is already running.
	ErrRunning = errors.New("cash: driver is already running")

	// ErrNotResumable is returned by Resume and checkpointing when the store
	// cannot take snapshots.
	ErrNotResumable = errors.New("cash: store does not support snapshots")
)

// ConfigError reports an invalid run parameter. It is returned before the
// first iteration.
//
// errors.Is(err, ErrInvalidConfig) holds for every ConfigError, and so does
// errors.Is against the store error it was translated from.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cash: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.cause}
}

// StorageError reports a store operation that kept failing after retries.
// Clusters materialised before the failure are still part of the Result.
type StorageError struct {
	Op  store.Op
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cash: storage operation %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// translateError maps store construction errors to ConfigErrors.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrEmpty):
		return &ConfigError{Field: "points", Value: 0, Reason: "at least one point is required", cause: err}
	case errors.Is(err, store.ErrDimension):
		return &ConfigError{Field: "points", Value: "dimension", Reason: err.Error(), cause: err}
	case errors.Is(err, store.ErrDuplicatePoint):
		return &ConfigError{Field: "points", Value: "ids", Reason: err.Error(), cause: err}
	default:
		return err
	}
}

// permanent reports whether err cannot go away by retrying the operation.
func permanent(err error) bool {
	for _, target := range []error{
		permutation.ErrExhausted,
		store.ErrClosed,
		store.ErrEmpty,
		store.ErrDimension,
		store.ErrDuplicatePoint,
		store.ErrDeltasPending,
		hough.ErrDimensionMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
