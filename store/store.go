package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/cash/hough"
	"github.com/hupe1980/cash/model"
	"github.com/hupe1980/cash/permutation"
)

var (
	// ErrUnavailable marks a transient storage failure. Operations failing
	// with it may succeed when retried.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrEmpty is returned when a store is created without points.
	ErrEmpty = errors.New("store: no points")

	// ErrDimension is returned for points of dimension < 2 or ragged point sets.
	ErrDimension = errors.New("store: invalid point dimension")

	// ErrDuplicatePoint is returned when two points share an id.
	ErrDuplicatePoint = errors.New("store: duplicate point id")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrDeltasPending is returned by InsertDeltas while the delta table still
	// holds the deltas of an earlier insert. CleanDeltasTable clears it.
	ErrDeltasPending = errors.New("store: delta table not cleaned")
)

// Report describes one InsertDeltas call.
type Report struct {
	// Inserted is the number of deltas written.
	Inserted int
	// Skipped lists the points whose value was not finite.
	Skipped []model.Delta
}

// Store is the storage collaborator of the driver.
type Store interface {
	// Dimension returns the dimension of the stored points.
	Dimension() int

	// ActiveCount returns the number of points not yet clustered.
	ActiveCount(ctx context.Context) (int, error)

	// NextClusterID returns the id the next accepted cluster will receive.
	NextClusterID(ctx context.Context) (model.ClusterID, error)

	// PermutationLeft reports whether the enumerator has another alpha.
	PermutationLeft(ctx context.Context) (bool, error)

	// NextPermutation returns the current alpha without advancing.
	NextPermutation(ctx context.Context) (hough.Alpha, error)

	// AdvancePermutation moves the enumerator to the next alpha.
	AdvancePermutation(ctx context.Context) error

	// InsertDeltas fills the delta table with the active points under alpha.
	InsertDeltas(ctx context.Context, alpha hough.Alpha) (Report, error)

	// ExtractClusters finds the eps-dense regions of the delta table of alpha.
	ExtractClusters(ctx context.Context, eps float64, alpha hough.Alpha) error

	// FilterClusters accepts the regions with at least minPts unclaimed points.
	FilterClusters(ctx context.Context, minPts int) error

	// DeleteClusteredObjects commits the accepted clusters with an id >= pointer,
	// removes their points from the active set and returns them.
	DeleteClusteredObjects(ctx context.Context, pointer model.ClusterID) ([]model.Cluster, error)

	// CleanDeltasTable drops the delta table and any uncommitted clusters.
	CleanDeltasTable(ctx context.Context) error

	// Clusters returns every committed cluster in id order.
	Clusters(ctx context.Context) ([]model.Cluster, error)

	// Active returns the ids of the unclustered points in ascending order.
	Active(ctx context.Context) ([]model.PointID, error)
}

// SizeHinter is implemented by stores that can stop region extraction early.
// The driver calls HintMinSize(minPts) before the first iteration.
type SizeHinter interface {
	HintMinSize(n int)
}

// Snapshot is the resumable state of a store.
type Snapshot struct {
	Dimension     int               `json:"dimension" msgpack:"dimension"`
	Clusters      []model.Cluster   `json:"clusters" msgpack:"clusters"`
	Active        []byte            `json:"active" msgpack:"active"`
	Enumerator    permutation.State `json:"enumerator" msgpack:"enumerator"`
	NextClusterID model.ClusterID   `json:"next_cluster_id" msgpack:"next_cluster_id"`
}

// Snapshotter is implemented by stores whose state can be checkpointed.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) error
}

// ValidatePoints checks that points is non-empty, has unique ids and a common
// dimension >= 2, and returns that dimension.
func ValidatePoints(points []model.Point) (int, error) {
	if len(points) == 0 {
		return 0, ErrEmpty
	}
	dim := points[0].Dim()
	if dim < 2 {
		return 0, fmt.Errorf("%w: point %d has dimension %d", ErrDimension, points[0].ID, dim)
	}
	seen := make(map[model.PointID]struct{}, len(points))
	for _, p := range points {
		if p.Dim() != dim {
			return 0, fmt.Errorf("%w: point %d has dimension %d, want %d", ErrDimension, p.ID, p.Dim(), dim)
		}
		if _, ok := seen[p.ID]; ok {
			return 0, fmt.Errorf("%w: %d", ErrDuplicatePoint, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return dim, nil
}
