package model

import (
	"fmt"
	"slices"

	"github.com/hupe1980/cash/hough"
)

// PointID is the stable identifier of a data point.
type PointID uint32

// ClusterID identifies an accepted cluster. IDs start at 1 and strictly increase.
type ClusterID uint64

// String returns a string representation of the ClusterID.
func (id ClusterID) String() string {
	return fmt.Sprintf("C%d", uint64(id))
}

// Point is one input object.
type Point struct {
	ID     PointID   `json:"id" msgpack:"id"`
	Coords []float64 `json:"coords" msgpack:"coords"`
}

// Dim returns the dimensionality of the point.
func (p Point) Dim() int { return len(p.Coords) }

// Delta is the parameter-space value of one point under the current alpha.
type Delta struct {
	Point PointID
	Value float64
}

// Cluster is a group of points that share a hyperplane.
type Cluster struct {
	ID ClusterID `json:"id" msgpack:"id"`

	// Alpha is the angle vector whose delta table produced the cluster.
	Alpha hough.Alpha `json:"alpha" msgpack:"alpha"`

	// Offset is the mean parameter value of the members; the members lie
	// approximately on {x : <hough.Normal(Alpha), x> = Offset}.
	Offset float64 `json:"offset" msgpack:"offset"`

	// Points holds the member ids in ascending order.
	Points []PointID `json:"points" msgpack:"points"`
}

// Size returns the number of member points.
func (c Cluster) Size() int { return len(c.Points) }

// Contains reports whether id is a member of c.
func (c Cluster) Contains(id PointID) bool {
	_, ok := slices.BinarySearch(c.Points, id)
	return ok
}

// Normal returns the unit normal of the cluster hyperplane.
func (c Cluster) Normal() []float64 { return hough.Normal(c.Alpha) }

// String returns a short description of the cluster.
func (c Cluster) String() string {
	return fmt.Sprintf("%s(size=%d alpha=%s offset=%.4g)", c.ID, len(c.Points), c.Alpha, c.Offset)
}
