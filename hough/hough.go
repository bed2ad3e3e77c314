package hough

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when an Alpha does not fit a point.
var ErrDimensionMismatch = errors.New("hough: alpha length must equal point dimension - 1")

const (
	twoPi = 2 * math.Pi

	// wrapTolerance folds angles this close to 2π back onto 0.
	wrapTolerance = 1e-12

	// trigTolerance snaps sin/cos results that are rounding noise to exact zero,
	// so angles of 0, π/2 and π evaluate exactly.
	trigTolerance = 1e-15
)

// Alpha is one point of the (d-1)-dimensional angle space, in radians.
type Alpha []float64

// Clone returns an independent copy of a.
func (a Alpha) Clone() Alpha {
	if a == nil {
		return nil
	}
	out := make(Alpha, len(a))
	copy(out, a)
	return out
}

// Equal reports whether a and b hold the same angles.
func (a Alpha) Equal(b Alpha) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Degrees returns the angles of a converted to degrees.
func (a Alpha) Degrees() []float64 {
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = Degrees(v)
	}
	return out
}

// String implements fmt.Stringer using degrees, which reads better in logs.
func (a Alpha) String() string {
	return fmt.Sprintf("%.4g°", a.Degrees())
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeAngle maps an angle into [0, 2π). Non-finite input is returned unchanged.
func NormalizeAngle(rad float64) float64 {
	if math.IsNaN(rad) || math.IsInf(rad, 0) {
		return rad
	}
	r := math.Mod(rad, twoPi)
	if r < 0 {
		r += twoPi
	}
	if twoPi-r < wrapTolerance {
		r = 0
	}
	return r
}

func sincos(rad float64) (float64, float64) {
	s, c := math.Sincos(NormalizeAngle(rad))
	if math.Abs(s) < trigTolerance {
		s = 0
	}
	if math.Abs(c) < trigTolerance {
		c = 0
	}
	return s, c
}

// Transform evaluates the Hough curve of point at alpha.
//
// The result is deterministic for identical inputs. It may be non-finite when the
// coordinates are; callers decide how to treat such values.
func Transform(point []float64, alpha Alpha) (float64, error) {
	if len(point) < 2 || len(alpha) != len(point)-1 {
		return 0, ErrDimensionMismatch
	}

	var (
		delta float64
		prod  = 1.0
	)
	for i, a := range alpha {
		s, c := sincos(a)
		delta += point[i] * (prod * c)
		prod *= s
	}
	// The last dimension has the implicit angle 0, cos 0 = 1.
	delta += point[len(point)-1] * prod

	return delta, nil
}

// Normal returns the unit normal vector of the hyperplane family selected by alpha.
// For every point p, Transform(p, alpha) equals the dot product of p and Normal(alpha)
// summed in coordinate order.
func Normal(alpha Alpha) []float64 {
	n := make([]float64, len(alpha)+1)
	prod := 1.0
	for i, a := range alpha {
		s, c := sincos(a)
		n[i] = prod * c
		prod *= s
	}
	n[len(alpha)] = prod
	return n
}
