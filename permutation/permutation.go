package permutation

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/cash/hough"
)

var (
	// ErrExhausted is returned by Next and Peek once no alpha vectors remain.
	ErrExhausted = errors.New("permutation: enumeration exhausted")

	// ErrInvalidState is returned by Restore for a state that does not fit the enumerator.
	ErrInvalidState = errors.New("permutation: invalid state")
)

// Enumerator produces a finite sequence of alpha vectors.
type Enumerator interface {
	// HasNext reports whether another alpha vector remains.
	HasNext() bool
	// Peek returns the current alpha vector without consuming it.
	Peek() (hough.Alpha, error)
	// Advance consumes the current alpha vector. It is a no-op once exhausted.
	Advance()
	// Next returns the current alpha vector and advances.
	Next() (hough.Alpha, error)
	// Len returns the total number of alpha vectors.
	Len() int
	// Position returns how many alpha vectors have been consumed.
	Position() int
	// Reset rewinds to the first alpha vector.
	Reset()
	// State captures the cursor so it can be persisted.
	State() State
	// Restore moves the cursor to a previously captured State.
	Restore(State) error
}

// State is the persisted cursor of an Enumerator.
type State struct {
	Position int   `json:"position" msgpack:"position"`
	Digits   []int `json:"digits,omitempty" msgpack:"digits,omitempty"`
}

// GridConfig configures a Grid enumerator.
type GridConfig struct {
	// Dimension is the dimensionality of the data (>= 2). The grid has Dimension-1 angles.
	Dimension int

	// Splits is the number of intervals per angle; each angle takes Splits+1 values.
	// Must be >= 1. Default: 4.
	Splits int

	// Low and High bound every angle, in radians. Default: [0, π].
	// Both ends are grid values. With the default bounds a first angle of 0
	// or π selects the same hyperplanes with the normal flipped: the deltas
	// at π are the negated deltas at 0, and the later angles do not matter.
	Low, High float64
}

// DefaultGridConfig returns the grid used when nothing else is configured:
// four splits over [0, π] per angle.
func DefaultGridConfig(dim int) GridConfig {
	return GridConfig{
		Dimension: dim,
		Splits:    4,
		Low:       0,
		High:      math.Pi,
	}
}

func (c GridConfig) validate() error {
	if c.Dimension < 2 {
		return fmt.Errorf("permutation: Dimension must be >= 2, got %d", c.Dimension)
	}
	if c.Splits < 1 {
		return fmt.Errorf("permutation: Splits must be >= 1, got %d", c.Splits)
	}
	if math.IsNaN(c.Low) || math.IsNaN(c.High) || math.IsInf(c.Low, 0) || math.IsInf(c.High, 0) {
		return fmt.Errorf("permutation: bounds must be finite, got [%g, %g]", c.Low, c.High)
	}
	if c.High <= c.Low {
		return fmt.Errorf("permutation: High must be > Low, got [%g, %g]", c.Low, c.High)
	}
	return nil
}

// Grid walks the cartesian product of the discretised angle ranges.
// Grid is not safe for concurrent use.
type Grid struct {
	values []float64
	digits []int
	total  int
	pos    int
}

// NewGrid creates a Grid enumerator.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	step := (cfg.High - cfg.Low) / float64(cfg.Splits)
	values := make([]float64, cfg.Splits+1)
	for k := range values {
		values[k] = cfg.Low + float64(k)*step
	}
	// High is included as is; it is not Low+Splits*step rounded.
	values[cfg.Splits] = cfg.High

	angles := cfg.Dimension - 1
	total := 1
	for range angles {
		if total > math.MaxInt/len(values) {
			return nil, fmt.Errorf("permutation: grid of %d^%d alphas is too large", len(values), angles)
		}
		total *= len(values)
	}

	return &Grid{
		values: values,
		digits: make([]int, angles),
		total:  total,
	}, nil
}

// Values returns the discretised angle values of one grid axis.
func (g *Grid) Values() []float64 {
	out := make([]float64, len(g.values))
	copy(out, g.values)
	return out
}

// HasNext implements Enumerator.
func (g *Grid) HasNext() bool { return g.pos < g.total }

// Peek implements Enumerator.
func (g *Grid) Peek() (hough.Alpha, error) {
	if !g.HasNext() {
		return nil, ErrExhausted
	}
	alpha := make(hough.Alpha, len(g.digits))
	for i, d := range g.digits {
		alpha[i] = g.values[d]
	}
	return alpha, nil
}

// Advance implements Enumerator.
func (g *Grid) Advance() {
	if !g.HasNext() {
		return
	}
	g.pos++
	// Odometer increment with carry towards the first angle.
	for i := len(g.digits) - 1; i >= 0; i-- {
		g.digits[i]++
		if g.digits[i] < len(g.values) {
			return
		}
		g.digits[i] = 0
	}
}

// Next implements Enumerator.
func (g *Grid) Next() (hough.Alpha, error) {
	alpha, err := g.Peek()
	if err != nil {
		return nil, err
	}
	g.Advance()
	return alpha, nil
}

// Len implements Enumerator.
func (g *Grid) Len() int { return g.total }

// Position implements Enumerator.
func (g *Grid) Position() int { return g.pos }

// Reset implements Enumerator.
func (g *Grid) Reset() {
	g.pos = 0
	clear(g.digits)
}

// State implements Enumerator.
func (g *Grid) State() State {
	digits := make([]int, len(g.digits))
	copy(digits, g.digits)
	return State{Position: g.pos, Digits: digits}
}

// Restore implements Enumerator.
func (g *Grid) Restore(s State) error {
	if s.Position < 0 || s.Position > g.total || len(s.Digits) != len(g.digits) {
		return ErrInvalidState
	}
	// The digits are the base-(splits+1) representation of the position.
	rem := s.Position
	for i := len(g.digits) - 1; i >= 0; i-- {
		want := rem % len(g.values)
		rem /= len(g.values)
		if s.Position < g.total && s.Digits[i] != want {
			return ErrInvalidState
		}
	}
	g.pos = s.Position
	copy(g.digits, s.Digits)
	return nil
}

// List replays an explicit sequence of alpha vectors.
// List is not safe for concurrent use.
type List struct {
	alphas []hough.Alpha
	pos    int
}

// NewList creates a List enumerator. All alpha vectors must have the same,
// non-zero length.
func NewList(alphas ...hough.Alpha) (*List, error) {
	if len(alphas) == 0 {
		return nil, errors.New("permutation: list must contain at least one alpha")
	}
	want := len(alphas[0])
	if want == 0 {
		return nil, errors.New("permutation: alpha vectors must not be empty")
	}
	out := make([]hough.Alpha, len(alphas))
	for i, a := range alphas {
		if len(a) != want {
			return nil, fmt.Errorf("permutation: alpha %d has length %d, want %d", i, len(a), want)
		}
		for _, v := range a {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("permutation: alpha %d contains non-finite angle", i)
			}
		}
		out[i] = a.Clone()
	}
	return &List{alphas: out}, nil
}

// HasNext implements Enumerator.
func (l *List) HasNext() bool { return l.pos < len(l.alphas) }

// Peek implements Enumerator.
func (l *List) Peek() (hough.Alpha, error) {
	if !l.HasNext() {
		return nil, ErrExhausted
	}
	return l.alphas[l.pos].Clone(), nil
}

// Advance implements Enumerator.
func (l *List) Advance() {
	if l.HasNext() {
		l.pos++
	}
}

// Next implements Enumerator.
func (l *List) Next() (hough.Alpha, error) {
	alpha, err := l.Peek()
	if err != nil {
		return nil, err
	}
	l.Advance()
	return alpha, nil
}

// Len implements Enumerator.
func (l *List) Len() int { return len(l.alphas) }

// Position implements Enumerator.
func (l *List) Position() int { return l.pos }

// Reset implements Enumerator.
func (l *List) Reset() { l.pos = 0 }

// State implements Enumerator.
func (l *List) State() State { return State{Position: l.pos} }

// Restore implements Enumerator.
func (l *List) Restore(s State) error {
	if s.Position < 0 || s.Position > len(l.alphas) || len(s.Digits) != 0 {
		return ErrInvalidState
	}
	l.pos = s.Position
	return nil
}
