package spline

import (
	"fmt"
	"sort"
)

// Linear is the degree-1 interpolant through a set of samples. Outside the
// sample range it extends the first or last segment.
type Linear struct {
	x, y []float64
}

// NewLinear builds a linear interpolant. x must be strictly increasing.
func NewLinear(x, y []float64) (*Linear, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x, %d y", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(x))
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, fmt.Errorf("%w: index %d", ErrUnsortedTimes, i)
		}
	}
	return &Linear{x: x, y: y}, nil
}

// At evaluates the interpolant at t.
func (l *Linear) At(t float64) float64 {
	i := sort.Search(len(l.x), func(k int) bool { return l.x[k] > t }) - 1
	if i < 0 {
		i = 0
	}
	if i > len(l.x)-2 {
		i = len(l.x) - 2
	}
	slope := (l.y[i+1] - l.y[i]) / (l.x[i+1] - l.x[i])
	return l.y[i] + slope*(t-l.x[i])
}
