// Package timeseries holds the per-cell sample series handed to the fitter,
// plus day-number and query-grid helpers shared by both analysis variants.
package timeseries

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is returned when times and values differ in length.
	ErrLengthMismatch = errors.New("times and values have different lengths")
	// ErrUnsortedTimes is returned when timestamps are not strictly increasing.
	ErrUnsortedTimes = errors.New("timestamps are not strictly increasing")
)

// Series is an ordered set of (day number, value) samples for one grid cell.
// Values may be NaN to mark an invalid observation.
type Series struct {
	Times  []float64
	Values []float64
}

// New validates and wraps parallel time/value slices. The slices are not copied.
func New(times, values []float64) (Series, error) {
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return Series{}, fmt.Errorf("%w at index %d (%v after %v)", ErrUnsortedTimes, i, times[i], times[i-1])
		}
	}
	return Series{Times: times, Values: values}, nil
}

// Len returns the number of samples, valid or not.
func (s Series) Len() int {
	return len(s.Times)
}

// ValidCount returns the number of samples with a finite value.
func (s Series) ValidCount() int {
	n := 0
	for _, v := range s.Values {
		if isValid(v) {
			n++
		}
	}
	return n
}

// Valid returns a new series without the invalid samples.
func (s Series) Valid() Series {
	n := s.ValidCount()
	if n == len(s.Values) {
		return s
	}
	out := Series{
		Times:  make([]float64, 0, n),
		Values: make([]float64, 0, n),
	}
	for i, v := range s.Values {
		if isValid(v) {
			out.Times = append(out.Times, s.Times[i])
			out.Values = append(out.Values, v)
		}
	}
	return out
}

// Span returns the first and last sample time. Both are NaN for an empty series.
func (s Series) Span() (first, last float64) {
	if len(s.Times) == 0 {
		return math.NaN(), math.NaN()
	}
	return s.Times[0], s.Times[len(s.Times)-1]
}

func isValid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
