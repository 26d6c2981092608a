// Package phenology locates extrema on fitted vegetation curves and derives
// the per-cell feature records written by both analysis variants.
package phenology

import (
	"errors"
	"math"
)

// ErrEmptyWindow is returned when the query grid restricted to the analysis
// window holds no points. It indicates a configuration error.
var ErrEmptyWindow = errors.New("analysis window contains no query points")

// Curve is anything evaluable at a day number, typically a *spline.Curve.
type Curve interface {
	At(t float64) float64
}

// Kind selects which extremum to locate.
type Kind int

const (
	Minimum Kind = iota
	Maximum
)

func (k Kind) String() string {
	if k == Maximum {
		return "maximum"
	}
	return "minimum"
}

// EdgeFlag records where a located point sits in its search range.
type EdgeFlag int

const (
	// NotComputed marks a field of a sentinel record
	NotComputed EdgeFlag = -1
	// Interior means the point lies strictly inside the search range
	Interior EdgeFlag = 0
	// LeftEdge means the point is the first of the range, so the true extremum
	// may lie earlier
	LeftEdge EdgeFlag = 1
	// RightEdge means the point is the last of the range
	RightEdge EdgeFlag = 2
)

// EdgeOf classifies index i of a range of length n. A one-point range is a
// left edge.
func EdgeOf(i, n int) EdgeFlag {
	switch {
	case i < 0 || n <= 0:
		return NotComputed
	case i == 0:
		return LeftEdge
	case i == n-1:
		return RightEdge
	default:
		return Interior
	}
}

// Extremum is a located minimum or maximum. Index is relative to the range
// that was searched.
type Extremum struct {
	Index int
	Time  float64
	Value float64
	Edge  EdgeFlag
}

// missingExtremum is returned when no candidate is eligible.
func missingExtremum() Extremum {
	return Extremum{Index: -1, Time: math.NaN(), Value: math.NaN(), Edge: NotComputed}
}

// Profile is a curve evaluated on an ascending query grid.
type Profile struct {
	Times  []float64
	Values []float64
}

// Sample evaluates c at every query time.
func Sample(c Curve, query []float64) (Profile, error) {
	if len(query) == 0 {
		return Profile{}, ErrEmptyWindow
	}
	values := make([]float64, len(query))
	for i, t := range query {
		values[i] = c.At(t)
	}
	return Profile{Times: query, Values: values}, nil
}

// Len returns the number of query points.
func (p Profile) Len() int {
	return len(p.Times)
}

// extremum builds the result for index i of the profile.
func (p Profile) extremum(i int) Extremum {
	if i < 0 {
		return missingExtremum()
	}
	return Extremum{Index: i, Time: p.Times[i], Value: p.Values[i], Edge: EdgeOf(i, len(p.Times))}
}

// selectIndex returns the index of the smallest (Minimum) or largest
// (Maximum) eligible value, or -1 when nothing qualifies. NaN values are never
// selected and ties resolve to the lowest index. A nil eligible admits every
// point.
func selectIndex(values []float64, kind Kind, eligible func(i int) bool) int {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) || (eligible != nil && !eligible(i)) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		if (kind == Minimum && v < values[best]) || (kind == Maximum && v > values[best]) {
			best = i
		}
	}
	return best
}

// Locate finds the global extremum of the profile.
func (p Profile) Locate(kind Kind) Extremum {
	return p.extremum(selectIndex(p.Values, kind, nil))
}

// Locate evaluates c over query and returns its global extremum. The edge
// flag reports whether the point is the first or last query time.
func Locate(c Curve, query []float64, kind Kind) (Extremum, error) {
	p, err := Sample(c, query)
	if err != nil {
		return Extremum{}, err
	}
	return p.Locate(kind), nil
}
