package phenology

import "math"

// Boundary is the point where the curve first climbs back above a threshold
// moving outward from a minimum. Flag is Interior for a true crossing, or
// LeftEdge/RightEdge when no crossing exists and the boundary collapsed onto
// the end of the query range.
type Boundary struct {
	Index int
	Time  float64
	Value float64
	Flag  EdgeFlag
}

// Sides brackets a minimum with the highest points before and after it and
// with the threshold crossings on either side.
type Sides struct {
	LeftPeak      Extremum
	RightPeak     Extremum
	LeftBoundary  Boundary
	RightBoundary Boundary
}

func missingBoundary() Boundary {
	return Boundary{Index: -1, Time: math.NaN(), Value: math.NaN(), Flag: NotComputed}
}

func missingSides() Sides {
	return Sides{
		LeftPeak:      missingExtremum(),
		RightPeak:     missingExtremum(),
		LeftBoundary:  missingBoundary(),
		RightBoundary: missingBoundary(),
	}
}

func (p Profile) boundary(i int, flag EdgeFlag) Boundary {
	return Boundary{Index: i, Time: p.Times[i], Value: p.Values[i], Flag: flag}
}

// Sides searches both sides of dip, which must have been located on this
// profile. Peaks are chosen among points at or before (after) dip.Time, with
// indices and edge flags relative to the whole profile. Boundaries are the
// nearest points to dip with a value of at least dip.Value+spread.
func (p Profile) Sides(dip Extremum, spread float64) Sides {
	n := len(p.Times)
	if n == 0 || dip.Index < 0 || math.IsNaN(dip.Time) {
		return missingSides()
	}

	var s Sides
	s.LeftPeak = p.extremum(selectIndex(p.Values, Maximum, func(i int) bool {
		return p.Times[i] <= dip.Time
	}))
	s.RightPeak = p.extremum(selectIndex(p.Values, Maximum, func(i int) bool {
		return p.Times[i] >= dip.Time
	}))

	threshold := dip.Value + spread
	s.LeftBoundary = p.boundary(0, LeftEdge)
	for i := n - 1; i >= 0; i-- {
		if p.Times[i] < dip.Time && p.Values[i] >= threshold {
			s.LeftBoundary = p.boundary(i, Interior)
			break
		}
	}
	s.RightBoundary = p.boundary(n-1, RightEdge)
	for i := 0; i < n; i++ {
		if p.Times[i] > dip.Time && p.Values[i] >= threshold {
			s.RightBoundary = p.boundary(i, Interior)
			break
		}
	}
	return s
}

// SearchSides evaluates c over query and searches either side of dip. spread
// is normally the fit residual standard deviation.
func SearchSides(c Curve, query []float64, dip Extremum, spread float64) (Sides, error) {
	p, err := Sample(c, query)
	if err != nil {
		return Sides{}, err
	}
	return p.Sides(dip, spread), nil
}
