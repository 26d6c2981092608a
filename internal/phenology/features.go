package phenology

import (
	"math"

	"github.com/chrissnell/phenotrack/internal/spline"
	"github.com/chrissnell/phenotrack/internal/timeseries"
	"gonum.org/v1/gonum/stat"
)

// SentinelCount is the sample count written for cells that were not computed.
const SentinelCount = 1

// FeatureNames lists the columns of FeatureVector.Values in order.
var FeatureNames = []string{
	"ndat",
	"tmin", "vmin", "fmin",
	"tlft", "vlft", "flft",
	"trgt", "vrgt", "frgt",
	"dmin", "dstd",
	"tleg", "fleg",
	"treg", "freg",
	"sstd", "scor",
	"traw", "vraw", "fraw",
	"draw", "rstd", "rcor",
	"bavg", "bstd",
}

// FeatureVector summarises one cell's backscatter series around its deepest
// dip. Fields that could not be computed hold NaN, flags hold NotComputed.
type FeatureVector struct {
	// Count is the number of valid samples, or SentinelCount.
	Count int

	Min       Extremum
	LeftPeak  Extremum
	RightPeak Extremum

	// Depth is the fitted minimum less the linear interpolant of the raw
	// samples at the same time.
	Depth float64
	// ResidualStd is the RMS difference between fit and raw samples.
	ResidualStd float64

	LeftBoundary  Boundary
	RightBoundary Boundary

	CurveStd  float64
	CurveCorr float64

	// RawMin is located by raw sample index.
	RawMin   Extremum
	RawDepth float64
	RawStd   float64
	RawCorr  float64

	BaselineMean float64
	BaselineStd  float64
}

// SentinelFeatures returns the record written for skipped or failed cells.
func SentinelFeatures() FeatureVector {
	nan := math.NaN()
	return FeatureVector{
		Count:         SentinelCount,
		Min:           missingExtremum(),
		LeftPeak:      missingExtremum(),
		RightPeak:     missingExtremum(),
		Depth:         nan,
		ResidualStd:   nan,
		LeftBoundary:  missingBoundary(),
		RightBoundary: missingBoundary(),
		CurveStd:      nan,
		CurveCorr:     nan,
		RawMin:        missingExtremum(),
		RawDepth:      nan,
		RawStd:        nan,
		RawCorr:       nan,
		BaselineMean:  nan,
		BaselineStd:   nan,
	}
}

// Computed reports whether the vector carries a located minimum.
func (f FeatureVector) Computed() bool {
	return f.Min.Edge != NotComputed
}

// Values flattens the vector in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		float64(f.Count),
		f.Min.Time, f.Min.Value, float64(f.Min.Edge),
		f.LeftPeak.Time, f.LeftPeak.Value, float64(f.LeftPeak.Edge),
		f.RightPeak.Time, f.RightPeak.Value, float64(f.RightPeak.Edge),
		f.Depth, f.ResidualStd,
		f.LeftBoundary.Time, float64(f.LeftBoundary.Flag),
		f.RightBoundary.Time, float64(f.RightBoundary.Flag),
		f.CurveStd, f.CurveCorr,
		f.RawMin.Time, f.RawMin.Value, float64(f.RawMin.Edge),
		f.RawDepth, f.RawStd, f.RawCorr,
		f.BaselineMean, f.BaselineStd,
	}
}

// AggregateParams tunes the feature aggregator.
type AggregateParams struct {
	// SignalHalfWidth excludes samples within this many days of the fitted
	// minimum from the baseline statistics.
	SignalHalfWidth float64
}

// Aggregate derives the full feature vector for one cell. s must hold only
// valid samples; query is the dense grid over the analysis window.
func Aggregate(c Curve, s timeseries.Series, query []float64, params AggregateParams) (FeatureVector, error) {
	prof, err := Sample(c, query)
	if err != nil {
		return FeatureVector{}, err
	}

	f := SentinelFeatures()
	f.Count = s.Len()
	if s.Len() == 0 {
		return f, nil
	}

	f.Min = prof.Locate(Minimum)

	fitted := make([]float64, s.Len())
	var ss float64
	for i, t := range s.Times {
		fitted[i] = c.At(t)
		d := fitted[i] - s.Values[i]
		ss += d * d
	}
	f.ResidualStd = math.Sqrt(ss / float64(s.Len()))

	if lin, err := spline.NewLinear(s.Times, s.Values); err == nil && f.Min.Index >= 0 {
		f.Depth = f.Min.Value - lin.At(f.Min.Time)
	}

	sides := prof.Sides(f.Min, f.ResidualStd)
	f.LeftPeak = sides.LeftPeak
	f.RightPeak = sides.RightPeak
	f.LeftBoundary = sides.LeftBoundary
	f.RightBoundary = sides.RightBoundary

	f.CurveStd = stat.PopStdDev(prof.Values, nil)
	f.CurveCorr = stat.Correlation(prof.Times, prof.Values, nil)

	if i := selectIndex(s.Values, Minimum, nil); i >= 0 {
		f.RawMin = Extremum{Index: i, Time: s.Times[i], Value: s.Values[i], Edge: EdgeOf(i, s.Len())}
		f.RawDepth = fitted[i] - s.Values[i]
	}
	f.RawStd = stat.PopStdDev(s.Values, nil)
	f.RawCorr = stat.Correlation(s.Times, s.Values, nil)

	var baseline []float64
	for i, t := range s.Times {
		if math.Abs(t-f.Min.Time) > params.SignalHalfWidth {
			baseline = append(baseline, s.Values[i])
		}
	}
	if len(baseline) > 0 {
		f.BaselineMean, f.BaselineStd = stat.PopMeanStdDev(baseline, nil)
	}
	return f, nil
}
