// Package spline fits cubic smoothing splines to irregularly sampled series.
//
// The fit minimises
//
//	p * sum (y_i - f(x_i))^2 + (1-p) * integral f''(t)^2 dt
//
// with unit weights, so p=1 yields the natural interpolating spline and p=0
// the least-squares straight line. The resulting Curve is piecewise cubic with
// breaks at the sample times and extrapolates with its end pieces.
package spline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientData is returned when fewer than two samples are supplied.
	ErrInsufficientData = errors.New("smoothing spline needs at least 2 distinct time points")
	// ErrLengthMismatch is returned when times and values differ in length.
	ErrLengthMismatch = errors.New("times and values have different lengths")
	// ErrUnsortedTimes is returned when times are not strictly increasing.
	ErrUnsortedTimes = errors.New("times must be strictly increasing")
	// ErrSmoothingRange is returned for a smoothing weight outside [0, 1].
	ErrSmoothingRange = errors.New("smoothing weight must be within [0, 1]")
	// ErrDegenerateFit is returned when the spline system cannot be solved
	// or the input holds non-finite values.
	ErrDegenerateFit = errors.New("degenerate smoothing spline fit")
)

// Curve is a fitted piecewise cubic. It is immutable and safe for concurrent use.
type Curve struct {
	breaks []float64
	// coeffs[i] holds (c3, c2, c1, c0) for the piece starting at breaks[i],
	// evaluated in h = t - breaks[i].
	coeffs [][4]float64
}

// Fit fits a smoothing spline with weight smoothing to the samples.
func Fit(times, values []float64, smoothing float64) (*Curve, error) {
	n := len(times)
	if n != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, n, len(values))
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, n)
	}
	if math.IsNaN(smoothing) || smoothing < 0 || smoothing > 1 {
		return nil, fmt.Errorf("%w: %v", ErrSmoothingRange, smoothing)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) || math.IsNaN(times[i]) || math.IsInf(times[i], 0) {
			return nil, fmt.Errorf("%w: non-finite sample at index %d", ErrDegenerateFit, i)
		}
		if i > 0 && !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("%w: index %d", ErrUnsortedTimes, i)
		}
	}

	breaks := make([]float64, n)
	copy(breaks, times)

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = times[i+1] - times[i]
	}

	if n == 2 {
		slope := (values[1] - values[0]) / dx[0]
		return &Curve{
			breaks: breaks,
			coeffs: [][4]float64{{0, 0, slope, values[0]}},
		}, nil
	}

	u, err := solveSecondDerivatives(dx, values, smoothing)
	if err != nil {
		return nil, err
	}

	p := smoothing
	pp := 6 * (1 - p)

	// Pad u with the natural end conditions.
	pu := make([]float64, n)
	for j, v := range u {
		pu[j+1] = v
	}

	// d1 = diff(pad(u)) / dx, d2 = diff(pad(d1)).
	d1 := make([]float64, n-1)
	for i := range d1 {
		d1[i] = (pu[i+1] - pu[i]) / dx[i]
	}
	yi := make([]float64, n)
	for i := 0; i < n; i++ {
		var prev, next float64
		if i > 0 {
			prev = d1[i-1]
		}
		if i < n-1 {
			next = d1[i]
		}
		yi[i] = values[i] - pp*(next-prev)
	}

	for i := range pu {
		pu[i] *= p
	}

	coeffs := make([][4]float64, n-1)
	for i := range coeffs {
		coeffs[i] = [4]float64{
			(pu[i+1] - pu[i]) / dx[i],
			3 * pu[i],
			(yi[i+1]-yi[i])/dx[i] - dx[i]*(2*pu[i]+pu[i+1]),
			yi[i],
		}
	}

	c := &Curve{breaks: breaks, coeffs: coeffs}
	for _, k := range coeffs {
		for _, v := range k {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite coefficient", ErrDegenerateFit)
			}
		}
	}
	return c, nil
}

// solveSecondDerivatives solves (6(1-p) QᵀQ + p R) u = Qᵀy for the interior
// knots. The system is symmetric positive definite and pentadiagonal.
func solveSecondDerivatives(dx, y []float64, p float64) ([]float64, error) {
	n := len(y)
	m := n - 2
	pp := 6 * (1 - p)

	rdx := make([]float64, len(dx))
	for i, h := range dx {
		rdx[i] = 1 / h
	}

	k := 2
	if m-1 < k {
		k = m - 1
	}
	a := mat.NewSymBandDense(m, k, nil)
	b := mat.NewVecDense(m, nil)

	for j := 0; j < m; j++ {
		// Row j of Qᵀ has rdx[j], -(rdx[j]+rdx[j+1]), rdx[j+1] at columns j..j+2.
		mid := rdx[j] + rdx[j+1]
		a.SetSymBand(j, j, pp*(rdx[j]*rdx[j]+mid*mid+rdx[j+1]*rdx[j+1])+p*2*(dx[j]+dx[j+1]))
		if j+1 < m {
			next := rdx[j+1] + rdx[j+2]
			a.SetSymBand(j, j+1, pp*(-mid*rdx[j+1]-rdx[j+1]*next)+p*dx[j+1])
		}
		if j+2 < m {
			a.SetSymBand(j, j+2, pp*rdx[j+1]*rdx[j+2])
		}
		b.SetVec(j, (y[j+2]-y[j+1])*rdx[j+1]-(y[j+1]-y[j])*rdx[j])
	}

	var chol mat.BandCholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: system is not positive definite", ErrDegenerateFit)
	}
	var u mat.VecDense
	if err := chol.SolveVecTo(&u, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}
	return u.RawVector().Data, nil
}

// At evaluates the curve at t. Points outside the sample range are
// extrapolated from the first or last piece.
func (c *Curve) At(t float64) float64 {
	i := sort.Search(len(c.breaks), func(k int) bool { return c.breaks[k] > t }) - 1
	if i < 0 {
		i = 0
	}
	if last := len(c.coeffs) - 1; i > last {
		i = last
	}
	h := t - c.breaks[i]
	k := c.coeffs[i]
	return ((k[0]*h+k[1])*h+k[2])*h + k[3]
}

// Eval evaluates the curve at every point of ts.
func (c *Curve) Eval(ts []float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = c.At(t)
	}
	return out
}

// Span returns the first and last break of the fitted range.
func (c *Curve) Span() (first, last float64) {
	return c.breaks[0], c.breaks[len(c.breaks)-1]
}
