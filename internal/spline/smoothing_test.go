package spline

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func rms(c *Curve, x, y []float64) float64 {
	var sum float64
	for i := range x {
		d := c.At(x[i]) - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestFitInterpolatesWhenSmoothingIsOne(t *testing.T) {
	x := []float64{0, 1.5, 3, 7, 8, 12}
	y := []float64{0.2, 0.5, 0.1, 0.9, 0.7, 0.3}

	c, err := Fit(x, y, 1)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for i := range x {
		if got := c.At(x[i]); math.Abs(got-y[i]) > 1e-9 {
			t.Errorf("At(%v) = %v, want %v", x[i], got, y[i])
		}
	}
}

func TestFitReproducesLines(t *testing.T) {
	x := []float64{0, 2, 3, 7, 11, 12}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v + 1
	}

	for _, p := range []float64{0, 2e-3, 0.05, 0.5, 1} {
		c, err := Fit(x, y, p)
		if err != nil {
			t.Fatalf("Fit(p=%v): %v", p, err)
		}
		for _, q := range []float64{-10, 0, 1, 5.5, 12, 20} {
			if got, want := c.At(q), 2*q+1; math.Abs(got-want) > 1e-8 {
				t.Errorf("p=%v: At(%v) = %v, want %v", p, q, got, want)
			}
		}
	}
}

func TestFitZeroSmoothingIsLeastSquaresLine(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{0, 1, 0, 1, 0}

	c, err := Fit(x, y, 0)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	// The least-squares line through the zigzag is y = 0.4.
	for _, q := range []float64{0, 1.5, 4, 6} {
		if got := c.At(q); math.Abs(got-0.4) > 1e-9 {
			t.Errorf("At(%v) = %v, want 0.4", q, got)
		}
	}
}

func TestFitResidualShrinksWithWeight(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6}
	y := []float64{0, 1, 0, 1, 0, 1, 0}

	var prev = math.Inf(1)
	for _, p := range []float64{0, 0.1, 0.5, 0.9, 1} {
		c, err := Fit(x, y, p)
		if err != nil {
			t.Fatalf("Fit(p=%v): %v", p, err)
		}
		r := rms(c, x, y)
		if r > prev+1e-12 {
			t.Errorf("p=%v: residual %v grew from %v", p, r, prev)
		}
		prev = r
	}
	if prev > 1e-9 {
		t.Errorf("interpolating fit residual = %v, want 0", prev)
	}
}

// reinschValues solves (I + (1-p)/p Q R⁻¹ Qᵀ) f = y densely, giving the
// smoothed values at the knots.
func reinschValues(t *testing.T, x, y []float64, p float64) []float64 {
	t.Helper()
	n := len(x)
	m := n - 2
	h := make([]float64, n-1)
	for i := range h {
		h[i] = x[i+1] - x[i]
	}

	q := mat.NewDense(n, m, nil)
	r := mat.NewDense(m, m, nil)
	for j := 0; j < m; j++ {
		q.Set(j, j, 1/h[j])
		q.Set(j+1, j, -1/h[j]-1/h[j+1])
		q.Set(j+2, j, 1/h[j+1])
		r.Set(j, j, (h[j]+h[j+1])/3)
		if j+1 < m {
			r.Set(j, j+1, h[j+1]/6)
			r.Set(j+1, j, h[j+1]/6)
		}
	}

	var rq mat.Dense
	if err := rq.Solve(r, q.T()); err != nil {
		t.Fatalf("solve R: %v", err)
	}
	var a mat.Dense
	a.Mul(q, &rq)
	a.Scale((1-p)/p, &a)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}

	var f mat.VecDense
	if err := f.SolveVec(&a, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		t.Fatalf("solve smoother: %v", err)
	}
	return f.RawVector().Data
}

func TestFitMatchesReinschSmoother(t *testing.T) {
	x := []float64{0, 0.7, 2, 2.4, 5, 6.1, 9, 9.5, 13, 17}
	y := []float64{0.12, 0.4, 0.15, 0.3, 0.85, 0.7, 0.9, 0.55, 0.2, 0.35}

	for _, p := range []float64{2e-3, 0.05, 0.5, 0.9} {
		c, err := Fit(x, y, p)
		if err != nil {
			t.Fatalf("Fit(p=%v): %v", p, err)
		}
		want := reinschValues(t, x, y, p)
		for i := range x {
			if got := c.At(x[i]); math.Abs(got-want[i]) > 1e-9 {
				t.Errorf("p=%v: At(%v) = %.15g, want %.15g", p, x[i], got, want[i])
			}
		}
	}
}

func TestFitTwoPointsIsLinear(t *testing.T) {
	c, err := Fit([]float64{10, 20}, []float64{1, 3}, 0.5)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := c.At(15); math.Abs(got-2) > 1e-12 {
		t.Errorf("At(15) = %v, want 2", got)
	}
	if got := c.At(30); math.Abs(got-5) > 1e-12 {
		t.Errorf("At(30) = %v, want 5", got)
	}
}

func TestFitSmallSystems(t *testing.T) {
	// Three and four points exercise the narrow-band factorisations.
	for _, n := range []int{3, 4} {
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			x[i] = float64(i) * 3
			y[i] = math.Sin(x[i])
		}
		c, err := Fit(x, y, 0.3)
		if err != nil {
			t.Fatalf("n=%d: Fit: %v", n, err)
		}
		for _, v := range c.Eval([]float64{-1, 0, 2.5, 9}) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("n=%d: non-finite evaluation %v", n, v)
			}
		}
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name    string
		x, y    []float64
		p       float64
		wantErr error
	}{
		{"no samples", nil, nil, 0.5, ErrInsufficientData},
		{"one sample", []float64{1}, []float64{1}, 0.5, ErrInsufficientData},
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}, 0.5, ErrLengthMismatch},
		{"unsorted", []float64{1, 3, 2}, []float64{1, 2, 3}, 0.5, ErrUnsortedTimes},
		{"duplicate", []float64{1, 2, 2}, []float64{1, 2, 3}, 0.5, ErrUnsortedTimes},
		{"negative weight", []float64{1, 2, 3}, []float64{1, 2, 3}, -0.1, ErrSmoothingRange},
		{"weight above one", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.5, ErrSmoothingRange},
		{"nan value", []float64{1, 2, 3}, []float64{1, math.NaN(), 3}, 0.5, ErrDegenerateFit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.x, tt.y, tt.p)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCurveSpan(t *testing.T) {
	c, err := Fit([]float64{3, 4, 9}, []float64{1, 2, 1}, 0.5)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	first, last := c.Span()
	if first != 3 || last != 9 {
		t.Errorf("Span() = (%v, %v), want (3, 9)", first, last)
	}
}

func TestLinear(t *testing.T) {
	l, err := NewLinear([]float64{0, 10, 20}, []float64{0, 10, 0})
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}

	tests := []struct {
		at, want float64
	}{
		{0, 0},
		{5, 5},
		{10, 10},
		{15, 5},
		{20, 0},
		{-5, -5},
		{25, -5},
	}
	for _, tt := range tests {
		if got := l.At(tt.at); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	if _, err := NewLinear([]float64{1}, []float64{1}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("NewLinear with one point: error = %v, want %v", err, ErrInsufficientData)
	}
}

func TestPresetByName(t *testing.T) {
	tests := []struct {
		name string
		want float64
		ok   bool
	}{
		{"ndvi", 2e-3, true},
		{"NDVI", 2e-3, true},
		{"backscatter", 0.05, true},
		{"vh", 0.05, true},
		{"thermal", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PresetByName(tt.name)
			if tt.ok != (err == nil) {
				t.Fatalf("error = %v, ok = %v", err, tt.ok)
			}
			if tt.ok && p.Smoothing != tt.want {
				t.Errorf("Smoothing = %v, want %v", p.Smoothing, tt.want)
			}
		})
	}
}
