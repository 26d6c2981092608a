package cube

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/timeseries"
)

// ErrInconsistentTimestamps is returned when band groups that must share
// acquisition dates do not.
var ErrInconsistentTimestamps = errors.New("band groups have different acquisition dates")

// Stack is a time-major series cube: Values[k][cell] is acquisition k at
// cell. Dates are strictly increasing.
type Stack struct {
	Dates  []time.Time
	Times  []float64
	Rows   int
	Cols   int
	Values [][]float32
}

// Series returns the samples of one cell. Invalid observations are NaN.
func (s *Stack) Series(cell int) timeseries.Series {
	v := make([]float64, len(s.Values))
	for k, layer := range s.Values {
		v[k] = float64(layer[cell])
	}
	return timeseries.Series{Times: s.Times, Values: v}
}

// Check verifies the stack covers g.
func (s *Stack) Check(g grid.Geometry) error {
	if s.Rows != g.Rows() || s.Cols != g.Cols() {
		return fmt.Errorf("%w: stack %dx%d, grid %dx%d", grid.ErrShapeMismatch, s.Rows, s.Cols, g.Rows(), g.Cols())
	}
	return nil
}

// Span returns the first and last day number.
func (s *Stack) Span() (first, last float64) {
	return s.Times[0], s.Times[len(s.Times)-1]
}

type layer struct {
	date time.Time
	data []float32
}

// sortLayers orders layers by date and rejects repeated dates.
func sortLayers(layers []layer) error {
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].date.Before(layers[j].date) })
	for i := 1; i < len(layers); i++ {
		if !layers[i].date.After(layers[i-1].date) {
			return fmt.Errorf("%w: %s acquired twice", ErrInconsistentTimestamps, layers[i].date.Format(timeseries.DateLayout))
		}
	}
	return nil
}

func newStack(f *File, dates []time.Time, values [][]float32) *Stack {
	times := make([]float64, len(dates))
	for i, d := range dates {
		times[i] = timeseries.DayNumber(d)
	}
	return &Stack{Dates: dates, Times: times, Rows: f.Rows, Cols: f.Cols, Values: values}
}

// NDVIOptions selects the optical bands and the scene-classification filter.
type NDVIOptions struct {
	Red   int
	NIR   int
	Class int
	// Scale converts stored reflectance to unit reflectance.
	Scale float64
	// A sample is valid when ClassMin <= class <= ClassMax.
	ClassMin float64
	ClassMax float64
}

// DefaultNDVIOptions matches Sentinel-2 L2A: B04, B08 and the SCL band,
// keeping vegetation, bare soil, water and unclassified pixels.
func DefaultNDVIOptions() NDVIOptions {
	return NDVIOptions{Red: 4, NIR: 8, Class: 17, Scale: 1e-4, ClassMin: 3.9, ClassMax: 7.1}
}

// BuildNDVI groups optical bands by number, checks every group was acquired
// on the same dates, and computes NDVI with cloudy samples set to NaN.
func BuildNDVI(f *File, opts NDVIOptions) (*Stack, error) {
	groups := map[int][]layer{opts.Red: nil, opts.NIR: nil, opts.Class: nil}
	for _, b := range f.Bands {
		desc, err := ParseDescriptor(b.Name)
		if err != nil {
			return nil, err
		}
		if _, ok := groups[desc.Number]; ok {
			groups[desc.Number] = append(groups[desc.Number], layer{date: desc.Date, data: b.Data})
		}
	}

	for _, n := range []int{opts.Red, opts.NIR, opts.Class} {
		if len(groups[n]) == 0 {
			return nil, fmt.Errorf("%w: band %d", ErrNoAcquisitions, n)
		}
		if err := sortLayers(groups[n]); err != nil {
			return nil, fmt.Errorf("band %d: %w", n, err)
		}
	}

	red, nir, class := groups[opts.Red], groups[opts.NIR], groups[opts.Class]
	for _, g := range [][]layer{nir, class} {
		if len(g) != len(red) {
			return nil, fmt.Errorf("%w: %d vs %d acquisitions", ErrInconsistentTimestamps, len(g), len(red))
		}
		for k := range g {
			if !g[k].date.Equal(red[k].date) {
				return nil, fmt.Errorf("%w: %s vs %s", ErrInconsistentTimestamps,
					g[k].date.Format(timeseries.DateLayout), red[k].date.Format(timeseries.DateLayout))
			}
		}
	}

	nan := float32(math.NaN())
	dates := make([]time.Time, len(red))
	values := make([][]float32, len(red))
	for k := range red {
		dates[k] = red[k].date
		out := make([]float32, f.Rows*f.Cols)
		for i := range out {
			scl := float64(class[k].data[i])
			if !(scl >= opts.ClassMin && scl <= opts.ClassMax) {
				out[i] = nan
				continue
			}
			r := float64(red[k].data[i]) * opts.Scale
			n := float64(nir[k].data[i]) * opts.Scale
			out[i] = float32((n - r) / (n + r))
		}
		values[k] = out
	}
	return newStack(f, dates, values), nil
}

// BuildBackscatter keeps the bands acquired within period days up to and
// including end.
func BuildBackscatter(f *File, end time.Time, period int) (*Stack, error) {
	start := end.AddDate(0, 0, -period)
	var layers []layer
	for _, b := range f.Bands {
		desc, err := ParseDescriptor(b.Name)
		if err != nil {
			return nil, err
		}
		if desc.Date.Before(start) || desc.Date.After(end) {
			continue
		}
		layers = append(layers, layer{date: desc.Date, data: b.Data})
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoAcquisitions,
			start.Format(timeseries.DateLayout), end.Format(timeseries.DateLayout))
	}
	if err := sortLayers(layers); err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(layers))
	values := make([][]float32, len(layers))
	for k, l := range layers {
		dates[k] = l.date
		values[k] = l.data
	}
	return newStack(f, dates, values), nil
}
