// Package grid describes the fixed analysis grid and drives per-cell
// computations across it.
package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShapeMismatch is returned when a mask or input array does not match
	// the grid dimensions.
	ErrShapeMismatch = errors.New("array shape does not match grid")
	// ErrInvalidGeometry is returned for inverted extents or bad steps.
	ErrInvalidGeometry = errors.New("invalid grid geometry")
)

// Geometry is a regular grid over a projected extent. Columns run east from
// XMin in XStep increments; rows run south from YMax in YStep (negative)
// increments. Cell i sits at row i/Cols, column i%Cols.
type Geometry struct {
	XMin  float64 `json:"x_min" msgpack:"x_min"`
	XMax  float64 `json:"x_max" msgpack:"x_max"`
	YMin  float64 `json:"y_min" msgpack:"y_min"`
	YMax  float64 `json:"y_max" msgpack:"y_max"`
	XStep float64 `json:"x_step" msgpack:"x_step"`
	YStep float64 `json:"y_step" msgpack:"y_step"`
}

// ReferenceGeometry is the 10 m grid of the reference deployment.
func ReferenceGeometry() Geometry {
	return Geometry{
		XMin:  743800,
		XMax:  756800,
		YMin:  9236000,
		YMax:  9251800,
		XStep: 10,
		YStep: -10,
	}
}

// NewGeometry validates and returns a geometry.
func NewGeometry(xmin, xmax, ymin, ymax, xstep, ystep float64) (Geometry, error) {
	g := Geometry{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax, XStep: xstep, YStep: ystep}
	return g, g.Validate()
}

// Validate checks the extent and steps.
func (g Geometry) Validate() error {
	switch {
	case !(g.XMax > g.XMin) || !(g.YMax > g.YMin):
		return fmt.Errorf("%w: extent x %v..%v y %v..%v", ErrInvalidGeometry, g.XMin, g.XMax, g.YMin, g.YMax)
	case !(g.XStep > 0):
		return fmt.Errorf("%w: x step %v must be positive", ErrInvalidGeometry, g.XStep)
	case !(g.YStep < 0):
		return fmt.Errorf("%w: y step %v must be negative", ErrInvalidGeometry, g.YStep)
	}
	if g.Rows() == 0 || g.Cols() == 0 {
		return fmt.Errorf("%w: empty grid", ErrInvalidGeometry)
	}
	return nil
}

// steps counts start, start+step, ... short of stop.
func steps(start, stop, step float64) int {
	n := math.Ceil((stop - start) / step)
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// Cols returns the number of columns. The end of each axis is padded by a
// tenth of a step, matching the resampler that produces the input cubes.
func (g Geometry) Cols() int {
	return steps(g.XMin, g.XMax+0.1*g.XStep, g.XStep)
}

// Rows returns the number of rows. Because YStep is negative the padding
// shortens the axis, so YMin itself is not a row when the extent is an exact
// multiple of the step.
func (g Geometry) Rows() int {
	return steps(g.YMax, g.YMin-0.1*g.YStep, g.YStep)
}

// Cells returns Rows*Cols.
func (g Geometry) Cells() int {
	return g.Rows() * g.Cols()
}

// Index returns the flat cell index of (row, col).
func (g Geometry) Index(row, col int) int {
	return row*g.Cols() + col
}

// RowCol splits a flat cell index.
func (g Geometry) RowCol(i int) (row, col int) {
	cols := g.Cols()
	return i / cols, i % cols
}

// Coord returns the projected coordinates of cell i.
func (g Geometry) Coord(i int) (x, y float64) {
	row, col := g.RowCol(i)
	return g.XMin + float64(col)*g.XStep, g.YMax + float64(row)*g.YStep
}

// Contains reports whether i is a valid cell index.
func (g Geometry) Contains(i int) bool {
	return i >= 0 && i < g.Cells()
}
