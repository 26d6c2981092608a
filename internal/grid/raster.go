package grid

import (
	"fmt"
	"math"
)

// Raster is a band-major float32 array laid out as (band, row, col).
type Raster struct {
	Bands []string
	Rows  int
	Cols  int
	Data  []float32
}

// NewRaster allocates a raster filled with NaN.
func NewRaster(bands []string, rows, cols int) *Raster {
	data := make([]float32, len(bands)*rows*cols)
	nan := float32(math.NaN())
	for i := range data {
		data[i] = nan
	}
	return &Raster{Bands: bands, Rows: rows, Cols: cols, Data: data}
}

// Shape returns (bands, rows, cols).
func (r *Raster) Shape() (int, int, int) {
	return len(r.Bands), r.Rows, r.Cols
}

// Band returns the backing slice of band b.
func (r *Raster) Band(b int) []float32 {
	n := r.Rows * r.Cols
	return r.Data[b*n : (b+1)*n]
}

// At returns the value of band b at (row, col).
func (r *Raster) At(b, row, col int) float32 {
	return r.Data[(b*r.Rows+row)*r.Cols+col]
}

// SetCell writes one value per band into cell i.
func (r *Raster) SetCell(i int, values []float64) error {
	if len(values) != len(r.Bands) {
		return fmt.Errorf("%w: %d values for %d bands", ErrShapeMismatch, len(values), len(r.Bands))
	}
	n := r.Rows * r.Cols
	for b, v := range values {
		r.Data[b*n+i] = float32(v)
	}
	return nil
}

// Cell reads every band of cell i.
func (r *Raster) Cell(i int) []float64 {
	n := r.Rows * r.Cols
	out := make([]float64, len(r.Bands))
	for b := range out {
		out[b] = float64(r.Data[b*n+i])
	}
	return out
}
