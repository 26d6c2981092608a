package grid

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrissnell/phenotrack/internal/metrics"
	"github.com/chrissnell/phenotrack/internal/timeseries"
	"go.uber.org/zap"
)

// DefaultMinSamples is the fewest valid samples a cell needs to be fitted.
const DefaultMinSamples = 5

// Source hands out the raw time series of a cell. Implementations must be
// safe for concurrent reads.
type Source interface {
	Series(cell int) timeseries.Series
}

// Kernel computes the record for one cell from its valid samples. An error
// is terminal for that cell only.
type Kernel[T any] func(cell int, s timeseries.Series) (T, error)

// Options controls a Driver run.
type Options struct {
	// Variant labels logs and metrics.
	Variant string
	// Workers is the number of goroutines; zero means GOMAXPROCS.
	Workers int
	// MinSamples gates cells with too few valid samples.
	MinSamples int
	// ProgressInterval logs every cell whose index is a multiple of it.
	// Zero disables progress logging.
	ProgressInterval int
	// Cells restricts the run to these cell indices, in this order.
	Cells []int
}

// Stats counts cell outcomes of a run.
type Stats struct {
	Computed     int64
	Masked       int64
	Insufficient int64
	Failed       int64
	Elapsed      time.Duration
}

// Total returns the number of cells visited.
func (s Stats) Total() int64 {
	return s.Computed + s.Masked + s.Insufficient + s.Failed
}

// Result holds one record per visited cell. Records[k] belongs to Cells[k].
type Result[T any] struct {
	Cells   []int
	Records []T
	Stats   Stats
}

// Driver applies a kernel to every cell of a grid.
type Driver[T any] struct {
	geom     Geometry
	mask     *Mask
	source   Source
	kernel   Kernel[T]
	sentinel func() T
	opts     Options
	logger   *zap.SugaredLogger
}

// NewDriver checks the mask and the cell subset against geom. sentinel
// builds the record stored for skipped or failed cells.
func NewDriver[T any](geom Geometry, mask *Mask, source Source, kernel Kernel[T], sentinel func() T, opts Options, logger *zap.SugaredLogger) (*Driver[T], error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if err := mask.Check(geom); err != nil {
		return nil, err
	}
	for _, c := range opts.Cells {
		if !geom.Contains(c) {
			return nil, fmt.Errorf("cell index %d outside grid of %d cells", c, geom.Cells())
		}
	}
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver[T]{
		geom:     geom,
		mask:     mask,
		source:   source,
		kernel:   kernel,
		sentinel: sentinel,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Run visits every selected cell. Workers own contiguous ranges of the work
// list and write into disjoint slots, so the result does not depend on
// scheduling. Cancellation is checked between cells.
func (d *Driver[T]) Run(ctx context.Context) (*Result[T], error) {
	cells := d.opts.Cells
	if cells == nil {
		cells = make([]int, d.geom.Cells())
		for i := range cells {
			cells[i] = i
		}
	}

	res := &Result[T]{
		Cells:   cells,
		Records: make([]T, len(cells)),
	}

	workers := d.opts.Workers
	if workers > len(cells) {
		workers = len(cells)
	}
	if workers == 0 {
		return res, nil
	}
	chunk := (len(cells) + workers - 1) / workers

	var (
		computed, masked, insufficient, failed, done atomic.Int64
		wg                                           sync.WaitGroup
	)
	progress := metrics.ProgressCells.WithLabelValues(d.opts.Variant)
	progress.Set(0)

	start := time.Now()
	d.logger.Infow("grid run starting", "variant", d.opts.Variant, "cells", len(cells), "workers", workers)

	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(cells) {
			hi = len(cells)
		}
		if lo >= hi {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for k := lo; k < hi; k++ {
				if ctx.Err() != nil {
					return
				}
				cell := cells[k]
				if d.opts.ProgressInterval > 0 && cell%d.opts.ProgressInterval == 0 {
					d.logger.Infow("progress", "variant", d.opts.Variant, "cell", cell, "total", d.geom.Cells())
				}

				var status string
				res.Records[k], status = d.visit(cell)
				switch status {
				case metrics.StatusComputed:
					computed.Add(1)
				case metrics.StatusMasked:
					masked.Add(1)
				case metrics.StatusInsufficient:
					insufficient.Add(1)
				default:
					failed.Add(1)
				}
				metrics.CellsTotal.WithLabelValues(d.opts.Variant, status).Inc()
				progress.Set(float64(done.Add(1)))
			}
		}(lo, hi)
	}
	wg.Wait()

	res.Stats = Stats{
		Computed:     computed.Load(),
		Masked:       masked.Load(),
		Insufficient: insufficient.Load(),
		Failed:       failed.Load(),
		Elapsed:      time.Since(start),
	}
	metrics.RunDuration.WithLabelValues(d.opts.Variant).Observe(res.Stats.Elapsed.Seconds())

	if err := ctx.Err(); err != nil {
		d.logger.Warnw("grid run cancelled", "variant", d.opts.Variant, "visited", res.Stats.Total(), "cells", len(cells))
		return nil, err
	}

	d.logger.Infow("grid run finished",
		"variant", d.opts.Variant,
		"computed", res.Stats.Computed,
		"masked", res.Stats.Masked,
		"insufficient", res.Stats.Insufficient,
		"failed", res.Stats.Failed,
		"elapsed", res.Stats.Elapsed)
	return res, nil
}

func (d *Driver[T]) visit(cell int) (T, string) {
	if !d.mask.Allowed(cell) {
		return d.sentinel(), metrics.StatusMasked
	}
	s := d.source.Series(cell)
	if s.ValidCount() < d.opts.MinSamples {
		return d.sentinel(), metrics.StatusInsufficient
	}
	rec, err := d.kernel(cell, s.Valid())
	if err != nil {
		d.logger.Debugw("cell failed", "variant", d.opts.Variant, "cell", cell, "error", err)
		return d.sentinel(), metrics.StatusFailed
	}
	return rec, metrics.StatusComputed
}

// Assemble scatters records into a (band, row, col) raster. Cells outside
// the result keep NaN.
func Assemble[T any](geom Geometry, res *Result[T], bands []string, values func(T) []float64) (*Raster, error) {
	r := NewRaster(bands, geom.Rows(), geom.Cols())
	for k, cell := range res.Cells {
		if err := r.SetCell(cell, values(res.Records[k])); err != nil {
			return nil, err
		}
	}
	return r, nil
}
