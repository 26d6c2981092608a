// Package app runs the two grid analyses end to end: load a cube, fit every
// cell, and hand the result set to the configured stores.
package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrissnell/phenotrack/internal/cube"
	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/managers"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/spline"
	"github.com/chrissnell/phenotrack/internal/storage"
	"github.com/chrissnell/phenotrack/internal/timeseries"
	"github.com/chrissnell/phenotrack/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{cfg: cfg, logger: logger}
}

// PeaksJob describes one planting/heading run over an optical cube.
type PeaksJob struct {
	CubePath string
	MaskPath string
	// Start and End bound the analysis window, exclusive. Zero values use
	// the first and last acquisition.
	Start time.Time
	End   time.Time
	Cells []int
}

// TransplantJob describes one transplanting-date run over a backscatter cube.
type TransplantJob struct {
	CubePath string
	MaskPath string
	// End is the last acquisition date considered; PeriodDays reaches back
	// from it. Zero values fall back to the configuration.
	End        time.Time
	PeriodDays int
	Cells      []int
}

// WithSignals returns a context cancelled on SIGINT or SIGTERM.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *App) geometry() (grid.Geometry, error) {
	g := a.cfg.Grid
	return grid.NewGeometry(g.XMin, g.XMax, g.YMin, g.YMax, g.XStep, g.YStep)
}

// load reads the cube and optional mask and checks both against the grid.
func (a *App) load(cubePath, maskPath string) (grid.Geometry, *cube.File, *grid.Mask, error) {
	geom, err := a.geometry()
	if err != nil {
		return geom, nil, nil, err
	}
	a.logger.Infof("loading cube %s", cubePath)
	f, err := cube.Load(cubePath)
	if err != nil {
		return geom, nil, nil, err
	}
	if err := f.Check(geom); err != nil {
		return geom, nil, nil, err
	}

	var mask *grid.Mask
	if maskPath != "" {
		mask, err = cube.LoadMask(maskPath)
		if err != nil {
			return geom, nil, nil, err
		}
		if err := mask.Check(geom); err != nil {
			return geom, nil, nil, fmt.Errorf("mask %s: %w", maskPath, err)
		}
		a.logger.Infof("mask admits %d of %d cells", mask.Count(), geom.Cells())
	}
	return geom, f, mask, nil
}

func (a *App) options(variant storage.Variant, cells []int) grid.Options {
	return grid.Options{
		Variant:          string(variant),
		Workers:          a.cfg.Analysis.Workers,
		MinSamples:       a.cfg.Analysis.MinSamples,
		ProgressInterval: a.cfg.Analysis.ProgressInterval,
		Cells:            cells,
	}
}

// PeaksWindow builds the daily query grid over the acquisitions and keeps
// the points strictly inside (start, end).
func PeaksWindow(first, last, step, start, end float64) ([]float64, error) {
	query := timeseries.UniformGrid(math.Floor(first), math.Ceil(last)+0.1*step, step)
	window := timeseries.Between(query, start, end)
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: (%v, %v)", phenology.ErrEmptyWindow, start, end)
	}
	return window, nil
}

// RunPeaks locates planting and heading stages in every cell.
func (a *App) RunPeaks(ctx context.Context, job PeaksJob) (*storage.PeaksResult, error) {
	geom, f, mask, err := a.load(job.CubePath, job.MaskPath)
	if err != nil {
		return nil, err
	}

	p := a.cfg.Peaks
	stack, err := cube.BuildNDVI(f, cube.NDVIOptions{
		Red:      p.RedBand,
		NIR:      p.NIRBand,
		Class:    p.SCLBand,
		Scale:    p.Scale,
		ClassMin: p.SCLMin,
		ClassMax: p.SCLMax,
	})
	if err != nil {
		return nil, err
	}

	first, last := stack.Span()
	start, end := first, last
	if !job.Start.IsZero() {
		start = timeseries.DayNumber(job.Start)
	}
	if !job.End.IsZero() {
		end = timeseries.DayNumber(job.End)
	}
	window, err := PeaksWindow(first, last, p.GridStep, start, end)
	if err != nil {
		return nil, err
	}
	a.logger.Infow("peaks window",
		"acquisitions", len(stack.Times), "start", start, "end", end, "points", len(window))

	preset := spline.PresetNDVI.WithSmoothing(a.cfg.Smoothing.NDVI)
	kernel := func(cell int, s timeseries.Series) (phenology.Peaks, error) {
		c, err := preset.Fit(s.Times, s.Values)
		if err != nil {
			return phenology.Peaks{}, err
		}
		return phenology.ExtractPeaks(c, window)
	}

	d, err := grid.NewDriver(geom, mask, stack, kernel, phenology.SentinelPeaks, a.options(storage.VariantPeaks, job.Cells), a.logger)
	if err != nil {
		return nil, err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(storage.VariantPeaks, job.CubePath)
	run.WindowStart, run.WindowEnd = start, end
	run.Acquisitions = len(stack.Times)
	run.Geometry = geom

	out := &storage.PeaksResult{Run: run, Result: res}
	return out, a.store(ctx, func(s *managers.StorageManager) error {
		return s.StorePeaks(ctx, out)
	})
}

// RunTransplant derives the backscatter feature vector of every cell.
func (a *App) RunTransplant(ctx context.Context, job TransplantJob) (*storage.FeatureResult, error) {
	geom, f, mask, err := a.load(job.CubePath, job.MaskPath)
	if err != nil {
		return nil, err
	}

	period := job.PeriodDays
	if period <= 0 {
		period = a.cfg.Transplant.PeriodDays
	}
	end := job.End
	if end.IsZero() {
		end, err = lastAcquisition(f)
		if err != nil {
			return nil, err
		}
	}

	stack, err := cube.BuildBackscatter(f, end, period)
	if err != nil {
		return nil, err
	}
	t0, t1 := stack.Span()
	query := timeseries.UniformGrid(t0, t1, a.cfg.Transplant.GridStep)
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: single acquisition on %s", phenology.ErrEmptyWindow, end.Format(timeseries.DateLayout))
	}
	a.logger.Infow("transplant window",
		"acquisitions", len(stack.Times), "start", t0, "end", t1, "points", len(query))

	preset := spline.PresetBackscatter.WithSmoothing(a.cfg.Smoothing.Backscatter)
	params := phenology.AggregateParams{SignalHalfWidth: a.cfg.Transplant.SignalHalfWidth}
	kernel := func(cell int, s timeseries.Series) (phenology.FeatureVector, error) {
		c, err := preset.Fit(s.Times, s.Values)
		if err != nil {
			return phenology.FeatureVector{}, err
		}
		return phenology.Aggregate(c, s, query, params)
	}

	d, err := grid.NewDriver(geom, mask, stack, kernel, phenology.SentinelFeatures, a.options(storage.VariantTransplant, job.Cells), a.logger)
	if err != nil {
		return nil, err
	}
	res, err := d.Run(ctx)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(storage.VariantTransplant, job.CubePath)
	run.WindowStart, run.WindowEnd = t0, t1
	run.Acquisitions = len(stack.Times)
	run.Geometry = geom

	out := &storage.FeatureResult{Run: run, Result: res}
	return out, a.store(ctx, func(s *managers.StorageManager) error {
		return s.StoreFeatures(ctx, out)
	})
}

// store opens the configured engines for one write and closes them again.
func (a *App) store(ctx context.Context, write func(*managers.StorageManager) error) error {
	sm, err := managers.NewStorageManager(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	if len(sm.Engines) == 0 {
		a.logger.Warn("no storage engines configured; results are discarded")
	}
	if err := write(sm); err != nil {
		sm.Close()
		return err
	}
	return sm.Close()
}

func lastAcquisition(f *cube.File) (time.Time, error) {
	var last time.Time
	for _, b := range f.Bands {
		d, err := cube.ParseDescriptor(b.Name)
		if err != nil {
			return time.Time{}, err
		}
		if d.Date.After(last) {
			last = d.Date
		}
	}
	if last.IsZero() {
		return last, cube.ErrNoAcquisitions
	}
	return last, nil
}
