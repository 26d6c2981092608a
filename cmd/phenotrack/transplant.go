package main

import (
	"context"

	"github.com/chrissnell/phenotrack/internal/app"
	"github.com/chrissnell/phenotrack/pkg/config"
	"github.com/spf13/cobra"
)

var transplantFlags struct {
	end        string
	period     int
	mask       string
	cells      []int
	sigwid     float64
	output     string
	raster     string
	vint       int
	verbose    bool
	legacyNdat bool
}

var transplantCmd = &cobra.Command{
	Use:   "transplant <cube>",
	Short: "Estimate transplanting dates from a VH backscatter cube",
	Long: `Fits a smoothing spline to the backscatter acquired within --period days
up to --end and writes the fixed-width feature report describing the
deepest dip of every cell.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("sigwid") {
			cfg.Transplant.SignalHalfWidth = transplantFlags.sigwid
		}
		if flags.Changed("period") {
			cfg.Transplant.PeriodDays = transplantFlags.period
		}
		// Progress is logged only in verbose mode.
		cfg.Analysis.ProgressInterval = 0
		if transplantFlags.verbose {
			cfg.Analysis.ProgressInterval = transplantFlags.vint
		}
		if transplantFlags.output != "" {
			legacy := cfg.Storage.Report != nil && cfg.Storage.Report.LegacyCount
			cfg.Storage.Report = &config.ReportData{Path: transplantFlags.output, LegacyCount: legacy}
		}
		if flags.Changed("legacy-ndat") && cfg.Storage.Report != nil {
			cfg.Storage.Report.LegacyCount = transplantFlags.legacyNdat
		}
		if transplantFlags.raster != "" {
			cfg.Storage.Raster = &config.FileData{Path: transplantFlags.raster}
		}

		job := app.TransplantJob{
			CubePath:   args[0],
			MaskPath:   transplantFlags.mask,
			PeriodDays: cfg.Transplant.PeriodDays,
			Cells:      transplantFlags.cells,
		}
		if job.End, err = parseDate(transplantFlags.end); err != nil {
			return err
		}

		return run(cfg, func(ctx context.Context, a *app.App) error {
			_, err := a.RunTransplant(ctx, job)
			return err
		})
	},
}

func init() {
	f := transplantCmd.Flags()
	f.StringVar(&transplantFlags.end, "end", "", "Last acquisition date YYYYMMDD (default: latest in the cube)")
	f.IntVar(&transplantFlags.period, "period", 60, "Days of acquisitions to analyse, counted back from --end")
	f.StringVar(&transplantFlags.mask, "mask", "", "MessagePack mask file; cells with 0 are skipped")
	f.IntSliceVar(&transplantFlags.cells, "ind", nil, "Restrict the run and the report to these cell indices (repeatable)")
	f.Float64Var(&transplantFlags.sigwid, "sigwid", 15, "Half-width in days around the minimum excluded from the baseline")
	f.StringVar(&transplantFlags.output, "output", "transplanting_date.dat", "Report output file")
	f.StringVar(&transplantFlags.raster, "raster", "", "Also write the 26-band feature raster")
	f.IntVar(&transplantFlags.vint, "vint", 100, "Log progress every this many cells")
	f.BoolVar(&transplantFlags.verbose, "verbose", false, "Log progress while running")
	f.BoolVar(&transplantFlags.legacyNdat, "legacy-ndat", false, "Write 1 in the report ndat column instead of the fitted sample count")
}
