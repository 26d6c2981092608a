package main

import (
	"context"

	"github.com/chrissnell/phenotrack/internal/app"
	"github.com/chrissnell/phenotrack/pkg/config"
	"github.com/spf13/cobra"
)

var peaksFlags struct {
	start, end string
	mask       string
	output     string
	csv        string
	cells      []int
}

var peaksCmd = &cobra.Command{
	Use:   "peaks <cube>",
	Short: "Locate planting and heading stages from an optical cube",
	Long: `Builds an NDVI series per cell from the red, near-infrared and scene
classification bands, fits a smoothing spline and records the NDVI minimum
(planting) and maximum (heading) inside the analysis window.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if peaksFlags.output != "" {
			cfg.Storage.Raster = &config.FileData{Path: peaksFlags.output}
		}
		if peaksFlags.csv != "" {
			cfg.Storage.CSV = &config.FileData{Path: peaksFlags.csv}
		}

		job := app.PeaksJob{CubePath: args[0], MaskPath: peaksFlags.mask, Cells: peaksFlags.cells}
		if job.Start, err = parseDate(peaksFlags.start); err != nil {
			return err
		}
		if job.End, err = parseDate(peaksFlags.end); err != nil {
			return err
		}

		return run(cfg, func(ctx context.Context, a *app.App) error {
			_, err := a.RunPeaks(ctx, job)
			return err
		})
	},
}

func init() {
	f := peaksCmd.Flags()
	f.StringVar(&peaksFlags.start, "start", "", "Window start YYYYMMDD, exclusive (default: first acquisition)")
	f.StringVar(&peaksFlags.end, "end", "", "Window end YYYYMMDD, exclusive (default: last acquisition)")
	f.StringVar(&peaksFlags.mask, "mask", "", "MessagePack mask file; cells with 0 are skipped")
	f.StringVar(&peaksFlags.output, "output", "planting_heading.msgpack", "Raster output file")
	f.StringVar(&peaksFlags.csv, "csv", "", "Also export computed cells as CSV")
	f.IntSliceVar(&peaksFlags.cells, "ind", nil, "Restrict the run to these cell indices (repeatable)")
}
