// Command phenotrack estimates crop calendar dates per grid cell from
// satellite time-series cubes.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chrissnell/phenotrack/internal/app"
	"github.com/chrissnell/phenotrack/internal/constants"
	"github.com/chrissnell/phenotrack/internal/log"
	"github.com/chrissnell/phenotrack/internal/metrics"
	"github.com/chrissnell/phenotrack/internal/timeseries"
	"github.com/chrissnell/phenotrack/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	debug       bool
	workers     int
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   constants.AppName,
	Short: "Per-cell crop calendar estimation from satellite cubes",
	Long: `phenotrack fits a smoothing spline to every cell of a co-registered
time-series cube and extracts crop calendar dates: planting and heading
stages from optical NDVI, and the transplanting (flooding) dip from radar
backscatter.`,
	Version:       constants.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := log.Init(debug); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", constants.AppName, constants.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file (defaults to the built-in reference grid)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Turn on debugging output")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Worker goroutines (0 = all CPUs)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")

	rootCmd.AddCommand(peaksCmd, transplantCmd, configCmd, versionCmd)
}

func main() {
	err := rootCmd.Execute()
	log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads cfgFile, or the defaults when none is given, and applies
// the root flag overrides.
func loadConfig(cmd *cobra.Command) (*config.ConfigData, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		filename, _ := filepath.Abs(cfgFile)
		provider := config.NewYAMLProvider(filename)
		defer provider.Close()

		var err error
		cfg, err = provider.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", filename, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Analysis.Workers = workers
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.ListenAddr = metricsAddr
	}
	return cfg, nil
}

// run executes fn under a signal-aware context with the metrics endpoint
// serving for the duration of the run.
func run(cfg *config.ConfigData, fn func(ctx context.Context, a *app.App) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := app.WithSignals(context.Background())
	defer cancel()

	logger := log.GetSugaredLogger()
	if cfg.Metrics.ListenAddr != "" {
		srv := metrics.NewServer(cfg.Metrics.ListenAddr, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	return fn(ctx, app.New(cfg, logger))
}

// parseDate accepts YYYYMMDD; an empty string yields the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return timeseries.ParseDate(s)
}
