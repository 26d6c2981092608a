package config

import (
	"errors"
	"fmt"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Grid       GridData       `json:"grid"`
	Smoothing  SmoothingData  `json:"smoothing"`
	Analysis   AnalysisData   `json:"analysis"`
	Peaks      PeaksData      `json:"peaks"`
	Transplant TransplantData `json:"transplant"`
	Storage    StorageData    `json:"storage,omitempty"`
	Metrics    MetricsData    `json:"metrics,omitempty"`
}

// GridData describes the analysis grid. YStep is negative: rows run from
// YMax southward.
type GridData struct {
	XMin  float64 `json:"x_min"`
	XMax  float64 `json:"x_max"`
	YMin  float64 `json:"y_min"`
	YMax  float64 `json:"y_max"`
	XStep float64 `json:"x_step"`
	YStep float64 `json:"y_step"`
}

// SmoothingData holds the spline weights, each within [0, 1]
type SmoothingData struct {
	NDVI        float64 `json:"ndvi"`
	Backscatter float64 `json:"backscatter"`
}

// AnalysisData holds settings shared by both variants
type AnalysisData struct {
	MinSamples       int `json:"min_samples"`
	Workers          int `json:"workers"`
	ProgressInterval int `json:"progress_interval"`
}

// PeaksData configures planting/heading extraction from optical cubes
type PeaksData struct {
	GridStep float64 `json:"grid_step"`
	RedBand  int     `json:"red_band"`
	NIRBand  int     `json:"nir_band"`
	SCLBand  int     `json:"scl_band"`
	Scale    float64 `json:"scale"`
	SCLMin   float64 `json:"scl_min"`
	SCLMax   float64 `json:"scl_max"`
}

// TransplantData configures the backscatter minimum search
type TransplantData struct {
	GridStep        float64 `json:"grid_step"`
	PeriodDays      int     `json:"period_days"`
	SignalHalfWidth float64 `json:"signal_half_width"`
}

// StorageData holds the configuration for the result stores. A nil entry
// disables that store.
type StorageData struct {
	Report      *ReportData      `json:"report,omitempty"`
	Raster      *FileData        `json:"raster,omitempty"`
	CSV         *FileData        `json:"csv,omitempty"`
	SQLite      *FileData        `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

// FileData names an output file
type FileData struct {
	Path string `json:"path"`
}

// ReportData configures the fixed-width text report. LegacyCount writes 1 in
// the ndat column of every row instead of the number of samples fitted.
type ReportData struct {
	Path        string `json:"path"`
	LegacyCount bool   `json:"legacy_count,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// MetricsData configures the Prometheus endpoint. An empty ListenAddr
// disables it.
type MetricsData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
}

// Defaults returns the reference deployment settings.
func Defaults() *ConfigData {
	return &ConfigData{
		Grid: GridData{
			XMin:  743800,
			XMax:  756800,
			YMin:  9236000,
			YMax:  9251800,
			XStep: 10,
			YStep: -10,
		},
		Smoothing: SmoothingData{
			NDVI:        2.0e-3,
			Backscatter: 0.05,
		},
		Analysis: AnalysisData{
			MinSamples:       5,
			ProgressInterval: 100,
		},
		Peaks: PeaksData{
			GridStep: 1.0,
			RedBand:  4,
			NIRBand:  8,
			SCLBand:  17,
			Scale:    1.0e-4,
			SCLMin:   3.9,
			SCLMax:   7.1,
		},
		Transplant: TransplantData{
			GridStep:        0.01,
			PeriodDays:      60,
			SignalHalfWidth: 15,
		},
	}
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects settings that would make every run fail.
func (c *ConfigData) Validate() error {
	g := c.Grid
	switch {
	case !(g.XMax > g.XMin) || !(g.YMax > g.YMin):
		return fmt.Errorf("%w: grid extent is empty or inverted", ErrInvalidConfig)
	case !(g.XStep > 0) || !(g.YStep < 0):
		return fmt.Errorf("%w: grid x-step must be positive and y-step negative", ErrInvalidConfig)
	}

	for name, w := range map[string]float64{"ndvi": c.Smoothing.NDVI, "backscatter": c.Smoothing.Backscatter} {
		if !(w >= 0 && w <= 1) {
			return fmt.Errorf("%w: %s smoothing %v outside [0, 1]", ErrInvalidConfig, name, w)
		}
	}

	if c.Analysis.MinSamples < 2 {
		return fmt.Errorf("%w: min-samples must be at least 2", ErrInvalidConfig)
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", ErrInvalidConfig)
	}
	if c.Analysis.ProgressInterval < 0 {
		return fmt.Errorf("%w: progress-interval cannot be negative", ErrInvalidConfig)
	}
	if !(c.Peaks.GridStep > 0) || !(c.Transplant.GridStep > 0) {
		return fmt.Errorf("%w: query grid steps must be positive", ErrInvalidConfig)
	}
	if c.Transplant.PeriodDays <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidConfig)
	}
	if c.Transplant.SignalHalfWidth < 0 {
		return fmt.Errorf("%w: signal half-width cannot be negative", ErrInvalidConfig)
	}
	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("%w: timescaledb storage requires a connection-string", ErrInvalidConfig)
	}
	return nil
}
