package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files.
// Settings missing from the file keep their Defaults() values.
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	yamlConfig := toYAML(Defaults())
	if err := yaml.UnmarshalStrict(cfgFile, yamlConfig); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", y.filename, err)
	}

	config := yamlConfig.toData()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	y.config = config
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type ConfigYAML struct {
	Grid       GridYAML       `yaml:"grid"`
	Smoothing  SmoothingYAML  `yaml:"smoothing"`
	Analysis   AnalysisYAML   `yaml:"analysis"`
	Peaks      PeaksYAML      `yaml:"peaks"`
	Transplant TransplantYAML `yaml:"transplant"`
	Storage    StorageYAML    `yaml:"storage,omitempty"`
	Metrics    MetricsYAML    `yaml:"metrics,omitempty"`
}

type GridYAML struct {
	XMin  float64 `yaml:"x-min"`
	XMax  float64 `yaml:"x-max"`
	YMin  float64 `yaml:"y-min"`
	YMax  float64 `yaml:"y-max"`
	XStep float64 `yaml:"x-step"`
	YStep float64 `yaml:"y-step"`
}

type SmoothingYAML struct {
	NDVI        float64 `yaml:"ndvi"`
	Backscatter float64 `yaml:"backscatter"`
}

type AnalysisYAML struct {
	MinSamples       int `yaml:"min-samples"`
	Workers          int `yaml:"workers,omitempty"`
	ProgressInterval int `yaml:"progress-interval"`
}

type PeaksYAML struct {
	GridStep float64 `yaml:"grid-step"`
	RedBand  int     `yaml:"red-band"`
	NIRBand  int     `yaml:"nir-band"`
	SCLBand  int     `yaml:"scl-band"`
	Scale    float64 `yaml:"scale"`
	SCLMin   float64 `yaml:"scl-min"`
	SCLMax   float64 `yaml:"scl-max"`
}

type TransplantYAML struct {
	GridStep        float64 `yaml:"grid-step"`
	PeriodDays      int     `yaml:"period-days"`
	SignalHalfWidth float64 `yaml:"signal-half-width"`
}

type StorageYAML struct {
	Report      *ReportYAML      `yaml:"report,omitempty"`
	Raster      *FileYAML        `yaml:"raster,omitempty"`
	CSV         *FileYAML        `yaml:"csv,omitempty"`
	SQLite      *FileYAML        `yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type FileYAML struct {
	Path string `yaml:"path"`
}

type ReportYAML struct {
	Path        string `yaml:"path"`
	LegacyCount bool   `yaml:"legacy-count,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type MetricsYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

func fileToYAML(f *FileData) *FileYAML {
	if f == nil {
		return nil
	}
	return &FileYAML{Path: f.Path}
}

func fileFromYAML(f *FileYAML) *FileData {
	if f == nil {
		return nil
	}
	return &FileData{Path: f.Path}
}

// toYAML seeds the parse target so absent keys keep their current values.
func toYAML(c *ConfigData) *ConfigYAML {
	y := &ConfigYAML{
		Grid:       GridYAML(c.Grid),
		Smoothing:  SmoothingYAML(c.Smoothing),
		Analysis:   AnalysisYAML(c.Analysis),
		Peaks:      PeaksYAML(c.Peaks),
		Transplant: TransplantYAML(c.Transplant),
		Metrics:    MetricsYAML(c.Metrics),
		Storage: StorageYAML{
			Raster: fileToYAML(c.Storage.Raster),
			CSV:    fileToYAML(c.Storage.CSV),
			SQLite: fileToYAML(c.Storage.SQLite),
		},
	}
	if c.Storage.Report != nil {
		r := ReportYAML(*c.Storage.Report)
		y.Storage.Report = &r
	}
	if c.Storage.TimescaleDB != nil {
		y.Storage.TimescaleDB = &TimescaleDBYAML{ConnectionString: c.Storage.TimescaleDB.ConnectionString}
	}
	return y
}

// Convert to our internal format
func (y *ConfigYAML) toData() *ConfigData {
	c := &ConfigData{
		Grid:       GridData(y.Grid),
		Smoothing:  SmoothingData(y.Smoothing),
		Analysis:   AnalysisData(y.Analysis),
		Peaks:      PeaksData(y.Peaks),
		Transplant: TransplantData(y.Transplant),
		Metrics:    MetricsData(y.Metrics),
		Storage: StorageData{
			Raster: fileFromYAML(y.Storage.Raster),
			CSV:    fileFromYAML(y.Storage.CSV),
			SQLite: fileFromYAML(y.Storage.SQLite),
		},
	}
	if y.Storage.Report != nil {
		r := ReportData(*y.Storage.Report)
		c.Storage.Report = &r
	}
	if y.Storage.TimescaleDB != nil {
		c.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: y.Storage.TimescaleDB.ConnectionString}
	}
	return c
}

// Dump renders c in the YAML file format.
func Dump(c *ConfigData) ([]byte, error) {
	return yaml.Marshal(toYAML(c))
}
