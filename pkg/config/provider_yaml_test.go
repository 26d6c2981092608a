package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phenotrack.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Defaults().Validate() = %v", err)
	}
}

func TestYAMLProviderOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
grid:
  x-min: 0
  x-max: 100
  y-min: 0
  y-max: 50
  x-step: 10
  y-step: -10
smoothing:
  backscatter: 0.1
analysis:
  workers: 4
storage:
  sqlite:
    path: /tmp/results.db
  timescaledb:
    connection-string: postgres://localhost/phenotrack
metrics:
  listen-addr: ":9100"
`)

	p := NewYAMLProvider(path)
	defer p.Close()
	cfg, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Grid.XMax != 100 || cfg.Grid.YStep != -10 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Smoothing.Backscatter != 0.1 || cfg.Smoothing.NDVI != 2.0e-3 {
		t.Errorf("smoothing = %+v", cfg.Smoothing)
	}
	if cfg.Analysis.Workers != 4 || cfg.Analysis.MinSamples != 5 || cfg.Analysis.ProgressInterval != 100 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Transplant.PeriodDays != 60 || cfg.Peaks.SCLBand != 17 {
		t.Errorf("variant defaults lost: %+v %+v", cfg.Transplant, cfg.Peaks)
	}
	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "/tmp/results.db" {
		t.Errorf("sqlite = %+v", cfg.Storage.SQLite)
	}
	if cfg.Storage.Report != nil {
		t.Errorf("report store enabled unexpectedly")
	}
	if cfg.Storage.TimescaleDB == nil || cfg.Storage.TimescaleDB.ConnectionString == "" {
		t.Errorf("timescaledb = %+v", cfg.Storage.TimescaleDB)
	}
	if cfg.Metrics.ListenAddr != ":9100" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
	if !p.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}
}

func TestYAMLProviderRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{"smoothing above one", "smoothing:\n  ndvi: 2\n", true},
		{"positive y step", "grid:\n  y-step: 10\n", true},
		{"min samples", "analysis:\n  min-samples: 1\n", true},
		{"empty timescaledb", "storage:\n  timescaledb:\n    connection-string: \"\"\n", true},
		{"unknown key", "gird:\n  x-min: 0\n", false},
		{"malformed", "grid: [", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLProvider(writeConfig(t, tt.body)).LoadConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidConfig); got != tt.invalid {
				t.Errorf("errors.Is(err, ErrInvalidConfig) = %v for %v", got, err)
			}
		})
	}

	if _, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDumpLoadsBack(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Report = &ReportData{Path: "transplanting_date.dat", LegacyCount: true}
	out, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	got, err := NewYAMLProvider(writeConfig(t, string(out))).LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v\n%s", err, out)
	}
	if got.Grid != cfg.Grid || got.Transplant != cfg.Transplant || got.Peaks != cfg.Peaks {
		t.Errorf("loaded %+v, want %+v", got, cfg)
	}
	if got.Storage.Report == nil || got.Storage.Report.Path != "transplanting_date.dat" || !got.Storage.Report.LegacyCount || got.Storage.SQLite != nil {
		t.Errorf("storage = %+v", got.Storage)
	}
}
