package report

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
)

const rowLen = 285

func computed() phenology.FeatureVector {
	f := phenology.SentinelFeatures()
	f.Count = 12
	f.Min = phenology.Extremum{Index: 300, Time: 18290.25, Value: -21.5, Edge: phenology.Interior}
	f.LeftPeak = phenology.Extremum{Index: 0, Time: 18262, Value: -14.25, Edge: phenology.LeftEdge}
	f.RightPeak = phenology.Extremum{Index: 5999, Time: 18321.99, Value: -15, Edge: phenology.RightEdge}
	f.Depth = -0.75
	f.ResidualStd = 0.5
	f.LeftBoundary = phenology.Boundary{Index: 100, Time: 18280.5, Flag: phenology.Interior}
	f.RightBoundary = phenology.Boundary{Index: 5999, Time: 18321.99, Flag: phenology.RightEdge}
	f.CurveStd = 2.125
	f.CurveCorr = 0.25
	f.RawMin = phenology.Extremum{Index: 4, Time: 18288, Value: -22, Edge: phenology.Interior}
	f.RawDepth = 0.125
	f.RawStd = 2.5
	f.RawCorr = -0.5
	f.BaselineMean = -15.5
	f.BaselineStd = 1
	return f
}

func TestNumberFormats(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{fixed(12.3456, 11, 3), "     12.346"},
		{fixed(-0.5, 11, 3), "     -0.500"},
		{fixed(math.NaN(), 11, 3), "        nan"},
		{fixed(math.Inf(-1), 11, 3), "       -inf"},
		{sci(-15.2, 13, 6), "-1.520000e+01"},
		{sci(0.5, 13, 6), " 5.000000e-01"},
		{sci(0, 13, 6), " 0.000000e+00"},
		{sci(math.NaN(), 13, 6), "          nan"},
		{flag(phenology.NotComputed), "-1"},
		{flag(phenology.Interior), " 0"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestFeatureRow(t *testing.T) {
	sentinel := FeatureRow(5, phenology.SentinelFeatures())
	if !strings.HasPrefix(sentinel, "       5   1         nan           nan -1 ") {
		t.Errorf("sentinel row = %q", sentinel)
	}
	if len(sentinel) != rowLen {
		t.Errorf("sentinel row length = %d, want %d", len(sentinel), rowLen)
	}

	row := FeatureRow(1234567, computed())
	if len(row) != rowLen {
		t.Errorf("row length = %d, want %d: %q", len(row), rowLen, row)
	}
	if !strings.HasPrefix(row, " 1234567  12   18290.250 -2.150000e+01  0   18262.000 -1.425000e+01  1 ") {
		t.Errorf("row = %q", row)
	}
	if !strings.HasSuffix(row, "-1.550000e+01  1.000000e+00\n") {
		t.Errorf("row = %q", row)
	}
	if n := len(strings.Fields(row)); n != len(phenology.FeatureNames)+1 {
		t.Errorf("row has %d fields, want %d", n, len(phenology.FeatureNames)+1)
	}
}

func TestFeatureRowLegacyCount(t *testing.T) {
	legacy := Options{LegacyCount: true}
	tests := []struct {
		name string
		f    phenology.FeatureVector
	}{
		{"computed", computed()},
		{"sentinel", phenology.SentinelFeatures()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := legacy.FeatureRow(42, tt.f)
			if !strings.HasPrefix(row, "      42   1 ") {
				t.Errorf("row = %q", row)
			}
			if len(row) != rowLen {
				t.Errorf("row length = %d, want %d", len(row), rowLen)
			}
			// Only the ndat column differs.
			if current := FeatureRow(42, tt.f); row[13:] != current[13:] {
				t.Errorf("legacy row %q differs from %q beyond ndat", row, current)
			}
		})
	}
}

func TestWriteFeatures(t *testing.T) {
	run := storage.Run{WindowStart: 18262, WindowEnd: 18322, Acquisitions: 12}
	var buf bytes.Buffer
	err := WriteFeatures(&buf, run, []int{0, 7}, []phenology.FeatureVector{phenology.SentinelFeatures(), computed()})
	if err != nil {
		t.Fatalf("WriteFeatures: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "# 18262.00000 18322.00000   12" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "#     i ndat        tmin        vmin fmin ") {
		t.Errorf("columns = %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], "          bavg          bstd") {
		t.Errorf("columns = %q", lines[1])
	}
	if got := strings.Fields(lines[1])[1:]; strings.Join(got[1:], ",") != strings.Join(phenology.FeatureNames, ",") {
		t.Errorf("column names = %v", got)
	}
}

func TestStoreWritesFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "transplanting_date.dat"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	res := &storage.FeatureResult{
		Run: storage.Run{WindowStart: 1, WindowEnd: 2, Acquisitions: 3},
		Result: &grid.Result[phenology.FeatureVector]{
			Cells:   []int{0},
			Records: []phenology.FeatureVector{computed()},
		},
	}
	if err := s.StoreFeatures(context.Background(), res); err != nil {
		t.Fatalf("StoreFeatures: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "transplanting_date.dat"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if strings.Count(string(data), "\n") != 3 {
		t.Errorf("report = %q", data)
	}

	peaks := &storage.PeaksResult{
		Result: &grid.Result[phenology.Peaks]{
			Cells:   []int{3},
			Records: []phenology.Peaks{phenology.SentinelPeaks()},
		},
	}
	if err := s.StorePeaks(context.Background(), peaks); err != nil {
		t.Fatalf("StorePeaks: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "transplanting_date.dat"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "       3         nan") {
		t.Errorf("peaks report = %q", data)
	}

	if _, err := New(""); err == nil {
		t.Error("expected error for empty path")
	}

	legacy, err := NewWithOptions(filepath.Join(dir, "legacy.dat"), Options{LegacyCount: true})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	if err := legacy.StoreFeatures(context.Background(), res); err != nil {
		t.Fatalf("StoreFeatures: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "legacy.dat"))
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "       0   1 ") {
		t.Errorf("legacy report = %q", data)
	}
}
