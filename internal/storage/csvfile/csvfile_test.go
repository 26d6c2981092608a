package csvfile

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
)

func TestStorePeaks(t *testing.T) {
	geom, _ := grid.NewGeometry(100, 110, 0, 20, 10, -10)
	path := filepath.Join(t.TempDir(), "peaks.csv")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	run := storage.NewRun(storage.VariantPeaks, "cube")
	run.Geometry = geom
	res := &storage.PeaksResult{
		Run: run,
		Result: &grid.Result[phenology.Peaks]{
			Cells: []int{2, 3},
			Records: []phenology.Peaks{
				{
					Planting: phenology.Extremum{Index: 1, Time: 18300, Value: 0.125},
					Heading:  phenology.Extremum{Index: 9, Time: 18380.5, Value: 0.75},
				},
				phenology.SentinelPeaks(),
			},
		},
	}
	if err := s.StorePeaks(context.Background(), res); err != nil {
		t.Fatalf("StorePeaks: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one computed cell", len(rows))
	}
	want := []string{"2", "1", "0", "100", "10", "18300", "0.125", "18380.5", "0.75"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("column %s = %q, want %q", rows[0][i], rows[1][i], w)
		}
	}
	if rows[0][5] != "planting_date" {
		t.Errorf("header = %v", rows[0])
	}
}
