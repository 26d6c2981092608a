package timescaledb

import (
	"math"
	"testing"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
)

func TestPeakRecords(t *testing.T) {
	g, _ := grid.NewGeometry(100, 110, 0, 20, 10, -10)
	run := storage.NewRun(storage.VariantPeaks, "cube.msgpack")
	run.Geometry = g

	p := phenology.Peaks{
		Planting: phenology.Extremum{Index: 1, Time: 18300, Value: 0.2},
		Heading:  phenology.Extremum{Index: 9, Time: 18380, Value: math.NaN()},
	}
	res := &storage.PeaksResult{
		Run: run,
		Result: &grid.Result[phenology.Peaks]{
			Cells:   []int{0, 3},
			Records: []phenology.Peaks{phenology.SentinelPeaks(), p},
		},
	}

	recs := PeakRecords(res)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.RunID != run.ID || r.Cell != 3 || r.X != 110 || r.Y != 10 {
		t.Errorf("record = %+v", r)
	}
	if r.PlantingDate == nil || *r.PlantingDate != 18300 {
		t.Errorf("planting date = %v", r.PlantingDate)
	}
	if r.HeadingNDVI != nil {
		t.Errorf("NaN heading value stored as %v, want NULL", *r.HeadingNDVI)
	}
}

func TestFeatureRecords(t *testing.T) {
	f := phenology.SentinelFeatures()
	f.Count = 7
	f.Min = phenology.Extremum{Index: 2, Time: 18290, Value: -19, Edge: phenology.LeftEdge}
	f.BaselineMean = -14

	res := &storage.FeatureResult{
		Run: storage.NewRun(storage.VariantTransplant, "vh.msgpack"),
		Result: &grid.Result[phenology.FeatureVector]{
			Cells:   []int{5, 6},
			Records: []phenology.FeatureVector{f, phenology.SentinelFeatures()},
		},
	}

	recs := FeatureRecords(res)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.Ndat != 7 || r.Fmin != 1 || *r.Tmin != 18290 || *r.Bavg != -14 {
		t.Errorf("record = %+v", r)
	}
	if r.Flft != -1 || r.Tlft != nil || r.Bstd != nil {
		t.Errorf("missing fields not NULL: %+v", r)
	}
	if !math.IsNaN(r.X) {
		t.Errorf("x = %v without geometry, want NaN", r.X)
	}
}

func TestNewRunRecord(t *testing.T) {
	run := storage.NewRun(storage.VariantPeaks, "cube.msgpack")
	rec := NewRunRecord(run, grid.Stats{Computed: 4, Masked: 2, Insufficient: 1})
	if rec.ID != run.ID || rec.Variant != "peaks" || rec.Computed != 4 || rec.Masked != 2 || rec.Insufficient != 1 {
		t.Errorf("record = %+v", rec)
	}
	if (RunRecord{}).TableName() != "runs" || (PeakRecord{}).TableName() != "peaks" || (FeatureRecord{}).TableName() != "features" {
		t.Error("unexpected table names")
	}
}
