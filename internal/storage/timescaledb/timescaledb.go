// Package timescaledb stores runs and computed cells in PostgreSQL/TimescaleDB
// through gorm.
package timescaledb

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/phenotrack/internal/database"
	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/log"
	"github.com/chrissnell/phenotrack/internal/storage"
	"gorm.io/gorm"
)

// batchSize bounds the rows sent per INSERT.
const batchSize = 1000

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// We declare the Tabler interface for purposes of customizing the table name in the DB
type Tabler interface {
	TableName() string
}

// RunRecord is one grid run
type RunRecord struct {
	ID           string    `gorm:"primaryKey;column:id"`
	Variant      string    `gorm:"column:variant;not null"`
	Source       string    `gorm:"column:source"`
	StartedAt    time.Time `gorm:"column:started_at;not null"`
	WindowStart  float64   `gorm:"column:window_start"`
	WindowEnd    float64   `gorm:"column:window_end"`
	Acquisitions int       `gorm:"column:acquisitions"`
	Computed     int64     `gorm:"column:computed"`
	Masked       int64     `gorm:"column:masked"`
	Insufficient int64     `gorm:"column:insufficient"`
	Failed       int64     `gorm:"column:failed"`
}

func (RunRecord) TableName() string {
	return "runs"
}

// PeakRecord holds the planting and heading stages of one cell
type PeakRecord struct {
	RunID        string   `gorm:"primaryKey;column:run_id"`
	Cell         int      `gorm:"primaryKey;column:cell"`
	X            float64  `gorm:"column:x"`
	Y            float64  `gorm:"column:y"`
	PlantingDate *float64 `gorm:"column:planting_date"`
	PlantingNDVI *float64 `gorm:"column:planting_ndvi"`
	HeadingDate  *float64 `gorm:"column:heading_date"`
	HeadingNDVI  *float64 `gorm:"column:heading_ndvi"`
}

func (PeakRecord) TableName() string {
	return "peaks"
}

// FeatureRecord holds the backscatter feature vector of one cell
type FeatureRecord struct {
	RunID string   `gorm:"primaryKey;column:run_id"`
	Cell  int      `gorm:"primaryKey;column:cell"`
	X     float64  `gorm:"column:x"`
	Y     float64  `gorm:"column:y"`
	Ndat  int      `gorm:"column:ndat"`
	Tmin  *float64 `gorm:"column:tmin;index"`
	Vmin  *float64 `gorm:"column:vmin"`
	Fmin  int      `gorm:"column:fmin"`
	Tlft  *float64 `gorm:"column:tlft"`
	Vlft  *float64 `gorm:"column:vlft"`
	Flft  int      `gorm:"column:flft"`
	Trgt  *float64 `gorm:"column:trgt"`
	Vrgt  *float64 `gorm:"column:vrgt"`
	Frgt  int      `gorm:"column:frgt"`
	Dmin  *float64 `gorm:"column:dmin"`
	Dstd  *float64 `gorm:"column:dstd"`
	Tleg  *float64 `gorm:"column:tleg"`
	Fleg  int      `gorm:"column:fleg"`
	Treg  *float64 `gorm:"column:treg"`
	Freg  int      `gorm:"column:freg"`
	Sstd  *float64 `gorm:"column:sstd"`
	Scor  *float64 `gorm:"column:scor"`
	Traw  *float64 `gorm:"column:traw"`
	Vraw  *float64 `gorm:"column:vraw"`
	Fraw  int      `gorm:"column:fraw"`
	Draw  *float64 `gorm:"column:draw"`
	Rstd  *float64 `gorm:"column:rstd"`
	Rcor  *float64 `gorm:"column:rcor"`
	Bavg  *float64 `gorm:"column:bavg"`
	Bstd  *float64 `gorm:"column:bstd"`
}

func (FeatureRecord) TableName() string {
	return "features"
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, connectionString string) (*Storage, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("timescaledb storage requires a connection string")
	}
	conn, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}

	log.Info("migrating TimescaleDB tables...")
	if err := conn.WithContext(ctx).AutoMigrate(&RunRecord{}, &PeakRecord{}, &FeatureRecord{}); err != nil {
		return nil, fmt.Errorf("could not migrate tables: %w", err)
	}
	return &Storage{TimescaleDBConn: conn}, nil
}

// Close releases the underlying connection pool
func (t *Storage) Close() error {
	db, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// StorePeaks stores the run and its computed peak cells in one transaction
func (t *Storage) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	records := PeakRecords(r)
	return t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := NewRunRecord(r.Run, r.Stats)
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
}

// StoreFeatures stores the run and its computed feature cells in one transaction
func (t *Storage) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	records := FeatureRecords(r)
	return t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run := NewRunRecord(r.Run, r.Stats)
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, batchSize).Error
	})
}

// NewRunRecord converts a run descriptor and its cell outcome counts to a
// table row.
func NewRunRecord(run storage.Run, stats grid.Stats) RunRecord {
	return RunRecord{
		ID:           run.ID,
		Variant:      string(run.Variant),
		Source:       run.Source,
		StartedAt:    run.StartedAt,
		WindowStart:  run.WindowStart,
		WindowEnd:    run.WindowEnd,
		Acquisitions: run.Acquisitions,
		Computed:     stats.Computed,
		Masked:       stats.Masked,
		Insufficient: stats.Insufficient,
		Failed:       stats.Failed,
	}
}

// PeakRecords converts the computed cells of r to rows.
func PeakRecords(r *storage.PeaksResult) []PeakRecord {
	var out []PeakRecord
	for k, cell := range r.Cells {
		p := r.Records[k]
		if !p.Computed() {
			continue
		}
		x, y := coord(r.Run, cell)
		out = append(out, PeakRecord{
			RunID:        r.Run.ID,
			Cell:         cell,
			X:            x,
			Y:            y,
			PlantingDate: ptr(p.Planting.Time),
			PlantingNDVI: ptr(p.Planting.Value),
			HeadingDate:  ptr(p.Heading.Time),
			HeadingNDVI:  ptr(p.Heading.Value),
		})
	}
	return out
}

// FeatureRecords converts the computed cells of r to rows.
func FeatureRecords(r *storage.FeatureResult) []FeatureRecord {
	var out []FeatureRecord
	for k, cell := range r.Cells {
		f := r.Records[k]
		if !f.Computed() {
			continue
		}
		x, y := coord(r.Run, cell)
		out = append(out, FeatureRecord{
			RunID: r.Run.ID,
			Cell:  cell,
			X:     x,
			Y:     y,
			Ndat:  f.Count,
			Tmin:  ptr(f.Min.Time),
			Vmin:  ptr(f.Min.Value),
			Fmin:  int(f.Min.Edge),
			Tlft:  ptr(f.LeftPeak.Time),
			Vlft:  ptr(f.LeftPeak.Value),
			Flft:  int(f.LeftPeak.Edge),
			Trgt:  ptr(f.RightPeak.Time),
			Vrgt:  ptr(f.RightPeak.Value),
			Frgt:  int(f.RightPeak.Edge),
			Dmin:  ptr(f.Depth),
			Dstd:  ptr(f.ResidualStd),
			Tleg:  ptr(f.LeftBoundary.Time),
			Fleg:  int(f.LeftBoundary.Flag),
			Treg:  ptr(f.RightBoundary.Time),
			Freg:  int(f.RightBoundary.Flag),
			Sstd:  ptr(f.CurveStd),
			Scor:  ptr(f.CurveCorr),
			Traw:  ptr(f.RawMin.Time),
			Vraw:  ptr(f.RawMin.Value),
			Fraw:  int(f.RawMin.Edge),
			Draw:  ptr(f.RawDepth),
			Rstd:  ptr(f.RawStd),
			Rcor:  ptr(f.RawCorr),
			Bavg:  ptr(f.BaselineMean),
			Bstd:  ptr(f.BaselineStd),
		})
	}
	return out
}

func coord(run storage.Run, cell int) (float64, float64) {
	if run.Geometry.Validate() != nil {
		return math.NaN(), math.NaN()
	}
	return run.Geometry.Coord(cell)
}

// ptr maps non-finite values to NULL.
func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
