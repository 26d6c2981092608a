// Package sqlite stores runs and computed cells in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Storage holds the database handle for a SQLite result store
type Storage struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New opens (creating if needed) the database at path and applies pending
// migrations.
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite storage requires a path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	s := &Storage{db: db, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an open database. The caller owns migrations.
func NewWithDB(db *sql.DB, logger *zap.SugaredLogger) *Storage {
	return &Storage{db: db, logger: logger}
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// nullable maps NaN to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func (s *Storage) insertRun(ctx context.Context, tx *sql.Tx, run storage.Run, stats grid.Stats) error {
	g := run.Geometry
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, variant, source, started_at, window_start, window_end, acquisitions,
			x_min, x_max, y_min, y_max, x_step, y_step,
			computed, masked, insufficient, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Variant), run.Source, run.StartedAt.UTC().Format(time.RFC3339), run.WindowStart, run.WindowEnd, run.Acquisitions,
		g.XMin, g.XMax, g.YMin, g.YMax, g.XStep, g.YStep,
		stats.Computed, stats.Masked, stats.Insufficient, stats.Failed)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// StorePeaks records the run and every cell with located peaks.
func (s *Storage) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertRun(ctx, tx, r.Run, r.Stats); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO peaks (run_id, cell, planting_date, planting_ndvi, heading_date, heading_ndvi)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		n := 0
		for k, cell := range r.Cells {
			p := r.Records[k]
			if !p.Computed() {
				continue
			}
			if _, err := stmt.ExecContext(ctx, r.Run.ID, cell,
				nullable(p.Planting.Time), nullable(p.Planting.Value),
				nullable(p.Heading.Time), nullable(p.Heading.Value)); err != nil {
				return fmt.Errorf("insert peaks for cell %d: %w", cell, err)
			}
			n++
		}
		s.logger.Infof("stored %d peak cells for run %s", n, r.Run.ID)
		return nil
	})
}

var featureInsert = fmt.Sprintf("INSERT INTO features (run_id, cell, %s) VALUES (?, ?%s)",
	strings.Join(phenology.FeatureNames, ", "),
	strings.Repeat(", ?", len(phenology.FeatureNames)))

// StoreFeatures records the run and every computed feature vector.
func (s *Storage) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertRun(ctx, tx, r.Run, r.Stats); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, featureInsert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		n := 0
		args := make([]any, 2+len(phenology.FeatureNames))
		for k, cell := range r.Cells {
			f := r.Records[k]
			if !f.Computed() {
				continue
			}
			args[0], args[1] = r.Run.ID, cell
			for i, v := range f.Values() {
				args[2+i] = nullable(v)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert features for cell %d: %w", cell, err)
			}
			n++
		}
		s.logger.Infof("stored %d feature cells for run %s", n, r.Run.ID)
		return nil
	})
}

func (s *Storage) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RunSummary is a stored run as read back by Runs.
type RunSummary struct {
	ID       string
	Variant  string
	Source   string
	Computed int64
	Masked   int64
	Cells    int64
}

// Runs lists stored runs, newest first, with the number of cells stored.
func (s *Storage) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.variant, r.source, r.computed, r.masked,
			(SELECT COUNT(*) FROM peaks p WHERE p.run_id = r.id) +
			(SELECT COUNT(*) FROM features f WHERE f.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.Variant, &rs.Source, &rs.Computed, &rs.Masked, &rs.Cells); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}
