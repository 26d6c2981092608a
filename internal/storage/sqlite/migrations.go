package sqlite

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    variant TEXT NOT NULL,
    source TEXT,
    started_at DATETIME NOT NULL,
    window_start REAL,
    window_end REAL,
    acquisitions INTEGER,
    x_min REAL,
    x_max REAL,
    y_min REAL,
    y_max REAL,
    x_step REAL,
    y_step REAL,
    computed INTEGER,
    masked INTEGER,
    insufficient INTEGER,
    failed INTEGER
);

CREATE TABLE IF NOT EXISTS peaks (
    run_id TEXT NOT NULL REFERENCES runs(id),
    cell INTEGER NOT NULL,
    planting_date REAL,
    planting_ndvi REAL,
    heading_date REAL,
    heading_ndvi REAL,
    PRIMARY KEY (run_id, cell)
);
`,
	},
	{
		Version:     2,
		Description: "Backscatter features",
		SQL: `
CREATE TABLE IF NOT EXISTS features (
    run_id TEXT NOT NULL REFERENCES runs(id),
    cell INTEGER NOT NULL,
    ndat INTEGER,
    tmin REAL, vmin REAL, fmin INTEGER,
    tlft REAL, vlft REAL, flft INTEGER,
    trgt REAL, vrgt REAL, frgt INTEGER,
    dmin REAL, dstd REAL,
    tleg REAL, fleg INTEGER,
    treg REAL, freg INTEGER,
    sstd REAL, scor REAL,
    traw REAL, vraw REAL, fraw INTEGER,
    draw REAL, rstd REAL, rcor REAL,
    bavg REAL, bstd REAL,
    PRIMARY KEY (run_id, cell)
);

CREATE INDEX IF NOT EXISTS idx_features_tmin ON features(run_id, tmin);
`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		s.logger.Infof("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *Storage) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
