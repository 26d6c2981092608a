// Package managers wires configured result stores together.
package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chrissnell/phenotrack/internal/metrics"
	"github.com/chrissnell/phenotrack/internal/storage"
	"github.com/chrissnell/phenotrack/internal/storage/csvfile"
	"github.com/chrissnell/phenotrack/internal/storage/rasterfile"
	"github.com/chrissnell/phenotrack/internal/storage/report"
	"github.com/chrissnell/phenotrack/internal/storage/sqlite"
	"github.com/chrissnell/phenotrack/internal/storage/timescaledb"
	"github.com/chrissnell/phenotrack/pkg/config"
	"go.uber.org/zap"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []StorageEngine
	logger  *zap.SugaredLogger
}

// StorageEngine pairs a backend with the name it was configured under
type StorageEngine struct {
	Name   string
	Engine storage.StorageEngineInterface
}

// NewStorageManager creates a StorageManager populated with every configured
// engine. Engines opened before a failure are closed again.
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{logger: logger}

	add := func(name string, enabled bool) error {
		if !enabled {
			return nil
		}
		if err := s.AddEngine(ctx, name, c); err != nil {
			s.Close()
			return fmt.Errorf("could not add %s storage backend: %w", name, err)
		}
		return nil
	}

	if err := add("report", c.Report != nil); err != nil {
		return nil, err
	}
	if err := add("raster", c.Raster != nil); err != nil {
		return nil, err
	}
	if err := add("csv", c.CSV != nil); err != nil {
		return nil, err
	}
	if err := add("sqlite", c.SQLite != nil); err != nil {
		return nil, err
	}
	if err := add("timescaledb", c.TimescaleDB != nil); err != nil {
		return nil, err
	}
	return s, nil
}

// AddEngine opens the engine named engineName from its configuration block
func (s *StorageManager) AddEngine(ctx context.Context, engineName string, c config.StorageData) error {
	var (
		engine storage.StorageEngineInterface
		err    error
	)

	switch engineName {
	case "report":
		engine, err = report.NewWithOptions(c.Report.Path, report.Options{LegacyCount: c.Report.LegacyCount})
	case "raster":
		engine, err = rasterfile.New(c.Raster.Path)
	case "csv":
		engine, err = csvfile.New(c.CSV.Path)
	case "sqlite":
		engine, err = sqlite.New(ctx, c.SQLite.Path, s.logger)
	case "timescaledb":
		engine, err = timescaledb.New(ctx, c.TimescaleDB.ConnectionString)
	default:
		return fmt.Errorf("unknown storage engine %q", engineName)
	}
	if err != nil {
		return err
	}

	s.logger.Infof("enabled %s storage engine", engineName)
	s.Engines = append(s.Engines, StorageEngine{Name: engineName, Engine: engine})
	return nil
}

// Add registers an already opened engine.
func (s *StorageManager) Add(name string, engine storage.StorageEngineInterface) {
	s.Engines = append(s.Engines, StorageEngine{Name: name, Engine: engine})
}

// StorePeaks hands r to every engine concurrently.
func (s *StorageManager) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	return s.fanOut(func(e storage.StorageEngineInterface) error {
		return e.StorePeaks(ctx, r)
	})
}

// StoreFeatures hands r to every engine concurrently.
func (s *StorageManager) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	return s.fanOut(func(e storage.StorageEngineInterface) error {
		return e.StoreFeatures(ctx, r)
	})
}

func (s *StorageManager) fanOut(store func(storage.StorageEngineInterface) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(s.Engines))

	for i, se := range s.Engines {
		wg.Add(1)
		go func(i int, se StorageEngine) {
			defer wg.Done()
			if err := store(se.Engine); err != nil {
				s.logger.Errorw("storage engine failed", "engine", se.Name, "error", err)
				metrics.StoreWrites.WithLabelValues(se.Name, "error").Inc()
				errs[i] = fmt.Errorf("%s: %w", se.Name, err)
				return
			}
			metrics.StoreWrites.WithLabelValues(se.Name, "ok").Inc()
		}(i, se)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close closes every engine, returning all close errors joined.
func (s *StorageManager) Close() error {
	var errs []error
	for _, se := range s.Engines {
		if err := se.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", se.Name, err))
		}
	}
	s.Engines = nil
	return errors.Join(errs...)
}
