// Package csvfile exports computed cells as CSV, one row per cell with its
// grid position and projected coordinates.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
)

// Storage writes computed cells to a CSV file
type Storage struct {
	path string
}

// New returns a CSV store writing to path.
func New(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("csv storage requires a path")
	}
	return &Storage{path: path}, nil
}

// StorePeaks exports every cell with located peaks.
func (s *Storage) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	return writeCells(s.path, r.Run.Geometry, phenology.PeakBandNames, r.Cells, func(k int) ([]float64, bool) {
		p := r.Records[k]
		return p.Values(), p.Computed()
	})
}

// StoreFeatures exports every cell with a computed feature vector.
func (s *Storage) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	return writeCells(s.path, r.Run.Geometry, phenology.FeatureNames, r.Cells, func(k int) ([]float64, bool) {
		f := r.Records[k]
		return f.Values(), f.Computed()
	})
}

// Close is a no-op
func (s *Storage) Close() error {
	return nil
}

func writeCells(path string, geom grid.Geometry, names []string, cells []int, record func(k int) ([]float64, bool)) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create csv %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := append([]string{"cell", "row", "col", "x", "y"}, names...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for k, cell := range cells {
		values, ok := record(k)
		if !ok {
			continue
		}
		row, col := geom.RowCol(cell)
		x, y := geom.Coord(cell)
		line := make([]string, 0, len(header))
		line = append(line,
			strconv.Itoa(cell),
			strconv.Itoa(row),
			strconv.Itoa(col),
			strconv.FormatFloat(x, 'f', -1, 64),
			strconv.FormatFloat(y, 'f', -1, 64),
		)
		for _, v := range values {
			line = append(line, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
