// Package rasterfile stores results as a band-major MessagePack raster laid
// out as (band, row, col), ready for a GeoTIFF writer.
package rasterfile

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// Document is the on-disk raster.
type Document struct {
	RunID    string        `json:"run_id"`
	Variant  string        `json:"variant"`
	Bands    []string      `json:"bands"`
	Rows     int           `json:"rows"`
	Cols     int           `json:"cols"`
	Geometry grid.Geometry `json:"geometry"`
	// NoData is always NaN; it is written so readers need not assume it.
	NoData float32   `json:"nodata"`
	Data   []float32 `json:"data"`
}

// Storage writes each result set to a raster file
type Storage struct {
	path string
}

// New returns a raster store writing to path.
func New(path string) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("raster storage requires a path")
	}
	return &Storage{path: path}, nil
}

// StorePeaks writes the 4-band planting/heading raster.
func (s *Storage) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	raster, err := grid.Assemble(r.Run.Geometry, r.Result, phenology.PeakBandNames, phenology.Peaks.Values)
	if err != nil {
		return err
	}
	return s.write(r.Run, raster)
}

// StoreFeatures writes one band per feature.
func (s *Storage) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	raster, err := grid.Assemble(r.Run.Geometry, r.Result, phenology.FeatureNames, phenology.FeatureVector.Values)
	if err != nil {
		return err
	}
	return s.write(r.Run, raster)
}

// Close is a no-op
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) write(run storage.Run, r *grid.Raster) error {
	doc := Document{
		RunID:    run.ID,
		Variant:  string(run.Variant),
		Bands:    r.Bands,
		Rows:     r.Rows,
		Cols:     r.Cols,
		Geometry: run.Geometry,
		NoData:   float32(math.NaN()),
		Data:     r.Data,
	}

	fh, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("could not create raster %s: %w", s.path, err)
	}
	w := bufio.NewWriter(fh)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json")
	if err := encoder.Encode(&doc); err != nil {
		fh.Close()
		return fmt.Errorf("could not encode raster: %w", err)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Read loads a raster written by this package.
func Read(path string) (*Document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	decoder := msgpack.NewDecoder(bufio.NewReader(fh))
	decoder.SetCustomStructTag("json")
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("could not decode raster %s: %w", path, err)
	}
	return &doc, nil
}
