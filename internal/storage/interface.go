// Package storage defines the result sets produced by a grid run and the
// interface implemented by every result store.
package storage

import (
	"context"
	"time"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/google/uuid"
)

// StorageEngineInterface is implemented by every result store
type StorageEngineInterface interface {
	StorePeaks(ctx context.Context, r *PeaksResult) error
	StoreFeatures(ctx context.Context, r *FeatureResult) error
	Close() error
}

// Variant names the analysis that produced a result
type Variant string

const (
	VariantPeaks      Variant = "peaks"
	VariantTransplant Variant = "transplant"
)

// Run describes one grid run. Every store records it alongside the cells.
// Cell outcome counts live in the embedded grid.Result of each result set.
type Run struct {
	ID        string
	Variant   Variant
	Source    string
	StartedAt time.Time
	// WindowStart and WindowEnd bound the query grid in day numbers.
	WindowStart  float64
	WindowEnd    float64
	Acquisitions int
	Geometry     grid.Geometry
}

// NewRun stamps a new run with a random identifier.
func NewRun(variant Variant, source string) Run {
	return Run{
		ID:        uuid.New().String(),
		Variant:   variant,
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
}

// PeaksResult holds planting/heading peaks per cell
type PeaksResult struct {
	Run Run
	*grid.Result[phenology.Peaks]
}

// FeatureResult holds backscatter feature vectors per cell
type FeatureResult struct {
	Run Run
	*grid.Result[phenology.FeatureVector]
}
