// Package cube reads the co-registered multi-temporal rasters handed to the
// analysis and turns them into per-cell time series.
package cube

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNoAcquisitions is returned when no band survives date filtering.
var ErrNoAcquisitions = errors.New("no acquisitions in the requested period")

// Band is one acquisition of one channel, row-major over the grid.
type Band struct {
	Name string    `msgpack:"name"`
	Data []float32 `msgpack:"data"`
}

// File is a cube already resampled onto the analysis grid.
type File struct {
	Rows  int    `msgpack:"rows"`
	Cols  int    `msgpack:"cols"`
	Bands []Band `msgpack:"bands"`
}

// Validate checks every band holds Rows*Cols values.
func (f *File) Validate() error {
	n := f.Rows * f.Cols
	for _, b := range f.Bands {
		if len(b.Data) != n {
			return fmt.Errorf("%w: band %s has %d values, want %dx%d", grid.ErrShapeMismatch, b.Name, len(b.Data), f.Rows, f.Cols)
		}
	}
	return nil
}

// Check verifies the cube covers g.
func (f *File) Check(g grid.Geometry) error {
	if f.Rows != g.Rows() || f.Cols != g.Cols() {
		return fmt.Errorf("%w: cube %dx%d, grid %dx%d", grid.ErrShapeMismatch, f.Rows, f.Cols, g.Rows(), g.Cols())
	}
	return nil
}

// Load reads a MessagePack cube.
func Load(path string) (*File, error) {
	var f File
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("cube %s: %w", path, err)
	}
	return &f, nil
}

// Save writes f as MessagePack.
func Save(path string, f *File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return encodeFile(path, f)
}

// LoadMask reads a MessagePack mask.
func LoadMask(path string) (*grid.Mask, error) {
	var m grid.Mask
	if err := decodeFile(path, &m); err != nil {
		return nil, err
	}
	return grid.NewMask(m.Rows, m.Cols, m.Data)
}

// SaveMask writes m as MessagePack.
func SaveMask(path string, m *grid.Mask) error {
	return encodeFile(path, m)
}

func decodeFile(path string, v any) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer fh.Close()

	if err := msgpack.NewDecoder(bufio.NewReader(fh)).Decode(v); err != nil {
		return fmt.Errorf("could not decode %s: %w", path, err)
	}
	return nil
}

func encodeFile(path string, v any) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}

	w := bufio.NewWriter(fh)
	if err := msgpack.NewEncoder(w).Encode(v); err != nil {
		fh.Close()
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
