// Package report writes results as the fixed-width text report consumed by
// downstream tooling. Column widths and number formats are part of the file
// format and must not change.
//
// The ndat column holds the number of samples fitted for the cell, and 1 for
// cells that were not computed. Older releases wrote 1 on every row; set
// Options.LegacyCount to reproduce that.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chrissnell/phenotrack/internal/phenology"
	"github.com/chrissnell/phenotrack/internal/storage"
)

// legacyCount is the ndat value older releases wrote on every row.
const legacyCount = 1

// Options adjusts the report layout.
type Options struct {
	// LegacyCount writes 1 in the ndat column instead of the sample count.
	LegacyCount bool
}

// Storage writes each result set to a text file
type Storage struct {
	path string
	opts Options
}

// New returns a report store writing to path.
func New(path string) (*Storage, error) {
	return NewWithOptions(path, Options{})
}

// NewWithOptions returns a report store writing to path with opts applied.
func NewWithOptions(path string, opts Options) (*Storage, error) {
	if path == "" {
		return nil, fmt.Errorf("report storage requires a path")
	}
	return &Storage{path: path, opts: opts}, nil
}

// StoreFeatures writes the backscatter feature report.
func (s *Storage) StoreFeatures(ctx context.Context, r *storage.FeatureResult) error {
	return s.write(func(w io.Writer) error {
		return s.opts.WriteFeatures(w, r.Run, r.Cells, r.Records)
	})
}

// StorePeaks writes the planting/heading report.
func (s *Storage) StorePeaks(ctx context.Context, r *storage.PeaksResult) error {
	return s.write(func(w io.Writer) error {
		return WritePeaks(w, r.Run, r.Cells, r.Records)
	})
}

// Close is a no-op; every store call opens and closes its own file.
func (s *Storage) Close() error {
	return nil
}

func (s *Storage) write(fn func(io.Writer) error) error {
	fh, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("could not create report %s: %w", s.path, err)
	}
	w := bufio.NewWriter(fh)
	if err := fn(w); err != nil {
		fh.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// fixed renders v like a %w.pf conversion, printing non-finite values as
// nan/inf/-inf.
func fixed(v float64, width, prec int) string {
	return pad(v, width, func() string { return strconv.FormatFloat(v, 'f', prec, 64) })
}

// sci renders v in %w.pe form with the same non-finite spelling as fixed.
func sci(v float64, width, prec int) string {
	return pad(v, width, func() string { return strconv.FormatFloat(v, 'e', prec, 64) })
}

func pad(v float64, width int, format func() string) string {
	var s string
	switch {
	case math.IsNaN(v):
		s = "nan"
	case math.IsInf(v, 1):
		s = "inf"
	case math.IsInf(v, -1):
		s = "-inf"
	default:
		s = format()
	}
	if len(s) < width {
		s = strings.Repeat(" ", width-len(s)) + s
	}
	return s
}

func flag(f phenology.EdgeFlag) string {
	return fmt.Sprintf("%2d", int(f))
}

func writeRunHeader(w io.Writer, run storage.Run) error {
	_, err := fmt.Fprintf(w, "# %.5f %.5f %4d\n", run.WindowStart, run.WindowEnd, run.Acquisitions)
	return err
}

// WriteFeatures writes one row per cell in cells order.
func WriteFeatures(w io.Writer, run storage.Run, cells []int, records []phenology.FeatureVector) error {
	return Options{}.WriteFeatures(w, run, cells, records)
}

// WriteFeatures writes one row per cell in cells order.
func (o Options) WriteFeatures(w io.Writer, run storage.Run, cells []int, records []phenology.FeatureVector) error {
	if err := writeRunHeader(w, run); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %5s %4s ", "i", "ndat")
	fmt.Fprintf(&b, "%11s %11s %4s ", "tmin", "vmin", "fmin")
	fmt.Fprintf(&b, "%11s %11s %4s ", "tlft", "vlft", "flft")
	fmt.Fprintf(&b, "%11s %11s %4s ", "trgt", "vrgt", "frgt")
	fmt.Fprintf(&b, "%13s %13s ", "dmin", "dstd")
	fmt.Fprintf(&b, "%9s %4s ", "tleg", "fleg")
	fmt.Fprintf(&b, "%9s %4s ", "treg", "freg")
	fmt.Fprintf(&b, "%13s %13s ", "sstd", "scor")
	fmt.Fprintf(&b, "%11s %11s %4s ", "traw", "vraw", "fraw")
	fmt.Fprintf(&b, "%13s %13s %13s ", "draw", "rstd", "rcor")
	fmt.Fprintf(&b, "%13s %13s\n", "bavg", "bstd")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	for k, cell := range cells {
		if _, err := io.WriteString(w, o.FeatureRow(cell, records[k])); err != nil {
			return err
		}
	}
	return nil
}

func extremum(b *strings.Builder, e phenology.Extremum) {
	b.WriteString(fixed(e.Time, 11, 3) + " " + sci(e.Value, 13, 6) + " " + flag(e.Edge) + " ")
}

func boundary(b *strings.Builder, e phenology.Boundary) {
	b.WriteString(fixed(e.Time, 11, 3) + " " + flag(e.Flag) + " ")
}

// FeatureRow formats a single report line, newline included.
func FeatureRow(cell int, f phenology.FeatureVector) string {
	return Options{}.FeatureRow(cell, f)
}

// FeatureRow formats a single report line, newline included.
func (o Options) FeatureRow(cell int, f phenology.FeatureVector) string {
	count := f.Count
	if o.LegacyCount {
		count = legacyCount
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%8d %3d ", cell, count)
	extremum(&b, f.Min)
	extremum(&b, f.LeftPeak)
	extremum(&b, f.RightPeak)
	b.WriteString(sci(f.Depth, 13, 6) + " " + sci(f.ResidualStd, 13, 6) + " ")
	boundary(&b, f.LeftBoundary)
	boundary(&b, f.RightBoundary)
	b.WriteString(sci(f.CurveStd, 13, 6) + " " + sci(f.CurveCorr, 13, 6) + " ")
	extremum(&b, f.RawMin)
	b.WriteString(sci(f.RawDepth, 13, 6) + " " + sci(f.RawStd, 13, 6) + " " + sci(f.RawCorr, 13, 6) + " ")
	b.WriteString(sci(f.BaselineMean, 13, 6) + " " + sci(f.BaselineStd, 13, 6) + "\n")
	return b.String()
}

// WritePeaks writes planting and heading stages, one row per cell.
func WritePeaks(w io.Writer, run storage.Run, cells []int, records []phenology.Peaks) error {
	if err := writeRunHeader(w, run); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# %5s %11s %13s %4s %11s %13s %4s\n",
		"i", "tpln", "vpln", "fpln", "thed", "vhed", "fhed"); err != nil {
		return err
	}
	for k, cell := range cells {
		p := records[k]
		var b strings.Builder
		fmt.Fprintf(&b, "%8d ", cell)
		extremum(&b, p.Planting)
		extremum(&b, p.Heading)
		line := strings.TrimSuffix(b.String(), " ") + "\n"
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
