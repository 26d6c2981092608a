// Package main writes synthetic optical or radar cubes on a small grid for
// demos and smoke tests of phenotrack.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/chrissnell/phenotrack/internal/cube"
	"github.com/chrissnell/phenotrack/internal/grid"
	"github.com/chrissnell/phenotrack/internal/timeseries"
)

func main() {
	kind := flag.String("kind", "vh", "Cube to generate: 'vh' (backscatter) or 'optical'")
	out := flag.String("out", "cube.msgpack", "Output cube file")
	maskOut := flag.String("mask", "", "Also write a mask excluding every third cell")
	rows := flag.Int("rows", 10, "Grid rows")
	cols := flag.Int("cols", 10, "Grid columns")
	start := flag.String("start", "20200101", "First acquisition YYYYMMDD")
	n := flag.Int("n", 11, "Number of acquisitions")
	revisit := flag.Int("revisit", 6, "Days between acquisitions")
	center := flag.Float64("center", 30, "Day offset of the transplanting dip or planting minimum")
	drift := flag.Float64("drift", 0.5, "Days the feature shifts per column")
	noise := flag.Float64("noise", 0.3, "Standard deviation of added noise")
	cloudy := flag.Float64("cloudy", 0.1, "Fraction of cloudy optical samples")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	t0, err := timeseries.ParseDate(*start)
	if err != nil {
		log.Fatal(err)
	}

	season := cube.Season{
		Rows:         *rows,
		Cols:         *cols,
		Start:        t0,
		Acquisitions: *n,
		Revisit:      *revisit,
		Center:       *center,
		Drift:        *drift,
		Noise:        *noise,
		Cloudy:       *cloudy,
		Seed:         *seed,
	}

	var f *cube.File
	switch *kind {
	case "vh":
		f = season.Backscatter()
	case "optical":
		f = season.Optical(cube.DefaultNDVIOptions())
	default:
		log.Fatalf("unknown cube kind %q", *kind)
	}

	if err := cube.Save(*out, f); err != nil {
		log.Fatalf("could not write cube: %v", err)
	}
	log.Printf("wrote %d bands on a %dx%d grid to %s", len(f.Bands), f.Rows, f.Cols, *out)

	if *maskOut != "" {
		data := make([]uint8, *rows**cols)
		for i := range data {
			if i%3 != 0 {
				data[i] = 1
			}
		}
		m, err := grid.NewMask(*rows, *cols, data)
		if err != nil {
			log.Fatal(err)
		}
		if err := cube.SaveMask(*maskOut, m); err != nil {
			log.Fatalf("could not write mask: %v", err)
		}
		log.Printf("wrote mask admitting %d of %d cells to %s", m.Count(), len(data), *maskOut)
	}
}
