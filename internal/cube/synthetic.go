package cube

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/chrissnell/phenotrack/internal/timeseries"
)

// Season shapes a synthetic cube. Every cell follows the same curve with its
// dates shifted by Drift days per column.
type Season struct {
	Rows, Cols int
	Start      time.Time
	// Acquisitions are taken every Revisit days.
	Acquisitions int
	Revisit      int
	// Center is the day offset of the feature: the flooding dip in backscatter
	// or the planting minimum in NDVI.
	Center float64
	Drift  float64
	// Noise is the standard deviation of added Gaussian noise.
	Noise float64
	// Cloudy is the fraction of optical samples flagged cloudy.
	Cloudy float64
	Seed   int64
}

func (s Season) date(k int) time.Time {
	return s.Start.AddDate(0, 0, k*s.Revisit)
}

func (s Season) shift(cell int) float64 {
	return s.Center + s.Drift*float64(cell%s.Cols)
}

// Backscatter returns a VH cube whose cells dip by 6 dB around the
// transplanting date.
func (s Season) Backscatter() *File {
	rng := rand.New(rand.NewSource(s.Seed))
	f := &File{Rows: s.Rows, Cols: s.Cols}
	for k := 0; k < s.Acquisitions; k++ {
		data := make([]float32, s.Rows*s.Cols)
		for i := range data {
			dt := float64(k*s.Revisit) - s.shift(i)
			v := -14 - 6*math.Exp(-dt*dt/(2*8*8)) + s.Noise*rng.NormFloat64()
			data[i] = float32(v)
		}
		f.Bands = append(f.Bands, Band{Name: "VH_" + s.date(k).Format(timeseries.DateLayout), Data: data})
	}
	return f
}

// Optical returns red, NIR and scene-class bands whose NDVI bottoms out at
// Center and peaks half a season later.
func (s Season) Optical(opts NDVIOptions) *File {
	rng := rand.New(rand.NewSource(s.Seed))
	f := &File{Rows: s.Rows, Cols: s.Cols}
	length := float64((s.Acquisitions - 1) * s.Revisit)
	for k := 0; k < s.Acquisitions; k++ {
		n := s.Rows * s.Cols
		red, nir, class := make([]float32, n), make([]float32, n), make([]float32, n)
		for i := 0; i < n; i++ {
			dt := float64(k*s.Revisit) - s.shift(i)
			ndvi := 0.45 - 0.3*math.Cos(2*math.Pi*dt/length) + s.Noise*rng.NormFloat64()
			r := 0.08
			red[i] = float32(r / opts.Scale)
			nir[i] = float32(r * (1 + ndvi) / (1 - ndvi) / opts.Scale)
			class[i] = 4
			if s.Cloudy > 0 && rng.Float64() < s.Cloudy {
				class[i] = 9
			}
		}
		day := s.date(k).Format(timeseries.DateLayout)
		f.Bands = append(f.Bands,
			Band{Name: fmt.Sprintf("band_%d_%s", opts.Red, day), Data: red},
			Band{Name: fmt.Sprintf("band_%d_%s", opts.NIR, day), Data: nir},
			Band{Name: fmt.Sprintf("band_%d_%s", opts.Class, day), Data: class},
		)
	}
	return f
}
