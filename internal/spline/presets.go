package spline

import (
	"fmt"
	"strings"
)

// Preset names a smoothing weight calibrated for one kind of input series.
type Preset struct {
	Name      string
	Smoothing float64
}

var (
	// PresetNDVI suits normalized indices in [-1, 1].
	PresetNDVI = Preset{Name: "ndvi", Smoothing: 2.0e-3}

	// PresetBackscatter suits decibel-scale radar backscatter, whose wider
	// dynamic range tolerates a stiffer fit.
	PresetBackscatter = Preset{Name: "backscatter", Smoothing: 0.05}
)

// PresetByName looks up a built-in preset.
func PresetByName(name string) (Preset, error) {
	switch strings.ToLower(name) {
	case PresetNDVI.Name:
		return PresetNDVI, nil
	case PresetBackscatter.Name, "vh":
		return PresetBackscatter, nil
	}
	return Preset{}, fmt.Errorf("unknown smoothing preset %q", name)
}

// WithSmoothing returns a copy of the preset using a different weight.
func (p Preset) WithSmoothing(s float64) Preset {
	p.Smoothing = s
	return p
}

// Fit fits times/values with the preset's weight.
func (p Preset) Fit(times, values []float64) (*Curve, error) {
	return Fit(times, values, p.Smoothing)
}
