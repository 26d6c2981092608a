package phenology

// PeakBandNames names the bands of the peaks raster in Peaks.Values order.
var PeakBandNames = []string{"planting_date", "planting_ndvi", "heading_date", "heading_ndvi"}

// Peaks holds the planting stage (NDVI minimum) and heading stage (NDVI
// maximum) found inside the analysis window.
type Peaks struct {
	Planting Extremum
	Heading  Extremum
}

// SentinelPeaks is stored for masked, sparse or failed cells.
func SentinelPeaks() Peaks {
	return Peaks{Planting: missingExtremum(), Heading: missingExtremum()}
}

// Computed reports whether both stages were located.
func (p Peaks) Computed() bool {
	return p.Planting.Index >= 0 && p.Heading.Index >= 0
}

// Values flattens the peaks in PeakBandNames order.
func (p Peaks) Values() []float64 {
	return []float64{p.Planting.Time, p.Planting.Value, p.Heading.Time, p.Heading.Value}
}

// ExtractPeaks locates the minimum and maximum of c over window.
func ExtractPeaks(c Curve, window []float64) (Peaks, error) {
	prof, err := Sample(c, window)
	if err != nil {
		return Peaks{}, err
	}
	return Peaks{
		Planting: prof.Locate(Minimum),
		Heading:  prof.Locate(Maximum),
	}, nil
}
