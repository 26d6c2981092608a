package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// unixEpochJD is the Julian day of 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// DateLayout is the compact date format used in band names and on the command line.
const DateLayout = "20060102"

// DayNumber converts t to an ordinal day number: fractional days since
// 1970-01-01 UTC.
func DayNumber(t time.Time) float64 {
	return julian.TimeToJD(t.UTC()) - unixEpochJD
}

// DayTime converts a day number back to a UTC time.
func DayTime(d float64) time.Time {
	return julian.JDToTime(d + unixEpochJD).UTC()
}

// ParseDate parses a YYYYMMDD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYYMMDD: %w", s, err)
	}
	return t, nil
}

// UniformGrid returns start, start+step, ... for every value strictly below stop.
// The number of points is ceil((stop-start)/step).
func UniformGrid(start, stop, step float64) []float64 {
	if step <= 0 || !(stop > start) {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	return grid
}

// Between returns the points of grid with lo < x < hi.
func Between(grid []float64, lo, hi float64) []float64 {
	var out []float64
	for _, x := range grid {
		if x > lo && x < hi {
			out = append(out, x)
		}
	}
	return out
}
