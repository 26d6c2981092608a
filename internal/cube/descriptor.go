package cube

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/chrissnell/phenotrack/internal/timeseries"
)

var (
	opticalName = regexp.MustCompile(`band_(\d+)_(\d+)$`)
	datedName   = regexp.MustCompile(`_(\d+)$`)
)

// Descriptor is what a band name says about its contents.
type Descriptor struct {
	// Number is the sensor band number, or -1 when the name carries none.
	Number int
	Date   time.Time
}

// ParseDescriptor parses band_<n>_<YYYYMMDD> or <anything>_<YYYYMMDD>.
func ParseDescriptor(name string) (Descriptor, error) {
	if m := opticalName.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Descriptor{}, fmt.Errorf("band %q: %w", name, err)
		}
		d, err := timeseries.ParseDate(m[2])
		if err != nil {
			return Descriptor{}, fmt.Errorf("band %q: %w", name, err)
		}
		return Descriptor{Number: n, Date: d}, nil
	}
	if m := datedName.FindStringSubmatch(name); m != nil {
		d, err := timeseries.ParseDate(m[1])
		if err != nil {
			return Descriptor{}, fmt.Errorf("band %q: %w", name, err)
		}
		return Descriptor{Number: -1, Date: d}, nil
	}
	return Descriptor{}, fmt.Errorf("band %q carries no acquisition date", name)
}
