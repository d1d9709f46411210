// Package periodic maps calendar dates to periodic note files and back.
//
// Every function takes its configuration and date library as parameters; the
// package holds no state of its own.
package periodic

import (
	"fmt"
	"time"

	"github.com/starford/periodic/internal/dateformat"
)

// Granularity is the time bucket a periodic note covers.
type Granularity string

const (
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// Granularities lists every granularity from the finest to the coarsest.
var Granularities = []Granularity{Day, Week, Month, Quarter, Year}

var periodicities = map[Granularity]string{
	Day:     "daily",
	Week:    "weekly",
	Month:   "monthly",
	Quarter: "quarterly",
	Year:    "yearly",
}

var defaultFormats = map[Granularity]string{
	Day:     "YYYY-MM-DD",
	Week:    "gggg-[W]ww",
	Month:   "YYYY-MM",
	Quarter: "YYYY-[Q]Q",
	Year:    "YYYY",
}

// ParseGranularity accepts either a granularity ("week") or its periodicity
// ("weekly").
func ParseGranularity(s string) (Granularity, error) {
	for _, g := range Granularities {
		if s == string(g) || s == periodicities[g] {
			return g, nil
		}
	}
	return "", fmt.Errorf("periodic: unknown granularity %q", s)
}

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	_, ok := periodicities[g]
	return ok
}

// Periodicity returns the adjective form: daily, weekly, ...
func (g Granularity) Periodicity() string {
	return periodicities[g]
}

// DefaultFormat returns the format used when none is configured.
func (g Granularity) DefaultFormat() string {
	return defaultFormats[g]
}

// Unit returns the date library unit used to round dates to g.
func (g Granularity) Unit() dateformat.Unit {
	return dateformat.Unit(g)
}

// DateLibrary formats, parses and rounds dates. *dateformat.Library
// satisfies it.
type DateLibrary interface {
	Now() time.Time
	Format(t time.Time, pattern string) string
	Parse(value, pattern string, strict bool) (time.Time, error)
	StartOf(t time.Time, unit dateformat.Unit) time.Time
}

var _ DateLibrary = (*dateformat.Library)(nil)
