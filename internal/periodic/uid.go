package periodic

import (
	"time"

	"github.com/starford/periodic/internal/dateformat"
)

const uidLayout = "YYYY-MM-DDTHH:mm:ssZ"

// DateUID returns the key identifying the g-period that contains date.
//
// The period boundary follows lib (so a user's week start is honoured), but
// the timestamp is always rendered with the English locale so that keys do not
// change when the display locale does.
func DateUID(lib DateLibrary, date time.Time, g Granularity) string {
	start := lib.StartOf(date, g.Unit())
	en := dateformat.New(dateformat.WithLocation(start.Location()))
	return string(g) + "-" + en.Format(start, uidLayout)
}
