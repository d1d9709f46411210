package periodic

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/periodic/internal/dateformat"
)

var (
	monthDayTokens = regexp.MustCompile(`M{1,4}|D{1,4}`)
	weekTokens     = regexp.MustCompile(`[wW]`)
)

// DateFromFilename returns the date a note name stands for under g.
//
// filename may be a path and may carry the .md extension; only the base name
// is compared. Formats are compared by their last path segment as well, so a
// format such as "YYYY/MM/YYYY-MM-DD" matches "2024-03-15".
//
// With currentOnly the name is parsed strictly against the selected format
// alone. Otherwise the accepted formats are tried oldest first and the first
// one that both parses the name and renders it back verbatim wins.
func DateFromFilename(lib DateLibrary, cfg Config, filename string, g Granularity, currentOnly bool) (time.Time, bool) {
	if !g.Valid() {
		return time.Time{}, false
	}
	name := strings.TrimSuffix(baseName(filename), ".md")
	nc := cfg.Get(g)

	if currentOnly {
		t, err := lib.Parse(name, baseName(nc.SelectedFormat(g)), true)
		if err != nil {
			return time.Time{}, false
		}
		return weekFix(lib, name, baseName(nc.SelectedFormat(g)), g, t), true
	}
	for _, f := range nc.lookupFormats(g) {
		format := baseName(f)
		t, err := lib.Parse(name, format, true)
		if err != nil {
			continue
		}
		fixed := weekFix(lib, name, format, g, t)
		// A week note is named after its first day, whose month may differ
		// from the month the strict parse lands on. Either reading may
		// render the name back.
		if lib.Format(t, format) != name && lib.Format(fixed, format) != name {
			continue
		}
		return fixed, true
	}
	return time.Time{}, false
}

// weekFix re-reads a weekly name without its month and day tokens. The
// parser lets month and day of month override week-of-year, so formats that
// carry both would otherwise lose the week number.
func weekFix(lib DateLibrary, name, format string, g Granularity, t time.Time) time.Time {
	if g != Week || !mixesWeekAndMonth(format) {
		return t
	}
	if patched, err := lib.Parse(name, stripMonthDay(format), false); err == nil {
		return patched
	}
	return t
}

// stripMonthDay removes month and day-of-month tokens outside bracketed
// literals.
func stripMonthDay(format string) string {
	var b strings.Builder
	for format != "" {
		i := strings.IndexByte(format, '[')
		if i < 0 {
			break
		}
		j := strings.IndexByte(format[i:], ']')
		if j < 0 {
			break
		}
		b.WriteString(monthDayTokens.ReplaceAllString(format[:i], ""))
		b.WriteString(format[i : i+j+1])
		format = format[i+j+1:]
	}
	b.WriteString(monthDayTokens.ReplaceAllString(format, ""))
	return b.String()
}

func mixesWeekAndMonth(format string) bool {
	cleaned := dateformat.StripEscaped(format)
	return weekTokens.MatchString(cleaned) && strings.ContainsAny(cleaned, "MD")
}

// Classify assigns a vault path to the first enabled granularity, from day to
// year, whose folder contains the path and whose formats resolve its name.
func Classify(lib DateLibrary, cfg Config, path string) (Granularity, time.Time, bool) {
	if !strings.HasSuffix(path, ".md") {
		return "", time.Time{}, false
	}
	path = strings.TrimPrefix(JoinPath(path), "/")
	for _, g := range Granularities {
		nc := cfg.Get(g)
		if !nc.Enabled || !inFolder(path, nc.Folder) {
			continue
		}
		if t, ok := DateFromFilename(lib, cfg, path, g, false); ok {
			return g, t, true
		}
	}
	return "", time.Time{}, false
}

// IsPeriodicNote reports whether path is the note of some enabled granularity.
func IsPeriodicNote(lib DateLibrary, cfg Config, path string) bool {
	_, _, ok := Classify(lib, cfg, path)
	return ok
}

func inFolder(path, folder string) bool {
	folder = strings.TrimPrefix(JoinPath(folder), "/")
	if folder == "" {
		return true
	}
	return strings.HasPrefix(path, folder+"/")
}
