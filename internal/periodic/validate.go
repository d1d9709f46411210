package periodic

import (
	"regexp"
	"strings"

	"github.com/starford/periodic/internal/dateformat"
)

// Validation messages.
const (
	MsgEmpty         = "Format is empty"
	MsgUnparseable   = "Format cannot be parsed back into a date"
	MsgNoRoundTrip   = "Format does not round-trip"
	MsgIllegal       = "Format produces an illegal filename"
	MsgFragileNumber = "Filename is a bare number and is easily confused with other notes"
	MsgFragileBase   = "Filename does not contain a year, month and day; notes in different folders will share a name"
)

var (
	illegalChars    = regexp.MustCompile(`[?<>\\:*|"]`)
	controlChars    = regexp.MustCompile(`[\x00-\x1f\x{80}-\x{9f}]`)
	dotsOnly        = regexp.MustCompile(`^\.+$`)
	windowsReserved = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
	shortNumber     = regexp.MustCompile(`^\d{1,2}$`)
)

// ValidateFormat checks that format renders and re-parses the current date
// for g, pins down a single g-period, and yields legal filenames. It returns a
// message describing the first problem, or "" when the format is valid.
func ValidateFormat(lib DateLibrary, format string, g Granularity) string {
	if format == "" {
		return MsgEmpty
	}
	return validate(lib, format, g)
}

// ValidateFormatInput is ValidateFormat for text still being edited: an empty
// format reports no error.
func ValidateFormatInput(lib DateLibrary, format string, g Granularity) string {
	if format == "" {
		return ""
	}
	return validate(lib, format, g)
}

func validate(lib DateLibrary, format string, g Granularity) string {
	now := lib.Now()
	rendered := lib.Format(now, format)
	parsed, err := lib.Parse(rendered, format, true)
	if err != nil {
		return MsgUnparseable
	}
	if lib.Format(parsed, format) != rendered {
		return MsgNoRoundTrip
	}
	if !lib.StartOf(parsed, g.Unit()).Equal(lib.StartOf(now, g.Unit())) {
		return "Format is ambiguous for " + g.Periodicity() + " notes"
	}
	for _, seg := range strings.Split(rendered, "/") {
		if !ValidFilename(seg) {
			return MsgIllegal
		}
	}
	return ""
}

// ValidFilename reports whether name can be used as a file name on every
// common platform.
func ValidFilename(name string) bool {
	return !illegalChars.MatchString(name) &&
		!controlChars.MatchString(name) &&
		!dotsOnly.MatchString(name) &&
		!windowsReserved.MatchString(name)
}

// FormatWarning returns a non-fatal remark about a format that is valid but
// fragile, or "".
func FormatWarning(lib DateLibrary, format string, g Granularity) string {
	if format == "" {
		return ""
	}
	rendered := lib.Format(lib.Now(), format)
	if g != Day && shortNumber.MatchString(baseName(rendered)) {
		return MsgFragileNumber
	}
	stripped := dateformat.StripEscaped(format)
	if g == Day && strings.Contains(stripped, "/") {
		base := strings.ToLower(baseName(stripped))
		if !strings.Contains(base, "y") || !strings.Contains(base, "m") || !strings.Contains(base, "d") {
			return MsgFragileBase
		}
	}
	return ""
}

func baseName(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}
