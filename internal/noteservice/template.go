package noteservice

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/periodic"
)

var (
	plainDateRe  = regexp.MustCompile(`(?i){{\s*date\s*}}`)
	plainTimeRe  = regexp.MustCompile(`(?i){{\s*time\s*}}`)
	titleRe      = regexp.MustCompile(`(?i){{\s*title\s*}}`)
	dateTimeRe   = regexp.MustCompile(`(?i){{\s*(date|time)\s*(([+-]\d+)([yqmwdhs]))?\s*(:.+?)?}}`)
	yesterdayRe  = regexp.MustCompile(`(?i){{\s*yesterday\s*}}`)
	tomorrowRe   = regexp.MustCompile(`(?i){{\s*tomorrow\s*}}`)
	weekdayRe    = regexp.MustCompile(`(?i){{\s*(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\s*:(.*?)}}`)
	weekdayNames = map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
)

// TemplateData is what a template is expanded against.
type TemplateData struct {
	Lib         *dateformat.Library
	Granularity periodic.Granularity
	// Date is the start of the note's period.
	Date time.Time
	// Format is the note's filename format, used where a token has none.
	Format string
	// Title is the note's filename without extension.
	Title string
}

// Expand replaces the template tokens in tmpl:
//
//	{{date}} {{title}}          the note title
//	{{time}}                    the current time, HH:mm
//	{{date+1d:FORMAT}}          the note date, shifted and formatted
//	{{yesterday}} {{tomorrow}}  daily notes only
//	{{monday:FORMAT}}           weekly notes only, that day of the note's week
//
// Shifts take y, q, M, w, d, h, m or s. The current time of day is carried
// onto the note date before shifting.
func Expand(tmpl string, d TemplateData) string {
	if tmpl == "" {
		return ""
	}
	lib := d.Lib
	now := lib.Now()

	out := plainDateRe.ReplaceAllLiteralString(tmpl, d.Title)
	out = plainTimeRe.ReplaceAllLiteralString(out, lib.Format(now, "HH:mm"))
	out = titleRe.ReplaceAllLiteralString(out, d.Title)

	out = dateTimeRe.ReplaceAllStringFunc(out, func(tok string) string {
		m := dateTimeRe.FindStringSubmatch(tok)
		h, mi, sec := now.Clock()
		y, mo, day := d.Date.Date()
		t := time.Date(y, mo, day, h, mi, sec, 0, d.Date.Location())
		if m[2] != "" {
			n, err := strconv.Atoi(m[3])
			unit, uerr := dateformat.ParseUnit(m[4])
			if err != nil || uerr != nil {
				return tok
			}
			t = lib.Add(t, n, unit)
		}
		if m[5] != "" {
			return lib.Format(t, strings.TrimSpace(m[5][1:]))
		}
		return lib.Format(t, d.Format)
	})

	switch d.Granularity {
	case periodic.Day:
		out = yesterdayRe.ReplaceAllLiteralString(out, lib.Format(lib.Add(d.Date, -1, dateformat.Day), d.Format))
		out = tomorrowRe.ReplaceAllLiteralString(out, lib.Format(lib.Add(d.Date, 1, dateformat.Day), d.Format))
	case periodic.Week:
		out = weekdayRe.ReplaceAllStringFunc(out, func(tok string) string {
			m := weekdayRe.FindStringSubmatch(tok)
			day := lib.Weekday(d.Date, weekdayNames[strings.ToLower(m[1])])
			return lib.Format(day, strings.TrimSpace(m[2]))
		})
	}
	return out
}
