// Package dateformat formats and parses dates with moment-style patterns
// (YYYY-MM-DD, gggg-[W]ww, YYYY-[Q]Q, ...) under a configurable locale and
// clock.
package dateformat

import (
	"time"
)

// Library formats, parses and rounds dates for one locale, clock and time
// zone. A Library is immutable and safe for concurrent use.
type Library struct {
	locale Locale
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Library.
type Option func(*Library)

// WithLocale sets the locale used for names and week rules.
func WithLocale(l Locale) Option {
	return func(lib *Library) {
		lib.locale = l
	}
}

// WithClock sets the function used as "now" for validation and parse defaults.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) {
		lib.now = now
	}
}

// WithLocation sets the time zone in which dates are built.
func WithLocation(loc *time.Location) Option {
	return func(lib *Library) {
		lib.loc = loc
	}
}

// New creates a Library. Defaults: English locale, time.Now, time.Local.
func New(opts ...Option) *Library {
	lib := &Library{
		locale: English(),
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// Now returns the current time in the library's time zone.
func (l *Library) Now() time.Time {
	return l.now().In(l.loc)
}

// Locale returns the library's locale.
func (l *Library) Locale() Locale {
	return l.locale
}

// Date builds a date at midnight in the library's time zone.
func (l *Library) Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, l.loc)
}

// StartOf rounds t down to the beginning of unit. Weeks start on the
// locale's first day of the week.
func (l *Library) StartOf(t time.Time, unit Unit) time.Time {
	t = t.In(l.loc)
	y, m, d := t.Date()
	switch unit {
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, l.loc)
	case Quarter:
		return time.Date(y, (m-1)/3*3+1, 1, 0, 0, 0, 0, l.loc)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, l.loc)
	case Week:
		diff := (int(t.Weekday()) - l.locale.Dow + 7) % 7
		return time.Date(y, m, d-diff, 0, 0, 0, 0, l.loc)
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
	case Hour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, l.loc)
	case Minute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, l.loc)
	case Second:
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, l.loc)
	}
	return t
}

// Add moves t by n units. Month, quarter and year steps clamp the day of month.
func (l *Library) Add(t time.Time, n int, unit Unit) time.Time {
	switch unit {
	case Year:
		return addMonths(t, 12*n)
	case Quarter:
		return addMonths(t, 3*n)
	case Month:
		return addMonths(t, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Day:
		return t.AddDate(0, 0, n)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	}
	return t
}

// Week returns the locale week number and week-year of t.
func (l *Library) Week(t time.Time) (week, year int) {
	return weekOfYear(t.In(l.loc), l.locale.Dow, l.locale.Doy)
}

// ISOWeek returns the ISO 8601 week number and week-year of t.
func (l *Library) ISOWeek(t time.Time) (week, year int) {
	return weekOfYear(t.In(l.loc), 1, 4)
}

// Weekday returns the date of the given weekday within t's locale week.
func (l *Library) Weekday(t time.Time, day time.Weekday) time.Time {
	start := l.StartOf(t, Week)
	offset := (int(day) - l.locale.Dow + 7) % 7
	h, m, s := t.In(l.loc).Clock()
	return time.Date(start.Year(), start.Month(), start.Day()+offset, h, m, s, t.Nanosecond(), l.loc)
}
