package dateformat

import (
	"fmt"
	"time"
)

// Unit is a calendar unit understood by StartOf and Add.
type Unit string

// Calendar units.
const (
	Second  Unit = "second"
	Minute  Unit = "minute"
	Hour    Unit = "hour"
	Day     Unit = "day"
	Week    Unit = "week"
	Month   Unit = "month"
	Quarter Unit = "quarter"
	Year    Unit = "year"
)

// ParseUnit maps a unit name or shorthand (y, Q, M, w, d, h, m, s) to a Unit.
// Shorthands are case-sensitive: "M" is month and "m" is minute.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "y", "Y", "year", "years":
		return Year, nil
	case "q", "Q", "quarter", "quarters":
		return Quarter, nil
	case "M", "month", "months":
		return Month, nil
	case "w", "W", "week", "weeks":
		return Week, nil
	case "d", "D", "day", "days":
		return Day, nil
	case "h", "H", "hour", "hours":
		return Hour, nil
	case "m", "minute", "minutes":
		return Minute, nil
	case "s", "second", "seconds":
		return Second, nil
	}
	return "", fmt.Errorf("dateformat: unknown unit %q", s)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInYear(year int) int {
	if isLeap(year) {
		return 366
	}
	return 365
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// firstWeekOffset returns the offset (in days, relative to January 1st) of the
// first day of week 1.
func firstWeekOffset(year, dow, doy int) int {
	fwd := 7 + dow - doy
	fwdlw := (7 + int(time.Date(year, time.January, fwd, 0, 0, 0, 0, time.UTC).Weekday()) - dow) % 7
	return -fwdlw + fwd - 1
}

func weeksInYear(year, dow, doy int) int {
	return (daysInYear(year) - firstWeekOffset(year, dow, doy) + firstWeekOffset(year+1, dow, doy)) / 7
}

// weekOfYear returns the week number and week-year of t under the given rules.
func weekOfYear(t time.Time, dow, doy int) (week, year int) {
	offset := firstWeekOffset(t.Year(), dow, doy)
	week = floorDiv(t.YearDay()-offset-1, 7) + 1
	switch {
	case week < 1:
		year = t.Year() - 1
		week += weeksInYear(year, dow, doy)
	case week > weeksInYear(t.Year(), dow, doy):
		week -= weeksInYear(t.Year(), dow, doy)
		year = t.Year() + 1
	default:
		year = t.Year()
	}
	return week, year
}

// dayOfYearFromWeeks converts a week-year, week and weekday into a calendar
// year and day of that year.
func dayOfYearFromWeeks(year, week, weekday, dow, doy int) (int, int) {
	localWeekday := (7 + weekday - dow) % 7
	dayOfYear := 1 + 7*(week-1) + localWeekday + firstWeekOffset(year, dow, doy)
	switch {
	case dayOfYear <= 0:
		return year - 1, daysInYear(year-1) + dayOfYear
	case dayOfYear > daysInYear(year):
		return year + 1, dayOfYear - daysInYear(year)
	}
	return year, dayOfYear
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// addMonths moves t by n months, clamping the day to the target month's end.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
