package dateformat

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Locale holds the names and week rules used to format and parse dates.
//
// Dow is the first day of the week (0 = Sunday). Doy controls which day of
// January always falls in week 1: the week containing January (7 + Dow - Doy)
// is the first week of the year. English uses Dow 0 / Doy 6 (the week holding
// January 1st); ISO 8601 uses Dow 1 / Doy 4.
type Locale struct {
	Name          string
	Months        [12]string
	MonthsShort   [12]string
	Weekdays      [7]string
	WeekdaysShort [7]string
	WeekdaysMin   [7]string
	Dow           int
	Doy           int
}

// English returns the default "en" locale.
func English() Locale {
	return Locale{
		Name: "en",
		Months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		MonthsShort: [12]string{
			"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
		},
		Weekdays:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		WeekdaysShort: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		WeekdaysMin:   [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"},
		Dow:           0,
		Doy:           6,
	}
}

// WithWeekStart returns a copy of l whose weeks start on dow. Doy is kept,
// matching how a week-start override is applied on top of a locale.
func (l Locale) WithWeekStart(dow time.Weekday) Locale {
	l.Dow = int(dow)
	return l
}

// Regions whose calendars start the week on Sunday or Saturday. Everything
// else follows ISO rules.
var (
	sundayRegions = map[string]struct{}{
		"US": {}, "CA": {}, "JP": {}, "BR": {}, "MX": {}, "IL": {}, "KR": {},
		"TW": {}, "HK": {}, "PH": {}, "IN": {}, "ZA": {}, "AU": {}, "SG": {},
	}
	saturdayRegions = map[string]struct{}{
		"AF": {}, "DZ": {}, "EG": {}, "IR": {}, "IQ": {}, "JO": {}, "KW": {},
		"LY": {}, "OM": {}, "QA": {}, "SY": {},
	}
)

// ForTag derives week rules for a BCP-47 locale tag such as "en-GB" or "de".
// Names stay English; only the week layout follows the tag's region.
func ForTag(tag string) (Locale, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return Locale{}, err
	}
	l := English()
	l.Name = strings.ToLower(t.String())

	region, _ := t.Region()
	switch code := region.String(); {
	case isIn(sundayRegions, code):
		l.Dow, l.Doy = 0, 6
	case isIn(saturdayRegions, code):
		l.Dow, l.Doy = 6, 12
	default:
		l.Dow, l.Doy = 1, 4
	}
	return l, nil
}

func isIn(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// ordinal renders n with its English suffix (1st, 2nd, 3rd, 11th).
func ordinal(n int) string {
	suffix := "th"
	if (n%100)/10 != 1 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
