package dateformat

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned (wrapped) when a value does not parse to a valid
// date under a pattern.
var ErrInvalidDate = errors.New("invalid date")

const (
	fieldYear = iota
	fieldMonth
	fieldDate
	fieldHour
	fieldMinute
	fieldSecond
	fieldMillisecond
	fieldCount
)

// Week fields collected while parsing. They only decide the date when neither
// month nor day of month was parsed.
const (
	weekYearLocale = "gg"
	weekLocale     = "w"
	weekYearISO    = "GG"
	weekISO        = "W"
	weekdayLocale  = "e"
	weekdayISO     = "E"
	weekdayNumber  = "d"
)

type parseState struct {
	a         [fieldCount]int
	set       [fieldCount]bool
	dayOfYear int
	hasDOY    bool
	week      map[string]int
	meridiem  string
	bigHour   bool
	offset    *int // seconds east of UTC
	instant   *time.Time
	empty     bool
}

func (s *parseState) setField(f, v int) {
	s.a[f] = v
	s.set[f] = true
}

func (s *parseState) setWeek(key string, v int) {
	if s.week == nil {
		s.week = make(map[string]int)
	}
	s.week[key] = v
}

func (s *parseState) hasWeek(key string) bool {
	_, ok := s.week[key]
	return ok
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDate, fmt.Sprintf(format, args...))
}

// Parse reads value according to pattern.
//
// In strict mode every token must match at the current position with its
// exact width, literals must match verbatim and no input may be left over.
// In loose mode tokens are searched for and unmatched text is skipped.
//
// Missing leading fields (year, month, day) default to today; fields after
// the first parsed one default to January, the 1st and midnight. Week fields
// (gg, w, GG, W, e, E, d) only determine the date when no month or day of
// month was parsed.
func (l *Library) Parse(value, pattern string, strict bool) (time.Time, error) {
	st := &parseState{empty: true}
	rest := value
	for _, tok := range compile(pattern).tokens {
		if tok.literal {
			idx := strings.Index(rest, tok.text)
			switch {
			case idx == 0:
				rest = rest[len(tok.text):]
			case strict:
				return time.Time{}, invalid("expected %q in %q", tok.text, value)
			case idx > 0:
				rest = rest[idx+len(tok.text):]
			}
			continue
		}
		start, end, ok := l.match(tok.text, rest, strict)
		if !ok {
			if strict {
				return time.Time{}, invalid("%s does not match %q", tok.text, rest)
			}
			continue
		}
		in := rest[start:end]
		rest = rest[end:]
		st.empty = false
		if err := l.apply(tok.text, in, st); err != nil {
			return time.Time{}, err
		}
	}
	if strict && rest != "" {
		return time.Time{}, invalid("unparsed input %q", rest)
	}
	if st.empty {
		return time.Time{}, invalid("no date tokens matched %q", value)
	}
	if strict && st.bigHour && !(st.a[fieldHour] > 0 && st.a[fieldHour] <= 12) {
		return time.Time{}, invalid("12-hour value out of range")
	}
	return l.build(st)
}

func (l *Library) apply(name, in string, st *parseState) error {
	switch name {
	case "YYYYYY", "Y":
		st.setField(fieldYear, toInt(in))
	case "YYYY":
		if len(in) == 2 {
			st.setField(fieldYear, twoDigitYear(in))
		} else {
			st.setField(fieldYear, toInt(in))
		}
	case "YY":
		st.setField(fieldYear, twoDigitYear(in))
	case "gggg":
		st.setWeek(weekYearLocale, toInt(in))
	case "gg":
		st.setWeek(weekYearLocale, twoDigitYear(in))
	case "GGGG":
		st.setWeek(weekYearISO, toInt(in))
	case "GG":
		st.setWeek(weekYearISO, twoDigitYear(in))
	case "Q", "Qo":
		st.setField(fieldMonth, (leadingInt(in)-1)*3)
	case "M", "MM", "Mo":
		st.setField(fieldMonth, leadingInt(in)-1)
	case "MMM", "MMMM":
		idx := nameIndex(in, l.locale.Months[:], l.locale.MonthsShort[:])
		if idx < 0 {
			return invalid("unknown month %q", in)
		}
		st.setField(fieldMonth, idx)
	case "D", "DD", "Do":
		st.setField(fieldDate, leadingInt(in))
	case "DDD", "DDDD", "DDDo":
		st.dayOfYear = leadingInt(in)
		st.hasDOY = true
	case "d", "do":
		st.setWeek(weekdayNumber, leadingInt(in))
	case "dd", "ddd", "dddd":
		idx := nameIndex(in, l.locale.Weekdays[:], l.locale.WeekdaysShort[:], l.locale.WeekdaysMin[:])
		if idx < 0 {
			return invalid("unknown weekday %q", in)
		}
		st.setWeek(weekdayNumber, idx)
	case "e":
		st.setWeek(weekdayLocale, toInt(in))
	case "E":
		st.setWeek(weekdayISO, toInt(in))
	case "w", "ww", "wo":
		st.setWeek(weekLocale, leadingInt(in))
	case "W", "WW", "Wo":
		st.setWeek(weekISO, leadingInt(in))
	case "H", "HH":
		st.setField(fieldHour, toInt(in))
	case "h", "hh":
		st.setField(fieldHour, toInt(in))
		st.bigHour = true
	case "k", "kk":
		h := toInt(in)
		if h == 24 {
			h = 0
		}
		st.setField(fieldHour, h)
	case "m", "mm":
		st.setField(fieldMinute, toInt(in))
	case "s", "ss":
		st.setField(fieldSecond, toInt(in))
	case "S", "SS", "SSS":
		frac, _ := strconv.ParseFloat("0."+in, 64)
		st.setField(fieldMillisecond, int(frac*1000))
	case "A", "a":
		st.meridiem = strings.ToLower(in)
	case "X":
		secs, err := strconv.ParseFloat(in, 64)
		if err != nil {
			return invalid("bad timestamp %q", in)
		}
		whole, frac := math.Modf(secs)
		t := time.Unix(int64(whole), int64(math.Round(frac*1000))*int64(time.Millisecond))
		st.instant = &t
	case "x":
		ms, err := strconv.ParseInt(in, 10, 64)
		if err != nil {
			return invalid("bad timestamp %q", in)
		}
		t := time.UnixMilli(ms)
		st.instant = &t
	case "Z", "ZZ":
		off := parseOffset(in)
		st.offset = &off
	}
	return nil
}

func (l *Library) build(st *parseState) (time.Time, error) {
	if st.instant != nil {
		return st.instant.In(l.loc), nil
	}
	now := l.Now()

	if st.week != nil && !st.set[fieldMonth] && !st.set[fieldDate] {
		if err := l.applyWeekFields(st, now); err != nil {
			return time.Time{}, err
		}
	}

	if st.hasDOY {
		year := now.Year()
		if st.set[fieldYear] {
			year = st.a[fieldYear]
		}
		if st.dayOfYear < 1 || st.dayOfYear > daysInYear(year) {
			return time.Time{}, invalid("day of year %d out of range", st.dayOfYear)
		}
		d := time.Date(year, time.January, st.dayOfYear, 0, 0, 0, 0, time.UTC)
		st.setField(fieldYear, year)
		st.setField(fieldMonth, int(d.Month())-1)
		st.setField(fieldDate, d.Day())
	}

	current := [3]int{now.Year(), int(now.Month()) - 1, now.Day()}
	i := 0
	for ; i < 3 && !st.set[i]; i++ {
		st.a[i] = current[i]
	}
	for ; i < fieldCount; i++ {
		if !st.set[i] {
			st.a[i] = 0
			if i == fieldDate {
				st.a[i] = 1
			}
		}
	}

	if st.meridiem != "" {
		pm := strings.HasPrefix(st.meridiem, "p")
		switch {
		case pm && st.a[fieldHour] < 12:
			st.a[fieldHour] += 12
		case !pm && st.a[fieldHour] == 12:
			st.a[fieldHour] = 0
		}
	}

	if err := checkOverflow(st.a); err != nil {
		return time.Time{}, err
	}

	a := st.a
	nextDay := 0
	if a[fieldHour] == 24 {
		a[fieldHour] = 0
		nextDay = 1
	}

	zone := l.loc
	if st.offset != nil {
		zone = time.FixedZone("", *st.offset)
	}
	t := time.Date(a[fieldYear], time.Month(a[fieldMonth]+1), a[fieldDate]+nextDay,
		a[fieldHour], a[fieldMinute], a[fieldSecond], a[fieldMillisecond]*int(time.Millisecond), zone).In(l.loc)

	if wd, ok := st.week[weekdayNumber]; ok && int(t.Weekday()) != wd {
		return time.Time{}, invalid("weekday does not match date")
	}
	return t, nil
}

func (l *Library) applyWeekFields(st *parseState, now time.Time) error {
	w := st.week
	var dow, doy, weekYear, week, weekday int
	weekdayOverflow := false

	if st.hasWeek(weekYearISO) || st.hasWeek(weekISO) || st.hasWeek(weekdayISO) {
		dow, doy = 1, 4
		_, curYear := weekOfYear(now, dow, doy)
		weekYear = firstOf(w, weekYearISO, st, curYear)
		week = 1
		if v, ok := w[weekISO]; ok {
			week = v
		}
		weekday = 1
		if v, ok := w[weekdayISO]; ok {
			weekday = v
		}
		weekdayOverflow = weekday < 1 || weekday > 7
	} else {
		dow, doy = l.locale.Dow, l.locale.Doy
		curWeek, curYear := weekOfYear(now, dow, doy)
		weekYear = firstOf(w, weekYearLocale, st, curYear)
		week = curWeek
		if v, ok := w[weekLocale]; ok {
			week = v
		}
		switch {
		case st.hasWeek(weekdayNumber):
			weekday = w[weekdayNumber]
			weekdayOverflow = weekday < 0 || weekday > 6
		case st.hasWeek(weekdayLocale):
			weekday = w[weekdayLocale] + dow
			weekdayOverflow = w[weekdayLocale] < 0 || w[weekdayLocale] > 6
		default:
			weekday = dow
		}
	}

	if week < 1 || week > weeksInYear(weekYear, dow, doy) {
		return invalid("week %d out of range for %d", week, weekYear)
	}
	if weekdayOverflow {
		return invalid("weekday out of range")
	}
	year, dayOfYear := dayOfYearFromWeeks(weekYear, week, weekday, dow, doy)
	st.setField(fieldYear, year)
	st.dayOfYear = dayOfYear
	st.hasDOY = true
	return nil
}

// firstOf picks the week-year: explicit week-year token, then parsed year,
// then the current week-year.
func firstOf(w map[string]int, key string, st *parseState, fallback int) int {
	if v, ok := w[key]; ok {
		return v
	}
	if st.set[fieldYear] {
		return st.a[fieldYear]
	}
	return fallback
}

func checkOverflow(a [fieldCount]int) error {
	switch {
	case a[fieldMonth] < 0 || a[fieldMonth] > 11:
		return invalid("month %d out of range", a[fieldMonth]+1)
	case a[fieldDate] < 1 || a[fieldDate] > daysInMonth(a[fieldYear], time.Month(a[fieldMonth]+1)):
		return invalid("day %d out of range", a[fieldDate])
	case a[fieldHour] < 0 || a[fieldHour] > 24 ||
		(a[fieldHour] == 24 && (a[fieldMinute] != 0 || a[fieldSecond] != 0 || a[fieldMillisecond] != 0)):
		return invalid("hour %d out of range", a[fieldHour])
	case a[fieldMinute] < 0 || a[fieldMinute] > 59:
		return invalid("minute %d out of range", a[fieldMinute])
	case a[fieldSecond] < 0 || a[fieldSecond] > 59:
		return invalid("second %d out of range", a[fieldSecond])
	case a[fieldMillisecond] < 0 || a[fieldMillisecond] > 999:
		return invalid("millisecond out of range")
	}
	return nil
}

func toInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// leadingInt reads the digits at the start of s ("21st" → 21).
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return toInt(s[:end])
}

func twoDigitYear(s string) int {
	n := toInt(s)
	if n > 68 {
		return n + 1900
	}
	return n + 2000
}

func parseOffset(s string) int {
	if s == "Z" || s == "z" {
		return 0
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) < 4 {
		return 0
	}
	return sign * (toInt(digits[:2])*3600 + toInt(digits[2:4])*60)
}

func nameIndex(in string, lists ...[]string) int {
	for _, list := range lists {
		for i, name := range list {
			if strings.EqualFold(name, in) {
				return i
			}
		}
	}
	return -1
}

// Token matchers. Loose expressions are searched for anywhere in the
// remaining input; strict expressions must match at its start.
const (
	reMatch1              = `\d`
	reMatch2              = `\d\d`
	reMatch3              = `\d{3}`
	reMatch4              = `\d{4}`
	reMatch6              = `[+-]?\d{6}`
	reMatch1to2           = `\d\d?`
	reMatch1to3           = `\d{1,3}`
	reMatch1to4           = `\d{1,4}`
	reMatch1to6           = `[+-]?\d{1,6}`
	reMatchSigned         = `[+-]?\d+`
	reMatch1to2NoLeadZero = `[1-9]\d?`
	reMatch1to2HasZero    = `[1-9]\d|\d`
	reMatchOrdinal        = `\d{1,2}(?:st|nd|rd|th)`
	reMatchOrdinalLenient = `\d{1,2}(?:st|nd|rd|th)|\d{1,2}`
	reMatchDayOfYearOrd   = `\d{1,3}(?:st|nd|rd|th)`
	reMatchOffset         = `Z|[+-]\d\d:?\d\d`
	reMatchTimestamp      = `[+-]?\d+(?:\.\d{1,3})?`
	reMatchMeridiem       = `(?i)[ap]\.?m?\.?`
	reMatchWeekdayOrdinal = `\d(?:st|nd|rd|th)`
	reMatchQuarterOrdinal = `\d(?:st|nd|rd|th)`
)

type tokenExpr struct {
	loose, strict string
}

var tokenExprs = map[string]tokenExpr{
	"YYYYYY": {reMatch1to6, reMatch6},
	"YYYY":   {reMatch1to4, reMatch4},
	"YY":     {reMatch1to2, reMatch2},
	"Y":      {reMatchSigned, reMatchSigned},
	"gggg":   {reMatch1to4, reMatch4},
	"gg":     {reMatch1to2, reMatch2},
	"GGGG":   {reMatch1to4, reMatch4},
	"GG":     {reMatch1to2, reMatch2},
	"Q":      {reMatch1, reMatch1},
	"Qo":     {reMatchQuarterOrdinal, reMatchQuarterOrdinal},
	"M":      {reMatch1to2, reMatch1to2NoLeadZero},
	"Mo":     {reMatchOrdinalLenient, reMatchOrdinal},
	"MM":     {reMatch1to2, reMatch2},
	"D":      {reMatch1to2, reMatch1to2NoLeadZero},
	"Do":     {reMatchOrdinalLenient, reMatchOrdinal},
	"DD":     {reMatch1to2, reMatch2},
	"DDD":    {reMatch1to3, reMatch1to3},
	"DDDo":   {reMatchDayOfYearOrd, reMatchDayOfYearOrd},
	"DDDD":   {reMatch1to3, reMatch3},
	"d":      {reMatch1to2, reMatch1to2},
	"do":     {reMatchWeekdayOrdinal, reMatchWeekdayOrdinal},
	"e":      {reMatch1to2, reMatch1to2},
	"E":      {reMatch1to2, reMatch1to2},
	"w":      {reMatch1to2, reMatch1to2NoLeadZero},
	"wo":     {reMatchOrdinalLenient, reMatchOrdinal},
	"ww":     {reMatch1to2, reMatch2},
	"W":      {reMatch1to2, reMatch1to2NoLeadZero},
	"Wo":     {reMatchOrdinalLenient, reMatchOrdinal},
	"WW":     {reMatch1to2, reMatch2},
	"H":      {reMatch1to2, reMatch1to2HasZero},
	"HH":     {reMatch1to2, reMatch2},
	"h":      {reMatch1to2, reMatch1to2HasZero},
	"hh":     {reMatch1to2, reMatch2},
	"k":      {reMatch1to2, reMatch1to2HasZero},
	"kk":     {reMatch1to2, reMatch2},
	"m":      {reMatch1to2, reMatch1to2HasZero},
	"mm":     {reMatch1to2, reMatch2},
	"s":      {reMatch1to2, reMatch1to2HasZero},
	"ss":     {reMatch1to2, reMatch2},
	"S":      {reMatch1to3, reMatch1},
	"SS":     {reMatch1to3, reMatch2},
	"SSS":    {reMatch1to3, reMatch3},
	"A":      {reMatchMeridiem, reMatchMeridiem},
	"a":      {reMatchMeridiem, reMatchMeridiem},
	"X":      {reMatchTimestamp, reMatchTimestamp},
	"x":      {reMatchSigned, reMatchSigned},
	"Z":      {reMatchOffset, reMatchOffset},
	"ZZ":     {reMatchOffset, reMatchOffset},
}

type compiledExpr struct {
	loose, strict *regexp.Regexp
}

var compiledExprs = func() map[string]compiledExpr {
	out := make(map[string]compiledExpr, len(tokenExprs))
	for name, e := range tokenExprs {
		out[name] = compiledExpr{
			loose:  regexp.MustCompile(e.loose),
			strict: regexp.MustCompile(`^(?:` + e.strict + `)`),
		}
	}
	return out
}()

// match locates the input consumed by token name in s.
func (l *Library) match(name, s string, strict bool) (int, int, bool) {
	switch name {
	case "MMM":
		return l.matchNames(s, strict, l.locale.MonthsShort[:], l.locale.Months[:])
	case "MMMM":
		return l.matchNames(s, strict, l.locale.Months[:], l.locale.MonthsShort[:])
	case "dd":
		return l.matchNames(s, strict, l.locale.WeekdaysMin[:], l.locale.Weekdays[:], l.locale.WeekdaysShort[:])
	case "ddd":
		return l.matchNames(s, strict, l.locale.WeekdaysShort[:], l.locale.Weekdays[:], l.locale.WeekdaysMin[:])
	case "dddd":
		return l.matchNames(s, strict, l.locale.Weekdays[:], l.locale.WeekdaysShort[:], l.locale.WeekdaysMin[:])
	}
	expr, ok := compiledExprs[name]
	if !ok {
		return 0, 0, false
	}
	if strict {
		loc := expr.strict.FindStringIndex(s)
		if loc == nil {
			return 0, 0, false
		}
		return loc[0], loc[1], true
	}
	loc := expr.loose.FindStringIndex(s)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

// matchNames matches one of the names in primary (strict) or any of the name
// lists (loose), case-insensitively, preferring the longest candidate.
func (l *Library) matchNames(s string, strict bool, primary []string, others ...[]string) (int, int, bool) {
	lower := strings.ToLower(s)
	if strict {
		best := 0
		for _, name := range primary {
			if n := len(name); n > best && strings.HasPrefix(lower, strings.ToLower(name)) {
				best = n
			}
		}
		return 0, best, best > 0
	}
	candidates := append([][]string{primary}, others...)
	start, end := -1, -1
	for _, list := range candidates {
		for _, name := range list {
			idx := strings.Index(lower, strings.ToLower(name))
			if idx < 0 {
				continue
			}
			if start < 0 || idx < start || (idx == start && idx+len(name) > end) {
				start, end = idx, idx+len(name)
			}
		}
	}
	return start, end, start >= 0
}
