package dateformat

import (
	"strconv"
	"strings"
	"time"
)

// Format renders t with pattern.
func (l *Library) Format(t time.Time, pattern string) string {
	t = t.In(l.loc)
	var b strings.Builder
	for _, tok := range compile(pattern).tokens {
		if tok.literal {
			b.WriteString(tok.text)
			continue
		}
		b.WriteString(l.formatToken(t, tok.text))
	}
	return b.String()
}

func (l *Library) formatToken(t time.Time, name string) string {
	loc := l.locale
	switch name {
	case "YYYYYY":
		return zeroFill(t.Year(), 6, true)
	case "YYYY", "Y":
		if t.Year() > 9999 {
			return "+" + strconv.Itoa(t.Year())
		}
		return zeroFill(t.Year(), 4, false)
	case "YY":
		return zeroFill(t.Year()%100, 2, false)
	case "gggg":
		_, wy := l.Week(t)
		return zeroFill(wy, 4, false)
	case "gg":
		_, wy := l.Week(t)
		return zeroFill(wy%100, 2, false)
	case "GGGG":
		_, wy := l.ISOWeek(t)
		return zeroFill(wy, 4, false)
	case "GG":
		_, wy := l.ISOWeek(t)
		return zeroFill(wy%100, 2, false)
	case "Q":
		return strconv.Itoa(quarterOf(t))
	case "Qo":
		return ordinal(quarterOf(t))
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "Mo":
		return ordinal(int(t.Month()))
	case "MM":
		return zeroFill(int(t.Month()), 2, false)
	case "MMM":
		return loc.MonthsShort[t.Month()-1]
	case "MMMM":
		return loc.Months[t.Month()-1]
	case "D":
		return strconv.Itoa(t.Day())
	case "Do":
		return ordinal(t.Day())
	case "DD":
		return zeroFill(t.Day(), 2, false)
	case "DDD":
		return strconv.Itoa(t.YearDay())
	case "DDDo":
		return ordinal(t.YearDay())
	case "DDDD":
		return zeroFill(t.YearDay(), 3, false)
	case "d":
		return strconv.Itoa(int(t.Weekday()))
	case "do":
		return ordinal(int(t.Weekday()))
	case "dd":
		return loc.WeekdaysMin[t.Weekday()]
	case "ddd":
		return loc.WeekdaysShort[t.Weekday()]
	case "dddd":
		return loc.Weekdays[t.Weekday()]
	case "e":
		return strconv.Itoa((int(t.Weekday()) - loc.Dow + 7) % 7)
	case "E":
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return strconv.Itoa(wd)
	case "w":
		w, _ := l.Week(t)
		return strconv.Itoa(w)
	case "wo":
		w, _ := l.Week(t)
		return ordinal(w)
	case "ww":
		w, _ := l.Week(t)
		return zeroFill(w, 2, false)
	case "W":
		w, _ := l.ISOWeek(t)
		return strconv.Itoa(w)
	case "Wo":
		w, _ := l.ISOWeek(t)
		return ordinal(w)
	case "WW":
		w, _ := l.ISOWeek(t)
		return zeroFill(w, 2, false)
	case "H":
		return strconv.Itoa(t.Hour())
	case "HH":
		return zeroFill(t.Hour(), 2, false)
	case "h":
		return strconv.Itoa(hour12(t.Hour()))
	case "hh":
		return zeroFill(hour12(t.Hour()), 2, false)
	case "k":
		return strconv.Itoa(hour24(t.Hour()))
	case "kk":
		return zeroFill(hour24(t.Hour()), 2, false)
	case "m":
		return strconv.Itoa(t.Minute())
	case "mm":
		return zeroFill(t.Minute(), 2, false)
	case "s":
		return strconv.Itoa(t.Second())
	case "ss":
		return zeroFill(t.Second(), 2, false)
	case "S":
		return strconv.Itoa(t.Nanosecond() / 1e8)
	case "SS":
		return zeroFill(t.Nanosecond()/1e7, 2, false)
	case "SSS":
		return zeroFill(t.Nanosecond()/1e6, 3, false)
	case "A":
		if t.Hour() > 11 {
			return "PM"
		}
		return "AM"
	case "a":
		if t.Hour() > 11 {
			return "pm"
		}
		return "am"
	case "X":
		return strconv.FormatInt(t.Unix(), 10)
	case "x":
		return strconv.FormatInt(t.UnixMilli(), 10)
	case "Z":
		return formatOffset(t, ":")
	case "ZZ":
		return formatOffset(t, "")
	}
	return name
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func hour12(h int) int {
	if h%12 == 0 {
		return 12
	}
	return h % 12
}

func hour24(h int) int {
	if h == 0 {
		return 24
	}
	return h
}

func formatOffset(t time.Time, sep string) string {
	_, offset := t.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	minutes := offset / 60
	return sign + zeroFill(minutes/60, 2, false) + sep + zeroFill(minutes%60, 2, false)
}

func zeroFill(n, width int, forceSign bool) string {
	sign := ""
	switch {
	case n < 0:
		sign = "-"
		n = -n
	case forceSign:
		sign = "+"
	}
	s := strconv.Itoa(n)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return sign + s
}
