package periodic

import (
	"testing"
	"time"

	"github.com/starford/periodic/internal/dateformat"
)

func fixedLib(now time.Time, opts ...dateformat.Option) *dateformat.Library {
	base := []dateformat.Option{
		dateformat.WithLocation(time.UTC),
		dateformat.WithClock(func() time.Time { return now }),
	}
	return dateformat.New(append(base, opts...)...)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidateFormat_RoundTrip(t *testing.T) {
	formats := []string{
		"YYYY-MM-DD", "DD.MM.YYYY", "dddd, MMMM Do YYYY", "YY-M-D", "gggg-[W]ww",
		"GGGG-[W]WW", "YYYY-MM", "MMM YYYY", "YYYY-[Q]Q", "YYYY", "M", "D", "[Daily]",
		"YYYY/MM/YYYY-MM-DD", "gggg-MM-[W]ww", "DDDD", "YYYY-MM-DD[T]HH",
	}
	nows := []time.Time{
		time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2020, time.December, 31, 12, 0, 0, 0, time.UTC),
		time.Date(2023, time.August, 31, 0, 0, 0, 0, time.UTC),
	}
	for _, now := range nows {
		lib := fixedLib(now)
		for _, g := range Granularities {
			for _, f := range formats {
				if ValidateFormat(lib, f, g) != "" {
					continue
				}
				rendered := lib.Format(now, f)
				parsed, err := lib.Parse(rendered, f, true)
				if err != nil {
					t.Errorf("%s %s %q accepted but does not parse: %v", now.Format(time.DateOnly), g, f, err)
					continue
				}
				if got := lib.Format(parsed, f); got != rendered {
					t.Errorf("%s %s %q accepted but renders %q, want %q", now.Format(time.DateOnly), g, f, got, rendered)
				}
			}
		}
	}
}

func TestValidateFormat_Ambiguous(t *testing.T) {
	lib := fixedLib(day(2024, time.April, 2))

	// Week 14 of 2024 starts on March 31st, so the month is lost.
	if got, want := ValidateFormat(lib, "YYYY-[W]ww", Month), "Format is ambiguous for monthly notes"; got != want {
		t.Errorf("month = %q, want %q", got, want)
	}

	lib = fixedLib(day(2024, time.April, 10))
	if got, want := ValidateFormat(lib, "M", Week), "Format is ambiguous for weekly notes"; got != want {
		t.Errorf("week = %q, want %q", got, want)
	}
	if got := ValidateFormat(lib, "M", Month); got != "" {
		t.Errorf("M for month = %q, want valid", got)
	}
	if got := FormatWarning(lib, "M", Month); got != MsgFragileNumber {
		t.Errorf("warning = %q, want %q", got, MsgFragileNumber)
	}
}

func TestValidateFormat_Rejections(t *testing.T) {
	lib := fixedLib(time.Date(2024, time.March, 15, 10, 20, 0, 0, time.UTC))

	cases := map[string]string{
		"":                 MsgEmpty,
		"[Daily]":          MsgUnparseable,
		"YYYY-MM-DD HH:mm": MsgIllegal,
		"YYYY-MM-DD[?]":    MsgIllegal,
		"YYYY-MM/[con]/DD": MsgIllegal,
		"YYYY-MM-DD[...]":  "",
		"YYYY":             "Format is ambiguous for daily notes",
	}
	for format, want := range cases {
		if got := ValidateFormat(lib, format, Day); got != want {
			t.Errorf("ValidateFormat(%q) = %q, want %q", format, got, want)
		}
	}
	if got := ValidateFormatInput(lib, "", Day); got != "" {
		t.Errorf("input variant rejected empty format: %q", got)
	}
}

func TestValidFilename(t *testing.T) {
	for _, name := range []string{"2024-03-15", "Week 5", "a.b"} {
		if !ValidFilename(name) {
			t.Errorf("%q should be valid", name)
		}
	}
	for _, name := range []string{"a:b", "why?", "..", "CON", "lpt1.md", "tab\there", "x|y", `q"`} {
		if ValidFilename(name) {
			t.Errorf("%q should be invalid", name)
		}
	}
}

func TestFormatWarning(t *testing.T) {
	lib := fixedLib(day(2024, time.March, 15))

	cases := []struct {
		format string
		g      Granularity
		want   string
	}{
		{"YYYY/MM/DD", Day, MsgFragileBase},
		{"YYYY/MM/YYYY-MM-DD", Day, ""},
		{"YYYY-MM-DD", Day, ""},
		{"w", Week, MsgFragileNumber},
		{"gggg-[W]ww", Week, ""},
		{"YYYY/Q", Quarter, MsgFragileNumber},
	}
	for _, tc := range cases {
		if got := FormatWarning(lib, tc.format, tc.g); got != tc.want {
			t.Errorf("FormatWarning(%q, %s) = %q, want %q", tc.format, tc.g, got, tc.want)
		}
	}
}

func TestAcceptFormat(t *testing.T) {
	lib := fixedLib(day(2024, time.March, 15))
	cfg := DefaultConfig()

	if msg := cfg.AcceptFormat(lib, Day, "DD.MM.YYYY"); msg != "" {
		t.Fatalf("AcceptFormat: %s", msg)
	}
	if msg := cfg.AcceptFormat(lib, Day, "DD.MM.YYYY"); msg != "" {
		t.Fatalf("AcceptFormat again: %s", msg)
	}
	if msg := cfg.AcceptFormat(lib, Day, "HH:mm"); msg == "" {
		t.Fatal("illegal format accepted")
	}
	if got := cfg.Day.ValidFormats; len(got) != 1 || got[0] != "DD.MM.YYYY" {
		t.Errorf("ValidFormats = %v", got)
	}
}

func TestEffectiveFormat(t *testing.T) {
	lib := fixedLib(day(2024, time.March, 15))
	cfg := DefaultConfig()

	cfg.Day.Format = "YYYY-MM-DD HH:mm"
	if got := cfg.EffectiveFormat(lib, Day); got != "YYYY-MM-DD" {
		t.Errorf("no history = %q, want default", got)
	}
	cfg.Day.ValidFormats = []string{"YYYY-MM-DD", "DD.MM.YYYY"}
	if got := cfg.EffectiveFormat(lib, Day); got != "DD.MM.YYYY" {
		t.Errorf("with history = %q, want DD.MM.YYYY", got)
	}
	cfg.Day.Format = "YYYYMMDD"
	if got := cfg.EffectiveFormat(lib, Day); got != "YYYYMMDD" {
		t.Errorf("valid selection = %q", got)
	}
}

func TestDateFromFilename_FirstFormatWins(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()

	cfg.Day.ValidFormats = []string{"YYYY-MM-DD", "YY-MM-DD"}
	got, ok := DateFromFilename(lib, cfg, "2024-01-01", Day, false)
	if !ok || !got.Equal(day(2024, time.January, 1)) {
		t.Fatalf("got %v %v", got, ok)
	}

	cfg.Day.ValidFormats = []string{"YYYY-MM-DD", "YYYY-DD-MM"}
	got, ok = DateFromFilename(lib, cfg, "2024-02-03", Day, false)
	if !ok || !got.Equal(day(2024, time.February, 3)) {
		t.Errorf("first = %v %v, want 2024-02-03", got, ok)
	}
	cfg.Day.ValidFormats = []string{"YYYY-DD-MM", "YYYY-MM-DD"}
	got, ok = DateFromFilename(lib, cfg, "2024-02-03", Day, false)
	if !ok || !got.Equal(day(2024, time.March, 2)) {
		t.Errorf("reordered = %v %v, want 2024-03-02", got, ok)
	}
}

func TestDateFromFilename_RejectsLooseMatches(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Day.Format = "YYYY-M-D"
	cfg.Day.ValidFormats = []string{"YYYY-M-D"}

	if _, ok := DateFromFilename(lib, cfg, "2024-01-05", Day, false); ok {
		t.Error("zero-padded name matched an unpadded format")
	}
	if got, ok := DateFromFilename(lib, cfg, "2024-1-5", Day, false); !ok || !got.Equal(day(2024, time.January, 5)) {
		t.Errorf("got %v %v", got, ok)
	}
	if _, ok := DateFromFilename(lib, cfg, "meeting notes", Day, false); ok {
		t.Error("plain note resolved to a date")
	}
}

func TestDateFromFilename_CurrentOnly(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Day.Format = "DD.MM.YYYY"
	cfg.Day.ValidFormats = []string{"YYYY-MM-DD", "DD.MM.YYYY"}

	if _, ok := DateFromFilename(lib, cfg, "2024-03-15", Day, true); ok {
		t.Error("legacy format used in current-only mode")
	}
	if got, ok := DateFromFilename(lib, cfg, "2024-03-15", Day, false); !ok || !got.Equal(day(2024, time.March, 15)) {
		t.Errorf("legacy lookup = %v %v", got, ok)
	}
	if got, ok := DateFromFilename(lib, cfg, "Journal/15.03.2024.md", Day, true); !ok || !got.Equal(day(2024, time.March, 15)) {
		t.Errorf("current = %v %v", got, ok)
	}
}

func TestDateFromFilename_Week(t *testing.T) {
	monday := fixedLib(day(2024, time.June, 1), dateformat.WithLocale(dateformat.English().WithWeekStart(time.Monday)))
	cfg := DefaultConfig()
	cfg.Week.Enabled = true

	got, ok := DateFromFilename(monday, cfg, "2024-W05", Week, false)
	if !ok {
		t.Fatal("2024-W05 not resolved")
	}
	if w, y := monday.ISOWeek(got); w != 5 || y != 2024 {
		t.Errorf("resolved %v in ISO week %d/%d, want 5/2024", got, w, y)
	}
}

func TestDateFromFilename_WeekWithMonth(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Week.Format = "gggg-MM-[W]ww"

	got, ok := DateFromFilename(lib, cfg, "2024-01-W05", Week, false)
	if !ok {
		t.Fatal("not resolved")
	}
	if !got.Equal(day(2024, time.January, 28)) {
		t.Errorf("got %v, want the start of week 5 (2024-01-28)", got)
	}
	// The same name as a day note keeps the month reading.
	cfg.Day.Format = "gggg-MM-[W]ww"
	if got, ok := DateFromFilename(lib, cfg, "2024-01-W05", Day, true); !ok || !got.Equal(day(2024, time.January, 1)) {
		t.Errorf("day = %v %v", got, ok)
	}
}

func TestDateFromFilename_WeekStartingInOtherMonth(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Week.Enabled = true
	cfg.Week.Format = "gggg-MM-[W]ww"
	cfg.Week.ValidFormats = []string{"gggg-MM-[W]ww"}

	// Feb 1st lies in week 5, which starts on Jan 28th.
	name := NotePath(lib, cfg, Week, day(2024, time.February, 1), "", "")
	if name != "2024-02-W05.md" {
		t.Fatalf("NotePath = %q", name)
	}
	for _, currentOnly := range []bool{true, false} {
		got, ok := DateFromFilename(lib, cfg, name, Week, currentOnly)
		if !ok || !got.Equal(day(2024, time.January, 28)) {
			t.Errorf("currentOnly=%t: got %v %v, want 2024-01-28", currentOnly, got, ok)
		}
	}
	if g, _, ok := Classify(lib, cfg, name); !ok || g != Week {
		t.Errorf("Classify = %v %v", g, ok)
	}
}

func TestStripMonthDay(t *testing.T) {
	tests := map[string]string{
		"gggg-MM-[W]ww":     "gggg--[W]ww",
		"[Day] DD gggg-ww":  "[Day]  gggg-ww",
		"[Month MM]-MMM-ww": "[Month MM]--ww",
		"gggg-[W]ww":        "gggg-[W]ww",
		"[unclosed MM":      "[unclosed ",
	}
	for in, want := range tests {
		if got := stripMonthDay(in); got != want {
			t.Errorf("stripMonthDay(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassify(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Day.Folder = "Daily"
	cfg.Week.Enabled = true
	cfg.Week.Folder = "Weekly/"
	cfg.Month.Folder = "Monthly"

	cases := []struct {
		path string
		g    Granularity
		ok   bool
	}{
		{"Daily/2024-03-15.md", Day, true},
		{"Weekly/2024-W05.md", Week, true},
		{"Monthly/2024-03.md", "", false},
		{"Other/2024-03-15.md", "", false},
		{"Daily/notes.md", "", false},
		{"Daily/2024-03-15.txt", "", false},
		{"Dailyish/2024-03-15.md", "", false},
	}
	for _, tc := range cases {
		g, _, ok := Classify(lib, cfg, tc.path)
		if ok != tc.ok || g != tc.g {
			t.Errorf("Classify(%q) = %q %v, want %q %v", tc.path, g, ok, tc.g, tc.ok)
		}
	}
	if !IsPeriodicNote(lib, cfg, "Daily/2024-03-15.md") {
		t.Error("IsPeriodicNote = false")
	}
}

func TestJoinPath(t *testing.T) {
	cases := []struct {
		parts []string
		want  string
	}{
		{[]string{"Notes//Daily/", "2024-01-01.md"}, "Notes/Daily/2024-01-01.md"},
		{[]string{"/a//b", "./c"}, "/a/b/c"},
		{[]string{"", "x.md"}, "x.md"},
		{[]string{".", ""}, ""},
	}
	for _, tc := range cases {
		if got := JoinPath(tc.parts...); got != tc.want {
			t.Errorf("JoinPath(%q) = %q, want %q", tc.parts, got, tc.want)
		}
	}
}

func TestNotePath(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	date := day(2024, time.January, 1)

	if got := NotePath(lib, cfg, Day, date, "", "Notes//Daily/"); got != "Notes/Daily/2024-01-01.md" {
		t.Errorf("got %q", got)
	}
	if got := NotePath(lib, cfg, Day, date, "YYYY-MM-DD[.md]", "Notes//Daily/"); got != "Notes/Daily/2024-01-01.md" {
		t.Errorf("with extension = %q", got)
	}
	if got := NotePath(lib, cfg, Quarter, date, "", "/"); got != "2024-Q1.md" {
		t.Errorf("root = %q", got)
	}
}

func TestEndToEnd(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	cfg := DefaultConfig()
	cfg.Day = NoteConfig{Enabled: true, Format: "YYYY-MM-DD", Folder: "Daily"}

	p := NotePath(lib, cfg, Day, day(2024, time.March, 15), "", "")
	if p != "Daily/2024-03-15.md" {
		t.Fatalf("path = %q", p)
	}
	got, ok := DateFromFilename(lib, cfg, "2024-03-15", Day, false)
	if !ok {
		t.Fatal("not resolved")
	}
	if y, m, d := got.Date(); y != 2024 || m != time.March || d != 15 {
		t.Errorf("got %v", got)
	}
	g, got2, ok := Classify(lib, cfg, p)
	if !ok || g != Day || !got2.Equal(got) {
		t.Errorf("Classify = %s %v %v", g, got2, ok)
	}
}

func TestDateUID(t *testing.T) {
	lib := fixedLib(day(2024, time.June, 1))
	ts := time.Date(2024, time.March, 15, 14, 0, 0, 0, time.UTC)

	if got, want := DateUID(lib, ts, Week), "week-2024-03-10T00:00:00+00:00"; got != want {
		t.Errorf("week = %q, want %q", got, want)
	}
	if got, want := DateUID(lib, ts, Quarter), "quarter-2024-01-01T00:00:00+00:00"; got != want {
		t.Errorf("quarter = %q, want %q", got, want)
	}

	other := dateformat.English()
	other.Name = "xx"
	other.Months[2] = "Marzo"
	if DateUID(fixedLib(ts, dateformat.WithLocale(other)), ts, Day) != DateUID(lib, ts, Day) {
		t.Error("uid depends on locale names")
	}
}

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]Granularity{"day": Day, "weekly": Week, "quarterly": Quarter, "year": Year} {
		if got, err := ParseGranularity(in); err != nil || got != want {
			t.Errorf("ParseGranularity(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseGranularity("hourly"); err == nil {
		t.Error("expected error")
	}
}
