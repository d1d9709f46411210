package noteservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/settings"
	"github.com/starford/periodic/internal/testutil"
	"github.com/starford/periodic/internal/vault"
)

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	notices []string
}

func (r *recorder) Notice(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *recorder) contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.ContainsFunc(r.notices, func(n string) bool { return strings.Contains(n, sub) })
}

type fixture struct {
	svc   *Service
	store *vault.FS
	notes *recorder
}

// newFixture builds a service over a fresh vault. seed, when non-empty, is
// written as the settings document before the store is opened.
func newFixture(t *testing.T, seed string) fixture {
	t.Helper()
	_, store := testutil.TestVault(t)
	if seed != "" {
		if err := store.Write(settings.DefaultPath, []byte(seed)); err != nil {
			t.Fatal(err)
		}
	}
	st, err := settings.Open(store, settings.DefaultPath)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	rec := &recorder{}
	svc := NewService(store, testutil.TestDB(t), st,
		WithNotifier(rec),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithDateOptions(
			dateformat.WithLocation(time.UTC),
			dateformat.WithClock(func() time.Time { return testNow }),
		),
	)
	t.Cleanup(svc.Close)
	return fixture{svc: svc, store: store, notes: rec}
}

func ptr[T any](v T) *T { return &v }

func TestOpen_CreatesFromTemplate(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	tmpl := "# {{title}}\nprev {{yesterday}} next {{tomorrow}}\n{{date+1M:MMMM}} at {{time}}\n"
	if err := f.store.Write("Templates/daily.md", []byte(tmpl)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.UpdateNoteConfig(ctx, periodic.Day, NoteConfigPatch{
		Folder:   ptr("Daily"),
		Template: ptr("Templates/daily"),
	}); err != nil {
		t.Fatalf("UpdateNoteConfig: %v", err)
	}

	note, created, err := f.svc.Open(ctx, periodic.Day, time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !created {
		t.Error("expected the note to be created")
	}
	if note.Path != "Daily/2024-03-15.md" || note.Title != "2024-03-15" {
		t.Errorf("note = %+v", note)
	}
	data, err := f.store.Read(note.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := "# 2024-03-15\nprev 2024-03-14 next 2024-03-16\nApril at 10:30\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}

	again, created, err := f.svc.Open(ctx, periodic.Day, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if created || again.Path != note.Path || again.UID != note.UID {
		t.Errorf("second Open = %+v created=%v", again, created)
	}
}

func TestCreate_Disabled(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.Create(context.Background(), periodic.Week, testNow)
	if !errors.Is(err, apperr.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestCreate_MissingTemplate(t *testing.T) {
	f := newFixture(t, `{"day": {"enabled": true, "template": "Templates/missing"}}`)
	note, err := f.svc.Create(context.Background(), periodic.Day, testNow)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	data, _ := f.store.Read(note.Path)
	if len(data) != 0 {
		t.Errorf("content = %q, want empty", data)
	}
	if !f.notes.contains("Templates/missing.md") {
		t.Errorf("notices = %v", f.notes.notices)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	if err := f.store.Write("2024-03-15.md", []byte("# Existing\nsome words here")); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Create(ctx, periodic.Day, testNow); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Create err = %v, want ErrAlreadyExists", err)
	}
	if !f.notes.contains("already exists") {
		t.Errorf("notices = %v", f.notes.notices)
	}

	note, created, err := f.svc.Open(ctx, periodic.Day, testNow)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if created || note.Title != "Existing" || note.Words != 4 {
		t.Errorf("Open = %+v created=%v", note, created)
	}
	data, _ := f.store.Read("2024-03-15.md")
	if string(data) != "# Existing\nsome words here" {
		t.Errorf("existing file was overwritten: %q", data)
	}
}

func TestCreate_InvalidFormatFallsBack(t *testing.T) {
	f := newFixture(t, `{"day": {"enabled": true, "format": "YYYY", "validFormats": ["DD.MM.YYYY", "YYYY"]}}`)
	note, err := f.svc.Create(context.Background(), periodic.Day, testNow)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if note.Path != "15.03.2024.md" {
		t.Errorf("path = %q, want 15.03.2024.md", note.Path)
	}
	if !f.notes.contains("Invalid daily note format") {
		t.Errorf("notices = %v", f.notes.notices)
	}
}

func TestCreate_Weekly(t *testing.T) {
	f := newFixture(t, `{"week": {"enabled": true, "folder": "Weekly", "template": "weekly.md"}}`)
	if err := f.store.Write("weekly.md", []byte("{{monday:YYYY-MM-DD}} {{sunday:ddd D}} {{title}}")); err != nil {
		t.Fatal(err)
	}
	note, err := f.svc.Create(context.Background(), periodic.Week, testNow)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if note.Path != "Weekly/2024-W11.md" {
		t.Errorf("path = %q", note.Path)
	}
	data, _ := f.store.Read(note.Path)
	if string(data) != "2024-03-11 Sun 10 2024-W11" {
		t.Errorf("content = %q", data)
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t, `{"day": {"enabled": true, "folder": "Daily"}}`)
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, periodic.Day, testNow); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.Resolve(ctx, "/Daily/2024-03-15.md")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Granularity != periodic.Day || !res.Date.Equal(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("res = %+v", res)
	}
	if res.Note == nil || res.Note.Path != "Daily/2024-03-15.md" {
		t.Errorf("note = %+v", res.Note)
	}

	for _, p := range []string{"Daily/notes.md", "Other/2024-03-15.md", "Daily/2024-03-15.txt"} {
		if _, err := f.svc.Resolve(ctx, p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrNotFound", p, err)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	f := newFixture(t, "")
	tests := []struct {
		format  string
		valid   bool
		preview string
	}{
		{"YYYY-MM-DD", true, "2024-03-15"},
		{"", true, "2024-03-15"},
		{"DD MMMM YYYY", true, "15 March 2024"},
		{"YYYY", false, ""},
		{"HH:mm", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := f.svc.ValidateFormat(periodic.Day, tt.format)
			if got.Valid != tt.valid || got.Preview != tt.preview {
				t.Errorf("got %+v", got)
			}
			if !tt.valid && got.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestUpdateNoteConfig(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	st, err := f.svc.UpdateNoteConfig(ctx, periodic.Day, NoteConfigPatch{Format: ptr("DD-MM-YYYY")})
	if err != nil {
		t.Fatalf("UpdateNoteConfig: %v", err)
	}
	if st.Day.Format != "DD-MM-YYYY" || !slices.Contains(st.Day.ValidFormats, "DD-MM-YYYY") {
		t.Errorf("day = %+v", st.Day)
	}

	_, err = f.svc.UpdateNoteConfig(ctx, periodic.Day, NoteConfigPatch{Format: ptr("YYYY"), Enabled: ptr(false)})
	if !errors.Is(err, apperr.ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
	if cur := f.svc.Settings().Day; cur.Format != "DD-MM-YYYY" || !cur.Enabled {
		t.Errorf("rejected patch was applied: %+v", cur)
	}

	if _, err := f.svc.UpdateNoteConfig(ctx, periodic.Day, NoteConfigPatch{Folder: ptr("../outside")}); err == nil {
		t.Error("expected folder outside the vault to be rejected")
	}
}

func TestUpdatePreferences(t *testing.T) {
	f := newFixture(t, "")
	st, err := f.svc.UpdatePreferences(context.Background(), PreferencesPatch{
		WeekStart:   ptr("monday"),
		WordsPerDot: ptr(100),
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	if st.WeekStart != "monday" || st.WordsPerDot != 100 {
		t.Errorf("settings = %+v", st)
	}
	if got := f.svc.Library().Locale().Dow; got != 1 {
		t.Errorf("dow = %d, want 1", got)
	}
	if _, err := f.svc.UpdatePreferences(context.Background(), PreferencesPatch{WeekStart: ptr("someday")}); err == nil {
		t.Error("expected unknown week start to be rejected")
	}
}

func TestSettingsChangeRebuildsIndex(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	if err := f.store.Write("Journal/2024-03-14.md", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	day := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Lookup(ctx, periodic.Day, day); err != nil {
		t.Fatalf("Lookup before change: %v", err)
	}

	if _, err := f.svc.UpdateNoteConfig(ctx, periodic.Day, NoteConfigPatch{Folder: ptr("Daily")}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Lookup(ctx, periodic.Day, day); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Lookup after folder change err = %v, want ErrNotFound", err)
	}
}

func TestCalendarAndList(t *testing.T) {
	f := newFixture(t, `{"wordsPerDot": 2}`)
	ctx := context.Background()
	if err := f.store.Write("2024-03-15.md", []byte("one two three four five")); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Write("2024-04-01.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	month, err := f.svc.Calendar(ctx, testNow)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	var found bool
	for _, w := range month.Weeks {
		for _, d := range w.Days {
			if d.Date.Day() == 15 && d.InMonth {
				found = true
				if d.Note == nil || d.Note.Dots != 3 || !d.Today {
					t.Errorf("15th = %+v", d)
				}
			}
		}
	}
	if !found {
		t.Fatal("15th missing from the grid")
	}

	all, err := f.svc.List(ctx, periodic.Day, time.Time{}, time.Time{})
	if err != nil || len(all) != 2 {
		t.Fatalf("List all = %v, %v", all, err)
	}
	march, err := f.svc.List(ctx, periodic.Day, month.Start, f.svc.Step(periodic.Month, month.Start, 1))
	if err != nil || len(march) != 1 || march[0].Path != "2024-03-15.md" {
		t.Errorf("List march = %v, %v", march, err)
	}
	weeks, err := f.svc.List(ctx, periodic.Week, time.Time{}, time.Time{})
	if err != nil || weeks == nil || len(weeks) != 0 {
		t.Errorf("List week = %#v, %v", weeks, err)
	}
}
