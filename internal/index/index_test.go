package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/vault"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLib() *dateformat.Library {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	return dateformat.New(
		dateformat.WithLocation(time.UTC),
		dateformat.WithClock(func() time.Time { return now }),
	)
}

func snapshot(lib periodic.DateLibrary, cfg *periodic.Config) Snapshot {
	return func() (periodic.DateLibrary, periodic.Config) { return lib, cfg.Clone() }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func note(path string, date time.Time) models.PeriodicNote {
	return models.PeriodicNote{
		UID:         periodic.DateUID(testLib(), date, periodic.Day),
		Granularity: periodic.Day,
		Date:        date,
		Path:        path,
		Checksum:    "c-" + path,
		UpdatedAt:   time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM periodic_notes`).Scan(&count); err != nil {
		t.Fatalf("periodic_notes table missing: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	db := testDB(t)
	n := note("Daily/2024-03-15.md", day(2024, time.March, 15))
	n.Sticker = "🌞"
	n.Words = 42
	if err := db.Put(n); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := db.Get(n.UID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Path != n.Path || got.Sticker != "🌞" || got.Words != 42 || got.Granularity != periodic.Day {
		t.Errorf("got %+v", got)
	}
	if !got.Date.Equal(n.Date) {
		t.Errorf("date = %v, want %v", got.Date, n.Date)
	}

	if _, err := db.ByPath(n.Path); err != nil {
		t.Errorf("ByPath: %v", err)
	}
	if _, err := db.Get("day-nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestPut_UpdatesExisting(t *testing.T) {
	db := testDB(t)
	n := note("a.md", day(2024, time.March, 15))
	_ = db.Put(n)
	n.Checksum = "2"
	n.UID = "day-other"
	_ = db.Put(n)

	if got, err := db.ByPath("a.md"); err != nil || got.UID != "day-other" || got.Checksum != "2" {
		t.Errorf("ByPath = %+v, %v", got, err)
	}
}

func TestGet_SmallestPathWins(t *testing.T) {
	db := testDB(t)
	d := day(2024, time.March, 15)
	_ = db.Put(note("Daily/2024-03-15.md", d))
	_ = db.Put(note("Archive/15.03.2024.md", d))

	got, err := db.Get(periodic.DateUID(testLib(), d, periodic.Day))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Path != "Archive/15.03.2024.md" {
		t.Errorf("path = %q", got.Path)
	}
}

func TestDeleteByPath(t *testing.T) {
	db := testDB(t)
	_ = db.Put(note("del.md", day(2024, time.March, 15)))

	existed, err := db.DeleteByPath("del.md")
	if err != nil || !existed {
		t.Fatalf("DeleteByPath = %v, %v", existed, err)
	}
	existed, _ = db.DeleteByPath("del.md")
	if existed {
		t.Error("second delete reported an entry")
	}
	if _, err := db.ByPath("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ByPath after delete = %v, want ErrNotFound", err)
	}
}

func TestRangeAndAll(t *testing.T) {
	db := testDB(t)
	for _, d := range []int{28, 29} {
		_ = db.Put(note(filepath.ToSlash(filepath.Join("Daily", day(2024, time.February, d).Format(time.DateOnly)+".md")), day(2024, time.February, d)))
	}
	for _, d := range []int{1, 15, 31} {
		_ = db.Put(note(day(2024, time.March, d).Format(time.DateOnly)+".md", day(2024, time.March, d)))
	}
	_ = db.Put(note("2024-04-01.md", day(2024, time.April, 1)))

	got, err := db.Range(periodic.Day, day(2024, time.March, 1), day(2024, time.April, 1))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 3 || got[0].Path != "2024-03-01.md" || got[2].Path != "2024-03-31.md" {
		t.Errorf("range = %+v", got)
	}

	all, _ := db.All(periodic.Day)
	if len(all) != 6 {
		t.Errorf("all = %d, want 6", len(all))
	}
	weeks, _ := db.All(periodic.Week)
	if len(weeks) != 0 {
		t.Errorf("weeks = %d, want 0", len(weeks))
	}

	if err := db.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if all, _ := db.All(periodic.Day); len(all) != 0 {
		t.Errorf("after reset = %d", len(all))
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	store, err := vault.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	lib := testLib()
	cfg := periodic.DefaultConfig()
	cfg.Day.Folder = "Daily"
	cfg.Week.Enabled = true
	cfg.Week.Folder = "Weekly"

	writeFile(t, root, "Daily/2024-03-15.md", "# Friday\nsunny #sticker-🌞\n")
	writeFile(t, root, "Daily/2024/2024-03-16.md", "nested")
	writeFile(t, root, "Daily/notes.md", "not periodic")
	writeFile(t, root, "Weekly/2024-W05.md", "week five")
	writeFile(t, root, "Elsewhere/2024-03-17.md", "outside folders")

	if err := Sync(db, store, snapshot(lib, &cfg), quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	fri, err := db.Get(periodic.DateUID(lib, day(2024, time.March, 15), periodic.Day))
	if err != nil {
		t.Fatalf("Get day: %v", err)
	}
	if fri.Sticker != "🌞" || fri.Title != "Friday" {
		t.Errorf("day note = %+v", fri)
	}
	if _, err := db.ByPath("Daily/2024/2024-03-16.md"); err != nil {
		t.Errorf("nested note: %v", err)
	}
	wk, err := db.Get(periodic.DateUID(lib, day(2024, time.January, 28), periodic.Week))
	if err != nil || wk.Path != "Weekly/2024-W05.md" {
		t.Errorf("week note = %+v, %v", wk, err)
	}
	for _, p := range []string{"Daily/notes.md", "Elsewhere/2024-03-17.md"} {
		if _, err := db.ByPath(p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s indexed: %v", p, err)
		}
	}

	// Disabling weeks and deleting a day note drops their entries.
	cfg.Week.Enabled = false
	_ = os.Remove(filepath.Join(root, "Daily", "2024", "2024-03-16.md"))
	if err := Sync(db, store, snapshot(lib, &cfg), quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	for _, p := range []string{"Weekly/2024-W05.md", "Daily/2024/2024-03-16.md"} {
		if _, err := db.ByPath(p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s still indexed: %v", p, err)
		}
	}
}

func TestSync_MissingFolder(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	store, _ := vault.NewFS(root)
	cfg := periodic.DefaultConfig()
	cfg.Day.Folder = "Daily"
	cfg.Month.Enabled = true
	cfg.Month.Folder = "Monthly"
	writeFile(t, root, "Daily/2024-03-15.md", "x")

	err := Sync(db, store, snapshot(testLib(), &cfg), quietLogger())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for the missing folder", err)
	}
	if _, err := db.ByPath("Daily/2024-03-15.md"); err != nil {
		t.Errorf("existing folder not indexed: %v", err)
	}
}

func TestReconcile_SkipsUnchanged(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	store, _ := vault.NewFS(root)
	cfg := periodic.DefaultConfig()
	writeFile(t, root, "2024-03-15.md", "one")

	var events []string
	cb := func(kind, path string) { events = append(events, kind+":"+path) }
	snap := snapshot(testLib(), &cfg)

	_ = reconcile(db, store, snap, quietLogger(), cb)
	_ = reconcile(db, store, snap, quietLogger(), cb)
	writeFile(t, root, "2024-03-15.md", "one two")
	_ = reconcile(db, store, snap, quietLogger(), cb)

	want := []string{"created:2024-03-15.md", "updated:2024-03-15.md"}
	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestScanFolders(t *testing.T) {
	cfg := periodic.DefaultConfig()
	cfg.Day.Folder = "Journal/"
	cfg.Week.Enabled = true
	cfg.Week.Folder = "Journal"
	cfg.Month.Folder = "Monthly"
	if got := scanFolders(cfg); len(got) != 1 || got[0] != "Journal" {
		t.Errorf("got %v", got)
	}
	cfg.Year.Enabled = true
	if got := scanFolders(cfg); len(got) != 1 || got[0] != "" {
		t.Errorf("root folder: got %v", got)
	}
}
