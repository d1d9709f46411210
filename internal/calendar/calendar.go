// Package calendar builds the month view shown next to periodic notes: a
// grid of weeks starting on the locale's first weekday, with each day and
// week linked to its note.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/periodic"
)

// MaxDots caps the word-count indicator of a note.
const MaxDots = 5

// gridWeeks is the number of rows of every month grid.
const gridWeeks = 6

// Lookup finds the note of a period by DateUID. *index.DB satisfies it.
type Lookup interface {
	Get(uid string) (*models.PeriodicNote, error)
}

// NoteRef summarises the note of a cell.
type NoteRef struct {
	Path    string `json:"path"`
	Sticker string `json:"sticker,omitempty"`
	Dots    int    `json:"dots"`
}

// Day is one cell of the grid.
type Day struct {
	Date    time.Time `json:"date"`
	UID     string    `json:"uid"`
	InMonth bool      `json:"in_month"`
	Today   bool      `json:"today"`
	Note    *NoteRef  `json:"note,omitempty"`
}

// Week is one row of the grid.
type Week struct {
	Number int      `json:"number"`
	UID    string   `json:"uid"`
	Note   *NoteRef `json:"note,omitempty"`
	Days   [7]Day   `json:"days"`
}

// Month is the calendar of one month.
type Month struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	UID      string    `json:"uid"`
	Note     *NoteRef  `json:"note,omitempty"`
	Weekdays [7]string `json:"weekdays"`
	Weeks    []Week    `json:"weeks"`
}

// Build returns the six-week calendar of the month containing anchor.
// wordsPerDot sets how many words of a note make one dot; 0 turns dots off.
func Build(lib *dateformat.Library, anchor time.Time, notes Lookup, wordsPerDot int) (Month, error) {
	start := lib.StartOf(anchor, dateformat.Month)
	end := lib.Add(start, 1, dateformat.Month)
	today := lib.StartOf(lib.Now(), dateformat.Day)

	ref := func(date time.Time, g periodic.Granularity) (string, *NoteRef, error) {
		uid := periodic.DateUID(lib, date, g)
		n, err := notes.Get(uid)
		if errors.Is(err, apperr.ErrNotFound) {
			return uid, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("calendar: %s: %w", uid, err)
		}
		return uid, &NoteRef{Path: n.Path, Sticker: n.Sticker, Dots: dots(n.Words, wordsPerDot)}, nil
	}

	m := Month{
		Title: lib.Format(start, "MMMM YYYY"),
		Start: start,
	}
	var err error
	if m.UID, m.Note, err = ref(start, periodic.Month); err != nil {
		return Month{}, err
	}

	loc := lib.Locale()
	for i := range m.Weekdays {
		m.Weekdays[i] = loc.WeekdaysShort[(loc.Dow+i)%7]
	}

	first := lib.StartOf(start, dateformat.Week)
	for row := 0; row < gridWeeks; row++ {
		ws := lib.Add(first, row, dateformat.Week)
		var w Week
		w.Number, _ = lib.Week(ws)
		if w.UID, w.Note, err = ref(ws, periodic.Week); err != nil {
			return Month{}, err
		}
		for i := range w.Days {
			d := lib.Add(ws, i, dateformat.Day)
			cell := Day{
				Date:    d,
				InMonth: !d.Before(start) && d.Before(end),
				Today:   d.Equal(today),
			}
			if cell.UID, cell.Note, err = ref(d, periodic.Day); err != nil {
				return Month{}, err
			}
			w.Days[i] = cell
		}
		m.Weeks = append(m.Weeks, w)
	}
	return m, nil
}

// Step moves t by n periods of g, landing on the start of the period.
func Step(lib *dateformat.Library, t time.Time, g periodic.Granularity, n int) time.Time {
	return lib.Add(lib.StartOf(t, g.Unit()), n, g.Unit())
}

func dots(words, perDot int) int {
	if words <= 0 || perDot <= 0 {
		return 0
	}
	return min((words+perDot-1)/perDot, MaxDots)
}
