// Package noteservice opens, creates and resolves periodic notes on top of
// the vault, the note index and the settings store.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/calendar"
	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/index"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/settings"
	"github.com/starford/periodic/internal/vault"
)

// Notifier shows a one-shot message to the user.
type Notifier interface {
	Notice(msg string)
}

// Resolution describes a vault path recognised as a periodic note.
type Resolution struct {
	Path        string               `json:"path"`
	Granularity periodic.Granularity `json:"granularity"`
	Date        time.Time            `json:"date"`
	UID         string               `json:"uid"`
	Note        *models.PeriodicNote `json:"note,omitempty"`
}

// FormatCheck is the outcome of validating a candidate format.
type FormatCheck struct {
	Format  string `json:"format"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// NoteConfigPatch changes the configuration of one granularity. Nil fields
// are left alone.
type NoteConfigPatch struct {
	Enabled  *bool   `json:"enabled,omitempty"`
	Format   *string `json:"format,omitempty"`
	Folder   *string `json:"folder,omitempty"`
	Template *string `json:"template,omitempty"`
}

// PreferencesPatch changes the global preferences. Nil fields are left alone.
type PreferencesPatch struct {
	WeekStart      *string           `json:"weekStart,omitempty"`
	LocaleOverride *string           `json:"localeOverride,omitempty"`
	Popover        *settings.Popover `json:"popover,omitempty"`
	WordsPerDot    *int              `json:"wordsPerDot,omitempty"`
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where notices go. By default they are only logged.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDateOptions adds options to every date library the service builds,
// typically a clock or time zone.
func WithDateOptions(opts ...dateformat.Option) Option {
	return func(s *Service) { s.dateOpts = append(s.dateOpts, opts...) }
}

// Service coordinates vault, index and settings operations.
type Service struct {
	store    vault.Provider
	db       *index.DB
	settings *settings.Store
	notifier Notifier
	logger   *slog.Logger
	dateOpts []dateformat.Option

	mu      sync.Mutex
	indexed string
	cancel  func()
}

// NewService creates a note service. The index is rebuilt whenever a
// settings change affects how files are classified.
func NewService(store vault.Provider, db *index.DB, st *settings.Store, opts ...Option) *Service {
	s := &Service{store: store, db: db, settings: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.indexed = classificationKey(st.Get())
	s.cancel = st.Subscribe(s.settingsChanged)
	return s
}

// Close stops following settings changes.
func (s *Service) Close() {
	s.cancel()
}

// Settings returns the current settings.
func (s *Service) Settings() settings.Settings {
	return s.settings.Get()
}

// Library returns the date library of the current settings.
func (s *Service) Library() *dateformat.Library {
	return s.library(s.settings.Get())
}

func (s *Service) library(st settings.Settings) *dateformat.Library {
	lib, err := st.Library(s.dateOpts...)
	if err != nil {
		s.logger.Warn("noteservice: locale unavailable", slog.String("locale", st.LocaleOverride), slog.String("error", err.Error()))
		return dateformat.New(s.dateOpts...)
	}
	return lib
}

// Snapshot returns the library and note configuration used to classify
// files. It has the shape of index.Snapshot.
func (s *Service) Snapshot() (periodic.DateLibrary, periodic.Config) {
	st := s.settings.Get()
	return s.library(st), st.Config
}

// Rebuild clears the index and scans the vault again. Folders that cannot
// be read are reported with a notice; the rest of the vault is indexed.
func (s *Service) Rebuild(_ context.Context) error {
	if err := s.db.Reset(); err != nil {
		return err
	}
	if err := index.Sync(s.db, s.store, s.Snapshot, s.logger); err != nil {
		s.logger.Warn("noteservice: scan incomplete", slog.String("error", err.Error()))
		s.notice("Some periodic note folders could not be read")
		return err
	}
	return nil
}

func (s *Service) settingsChanged(st settings.Settings) {
	key := classificationKey(st)
	s.mu.Lock()
	changed := key != s.indexed
	s.indexed = key
	s.mu.Unlock()
	if !changed {
		return
	}
	_ = s.Rebuild(context.Background())
}

// classificationKey covers every setting that changes how a file maps to a
// period.
func classificationKey(st settings.Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s", st.WeekStart, st.LocaleOverride)
	for _, g := range periodic.Granularities {
		nc := st.Get(g)
		fmt.Fprintf(&b, "|%s:%t:%s:%s:%s", g, nc.Enabled, nc.Format, nc.Folder, strings.Join(nc.ValidFormats, ","))
	}
	return b.String()
}

// Lookup returns the indexed note of the period containing date.
func (s *Service) Lookup(_ context.Context, g periodic.Granularity, date time.Time) (*models.PeriodicNote, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("noteservice: unknown granularity %q", g)
	}
	return s.db.Get(periodic.DateUID(s.Library(), date, g))
}

// Open returns the note of the period containing date, creating it when it
// does not exist yet. created reports whether a file was written.
func (s *Service) Open(ctx context.Context, g periodic.Granularity, date time.Time) (note *models.PeriodicNote, created bool, err error) {
	note, err = s.Lookup(ctx, g, date)
	if err == nil {
		return note, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}
	note, err = s.Create(ctx, g, date)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		// The file is there but the index has not caught up.
		note, err = s.adopt(g, date)
		return note, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return note, true, nil
}

// Create writes the note of the period containing date from the
// granularity's template and indexes it.
func (s *Service) Create(_ context.Context, g periodic.Granularity, date time.Time) (*models.PeriodicNote, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("noteservice: unknown granularity %q", g)
	}
	st := s.settings.Get()
	nc := st.Get(g)
	if !nc.Enabled {
		return nil, fmt.Errorf("%w: %s notes", apperr.ErrDisabled, g.Periodicity())
	}
	lib := s.library(st)
	format := s.effectiveFormat(lib, st.Config, g)
	date = lib.StartOf(date, g.Unit())
	notePath := periodic.NotePath(lib, st.Config, g, date, format, "")

	if dir := path.Dir(notePath); dir != "." {
		if err := s.store.EnsureFolder(dir); err != nil {
			s.logger.Error("noteservice: create folder failed", slog.String("folder", dir), slog.String("error", err.Error()))
			s.notice(fmt.Sprintf("Failed to create folder %s", dir))
			return nil, err
		}
	}

	title := strings.TrimSuffix(path.Base(notePath), ".md")
	body := Expand(s.readTemplate(nc.Template), TemplateData{
		Lib:         lib,
		Granularity: g,
		Date:        date,
		Format:      format,
		Title:       title,
	})
	if err := s.store.Create(notePath, []byte(body)); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			s.notice(fmt.Sprintf("%s already exists", notePath))
		} else {
			s.logger.Error("noteservice: create failed", slog.String("path", notePath), slog.String("error", err.Error()))
			s.notice(fmt.Sprintf("Failed to create %s", notePath))
		}
		return nil, err
	}
	s.logger.Info("noteservice: created", slog.String("path", notePath), slog.String("granularity", string(g)))
	return s.index(lib, g, date, notePath, []byte(body))
}

// effectiveFormat falls back to the last working format when the selected
// one no longer validates, and tells the user.
func (s *Service) effectiveFormat(lib periodic.DateLibrary, cfg periodic.Config, g periodic.Granularity) string {
	format := cfg.EffectiveFormat(lib, g)
	if selected := cfg.Get(g).SelectedFormat(g); selected != format {
		msg := periodic.ValidateFormat(lib, selected, g)
		s.logger.Warn("noteservice: invalid format", slog.String("format", selected), slog.String("reason", msg))
		s.notice(fmt.Sprintf("Invalid %s note format %q (%s), using %q", g.Periodicity(), selected, msg, format))
	}
	return format
}

// readTemplate returns the template content, or "" when there is no
// template or it cannot be read.
func (s *Service) readTemplate(template string) string {
	template = strings.TrimPrefix(strings.TrimSpace(template), "/")
	if template == "" {
		return ""
	}
	if path.Ext(template) == "" {
		template += ".md"
	}
	content, err := s.store.CachedRead(template)
	if err != nil {
		s.logger.Warn("noteservice: template unreadable", slog.String("path", template), slog.String("error", err.Error()))
		s.notice(fmt.Sprintf("Failed to read the periodic note template %s", template))
		return ""
	}
	return content
}

// adopt indexes an existing note file of the period containing date.
func (s *Service) adopt(g periodic.Granularity, date time.Time) (*models.PeriodicNote, error) {
	st := s.settings.Get()
	lib := s.library(st)
	date = lib.StartOf(date, g.Unit())
	notePath := periodic.NotePath(lib, st.Config, g, date, st.EffectiveFormat(lib, g), "")
	data, err := s.store.Read(notePath)
	if err != nil {
		return nil, err
	}
	return s.index(lib, g, date, notePath, data)
}

func (s *Service) index(lib periodic.DateLibrary, g periodic.Granularity, date time.Time, notePath string, data []byte) (*models.PeriodicNote, error) {
	f, err := s.store.Stat(notePath)
	if err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, f, data, g, date, periodic.DateUID(lib, date, g)); err != nil {
		return nil, err
	}
	return s.db.ByPath(notePath)
}

// Resolve reports which period the note at notePath belongs to.
func (s *Service) Resolve(_ context.Context, notePath string) (*Resolution, error) {
	lib, cfg := s.Snapshot()
	notePath = strings.TrimPrefix(notePath, "/")
	g, date, ok := periodic.Classify(lib, cfg, notePath)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	date = lib.StartOf(date, g.Unit())
	res := &Resolution{
		Path:        notePath,
		Granularity: g,
		Date:        date,
		UID:         periodic.DateUID(lib, date, g),
	}
	note, err := s.db.ByPath(notePath)
	switch {
	case err == nil:
		res.Note = note
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return res, nil
}

// ValidateFormat checks a candidate format for g the way the settings input
// does: an empty format stands for the default.
func (s *Service) ValidateFormat(g periodic.Granularity, format string) FormatCheck {
	lib := s.Library()
	check := FormatCheck{Format: format}
	if check.Error = periodic.ValidateFormatInput(lib, format, g); check.Error != "" {
		return check
	}
	if format == "" {
		format = g.DefaultFormat()
	}
	check.Valid = true
	check.Warning = periodic.FormatWarning(lib, format, g)
	check.Preview = lib.Format(lib.Now(), format)
	return check
}

// UpdateNoteConfig applies patch to the configuration of g. A new format is
// validated and remembered so notes named with it keep resolving after the
// next change.
func (s *Service) UpdateNoteConfig(_ context.Context, g periodic.Granularity, patch NoteConfigPatch) (settings.Settings, error) {
	if !g.Valid() {
		return settings.Settings{}, fmt.Errorf("noteservice: unknown granularity %q", g)
	}
	return s.settings.Update(func(st *settings.Settings) error {
		nc := st.Get(g)
		if patch.Format != nil {
			format := strings.TrimSpace(*patch.Format)
			if format != "" {
				if msg := st.AcceptFormat(s.library(*st), g, format); msg != "" {
					return fmt.Errorf("%w: %s", apperr.ErrInvalidFormat, msg)
				}
			}
			nc.Format = format
		}
		if patch.Enabled != nil {
			nc.Enabled = *patch.Enabled
		}
		if patch.Folder != nil {
			nc.Folder = strings.TrimSpace(*patch.Folder)
		}
		if patch.Template != nil {
			nc.Template = strings.TrimSpace(*patch.Template)
		}
		return nil
	})
}

// UpdatePreferences applies patch to the global preferences.
func (s *Service) UpdatePreferences(_ context.Context, patch PreferencesPatch) (settings.Settings, error) {
	return s.settings.Update(func(st *settings.Settings) error {
		if patch.WeekStart != nil {
			st.WeekStart = *patch.WeekStart
		}
		if patch.LocaleOverride != nil {
			st.LocaleOverride = *patch.LocaleOverride
		}
		if patch.Popover != nil {
			st.Popover = *patch.Popover
		}
		if patch.WordsPerDot != nil {
			st.WordsPerDot = *patch.WordsPerDot
		}
		return nil
	})
}

// Calendar returns the calendar of the month containing month.
func (s *Service) Calendar(_ context.Context, month time.Time) (calendar.Month, error) {
	st := s.settings.Get()
	return calendar.Build(s.library(st), month, s.db, st.WordsPerDot)
}

// Step moves date by n periods of g.
func (s *Service) Step(g periodic.Granularity, date time.Time, n int) time.Time {
	return calendar.Step(s.Library(), date, g, n)
}

// List returns the indexed notes of g, optionally limited to the periods
// starting in [from, to). A zero bound is open.
func (s *Service) List(_ context.Context, g periodic.Granularity, from, to time.Time) ([]models.PeriodicNote, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("noteservice: unknown granularity %q", g)
	}
	if from.IsZero() && to.IsZero() {
		return nonNilSlice(s.db.All(g))
	}
	if to.IsZero() {
		to = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return nonNilSlice(s.db.Range(g, from, to))
}

func (s *Service) notice(msg string) {
	if s.notifier == nil {
		s.logger.Info("notice", slog.String("message", msg))
		return
	}
	s.notifier.Notice(msg)
}

func nonNilSlice[T any](s []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if s == nil {
		return []T{}, nil
	}
	return s, nil
}
