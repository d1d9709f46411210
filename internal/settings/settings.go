// Package settings persists the user's periodic note preferences as a JSON
// document inside the vault.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/periodic"
)

// WeekStartLocale takes the first day of the week from the locale.
const WeekStartLocale = "locale"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Popover holds calendar popover preferences.
type Popover struct {
	ShowOnHover         bool `json:"showOnHover"`
	ConfirmBeforeCreate bool `json:"confirmBeforeCreate"`
	OpenInNewPane       bool `json:"openInNewPane"`
}

// Settings is the persisted document. The per-granularity note
// configuration is stored under the keys day, week, month, quarter and year.
type Settings struct {
	periodic.Config

	WeekStart      string  `json:"weekStart"`
	LocaleOverride string  `json:"localeOverride"`
	Popover        Popover `json:"popover"`
	WordsPerDot    int     `json:"wordsPerDot"`
}

// Default returns the settings used for a vault without a settings file.
func Default() Settings {
	return Settings{
		Config:    periodic.DefaultConfig(),
		WeekStart: WeekStartLocale,
		Popover: Popover{
			ConfirmBeforeCreate: true,
		},
		WordsPerDot: 250,
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.Config = s.Config.Clone()
	return s
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	starts := []interface{}{WeekStartLocale}
	for name := range weekdays {
		starts = append(starts, name)
	}
	if err := validation.ValidateStruct(s,
		validation.Field(&s.WeekStart, validation.Required, validation.In(starts...)),
		validation.Field(&s.LocaleOverride, validation.By(localeTag)),
		validation.Field(&s.WordsPerDot, validation.Min(0)),
	); err != nil {
		return err
	}
	for _, g := range periodic.Granularities {
		nc := s.Get(g)
		if err := validation.ValidateStruct(nc,
			validation.Field(&nc.Folder, validation.By(insideVault)),
			validation.Field(&nc.Template, validation.By(insideVault)),
		); err != nil {
			return fmt.Errorf("%s: %w", g, err)
		}
	}
	return nil
}

func localeTag(value interface{}) error {
	tag, _ := value.(string)
	if tag == "" {
		return nil
	}
	if _, err := dateformat.ForTag(tag); err != nil {
		return errors.New("is not a valid locale")
	}
	return nil
}

func insideVault(value interface{}) error {
	p, _ := value.(string)
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return errors.New("must stay inside the vault")
		}
	}
	return nil
}

// Library builds the date library the settings describe: the locale
// override (English when empty) with the configured week start.
func (s Settings) Library(opts ...dateformat.Option) (*dateformat.Library, error) {
	locale := dateformat.English()
	if s.LocaleOverride != "" {
		l, err := dateformat.ForTag(s.LocaleOverride)
		if err != nil {
			return nil, err
		}
		locale = l
	}
	if wd, ok := weekdays[s.WeekStart]; ok {
		locale = locale.WithWeekStart(wd)
	}
	return dateformat.New(append([]dateformat.Option{dateformat.WithLocale(locale)}, opts...)...), nil
}

// Decode reads a settings document. Missing fields keep their defaults and
// note configuration stored under the legacy periodicity keys (daily,
// weekly, ...) is used when the granularity key is absent.
func Decode(data []byte) (Settings, error) {
	s := Default()
	if len(data) == 0 {
		return s, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	for _, g := range periodic.Granularities {
		legacy, ok := raw[g.Periodicity()]
		if _, current := raw[string(g)]; current || !ok {
			continue
		}
		if err := json.Unmarshal(legacy, s.Get(g)); err != nil {
			return Settings{}, fmt.Errorf("settings: decode %s: %w", g.Periodicity(), err)
		}
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings: decode: %w", err)
	}
	return s, nil
}

// Encode serialises s.
func Encode(s Settings) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("settings: encode: %w", err)
	}
	return data, nil
}
