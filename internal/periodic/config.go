package periodic

import "slices"

// NoteConfig configures one granularity.
type NoteConfig struct {
	Enabled  bool   `json:"enabled"`
	Format   string `json:"format"`
	Folder   string `json:"folder"`
	Template string `json:"template"`
	// ValidFormats is every format ever accepted for this granularity, oldest
	// first. Filenames are resolved against all of them.
	ValidFormats []string `json:"validFormats"`
}

// Config holds the note configuration of every granularity.
type Config struct {
	Day     NoteConfig `json:"day"`
	Week    NoteConfig `json:"week"`
	Month   NoteConfig `json:"month"`
	Quarter NoteConfig `json:"quarter"`
	Year    NoteConfig `json:"year"`
}

// DefaultConfig enables daily notes in the vault root.
func DefaultConfig() Config {
	var c Config
	for _, g := range Granularities {
		c.Get(g).Format = g.DefaultFormat()
	}
	c.Day.Enabled = true
	return c
}

// Get returns the configuration of g. It panics on an unknown granularity.
func (c *Config) Get(g Granularity) *NoteConfig {
	switch g {
	case Day:
		return &c.Day
	case Week:
		return &c.Week
	case Month:
		return &c.Month
	case Quarter:
		return &c.Quarter
	case Year:
		return &c.Year
	}
	panic("periodic: unknown granularity " + string(g))
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	cp := c
	for _, g := range Granularities {
		nc := cp.Get(g)
		nc.ValidFormats = slices.Clone(nc.ValidFormats)
	}
	return cp
}

// SelectedFormat returns the configured format, or the granularity default
// when none is set.
func (n NoteConfig) SelectedFormat(g Granularity) string {
	if n.Format != "" {
		return n.Format
	}
	return g.DefaultFormat()
}

// lookupFormats returns the formats tried when resolving a filename: the
// accepted formats in insertion order, then the selected format if it was
// never accepted.
func (n NoteConfig) lookupFormats(g Granularity) []string {
	selected := n.SelectedFormat(g)
	formats := slices.Clone(n.ValidFormats)
	if !slices.Contains(formats, selected) {
		formats = append(formats, selected)
	}
	return formats
}

// AcceptFormat validates format for g and, when it is valid, records it in
// the granularity's valid formats. It returns the validation message; an
// empty string means the format was accepted.
func (c *Config) AcceptFormat(lib DateLibrary, g Granularity, format string) string {
	if msg := ValidateFormat(lib, format, g); msg != "" {
		return msg
	}
	nc := c.Get(g)
	if !slices.Contains(nc.ValidFormats, format) {
		nc.ValidFormats = append(nc.ValidFormats, format)
	}
	return ""
}

// EffectiveFormat returns the format to create notes with: the selected
// format if it validates, otherwise the most recently accepted format that
// still validates, otherwise the default.
func (c *Config) EffectiveFormat(lib DateLibrary, g Granularity) string {
	nc := c.Get(g)
	if f := nc.SelectedFormat(g); ValidateFormat(lib, f, g) == "" {
		return f
	}
	for i := len(nc.ValidFormats) - 1; i >= 0; i-- {
		if ValidateFormat(lib, nc.ValidFormats[i], g) == "" {
			return nc.ValidFormats[i]
		}
	}
	return g.DefaultFormat()
}
