package settings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/starford/periodic/internal/apperr"
)

// DefaultPath is the vault path of the settings document.
const DefaultPath = ".periodic/data.json"

// Files reads and atomically writes vault files. *vault.FS satisfies it.
type Files interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Store holds the current settings, persists every change and notifies
// subscribers. Readers get copies; writers replace the whole document.
type Store struct {
	files Files
	path  string

	mu     sync.Mutex
	cur    Settings
	subs   map[int]func(Settings)
	nextID int
}

// Open loads the settings document at path. A missing document yields the
// defaults; it is written on the first update.
func Open(files Files, path string) (*Store, error) {
	s := &Store{files: files, path: path, subs: make(map[int]func(Settings))}
	data, err := files.Read(path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.cur = Default()
	case err != nil:
		return nil, fmt.Errorf("settings: open: %w", err)
	default:
		if s.cur, err = Decode(data); err != nil {
			return nil, err
		}
	}
	if err := s.cur.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %s: %w", path, err)
	}
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Update applies fn to a copy of the current settings. If fn succeeds and
// the result validates, the copy is persisted, becomes current and is sent
// to every subscriber.
func (s *Store) Update(fn func(*Settings) error) (Settings, error) {
	s.mu.Lock()
	next := s.cur.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	data, err := Encode(next)
	if err != nil {
		s.mu.Unlock()
		return Settings{}, err
	}
	if err := s.files.Write(s.path, data); err != nil {
		s.mu.Unlock()
		return Settings{}, fmt.Errorf("settings: persist: %w", err)
	}
	s.cur = next
	subs := make([]func(Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next.Clone())
	}
	return next.Clone(), nil
}

// Subscribe registers fn to receive the settings after every update. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Settings)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
