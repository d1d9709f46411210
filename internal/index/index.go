package index

import (
	"time"

	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/periodic"
)

// NoteIndex defines the interface for periodic note lookups.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	Put(n models.PeriodicNote) error
	DeleteByPath(path string) (bool, error)
	Get(uid string) (*models.PeriodicNote, error)
	ByPath(path string) (*models.PeriodicNote, error)
	Range(g periodic.Granularity, from, to time.Time) ([]models.PeriodicNote, error)
	All(g periodic.Granularity) ([]models.PeriodicNote, error)
	Reset() error
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
