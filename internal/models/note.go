// Package models defines the shared types of the periodic note service.
package models

import (
	"time"

	"github.com/starford/periodic/internal/periodic"
)

// File describes an entry in the vault.
type File struct {
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// PeriodicNote associates one period with the file holding its note.
type PeriodicNote struct {
	UID         string               `json:"uid"`
	Granularity periodic.Granularity `json:"granularity"`
	Date        time.Time            `json:"date"`
	Path        string               `json:"path"`
	Title       string               `json:"title,omitempty"`
	Sticker     string               `json:"sticker,omitempty"`
	Words       int                  `json:"words"`
	Checksum    string               `json:"checksum"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
