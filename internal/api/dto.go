package api

import (
	"github.com/starford/periodic/internal/calendar"
	"github.com/starford/periodic/internal/models"
	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/settings"
)

// OpenNoteRequest is the request body for opening or creating a periodic note.
type OpenNoteRequest struct {
	Date   string `json:"date,omitempty" example:"2024-03-15"`
	Offset int    `json:"offset,omitempty" example:"-1"`
}

// OpenNoteResponse is returned by POST /periodic/{granularity}.
type OpenNoteResponse struct {
	Note    *models.PeriodicNote `json:"note" validate:"required"`
	Created bool                 `json:"created"`
}

// ValidateFormatRequest is the request body for checking a format.
type ValidateFormatRequest struct {
	Granularity string `json:"granularity" example:"week" validate:"required"`
	Format      string `json:"format" example:"gggg-[W]ww"`
}

// NoteListResponse wraps the notes of one granularity.
type NoteListResponse struct {
	Notes []models.PeriodicNote `json:"notes" validate:"required"`
}

// TemplateUploadResponse is returned after a template upload.
type TemplateUploadResponse struct {
	Path string `json:"path" example:"Templates/daily.md" validate:"required"`
	Size int64  `json:"size" example:"512" validate:"required"`
}

// Aliases from the domain layer.
type (
	PeriodicNote     = models.PeriodicNote
	Resolution       = noteservice.Resolution
	FormatCheck      = noteservice.FormatCheck
	NoteConfigPatch  = noteservice.NoteConfigPatch
	PreferencesPatch = noteservice.PreferencesPatch
	Settings         = settings.Settings
	CalendarMonth    = calendar.Month
)
