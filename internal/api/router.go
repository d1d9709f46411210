package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted behind the
// Bearer token check. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, store vault.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	th := NewTemplateHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/periodic/{granularity}", h.GetPeriodicNote)
	r.Post("/periodic/{granularity}", h.OpenPeriodicNote)
	r.Get("/notes/{granularity}", h.ListNotes)
	r.Get("/resolve", h.Resolve)
	r.Get("/calendar", h.Calendar)

	r.Post("/formats/validate", h.ValidateFormat)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdatePreferences)
	r.Put("/settings/{granularity}", h.UpdateNoteConfig)

	r.Post("/templates", th.Upload)
	r.Get("/templates/{filename}", th.Get)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
