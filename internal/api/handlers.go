package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/periodic/internal/dateformat"
	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/periodic"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func granularityParam(r *http.Request) (periodic.Granularity, error) {
	return periodic.ParseGranularity(chi.URLParam(r, "granularity"))
}

// parseDate reads an ISO date in the service's time zone. An empty value is
// now.
func parseDate(lib *dateformat.Library, value, layout string) (time.Time, error) {
	if value == "" {
		return lib.Now(), nil
	}
	t, err := lib.Parse(value, layout, true)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want %s", value, layout)
	}
	return t, nil
}

// GetPeriodicNote handles GET /periodic/{granularity}.
//
//	@Summary		Look up the note of a period
//	@Tags			periodic
//	@Produce		json
//	@Param			granularity	path		string	true	"Granularity"	Enums(day, week, month, quarter, year)
//	@Param			date		query		string	false	"Date in the period (YYYY-MM-DD), default today"
//	@Param			offset		query		int		false	"Periods to move from date"
//	@Success		200			{object}	PeriodicNote
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/periodic/{granularity} [get]
func (h *Handler) GetPeriodicNote(w http.ResponseWriter, r *http.Request) {
	g, err := granularityParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	q := r.URL.Query()
	date, err := parseDate(h.svc.Library(), q.Get("date"), "YYYY-MM-DD")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("offset must be an integer"))
			return
		}
		date = h.svc.Step(g, date, n)
	}
	note, err := h.svc.Lookup(r.Context(), g, date)
	if err != nil {
		writeError(w, "lookup note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// OpenPeriodicNote handles POST /periodic/{granularity}.
//
//	@Summary		Open the note of a period, creating it from its template
//	@Tags			periodic
//	@Accept			json
//	@Produce		json
//	@Param			granularity	path		string			true	"Granularity"	Enums(day, week, month, quarter, year)
//	@Param			body		body		OpenNoteRequest	false	"Date and offset"
//	@Success		200			{object}	OpenNoteResponse
//	@Success		201			{object}	OpenNoteResponse
//	@Failure		400			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/periodic/{granularity} [post]
func (h *Handler) OpenPeriodicNote(w http.ResponseWriter, r *http.Request) {
	g, err := granularityParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var req OpenNoteRequest
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	date, err := parseDate(h.svc.Library(), req.Date, "YYYY-MM-DD")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if req.Offset != 0 {
		date = h.svc.Step(g, date, req.Offset)
	}
	note, created, err := h.svc.Open(r.Context(), g, date)
	if err != nil {
		writeError(w, "open note", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, OpenNoteResponse{Note: note, Created: created})
}

// ListNotes handles GET /notes/{granularity}.
//
//	@Summary		List the indexed notes of a granularity
//	@Tags			periodic
//	@Produce		json
//	@Param			granularity	path		string	true	"Granularity"	Enums(day, week, month, quarter, year)
//	@Param			from		query		string	false	"First period start (YYYY-MM-DD)"
//	@Param			to			query		string	false	"Exclusive end (YYYY-MM-DD)"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes/{granularity} [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	g, err := granularityParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	lib := h.svc.Library()
	var bounds [2]time.Time
	for i, key := range []string{"from", "to"} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		if bounds[i], err = parseDate(lib, raw, "YYYY-MM-DD"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	notes, err := h.svc.List(r.Context(), g, bounds[0], bounds[1])
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes})
}

// Resolve handles GET /resolve.
//
//	@Summary		Find the period a vault file is the note of
//	@Tags			periodic
//	@Produce		json
//	@Param			path	query		string	true	"Vault path"
//	@Success		200		{object}	Resolution
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), p)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateFormat handles POST /formats/validate.
//
//	@Summary		Check a filename format
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ValidateFormatRequest	true	"Candidate format"
//	@Success		200		{object}	FormatCheck
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/formats/validate [post]
func (h *Handler) ValidateFormat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ValidateFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	g, err := periodic.ParseGranularity(req.Granularity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ValidateFormat(g, req.Format))
}

// GetSettings handles GET /settings.
//
//	@Summary		Get the settings document
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// UpdatePreferences handles PUT /settings.
//
//	@Summary		Change week start, locale, popover or dot preferences
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreferencesPatch	true	"Fields to change"
//	@Success		200		{object}	Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var patch PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	st, err := h.svc.UpdatePreferences(r.Context(), patch)
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateNoteConfig handles PUT /settings/{granularity}.
//
//	@Summary		Change the note settings of one granularity
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			granularity	path		string			true	"Granularity"	Enums(day, week, month, quarter, year)
//	@Param			body		body		NoteConfigPatch	true	"Fields to change"
//	@Success		200			{object}	Settings
//	@Failure		400			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{granularity} [put]
func (h *Handler) UpdateNoteConfig(w http.ResponseWriter, r *http.Request) {
	g, err := granularityParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var patch NoteConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	st, err := h.svc.UpdateNoteConfig(r.Context(), g, patch)
	if err != nil {
		writeError(w, "update note config", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Calendar handles GET /calendar.
//
//	@Summary		Get the calendar grid of a month
//	@Tags			calendar
//	@Produce		json
//	@Param			month	query		string	false	"Month (YYYY-MM), default this month"
//	@Success		200		{object}	CalendarMonth
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := parseDate(h.svc.Library(), r.URL.Query().Get("month"), "YYYY-MM")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m, err := h.svc.Calendar(r.Context(), month)
	if err != nil {
		writeError(w, "calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
