package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/periodic/internal/vault"
)

const (
	templateDir      = "Templates"
	maxTemplateBytes = 1 << 20
)

// TemplateHandler uploads and serves note templates kept in the vault's
// Templates folder. Uploaded templates are referenced from the settings by
// their vault path.
type TemplateHandler struct {
	store vault.Provider
}

// NewTemplateHandler creates a handler storing templates in store.
func NewTemplateHandler(store vault.Provider) *TemplateHandler {
	return &TemplateHandler{store: store}
}

// templatePath checks that name is a plain Markdown file name and returns
// its vault path.
func templatePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	if strings.ContainsAny(name, `/\`) || name != path.Clean(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if path.Ext(name) != ".md" {
		return "", fmt.Errorf("template must be a .md file")
	}
	return templateDir + "/" + name, nil
}

// Get handles GET /templates/{filename}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := templatePath(chi.URLParam(r, "filename"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	content, err := h.store.CachedRead(p)
	if err != nil {
		writeError(w, "read template", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, content)
}

// Upload handles POST /templates (multipart/form-data, field "file"). An
// existing template of the same name is replaced.
//
//	@Summary		Upload a note template
//	@Tags			templates
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Markdown template"
//	@Success		201		{object}	TemplateUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [post]
func (h *TemplateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateBytes+4096)
	if err := r.ParseMultipartForm(maxTemplateBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	p, err := templatePath(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if err := h.store.EnsureFolder(templateDir); err != nil {
		writeError(w, "create template folder", err)
		return
	}
	if err := h.store.Write(p, data); err != nil {
		writeError(w, "write template", err)
		return
	}
	writeJSON(w, http.StatusCreated, TemplateUploadResponse{Path: p, Size: int64(len(data))})
}
