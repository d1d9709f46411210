// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the periodic note operations as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/periodic/internal/apperr"
	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/periodic"
	"github.com/starford/periodic/internal/vault"
)

const guideURI = "periodic://format-guide"

// Server wraps the MCP server with the periodic note tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	store vault.Provider
}

// New creates an MCP server with every tool registered.
func New(svc *noteservice.Service, store vault.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Periodic",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	granularity := mcp.WithString("granularity", mcp.Required(),
		mcp.Enum("day", "week", "month", "quarter", "year"),
		mcp.Description("Period length"))

	s.mcp.AddTool(mcp.NewTool("open_periodic_note",
		mcp.WithDescription("Open the periodic note of a date, creating it from the configured template if it does not exist. Returns the note and its content."),
		granularity,
		mcp.WithString("date", mcp.Description("A date inside the period, YYYY-MM-DD (default today)")),
		mcp.WithNumber("offset", mcp.Description("Periods to move from date, e.g. -1 for the previous week")),
	), s.openPeriodicNote)

	s.mcp.AddTool(mcp.NewTool("resolve_note",
		mcp.WithDescription("Tell whether a vault file is a periodic note and which period it covers."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path, e.g. Daily/2024-03-15.md")),
	), s.resolveNote)

	s.mcp.AddTool(mcp.NewTool("validate_format",
		mcp.WithDescription("Check a filename format for a granularity. Read the format guide first via get_format_guide or the "+guideURI+" resource."),
		granularity,
		mcp.WithString("format", mcp.Required(), mcp.Description("Candidate format, e.g. gggg-[W]ww")),
	), s.validateFormat)

	s.mcp.AddTool(mcp.NewTool("list_periodic_notes",
		mcp.WithDescription("List the existing notes of a granularity, optionally limited to a date range."),
		granularity,
		mcp.WithString("from", mcp.Description("First period start, YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("Exclusive end, YYYY-MM-DD")),
	), s.listPeriodicNotes)

	s.mcp.AddTool(mcp.NewTool("get_settings",
		mcp.WithDescription("Return the periodic note settings: formats, folders, templates and preferences."),
	), s.getSettings)

	s.mcp.AddTool(mcp.NewTool("update_note_settings",
		mcp.WithDescription("Change the settings of one granularity. A new format is validated first and rejected if invalid."),
		granularity,
		mcp.WithBoolean("enabled", mcp.Description("Whether notes of this granularity are used")),
		mcp.WithString("format", mcp.Description("Filename format")),
		mcp.WithString("folder", mcp.Description("Vault folder holding the notes")),
		mcp.WithString("template", mcp.Description("Vault path of the template note")),
	), s.updateNoteSettings)

	s.mcp.AddTool(mcp.NewTool("import_template",
		mcp.WithDescription("Store a Markdown template in the vault's Templates folder from a data: URI or an http(s) URL, optionally using it for a granularity."),
		mcp.WithString("source", mcp.Required(), mcp.Description("data:text/markdown;base64,... or http(s) URL")),
		mcp.WithString("filename", mcp.Description("Template file name (default derived from the URL)")),
		mcp.WithString("granularity", mcp.Enum("day", "week", "month", "quarter", "year"), mcp.Description("Use the template for this granularity")),
	), s.importTemplate)

	s.mcp.AddTool(mcp.NewTool("get_format_guide",
		mcp.WithDescription("Returns the guide to filename format and template tokens."),
	), s.getFormatGuide)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Periodic Note Format Guide",
			mcp.WithResourceDescription("Filename format tokens, validation rules and template tokens."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatGuide,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func requireGranularity(req mcp.CallToolRequest) (periodic.Granularity, error) {
	raw, err := req.RequireString("granularity")
	if err != nil {
		return "", err
	}
	return periodic.ParseGranularity(raw)
}

func (s *Server) date(value string) (time.Time, error) {
	lib := s.svc.Library()
	if value == "" {
		return lib.Now(), nil
	}
	t, err := lib.Parse(value, "YYYY-MM-DD", true)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

type openResult struct {
	Path        string               `json:"path"`
	UID         string               `json:"uid"`
	Granularity periodic.Granularity `json:"granularity"`
	Created     bool                 `json:"created"`
	Content     string               `json:"content"`
}

func (s *Server) openPeriodicNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := requireGranularity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := s.date(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if n := req.GetInt("offset", 0); n != 0 {
		date = s.svc.Step(g, date, n)
	}
	note, created, err := s.svc.Open(ctx, g, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.store.CachedRead(note.Path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", note.Path, err)), nil
	}
	return jsonResult(openResult{
		Path:        note.Path,
		UID:         note.UID,
		Granularity: note.Granularity,
		Created:     created,
		Content:     content,
	})
}

func (s *Server) resolveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, p)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText(fmt.Sprintf("not a periodic note: %s", p)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) validateFormat(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := requireGranularity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.ValidateFormat(g, format))
}

func (s *Server) listPeriodicNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := requireGranularity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var from, to time.Time
	if v := req.GetString("from", ""); v != "" {
		if from, err = s.date(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := req.GetString("to", ""); v != "" {
		if to, err = s.date(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	notes, err := s.svc.List(ctx, g, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(notes)
}

func (s *Server) getSettings(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Settings())
}

func (s *Server) updateNoteSettings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := requireGranularity(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch noteservice.NoteConfigPatch
	args := req.GetArguments()
	if v, ok := args["enabled"].(bool); ok {
		patch.Enabled = &v
	}
	for key, dst := range map[string]**string{
		"format":   &patch.Format,
		"folder":   &patch.Folder,
		"template": &patch.Template,
	} {
		if v, ok := args[key].(string); ok {
			*dst = &v
		}
	}
	st, err := s.svc.UpdateNoteConfig(ctx, g, patch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st.Get(g))
}

func (s *Server) getFormatGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatGuide), nil
}

func (s *Server) readFormatGuide(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     FormatGuide,
		},
	}, nil
}
