package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/periodic/internal/noteservice"
	"github.com/starford/periodic/internal/periodic"
)

const (
	templateDir     = "Templates"
	maxTemplateSize = 1 << 20
)

var (
	textMIME = map[string]bool{
		"text/markdown":   true,
		"text/x-markdown": true,
		"text/plain":      true,
	}

	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)
)

type importResult struct {
	Path        string `json:"path"`
	Size        int    `json:"size"`
	Granularity string `json:"granularity,omitempty"`
}

func (s *Server) importTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var g periodic.Granularity
	if raw := req.GetString("granularity", ""); raw != "" {
		if g, err = periodic.ParseGranularity(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	var data []byte
	if strings.HasPrefix(source, "data:") {
		data, err = decodeDataURI(source)
	} else {
		data, err = fetchHTTP(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !utf8.Valid(data) || strings.ContainsRune(string(data), 0) {
		return mcp.NewToolResultError("template is not UTF-8 text"), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = nameFromSource(source)
	}
	p := templateDir + "/" + sanitizeName(name)

	if _, statErr := s.store.Stat(p); statErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("template already exists: %s", p)), nil
	}
	if err := s.store.EnsureFolder(templateDir); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Create(p, data); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save template: %v", err)), nil
	}

	res := importResult{Path: p, Size: len(data)}
	if g != "" {
		if _, err := s.svc.UpdateNoteConfig(ctx, g, noteservice.NoteConfigPatch{Template: &p}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saved %s but could not use it: %v", p, err)), nil
		}
		res.Granularity = string(g)
	}
	return jsonResult(res)
}

// decodeDataURI parses a data:<text mediatype>[;charset=...][;base64],<data>
// URI. Unencoded payloads are percent-decoded.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	mime := strings.Split(meta, ";")[0]
	if mime != "" && !textMIME[mime] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mime)
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		var err error
		if data, err = base64.StdEncoding.DecodeString(payload); err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
				return nil, fmt.Errorf("invalid base64 data: %w", err)
			}
		}
	} else {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("invalid data URI: %w", err)
		}
		data = []byte(text)
	}
	if len(data) > maxTemplateSize {
		return nil, fmt.Errorf("template too large: %d bytes (max %d)", len(data), maxTemplateSize)
	}
	return data, nil
}

// fetchHTTP downloads a template, refusing loopback and metadata hosts.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	if ct := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]); ct != "" && !textMIME[ct] {
		return nil, fmt.Errorf("unsupported content type: %s", ct)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxTemplateSize {
		return nil, fmt.Errorf("template too large: exceeds %d bytes", maxTemplateSize)
	}
	return data, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client report DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// nameFromSource takes the last URL path element, or a random name for
// data URIs and bare URLs.
func nameFromSource(source string) string {
	if !strings.HasPrefix(source, "data:") {
		if parsed, err := url.Parse(source); err == nil {
			if base := path.Base(parsed.Path); base != "." && base != "/" {
				return base
			}
		}
	}
	return uuid.New().String() + ".md"
}

// sanitizeName strips directories and unsafe characters and forces a .md
// extension.
func sanitizeName(name string) string {
	name = unsafeNameRe.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
	name = strings.TrimLeft(name, ". ")
	if name == "" {
		name = uuid.New().String()
	}
	if path.Ext(name) != ".md" {
		name = strings.TrimSuffix(name, path.Ext(name)) + ".md"
	}
	return name
}
