// Package parser reads the metadata of periodic notes: frontmatter, tags,
// the sticker tag, the title and a word count.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// StickerPrefix marks the tag that carries a note's sticker.
const StickerPrefix = "sticker-"

var (
	tagRe     = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	stickerRe = regexp.MustCompile(`(?:^|\s)#sticker-(\S+)`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Tags        []string
	Title       string
	Sticker     string
	Words       int
}

// Parse extracts frontmatter, body, tags, sticker, title and word count from
// raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	tags := extractTags(body, fm)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        tags,
		Title:       deriveTitle(fm, body),
		Sticker:     sticker(tags),
		Words:       countWords(body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Broken YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// frontmatterTags reads the "tags" (or "tag") key, given either as a list or
// as a comma/space separated string.
func frontmatterTags(fm map[string]interface{}) []string {
	raw, ok := fm["tags"]
	if !ok {
		raw = fm["tag"]
	}
	var out []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case string:
		out = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	}
	return out
}

// extractTags collects tags from the frontmatter first, then inline #tags.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range frontmatterTags(fm) {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		// Emoji stop the tag pattern right after the prefix.
		if m[1] != StickerPrefix {
			add(m[1])
		}
	}
	for _, m := range stickerRe.FindAllStringSubmatch(body, -1) {
		add(StickerPrefix + m[1])
	}
	return out
}

// sticker returns the emoji of the first sticker tag.
func sticker(tags []string) string {
	for _, t := range tags {
		if s, ok := strings.CutPrefix(t, StickerPrefix); ok && s != "" {
			return s
		}
	}
	return ""
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// countWords counts whitespace separated words that contain at least one
// letter or digit, so list bullets and rules are not counted.
func countWords(body string) int {
	n := 0
	for _, w := range strings.Fields(body) {
		if strings.IndexFunc(w, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) >= 0 {
			n++
		}
	}
	return n
}
