package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - journal\n  - sticker-🌞\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "journal" || r.Tags[1] != "sticker-🌞" {
		t.Errorf("tags = %v", r.Tags)
	}
	if r.Sticker != "🌞" {
		t.Errorf("sticker = %q", r.Sticker)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Words != 3 {
		t.Errorf("words = %d, want 3", r.Words)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.Sticker != "" {
		t.Errorf("sticker = %q, want none", r.Sticker)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestSticker_Inline(t *testing.T) {
	r, err := Parse([]byte("Went hiking #outdoors #sticker-⛰️ today"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Sticker != "⛰️" {
		t.Errorf("sticker = %q", r.Sticker)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "outdoors" || r.Tags[1] != "sticker-⛰️" {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExtractTags_StringField(t *testing.T) {
	tags := extractTags("", map[string]any{"tags": "daily, #sticker-🎉 work"})
	if len(tags) != 3 || tags[0] != "daily" || tags[1] != "sticker-🎉" || tags[2] != "work" {
		t.Errorf("tags = %v", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	body := "# H1 Title\ntext"
	title := deriveTitle(fm, body)
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestCountWords(t *testing.T) {
	if n := countWords("- [ ] buy milk\n---\n* call 2 people"); n != 5 {
		t.Errorf("words = %d, want 5", n)
	}
}
