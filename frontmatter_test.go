package main

import (
	"strings"
	"testing"
	"time"
)

func TestParseFrontmatterRoundtrip(t *testing.T) {
	fm := &Frontmatter{
		Title:       "Neue Bahnstrecke eröffnet",
		Slug:        "neue-bahnstrecke-eroeffnet",
		Thumbnail:   "/images/thumbnails/neue-bahnstrecke.webp",
		Description: "Die Strecke verbindet zwei Regionen.",
		Use:         true,
		CreatedAt:   "2026-08-30 14:22:01",
	}
	body := "# Überschrift\n\nAbsatz eins.\n"

	rendered, err := RenderFrontmatter(fm, body)
	if err != nil {
		t.Fatalf("RenderFrontmatter() error = %v", err)
	}
	if !strings.Contains(rendered, "use: true") {
		t.Errorf("rendered frontmatter missing lowercase use flag:\n%s", rendered)
	}

	parsed, parsedBody, err := ParseFrontmatter(rendered)
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}
	if *parsed != *fm {
		t.Errorf("roundtrip frontmatter = %+v, want %+v", parsed, fm)
	}
	if parsedBody != body {
		t.Errorf("roundtrip body = %q, want %q", parsedBody, body)
	}
}

func TestParseFrontmatterErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "# Just a heading\n\nBody.\n"},
		{"unterminated block", "---\ntitle: Test\n"},
		{"delimiter not at start", "\n---\ntitle: Test\n---\nBody.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseFrontmatter(tt.content); err == nil {
				t.Errorf("ParseFrontmatter(%q) error = nil, want failure", tt.content)
			}
		})
	}
}

func TestParseFrontmatterIgnoresBodyDelimiters(t *testing.T) {
	content := "---\ntitle: Test\nuse: false\n---\n\nText.\n\n---\n\nMore text after a rule.\n"

	fm, body, err := ParseFrontmatter(content)
	if err != nil {
		t.Fatalf("ParseFrontmatter() error = %v", err)
	}
	if fm.Title != "Test" {
		t.Errorf("Title = %q, want %q", fm.Title, "Test")
	}
	if !strings.Contains(body, "More text after a rule.") {
		t.Errorf("body lost content after horizontal rule: %q", body)
	}
}

func TestCreatedTime(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		want      time.Time
		ok        bool
	}{
		{
			name:      "full timestamp",
			createdAt: "2026-08-30 14:22:01",
			want:      time.Date(2026, 8, 30, 14, 22, 1, 0, time.UTC),
			ok:        true,
		},
		{
			name:      "date only prefix",
			createdAt: "2026-08-30T14:22:01Z",
			want:      time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
			ok:        true,
		},
		{
			name:      "empty",
			createdAt: "",
			ok:        false,
		},
		{
			name:      "garbage",
			createdAt: "yesterday",
			ok:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &Frontmatter{CreatedAt: tt.createdAt}
			got, ok := fm.CreatedTime()
			if ok != tt.ok {
				t.Fatalf("CreatedTime() ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("CreatedTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
