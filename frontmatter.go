package main

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	createdAtLayout      = "2006-01-02 15:04:05"
)

// Frontmatter is the metadata header attached to every Markdown artifact from
// translation onward. The `use` field renders as a lowercase literal, which
// the publish selector depends on.
type Frontmatter struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Thumbnail   string `yaml:"thumbnail"`
	Description string `yaml:"description"`
	Use         bool   `yaml:"use"`
	CreatedAt   string `yaml:"created_at"`
}

// ParseFrontmatter splits a document into its parsed frontmatter block and
// body. Only a leading ----delimited block is considered; nothing in the body
// can masquerade as metadata.
func ParseFrontmatter(content string) (*Frontmatter, string, error) {
	if !strings.HasPrefix(content, frontmatterDelimiter+"\n") {
		return nil, "", fmt.Errorf("document has no frontmatter block")
	}

	rest := content[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated frontmatter block")
	}

	block := rest[:end]
	body := rest[end+1+len(frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return &fm, body, nil
}

// RenderFrontmatter serializes the frontmatter block followed by the body.
func RenderFrontmatter(fm *Frontmatter, body string) (string, error) {
	block, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	return fmt.Sprintf("%s\n%s%s\n\n%s", frontmatterDelimiter, block, frontmatterDelimiter, body), nil
}

// CreatedTime parses the created_at date. The second return value reports
// whether a usable date was present; documents without one make no age claim.
func (fm *Frontmatter) CreatedTime() (time.Time, bool) {
	s := strings.TrimSpace(fm.CreatedAt)
	if t, err := time.Parse(createdAtLayout, s); err == nil {
		return t, true
	}
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
