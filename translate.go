package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

//go:embed config/translate-article-prompt.md
var translateArticlePrompt string

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugHyphenRuns   = regexp.MustCompile(`-+`)
)

// Translator turns converted Markdown articles into translated articles with
// a frontmatter header.
type Translator struct {
	ai *AIClient
}

// NewTranslator creates a translator backed by the given AI client.
func NewTranslator(ai *AIClient) *Translator {
	return &Translator{ai: ai}
}

// TranslateAll translates every Markdown file in the markdown stage into the
// translated stage. Per-file failures are recorded and skipped; the batch
// continues.
func (t *Translator) TranslateAll(ctx context.Context, store *StageStore) ([]ProcessingResult, error) {
	paths, err := store.ReadStage(StageMarkdown, ".md")
	if err != nil {
		return nil, err
	}

	results := make([]ProcessingResult, 0, len(paths))
	for i, path := range paths {
		log.Printf("[%d/%d] Translating: %s", i+1, len(paths), filepath.Base(path))
		result := t.translateFile(ctx, path, store)
		results = append(results, result)

		if result.Status == StatusSuccess {
			log.Printf("✓ Translated to: %s", result.Filename)
		} else {
			log.Printf("✗ Failed %s: %v", result.Name, result.Error)
		}

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

func (t *Translator) translateFile(ctx context.Context, path string, store *StageStore) ProcessingResult {
	name := filepath.Base(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return ProcessingResult{Name: name, Status: StatusError, Error: fmt.Errorf("reading %s: %w", path, err)}
	}

	// The thumbnail line is stripped before sending and reattached via
	// frontmatter afterwards.
	body, thumbnail := splitThumbnailLine(string(content))

	response, err := t.ai.Chat(ctx, translateArticlePrompt+body)
	if err != nil {
		return ProcessingResult{Name: name, Status: StatusError, Error: fmt.Errorf("translating: %w", err)}
	}

	var result TranslationResult
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &result); err != nil {
		return ProcessingResult{Name: name, Status: StatusError, Error: fmt.Errorf("parsing translation response: %w", err)}
	}
	if result.Title == "" || result.Slug == "" || result.Description == "" || result.Content == "" {
		return ProcessingResult{Name: name, Status: StatusError, Error: fmt.Errorf("missing required fields in translation")}
	}

	slug := sanitizeSlug(result.Slug)
	fm := &Frontmatter{
		Title:       result.Title,
		Slug:        slug,
		Thumbnail:   thumbnail,
		Description: result.Description,
		Use:         result.Use,
		// Set once, at translation time, and never mutated later.
		CreatedAt: time.Now().Format(createdAtLayout),
	}

	doc, err := RenderFrontmatter(fm, result.Content)
	if err != nil {
		return ProcessingResult{Name: name, Status: StatusError, Error: err}
	}

	outPath, err := store.WriteStage(StageTranslated, uniqueSlugName(store, slug), []byte(doc))
	if err != nil {
		return ProcessingResult{Name: name, Status: StatusError, Error: err}
	}
	return ProcessingResult{Name: name, Status: StatusSuccess, Filename: outPath}
}

// splitThumbnailLine removes a leading ![](url) line, returning the remaining
// body and the extracted thumbnail URL.
func splitThumbnailLine(content string) (string, string) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "![](") {
		return content, ""
	}

	thumbnail := strings.TrimPrefix(lines[0], "![](")
	thumbnail = strings.TrimSuffix(strings.TrimSpace(thumbnail), ")")
	return strings.Join(lines[1:], "\n"), thumbnail
}

// sanitizeSlug reduces a slug to a URL-safe lowercase hyphenated token usable
// as a filename stem.
func sanitizeSlug(s string) string {
	slug := strings.ToLower(s)
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	// Limit length to avoid filesystem issues
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}

	if slug == "" {
		return "article"
	}
	return slug
}

// uniqueSlugName returns a file name for the slug that does not collide with
// an existing translated artifact.
func uniqueSlugName(store *StageStore, slug string) string {
	name := slug + ".md"
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(store.Dir(StageTranslated), name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s-%d.md", slug, i)
	}
}
