package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// retentionWindow is the fixed age threshold past which a published article
// and its assets are deleted.
const retentionWindow = 30 * 24 * time.Hour

// CleanupOldArticles deletes every published article whose created_at falls
// outside the retention window, together with its thumbnail and every inline
// image it references. Documents without a parseable date are skipped; no
// assumption is made about their age.
func CleanupOldArticles(siteDir string) error {
	if siteDir == "" {
		return fmt.Errorf("site directory not configured")
	}

	contentDir := filepath.Join(siteDir, "content")
	cutoff := time.Now().Add(-retentionWindow)

	return filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		fm, body, err := ParseFrontmatter(string(raw))
		if err != nil {
			return nil
		}
		created, ok := fm.CreatedTime()
		if !ok {
			return nil
		}

		if created.Before(cutoff) {
			return deletePublishedArticle(siteDir, path, body)
		}
		return nil
	})
}

// deletePublishedArticle removes an expired article's thumbnail, its inline
// images, and finally the markdown file itself. Missing assets are warnings
// (already-freed space is not an error); the markdown is deleted last, so an
// earlier hard failure never strands assets without their owning document.
func deletePublishedArticle(siteDir, mdPath, body string) error {
	contentDir := filepath.Join(siteDir, "content")
	publicDir := filepath.Join(siteDir, "public")

	rel, err := filepath.Rel(contentDir, mdPath)
	if err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(mdPath), ".md")

	thumbnail := filepath.Join(publicDir, filepath.Dir(rel), "images", "thumbnails", stem+".webp")
	if err := removeIfExists(thumbnail); err != nil {
		return err
	}

	for _, image := range extractImageURLs(body) {
		image = strings.TrimPrefix(image, "/")
		if err := removeIfExists(filepath.Join(publicDir, image)); err != nil {
			return err
		}
	}

	if err := os.Remove(mdPath); err != nil {
		return fmt.Errorf("deleting %s: %w", mdPath, err)
	}
	log.Printf("✓ Deleted expired article %s", mdPath)
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err == nil {
		debugLog("Deleted asset: %s", path)
		return nil
	}
	if os.IsNotExist(err) {
		log.Printf("Warning: asset not found: %s", path)
		return nil
	}
	return fmt.Errorf("deleting %s: %w", path, err)
}
