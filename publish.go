package main

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PublishArticles copies every release-flagged article under inputRoot into
// the site tree: the markdown into content/ (relative path preserved), its
// thumbnail and inline images into public/. Files without the release flag
// are left untouched.
func PublishArticles(inputRoot, siteDir string) error {
	if siteDir == "" {
		return fmt.Errorf("site directory not configured")
	}

	contentDir := filepath.Join(siteDir, "content")
	publicDir := filepath.Join(siteDir, "public")

	total, copied := 0, 0
	err := filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		total++

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		// Only the frontmatter block decides release, never body text.
		fm, body, err := ParseFrontmatter(string(raw))
		if err != nil || !fm.Use {
			return nil
		}

		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			return err
		}

		target := filepath.Join(contentDir, rel)
		log.Printf("Copying %s to %s", path, target)
		if err := copyFile(path, target); err != nil {
			return err
		}
		copied++

		publishThumbnail(path, rel, publicDir)
		publishInlineImages(body, filepath.Dir(path), inputRoot, publicDir, rel)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("✓ Publish complete: %d of %d files copied to %s", copied, total, siteDir)
	return nil
}

// publishThumbnail copies the companion thumbnail, if present, into the
// public thumbnails tree. A missing thumbnail is a warning, not a failure.
func publishThumbnail(mdPath, rel, publicDir string) {
	stem := strings.TrimSuffix(filepath.Base(mdPath), ".md")
	src := filepath.Join(filepath.Dir(mdPath), "images", stem+".webp")
	if _, err := os.Stat(src); err != nil {
		log.Printf("Warning: thumbnail not found: %s", src)
		return
	}

	dest := filepath.Join(publicDir, filepath.Dir(rel), "images", "thumbnails", stem+".webp")
	if err := copyFile(src, dest); err != nil {
		log.Printf("Warning: copying thumbnail %s: %v", src, err)
	}
}

// publishInlineImages copies every image the document references. Each is
// resolved against the document's own directory first, then against the
// input root; unresolved images are logged.
func publishInlineImages(body, docDir, inputRoot, publicDir, relMd string) {
	for _, image := range extractImageURLs(body) {
		image = strings.TrimPrefix(image, "/")

		src := filepath.Join(docDir, image)
		if _, err := os.Stat(src); err == nil {
			dest := filepath.Join(publicDir, filepath.Dir(relMd), image)
			if err := copyFile(src, dest); err != nil {
				log.Printf("Warning: copying image %s: %v", src, err)
			}
			continue
		}

		altSrc := filepath.Join(inputRoot, image)
		if _, err := os.Stat(altSrc); err == nil {
			dest := filepath.Join(publicDir, image)
			if err := copyFile(altSrc, dest); err != nil {
				log.Printf("Warning: copying image %s: %v", altSrc, err)
			}
			continue
		}

		log.Printf("Warning: image not found: %s (tried %s and %s)", image, src, altSrc)
	}
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	return out.Close()
}
