package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// ConvertHTMLToMarkdown converts every merged HTML artifact into a Markdown
// file with the same name stem in the markdown stage.
func ConvertHTMLToMarkdown(store *StageStore) error {
	paths, err := store.ReadStage(StageMerged, ".html")
	if err != nil {
		return err
	}

	converter := md.NewConverter("", true, nil)

	converted := 0
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		markdown, err := converter.ConvertString(string(content))
		if err != nil {
			return fmt.Errorf("converting %s to markdown: %w", path, err)
		}

		stem := strings.TrimSuffix(filepath.Base(path), ".html")
		if _, err := store.WriteStage(StageMarkdown, stem+".md", []byte(markdown)); err != nil {
			return err
		}
		converted++
		debugLog("Converted %s to %s.md", filepath.Base(path), stem)
	}

	log.Printf("✓ Converted %d files to markdown", converted)
	return nil
}
