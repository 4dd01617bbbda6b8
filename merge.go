package main

import (
	"encoding/json"
	"fmt"
	stdhtml "html"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html/atom"
)

var headingAtoms = map[int]atom.Atom{
	1: atom.H1, 2: atom.H2, 3: atom.H3, 4: atom.H4, 5: atom.H5, 6: atom.H6,
}

// MergeGroups consumes the remapped groups file and produces one merged-stage
// artifact per group. Singleton groups are moved unchanged; larger groups are
// merged into a single document and their originals deleted afterwards.
// Every produced artifact gets the group thumbnail prepended as its first
// line.
func MergeGroups(groupsPath string, store *StageStore) error {
	data, err := os.ReadFile(groupsPath)
	if err != nil {
		return fmt.Errorf("reading groups file %s: %w", groupsPath, err)
	}

	var groups []ArticleGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return fmt.Errorf("parsing groups file %s: %w", groupsPath, err)
	}

	for _, group := range groups {
		outPath, err := mergeGroup(group, store)
		if err != nil {
			return err
		}
		if outPath == "" {
			continue
		}
		if err := prependThumbnail(outPath, group.Thumbnail); err != nil {
			return err
		}
	}
	return nil
}

// mergeGroup produces the merged artifact for one group, returning its path.
// An empty path means the group produced no output (all members missing).
func mergeGroup(group ArticleGroup, store *StageStore) (string, error) {
	if len(group.MemberIDs) == 1 {
		return moveSingleton(group.MemberIDs[0], store)
	}
	return mergeMembers(group, store)
}

// moveSingleton relocates a single-member group's file into the merged stage
// without any content transform.
func moveSingleton(rawID string, store *StageStore) (string, error) {
	src := filepath.Join(store.Dir(StageRawHTML), rawID+".html")
	if _, err := os.Stat(src); err != nil {
		log.Printf("Warning: file %s not found, skipping", src)
		return "", nil
	}

	dir := store.Dir(StageMerged)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating merged directory: %w", err)
	}

	dest := filepath.Join(dir, rawID+".html")
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", src, dest, err)
	}
	log.Printf("Moved single file %s to %s", src, dest)
	return dest, nil
}

// mergeMembers concatenates the group members' bodies in member order, each
// with its headings demoted one level, under a single article root. The
// originals are deleted only after the merged file is written.
func mergeMembers(group ArticleGroup, store *StageStore) (string, error) {
	var memberPaths []string
	var parts []string

	for _, rawID := range group.MemberIDs {
		path := filepath.Join(store.Dir(StageRawHTML), rawID+".html")
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: file %s not found, skipping", path)
			continue
		}

		demoted, err := demoteHeadings(string(content))
		if err != nil {
			return "", fmt.Errorf("demoting headings in %s: %w", path, err)
		}
		parts = append(parts, demoted)
		memberPaths = append(memberPaths, path)
	}

	if len(parts) == 0 {
		log.Printf("Warning: group %q has no readable members, producing no output", group.Title)
		return "", nil
	}

	final := fmt.Sprintf("<article>\n<h1>%s</h1>\n%s\n</article>\n",
		stdhtml.EscapeString(group.Title), strings.Join(parts, "\n"))

	name := fmt.Sprintf("merged-%s.html", uuid.NewString())
	outPath, err := store.WriteStage(StageMerged, name, []byte(final))
	if err != nil {
		return "", err
	}

	// Originals go away only now that the merged artifact exists.
	for _, path := range memberPaths {
		if err := os.Remove(path); err != nil {
			log.Printf("Warning: could not delete original %s: %v", path, err)
		} else {
			debugLog("Deleted original file: %s", path)
		}
	}

	log.Printf("✓ Merged %d files into %s", len(memberPaths), outPath)
	return outPath, nil
}

// demoteHeadings shifts every heading in the fragment down exactly one level.
// h6 is the ceiling: headings already there stay put. The selection is
// computed before any renaming, so no heading is demoted twice.
func demoteHeadings(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", err
	}

	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		level := int(node.Data[1] - '0')
		if level < 6 {
			node.Data = fmt.Sprintf("h%d", level+1)
			node.DataAtom = headingAtoms[level+1]
		}
	})

	return doc.Find("body").Html()
}

// prependThumbnail inserts an image tag for the group thumbnail as the first
// line of the artifact body.
func prependThumbnail(path, thumbnail string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	updated := fmt.Sprintf("<img src='%s'>\n%s", thumbnail, content)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
