package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stage names a pipeline mailbox directory. Each stage directory is written
// by exactly one stage and consumed by exactly one later stage.
type Stage string

const (
	StageRawHTML    Stage = "1.raw_html"
	StageGroups     Stage = "2.groups"
	StageMerged     Stage = "3.merged"
	StageMarkdown   Stage = "4.markdown"
	StageTranslated Stage = "5.translated"
	StageImages     Stage = "6.images"
)

// StageStore mediates all artifact reads and writes between pipeline stages,
// so stage logic never assembles paths on its own.
type StageStore struct {
	root string
}

// NewStageStore creates a store rooted at the given data directory.
func NewStageStore(root string) *StageStore {
	return &StageStore{root: root}
}

// Dir returns the directory backing a stage.
func (s *StageStore) Dir(stage Stage) string {
	return filepath.Join(s.root, string(stage))
}

// ImagesDir returns the directory holding localized image files within the
// images stage.
func (s *StageStore) ImagesDir() string {
	return filepath.Join(s.Dir(StageImages), "images")
}

// WriteStage writes an artifact into a stage directory, creating the
// directory if needed, and returns the artifact path. The write is the last
// step of every stage's logic, which is what makes stages safe to re-run.
func (s *StageStore) WriteStage(stage Stage, name string, data []byte) (string, error) {
	dir := s.Dir(stage)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating stage directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing stage artifact %s: %w", path, err)
	}
	return path, nil
}

// ReadStage lists the artifact paths in a stage directory, optionally
// filtered by extension (e.g. ".html"). A missing directory yields an empty
// list so downstream stages can run against a partially executed pipeline.
func (s *StageStore) ReadStage(stage Stage, ext string) ([]string, error) {
	dir := s.Dir(stage)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading stage directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext != "" && !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Clean removes the entire data directory tree.
func (s *StageStore) Clean() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("cleaning data directory %s: %w", s.root, err)
	}
	return nil
}
