package main

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Conservative limits for git and cross-platform filesystems.
const (
	maxDeployPathLength = 250
	maxDeployNameLength = 200
)

// BuildSite runs the site's npm build.
func BuildSite(ctx context.Context, cfg Config) error {
	if cfg.SiteDir == "" {
		return fmt.Errorf("site directory not configured")
	}
	if _, err := os.Stat(cfg.SiteDir); err != nil {
		return fmt.Errorf("site directory does not exist: %s", cfg.SiteDir)
	}
	return runStreaming(ctx, cfg.SiteDir, cfg.NPMCommand, "run", "build")
}

// PushSite commits and pushes the site repository with a timestamped message.
// Files with names too long for git are removed first.
func PushSite(ctx context.Context, cfg Config) error {
	if cfg.SiteDir == "" {
		return fmt.Errorf("site directory not configured")
	}
	if _, err := os.Stat(cfg.SiteDir); err != nil {
		return fmt.Errorf("site directory does not exist: %s", cfg.SiteDir)
	}

	cleanupLongFilenames(cfg.SiteDir)

	message := fmt.Sprintf("Update blog %s", time.Now().Format("2006-01-02 15:04:05"))
	if err := runStreaming(ctx, cfg.SiteDir, "git", "add", "."); err != nil {
		return err
	}
	if err := runStreaming(ctx, cfg.SiteDir, "git", "commit", "-m", message); err != nil {
		return err
	}
	return runStreaming(ctx, cfg.SiteDir, "git", "push")
}

// LaunchReview starts the content review application and blocks until it
// exits. A non-zero exit aborts the sequence.
func LaunchReview(ctx context.Context, appPath string) error {
	if appPath == "" {
		log.Printf("No review application configured, skipping review")
		return nil
	}

	log.Printf("Launching review application: %s", appPath)
	cmd := exec.CommandContext(ctx, appPath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("review application failed: %w", err)
	}
	log.Printf("✓ Review application closed")
	return nil
}

// cleanupLongFilenames removes files whose path or name would break git or
// the filesystem. Removal failures are logged, not fatal.
func cleanupLongFilenames(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if len(path) > maxDeployPathLength || len(name) > maxDeployNameLength {
			if err := os.Remove(path); err != nil {
				log.Printf("Warning: could not remove long-named file %.50s...: %v", name, err)
			} else {
				log.Printf("Removed file with problematic name: %.50s...", name)
			}
		}
		return nil
	})
}

// runStreaming executes a command in dir, streaming its combined output
// through the logger line by line.
func runStreaming(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		log.Printf("%s", scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s %v: %w", name, args, err)
	}
	return nil
}
