package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. It is built once at process start and
// passed into each component; nothing reads the environment after LoadConfig.
type Config struct {
	// Feed scraping
	FeedURL      string
	FeedSelector string

	// AI service
	APIKey string

	// Pipeline storage
	DataDir    string
	LedgerPath string

	// Downstream site
	SiteDir    string
	SiteURL    string
	NPMCommand string

	// Content review application (e.g. Obsidian)
	ReviewAppPath string
}

// LoadConfig reads settings from a .env file (if present) and the environment.
func LoadConfig() Config {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	return Config{
		FeedURL:       os.Getenv("FEED_URL"),
		FeedSelector:  getenvDefault("NEWS_FEED_SELECTOR", ".newsFeed_list"),
		APIKey:        os.Getenv("ANTHROPIC_API_KEY"),
		DataDir:       getenvDefault("DATA_DIR", "data"),
		LedgerPath:    getenvDefault("PROCESSED_IDS_FILE", "processed_ids.txt"),
		SiteDir:       os.Getenv("SITE_DIR"),
		SiteURL:       getenvDefault("SITE_URL", "https://news.adayroi.jp"),
		NPMCommand:    getenvDefault("NPM_COMMAND", "npm"),
		ReviewAppPath: os.Getenv("REVIEW_APP_PATH"),
	}
}

// Validate checks required settings. It runs once at startup; a missing value
// here means the pipeline never starts.
func (c Config) Validate() error {
	var missing []string
	if c.FeedURL == "" {
		missing = append(missing, "FEED_URL")
	}
	if c.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
