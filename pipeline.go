package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Pipeline wires the stages together. Execution is fully sequential: no
// stage runs concurrently with another, and no two items within a stage are
// processed concurrently.
type Pipeline struct {
	cfg        Config
	store      *StageStore
	ledger     *Ledger
	scraper    *FeedScraper
	grouper    *Grouper
	translator *Translator
	images     *ImageProcessor
	lock       *flock.Flock

	SkipReview bool
}

// NewPipeline builds a pipeline from validated configuration.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ai, err := NewAIClient(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating AI client: %w", err)
	}

	return &Pipeline{
		cfg:        cfg,
		store:      NewStageStore(cfg.DataDir),
		ledger:     NewLedger(cfg.LedgerPath),
		scraper:    NewFeedScraper(),
		grouper:    NewGrouper(ai),
		translator: NewTranslator(ai),
		images:     NewImageProcessor(),
		lock:       flock.New(filepath.Join(cfg.DataDir, ".pipeline.lock")),
	}, nil
}

// Run executes the full pipeline. A lock file guards against two pipeline
// instances writing the same stage directories.
func (p *Pipeline) Run(ctx context.Context) error {
	unlock, err := p.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	log.Printf("Starting full news processing pipeline")

	batchPath, err := p.Scrape(ctx)
	if err != nil {
		return err
	}
	if batchPath == "" {
		log.Printf("No new articles found, exiting pipeline")
		return nil
	}

	groupsPath, err := p.Group(ctx, batchPath)
	if err != nil {
		return err
	}

	if err := p.Merge(groupsPath); err != nil {
		return err
	}
	if err := p.Convert(); err != nil {
		return err
	}
	if err := p.Translate(ctx); err != nil {
		return err
	}
	if err := p.Images(ctx); err != nil {
		return err
	}

	if !p.SkipReview {
		if err := LaunchReview(ctx, p.cfg.ReviewAppPath); err != nil {
			return err
		}
	}

	if err := p.Publish(); err != nil {
		return err
	}
	if err := p.Deploy(ctx); err != nil {
		return err
	}

	log.Printf("✓ Full pipeline completed successfully")
	return nil
}

func (p *Pipeline) acquireLock() (func(), error) {
	// The lock file lives inside the data directory; make sure it exists.
	if err := os.MkdirAll(p.cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	ok, err := p.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring pipeline lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another pipeline instance is already running")
	}
	return func() { _ = p.lock.Unlock() }, nil
}

// Scrape fetches the feed, filters out articles already in the ledger,
// fetches each new article into the raw HTML stage, and writes the scrape
// batch file. An empty path means nothing new was found.
func (p *Pipeline) Scrape(ctx context.Context) (string, error) {
	log.Printf("Step 1: Scraping news feed")

	processed, err := p.ledger.AllIDs()
	if err != nil {
		return "", err
	}

	articles, err := p.scraper.ScrapeFeed(ctx, p.cfg.FeedURL, p.cfg.FeedSelector)
	if err != nil {
		return "", err
	}

	var fresh []Article
	for _, article := range articles {
		if _, seen := processed[article.RawID]; !seen {
			fresh = append(fresh, article)
		}
	}
	log.Printf("Found %d articles, %d are new", len(articles), len(fresh))
	if len(fresh) == 0 {
		return "", nil
	}

	var batch []Article
	for _, article := range fresh {
		if article.RawID == sentinelNoArticle {
			debugLog("Skipping article with sentinel id %q", article.RawID)
			continue
		}

		// Recorded before fetching, so a failed fetch is not retried
		// endlessly on later runs. A ledger write failure aborts the run.
		if err := p.ledger.Record(article.RawID); err != nil {
			return "", err
		}

		title, body, err := p.scraper.FetchArticle(ctx, article.URL)
		if err != nil || body == "" {
			log.Printf("Warning: failed to fetch article %s: %v", article.RawID, err)
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}

		if _, err := p.store.WriteStage(StageRawHTML, article.RawID+".html", []byte(body)); err != nil {
			return "", err
		}

		article.Title = title
		batch = append(batch, article)
	}

	if len(batch) == 0 {
		return "", nil
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding scrape batch: %w", err)
	}

	name := fmt.Sprintf("raw_html_data_%s.json", time.Now().Format("20060102_150405"))
	batchPath, err := p.store.WriteStage(StageGroups, name, data)
	if err != nil {
		return "", err
	}

	log.Printf("✓ Saved %d articles to %s", len(batch), batchPath)
	return batchPath, nil
}

// Group clusters the scrape batch and remaps ids.
func (p *Pipeline) Group(ctx context.Context, batchPath string) (string, error) {
	log.Printf("Step 2: Grouping articles")
	return p.grouper.GroupArticles(ctx, batchPath, p.store)
}

// Merge combines grouped articles into merged-stage artifacts.
func (p *Pipeline) Merge(groupsPath string) error {
	log.Printf("Step 3: Merging articles")
	return MergeGroups(groupsPath, p.store)
}

// Convert turns merged HTML into Markdown.
func (p *Pipeline) Convert() error {
	log.Printf("Step 4: Converting HTML to markdown")
	return ConvertHTMLToMarkdown(p.store)
}

// Translate runs the translation stage.
func (p *Pipeline) Translate(ctx context.Context) error {
	log.Printf("Step 5: Translating markdown")
	_, err := p.translator.TranslateAll(ctx, p.store)
	return err
}

// Images localizes every image referenced by translated documents.
func (p *Pipeline) Images(ctx context.Context) error {
	log.Printf("Step 6: Downloading images")
	return p.images.LocalizeAll(ctx, p.store)
}

// Publish copies release-flagged articles into the site tree.
func (p *Pipeline) Publish() error {
	log.Printf("Step 7: Publishing to site")
	return PublishArticles(p.store.Dir(StageImages), p.cfg.SiteDir)
}

// Deploy builds and pushes the site. Failures here leave all upstream
// artifacts valid for a retried deploy.
func (p *Pipeline) Deploy(ctx context.Context) error {
	log.Printf("Step 8: Deploying site")
	if err := BuildSite(ctx, p.cfg); err != nil {
		return fmt.Errorf("building site: %w", err)
	}
	if err := PushSite(ctx, p.cfg); err != nil {
		return fmt.Errorf("pushing site: %w", err)
	}
	return nil
}

// Retire removes published articles past the retention window.
func (p *Pipeline) Retire() error {
	log.Printf("Retiring articles older than %d days", int(retentionWindow.Hours()/24))
	return CleanupOldArticles(p.cfg.SiteDir)
}

// Clean deletes every stage directory.
func (p *Pipeline) Clean() error {
	log.Printf("Cleaning data directories")
	return p.store.Clean()
}
