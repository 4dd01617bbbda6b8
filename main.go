package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	stepName   string
	inputPath  string
	skipReview bool
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "newspipe",
	Short: "Staged news scraping and translation pipeline",
	Long:  `Scrapes a news feed, groups and merges related articles with AI, translates them, localizes images, and publishes release-flagged articles to a static site.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if debugMode {
			SetDebugMode(true)
		}

		cfg := LoadConfig()
		pipeline, err := NewPipeline(cfg)
		if err != nil {
			return err
		}
		pipeline.SkipReview = skipReview

		// A user interrupt aborts the current stage; artifacts already
		// written remain valid and re-runnable.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if stepName == "" {
			return pipeline.Run(ctx)
		}
		return runStep(ctx, pipeline, stepName)
	},
}

func runStep(ctx context.Context, pipeline *Pipeline, step string) error {
	log.Printf("Running specific step: %s", step)

	switch step {
	case "scrape":
		batchPath, err := pipeline.Scrape(ctx)
		if err != nil {
			return err
		}
		if batchPath == "" {
			log.Printf("No new articles found")
		}
		return nil
	case "group":
		if inputPath == "" {
			return fmt.Errorf("--input (scrape batch file) required for group step")
		}
		_, err := pipeline.Group(ctx, inputPath)
		return err
	case "merge":
		if inputPath == "" {
			return fmt.Errorf("--input (groups file) required for merge step")
		}
		return pipeline.Merge(inputPath)
	case "convert":
		return pipeline.Convert()
	case "translate":
		return pipeline.Translate(ctx)
	case "images":
		return pipeline.Images(ctx)
	case "review":
		return LaunchReview(ctx, pipeline.cfg.ReviewAppPath)
	case "publish":
		return pipeline.Publish()
	case "deploy":
		return pipeline.Deploy(ctx)
	case "retire":
		return pipeline.Retire()
	case "clean":
		return pipeline.Clean()
	default:
		return fmt.Errorf("unknown step: %s", step)
	}
}

func init() {
	rootCmd.Flags().StringVar(&stepName, "step", "", "Run a specific pipeline step (scrape|group|merge|convert|translate|images|review|publish|deploy|retire|clean)")
	rootCmd.Flags().StringVar(&inputPath, "input", "", "Input file for specific steps (e.g. groups JSON for merge)")
	rootCmd.Flags().BoolVar(&skipReview, "skip-review", false, "Skip the content review application")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
}
