package main

// Article represents one entry scraped from the news feed. SequenceID is only
// meaningful within a single scrape batch; RawID is the durable identity used
// for deduplication.
type Article struct {
	SequenceID int    `json:"id"`
	RawID      string `json:"raw_id"`
	URL        string `json:"url"`
	Thumbnail  string `json:"thumbnail"`
	Title      string `json:"title"`
}

// groupCluster is a cluster as returned by the grouping service, keyed by
// scrape-local sequence ids. The thumbnail field is always empty on this call.
type groupCluster struct {
	Title     string   `json:"title"`
	ID        []int    `json:"id"`
	Thumbnail []string `json:"thumbnail"`
}

// ArticleGroup is a cluster after its sequence ids have been remapped to raw
// ids and its thumbnail populated from the first member.
type ArticleGroup struct {
	Title     string   `json:"title"`
	MemberIDs []string `json:"id"`
	Thumbnail string   `json:"thumbnail"`
}

// TranslationResult is the structured response of the translation service.
type TranslationResult struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Use         bool   `json:"use"`
	Content     string `json:"content"`
}

// ProcessingStatus represents the outcome status of processing an item
type ProcessingStatus string

const (
	StatusSuccess ProcessingStatus = "success"
	StatusSkipped ProcessingStatus = "skipped"
	StatusError   ProcessingStatus = "error"
)

// ProcessingResult tracks the outcome of processing each item in a batch stage
type ProcessingResult struct {
	Name     string
	Status   ProcessingStatus
	Filename string
	Error    error
}
