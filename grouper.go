package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

//go:embed config/group-articles-prompt.md
var groupArticlesPrompt string

// Grouper clusters a scrape batch into article groups using the AI service,
// degrading to singleton groups when the service is unavailable.
type Grouper struct {
	ai *AIClient
}

// NewGrouper creates a grouper backed by the given AI client. A nil client
// always takes the fallback path.
func NewGrouper(ai *AIClient) *Grouper {
	return &Grouper{ai: ai}
}

// groupRequestArticle is the article shape sent to the grouping service. The
// article URL is deliberately withheld.
type groupRequestArticle struct {
	SequenceID int    `json:"id"`
	RawID      string `json:"raw_id"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail"`
}

// GroupArticles clusters the scrape batch at batchPath, writes the clusters
// into the groups stage, then remaps sequence ids back to raw ids in the
// written file. It returns the path of the remapped groups file. Grouping
// never fails the pipeline on AI errors; it degrades to singleton groups.
func (g *Grouper) GroupArticles(ctx context.Context, batchPath string, store *StageStore) (string, error) {
	data, err := os.ReadFile(batchPath)
	if err != nil {
		return "", fmt.Errorf("reading scrape batch %s: %w", batchPath, err)
	}

	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return "", fmt.Errorf("parsing scrape batch %s: %w", batchPath, err)
	}

	clusters := g.cluster(ctx, articles)

	clusterData, err := json.MarshalIndent(clusters, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding article groups: %w", err)
	}

	name := fmt.Sprintf("article_groups_%s.json", time.Now().Format("20060102_150405"))
	groupsPath, err := store.WriteStage(StageGroups, name, clusterData)
	if err != nil {
		return "", err
	}

	if err := RemapGroupIDs(batchPath, groupsPath); err != nil {
		return "", err
	}

	log.Printf("✓ Saved %d article groups to %s", len(clusters), groupsPath)
	return groupsPath, nil
}

// cluster asks the AI service to group the batch, falling back to singleton
// groups on any call or parse failure.
func (g *Grouper) cluster(ctx context.Context, articles []Article) []groupCluster {
	if g.ai == nil {
		log.Printf("AI grouping not available, using fallback grouping")
		return fallbackClusters(articles)
	}

	request := make([]groupRequestArticle, 0, len(articles))
	for _, a := range articles {
		request = append(request, groupRequestArticle{
			SequenceID: a.SequenceID,
			RawID:      a.RawID,
			Title:      a.Title,
			Thumbnail:  a.Thumbnail,
		})
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		log.Printf("✗ Encoding grouping request: %v, using fallback grouping", err)
		return fallbackClusters(articles)
	}

	response, err := g.ai.Chat(ctx, groupArticlesPrompt+string(requestJSON))
	if err != nil {
		log.Printf("✗ AI grouping failed: %v, using fallback grouping", err)
		return fallbackClusters(articles)
	}

	var clusters []groupCluster
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &clusters); err != nil {
		log.Printf("✗ Parsing grouping response: %v, using fallback grouping", err)
		return fallbackClusters(articles)
	}
	if len(clusters) == 0 {
		log.Printf("✗ Empty grouping response, using fallback grouping")
		return fallbackClusters(articles)
	}

	return clusters
}

// fallbackClusters puts every article in its own group, preserving its
// original title. Thumbnails are restored by the remap pass, which picks each
// group's first member.
func fallbackClusters(articles []Article) []groupCluster {
	clusters := make([]groupCluster, 0, len(articles))
	for _, a := range articles {
		clusters = append(clusters, groupCluster{
			Title:     a.Title,
			ID:        []int{a.SequenceID},
			Thumbnail: []string{},
		})
	}
	return clusters
}

// RemapGroupIDs rewrites the groups file in place, converting each cluster's
// sequence ids to raw ids using the scrape batch as the lookup table, and
// populating each group's thumbnail from its first member. Sequence ids are
// meaningless outside their scrape batch, so this must happen exactly once,
// before the batch file is discarded.
func RemapGroupIDs(batchPath, groupsPath string) error {
	batchData, err := os.ReadFile(batchPath)
	if err != nil {
		return fmt.Errorf("reading scrape batch %s: %w", batchPath, err)
	}
	var articles []Article
	if err := json.Unmarshal(batchData, &articles); err != nil {
		return fmt.Errorf("parsing scrape batch %s: %w", batchPath, err)
	}

	groupsData, err := os.ReadFile(groupsPath)
	if err != nil {
		return fmt.Errorf("reading groups file %s: %w", groupsPath, err)
	}
	var clusters []groupCluster
	if err := json.Unmarshal(groupsData, &clusters); err != nil {
		return fmt.Errorf("parsing groups file %s: %w", groupsPath, err)
	}

	rawIDs := make(map[int]string, len(articles))
	thumbnails := make(map[int]string, len(articles))
	for _, a := range articles {
		rawIDs[a.SequenceID] = a.RawID
		thumbnails[a.SequenceID] = a.Thumbnail
	}

	groups := make([]ArticleGroup, 0, len(clusters))
	for _, cluster := range clusters {
		group := ArticleGroup{Title: cluster.Title}
		if len(cluster.ID) > 0 {
			group.Thumbnail = thumbnails[cluster.ID[0]]
		}
		for _, seq := range cluster.ID {
			rawID, ok := rawIDs[seq]
			if !ok {
				log.Printf("Warning: sequence id %d not in scrape batch, keeping as-is", seq)
				rawID = strconv.Itoa(seq)
			}
			group.MemberIDs = append(group.MemberIDs, rawID)
		}
		groups = append(groups, group)
	}

	remapped, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding remapped groups: %w", err)
	}
	if err := os.WriteFile(groupsPath, remapped, 0644); err != nil {
		return fmt.Errorf("writing remapped groups %s: %w", groupsPath, err)
	}
	return nil
}
