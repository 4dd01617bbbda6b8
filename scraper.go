package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const feedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// sentinelNoArticle is the reserved identifier meaning "no article".
const sentinelNoArticle = "000"

// tracking and presentation attributes stripped from fetched article HTML
var droppedAttributes = map[string]struct{}{
	"class":              {},
	"data-cl-params":     {},
	"data-ual-view-type": {},
	"data-ual":           {},
	"srcset":             {},
	"type":               {},
	"alt":                {},
}

// FeedScraper fetches the news feed and individual article pages.
type FeedScraper struct {
	client *http.Client
}

// NewFeedScraper creates a scraper with a browser user agent and timeout.
func NewFeedScraper() *FeedScraper {
	return &FeedScraper{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// ScrapeFeed fetches the feed page and extracts article entries matching the
// CSS selector. Titles are left empty; they are filled in when each article
// is fetched.
func (s *FeedScraper) ScrapeFeed(ctx context.Context, feedURL, selector string) ([]Article, error) {
	if selector == "" {
		log.Printf("Warning: no feed selector configured, returning no articles")
		return nil, nil
	}

	doc, err := s.fetchDocument(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching news feed %s: %w", feedURL, err)
	}

	var articles []Article
	index := 0
	doc.Find(selector).Each(func(_ int, item *goquery.Selection) {
		item.Find("a").Each(func(_ int, link *goquery.Selection) {
			index++
			href, ok := link.Attr("href")
			if !ok || href == "" {
				return
			}

			parts := strings.Split(href, "/")
			rawID := parts[len(parts)-1]

			src, ok := link.Find("img").First().Attr("src")
			if !ok || src == "" {
				return
			}
			thumbnail := strings.SplitN(src, "?", 2)[0]

			articles = append(articles, Article{
				SequenceID: index,
				RawID:      rawID,
				URL:        href,
				Thumbnail:  thumbnail,
			})
		})
	})

	log.Printf("Extracted %d articles from feed", len(articles))
	return articles, nil
}

// FetchArticle fetches one article page, extracts its title and a sanitized
// HTML fragment. It returns empty strings when the page has no article
// element.
func (s *FeedScraper) FetchArticle(ctx context.Context, articleURL string) (string, string, error) {
	doc, err := s.fetchDocument(ctx, articleURL)
	if err != nil {
		return "", "", fmt.Errorf("fetching article %s: %w", articleURL, err)
	}
	return sanitizeArticle(doc)
}

func (s *FeedScraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// sanitizeArticle extracts the article element from a page, reduces it to the
// heading plus body content, and strips markup that confuses downstream
// conversion: tracking attributes, comments, and anchor tags wrapping images.
func sanitizeArticle(doc *goquery.Document) (string, string, error) {
	article := doc.Find("article").First()
	if article.Length() == 0 {
		return "", "", nil
	}

	titleSel := article.Find("h1").First()
	title := strings.TrimSpace(titleSel.Text())

	root := &html.Node{Type: html.ElementNode, Data: "article", DataAtom: atom.Article}

	body := article.Find("div.article_body").First()
	if body.Length() > 0 && strings.TrimSpace(body.Text()) != "" {
		if titleSel.Length() > 0 {
			root.AppendChild(detach(titleSel.Get(0)))
		}
		root.AppendChild(detach(body.Get(0)))
	} else {
		// No recognizable body; keep the article's children as-is.
		node := article.Get(0)
		for child := node.FirstChild; child != nil; {
			next := child.NextSibling
			root.AppendChild(detach(child))
			child = next
		}
	}

	stripAttributes(root)
	removeComments(root)
	unwrapImageLinks(root)

	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return "", "", fmt.Errorf("rendering sanitized article: %w", err)
	}
	return title, sb.String(), nil
}

func detach(n *html.Node) *html.Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return n
}

func stripAttributes(root *html.Node) {
	walkNodes(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		kept := n.Attr[:0]
		for _, attr := range n.Attr {
			if _, drop := droppedAttributes[strings.ToLower(attr.Key)]; !drop {
				kept = append(kept, attr)
			}
		}
		n.Attr = kept
	})
}

func removeComments(root *html.Node) {
	var comments []*html.Node
	walkNodes(root, func(n *html.Node) {
		if n.Type == html.CommentNode {
			comments = append(comments, n)
		}
	})
	for _, c := range comments {
		c.Parent.RemoveChild(c)
	}
}

// unwrapImageLinks turns <a> tags that contain an <img> into <div> tags so
// the image survives markdown conversion without a dead link around it.
func unwrapImageLinks(root *html.Node) {
	walkNodes(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && containsImage(n) {
			n.Data = "div"
			n.DataAtom = atom.Div
			n.Attr = nil
		}
	})
}

func containsImage(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == atom.Img {
			return true
		}
		if containsImage(child) {
			return true
		}
	}
	return false
}

func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkNodes(child, fn)
	}
}
