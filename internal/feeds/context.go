package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/podforge/podforge/podcast"
)

const (
	// DefaultMaxNewsItems caps how many feed items go into one context.
	DefaultMaxNewsItems = 8

	// per-article excerpt cap keeps the assembled context well under the
	// script service's input limit
	maxExcerptLength = 2000
)

// NewsBuilder assembles the annotated news context string for topic-based
// generation: feed items fetched through the proxy, enriched with readable
// article text.
type NewsBuilder struct {
	proxyBase string
	client    HTTPClient
	parser    *gofeed.Parser
	log       *logrus.Logger
}

// NewNewsBuilder creates a news context builder fetching through proxyBase.
func NewNewsBuilder(proxyBase string, client HTTPClient, log *logrus.Logger) *NewsBuilder {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NewsBuilder{
		proxyBase: proxyBase,
		client:    client,
		parser:    gofeed.NewParser(),
		log:       log,
	}
}

// BuildContext fetches the topic's feeds, keeps the newest maxItems entries
// across all of them, and renders one annotated context block. A feed that
// fails to fetch or parse is logged and skipped; the context fails only when
// no feed yields anything.
func (b *NewsBuilder) BuildContext(ctx context.Context, topic podcast.Topic, maxItems int) (string, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxNewsItems
	}

	var items []*gofeed.Item
	for _, feedURL := range topic.RSSURLs {
		feed, err := b.fetchFeed(ctx, feedURL)
		if err != nil {
			b.log.WithError(err).WithField("url", feedURL).Warn("skipping feed")
			continue
		}
		items = append(items, feed.Items...)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no items found in any feed for topic %q", topic.Name)
	}

	// newest first; items without a timestamp sink to the end
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].PublishedParsed, items[j].PublishedParsed
		if pi == nil || pj == nil {
			return pj == nil && pi != nil
		}
		return pi.After(*pj)
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Recent news for the topic %q:\n\n", topic.Name)
	for _, item := range items {
		fmt.Fprintf(&buf, "## %s\n", strings.TrimSpace(item.Title))
		if item.Link != "" {
			fmt.Fprintf(&buf, "Source: %s\n", item.Link)
		}
		if item.PublishedParsed != nil {
			fmt.Fprintf(&buf, "Published: %s\n", item.PublishedParsed.Format("2006-01-02"))
		}
		buf.WriteString("\n")
		buf.WriteString(b.itemExcerpt(ctx, item))
		buf.WriteString("\n\n")
	}
	return buf.String(), nil
}

// fetchFeed retrieves one feed through the proxy and parses it.
func (b *NewsBuilder) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.proxyBase+url.QueryEscape(feedURL), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch feed: status code %d", resp.StatusCode)
	}

	feed, err := b.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// itemExcerpt prefers the full article text, falling back to the feed's own
// description when the page cannot be fetched or extracted.
func (b *NewsBuilder) itemExcerpt(ctx context.Context, item *gofeed.Item) string {
	if item.Link != "" {
		if text, err := b.fetchArticleText(ctx, item.Link); err == nil && text != "" {
			return truncate(text, maxExcerptLength)
		} else if err != nil {
			b.log.WithError(err).WithField("url", item.Link).Debug("article fetch failed, using feed description")
		}
	}
	return truncate(strings.TrimSpace(item.Description), maxExcerptLength)
}

// fetchArticleText downloads an article page and extracts its readable text.
func (b *NewsBuilder) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch article: status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractContent(doc), nil
}

// extractContent extracts the main text content from the HTML document
func extractContent(doc *goquery.Document) string {
	var articleText strings.Builder

	// first try to find article content in common containers
	article := doc.Find("article, .article, .post, .content, main")
	if article.Length() > 0 {
		article.Find("p").Each(func(_ int, s *goquery.Selection) {
			articleText.WriteString(s.Text())
			articleText.WriteString("\n\n")
		})
	} else {
		// fallback to all paragraphs
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			// skip very short paragraphs which are likely not article content
			if len(s.Text()) > 50 {
				articleText.WriteString(s.Text())
				articleText.WriteString("\n\n")
			}
		})
	}

	return strings.TrimSpace(articleText.String())
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
