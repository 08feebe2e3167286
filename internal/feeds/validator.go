// Package feeds validates candidate feed URLs and assembles the news context
// used for topic-based generation.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// DefaultBatchSize is how many candidates are checked in parallel.
	DefaultBatchSize = 5
	// DefaultMaxValidFeeds is how many validated feeds a topic keeps.
	DefaultMaxValidFeeds = 3

	// feed bodies are sniffed, not stored, so reads are capped
	maxBodyBytes = 256 * 1024

	cacheTTL          = 30 * time.Minute
	cacheSweepEvery   = 10 * time.Minute
	validationTimeout = 15 * time.Second
)

// Validator checks candidate feed URLs for liveness and format through a CORS
// proxy, caching results so repeated enrichments skip known URLs.
type Validator struct {
	proxyBase string
	client    HTTPClient
	cache     *gocache.Cache
	batchSize int
	log       *logrus.Logger
}

// NewValidator creates a validator that fetches through proxyBase.
func NewValidator(proxyBase string, client HTTPClient, log *logrus.Logger) *Validator {
	if client == nil {
		client = &http.Client{Timeout: validationTimeout}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{
		proxyBase: proxyBase,
		client:    client,
		cache:     gocache.New(cacheTTL, cacheSweepEvery),
		batchSize: DefaultBatchSize,
		log:       log,
	}
}

// Validate checks candidates in fixed-size parallel batches, batches in
// sequence, and returns at most limit valid URLs in candidate order. It stops
// issuing batches once enough valid feeds are found.
func (v *Validator) Validate(ctx context.Context, candidates []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxValidFeeds
	}

	var valid []string
	for start := 0; start < len(candidates) && len(valid) < limit; start += v.batchSize {
		end := start + v.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		results := make([]bool, len(batch))
		var wg sync.WaitGroup
		for i, candidate := range batch {
			wg.Add(1)
			go func(i int, candidate string) {
				defer wg.Done()
				results[i] = v.checkFeed(ctx, candidate)
			}(i, candidate)
		}
		wg.Wait()

		for i, ok := range results {
			if ok && len(valid) < limit {
				valid = append(valid, batch[i])
			}
		}
	}
	return valid
}

// checkFeed reports whether a candidate fetches successfully and looks like a
// feed rather than an HTML page.
func (v *Validator) checkFeed(ctx context.Context, feedURL string) bool {
	if cached, found := v.cache.Get(feedURL); found {
		return cached.(bool)
	}

	body, err := v.fetchThroughProxy(ctx, feedURL)
	ok := err == nil && looksLikeFeed(body)
	if err != nil {
		v.log.WithError(err).WithField("url", feedURL).Debug("feed validation fetch failed")
	}

	v.cache.Set(feedURL, ok, gocache.DefaultExpiration)
	return ok
}

// fetchThroughProxy fetches a feed via the configured CORS proxy.
func (v *Validator) fetchThroughProxy(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.proxyBase+url.QueryEscape(feedURL), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch feed: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read feed body: %w", err)
	}
	return string(body), nil
}

// looksLikeFeed accepts bodies with an XML/RSS/Atom marker and rejects HTML
// documents.
func looksLikeFeed(body string) bool {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "<!doctype html") || strings.Contains(lower, "<html") {
		return false
	}
	return strings.Contains(lower, "<rss") ||
		strings.Contains(lower, "<feed") ||
		strings.Contains(lower, "<rdf") ||
		strings.Contains(lower, "<?xml")
}
