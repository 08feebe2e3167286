// Package topics manages the set of selectable topics: a fixed built-in set
// plus user-created topics enriched in the background.
package topics

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/podforge/podforge/podcast"
)

// FeedDiscoverer suggests candidate feed URLs for a topic description.
type FeedDiscoverer interface {
	DiscoverFeeds(ctx context.Context, description string) ([]string, error)
}

// FeedValidator filters candidates down to live, well-formed feeds.
type FeedValidator interface {
	Validate(ctx context.Context, candidates []string, limit int) []string
}

// ImageGenerator produces a cover image for a subject.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, subject string) (string, error)
}

const defaultColor = "#6366f1"

// Registry holds all topics and runs custom-topic enrichment.
type Registry struct {
	mu     sync.Mutex
	topics []podcast.Topic

	discoverer FeedDiscoverer
	validator  FeedValidator
	images     ImageGenerator
	maxFeeds   int
	log        *logrus.Logger
}

// NewRegistry seeds the built-in topics and wires the enrichment services.
func NewRegistry(discoverer FeedDiscoverer, validator FeedValidator, images ImageGenerator, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		topics:     builtinTopics(),
		discoverer: discoverer,
		validator:  validator,
		images:     images,
		maxFeeds:   3,
		log:        log,
	}
}

// Topics returns a copy of all topics in registry order.
func (r *Registry) Topics() []podcast.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]podcast.Topic(nil), r.topics...)
}

// Get looks a topic up by id.
func (r *Registry) Get(id string) (podcast.Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.topics {
		if t.ID == id {
			return t, true
		}
	}
	return podcast.Topic{}, false
}

// GetByName looks a topic up by its display name.
func (r *Registry) GetByName(name string) (podcast.Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.topics {
		if t.Name == name {
			return t, true
		}
	}
	return podcast.Topic{}, false
}

// AddTopic inserts a new custom topic immediately with IsLoading set and
// kicks off background enrichment: feed discovery plus validation runs
// concurrently with image generation; when both settle the topic is updated
// in place and IsLoading cleared, whatever the outcomes. A topic that ends up
// with no feeds stays in the registry and signals AI-fallback generation.
func (r *Registry) AddTopic(ctx context.Context, name, description, color string) podcast.Topic {
	if color == "" {
		color = defaultColor
	}
	topic := podcast.Topic{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		RSSURLs:     []string{},
		IsCustom:    true,
		IsLoading:   true,
		Color:       color,
	}

	r.mu.Lock()
	r.topics = append(r.topics, topic)
	r.mu.Unlock()

	go r.enrich(ctx, topic.ID, name, description)
	return topic
}

// UpdateTopic mutates a topic's editable fields by id. Feed URLs are not
// re-validated at edit time. Reports whether the topic existed.
func (r *Registry) UpdateTopic(id, name string, rssURLs []string, color string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.topics {
		if r.topics[i].ID == id {
			r.topics[i].Name = name
			r.topics[i].RSSURLs = append([]string(nil), rssURLs...)
			if color != "" {
				r.topics[i].Color = color
			}
			return true
		}
	}
	return false
}

// DeleteTopic removes a topic by id. Reports whether it existed.
func (r *Registry) DeleteTopic(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.topics {
		if r.topics[i].ID == id {
			r.topics = append(r.topics[:i], r.topics[i+1:]...)
			return true
		}
	}
	return false
}

// enrich discovers and validates feeds and generates a cover image, then
// flips IsLoading off in one in-place update. There is no rollback on
// partial failure.
func (r *Registry) enrich(ctx context.Context, id, name, description string) {
	var (
		wg    sync.WaitGroup
		feeds []string
		image string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		candidates, err := r.discoverer.DiscoverFeeds(ctx, description)
		if err != nil {
			r.log.WithError(err).WithField("topic", name).Warn("feed discovery failed")
			return
		}
		feeds = r.validator.Validate(ctx, candidates, r.maxFeeds)
	}()
	go func() {
		defer wg.Done()
		img, err := r.images.GenerateImage(ctx, description)
		if err != nil {
			r.log.WithError(err).WithField("topic", name).Warn("topic image generation failed")
			return
		}
		image = img
	}()
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.topics {
		if r.topics[i].ID == id {
			if feeds == nil {
				feeds = []string{}
			}
			r.topics[i].RSSURLs = feeds
			if image != "" {
				r.topics[i].CustomImage = image
			}
			r.topics[i].IsLoading = false
			return
		}
	}
	// topic was deleted while enriching, nothing to update
}

// builtinTopics is the fixed set available in every process.
func builtinTopics() []podcast.Topic {
	return []podcast.Topic{
		{
			ID:      "builtin-technology",
			Name:    "Technology",
			RSSURLs: []string{"https://feeds.arstechnica.com/arstechnica/index", "https://www.theverge.com/rss/index.xml"},
			Color:   "#3b82f6",
		},
		{
			ID:      "builtin-world",
			Name:    "World News",
			RSSURLs: []string{"https://feeds.bbci.co.uk/news/world/rss.xml", "https://rss.nytimes.com/services/xml/rss/nyt/World.xml"},
			Color:   "#ef4444",
		},
		{
			ID:      "builtin-science",
			Name:    "Science",
			RSSURLs: []string{"https://www.sciencedaily.com/rss/all.xml", "https://feeds.bbci.co.uk/news/science_and_environment/rss.xml"},
			Color:   "#22c55e",
		},
		{
			ID:      "builtin-business",
			Name:    "Business",
			RSSURLs: []string{"https://feeds.bbci.co.uk/news/business/rss.xml"},
			Color:   "#f59e0b",
		},
	}
}
