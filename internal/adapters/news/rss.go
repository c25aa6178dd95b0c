package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

// RSSProvider pulls headlines from a set of RSS/Atom feeds.
type RSSProvider struct {
	parser  *gofeed.Parser
	feeds   []string
	enabled bool
}

// NewRSSProvider creates a provider over the given feed URLs.
func NewRSSProvider(feeds []string, enabled bool) *RSSProvider {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 10 * time.Second}

	return &RSSProvider{
		parser:  parser,
		feeds:   feeds,
		enabled: enabled && len(feeds) > 0,
	}
}

// GetName returns provider name
func (r *RSSProvider) GetName() string {
	return "rss"
}

// IsEnabled returns whether provider is enabled
func (r *RSSProvider) IsEnabled() bool {
	return r.enabled
}

// Fetch pulls every configured feed and returns the newest items first.
// A single broken feed is logged and skipped; the call only errors when
// every feed fails.
func (r *RSSProvider) Fetch(ctx context.Context, limit int) ([]models.NewsItem, error) {
	if !r.enabled {
		return nil, nil
	}

	var items []models.NewsItem
	failures := 0

	for _, feedURL := range r.feeds {
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failures++
			logger.Warn("Failed to fetch RSS feed",
				zap.String("feed", feedURL),
				zap.Error(err))
			continue
		}
		items = append(items, convertFeed(feed, feedURL)...)
	}

	if failures == len(r.feeds) {
		return nil, fmt.Errorf("all %d feeds failed", failures)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	logger.Debug("Fetched RSS headlines",
		zap.Int("feeds", len(r.feeds)-failures),
		zap.Int("items", len(items)))

	return items, nil
}

// convertFeed maps feed entries to news items. Entries with no title are
// dropped; entries with no parseable date get the current time so they are
// not silently buried by the newest-first sort.
func convertFeed(feed *gofeed.Feed, feedURL string) []models.NewsItem {
	source := feed.Title
	if source == "" {
		if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
			source = u.Host
		} else {
			source = feedURL
		}
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || entry.Title == "" {
			continue
		}

		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		}

		item := models.NewNewsItem(entry.Title, source, publishedAt)
		item.Summary = entry.Description
		item.URL = entry.Link
		item.Keywords = entry.Categories
		items = append(items, item)
	}
	return items
}
