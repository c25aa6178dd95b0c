package news

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

// Provider fetches recent headlines from one news source.
type Provider interface {
	// GetName returns the provider name for logging
	GetName() string

	// IsEnabled returns whether the provider is configured and active
	IsEnabled() bool

	// Fetch returns up to limit recent items, newest first
	Fetch(ctx context.Context, limit int) ([]models.NewsItem, error)
}

// Aggregator merges headlines from multiple providers.
type Aggregator struct {
	providers []Provider
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(providers ...Provider) *Aggregator {
	active := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &Aggregator{providers: active}
}

// FetchAll queries every enabled provider in parallel and returns the merged
// items newest first, capped at limit. Items sharing a URL are collapsed to
// the first occurrence. A provider failure is logged and skipped; when every
// provider fails the result is simply empty.
func (a *Aggregator) FetchAll(ctx context.Context, limit int) []models.NewsItem {
	type result struct {
		err      error
		provider string
		items    []models.NewsItem
	}

	results := make(chan result, len(a.providers))
	enabledCount := 0

	for _, provider := range a.providers {
		if !provider.IsEnabled() {
			continue
		}
		enabledCount++

		go func(p Provider) {
			items, err := p.Fetch(ctx, limit)
			results <- result{provider: p.GetName(), items: items, err: err}
		}(provider)
	}

	var all []models.NewsItem
	for i := 0; i < enabledCount; i++ {
		res := <-results
		if res.err != nil {
			logger.Warn("News provider failed",
				zap.String("provider", res.provider),
				zap.Error(res.err))
			continue
		}
		all = append(all, res.items...)
	}

	merged := make([]models.NewsItem, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, item := range all {
		if item.URL != "" {
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
		}
		merged = append(merged, item)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	logger.Debug("Aggregated news",
		zap.Int("providers", enabledCount),
		zap.Int("items", len(merged)))

	return merged
}

// ProviderNames returns the names of all enabled providers.
func (a *Aggregator) ProviderNames() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		if p.IsEnabled() {
			names = append(names, p.GetName())
		}
	}
	return names
}
