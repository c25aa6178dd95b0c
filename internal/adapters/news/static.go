package news

import (
	"context"

	"github.com/mkovalev/newsedge/pkg/models"
)

// StaticProvider serves a fixed set of headlines. Useful for offline runs
// and demos where no feed is reachable.
type StaticProvider struct {
	items []models.NewsItem
}

// NewStaticProvider creates a provider that always returns the given items.
func NewStaticProvider(items []models.NewsItem) *StaticProvider {
	return &StaticProvider{items: items}
}

// GetName returns provider name
func (s *StaticProvider) GetName() string {
	return "static"
}

// IsEnabled returns whether any items are loaded
func (s *StaticProvider) IsEnabled() bool {
	return len(s.items) > 0
}

// Fetch returns a copy of the loaded items, capped at limit.
func (s *StaticProvider) Fetch(_ context.Context, limit int) ([]models.NewsItem, error) {
	items := make([]models.NewsItem, len(s.items))
	copy(items, s.items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
