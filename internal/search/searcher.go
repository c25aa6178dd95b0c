package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/textsim"
)

const (
	// Venue clients match on keywords with high recall; fetch a multiple
	// of the requested limit so local ranking has something to rank
	oversample        = 3
	defaultFetchLimit = 50
)

// Source is a venue client able to return keyword-matched markets.
type Source interface {
	GetName() string
	IsEnabled() bool
	SearchMarkets(ctx context.Context, query string, limit int) ([]models.MarketQuote, error)
}

// Options tune one search call. Zero values mean no venue filter, closed
// markets included, no score floor, no result cap.
type Options struct {
	Venues     []models.Venue
	ActiveOnly bool
	MinScore   float64
	Limit      int
}

// Searcher fans a query out to venue sources concurrently and ranks the
// merged results by textual similarity to the query.
type Searcher struct {
	sources []Source
}

// NewSearcher creates a searcher over the given venue sources.
func NewSearcher(sources ...Source) *Searcher {
	active := make([]Source, 0, len(sources))
	for _, src := range sources {
		if src != nil {
			active = append(active, src)
		}
	}
	return &Searcher{sources: active}
}

// Search queries the selected venues in parallel and returns markets scored
// against the query, descending. A failed venue is logged and skipped; the
// call errors only when every queried venue fails.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]models.ScoredMarket, error) {
	type result struct {
		err    error
		source string
		quotes []models.MarketQuote
	}

	fetchLimit := defaultFetchLimit
	if opts.Limit > 0 {
		fetchLimit = opts.Limit * oversample
	}

	wanted := venueSet(opts.Venues)
	results := make(chan result, len(s.sources))
	fanout := 0

	for _, src := range s.sources {
		if !src.IsEnabled() {
			continue
		}
		if wanted != nil && !wanted[models.Venue(src.GetName())] {
			continue
		}
		fanout++

		go func(src Source) {
			quotes, err := src.SearchMarkets(ctx, query, fetchLimit)
			results <- result{source: src.GetName(), quotes: quotes, err: err}
		}(src)
	}

	var all []models.MarketQuote
	failures := 0
	for i := 0; i < fanout; i++ {
		res := <-results
		if res.err != nil {
			failures++
			logger.Warn("Market search failed",
				zap.String("venue", res.source),
				zap.Error(res.err))
			continue
		}
		all = append(all, res.quotes...)
	}

	if fanout > 0 && failures == fanout {
		return nil, fmt.Errorf("market search failed on all %d venues", failures)
	}

	scored := make([]models.ScoredMarket, 0, len(all))
	for _, quote := range all {
		if opts.ActiveOnly && !quote.IsOpen() {
			continue
		}
		score := textsim.Jaccard(query, quote.Question)
		if score < opts.MinScore {
			continue
		}
		scored = append(scored, models.ScoredMarket{Market: quote, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Market.Liquidity > scored[j].Market.Liquidity
	})

	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}

	logger.Debug("Market search complete",
		zap.String("query", query),
		zap.Int("venues", fanout),
		zap.Int("results", len(scored)))

	return scored, nil
}

// VenueNames returns the names of all enabled sources.
func (s *Searcher) VenueNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		if src.IsEnabled() {
			names = append(names, src.GetName())
		}
	}
	return names
}

func venueSet(venues []models.Venue) map[models.Venue]bool {
	if len(venues) == 0 {
		return nil
	}
	set := make(map[models.Venue]bool, len(venues))
	for _, v := range venues {
		set[v] = true
	}
	return set
}
