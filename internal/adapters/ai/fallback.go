package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

const (
	defaultMaxFailures = 3
	defaultCooldown    = 5 * time.Minute
)

// FallbackProvider tries providers in order until one answers. A
// provider that fails maxFailures times in a row is skipped for a
// cooldown period, so a dead backend cannot stall every poll tick.
//
// When every provider fails, classification degrades to the
// conservative default and pair assessment to zero confidence; the
// pipeline keeps running.
type FallbackProvider struct {
	mu        sync.Mutex
	failures  map[string]int
	skipUntil map[string]time.Time

	providers   []Provider
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewFallbackProvider creates a provider chain, dropping nil entries
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}

	return &FallbackProvider{
		providers:   kept,
		failures:    make(map[string]int),
		skipUntil:   make(map[string]time.Time),
		maxFailures: defaultMaxFailures,
		cooldown:    defaultCooldown,
		now:         time.Now,
	}
}

func (f *FallbackProvider) GetName() string {
	return "fallback"
}

// IsEnabled reports whether at least one chained provider is enabled
func (f *FallbackProvider) IsEnabled() bool {
	for _, p := range f.providers {
		if p.IsEnabled() {
			return true
		}
	}
	return false
}

// GetProviderNames returns names of all enabled providers in chain order
func (f *FallbackProvider) GetProviderNames() []string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		if p.IsEnabled() {
			names = append(names, p.GetName())
		}
	}
	return names
}

// AnalyzeHeadline walks the chain and returns the first answer
func (f *FallbackProvider) AnalyzeHeadline(ctx context.Context, item models.NewsItem) (models.NewsAnalysis, error) {
	for _, p := range f.providers {
		if !f.usable(p) {
			continue
		}

		analysis, err := p.AnalyzeHeadline(ctx, item)
		if err != nil {
			if handled, cerr := f.handleFailure(ctx, p, err); handled {
				return models.NewsAnalysis{}, cerr
			}
			continue
		}

		f.recordSuccess(p.GetName())
		return analysis, nil
	}

	logger.Warn("no provider classified headline, using conservative default",
		zap.String("headline", item.Headline),
	)
	return models.ConservativeAnalysis(), nil
}

// AssessPair walks the chain and returns the first assessment
func (f *FallbackProvider) AssessPair(ctx context.Context, a, b models.MarketQuote) (models.PairAssessment, error) {
	for _, p := range f.providers {
		if !f.usable(p) {
			continue
		}

		assessment, err := p.AssessPair(ctx, a, b)
		if err != nil {
			if handled, cerr := f.handleFailure(ctx, p, err); handled {
				return models.PairAssessment{}, cerr
			}
			continue
		}

		f.recordSuccess(p.GetName())
		return assessment, nil
	}

	logger.Warn("no provider assessed pair, leaving unverified",
		zap.String("question_a", a.Question),
		zap.String("question_b", b.Question),
	)
	return models.PairAssessment{}, nil
}

// usable filters out disabled providers and those cooling down
func (f *FallbackProvider) usable(p Provider) bool {
	if !p.IsEnabled() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	until, ok := f.skipUntil[p.GetName()]
	return !ok || !f.now().Before(until)
}

// handleFailure decides whether a provider error stops the walk.
// Cancellation stops it; everything else records the failure and moves
// to the next provider.
func (f *FallbackProvider) handleFailure(ctx context.Context, p Provider, err error) (stop bool, cause error) {
	if ctx.Err() != nil {
		return true, ctx.Err()
	}

	if errors.Is(err, ErrNotConfigured) {
		return false, nil
	}

	f.recordFailure(p.GetName())
	logger.Warn("provider failed, trying next in chain",
		zap.String("provider", p.GetName()),
		zap.Error(err),
	)
	return false, nil
}

func (f *FallbackProvider) recordFailure(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[name]++
	if f.failures[name] >= f.maxFailures {
		f.skipUntil[name] = f.now().Add(f.cooldown)
		f.failures[name] = 0
		logger.Warn("provider cooling down after repeated failures",
			zap.String("provider", name),
			zap.Duration("cooldown", f.cooldown),
		)
	}
}

func (f *FallbackProvider) recordSuccess(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[name] = 0
	delete(f.skipUntil, name)
}

// Describe summarizes the chain for startup logging
func (f *FallbackProvider) Describe() string {
	names := f.GetProviderNames()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, " -> ")
}
