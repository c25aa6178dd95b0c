package ai

import (
	"context"
	"errors"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/models"
)

// ErrNotConfigured is returned by providers constructed without an API
// key. Callers treat it as "skip this provider", never as a pipeline
// failure.
var ErrNotConfigured = errors.New("ai provider not configured")

// Provider defines interface for headline classification and cross-venue
// listing comparison.
//
// Transport errors propagate so callers can fail over to another
// provider. A response that arrives but cannot be parsed degrades
// inside the provider: AnalyzeHeadline returns the conservative default
// analysis and AssessPair returns a zero-confidence assessment, both
// with a nil error.
type Provider interface {
	GetName() string
	IsEnabled() bool
	AnalyzeHeadline(ctx context.Context, item models.NewsItem) (models.NewsAnalysis, error)
	AssessPair(ctx context.Context, a, b models.MarketQuote) (models.PairAssessment, error)
}

// BuildProviders constructs the provider chain from configuration:
// remote providers first, the keyword heuristic always last so
// classification works with no credentials at all.
func BuildProviders(cfg *config.AIConfig) *FallbackProvider {
	return NewFallbackProvider(
		NewOpenAIProvider(&cfg.OpenAI),
		NewClaudeProvider(&cfg.Claude),
		NewDeepSeekProvider(&cfg.DeepSeek),
		NewHeuristicProvider(),
	)
}
