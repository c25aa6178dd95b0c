package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/models"
)

type stubProvider struct {
	err        error
	name       string
	analysis   models.NewsAnalysis
	assessment models.PairAssessment
	calls      int
	enabled    bool
}

func (s *stubProvider) GetName() string { return s.name }
func (s *stubProvider) IsEnabled() bool { return s.enabled }

func (s *stubProvider) AnalyzeHeadline(_ context.Context, _ models.NewsItem) (models.NewsAnalysis, error) {
	s.calls++
	if s.err != nil {
		return models.NewsAnalysis{}, s.err
	}
	return s.analysis, nil
}

func (s *stubProvider) AssessPair(_ context.Context, _, _ models.MarketQuote) (models.PairAssessment, error) {
	s.calls++
	if s.err != nil {
		return models.PairAssessment{}, s.err
	}
	return s.assessment, nil
}

func TestFallbackProvider_FirstHealthyWins(t *testing.T) {
	first := &stubProvider{name: "first", enabled: true, analysis: models.NewsAnalysis{Category: models.CategoryCrypto, Confidence: 0.9}}
	second := &stubProvider{name: "second", enabled: true}

	chain := NewFallbackProvider(first, second)

	analysis, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{Headline: "test"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if analysis.Category != models.CategoryCrypto {
		t.Errorf("Expected first provider's answer, got category %s", analysis.Category)
	}
	if second.calls != 0 {
		t.Errorf("Second provider should not be called, got %d calls", second.calls)
	}
}

func TestFallbackProvider_FailsOver(t *testing.T) {
	first := &stubProvider{name: "first", enabled: true, err: errors.New("connection refused")}
	second := &stubProvider{name: "second", enabled: true, analysis: models.NewsAnalysis{Category: models.CategoryEconomy, Confidence: 0.7}}

	chain := NewFallbackProvider(first, second)

	analysis, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{Headline: "test"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if analysis.Category != models.CategoryEconomy {
		t.Errorf("Expected failover to second provider, got %s", analysis.Category)
	}
	if first.calls != 1 {
		t.Errorf("First provider should be tried once, got %d", first.calls)
	}
}

func TestFallbackProvider_SkipsDisabled(t *testing.T) {
	disabled := &stubProvider{name: "disabled", enabled: false}
	healthy := &stubProvider{name: "healthy", enabled: true, analysis: models.NewsAnalysis{Category: models.CategoryPolitics}}

	chain := NewFallbackProvider(disabled, healthy)

	analysis, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if disabled.calls != 0 {
		t.Error("Disabled provider must never be called")
	}
	if analysis.Category != models.CategoryPolitics {
		t.Errorf("Expected healthy provider's answer, got %s", analysis.Category)
	}
}

func TestFallbackProvider_NotConfiguredIsNotFailure(t *testing.T) {
	// Enabled but returning ErrNotConfigured: skipped without counting
	// toward the cooldown breaker.
	unconfigured := &stubProvider{name: "unconfigured", enabled: true, err: ErrNotConfigured}
	healthy := &stubProvider{name: "healthy", enabled: true, analysis: models.NewsAnalysis{Category: models.CategoryCrypto}}

	chain := NewFallbackProvider(unconfigured, healthy)

	for i := 0; i < 5; i++ {
		if _, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{}); err != nil {
			t.Fatalf("Unexpected error on call %d: %v", i, err)
		}
	}

	// Still being tried on every call: never sent to cooldown
	if unconfigured.calls != 5 {
		t.Errorf("Unconfigured provider should be tried every time, got %d calls", unconfigured.calls)
	}
}

func TestFallbackProvider_CooldownAfterRepeatedFailures(t *testing.T) {
	failing := &stubProvider{name: "failing", enabled: true, err: errors.New("HTTP 503")}
	healthy := &stubProvider{name: "healthy", enabled: true, analysis: models.NewsAnalysis{Category: models.CategoryGeneral}}

	chain := NewFallbackProvider(failing, healthy)

	current := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	chain.now = func() time.Time { return current }

	// Three consecutive failures trip the breaker
	for i := 0; i < 3; i++ {
		if _, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if failing.calls != 3 {
		t.Fatalf("Expected 3 attempts before cooldown, got %d", failing.calls)
	}

	// Fourth call: provider is cooling down and must be skipped
	if _, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if failing.calls != 3 {
		t.Errorf("Cooling provider must be skipped, got %d calls", failing.calls)
	}

	// After the cooldown passes it is tried again
	current = current.Add(defaultCooldown + time.Second)
	if _, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if failing.calls != 4 {
		t.Errorf("Provider should be retried after cooldown, got %d calls", failing.calls)
	}
}

func TestFallbackProvider_SuccessResetsFailureCount(t *testing.T) {
	flaky := &stubProvider{name: "flaky", enabled: true, err: errors.New("timeout")}
	backup := &stubProvider{name: "backup", enabled: true}

	chain := NewFallbackProvider(flaky, backup)

	// Two failures, then a success, then two more failures: the breaker
	// needs three consecutive, so flaky is never cooled down.
	chain.AnalyzeHeadline(context.Background(), models.NewsItem{})
	chain.AnalyzeHeadline(context.Background(), models.NewsItem{})

	flaky.err = nil
	chain.AnalyzeHeadline(context.Background(), models.NewsItem{})

	flaky.err = errors.New("timeout")
	chain.AnalyzeHeadline(context.Background(), models.NewsItem{})
	chain.AnalyzeHeadline(context.Background(), models.NewsItem{})

	if flaky.calls != 5 {
		t.Errorf("Flaky provider should be tried on all 5 calls, got %d", flaky.calls)
	}
}

func TestFallbackProvider_AllFailConservativeDefault(t *testing.T) {
	broken := &stubProvider{name: "broken", enabled: true, err: errors.New("down")}

	chain := NewFallbackProvider(broken)

	analysis, err := chain.AnalyzeHeadline(context.Background(), models.NewsItem{Headline: "anything"})
	if err != nil {
		t.Fatalf("Exhausted chain must not error: %v", err)
	}
	if analysis.Category != models.CategoryGeneral || analysis.Confidence != 0.3 {
		t.Errorf("Expected conservative default, got %+v", analysis)
	}

	assessment, err := chain.AssessPair(context.Background(), models.MarketQuote{}, models.MarketQuote{})
	if err != nil {
		t.Fatalf("Exhausted chain must not error: %v", err)
	}
	if assessment.IsMatch || assessment.MatchConfidence != 0 {
		t.Errorf("Expected zero-confidence assessment, got %+v", assessment)
	}
}

func TestFallbackProvider_ContextCancellation(t *testing.T) {
	failing := &stubProvider{name: "failing", enabled: true, err: errors.New("aborted")}
	never := &stubProvider{name: "never", enabled: true}

	chain := NewFallbackProvider(failing, never)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.AnalyzeHeadline(ctx, models.NewsItem{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if never.calls != 0 {
		t.Error("Chain must stop walking after cancellation")
	}
}

func TestFallbackProvider_AssessPairFailsOver(t *testing.T) {
	first := &stubProvider{name: "first", enabled: true, err: errors.New("HTTP 500")}
	second := &stubProvider{name: "second", enabled: true, assessment: models.PairAssessment{IsMatch: true, MatchConfidence: 0.9}}

	chain := NewFallbackProvider(first, second)

	assessment, err := chain.AssessPair(context.Background(), models.MarketQuote{}, models.MarketQuote{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !assessment.IsMatch || assessment.MatchConfidence != 0.9 {
		t.Errorf("Expected second provider's assessment, got %+v", assessment)
	}
}

func TestBuildProviders(t *testing.T) {
	t.Run("no credentials leaves only the heuristic", func(t *testing.T) {
		chain := BuildProviders(&config.AIConfig{})

		if !chain.IsEnabled() {
			t.Error("Chain must stay enabled without credentials")
		}

		names := chain.GetProviderNames()
		if len(names) != 1 || names[0] != "heuristic" {
			t.Errorf("Expected [heuristic], got %v", names)
		}
	})

	t.Run("configured providers come before the heuristic", func(t *testing.T) {
		chain := BuildProviders(&config.AIConfig{
			OpenAI: config.AIProviderConfig{APIKey: "sk-test", Enabled: true},
			Claude: config.AIProviderConfig{APIKey: "ak-test", Enabled: true},
		})

		names := chain.GetProviderNames()
		expected := []string{"openai", "claude", "heuristic"}
		if len(names) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, names)
		}
		for i := range expected {
			if names[i] != expected[i] {
				t.Errorf("Position %d: expected %s, got %s", i, expected[i], names[i])
			}
		}

		if chain.Describe() != "openai -> claude -> heuristic" {
			t.Errorf("Unexpected chain description: %s", chain.Describe())
		}
	})
}
