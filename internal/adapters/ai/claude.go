package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

const (
	claudeAPIURL       = "https://api.anthropic.com/v1/messages"
	defaultClaudeModel = "claude-3-5-sonnet-20241022"
)

// ClaudeProvider implements AI provider for Claude
type ClaudeProvider struct {
	apiKey  string
	model   string
	enabled bool
	client  *http.Client
}

// NewClaudeProvider creates new Claude provider
func NewClaudeProvider(cfg *config.AIProviderConfig) *ClaudeProvider {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}

	return &ClaudeProvider{
		apiKey:  cfg.APIKey,
		model:   model,
		enabled: cfg.Enabled && cfg.APIKey != "",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *ClaudeProvider) GetName() string {
	return "claude"
}

func (c *ClaudeProvider) IsEnabled() bool {
	return c.enabled
}

// AnalyzeHeadline classifies a headline for prediction market impact
func (c *ClaudeProvider) AnalyzeHeadline(ctx context.Context, item models.NewsItem) (models.NewsAnalysis, error) {
	if !c.enabled {
		return models.NewsAnalysis{}, ErrNotConfigured
	}

	systemPrompt, userPrompt, err := buildClassifyPrompt(item)
	if err != nil {
		return models.NewsAnalysis{}, err
	}

	content, err := c.callClaudeAPI(ctx, systemPrompt, userPrompt, 400)
	if err != nil {
		return models.NewsAnalysis{}, fmt.Errorf("claude classification failed: %w", err)
	}

	analysis, err := parseAnalysis(content)
	if err != nil {
		logger.Warn("claude returned unparseable classification, using conservative default",
			zap.String("headline", item.Headline),
			zap.Error(err),
		)
		return models.ConservativeAnalysis(), nil
	}

	return analysis, nil
}

// AssessPair compares two listings for resolution equivalence
func (c *ClaudeProvider) AssessPair(ctx context.Context, a, b models.MarketQuote) (models.PairAssessment, error) {
	if !c.enabled {
		return models.PairAssessment{}, ErrNotConfigured
	}

	systemPrompt, userPrompt, err := buildComparePrompt(a, b)
	if err != nil {
		return models.PairAssessment{}, err
	}

	content, err := c.callClaudeAPI(ctx, systemPrompt, userPrompt, 600)
	if err != nil {
		return models.PairAssessment{}, fmt.Errorf("claude pair assessment failed: %w", err)
	}

	assessment, err := parseAssessment(content)
	if err != nil {
		// Zero confidence routes the pair to manual review downstream
		logger.Warn("claude returned unparseable assessment, leaving pair unverified",
			zap.String("question_a", a.Question),
			zap.String("question_b", b.Question),
			zap.Error(err),
		)
		return models.PairAssessment{}, nil
	}

	return assessment, nil
}

// callClaudeAPI sends one messages-API request and returns the text content
func (c *ClaudeProvider) callClaudeAPI(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  maxTokens,
		"temperature": 0.2, // Lower temperature for more consistent JSON output
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": userPrompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", claudeAPIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	logger.Debug("claude response",
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", result.Content[0].Text),
	)

	return result.Content[0].Text, nil
}
