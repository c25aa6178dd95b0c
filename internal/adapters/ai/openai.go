package ai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

const (
	defaultOpenAIModel = openai.GPT4oMini

	deepseekBaseURL      = "https://api.deepseek.com/v1"
	defaultDeepSeekModel = "deepseek-chat"
)

// OpenAIProvider implements AI provider for any chat-completions
// compatible backend. DeepSeek exposes the same API, so both share this
// type and differ only in client configuration.
type OpenAIProvider struct {
	client  *openai.Client
	name    string
	model   string
	enabled bool
}

// NewOpenAIProvider creates new OpenAI provider
func NewOpenAIProvider(cfg *config.AIProviderConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIProvider{
		client:  openai.NewClient(cfg.APIKey),
		name:    "openai",
		model:   model,
		enabled: cfg.Enabled && cfg.APIKey != "",
	}
}

// NewDeepSeekProvider creates a provider for the OpenAI-compatible
// DeepSeek API
func NewDeepSeekProvider(cfg *config.AIProviderConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = defaultDeepSeekModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = deepseekBaseURL

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		name:    "deepseek",
		model:   model,
		enabled: cfg.Enabled && cfg.APIKey != "",
	}
}

func (o *OpenAIProvider) GetName() string {
	return o.name
}

func (o *OpenAIProvider) IsEnabled() bool {
	return o.enabled
}

// AnalyzeHeadline classifies a headline for prediction market impact
func (o *OpenAIProvider) AnalyzeHeadline(ctx context.Context, item models.NewsItem) (models.NewsAnalysis, error) {
	if !o.enabled {
		return models.NewsAnalysis{}, ErrNotConfigured
	}

	systemPrompt, userPrompt, err := buildClassifyPrompt(item)
	if err != nil {
		return models.NewsAnalysis{}, err
	}

	content, err := o.complete(ctx, systemPrompt, userPrompt, 400)
	if err != nil {
		return models.NewsAnalysis{}, fmt.Errorf("%s classification failed: %w", o.name, err)
	}

	analysis, err := parseAnalysis(content)
	if err != nil {
		logger.Warn("unparseable classification, using conservative default",
			zap.String("provider", o.name),
			zap.String("headline", item.Headline),
			zap.Error(err),
		)
		return models.ConservativeAnalysis(), nil
	}

	return analysis, nil
}

// AssessPair compares two listings for resolution equivalence
func (o *OpenAIProvider) AssessPair(ctx context.Context, a, b models.MarketQuote) (models.PairAssessment, error) {
	if !o.enabled {
		return models.PairAssessment{}, ErrNotConfigured
	}

	systemPrompt, userPrompt, err := buildComparePrompt(a, b)
	if err != nil {
		return models.PairAssessment{}, err
	}

	content, err := o.complete(ctx, systemPrompt, userPrompt, 600)
	if err != nil {
		return models.PairAssessment{}, fmt.Errorf("%s pair assessment failed: %w", o.name, err)
	}

	assessment, err := parseAssessment(content)
	if err != nil {
		logger.Warn("unparseable assessment, leaving pair unverified",
			zap.String("provider", o.name),
			zap.String("question_a", a.Question),
			zap.String("question_b", b.Question),
			zap.Error(err),
		)
		return models.PairAssessment{}, nil
	}

	return assessment, nil
}

// complete sends one chat completion request and returns the text content
func (o *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	startTime := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   maxTokens,
		Temperature: 0.2, // Lower temperature for more consistent JSON output
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content

	logger.Debug("chat completion response",
		zap.String("provider", o.name),
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", content),
	)

	return content, nil
}
