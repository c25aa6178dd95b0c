package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Monitor    MonitorConfig    `envconfig:"MONITOR"`
	Trading    TradingConfig    `envconfig:"TRADING"`
	Verify     VerifyConfig     `envconfig:"VERIFY"`
	AI         AIConfig         `envconfig:"AI"`
	News       NewsConfig       `envconfig:"NEWS"`
	Kalshi     KalshiConfig     `envconfig:"KALSHI"`
	Polymarket PolymarketConfig `envconfig:"POLYMARKET"`
	Telegram   TelegramConfig   `envconfig:"TELEGRAM"`
	Health     HealthConfig     `envconfig:"HEALTH"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// MonitorConfig represents monitoring loop parameters
type MonitorConfig struct {
	PollInterval       time.Duration `envconfig:"MONITOR_POLL_INTERVAL" default:"60s"`
	Categories         []string      `envconfig:"MONITOR_CATEGORIES" default:"federal_reserve,crypto,politics,inflation,economy"`
	DedupCapacity      int           `envconfig:"MONITOR_DEDUP_CAPACITY" default:"1000"`
	MarketsPerHeadline int           `envconfig:"MONITOR_MARKETS_PER_HEADLINE" default:"5"`
}

// TradingConfig represents signal sizing parameters
type TradingConfig struct {
	MaxPositionSize float64 `envconfig:"TRADING_MAX_POSITION_SIZE" default:"250.0"`
}

// VerifyConfig represents cross-venue verification parameters
type VerifyConfig struct {
	MinSimilarity float64 `envconfig:"VERIFY_MIN_SIMILARITY" default:"0.6"`
}

// AIConfig represents AI provider configurations
type AIConfig struct {
	OpenAI   AIProviderConfig `envconfig:"OPENAI"`
	Claude   AIProviderConfig `envconfig:"CLAUDE"`
	DeepSeek AIProviderConfig `envconfig:"DEEPSEEK"`
}

// AIProviderConfig represents single AI provider configuration
type AIProviderConfig struct {
	APIKey  string `envconfig:"API_KEY" required:"false"`
	Model   string `envconfig:"MODEL" required:"false"`
	Enabled bool   `envconfig:"ENABLED" default:"true"`
}

// NewsConfig represents news source configuration
type NewsConfig struct {
	Enabled    bool     `envconfig:"NEWS_ENABLED" default:"true"`
	Feeds      []string `envconfig:"NEWS_FEEDS" default:"https://feeds.a.dj.com/rss/RSSMarketsMain.xml,https://www.cnbc.com/id/100003114/device/rss/rss.html"`
	FetchLimit int      `envconfig:"NEWS_FETCH_LIMIT" default:"25"`
}

// KalshiConfig represents the Kalshi REST client configuration
type KalshiConfig struct {
	BaseURL string `envconfig:"KALSHI_BASE_URL" default:"https://api.elections.kalshi.com/trade-api/v2"`
	Enabled bool   `envconfig:"KALSHI_ENABLED" default:"true"`
}

// PolymarketConfig represents the Polymarket client configuration
type PolymarketConfig struct {
	GammaURL      string `envconfig:"POLYMARKET_GAMMA_URL" default:"https://gamma-api.polymarket.com"`
	StreamURL     string `envconfig:"POLYMARKET_STREAM_URL" default:"wss://ws-subscriptions-clob.polymarket.com/ws/market"`
	Enabled       bool   `envconfig:"POLYMARKET_ENABLED" default:"true"`
	StreamEnabled bool   `envconfig:"POLYMARKET_STREAM_ENABLED" default:"false"`
}

// TelegramConfig represents Telegram notifier configuration.
// Optional: without a token the notifier stays disabled and the rest
// of the system runs normally.
type TelegramConfig struct {
	BotToken       string `envconfig:"TELEGRAM_BOT_TOKEN" required:"false"`
	ChatID         int64  `envconfig:"TELEGRAM_CHAT_ID" required:"false"`
	AlertOnSignals bool   `envconfig:"TELEGRAM_ALERT_ON_SIGNALS" default:"true"`
}

// HealthConfig represents the liveness/readiness probe server
type HealthConfig struct {
	Port    string `envconfig:"HEALTH_PORT" default:"8081"`
	Enabled bool   `envconfig:"HEALTH_ENABLED" default:"true"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" required:"false"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be at least 1s")
	}
	if c.Monitor.DedupCapacity < 1 {
		return fmt.Errorf("dedup_capacity must be positive")
	}
	if c.Monitor.MarketsPerHeadline < 1 {
		return fmt.Errorf("markets_per_headline must be positive")
	}

	if c.Trading.MaxPositionSize < 25 {
		return fmt.Errorf("max_position_size must be at least $25")
	}

	if c.Verify.MinSimilarity < 0 || c.Verify.MinSimilarity > 1 {
		return fmt.Errorf("min_similarity must be between 0 and 1")
	}

	if c.News.Enabled && c.News.FetchLimit < 1 {
		return fmt.Errorf("news fetch_limit must be positive")
	}

	// Telegram is optional, but a token without a chat is unusable
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required when bot token is set")
	}

	return nil
}

// GetEnabledAIProviders returns list of enabled AI provider names
func (c *AIConfig) GetEnabledAIProviders() []string {
	var providers []string
	if c.OpenAI.Enabled && c.OpenAI.APIKey != "" {
		providers = append(providers, "openai")
	}
	if c.Claude.Enabled && c.Claude.APIKey != "" {
		providers = append(providers, "claude")
	}
	if c.DeepSeek.Enabled && c.DeepSeek.APIKey != "" {
		providers = append(providers, "deepseek")
	}
	return providers
}

// HasTelegram returns true if the Telegram notifier is configured
func (c *TelegramConfig) HasTelegram() bool {
	return c.BotToken != "" && c.ChatID != 0
}
