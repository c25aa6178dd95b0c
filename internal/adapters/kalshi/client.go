package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

const (
	// Basic tier allows 10 reads/s; run at half to leave headroom
	requestsPerSec = 5
	requestBurst   = 5

	pageSize = 200
	maxPages = 5
)

// Client is a read-only trade-api v2 client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	enabled    bool
}

// NewClient creates a Kalshi client from configuration.
func NewClient(cfg *config.KalshiConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(requestsPerSec, requestBurst),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		enabled:    cfg.Enabled && cfg.BaseURL != "",
	}
}

// GetName returns venue name
func (c *Client) GetName() string {
	return string(models.VenueKalshi)
}

// IsEnabled returns whether the client is configured
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// SearchMarkets pages through open markets and returns those whose title
// mentions a query token. Matching here is recall-oriented keyword
// containment; relevance ranking belongs to the caller. An empty query
// matches everything.
func (c *Client) SearchMarkets(ctx context.Context, query string, limit int) ([]models.MarketQuote, error) {
	if !c.enabled {
		return nil, nil
	}

	tokens := queryTokens(query)
	var quotes []models.MarketQuote
	cursor := ""

	for page := 0; page < maxPages; page++ {
		resp, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		for _, m := range resp.Markets {
			if !matchesTokens(m.Title+" "+m.Subtitle+" "+m.RulesPrimary, tokens) {
				continue
			}
			quote := convertMarket(m)
			if quote.Status != models.MarketOpen {
				continue
			}
			quotes = append(quotes, quote)
			if limit > 0 && len(quotes) >= limit {
				break
			}
		}

		if limit > 0 && len(quotes) >= limit {
			break
		}
		cursor = resp.Cursor
		if cursor == "" {
			break
		}
	}

	logger.Debug("Kalshi search complete",
		zap.String("query", query),
		zap.Int("matches", len(quotes)))

	return quotes, nil
}

// fetchPage fetches one page of open markets.
func (c *Client) fetchPage(ctx context.Context, cursor string) (marketsResponse, error) {
	var out marketsResponse

	if err := c.limiter.Wait(ctx); err != nil {
		return out, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/markets?status=open&limit=%d", c.baseURL, pageSize)
	if cursor != "" {
		reqURL += "&cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return out, fmt.Errorf("kalshi API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode markets response: %w", err)
	}

	return out, nil
}

// convertMarket maps a raw market to the venue-neutral quote. Prices and
// liquidity arrive in cents; the YES price prefers the bid/ask midpoint and
// falls back to the last trade.
func convertMarket(m kalshiMarket) models.MarketQuote {
	yesCents := m.LastPrice
	if m.YesBid > 0 && m.YesAsk > 0 {
		yesCents = (m.YesBid + m.YesAsk) / 2
	}

	status := models.MarketClosed
	if m.Status == "open" || m.Status == "active" {
		status = models.MarketOpen
	}

	var endDate time.Time
	if m.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
			endDate = t.UTC()
		}
	}

	question := m.Title
	if m.Subtitle != "" {
		question = m.Title + " (" + m.Subtitle + ")"
	}

	return models.MarketQuote{
		Venue:       models.VenueKalshi,
		ID:          m.Ticker,
		Ticker:      m.Ticker,
		Question:    question,
		Description: m.RulesPrimary,
		URL:         "https://kalshi.com/markets/" + strings.ToLower(m.EventTicker),
		Status:      status,
		EndDate:     endDate,
		YesPrice:    yesCents / 100,
		NoPrice:     (100 - yesCents) / 100,
		Liquidity:   m.Liquidity / 100,
		Volume24h:   m.Volume24h,
	}
}

// queryTokens splits a query into lowercase keyword tokens, dropping
// short words and common fillers.
func queryTokens(query string) []string {
	stopwords := map[string]bool{
		"the": true, "and": true, "for": true, "will": true,
		"with": true, "that": true, "this": true, "have": true,
	}

	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if len(word) < 3 || stopwords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// matchesTokens reports whether any token appears in the haystack.
// No tokens means no filter.
func matchesTokens(haystack string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack = strings.ToLower(haystack)
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			return true
		}
	}
	return false
}
