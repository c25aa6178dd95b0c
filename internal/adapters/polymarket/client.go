package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

const (
	// Gamma documents 300 requests per 10s; run well under it
	requestsPerSec = 10
	requestBurst   = 10

	pageSize = 200
	maxPages = 5
)

// Client is a read-only gamma API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	gammaURL   string
	enabled    bool
}

// NewClient creates a Polymarket client from configuration.
func NewClient(cfg *config.PolymarketConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(requestsPerSec, requestBurst),
		gammaURL:   strings.TrimRight(cfg.GammaURL, "/"),
		enabled:    cfg.Enabled && cfg.GammaURL != "",
	}
}

// GetName returns venue name
func (c *Client) GetName() string {
	return string(models.VenuePolymarket)
}

// IsEnabled returns whether the client is configured
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// SearchMarkets pages through active binary markets and returns those whose
// question mentions a query token. Multi-outcome markets and markets without
// a parseable YES price are skipped. An empty query matches everything.
func (c *Client) SearchMarkets(ctx context.Context, query string, limit int) ([]models.MarketQuote, error) {
	if !c.enabled {
		return nil, nil
	}

	tokens := queryTokens(query)
	var quotes []models.MarketQuote

	for page := 0; page < maxPages; page++ {
		markets, err := c.fetchPage(ctx, page*pageSize)
		if err != nil {
			return nil, err
		}

		for _, gm := range markets {
			if !matchesTokens(gm.Question+" "+gm.Description, tokens) {
				continue
			}
			quote, ok := convertMarket(gm)
			if !ok || quote.Status != models.MarketOpen {
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
		if len(markets) < pageSize {
			break
		}
	}

	logger.Debug("Polymarket search complete",
		zap.String("query", query),
		zap.Int("matches", len(quotes)))

	return quotes, nil
}

// fetchPage fetches one page of active markets.
func (c *Client) fetchPage(ctx context.Context, offset int) ([]gammaMarket, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s/markets?active=true&closed=false&limit=%d&offset=%d",
		c.gammaURL, pageSize, offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gamma API error %d: %s", resp.StatusCode, string(body))
	}

	var markets []gammaMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("failed to decode markets response: %w", err)
	}

	return markets, nil
}

// convertMarket maps a gamma market to the venue-neutral quote. Returns
// false for markets that are not binary or have no usable YES price.
func convertMarket(gm gammaMarket) (models.MarketQuote, bool) {
	outcomes := parseStringArray(gm.Outcomes)
	prices := parseStringArray(gm.OutcomePrices)
	tokens := parseStringArray(gm.ClobTokenIDs)

	if len(outcomes) != 2 || len(prices) != 2 {
		return models.MarketQuote{}, false
	}

	yesIdx := 0
	for i, outcome := range outcomes {
		if strings.EqualFold(outcome, "yes") {
			yesIdx = i
			break
		}
	}

	yesPrice, err := strconv.ParseFloat(prices[yesIdx], 64)
	if err != nil || yesPrice <= 0 || yesPrice >= 1 {
		return models.MarketQuote{}, false
	}
	noPrice, err := strconv.ParseFloat(prices[1-yesIdx], 64)
	if err != nil {
		noPrice = 1 - yesPrice
	}

	id := gm.ConditionID
	if id == "" {
		id = gm.ID
	}

	status := models.MarketClosed
	if gm.Active && !gm.Closed {
		status = models.MarketOpen
	}

	yesTokenID := ""
	if len(tokens) > yesIdx {
		yesTokenID = tokens[yesIdx]
	}

	liquidity, _ := gm.Liquidity.Float64()
	volume24h, _ := gm.Volume24h.Float64()

	return models.MarketQuote{
		Venue:       models.VenuePolymarket,
		ID:          id,
		Ticker:      gm.Slug,
		Question:    gm.Question,
		Description: gm.Description,
		URL:         "https://polymarket.com/market/" + gm.Slug,
		YesTokenID:  yesTokenID,
		Status:      status,
		EndDate:     parseEndDate(gm),
		YesPrice:    yesPrice,
		NoPrice:     noPrice,
		Liquidity:   liquidity,
		Volume24h:   volume24h,
	}, true
}

// parseEndDate tries the date formats gamma is known to emit.
func parseEndDate(gm gammaMarket) time.Time {
	for _, raw := range []string{gm.EndDateISO, gm.EndDate} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
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
