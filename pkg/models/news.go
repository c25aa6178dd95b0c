package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewsCategory buckets a headline into the market segments we track
type NewsCategory string

const (
	CategoryFederalReserve NewsCategory = "federal_reserve"
	CategoryCrypto         NewsCategory = "crypto"
	CategoryPolitics       NewsCategory = "politics"
	CategoryInflation      NewsCategory = "inflation"
	CategoryEconomy        NewsCategory = "economy"
	CategoryGeneral        NewsCategory = "general"
)

// Direction is the expected effect of a headline on YES probability
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// NewsItem represents a single headline from any source
type NewsItem struct {
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
}

// NewNewsItem builds a NewsItem with a fresh ID and fetch timestamp
func NewNewsItem(headline, source string, publishedAt time.Time) NewsItem {
	return NewsItem{
		ID:          uuid.NewString(),
		Headline:    headline,
		Source:      source,
		PublishedAt: publishedAt,
		FetchedAt:   time.Now().UTC(),
	}
}

// NewsAnalysis is the classified view of a headline
type NewsAnalysis struct {
	Category   NewsCategory `json:"category"`
	Magnitude  float64      `json:"magnitude"`
	Direction  Direction    `json:"direction"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
	Keywords   []string     `json:"keywords,omitempty"`
}

// ConservativeAnalysis is the fallback when classification fails or
// returns garbage: general category, low magnitude, neutral, low confidence
func ConservativeAnalysis() NewsAnalysis {
	return NewsAnalysis{
		Category:   CategoryGeneral,
		Magnitude:  0.3,
		Direction:  DirectionNeutral,
		Confidence: 0.3,
		Reasoning:  "fallback: classification unavailable",
	}
}

// ParseCategory maps free-form classifier output onto the closed enum
func ParseCategory(s string) NewsCategory {
	switch NewsCategory(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryFederalReserve, CategoryCrypto, CategoryPolitics,
		CategoryInflation, CategoryEconomy:
		return NewsCategory(strings.ToLower(strings.TrimSpace(s)))
	}
	return CategoryGeneral
}

// ParseDirection maps free-form classifier output onto the closed enum
func ParseDirection(s string) Direction {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionPositive:
		return DirectionPositive
	case DirectionNegative:
		return DirectionNegative
	}
	return DirectionNeutral
}

// ParseMagnitude accepts either a number in [0,1] or the textual
// HIGH/MEDIUM/LOW scale some models answer with
func ParseMagnitude(s string) float64 {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return 0.9
	case "MEDIUM":
		return 0.6
	case "LOW":
		return 0.3
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.3
	}
	return ClampUnit(f)
}

// ClampUnit clamps a value into [0,1]
func ClampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
