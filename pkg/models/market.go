package models

import "time"

// Venue identifies the prediction market platform a listing came from
type Venue string

const (
	VenueKalshi     Venue = "kalshi"
	VenuePolymarket Venue = "polymarket"
)

// MarketStatus represents listing lifecycle state
type MarketStatus string

const (
	MarketOpen   MarketStatus = "open"
	MarketClosed MarketStatus = "closed"
)

// MarketQuote is the venue-neutral view of a binary market listing.
// Prices are YES probabilities in [0,1]; liquidity and volume in USD.
type MarketQuote struct {
	EndDate     time.Time    `json:"end_date"`
	Venue       Venue        `json:"venue"`
	ID          string       `json:"id"`
	Ticker      string       `json:"ticker,omitempty"`
	Question    string       `json:"question"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Status      MarketStatus `json:"status"`
	YesPrice    float64      `json:"yes_price"`
	NoPrice     float64      `json:"no_price"`
	Liquidity   float64      `json:"liquidity"`
	Volume24h   float64      `json:"volume_24h"`

	// YesTokenID is the CLOB asset id of the YES outcome on venues that
	// stream prices per token. Empty where the venue has no such id.
	YesTokenID string `json:"yes_token_id,omitempty"`
}

// IsOpen reports whether the listing is still tradeable
func (m MarketQuote) IsOpen() bool {
	return m.Status == MarketOpen && (m.EndDate.IsZero() || m.EndDate.After(time.Now()))
}

// SpreadCents is the absolute YES price gap between two quotes, in cents
func SpreadCents(a, b MarketQuote) float64 {
	d := (a.YesPrice - b.YesPrice) * 100
	if d < 0 {
		return -d
	}
	return d
}

// ScoredMarket pairs a quote with its relevance to a search query
type ScoredMarket struct {
	Market MarketQuote `json:"market"`
	Score  float64     `json:"score"`
}
