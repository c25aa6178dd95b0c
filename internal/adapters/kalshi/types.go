package kalshi

// Raw trade-api v2 DTOs. Conversion to models.MarketQuote happens in
// client.go; prices arrive as integer cents, liquidity as cents as well.

type marketsResponse struct {
	Cursor  string         `json:"cursor"`
	Markets []kalshiMarket `json:"markets"`
}

type kalshiMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	RulesPrimary string  `json:"rules_primary"`
	Status       string  `json:"status"`
	CloseTime    string  `json:"close_time"`
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	LastPrice    float64 `json:"last_price"`
	Liquidity    float64 `json:"liquidity"`
	Volume24h    float64 `json:"volume_24h"`
}
