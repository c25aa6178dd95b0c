package polymarket

import "encoding/json"

// Raw gamma API DTOs. Gamma returns several numeric fields as JSON strings
// and nests the outcome arrays as JSON-encoded strings; json.Number and
// parseStringArray absorb both quirks. Conversion to models.MarketQuote
// happens in client.go.

type gammaMarket struct {
	ID            string      `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Description   string      `json:"description"`
	Slug          string      `json:"slug"`
	EndDate       string      `json:"endDate"`
	EndDateISO    string      `json:"endDateIso"`
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	ClobTokenIDs  string      `json:"clobTokenIds"`
	Liquidity     json.Number `json:"liquidity"`
	Volume24h     json.Number `json:"volume24hr"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// parseStringArray decodes gamma's twice-encoded arrays, e.g.
// "[\"0.55\", \"0.45\"]".
func parseStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
