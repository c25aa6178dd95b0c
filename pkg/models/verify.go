package models

// MisalignmentType classifies how two listings' resolution criteria differ
type MisalignmentType string

const (
	MisalignResolutionDate   MisalignmentType = "RESOLUTION_DATE"
	MisalignResolutionSource MisalignmentType = "RESOLUTION_SOURCE"
	MisalignScope            MisalignmentType = "SCOPE"
	MisalignThreshold        MisalignmentType = "THRESHOLD"
	MisalignDefinition       MisalignmentType = "DEFINITION"
	MisalignEdgeCase         MisalignmentType = "EDGE_CASE"
)

// Severity grades how badly a misalignment can bite
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so the worst can be selected
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Misalignment is a single difference between two listings
type Misalignment struct {
	Type        MisalignmentType `json:"type"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
}

// Recommendation is the verifier's verdict for a cross-venue pair
type Recommendation string

const (
	SafeToTrade        Recommendation = "SAFE_TO_TRADE"
	ProceedWithCaution Recommendation = "PROCEED_WITH_CAUTION"
	ManualReview       Recommendation = "MANUAL_REVIEW"
	Avoid              Recommendation = "AVOID"
)

// MarketPair is a candidate cross-venue equivalence, pre-verification
type MarketPair struct {
	Kalshi     MarketQuote `json:"kalshi"`
	Polymarket MarketQuote `json:"polymarket"`
	Similarity float64     `json:"similarity"`
}

// LiquiditySum is total liquidity across both legs, used for ranking
func (p MarketPair) LiquiditySum() float64 {
	return p.Kalshi.Liquidity + p.Polymarket.Liquidity
}

// ArbitrageOpportunity describes a price gap on a verified-safe pair
type ArbitrageOpportunity struct {
	BuyVenue    Venue   `json:"buy_venue"`
	SellVenue   Venue   `json:"sell_venue"`
	BuyPrice    float64 `json:"buy_price"`
	SellPrice   float64 `json:"sell_price"`
	SpreadCents float64 `json:"spread_cents"`
}

// PairAssessment is the raw semantic comparison of two listings, as
// produced by a collaborator (LLM or heuristic) before the
// deterministic recommendation mapping is applied.
type PairAssessment struct {
	Misalignments   []Misalignment `json:"misalignments"`
	Reasoning       string         `json:"reasoning,omitempty"`
	MatchConfidence float64        `json:"match_confidence"`
	IsMatch         bool           `json:"is_match"`
}

// VerificationResult is the full equivalence assessment for a pair
type VerificationResult struct {
	Pair            MarketPair            `json:"pair"`
	Misalignments   []Misalignment        `json:"misalignments"`
	Recommendation  Recommendation        `json:"recommendation"`
	Reasoning       string                `json:"reasoning,omitempty"`
	Arbitrage       *ArbitrageOpportunity `json:"arbitrage,omitempty"`
	MatchConfidence float64               `json:"match_confidence"`
	IsMatch         bool                  `json:"is_match"`
}

// MaxSeverity returns the worst severity present, or "" when clean
func (r VerificationResult) MaxSeverity() Severity {
	var worst Severity
	for _, m := range r.Misalignments {
		if m.Severity.Rank() > worst.Rank() {
			worst = m.Severity
		}
	}
	return worst
}
