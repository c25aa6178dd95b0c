package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the directional call produced by the fair value engine
type Signal string

const (
	SignalStrongBuy  Signal = "strong_buy"
	SignalBuy        Signal = "buy"
	SignalHold       Signal = "hold"
	SignalSell       Signal = "sell"
	SignalStrongSell Signal = "strong_sell"
)

// IsActionable reports whether the signal suggests opening a position
func (s Signal) IsActionable() bool {
	return s != SignalHold && s != ""
}

// TradeDirection is the position side implied by a signal
type TradeDirection string

const (
	DirectionLong  TradeDirection = "long"
	DirectionShort TradeDirection = "short"
	DirectionHold  TradeDirection = "hold"
)

// FairValueEstimate is the fair value engine output for one market
type FairValueEstimate struct {
	MarketID     string         `json:"market_id"`
	Signal       Signal         `json:"signal"`
	Direction    TradeDirection `json:"direction"`
	Reasoning    string         `json:"reasoning,omitempty"`
	CurrentPrice float64        `json:"current_price"`
	FairValue    float64        `json:"fair_value"`
	Edge         float64        `json:"edge"`
	EdgePercent  float64        `json:"edge_percent"`
	EntryPrice   float64        `json:"entry_price"`
	TargetPrice  float64        `json:"target_price"`
	StopLoss     float64        `json:"stop_loss"`
	RiskReward   float64        `json:"risk_reward"`
	Confidence   float64        `json:"confidence"`
}

// TradeAction is the sizer's verdict on whether to trade at all
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// ContractSide is the side of the binary contract actually bought
type ContractSide string

const (
	SideYes ContractSide = "YES"
	SideNo  ContractSide = "NO"
)

// ConfidenceLevel labels how strong the edge behind a recommendation is
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// TradeRecommendation is the sized, actionable output of the risk module
type TradeRecommendation struct {
	CreatedAt      time.Time       `json:"created_at"`
	ID             string          `json:"id"`
	MarketID       string          `json:"market_id"`
	Question       string          `json:"question,omitempty"`
	Action         TradeAction     `json:"action"`
	Side           ContractSide    `json:"side,omitempty"`
	Confidence     ConfidenceLevel `json:"confidence"`
	Reasoning      string          `json:"reasoning"`
	SuggestedSize  decimal.Decimal `json:"suggested_size"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	EntryPrice     float64         `json:"entry_price"`
	TargetPrice    float64         `json:"target_price"`
	StopLoss       float64         `json:"stop_loss"`
	Contracts      int             `json:"contracts"`
}

// TradeIdea bundles everything the loop learned about one market for
// one headline: the quote, the estimate and the sized recommendation.
type TradeIdea struct {
	News           NewsItem             `json:"news"`
	Analysis       NewsAnalysis         `json:"analysis"`
	Market         MarketQuote          `json:"market"`
	Estimate       FairValueEstimate    `json:"estimate"`
	Recommendation *TradeRecommendation `json:"recommendation,omitempty"`
}
