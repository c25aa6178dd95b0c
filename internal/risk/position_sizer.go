package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/pkg/models"
)

// DefaultMaxPositionSize is the sizing cap when none is configured.
const DefaultMaxPositionSize = 250.0

// Sizing thresholds. The 0.03 action band is deliberately looser than
// the fair value engine's 0.05 signal band; the two run at different
// pipeline stages and must stay independent.
const (
	actionEdge = 0.03

	smallEdge = 0.05
	midEdge   = 0.10

	thinLiquidity    = 20000.0
	shallowLiquidity = 50000.0
)

var quantum = decimal.NewFromInt(25)

// PositionSizer converts an edge and liquidity into a sized trade
type PositionSizer struct {
	maxPositionSize decimal.Decimal
}

// NewPositionSizer creates new position sizer
func NewPositionSizer(cfg *config.TradingConfig) *PositionSizer {
	maxSize := DefaultMaxPositionSize
	if cfg != nil && cfg.MaxPositionSize > 0 {
		maxSize = cfg.MaxPositionSize
	}
	return &PositionSizer{maxPositionSize: decimal.NewFromFloat(maxSize)}
}

// SizeInput carries one market's edge and prices into the sizer.
// Entry and target are YES-side prices; the sizer converts to the
// traded side itself.
type SizeInput struct {
	MarketID    string
	Question    string
	Edge        float64
	Liquidity   float64
	EntryPrice  float64
	TargetPrice float64
	StopLoss    float64
}

// Size produces a trade recommendation for the given edge. Never
/// errors: a degenerate input yields a HOLD with zero size.
func (ps *PositionSizer) Size(in SizeInput) models.TradeRecommendation {
	rec := models.TradeRecommendation{
		CreatedAt:   time.Now().UTC(),
		ID:          uuid.NewString(),
		MarketID:    in.MarketID,
		Question:    in.Question,
		EntryPrice:  in.EntryPrice,
		TargetPrice: in.TargetPrice,
		StopLoss:    in.StopLoss,
		Confidence:  confidenceLabel(in.Edge),
	}

	switch {
	case in.Edge > actionEdge:
		rec.Action = models.ActionBuy
		rec.Side = models.SideYes
	case in.Edge < -actionEdge:
		rec.Action = models.ActionSell
		rec.Side = models.SideNo
	default:
		rec.Action = models.ActionHold
		rec.SuggestedSize = decimal.Zero
		rec.ExpectedProfit = decimal.Zero
		rec.Reasoning = fmt.Sprintf("edge %+.3f inside hold band (±%.2f), no position", in.Edge, actionEdge)
		return rec
	}

	edgeScale, liqScale := scaleFactors(in.Edge, in.Liquidity)

	size := ps.maxPositionSize.
		Mul(decimal.NewFromFloat(edgeScale)).
		Mul(decimal.NewFromFloat(liqScale))

	// Quantize to $25 steps, then clamp into [$25, max].
	size = size.Div(quantum).Round(0).Mul(quantum)
	if size.LessThan(quantum) {
		size = quantum
	}
	if size.GreaterThan(ps.maxPositionSize) {
		size = ps.maxPositionSize
	}
	rec.SuggestedSize = size

	entry, exit := tradedSide(rec.Side, in.EntryPrice, in.TargetPrice)
	if entry > 0 {
		rec.Contracts = int(size.Div(decimal.NewFromFloat(entry)).IntPart())
	}
	rec.ExpectedProfit = decimal.NewFromInt(int64(rec.Contracts)).
		Mul(decimal.NewFromFloat(exit - entry)).
		Round(2)

	rec.Reasoning = fmt.Sprintf(
		"%s %d contracts (%s side): edge %+.3f, liquidity $%.0f, size $%s (edge x%.2f, liquidity x%.2f)",
		rec.Action, rec.Contracts, rec.Side, in.Edge, in.Liquidity,
		size.StringFixed(0), edgeScale, liqScale)

	return rec
}

// scaleFactors returns the two independent multiplicative haircuts.
func scaleFactors(edge, liquidity float64) (edgeScale, liqScale float64) {
	abs := math.Abs(edge)
	switch {
	case abs < smallEdge:
		edgeScale = 0.5
	case abs < midEdge:
		edgeScale = 0.75
	default:
		edgeScale = 1.0
	}

	switch {
	case liquidity < thinLiquidity:
		liqScale = 0.5
	case liquidity < shallowLiquidity:
		liqScale = 0.75
	default:
		liqScale = 1.0
	}
	return edgeScale, liqScale
}

// tradedSide converts YES-side entry/exit into the side actually
// bought: YES for longs, NO (1-price) for shorts.
func tradedSide(side models.ContractSide, entry, target float64) (float64, float64) {
	if side == models.SideNo {
		return 1 - entry, 1 - target
	}
	return entry, target
}

func confidenceLabel(edge float64) models.ConfidenceLevel {
	abs := math.Abs(edge)
	switch {
	case abs > 0.15:
		return models.ConfidenceHigh
	case abs > 0.08:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
