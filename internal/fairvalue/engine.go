// Package fairvalue turns a classified headline and a market quote into
// a fair value estimate with a trade signal.
package fairvalue

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

// ErrInvalidInput marks caller-supplied values outside the contract.
// It is the only error class this package surfaces.
var ErrInvalidInput = errors.New("invalid input")

const (
	// MinLiquidity is the floor below which every estimate is a hold.
	MinLiquidity = 10000.0

	priceFloor = 0.01
	priceCeil  = 0.99
)

// Input carries everything the engine needs for one market.
type Input struct {
	MarketID     string
	Question     string
	CurrentPrice float64
	Magnitude    float64
	Direction    models.Direction
	Confidence   float64
	Liquidity    float64
}

// Engine estimates fair value from news impact. Stateless and safe for
// concurrent use.
type Engine struct{}

// NewEngine creates a fair value engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Estimate computes fair value, edge and signal for one market.
// Prices are rounded to the cent and percentages to one decimal place
// once, on the returned struct; classification uses exact arithmetic.
func (e *Engine) Estimate(in Input) (models.FairValueEstimate, error) {
	if err := validate(in); err != nil {
		return models.FairValueEstimate{}, err
	}

	shift := baseShift(in.Magnitude)
	switch in.Direction {
	case models.DirectionNegative:
		shift = -shift
	case models.DirectionNeutral:
		shift *= 0.2
	}
	shift *= in.Confidence

	fair := clamp(in.CurrentPrice+shift, priceFloor, priceCeil)
	edge := fair - in.CurrentPrice

	edgePercent := 0.0
	if in.CurrentPrice > 0 {
		edgePercent = edge / in.CurrentPrice * 100
	}

	signal, direction := classify(edge, in.Confidence, in.Liquidity)
	entry, target, stop := tradePrices(in.CurrentPrice, fair, edge)

	riskReward := 0.0
	if denom := math.Abs(entry - stop); denom > 0 {
		riskReward = math.Abs(target-entry) / denom
	}

	est := models.FairValueEstimate{
		MarketID:     in.MarketID,
		Signal:       signal,
		Direction:    direction,
		CurrentPrice: round2(in.CurrentPrice),
		FairValue:    round2(fair),
		Edge:         round2(edge),
		EdgePercent:  round1(edgePercent),
		EntryPrice:   round2(entry),
		TargetPrice:  round2(target),
		StopLoss:     round2(stop),
		RiskReward:   round2(riskReward),
		Confidence:   in.Confidence,
		Reasoning: fmt.Sprintf("magnitude %.2f %s news at confidence %.2f shifts price by %+.4f",
			in.Magnitude, in.Direction, in.Confidence, shift),
	}

	logger.Debug("Fair value estimated",
		zap.String("market_id", in.MarketID),
		zap.Float64("current", in.CurrentPrice),
		zap.Float64("fair", fair),
		zap.String("signal", string(signal)))

	return est, nil
}

func validate(in Input) error {
	if !inUnit(in.CurrentPrice) {
		return fmt.Errorf("%w: current price %.4f outside [0,1]", ErrInvalidInput, in.CurrentPrice)
	}
	if !inUnit(in.Magnitude) {
		return fmt.Errorf("%w: magnitude %.4f outside [0,1]", ErrInvalidInput, in.Magnitude)
	}
	if !inUnit(in.Confidence) {
		return fmt.Errorf("%w: confidence %.4f outside [0,1]", ErrInvalidInput, in.Confidence)
	}
	if !(in.Liquidity >= 0) {
		return fmt.Errorf("%w: liquidity %.2f negative", ErrInvalidInput, in.Liquidity)
	}
	switch in.Direction {
	case models.DirectionPositive, models.DirectionNegative, models.DirectionNeutral:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, in.Direction)
	}
	return nil
}

// inUnit is written in positive form so NaN fails the check.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// baseShift maps news magnitude to an unsigned price shift.
func baseShift(magnitude float64) float64 {
	switch {
	case magnitude > 0.8:
		return 0.15 + (magnitude-0.8)*0.5
	case magnitude > 0.5:
		return 0.05 + (magnitude-0.5)*0.333
	default:
		return magnitude * 0.1
	}
}

// classify applies the signal thresholds in priority order. The
// liquidity floor beats everything, then low confidence, then edge
// size paired with confidence.
func classify(edge, confidence, liquidity float64) (models.Signal, models.TradeDirection) {
	if liquidity < MinLiquidity {
		return models.SignalHold, models.DirectionHold
	}
	if confidence < 0.5 {
		return models.SignalHold, models.DirectionHold
	}

	abs := math.Abs(edge)
	switch {
	case abs > 0.15 && confidence > 0.7:
		if edge > 0 {
			return models.SignalStrongBuy, models.DirectionLong
		}
		return models.SignalStrongSell, models.DirectionShort
	case abs > 0.08 && confidence > 0.6:
		if edge > 0 {
			return models.SignalBuy, models.DirectionLong
		}
		return models.SignalSell, models.DirectionShort
	case abs > 0.05:
		if edge > 0 {
			return models.SignalBuy, models.DirectionLong
		}
		return models.SignalSell, models.DirectionShort
	default:
		return models.SignalHold, models.DirectionHold
	}
}

// tradePrices derives entry, target and stop from the edge sign. They
// are computed for any nonzero edge so the sizer can act on edges the
// signal classifier alone would sit out.
func tradePrices(current, fair, edge float64) (entry, target, stop float64) {
	switch {
	case edge > 0:
		entry = math.Min(current+0.02, fair-0.03)
		target = fair
		stop = current - 0.10
	case edge < 0:
		entry = math.Max(current-0.02, fair+0.03)
		target = fair
		stop = current + 0.10
	}
	return entry, target, stop
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
