// Package verify decides whether two listings on different venues
// resolve the same real-world question closely enough to trade.
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

// ArbSpreadCents is the minimum cross-venue price gap, in cents, that
// counts as an arbitrage opportunity on a verified-safe pair.
const ArbSpreadCents = 3.0

// Date gap severities. Listings resolving days apart can settle on
// different outcomes even when the questions read identically.
const (
	dateGapMedium   = 48 * time.Hour
	dateGapHigh     = 7 * 24 * time.Hour
	dateGapCritical = 30 * 24 * time.Hour
)

// Assessor produces the raw semantic comparison for a pair. The
// recommendation mapping is never delegated to it.
type Assessor interface {
	AssessPair(ctx context.Context, a, b models.MarketQuote) (models.PairAssessment, error)
}

// Verifier maps pair assessments onto deterministic recommendations
type Verifier struct {
	assessor Assessor
}

// NewVerifier creates a verifier backed by the given assessor
func NewVerifier(assessor Assessor) *Verifier {
	return &Verifier{assessor: assessor}
}

// Verify compares two listings and returns the trade-safety verdict.
// An assessor failure degrades to a low-confidence result instead of
// failing the call; only context cancellation is returned as an error.
func (v *Verifier) Verify(ctx context.Context, a, b models.MarketQuote) (models.VerificationResult, error) {
	assessment, err := v.assessor.AssessPair(ctx, a, b)
	if err != nil {
		if ctx.Err() != nil {
			return models.VerificationResult{}, ctx.Err()
		}
		logger.Warn("Pair assessment unavailable, degrading to manual review",
			zap.String("kalshi", a.ID),
			zap.String("polymarket", b.ID),
			zap.Error(err))
		assessment = models.PairAssessment{
			Reasoning: fmt.Sprintf("assessment unavailable: %v", err),
		}
	}

	misalignments := assessment.Misalignments
	if gap, ok := dateGapMisalignment(a, b); ok && !hasType(misalignments, models.MisalignResolutionDate) {
		misalignments = append(misalignments, gap)
	}

	result := models.VerificationResult{
		Pair:            models.MarketPair{Kalshi: a, Polymarket: b},
		Misalignments:   misalignments,
		Reasoning:       assessment.Reasoning,
		MatchConfidence: assessment.MatchConfidence,
		IsMatch:         assessment.IsMatch,
	}
	result.Recommendation = classify(result.MatchConfidence, misalignments)

	if result.Recommendation == models.SafeToTrade {
		if spread := models.SpreadCents(a, b); spread > ArbSpreadCents {
			result.Arbitrage = arbitrage(a, b, spread)
		}
	}

	return result, nil
}

// classify derives the recommendation from match confidence and the
// worst misalignment present. This table is the contract of this
// package; keep it in sync with the tests.
func classify(confidence float64, misalignments []models.Misalignment) models.Recommendation {
	worst := maxSeverity(misalignments)

	switch {
	case worst == models.SeverityCritical:
		return models.Avoid
	case confidence < 0.5:
		return models.ManualReview
	case worst == models.SeverityHigh:
		return models.ProceedWithCaution
	case (worst == "" || worst == models.SeverityLow) && confidence >= 0.8:
		return models.SafeToTrade
	default:
		return models.ProceedWithCaution
	}
}

func maxSeverity(misalignments []models.Misalignment) models.Severity {
	var worst models.Severity
	for _, m := range misalignments {
		if m.Severity.Rank() > worst.Rank() {
			worst = m.Severity
		}
	}
	return worst
}

func hasType(misalignments []models.Misalignment, t models.MisalignmentType) bool {
	for _, m := range misalignments {
		if m.Type == t {
			return true
		}
	}
	return false
}

// dateGapMisalignment is a deterministic local check that works even
// with a degraded assessor.
func dateGapMisalignment(a, b models.MarketQuote) (models.Misalignment, bool) {
	if a.EndDate.IsZero() || b.EndDate.IsZero() {
		return models.Misalignment{}, false
	}

	gap := a.EndDate.Sub(b.EndDate)
	if gap < 0 {
		gap = -gap
	}

	var severity models.Severity
	switch {
	case gap > dateGapCritical:
		severity = models.SeverityCritical
	case gap > dateGapHigh:
		severity = models.SeverityHigh
	case gap > dateGapMedium:
		severity = models.SeverityMedium
	default:
		return models.Misalignment{}, false
	}

	return models.Misalignment{
		Type:     models.MisalignResolutionDate,
		Severity: severity,
		Description: fmt.Sprintf("resolution dates differ by %.0f days (%s vs %s)",
			gap.Hours()/24,
			a.EndDate.Format("2006-01-02"),
			b.EndDate.Format("2006-01-02")),
	}, true
}

// arbitrage points the trade at the cheaper venue.
func arbitrage(a, b models.MarketQuote, spread float64) *models.ArbitrageOpportunity {
	buy, sell := a, b
	if b.YesPrice < a.YesPrice {
		buy, sell = b, a
	}
	return &models.ArbitrageOpportunity{
		BuyVenue:    buy.Venue,
		SellVenue:   sell.Venue,
		BuyPrice:    buy.YesPrice,
		SellPrice:   sell.YesPrice,
		SpreadCents: spread,
	}
}
