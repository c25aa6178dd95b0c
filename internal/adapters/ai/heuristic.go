package ai

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/textsim"
)

const (
	// Keyword tables top out well below remote model confidence, so a
	// heuristic-only classification can never drive a strong signal
	heuristicMaxConfidence = 0.6

	// Question similarity above which two listings count as a match
	matchSimilarity = 0.5
)

// categoryOrder fixes tie-breaking between equally scored categories
var categoryOrder = []models.NewsCategory{
	models.CategoryFederalReserve,
	models.CategoryInflation,
	models.CategoryCrypto,
	models.CategoryPolitics,
	models.CategoryEconomy,
}

var numberRe = regexp.MustCompile(`\d[\d,.]*`)

// HeuristicProvider classifies headlines with keyword tables only. It
// needs no credentials or network and is the terminal fallback when no
// remote provider answers.
type HeuristicProvider struct {
	categories map[models.NewsCategory][]string
	positive   map[string]float64
	negative   map[string]float64
	magnitude  map[string]float64
}

// NewHeuristicProvider creates new keyword-based provider
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{
		categories: buildCategoryKeywords(),
		positive:   buildPositiveWords(),
		negative:   buildNegativeWords(),
		magnitude:  buildMagnitudeCues(),
	}
}

func (h *HeuristicProvider) GetName() string {
	return "heuristic"
}

func (h *HeuristicProvider) IsEnabled() bool {
	return true
}

// AnalyzeHeadline classifies a headline from keyword tables alone
func (h *HeuristicProvider) AnalyzeHeadline(_ context.Context, item models.NewsItem) (models.NewsAnalysis, error) {
	text := strings.ToLower(item.Headline + " " + item.Summary)
	words := tokenize(text)

	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	category, catHits, catTerms := h.classifyCategory(text, wordSet)
	direction, net, dirMatches := h.scoreDirection(words)
	magnitude := h.scoreMagnitude(text)

	confidence := 0.3
	if catHits > 0 {
		confidence += 0.1
	}
	if catHits > 1 {
		confidence += 0.1
	}
	if dirMatches > 0 {
		confidence += 0.05
	}
	if dirMatches > 1 {
		confidence += 0.05
	}
	if confidence > heuristicMaxConfidence {
		confidence = heuristicMaxConfidence
	}

	return models.NewsAnalysis{
		Category:   category,
		Magnitude:  magnitude,
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("keyword match: %d %s term(s), tone %+.1f", catHits, category, net),
		Keywords:   catTerms,
	}, nil
}

// AssessPair compares two listings without a model: question overlap
// plus a numeric-level check
func (h *HeuristicProvider) AssessPair(_ context.Context, a, b models.MarketQuote) (models.PairAssessment, error) {
	sim := textsim.Jaccard(a.Question, b.Question)

	assessment := models.PairAssessment{
		IsMatch:         sim >= matchSimilarity,
		MatchConfidence: sim,
		Reasoning:       fmt.Sprintf("question similarity %.2f", sim),
	}

	// Differing numbers in otherwise similar questions usually mean
	// different strike levels or dates
	if assessment.IsMatch && !sameNumbers(a.Question, b.Question) {
		assessment.Misalignments = append(assessment.Misalignments, models.Misalignment{
			Type:        models.MisalignThreshold,
			Severity:    models.SeverityHigh,
			Description: "questions reference different numeric levels",
		})
	}

	return assessment, nil
}

func (h *HeuristicProvider) classifyCategory(text string, wordSet map[string]struct{}) (models.NewsCategory, int, []string) {
	best := models.CategoryGeneral
	bestHits := 0
	var bestTerms []string

	for _, category := range categoryOrder {
		hits := 0
		var terms []string
		for _, kw := range h.categories[category] {
			if containsKeyword(text, wordSet, kw) {
				hits++
				if len(terms) < 5 {
					terms = append(terms, kw)
				}
			}
		}
		if hits > bestHits {
			best = category
			bestHits = hits
			bestTerms = terms
		}
	}

	return best, bestHits, bestTerms
}

func (h *HeuristicProvider) scoreDirection(words []string) (models.Direction, float64, int) {
	var score float64
	matchCount := 0

	for _, word := range words {
		if weight, ok := h.positive[word]; ok {
			score += weight
			matchCount++
		}
		if weight, ok := h.negative[word]; ok {
			score -= weight
			matchCount++
		}
	}

	switch {
	case matchCount == 0 || math.Abs(score) < 0.3:
		return models.DirectionNeutral, score, matchCount
	case score > 0:
		return models.DirectionPositive, score, matchCount
	default:
		return models.DirectionNegative, score, matchCount
	}
}

// scoreMagnitude starts from a low base and lets the strongest cue win
func (h *HeuristicProvider) scoreMagnitude(text string) float64 {
	magnitude := 0.3
	for cue, value := range h.magnitude {
		if strings.Contains(text, cue) && value > magnitude {
			magnitude = value
		}
	}
	return magnitude
}

// containsKeyword matches phrases by substring and single words by
// whole-token lookup, so "fed" does not fire on "confederate"
func containsKeyword(text string, wordSet map[string]struct{}, kw string) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(text, kw)
	}
	_, ok := wordSet[kw]
	return ok
}

func tokenize(text string) []string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = strings.Trim(w, ".,!?;:\"'()")
	}
	return words
}

// sameNumbers reports whether both texts mention the same set of
// numbers, commas stripped
func sameNumbers(a, b string) bool {
	setA := numberSet(a)
	setB := numberSet(b)

	if len(setA) != len(setB) {
		return false
	}
	for n := range setA {
		if _, ok := setB[n]; !ok {
			return false
		}
	}
	return true
}

func numberSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, n := range numberRe.FindAllString(s, -1) {
		n = strings.Trim(strings.ReplaceAll(n, ",", ""), ".")
		set[n] = struct{}{}
	}
	return set
}

// buildCategoryKeywords returns recognition terms per market segment
func buildCategoryKeywords() map[models.NewsCategory][]string {
	return map[models.NewsCategory][]string{
		models.CategoryFederalReserve: {
			"fed", "fomc", "federal reserve", "powell",
			"rate hike", "rate cut", "interest rate", "interest rates",
			"basis points", "monetary policy", "quantitative easing", "dot plot",
		},
		models.CategoryInflation: {
			"inflation", "cpi", "pce", "consumer prices", "price index",
			"deflation", "disinflation", "cost of living", "core prices",
		},
		models.CategoryCrypto: {
			"bitcoin", "btc", "ethereum", "eth", "crypto", "cryptocurrency",
			"blockchain", "stablecoin", "etf", "binance", "coinbase", "solana",
			"defi", "halving",
		},
		models.CategoryPolitics: {
			"election", "senate", "congress", "president", "white house",
			"legislation", "impeachment", "supreme court", "governor",
			"campaign", "ballot", "veto", "nominee", "cabinet",
		},
		models.CategoryEconomy: {
			"gdp", "unemployment", "jobs report", "payrolls", "recession",
			"economic growth", "housing starts", "retail sales",
			"consumer confidence", "trade deficit", "manufacturing", "tariff",
		},
	}
}

// buildPositiveWords returns headline words that push YES probability up
func buildPositiveWords() map[string]float64 {
	return map[string]float64{
		"rally":        0.9,
		"rallies":      0.9,
		"surge":        0.8,
		"surges":       0.8,
		"soar":         0.8,
		"soars":        0.8,
		"jump":         0.7,
		"jumps":        0.7,
		"approval":     0.7,
		"approved":     0.7,
		"approves":     0.7,
		"breakthrough": 0.6,
		"beat":         0.6,
		"beats":        0.6,
		"exceed":       0.6,
		"exceeds":      0.6,
		"record":       0.6,
		"win":          0.6,
		"wins":         0.6,
		"improves":     0.6,
		"gain":         0.6,
		"gains":        0.6,
		"rise":         0.5,
		"rises":        0.5,
		"growth":       0.5,
		"strong":       0.5,
		"cools":        0.5,
		"eases":        0.5,
		"optimism":     0.5,
		"upbeat":       0.5,
	}
}

// buildNegativeWords returns headline words that push YES probability down
func buildNegativeWords() map[string]float64 {
	return map[string]float64{
		"crash":      1.0,
		"crashes":    1.0,
		"fraud":      1.0,
		"hack":       1.0,
		"hacked":     1.0,
		"collapse":   0.9,
		"collapses":  0.9,
		"plunge":     0.8,
		"plunges":    0.8,
		"default":    0.8,
		"defaults":   0.8,
		"crisis":     0.8,
		"panic":      0.8,
		"ban":        0.8,
		"bans":       0.8,
		"war":        0.8,
		"recession":  0.7,
		"lawsuit":    0.7,
		"crackdown":  0.7,
		"layoffs":    0.7,
		"shutdown":   0.7,
		"tumble":     0.7,
		"tumbles":    0.7,
		"reject":     0.7,
		"rejected":   0.7,
		"rejects":    0.7,
		"selloff":    0.7,
		"emergency":  0.6,
		"shock":      0.6,
		"fall":       0.6,
		"falls":      0.6,
		"drop":       0.6,
		"drops":      0.6,
		"decline":    0.6,
		"declines":   0.6,
		"miss":       0.6,
		"misses":     0.6,
		"sink":       0.6,
		"sinks":      0.6,
		"slump":      0.6,
		"slumps":     0.6,
		"fears":      0.6,
		"weak":       0.5,
		"worries":    0.5,
		"downgrade":  0.5,
		"downgrades": 0.5,
	}
}

// buildMagnitudeCues returns phrases that mark a headline as market-moving
func buildMagnitudeCues() map[string]float64 {
	return map[string]float64{
		"emergency":       0.9,
		"bank failure":    0.9,
		"unprecedented":   0.85,
		"invasion":        0.85,
		"crash":           0.85,
		"collapse":        0.85,
		"75 basis points": 0.85,
		"historic":        0.8,
		"crisis":          0.8,
		"bailout":         0.8,
		"war":             0.8,
		"defaults":        0.8,
		"shock":           0.8,
		"impeachment":     0.75,
		"resigns":         0.75,
		"50 basis points": 0.75,
		"unexpectedly":    0.7,
		"unexpected":      0.7,
		"surprise":        0.7,
		"rate hike":       0.7,
		"rate cut":        0.7,
		"resignation":     0.7,
		"all-time":        0.65,
		"record":          0.6,
		"breaking":        0.6,
	}
}
