package verify

import (
	"sort"

	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/textsim"
)

// DefaultMinSimilarity is the pair similarity floor when none is set.
const DefaultMinSimilarity = 0.6

// Matcher pairs up listings from the two venues by question similarity
type Matcher struct {
	minSimilarity float64
}

// NewMatcher creates a matcher. Non-positive minSimilarity falls back
// to DefaultMinSimilarity.
func NewMatcher(minSimilarity float64) *Matcher {
	if minSimilarity <= 0 {
		minSimilarity = DefaultMinSimilarity
	}
	return &Matcher{minSimilarity: minSimilarity}
}

// candidate keeps the Kalshi list position so ties rank Kalshi-first.
type candidate struct {
	pair models.MarketPair
	kIdx int
}

// FindMatchingPairs produces candidate cross-venue pairs for a topic,
// scored by question similarity and ranked best-first. Ties break by
// Kalshi list order, then by descending combined liquidity.
func (m *Matcher) FindMatchingPairs(topic string, kalshi, polymarket []models.MarketQuote) []models.MarketPair {
	var cands []candidate

	for ki, k := range kalshi {
		if topic != "" && textsim.Jaccard(k.Question, topic) == 0 {
			continue
		}
		for _, p := range polymarket {
			if topic != "" && textsim.Jaccard(p.Question, topic) == 0 {
				continue
			}
			score := textsim.Jaccard(k.Question, p.Question)
			if score < m.minSimilarity {
				continue
			}
			cands = append(cands, candidate{
				pair: models.MarketPair{Kalshi: k, Polymarket: p, Similarity: score},
				kIdx: ki,
			})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.pair.Similarity != b.pair.Similarity {
			return a.pair.Similarity > b.pair.Similarity
		}
		if a.kIdx != b.kIdx {
			return a.kIdx < b.kIdx
		}
		return a.pair.LiquiditySum() > b.pair.LiquiditySum()
	})

	pairs := make([]models.MarketPair, len(cands))
	for i, c := range cands {
		pairs[i] = c.pair
	}
	return pairs
}
