package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/ai"
	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/internal/adapters/kalshi"
	"github.com/mkovalev/newsedge/internal/adapters/polymarket"
	"github.com/mkovalev/newsedge/internal/fairvalue"
	"github.com/mkovalev/newsedge/internal/risk"
	"github.com/mkovalev/newsedge/internal/search"
	"github.com/mkovalev/newsedge/internal/verify"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

func main() {
	headline := flag.String("headline", "", "headline to turn into ranked trade signals")
	topic := flag.String("topic", "", "topic for cross-venue verification")
	doVerify := flag.Bool("verify", false, "verify cross-venue market equivalence (requires -topic)")
	limit := flag.Int("limit", 10, "max rows to show")
	timeout := flag.Duration("timeout", 60*time.Second, "overall timeout")
	flag.Parse()

	if err := run(*headline, *topic, *doVerify, *limit, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(headline, topic string, doVerify bool, limit int, timeout time.Duration) error {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch {
	case doVerify:
		if topic == "" {
			return fmt.Errorf("-verify requires -topic")
		}
		return runVerify(ctx, cfg, topic, limit)
	case headline != "":
		return runHeadline(ctx, cfg, headline, limit)
	default:
		flag.Usage()
		return fmt.Errorf("nothing to do: pass -headline or -verify -topic")
	}
}

// runHeadline classifies one headline, searches both venues and prints
// the touched markets ranked by edge.
func runHeadline(ctx context.Context, cfg *config.Config, headline string, limit int) error {
	started := time.Now()

	analyzer := ai.BuildProviders(&cfg.AI)
	searcher := search.NewSearcher(
		kalshi.NewClient(&cfg.Kalshi),
		polymarket.NewClient(&cfg.Polymarket),
	)
	if len(searcher.VenueNames()) == 0 {
		return fmt.Errorf("no market venues enabled")
	}

	item := models.NewNewsItem(headline, "cli", time.Now().UTC())
	analysis, err := analyzer.AnalyzeHeadline(ctx, item)
	if err != nil {
		return fmt.Errorf("analyze headline: %w", err)
	}

	fmt.Printf("Headline: %s\n", headline)
	fmt.Printf("Category %s | magnitude %.2f | direction %s | confidence %.2f\n\n",
		analysis.Category, analysis.Magnitude, analysis.Direction, analysis.Confidence)

	scored, err := searcher.Search(ctx, headline, search.Options{ActiveOnly: true, Limit: limit})
	if err != nil {
		fmt.Printf("Search failed in %s\n", time.Since(started).Round(time.Millisecond))
		return err
	}
	if len(scored) == 0 {
		fmt.Printf("No related markets found in %s\n", time.Since(started).Round(time.Millisecond))
		return nil
	}

	engine := fairvalue.NewEngine()
	sizer := risk.NewPositionSizer(&cfg.Trading)

	type signalRow struct {
		market models.MarketQuote
		score  float64
		est    models.FairValueEstimate
		action string
		size   string
	}

	rows := make([]signalRow, 0, len(scored))
	skipped := 0
	for _, sm := range scored {
		est, err := engine.Estimate(fairvalue.Input{
			MarketID:     sm.Market.ID,
			Question:     sm.Market.Question,
			CurrentPrice: sm.Market.YesPrice,
			Magnitude:    analysis.Magnitude,
			Direction:    analysis.Direction,
			Confidence:   analysis.Confidence,
			Liquidity:    sm.Market.Liquidity,
		})
		if err != nil {
			skipped++
			logger.Warn("Fair value estimate failed",
				zap.String("market_id", sm.Market.ID),
				zap.Error(err))
			continue
		}

		row := signalRow{market: sm.Market, score: sm.Score, est: est, action: string(models.ActionHold), size: "-"}
		if est.Signal.IsActionable() {
			rec := sizer.Size(risk.SizeInput{
				MarketID:    sm.Market.ID,
				Question:    sm.Market.Question,
				Edge:        est.Edge,
				Liquidity:   sm.Market.Liquidity,
				EntryPrice:  est.EntryPrice,
				TargetPrice: est.TargetPrice,
				StopLoss:    est.StopLoss,
			})
			row.action = string(rec.Action)
			if rec.Action != models.ActionHold {
				row.size = fmt.Sprintf("$%.0f", rec.SuggestedSize.InexactFloat64())
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].est.Edge) > math.Abs(rows[j].est.Edge)
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Venue", "Market", "Score", "Price", "Fair", "Edge", "Signal", "Action", "Size")
	for i, row := range rows {
		table.Append(
			fmt.Sprintf("%d", i+1),
			string(row.market.Venue),
			compact(row.market.Question, 48),
			fmt.Sprintf("%.2f", row.score),
			fmt.Sprintf("%.0f%%", row.est.CurrentPrice*100),
			fmt.Sprintf("%.0f%%", row.est.FairValue*100),
			fmt.Sprintf("%+.1f%%", row.est.EdgePercent),
			string(row.est.Signal),
			row.action,
			row.size,
		)
	}
	table.Render()

	summary := fmt.Sprintf("%d markets analyzed", len(rows))
	if skipped > 0 {
		summary += fmt.Sprintf(", %d skipped on invalid data", skipped)
	}
	fmt.Printf("\n%s in %s\n", summary, time.Since(started).Round(time.Millisecond))
	return nil
}

// runVerify matches markets across venues for a topic and prints the
// equivalence verdict for each candidate pair.
func runVerify(ctx context.Context, cfg *config.Config, topic string, limit int) error {
	started := time.Now()

	assessor := ai.BuildProviders(&cfg.AI)
	matcher := verify.NewMatcher(cfg.Verify.MinSimilarity)
	verifier := verify.NewVerifier(assessor)

	// A failed venue leaves its side empty; the matcher then finds no
	// pairs rather than the whole command failing.
	kalshiMarkets, err := kalshi.NewClient(&cfg.Kalshi).SearchMarkets(ctx, topic, 50)
	if err != nil {
		logger.Warn("Kalshi search failed", zap.Error(err))
	}
	polyMarkets, err := polymarket.NewClient(&cfg.Polymarket).SearchMarkets(ctx, topic, 50)
	if err != nil {
		logger.Warn("Polymarket search failed", zap.Error(err))
	}

	fmt.Printf("Topic: %s\n", topic)
	fmt.Printf("Kalshi markets %d | Polymarket markets %d\n\n", len(kalshiMarkets), len(polyMarkets))

	pairs := matcher.FindMatchingPairs(topic, kalshiMarkets, polyMarkets)
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	if len(pairs) == 0 {
		fmt.Printf("No matching pairs found in %s\n", time.Since(started).Round(time.Millisecond))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Kalshi", "Polymarket", "Sim", "Conf", "Worst", "Recommendation", "Arb")

	verified := 0
	for i, pair := range pairs {
		res, err := verifier.Verify(ctx, pair.Kalshi, pair.Polymarket)
		if err != nil {
			table.Render()
			fmt.Printf("\nAborted after %d of %d pairs in %s\n",
				verified, len(pairs), time.Since(started).Round(time.Millisecond))
			return err
		}
		verified++

		worst := string(res.MaxSeverity())
		if worst == "" {
			worst = "-"
		}
		arb := "-"
		if res.Arbitrage != nil {
			arb = fmt.Sprintf("%.1fc via %s", res.Arbitrage.SpreadCents, res.Arbitrage.BuyVenue)
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			compact(pair.Kalshi.Question, 36),
			compact(pair.Polymarket.Question, 36),
			fmt.Sprintf("%.2f", pair.Similarity),
			fmt.Sprintf("%.2f", res.MatchConfidence),
			worst,
			string(res.Recommendation),
			arb,
		)
	}
	table.Render()

	fmt.Printf("\n%d pairs verified in %s\n", verified, time.Since(started).Round(time.Millisecond))
	return nil
}

func compact(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
