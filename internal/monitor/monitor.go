// Package monitor runs the polling loop that turns breaking headlines
// into ranked, risk-sized trade ideas.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/internal/dedup"
	"github.com/mkovalev/newsedge/internal/fairvalue"
	"github.com/mkovalev/newsedge/internal/risk"
	"github.com/mkovalev/newsedge/internal/search"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
	"github.com/mkovalev/newsedge/pkg/worker"
)

// State is the observable phase of the monitoring loop.
type State string

const (
	StateIdle          State = "idle"
	StatePolling       State = "polling"
	StateProcessing    State = "processing"
	StateScheduledWait State = "scheduled_wait"
	StateStopped       State = "stopped"
)

const defaultNewsLimit = 25

// NewsSource yields recent headlines. Absence of news is an empty
// slice, not an error.
type NewsSource interface {
	FetchAll(ctx context.Context, limit int) []models.NewsItem
}

// Analyzer classifies a headline into category, magnitude, direction
// and confidence.
type Analyzer interface {
	AnalyzeHeadline(ctx context.Context, item models.NewsItem) (models.NewsAnalysis, error)
}

// MarketSearcher finds markets related to a query across venues.
type MarketSearcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]models.ScoredMarket, error)
}

// Handler receives the loop's output. Both callbacks run synchronously
// inside the tick and must return quickly.
type Handler interface {
	OnNews(ideas []models.TradeIdea)
	OnStatus(line string)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are
// ignored.
type HandlerFuncs struct {
	News   func(ideas []models.TradeIdea)
	Status func(line string)
}

func (h HandlerFuncs) OnNews(ideas []models.TradeIdea) {
	if h.News != nil {
		h.News(ideas)
	}
}

func (h HandlerFuncs) OnStatus(line string) {
	if h.Status != nil {
		h.Status(line)
	}
}

// Deps are the collaborators the loop drives each tick.
type Deps struct {
	News      NewsSource
	Analyzer  Analyzer
	Markets   MarketSearcher
	Sizer     *risk.PositionSizer
	Handler   Handler
	NewsLimit int
}

// Monitor polls for news on a fixed interval: fetch, dedup, classify,
// search markets per surviving headline, estimate fair value per
// market, size the actionable ones and deliver everything through the
// handler. A failed headline or market never fails the tick; a failed
// tick never stops the loop.
type Monitor struct {
	cfg        *config.MonitorConfig
	deps       Deps
	dedup      *dedup.Deduplicator
	engine     *fairvalue.Engine
	categories map[models.NewsCategory]struct{}

	mu     sync.Mutex
	state  State
	runner *worker.PeriodicWorker
	cancel context.CancelFunc
}

// New creates an idle monitor. Call Start to begin polling, or Run for
// a single tick.
func New(cfg *config.MonitorConfig, deps Deps) *Monitor {
	if deps.Handler == nil {
		deps.Handler = HandlerFuncs{}
	}
	if deps.NewsLimit <= 0 {
		deps.NewsLimit = defaultNewsLimit
	}

	categories := make(map[models.NewsCategory]struct{}, len(cfg.Categories))
	for _, c := range cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			categories[models.NewsCategory(c)] = struct{}{}
		}
	}

	return &Monitor{
		cfg:        cfg,
		deps:       deps,
		dedup:      dedup.New(cfg.DedupCapacity),
		engine:     fairvalue.NewEngine(),
		categories: categories,
		state:      StateIdle,
	}
}

// Name implements worker.Worker
func (m *Monitor) Name() string { return "news-monitor" }

// State returns the loop's current phase.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// DedupLen reports how many normalized headlines the recency window
// currently holds.
func (m *Monitor) DedupLen() int {
	return m.dedup.Len()
}

// Start launches the polling loop in the background. The first tick
// runs immediately. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runner != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.runner = worker.RunBackground(runCtx, m, m.cfg.PollInterval)

	logger.Info("📡 Monitor started",
		zap.Duration("poll_interval", m.cfg.PollInterval),
		zap.Int("categories", len(m.categories)))
}

// Stop ends the loop cooperatively: the in-flight tick finishes and its
// callbacks are delivered, then no further ticks are scheduled.
func (m *Monitor) Stop(timeout time.Duration) {
	m.mu.Lock()
	runner, cancel := m.runner, m.cancel
	m.runner, m.cancel = nil, nil
	m.mu.Unlock()

	if runner == nil {
		return
	}

	cancel()
	runner.Stop(timeout)
	m.setState(StateStopped)
}

// Run implements worker.Worker with one full poll tick. Stopping the
// monitor must not cut off work already in flight, so the tick runs on
// a detached context; the adapters bound their own calls with client
// timeouts.
func (m *Monitor) Run(ctx context.Context) error {
	m.tick(context.WithoutCancel(ctx))
	return nil
}

func (m *Monitor) tick(ctx context.Context) {
	started := time.Now()
	m.setState(StatePolling)

	items := m.deps.News.FetchAll(ctx, m.deps.NewsLimit)

	fresh := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if m.dedup.IsNew(item.Headline) {
			fresh = append(fresh, item)
		}
	}

	if len(fresh) == 0 {
		m.setState(StateScheduledWait)
		m.deps.Handler.OnStatus(fmt.Sprintf("nothing new: %d headlines fetched, %d tracked",
			len(items), m.dedup.Len()))
		return
	}

	logger.Info("📰 Fresh headlines",
		zap.Int("fresh", len(fresh)),
		zap.Int("fetched", len(items)))

	var (
		ideas    []models.TradeIdea
		failures []string
	)
	for _, item := range fresh {
		m.setState(StateProcessing)

		out, err := m.processHeadline(ctx, item)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%q: %v", truncate(item.Headline), err))
			logger.Warn("Headline processing failed",
				zap.String("headline", item.Headline),
				zap.Error(err))
			continue
		}
		ideas = append(ideas, out...)
	}

	m.setState(StateScheduledWait)

	// Strongest edges first, across every headline of the tick.
	sort.SliceStable(ideas, func(i, j int) bool {
		return math.Abs(ideas[i].Estimate.Edge) > math.Abs(ideas[j].Estimate.Edge)
	})

	if len(ideas) > 0 {
		m.deps.Handler.OnNews(ideas)
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	switch {
	case len(failures) > 0:
		m.deps.Handler.OnStatus(fmt.Sprintf("tick finished in %s, %d of %d headlines failed: %s",
			elapsed, len(failures), len(fresh), strings.Join(failures, "; ")))
	case len(ideas) == 0:
		m.deps.Handler.OnStatus(fmt.Sprintf("%d new headlines, no tradable markets (%s)",
			len(fresh), elapsed))
	}
}

// processHeadline turns one fresh headline into zero or more trade
// ideas: classify, gate on category, search markets, estimate each.
func (m *Monitor) processHeadline(ctx context.Context, item models.NewsItem) ([]models.TradeIdea, error) {
	analysis := m.classify(ctx, item)

	if !m.wantsCategory(analysis.Category) {
		logger.Debug("Skipping off-category headline",
			zap.String("category", string(analysis.Category)),
			zap.String("headline", item.Headline))
		return nil, nil
	}

	scored, err := m.deps.Markets.Search(ctx, item.Headline, search.Options{
		ActiveOnly: true,
		Limit:      m.cfg.MarketsPerHeadline,
	})
	if err != nil {
		return nil, fmt.Errorf("market search: %w", err)
	}

	ideas := make([]models.TradeIdea, 0, len(scored))
	for _, sm := range scored {
		est, err := m.engine.Estimate(fairvalue.Input{
			MarketID:     sm.Market.ID,
			Question:     sm.Market.Question,
			CurrentPrice: sm.Market.YesPrice,
			Magnitude:    analysis.Magnitude,
			Direction:    analysis.Direction,
			Confidence:   analysis.Confidence,
			Liquidity:    sm.Market.Liquidity,
		})
		if err != nil {
			// One market with bad data never takes down its siblings.
			logger.Warn("Fair value estimate failed",
				zap.String("market_id", sm.Market.ID),
				zap.Error(err))
			continue
		}

		idea := models.TradeIdea{
			News:     item,
			Analysis: analysis,
			Market:   sm.Market,
			Estimate: est,
		}
		if est.Signal.IsActionable() {
			rec := m.deps.Sizer.Size(risk.SizeInput{
				MarketID:    sm.Market.ID,
				Question:    sm.Market.Question,
				Edge:        est.Edge,
				Liquidity:   sm.Market.Liquidity,
				EntryPrice:  est.EntryPrice,
				TargetPrice: est.TargetPrice,
				StopLoss:    est.StopLoss,
			})
			idea.Recommendation = &rec
		}
		ideas = append(ideas, idea)
	}

	return ideas, nil
}

// classify runs the analyzer, degrading to the conservative default
// when even the fallback chain gives up.
func (m *Monitor) classify(ctx context.Context, item models.NewsItem) models.NewsAnalysis {
	analysis, err := m.deps.Analyzer.AnalyzeHeadline(ctx, item)
	if err != nil {
		logger.Warn("Headline classification failed, using conservative default",
			zap.String("headline", item.Headline),
			zap.Error(err))
		return models.ConservativeAnalysis()
	}
	return analysis
}

// wantsCategory applies the category allowlist. An empty allowlist
// accepts everything.
func (m *Monitor) wantsCategory(cat models.NewsCategory) bool {
	if len(m.categories) == 0 {
		return true
	}
	_, ok := m.categories[cat]
	return ok
}

func truncate(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
