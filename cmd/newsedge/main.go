package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkovalev/newsedge/internal/adapters/ai"
	"github.com/mkovalev/newsedge/internal/adapters/config"
	"github.com/mkovalev/newsedge/internal/adapters/kalshi"
	"github.com/mkovalev/newsedge/internal/adapters/news"
	"github.com/mkovalev/newsedge/internal/adapters/polymarket"
	"github.com/mkovalev/newsedge/internal/adapters/telegram"
	"github.com/mkovalev/newsedge/internal/health"
	"github.com/mkovalev/newsedge/internal/monitor"
	"github.com/mkovalev/newsedge/internal/risk"
	"github.com/mkovalev/newsedge/internal/search"
	"github.com/mkovalev/newsedge/pkg/logger"
	"github.com/mkovalev/newsedge/pkg/models"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("NewsEdge monitor starting...",
		zap.Duration("poll_interval", cfg.Monitor.PollInterval),
		zap.Strings("categories", cfg.Monitor.Categories),
	)

	analyzer := ai.BuildProviders(&cfg.AI)
	logger.Info("🧠 Analyzer chain ready", zap.String("chain", analyzer.Describe()))

	aggregator := buildNewsAggregator(cfg)

	searcher := search.NewSearcher(
		kalshi.NewClient(&cfg.Kalshi),
		polymarket.NewClient(&cfg.Polymarket),
	)
	venues := searcher.VenueNames()
	if len(venues) == 0 {
		return fmt.Errorf("no market venues enabled")
	}
	logger.Info("🔎 Market search ready", zap.Strings("venues", venues))

	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Warn("telegram notifier unavailable, alerts disabled", zap.Error(err))
		notifier = nil
	}

	stream := buildPriceStream(ctx, cfg)
	if stream != nil {
		defer stream.Close()
	}

	mon := monitor.New(&cfg.Monitor, monitor.Deps{
		News:      aggregator,
		Analyzer:  analyzer,
		Markets:   searcher,
		Sizer:     risk.NewPositionSizer(&cfg.Trading),
		Handler:   buildHandler(notifier, stream),
		NewsLimit: cfg.News.FetchLimit,
	})

	healthServer := startHealthServer(cfg, mon, venues)

	mon.Start(ctx)

	if healthServer != nil {
		healthServer.SetReady(true)
	}

	if err := notifier.SendStatus(fmt.Sprintf("🚀 newsedge monitor up, polling every %s", cfg.Monitor.PollInterval)); err != nil {
		logger.Warn("startup status message failed", zap.Error(err))
	}

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Info("🛑 Shutdown signal received, stopping monitor...")
	if healthServer != nil {
		healthServer.SetReady(false)
	}

	mon.Stop(30 * time.Second)

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Error("health server stop error", zap.Error(err))
		}
		shutdownCancel()
	}

	logger.Info("✅ shutdown completed")

	return nil
}

// initConfig loads .env, reads the environment config and initializes
// the logger
func initConfig() (*config.Config, error) {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// buildNewsAggregator wires the configured news providers. With news
// disabled the aggregator is empty and every tick reports nothing new.
func buildNewsAggregator(cfg *config.Config) *news.Aggregator {
	if !cfg.News.Enabled {
		logger.Info("news system disabled")
		return news.NewAggregator()
	}

	aggregator := news.NewAggregator(news.NewRSSProvider(cfg.News.Feeds, true))

	logger.Info("📰 News system initialized",
		zap.Strings("providers", aggregator.ProviderNames()),
		zap.Int("feeds", len(cfg.News.Feeds)),
	)
	return aggregator
}

// startHealthServer exposes liveness/readiness probes for the daemon.
// Returns nil when disabled; callers guard against that.
func startHealthServer(cfg *config.Config, mon *monitor.Monitor, venues []string) *health.Server {
	if !cfg.Health.Enabled {
		return nil
	}

	healthServer := health.NewServer(cfg.Health.Port, mon, venues)

	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("🩺 Health server started", zap.String("port", cfg.Health.Port))
	return healthServer
}

// buildPriceStream starts the Polymarket CLOB stream when enabled. The
// monitor handler subscribes surfaced markets; updates are logged as
// they arrive.
func buildPriceStream(ctx context.Context, cfg *config.Config) *polymarket.PriceStream {
	if !cfg.Polymarket.Enabled || !cfg.Polymarket.StreamEnabled {
		return nil
	}

	stream := polymarket.NewPriceStream(&cfg.Polymarket)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-stream.Updates():
				logger.Info("📊 Live price",
					zap.String("asset_id", update.AssetID),
					zap.Float64("yes_price", update.YesPrice),
				)
			}
		}
	}()

	logger.Info("📡 Polymarket price stream enabled")
	return stream
}

// buildHandler turns monitor output into logs, telegram alerts and
// stream subscriptions. The notifier may be nil; its methods no-op.
func buildHandler(notifier *telegram.Notifier, stream *polymarket.PriceStream) monitor.Handler {
	return monitor.HandlerFuncs{
		News: func(ideas []models.TradeIdea) {
			var tokens []string
			for _, idea := range ideas {
				logger.Info("💡 Trade idea",
					zap.String("venue", string(idea.Market.Venue)),
					zap.String("question", idea.Market.Question),
					zap.String("signal", string(idea.Estimate.Signal)),
					zap.Float64("edge", idea.Estimate.Edge),
					zap.String("headline", idea.News.Headline),
				)

				if idea.Recommendation != nil {
					if err := notifier.SendSignalAlert(idea); err != nil {
						logger.Warn("telegram alert failed", zap.Error(err))
					}
				}
				if idea.Market.YesTokenID != "" {
					tokens = append(tokens, idea.Market.YesTokenID)
				}
			}

			if stream != nil && len(tokens) > 0 {
				stream.Subscribe(tokens)
			}
		},
		Status: func(line string) {
			logger.Info("Monitor status", zap.String("status", line))
		},
	}
}
