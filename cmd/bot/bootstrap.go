package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"options-pilot/internal/broker/brokerobs"
	"options-pilot/internal/broker/schwab"
	"options-pilot/internal/edge"
	"options-pilot/internal/engine"
	"options-pilot/internal/interfaces"
	"options-pilot/internal/journal"
	"options-pilot/internal/logger"
	"options-pilot/internal/report"
	"options-pilot/internal/risk"
	"options-pilot/internal/sched"
	"options-pilot/internal/store"
	"options-pilot/internal/strategy"
	"options-pilot/internal/trace"
	"options-pilot/internal/types"

	"github.com/joho/godotenv"
)

// initializeSystem loads the environment and brings up logging and
// tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("PILOT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker builds the Schwab client and wraps it with
// observability middleware. The raw client is returned too because the
// market-data provider needs its quote feed.
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.Execution, *schwab.Client) {
	client := schwab.New(schwab.Params{
		Mode:         cfg.BrokerMode,
		ClientID:     os.Getenv("SCHWAB_CLIENT_ID"),
		ClientSecret: os.Getenv("SCHWAB_CLIENT_SECRET"),
		AccessToken:  os.Getenv("SCHWAB_ACCESS_TOKEN"),
		AccountHash:  os.Getenv("SCHWAB_ACCOUNT_HASH"),
		Capital:      cfg.Capital,
	})

	if cfg.BrokerMode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	if cfg.DataSource == "LIVE" {
		logger.Info(ctx, "Using LIVE market data from Schwab")
	} else {
		logger.Info(ctx, "Using STATIC simulated market data")
	}

	return brokerobs.Wrap(client), client
}

// initializeEdgeGate picks the configured edge evaluation.
func initializeEdgeGate(ctx context.Context, cfg *store.Config) interfaces.EdgeGate {
	if cfg.Edge.Gate == "MODEL" {
		logger.Info(ctx, "Using model edge gate", "weights", cfg.Edge.WeightsPath)
		return edge.NewModelGate(ctx, cfg.Edge.WeightsPath, cfg.Edge.MinProbability)
	}
	logger.Info(ctx, "Using rule edge gate", "default_allow", cfg.Edge.DefaultAllow)
	return edge.NewRuleGate(cfg.Edge.DefaultAllow)
}

func initializeGuard(cfg *store.Config) (*risk.Guard, error) {
	return risk.NewGuard(risk.Limits{
		PerTrade: cfg.Risk.PerTradeLimit,
		Daily:    cfg.Risk.DailyLimit,
		Weekly:   cfg.Risk.WeeklyLimit,
	})
}

func initializeSelector(cfg *store.Config, exec interfaces.Execution) *strategy.Selector {
	mode, _ := types.ParseMode(cfg.Mode)
	return strategy.New(strategy.Config{
		Capital:            cfg.Capital,
		RiskPerTrade:       cfg.RiskPerTrade,
		ProfitTarget:       cfg.ProfitTarget,
		StopLossMultiplier: cfg.StopLossMultiplier,
		Income:             cfg.Income,
		Turbo:              cfg.Turbo,
	}, mode, exec)
}

func initializeEngine(cfg *store.Config, loc *time.Location, exec interfaces.Execution,
	market interfaces.MarketData, gate interfaces.EdgeGate,
	guard *risk.Guard, selector *strategy.Selector, jrnl *journal.Journal) (*engine.Engine, error) {

	return engine.New(engine.Config{
		Poll:     time.Duration(cfg.PollSeconds) * time.Second,
		Timezone: loc,
		OpenAt:   cfg.Market.Open,
		CloseAt:  cfg.Market.Close,
	}, exec, market, gate, guard, selector, jrnl)
}

// initializeScheduler wires the calendar jobs: counter resets at the
// open, weekly reset on Monday, report after the close.
func initializeScheduler(ctx context.Context, cfg *store.Config, loc *time.Location,
	guard *risk.Guard, selector *strategy.Selector, reporter *report.Writer) (*sched.Scheduler, error) {

	return sched.New(loc, cfg.Market.Open, cfg.Market.Close, sched.Jobs{
		DailyReset: func() {
			guard.ResetDaily(ctx)
			selector.ResetDailyCounters(ctx)
		},
		WeeklyReset: func() {
			guard.ResetWeekly(ctx)
		},
		EODReport: func() {
			if path, err := reporter.SummarizeToday(); err != nil {
				logger.ErrorWithErr(ctx, "Daily report failed", err)
			} else if path != "" {
				logger.Info(ctx, "Daily report written", "path", path)
			}
		},
	})
}

// compressOldJournals gzips journal files past the configured retention.
func compressOldJournals(ctx context.Context, jrnl *journal.Journal) {
	if v := os.Getenv("PILOT_JOURNAL_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := jrnl.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old journals", "error", err)
		}
	}
}

func marketLocation(cfg *store.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		logger.Warn(context.Background(), "Unknown market timezone, using UTC",
			"timezone", cfg.Market.Timezone)
		return time.UTC
	}
	return loc
}
