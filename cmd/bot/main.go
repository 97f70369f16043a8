package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"options-pilot/internal/dashboard"
	"options-pilot/internal/journal"
	"options-pilot/internal/logger"
	"options-pilot/internal/marketdata"
	"options-pilot/internal/report"
	"options-pilot/internal/trace"
	"options-pilot/internal/types"
)

func main() {
	if err := initializeSystem(); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}
	loc := marketLocation(cfg)

	jrnl := journal.New(cfg.Journal.Dir, loc)
	compressOldJournals(ctx, jrnl)
	reporter := report.New(cfg.Journal.Dir, cfg.Journal.ReportDir, loc)

	exec, client := initializeBroker(ctx, cfg)
	gate := initializeEdgeGate(ctx, cfg)

	guard, err := initializeGuard(cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize risk guard", err)
		os.Exit(1)
	}
	selector := initializeSelector(cfg, exec)

	primary := cfg.Income.Symbols[0]
	if cfg.Mode == string(types.ModeTurbo) {
		primary = cfg.Turbo.Symbols[0]
	}
	market := marketdata.New(client, primary, cfg.DataSource)

	eng, err := initializeEngine(cfg, loc, exec, market, gate, guard, selector, jrnl)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize engine", err)
		os.Exit(1)
	}

	scheduler, err := initializeScheduler(ctx, cfg, loc, guard, selector, reporter)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize scheduler", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := dashboard.New(cfg.API.Addr, eng)
	go func() {
		if err := srv.Start(); err != nil {
			logger.ErrorWithErr(ctx, "Dashboard server failed", err)
			cancel()
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigc:
		logger.Info(ctx, "Shutting down on signal")
	case err := <-runErr:
		if err != nil {
			logger.ErrorWithErr(ctx, "Trading loop exited", err)
		}
	}

	eng.Stop()
	cancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Dashboard shutdown failed", "error", err.Error())
	}

	if path, err := reporter.SummarizeToday(); err == nil && path != "" {
		logger.Info(ctx, "Daily report written", "path", path)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", err.Error())
	}
}
