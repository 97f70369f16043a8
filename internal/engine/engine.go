// Package engine runs the trading loop: one cycle per poll interval,
// snapshot then edge gate then risk gate then placement. Cycles execute
// inline in the loop goroutine so they can never overlap, and a cycle
// failure never stops the loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/journal"
	"options-pilot/internal/logger"
	"options-pilot/internal/metrics"
	"options-pilot/internal/risk"
	"options-pilot/internal/strategy"
	"options-pilot/internal/trace"
	"options-pilot/internal/types"
)

const (
	defaultPoll        = 60 * time.Second
	defaultCallTimeout = 10 * time.Second
)

// Config holds the loop cadence and the market session window.
type Config struct {
	Poll        time.Duration
	CallTimeout time.Duration
	Timezone    *time.Location
	OpenAt      string // HH:MM exchange local time
	CloseAt     string // HH:MM exchange local time
}

type Engine struct {
	exec     interfaces.Execution
	market   interfaces.MarketData
	edge     interfaces.EdgeGate
	guard    *risk.Guard
	selector *strategy.Selector
	journal  *journal.Journal

	poll        time.Duration
	callTimeout time.Duration
	loc         *time.Location
	openMins    int
	closeMins   int

	mu         sync.Mutex
	paused     bool
	running    bool
	lastUpdate time.Time

	stop     chan struct{}
	stopOnce sync.Once

	now func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg Config, exec interfaces.Execution, market interfaces.MarketData, edge interfaces.EdgeGate,
	guard *risk.Guard, selector *strategy.Selector, jrnl *journal.Journal) (*Engine, error) {

	if cfg.Poll <= 0 {
		cfg.Poll = defaultPoll
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	openMins, err := parseClock(cfg.OpenAt)
	if err != nil {
		return nil, fmt.Errorf("engine: open time: %w", err)
	}
	closeMins, err := parseClock(cfg.CloseAt)
	if err != nil {
		return nil, fmt.Errorf("engine: close time: %w", err)
	}
	if closeMins <= openMins {
		return nil, fmt.Errorf("engine: close %s must be after open %s", cfg.CloseAt, cfg.OpenAt)
	}

	return &Engine{
		exec:        exec,
		market:      market,
		edge:        edge,
		guard:       guard,
		selector:    selector,
		journal:     jrnl,
		poll:        cfg.Poll,
		callTimeout: cfg.CallTimeout,
		loc:         cfg.Timezone,
		openMins:    openMins,
		closeMins:   closeMins,
		stop:        make(chan struct{}),
		now:         time.Now,
	}, nil
}

// Run blocks until the context is canceled or Stop is called. The first
// cycle runs immediately, then one per poll interval.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine: already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info(ctx, "Trading loop started",
		"poll", e.poll.String(), "mode", string(e.selector.Mode()))

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	e.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Trading loop stopped", "reason", "context canceled")
			return ctx.Err()
		case <-e.stop:
			logger.Info(ctx, "Trading loop stopped", "reason", "stop requested")
			return nil
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

// cycle runs one pass of the trading decision chain. All failures are
// contained to the cycle.
func (e *Engine) cycle(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "engine.cycle")
	defer span.End()

	metrics.CyclesTotal.Inc()
	defer func() {
		e.mu.Lock()
		e.lastUpdate = e.now()
		e.mu.Unlock()
	}()

	e.mu.Lock()
	paused := e.paused
	e.mu.Unlock()
	if paused {
		metrics.TradesBlocked.WithLabelValues(metrics.BlockPaused).Inc()
		logger.Debug(ctx, "Cycle skipped", "reason", "paused")
		return
	}

	if !e.marketOpen(e.now()) {
		metrics.TradesBlocked.WithLabelValues(metrics.BlockMarketClosed).Inc()
		logger.Debug(ctx, "Cycle skipped", "reason", "market closed")
		return
	}

	snap, err := withTimeout(ctx, e.callTimeout, func(cctx context.Context) (types.MarketSnapshot, error) {
		return e.market.Snapshot(cctx)
	})
	if err != nil {
		metrics.CycleErrors.WithLabelValues("snapshot").Inc()
		logger.ErrorWithErr(ctx, "Cycle aborted: snapshot failed", err)
		return
	}

	if !e.edge.HasEdge(ctx, snap) {
		metrics.TradesBlocked.WithLabelValues(metrics.BlockNoEdge).Inc()
		e.recordDecision("skip", "no edge", snap)
		return
	}

	balance, err := withTimeout(ctx, e.callTimeout, e.exec.AccountBalance)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("balance").Inc()
		logger.ErrorWithErr(ctx, "Cycle aborted: balance fetch failed", err)
		return
	}
	metrics.AccountBalance.Set(balance)

	tradeRisk := e.selector.PositionSize()
	checks, err := e.guard.CheckLimits(ctx, balance, tradeRisk)
	if err != nil {
		metrics.CycleErrors.WithLabelValues("risk").Inc()
		logger.ErrorWithErr(ctx, "Cycle aborted: risk check failed", err)
		return
	}
	if !checks.AllOK {
		metrics.TradesBlocked.WithLabelValues(metrics.BlockRiskLimit).Inc()
		e.recordDecision("skip", "risk limit", snap)
		return
	}
	e.updateRiskGauge(balance)

	if e.selector.AtDailyCap() {
		metrics.TradesBlocked.WithLabelValues(metrics.BlockDailyCap).Inc()
		e.recordDecision("skip", "daily cap", snap)
		return
	}

	intent, err := e.selector.PlaceTrade(ctx, snap)
	if intent == nil {
		e.recordDecision("skip", "no suitable strategy", snap)
		return
	}

	// A failed attempt still consumed the selector's daily cap, but
	// only an accepted order counts against the guard's trades-today.
	if e.journal != nil {
		if jerr := e.journal.RecordTrade(intent); jerr != nil {
			logger.Warn(ctx, "Journal write failed", "error", jerr.Error())
		}
	}

	if err != nil {
		metrics.TradesFailed.Inc()
		metrics.CycleErrors.WithLabelValues("submit").Inc()
		return
	}
	e.guard.CountTrade()
	metrics.TradesPlaced.WithLabelValues(intent.Symbol, string(intent.Strategy)).Inc()
	metrics.WinStreak.Set(float64(e.selector.WinStreak()))
}

// withTimeout bounds one external call so a hung broker or data feed
// cannot stall the loop.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(cctx)
}

func (e *Engine) recordDecision(action, reason string, snap types.MarketSnapshot) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordDecision(action, reason, snap); err != nil {
		logger.Warn(context.Background(), "Journal write failed", "error", err.Error())
	}
}

func (e *Engine) marketOpen(t time.Time) bool {
	t = t.In(e.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= e.openMins && mins < e.closeMins
}

func (e *Engine) updateRiskGauge(balance float64) {
	limits := e.guard.Limits()
	state := e.guard.Snapshot()
	if balance > 0 && limits.Daily > 0 {
		metrics.RiskUsedPct.Set(state.DailyLoss / (balance * limits.Daily) * 100)
	}
}

// Stop ends the loop after the current cycle. Safe to call more than
// once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// Pause keeps the loop alive but skips trading cycles.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	logger.Info(context.Background(), "Trading paused")
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	logger.Info(context.Background(), "Trading resumed")
}

// SetMode switches the operating mode for subsequent cycles. Win streak
// and daily counters carry over.
func (e *Engine) SetMode(mode types.Mode) error {
	if _, err := types.ParseMode(string(mode)); err != nil {
		return err
	}
	e.selector.SetMode(mode)
	logger.Info(context.Background(), "Mode changed", "mode", string(mode))
	return nil
}

// UpdateRiskSettings swaps the daily and per-trade limits on the live
// guard. Accumulated losses are preserved.
func (e *Engine) UpdateRiskSettings(dailyLimit, perTradeLimit float64) error {
	return e.guard.Reconfigure(dailyLimit, perTradeLimit)
}

// EmergencyExitAll closes every tracked position and force-pauses the
// loop. Returns the number of positions closed.
func (e *Engine) EmergencyExitAll(ctx context.Context) (int, error) {
	e.Pause()
	logger.Risk(ctx, "EMERGENCY_EXIT")

	positions, err := e.exec.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine: emergency exit: %w", err)
	}

	closed := 0
	var errs []error
	for _, p := range positions {
		if p.OrderID == "" {
			continue
		}
		ok, err := e.exec.ClosePosition(ctx, p.OrderID)
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.OrderID, err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}

// RecordResult feeds a terminal trade outcome into streak tracking and
// the loss accumulators.
func (e *Engine) RecordResult(ctx context.Context, result types.TradeResult) {
	e.selector.UpdatePerformance(result)
	e.guard.UpdateLosses(result.Profit)
	metrics.WinStreak.Set(float64(e.selector.WinStreak()))
	if e.journal != nil {
		if err := e.journal.RecordResult(result); err != nil {
			logger.Warn(ctx, "Journal write failed", "error", err.Error())
		}
	}
	logger.Info(ctx, "Trade result recorded",
		"order_id", result.OrderID, "symbol", result.Symbol, "profit", result.Profit)
}

// Stats assembles the dashboard view. Broker failures degrade to zero
// values rather than erroring.
func (e *Engine) Stats(ctx context.Context) types.Stats {
	e.mu.Lock()
	paused := e.paused
	running := e.running
	lastUpdate := e.lastUpdate
	e.mu.Unlock()

	balance, err := withTimeout(ctx, e.callTimeout, e.exec.AccountBalance)
	if err != nil {
		logger.Warn(ctx, "Stats: balance unavailable", "error", err.Error())
	}
	todayPnL, err := withTimeout(ctx, e.callTimeout, e.exec.TodayPnL)
	if err != nil {
		logger.Warn(ctx, "Stats: pnl unavailable", "error", err.Error())
	}
	positions, err := withTimeout(ctx, e.callTimeout, e.exec.Positions)
	if err != nil {
		logger.Warn(ctx, "Stats: positions unavailable", "error", err.Error())
	}

	limits := e.guard.Limits()
	state := e.guard.Snapshot()
	riskUsed := 0.0
	if balance > 0 && limits.Daily > 0 {
		riskUsed = state.DailyLoss / (balance * limits.Daily) * 100
	}

	return types.Stats{
		Mode:        e.selector.Mode(),
		Balance:     balance,
		TodayPnL:    todayPnL,
		Positions:   positions,
		RiskUsedPct: riskUsed,
		WinStreak:   e.selector.WinStreak(),
		DailyTrades: e.selector.DailyTrades(),
		Paused:      paused,
		Running:     running,
		LastUpdate:  lastUpdate,
	}
}

func parseClock(s string) (int, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + min, nil
}
