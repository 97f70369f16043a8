package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"options-pilot/internal/logger"
)

// ErrInvalidBalance is returned when a limit check is asked to divide by
// a zero or negative account balance.
var ErrInvalidBalance = errors.New("risk: account balance must be positive")

// Limits holds the loss thresholds as fractions of account balance.
// Immutable after construction except through Reconfigure.
type Limits struct {
	PerTrade float64
	Daily    float64
	Weekly   float64
}

// Checks is the outcome of a pre-trade limit evaluation. AllOK is the
// conjunction of the three individual checks.
type Checks struct {
	PerTradeOK bool `json:"per_trade_ok"`
	DailyOK    bool `json:"daily_ok"`
	WeeklyOK   bool `json:"weekly_ok"`
	AllOK      bool `json:"all_ok"`
}

// State is a point-in-time copy of the guard's accumulators, for the
// dashboard and journal.
type State struct {
	DailyLoss   float64   `json:"daily_loss"`
	WeeklyLoss  float64   `json:"weekly_loss"`
	TradesToday int       `json:"trades_today"`
	LastReset   time.Time `json:"last_reset"`
}

// Guard tracks per-trade, daily and weekly loss limits. Loss
// accumulators are monotonic within their period: winning trades never
// reduce them. The guard is safe for concurrent use by the trading loop
// and the control API.
type Guard struct {
	mu          sync.Mutex
	limits      Limits
	dailyLoss   float64
	weeklyLoss  float64
	tradesToday int
	lastReset   time.Time
}

func NewGuard(limits Limits) (*Guard, error) {
	for name, v := range map[string]float64{
		"per-trade": limits.PerTrade,
		"daily":     limits.Daily,
		"weekly":    limits.Weekly,
	} {
		if v <= 0 || v > 1 {
			return nil, fmt.Errorf("risk: %s limit must be in (0,1], got %.4f", name, v)
		}
	}
	return &Guard{limits: limits, lastReset: time.Now()}, nil
}

// CheckLimits evaluates a proposed trade risk against all three limits.
// The check is advisory pre-trade: it does not guarantee that a fill
// cannot push losses past a limit.
func (g *Guard) CheckLimits(ctx context.Context, accountBalance, tradeRisk float64) (Checks, error) {
	if accountBalance <= 0 {
		return Checks{}, fmt.Errorf("%w: got %.2f", ErrInvalidBalance, accountBalance)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	checks := Checks{
		PerTradeOK: tradeRisk/accountBalance <= g.limits.PerTrade,
		DailyOK:    (g.dailyLoss+tradeRisk)/accountBalance <= g.limits.Daily,
		WeeklyOK:   (g.weeklyLoss+tradeRisk)/accountBalance <= g.limits.Weekly,
	}
	checks.AllOK = checks.PerTradeOK && checks.DailyOK && checks.WeeklyOK

	if !checks.AllOK {
		logger.Risk(ctx, "LIMIT_BREACH",
			"per_trade_ok", checks.PerTradeOK,
			"daily_ok", checks.DailyOK,
			"weekly_ok", checks.WeeklyOK,
			"trade_risk", tradeRisk,
			"balance", accountBalance,
			"daily_loss", g.dailyLoss,
			"weekly_loss", g.weeklyLoss,
		)
	}

	return checks, nil
}

// UpdateLosses adds the magnitude of a losing trade to both period
// accumulators. Non-negative pnl is a no-op.
func (g *Guard) UpdateLosses(pnl float64) {
	if pnl >= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLoss += math.Abs(pnl)
	g.weeklyLoss += math.Abs(pnl)
}

// ResetDaily zeros the daily loss accumulator and the trades-today
// counter. Expected to run at each market open.
func (g *Guard) ResetDaily(ctx context.Context) {
	g.mu.Lock()
	g.dailyLoss = 0
	g.tradesToday = 0
	g.lastReset = time.Now()
	g.mu.Unlock()
	logger.Info(ctx, "Daily risk counters reset")
}

// ResetWeekly zeros the weekly loss accumulator. Expected to run at each
// week boundary.
func (g *Guard) ResetWeekly(ctx context.Context) {
	g.mu.Lock()
	g.weeklyLoss = 0
	g.mu.Unlock()
	logger.Info(ctx, "Weekly risk counters reset")
}

// CountTrade increments the trades-today counter.
func (g *Guard) CountTrade() {
	g.mu.Lock()
	g.tradesToday++
	g.mu.Unlock()
}

func (g *Guard) TradesToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tradesToday
}

// Reconfigure replaces the daily and per-trade limits on the live guard.
// Loss accumulators and the trades-today counter are preserved so a
// mid-day settings change cannot unlock headroom that was already
// consumed.
func (g *Guard) Reconfigure(dailyLimit, perTradeLimit float64) error {
	if dailyLimit <= 0 || dailyLimit > 1 {
		return fmt.Errorf("risk: daily limit must be in (0,1], got %.4f", dailyLimit)
	}
	if perTradeLimit <= 0 || perTradeLimit > 1 {
		return fmt.Errorf("risk: per-trade limit must be in (0,1], got %.4f", perTradeLimit)
	}
	g.mu.Lock()
	g.limits.Daily = dailyLimit
	g.limits.PerTrade = perTradeLimit
	g.mu.Unlock()
	return nil
}

func (g *Guard) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

func (g *Guard) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		DailyLoss:   g.dailyLoss,
		WeeklyLoss:  g.weeklyLoss,
		TradesToday: g.tradesToday,
		LastReset:   g.lastReset,
	}
}
