// Package strategy picks a strategy family, symbol, size and strikes
// for the active operating mode, and submits the resulting trade intent
// through the execution port.
package strategy

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/store"
	"options-pilot/internal/types"
)

const (
	// Win-streak scaling never exceeds 2x base risk.
	maxScaleFactor = 2.0

	condorShortOffset = 5
	condorLongOffset  = 10
	spreadShortOffset = 5
	spreadLongOffset  = 10

	condorTargetCredit = 0.50
	spreadTargetCredit = 0.25
)

// Config carries the selector's sizing parameters and the per-mode
// configuration blocks.
type Config struct {
	Capital            float64
	RiskPerTrade       float64
	ProfitTarget       float64
	StopLossMultiplier float64
	Income             store.ModeConfig
	Turbo              store.ModeConfig
}

// Selector is the dual-mode strategy engine. Mode transitions are
// explicit external commands and take effect on the next cycle.
type Selector struct {
	mu   sync.Mutex
	cfg  Config
	mode types.Mode
	exec interfaces.Execution

	winStreak   int
	dailyTrades int

	now func() time.Time
}

func New(cfg Config, mode types.Mode, exec interfaces.Execution) *Selector {
	return &Selector{cfg: cfg, mode: mode, exec: exec, now: time.Now}
}

func (s *Selector) Mode() types.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the operating mode. The change is picked up by the
// next PlaceTrade call; an in-flight cycle keeps its snapshot.
func (s *Selector) SetMode(mode types.Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// modeConfig returns the active mode's config. Caller must hold s.mu.
func (s *Selector) modeConfig() store.ModeConfig {
	if s.mode == types.ModeTurbo {
		return s.cfg.Turbo
	}
	return s.cfg.Income
}

// SelectStrategy picks a strategy family from market conditions, or ""
// when nothing fits. Income mode diversifies across premium-selling
// structures; Turbo hunts calm 0-DTE conditions.
func (s *Selector) SelectStrategy(snap types.MarketSnapshot) types.StrategyFamily {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(snap)
}

func (s *Selector) selectLocked(snap types.MarketSnapshot) types.StrategyFamily {
	cfg := s.modeConfig()

	var pick types.StrategyFamily
	if s.mode == types.ModeIncome {
		switch {
		case snap.IVRank > 70:
			pick = types.IronCondor
		case snap.IVRank > 40 && snap.Trend == types.TrendNeutral:
			pick = types.CreditSpread
		case snap.Trend == types.TrendBullish:
			pick = types.CoveredCall
		}
	} else {
		switch {
		case snap.VIX < 25 && snap.DailyRangePct < 1.5:
			pick = types.IronCondor
		case snap.VIX < 30:
			pick = types.CreditSpread
		}
	}

	if pick != "" && !allowed(cfg.Strategies, pick) {
		return ""
	}
	return pick
}

func allowed(families []string, f types.StrategyFamily) bool {
	for _, s := range families {
		if s == string(f) {
			return true
		}
	}
	return false
}

// PositionSize returns the dollar risk for the next trade. Turbo mode
// scales up once the win streak reaches the compound threshold, capped
// at 2x base; Income applies only the mode's static position scale.
func (s *Selector) PositionSize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeLocked()
}

func (s *Selector) sizeLocked() float64 {
	base := s.cfg.Capital * s.cfg.RiskPerTrade
	cfg := s.modeConfig()

	if s.mode == types.ModeTurbo && cfg.CompoundThreshold > 0 && s.winStreak >= cfg.CompoundThreshold {
		scale := 1.0 + 0.1*float64(s.winStreak-2)
		return base * math.Min(scale, maxScaleFactor)
	}
	return base * cfg.PositionScale
}

// selectSymbol round-robins Income mode's symbol list keyed by the
// daily trade count; Turbo always trades its single configured symbol.
// Caller must hold s.mu.
func (s *Selector) selectSymbol() string {
	cfg := s.modeConfig()
	if s.mode == types.ModeIncome {
		return cfg.Symbols[s.dailyTrades%len(cfg.Symbols)]
	}
	return cfg.Symbols[0]
}

// expiration builds the contract expiration from the mode's minimum
// DTE; a 0-DTE mode always expires today.
func (s *Selector) expiration(cfg store.ModeConfig) string {
	exp := s.now().AddDate(0, 0, cfg.DTEMin)
	if cfg.DTEMin == 0 {
		exp = s.now()
	}
	return exp.Format("2006-01-02")
}

func (s *Selector) ironCondorStrikes(price float64, expiration string) types.IronCondorStrikes {
	mid := math.Round(price)
	return types.IronCondorStrikes{
		Expiration: expiration,
		ShortCall:  mid + condorShortOffset,
		LongCall:   mid + condorLongOffset,
		ShortPut:   mid - condorShortOffset,
		LongPut:    mid - condorLongOffset,
		Credit:     condorTargetCredit,
	}
}

// creditSpreadStrikes builds a put spread below price unless the trend
// is bullish, in which case a call spread above price.
func (s *Selector) creditSpreadStrikes(price float64, trend types.Trend, expiration string) types.CreditSpreadStrikes {
	mid := math.Round(price)
	if trend == types.TrendBullish {
		return types.CreditSpreadStrikes{
			Expiration:  expiration,
			Side:        types.SpreadCall,
			ShortStrike: mid + spreadShortOffset,
			LongStrike:  mid + spreadLongOffset,
			Credit:      spreadTargetCredit,
		}
	}
	return types.CreditSpreadStrikes{
		Expiration:  expiration,
		Side:        types.SpreadPut,
		ShortStrike: mid - spreadShortOffset,
		LongStrike:  mid - spreadLongOffset,
		Credit:      spreadTargetCredit,
	}
}

// PlaceTrade analyzes the snapshot and submits a trade when conditions
// fit. A nil intent with nil error is a normal "no trade" outcome (cap
// reached or no suitable strategy). A failed submission still counts
// against the daily cap: the attempt consumed a trading opportunity.
func (s *Selector) PlaceTrade(ctx context.Context, snap types.MarketSnapshot) (*types.TradeIntent, error) {
	s.mu.Lock()
	cfg := s.modeConfig()
	mode := s.mode

	if s.dailyTrades >= cfg.MaxDailyTrades {
		count := s.dailyTrades
		s.mu.Unlock()
		logger.Info(ctx, "Daily trade limit reached", "mode", mode, "trades", count, "max", cfg.MaxDailyTrades)
		return nil, nil
	}

	family := s.selectLocked(snap)
	if family == "" {
		s.mu.Unlock()
		logger.Info(ctx, "No suitable strategy for current conditions",
			"mode", mode, "iv_rank", snap.IVRank, "vix", snap.VIX, "trend", snap.Trend)
		return nil, nil
	}

	symbol := s.selectSymbol()
	size := s.sizeLocked()
	expiration := s.expiration(cfg)

	qty := int(size / 100)
	if qty < 1 {
		qty = 1
	}

	intent := &types.TradeIntent{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Strategy:     family,
		EntryPrice:   snap.Price,
		Quantity:     qty,
		RiskAmount:   size,
		ProfitTarget: s.cfg.ProfitTarget,
		StopLossMult: s.cfg.StopLossMultiplier,
		Expiration:   expiration,
		Mode:         mode,
	}

	// The attempt counts against the daily cap whether or not the
	// submission succeeds.
	s.dailyTrades++
	s.mu.Unlock()

	logger.Info(ctx, "Placing trade",
		"mode", mode,
		"symbol", symbol,
		"strategy", family,
		"quantity", qty,
		"risk_amount", size,
		"expiration", expiration,
	)

	orderID, err := s.submit(ctx, intent, snap)
	if err != nil {
		intent.Failed = true
		logger.ErrorWithErr(ctx, "Trade submission failed", err,
			"symbol", symbol, "strategy", family)
		return intent, err
	}

	intent.OrderID = orderID
	logger.Trade(ctx, symbol, string(family), qty, size, orderID, "mode", string(mode))
	return intent, nil
}

func (s *Selector) submit(ctx context.Context, intent *types.TradeIntent, snap types.MarketSnapshot) (string, error) {
	switch intent.Strategy {
	case types.IronCondor:
		strikes := s.ironCondorStrikes(snap.Price, intent.Expiration)
		return s.exec.PlaceIronCondor(ctx, intent.Symbol, strikes, intent.Quantity)
	case types.CreditSpread:
		strikes := s.creditSpreadStrikes(snap.Price, snap.Trend, intent.Expiration)
		return s.exec.PlaceCreditSpread(ctx, intent.Symbol, strikes, intent.Quantity)
	default:
		strike := math.Round(snap.Price) + spreadShortOffset
		return s.exec.PlaceCoveredCall(ctx, intent.Symbol, strike, intent.Expiration, intent.Quantity)
	}
}

// UpdatePerformance feeds a terminal trade outcome into win-streak
// tracking: profit extends the streak, anything else zeros it.
func (s *Selector) UpdatePerformance(result types.TradeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.Profit > 0 {
		s.winStreak++
	} else {
		s.winStreak = 0
	}
}

// ResetDailyCounters zeros the daily trade counter at market open.
func (s *Selector) ResetDailyCounters(ctx context.Context) {
	s.mu.Lock()
	s.dailyTrades = 0
	mode := s.mode
	s.mu.Unlock()
	logger.Info(ctx, "Daily strategy counters reset", "mode", mode)
}

func (s *Selector) WinStreak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winStreak
}

func (s *Selector) DailyTrades() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTrades
}

// AtDailyCap reports whether the current mode's daily trade budget is
// spent.
func (s *Selector) AtDailyCap() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dailyTrades >= s.modeConfig().MaxDailyTrades
}
