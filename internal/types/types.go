package types

import (
	"fmt"
	"time"
)

// Mode selects which configuration set and strategy family pool the
// bot trades with. It only changes through an explicit control command.
type Mode string

const (
	ModeIncome Mode = "income"
	ModeTurbo  Mode = "turbo"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncome, ModeTurbo:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode %q: must be 'income' or 'turbo'", s)
}

type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

type StrategyFamily string

const (
	IronCondor   StrategyFamily = "iron_condor"
	CreditSpread StrategyFamily = "credit_spread"
	CoveredCall  StrategyFamily = "covered_call"
)

// MarketSnapshot is the per-cycle view of the market. It is built fresh
// each cycle and never mutated after construction.
type MarketSnapshot struct {
	Price         float64   `json:"price"`
	IVRank        float64   `json:"iv_rank"`
	VIX           float64   `json:"vix"`
	DailyRangePct float64   `json:"daily_range_pct"`
	Trend         Trend     `json:"trend"`
	RSI           float64   `json:"rsi"`
	PutCallRatio  float64   `json:"put_call_ratio"`
	Timestamp     time.Time `json:"timestamp"`
}

type SpreadSide string

const (
	SpreadCall SpreadSide = "CALL"
	SpreadPut  SpreadSide = "PUT"
)

// IronCondorStrikes holds the four legs around the current price.
type IronCondorStrikes struct {
	Expiration string  `json:"expiration"` // YYYY-MM-DD
	ShortCall  float64 `json:"short_call"`
	LongCall   float64 `json:"long_call"`
	ShortPut   float64 `json:"short_put"`
	LongPut    float64 `json:"long_put"`
	Credit     float64 `json:"credit"` // target net credit per spread
}

// CreditSpreadStrikes holds a two-leg vertical, put side below price or
// call side above depending on trend.
type CreditSpreadStrikes struct {
	Expiration  string     `json:"expiration"`
	Side        SpreadSide `json:"side"`
	ShortStrike float64    `json:"short_strike"`
	LongStrike  float64    `json:"long_strike"`
	Credit      float64    `json:"credit"`
}

// TradeIntent is the selector's output. OrderID is attached only after a
// successful submission; Failed marks a submission that was attempted
// but rejected by the execution port.
type TradeIntent struct {
	ID           string         `json:"id"`
	Symbol       string         `json:"symbol"`
	Strategy     StrategyFamily `json:"strategy"`
	EntryPrice   float64        `json:"entry_price"`
	Quantity     int            `json:"quantity"`
	RiskAmount   float64        `json:"risk_amount"`
	ProfitTarget float64        `json:"profit_target"`
	StopLossMult float64        `json:"stop_loss_mult"`
	Expiration   string         `json:"expiration"`
	Mode         Mode           `json:"mode"`
	OrderID      string         `json:"order_id,omitempty"`
	Failed       bool           `json:"failed,omitempty"`
}

// TradeResult reports a terminal trade outcome back into the selector's
// win-streak tracking and the risk guard's loss accumulators.
type TradeResult struct {
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Profit  float64 `json:"profit"`
}

// Quote is a raw broker quote used to derive snapshot fields.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`
}

type Position struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	PnL         float64 `json:"pnl"`
	PnLPct      float64 `json:"pnl_pct"`
	OrderID     string  `json:"order_id,omitempty"`
}

// Stats is the dashboard view of the running bot.
type Stats struct {
	Mode        Mode       `json:"mode"`
	Balance     float64    `json:"balance"`
	TodayPnL    float64    `json:"today_pnl"`
	Positions   []Position `json:"positions"`
	RiskUsedPct float64    `json:"risk_used_pct"`
	WinStreak   int        `json:"win_streak"`
	DailyTrades int        `json:"daily_trades"`
	Paused      bool       `json:"is_paused"`
	Running     bool       `json:"is_running"`
	LastUpdate  time.Time  `json:"last_update"`
}
