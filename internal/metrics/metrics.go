// Package metrics exposes the trading loop's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pilot_cycles_total",
		Help: "Trading cycles executed, including skipped ones.",
	})

	TradesPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_trades_placed_total",
		Help: "Orders accepted by the execution port.",
	}, []string{"symbol", "strategy"})

	TradesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pilot_trades_failed_total",
		Help: "Order submissions rejected by the execution port.",
	})

	TradesBlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_trades_blocked_total",
		Help: "Cycles that stopped short of an order, by reason.",
	}, []string{"reason"})

	CycleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_cycle_errors_total",
		Help: "Cycle failures by stage.",
	}, []string{"stage"})

	RiskUsedPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pilot_risk_used_pct",
		Help: "Share of the daily loss limit consumed.",
	})

	WinStreak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pilot_win_streak",
		Help: "Consecutive winning trades.",
	})

	AccountBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pilot_account_balance",
		Help: "Last observed account liquidation value.",
	})
)

// Block reasons used with TradesBlocked.
const (
	BlockMarketClosed = "market_closed"
	BlockPaused       = "paused"
	BlockNoEdge       = "no_edge"
	BlockRiskLimit    = "risk_limit"
	BlockDailyCap     = "daily_cap"
)
