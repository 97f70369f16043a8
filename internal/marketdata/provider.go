// Package marketdata builds the per-cycle market snapshot from raw
// broker quotes plus locally computed indicators.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/ta"
	"options-pilot/internal/types"
)

const (
	rsiPeriod  = 14
	smaPeriod  = 20
	historyCap = 100

	// Moves within half a percent of the previous close count as flat.
	trendBand = 0.005

	vixSymbol = "$VIX.X"
)

type Provider struct {
	quoter interfaces.Quoter
	symbol string
	live   bool

	mu     sync.Mutex
	closes []float64

	now func() time.Time
}

var _ interfaces.MarketData = (*Provider)(nil)

// New builds a provider over the given quoter. dataSource LIVE pulls the
// volatility index from the quoter as well; anything else derives it
// from the day's trading range.
func New(quoter interfaces.Quoter, symbol, dataSource string) *Provider {
	return &Provider{
		quoter: quoter,
		symbol: symbol,
		live:   dataSource == "LIVE",
		now:    time.Now,
	}
}

func (p *Provider) Snapshot(ctx context.Context) (types.MarketSnapshot, error) {
	q, err := p.quoter.Quote(ctx, p.symbol)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("marketdata: quote %s: %w", p.symbol, err)
	}

	p.mu.Lock()
	p.closes = append(p.closes, q.Last)
	if len(p.closes) > historyCap {
		p.closes = p.closes[len(p.closes)-historyCap:]
	}
	closes := make([]float64, len(p.closes))
	copy(closes, p.closes)
	p.mu.Unlock()

	rsi := ta.RSI(closes, rsiPeriod)
	if math.IsNaN(rsi) {
		// Not enough history yet; treat momentum as neutral.
		rsi = 50
	}

	rangePct := ta.DailyRangePct(q.High, q.Low, q.Last)
	vix := p.vix(ctx, rangePct)

	// A flat day-over-day move can still sit inside a drift; refine a
	// neutral call against the moving average once there is history.
	trend := classifyTrend(q.Last, q.PrevClose)
	if trend == types.TrendNeutral {
		if sma := ta.SMA(closes, smaPeriod); !math.IsNaN(sma) {
			trend = classifyTrend(q.Last, sma)
		}
	}

	snap := types.MarketSnapshot{
		Price:         q.Last,
		IVRank:        ivRankFromVIX(vix),
		VIX:           vix,
		DailyRangePct: rangePct,
		Trend:         trend,
		RSI:           rsi,
		PutCallRatio:  putCallFromRSI(rsi),
		Timestamp:     p.now(),
	}

	logger.Debug(ctx, "Market snapshot built",
		"symbol", p.symbol,
		"price", snap.Price,
		"iv_rank", snap.IVRank,
		"vix", snap.VIX,
		"trend", string(snap.Trend),
		"rsi", snap.RSI,
	)
	return snap, nil
}

// vix reads the volatility index quote in live mode and falls back to a
// range-derived estimate when the quote is unavailable.
func (p *Provider) vix(ctx context.Context, rangePct float64) float64 {
	if p.live {
		q, err := p.quoter.Quote(ctx, vixSymbol)
		if err == nil && q.Last > 0 {
			return q.Last
		}
		if err != nil {
			logger.Warn(ctx, "VIX quote unavailable, estimating from range", "error", err.Error())
		}
	}
	return 14 + rangePct*4
}

func classifyTrend(last, prevClose float64) types.Trend {
	if prevClose <= 0 {
		return types.TrendNeutral
	}
	switch ratio := last / prevClose; {
	case ratio > 1+trendBand:
		return types.TrendBullish
	case ratio < 1-trendBand:
		return types.TrendBearish
	default:
		return types.TrendNeutral
	}
}

// ivRankFromVIX maps the volatility index onto a 0-100 rank against a
// 10-40 reference band.
func ivRankFromVIX(vix float64) float64 {
	rank := (vix - 10) / 30 * 100
	if rank < 0 {
		return 0
	}
	if rank > 100 {
		return 100
	}
	return rank
}

// putCallFromRSI proxies the put/call ratio from momentum: oversold
// markets skew toward puts, overbought toward calls.
func putCallFromRSI(rsi float64) float64 {
	return 0.7 + (100-rsi)/100*0.6
}
