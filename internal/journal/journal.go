// Package journal persists trade and decision records as JSON lines in
// daily files keyed by the exchange calendar day.
package journal

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"options-pilot/internal/types"
)

type TradeRecord struct {
	Time       string               `json:"time"`
	Symbol     string               `json:"symbol"`
	Strategy   types.StrategyFamily `json:"strategy"`
	Mode       types.Mode           `json:"mode"`
	Qty        int                  `json:"qty"`
	EntryPrice float64              `json:"entry_price"`
	RiskAmount float64              `json:"risk_amount"`
	OrderID    string               `json:"order_id,omitempty"`
	Failed     bool                 `json:"failed,omitempty"`
	Extra      map[string]any       `json:"extra,omitempty"`
}

type DecisionRecord struct {
	Time       string             `json:"time"`
	Action     string             `json:"action"`
	Reason     string             `json:"reason"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

type ResultRecord struct {
	Time    string  `json:"time"`
	OrderID string  `json:"order_id"`
	Symbol  string  `json:"symbol"`
	Profit  float64 `json:"profit"`
}

type Journal struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
	now func() time.Time
}

// New creates a journal rooted at dir, stamping entries in the exchange
// timezone so daily files roll with the trading day.
func New(dir string, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}
}

func (j *Journal) tradesPath(t time.Time) string {
	return filepath.Join(j.dir, t.Format("2006-01-02")+".jsonl")
}

func (j *Journal) decisionsPath(t time.Time) string {
	return filepath.Join(j.dir, "decisions", t.Format("2006-01-02")+".jsonl")
}

// RecordTrade journals a placement attempt, successful or failed.
func (j *Journal) RecordTrade(intent *types.TradeIntent) error {
	now := j.now().In(j.loc)
	rec := TradeRecord{
		Time:       now.Format("2006-01-02 15:04:05"),
		Symbol:     intent.Symbol,
		Strategy:   intent.Strategy,
		Mode:       intent.Mode,
		Qty:        intent.Quantity,
		EntryPrice: intent.EntryPrice,
		RiskAmount: intent.RiskAmount,
		OrderID:    intent.OrderID,
		Failed:     intent.Failed,
	}
	return j.appendLine(j.tradesPath(now), rec)
}

// RecordResult journals a terminal trade outcome.
func (j *Journal) RecordResult(res types.TradeResult) error {
	now := j.now().In(j.loc)
	rec := ResultRecord{
		Time:    now.Format("2006-01-02 15:04:05"),
		OrderID: res.OrderID,
		Symbol:  res.Symbol,
		Profit:  res.Profit,
	}
	return j.appendLine(j.tradesPath(now), rec)
}

// RecordDecision journals a cycle that ended without an order, with the
// snapshot fields that drove the call.
func (j *Journal) RecordDecision(action, reason string, snap types.MarketSnapshot) error {
	now := j.now().In(j.loc)
	rec := DecisionRecord{
		Time:   now.Format("2006-01-02 15:04:05"),
		Action: action,
		Reason: reason,
		Indicators: map[string]float64{
			"price":           snap.Price,
			"iv_rank":         snap.IVRank,
			"vix":             snap.VIX,
			"rsi":             snap.RSI,
			"daily_range_pct": snap.DailyRangePct,
		},
	}
	return j.appendLine(j.decisionsPath(now), rec)
}

func (j *Journal) appendLine(path string, rec any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files older than retentionDays and
// removes the originals. Zero or negative retention disables it.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)

	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := os.Stat(p)
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			return os.Remove(p)
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		return os.Remove(p)
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
