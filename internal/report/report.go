// Package report summarizes a day's journal into a CSV per symbol with
// placement counts, realized profit and win rate.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

type aggRow struct {
	Symbol string
	Placed int
	Failed int
	Wins   int
	Losses int
	Profit float64
}

type Writer struct {
	journalDir string
	reportDir  string
	loc        *time.Location
	now        func() time.Time
}

func New(journalDir, reportDir string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{journalDir: journalDir, reportDir: reportDir, loc: loc, now: time.Now}
}

func (w *Writer) journalPath(t time.Time) string {
	return filepath.Join(w.journalDir, t.Format("2006-01-02")+".jsonl")
}

func (w *Writer) csvPath(t time.Time) string {
	return filepath.Join(w.reportDir, t.Format("2006-01-02")+".csv")
}

// SummarizeToday writes the report for the current exchange day.
func (w *Writer) SummarizeToday() (string, error) {
	return w.SummarizeDay(w.now().In(w.loc))
}

// SummarizeDay aggregates the day's journal into a CSV and returns its
// path. A missing or empty journal yields no file and no error.
func (w *Writer) SummarizeDay(t time.Time) (string, error) {
	inPath := w.journalPath(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Placement lines carry a strategy; result lines carry only the
	// order id and profit.
	type journalLine struct {
		Symbol   string  `json:"symbol"`
		Strategy string  `json:"strategy"`
		OrderID  string  `json:"order_id"`
		Failed   bool    `json:"failed"`
		Profit   float64 `json:"profit"`
	}

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var p journalLine
		if err := json.Unmarshal([]byte(sc.Text()), &p); err != nil || p.Symbol == "" {
			continue
		}
		row := rowFor(aggs, p.Symbol)
		switch {
		case p.Strategy != "":
			row.Placed++
			if p.Failed {
				row.Failed++
			}
		case p.OrderID != "":
			row.Profit += p.Profit
			if p.Profit > 0 {
				row.Wins++
			} else {
				row.Losses++
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := w.csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	cw := csv.NewWriter(out)
	defer cw.Flush()

	headers := []string{"symbol", "placed", "failed", "wins", "losses", "win_rate", "profit"}
	if err := cw.Write(headers); err != nil {
		return "", err
	}

	var totalPlaced, totalWins, totalLosses int
	var totalProfit float64
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Placed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Wins),
			strconv.Itoa(r.Losses),
			fmt.Sprintf("%.2f", winRate(r.Wins, r.Losses)),
			fmt.Sprintf("%.2f", r.Profit),
		}
		if err := cw.Write(rec); err != nil {
			return "", err
		}
		totalPlaced += r.Placed
		totalWins += r.Wins
		totalLosses += r.Losses
		totalProfit += r.Profit
	}
	_ = cw.Write([]string{
		"TOTAL",
		strconv.Itoa(totalPlaced),
		"",
		strconv.Itoa(totalWins),
		strconv.Itoa(totalLosses),
		fmt.Sprintf("%.2f", winRate(totalWins, totalLosses)),
		fmt.Sprintf("%.2f", totalProfit),
	})
	return outPath, nil
}

// ShouldRunNow reports whether the daily report is due: past the close
// cutoff with no report written yet.
func (w *Writer) ShouldRunNow(cutoffHour, cutoffMin int) (bool, string) {
	now := w.now().In(w.loc)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, cutoffMin, 0, 0, w.loc)
	outPath := w.csvPath(now)
	if now.After(cutoff) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

func rowFor(aggs map[string]*aggRow, symbol string) *aggRow {
	row := aggs[symbol]
	if row == nil {
		row = &aggRow{Symbol: symbol}
		aggs[symbol] = row
	}
	return row
}

func winRate(wins, losses int) float64 {
	if wins+losses == 0 {
		return 0
	}
	return float64(wins) / float64(wins+losses) * 100
}
