package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"options-pilot/internal/journal"
	"options-pilot/internal/types"
)

func seedJournal(t *testing.T) (journalDir string, day time.Time) {
	t.Helper()
	journalDir = t.TempDir()
	day = time.Date(2026, 8, 24, 15, 0, 0, 0, time.UTC)

	j := journal.New(journalDir, time.UTC)
	records := []*types.TradeIntent{
		{ID: "1", Symbol: "SPY", Strategy: types.IronCondor, Mode: types.ModeIncome, Quantity: 1, EntryPrice: 450, OrderID: "SIM-1"},
		{ID: "2", Symbol: "SPY", Strategy: types.CreditSpread, Mode: types.ModeIncome, Quantity: 1, EntryPrice: 451, Failed: true},
		{ID: "3", Symbol: "QQQ", Strategy: types.CoveredCall, Mode: types.ModeIncome, Quantity: 1, EntryPrice: 380, OrderID: "SIM-2"},
	}
	for _, r := range records {
		if err := j.RecordTrade(r); err != nil {
			t.Fatalf("RecordTrade: %v", err)
		}
	}
	results := []types.TradeResult{
		{OrderID: "SIM-1", Symbol: "SPY", Profit: 25},
		{OrderID: "SIM-2", Symbol: "QQQ", Profit: -10},
	}
	for _, r := range results {
		if err := j.RecordResult(r); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}

	// Journal stamps with wall-clock time, so pin the file to the day
	// under test.
	src := filepath.Join(journalDir, time.Now().UTC().Format("2006-01-02")+".jsonl")
	dst := filepath.Join(journalDir, day.Format("2006-01-02")+".jsonl")
	if src != dst {
		if err := os.Rename(src, dst); err != nil {
			t.Fatalf("rename journal: %v", err)
		}
	}
	return journalDir, day
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestSummarizeDay(t *testing.T) {
	journalDir, day := seedJournal(t)
	w := New(journalDir, t.TempDir(), time.UTC)

	path, err := w.SummarizeDay(day)
	if err != nil {
		t.Fatalf("SummarizeDay: %v", err)
	}
	if path == "" {
		t.Fatal("expected a report path")
	}

	rows := readCSV(t, path)
	// header + QQQ + SPY + TOTAL
	if len(rows) != 4 {
		t.Fatalf("expected 4 csv rows, got %d: %v", len(rows), rows)
	}

	qqq, spy, total := rows[1], rows[2], rows[3]
	if qqq[0] != "QQQ" || spy[0] != "SPY" || total[0] != "TOTAL" {
		t.Fatalf("rows out of order: %v", rows)
	}
	// SPY: 2 placed, 1 failed, 1 win, 25 profit.
	if spy[1] != "2" || spy[2] != "1" || spy[3] != "1" || spy[6] != "25.00" {
		t.Errorf("unexpected SPY row: %v", spy)
	}
	// QQQ: 1 placed, 1 loss of 10.
	if qqq[1] != "1" || qqq[4] != "1" || qqq[6] != "-10.00" {
		t.Errorf("unexpected QQQ row: %v", qqq)
	}
	// One win, one loss overall.
	if total[5] != "50.00" || total[6] != "15.00" {
		t.Errorf("unexpected TOTAL row: %v", total)
	}
}

func TestSummarizeDay_NoJournal(t *testing.T) {
	w := New(t.TempDir(), t.TempDir(), time.UTC)
	path, err := w.SummarizeDay(time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SummarizeDay: %v", err)
	}
	if path != "" {
		t.Errorf("expected no report for missing journal, got %s", path)
	}
}

func TestShouldRunNow(t *testing.T) {
	w := New(t.TempDir(), t.TempDir(), time.UTC)

	w.now = func() time.Time { return time.Date(2026, 8, 24, 16, 30, 0, 0, time.UTC) }
	due, path := w.ShouldRunNow(16, 15)
	if !due {
		t.Error("report should be due after cutoff with no file")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("symbol\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if due, _ := w.ShouldRunNow(16, 15); due {
		t.Error("report already written, should not be due")
	}

	w.now = func() time.Time { return time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC) }
	if due, _ := w.ShouldRunNow(16, 15); due {
		t.Error("report should not be due before cutoff")
	}
}
