package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"options-pilot/internal/types"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j := New(t.TempDir(), time.UTC)
	j.now = func() time.Time { return time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC) }
	return j
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestRecordTrade_DailyFile(t *testing.T) {
	j := newTestJournal(t)

	intent := &types.TradeIntent{
		ID: "abc", Symbol: "SPY", Strategy: types.IronCondor,
		Mode: types.ModeIncome, Quantity: 1, EntryPrice: 450, RiskAmount: 50,
		OrderID: "SIM-1",
	}
	if err := j.RecordTrade(intent); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if err := j.RecordResult(types.TradeResult{OrderID: "SIM-1", Symbol: "SPY", Profit: 12.5}); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	lines := readLines(t, filepath.Join(j.dir, "2026-08-24.jsonl"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 journal lines, got %d", len(lines))
	}

	var rec TradeRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal trade line: %v", err)
	}
	if rec.Symbol != "SPY" || rec.Strategy != types.IronCondor || rec.OrderID != "SIM-1" {
		t.Errorf("unexpected trade record: %+v", rec)
	}
	if rec.Time != "2026-08-24 14:30:00" {
		t.Errorf("time = %q, want exchange-local stamp", rec.Time)
	}
}

func TestRecordDecision_SeparateDir(t *testing.T) {
	j := newTestJournal(t)

	snap := types.MarketSnapshot{Price: 450, IVRank: 20, VIX: 15, RSI: 55}
	if err := j.RecordDecision("skip", "no edge", snap); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	lines := readLines(t, filepath.Join(j.dir, "decisions", "2026-08-24.jsonl"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 decision line, got %d", len(lines))
	}
	var rec DecisionRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal decision: %v", err)
	}
	if rec.Reason != "no edge" || rec.Indicators["iv_rank"] != 20 {
		t.Errorf("unexpected decision record: %+v", rec)
	}
}

func TestCompressOlder(t *testing.T) {
	j := newTestJournal(t)
	j.now = time.Now

	old := filepath.Join(j.dir, "2026-01-05.jsonl")
	if err := os.WriteFile(old, []byte(`{"symbol":"SPY"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	fresh := filepath.Join(j.dir, "2026-08-24.jsonl")
	if err := os.WriteFile(fresh, []byte(`{"symbol":"QQQ"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := j.CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder: %v", err)
	}

	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Errorf("expected compressed file: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Errorf("original stale file should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file must be untouched: %v", err)
	}
}

func TestCompressOlder_DisabledRetention(t *testing.T) {
	j := newTestJournal(t)
	if err := j.CompressOlder(0); err != nil {
		t.Fatalf("CompressOlder(0): %v", err)
	}
}
