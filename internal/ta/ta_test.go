package ta

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 5); got != 3 {
		t.Errorf("SMA = %.2f, want 3", got)
	}
	if got := SMA(closes, 2); got != 4.5 {
		t.Errorf("SMA tail = %.2f, want 4.5", got)
	}
	if got := SMA(closes, 6); !math.IsNaN(got) {
		t.Errorf("SMA with short input should be NaN, got %.2f", got)
	}
}

func TestRSI(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if got := RSI(up, 14); got != 100 {
		t.Errorf("all-gains RSI = %.2f, want 100", got)
	}

	flatUpDown := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}
	got := RSI(flatUpDown, 14)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("balanced RSI = %.4f, want 50", got)
	}

	if !math.IsNaN(RSI(up, 20)) {
		t.Error("short input should give NaN")
	}
}

func TestDailyRangePct(t *testing.T) {
	if got := DailyRangePct(455, 445, 450); math.Abs(got-2.2222222222) > 1e-6 {
		t.Errorf("DailyRangePct = %.4f", got)
	}
	if got := DailyRangePct(10, 5, 0); got != 0 {
		t.Errorf("zero close must yield 0, got %.2f", got)
	}
}
