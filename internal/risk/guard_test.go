package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"testing/quick"
)

func newTestGuard(t *testing.T, l Limits) *Guard {
	t.Helper()
	g, err := NewGuard(l)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

func TestNewGuard_RejectsBadLimits(t *testing.T) {
	cases := []Limits{
		{PerTrade: 0, Daily: 0.06, Weekly: 0.05},
		{PerTrade: 0.01, Daily: -1, Weekly: 0.05},
		{PerTrade: 0.01, Daily: 0.06, Weekly: 1.5},
	}
	for _, l := range cases {
		if _, err := NewGuard(l); err == nil {
			t.Errorf("expected error for limits %+v", l)
		}
	}
}

func TestCheckLimits_InvalidBalance(t *testing.T) {
	g := newTestGuard(t, Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.05})
	for _, balance := range []float64{0, -100} {
		_, err := g.CheckLimits(context.Background(), balance, 50)
		if !errors.Is(err, ErrInvalidBalance) {
			t.Errorf("balance=%.0f: expected ErrInvalidBalance, got %v", balance, err)
		}
	}
}

// AllOK must be exactly the conjunction of the three individual ratios
// being within their limits, for any positive balance and risk.
func TestCheckLimits_ConjunctionProperty(t *testing.T) {
	property := func(risk, balance, dailyLoss, weeklyLoss float64) bool {
		risk = math.Abs(risk)
		balance = 1 + math.Abs(balance)
		dailyLoss = math.Mod(math.Abs(dailyLoss), balance)
		weeklyLoss = math.Mod(math.Abs(weeklyLoss), balance)

		limits := Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.05}
		g, err := NewGuard(limits)
		if err != nil {
			return false
		}
		g.dailyLoss = dailyLoss
		g.weeklyLoss = weeklyLoss

		checks, err := g.CheckLimits(context.Background(), balance, risk)
		if err != nil {
			return false
		}

		wantPerTrade := risk/balance <= limits.PerTrade
		wantDaily := (dailyLoss+risk)/balance <= limits.Daily
		wantWeekly := (weeklyLoss+risk)/balance <= limits.Weekly

		return checks.PerTradeOK == wantPerTrade &&
			checks.DailyOK == wantDaily &&
			checks.WeeklyOK == wantWeekly &&
			checks.AllOK == (wantPerTrade && wantDaily && wantWeekly)
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

// Loss accumulators are monotonic non-decreasing: negative pnl adds its
// magnitude, non-negative pnl is a no-op.
func TestUpdateLosses_MonotonicProperty(t *testing.T) {
	property := func(pnls []float64) bool {
		g, err := NewGuard(Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.05})
		if err != nil {
			return false
		}
		prevDaily, prevWeekly := 0.0, 0.0
		for _, pnl := range pnls {
			if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
				continue
			}
			g.UpdateLosses(pnl)
			st := g.Snapshot()
			if st.DailyLoss < prevDaily || st.WeeklyLoss < prevWeekly {
				return false
			}
			if pnl >= 0 && (st.DailyLoss != prevDaily || st.WeeklyLoss != prevWeekly) {
				return false
			}
			if pnl < 0 && st.DailyLoss != prevDaily+math.Abs(pnl) {
				return false
			}
			prevDaily, prevWeekly = st.DailyLoss, st.WeeklyLoss
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

// Daily limit boundary is inclusive: (250+50)/5000 = 0.06 <= 0.06.
func TestCheckLimits_DailyBoundaryInclusive(t *testing.T) {
	g := newTestGuard(t, Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.10})
	g.UpdateLosses(-250)

	checks, err := g.CheckLimits(context.Background(), 5000, 50)
	if err != nil {
		t.Fatalf("CheckLimits: %v", err)
	}
	if !checks.DailyOK {
		t.Error("expected daily check to pass exactly at the limit")
	}
	if !checks.PerTradeOK {
		t.Error("expected per-trade check to pass: 50/5000 = 0.01")
	}
}

func TestResetWeekly_RoundTrip(t *testing.T) {
	g := newTestGuard(t, Limits{PerTrade: 0.05, Daily: 0.50, Weekly: 0.05})
	ctx := context.Background()

	// Breach the weekly limit.
	g.UpdateLosses(-400)
	checks, err := g.CheckLimits(ctx, 5000, 100)
	if err != nil {
		t.Fatalf("CheckLimits: %v", err)
	}
	if checks.WeeklyOK || checks.AllOK {
		t.Fatal("expected weekly limit to be breached")
	}

	g.ResetWeekly(ctx)

	checks, err = g.CheckLimits(ctx, 5000, 100)
	if err != nil {
		t.Fatalf("CheckLimits: %v", err)
	}
	if !checks.AllOK {
		t.Errorf("expected same trade to pass after weekly reset, got %+v", checks)
	}
}

func TestResetDaily_ZerosTradesAndDailyOnly(t *testing.T) {
	g := newTestGuard(t, Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.05})
	g.UpdateLosses(-100)
	g.CountTrade()
	g.CountTrade()

	g.ResetDaily(context.Background())

	st := g.Snapshot()
	if st.DailyLoss != 0 {
		t.Errorf("daily loss not zeroed: %.2f", st.DailyLoss)
	}
	if st.TradesToday != 0 {
		t.Errorf("trades-today not zeroed: %d", st.TradesToday)
	}
	if st.WeeklyLoss != 100 {
		t.Errorf("weekly loss should survive daily reset, got %.2f", st.WeeklyLoss)
	}
}

func TestReconfigure_PreservesAccumulators(t *testing.T) {
	g := newTestGuard(t, Limits{PerTrade: 0.01, Daily: 0.06, Weekly: 0.05})
	g.UpdateLosses(-200)
	g.CountTrade()

	if err := g.Reconfigure(0.10, 0.02); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	st := g.Snapshot()
	if st.DailyLoss != 200 || st.WeeklyLoss != 200 || st.TradesToday != 1 {
		t.Errorf("accumulators should survive reconfigure, got %+v", st)
	}
	lim := g.Limits()
	if lim.Daily != 0.10 || lim.PerTrade != 0.02 {
		t.Errorf("limits not updated: %+v", lim)
	}
	if lim.Weekly != 0.05 {
		t.Errorf("weekly limit should be untouched, got %.4f", lim.Weekly)
	}

	if err := g.Reconfigure(0, 0.02); err == nil {
		t.Error("expected error for zero daily limit")
	}
}
