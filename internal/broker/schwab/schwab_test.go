package schwab

import (
	"context"
	"testing"

	"options-pilot/internal/types"
)

func newDryRunClient() *Client {
	return New(Params{Mode: "DRY_RUN", Capital: 5000})
}

func TestOptionSymbol(t *testing.T) {
	got := optionSymbol("SPY", "2026-08-24", "CALL", 455)
	want := "SPY   260824C00455000"
	if got != want {
		t.Errorf("optionSymbol = %q, want %q", got, want)
	}

	got = optionSymbol("IWM", "2026-09-01", "PUT", 212.5)
	want = "IWM   260901P00212500"
	if got != want {
		t.Errorf("optionSymbol = %q, want %q", got, want)
	}
}

func TestDryRun_BalanceAndPnL(t *testing.T) {
	c := newDryRunClient()
	ctx := context.Background()

	balance, err := c.AccountBalance(ctx)
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if balance != 5000 {
		t.Errorf("balance = %.2f, want capital 5000", balance)
	}

	pnl, err := c.TodayPnL(ctx)
	if err != nil || pnl != 0 {
		t.Errorf("TodayPnL = %.2f err=%v, want 0", pnl, err)
	}
}

func TestDryRun_FillAndClose(t *testing.T) {
	c := newDryRunClient()
	ctx := context.Background()

	orderID, err := c.PlaceIronCondor(ctx, "SPY", types.IronCondorStrikes{
		Expiration: "2026-08-24",
		ShortCall:  455, LongCall: 460, ShortPut: 445, LongPut: 440,
		Credit: 0.50,
	}, 1)
	if err != nil {
		t.Fatalf("PlaceIronCondor: %v", err)
	}
	if orderID == "" {
		t.Fatal("expected simulated order id")
	}

	positions, err := c.Positions(ctx)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 1 || positions[0].OrderID != orderID {
		t.Fatalf("expected one tracked position for %s, got %+v", orderID, positions)
	}

	ok, err := c.ClosePosition(ctx, orderID)
	if err != nil || !ok {
		t.Fatalf("ClosePosition: ok=%v err=%v", ok, err)
	}
	positions, _ = c.Positions(ctx)
	if len(positions) != 0 {
		t.Errorf("expected empty book after close, got %+v", positions)
	}

	ok, err = c.ClosePosition(ctx, "SIM-unknown")
	if err != nil || ok {
		t.Errorf("closing unknown order: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestDryRun_QuoteWalksPerSymbol(t *testing.T) {
	c := newDryRunClient()
	ctx := context.Background()

	q1, err := c.Quote(ctx, "SPY")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	q2, err := c.Quote(ctx, "SPY")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q2.PrevClose != q1.Last {
		t.Errorf("second quote must walk from the first: prev=%.4f last=%.4f", q2.PrevClose, q1.Last)
	}
	if q1.High < q1.Last || q1.Low > q1.Last {
		t.Errorf("quote range must bracket last: %+v", q1)
	}
}

func TestLive_MissingCredentials(t *testing.T) {
	c := New(Params{Mode: "LIVE"})
	ctx := context.Background()

	if _, err := c.AccountBalance(ctx); err == nil {
		t.Error("expected credential error for balance")
	}
	if _, err := c.PlaceCreditSpread(ctx, "SPY", types.CreditSpreadStrikes{}, 1); err == nil {
		t.Error("expected credential error for order")
	}
}
