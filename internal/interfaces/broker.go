package interfaces

import (
	"context"

	"options-pilot/internal/types"
)

// Execution is the order-placement and account-query capability of the
// brokerage integration. All calls must honor ctx deadlines; failures
// are returned as errors, never panics.
type Execution interface {
	AccountBalance(ctx context.Context) (float64, error)
	Positions(ctx context.Context) ([]types.Position, error)
	TodayPnL(ctx context.Context) (float64, error)
	PlaceIronCondor(ctx context.Context, symbol string, strikes types.IronCondorStrikes, qty int) (string, error)
	PlaceCreditSpread(ctx context.Context, symbol string, strikes types.CreditSpreadStrikes, qty int) (string, error)
	PlaceCoveredCall(ctx context.Context, symbol string, strike float64, expiration string, qty int) (string, error)
	ClosePosition(ctx context.Context, orderID string) (bool, error)
}
