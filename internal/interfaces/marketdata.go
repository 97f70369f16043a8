package interfaces

import (
	"context"

	"options-pilot/internal/types"
)

// MarketData produces a fresh snapshot per trading cycle.
type MarketData interface {
	Snapshot(ctx context.Context) (types.MarketSnapshot, error)
}

// Quoter serves raw quotes to the market-data provider. The brokerage
// client implements it alongside Execution.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (types.Quote, error)
}
