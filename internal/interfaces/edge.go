package interfaces

import (
	"context"

	"options-pilot/internal/types"
)

// EdgeGate answers whether there is a tradable edge in the current
// market. Implementations must fail open: an internal failure returns
// true rather than silently blocking all trading.
type EdgeGate interface {
	HasEdge(ctx context.Context, snap types.MarketSnapshot) bool
}
