package interfaces

import (
	"context"

	"options-pilot/internal/types"
)

// Engine is the control surface the dashboard talks to. Run blocks
// until the context is canceled or Stop is called; the remaining
// methods may be invoked concurrently from the control API.
type Engine interface {
	Run(ctx context.Context) error
	Stop()
	Pause()
	Resume()
	SetMode(mode types.Mode) error
	UpdateRiskSettings(dailyLimit, perTradeLimit float64) error
	EmergencyExitAll(ctx context.Context) (int, error)
	RecordResult(ctx context.Context, result types.TradeResult)
	Stats(ctx context.Context) types.Stats
}
