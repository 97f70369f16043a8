// Package brokerobs wraps the execution port with logging and tracing
// so broker calls show up as spans without polluting the client itself.
package brokerobs

import (
	"context"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/trace"
	"options-pilot/internal/types"
)

type observableExecution struct {
	exec interfaces.Execution
}

var _ interfaces.Execution = (*observableExecution)(nil)

// Wrap wraps an execution port with observability middleware
func Wrap(exec interfaces.Execution) interfaces.Execution {
	return &observableExecution{exec: exec}
}

func (o *observableExecution) AccountBalance(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.AccountBalance")
	defer span.End()

	balance, err := o.exec.AccountBalance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account balance", err)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Account balance fetched", "balance", balance)
	return balance, nil
}

func (o *observableExecution) Positions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Positions")
	defer span.End()

	positions, err := o.exec.Positions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Positions fetched", "count", len(positions))
	return positions, nil
}

func (o *observableExecution) TodayPnL(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.TodayPnL")
	defer span.End()

	pnl, err := o.exec.TodayPnL(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch today PnL", err)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Today PnL fetched", "pnl", pnl)
	return pnl, nil
}

func (o *observableExecution) PlaceIronCondor(ctx context.Context, symbol string, strikes types.IronCondorStrikes, qty int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceIronCondor")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing iron condor",
		"symbol", symbol,
		"short_call", strikes.ShortCall,
		"long_call", strikes.LongCall,
		"short_put", strikes.ShortPut,
		"long_put", strikes.LongPut,
		"expiration", strikes.Expiration,
		"qty", qty,
	)

	orderID, err := o.exec.PlaceIronCondor(ctx, symbol, strikes, qty)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Iron condor placement failed", err, "symbol", symbol)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "Iron condor placed", "symbol", symbol, "order_id", orderID)
	return orderID, nil
}

func (o *observableExecution) PlaceCreditSpread(ctx context.Context, symbol string, strikes types.CreditSpreadStrikes, qty int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceCreditSpread")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing credit spread",
		"symbol", symbol,
		"side", strikes.Side,
		"short_strike", strikes.ShortStrike,
		"long_strike", strikes.LongStrike,
		"expiration", strikes.Expiration,
		"qty", qty,
	)

	orderID, err := o.exec.PlaceCreditSpread(ctx, symbol, strikes, qty)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Credit spread placement failed", err, "symbol", symbol)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "Credit spread placed", "symbol", symbol, "order_id", orderID)
	return orderID, nil
}

func (o *observableExecution) PlaceCoveredCall(ctx context.Context, symbol string, strike float64, expiration string, qty int) (string, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceCoveredCall")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing covered call",
		"symbol", symbol, "strike", strike, "expiration", expiration, "qty", qty)

	orderID, err := o.exec.PlaceCoveredCall(ctx, symbol, strike, expiration, qty)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Covered call placement failed", err, "symbol", symbol)
		return "", err
	}
	logger.InfoSkip(ctx, 1, "Covered call placed", "symbol", symbol, "order_id", orderID)
	return orderID, nil
}

func (o *observableExecution) ClosePosition(ctx context.Context, orderID string) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "broker.ClosePosition")
	defer span.End()

	ok, err := o.exec.ClosePosition(ctx, orderID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Position close failed", err, "order_id", orderID)
		return false, err
	}
	logger.InfoSkip(ctx, 1, "Position close attempted", "order_id", orderID, "closed", ok)
	return ok, nil
}
