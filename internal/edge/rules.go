// Package edge decides whether current market conditions carry a
// tradable edge. All gates fail open: infrastructure problems must not
// silently stop the bot from trading.
package edge

import (
	"context"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/types"
)

// RuleGate is the default rule-based edge filter. High VIX rejects, a
// rich IV rank accepts, a starved IV rank rejects, and the middle band
// falls through to a configured default.
type RuleGate struct {
	defaultAllow bool
}

var _ interfaces.EdgeGate = (*RuleGate)(nil)

func NewRuleGate(defaultAllow bool) *RuleGate {
	return &RuleGate{defaultAllow: defaultAllow}
}

func (g *RuleGate) HasEdge(ctx context.Context, snap types.MarketSnapshot) bool {
	switch {
	case snap.VIX > 30:
		logger.Debug(ctx, "Edge rejected: VIX too high", "vix", snap.VIX)
		return false
	case snap.IVRank > 70:
		logger.Debug(ctx, "Edge accepted: rich IV rank", "iv_rank", snap.IVRank)
		return true
	case snap.IVRank < 30:
		logger.Debug(ctx, "Edge rejected: starved IV rank", "iv_rank", snap.IVRank)
		return false
	default:
		logger.Debug(ctx, "Edge defaulted", "default_allow", g.defaultAllow, "iv_rank", snap.IVRank)
		return g.defaultAllow
	}
}
