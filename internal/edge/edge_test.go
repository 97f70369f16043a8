package edge

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"options-pilot/internal/types"
)

func TestRuleGate_Bands(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name         string
		vix, ivRank  float64
		defaultAllow bool
		want         bool
	}{
		{"high vix rejects even with rich iv", 35, 80, true, false},
		{"rich iv rank accepts", 20, 75, false, true},
		{"starved iv rank rejects", 20, 25, true, false},
		{"middle band uses default allow", 20, 50, true, true},
		{"middle band uses default reject", 20, 50, false, false},
		{"iv rank exactly 70 is middle band", 20, 70, false, false},
		{"iv rank exactly 30 is middle band", 20, 30, true, true},
		{"vix exactly 30 is not high", 30, 75, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewRuleGate(tc.defaultAllow)
			snap := types.MarketSnapshot{VIX: tc.vix, IVRank: tc.ivRank}
			if got := g.HasEdge(ctx, snap); got != tc.want {
				t.Errorf("HasEdge() = %v, want %v", got, tc.want)
			}
		})
	}
}

func writeWeights(t *testing.T, w ModelWeights) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.json")
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func allFeatures(v float64) map[string]float64 {
	m := make(map[string]float64, len(featureNames))
	for _, name := range featureNames {
		m[name] = v
	}
	return m
}

func TestModelGate_FailsOpenWithoutModel(t *testing.T) {
	ctx := context.Background()
	g := NewModelGate(ctx, filepath.Join(t.TempDir(), "missing.json"), 0.55)
	if !g.HasEdge(ctx, types.MarketSnapshot{VIX: 99, IVRank: 0}) {
		t.Error("gate without a model must fail open")
	}
}

func TestModelGate_FailsOpenOnIncompleteWeights(t *testing.T) {
	ctx := context.Background()
	path := writeWeights(t, ModelWeights{Bias: 0, Weights: map[string]float64{"vix": 1}})
	g := NewModelGate(ctx, path, 0.55)
	if g.weights != nil {
		t.Error("incomplete weights file should be rejected at load")
	}
	if !g.HasEdge(ctx, types.MarketSnapshot{}) {
		t.Error("gate must fail open after rejected load")
	}
}

func TestModelGate_FailsOpenOnNonFiniteFeature(t *testing.T) {
	ctx := context.Background()
	path := writeWeights(t, ModelWeights{Bias: -100, Weights: allFeatures(0)})
	g := NewModelGate(ctx, path, 0.55)
	snap := types.MarketSnapshot{IVRank: math.NaN(), Timestamp: time.Now()}
	if !g.HasEdge(ctx, snap) {
		t.Error("non-finite feature must fail open, not block trading")
	}
}

func TestModelGate_Threshold(t *testing.T) {
	ctx := context.Background()

	// Zero weights and bias give probability exactly 0.5.
	path := writeWeights(t, ModelWeights{Bias: 0, Weights: allFeatures(0)})
	snap := types.MarketSnapshot{IVRank: 50, VIX: 20, RSI: 50, PutCallRatio: 1, Timestamp: time.Now()}

	g := NewModelGate(ctx, path, 0.55)
	if g.HasEdge(ctx, snap) {
		t.Error("probability 0.5 must not clear a 0.55 threshold")
	}

	g = NewModelGate(ctx, path, 0.5)
	if !g.HasEdge(ctx, snap) {
		t.Error("threshold is inclusive: probability 0.5 clears 0.5")
	}

	// A strongly positive bias drives probability near 1.
	path = writeWeights(t, ModelWeights{Bias: 10, Weights: allFeatures(0)})
	g = NewModelGate(ctx, path, 0.55)
	if !g.HasEdge(ctx, snap) {
		t.Error("expected edge with saturated positive bias")
	}
}
