package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/types"
)

// featureNames is the fixed feature vector the model scores over.
var featureNames = []string{"iv_rank", "vix", "rsi", "put_call_ratio", "day_of_week"}

// ModelWeights is the serialized form of a trained logistic model.
type ModelWeights struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// ModelGate scores a logistic model over a fixed feature vector and
// accepts when the probability clears the configured threshold. Any
// failure (missing weights file, incomplete feature set) fails open.
type ModelGate struct {
	weights      *ModelWeights
	minEdgeProb  float64
	defaultAllow *RuleGate
}

var _ interfaces.EdgeGate = (*ModelGate)(nil)

// NewModelGate loads weights from path. A missing or malformed file is
// not fatal: the gate is constructed without a model and fails open at
// evaluation time.
func NewModelGate(ctx context.Context, path string, minEdgeProb float64) *ModelGate {
	g := &ModelGate{minEdgeProb: minEdgeProb}

	w, err := loadWeights(path)
	if err != nil {
		logger.Warn(ctx, "No usable edge model, gate will fail open", "path", path, "error", err)
		return g
	}
	g.weights = w
	logger.Info(ctx, "Edge model loaded", "path", path, "features", len(w.Weights))
	return g
}

func loadWeights(path string) (*ModelWeights, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w ModelWeights
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	for _, name := range featureNames {
		if _, ok := w.Weights[name]; !ok {
			return nil, fmt.Errorf("edge: weights file missing feature %q", name)
		}
	}
	return &w, nil
}

func (g *ModelGate) HasEdge(ctx context.Context, snap types.MarketSnapshot) bool {
	if g.weights == nil {
		logger.Debug(ctx, "Edge model unavailable, failing open")
		return true
	}

	prob, err := g.probability(snap)
	if err != nil {
		logger.ErrorWithErr(ctx, "Edge model scoring failed, failing open", err)
		return true
	}

	hasEdge := prob >= g.minEdgeProb
	logger.Info(ctx, "Edge model scored",
		"probability", prob,
		"threshold", g.minEdgeProb,
		"has_edge", hasEdge,
	)
	return hasEdge
}

func (g *ModelGate) probability(snap types.MarketSnapshot) (float64, error) {
	features := map[string]float64{
		"iv_rank":        snap.IVRank,
		"vix":            snap.VIX,
		"rsi":            snap.RSI,
		"put_call_ratio": snap.PutCallRatio,
		"day_of_week":    float64(snap.Timestamp.Weekday()),
	}

	z := g.weights.Bias
	for name, x := range features {
		w, ok := g.weights.Weights[name]
		if !ok {
			return 0, fmt.Errorf("edge: no weight for feature %q", name)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("edge: feature %q is not finite", name)
		}
		z += w * x
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}
