package rules

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/market"
)

func trendingUpSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Mid: 2000, TrendDirection: market.TrendUp, TrendStrength: 0.8, RSI: 25,
		VolatilityFactor: 1.0, Session: market.SessionLondon, Timestamp: time.Now(),
	}
}

func TestFuseEmptyResultsIsWait(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Balanced)
	d := e.Fuse(nil)
	assert.Equal(t, Wait, d.Kind)
}

func TestFuseBelowThresholdIsWait(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Balanced)
	results := []Result{{RuleName: "trend_following", Kind: Buy, Confidence: 0.3, Weight: 0.2}}
	d := e.Fuse(results)
	assert.Equal(t, Wait, d.Kind)
}

func TestEvaluateAndFuseTrendingBuy(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Balanced)
	results := e.Evaluate(trendingUpSnapshot(), &market.PortfolioSnapshot{})
	require.NotEmpty(t, results)

	d := e.Fuse(results)
	assert.Equal(t, Buy, d.Kind)
	assert.Greater(t, d.Confidence, 0.0)
}

func TestZeroEnabledRulesIsWaitEveryCycle(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Balanced)
	for _, st := range e.states {
		st.Enabled = false
	}
	results := e.Evaluate(trendingUpSnapshot(), &market.PortfolioSnapshot{})
	assert.Empty(t, results)
	assert.Equal(t, Wait, e.Fuse(results).Kind)
}

func TestSetModeIdempotent(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Conservative)
	before := e.States()
	e.SetMode(Conservative)
	after := e.States()
	for name, st := range before {
		assert.InDelta(t, st.Weight, after[name].Weight, 1e-9)
	}
}

func TestAdaptiveReweightProducesValidWeights(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Adaptive)

	for i := 0; i < 20; i++ {
		e.Credit("trend_following", true, 12)
		e.Credit("mean_reversion", false, -4)
	}
	e.AdaptiveReweight()

	states := e.States()
	sum := 0.0
	for _, st := range states {
		assert.GreaterOrEqual(t, st.Weight, 0.05-1e-9)
		sum += st.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, states["trend_following"].Weight, states["mean_reversion"].Weight)
}

func TestAdaptiveReweightAdjustsThresholds(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Adaptive)
	for i := 0; i < 20; i++ {
		e.Credit("trend_following", true, 10)
		e.Credit("mean_reversion", false, -5)
	}
	beforeHigh := e.states["trend_following"].ConfidenceThreshold
	beforeLow := e.states["mean_reversion"].ConfidenceThreshold
	e.AdaptiveReweight()
	assert.Less(t, e.states["trend_following"].ConfidenceThreshold, beforeHigh-1e-9)
	assert.GreaterOrEqual(t, e.states["trend_following"].ConfidenceThreshold, 0.3)
	assert.Greater(t, e.states["mean_reversion"].ConfidenceThreshold, beforeLow+1e-9)
	assert.LessOrEqual(t, e.states["mean_reversion"].ConfidenceThreshold, 0.9)
}

func TestEvaluateDoesNotPanicOnDegenerateInputs(t *testing.T) {
	e := NewEngine(DefaultCatalogue(), Balanced)
	snap := &market.Snapshot{Timestamp: time.Now()}
	results := e.Evaluate(snap, &market.PortfolioSnapshot{})
	d := e.Fuse(results)
	assert.False(t, math.IsNaN(d.Confidence))
}
