package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/rules"
)

func TestLogDecisionStartsPending(t *testing.T) {
	tr := NewTracker()
	rec := tr.LogDecision(rules.FusedDecision{Kind: rules.Buy, Confidence: 0.8, ContributingRules: []string{"trend_following"}}, nil)
	assert.Equal(t, Pending, rec.State)
}

func TestEvaluateMaturedTransitionsOnce(t *testing.T) {
	tr := NewTracker()
	tr.delays = EvaluationDelays{Entry: 0, Recovery: 0}
	rec := tr.LogDecision(rules.FusedDecision{Kind: rules.Buy, Confidence: 0.8, ContributingRules: []string{"trend_following"}}, nil)

	matured := tr.EvaluateMatured(func(r *DecisionRecord) (float64, bool) { return 15, true })
	require.Len(t, matured, 1)
	assert.Equal(t, Evaluated, rec.State)
	assert.Equal(t, 15.0, rec.ProfitDelta)

	again := tr.EvaluateMatured(func(r *DecisionRecord) (float64, bool) { return 999, true })
	assert.Empty(t, again)
	assert.Equal(t, 15.0, rec.ProfitDelta)
}

func TestOverallSystemScoreBounded(t *testing.T) {
	tr := NewTracker()
	tr.RecordHealth(1.5, -1, 2) // deliberately out of range inputs, must clip
	score := tr.OverallSystemScore(2.0, 2.0)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestConfidenceAccuracyCorrelationRequiresTenSamples(t *testing.T) {
	tr := NewTracker()
	tr.delays = EvaluationDelays{Entry: 0, Recovery: 0}
	for i := 0; i < 5; i++ {
		rec := tr.LogDecision(rules.FusedDecision{Kind: rules.Buy, Confidence: 0.7, ContributingRules: []string{"trend_following"}}, nil)
		tr.evaluate(rec, 10)
	}
	_, ok := tr.ConfidenceAccuracyCorrelation()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		rec := tr.LogDecision(rules.FusedDecision{Kind: rules.Buy, Confidence: 0.7, ContributingRules: []string{"trend_following"}}, nil)
		tr.evaluate(rec, 10)
	}
	_, ok = tr.ConfidenceAccuracyCorrelation()
	assert.True(t, ok)
}

func TestExecutionQualityDistribution(t *testing.T) {
	tr := NewTracker()
	tr.LogExecution(0.2, 100*time.Millisecond, "London")
	tr.LogExecution(5.0, 2*time.Second, "Asian")
	dist, _ := tr.ExecutionQualityDistribution()
	assert.Equal(t, 1, dist[Excellent])
	assert.Equal(t, 1, dist[Poor])
}

func TestRuleAccuracyTracksContributions(t *testing.T) {
	tr := NewTracker()
	tr.delays = EvaluationDelays{Entry: 0, Recovery: 0}
	rec := tr.LogDecision(rules.FusedDecision{Kind: rules.Buy, ContributingRules: []string{"trend_following"}}, nil)
	tr.evaluate(rec, 20)

	acc, avgProfit := tr.RuleAccuracy("trend_following")
	assert.Equal(t, 1.0, acc)
	assert.Equal(t, 20.0, avgProfit)
}
