// Package performance persists decisions, evaluates their outcomes after a
// delay, and computes the metrics that feed the rule engine's adaptive
// reweighting. The rolling 24h window bookkeeping and reset-on-schedule
// style follow the teacher's circuit breaker; the optional on-disk dump
// follows the metrics-persistence pattern used elsewhere in the example
// pack for append-only records.
package performance

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"xauengine/internal/ringbuf"
	"xauengine/internal/rules"
)

// EvalState is a DecisionRecord's lifecycle state.
type EvalState string

const (
	Pending   EvalState = "Pending"
	Evaluated EvalState = "Evaluated"
	Cancelled EvalState = "Cancelled"
)

// OutcomeClass classifies a decision's realised outcome.
type OutcomeClass string

const (
	ExcellentSuccess OutcomeClass = "ExcellentSuccess"
	GoodSuccess      OutcomeClass = "GoodSuccess"
	ModerateSuccess  OutcomeClass = "ModerateSuccess"
	PoorPerformance  OutcomeClass = "PoorPerformance"
	Failure          OutcomeClass = "Failure"
)

// ExecutionQuality classifies a single order's slippage/time profile.
type ExecutionQuality string

const (
	Excellent ExecutionQuality = "Excellent"
	Good      ExecutionQuality = "Good"
	Average   ExecutionQuality = "Average"
	Poor      ExecutionQuality = "Poor"
)

// Trend classifies the overall-score slope across the last five samples.
type Trend string

const (
	Improving Trend = "Improving"
	Stable    Trend = "Stable"
	Declining Trend = "Declining"
)

// DecisionRecord is the tracker's long-lived per-decision entity. Created
// Pending, evaluated exactly once, never mutated after evaluation.
type DecisionRecord struct {
	ID                string
	Decision          rules.FusedDecision
	ContributingRules []string
	RuleWeights       map[string]float64
	State             EvalState
	Outcome           OutcomeClass
	ProfitDelta       float64
	AccuracyScore     float64
	LoggedAt          time.Time
	EvaluatedAt        time.Time
}

// ExecutionRecord is one order's realised execution quality.
type ExecutionRecord struct {
	Slippage      float64
	ExecutionTime time.Duration
	Session       string
	Quality       ExecutionQuality
	Timestamp     time.Time
}

// HealthSample is one composite portfolio-health reading.
type HealthSample struct {
	Value     float64
	Timestamp time.Time
}

// EvaluationDelays bounds how long a decision waits before scoring,
// distinguishing new entries from recovery actions.
type EvaluationDelays struct {
	Entry    time.Duration
	Recovery time.Duration
}

func defaultDelays() EvaluationDelays {
	return EvaluationDelays{Entry: 5 * time.Minute, Recovery: 30 * time.Minute}
}

// Tracker owns all decision records and metrics; other components read
// metrics but never mutate them.
type Tracker struct {
	mu sync.Mutex

	delays  EvaluationDelays
	records []*DecisionRecord
	execs   *ringbuf.Buffer[ExecutionRecord]
	health  *ringbuf.Buffer[HealthSample]
	overallScores *ringbuf.Buffer[float64]

	ruleAccuracy map[string]*ringbuf.Buffer[bool]
	ruleProfit   map[string]*ringbuf.Buffer[float64]
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		delays:        defaultDelays(),
		execs:         ringbuf.New[ExecutionRecord](1000),
		health:        ringbuf.New[HealthSample](500),
		overallScores: ringbuf.New[float64](500),
		ruleAccuracy:  make(map[string]*ringbuf.Buffer[bool]),
		ruleProfit:    make(map[string]*ringbuf.Buffer[float64]),
	}
}

// LogDecision enqueues a new Pending DecisionRecord.
func (t *Tracker) LogDecision(d rules.FusedDecision, weights map[string]float64) *DecisionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := &DecisionRecord{
		ID:                d.ID,
		Decision:          d,
		ContributingRules: append([]string{}, d.ContributingRules...),
		RuleWeights:       weights,
		State:             Pending,
		LoggedAt:          time.Now(),
	}
	t.records = append(t.records, rec)
	return rec
}

// LogExecution records an order's realised slippage/time and derives its
// execution-quality tag from a simple slippage x time scoring table.
func (t *Tracker) LogExecution(slippage float64, execTime time.Duration, session string) ExecutionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := ExecutionRecord{
		Slippage: slippage, ExecutionTime: execTime, Session: session,
		Quality: qualityFor(slippage, execTime), Timestamp: time.Now(),
	}
	t.execs.Push(rec)
	return rec
}

func qualityFor(slippage float64, execTime time.Duration) ExecutionQuality {
	switch {
	case slippage <= 0.5 && execTime <= 200*time.Millisecond:
		return Excellent
	case slippage <= 1.5 && execTime <= 500*time.Millisecond:
		return Good
	case slippage <= 3.0 && execTime <= 1500*time.Millisecond:
		return Average
	default:
		return Poor
	}
}

// evaluationDelayFor picks the entry or recovery delay based on decision
// kind.
func (t *Tracker) evaluationDelayFor(rec *DecisionRecord) time.Duration {
	switch rec.Decision.Kind {
	case rules.CloseProfitable, rules.CloseLosing, rules.EmergencyStop:
		return t.delays.Recovery
	default:
		return t.delays.Entry
	}
}

// EvaluateMatured scans pending records whose age has reached their
// evaluation delay, scores them against realisedProfit (keyed by decision
// pointer identity via the caller), and transitions them Pending ->
// Evaluated exactly once. Re-evaluation is a no-op.
func (t *Tracker) EvaluateMatured(realisedProfit func(*DecisionRecord) (float64, bool)) []*DecisionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var matured []*DecisionRecord
	for _, rec := range t.records {
		if rec.State != Pending {
			continue
		}
		if time.Since(rec.LoggedAt) < t.evaluationDelayFor(rec) {
			continue
		}
		profit, ok := realisedProfit(rec)
		if !ok {
			continue
		}
		t.evaluate(rec, profit)
		matured = append(matured, rec)
	}
	return matured
}

// evaluate scores one record's outcome. Expectation is derived from the
// historical average profit of its contributing rules; the comparison
// buckets the outcome class.
func (t *Tracker) evaluate(rec *DecisionRecord, realisedProfit float64) {
	if rec.State != Pending {
		return
	}

	expectation := 0.0
	for _, name := range rec.ContributingRules {
		if buf, ok := t.ruleProfit[name]; ok {
			items := buf.Items()
			if len(items) > 0 {
				sum := 0.0
				for _, v := range items {
					sum += v
				}
				expectation += sum / float64(len(items))
			}
		}
	}
	if len(rec.ContributingRules) > 0 {
		expectation /= float64(len(rec.ContributingRules))
	}

	ratio := 1.0
	if expectation != 0 {
		ratio = realisedProfit / expectation
	} else if realisedProfit > 0 {
		ratio = 2.0
	} else if realisedProfit < 0 {
		ratio = -1.0
	}

	var class OutcomeClass
	var accuracy float64
	success := realisedProfit > 0
	switch {
	case realisedProfit > 0 && ratio >= 1.5:
		class, accuracy = ExcellentSuccess, 1.0
	case realisedProfit > 0 && ratio >= 1.0:
		class, accuracy = GoodSuccess, 0.8
	case realisedProfit > 0:
		class, accuracy = ModerateSuccess, 0.6
	case realisedProfit == 0:
		class, accuracy = PoorPerformance, 0.3
	default:
		class, accuracy = Failure, 0.0
	}

	rec.State = Evaluated
	rec.Outcome = class
	rec.ProfitDelta = realisedProfit
	rec.AccuracyScore = accuracy
	rec.EvaluatedAt = time.Now()

	for _, name := range rec.ContributingRules {
		if _, ok := t.ruleAccuracy[name]; !ok {
			t.ruleAccuracy[name] = ringbuf.New[bool](500)
			t.ruleProfit[name] = ringbuf.New[float64](500)
		}
		t.ruleAccuracy[name].Push(success)
		t.ruleProfit[name].Push(realisedProfit)
	}
}

// RecordHealth pushes a new composite health reading, computed by the
// caller from profit_factor, balance_factor, and risk_factor per §4.6.
func (t *Tracker) RecordHealth(profitFactor, balanceFactor, riskFactor float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	clip := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	health := 0.4*clip(profitFactor) + 0.3*clip(balanceFactor) + 0.3*(1-clip(riskFactor))
	t.health.Push(HealthSample{Value: health, Timestamp: time.Now()})
	return health
}

// AccuracyRate24h returns evaluated-and-successful / evaluated over the
// last 24 hours.
func (t *Tracker) AccuracyRate24h() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-24 * time.Hour)
	var evaluated, successful int
	for _, rec := range t.records {
		if rec.State != Evaluated || rec.EvaluatedAt.Before(cutoff) {
			continue
		}
		evaluated++
		if rec.ProfitDelta > 0 {
			successful++
		}
	}
	if evaluated == 0 {
		return 0
	}
	return float64(successful) / float64(evaluated)
}

// RuleAccuracy returns the accuracy and average profit for one rule.
func (t *Tracker) RuleAccuracy(name string) (accuracy, avgProfit float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	accBuf, ok := t.ruleAccuracy[name]
	if !ok {
		return 0, 0
	}
	accItems := accBuf.Items()
	successes := 0
	for _, b := range accItems {
		if b {
			successes++
		}
	}
	if len(accItems) > 0 {
		accuracy = float64(successes) / float64(len(accItems))
	}
	profitItems := t.ruleProfit[name].Items()
	if len(profitItems) > 0 {
		sum := 0.0
		for _, p := range profitItems {
			sum += p
		}
		avgProfit = sum / float64(len(profitItems))
	}
	return accuracy, avgProfit
}

// ConfidenceAccuracyCorrelation computes the Pearson correlation between
// each evaluated decision's confidence and its realised accuracy score,
// requiring at least 10 evaluated samples.
func (t *Tracker) ConfidenceAccuracyCorrelation() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var confidences, accuracies []float64
	for _, rec := range t.records {
		if rec.State != Evaluated {
			continue
		}
		confidences = append(confidences, rec.Decision.Confidence)
		accuracies = append(accuracies, rec.AccuracyScore)
	}
	if len(confidences) < 10 {
		return 0, false
	}
	return stat.Correlation(confidences, accuracies, nil), true
}

// ExecutionQualityDistribution returns counts per quality tag and the
// average slippage, over the rolling 24h window implied by the execution
// ring buffer.
func (t *Tracker) ExecutionQualityDistribution() (map[ExecutionQuality]int, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	dist := map[ExecutionQuality]int{Excellent: 0, Good: 0, Average: 0, Poor: 0}
	cutoff := time.Now().Add(-24 * time.Hour)
	sum := 0.0
	n := 0
	for _, e := range t.execs.Items() {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		dist[e.Quality]++
		sum += e.Slippage
		n++
	}
	if n == 0 {
		return dist, 0
	}
	return dist, sum / float64(n)
}

// PortfolioHealthTrend returns the last n health samples.
func (t *Tracker) PortfolioHealthTrend(n int) []HealthSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.health.Last(n)
}

// OverallSystemScore combines accuracy, recovery effectiveness, execution
// success, and latest health into one 0..1 score.
func (t *Tracker) OverallSystemScore(recoveryEffectiveness, executionSuccess float64) float64 {
	t.mu.Lock()
	latestHealth := 0.0
	if samples := t.health.Last(1); len(samples) == 1 {
		latestHealth = samples[0].Value
	}
	t.mu.Unlock()

	accuracy := t.AccuracyRate24h()
	score := 0.30*accuracy + 0.25*recoveryEffectiveness + 0.20*executionSuccess + 0.25*latestHealth
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	t.mu.Lock()
	t.overallScores.Push(score)
	t.mu.Unlock()
	return score
}

// ScoreTrend compares the last five overall-score samples' slope.
func (t *Tracker) ScoreTrend() Trend {
	t.mu.Lock()
	samples := t.overallScores.Last(5)
	t.mu.Unlock()
	if len(samples) < 2 {
		return Stable
	}
	xs := make([]float64, len(samples))
	for i := range samples {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, samples, nil, false)
	switch {
	case slope > 0.02:
		return Improving
	case slope < -0.02:
		return Declining
	default:
		return Stable
	}
}

// Recommendations maps metric thresholds to deterministic, static
// guidance strings.
func (t *Tracker) Recommendations() []string {
	var recs []string
	if acc := t.AccuracyRate24h(); acc > 0 && acc < 0.6 {
		recs = append(recs, "accuracy below 60%: review dimension weights")
	}
	dist, avgSlip := t.ExecutionQualityDistribution()
	if dist[Poor] > dist[Excellent]+dist[Good] {
		recs = append(recs, "execution quality skewed poor: review spacing and slippage tolerance")
	}
	if avgSlip > 2.0 {
		recs = append(recs, "average slippage elevated: widen passive price offsets")
	}
	if corr, ok := t.ConfidenceAccuracyCorrelation(); ok && corr < 0.2 {
		recs = append(recs, "confidence poorly correlated with accuracy: recalibrate rule confidence thresholds")
	}
	if t.ScoreTrend() == Declining {
		recs = append(recs, "overall score declining: consider reverting to a fixed weight mode")
	}
	return recs
}
