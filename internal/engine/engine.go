// Package engine runs the cooperative single-execution-context cycle that
// ties every other component together: acquire a snapshot, run the rule
// catalogue, fuse a decision, dispatch it, log and evaluate performance,
// and adapt weights — once per cycle, with no overlapping cycles. The
// construct-components/start-task/stop-task-then-close-gateway shape
// follows the teacher's autopilot controller's Start/Stop/runLoop, with
// the fixed ticker replaced by a dynamically recomputed interval so the
// circuit breaker can widen or back off the cycle period.
package engine

import (
	"context"
	"sync"
	"time"

	"xauengine/internal/circuit"
	"xauengine/internal/events"
	"xauengine/internal/gateway"
	"xauengine/internal/logging"
	"xauengine/internal/lotsize"
	"xauengine/internal/market"
	"xauengine/internal/order"
	"xauengine/internal/performance"
	"xauengine/internal/position"
	"xauengine/internal/rules"
	"xauengine/internal/spacing"
)

// MarketAnalyzer is the snapshot-producing collaborator the engine drives
// once per cycle. internal/analyzer.Analyzer satisfies this.
type MarketAnalyzer interface {
	ComprehensiveAnalysis(ctx context.Context) (*market.Snapshot, error)
}

// Dependencies wires every component the cycle needs. All fields are
// required; Engine does not construct any of them.
type Dependencies struct {
	Analyzer    MarketAnalyzer
	Gateway     gateway.BrokerGateway
	Symbol      string
	Magic       int64
	Rules       *rules.Engine
	Spacing     *spacing.Manager
	Lots        *lotsize.Calculator
	Orders      *order.Manager
	Positions   *position.Manager
	Performance *performance.Tracker
	Breaker     *circuit.Breaker
	Bus         *events.EventBus
}

// Engine runs the cycle loop. Exactly one cycle is ever in flight; the
// next cycle's wait is computed by the circuit breaker from the one that
// just completed.
type Engine struct {
	deps Dependencies

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cycleID int64

	baselineMu sync.Mutex
	baselines  map[*performance.DecisionRecord]float64
}

// New constructs an Engine from its dependencies. It does not start the
// cycle loop; call Start for that.
func New(deps Dependencies) *Engine {
	return &Engine{
		deps:      deps,
		baselines: make(map[*performance.DecisionRecord]float64),
	}
}

// Start launches the cycle loop in its own goroutine. Calling Start twice
// without an intervening Stop is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	stopCh := e.stopCh
	doneCh := e.doneCh
	e.mu.Unlock()

	go e.run(ctx, stopCh, doneCh)
}

// Stop signals the cycle loop to exit after its current cycle and blocks
// until it has. Safe to call when not running.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	stopCh := e.stopCh
	doneCh := e.doneCh
	e.running = false
	e.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// run is the cooperative loop body. Cancellation and stop are only
// observed at the cycle boundary — once a cycle begins it runs to
// completion before either is checked again.
func (e *Engine) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	interval := e.deps.Breaker.Interval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-time.After(interval):
		}

		interval = e.runCycle(ctx)
	}
}

// runCycle executes exactly one pass of the fixed cycle order and returns
// the duration the loop should wait before the next one.
func (e *Engine) runCycle(ctx context.Context) time.Duration {
	e.mu.Lock()
	e.cycleID++
	cycleID := e.cycleID
	e.mu.Unlock()

	start := time.Now()
	log := logging.CycleContext(cycleID, string(e.deps.Breaker.State()))

	connected := e.deps.Gateway.Connected()
	if !connected {
		log.Warn("gateway not connected, collapsing cycle to wait")
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), false)
	}

	if !e.deps.Breaker.CanTrade() {
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), true)
	}

	snap, err := e.deps.Analyzer.ComprehensiveAnalysis(ctx)
	if err != nil {
		log.Error("market analysis failed", "error", err)
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), connected)
	}
	if snap == nil || !snap.Finite() {
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), connected)
	}
	if !snap.Fresh() {
		e.deps.Bus.PublishStaleSnapshot(snap.Age(), market.FreshnessBudget)
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), connected)
	}

	portfolio, err := e.fetchPortfolio(ctx)
	if err != nil {
		log.Error("portfolio fetch failed", "error", err)
		return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), connected)
	}

	results := e.deps.Rules.Evaluate(snap, portfolio)
	decision := e.deps.Rules.Fuse(results)
	decision.Timestamp = time.Now()

	e.deps.Bus.PublishDecisionMade(decision.ID, string(decision.Kind), decision.Reasoning, decision.Confidence, decision.ContributingRules)
	log.Info("decision fused", "decision_id", decision.ID, "kind", decision.Kind, "confidence", decision.Confidence)

	e.dispatch(ctx, decision, snap, portfolio)

	weights := e.ruleWeights()
	rec := e.deps.Performance.LogDecision(decision, weights)
	e.setBaseline(rec, portfolio.Account.Equity)

	e.evaluateMatured(ctx)
	e.adaptiveReweight()

	return e.deps.Breaker.RecordCycle(cycleID, time.Since(start), connected)
}

// fetchPortfolio assembles one consistent PortfolioSnapshot from the
// gateway's three read calls.
func (e *Engine) fetchPortfolio(ctx context.Context) (*market.PortfolioSnapshot, error) {
	positions, err := e.deps.Gateway.Positions(ctx, e.deps.Symbol)
	if err != nil {
		return nil, err
	}
	pending, err := e.deps.Gateway.Orders(ctx, e.deps.Symbol)
	if err != nil {
		return nil, err
	}
	account, err := e.deps.Gateway.AccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &market.PortfolioSnapshot{
		Positions:     positions,
		PendingOrders: pending,
		Account:       account,
		Timestamp:     time.Now(),
	}, nil
}

func (e *Engine) ruleWeights() map[string]float64 {
	states := e.deps.Rules.States()
	out := make(map[string]float64, len(states))
	for name, st := range states {
		out[name] = st.Weight
	}
	return out
}

func (e *Engine) setBaseline(rec *performance.DecisionRecord, equity float64) {
	e.baselineMu.Lock()
	defer e.baselineMu.Unlock()
	e.baselines[rec] = equity
}

// evaluateMatured scores every decision whose evaluation delay has
// elapsed, using the delta between its logged baseline equity and the
// account's current equity as its realised profit — there is no
// per-trade PnL attribution system, so account equity drift between the
// decision and its maturity stands in for it.
func (e *Engine) evaluateMatured(ctx context.Context) {
	account, err := e.deps.Gateway.AccountInfo(ctx)
	if err != nil {
		return
	}

	matured := e.deps.Performance.EvaluateMatured(func(rec *performance.DecisionRecord) (float64, bool) {
		e.baselineMu.Lock()
		baseline, ok := e.baselines[rec]
		e.baselineMu.Unlock()
		if !ok {
			return 0, false
		}
		return account.Equity - baseline, true
	})

	for _, rec := range matured {
		e.baselineMu.Lock()
		delete(e.baselines, rec)
		e.baselineMu.Unlock()

		success := rec.ProfitDelta > 0
		perRule := rec.ProfitDelta
		if n := len(rec.ContributingRules); n > 0 {
			perRule = rec.ProfitDelta / float64(n)
		}
		for _, name := range rec.ContributingRules {
			e.deps.Rules.Credit(name, success, perRule)
		}
	}
}

// adaptiveReweight runs the engine's reweighting step and publishes one
// WeightAdjusted event per rule whose weight or threshold actually moved.
func (e *Engine) adaptiveReweight() {
	before := e.deps.Rules.States()
	e.deps.Rules.AdaptiveReweight()
	after := e.deps.Rules.States()

	for name, prev := range before {
		next, ok := after[name]
		if !ok {
			continue
		}
		if next.Weight != prev.Weight || next.ConfidenceThreshold != prev.ConfidenceThreshold {
			e.deps.Bus.PublishWeightAdjusted(name, prev.Weight, next.Weight, next.ConfidenceThreshold)
		}
	}
}
