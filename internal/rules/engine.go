package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"xauengine/internal/market"
)

// Mode selects how rule weights are derived.
type Mode string

const (
	Conservative Mode = "Conservative"
	Balanced     Mode = "Balanced"
	Aggressive   Mode = "Aggressive"
	Adaptive     Mode = "Adaptive"
)

// AdaptiveConfig holds the adaptive-reweighting tunables.
type AdaptiveConfig struct {
	MinSignals         int
	AdjustmentRate     float64
	LastNOutcomes      int
	WeightFloor        float64
	ThresholdFloor     float64
	ThresholdCap       float64
}

func defaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{MinSignals: 20, AdjustmentRate: 0.05, LastNOutcomes: 10, WeightFloor: 0.05, ThresholdFloor: 0.3, ThresholdCap: 0.9}
}

// fixedWeightTables gives each non-adaptive mode a static weight per rule
// name, mirroring the teacher's per-trading-style signal weight tables.
var fixedWeightTables = map[Mode]map[string]float64{
	Conservative: {
		"trend_following":     0.30,
		"mean_reversion":      0.25,
		"support_resistance":  0.25,
		"volatility_breakout": 0.05,
		"portfolio_balance":   0.15,
	},
	Balanced: {
		"trend_following":     0.25,
		"mean_reversion":      0.20,
		"support_resistance":  0.20,
		"volatility_breakout": 0.20,
		"portfolio_balance":   0.15,
	},
	Aggressive: {
		"trend_following":     0.20,
		"mean_reversion":      0.15,
		"support_resistance":  0.15,
		"volatility_breakout": 0.35,
		"portfolio_balance":   0.15,
	},
}

// Engine runs the rule catalogue, fuses results into one decision, and
// adapts weights/thresholds. The rule set (weights, thresholds,
// histories) is mutated only during the adaptive step; readers take a
// consistent snapshot via States().
type Engine struct {
	mu      sync.RWMutex
	rules   []Rule
	states  map[string]*State
	mode    Mode
	adaptCfg AdaptiveConfig
	minFusionScore float64
}

// NewEngine constructs an Engine with the given catalogue and starting
// mode.
func NewEngine(catalogue []Rule, mode Mode) *Engine {
	e := &Engine{
		rules:          catalogue,
		states:         make(map[string]*State),
		mode:           mode,
		adaptCfg:       defaultAdaptiveConfig(),
		minFusionScore: 0.5,
	}
	n := len(catalogue)
	equal := 1.0 / float64(n)
	for _, r := range catalogue {
		e.states[r.Name()] = NewState(r.Name(), equal, 0.5)
	}
	e.applyMode(mode)
	return e
}

// SetMode switches trading mode. Idempotent: applying the same mode twice
// yields the same weights.
func (e *Engine) SetMode(mode Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
	if mode != Adaptive {
		e.applyMode(mode)
	}
}

// applyMode assigns the fixed weight table for non-adaptive modes,
// renormalising across enabled rules if the catalogue doesn't match the
// table's key set exactly.
func (e *Engine) applyMode(mode Mode) {
	table, ok := fixedWeightTables[mode]
	if !ok {
		return
	}
	sum := 0.0
	for _, r := range e.rules {
		if w, ok := table[r.Name()]; ok {
			sum += w
		}
	}
	if sum <= 0 {
		return
	}
	for _, r := range e.rules {
		w, ok := table[r.Name()]
		if !ok {
			w = 0
		}
		e.states[r.Name()].Weight = w / sum
	}
}

// States returns a read-only copy of the current per-rule state.
func (e *Engine) States() map[string]State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]State, len(e.states))
	for k, v := range e.states {
		out[k] = *v
	}
	return out
}

// Evaluate runs every enabled rule against the snapshots and collects the
// results that clear their rule's confidence threshold.
func (e *Engine) Evaluate(snap *market.Snapshot, portfolio *market.PortfolioSnapshot) []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []Result
	for _, r := range e.rules {
		st := e.states[r.Name()]
		if st == nil || !st.Enabled {
			continue
		}
		res, fired := r.Evaluate(snap, portfolio)
		if !fired || res.Confidence < st.ConfidenceThreshold {
			continue
		}
		res.Weight = st.Weight
		results = append(results, res)
	}
	return results
}

// Fuse groups results by decision kind, scores each group, and selects the
// highest-scoring kind, requiring score >= 0.5 or emitting Wait. Every
// returned decision, including Wait, carries a fresh uuid so the
// performance tracker and event bus can refer to it unambiguously.
func (e *Engine) Fuse(results []Result) FusedDecision {
	if len(results) == 0 {
		return FusedDecision{ID: uuid.New().String(), Kind: Wait}
	}

	groups := make(map[Kind][]Result)
	for _, r := range results {
		groups[r.Kind] = append(groups[r.Kind], r)
	}

	var bestKind Kind = Wait
	bestScore := 0.0
	for kind, group := range groups {
		score := 0.0
		for _, r := range group {
			score += r.Confidence * r.Weight
		}
		if score > bestScore {
			bestScore = score
			bestKind = kind
		}
	}

	if bestScore < e.minFusionScore {
		return FusedDecision{ID: uuid.New().String(), Kind: Wait}
	}

	group := groups[bestKind]
	names := make([]string, 0, len(group))
	reasons := make([]string, 0, len(group))
	var targetPrice, proposedVolume float64
	for _, r := range group {
		names = append(names, r.RuleName)
		reasons = append(reasons, r.Reasoning)
		if p, ok := r.Data["target_price"].(float64); ok && targetPrice == 0 {
			targetPrice = p
		}
		if v, ok := r.Data["volume"].(float64); ok && proposedVolume == 0 {
			proposedVolume = v
		}
	}
	sort.Strings(names)

	return FusedDecision{
		ID:                uuid.New().String(),
		Kind:              bestKind,
		Confidence:        minFloat(1.0, bestScore),
		ContributingRules: names,
		Reasoning:         strings.Join(reasons, "; "),
		TargetPrice:       targetPrice,
		ProposedVolume:    proposedVolume,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Credit records one contributing rule's outcome after a decision has been
// evaluated by the performance tracker.
func (e *Engine) Credit(ruleName string, success bool, profitDelta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[ruleName]
	if st == nil {
		return
	}
	st.History.Push(Outcome{Success: success, ProfitDelta: profitDelta})
}

// AdaptiveReweight recomputes weights and confidence thresholds per the
// Adaptive formula. No-op outside Adaptive mode. Adjustments happen at
// most once per call; callers invoke this at most once per tick.
func (e *Engine) AdaptiveReweight() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != Adaptive {
		return
	}

	type scored struct {
		name  string
		score float64
	}
	var eligible []scored
	maxAbsProfit := 0.0
	for _, st := range e.states {
		if st.History.Len() >= e.adaptCfg.MinSignals {
			if ap := absFloat(st.AverageProfit()); ap > maxAbsProfit {
				maxAbsProfit = ap
			}
		}
	}

	for _, r := range e.rules {
		st := e.states[r.Name()]
		if st.History.Len() < e.adaptCfg.MinSignals {
			eligible = append(eligible, scored{name: r.Name(), score: st.Weight})
			continue
		}
		normalisedAvgProfit := 0.0
		if maxAbsProfit > 0 {
			normalisedAvgProfit = st.AverageProfit() / maxAbsProfit
		}
		score := 0.4*st.SuccessRate() + 0.3*normalisedAvgProfit + 0.3*st.RecentOutcomeScore(e.adaptCfg.LastNOutcomes)
		if score < e.adaptCfg.WeightFloor {
			score = e.adaptCfg.WeightFloor
		}
		eligible = append(eligible, scored{name: r.Name(), score: score})

		switch {
		case st.SuccessRate() < 0.4:
			st.ConfidenceThreshold = minFloat(e.adaptCfg.ThresholdCap, st.ConfidenceThreshold+e.adaptCfg.AdjustmentRate)
		case st.SuccessRate() > 0.7:
			st.ConfidenceThreshold = maxFloat(e.adaptCfg.ThresholdFloor, st.ConfidenceThreshold-e.adaptCfg.AdjustmentRate)
		}
	}

	raw := make(map[string]float64, len(eligible))
	for _, s := range eligible {
		raw[s.name] = s.score
	}
	for name, w := range normalizeWithFloor(raw, e.adaptCfg.WeightFloor) {
		e.states[name].Weight = w
	}
}

// normalizeWithFloor scales scores to sum to 1 while keeping every entry at
// or above floor. A plain normalise can push a low scorer below floor once
// divided by a total inflated by other rules' scores, which breaks the
// "every weight >= floor" invariant; this clamps those up and redistributes
// the deficit proportionally across the rules still above floor, repeating
// until stable (at most len(scores) passes).
func normalizeWithFloor(scores map[string]float64, floor float64) map[string]float64 {
	n := len(scores)
	if n == 0 {
		return nil
	}
	weights := make(map[string]float64, n)
	total := 0.0
	for _, v := range scores {
		total += v
	}
	if total <= 0 {
		eq := 1.0 / float64(n)
		for name := range scores {
			weights[name] = eq
		}
		return weights
	}
	for name, v := range scores {
		weights[name] = v / total
	}

	pinned := make(map[string]bool, n)
	for pass := 0; pass < n; pass++ {
		deficit := 0.0
		changed := false
		for name, w := range weights {
			if !pinned[name] && w < floor {
				deficit += floor - w
				weights[name] = floor
				pinned[name] = true
				changed = true
			}
		}
		if !changed {
			break
		}
		freeTotal := 0.0
		for name := range weights {
			if !pinned[name] {
				freeTotal += weights[name]
			}
		}
		if freeTotal <= 0 {
			break
		}
		for name, w := range weights {
			if !pinned[name] {
				weights[name] = w - deficit*(w/freeTotal)
			}
		}
	}
	return weights
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// String is used in logging contexts.
func (d FusedDecision) String() string {
	return fmt.Sprintf("%s conf=%.2f rules=%v", d.Kind, d.Confidence, d.ContributingRules)
}
