// Package rules implements the five-rule catalogue and the fusing,
// adaptive-reweighting engine that turns their proposals into one
// FusedDecision per tick. The Rule interface follows the teacher's
// Strategy interface shape; mode weight tables follow GetSignalWeights;
// the mutex-guarded recompute-on-schedule style follows the adaptive
// engine and confluence scorer's weighted-sum fusion.
package rules

import (
	"time"

	"xauengine/internal/market"
)

// Kind is a rule's proposed decision.
type Kind string

const (
	Buy             Kind = "Buy"
	Sell            Kind = "Sell"
	CloseProfitable Kind = "CloseProfitable"
	CloseLosing     Kind = "CloseLosing"
	Wait            Kind = "Wait"
	EmergencyStop   Kind = "EmergencyStop"
)

// Result is produced by a single rule at a single tick.
type Result struct {
	RuleName   string
	Kind       Kind
	Confidence float64
	Reasoning  string
	Data       map[string]interface{}
	Weight     float64 // copied from the rule at time of firing
	Timestamp  time.Time
}

// Rule is the interface every catalogue entry implements. Name is stable
// across restarts; Evaluate must not block or mutate shared state.
type Rule interface {
	Name() string
	Evaluate(snap *market.Snapshot, portfolio *market.PortfolioSnapshot) (Result, bool)
}

// FusedDecision is the engine's output per tick. ID uniquely identifies the
// decision across the rule engine, performance tracker, and event bus.
type FusedDecision struct {
	ID               string
	Kind             Kind
	Confidence       float64
	ContributingRules []string
	Reasoning        string
	TargetPrice      float64 // 0 means "not supplied"
	ProposedVolume   float64 // 0 means "not supplied"
	Timestamp        time.Time
}
