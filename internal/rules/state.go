package rules

import "xauengine/internal/ringbuf"

// Outcome is one evaluated decision's effect on a contributing rule,
// pushed into that rule's rolling performance history.
type Outcome struct {
	Success     bool
	ProfitDelta float64
}

// State is a rule's mutable bookkeeping: its current weight, confidence
// threshold, enabled flag, and rolling performance history.
type State struct {
	Name                string
	Weight              float64
	ConfidenceThreshold float64
	Enabled             bool
	History             *ringbuf.Buffer[Outcome]
}

// NewState constructs a State with the given initial weight/threshold and
// a default-sized history buffer.
func NewState(name string, weight, threshold float64) *State {
	return &State{
		Name:                name,
		Weight:              weight,
		ConfidenceThreshold: threshold,
		Enabled:             true,
		History:             ringbuf.New[Outcome](500),
	}
}

// SuccessRate returns the fraction of recorded outcomes that succeeded.
func (s *State) SuccessRate() float64 {
	items := s.History.Items()
	if len(items) == 0 {
		return 0
	}
	successes := 0
	for _, o := range items {
		if o.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(items))
}

// AverageProfit returns the mean profit delta across recorded outcomes.
func (s *State) AverageProfit() float64 {
	items := s.History.Items()
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range items {
		sum += o.ProfitDelta
	}
	return sum / float64(len(items))
}

// RecentOutcomeScore returns the mean of the last n outcomes' booleans as
// a 0..1 score.
func (s *State) RecentOutcomeScore(n int) float64 {
	last := s.History.Last(n)
	if len(last) == 0 {
		return 0
	}
	successes := 0
	for _, o := range last {
		if o.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(last))
}
