// Package circuit tracks engine cycle health: connection loss streaks,
// cycle overruns, and the operator emergency-stop latch. It decides the
// next cycle's interval and whether trading should continue at all.
package circuit

import (
	"sync"
	"time"

	"xauengine/internal/events"
)

// State is the trading-continuation state of the engine task.
type State string

const (
	StateTrading        State = "trading"
	StateHaltedOffline  State = "halted_offline"  // three consecutive NotConnected cycles
	StateHaltedEmergency State = "halted_emergency" // operator EmergencyStop, awaiting resume
)

const (
	maxConsecutiveNotConnected = 3
	overrunFactor              = 2.0
	backoffInterval            = 10 * time.Second
)

// Breaker observes cycle outcomes and derives the interval the next cycle
// should sleep for, plus whether the engine task should keep trading.
type Breaker struct {
	mu sync.Mutex

	baseInterval     time.Duration
	currentInterval  time.Duration
	consecutiveOffline int
	state            State
	bus              *events.EventBus
	cycleID          int64
}

// NewBreaker constructs a Breaker with the configured base cycle interval.
func NewBreaker(baseInterval time.Duration, bus *events.EventBus) *Breaker {
	return &Breaker{
		baseInterval:    baseInterval,
		currentInterval: baseInterval,
		state:           StateTrading,
		bus:             bus,
	}
}

// CanTrade reports whether the engine task should evaluate rules this cycle,
// as opposed to collapsing straight to Wait.
func (b *Breaker) CanTrade() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateTrading
}

// State returns the current continuation state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Interval returns the duration the engine task should sleep before the
// next cycle.
func (b *Breaker) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentInterval
}

// RecordCycle updates health after one completed cycle: `connected` reports
// whether the gateway answered this cycle, and `took` is the cycle's wall
// time. It returns the interval to use for the next cycle.
func (b *Breaker) RecordCycle(cycleID int64, took time.Duration, connected bool) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cycleID = cycleID

	if !connected {
		b.consecutiveOffline++
		b.currentInterval = backoffInterval
		if b.consecutiveOffline >= maxConsecutiveNotConnected && b.state == StateTrading {
			b.state = StateHaltedOffline
		}
	} else {
		if b.consecutiveOffline > 0 && b.state == StateHaltedOffline {
			b.state = StateTrading
		}
		b.consecutiveOffline = 0
		if took > time.Duration(overrunFactor*float64(b.currentInterval)) {
			widened := took
			if b.bus != nil {
				b.bus.PublishSlowCycle(cycleID, took, b.currentInterval)
			}
			b.currentInterval = widened
		} else {
			b.currentInterval = b.baseInterval
		}
	}
	return b.currentInterval
}

// TripEmergencyStop halts trading until ResumeFromEmergencyStop is called.
// Distinct from the offline halt: only an operator action clears it.
func (b *Breaker) TripEmergencyStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateHaltedEmergency
}

// ResumeFromEmergencyStop clears the emergency latch and resumes trading.
func (b *Breaker) ResumeFromEmergencyStop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHaltedEmergency {
		b.state = StateTrading
		b.consecutiveOffline = 0
		b.currentInterval = b.baseInterval
	}
}

// ConsecutiveOffline reports the current NotConnected streak length.
func (b *Breaker) ConsecutiveOffline() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveOffline
}
