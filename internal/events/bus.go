package events

import (
	"sync"
	"time"
)

// EventType represents different kinds of events published during a trading
// cycle.
type EventType string

const (
	EventDecisionMade     EventType = "DECISION_MADE"
	EventOrderSubmitted   EventType = "ORDER_SUBMITTED"
	EventOrderRejected    EventType = "ORDER_REJECTED"
	EventPositionClosed   EventType = "POSITION_CLOSED"
	EventRecoveryExecuted EventType = "RECOVERY_EXECUTED"
	EventWeightAdjusted   EventType = "WEIGHT_ADJUSTED"
	EventSlowCycle        EventType = "SLOW_CYCLE"
	EventStaleSnapshot    EventType = "STALE_SNAPSHOT"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishDecisionMade publishes the fused decision reached for a cycle.
// decisionID is the rule engine's uuid for this FusedDecision, letting a
// subscriber correlate it with the order/reject events it produces.
func (eb *EventBus) PublishDecisionMade(decisionID, kind, reasoning string, confidence float64, contributingRules []string) {
	eb.Publish(Event{
		Type: EventDecisionMade,
		Data: map[string]interface{}{
			"decision_id":        decisionID,
			"kind":               kind,
			"confidence":         confidence,
			"reasoning":          reasoning,
			"contributing_rules": contributingRules,
		},
	})
}

// PublishOrderSubmitted publishes a successfully submitted order.
func (eb *EventBus) PublishOrderSubmitted(decisionID string, ticket int64, clientOrderID, side string, volume, price float64, reason string) {
	eb.Publish(Event{
		Type: EventOrderSubmitted,
		Data: map[string]interface{}{
			"decision_id":     decisionID,
			"ticket":          ticket,
			"client_order_id": clientOrderID,
			"side":            side,
			"volume":          volume,
			"price":           price,
			"reason":          reason,
		},
	})
}

// PublishOrderRejected publishes an order the gateway or order manager refused.
func (eb *EventBus) PublishOrderRejected(decisionID, side string, volume, price float64, reason, errKind string) {
	eb.Publish(Event{
		Type: EventOrderRejected,
		Data: map[string]interface{}{
			"decision_id": decisionID,
			"side":        side,
			"volume":      volume,
			"price":       price,
			"reason":      reason,
			"err_kind":    errKind,
		},
	})
}

// PublishPositionClosed publishes one position's close outcome.
func (eb *EventBus) PublishPositionClosed(ticket int64, side string, volume, pnl float64, success bool) {
	eb.Publish(Event{
		Type: EventPositionClosed,
		Data: map[string]interface{}{
			"ticket":  ticket,
			"side":    side,
			"volume":  volume,
			"pnl":     pnl,
			"success": success,
		},
	})
}

// PublishRecoveryExecuted publishes a hedge/partial recovery closeout.
func (eb *EventBus) PublishRecoveryExecuted(strategy string, ticketsClosed int, netPnL float64) {
	eb.Publish(Event{
		Type: EventRecoveryExecuted,
		Data: map[string]interface{}{
			"strategy":       strategy,
			"tickets_closed": ticketsClosed,
			"net_pnl":        netPnL,
		},
	})
}

// PublishWeightAdjusted publishes an adaptive reweighting outcome for one rule.
func (eb *EventBus) PublishWeightAdjusted(ruleName string, oldWeight, newWeight, newThreshold float64) {
	eb.Publish(Event{
		Type: EventWeightAdjusted,
		Data: map[string]interface{}{
			"rule":          ruleName,
			"old_weight":    oldWeight,
			"new_weight":    newWeight,
			"new_threshold": newThreshold,
		},
	})
}

// PublishSlowCycle publishes a cycle whose duration exceeded its budget.
func (eb *EventBus) PublishSlowCycle(cycleID int64, took, interval time.Duration) {
	eb.Publish(Event{
		Type: EventSlowCycle,
		Data: map[string]interface{}{
			"cycle_id": cycleID,
			"took_ms":  took.Milliseconds(),
			"interval_ms": interval.Milliseconds(),
		},
	})
}

// PublishStaleSnapshot publishes a cycle skipped because market data aged out.
func (eb *EventBus) PublishStaleSnapshot(age time.Duration, budget time.Duration) {
	eb.Publish(Event{
		Type: EventStaleSnapshot,
		Data: map[string]interface{}{
			"age_ms":    age.Milliseconds(),
			"budget_ms": budget.Milliseconds(),
		},
	})
}
