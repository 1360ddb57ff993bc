package metrics

import "xauengine/internal/events"

// Wire subscribes the package's counters to the event bus so every
// dispatch the engine makes is reflected in /metrics without the engine
// itself depending on Prometheus.
func Wire(bus *events.EventBus) {
	bus.Subscribe(events.EventDecisionMade, func(e events.Event) {
		kind, _ := e.Data["kind"].(string)
		DecisionsTotal.WithLabelValues(kind).Inc()
	})
	bus.Subscribe(events.EventOrderSubmitted, func(e events.Event) {
		side, _ := e.Data["side"].(string)
		OrdersTotal.WithLabelValues(side, "submitted").Inc()
	})
	bus.Subscribe(events.EventOrderRejected, func(e events.Event) {
		side, _ := e.Data["side"].(string)
		OrdersTotal.WithLabelValues(side, "rejected").Inc()
	})
	bus.Subscribe(events.EventPositionClosed, func(e events.Event) {
		success, _ := e.Data["success"].(bool)
		outcome := "failed"
		if success {
			outcome = "closed"
		}
		PositionClosesTotal.WithLabelValues("direct", outcome).Inc()
	})
	bus.Subscribe(events.EventRecoveryExecuted, func(e events.Event) {
		strategy, _ := e.Data["strategy"].(string)
		PositionClosesTotal.WithLabelValues(strategy, "closed").Inc()
	})
	bus.Subscribe(events.EventWeightAdjusted, func(e events.Event) {
		rule, _ := e.Data["rule"].(string)
		weight, _ := e.Data["new_weight"].(float64)
		RuleWeight.WithLabelValues(rule).Set(weight)
	})
	bus.Subscribe(events.EventSlowCycle, func(e events.Event) {
		tookMs, _ := e.Data["took_ms"].(int64)
		CycleDurationSeconds.Observe(float64(tookMs) / 1000.0)
	})
}
