// Package metrics exposes the engine's Prometheus gauges and counters,
// registered at package init and served by the API's /metrics handler.
// The metric set and registration-in-init style follow the example pack's
// Prometheus usage for a single-instrument trading bot.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xauengine_decisions_total",
			Help: "Fused decisions by kind.",
		},
		[]string{"kind"},
	)

	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xauengine_orders_total",
			Help: "Orders submitted by side and outcome.",
		},
		[]string{"side", "outcome"},
	)

	PositionClosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xauengine_position_closes_total",
			Help: "Position closes by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	CycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "xauengine_cycle_duration_seconds",
			Help:    "Wall time of one engine cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	CycleIntervalSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xauengine_cycle_interval_seconds",
			Help: "Interval the engine will sleep before the next cycle.",
		},
	)

	EquityUSD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xauengine_equity_usd",
			Help: "Current account equity.",
		},
	)

	OverallSystemScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "xauengine_overall_system_score",
			Help: "Performance tracker's composite 0..1 system score.",
		},
	)

	RuleWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xauengine_rule_weight",
			Help: "Current fusion weight per rule.",
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal, OrdersTotal, PositionClosesTotal,
		CycleDurationSeconds, CycleIntervalSeconds, EquityUSD,
		OverallSystemScore, RuleWeight,
	)
}
