// Package metrics exposes Prometheus collectors fed by engine hooks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/carebook/engine"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors of one carebook instance.
type Metrics struct {
	TurnsTotal        *prometheus.CounterVec   // turns by outcome
	TurnDuration      prometheus.Histogram     // wall time of a turn
	ActiveTurns       prometheus.Gauge         // turns currently running
	NodeVisitsTotal   *prometheus.CounterVec   // node executions by node
	ToolCallsTotal    *prometheus.CounterVec   // tool executions by tool and outcome
	ModelCallDuration *prometheus.HistogramVec // model latency by agent

	gatherer prometheus.Gatherer
}

// New creates the collectors on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg. gatherer backs Handler.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebook_turns_total",
			Help: "Conversation turns by outcome",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carebook_turn_duration_seconds",
			Help:    "Duration of conversation turns",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),
		ActiveTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carebook_active_turns",
			Help: "Turns currently running",
		}),
		NodeVisitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebook_node_visits_total",
			Help: "Routing graph node executions",
		}, []string{"node"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carebook_tool_calls_total",
			Help: "Tool executions by tool and outcome",
		}, []string{"tool", "outcome"}),
		ModelCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carebook_model_call_duration_seconds",
			Help:    "Latency of language model calls by agent",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent"}),
		gatherer: gatherer,
	}

	reg.MustRegister(m.TurnsTotal, m.TurnDuration, m.ActiveTurns, m.NodeVisitsTotal, m.ToolCallsTotal, m.ModelCallDuration)

	return m
}

// Hooks returns the engine hooks updating the collectors.
func (m *Metrics) Hooks() []engine.Hook {
	return []engine.Hook{
		engine.NewFunctionHook(engine.HookTurnStart, func(engine.HookEvent) {
			m.ActiveTurns.Inc()
		}),
		engine.NewFunctionHook(engine.HookTurnEnd, func(ev engine.HookEvent) {
			m.ActiveTurns.Dec()
			m.TurnsTotal.WithLabelValues(outcome(ev.Err)).Inc()
			m.TurnDuration.Observe(ev.Elapsed.Seconds())
		}),
		engine.NewFunctionHook(engine.HookNode, func(ev engine.HookEvent) {
			m.NodeVisitsTotal.WithLabelValues(ev.Name).Inc()
		}),
		engine.NewFunctionHook(engine.HookToolCall, func(ev engine.HookEvent) {
			m.ToolCallsTotal.WithLabelValues(ev.Name, outcome(ev.Err)).Inc()
		}),
		engine.NewFunctionHook(engine.HookModelCall, func(ev engine.HookEvent) {
			m.ModelCallDuration.WithLabelValues(ev.Name).Observe(ev.Elapsed.Seconds())
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
