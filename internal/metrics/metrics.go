// Package metrics defines the Prometheus instruments updated during a
// pipeline run. They live on a private registry so repeated construction
// (one per run, and in tests) never collides.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for one run.
type Metrics struct {
	registry *prometheus.Registry

	FetchRuns        prometheus.Counter
	MessagesFetched  prometheus.Counter
	Categorized      *prometheus.CounterVec
	NotifySuccesses  prometheus.Counter
	NotifyFailures   prometheus.Counter
	ActionsApplied   prometheus.Counter
	ActionsSimulated prometheus.Counter
	ProcessingTime   prometheus.Histogram
	RuleCount        prometheus.Gauge
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_fetch_runs_total",
			Help: "Total number of fetch operations against the provider",
		}),
		MessagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_messages_fetched_total",
			Help: "Total number of unread messages fetched",
		}),
		Categorized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inbox_briefing_categorized_total",
			Help: "Messages categorized, labelled by category",
		}, []string{"category"}),
		NotifySuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_notify_successes_total",
			Help: "Successful summary deliveries",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_notify_failures_total",
			Help: "Failed summary deliveries",
		}),
		ActionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_actions_applied_total",
			Help: "Mailbox actions applied through the provider",
		}),
		ActionsSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inbox_briefing_actions_simulated_total",
			Help: "Mailbox actions recorded in simulate mode",
		}),
		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inbox_briefing_processing_duration_seconds",
			Help:    "Time spent running the pipeline",
			Buckets: prometheus.DefBuckets,
		}),
		RuleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inbox_briefing_rule_count",
			Help: "Number of configured category rules",
		}),
	}

	m.registry.MustRegister(
		m.FetchRuns,
		m.MessagesFetched,
		m.Categorized,
		m.NotifySuccesses,
		m.NotifyFailures,
		m.ActionsApplied,
		m.ActionsSimulated,
		m.ProcessingTime,
		m.RuleCount,
	)
	return m
}

// Registry exposes the private registry, mainly for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
