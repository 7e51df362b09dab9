package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments published by the experiment
// runner. All instruments live in a private registry so concurrent
// experiments and tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	strategyRuns   *prometheus.CounterVec
	strategyErrors *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runCost        *prometheus.GaugeVec
	cacheHitRate   *prometheus.GaugeVec
	placements     *prometheus.CounterVec
	solverNodes    prometheus.Histogram
}

// New builds a Metrics set backed by a fresh registry with the standard
// process and Go runtime collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		strategyRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "strategy_runs_total",
			Help:      "Completed strategy executions.",
		}, []string{"strategy"}),
		strategyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "strategy_errors_total",
			Help:      "Strategy executions that returned an error.",
		}, []string{"strategy"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "offload",
			Name:      "strategy_run_duration_seconds",
			Help:      "Wall-clock time of one strategy execution.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"strategy"}),
		runCost: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "offload",
			Name:      "strategy_last_cost",
			Help:      "Weighted objective cost of the most recent run.",
		}, []string{"strategy"}),
		cacheHitRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "offload",
			Name:      "strategy_cache_hit_rate_percent",
			Help:      "Reuse cache hit rate observed in the most recent run.",
		}, []string{"strategy"}),
		placements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "offload",
			Name:      "task_placements_total",
			Help:      "Task placements by strategy and execution site.",
		}, []string{"strategy", "placement"}),
		solverNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "offload",
			Name:      "solver_nodes_expanded",
			Help:      "Search nodes expanded per exact solve.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a finished strategy execution.
func (m *Metrics) ObserveRun(strategy string, duration time.Duration, cost float64) {
	m.strategyRuns.WithLabelValues(strategy).Inc()
	m.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.runCost.WithLabelValues(strategy).Set(cost)
}

// ObserveError records a failed strategy execution.
func (m *Metrics) ObserveError(strategy string) {
	m.strategyErrors.WithLabelValues(strategy).Inc()
}

// ObservePlacements adds the placement counts of one run.
func (m *Metrics) ObservePlacements(strategy string, local, offloaded, reused int) {
	m.placements.WithLabelValues(strategy, "local").Add(float64(local))
	m.placements.WithLabelValues(strategy, "offload").Add(float64(offloaded))
	m.placements.WithLabelValues(strategy, "reuse").Add(float64(reused))
}

// SetCacheHitRate publishes the hit rate of the most recent run.
func (m *Metrics) SetCacheHitRate(strategy string, rate float64) {
	m.cacheHitRate.WithLabelValues(strategy).Set(rate)
}

// ObserveSolver records the node count of one exact solve.
func (m *Metrics) ObserveSolver(nodesExpanded int) {
	m.solverNodes.Observe(float64(nodesExpanded))
}
