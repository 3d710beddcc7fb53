// Package metrics holds the Prometheus collectors for the reset pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAborted = "aborted"
	ResultDropped = "dropped"
	ResultSkewed  = "skewed"
	// ResultRejected marks a request refused for a domain reason, such as
	// completing a mission twice.
	ResultRejected = "rejected"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	schedulerTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mission_tracker",
			Subsystem: "scheduler",
			Name:      "triggers_total",
			Help:      "Daily reset triggers by delivery result.",
		},
		[]string{"result"},
	)

	resetCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mission_tracker",
			Subsystem: "reset",
			Name:      "cycles_total",
			Help:      "Daily reset cycles by outcome.",
		},
		[]string{"result"},
	)

	resetUsers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mission_tracker",
			Subsystem: "reset",
			Name:      "users_total",
			Help:      "Per-user reset transactions by outcome.",
		},
		[]string{"result"},
	)

	resetDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mission_tracker",
			Subsystem: "reset",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full reset cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	missionCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mission_tracker",
			Subsystem: "missions",
			Name:      "completions_total",
			Help:      "Mission completion attempts by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		schedulerTriggers,
		resetCycles,
		resetUsers,
		resetDuration,
		missionCompletions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTrigger records the result of a scheduler firing.
func RecordTrigger(result string) {
	schedulerTriggers.WithLabelValues(result).Inc()
}

// RecordCycle records a finished or aborted reset cycle.
func RecordCycle(result string, duration time.Duration) {
	resetCycles.WithLabelValues(result).Inc()
	resetDuration.Observe(duration.Seconds())
}

// RecordUserResets records per-user reset outcomes for one cycle.
func RecordUserResets(succeeded, failed int) {
	resetUsers.WithLabelValues(ResultSuccess).Add(float64(succeeded))
	resetUsers.WithLabelValues(ResultFailure).Add(float64(failed))
}

// RecordCompletion records a mission completion attempt.
func RecordCompletion(result string) {
	missionCompletions.WithLabelValues(result).Inc()
}
