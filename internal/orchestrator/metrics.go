package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once per process on the default registry.
//
//   - sovereign_orchestrator_dispatch_total{kind,status}
//   - sovereign_orchestrator_dispatch_duration_seconds{kind}
//   - sovereign_orchestrator_self_repair_total{classification,outcome}
//   - sovereign_orchestrator_sessions_total{outcome}
var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sovereign_orchestrator_dispatch_total",
			Help: "Total number of dispatched subtasks",
		},
		[]string{"kind", "status"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sovereign_orchestrator_dispatch_duration_seconds",
			Help:    "Duration of subtask dispatch in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms .. ~41s
		},
		[]string{"kind"},
	)

	selfRepairTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sovereign_orchestrator_self_repair_total",
			Help: "Total number of self-repair evaluations of failed subtasks",
		},
		[]string{"classification", "outcome"}, // outcome: "abort", "continue", "replan_failed"
	)

	sessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sovereign_orchestrator_sessions_total",
			Help: "Total number of processed commands",
		},
		[]string{"outcome"}, // "completed", "aborted", "canceled"
	)
)

func observeDispatch(kind SubtaskKind, ok bool, elapsed time.Duration) {
	status := "failure"
	if ok {
		status = "success"
	}
	dispatchTotal.WithLabelValues(kind.String(), status).Inc()
	dispatchDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func observeRepair(class FailureClass, outcome string) {
	selfRepairTotal.WithLabelValues(class.String(), outcome).Inc()
}

func observeSession(sess *Session) {
	outcome := "completed"
	switch {
	case sess.Canceled:
		outcome = "canceled"
	case sess.Aborted:
		outcome = "aborted"
	}
	sessionsTotal.WithLabelValues(outcome).Inc()
}
