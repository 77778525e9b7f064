// Package metrics exposes Prometheus instrumentation for the workflow
// engine. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowsmith",
			Name:      "steps_total",
			Help:      "Total number of executed workflow steps by final status",
		},
		[]string{"workflow", "step", "status"},
	)

	stepRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowsmith",
			Name:      "step_retries_total",
			Help:      "Total number of step retry attempts",
		},
		[]string{"workflow", "step"},
	)

	managerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flowsmith",
			Name:      "manager_rejections_total",
			Help:      "Total number of steps rejected by the hierarchical manager",
		},
		[]string{"workflow", "step"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "flowsmith",
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration in seconds by final status",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"workflow", "status"},
	)
)

// ObserveStep records a finished step execution.
func ObserveStep(workflow, step, status string) {
	stepsTotal.WithLabelValues(workflow, step, status).Inc()
}

// ObserveRetry records one retry attempt for a step.
func ObserveRetry(workflow, step string) {
	stepRetriesTotal.WithLabelValues(workflow, step).Inc()
}

// ObserveRejection records a hierarchical manager rejection.
func ObserveRejection(workflow, step string) {
	managerRejectionsTotal.WithLabelValues(workflow, step).Inc()
}

// ObserveRun records a finished workflow run.
func ObserveRun(workflow, status string, d time.Duration) {
	runDuration.WithLabelValues(workflow, status).Observe(d.Seconds())
}
