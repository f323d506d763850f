// Package metrics exposes Prometheus instrumentation for bridge
// executions and tool dispatch.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "toolbridge"

var (
	// ExecutionsTotal counts call_tool_chain executions by terminal
	// status: "success", "tool_error", "v8_error", "serialization_error",
	// "error".
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Total number of tool-chain executions by terminal status",
		},
		[]string{"status"},
	)

	// ExecutionDuration is a histogram of call_tool_chain wall-clock
	// duration in seconds.
	ExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Histogram of tool-chain execution duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)

	// ExecutionsActive is a gauge of executions currently in the driver
	// loop.
	ExecutionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_active",
			Help:      "Number of tool-chain executions currently running",
		},
	)

	// ToolCallsTotal counts individual tool dispatches by tool name and
	// status.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls dispatched from script, by tool and status",
		},
		[]string{"tool", "status"}, // status: success, error
	)

	// ToolCallDuration is a histogram of individual tool call duration.
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Histogram of individual tool call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// PendingToolCalls is a gauge of in-flight async tool calls across
	// all active executions, mirroring bridge's per-execution "pending"
	// invariant at the process level.
	PendingToolCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tool_calls",
			Help:      "Number of async tool calls currently awaiting completion",
		},
	)
)

// Collectors returns every metric this package defines, for a caller's
// prometheus.Registry.MustRegister(metrics.Collectors()...).
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ExecutionsTotal,
		ExecutionDuration,
		ExecutionsActive,
		ToolCallsTotal,
		ToolCallDuration,
		PendingToolCalls,
	}
}

// ObserveExecution records one completed execution's status and
// duration.
func ObserveExecution(status string, d time.Duration) {
	ExecutionsTotal.WithLabelValues(status).Inc()
	ExecutionDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveToolCall records one completed tool dispatch's status and
// duration.
func ObserveToolCall(tool, status string, d time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}
