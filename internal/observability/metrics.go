package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	tunnelToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostd",
			Subsystem: "tunnel",
			Name:      "toggles_total",
			Help:      "Tunnel toggle attempts by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)
	tunnelToggleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghostd",
			Subsystem: "tunnel",
			Name:      "toggle_duration_seconds",
			Help:      "Tunnel toggle duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"direction", "outcome"},
	)
	agentInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostd",
			Subsystem: "agent",
			Name:      "invocations_total",
			Help:      "Agent invocations by directive and exit code.",
		},
		[]string{"directive", "exit"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghostd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(tunnelToggles, tunnelToggleDuration, agentInvocations, httpRequests, httpDuration)
	})
}

func RecordToggle(direction, outcome string, duration time.Duration) {
	RegisterMetrics()
	tunnelToggles.WithLabelValues(direction, outcome).Inc()
	tunnelToggleDuration.WithLabelValues(direction, outcome).Observe(duration.Seconds())
}

func RecordAgentInvocation(directive string, exitCode int32) {
	RegisterMetrics()
	agentInvocations.WithLabelValues(directive, strconv.Itoa(int(exitCode))).Inc()
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}
