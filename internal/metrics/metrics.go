// Package metrics defines the daemon's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts executed commands by action and outcome
	// (outcome: success/error).
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rcd_commands_total",
			Help: "Total number of commands processed, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// CommandLatency observes end-to-end command execution time, including
	// any duration-bounded wait.
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rcd_command_latency_seconds",
			Help:    "Latency of command execution including duration-bounded waits.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// ActiveConnections tracks currently open client connections.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rcd_active_connections",
			Help: "Number of currently open client connections.",
		},
	)

	// EventsDropped counts telemetry events dropped because a subscriber
	// could not keep up.
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rcd_telemetry_events_dropped_total",
			Help: "Telemetry events dropped due to slow subscribers.",
		},
	)
)

// registry is private so tests constructing multiple daemons never trip
// duplicate registration.
var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		CommandsTotal,
		CommandLatency,
		ActiveConnections,
		EventsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns the HTTP handler serving the daemon's registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
