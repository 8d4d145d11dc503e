// Package metrics defines prometheus metrics shared across the
// transportinfo packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Probes counts socket-option probe attempts by operation and
	// outcome. Failures here are expected on unsupported platforms and
	// on connections that closed under us, so this is a visibility
	// metric, not an error budget.
	Probes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transportinfo_probes_total",
			Help: "Socket telemetry probe attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"})

	// LiveStreams gauges websocket measurement streams currently being
	// served.
	LiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transportinfo_live_streams",
			Help: "Number of live measurement streams currently open.",
		})

	// ArchiveErrors counts failed attempts to archive a final snapshot.
	ArchiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transportinfo_archive_errors_total",
			Help: "Number of snapshot archive writes that failed.",
		})
)

// CountProbe records the outcome of one probe operation.
func CountProbe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Probes.WithLabelValues(operation, outcome).Inc()
}
