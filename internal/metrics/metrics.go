// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reeledit_active_sessions",
		Help: "Number of live edit sessions.",
	})

	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reeledit_sessions_opened_total",
		Help: "Edit sessions created since start.",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reeledit_sessions_expired_total",
		Help: "Idle edit sessions reaped by the janitor.",
	})

	ExportsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reeledit_exports_in_flight",
		Help: "Exports currently running.",
	})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reeledit_export_duration_seconds",
		Help:    "Wall-clock export time by media kind and outcome.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind", "outcome"})

	Publishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reeledit_publishes_total",
		Help: "Publish submissions by outcome.",
	}, []string{"outcome"})

	IngestRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reeledit_ingest_rejections_total",
		Help: "Uploads rejected before a session was created.",
	})
)
