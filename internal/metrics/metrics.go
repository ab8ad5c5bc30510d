// Package metrics holds Prometheus instruments used across the service.  All
// collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GatewayCalls counts table gateway calls by outcome (ok, not_found,
	// error, rejected).
	GatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colegio_gateway_calls_total",
			Help: "Table gateway calls by table, operation, and outcome.",
		}, []string{"table", "op", "outcome"})

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colegio_gateway_call_seconds",
			Help:    "Table gateway round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table", "op"})

	FormSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colegio_form_submissions_total",
			Help: "Public form submissions by form and outcome.",
		}, []string{"form", "outcome"})

	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colegio_signins_total",
			Help: "Back-office sign-in attempts by outcome.",
		}, []string{"outcome"})

	SearchRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colegio_search_runs_total",
			Help: "Live-search calls by list and result (ran, superseded, error).",
		}, []string{"list", "result"})

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colegio_notifications_total",
			Help: "Secretary notifications by outcome (sent, failed, dropped).",
		}, []string{"outcome"})

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colegio_http_request_seconds",
			Help:    "HTTP request latency by route pattern and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		GatewayCalls,
		GatewayLatency,
		FormSubmissions,
		SignIns,
		SearchRuns,
		NotificationsSent,
		HTTPDuration,
	)
}
