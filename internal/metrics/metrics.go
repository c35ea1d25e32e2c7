// Package metrics registers the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts webhook deliveries by outcome
	// (processed, ignored, deferred, duplicate, rejected, failed).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journeys_webhook_events_total",
		Help: "Billing webhook deliveries by outcome.",
	}, []string{"outcome"})

	// ReconcileWrites counts subscription state writes by resulting status.
	ReconcileWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journeys_reconcile_writes_total",
		Help: "Subscription state writes by resulting status.",
	}, []string{"status"})

	// GateRedirects counts authorization gate redirects by target path.
	GateRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journeys_gate_redirects_total",
		Help: "Authorization gate redirects by target path.",
	}, []string{"target"})
)
