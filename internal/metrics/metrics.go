// Package metrics registers the Prometheus instruments for price monitoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal tracks completed monitoring cycles.
	ChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vantageflow_checks_total",
		Help: "The total number of completed price check cycles.",
	})
	// FetchAttempts tracks cascade attempts per retrieval strategy.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vantageflow_fetch_attempts_total",
		Help: "The total number of fetch attempts, labeled by strategy.",
	}, []string{"strategy"})
	// FetchFailures tracks full-cascade exhaustions per target.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vantageflow_fetch_failures_total",
		Help: "The total number of targets for which every strategy failed.",
	})
	// PriceChanges tracks detected competitor price changes.
	PriceChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vantageflow_price_changes_total",
		Help: "The total number of competitor price changes detected.",
	})
	// AlertsSent tracks Slack alerts delivered successfully.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vantageflow_alerts_sent_total",
		Help: "The total number of alerts posted to Slack.",
	})
	// AlertFailures tracks alerts that could not be delivered.
	AlertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vantageflow_alert_failures_total",
		Help: "The total number of alert deliveries that failed.",
	})
)
