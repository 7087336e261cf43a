// Package observability holds the Prometheus collectors shared by the
// services and the HTTP layer.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LedgerOperations counts ledger calls by operation and error kind.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "banking",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total ledger operations by operation and outcome.",
}, []string{"operation", "outcome"})

var AuthLogins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "banking",
	Subsystem: "auth",
	Name:      "logins_total",
	Help:      "Total login attempts by outcome.",
}, []string{"outcome"})

var RateFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "banking",
	Subsystem: "rate",
	Name:      "fetch_total",
	Help:      "Total exchange rate lookups by source and outcome.",
}, []string{"source", "outcome"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "banking",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method, route pattern and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// RecordOperation tags a ledger call with its outcome. An empty outcome is
// counted as success.
func RecordOperation(operation string, outcome string) {
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

func RecordLogin(outcome string) {
	AuthLogins.WithLabelValues(outcome).Inc()
}

func RecordRateFetch(source string, outcome string) {
	RateFetches.WithLabelValues(source, outcome).Inc()
}

func ObserveHTTPRequest(method string, route string, status string, elapsed time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
