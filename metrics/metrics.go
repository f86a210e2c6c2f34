// Package metrics holds the Prometheus collectors shared by the services and
// the HTTP server. They are registered on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts HTTP requests by method, route and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration observes HTTP latencies by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	// Subscriptions counts Subscribe calls by outcome: ok or an error code.
	Subscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbus_subscriptions_total",
			Help: "Subscription attempts by outcome",
		},
		[]string{"result"},
	)

	// Confirmations counts Confirm calls by outcome.
	Confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbus_confirmations_total",
			Help: "Confirmation attempts by outcome",
		},
		[]string{"result"},
	)

	// Deliveries counts newsletter recipients by outcome: delivered, failed or skipped.
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbus_newsletter_deliveries_total",
			Help: "Newsletter deliveries by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, Subscriptions, Confirmations, Deliveries)
}

// Result turns an error into a label value.
func Result(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}
