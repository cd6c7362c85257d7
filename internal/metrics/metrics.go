// Package metrics holds the bridge's Prometheus collectors.
// Collectors are registered on the default registry through promauto.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mpqr"
	subsystem = "bridge"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Bridge operations by action code and result code.",
		},
		[]string{"action", "res"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "End to end duration of bridge operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_requests_total",
			Help:      "Provider HTTP requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	providerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of provider HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// RecordOperation counts one finished bridge operation.
func RecordOperation(action string, res int, d time.Duration) {
	operationsTotal.WithLabelValues(action, strconv.Itoa(res)).Inc()
	operationDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordProviderCall counts one provider request. A zero status means the
// request never produced a response.
func RecordProviderCall(method string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	providerRequests.WithLabelValues(method, code).Inc()
	providerDuration.WithLabelValues(method).Observe(d.Seconds())
}
