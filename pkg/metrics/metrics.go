// Package metrics exposes prometheus collectors for the content store and
// the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portfoliocms"

var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Content store operations by engine, operation and result.",
	}, []string{"engine", "operation", "result"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Latency of content store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine", "operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)

// ObserveStoreOp records one store operation.
func ObserveStoreOp(engine, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(engine, op, result).Inc()
	StoreDuration.WithLabelValues(engine, op).Observe(time.Since(start).Seconds())
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// MethodLabel maps request methods outside the standard set to "other" so
// clients cannot grow the label space.
func MethodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method string, status int) {
	HTTPRequests.WithLabelValues(MethodLabel(method), strconv.Itoa(status)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
