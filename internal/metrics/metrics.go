// Package metrics holds the prometheus collectors shared by the trophy core
// and its adapters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// operations counts core operations by name and outcome kind.
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trophybot_operations_total",
			Help: "Total number of trophy store operations by outcome.",
		},
		[]string{"op", "result"},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trophybot_operation_duration_seconds",
			Help:    "Duration of trophy store operations in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trophybot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trophybot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	interactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trophybot_discord_interactions_total",
			Help: "Total number of Discord interactions handled.",
		},
		[]string{"kind", "name"},
	)
)

// Registry holds every collector of this package. It is separate from the
// default registry so tests can scrape it in isolation.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(operations, operationLatency, httpReqs, httpLat, interactions)
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ObserveOperation records one finished core operation.
func ObserveOperation(op, result string, started time.Time) {
	operations.WithLabelValues(op, result).Inc()
	operationLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveInteraction counts one Discord interaction.
func ObserveInteraction(kind, name string) {
	interactions.WithLabelValues(kind, name).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency by route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// unmatched paths share one label to bound cardinality
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpReqs.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
