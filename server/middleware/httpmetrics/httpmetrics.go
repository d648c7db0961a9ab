// Package httpmetrics instruments the device server with Prometheus counters
package httpmetrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deviceremotes_http_requests_total",
		Help: "Total HTTP requests served, by method and status",
	}, []string{"method", "status"})

	requestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deviceremotes_http_request_latency_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	})
)

// statusRecorder captures the status code written by the downstream handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Measure is an HTTP middleware which counts requests and observes latency
func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		requestLatency.Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
