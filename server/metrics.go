package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sahasik_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "path", "method", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sahasik_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"service", "path", "method", "status"})
)

// MetricsMiddleware records RED metrics per route pattern
func (s *Server) MetricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next(ww, r)

		// the mux pattern keeps ids out of the label values
		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}
		status := strconv.Itoa(ww.Status())
		httpDuration.WithLabelValues(string(s.service), path, r.Method, status).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(string(s.service), path, r.Method, status).Inc()
	}
}
