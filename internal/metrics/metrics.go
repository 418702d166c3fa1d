// Package metrics exposes Prometheus collectors for the connector service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	scrapeRunsTotal            *prometheus.CounterVec
	scrapeCandidatesTotal      *prometheus.CounterVec
	scrapeDurationSeconds      prometheus.Histogram
	webhookEventsTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connector_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120, 600},
			},
			[]string{"method", "route"},
		)

		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_scrape_runs_total",
				Help: "Total number of scrape runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_scrape_candidates_total",
				Help: "Total candidates processed by ingestion, labeled by disposition.",
			},
			[]string{"disposition"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "connector_scrape_duration_seconds",
				Help:    "Histogram of end-to-end scrape workflow durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		webhookEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_webhook_events_total",
				Help: "Total webhook deliveries, labeled by provider and HTTP code.",
			},
			[]string{"provider", "code"},
		)
	})
}

// ObserveScrapeRun records one completed scrape workflow.
func ObserveScrapeRun(outcome string, inserted, skipped int, duration time.Duration) {
	if scrapeRunsTotal == nil {
		return
	}
	scrapeRunsTotal.WithLabelValues(outcome).Inc()
	scrapeCandidatesTotal.WithLabelValues("inserted").Add(float64(inserted))
	scrapeCandidatesTotal.WithLabelValues("skipped").Add(float64(skipped))
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveWebhook records one webhook delivery outcome.
func ObserveWebhook(provider string, code int) {
	if webhookEventsTotal == nil {
		return
	}
	webhookEventsTotal.WithLabelValues(provider, strconv.Itoa(code)).Inc()
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
