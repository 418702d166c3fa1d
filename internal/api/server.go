// Package api exposes the HTTP interface for the connector service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"portal-connector/internal/config"
	"portal-connector/internal/metrics"
	"portal-connector/internal/scrape"
	"portal-connector/internal/webhook"
)

const serviceName = "job-portal-connector"

// Scraper runs the end-to-end candidate scrape workflow. *scrape.Service
// satisfies it; a nil Scraper marks the capability as disabled.
type Scraper interface {
	Scrape(ctx context.Context, req scrape.Request) (scrape.Result, error)
}

// Server wires HTTP handlers to the scrape workflow and webhook receivers.
type Server struct {
	router  chi.Router
	scraper Scraper
	cfg     config.Config
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. Pass a nil
// scraper when the scrape capability is disabled; /api/scrape then serves 503
// while the webhook endpoints stay available.
func NewServer(scraper Scraper, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper: scraper,
		cfg:     cfg,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/", s.root)
	r.Get("/api/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// The scrape request blocks until the remote task terminates, so its
	// timeout tracks the poll budget instead of a generic request deadline.
	r.Route("/api", func(r chi.Router) {
		r.With(timeoutMiddleware(cfg.PollTimeout() + 30*time.Second)).
			Post("/scrape", s.scrapeHandler)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/github", observed("github", webhook.GitHubHandler(cfg.Webhook.GitHubSecret, logger.Named("webhook.github"))))
		r.Post("/vercel", observed("vercel", webhook.VercelHandler(cfg.Webhook.VercelSecret, logger.Named("webhook.vercel"))))
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Job Portal Connector API",
		"version":        "1.0.0",
		"scrape_enabled": s.scraper != nil,
		"endpoints": map[string]string{
			"scrape": "/api/scrape",
			"health": "/api/health",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

type scrapeResponse struct {
	Inserted   int    `json:"inserted"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Message    string `json:"message"`
}

func (s *Server) scrapeHandler(w http.ResponseWriter, r *http.Request) {
	if s.scraper == nil {
		writeError(w, http.StatusServiceUnavailable,
			"scraping unavailable: datastore or automation credentials not configured")
		return
	}

	var req scrape.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start := time.Now()
	result, err := s.scraper.Scrape(r.Context(), req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("scrape failed",
			zap.String("company", req.CompanyName),
			zap.String("position", req.PositionName),
			zap.Duration("duration", duration),
			zap.Error(err))
		metrics.ObserveScrapeRun("failure", 0, 0, duration)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Scraping failed: %v", err))
		return
	}

	metrics.ObserveScrapeRun("success", result.Inserted, result.Skipped, duration)
	writeJSON(w, http.StatusOK, scrapeResponse{
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Successfully processed %d candidates", result.Inserted+result.Skipped),
	})
}

// observed wraps a webhook handler so delivery outcomes land in metrics.
func observed(provider string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next(ww, r)
		metrics.ObserveWebhook(provider, ww.status)
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
