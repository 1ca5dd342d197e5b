// Package server provides the HTTP API for the application assistant.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jonathan/application-assistant/internal/db"
	"github.com/jonathan/application-assistant/internal/export"
	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/llm"
	"github.com/jonathan/application-assistant/internal/pipeline"
	"github.com/jonathan/application-assistant/internal/server/middleware"
	"github.com/jonathan/application-assistant/internal/server/ratelimit"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/jonathan/application-assistant/internal/usage"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes caps request bodies. Résumés and job descriptions are plain text.
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	httpServer    *http.Server
	handler       http.Handler
	generator     *generation.Orchestrator
	runner        *pipeline.Runner
	gate          *usage.Gate
	records       db.RecordStore
	exporter      *export.Exporter
	rateLimiter   ratelimit.Allower
	jwtService    *JWTService
	webhookSecret string
	logger        logrus.FieldLogger
}

// Config holds server configuration
type Config struct {
	Port          int
	WebhookSecret string
	// LLMTimeout bounds one provider call. It sizes the write timeout.
	LLMTimeout time.Duration
}

// writeTimeoutMargin covers request decoding, storage and rendering on top
// of the provider calls.
const writeTimeoutMargin = 60 * time.Second

// writeTimeout leaves room for a package that runs every tool sequentially,
// each call taking the full LLM timeout.
func writeTimeout(llmTimeout time.Duration) time.Duration {
	if llmTimeout <= 0 {
		llmTimeout = llm.DefaultTimeout
	}
	return time.Duration(len(types.AllTools))*llmTimeout + writeTimeoutMargin
}

// Deps are the components the handlers call into.
type Deps struct {
	Generator   *generation.Orchestrator
	Runner      *pipeline.Runner
	Gate        *usage.Gate
	Records     db.RecordStore
	Exporter    *export.Exporter
	RateLimiter ratelimit.Allower // optional
	JWT         *JWTService
	Logger      logrus.FieldLogger // optional
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator is required")
	case deps.Runner == nil:
		return nil, fmt.Errorf("runner is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("usage gate is required")
	case deps.Records == nil:
		return nil, fmt.Errorf("record store is required")
	case deps.Exporter == nil:
		return nil, fmt.Errorf("exporter is required")
	case deps.JWT == nil:
		return nil, fmt.Errorf("JWT service is required")
	}

	s := &Server{
		generator:     deps.Generator,
		runner:        deps.Runner,
		gate:          deps.Gate,
		records:       deps.Records,
		exporter:      deps.Exporter,
		rateLimiter:   deps.RateLimiter,
		jwtService:    deps.JWT,
		webhookSecret: cfg.WebhookSecret,
		logger:        deps.Logger,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Single-tool and package generation
	mux.HandleFunc("POST /api/optimize-resume", s.handleOptimizeResume)
	mux.HandleFunc("POST /api/generate-cover-letter", s.handleGenerateCoverLetter)
	mux.HandleFunc("POST /api/generate-interview-prep", s.handleGenerateInterviewPrep)
	mux.HandleFunc("POST /api/analyze-job-description", s.handleAnalyzeJobDescription)
	mux.HandleFunc("POST /api/optimize-linkedin", s.handleOptimizeLinkedIn)
	mux.HandleFunc("POST /api/generate-application-package", s.handleGeneratePackage)
	mux.HandleFunc("POST /api/generate-application-package/stream", s.handleGeneratePackageStream)

	// Authenticated application endpoints
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	mux.Handle("GET /usage", auth(http.HandlerFunc(s.handleUsage)))
	mux.Handle("POST /applications", auth(http.HandlerFunc(s.handleCreateApplication)))
	mux.Handle("GET /applications", auth(http.HandlerFunc(s.handleListApplications)))
	mux.Handle("GET /applications/stats", auth(http.HandlerFunc(s.handleApplicationStats)))
	mux.Handle("GET /applications/{id}", auth(http.HandlerFunc(s.handleGetApplication)))
	mux.Handle("PUT /applications/{id}/status", auth(http.HandlerFunc(s.handleUpdateStatus)))
	mux.Handle("GET /applications/{id}/export", auth(http.HandlerFunc(s.handleExportApplication)))

	mux.HandleFunc("POST /webhooks/payment", s.handlePaymentWebhook)

	// CORS answers preflights before the limiter counts them.
	s.handler = s.withRecover(s.withCORS(s.withRateLimit(s.withLogging(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout(cfg.LLMTimeout),
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"client":   s.extractClientID(r),
		}).Info("Request completed")
	})
}

// withRecover turns handler panics into 500 responses.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"panic": fmt.Sprint(rec),
					"stack": string(debug.Stack()),
				}).Error("Handler panicked")
				s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Error encoding JSON response")
	}
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.WithFields(logrus.Fields{
		"path":  r.URL.Path,
		"limit": info.Limit,
		"reset": info.ResetTime.Format(time.RFC3339),
	}).Warn("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
