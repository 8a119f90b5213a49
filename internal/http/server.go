// Package http serves the subscription tracker's JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/rates"
)

// SubscriptionReader lists stored subscriptions for dashboard reads.
type SubscriptionReader interface {
	ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error)
	ActiveSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error)
}

// SubscriptionWriter performs audited subscription writes.
type SubscriptionWriter interface {
	Create(ctx context.Context, userID string, sub core.Subscription, now time.Time) (core.Subscription, error)
	Update(ctx context.Context, userID string, sub core.Subscription, now time.Time) (core.Subscription, error)
	SetActive(ctx context.Context, userID, id string, active bool, now time.Time) (core.Subscription, error)
	Delete(ctx context.Context, userID, id string, now time.Time) error
}

// RateSource provides exchange rates against a base currency.
type RateSource interface {
	Latest(ctx context.Context, base core.Currency) (rates.Table, error)
}

type Server struct {
	http.Server
	reader      SubscriptionReader
	writer      SubscriptionWriter
	rates       RateSource
	rateLimiter *rateLimiter

	// now is injectable so billing math is deterministic under test.
	now func() time.Time

	// defaultCurrency is assigned to created subscriptions that omit one.
	defaultCurrency core.Currency

	// Dashboard reads are cached per user+currency and invalidated on
	// every write for that user.
	summaryCache *cache.LRUCache[summaryResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, reader SubscriptionReader, writer SubscriptionWriter, rateSource RateSource, defaultCurrency core.Currency) *Server {
	mux := http.NewServeMux()

	if defaultCurrency == "" {
		defaultCurrency = core.MXN
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		reader:           reader,
		writer:           writer,
		rates:            rateSource,
		rateLimiter:      newRateLimiter(),
		now:              time.Now,
		defaultCurrency:  defaultCurrency,
		summaryCache:     cache.NewLRUCache[summaryResponse](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/{userid}/subscriptions", s.withSecurityHeaders(s.handleListSubscriptions))
	mux.HandleFunc("POST /api/{userid}/subscriptions", s.withSecurityHeaders(s.handleCreateSubscription))
	mux.HandleFunc("PATCH /api/{userid}/subscriptions/{id}", s.withSecurityHeaders(s.handleUpdateSubscription))
	mux.HandleFunc("DELETE /api/{userid}/subscriptions/{id}", s.withSecurityHeaders(s.handleDeleteSubscription))

	mux.HandleFunc("GET /api/{userid}/{currency}/resume-total", s.withSecurityHeaders(s.handleResumeTotal))
	mux.HandleFunc("GET /api/{userid}/{currency}/monthly-trend", s.withSecurityHeaders(s.handleMonthlyTrend))
	mux.HandleFunc("GET /api/{userid}/upcoming", s.withSecurityHeaders(s.handleUpcoming))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit mutating methods only; dashboard reads stay cheap.
		if isWriteMethod(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) summaryCacheKey(userID string, currency core.Currency) string {
	return userID + "-" + string(currency)
}

// invalidateSummaries drops every cached dashboard summary for a user.
func (s *Server) invalidateSummaries(userID string) {
	for _, cur := range core.Currencies() {
		s.summaryCache.Delete(s.summaryCacheKey(userID, cur))
	}
}
