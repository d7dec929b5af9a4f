// Package http provides the JSON API server for the trading journal.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradebook/internal/cache"
	"tradebook/internal/core"
	"tradebook/internal/ledger"
	applog "tradebook/internal/log"
)

type Server struct {
	http.Server

	writer   ledger.RecordWriter
	reader   ledger.RecordReader
	accounts ledger.AccountStore
	moods    ledger.MoodStore

	log         *slog.Logger
	rateLimiter *rateLimiter

	// Statistics are recomputed from scratch on every read, so cache the
	// summaries and rendered charts keyed by filter. Any write purges
	// both.
	statsCache *cache.LRU[core.Summary]
	chartCache *cache.LRU[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, writer ledger.RecordWriter, reader ledger.RecordReader, accounts ledger.AccountStore, moods ledger.MoodStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		writer:           writer,
		reader:           reader,
		accounts:         accounts,
		moods:            moods,
		log:              applog.ForComponent(applog.ComponentHTTP),
		rateLimiter:      newRateLimiter(),
		statsCache:       cache.NewLRU[core.Summary](100, 5*time.Minute),
		chartCache:       cache.NewLRU[[]byte](50, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/trades", s.withSecurity(s.handleTrades))
	mux.HandleFunc("/api/withdrawals", s.withSecurity(s.handleWithdrawals))
	mux.HandleFunc("/api/deposits", s.withSecurity(s.handleDeposits))
	mux.HandleFunc("/api/records", s.withSecurity(s.handleRecords))
	mux.HandleFunc("/api/records/", s.withSecurity(s.handleRecordByID))
	mux.HandleFunc("/api/archive", s.withSecurity(s.handleArchive))
	mux.HandleFunc("/api/accounts", s.withSecurity(s.handleAccounts))
	mux.HandleFunc("/api/moods", s.withSecurity(s.handleMoods))
	mux.HandleFunc("/api/moods/", s.withSecurity(s.handleMoodByID))
	mux.HandleFunc("/api/stats", s.withSecurity(s.handleStats))
	mux.HandleFunc("/api/stats/equity-curve.png", s.withSecurity(s.handleEquityCurveChart))
	mux.HandleFunc("/api/stats/monthly-pl.png", s.withSecurity(s.handleMonthlyPLChart))

	return s
}

// withSecurity adds security headers, rate limiting, and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// The request ID rides on the context so every log line emitted
		// while handling the request carries it.
		ctx := applog.ContextWithRequestID(r.Context(), generateRequestID())
		r = r.WithContext(ctx)

		s.log.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only, reads are cheap and cached.
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.log.WarnContext(ctx, "Rate limit exceeded",
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
		s.log.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// invalidateStats drops every cached summary and chart after a write.
func (s *Server) invalidateStats() {
	s.statsCache.Purge()
	s.chartCache.Purge()
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			statsCleaned := s.statsCache.CleanExpired()
			chartsCleaned := s.chartCache.CleanExpired()
			if statsCleaned > 0 || chartsCleaned > 0 {
				s.log.Debug("Cache cleanup completed",
					"stats_entries_removed", statsCleaned,
					"chart_entries_removed", chartsCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and the HTTP server.
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

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
