// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"saldo/internal/ledger"
	"saldo/internal/log"
)

type Server struct {
	http.Server
	ledger      *ledger.Service
	logger      *log.Logger
	rateLimiter *rateLimiter
}

// Simple in-memory rate limiter, per client IP.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, svc *ledger.Service, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ledger:      svc,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/dataset", s.wrap(s.handleGetDataset))
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("POST /api/entries/{kind}", s.wrap(s.handleAddEntry))
	mux.HandleFunc("PUT /api/entries/{kind}", s.wrap(s.handleUpdateEntry))
	mux.HandleFunc("DELETE /api/entries/{kind}", s.wrap(s.handleRemoveEntry))

	mux.HandleFunc("POST /api/rules/{kind}", s.wrap(s.handleSaveRule))
	mux.HandleFunc("PUT /api/rules/{kind}/{id}", s.wrap(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/rules/{kind}/{id}", s.wrap(s.handleDeleteRule))

	mux.HandleFunc("PUT /api/overrides", s.wrap(s.handleUpsertOverride))
	mux.HandleFunc("DELETE /api/overrides/{id}/{month}", s.wrap(s.handleDeleteOverride))

	mux.HandleFunc("PUT /api/anchor", s.wrap(s.handleSetAnchor))
	mux.HandleFunc("PUT /api/preferences/{key}", s.wrap(s.handleSetPreference))

	mux.HandleFunc("GET /api/recurring/{kind}", s.wrap(s.handleExpandRecurring))
	mux.HandleFunc("GET /api/totals", s.wrap(s.handleTotals))
	mux.HandleFunc("GET /api/projection", s.wrap(s.handleProjection))

	mux.HandleFunc("GET /api/simulation", s.wrap(s.handleSimulationStatus))
	mux.HandleFunc("POST /api/simulation/start", s.wrap(s.handleStartSimulation))
	mux.HandleFunc("POST /api/simulation/accept", s.wrap(s.handleAcceptSimulation))
	mux.HandleFunc("POST /api/simulation/discard", s.wrap(s.handleDiscardSimulation))
	mux.HandleFunc("GET /api/simulation/compare", s.wrap(s.handleCompare))

	return s
}

// Shutdown stops the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

// wrap adds security headers, rate limiting, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := r.Context()
		logger := s.logger.With(log.FieldRequestID, requestID)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.Warn("Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		logger.InfoContext(ctx, "Request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleEvents streams a server-sent event on every data change until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	changes, unsubscribe := s.ledger.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			fmt.Fprintf(w, "event: change\ndata: {\"revision\":%d}\n\n", s.ledger.Revision())
			flusher.Flush()
		}
	}
}
