// Package server implements the local HTTP API through which a game side plugin
// reports host events and operators read the reporter status.
package server

import (
	"net/http"
	"time"

	"github.com/woozymasta/herald/internal/config"
)

// New creates a new Server instance for the reporter with the provided configuration.
func New(reporter Reporter, cfg *config.Config) *Server {
	return &Server{
		reporter:       reporter,
		authToken:      cfg.Server.AuthToken,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,

		clients:  make(map[string]*client),
		shutdown: make(chan struct{}),
	}
}

// StartWorkers launches the cleanup routine of the rate limit clients.
func (s *Server) StartWorkers() {
	s.wg.Add(1)
	go s.gcClients()
}

// StopWorkers stops the background routines and waits for them.
func (s *Server) StopWorkers() {
	close(s.shutdown)
	s.wg.Wait()
}

// Run configures the HTTP routes and returns the main handler.
func (s *Server) Run() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/event", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleEvent)))
	mux.Handle("GET /api/status", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleStatus)))
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))

	return s.LoggingMiddleware(s.RateLimitMiddleware(mux))
}

// gcClients periodically drops rate limit state of clients not seen for a while.
func (s *Server) gcClients() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.pruneClients(time.Now(), 10*time.Minute)
		}
	}
}

// pruneClients removes clients idle for longer than maxIdle.
func (s *Server) pruneClients(now time.Time, maxIdle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ip, c := range s.clients {
		if now.Sub(c.lastSeen) > maxIdle {
			delete(s.clients, ip)
		}
	}
}
