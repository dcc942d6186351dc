package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startHTTPServer exposes /metrics, /healthz and the /ws chat
// transport. Disabled when http_port is negative.
func (s *Server) startHTTPServer() error {
	if s.config.HTTPPort < 0 {
		debugLog.Printf("HTTP server disabled (http_port=%d)", s.config.HTTPPort)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/ws", s.handleWebSocket)

	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpCloser = httpServer
	s.httpAddr = listener.Addr().String()

	errorLog.Printf("HTTP server listening on %s (metrics, health, websocket)", listener.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errorLog.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// healthHandler serves health check status as JSON.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":          "healthy",
		"uptime_seconds":  int64(time.Since(s.startTime).Seconds()),
		"active_sessions": s.registry.Count(),
		"max_sessions":    s.registry.Capacity(),
		"known_rooms":     s.rooms.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		errorLog.Printf("Error encoding health JSON: %v", err)
	}
}
