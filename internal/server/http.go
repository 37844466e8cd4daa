package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asoltys/audiomh/internal/engine"
)

// HTTPServer provides HTTP endpoints for monitoring the pipeline
type HTTPServer struct {
	server    *http.Server
	logger    *slog.Logger
	engine    *engine.Engine
	startTime time.Time
}

// NewHTTPServer creates a new monitoring HTTP server
func NewHTTPServer(address string, logger *slog.Logger, eng *engine.Engine) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		engine:    eng,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Start begins serving in a background goroutine
func (h *HTTPServer) Start() error {
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Monitoring server failed", slog.String("error", err.Error()))
		}
	}()

	h.logger.Info("Monitoring server started", slog.String("address", h.server.Addr))
	return nil
}

// Stop gracefully shuts down the server
func (h *HTTPServer) Stop(ctx context.Context) error {
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("monitoring server shutdown: %w", err)
	}
	return nil
}

// handleHealth returns service health status
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "healthy",
		"uptime": time.Since(h.startTime).Seconds(),
	}

	h.writeJSON(w, response)
}

// handleStatus returns aggregated pipeline statistics
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, h.engine.GetStatus())
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
