// Package dashboard serves the HTTP control surface: runtime stats,
// mode and risk controls, pause/resume, emergency exit and Prometheus
// metrics.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"options-pilot/internal/interfaces"
	"options-pilot/internal/logger"
	"options-pilot/internal/types"
)

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Server struct {
	engine interfaces.Engine
	srv    *http.Server
}

func New(addr string, engine interfaces.Engine) *Server {
	s := &Server{engine: engine}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/mode", s.handleMode)
	mux.HandleFunc("POST /api/pause", s.handlePause)
	mux.HandleFunc("POST /api/resume", s.handleResume)
	mux.HandleFunc("POST /api/exit_all", s.handleExitAll)
	mux.HandleFunc("POST /api/risk", s.handleRisk)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until Shutdown. It blocks, so run it in its own
// goroutine.
func (s *Server) Start() error {
	logger.Info(context.Background(), "Dashboard listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats(r.Context()))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid json body"})
		return
	}
	mode, err := types.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}
	if err := s.engine.SetMode(mode); err != nil {
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "mode set to " + req.Mode})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.engine.Pause()
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "trading paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.engine.Resume()
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "trading resumed"})
}

func (s *Server) handleExitAll(w http.ResponseWriter, r *http.Request) {
	closed, err := s.engine.EmergencyExitAll(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"closed":  closed,
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DailyLimit    float64 `json:"daily_limit"`
		PerTradeLimit float64 `json:"per_trade_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: "invalid json body"})
		return
	}
	if err := s.engine.UpdateRiskSettings(req.DailyLimit, req.PerTradeLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Success: true, Message: "risk limits updated"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(context.Background(), "Response encode failed", "error", err.Error())
	}
}
