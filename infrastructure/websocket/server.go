// Package websocket exposes the presence core over websocket endpoints, one per namespace.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"officepulse/auth"
	"officepulse/contract"
	"officepulse/domain"
	"officepulse/observability"
	"officepulse/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	Host                 string
	Port                 int
	AllowedOrigins       []string
	ConnectionBufferSize int
}

type Server struct {
	log      *slog.Logger
	cfg      Config
	service  services.ISocketService
	stats    contract.StatsProvider
	sampler  *observability.ProcessSampler
	verifier *auth.Verifier
	upgrader websocket.Upgrader
}

// NewServer accepts a nil verifier (tokens not required) and a nil sampler (no process metrics).
func NewServer(log *slog.Logger, cfg Config, service services.ISocketService, stats contract.StatsProvider,
	sampler *observability.ProcessSampler, verifier *auth.Verifier) *Server {
	if cfg.ConnectionBufferSize <= 0 {
		cfg.ConnectionBufferSize = 256
	}
	s := &Server{log: log, cfg: cfg, service: service, stats: stats, sampler: sampler, verifier: verifier}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler routes every endpoint. ctx bounds the life of the accepted connections.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	for _, ns := range []domain.Namespace{domain.Video, domain.Community, domain.Assistant} {
		mux.HandleFunc("/"+string(ns), s.handleSocket(ctx, ns))
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// ListenAndServe blocks until ctx is cancelled, then drains the HTTP server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting websocket server", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleSocket(ctx context.Context, ns domain.Namespace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := services.Caller{SessionID: uuid.NewString(), Namespace: ns}
		if s.verifier != nil {
			claims, err := s.verifier.Authenticate(r)
			if err != nil {
				s.log.Debug("Upgrade refused", "namespace", ns, "error", err)
				http.Error(w, "User not authenticated", http.StatusUnauthorized)
				return
			}
			caller.UserID = claims.UserID
		}

		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Upgrade failed", "namespace", ns, "error", err)
			return
		}
		conn := newConn(caller, ws, s.cfg.ConnectionBufferSize, s.log)
		if err := s.service.Connect(ctx, caller, conn); err != nil {
			_ = conn.Close()
			return
		}
		conn.serve(ctx, s.service)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "OfficePulse API is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"features": map[string]bool{
			"realTimeChat":  true,
			"communityChat": true,
			"videoMeetup":   true,
			"websockets":    true,
		},
	})
}

type statsResponse struct {
	domain.Stats
	Process *observability.ProcessStats `json:"process,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": err.Error()})
		return
	}
	resp := statsResponse{Stats: stats}
	if s.sampler != nil {
		if p, err := s.sampler.Sample(); err == nil {
			resp.Process = &p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
