// Package ops serves the bot's operational endpoints: a health probe and
// Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LinearParadox/thread-bot/pkg/threadbot/channels"
)

// DefaultAddress keeps the endpoints on loopback unless configured.
const DefaultAddress = "127.0.0.1:9464"

// HealthFunc reports the platform connection state.
type HealthFunc func() channels.HealthStatus

// Server is the ops HTTP server.
type Server struct {
	address   string
	health    HealthFunc
	server    *http.Server
	logger    *slog.Logger
	startedAt time.Time
}

// New creates a Server. health may be nil, in which case /health only
// reports uptime.
func New(address string, health HealthFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if address == "" {
		address = DefaultAddress
	}
	return &Server{
		address:   address,
		health:    health,
		logger:    logger.With("component", "ops"),
		startedAt: time.Now(),
	}
}

// Handler returns the routed endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start listens in the background. It fails fast if the address cannot
// be bound.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ops server error", "error", err)
		}
	}()
	s.logger.Info("ops server started", "address", ln.Addr().String())
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("ops server stopping...")
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status      string     `json:"status"`
	Uptime      string     `json:"uptime"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
	ErrorCount  int        `json:"error_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startedAt).Round(time.Second).String()
	if uptime == "0s" {
		uptime = "<1s"
	}
	resp := healthResponse{Status: "ok", Uptime: uptime, Connected: true}
	status := http.StatusOK

	if s.health != nil {
		h := s.health()
		resp.Connected = h.Connected
		resp.ErrorCount = h.ErrorCount
		if !h.ConnectedAt.IsZero() {
			resp.ConnectedAt = &h.ConnectedAt
		}
		if !h.LastEventAt.IsZero() {
			resp.LastEventAt = &h.LastEventAt
		}
		if !h.Connected {
			resp.Status = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
