package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"wickrSignals/internal/adapters/export"
	"wickrSignals/internal/domain"
	"wickrSignals/internal/metrics"
	"wickrSignals/internal/ports"
)

const (
	shutdownTimeout   = 5 * time.Second
	recentSignalLimit = 10
)

// SignalHistory is a queryable record of emitted signals.
type SignalHistory interface {
	FindRecent(ctx context.Context, symbol string, limit int) ([]domain.Signal, error)
	CountByLabel(ctx context.Context, symbol string) (map[string]int, error)
}

// Config holds configuration for the dashboard HTTP server.
type Config struct {
	Addr      string // e.g. "0.0.0.0:5000"
	StaticDir string // holds index.html and style.css
	Hub       *Hub
	Metrics   *metrics.Metrics
	Logger    ports.Logger
	History   SignalHistory // optional, reported on /health
	Symbol    string        // symbol queried from History
}

// Server serves the dashboard page, the websocket endpoint, health and metrics.
type Server struct {
	cfg        Config
	logger     ports.Logger
	httpServer *http.Server
}

// NewServer creates the dashboard server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Hub == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for dashboard server")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = cfg.Hub.metrics
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/style.css", s.handleStatic("style.css", "text/css; charset=utf-8"))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.cfg.Hub.ServeWS)
	mux.Handle("/metrics", s.cfg.Metrics.Handler())
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Dashboard listening", map[string]interface{}{"addr": s.cfg.Addr})
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.cfg.Hub.Close()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown failed: %w", err)
	}
	s.logger.Info(ctx, "Dashboard stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeNotFound(w)
		return
	}
	s.handleStatic("index.html", "text/html; charset=utf-8")(w, r)
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := os.ReadFile(filepath.Join(s.cfg.StaticDir, name))
		if err != nil {
			writeNotFound(w)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}

type healthResponse struct {
	Status           string          `json:"status"`
	ConnectedClients int             `json:"connected_clients"`
	CurrentSignal    string          `json:"current_signal"`
	Timestamp        string          `json:"timestamp"`
	SignalCounts     map[string]int  `json:"signal_counts,omitempty"`
	RecentSignals    []export.Record `json:"recent_signals,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	label, _ := s.cfg.Hub.state.CurrentSignal()
	resp := healthResponse{
		Status:           "healthy",
		ConnectedClients: s.cfg.Hub.ClientCount(),
		CurrentSignal:    label,
		Timestamp:        s.cfg.Hub.now().UTC().Format(time.RFC3339Nano),
	}
	if s.cfg.History != nil {
		s.addHistory(r.Context(), &resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// addHistory fills the journal fields. Query failures leave them empty.
func (s *Server) addHistory(ctx context.Context, resp *healthResponse) {
	counts, err := s.cfg.History.CountByLabel(ctx, s.cfg.Symbol)
	if err != nil {
		s.logger.Warn(ctx, "Failed to count journaled signals", map[string]interface{}{"error": err.Error()})
	} else {
		resp.SignalCounts = counts
	}

	recent, err := s.cfg.History.FindRecent(ctx, s.cfg.Symbol, recentSignalLimit)
	if err != nil {
		s.logger.Warn(ctx, "Failed to load recent signals", map[string]interface{}{"error": err.Error()})
		return
	}
	resp.RecentSignals = export.ToRecords(recent)
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
