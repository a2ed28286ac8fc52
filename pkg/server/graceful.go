// Package server exposes a run's Prometheus registry and a health summary
// over HTTP, shutting down gracefully when the run ends.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/metrics"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight scrapes.
const DefaultShutdownTimeout = 5 * time.Second

// Health is the body of GET /healthz.
type Health struct {
	Status        string  `json:"status"`
	WorkerPanics  float64 `json:"worker_panics"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// MetricsServer serves /metrics and /healthz for one metrics.Registry.
type MetricsServer struct {
	server       *http.Server
	registry     *metrics.Registry
	logger       logging.Logger
	listener     net.Listener
	started      time.Time
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewMetricsServer prepares a server on addr. A nil logger discards output.
func NewMetricsServer(addr string, registry *metrics.Registry, logger logging.Logger) *MetricsServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &MetricsServer{
		registry:   registry,
		logger:     logger.With(logging.Component("metrics_server")),
		started:    time.Now(),
		shutdownCh: make(chan struct{}),
	}

	scrape := promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		registry.UpdateSystemMetrics()
		scrape.ServeHTTP(w, r)
	})
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Listen binds the configured address. Serve calls it when needed; calling
// it first makes Addr report the bound port for ":0".
func (s *MetricsServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *MetricsServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Serve blocks until ctx is done or the server fails. A cancelled context
// triggers a graceful shutdown and a nil return.
func (s *MetricsServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("metrics server listening", logging.String("addr", s.Addr()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(s.listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown(DefaultShutdownTimeout)
	}
}

// Shutdown stops accepting scrapes and waits up to timeout for in-flight
// ones. Only the first call has any effect.
func (s *MetricsServer) Shutdown(timeout time.Duration) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		timer := logging.StartTimer(s.logger, "metrics server stopped")
		if err = s.server.Shutdown(ctx); err != nil {
			timer.EndError(err)
			return
		}
		timer.End()
	})
	return err
}

// IsShuttingDown reports whether Shutdown has been called.
func (s *MetricsServer) IsShuttingDown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Health summarises the registry: any recovered worker panic degrades it.
func (s *MetricsServer) Health() Health {
	var metric dto.Metric
	h := Health{Status: StatusHealthy, UptimeSeconds: time.Since(s.started).Seconds()}
	if err := s.registry.WorkerPanicsTotal.Write(&metric); err == nil {
		h.WorkerPanics = metric.GetCounter().GetValue()
	}
	if h.WorkerPanics > 0 {
		h.Status = StatusDegraded
	}
	return h
}

func (s *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h := s.Health()
	w.Header().Set("Content-Type", "application/json")
	if h.Status != StatusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Warn("health response failed", logging.Error(err))
	}
}
