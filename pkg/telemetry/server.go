package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// Server is the side HTTP listener the manager and storage processes run
// for /metrics and /healthz (the client CLI starts none), grounded on
// froz-husain-PairDB/storage-node/internal/server/metrics_server.go.
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	logger     *zap.Logger
	stopChan   chan struct{}
}

// NewServer builds (but does not start) the telemetry HTTP server,
// listening on addr (e.g. ":9100").
func NewServer(addr string, m *Metrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		metrics:  m,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthHandler)

	return s
}

// Start launches the host-stats collector loop and the HTTP listener in
// background goroutines and returns immediately.
func (s *Server) Start() {
	go s.collectHostStats()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("telemetry server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP listener and stops the collector.
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopChan)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

func (s *Server) collectHostStats() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	s.updateHostStats()
	for {
		select {
		case <-ticker.C:
			s.updateHostStats()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Server) updateHostStats() {
	if vm, err := mem.VirtualMemory(); err != nil {
		s.logger.Warn("failed to read memory stats", zap.Error(err))
	} else {
		s.metrics.MemoryUsedBytes.Set(float64(vm.Used))
	}

	if usage, err := disk.Usage("/"); err != nil {
		s.logger.Warn("failed to read disk stats", zap.Error(err))
	} else {
		s.metrics.DiskUsagePercent.Set(usage.UsedPercent)
	}

	s.metrics.GoroutinesTotal.Set(float64(runtime.NumGoroutine()))
}
