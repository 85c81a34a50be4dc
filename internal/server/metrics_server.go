package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/devrev/scoredb/internal/metrics"
	"github.com/devrev/scoredb/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServer serves Prometheus metrics via HTTP and keeps the store and
// system gauges fresh.
type MetricsServer struct {
	httpServer *http.Server
	metrics    *metrics.Metrics
	store      *store.VersionedStore
	logger     *zap.Logger
	stopChan   chan struct{}
}

// MetricsServerConfig holds configuration for the metrics server
type MetricsServerConfig struct {
	Port int
}

// NewMetricsServer creates a new metrics server
func NewMetricsServer(cfg *MetricsServerConfig, m *metrics.Metrics, st *store.VersionedStore, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()

	ms := &MetricsServer{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		metrics:  m,
		store:    st,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", ms.healthHandler)
	mux.HandleFunc("/ready", ms.readyHandler)

	return ms
}

// Start starts the metrics server and the background stats collector
func (s *MetricsServer) Start() error {
	s.logger.Info("Starting metrics server", zap.String("addr", s.httpServer.Addr))

	go s.collectStats()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the metrics server
func (s *MetricsServer) Stop() error {
	s.logger.Info("Stopping metrics server")

	close(s.stopChan)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}

	return nil
}

// healthHandler handles health check requests
func (s *MetricsServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// readyHandler handles readiness check requests
func (s *MetricsServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	keys, maxChain := s.store.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready","keys":%d,"version_chain_max":%d,"commit_sequence":%d}`,
		keys, maxChain, s.store.Sequence().Current())
}

// collectStats periodically refreshes store and system gauges
func (s *MetricsServer) collectStats() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateStats()
		case <-s.stopChan:
			return
		}
	}
}

func (s *MetricsServer) updateStats() {
	keys, maxChain := s.store.Stats()
	s.metrics.UpdateStoreStats(keys, maxChain, s.store.Sequence().Current())

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	s.metrics.UpdateSystemStats(int64(memStats.Alloc), runtime.NumGoroutine())
}
