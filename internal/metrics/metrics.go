// Package metrics exposes engine progress to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lendingScope/internal/model"
)

const namespace = "lendingscope"

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	reverts   *prometheus.CounterVec
	lastBlock prometheus.Gauge
	entities  *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Decoded events applied to the store, by contract role and event.",
		}, []string{"role", "event"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent applying one event, contract reads included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"event"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverted_reads_total",
			Help:      "Contract reads that reverted and fell back to a default.",
		}, []string{"method"}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_processed_block",
			Help:      "Last block whose entities were committed.",
		}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities held in the store, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.events, m.latency, m.reverts, m.lastBlock, m.entities,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvent records one applied event.
func (m *Metrics) ObserveEvent(role model.Role, name string, took time.Duration) {
	m.events.WithLabelValues(string(role), name).Inc()
	m.latency.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveRevert records one reverted contract read.
func (m *Metrics) ObserveRevert(method string) {
	m.reverts.WithLabelValues(method).Inc()
}

// ObserveCommit records a committed block and the store sizes after it.
func (m *Metrics) ObserveCommit(block uint64, counts map[model.Kind]int) {
	m.lastBlock.Set(float64(block))
	for kind, n := range counts {
		m.entities.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// Router serves /metrics and /healthz.
func (m *Metrics) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return router
}

// Serve runs the HTTP server on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
