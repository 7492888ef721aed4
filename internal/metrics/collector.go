// Package metrics exposes exploration counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Interaction outcomes.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeAborted   = "aborted"
)

// Collector records exploration metrics. All methods are safe to call on a
// nil *Collector, which records nothing.
type Collector struct {
	interactionsTotal *prometheus.CounterVec
	detectorRequests  *prometheus.CounterVec
	detectorDuration  *prometheus.HistogramVec
	detectorCache     *prometheus.CounterVec
	recoveriesTotal   prometheus.Counter

	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewCollector registers the swipegen metrics on reg. A nil reg gets a fresh
// registry.
func NewCollector(reg *prometheus.Registry, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.interactionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipegen",
			Name:      "interactions_total",
			Help:      "Executed interactions by kind, level and outcome",
		},
		[]string{"kind", "level", "outcome"},
	)

	c.detectorRequests = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipegen",
			Name:      "detector_requests_total",
			Help:      "Region detector calls by backend and status",
		},
		[]string{"backend", "status"},
	)

	c.detectorDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "swipegen",
			Name:      "detector_duration_seconds",
			Help:      "Region detector latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"backend"},
	)

	c.detectorCache = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swipegen",
			Name:      "detector_cache_total",
			Help:      "Detector cache lookups by result",
		},
		[]string{"result"},
	)

	c.recoveriesTotal = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: "swipegen",
			Name:      "recoveries_total",
			Help:      "Recovery operations issued to return to the app",
		},
	)

	return c
}

// RecordInteraction counts one executed or aborted interaction.
func (c *Collector) RecordInteraction(kind string, level int, outcome string) {
	if c == nil {
		return
	}
	lvl := "1"
	if level == 2 {
		lvl = "2"
	}
	c.interactionsTotal.WithLabelValues(kind, lvl, outcome).Inc()
}

// RecordDetector counts one detector call and its latency.
func (c *Collector) RecordDetector(backend string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.detectorRequests.WithLabelValues(backend, status).Inc()
	c.detectorDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordCache counts one detector cache lookup.
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.detectorCache.WithLabelValues("hit").Inc()
		return
	}
	c.detectorCache.WithLabelValues("miss").Inc()
}

// RecordRecovery counts one recovery operation.
func (c *Collector) RecordRecovery() {
	if c == nil {
		return
	}
	c.recoveriesTotal.Inc()
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
