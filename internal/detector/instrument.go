package detector

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/metrics"
	"go.uber.org/zap"
)

// instrumented records latency and status for every call.
type instrumented struct {
	inner   Detector
	backend string
	metrics *metrics.Collector
}

func (d *instrumented) Analyze(ctx context.Context, img image.Image) (*Analysis, error) {
	start := time.Now()
	a, err := d.inner.Analyze(ctx, img)
	d.metrics.RecordDetector(d.backend, err, time.Since(start))
	return a, err
}

// New builds the configured backend, instrumented and, when cfg.CacheTTL is
// set, cached.
func New(ctx context.Context, cfg config.DetectorConfig, logger *zap.Logger, m *metrics.Collector) (Detector, error) {
	var backend Detector
	switch cfg.Backend {
	case "remote":
		backend = NewRemote(cfg.URL, cfg.Timeout, cfg.Scale, logger)
	case "gemini":
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Timeout, cfg.Scale, logger)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}

	var d Detector = &instrumented{inner: backend, backend: cfg.Backend, metrics: m}
	if cfg.CacheTTL > 0 {
		d = NewCached(d, cfg.CacheTTL, m)
	}
	return d, nil
}
