package cmd

import (
	"context"
	"fmt"

	"github.com/mj1618/swipegen/internal/config"
	"github.com/mj1618/swipegen/internal/detector"
	"github.com/mj1618/swipegen/internal/explorer"
	"github.com/mj1618/swipegen/internal/metrics"
	"github.com/mj1618/swipegen/internal/model"
	"github.com/mj1618/swipegen/internal/observability"
	"github.com/mj1618/swipegen/internal/platform"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// loadConfig resolves the configuration from defaults, file, environment and
// bound flags.
func loadConfig() (*config.Config, error) {
	return config.NewConfigFromViper(viper.GetViper())
}

// newDevice connects to the configured device.
func newDevice(cfg *config.Config) (platform.Device, error) {
	provider, err := platform.NewProvider(platform.ProviderOptions{
		Serial:  cfg.Device.Serial,
		ADBPath: cfg.Device.ADBPath,
	})
	if err != nil {
		return nil, err
	}
	return provider.Device()
}

// newDetector builds the configured region detector.
func newDetector(ctx context.Context, cfg *config.Config, m *metrics.Collector) (detector.Detector, error) {
	d, err := detector.New(ctx, cfg.Detector, observability.GetLogger(), m)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	return d, nil
}

// newMetrics returns a collector and, when metrics.addr is set, serves it
// until ctx is done.
func newMetrics(ctx context.Context, cfg *config.Config) *metrics.Collector {
	logger := observability.GetLogger()
	m := metrics.NewCollector(prometheus.NewRegistry(), logger)
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics endpoint failed", zap.Error(err))
			}
		}()
	}
	return m
}

// newExecutor returns an executor for one-off interactions. The package is
// empty because single actions never recover.
func newExecutor(cfg *config.Config, dev platform.Device, m *metrics.Collector) *explorer.Executor {
	return explorer.NewExecutor(dev, explorer.ExecutorOptions{
		Shots:   explorer.NewStore(cfg.Device.ScreenshotDir, dev),
		Timing:  cfg.Timing,
		Change:  cfg.Change,
		Metrics: m,
		Logger:  observability.GetLogger(),
	})
}

// parseOptionalBBox parses a grid bbox flag; an empty string yields nil.
func parseOptionalBBox(s string) (*[4]float64, error) {
	if s == "" {
		return nil, nil
	}
	box, err := platform.ParseBBox(s)
	if err != nil {
		return nil, err
	}
	return &box, nil
}

// fullScreen is the whole-screen region used when a swipe has no bbox.
func fullScreen(direction, description string) model.Region {
	return model.Region{
		BBox:        [4]float64{0, 0, model.GridSize, model.GridSize},
		Category:    model.CategorySlidable,
		Direction:   direction,
		Description: description,
	}
}
