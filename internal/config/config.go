// Package config loads swipegen settings from file, environment and flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full swipegen configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Device   DeviceConfig   `mapstructure:"device" yaml:"device"`
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Explore  ExploreConfig  `mapstructure:"explore" yaml:"explore"`
	Timing   TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Change   ChangeConfig   `mapstructure:"change" yaml:"change"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DeviceConfig selects the device and where captures are written.
type DeviceConfig struct {
	Serial        string `mapstructure:"serial" yaml:"serial"`
	ADBPath       string `mapstructure:"adb_path" yaml:"adb_path"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// DetectorConfig selects and configures the region detector backend.
type DetectorConfig struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	URL      string        `mapstructure:"url" yaml:"url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Scale    float64       `mapstructure:"scale" yaml:"scale"`
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ExploreConfig bounds the traversal.
type ExploreConfig struct {
	Packages          []string `mapstructure:"packages" yaml:"packages"`
	MaxL1Clicks       int      `mapstructure:"max_l1_clicks" yaml:"max_l1_clicks"`
	MaxL2Interactions int      `mapstructure:"max_l2_interactions" yaml:"max_l2_interactions"`
	LogsDir           string   `mapstructure:"logs_dir" yaml:"logs_dir"`
}

// TimingConfig holds the fixed settle delays.
type TimingConfig struct {
	TapSettle     time.Duration `mapstructure:"tap_settle" yaml:"tap_settle"`
	SwipeSettle   time.Duration `mapstructure:"swipe_settle" yaml:"swipe_settle"`
	BackDelay     time.Duration `mapstructure:"back_delay" yaml:"back_delay"`
	StopWait      time.Duration `mapstructure:"stop_wait" yaml:"stop_wait"`
	StartWait     time.Duration `mapstructure:"start_wait" yaml:"start_wait"`
	PostReset     time.Duration `mapstructure:"post_reset" yaml:"post_reset"`
	SwipeDuration time.Duration `mapstructure:"swipe_duration" yaml:"swipe_duration"`
}

// ChangeConfig holds the change-verdict thresholds.
type ChangeConfig struct {
	TapThreshold   float64 `mapstructure:"tap_threshold" yaml:"tap_threshold"`
	SwipeThreshold float64 `mapstructure:"swipe_threshold" yaml:"swipe_threshold"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "swipegen")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Device --
	v.SetDefault("device.serial", "")
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.screenshot_dir", "screenshots")

	// -- Detector --
	v.SetDefault("detector.backend", "remote")
	v.SetDefault("detector.url", "http://127.0.0.1:8000")
	v.SetDefault("detector.timeout", "180s")
	v.SetDefault("detector.scale", 0.5)
	v.SetDefault("detector.model", "gemini-2.5-flash")
	v.SetDefault("detector.api_key", "")
	v.SetDefault("detector.cache_ttl", "0s")

	// -- Explore --
	v.SetDefault("explore.packages", []string{})
	v.SetDefault("explore.max_l1_clicks", 5)
	v.SetDefault("explore.max_l2_interactions", 3)
	v.SetDefault("explore.logs_dir", "logs")

	// -- Timing --
	v.SetDefault("timing.tap_settle", "3s")
	v.SetDefault("timing.swipe_settle", "1.5s")
	v.SetDefault("timing.back_delay", "1s")
	v.SetDefault("timing.stop_wait", "1s")
	v.SetDefault("timing.start_wait", "3s")
	v.SetDefault("timing.post_reset", "1.5s")
	v.SetDefault("timing.swipe_duration", "300ms")

	// -- Change --
	v.SetDefault("change.tap_threshold", 0.01)
	v.SetDefault("change.swipe_threshold", 0.005)

	// -- Metrics --
	v.SetDefault("metrics.addr", "")
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// NewConfigFromViper unmarshals, expands paths and validates.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The API key is usually provided by the environment only.
	_ = v.BindEnv("detector.api_key", "SWIPEGEN_DETECTOR_API_KEY", "GEMINI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Detector.APIKey == "" {
		cfg.Detector.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	for _, p := range []*string{&cfg.Device.ScreenshotDir, &cfg.Explore.LogsDir, &cfg.Logger.LogFile, &cfg.Device.ADBPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Explore.MaxL1Clicks < 0 {
		return fmt.Errorf("explore.max_l1_clicks must not be negative")
	}
	if c.Explore.MaxL2Interactions < 0 {
		return fmt.Errorf("explore.max_l2_interactions must not be negative")
	}
	for name, th := range map[string]float64{
		"change.tap_threshold":   c.Change.TapThreshold,
		"change.swipe_threshold": c.Change.SwipeThreshold,
	} {
		if th < 0 || th >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", name, th)
		}
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector configuration invalid: %w", err)
	}
	if c.Timing.SwipeDuration <= 0 {
		return fmt.Errorf("timing.swipe_duration must be positive")
	}
	return nil
}

// Validate checks the detector configuration.
func (d *DetectorConfig) Validate() error {
	switch d.Backend {
	case "remote":
		if d.URL == "" {
			return fmt.Errorf("url is required for the remote backend")
		}
	case "gemini":
		if d.Model == "" {
			return fmt.Errorf("model is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (expected remote or gemini)", d.Backend)
	}
	if d.Scale <= 0 || d.Scale > 1 {
		return fmt.Errorf("scale must be in (0, 1], got %v", d.Scale)
	}
	if d.Timeout < 0 || d.CacheTTL < 0 {
		return fmt.Errorf("timeout and cache_ttl must not be negative")
	}
	return nil
}
