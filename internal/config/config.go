// Package config loads kpulse settings from YAML and KPULSE_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/prom"
)

// EnvPrefix prefixes every environment override, e.g. KPULSE_PROMETHEUS_URL.
const EnvPrefix = "KPULSE"

// Config represents the root configuration structure
type Config struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Charts     []ChartConfig    `mapstructure:"charts"`
	UI         UIConfig         `mapstructure:"ui"`
	History    HistoryConfig    `mapstructure:"history"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	LogFile    string           `mapstructure:"log_file"`
	Debug      bool             `mapstructure:"debug"`

	// Source is the file the configuration was read from, if any.
	Source string `mapstructure:"-"`
}

// PrometheusConfig locates the metrics backend.
type PrometheusConfig struct {
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Label   string            `mapstructure:"label"`
	Headers map[string]string `mapstructure:"headers"`
}

// ChartConfig describes one dashboard panel.
type ChartConfig struct {
	ID     string        `mapstructure:"id"`
	Title  string        `mapstructure:"title"`
	Query  string        `mapstructure:"query"`
	Window time.Duration `mapstructure:"window"`
	Unit   string        `mapstructure:"unit"`
	// Label overrides prometheus.label for this chart.
	Label string `mapstructure:"label"`
}

// UIConfig holds user interface preferences
type UIConfig struct {
	Theme        string        `mapstructure:"theme"`
	DateFormat   string        `mapstructure:"date_format"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// HistoryConfig controls the local sample archive.
type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// TelemetryConfig controls the self-metrics endpoint.
type TelemetryConfig struct {
	Listen string `mapstructure:"listen"`
}

// Preset chart queries.
const (
	CPUQuery    = "sum(rate(container_cpu_usage_seconds_total[1m])) by (namespace)"
	MemoryQuery = "sum(container_memory_usage_bytes) by (namespace)"
)

// DefaultCharts returns the CPU and memory presets.
func DefaultCharts() []ChartConfig {
	return []ChartConfig{
		{
			ID:     "cpu",
			Title:  "CPU usage",
			Query:  CPUQuery,
			Window: metrics.DefaultTimeWindow.Duration(),
			Unit:   string(metrics.UnitPercent),
		},
		{
			ID:     "memory",
			Title:  "Memory usage",
			Query:  MemoryQuery,
			Window: metrics.DefaultTimeWindow.Duration(),
			Unit:   string(metrics.UnitMegabytes),
		},
	}
}

// DefaultDir returns ~/.config/kpulse.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kpulse")
	}
	return filepath.Join(home, ".config", "kpulse")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// LoadConfig loads configuration from the default search path and the
// environment. A missing file is not an error.
func LoadConfig() (*Config, error) {
	return LoadConfigFromPath("")
}

// LoadConfigFromPath loads configuration from path, or from the default
// search path when path is empty.
func LoadConfigFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	normalize(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize fills per-chart fields left empty and expands ~ in paths.
func normalize(cfg *Config) {
	if len(cfg.Charts) == 0 {
		cfg.Charts = DefaultCharts()
	}
	for i := range cfg.Charts {
		c := &cfg.Charts[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.Title == "" {
			c.Title = c.ID
		}
		if c.Window == 0 {
			c.Window = metrics.DefaultTimeWindow.Duration()
		}
		if c.Unit == "" {
			c.Unit = string(metrics.UnitRaw)
		}
		if c.Label == "" {
			c.Label = cfg.Prometheus.Label
		}
	}
	cfg.History.Path = ExpandHome(cfg.History.Path)
	cfg.LogFile = ExpandHome(cfg.LogFile)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ValidateConfig validates the configuration values
func ValidateConfig(cfg *Config) error {
	if _, err := prom.ParseBaseURL(cfg.Prometheus.URL); err != nil {
		return fmt.Errorf("prometheus.url: %w", err)
	}
	if cfg.Prometheus.Timeout < 0 {
		return fmt.Errorf("prometheus.timeout must be >= 0, got %v", cfg.Prometheus.Timeout)
	}

	if len(cfg.Charts) == 0 {
		return fmt.Errorf("charts cannot be empty")
	}
	seen := make(map[string]bool, len(cfg.Charts))
	for i, c := range cfg.Charts {
		if c.ID == "" {
			return fmt.Errorf("charts[%d].id cannot be empty", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("charts[%d].id %q is duplicated", i, c.ID)
		}
		seen[c.ID] = true

		if strings.TrimSpace(c.Query) == "" {
			return fmt.Errorf("charts[%d].query cannot be empty", i)
		}
		if c.Window <= 0 {
			return fmt.Errorf("charts[%d].window must be positive, got %v", i, c.Window)
		}
		if _, err := metrics.ParseUnit(c.Unit); err != nil {
			return fmt.Errorf("charts[%d].unit: %w", i, err)
		}
	}

	validThemes := []string{"dark", "light"}
	validTheme := false
	for _, theme := range validThemes {
		if cfg.UI.Theme == theme {
			validTheme = true
			break
		}
	}
	if !validTheme {
		return fmt.Errorf("ui.theme must be one of: %v, got %s", validThemes, cfg.UI.Theme)
	}

	if cfg.UI.TickInterval < time.Second || cfg.UI.TickInterval > 60*time.Second {
		return fmt.Errorf("ui.tick_interval must be between 1s and 60s, got %v", cfg.UI.TickInterval)
	}

	if cfg.History.Enabled {
		if cfg.History.Path == "" {
			return fmt.Errorf("history.path cannot be empty when history is enabled")
		}
		if cfg.History.Retention <= 0 {
			return fmt.Errorf("history.retention must be positive, got %v", cfg.History.Retention)
		}
	}

	return nil
}

// applyDefaults sets default configuration values
func applyDefaults(v *viper.Viper) {
	v.SetDefault("prometheus.url", "http://localhost:9090")
	v.SetDefault("prometheus.timeout", "0s")
	v.SetDefault("prometheus.label", prom.DefaultLabel)

	v.SetDefault("ui.theme", "dark")
	v.SetDefault("ui.date_format", "2006-01-02 15:04:05")
	v.SetDefault("ui.tick_interval", metrics.DefaultTickInterval.String())

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", filepath.Join(DefaultDir(), "history.db"))
	v.SetDefault("history.retention", "24h")

	v.SetDefault("telemetry.listen", "")
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
}
