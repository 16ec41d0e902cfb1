package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// document mirrors Config with durations written as strings.
type document struct {
	Prometheus struct {
		URL     string            `yaml:"url"`
		Timeout string            `yaml:"timeout"`
		Label   string            `yaml:"label"`
		Headers map[string]string `yaml:"headers,omitempty"`
	} `yaml:"prometheus"`
	Charts []chartDocument `yaml:"charts"`
	UI     struct {
		Theme        string `yaml:"theme"`
		DateFormat   string `yaml:"date_format"`
		TickInterval string `yaml:"tick_interval"`
	} `yaml:"ui"`
	History struct {
		Enabled   bool   `yaml:"enabled"`
		Path      string `yaml:"path"`
		Retention string `yaml:"retention"`
	} `yaml:"history"`
	Telemetry struct {
		Listen string `yaml:"listen"`
	} `yaml:"telemetry"`
	LogFile string `yaml:"log_file"`
	Debug   bool   `yaml:"debug"`
}

type chartDocument struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Query  string `yaml:"query"`
	Window string `yaml:"window"`
	Unit   string `yaml:"unit"`
	Label  string `yaml:"label,omitempty"`
}

// Marshal renders cfg as YAML that LoadConfigFromPath reads back.
func Marshal(cfg *Config) ([]byte, error) {
	var doc document
	doc.Prometheus.URL = cfg.Prometheus.URL
	doc.Prometheus.Timeout = cfg.Prometheus.Timeout.String()
	doc.Prometheus.Label = cfg.Prometheus.Label
	doc.Prometheus.Headers = cfg.Prometheus.Headers
	for _, c := range cfg.Charts {
		cd := chartDocument{
			ID:     c.ID,
			Title:  c.Title,
			Query:  c.Query,
			Window: c.Window.String(),
			Unit:   c.Unit,
		}
		if c.Label != cfg.Prometheus.Label {
			cd.Label = c.Label
		}
		doc.Charts = append(doc.Charts, cd)
	}
	doc.UI.Theme = cfg.UI.Theme
	doc.UI.DateFormat = cfg.UI.DateFormat
	doc.UI.TickInterval = cfg.UI.TickInterval.String()
	doc.History.Enabled = cfg.History.Enabled
	doc.History.Path = cfg.History.Path
	doc.History.Retention = cfg.History.Retention.String()
	doc.Telemetry.Listen = cfg.Telemetry.Listen
	doc.LogFile = cfg.LogFile
	doc.Debug = cfg.Debug

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

// Defaults returns the built-in configuration, ignoring files and the
// environment.
func Defaults() (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling defaults: %w", err)
	}
	normalize(&cfg)
	return &cfg, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	cfg, err := Defaults()
	if err != nil {
		return err
	}
	out, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
