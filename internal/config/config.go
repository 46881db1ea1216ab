package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"timelinepanel/internal/logging"
	"timelinepanel/internal/models"
	"timelinepanel/internal/render"
)

// Config represents configuration data for the timeline panel service.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`
	DataDirectory string        `yaml:"data_directory"`
	LogLevel      string        `yaml:"log_level"`
	Timezone      string        `yaml:"timezone"`
	RateLimit     RateLimit     `yaml:"rate_limit"`
	Theme         render.Theme  `yaml:"theme"`
	Panels        []PanelConfig `yaml:"panels"`
	Sources       []Source      `yaml:"sources"`
}

// RateLimit configures the per-client token bucket of the API.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// PanelConfig seeds a panel on startup.
type PanelConfig struct {
	ID      string                `yaml:"id"`
	Title   string                `yaml:"title"`
	Range   string                `yaml:"range"`
	Width   float64               `yaml:"width"`
	Height  float64               `yaml:"height"`
	Metrics []models.MetricConfig `yaml:"metrics"`
	Options models.DisplayOptions `yaml:"options"`
}

// Source points a panel at a JSON frames file.
type Source struct {
	PanelID         string `yaml:"panel_id"`
	Path            string `yaml:"path"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// MaxViewport bounds the width and height of seeded panels.
const MaxViewport = 16384

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":8080",
		DataDirectory: "",
		LogLevel:      "info",
		Timezone:      "UTC",
		RateLimit:     RateLimit{RequestsPerSecond: 10, Burst: 20},
		Theme:         render.DefaultTheme(),
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Parse decodes yaml over the defaults and validates the result.
func Parse(content []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		return Config{}, errors.New("rate_limit.requests_per_second must not be negative")
	}
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RequestsPerSecond)
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = 1
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultConfig().LogLevel
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return Config{}, fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}

	seen := make(map[string]bool, len(cfg.Panels))
	for i, p := range cfg.Panels {
		if p.ID == "" {
			return Config{}, fmt.Errorf("panel %d is missing id", i)
		}
		if seen[p.ID] {
			return Config{}, fmt.Errorf("panel %s is defined twice", p.ID)
		}
		seen[p.ID] = true
		if p.Width < 0 || p.Width > MaxViewport || p.Height < 0 || p.Height > MaxViewport {
			return Config{}, fmt.Errorf("panel %s viewport must be within 0..%d", p.ID, MaxViewport)
		}
		if p.Range != "" {
			if d, err := time.ParseDuration(p.Range); err != nil || d <= 0 {
				return Config{}, fmt.Errorf("panel %s range %q is not a positive duration", p.ID, p.Range)
			}
		}
	}
	for i, s := range cfg.Sources {
		if s.PanelID == "" {
			return Config{}, fmt.Errorf("source %d is missing panel_id", i)
		}
		if s.Path == "" {
			return Config{}, fmt.Errorf("source %s path is required", s.PanelID)
		}
		if s.IntervalSeconds <= 0 {
			cfg.Sources[i].IntervalSeconds = 30
		}
	}
	return cfg, nil
}

// UnmarshalYAML decodes panel options over DefaultDisplayOptions so that
// omitted keys keep their defaults.
func (p *PanelConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain PanelConfig
	raw := plain{Options: models.DefaultDisplayOptions()}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = PanelConfig(raw)
	return nil
}

// Location resolves the configured timezone. Parse has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PanelsPath is the panel store file, empty when running in memory.
func (c Config) PanelsPath() string {
	if c.DataDirectory == "" {
		return ""
	}
	return filepath.Join(c.DataDirectory, "panels.json")
}

// Snapshot converts a seed panel into a store snapshot.
func (p PanelConfig) Snapshot() models.PanelSnapshot {
	return models.PanelSnapshot{
		ID:      p.ID,
		Title:   p.Title,
		Metrics: p.Metrics,
		Options: p.Options,
		Range:   p.Range,
		Width:   p.Width,
		Height:  p.Height,
	}
}

// Interval returns the polling interval of a source.
func (s Source) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}
