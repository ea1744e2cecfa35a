package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/geo"
)

// Config holds the editor settings read from the optional YAML file.
type Config struct {
	Palette       []string       `yaml:"palette"`
	DefaultColor  string         `yaml:"defaultColor"`
	FillOpacity   float64        `yaml:"fillOpacity"`
	StrokeWeight  float64        `yaml:"strokeWeight"`
	DefaultOrigin geo.Coordinate `yaml:"defaultOrigin"`
	Throttle      ThrottleConfig `yaml:"throttle"`
	SpareHandles  int            `yaml:"spareHandles"`
	InsertOnEdge  bool           `yaml:"insertOnEdge"`
	// FitDelay coalesces viewport fit requests sent to the browser.
	FitDelay time.Duration `yaml:"fitDelay"`
}

type ThrottleConfig struct {
	Samples  int           `yaml:"samples"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	d := editor.DefaultConfig()
	return Config{
		Palette:       []string{"#3388ff", "#e4572e", "#29bf12", "#ffc914", "#8e44ad"},
		DefaultColor:  d.DefaultColor,
		FillOpacity:   d.FillOpacity,
		StrokeWeight:  d.StrokeWeight,
		DefaultOrigin: d.DefaultOrigin,
		Throttle: ThrottleConfig{
			Samples:  d.Throttle.Samples,
			Interval: d.Throttle.Interval,
		},
		SpareHandles: d.SpareHandles,
		FitDelay:     16 * time.Millisecond,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the settings are sane. An out-of-range fill
// opacity or default origin is not an error: the editor clamps the first
// and falls back to a safe origin for the second.
func (c *Config) Validate() error {
	var errs []string

	for i, color := range c.Palette {
		if strings.TrimSpace(color) == "" {
			errs = append(errs, fmt.Sprintf("palette[%d] is empty", i))
		}
	}
	if c.StrokeWeight <= 0 {
		errs = append(errs, fmt.Sprintf("strokeWeight must be positive, got %v", c.StrokeWeight))
	}
	if c.Throttle.Samples < 1 {
		errs = append(errs, fmt.Sprintf("throttle.samples must be at least 1, got %d", c.Throttle.Samples))
	}
	if c.Throttle.Interval < 0 {
		errs = append(errs, "throttle.interval must not be negative")
	}
	if c.SpareHandles < 0 {
		errs = append(errs, "spareHandles must not be negative")
	}
	if c.FitDelay < 0 {
		errs = append(errs, "fitDelay must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Editor converts the file settings to an editor configuration.
func (c *Config) Editor() editor.Config {
	return editor.Config{
		Palette:       append([]string(nil), c.Palette...),
		DefaultColor:  c.DefaultColor,
		FillOpacity:   c.FillOpacity,
		StrokeWeight:  c.StrokeWeight,
		DefaultOrigin: c.DefaultOrigin,
		Throttle: editor.Throttle{
			Samples:  c.Throttle.Samples,
			Interval: c.Throttle.Interval,
		},
		SpareHandles: c.SpareHandles,
		InsertOnEdge: c.InsertOnEdge,
	}
}
