package editor

import (
	"log/slog"
	"math"
	"time"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// Config carries the externally supplied editor settings.
type Config struct {
	Palette       []string
	DefaultColor  string
	FillOpacity   float64
	StrokeWeight  float64
	DefaultOrigin geo.Coordinate
	Throttle      Throttle
	// SpareHandles is how many disabled vertex handles a polygon keeps in
	// reserve for vertex insertion.
	SpareHandles int
	// InsertOnEdge inserts a vertex when a polygon edge is double-clicked.
	InsertOnEdge bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultColor:  overlay.DefaultColor,
		FillOpacity:   0.2,
		StrokeWeight:  2,
		DefaultOrigin: geo.SafeOrigin,
		Throttle:      Throttle{Samples: 4, Interval: 40 * time.Millisecond},
		SpareHandles:  2,
	}
}

// normalize clamps out-of-range values. An invalid origin is replaced by
// geo.SafeOrigin.
func (c Config) normalize(log *slog.Logger) Config {
	if c.DefaultColor == "" {
		c.DefaultColor = overlay.DefaultColor
	}
	switch {
	case math.IsNaN(c.FillOpacity):
		c.FillOpacity = 0
	case c.FillOpacity < 0:
		c.FillOpacity = 0
	case c.FillOpacity > 1:
		c.FillOpacity = 1
	}
	if c.StrokeWeight <= 0 || math.IsNaN(c.StrokeWeight) {
		c.StrokeWeight = 1
	}
	if err := c.DefaultOrigin.Validate(); err != nil {
		log.Warn("default origin rejected, using safe origin", "error", err)
		c.DefaultOrigin = geo.SafeOrigin
	}
	if c.Throttle.Samples <= 0 {
		c.Throttle.Samples = 1
	}
	if c.Throttle.Interval < 0 {
		c.Throttle.Interval = 0
	}
	if c.SpareHandles < 0 {
		c.SpareHandles = 0
	}
	c.Palette = append([]string(nil), c.Palette...)
	return c
}
