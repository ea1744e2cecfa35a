// Package overlay defines the overlay value types drawn by the editor and
// the registry that hands out stable references for them.
//
// Overlay values are immutable: a geometry change builds a new value and
// the registry rebinds the reference to it.
package overlay

import (
	"fmt"

	"github.com/joeblew999/plat-overlay/internal/geo"
)

// Kind tags the overlay variant.
type Kind int

const (
	KindMarker Kind = iota
	KindCircle
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindMarker:
		return "marker"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Overlay is implemented by Marker, Circle and Polygon.
type Overlay interface {
	Kind() Kind
	// Anchor is the point a drag handle sits on.
	Anchor() geo.Coordinate
	// Bounds is the box used when fitting the viewport.
	Bounds() geo.Bounds
	IsDraggable() bool
	// Tint is the fill/stroke color; empty for markers.
	Tint() string
}

// Marker is a single point.
type Marker struct {
	Position  geo.Coordinate
	Draggable bool
}

func (m Marker) Kind() Kind             { return KindMarker }
func (m Marker) Anchor() geo.Coordinate { return m.Position }
func (m Marker) Bounds() geo.Bounds     { return geo.BoundsOf(m.Position) }
func (m Marker) IsDraggable() bool      { return m.Draggable }
func (m Marker) Tint() string           { return "" }

// MoveTo returns the marker at a new position.
func (m Marker) MoveTo(c geo.Coordinate) Marker {
	m.Position = c
	return m
}

// Circle is a center and a radius in meters.
type Circle struct {
	Center    geo.Coordinate
	Radius    float64
	Color     string
	Draggable bool
}

func (c Circle) Kind() Kind             { return KindCircle }
func (c Circle) Anchor() geo.Coordinate { return c.Center }
func (c Circle) Bounds() geo.Bounds     { return geo.BoundsOfCircle(c.Center, c.Radius) }
func (c Circle) IsDraggable() bool      { return c.Draggable }
func (c Circle) Tint() string           { return c.Color }

// ResizeHandle is where the radius handle sits: due east of the center.
func (c Circle) ResizeHandle() geo.Coordinate {
	return geo.OffsetMeters(c.Center, 0, c.Radius)
}

// MoveTo returns the circle at a new center with the same radius.
func (c Circle) MoveTo(center geo.Coordinate) Circle {
	c.Center = center
	return c
}

// WithRadius returns the circle with a new radius and the same center.
func (c Circle) WithRadius(r float64) Circle {
	c.Radius = r
	return c
}
