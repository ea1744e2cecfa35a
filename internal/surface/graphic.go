// Package surface describes the graphics the editor places on a map and
// provides a remote surface that mirrors them to a browser.
package surface

import (
	"fmt"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// GraphicID identifies one placed graphic. A new id is issued every time a
// graphic is placed, so overlay geometry changes produce new ids.
type GraphicID string

// Kind is the primitive the surface draws.
type Kind int

const (
	KindPoint Kind = iota
	KindCircle
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Role says what a graphic is for.
type Role int

const (
	RoleOverlay Role = iota
	RoleDragHandle
	RoleResizeHandle
)

func (r Role) String() string {
	switch r {
	case RoleOverlay:
		return "overlay"
	case RoleDragHandle:
		return "drag"
	case RoleResizeHandle:
		return "resize"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Style is the stroke and fill of circle and polygon graphics.
type Style struct {
	Stroke       string  `json:"stroke,omitempty"`
	Fill         string  `json:"fill,omitempty"`
	FillOpacity  float64 `json:"fillOpacity"`
	StrokeWeight float64 `json:"strokeWeight"`
}

// Graphic is one drawable primitive.
type Graphic struct {
	ID      GraphicID        `json:"id"`
	Kind    Kind             `json:"kind"`
	Role    Role             `json:"role"`
	Ref     overlay.Ref      `json:"ref"`
	Index   int              `json:"index"` // vertex index of a resize handle
	Coords  []geo.Coordinate `json:"coords"`
	Radius  float64          `json:"radius,omitempty"`
	Style   Style            `json:"style"`
	Enabled bool             `json:"enabled"`
}
