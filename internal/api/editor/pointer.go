package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/api"
	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/humastar"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// coordinate reads a validated coordinate from two signals.
func coordinate(s humastar.Signals, latKey, lonKey string) (geo.Coordinate, error) {
	lat, ok := s.Number(latKey)
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("%w: %s %q", geo.ErrParseCoordinate, latKey, s.String(latKey))
	}
	lon, ok := s.Number(lonKey)
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("%w: %s %q", geo.ErrParseCoordinate, lonKey, s.String(lonKey))
	}
	return geo.NewCoordinate(lat, lon)
}

// pointerEvent converts pointer signals. A missing timestamp means now.
func pointerEvent(s humastar.Signals) (editor.PointerEvent, error) {
	c, err := coordinate(s, "lat", "lon")
	if err != nil {
		return editor.PointerEvent{}, err
	}
	at, ok := s.Time("t")
	if !ok {
		at = time.Now()
	}
	return editor.PointerEvent{
		Coord:   c,
		Graphic: surface.GraphicID(s.String("graphic")),
		Pointer: s.Int("pointer"),
		At:      at,
	}, nil
}

// Pointer feeds one browser pointer event into the editor.
func (h *EventHandler) Pointer(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	ev, err := pointerEvent(signals)
	if err != nil {
		return nil, api.EditorError(err)
	}

	switch kind := signals.String("kind"); kind {
	case "down":
		err = h.editor.PointerDown(ev)
	case "move":
		err = h.editor.PointerMove(ev)
	case "up":
		err = h.editor.PointerUp(ev)
	case "dblclick":
		err = h.editor.DoubleClick(ev)
	default:
		return nil, huma.Error400BadRequest(fmt.Sprintf("unknown pointer kind %q", kind))
	}
	if err != nil {
		return nil, api.EditorError(err)
	}
	return &struct{}{}, nil
}

// Viewport records the bounds the map currently shows.
func (h *EventHandler) Viewport(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	nw, err := coordinate(signals, "north", "west")
	if err != nil {
		return nil, api.EditorError(err)
	}
	se, err := coordinate(signals, "south", "east")
	if err != nil {
		return nil, api.EditorError(err)
	}
	if err := h.surface.SetViewport(geo.Bounds{TopLeft: nw, BottomRight: se}); err != nil {
		return nil, api.EditorError(err)
	}
	return &struct{}{}, nil
}
