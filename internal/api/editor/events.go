package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/export"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/humastar"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// Browser CustomEvent names dispatched on the editor page.
const (
	EventGraphic     = "overlay-graphic"
	EventFit         = "overlay-fit"
	EventMoved       = "overlay-moved"
	EventDoubleClick = "map-dblclick"
)

// ListSelector is the element the overlay list is patched into.
const ListSelector = "#overlay-list"

// EventHandler streams surface commands and editor notifications to the
// Datastar UI via SSE.
type EventHandler struct {
	humastar.Handler
	bus     *service.EventBus
	editor  *editor.Editor
	surface *surface.Remote
	log     *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus *service.EventBus, ed *editor.Editor, remote *surface.Remote, renderer humastar.Renderer, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{
		Handler: humastar.Handler{Renderer: renderer},
		bus:     bus,
		editor:  ed,
		surface: remote,
		log:     log.With("component", "sse"),
	}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events, huma.OperationTags("editor"))
	huma.Get(api, "/api/v1/editor/overlays", h.Overlays, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/pointer", h.Pointer, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/viewport", h.Viewport, huma.OperationTags("editor"))
}

// graphicEvent is the detail of an overlay-graphic event.
type graphicEvent struct {
	Action   string           `json:"action"`
	ID       string           `json:"id"`
	Graphic  *surface.Graphic `json:"graphic,omitempty"`
	Polyline string           `json:"polyline,omitempty"`
}

// movedEvent is the detail of an overlay-moved event.
type movedEvent struct {
	editor.MoveEvent
	Polyline string `json:"polyline,omitempty"`
}

type boundsEvent struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

func fitEvent(b geo.Bounds) boundsEvent {
	return boundsEvent{North: b.North(), South: b.South(), West: b.West(), East: b.East()}
}

// Events replays the current graphics, then forwards bus events until
// the client goes away or the bus drops the stream for falling behind.
func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		ch := h.bus.Subscribe()
		defer h.bus.Unsubscribe(ch)
		metrics.ActiveStreams.Inc()
		defer metrics.ActiveStreams.Dec()
		h.log.Debug("stream opened", "subscribers", h.bus.Subscribers())

		if err := h.replay(sse); err != nil {
			h.log.Debug("stream closed during replay", "error", err)
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					// evicted for falling behind; the client reconnects and replays
					h.log.Debug("stream evicted")
					return
				}
				if err := h.forward(sse, ev); err != nil {
					h.log.Debug("stream closed", "error", err)
					return
				}
			}
		}
	}), nil
}

func (h *EventHandler) replay(sse humastar.SSE) error {
	for _, g := range h.surface.Graphics() {
		if err := sse.Event(EventGraphic, newGraphicEvent("place", g)); err != nil {
			return err
		}
	}
	if b, ok := h.surface.LastFit(); ok {
		if err := sse.Event(EventFit, fitEvent(b)); err != nil {
			return err
		}
	}
	return sse.Patch(h.renderList(), ListSelector)
}

func (h *EventHandler) forward(sse humastar.SSE, ev service.Event) error {
	switch ev.Topic {
	case service.TopicGraphic:
		detail := graphicEvent{Action: ev.Action, ID: ev.ID}
		if g, ok := ev.Payload.(surface.Graphic); ok {
			detail = newGraphicEvent(ev.Action, g)
		}
		return sse.Event(EventGraphic, detail)
	case service.TopicFit:
		b, ok := ev.Payload.(geo.Bounds)
		if !ok {
			return nil
		}
		if err := sse.Event(EventFit, fitEvent(b)); err != nil {
			return err
		}
		// fits are coalesced and follow every structural change
		return sse.Patch(h.renderList(), ListSelector)
	case service.TopicMoved:
		m, ok := ev.Payload.(editor.MoveEvent)
		if !ok {
			return nil
		}
		detail := movedEvent{MoveEvent: m}
		if len(m.Vertices) > 0 {
			detail.Polyline = export.Polyline(m.Vertices)
		}
		return sse.Event(EventMoved, detail)
	case service.TopicDoubleClick:
		return sse.Event(EventDoubleClick, ev.Payload)
	}
	return nil
}

func newGraphicEvent(action string, g surface.Graphic) graphicEvent {
	ev := graphicEvent{Action: action, ID: string(g.ID), Graphic: &g}
	if g.Kind == surface.KindPolygon {
		ev.Polyline = export.Polyline(g.Coords)
	}
	return ev
}

// Overlays patches the overlay list once.
func (h *EventHandler) Overlays(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderList(), ListSelector)
	}), nil
}

// row is the template data of one overlay-item fragment.
type row struct {
	Ref       int
	Kind      string
	State     string
	Color     string
	Anchor    string
	Detail    string
	Draggable bool
}

func newRow(it editor.Item) row {
	r := row{
		Ref:       int(it.Ref),
		Kind:      it.Overlay.Kind().String(),
		State:     it.State.String(),
		Color:     it.Overlay.Tint(),
		Anchor:    it.Overlay.Anchor().String(),
		Draggable: it.Overlay.IsDraggable(),
	}
	switch v := it.Overlay.(type) {
	case overlay.Circle:
		r.Detail = fmt.Sprintf("r=%.0fm", v.Radius)
	case overlay.Polygon:
		if v.Rectangle {
			r.Kind = "rectangle"
		} else {
			r.Detail = fmt.Sprintf("%d vertices", len(v.Vertices))
		}
	}
	return r
}

func (h *EventHandler) renderList() string {
	items := h.editor.Snapshot()
	rows := make([]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, newRow(it))
	}
	return h.RenderList("overlay-item", rows, "No overlays", "Draw a marker, circle, rectangle or polygon.")
}
