// Package api defines the Huma API routes and handlers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/export"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Types

type RefInput struct {
	Ref int `path:"ref" minimum:"1" doc:"Overlay reference" example:"1"`
}

// OverlayBody is the JSON view of one overlay.
type OverlayBody struct {
	Ref       int              `json:"ref" doc:"Overlay reference"`
	Kind      string           `json:"kind" enum:"marker,circle,polygon" doc:"Overlay kind"`
	State     string           `json:"state" enum:"idle,dragging,resizing" doc:"Interaction state"`
	Draggable bool             `json:"draggable" doc:"Whether the overlay reacts to the pointer"`
	Color     string           `json:"color,omitempty" doc:"Stroke and fill color"`
	Anchor    geo.Coordinate   `json:"anchor" doc:"Marker position, circle center or polygon centroid"`
	Radius    float64          `json:"radius,omitempty" doc:"Circle radius in meters"`
	Vertices  []geo.Coordinate `json:"vertices,omitempty" doc:"Polygon vertices, clockwise"`
	Rectangle bool             `json:"rectangle,omitempty" doc:"Polygon is constrained to an axis-aligned rectangle"`
	Bounds    geo.Bounds       `json:"bounds" doc:"Bounding box"`
}

// NewOverlayBody converts an editor item.
func NewOverlayBody(it editor.Item) OverlayBody {
	o := it.Overlay
	body := OverlayBody{
		Ref:       int(it.Ref),
		Kind:      o.Kind().String(),
		State:     it.State.String(),
		Draggable: o.IsDraggable(),
		Color:     o.Tint(),
		Anchor:    o.Anchor(),
		Bounds:    o.Bounds(),
	}
	switch v := o.(type) {
	case overlay.Circle:
		body.Radius = v.Radius
	case overlay.Polygon:
		body.Vertices = v.Vertices
		body.Rectangle = v.Rectangle
	}
	return body
}

type OverlayOutput struct {
	Body OverlayBody
}

type OverlaysOutput struct {
	Body []OverlayBody
}

type MarkerShape struct {
	Position geo.Coordinate `json:"position" doc:"Marker position"`
}

type CircleShape struct {
	Center geo.Coordinate `json:"center" doc:"Circle center; an unchanged center resizes, a new one moves"`
	Radius float64        `json:"radius" doc:"Radius in meters" example:"75"`
}

type RectangleShape struct {
	Corner   geo.Coordinate `json:"corner" doc:"One corner"`
	Opposite geo.Coordinate `json:"opposite" doc:"The diagonally opposite corner"`
}

type PolygonShape struct {
	Vertices []geo.Coordinate `json:"vertices" doc:"At least 3 vertices; stored clockwise"`
}

type DrawOptions struct {
	Draggable bool `json:"draggable,omitempty" doc:"Allow dragging and resizing with the pointer"`
}

type VertexBody struct {
	Edge     int            `json:"edge" minimum:"0" doc:"Edge index; the vertex goes between edge and edge+1"`
	Position geo.Coordinate `json:"position" doc:"New vertex position"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type TileInput struct {
	Z int `path:"z" minimum:"0" maximum:"22" doc:"Zoom level"`
	X int `path:"x" minimum:"0" doc:"Tile column"`
	Y int `path:"y" minimum:"0" doc:"Tile row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

type FileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	editor *editor.Editor
}

func NewAPIHandler(ed *editor.Editor) *APIHandler {
	return &APIHandler{editor: ed}
}

func created(o *huma.Operation) { o.DefaultStatus = http.StatusCreated }

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterOverlays registers overlay CRUD routes.
func (h *APIHandler) RegisterOverlays(api huma.API) {
	tags := huma.OperationTags("overlays")
	huma.Get(api, "/api/v1/overlays", h.ListOverlays, tags)
	huma.Get(api, "/api/v1/overlays/{ref}", h.GetOverlay, tags)
	huma.Delete(api, "/api/v1/overlays/{ref}", h.DeleteOverlay, tags)

	huma.Post(api, "/api/v1/overlays/markers", h.DrawMarker, tags, created)
	huma.Post(api, "/api/v1/overlays/circles", h.DrawCircle, tags, created)
	huma.Post(api, "/api/v1/overlays/rectangles", h.DrawRectangle, tags, created)
	huma.Post(api, "/api/v1/overlays/polygons", h.DrawPolygon, tags, created)

	huma.Put(api, "/api/v1/overlays/{ref}/marker", h.PutMarker, tags)
	huma.Put(api, "/api/v1/overlays/{ref}/circle", h.PutCircle, tags)
	huma.Put(api, "/api/v1/overlays/{ref}/rectangle", h.PutRectangle, tags)
	huma.Put(api, "/api/v1/overlays/{ref}/polygon", h.PutPolygon, tags)
	huma.Post(api, "/api/v1/overlays/{ref}/vertices", h.InsertVertex, tags)
}

// RegisterExports registers the file export routes.
func (h *APIHandler) RegisterExports(api huma.API) {
	huma.Get(api, "/api/v1/overlays/export.geojson", h.ExportGeoJSON, huma.OperationTags("export"))
	huma.Get(api, "/api/v1/overlays/export.kml", h.ExportKML, huma.OperationTags("export"))
	huma.Get(api, "/api/v1/overlays/tiles/{z}/{x}/{y}", h.ExportTile, huma.OperationTags("export"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) ListOverlays(ctx context.Context, input *struct{}) (*OverlaysOutput, error) {
	items := h.editor.Snapshot()
	out := &OverlaysOutput{Body: make([]OverlayBody, 0, len(items))}
	for _, it := range items {
		out.Body = append(out.Body, NewOverlayBody(it))
	}
	return out, nil
}

func (h *APIHandler) GetOverlay(ctx context.Context, input *RefInput) (*OverlayOutput, error) {
	return h.overlay(overlay.Ref(input.Ref))
}

func (h *APIHandler) DeleteOverlay(ctx context.Context, input *RefInput) (*struct{}, error) {
	if err := h.editor.RemoveOverlay(overlay.Ref(input.Ref)); err != nil {
		return nil, EditorError(err)
	}
	return &struct{}{}, nil
}

func (h *APIHandler) DrawMarker(ctx context.Context, input *struct {
	Body struct {
		MarkerShape
		DrawOptions
	}
}) (*OverlayOutput, error) {
	return h.drawn(h.editor.DrawMarker(input.Body.Position, input.Body.Draggable))
}

func (h *APIHandler) DrawCircle(ctx context.Context, input *struct {
	Body struct {
		CircleShape
		DrawOptions
	}
}) (*OverlayOutput, error) {
	b := input.Body
	return h.drawn(h.editor.DrawCircle(b.Center, b.Radius, b.Draggable))
}

func (h *APIHandler) DrawRectangle(ctx context.Context, input *struct {
	Body struct {
		RectangleShape
		DrawOptions
	}
}) (*OverlayOutput, error) {
	b := input.Body
	return h.drawn(h.editor.DrawRectangle(b.Corner, b.Opposite, b.Draggable))
}

func (h *APIHandler) DrawPolygon(ctx context.Context, input *struct {
	Body struct {
		PolygonShape
		DrawOptions
	}
}) (*OverlayOutput, error) {
	return h.drawn(h.editor.DrawPolygon(input.Body.Vertices, input.Body.Draggable))
}

func (h *APIHandler) PutMarker(ctx context.Context, input *struct {
	RefInput
	Body MarkerShape
}) (*OverlayOutput, error) {
	ref := overlay.Ref(input.Ref)
	return h.updated(ref, h.editor.UpdateMarker(ref, input.Body.Position))
}

func (h *APIHandler) PutCircle(ctx context.Context, input *struct {
	RefInput
	Body CircleShape
}) (*OverlayOutput, error) {
	ref := overlay.Ref(input.Ref)
	return h.updated(ref, h.editor.UpdateCircle(ref, input.Body.Center, input.Body.Radius))
}

func (h *APIHandler) PutRectangle(ctx context.Context, input *struct {
	RefInput
	Body RectangleShape
}) (*OverlayOutput, error) {
	ref := overlay.Ref(input.Ref)
	return h.updated(ref, h.editor.UpdateRectangle(ref, input.Body.Corner, input.Body.Opposite))
}

func (h *APIHandler) PutPolygon(ctx context.Context, input *struct {
	RefInput
	Body PolygonShape
}) (*OverlayOutput, error) {
	ref := overlay.Ref(input.Ref)
	return h.updated(ref, h.editor.UpdatePolygon(ref, input.Body.Vertices))
}

func (h *APIHandler) InsertVertex(ctx context.Context, input *struct {
	RefInput
	Body VertexBody
}) (*OverlayOutput, error) {
	ref := overlay.Ref(input.Ref)
	return h.updated(ref, h.editor.InsertVertex(ref, input.Body.Edge, input.Body.Position))
}

func (h *APIHandler) ExportGeoJSON(ctx context.Context, input *struct{}) (*FileOutput, error) {
	data, err := json.Marshal(export.GeoJSON(h.editor.Snapshot()))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode GeoJSON", err)
	}
	return &FileOutput{
		ContentType:        "application/geo+json",
		ContentDisposition: `attachment; filename="overlays.geojson"`,
		Body:               data,
	}, nil
}

func (h *APIHandler) ExportKML(ctx context.Context, input *struct{}) (*FileOutput, error) {
	var buf bytes.Buffer
	if err := export.WriteKML(&buf, "Overlays", h.editor.Snapshot()); err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode KML", err)
	}
	return &FileOutput{
		ContentType:        "application/vnd.google-earth.kml+xml",
		ContentDisposition: `attachment; filename="overlays.kml"`,
		Body:               buf.Bytes(),
	}, nil
}

// ExportTile serves the overlays as a gzipped Mapbox vector tile, or 204
// when no overlay touches the tile.
func (h *APIHandler) ExportTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	if n := 1 << input.Z; input.X >= n || input.Y >= n {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("tile %d/%d/%d does not exist", input.Z, input.X, input.Y))
	}
	tile := maptile.New(uint32(input.X), uint32(input.Y), maptile.Zoom(input.Z))
	data, err := export.VectorTile(h.editor.Snapshot(), tile)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to encode tile", err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}, nil
}

func (h *APIHandler) overlay(ref overlay.Ref) (*OverlayOutput, error) {
	it, err := h.editor.Get(ref)
	if err != nil {
		return nil, EditorError(err)
	}
	return &OverlayOutput{Body: NewOverlayBody(it)}, nil
}

func (h *APIHandler) drawn(ref overlay.Ref, err error) (*OverlayOutput, error) {
	if err != nil {
		return nil, EditorError(err)
	}
	return h.overlay(ref)
}

func (h *APIHandler) updated(ref overlay.Ref, err error) (*OverlayOutput, error) {
	if err != nil {
		return nil, EditorError(fmt.Errorf("update overlay %d: %w", ref, err))
	}
	return h.overlay(ref)
}
