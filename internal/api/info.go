package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dbOK     bool
	overlays func() int
}

func NewInfoHandler(dbOK bool, overlays func() int) *InfoHandler {
	return &InfoHandler{dbOK: dbOK, overlays: overlays}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DB       bool     `json:"db" doc:"Whether the SQL endpoint is available"`
	Overlays int      `json:"overlays" doc:"Number of live overlays"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"markers", "circles", "rectangles", "polygons", "geojson", "kml"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-overlay",
		Version:  Version,
		DB:       h.dbOK,
		Overlays: h.overlays(),
		Features: features,
	}}, nil
}
