package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// TileLayer is the vector tile layer overlays are written to.
const TileLayer = "overlays"

// MaxTileZoom is the deepest zoom VectorTile accepts.
const MaxTileZoom = 22

// VectorTile encodes the overlays touching tile as a gzipped Mapbox vector
// tile. Circles are written as rings. It returns nil when the tile is empty.
func VectorTile(items []editor.Item, tile maptile.Tile) ([]byte, error) {
	bound := tile.Bound()
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		g := areaGeometry(it.Overlay)
		if g == nil || !g.Bound().Intersects(bound) {
			continue
		}
		f := geojson.NewFeature(g)
		f.ID = int(it.Ref)
		f.Properties = properties(it)
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(TileLayer, fc)
	if eps := simplifyEpsilon(tile.Z); eps > 0 {
		layer.Simplify(simplify.DouglasPeucker(eps))
	}
	// Clip works in world coordinates, so it runs before projection.
	layer.Clip(bound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}
	return mvt.MarshalGzipped(mvt.Layers{layer})
}

// areaGeometry is a fresh geometry per call; mvt mutates it in place.
func areaGeometry(o overlay.Overlay) orb.Geometry {
	if c, ok := o.(overlay.Circle); ok {
		return orb.Polygon{Ring(CircleRing(c, CircleSegments))}
	}
	return Geometry(o)
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 14:
		return 0
	case zoom >= 10:
		return 0.00001
	case zoom >= 6:
		return 0.0001
	default:
		return 0.001
	}
}
