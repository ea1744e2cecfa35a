// Package export renders editor overlays in interchange formats: GeoJSON,
// KML, WKT, encoded polylines and Mapbox vector tiles.
package export

import (
	"fmt"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-kml/v2"
	"github.com/twpayne/go-polyline"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// CircleSegments is the vertex count used when a circle must be drawn as a ring.
const CircleSegments = 36

// Ring returns the closed orb ring of a polygon (first vertex repeated).
func Ring(vertices []geo.Coordinate) orb.Ring {
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, v.Point())
	}
	if len(vertices) > 0 {
		ring = append(ring, vertices[0].Point())
	}
	return ring
}

// CircleRing approximates a circle with n vertices placed with
// geo.OffsetMeters, clockwise from north.
func CircleRing(c overlay.Circle, n int) []geo.Coordinate {
	if n < 3 {
		n = 3
	}
	out := make([]geo.Coordinate, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = geo.OffsetMeters(c.Center, c.Radius*math.Cos(a), c.Radius*math.Sin(a))
	}
	return out
}

// Geometry converts an overlay to orb. Circles become their center point.
func Geometry(o overlay.Overlay) orb.Geometry {
	switch v := o.(type) {
	case overlay.Marker:
		return v.Position.Point()
	case overlay.Circle:
		return v.Center.Point()
	case overlay.Polygon:
		return orb.Polygon{Ring(v.Vertices)}
	}
	return nil
}

// WKT is the well-known text of an overlay geometry. Circles are expanded
// to a ring so spatial consumers see their area.
func WKT(o overlay.Overlay) string {
	if c, ok := o.(overlay.Circle); ok {
		return wkt.MarshalString(orb.Polygon{Ring(CircleRing(c, CircleSegments))})
	}
	return wkt.MarshalString(Geometry(o))
}

// GeoJSON builds a feature collection. Circles are points with a
// radius property, the common GeoJSON convention.
func GeoJSON(items []editor.Item) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		f := geojson.NewFeature(Geometry(it.Overlay))
		f.ID = int(it.Ref)
		f.Properties = properties(it)
		fc.Append(f)
	}
	return fc
}

func properties(it editor.Item) geojson.Properties {
	props := geojson.Properties{
		"ref":       int(it.Ref),
		"kind":      it.Overlay.Kind().String(),
		"draggable": it.Overlay.IsDraggable(),
	}
	if color := it.Overlay.Tint(); color != "" {
		props["color"] = color
	}
	switch v := it.Overlay.(type) {
	case overlay.Circle:
		props["radius"] = v.Radius
	case overlay.Polygon:
		props["rectangle"] = v.Rectangle
	}
	return props
}

// WriteKML writes the overlays as a KML document. Circles are written as
// polygons approximated with CircleSegments vertices.
func WriteKML(w io.Writer, name string, items []editor.Item) error {
	placemarks := make([]kml.Element, 0, len(items)+1)
	placemarks = append(placemarks, kml.Name(name))
	for _, it := range items {
		placemarks = append(placemarks, placemark(it))
	}
	return kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  ")
}

func placemark(it editor.Item) kml.Element {
	label := fmt.Sprintf("%s %d", it.Overlay.Kind(), it.Ref)
	switch v := it.Overlay.(type) {
	case overlay.Marker:
		return kml.Placemark(
			kml.Name(label),
			kml.Point(kml.Coordinates(kmlCoordinate(v.Position))),
		)
	case overlay.Circle:
		return kml.Placemark(
			kml.Name(label),
			kml.Description(fmt.Sprintf("radius %.1f m, color %s", v.Radius, v.Color)),
			kmlPolygon(CircleRing(v, CircleSegments)),
		)
	case overlay.Polygon:
		return kml.Placemark(
			kml.Name(label),
			kml.Description(fmt.Sprintf("%d vertices, color %s", len(v.Vertices), v.Color)),
			kmlPolygon(v.Vertices),
		)
	}
	return kml.Placemark(kml.Name(label))
}

func kmlCoordinate(c geo.Coordinate) kml.Coordinate {
	return kml.Coordinate{Lon: c.Lon, Lat: c.Lat}
}

func kmlPolygon(vertices []geo.Coordinate) kml.Element {
	coords := make([]kml.Coordinate, 0, len(vertices)+1)
	for _, v := range vertices {
		coords = append(coords, kmlCoordinate(v))
	}
	if len(vertices) > 0 {
		coords = append(coords, kmlCoordinate(vertices[0]))
	}
	return kml.Polygon(kml.OuterBoundaryIs(kml.LinearRing(kml.Coordinates(coords...))))
}

// Polyline encodes vertices with the Google polyline algorithm.
func Polyline(vertices []geo.Coordinate) string {
	coords := make([][]float64, len(vertices))
	for i, v := range vertices {
		coords[i] = []float64{v.Lat, v.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline reverses Polyline. Precision is 1e-5 degrees.
func DecodePolyline(s string) ([]geo.Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	out := make([]geo.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = geo.Coordinate{Lat: c[0], Lon: c[1]}
	}
	return out, nil
}
