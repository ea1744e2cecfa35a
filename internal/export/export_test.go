package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

func sampleItems() []editor.Item {
	return []editor.Item{
		{Ref: 1, Overlay: overlay.Marker{Position: geo.Coordinate{Lat: 48.8575, Lon: 2.3514}}},
		{Ref: 2, Overlay: overlay.Circle{Center: geo.Coordinate{Lat: 1, Lon: 2}, Radius: 50, Color: "#ff0000"}},
		{Ref: 3, Overlay: overlay.NewRectangle(geo.Coordinate{}, geo.Coordinate{Lat: 1, Lon: 1}, "#00ff00", true)},
	}
}

func TestRing_Closed(t *testing.T) {
	ring := Ring([]geo.Coordinate{{}, {Lat: 1}, {Lon: 1}})
	require.Len(t, ring, 4)
	assert.True(t, ring.Closed())
	assert.Equal(t, orb.Point{1, 0}, ring[2], "orb points are lon, lat")
}

func TestCircleRing(t *testing.T) {
	c := overlay.Circle{Center: geo.Coordinate{Lat: 48.8575, Lon: 2.3514}, Radius: 100}
	ring := CircleRing(c, 12)
	require.Len(t, ring, 12)
	for _, p := range ring {
		assert.InDelta(t, 100, geo.DistanceMeters(c.Center, p), 0.5)
	}
	assert.Greater(t, ring[0].Lat, c.Center.Lat, "first vertex is due north")
}

func TestGeoJSON(t *testing.T) {
	fc := GeoJSON(sampleItems())
	require.Len(t, fc.Features, 3)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	back, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	assert.Equal(t, "Point", back.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, "marker", back.Features[0].Properties.MustString("kind"))

	circle := back.Features[1]
	assert.Equal(t, 50.0, circle.Properties.MustFloat64("radius"))
	assert.Equal(t, "#ff0000", circle.Properties.MustString("color"))

	rect := back.Features[2]
	assert.Equal(t, "Polygon", rect.Geometry.GeoJSONType())
	assert.True(t, rect.Properties.MustBool("rectangle"))
	assert.Len(t, rect.Geometry.(orb.Polygon)[0], 5)
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, "overlays", sampleItems()))
	out := buf.String()

	assert.Contains(t, out, "<kml")
	assert.Contains(t, out, "<name>overlays</name>")
	assert.Contains(t, out, "<name>marker 1</name>")
	assert.Contains(t, out, "<name>circle 2</name>")
	assert.Contains(t, out, "radius 50.0 m")
	assert.Contains(t, out, "<Polygon>")
	assert.Contains(t, out, "2.3514,48.8575")
}

func TestWKT(t *testing.T) {
	items := sampleItems()
	assert.Equal(t, "POINT(2.3514 48.8575)", WKT(items[0].Overlay))
	assert.Contains(t, WKT(items[1].Overlay), "POLYGON((")
	assert.Equal(t, "POLYGON((0 1,1 1,1 0,0 0,0 1))", WKT(items[2].Overlay))
}

func TestPolyline_RoundTrip(t *testing.T) {
	in := []geo.Coordinate{{Lat: 38.5, Lon: -120.2}, {Lat: 40.7, Lon: -120.95}, {Lat: 43.252, Lon: -126.453}}
	enc := Polyline(in)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", enc)

	out, err := DecodePolyline(enc)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i].Lat, out[i].Lat, 1e-5)
		assert.InDelta(t, in[i].Lon, out[i].Lon, 1e-5)
	}

	_, err = DecodePolyline("_p~iF~ps|U_")
	assert.Error(t, err)
}
