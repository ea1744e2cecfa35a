package overlay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-overlay/internal/geo"
)

type handle struct{ name string }

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry[*handle]()
	a, b := &handle{"a"}, &handle{"b"}

	assert.Equal(t, Ref(1), r.Peek())
	refA := r.Add(a)
	assert.Equal(t, Ref(2), r.Peek())
	refB := r.Add(b)
	assert.Equal(t, Ref(1), refA)
	assert.Equal(t, Ref(2), refB)

	got, ok := r.Get(refA)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get(42)
	assert.False(t, ok)

	removed, ok := r.Remove(refA)
	require.True(t, ok)
	assert.Same(t, a, removed)
	_, ok = r.Remove(refA)
	assert.False(t, ok)

	// refs are never recycled
	c := &handle{"c"}
	assert.Equal(t, Ref(3), r.Add(c))
	assert.Equal(t, []Ref{2, 3}, r.Refs())
	assert.Equal(t, []*handle{b, c}, r.List())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Replace(t *testing.T) {
	r := NewRegistry[*handle]()
	old := &handle{"old"}
	ref := r.Add(old)

	next := &handle{"next"}
	got, err := r.Replace(old, next)
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	cur, _ := r.Get(ref)
	assert.Same(t, next, cur)

	// the old handle is no longer bound anywhere
	got, err = r.Replace(old, &handle{"again"})
	assert.ErrorIs(t, err, ErrHandleNotFound)
	assert.Equal(t, NoRef, got)
}

func TestRegistry_RemoveHandle(t *testing.T) {
	r := NewRegistry[*handle]()
	h := &handle{"h"}
	r.Add(h)

	got, ok := r.RemoveHandle(h)
	require.True(t, ok)
	assert.Same(t, h, got)

	got, ok = r.RemoveHandle(h)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPalette(t *testing.T) {
	p := NewPalette([]string{"red", "green", "blue"}, "")
	assert.Equal(t, "red", p.NextColor())
	assert.Equal(t, "green", p.NextColor())

	p.PushColor("red")
	assert.Equal(t, "red", p.NextColor(), "pushed color comes first")
	assert.Equal(t, "blue", p.NextColor(), "rotation resumes where it left off")
	assert.Equal(t, "red", p.NextColor(), "wraps around")

	p.PushColor("x")
	p.PushColor("y")
	assert.Equal(t, "y", p.NextColor())
	assert.Equal(t, "green", p.NextColor())
}

func TestPalette_Empty(t *testing.T) {
	assert.Equal(t, DefaultColor, NewPalette(nil, "").NextColor())

	p := NewPalette(nil, "#000")
	assert.Equal(t, "#000", p.NextColor())
	p.PushColor("#fff")
	assert.Equal(t, "#fff", p.NextColor())
	assert.Equal(t, "#000", p.NextColor())
}

func TestNewPolygon(t *testing.T) {
	_, err := NewPolygon([]geo.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}, "red", true)
	assert.ErrorIs(t, err, ErrTooFewVertices)

	p, err := NewPolygon([]geo.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0}, {Lat: 0, Lon: 1}}, "red", true)
	require.NoError(t, err)
	assert.Equal(t, KindPolygon, p.Kind())
	assert.Len(t, p.Vertices, 4)
	assert.Equal(t, geo.Coordinate{Lat: 0.5, Lon: 0.5}, p.Anchor())
}

func TestNewRectangle(t *testing.T) {
	r := NewRectangle(geo.Coordinate{Lat: 0, Lon: 0.001}, geo.Coordinate{Lat: 0.001, Lon: 0}, "red", true)
	require.True(t, r.Rectangle)
	assert.Equal(t, []geo.Coordinate{
		{Lat: 0.001, Lon: 0},
		{Lat: 0.001, Lon: 0.001},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0},
	}, r.Vertices)
}

// assertRectangle checks the shape is axis-aligned: opposite sides equal and
// every angle a right angle.
func assertRectangle(t *testing.T, p Polygon) {
	t.Helper()
	require.Len(t, p.Vertices, 4)
	v := p.Vertices
	assert.Equal(t, v[TopLeft].Lat, v[TopRight].Lat)
	assert.Equal(t, v[BottomLeft].Lat, v[BottomRight].Lat)
	assert.Equal(t, v[TopLeft].Lon, v[BottomLeft].Lon)
	assert.Equal(t, v[TopRight].Lon, v[BottomRight].Lon)

	for i := range v {
		prev := v[(i+3)%4]
		next := v[(i+1)%4]
		dot := (prev.Lat-v[i].Lat)*(next.Lat-v[i].Lat) + (prev.Lon-v[i].Lon)*(next.Lon-v[i].Lon)
		assert.InDelta(t, 0, dot, 1e-18, "corner %d", i)
	}
	assert.InDelta(t, geo.DistanceMeters(v[TopLeft], v[TopRight]), geo.DistanceMeters(v[BottomLeft], v[BottomRight]), 0.01)
	assert.InDelta(t, geo.DistanceMeters(v[TopLeft], v[BottomLeft]), geo.DistanceMeters(v[TopRight], v[BottomRight]), 0.01)
}

func TestPolygon_MoveVertex_Rectangle(t *testing.T) {
	base := NewRectangle(geo.Coordinate{Lat: 0, Lon: 0}, geo.Coordinate{Lat: 0.001, Lon: 0.001}, "red", true)
	targets := []geo.Coordinate{
		TopLeft:     {Lat: 0.0012, Lon: -0.0003},
		TopRight:    {Lat: 0.0015, Lon: 0.0011},
		BottomRight: {Lat: -0.0002, Lon: 0.0009},
		BottomLeft:  {Lat: 0.0001, Lon: 0.0002},
	}
	for corner, c := range targets {
		got, err := base.MoveVertex(corner, c)
		require.NoError(t, err)
		assert.Equal(t, c, got.Vertices[corner])
		assertRectangle(t, got)
		// the opposite corner never moves
		opposite := (corner + 2) % 4
		assert.Equal(t, base.Vertices[opposite], got.Vertices[opposite])
	}
	// the source value is untouched
	assertRectangle(t, base)
	assert.Equal(t, geo.Coordinate{Lat: 0.001, Lon: 0}, base.Vertices[TopLeft])
}

func TestPolygon_MoveVertex_TopLeftScenario(t *testing.T) {
	r := NewRectangle(geo.Coordinate{Lat: 0, Lon: 0}, geo.Coordinate{Lat: 0.001, Lon: 0.001}, "red", true)
	got, err := r.MoveVertex(TopLeft, geo.Coordinate{Lat: 0.0005, Lon: 0})
	require.NoError(t, err)
	assertRectangle(t, got)
	assert.Equal(t, 0.0005, got.Vertices[TopRight].Lat)
	assert.Equal(t, 0.0, got.Vertices[BottomLeft].Lon)
}

func TestPolygon_MoveVertex_Free(t *testing.T) {
	p, err := NewPolygon([]geo.Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 0}}, "red", true)
	require.NoError(t, err)
	moved, err := p.MoveVertex(1, geo.Coordinate{Lat: 5, Lon: 5})
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 5, Lon: 5}, moved.Vertices[1])
	assert.Equal(t, p.Vertices[0], moved.Vertices[0])
	assert.Equal(t, p.Vertices[2], moved.Vertices[2])

	_, err = p.MoveVertex(3, geo.Coordinate{})
	assert.ErrorIs(t, err, ErrVertexIndex)
}

func TestPolygon_TranslateKeepsEdges(t *testing.T) {
	p, err := NewPolygon([]geo.Coordinate{{Lat: 48.85, Lon: 2.35}, {Lat: 48.86, Lon: 2.35}, {Lat: 48.855, Lon: 2.36}}, "red", true)
	require.NoError(t, err)
	moved := p.Translate(0.001, -0.002)
	for i := range p.Vertices {
		j := (i + 1) % len(p.Vertices)
		before := geo.DistanceMeters(p.Vertices[i], p.Vertices[j])
		after := geo.DistanceMeters(moved.Vertices[i], moved.Vertices[j])
		assert.InDelta(t, before, after, before*1e-4)
		assert.InDelta(t, p.Vertices[i].Lat+0.001, moved.Vertices[i].Lat, 1e-12)
		assert.InDelta(t, p.Vertices[i].Lon-0.002, moved.Vertices[i].Lon, 1e-12)
	}
}

func TestPolygon_InsertVertex(t *testing.T) {
	p, err := NewPolygon([]geo.Coordinate{{Lat: 1, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 0}}, "red", true)
	require.NoError(t, err)
	mid := geo.Coordinate{Lat: 0.5, Lon: 0}
	got, err := p.InsertVertex(3, mid)
	require.NoError(t, err)
	require.Len(t, got.Vertices, 5)
	assert.Equal(t, mid, got.Vertices[4])
	assert.Len(t, p.Vertices, 4)

	rect := NewRectangle(geo.Coordinate{}, geo.Coordinate{Lat: 1, Lon: 1}, "red", true)
	_, err = rect.InsertVertex(0, mid)
	assert.ErrorIs(t, err, ErrRectangleShape)
}

func TestCircle(t *testing.T) {
	c := Circle{Center: geo.Coordinate{Lat: 48.8575, Lon: 2.3514}, Radius: 50, Color: "red"}
	assert.InDelta(t, 50, geo.DistanceMeters(c.Center, c.ResizeHandle()), 0.5)
	assert.Equal(t, 80.0, c.WithRadius(80).Radius)
	assert.Equal(t, c.Center, c.WithRadius(80).Center)
	assert.Equal(t, "red", c.Tint())
	assert.False(t, math.IsNaN(c.Bounds().North()))
	assert.Equal(t, "circle", c.Kind().String())
}
