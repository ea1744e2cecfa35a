package overlay

import (
	"errors"
	"fmt"
	"math"

	"github.com/joeblew999/plat-overlay/internal/geo"
)

// Rectangle corner indexes. A rectangle polygon always stores its
// vertices in this order.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

var (
	// ErrTooFewVertices is returned for polygons with fewer than three vertices.
	ErrTooFewVertices = errors.New("polygon needs at least 3 vertices")
	// ErrVertexIndex is returned when a vertex or edge index is out of range.
	ErrVertexIndex = errors.New("vertex index out of range")
	// ErrRectangleShape is returned for operations a rectangle cannot accept.
	ErrRectangleShape = errors.New("rectangle must keep exactly 4 axis-aligned vertices")
)

// Polygon is a clockwise ring of vertices. Rectangle marks a 4-vertex
// polygon whose corner resizes keep opposite sides axis-aligned.
type Polygon struct {
	Vertices  []geo.Coordinate
	Color     string
	Draggable bool
	Rectangle bool
}

// NewPolygon sorts vertices clockwise around their centroid.
func NewPolygon(vertices []geo.Coordinate, color string, draggable bool) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, fmt.Errorf("%w: got %d", ErrTooFewVertices, len(vertices))
	}
	return Polygon{
		Vertices:  geo.SortClockwise(vertices),
		Color:     color,
		Draggable: draggable,
	}, nil
}

// NewRectangle builds the axis-aligned rectangle spanned by two opposite
// corners, vertices ordered [TopLeft, TopRight, BottomRight, BottomLeft].
func NewRectangle(a, b geo.Coordinate, color string, draggable bool) Polygon {
	north, south := math.Max(a.Lat, b.Lat), math.Min(a.Lat, b.Lat)
	west, east := math.Min(a.Lon, b.Lon), math.Max(a.Lon, b.Lon)
	return Polygon{
		Vertices: []geo.Coordinate{
			TopLeft:     {Lat: north, Lon: west},
			TopRight:    {Lat: north, Lon: east},
			BottomRight: {Lat: south, Lon: east},
			BottomLeft:  {Lat: south, Lon: west},
		},
		Color:     color,
		Draggable: draggable,
		Rectangle: true,
	}
}

func (p Polygon) Kind() Kind             { return KindPolygon }
func (p Polygon) Anchor() geo.Coordinate { return geo.Centroid(p.Vertices) }
func (p Polygon) IsDraggable() bool      { return p.Draggable }
func (p Polygon) Tint() string           { return p.Color }

func (p Polygon) Bounds() geo.Bounds {
	b, _ := geo.BoundsOfPoints(p.Vertices)
	return b
}

// Clone copies the vertex slice so the result shares no storage with p.
func (p Polygon) Clone() Polygon {
	p.Vertices = append([]geo.Coordinate(nil), p.Vertices...)
	return p
}

// Translate shifts every vertex by the given degrees.
func (p Polygon) Translate(dLat, dLon float64) Polygon {
	p.Vertices = geo.Translate(p.Vertices, dLat, dLon)
	return p
}

// MoveVertex places vertex i at c. For a rectangle the two adjacent
// corners follow so the shape stays axis-aligned.
func (p Polygon) MoveVertex(i int, c geo.Coordinate) (Polygon, error) {
	if i < 0 || i >= len(p.Vertices) {
		return p, fmt.Errorf("%w: %d of %d", ErrVertexIndex, i, len(p.Vertices))
	}
	p = p.Clone()
	if !p.Rectangle {
		p.Vertices[i] = c
		return p, nil
	}
	if len(p.Vertices) != 4 {
		return p, ErrRectangleShape
	}
	v := p.Vertices
	v[i] = c
	// Each corner shares its latitude with its horizontal neighbour and its
	// longitude with its vertical neighbour.
	switch i {
	case TopLeft:
		v[TopRight].Lat = c.Lat
		v[BottomLeft].Lon = c.Lon
	case TopRight:
		v[TopLeft].Lat = c.Lat
		v[BottomRight].Lon = c.Lon
	case BottomRight:
		v[BottomLeft].Lat = c.Lat
		v[TopRight].Lon = c.Lon
	case BottomLeft:
		v[BottomRight].Lat = c.Lat
		v[TopLeft].Lon = c.Lon
	}
	return p, nil
}

// InsertVertex adds c after vertex edge, splitting the edge (edge, edge+1).
func (p Polygon) InsertVertex(edge int, c geo.Coordinate) (Polygon, error) {
	if p.Rectangle {
		return p, ErrRectangleShape
	}
	if edge < 0 || edge >= len(p.Vertices) {
		return p, fmt.Errorf("%w: edge %d of %d", ErrVertexIndex, edge, len(p.Vertices))
	}
	out := make([]geo.Coordinate, 0, len(p.Vertices)+1)
	out = append(out, p.Vertices[:edge+1]...)
	out = append(out, c)
	out = append(out, p.Vertices[edge+1:]...)
	p.Vertices = out
	return p, nil
}
