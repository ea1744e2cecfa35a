package editor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

func collectMoves(e *Editor) *[]MoveEvent {
	var got []MoveEvent
	e.AddMoveListener(func(ev MoveEvent) { got = append(got, ev) })
	return &got
}

func collectClicks(e *Editor) *[]DoubleClickEvent {
	var got []DoubleClickEvent
	e.AddDoubleClickListener(func(ev DoubleClickEvent) { got = append(got, ev) })
	return &got
}

func unthrottled() Config {
	cfg := DefaultConfig()
	cfg.Throttle = Throttle{Samples: 1}
	return cfg
}

func TestPointer_CircleResizeScenario(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	moves := collectMoves(e)

	center := geo.Coordinate{Lat: 48.8575, Lon: 2.3514}
	ref, err := e.DrawCircle(center, 50, true)
	require.NoError(t, err)

	handle := graphicOf(t, r, ref, surface.RoleResizeHandle, 0)
	assert.InDelta(t, 50, geo.DistanceMeters(center, handle.Coords[0]), 0.1)

	t0 := time.Now()
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: handle.ID, Coord: handle.Coords[0], At: t0}))
	it, _ := e.Get(ref)
	assert.Equal(t, Resizing, it.State)

	target := geo.OffsetMeters(center, 0, 75)
	require.NoError(t, e.PointerUp(PointerEvent{Coord: target, At: t0.Add(10 * time.Millisecond)}))

	require.Len(t, *moves, 1)
	ev := (*moves)[0]
	assert.Equal(t, ref, ev.Ref)
	assert.Equal(t, overlay.KindCircle, ev.Kind)
	assert.InDelta(t, 75, ev.Radius, 0.1)
	assert.Equal(t, center, ev.Point)
	assert.True(t, ev.Final)

	it, _ = e.Get(ref)
	circle := it.Overlay.(overlay.Circle)
	assert.Equal(t, center, circle.Center)
	assert.InDelta(t, 75, circle.Radius, 0.1)
	assert.Equal(t, Idle, it.State)

	handle = graphicOf(t, r, ref, surface.RoleResizeHandle, 0)
	assert.InDelta(t, 75, geo.DistanceMeters(center, handle.Coords[0]), 0.1, "resize handle follows the new radius")
}

func TestPointer_ResizeOntoCenterKeepsMinRadius(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	moves := collectMoves(e)

	center := geo.Coordinate{Lat: 10, Lon: 10}
	ref, _ := e.DrawCircle(center, 50, true)
	handle := graphicOf(t, r, ref, surface.RoleResizeHandle, 0)

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: handle.ID, Coord: handle.Coords[0]}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: center}))

	it, _ := e.Get(ref)
	assert.Equal(t, MinRadius, it.Overlay.(overlay.Circle).Radius)
	require.Len(t, *moves, 1)
	assert.Equal(t, MinRadius, (*moves)[0].Radius)
	assert.True(t, (*moves)[0].Final)
}

func TestPointer_FinalMoveDeliveredLast(t *testing.T) {
	e, r := newTestEditor(t, unthrottled())
	start := geo.Coordinate{Lat: 1, Lon: 1}
	ref, _ := e.DrawCircle(start, 50, true)
	drag := graphicOf(t, r, ref, surface.RoleDragHandle, 0).ID

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var mu sync.Mutex
	var got []MoveEvent
	e.AddMoveListener(func(ev MoveEvent) {
		once.Do(func() {
			close(entered)
			<-release
		})
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	t0 := time.Unix(1000, 0)
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: drag, Coord: start, At: t0}))

	moved := make(chan error, 1)
	go func() {
		moved <- e.PointerMove(PointerEvent{Coord: geo.Coordinate{Lat: 1.001, Lon: 1}, At: t0.Add(50 * time.Millisecond)})
	}()
	<-entered
	// the move listener is still busy with the live sample
	require.NoError(t, e.PointerUp(PointerEvent{Coord: geo.Coordinate{Lat: 1.002, Lon: 1}, At: t0.Add(100 * time.Millisecond)}))
	close(release)
	require.NoError(t, <-moved)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.False(t, got[0].Final)
	assert.InDelta(t, 1.001, got[0].Point.Lat, 1e-12)
	assert.True(t, got[1].Final)
	assert.InDelta(t, 1.002, got[1].Point.Lat, 1e-12)
}

func TestPointer_CircleDrag(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	moves := collectMoves(e)

	center := geo.Coordinate{Lat: 10, Lon: 10}
	ref, _ := e.DrawCircle(center, 50, true)
	drag := graphicOf(t, r, ref, surface.RoleDragHandle, 0)
	assert.Equal(t, center, drag.Coords[0])

	moved := geo.Coordinate{Lat: 10.001, Lon: 10.002}
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: drag.ID, Coord: center}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: moved}))

	it, _ := e.Get(ref)
	circle := it.Overlay.(overlay.Circle)
	assert.Equal(t, moved, circle.Center)
	assert.Equal(t, 50.0, circle.Radius)

	assert.Equal(t, moved, graphicOf(t, r, ref, surface.RoleDragHandle, 0).Coords[0])
	assert.Equal(t, circle.ResizeHandle(), graphicOf(t, r, ref, surface.RoleResizeHandle, 0).Coords[0])
	require.Len(t, *moves, 1)
	assert.Equal(t, moved, (*moves)[0].Point)
}

func TestPointer_ThrottledSamples(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	moves := collectMoves(e)

	ref, _ := e.DrawCircle(geo.Coordinate{}, 50, true)
	drag := graphicOf(t, r, ref, surface.RoleDragHandle, 0)

	t0 := time.Unix(1000, 0)
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: drag.ID, At: t0}))
	for i := 1; i <= 8; i++ {
		c := geo.Coordinate{Lat: float64(i) * 0.0001}
		require.NoError(t, e.PointerMove(PointerEvent{Coord: c, At: t0.Add(time.Duration(i) * time.Millisecond)}))
	}
	it, _ := e.Get(ref)
	assert.Equal(t, Dragging, it.State)

	// a slow sample passes on the interval alone
	require.NoError(t, e.PointerMove(PointerEvent{Coord: geo.Coordinate{Lat: 0.001}, At: t0.Add(60 * time.Millisecond)}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: geo.Coordinate{Lat: 0.002}, At: t0.Add(61 * time.Millisecond)}))

	require.Len(t, *moves, 4)
	assert.InDelta(t, 0.0004, (*moves)[0].Point.Lat, 1e-12)
	assert.InDelta(t, 0.0008, (*moves)[1].Point.Lat, 1e-12)
	assert.InDelta(t, 0.001, (*moves)[2].Point.Lat, 1e-12)
	for _, ev := range (*moves)[:3] {
		assert.False(t, ev.Final)
	}
	assert.True(t, (*moves)[3].Final)
	assert.Equal(t, 0.002, (*moves)[3].Point.Lat)
}

func TestPointer_RectangleCornerScenario(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	moves := collectMoves(e)

	ref, err := e.DrawRectangle(geo.Coordinate{}, geo.Coordinate{Lat: 0.001, Lon: 0.001}, true)
	require.NoError(t, err)

	tl := graphicOf(t, r, ref, surface.RoleResizeHandle, overlay.TopLeft)
	assert.Equal(t, geo.Coordinate{Lat: 0.001, Lon: 0}, tl.Coords[0])

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: tl.ID, Coord: tl.Coords[0]}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: geo.Coordinate{Lat: 0.0005, Lon: 0}}))

	it, _ := e.Get(ref)
	p := it.Overlay.(overlay.Polygon)
	assert.True(t, p.Rectangle)
	assert.Equal(t, []geo.Coordinate{
		{Lat: 0.0005, Lon: 0},
		{Lat: 0.0005, Lon: 0.001},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0},
	}, p.Vertices)

	require.Len(t, *moves, 1)
	assert.Equal(t, p.Vertices, (*moves)[0].Vertices)
	assert.Equal(t, p.Vertices[overlay.TopRight], graphicOf(t, r, ref, surface.RoleResizeHandle, overlay.TopRight).Coords[0])
	total, _ := countGraphics(r, ref, surface.RoleResizeHandle)
	assert.Equal(t, 4, total, "rectangles keep no spare handles")
}

func TestPointer_RectangleStaysRectangular(t *testing.T) {
	target := geo.Coordinate{Lat: 0.0003, Lon: 0.0007}
	for _, corner := range []int{overlay.TopLeft, overlay.TopRight, overlay.BottomRight, overlay.BottomLeft} {
		e, r := newTestEditor(t, unthrottled())
		ref, _ := e.DrawRectangle(geo.Coordinate{}, geo.Coordinate{Lat: 0.001, Lon: 0.001}, true)
		h := graphicOf(t, r, ref, surface.RoleResizeHandle, corner)

		require.NoError(t, e.PointerDown(PointerEvent{Graphic: h.ID, Coord: h.Coords[0]}))
		require.NoError(t, e.PointerMove(PointerEvent{Coord: geo.Coordinate{Lat: 0.0002, Lon: 0.0004}}))
		require.NoError(t, e.PointerUp(PointerEvent{Coord: target}))

		it, _ := e.Get(ref)
		v := it.Overlay.(overlay.Polygon).Vertices
		require.Len(t, v, 4)
		assert.Equal(t, target, v[corner], "corner %d", corner)
		assert.Equal(t, v[overlay.TopLeft].Lat, v[overlay.TopRight].Lat, "corner %d", corner)
		assert.Equal(t, v[overlay.BottomLeft].Lat, v[overlay.BottomRight].Lat, "corner %d", corner)
		assert.Equal(t, v[overlay.TopLeft].Lon, v[overlay.BottomLeft].Lon, "corner %d", corner)
		assert.Equal(t, v[overlay.TopRight].Lon, v[overlay.BottomRight].Lon, "corner %d", corner)
	}
}

func TestPointer_PolygonDragKeepsShape(t *testing.T) {
	e, r := newTestEditor(t, unthrottled())
	moves := collectMoves(e)

	ref, err := e.DrawPolygon([]geo.Coordinate{{}, {Lat: 0.001}, {Lon: 0.002}}, true)
	require.NoError(t, err)
	it, _ := e.Get(ref)
	before := it.Overlay.(overlay.Polygon).Vertices

	drag := graphicOf(t, r, ref, surface.RoleDragHandle, 0)
	c := drag.Coords[0]
	assert.Equal(t, geo.Centroid(before), c)

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: drag.ID, Coord: c}))
	require.NoError(t, e.PointerMove(PointerEvent{Coord: geo.Coordinate{Lat: c.Lat + 0.0002, Lon: c.Lon + 0.0003}}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: geo.Coordinate{Lat: c.Lat + 0.0005, Lon: c.Lon + 0.0005}}))

	it, _ = e.Get(ref)
	after := it.Overlay.(overlay.Polygon).Vertices
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i].Lat+0.0005, after[i].Lat, 1e-12)
		assert.InDelta(t, before[i].Lon+0.0005, after[i].Lon, 1e-12)
		j := (i + 1) % len(before)
		assert.InDelta(t, geo.DistanceMeters(before[i], before[j]), geo.DistanceMeters(after[i], after[j]), 1e-3)
	}

	require.Len(t, *moves, 2)
	assert.False(t, (*moves)[0].Final)
	assert.True(t, (*moves)[1].Final)

	centroid := graphicOf(t, r, ref, surface.RoleDragHandle, 0).Coords[0]
	assert.InDelta(t, c.Lat+0.0005, centroid.Lat, 1e-12)
	assert.InDelta(t, c.Lon+0.0005, centroid.Lon, 1e-12)
}

func TestPointer_PolygonVertexResize(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	ref, _ := e.DrawPolygon([]geo.Coordinate{{}, {Lat: 0.001}, {Lon: 0.002}}, true)
	it, _ := e.Get(ref)
	before := it.Overlay.(overlay.Polygon).Vertices

	h := graphicOf(t, r, ref, surface.RoleResizeHandle, 1)
	moved := geo.Coordinate{Lat: 0.003, Lon: 0.003}
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: h.ID, Coord: h.Coords[0]}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: moved}))

	it, _ = e.Get(ref)
	after := it.Overlay.(overlay.Polygon).Vertices
	assert.Equal(t, before[0], after[0])
	assert.Equal(t, moved, after[1])
	assert.Equal(t, before[2], after[2])
}

func TestPointer_MarkerAnnouncesOnlyChanges(t *testing.T) {
	e, r := newTestEditor(t, unthrottled())
	moves := collectMoves(e)

	start := geo.Coordinate{Lat: 1, Lon: 1}
	ref, _ := e.DrawMarker(start, true)
	g := graphicOf(t, r, ref, surface.RoleOverlay, 0)

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: g.ID, Coord: start}))
	require.NoError(t, e.PointerMove(PointerEvent{Coord: start}))
	assert.Empty(t, *moves, "no change, no event")

	next := geo.Coordinate{Lat: 1.5, Lon: 1}
	require.NoError(t, e.PointerMove(PointerEvent{Coord: next}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: next}))
	require.Len(t, *moves, 2)
	assert.Equal(t, MoveEvent{Kind: overlay.KindMarker, Ref: ref, Point: next}, (*moves)[0])
	assert.Equal(t, MoveEvent{Kind: overlay.KindMarker, Ref: ref, Point: next, Final: true}, (*moves)[1])

	// a press and release in place says nothing
	g = graphicOf(t, r, ref, surface.RoleOverlay, 0)
	require.NoError(t, e.PointerDown(PointerEvent{Graphic: g.ID, Coord: next}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: next}))
	assert.Len(t, *moves, 2)
}

func TestPointer_IgnoredTargets(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	fixed, _ := e.DrawMarker(geo.Coordinate{}, false)
	circle, _ := e.DrawCircle(geo.Coordinate{}, 10, true)
	poly, _ := e.DrawPolygon([]geo.Coordinate{{}, {Lat: 0.001}, {Lon: 0.002}}, true)

	for _, g := range []surface.GraphicID{
		"",
		"not-a-graphic",
		graphicOf(t, r, fixed, surface.RoleOverlay, 0).ID,
		graphicOf(t, r, circle, surface.RoleOverlay, 0).ID,
		graphicOf(t, r, poly, surface.RoleResizeHandle, 3).ID, // disabled spare
	} {
		require.NoError(t, e.PointerDown(PointerEvent{Graphic: g}))
	}
	for _, it := range e.Snapshot() {
		assert.Equal(t, Idle, it.State, "overlay %d", it.Ref)
	}
	assert.NoError(t, e.PointerMove(PointerEvent{}))
	assert.NoError(t, e.PointerUp(PointerEvent{}))
}

func TestPointer_BusyGuards(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	a, _ := e.DrawCircle(geo.Coordinate{}, 10, true)
	b, _ := e.DrawCircle(geo.Coordinate{Lat: 1}, 10, true)
	dragA := graphicOf(t, r, a, surface.RoleDragHandle, 0).ID
	resizeA := graphicOf(t, r, a, surface.RoleResizeHandle, 0).ID
	dragB := graphicOf(t, r, b, surface.RoleDragHandle, 0).ID

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: dragA, Pointer: 1}))
	assert.ErrorIs(t, e.PointerDown(PointerEvent{Graphic: resizeA, Pointer: 2}), ErrBusy, "drag and resize are exclusive")
	assert.ErrorIs(t, e.PointerDown(PointerEvent{Graphic: dragB, Pointer: 1}), ErrBusy, "one overlay per pointer")
	assert.ErrorIs(t, e.UpdateCircle(a, geo.Coordinate{Lat: 5}, 10), ErrBusy)

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: dragB, Pointer: 2}))
	require.NoError(t, e.PointerUp(PointerEvent{Pointer: 2, Coord: geo.Coordinate{Lat: 2}}))
	require.NoError(t, e.PointerUp(PointerEvent{Pointer: 1, Coord: geo.Coordinate{Lat: 3}}))

	assert.NoError(t, e.UpdateCircle(a, geo.Coordinate{Lat: 5}, 10))
	it, _ := e.Get(b)
	assert.Equal(t, geo.Coordinate{Lat: 2}, it.Overlay.Anchor())
}

func TestPointer_RemoveDuringDrag(t *testing.T) {
	e, r := newTestEditor(t, unthrottled())
	moves := collectMoves(e)
	ref, _ := e.DrawCircle(geo.Coordinate{}, 10, true)
	drag := graphicOf(t, r, ref, surface.RoleDragHandle, 0).ID

	require.NoError(t, e.PointerDown(PointerEvent{Graphic: drag}))
	require.NoError(t, e.RemoveOverlay(ref))
	require.NoError(t, e.PointerMove(PointerEvent{Coord: geo.Coordinate{Lat: 1}}))
	require.NoError(t, e.PointerUp(PointerEvent{Coord: geo.Coordinate{Lat: 1}}))

	assert.Empty(t, *moves)
	assert.Empty(t, r.Graphics())
	assert.Zero(t, e.Len())
}

func squarePolygon(t *testing.T, e *Editor) overlay.Ref {
	t.Helper()
	ref, err := e.DrawPolygon([]geo.Coordinate{{}, {Lon: 0.001}, {Lat: 0.001, Lon: 0.001}, {Lat: 0.001}}, true)
	require.NoError(t, err)
	return ref
}

func TestDoubleClick_EdgeOrMap(t *testing.T) {
	e, r := newTestEditor(t, DefaultConfig())
	clicks := collectClicks(e)
	ref := squarePolygon(t, e)

	onEdge := geo.Coordinate{Lat: 0.0005, Lon: 0.001}
	near := geo.Coordinate{Lat: 0.0005, Lon: 0.00102}
	inside := geo.Coordinate{Lat: 0.0005, Lon: 0.0005}

	// no viewport yet: the 3 m floor applies
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: onEdge}))
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: near}))
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: inside}))
	require.Len(t, *clicks, 3)
	assert.Equal(t, DoubleClickEvent{Coord: onEdge, OnEdge: true, Ref: ref, Edge: 1}, (*clicks)[0])
	assert.Equal(t, DoubleClickEvent{Coord: near, OnEdge: true, Ref: ref, Edge: 1}, (*clicks)[1])
	assert.Equal(t, DoubleClickEvent{Coord: inside}, (*clicks)[2])

	// zoomed out to a degree across, 55 m from an edge is close enough
	require.NoError(t, r.SetViewport(geo.Bounds{
		TopLeft:     geo.Coordinate{Lat: 1, Lon: 0},
		BottomRight: geo.Coordinate{Lat: 0, Lon: 1},
	}))
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: inside}))
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: geo.Coordinate{Lat: 5, Lon: 5}}))
	require.Len(t, *clicks, 5)
	assert.True(t, (*clicks)[3].OnEdge)
	assert.Equal(t, ref, (*clicks)[3].Ref)
	assert.False(t, (*clicks)[4].OnEdge)

	it, _ := e.Get(ref)
	assert.Len(t, it.Overlay.(overlay.Polygon).Vertices, 4, "insertion is off by default")
}

func TestDoubleClick_InsertsVertex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InsertOnEdge = true
	e, r := newTestEditor(t, cfg)
	ref := squarePolygon(t, e)
	rect, _ := e.DrawRectangle(geo.Coordinate{Lat: 1}, geo.Coordinate{Lat: 1.001, Lon: 0.001}, true)

	total, enabled := countGraphics(r, ref, surface.RoleResizeHandle)
	assert.Equal(t, 6, total)
	assert.Equal(t, 4, enabled)

	right := geo.Coordinate{Lat: 0.0005, Lon: 0.001}
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: right}))
	it, _ := e.Get(ref)
	v := it.Overlay.(overlay.Polygon).Vertices
	require.Len(t, v, 5)
	assert.Equal(t, right, v[2])
	assert.Equal(t, right, graphicOf(t, r, ref, surface.RoleResizeHandle, 2).Coords[0])
	total, enabled = countGraphics(r, ref, surface.RoleResizeHandle)
	assert.Equal(t, 6, total, "a spare handle was used")
	assert.Equal(t, 5, enabled)

	top := geo.Coordinate{Lat: 0.001, Lon: 0.0005}
	require.NoError(t, e.DoubleClick(PointerEvent{Coord: top}))
	total, enabled = countGraphics(r, ref, surface.RoleResizeHandle)
	assert.Equal(t, 8, total, "spares are re-allocated")
	assert.Equal(t, 6, enabled)

	require.NoError(t, e.DoubleClick(PointerEvent{Coord: geo.Coordinate{Lat: 1.0005, Lon: 0.001}}))
	it, _ = e.Get(rect)
	assert.Len(t, it.Overlay.(overlay.Polygon).Vertices, 4, "rectangles never gain vertices")
}
