package editor

import (
	"fmt"
	"math"
	"time"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// PointerEvent is one pointer sample reported by the surface. Graphic is
// the graphic under the pointer on pointer-down, empty on open map.
// Pointer distinguishes concurrent pointers; a single mouse uses 0.
type PointerEvent struct {
	Coord   geo.Coordinate
	Graphic surface.GraphicID
	Pointer int
	At      time.Time
}

// session is one drag or resize in progress.
type session struct {
	ref      overlay.Ref
	pointer  int
	state    State
	index    int
	anchor   geo.Coordinate
	start    overlay.Overlay
	throttle Throttle
}

// MinRadius is the smallest radius a pointer resize leaves a circle with.
const MinRadius = 1.0

// recompute derives the next geometry from the pointer position.
func (s *session) recompute(o overlay.Overlay, c geo.Coordinate) (overlay.Overlay, error) {
	switch v := o.(type) {
	case overlay.Marker:
		return v.MoveTo(c), nil
	case overlay.Circle:
		if s.state == Resizing {
			return v.WithRadius(max(geo.DistanceMeters(v.Center, c), MinRadius)), nil
		}
		return v.MoveTo(c), nil
	case overlay.Polygon:
		if s.state == Resizing {
			return v.MoveVertex(s.index, c)
		}
		next := v.Translate(c.Lat-s.anchor.Lat, c.Lon-s.anchor.Lon)
		s.anchor = c
		return next, nil
	}
	return nil, fmt.Errorf("%w: cannot recompute %s", ErrKindMismatch, o.Kind())
}

// PointerDown starts a drag or resize when the pointer lands on a handle
// of a draggable overlay, or on a draggable marker. Anything else is ignored.
func (e *Editor) PointerDown(ev PointerEvent) error {
	if err := ev.Coord.Validate(); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		t, ok := e.targets[ev.Graphic]
		if !ok {
			return nil
		}
		o := e.shapes[t.ref]
		if !o.IsDraggable() {
			return nil
		}

		state, index := Idle, 0
		switch t.role {
		case surface.RoleOverlay:
			if o.Kind() == overlay.KindMarker {
				state = Dragging
			}
		case surface.RoleDragHandle:
			state = Dragging
		case surface.RoleResizeHandle:
			if p, ok := o.(overlay.Polygon); ok && t.index >= len(p.Vertices) {
				return nil
			}
			state, index = Resizing, t.index
		}
		if state == Idle {
			return nil
		}

		if cur, busy := e.sessions[t.ref]; busy {
			return fmt.Errorf("%w: overlay %d is %s", ErrBusy, t.ref, cur.state)
		}
		if held, busy := e.pointers[ev.Pointer]; busy {
			return fmt.Errorf("%w: pointer %d already holds overlay %d", ErrBusy, ev.Pointer, held)
		}

		s := &session{
			ref:      t.ref,
			pointer:  ev.Pointer,
			state:    state,
			index:    index,
			anchor:   o.Anchor(),
			start:    o,
			throttle: e.cfg.Throttle,
		}
		s.throttle.Reset(ev.At)
		e.sessions[t.ref] = s
		e.pointers[ev.Pointer] = t.ref
		e.log.Debug("interaction started", "ref", t.ref, "state", state, "index", index)
		return nil
	})
}

// PointerMove feeds a sample to the active session of the pointer. Samples
// rejected by the throttle are dropped.
func (e *Editor) PointerMove(ev PointerEvent) error {
	if err := ev.Coord.Validate(); err != nil {
		return err
	}
	return e.do(func(out *outbox) error {
		ref, ok := e.pointers[ev.Pointer]
		if !ok {
			return nil
		}
		s := e.sessions[ref]
		if !s.throttle.Allow(ev.At) {
			metrics.SamplesThrottled.Inc()
			return nil
		}
		metrics.SamplesProcessed.WithLabelValues(s.state.String()).Inc()
		return e.sampleLocked(s, ev.Coord, false, out)
	})
}

// PointerUp finalizes the active session of the pointer: one last
// recompute, handle sync, a final notification, and back to idle.
func (e *Editor) PointerUp(ev PointerEvent) error {
	if err := ev.Coord.Validate(); err != nil {
		return err
	}
	return e.do(func(out *outbox) error {
		ref, ok := e.pointers[ev.Pointer]
		if !ok {
			return nil
		}
		s := e.sessions[ref]
		defer e.endSessionLocked(s)
		return e.sampleLocked(s, ev.Coord, true, out)
	})
}

func (e *Editor) endSessionLocked(s *session) {
	delete(e.sessions, s.ref)
	delete(e.pointers, s.pointer)
	e.log.Debug("interaction ended", "ref", s.ref, "state", s.state)
}

// sampleLocked applies one processed sample. Markers are replaced and
// announced only when their position changed; the final marker
// notification compares against the position at pointer-down.
func (e *Editor) sampleLocked(s *session, c geo.Coordinate, final bool, out *outbox) error {
	cur := e.shapes[s.ref]
	next, err := s.recompute(cur, c)
	if err != nil {
		return err
	}

	if m, ok := next.(overlay.Marker); ok {
		moved := !m.Position.Equal(cur.(overlay.Marker).Position)
		if moved {
			if err := e.replaceLocked(s.ref, next); err != nil {
				return err
			}
			e.fitLocked()
		}
		announce := moved
		if final {
			announce = !m.Position.Equal(s.start.(overlay.Marker).Position)
		}
		if announce {
			out.moves = append(out.moves, moveEventFor(s.ref, next, final))
		}
		return nil
	}

	if err := e.replaceLocked(s.ref, next); err != nil {
		return err
	}
	if final {
		if err := e.syncHandlesLocked(s.ref, next); err != nil {
			return err
		}
	}
	out.moves = append(out.moves, moveEventFor(s.ref, next, final))
	e.fitLocked()
	return nil
}

// DoubleClick reports a map or polygon-edge double-click to listeners. The
// edge tolerance follows the surface zoom; when the viewport cannot be read
// the previous tolerance is kept. With InsertOnEdge a vertex is inserted
// on the hit edge of a free polygon that is not being edited.
func (e *Editor) DoubleClick(ev PointerEvent) error {
	if err := ev.Coord.Validate(); err != nil {
		return err
	}
	return e.do(func(out *outbox) error {
		if vp, err := e.surface.Viewport(); err != nil {
			metrics.ViewportFailures.Inc()
			e.log.Warn("viewport unavailable, keeping edge tolerance", "tolerance", e.tolerance, "error", err)
		} else {
			e.tolerance = geo.EdgeTolerance(vp)
		}

		click := DoubleClickEvent{Coord: ev.Coord}
		best := math.Inf(1)
		for _, ref := range e.registry.Refs() {
			p, ok := e.shapes[ref].(overlay.Polygon)
			if !ok {
				continue
			}
			edge, d := geo.NearestEdge(ev.Coord, p.Vertices)
			if d <= e.tolerance && d < best {
				best = d
				click.OnEdge, click.Ref, click.Edge = true, ref, edge
			}
		}
		out.clicks = append(out.clicks, click)

		if !click.OnEdge {
			metrics.DoubleClicks.WithLabelValues("map").Inc()
			return nil
		}
		metrics.DoubleClicks.WithLabelValues("edge").Inc()
		if !e.cfg.InsertOnEdge {
			return nil
		}
		p := e.shapes[click.Ref].(overlay.Polygon)
		if _, busy := e.sessions[click.Ref]; busy || p.Rectangle {
			return nil
		}
		return e.insertVertexLocked(click.Ref, p, click.Edge, ev.Coord)
	})
}
