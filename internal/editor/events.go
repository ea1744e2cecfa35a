package editor

import (
	"sort"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// MoveEvent tells listeners that an overlay changed under the pointer.
// Point is the marker position or circle center; Vertices is set for
// polygons. Final marks the notification sent on pointer-up.
type MoveEvent struct {
	Kind     overlay.Kind     `json:"kind"`
	Ref      overlay.Ref      `json:"ref"`
	Point    geo.Coordinate   `json:"point"`
	Radius   float64          `json:"radius,omitempty"`
	Vertices []geo.Coordinate `json:"vertices,omitempty"`
	Final    bool             `json:"final"`
}

// DoubleClickEvent is a double-click on open map space, or on a polygon
// edge when OnEdge is set. Ref and Edge identify the edge (i, i+1).
type DoubleClickEvent struct {
	Coord  geo.Coordinate `json:"coord"`
	OnEdge bool           `json:"onEdge"`
	Ref    overlay.Ref    `json:"ref,omitempty"`
	Edge   int            `json:"edge,omitempty"`
}

// MoveListener receives move events.
type MoveListener func(MoveEvent)

// DoubleClickListener receives double-click events.
type DoubleClickListener func(DoubleClickEvent)

// listeners is an ordered set of callbacks with removal by id.
type listeners[F any] struct {
	next int
	fns  map[int]F
}

func (l *listeners[F]) add(fn F) int {
	if l.fns == nil {
		l.fns = make(map[int]F)
	}
	l.next++
	l.fns[l.next] = fn
	return l.next
}

func (l *listeners[F]) remove(id int) {
	delete(l.fns, id)
}

// snapshot returns the callbacks in registration order.
func (l *listeners[F]) snapshot() []F {
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]F, len(ids))
	for i, id := range ids {
		out[i] = l.fns[id]
	}
	return out
}

// outbox collects notifications raised while the editor lock is held.
// They are delivered after the lock is released.
type outbox struct {
	moves  []MoveEvent
	clicks []DoubleClickEvent
}

func (o *outbox) empty() bool { return len(o.moves) == 0 && len(o.clicks) == 0 }

// delivery is one queued outbox with the listeners registered when it was
// raised.
type delivery struct {
	outbox
	moveFns  []MoveListener
	clickFns []DoubleClickListener
}

func (d delivery) deliver() {
	for _, ev := range d.moves {
		metrics.MoveEvents.WithLabelValues(ev.Kind.String()).Inc()
		for _, l := range d.moveFns {
			l(ev)
		}
	}
	for _, ev := range d.clicks {
		for _, l := range d.clickFns {
			l(ev)
		}
	}
}

func moveEventFor(ref overlay.Ref, o overlay.Overlay, final bool) MoveEvent {
	ev := MoveEvent{Kind: o.Kind(), Ref: ref, Final: final}
	switch v := o.(type) {
	case overlay.Marker:
		ev.Point = v.Position
	case overlay.Circle:
		ev.Point = v.Center
		ev.Radius = v.Radius
	case overlay.Polygon:
		ev.Point = geo.Centroid(v.Vertices)
		ev.Vertices = append([]geo.Coordinate(nil), v.Vertices...)
	}
	return ev
}
