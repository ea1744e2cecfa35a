// Package editor keeps an overlay model consistent with a rendering
// surface while an operator draws, drags and resizes overlays.
//
// Every public method takes the editor lock for its whole duration, so a
// geometry replacement (place new graphic, remove old graphic, rebind the
// ref) never interleaves with another mutation. Listeners are called after
// the lock is released, in the order their events were raised, and may
// call back into the editor.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

var (
	// ErrUnknownRef is returned for refs that were never issued or were removed.
	ErrUnknownRef = errors.New("unknown overlay ref")
	// ErrBusy is returned when an overlay or pointer is already in a drag or resize.
	ErrBusy = errors.New("overlay busy")
	// ErrInvalidGeometry is returned for shapes that cannot be drawn.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrKindMismatch is returned when an update targets the wrong overlay kind.
	ErrKindMismatch = errors.New("overlay kind mismatch")
)

// Surface is the rendering collaborator. Graphics are immutable from the
// editor's point of view except handles, which are moved with Update.
type Surface interface {
	Place(g surface.Graphic) (surface.GraphicID, error)
	Update(id surface.GraphicID, g surface.Graphic) error
	Remove(id surface.GraphicID)
	FitBounds(b geo.Bounds)
	Viewport() (geo.Bounds, error)
}

// State is the interaction state of one overlay.
type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Item is one overlay as seen from outside the editor.
type Item struct {
	Ref     overlay.Ref
	Overlay overlay.Overlay
	State   State
}

// target says which overlay, and which part of it, a graphic belongs to.
type target struct {
	ref   overlay.Ref
	role  surface.Role
	index int
}

// Editor owns the overlay registry, the palette, interaction sessions,
// handle graphics and listeners.
type Editor struct {
	surface Surface
	cfg     Config
	log     *slog.Logger

	mu        sync.Mutex
	registry  *overlay.Registry[surface.GraphicID]
	palette   *overlay.Palette
	shapes    map[overlay.Ref]overlay.Overlay
	handles   map[overlay.Ref]*handleSet
	targets   map[surface.GraphicID]target
	sessions  map[overlay.Ref]*session
	pointers  map[int]overlay.Ref
	tolerance float64
	moves     listeners[MoveListener]
	clicks    listeners[DoubleClickListener]
	queue     []delivery
	draining  bool
}

// New creates an editor drawing on s. A nil logger uses slog.Default.
func New(s Surface, cfg Config, log *slog.Logger) *Editor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "editor")
	cfg = cfg.normalize(log)
	return &Editor{
		surface:   s,
		cfg:       cfg,
		log:       log,
		registry:  overlay.NewRegistry[surface.GraphicID](),
		palette:   overlay.NewPalette(cfg.Palette, cfg.DefaultColor),
		shapes:    make(map[overlay.Ref]overlay.Overlay),
		handles:   make(map[overlay.Ref]*handleSet),
		targets:   make(map[surface.GraphicID]target),
		sessions:  make(map[overlay.Ref]*session),
		pointers:  make(map[int]overlay.Ref),
		tolerance: geo.MinEdgeTolerance,
	}
}

// Config returns the normalized configuration in use.
func (e *Editor) Config() Config {
	return e.cfg
}

// AddMoveListener registers fn and returns a function that unregisters it.
func (e *Editor) AddMoveListener(fn MoveListener) (remove func()) {
	e.mu.Lock()
	id := e.moves.add(fn)
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.moves.remove(id)
		e.mu.Unlock()
	}
}

// AddDoubleClickListener registers fn and returns a function that unregisters it.
func (e *Editor) AddDoubleClickListener(fn DoubleClickListener) (remove func()) {
	e.mu.Lock()
	id := e.clicks.add(fn)
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.clicks.remove(id)
		e.mu.Unlock()
	}
}

// do runs fn under the lock and queues what it raised. Batches are
// delivered in the order they were queued, one at a time; a caller that
// finds delivery already running leaves its batch to the running drain.
func (e *Editor) do(fn func(out *outbox) error) error {
	var out outbox
	e.mu.Lock()
	err := fn(&out)
	if !out.empty() {
		b := delivery{outbox: out}
		if len(out.moves) > 0 {
			b.moveFns = e.moves.snapshot()
		}
		if len(out.clicks) > 0 {
			b.clickFns = e.clicks.snapshot()
		}
		e.queue = append(e.queue, b)
	}
	drain := !e.draining && len(e.queue) > 0
	if drain {
		e.draining = true
	}
	e.mu.Unlock()

	if drain {
		e.drain()
	}
	return err
}

// drain delivers queued batches until the queue is empty.
func (e *Editor) drain() {
	done := false
	defer func() {
		if !done {
			// a listener panicked; let the next caller take over
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
		}
	}()
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.mu.Unlock()
			done = true
			return
		}
		b := e.queue[0]
		e.queue[0] = delivery{}
		e.queue = e.queue[1:]
		e.mu.Unlock()
		b.deliver()
	}
}

// DrawMarker adds a marker.
func (e *Editor) DrawMarker(c geo.Coordinate, draggable bool) (overlay.Ref, error) {
	if err := c.Validate(); err != nil {
		return overlay.NoRef, err
	}
	return e.draw(func(string) (overlay.Overlay, error) {
		return overlay.Marker{Position: c, Draggable: draggable}, nil
	}, false)
}

// DrawCircle adds a circle with the next palette color.
func (e *Editor) DrawCircle(center geo.Coordinate, radius float64, draggable bool) (overlay.Ref, error) {
	if err := center.Validate(); err != nil {
		return overlay.NoRef, err
	}
	if err := validRadius(radius); err != nil {
		return overlay.NoRef, err
	}
	return e.draw(func(color string) (overlay.Overlay, error) {
		return overlay.Circle{Center: center, Radius: radius, Color: color, Draggable: draggable}, nil
	}, true)
}

// DrawRectangle adds the axis-aligned rectangle spanned by two opposite corners.
func (e *Editor) DrawRectangle(a, b geo.Coordinate, draggable bool) (overlay.Ref, error) {
	if err := validRectangle(a, b); err != nil {
		return overlay.NoRef, err
	}
	return e.draw(func(color string) (overlay.Overlay, error) {
		return overlay.NewRectangle(a, b, color, draggable), nil
	}, true)
}

// DrawPolygon adds a polygon; vertices are sorted clockwise.
func (e *Editor) DrawPolygon(vertices []geo.Coordinate, draggable bool) (overlay.Ref, error) {
	if err := geo.ValidateAll(vertices); err != nil {
		return overlay.NoRef, err
	}
	return e.draw(func(color string) (overlay.Overlay, error) {
		p, err := overlay.NewPolygon(vertices, color, draggable)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
		}
		return p, nil
	}, true)
}

func (e *Editor) draw(build func(color string) (overlay.Overlay, error), colored bool) (overlay.Ref, error) {
	ref := overlay.NoRef
	err := e.do(func(*outbox) error {
		var color string
		if colored {
			color = e.palette.NextColor()
		}
		o, err := build(color)
		if err != nil {
			e.palette.PushColor(color)
			return err
		}

		next := e.registry.Peek()
		id, err := e.surface.Place(e.graphicFor(next, o))
		if err != nil {
			e.palette.PushColor(color)
			return fmt.Errorf("place %s: %w", o.Kind(), err)
		}
		ref = e.registry.Add(id)
		e.shapes[ref] = o
		e.targets[id] = target{ref: ref, role: surface.RoleOverlay}
		if err := e.placeHandlesLocked(ref, o); err != nil {
			e.removeHandlesLocked(ref)
			e.surface.Remove(id)
			delete(e.targets, id)
			delete(e.shapes, ref)
			e.registry.Remove(ref)
			e.palette.PushColor(color)
			return fmt.Errorf("place %s handles: %w", o.Kind(), err)
		}
		metrics.Overlays.WithLabelValues(o.Kind().String()).Inc()
		e.log.Debug("overlay drawn", "ref", ref, "kind", o.Kind(), "color", o.Tint())
		e.fitLocked()
		return nil
	})
	if err != nil {
		return overlay.NoRef, err
	}
	return ref, nil
}

// UpdateMarker moves a marker. Programmatic updates do not notify move listeners.
func (e *Editor) UpdateMarker(ref overlay.Ref, c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		m, err := idleShape[overlay.Marker](e, ref)
		if err != nil {
			return err
		}
		return e.commitLocked(ref, m.MoveTo(c))
	})
}

// UpdateCircle resizes the circle when center equals its current center,
// otherwise moves it to center and keeps the current radius.
func (e *Editor) UpdateCircle(ref overlay.Ref, center geo.Coordinate, radius float64) error {
	if err := center.Validate(); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		c, err := idleShape[overlay.Circle](e, ref)
		if err != nil {
			return err
		}
		if center.Equal(c.Center) {
			if err := validRadius(radius); err != nil {
				return err
			}
			return e.commitLocked(ref, c.WithRadius(radius))
		}
		return e.commitLocked(ref, c.MoveTo(center))
	})
}

// UpdateRectangle redraws a rectangle from two opposite corners.
func (e *Editor) UpdateRectangle(ref overlay.Ref, a, b geo.Coordinate) error {
	if err := validRectangle(a, b); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		p, err := idleShape[overlay.Polygon](e, ref)
		if err != nil {
			return err
		}
		if !p.Rectangle {
			return fmt.Errorf("%w: overlay %d is a polygon, not a rectangle", ErrKindMismatch, ref)
		}
		return e.commitLocked(ref, overlay.NewRectangle(a, b, p.Color, p.Draggable))
	})
}

// UpdatePolygon replaces the vertices of a free polygon.
func (e *Editor) UpdatePolygon(ref overlay.Ref, vertices []geo.Coordinate) error {
	if err := geo.ValidateAll(vertices); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		p, err := idleShape[overlay.Polygon](e, ref)
		if err != nil {
			return err
		}
		if p.Rectangle {
			return fmt.Errorf("%w: overlay %d is a rectangle", ErrKindMismatch, ref)
		}
		next, err := overlay.NewPolygon(vertices, p.Color, p.Draggable)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
		}
		return e.commitLocked(ref, next)
	})
}

// InsertVertex splits edge (edge, edge+1) of a polygon at c.
func (e *Editor) InsertVertex(ref overlay.Ref, edge int, c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return e.do(func(*outbox) error {
		p, err := idleShape[overlay.Polygon](e, ref)
		if err != nil {
			return err
		}
		return e.insertVertexLocked(ref, p, edge, c)
	})
}

func (e *Editor) insertVertexLocked(ref overlay.Ref, p overlay.Polygon, edge int, c geo.Coordinate) error {
	next, err := p.InsertVertex(edge, c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGeometry, err)
	}
	e.log.Debug("vertex inserted", "ref", ref, "edge", edge, "vertices", len(next.Vertices))
	return e.commitLocked(ref, next)
}

// RemoveOverlay deletes an overlay and its handles. An active drag or
// resize on it ends without a final notification. Its color is offered to
// the next overlay drawn.
func (e *Editor) RemoveOverlay(ref overlay.Ref) error {
	return e.do(func(*outbox) error {
		id, ok := e.registry.Remove(ref)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownRef, ref)
		}
		e.surface.Remove(id)
		delete(e.targets, id)
		e.removeHandlesLocked(ref)
		if s, ok := e.sessions[ref]; ok {
			e.endSessionLocked(s)
		}

		o := e.shapes[ref]
		delete(e.shapes, ref)
		e.palette.PushColor(o.Tint())
		metrics.Overlays.WithLabelValues(o.Kind().String()).Dec()
		e.log.Debug("overlay removed", "ref", ref, "kind", o.Kind())
		e.fitLocked()
		return nil
	})
}

// Get returns one overlay.
func (e *Editor) Get(ref overlay.Ref) (Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.shapes[ref]
	if !ok {
		return Item{}, fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	return e.itemLocked(ref, o), nil
}

// Snapshot returns every overlay ordered by ref.
func (e *Editor) Snapshot() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	refs := e.registry.Refs()
	out := make([]Item, 0, len(refs))
	for _, ref := range refs {
		out = append(out, e.itemLocked(ref, e.shapes[ref]))
	}
	return out
}

// Len is the number of live overlays.
func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

func (e *Editor) itemLocked(ref overlay.Ref, o overlay.Overlay) Item {
	it := Item{Ref: ref, Overlay: o, State: Idle}
	if p, ok := o.(overlay.Polygon); ok {
		it.Overlay = p.Clone()
	}
	if s, ok := e.sessions[ref]; ok {
		it.State = s.state
	}
	return it
}

// idleShape looks up ref as a T that is not being dragged or resized.
func idleShape[T overlay.Overlay](e *Editor, ref overlay.Ref) (T, error) {
	var zero T
	o, ok := e.shapes[ref]
	if !ok {
		return zero, fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	v, ok := o.(T)
	if !ok {
		return zero, fmt.Errorf("%w: overlay %d is a %s", ErrKindMismatch, ref, o.Kind())
	}
	if s, busy := e.sessions[ref]; busy {
		return zero, fmt.Errorf("%w: overlay %d is %s", ErrBusy, ref, s.state)
	}
	return v, nil
}

// commitLocked replaces the overlay, moves its handles and re-fits.
func (e *Editor) commitLocked(ref overlay.Ref, next overlay.Overlay) error {
	if err := e.replaceLocked(ref, next); err != nil {
		return err
	}
	if err := e.syncHandlesLocked(ref, next); err != nil {
		return err
	}
	e.fitLocked()
	return nil
}

// replaceLocked draws next, removes the old graphic and rebinds ref to the
// new one. The overlay keeps its ref and color.
func (e *Editor) replaceLocked(ref overlay.Ref, next overlay.Overlay) error {
	old, ok := e.registry.Get(ref)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRef, ref)
	}
	id, err := e.surface.Place(e.graphicFor(ref, next))
	if err != nil {
		return fmt.Errorf("place %s %d: %w", next.Kind(), ref, err)
	}
	e.surface.Remove(old)
	if _, err := e.registry.Replace(old, id); err != nil {
		e.surface.Remove(id)
		return fmt.Errorf("rebind overlay %d: %w", ref, err)
	}
	delete(e.targets, old)
	e.targets[id] = target{ref: ref, role: surface.RoleOverlay}
	e.shapes[ref] = next
	return nil
}

// fitLocked asks the surface to show every overlay, or the default origin
// when there are none.
func (e *Editor) fitLocked() {
	var b geo.Bounds
	refs := e.registry.Refs()
	if len(refs) == 0 {
		b = geo.BoundsOf(e.cfg.DefaultOrigin)
	}
	for i, ref := range refs {
		ob := e.shapes[ref].Bounds()
		if i == 0 {
			b = ob
			continue
		}
		b = b.Union(ob)
	}
	e.surface.FitBounds(b)
}

func (e *Editor) graphicFor(ref overlay.Ref, o overlay.Overlay) surface.Graphic {
	style := surface.Style{
		Stroke:       o.Tint(),
		Fill:         o.Tint(),
		FillOpacity:  e.cfg.FillOpacity,
		StrokeWeight: e.cfg.StrokeWeight,
	}
	g := surface.Graphic{Role: surface.RoleOverlay, Ref: ref, Enabled: true}
	switch v := o.(type) {
	case overlay.Marker:
		g.Kind = surface.KindPoint
		g.Coords = []geo.Coordinate{v.Position}
	case overlay.Circle:
		g.Kind = surface.KindCircle
		g.Coords = []geo.Coordinate{v.Center}
		g.Radius = v.Radius
		g.Style = style
	case overlay.Polygon:
		g.Kind = surface.KindPolygon
		g.Coords = v.Vertices
		g.Style = style
	}
	return g
}

func validRadius(r float64) error {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: radius %v must be a positive number of meters", ErrInvalidGeometry, r)
	}
	return nil
}

func validRectangle(a, b geo.Coordinate) error {
	if err := geo.ValidateAll([]geo.Coordinate{a, b}); err != nil {
		return err
	}
	if a.Lat == b.Lat || a.Lon == b.Lon {
		return fmt.Errorf("%w: rectangle corners %s and %s span no area", ErrInvalidGeometry, a, b)
	}
	return nil
}
