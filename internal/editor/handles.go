package editor

import (
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
	"github.com/joeblew999/plat-overlay/internal/surface"
)

// handleSet is the auxiliary graphics of one draggable circle or polygon.
// Free polygons keep disabled spares after their vertex handles.
type handleSet struct {
	drag    surface.GraphicID
	points  []surface.GraphicID
	enabled int
}

// handleCoords returns where the drag handle and the resize handles sit.
// Markers are dragged by their own graphic and have no handles.
func handleCoords(o overlay.Overlay) (drag geo.Coordinate, points []geo.Coordinate, ok bool) {
	switch v := o.(type) {
	case overlay.Circle:
		return v.Center, []geo.Coordinate{v.ResizeHandle()}, true
	case overlay.Polygon:
		return geo.Centroid(v.Vertices), v.Vertices, true
	}
	return geo.Coordinate{}, nil, false
}

func handleGraphic(ref overlay.Ref, role surface.Role, index int, c geo.Coordinate, enabled bool) surface.Graphic {
	return surface.Graphic{
		Kind:    surface.KindPoint,
		Role:    role,
		Ref:     ref,
		Index:   index,
		Coords:  []geo.Coordinate{c},
		Enabled: enabled,
	}
}

func (e *Editor) placeHandlesLocked(ref overlay.Ref, o overlay.Overlay) error {
	if !o.IsDraggable() {
		return nil
	}
	if _, _, ok := handleCoords(o); !ok {
		return nil
	}
	e.handles[ref] = &handleSet{}
	return e.syncHandlesLocked(ref, o)
}

// syncHandlesLocked moves the handles of ref onto the geometry of o,
// placing new ones as needed. A polygon whose spares are used up gets a
// fresh batch of SpareHandles.
func (e *Editor) syncHandlesLocked(ref overlay.Ref, o overlay.Overlay) error {
	hs, ok := e.handles[ref]
	if !ok {
		return nil
	}
	drag, points, _ := handleCoords(o)

	dg := handleGraphic(ref, surface.RoleDragHandle, 0, drag, true)
	if hs.drag == "" {
		id, err := e.surface.Place(dg)
		if err != nil {
			return err
		}
		hs.drag = id
		e.targets[id] = target{ref: ref, role: surface.RoleDragHandle}
	} else if err := e.surface.Update(hs.drag, dg); err != nil {
		return err
	}

	total := max(len(hs.points), len(points))
	if p, poly := o.(overlay.Polygon); poly && !p.Rectangle && total == len(points) {
		total += e.cfg.SpareHandles
	}
	for i := 0; i < total; i++ {
		enabled := i < len(points)
		pos := drag
		if enabled {
			pos = points[i]
		}
		g := handleGraphic(ref, surface.RoleResizeHandle, i, pos, enabled)
		switch {
		case i >= len(hs.points):
			id, err := e.surface.Place(g)
			if err != nil {
				return err
			}
			hs.points = append(hs.points, id)
		case enabled || i < hs.enabled:
			if err := e.surface.Update(hs.points[i], g); err != nil {
				return err
			}
		}
		e.targets[hs.points[i]] = target{ref: ref, role: surface.RoleResizeHandle, index: i}
	}
	hs.enabled = len(points)
	return nil
}

func (e *Editor) removeHandlesLocked(ref overlay.Ref) {
	hs, ok := e.handles[ref]
	if !ok {
		return
	}
	for _, id := range append([]surface.GraphicID{hs.drag}, hs.points...) {
		if id == "" {
			continue
		}
		e.surface.Remove(id)
		delete(e.targets, id)
	}
	delete(e.handles, ref)
}
