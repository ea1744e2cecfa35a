package surface

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/service"
)

var (
	// ErrNotAttached is returned by Viewport before the client reported one.
	ErrNotAttached = errors.New("surface not attached: no viewport reported yet")
	// ErrUnknownGraphic is returned when updating a graphic that is not placed.
	ErrUnknownGraphic = errors.New("unknown graphic")
)

// Publisher receives the commands a Remote emits.
type Publisher interface {
	Publish(service.Event)
}

// Remote is a surface whose real rendering happens in a browser. It keeps
// the live graphic set so late subscribers can be brought up to date, and
// publishes every change as a service.Event.
type Remote struct {
	bus      Publisher
	fitDelay time.Duration

	mu       sync.Mutex
	graphics map[GraphicID]Graphic
	viewport geo.Bounds
	attached bool
	fitTimer *time.Timer
	pending  geo.Bounds
	lastFit  geo.Bounds
	hasFit   bool
	closed   bool
	newID    func() GraphicID
}

// NewRemote creates a remote surface. FitBounds calls are coalesced and
// published after fitDelay; zero publishes immediately.
func NewRemote(bus Publisher, fitDelay time.Duration) *Remote {
	return &Remote{
		bus:      bus,
		fitDelay: fitDelay,
		graphics: make(map[GraphicID]Graphic),
		newID:    func() GraphicID { return GraphicID(uuid.NewString()) },
	}
}

// Place stores g under a fresh id and announces it.
func (r *Remote) Place(g Graphic) (GraphicID, error) {
	r.mu.Lock()
	g.ID = r.newID()
	g.Coords = append(g.Coords[:0:0], g.Coords...)
	r.graphics[g.ID] = g
	r.mu.Unlock()

	r.bus.Publish(service.Event{Topic: service.TopicGraphic, Action: "place", ID: string(g.ID), Payload: g})
	return g.ID, nil
}

// Update replaces a placed graphic in place, keeping its id.
func (r *Remote) Update(id GraphicID, g Graphic) error {
	r.mu.Lock()
	if _, ok := r.graphics[id]; !ok {
		r.mu.Unlock()
		return ErrUnknownGraphic
	}
	g.ID = id
	g.Coords = append(g.Coords[:0:0], g.Coords...)
	r.graphics[id] = g
	r.mu.Unlock()

	r.bus.Publish(service.Event{Topic: service.TopicGraphic, Action: "update", ID: string(id), Payload: g})
	return nil
}

// Remove drops a graphic. Unknown ids are ignored.
func (r *Remote) Remove(id GraphicID) {
	r.mu.Lock()
	_, ok := r.graphics[id]
	delete(r.graphics, id)
	r.mu.Unlock()

	if ok {
		r.bus.Publish(service.Event{Topic: service.TopicGraphic, Action: "remove", ID: string(id)})
	}
}

// FitBounds asks the client to fit its viewport. Calls inside the delay
// window collapse into one request for the latest bounds.
func (r *Remote) FitBounds(b geo.Bounds) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.pending = b
	if r.fitDelay <= 0 {
		r.publishFitLocked()
		return
	}
	if r.fitTimer == nil {
		r.fitTimer = time.AfterFunc(r.fitDelay, r.flushFit)
	}
}

func (r *Remote) flushFit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fitTimer = nil
	if r.closed {
		return
	}
	r.publishFitLocked()
}

func (r *Remote) publishFitLocked() {
	r.lastFit, r.hasFit = r.pending, true
	r.bus.Publish(service.Event{Topic: service.TopicFit, Action: "fit", Payload: r.pending})
}

// LastFit returns the most recently published fit request.
func (r *Remote) LastFit() (geo.Bounds, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFit, r.hasFit
}

// SetViewport records the bounds the client currently shows.
func (r *Remote) SetViewport(b geo.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.viewport, r.attached = b, true
	r.mu.Unlock()
	return nil
}

// Viewport returns the last reported viewport.
func (r *Remote) Viewport() (geo.Bounds, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.attached {
		return geo.Bounds{}, ErrNotAttached
	}
	return r.viewport, nil
}

// Graphics is a snapshot of every placed graphic, overlays before handles.
func (r *Remote) Graphics() []Graphic {
	r.mu.Lock()
	out := make([]Graphic, 0, len(r.graphics))
	for _, g := range r.graphics {
		out = append(out, g)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ref != b.Ref {
			return a.Ref < b.Ref
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.Index < b.Index
	})
	return out
}

// Close stops a pending fit timer. Later FitBounds calls are dropped.
func (r *Remote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.fitTimer != nil {
		r.fitTimer.Stop()
		r.fitTimer = nil
	}
}
