// Package editor streams the overlay editor to the browser over Datastar
// SSE and feeds pointer input back into it.
package editor

import (
	"strconv"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/service"
)

// Bridge publishes editor move and double-click notifications on bus and
// returns a function that detaches it.
func Bridge(ed *editor.Editor, bus *service.EventBus) (stop func()) {
	stopMoves := ed.AddMoveListener(func(ev editor.MoveEvent) {
		bus.Publish(service.Event{
			Topic:   service.TopicMoved,
			Action:  ev.Kind.String(),
			ID:      strconv.Itoa(int(ev.Ref)),
			Payload: ev,
		})
	})
	stopClicks := ed.AddDoubleClickListener(func(ev editor.DoubleClickEvent) {
		action := "map"
		if ev.OnEdge {
			action = "edge"
		}
		bus.Publish(service.Event{Topic: service.TopicDoubleClick, Action: action, Payload: ev})
	})
	return func() {
		stopMoves()
		stopClicks()
	}
}
