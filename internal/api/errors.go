package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/editor"
	"github.com/joeblew999/plat-overlay/internal/geo"
	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// EditorError maps editor, overlay and geo errors to HTTP status errors.
func EditorError(err error) error {
	switch {
	case errors.Is(err, editor.ErrUnknownRef), errors.Is(err, overlay.ErrHandleNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, editor.ErrBusy), errors.Is(err, editor.ErrKindMismatch):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, geo.ErrParseCoordinate),
		errors.Is(err, geo.ErrInvalidBounds),
		errors.Is(err, editor.ErrInvalidGeometry),
		errors.Is(err, overlay.ErrTooFewVertices),
		errors.Is(err, overlay.ErrVertexIndex),
		errors.Is(err, overlay.ErrRectangleShape):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("editor failure", err)
}
