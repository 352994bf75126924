package domain

import (
	"errors"
	"fmt"
)

// ErrNoPages is returned when a document is opened without any page.
var ErrNoPages = errors.New("document has no pages")

// InvalidPageError reports malformed page geometry found while building the
// page list. Opening the document is aborted before any shape exists.
type InvalidPageError struct {
	Index  int
	Bounds Rect
}

func (e *InvalidPageError) Error() string {
	return fmt.Sprintf("invalid page %d: bounds %.2fx%.2f at (%.2f, %.2f) must have positive size",
		e.Index, e.Bounds.W, e.Bounds.H, e.Bounds.X, e.Bounds.Y)
}

// MissingPinnedShapeError means a page shape disappeared from the scene.
// Page shapes are never user-deletable, so this is treated as corrupted
// external state and surfaced to the host instead of being repaired.
type MissingPinnedShapeError struct {
	ID ShapeID
}

func (e *MissingPinnedShapeError) Error() string {
	return fmt.Sprintf("pinned page shape %s is missing from the scene", e.ID)
}
