// Package layer keeps page images pinned: locked and stacked below every
// other shape on the canvas page.
package layer

import (
	"fmt"
	"log"
	"slices"

	"markup/internal/domain"
	"markup/internal/fracindex"
	"markup/internal/scene"
)

// Resolve is the pre-commit interceptor. A proposal that would unlock a
// pinned shape is rewritten to keep it locked; everything else passes
// through unchanged.
func Resolve(pinned map[domain.ShapeID]bool, prior, proposed domain.Shape) domain.Shape {
	if !pinned[prior.ID] || proposed.IsLocked {
		return proposed
	}
	proposed.IsLocked = true
	return proposed
}

// Plan is the post-commit corrector. pinned is in Page-list order and
// siblings are the ids on the canvas page, bottommost first. It returns nil
// when the pinned shapes already occupy the bottom slots in Page-list order
// and are locked.
func Plan(pinned []domain.ShapeID, lookup func(domain.ShapeID) (domain.Shape, bool), siblings []domain.ShapeID) ([]domain.ShapePatch, error) {
	if len(pinned) == 0 {
		return nil, nil
	}
	shapes := make([]domain.Shape, len(pinned))
	isPinned := make(map[domain.ShapeID]bool, len(pinned))
	for i, id := range pinned {
		s, ok := lookup(id)
		if !ok {
			return nil, &domain.MissingPinnedShapeError{ID: id}
		}
		shapes[i] = s
		isPinned[id] = true
	}

	inPlace := len(siblings) >= len(pinned) && slices.Equal(siblings[:len(pinned)], pinned)

	locked := true
	if inPlace {
		var patches []domain.ShapePatch
		for _, s := range shapes {
			if !s.IsLocked {
				patches = append(patches, domain.ShapePatch{ID: s.ID, IsLocked: &locked})
			}
		}
		return patches, nil
	}

	lowest := ""
	for _, id := range siblings {
		if isPinned[id] {
			continue
		}
		if s, ok := lookup(id); ok {
			lowest = s.Index
			break
		}
	}
	keys, err := fracindex.KeysBetween("", lowest, len(shapes))
	if err != nil {
		return nil, fmt.Errorf("generate pinned keys below %q: %w", lowest, err)
	}
	patches := make([]domain.ShapePatch, len(shapes))
	for i, s := range shapes {
		patches[i] = domain.ShapePatch{ID: s.ID, Index: &keys[i], IsLocked: &locked}
	}
	return patches, nil
}

// Editor is the part of the scene the enforcer hooks into.
type Editor interface {
	CurrentPageID() string
	SortedChildIDs(parentID string) []domain.ShapeID
	Shape(id domain.ShapeID) (domain.Shape, bool)
	UpdateShapes(patches ...domain.ShapePatch) error
	RegisterBeforeChange(fn scene.BeforeChangeFunc) func()
	RegisterAfterCreate(fn scene.AfterCreateFunc) func()
	RegisterAfterChange(fn scene.AfterChangeFunc) func()
}

// Enforcer binds the interceptor and corrector to one editor for one set
// of pinned shapes.
type Enforcer struct {
	editor     Editor
	pinned     []domain.ShapeID
	pinnedSet  map[domain.ShapeID]bool
	correcting bool
	batches    int
}

func NewEnforcer(editor Editor, pinned []domain.ShapeID) *Enforcer {
	set := make(map[domain.ShapeID]bool, len(pinned))
	for _, id := range pinned {
		set[id] = true
	}
	return &Enforcer{editor: editor, pinned: slices.Clone(pinned), pinnedSet: set}
}

// Install registers the hooks and runs one correction. The returned
// function removes the hooks.
func (e *Enforcer) Install() (func(), error) {
	offs := []func(){
		e.editor.RegisterBeforeChange(func(prev, next domain.Shape) domain.Shape {
			return Resolve(e.pinnedSet, prev, next)
		}),
		e.editor.RegisterAfterCreate(func(domain.Shape) error { return e.Correct() }),
		e.editor.RegisterAfterChange(func(prev, next domain.Shape) error { return e.Correct() }),
	}
	uninstall := func() {
		for _, off := range offs {
			off()
		}
	}
	if err := e.Correct(); err != nil {
		uninstall()
		return nil, err
	}
	return uninstall, nil
}

// Correct re-asserts the pinned layering. It writes at most one batch and
// does nothing while a correction of its own is being applied.
func (e *Enforcer) Correct() error {
	if e.correcting {
		return nil
	}
	siblings := e.editor.SortedChildIDs(e.editor.CurrentPageID())
	patches, err := Plan(e.pinned, e.editor.Shape, siblings)
	if err != nil {
		log.Printf("[LAYER] correction failed: %v", err)
		return err
	}
	if len(patches) == 0 {
		return nil
	}
	e.correcting = true
	defer func() { e.correcting = false }()
	if err := e.editor.UpdateShapes(patches...); err != nil {
		return fmt.Errorf("move pinned shapes to bottom: %w", err)
	}
	e.batches++
	return nil
}

// Batches reports how many corrective batches have been written.
func (e *Enforcer) Batches() int { return e.batches }

func (e *Enforcer) IsPinned(id domain.ShapeID) bool { return e.pinnedSet[id] }
