// Package scene is the in-memory shape store behind the canvas editor. It
// holds shapes, assets and the camera, runs side-effect hooks around every
// record write and publishes a diff after each outermost operation.
//
// A Scene is not safe for concurrent use; callers serialise access.
package scene

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"

	"markup/internal/domain"
	"markup/internal/fracindex"
)

var ErrShapeNotFound = errors.New("shape not found")

// BeforeChangeFunc may rewrite a proposed shape update before it is stored.
type BeforeChangeFunc func(prev, next domain.Shape) domain.Shape

// AfterCreateFunc runs once a created shape is committed.
type AfterCreateFunc func(s domain.Shape) error

// AfterChangeFunc runs once an update is committed.
type AfterChangeFunc func(prev, next domain.Shape) error

// Diff lists the records touched by one outermost operation.
type Diff struct {
	Created []domain.Shape   `json:"created,omitempty"`
	Updated []domain.Shape   `json:"updated,omitempty"`
	Deleted []domain.ShapeID `json:"deleted,omitempty"`
}

func (d Diff) Empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

type event struct {
	created bool
	prev    domain.Shape
	next    domain.Shape
}

type hookEntry[F any] struct {
	id int
	fn F
}

type Scene struct {
	shapes map[domain.ShapeID]domain.Shape
	assets map[domain.AssetID]domain.Asset

	beforeChange []hookEntry[BeforeChangeFunc]
	afterCreate  []hookEntry[AfterCreateFunc]
	afterChange  []hookEntry[AfterChangeFunc]
	listeners    []hookEntry[func(Diff)]
	resizers     []hookEntry[func(domain.Rect)]
	nextHook     int

	depth   int
	pending []event
	diff    Diff

	cam         domain.Camera
	viewport    domain.Rect
	constraints *domain.CameraConstraints
}

func New() *Scene {
	return &Scene{
		shapes:   make(map[domain.ShapeID]domain.Shape),
		assets:   make(map[domain.AssetID]domain.Asset),
		cam:      domain.Camera{Z: 1},
		viewport: domain.Rect{W: 1280, H: 800},
	}
}

// ─────────────────────────────────────────────────────────────
// Hooks
// ─────────────────────────────────────────────────────────────

func register[F any](s *Scene, list *[]hookEntry[F], fn F) func() {
	s.nextHook++
	id := s.nextHook
	*list = append(*list, hookEntry[F]{id: id, fn: fn})
	return func() {
		for i, h := range *list {
			if h.id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// RegisterBeforeChange returns a function that removes the hook.
func (s *Scene) RegisterBeforeChange(fn BeforeChangeFunc) func() {
	return register(s, &s.beforeChange, fn)
}

func (s *Scene) RegisterAfterCreate(fn AfterCreateFunc) func() {
	return register(s, &s.afterCreate, fn)
}

func (s *Scene) RegisterAfterChange(fn AfterChangeFunc) func() {
	return register(s, &s.afterChange, fn)
}

// Subscribe registers fn to receive the diff of every outermost operation
// that changed at least one shape.
func (s *Scene) Subscribe(fn func(Diff)) func() {
	return register(s, &s.listeners, fn)
}

// OnViewportResize registers fn to be called with the new screen bounds.
func (s *Scene) OnViewportResize(fn func(domain.Rect)) func() {
	return register(s, &s.resizers, fn)
}

// ─────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────

// Batch runs fn as one operation: after-hooks and listeners fire once fn
// returns, and only for the outermost batch. If fn or any after-hook fails,
// every shape write of the operation is rolled back.
func (s *Scene) Batch(fn func() error) error {
	if s.depth > 0 {
		return fn()
	}
	snapshot := maps.Clone(s.shapes)
	s.depth++
	err := fn()
	for err == nil && len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		err = s.runAfter(ev)
	}
	s.depth--
	s.pending = nil

	diff := s.diff
	s.diff = Diff{}
	if err != nil {
		s.shapes = snapshot
		return err
	}
	if !diff.Empty() {
		for _, l := range append([]hookEntry[func(Diff)](nil), s.listeners...) {
			l.fn(diff)
		}
	}
	return nil
}

func (s *Scene) runAfter(ev event) error {
	if ev.created {
		for _, h := range append([]hookEntry[AfterCreateFunc](nil), s.afterCreate...) {
			if err := h.fn(ev.next.Clone()); err != nil {
				return err
			}
		}
		return nil
	}
	for _, h := range append([]hookEntry[AfterChangeFunc](nil), s.afterChange...) {
		if err := h.fn(ev.prev.Clone(), ev.next.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) CreateAssets(assets ...domain.Asset) {
	for _, a := range assets {
		s.assets[a.ID] = a
	}
}

func (s *Scene) DeleteAssets(ids ...domain.AssetID) {
	for _, id := range ids {
		delete(s.assets, id)
	}
}

func (s *Scene) Asset(id domain.AssetID) (domain.Asset, bool) {
	a, ok := s.assets[id]
	return a, ok
}

// CreateShapes stores new shapes. Shapes without a parent go on the canvas
// page and shapes without an index are placed above their siblings.
func (s *Scene) CreateShapes(shapes ...domain.Shape) error {
	return s.Batch(func() error {
		for _, sh := range shapes {
			if _, exists := s.shapes[sh.ID]; exists {
				return fmt.Errorf("create shape %s: already exists", sh.ID)
			}
			if sh.ParentID == "" {
				sh.ParentID = domain.CanvasPageID
			}
			if sh.Index == "" {
				idx, err := s.indexAbove(sh.ParentID)
				if err != nil {
					return fmt.Errorf("create shape %s: %w", sh.ID, err)
				}
				sh.Index = idx
			} else if err := fracindex.Validate(sh.Index); err != nil {
				return fmt.Errorf("create shape %s: %w", sh.ID, err)
			}
			sh = sh.Clone()
			s.shapes[sh.ID] = sh
			s.diff.Created = append(s.diff.Created, sh)
			s.pending = append(s.pending, event{created: true, next: sh})
		}
		return nil
	})
}

// UpdateShapes applies patches. Every before-change hook sees the proposal
// and may rewrite it; updates that end up identical to the stored shape
// are dropped.
func (s *Scene) UpdateShapes(patches ...domain.ShapePatch) error {
	return s.Batch(func() error {
		for _, p := range patches {
			prev, ok := s.shapes[p.ID]
			if !ok {
				return fmt.Errorf("update shape %s: %w", p.ID, ErrShapeNotFound)
			}
			next := p.Apply(prev)
			for _, h := range s.beforeChange {
				next = h.fn(prev.Clone(), next)
			}
			next.ID, next.Type = prev.ID, prev.Type
			if next.Index != prev.Index {
				if err := fracindex.Validate(next.Index); err != nil {
					return fmt.Errorf("update shape %s: %w", p.ID, err)
				}
			}
			if reflect.DeepEqual(prev, next) {
				continue
			}
			s.shapes[next.ID] = next
			s.diff.Updated = append(s.diff.Updated, next)
			s.pending = append(s.pending, event{prev: prev, next: next})
		}
		return nil
	})
}

func (s *Scene) DeleteShapes(ids ...domain.ShapeID) error {
	return s.Batch(func() error {
		for _, id := range ids {
			if _, ok := s.shapes[id]; !ok {
				return fmt.Errorf("delete shape %s: %w", id, ErrShapeNotFound)
			}
			delete(s.shapes, id)
			s.diff.Deleted = append(s.diff.Deleted, id)
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────

func (s *Scene) Shape(id domain.ShapeID) (domain.Shape, bool) {
	sh, ok := s.shapes[id]
	if !ok {
		return domain.Shape{}, false
	}
	return sh.Clone(), true
}

func (s *Scene) CurrentPageID() string { return domain.CanvasPageID }

// SortedChildIDs returns the children of parentID in ascending index
// order, bottommost first. Equal indices fall back to id order.
func (s *Scene) SortedChildIDs(parentID string) []domain.ShapeID {
	children := s.children(parentID)
	ids := make([]domain.ShapeID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids
}

// Shapes returns every shape on the canvas page, bottommost first.
func (s *Scene) Shapes() []domain.Shape {
	children := s.children(domain.CanvasPageID)
	for i := range children {
		children[i] = children[i].Clone()
	}
	return children
}

func (s *Scene) children(parentID string) []domain.Shape {
	var out []domain.Shape
	for _, sh := range s.shapes {
		if sh.ParentID == parentID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Scene) indexAbove(parentID string) (string, error) {
	children := s.children(parentID)
	top := ""
	if len(children) > 0 {
		top = children[len(children)-1].Index
	}
	return fracindex.KeyBetween(top, "")
}
