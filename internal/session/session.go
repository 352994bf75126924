// Package session ties a document's pages to an editor: it places the page
// images, keeps them pinned and keeps the camera constrained to them.
package session

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"markup/internal/camera"
	"markup/internal/domain"
	"markup/internal/layer"
	"markup/internal/overlay"
)

// Editor is everything a session needs from the canvas editor.
type Editor interface {
	layer.Editor
	camera.Editor
	Batch(fn func() error) error
	CreateAssets(assets ...domain.Asset)
	DeleteAssets(ids ...domain.AssetID)
	CreateShapes(shapes ...domain.Shape) error
	DeleteShapes(ids ...domain.ShapeID) error
	ViewportPageBounds() domain.Rect
	PageToViewport(p domain.Vec) domain.Vec
	OnViewportResize(fn func(domain.Rect)) func()
}

// Session is the context for one open document. The page list, pinned set
// and aggregate bounds are fixed for its lifetime.
type Session struct {
	editor   Editor
	pages    []domain.Page
	pinned   []domain.ShapeID
	bounds   domain.Rect
	enforcer *layer.Enforcer
	camera   *camera.Controller
	offs     []func()
}

// Open validates descriptors, places one locked image shape per page,
// installs the layering hooks and mounts the camera policy. Nothing is
// written to the editor when validation fails.
func Open(editor Editor, descriptors []domain.PageDescriptor, cfg camera.Config) (*Session, error) {
	pages, err := domain.NewPages(descriptors)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	s := &Session{
		editor: editor,
		pages:  pages,
		pinned: domain.ShapeIDs(pages),
		bounds: domain.Aggregate(pages),
	}

	assets := make([]domain.Asset, len(pages))
	shapes := make([]domain.Shape, len(pages))
	for i, p := range pages {
		d := descriptors[i]
		assets[i] = domain.Asset{
			ID:       p.AssetID,
			Type:     "image",
			Name:     fmt.Sprintf("page-%d", i+1),
			W:        float64(d.Width),
			H:        float64(d.Height),
			MimeType: mimeOf(p.Source),
			Src:      p.Source,
		}
		shapes[i] = domain.Shape{
			ID:       p.ShapeID,
			Type:     domain.ShapeTypeImage,
			ParentID: domain.CanvasPageID,
			X:        p.Bounds.X,
			Y:        p.Bounds.Y,
			W:        p.Bounds.W,
			H:        p.Bounds.H,
			IsLocked: true,
			Props:    map[string]any{"assetId": string(p.AssetID)},
		}
	}
	editor.CreateAssets(assets...)
	if err := editor.Batch(func() error { return editor.CreateShapes(shapes...) }); err != nil {
		editor.DeleteAssets(assetIDs(pages)...)
		return nil, fmt.Errorf("place pages: %w", err)
	}

	s.enforcer = layer.NewEnforcer(editor, s.pinned)
	uninstall, err := s.enforcer.Install()
	if err != nil {
		s.removePages()
		return nil, fmt.Errorf("pin pages: %w", err)
	}
	s.offs = append(s.offs, uninstall)

	s.camera = camera.NewController(editor, cfg)
	s.camera.Mount(s.bounds)
	s.offs = append(s.offs, editor.OnViewportResize(func(r domain.Rect) {
		s.camera.ViewportChanged(r.W)
	}))

	log.Printf("[SESSION] opened %d page(s), bounds %.0fx%.0f", len(pages), s.bounds.W, s.bounds.H)
	return s, nil
}

func (s *Session) Pages() []domain.Page             { return slices.Clone(s.pages) }
func (s *Session) PinnedShapeIDs() []domain.ShapeID { return slices.Clone(s.pinned) }
func (s *Session) AggregateBounds() domain.Rect     { return s.bounds }
func (s *Session) IsPinned(id domain.ShapeID) bool  { return s.enforcer.IsPinned(id) }
func (s *Session) Enforcer() *layer.Enforcer        { return s.enforcer }
func (s *Session) Camera() *camera.Controller       { return s.camera }

// Overlay projects the pages for the editor's current camera.
func (s *Session) Overlay() overlay.Overlay {
	return overlay.Project(s.pages, s.editor.ViewportScreenBounds(), s.editor.ViewportPageBounds(), s.editor.PageToViewport)
}

// ViewportChanged feeds a viewport width to the camera controller and
// reports whether the policy was re-applied.
func (s *Session) ViewportChanged(width float64) bool {
	return s.camera.ViewportChanged(width)
}

// SetCameraConfig re-applies the camera policy with new constants.
func (s *Session) SetCameraConfig(cfg camera.Config) {
	s.camera.SetConfig(cfg)
}

// Close removes the hooks and the page shapes and assets.
func (s *Session) Close() error {
	for i := len(s.offs) - 1; i >= 0; i-- {
		s.offs[i]()
	}
	s.offs = nil
	return s.removePages()
}

func (s *Session) removePages() error {
	var present []domain.ShapeID
	for _, id := range s.pinned {
		if _, ok := s.editor.Shape(id); ok {
			present = append(present, id)
		}
	}
	err := s.editor.DeleteShapes(present...)
	s.editor.DeleteAssets(assetIDs(s.pages)...)
	if err != nil {
		return fmt.Errorf("remove pages: %w", err)
	}
	return nil
}

func assetIDs(pages []domain.Page) []domain.AssetID {
	ids := make([]domain.AssetID, len(pages))
	for i, p := range pages {
		ids[i] = p.AssetID
	}
	return ids
}

func mimeOf(src string) string {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "image/png"
	}
	mime, _, _ := strings.Cut(rest, ";")
	mime, _, _ = strings.Cut(mime, ",")
	if mime == "" {
		return "image/png"
	}
	return mime
}
