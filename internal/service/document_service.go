package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"markup/internal/annotate"
	"markup/internal/camera"
	"markup/internal/config"
	"markup/internal/domain"
	"markup/internal/importer"
	"markup/internal/overlay"
	"markup/internal/scene"
	"markup/internal/session"
)

var (
	ErrNoDocument   = errors.New("no document open")
	ErrPinnedShape  = errors.New("page shapes cannot be deleted")
	ErrEmptyContent = errors.New("file is empty")
)

// ─────────────────────────────────────────────────────────────
// Document Service: the open document and its canvas
// ─────────────────────────────────────────────────────────────

// DocumentInfo describes the open document for the frontend.
type DocumentInfo struct {
	Name        string                   `json:"name"`
	SourcePath  string                   `json:"sourcePath,omitempty"`
	Pages       []domain.Page            `json:"pages"`
	Pinned      []domain.ShapeID         `json:"pinned"`
	Bounds      domain.Rect              `json:"bounds"`
	Camera      domain.Camera            `json:"camera"`
	Constraints domain.CameraConstraints `json:"constraints"`
	SizeClass   domain.SizeClass         `json:"sizeClass"`
}

// CameraState is the payload of camera:changed events.
type CameraState struct {
	Camera      domain.Camera            `json:"camera"`
	Constraints domain.CameraConstraints `json:"constraints"`
	SizeClass   domain.SizeClass         `json:"sizeClass"`
	Overlay     overlay.Overlay          `json:"overlay"`
}

// Snapshot is a copy of the document taken for export.
type Snapshot struct {
	Name   string
	Pages  []domain.Page
	Shapes []domain.Shape
	Assets map[domain.AssetID]domain.Asset
}

// Asset looks up an asset in the snapshot.
func (s Snapshot) Asset(id domain.AssetID) (domain.Asset, bool) {
	a, ok := s.Assets[id]
	return a, ok
}

// DocumentService owns the scene mirror and the session of the single
// open document. Calls from Wails bindings and MCP handlers are
// serialised by mu.
type DocumentService struct {
	mu      sync.Mutex
	scene   *scene.Scene
	session *session.Session
	name    string
	source  string
	cfg     config.Config
	emitter EventEmitter
	now     func() time.Time

	diffs  []scene.Diff
	onOpen []func(path string)
}

// NewDocumentService creates a DocumentService with an empty scene.
func NewDocumentService(cfg config.Config, emitter EventEmitter) *DocumentService {
	s := &DocumentService{
		scene:   scene.New(),
		cfg:     cfg,
		emitter: emitter,
		now:     time.Now,
	}
	s.scene.Subscribe(func(d scene.Diff) { s.diffs = append(s.diffs, d) })
	return s
}

// SetClock replaces the clock used by the date stamp tool.
func (s *DocumentService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnOpen registers fn to run after a document read from path is opened.
// Documents opened from memory pass an empty path.
func (s *DocumentService) OnOpen(fn func(path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, fn)
}

// ── Open / close ───────────────────────────────────────────

// InspectPDF reads the page geometry of the PDF at path and returns the
// bitmap size the frontend should rasterize each page at.
func (s *DocumentService) InspectPDF(path string) ([]importer.PageGeometry, []domain.Vec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat pdf: %w", err)
	}
	pages, err := importer.ReadPDFGeometry(f, info.Size())
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	scale := s.cfg.Import.RenderScale
	s.mu.Unlock()
	return pages, importer.RenderTargets(pages, scale), nil
}

// OpenRendered opens a document from page bitmaps rendered by the
// frontend, stacking them vertically.
func (s *DocumentService) OpenRendered(ctx context.Context, name, sourcePath string, pages []importer.RenderedPage) (DocumentInfo, error) {
	s.mu.Lock()
	spacing := s.cfg.Import.PageSpacing
	s.mu.Unlock()

	descs, err := importer.Describe(pages, spacing)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	return s.open(ctx, name, sourcePath, descs)
}

// OpenImage opens a single image as a one-page document.
func (s *DocumentService) OpenImage(ctx context.Context, name string, data []byte) (DocumentInfo, error) {
	if len(data) == 0 {
		return DocumentInfo{}, ErrEmptyContent
	}
	descs, err := importer.DescribeImage(data)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	return s.open(ctx, name, "", descs)
}

// OpenImageFile reads an image from disk and opens it.
func (s *DocumentService) OpenImageFile(ctx context.Context, path string) (DocumentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return DocumentInfo{}, ErrEmptyContent
	}
	descs, err := importer.DescribeImage(data)
	if err != nil {
		return DocumentInfo{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return s.open(ctx, filepath.Base(path), path, descs)
}

func (s *DocumentService) open(ctx context.Context, name, source string, descs []domain.PageDescriptor) (DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A document that fails validation leaves the current one open.
	if _, err := domain.NewPages(descs); err != nil {
		return DocumentInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	if err := s.closeLocked(ctx); err != nil {
		return DocumentInfo{}, err
	}

	sess, err := session.Open(s.scene, descs, s.cfg.CameraPolicy())
	if err != nil {
		s.diffs = nil
		return DocumentInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	s.session = sess
	s.name = name
	s.source = source

	info := s.infoLocked()
	log.Printf("[SESSION] %q open with %d page(s)", name, len(info.Pages))
	s.flushLocked(ctx)
	s.emitter.Emit(ctx, EventDocumentOpened, info)
	for _, fn := range s.onOpen {
		fn(source)
	}
	return info, nil
}

// Close closes the open document. Closing with nothing open is a no-op.
func (s *DocumentService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(ctx)
}

func (s *DocumentService) closeLocked(ctx context.Context) error {
	if s.session == nil {
		return nil
	}
	var annotations []domain.ShapeID
	for _, sh := range s.scene.Shapes() {
		if !s.session.IsPinned(sh.ID) {
			annotations = append(annotations, sh.ID)
		}
	}
	err := s.session.Close()
	if len(annotations) > 0 {
		if derr := s.scene.DeleteShapes(annotations...); derr != nil && err == nil {
			err = derr
		}
	}
	s.scene.ClearCameraConstraints()
	s.scene.ResetCamera()

	name := s.name
	s.session = nil
	s.name = ""
	s.source = ""
	s.flushLocked(ctx)
	s.emitter.Emit(ctx, EventDocumentClosed, name)
	if err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// ── Queries ────────────────────────────────────────────────

// Document describes the open document.
func (s *DocumentService) Document() (DocumentInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return DocumentInfo{}, ErrNoDocument
	}
	return s.infoLocked(), nil
}

func (s *DocumentService) infoLocked() DocumentInfo {
	c, _ := s.scene.CameraConstraints()
	return DocumentInfo{
		Name:        s.name,
		SourcePath:  s.source,
		Pages:       s.session.Pages(),
		Pinned:      s.session.PinnedShapeIDs(),
		Bounds:      s.session.AggregateBounds(),
		Camera:      s.scene.Camera(),
		Constraints: c,
		SizeClass:   s.session.Camera().Class(),
	}
}

// Shapes returns every shape bottom to top.
func (s *DocumentService) Shapes() []domain.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Shapes()
}

// Shape returns one shape.
func (s *DocumentService) Shape(id domain.ShapeID) (domain.Shape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.scene.Shape(id)
	if !ok {
		return domain.Shape{}, fmt.Errorf("%w: %s", scene.ErrShapeNotFound, id)
	}
	return sh, nil
}

// IsPinned reports whether id is one of the document's page shapes.
func (s *DocumentService) IsPinned(id domain.ShapeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.IsPinned(id)
}

// Overlay projects the page rectangles for the current camera.
func (s *DocumentService) Overlay() (overlay.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return overlay.Overlay{}, ErrNoDocument
	}
	return s.session.Overlay(), nil
}

// Snapshot copies the pages, shapes and assets for export.
func (s *DocumentService) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return Snapshot{}, ErrNoDocument
	}
	snap := Snapshot{
		Name:   s.name,
		Pages:  s.session.Pages(),
		Shapes: s.scene.Shapes(),
		Assets: make(map[domain.AssetID]domain.Asset),
	}
	for _, sh := range snap.Shapes {
		if id, ok := sh.Props["assetId"].(string); ok {
			if a, ok := s.scene.Asset(domain.AssetID(id)); ok {
				snap.Assets[a.ID] = a
			}
		}
	}
	return snap, nil
}

// ── Shape edits ────────────────────────────────────────────

// CreateShapes adds annotation shapes.
func (s *DocumentService) CreateShapes(ctx context.Context, shapes ...domain.Shape) error {
	return s.mutate(ctx, func() error {
		for i := range shapes {
			if shapes[i].ID == "" {
				shapes[i].ID = domain.NewShapeID()
			}
		}
		return s.scene.CreateShapes(shapes...)
	})
}

// UpdateShapes applies patches. Page shapes stay locked and bottommost
// whatever the patch asks for.
func (s *DocumentService) UpdateShapes(ctx context.Context, patches ...domain.ShapePatch) error {
	return s.mutate(ctx, func() error {
		return s.scene.UpdateShapes(patches...)
	})
}

// DeleteShapes deletes annotation shapes. The whole call is refused when
// any id is a page shape.
func (s *DocumentService) DeleteShapes(ctx context.Context, ids ...domain.ShapeID) error {
	return s.mutate(ctx, func() error {
		for _, id := range ids {
			if s.session.IsPinned(id) {
				return fmt.Errorf("%w: %s", ErrPinnedShape, id)
			}
		}
		return s.scene.DeleteShapes(ids...)
	})
}

// ClearAnnotations deletes every shape that is not a page and resets the
// camera.
func (s *DocumentService) ClearAnnotations(ctx context.Context) (int, error) {
	var n int
	err := s.mutate(ctx, func() error {
		var ids []domain.ShapeID
		for _, sh := range s.scene.Shapes() {
			if !s.session.IsPinned(sh.ID) {
				ids = append(ids, sh.ID)
			}
		}
		n = len(ids)
		if n == 0 {
			return nil
		}
		return s.scene.DeleteShapes(ids...)
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.scene.ResetCamera()
	s.emitCameraLocked(ctx)
	s.mu.Unlock()
	return n, nil
}

// PlaceDateStamp adds a text shape with today's date near the pointer.
func (s *DocumentService) PlaceDateStamp(ctx context.Context, at domain.Vec) (domain.Shape, error) {
	s.mu.Lock()
	sh := annotate.DateStamp(s.now(), s.cfg.UI.Locale, at, s.cfg.UI.DateOffset)
	s.mu.Unlock()
	if err := s.CreateShapes(ctx, sh); err != nil {
		return domain.Shape{}, err
	}
	return s.Shape(sh.ID)
}

// PlaceSticker adds a heart sticker centred on the pointer.
func (s *DocumentService) PlaceSticker(ctx context.Context, at domain.Vec) (domain.Shape, error) {
	sh := annotate.Sticker(at)
	if err := s.CreateShapes(ctx, sh); err != nil {
		return domain.Shape{}, err
	}
	return s.Shape(sh.ID)
}

func (s *DocumentService) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoDocument
	}
	err := s.scene.Batch(fn)
	s.flushLocked(ctx)
	return err
}

func (s *DocumentService) flushLocked(ctx context.Context) {
	for _, d := range s.diffs {
		s.emitter.Emit(ctx, EventSceneDiff, d)
	}
	s.diffs = nil
}

// ── Camera ─────────────────────────────────────────────────

// ViewportChanged records the editor viewport size. The camera policy is
// re-applied when the size class flips.
func (s *DocumentService) ViewportChanged(ctx context.Context, width, height float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		s.scene.SetViewportSize(width, height)
		return false, nil
	}
	before := s.session.Camera().Applied()
	s.scene.SetViewportSize(width, height)
	applied := s.session.Camera().Applied() != before
	s.emitCameraLocked(ctx)
	return applied, nil
}

// SetCamera moves the camera within the active constraints.
func (s *DocumentService) SetCamera(ctx context.Context, cam domain.Camera) (domain.Camera, error) {
	return s.cameraOp(ctx, func() { s.scene.SetCamera(cam) })
}

// ZoomIn steps the zoom up around the viewport centre.
func (s *DocumentService) ZoomIn(ctx context.Context) (domain.Camera, error) {
	return s.zoom(ctx, true)
}

// ZoomOut steps the zoom down around the viewport centre.
func (s *DocumentService) ZoomOut(ctx context.Context) (domain.Camera, error) {
	return s.zoom(ctx, false)
}

func (s *DocumentService) zoom(ctx context.Context, in bool) (domain.Camera, error) {
	return s.cameraOp(ctx, func() {
		z := camera.ZoomStep(s.scene.Camera().Z, in, s.cfg.Camera.MinZoom, s.cfg.Camera.MaxZoom)
		s.scene.ZoomTo(z)
	})
}

// ResetCamera returns the camera to the fitted initial position.
func (s *DocumentService) ResetCamera(ctx context.Context) (domain.Camera, error) {
	return s.cameraOp(ctx, s.scene.ResetCamera)
}

func (s *DocumentService) cameraOp(ctx context.Context, fn func()) (domain.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.Camera{}, ErrNoDocument
	}
	fn()
	s.emitCameraLocked(ctx)
	return s.scene.Camera(), nil
}

func (s *DocumentService) emitCameraLocked(ctx context.Context) {
	if s.session == nil {
		return
	}
	c, _ := s.scene.CameraConstraints()
	s.emitter.Emit(ctx, EventCameraChanged, CameraState{
		Camera:      s.scene.Camera(),
		Constraints: c,
		SizeClass:   s.session.Camera().Class(),
		Overlay:     s.session.Overlay(),
	})
}

// ── Configuration ──────────────────────────────────────────

// Config returns the configuration in use.
func (s *DocumentService) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ApplyConfig swaps the configuration. A changed camera policy is
// re-applied to the open document immediately.
func (s *DocumentService) ApplyConfig(ctx context.Context, cfg config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cfg
	s.cfg = cfg
	if s.session == nil || prev.CameraPolicy() == cfg.CameraPolicy() {
		return
	}
	s.session.SetCameraConfig(cfg.CameraPolicy())
	log.Printf("[CAMERA] policy updated from config")
	s.emitCameraLocked(ctx)
}

// PageShapeIDs lists the pinned page shapes, bottom to top.
func (s *DocumentService) PageShapeIDs() ([]domain.ShapeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoDocument
	}
	ids := s.session.PinnedShapeIDs()
	order := s.scene.SortedChildIDs(domain.CanvasPageID)
	slices.SortStableFunc(ids, func(a, b domain.ShapeID) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
	return ids, nil
}
