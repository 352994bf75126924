package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"markup/internal/domain"
	"markup/internal/importer"
	"markup/internal/overlay"
	"markup/internal/service"
)

// PDFImport describes a PDF the frontend must rasterize before calling
// OpenRenderedPages.
type PDFImport struct {
	Path    string                  `json:"path"`
	Name    string                  `json:"name"`
	Pages   []importer.PageGeometry `json:"pages"`
	Targets []domain.Vec            `json:"targets"`
}

// OpenResult is returned by OpenDocument. Exactly one of PDF and Document is
// set; both are nil when the dialog was cancelled.
type OpenResult struct {
	PDF      *PDFImport            `json:"pdf,omitempty"`
	Document *service.DocumentInfo `json:"document,omitempty"`
}

// ============================================================
// Document bindings
// ============================================================

// OpenDocument shows a file dialog. Images are opened directly; PDFs are
// inspected and handed back for rasterization.
func (a *App) OpenDocument() (OpenResult, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Open document",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Documents", Pattern: "*.pdf;*.png;*.jpg;*.jpeg;*.gif"},
		},
	})
	if err != nil || path == "" {
		return OpenResult{}, err
	}
	return a.OpenPath(path)
}

// OpenPath opens the document at path, as OpenDocument does after the dialog.
func (a *App) OpenPath(path string) (OpenResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, targets, err := a.docs.InspectPDF(path)
		if err != nil {
			return OpenResult{}, err
		}
		return OpenResult{PDF: &PDFImport{
			Path:    path,
			Name:    filepath.Base(path),
			Pages:   pages,
			Targets: targets,
		}}, nil
	}
	info, err := a.docs.OpenImageFile(a.ctx, path)
	if err != nil {
		return OpenResult{}, err
	}
	return OpenResult{Document: &info}, nil
}

// OpenRenderedPages opens a PDF from the bitmaps the frontend rendered.
func (a *App) OpenRenderedPages(path string, pages []importer.RenderedPage) (service.DocumentInfo, error) {
	return a.docs.OpenRendered(a.ctx, filepath.Base(path), path, pages)
}

// ReadSourceFile returns the PDF bytes for the frontend renderer.
func (a *App) ReadSourceFile(path string) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("read source: %s is not a pdf", path)
	}
	return os.ReadFile(path)
}

// GetDocument returns the open document.
func (a *App) GetDocument() (service.DocumentInfo, error) {
	return a.docs.Document()
}

// CloseDocument closes the open document.
func (a *App) CloseDocument() error {
	if err := a.docs.Close(a.ctx); err != nil {
		return err
	}
	return a.watcher.Watch(a.ctx, "")
}

// ============================================================
// Shape bindings
// ============================================================

// GetShapes returns every shape in paint order.
func (a *App) GetShapes() []domain.Shape {
	return a.docs.Shapes()
}

// CreateShapes adds annotations.
func (a *App) CreateShapes(shapes []domain.Shape) error {
	return a.docs.CreateShapes(a.ctx, shapes...)
}

// UpdateShapes applies partial updates.
func (a *App) UpdateShapes(patches []domain.ShapePatch) error {
	return a.docs.UpdateShapes(a.ctx, patches...)
}

// DeleteShapes removes annotations. Pages cannot be deleted.
func (a *App) DeleteShapes(ids []domain.ShapeID) error {
	return a.docs.DeleteShapes(a.ctx, ids...)
}

// ClearAnnotations removes every annotation, keeping the pages.
func (a *App) ClearAnnotations() (int, error) {
	return a.docs.ClearAnnotations(a.ctx)
}

// PlaceDateStamp drops today's date at a canvas point.
func (a *App) PlaceDateStamp(x, y float64) (domain.Shape, error) {
	return a.docs.PlaceDateStamp(a.ctx, domain.Vec{X: x, Y: y})
}

// PlaceSticker drops a sticker at a canvas point.
func (a *App) PlaceSticker(x, y float64) (domain.Shape, error) {
	return a.docs.PlaceSticker(a.ctx, domain.Vec{X: x, Y: y})
}

// ============================================================
// Camera bindings
// ============================================================

// ViewportChanged reports a new editor viewport size. It returns true when
// the camera constraints were re-applied.
func (a *App) ViewportChanged(width, height float64) (bool, error) {
	return a.docs.ViewportChanged(a.ctx, width, height)
}

// SetCamera moves the camera, clamped to the document.
func (a *App) SetCamera(cam domain.Camera) (domain.Camera, error) {
	return a.docs.SetCamera(a.ctx, cam)
}

func (a *App) ZoomIn() (domain.Camera, error) {
	return a.docs.ZoomIn(a.ctx)
}

func (a *App) ZoomOut() (domain.Camera, error) {
	return a.docs.ZoomOut(a.ctx)
}

// ResetCamera fits the document back into view.
func (a *App) ResetCamera() (domain.Camera, error) {
	return a.docs.ResetCamera(a.ctx)
}

// GetOverlay returns the mask drawn outside the document bounds.
func (a *App) GetOverlay() (overlay.Overlay, error) {
	return a.docs.Overlay()
}
