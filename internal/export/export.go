// Package export writes annotated pages out as PNG or PDF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"markup/internal/domain"
)

var ErrNothingToExport = errors.New("no shapes within the page bounds")

type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// Progress receives the completed fraction of an export, in (0, 1].
type Progress func(fraction float64)

// Exporter renders pages with their annotations.
type Exporter struct {
	renderer *Renderer
	scale    float64
}

func New(assets AssetLookup, scale float64) *Exporter {
	if scale <= 0 {
		scale = 2
	}
	return &Exporter{renderer: NewRenderer(assets), scale: scale}
}

// ShapesIn returns the shapes whose bounds collide with area, keeping
// their stacking order.
func ShapesIn(shapes []domain.Shape, area domain.Rect) []domain.Shape {
	var out []domain.Shape
	for _, s := range shapes {
		if s.Bounds().Collides(area) {
			out = append(out, s)
		}
	}
	return out
}

// FileName is the default file name for an exported page.
func FileName(page domain.Page, f Format) string {
	name := strings.NewReplacer(":", "_", "/", "_").Replace(string(page.ShapeID))
	return name + "." + string(f)
}

// WritePNG renders one page and every shape on it. Progress ticks three
// times: shapes collected, page rendered, file written.
func (e *Exporter) WritePNG(ctx context.Context, w io.Writer, page domain.Page, shapes []domain.Shape, progress Progress) error {
	tick := ticker(3, progress)
	inPage := ShapesIn(shapes, page.Bounds)
	if len(inPage) == 0 {
		return ErrNothingToExport
	}
	tick()

	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := e.renderer.Render(page.Bounds, inPage, e.scale)
	if err != nil {
		return fmt.Errorf("render page %s: %w", page.ShapeID, err)
	}
	tick()

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	tick()
	return nil
}

// WritePDF renders every page into a PDF with one page per document page,
// each sized to the page bounds in points.
func (e *Exporter) WritePDF(ctx context.Context, w io.Writer, title string, pages []domain.Page, shapes []domain.Shape, progress Progress) error {
	if len(pages) == 0 {
		return ErrNothingToExport
	}
	tick := ticker(len(pages)+1, progress)

	doc := fpdf.New("P", "pt", "", "")
	doc.SetCreator("markup", true)
	doc.SetTitle(title, true)
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := e.renderer.Render(page.Bounds, ShapesIn(shapes, page.Bounds), e.scale)
		if err != nil {
			return fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("page-%d", i+1)
		doc.AddPageFormat("P", fpdf.SizeType{Wd: page.Bounds.W, Ht: page.Bounds.H})
		doc.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
		doc.ImageOptions(name, 0, 0, page.Bounds.W, page.Bounds.H, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		if err := doc.Error(); err != nil {
			return fmt.Errorf("add page %d: %w", i+1, err)
		}
		tick()
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	tick()
	return nil
}

func ticker(total int, progress Progress) func() {
	done := 0
	return func() {
		done++
		if progress != nil {
			progress(float64(done) / float64(total))
		}
	}
}
