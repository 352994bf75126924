// Package overlay computes the shading drawn over the parts of the
// viewport that lie outside every document page.
package overlay

import (
	"strconv"
	"strings"

	"markup/internal/domain"
)

// PageRect is one page projected to screen space.
type PageRect struct {
	ShapeID domain.ShapeID `json:"shapeId"`
	Rect    domain.Rect    `json:"rect"`
}

type Overlay struct {
	Viewport domain.Rect `json:"viewport"`
	Pages    []PageRect  `json:"pages"`
	// Path is an SVG path to be filled with the even-odd rule.
	Path     string `json:"path"`
	FillRule string `json:"fillRule"`
}

// Project builds the overlay for one frame. viewport is the screen-space
// size of the editor, visible the page-space window it shows, and toScreen
// the page-to-screen transform. Pages outside visible are skipped.
func Project(pages []domain.Page, viewport, visible domain.Rect, toScreen func(domain.Vec) domain.Vec) Overlay {
	o := Overlay{
		Viewport: domain.Rect{W: viewport.W, H: viewport.H},
		FillRule: "evenodd",
	}
	var b strings.Builder
	writeRect(&b, o.Viewport)
	for _, p := range pages {
		if !p.Bounds.Collides(visible) {
			continue
		}
		tl := toScreen(domain.Vec{X: p.Bounds.X, Y: p.Bounds.Y})
		br := toScreen(domain.Vec{X: p.Bounds.MaxX(), Y: p.Bounds.MaxY()})
		r := domain.Rect{X: tl.X, Y: tl.Y, W: br.X - tl.X, H: br.Y - tl.Y}
		o.Pages = append(o.Pages, PageRect{ShapeID: p.ShapeID, Rect: r})
		b.WriteByte(' ')
		writeRect(&b, r)
	}
	o.Path = b.String()
	return o
}

func writeRect(b *strings.Builder, r domain.Rect) {
	x, y := num(r.X), num(r.Y)
	mx, my := num(r.MaxX()), num(r.MaxY())
	b.WriteString("M " + x + " " + y)
	b.WriteString(" L " + mx + " " + y)
	b.WriteString(" L " + mx + " " + my)
	b.WriteString(" L " + x + " " + my)
	b.WriteString(" Z")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
