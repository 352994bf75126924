package importer

import (
	"fmt"

	"markup/internal/domain"
)

// RenderedPage is one rasterized page handed over by the renderer.
type RenderedPage struct {
	// Source is a data URI of the bitmap.
	Source string `json:"source"`
	// Width and Height are the page size in canvas units; zero means the
	// bitmap's natural size.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout stacks pages top to bottom with spacing between them and centres
// each page on the widest one.
func Layout(sizes []domain.Vec, spacing float64) []domain.Rect {
	rects := make([]domain.Rect, len(sizes))
	top, widest := 0.0, 0.0
	for i, s := range sizes {
		rects[i] = domain.Rect{Y: top, W: s.X, H: s.Y}
		top += s.Y + spacing
		widest = max(widest, s.X)
	}
	for i := range rects {
		rects[i].X = (widest - rects[i].W) / 2
	}
	return rects
}

// Describe probes each rendered page and lays the pages out.
func Describe(pages []RenderedPage, spacing float64) ([]domain.PageDescriptor, error) {
	sizes := make([]domain.Vec, len(pages))
	infos := make([]ImageInfo, len(pages))
	for i, p := range pages {
		_, data, err := DecodeDataURI(p.Source)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		info, err := Probe(data)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		infos[i] = info
		w, h := p.Width, p.Height
		if w <= 0 || h <= 0 {
			w, h = float64(info.Width), float64(info.Height)
		}
		sizes[i] = domain.Vec{X: w, Y: h}
	}
	rects := Layout(sizes, spacing)
	descs := make([]domain.PageDescriptor, len(pages))
	for i, p := range pages {
		descs[i] = domain.PageDescriptor{
			Bounds: rects[i],
			Source: p.Source,
			Width:  infos[i].Width,
			Height: infos[i].Height,
		}
	}
	return descs, nil
}

// DescribeImage turns a single image file into a one-page document at its
// natural size.
func DescribeImage(data []byte) ([]domain.PageDescriptor, error) {
	info, err := Probe(data)
	if err != nil {
		return nil, err
	}
	return []domain.PageDescriptor{{
		Bounds: domain.Rect{W: float64(info.Width), H: float64(info.Height)},
		Source: DataURI(info.MimeType, data),
		Width:  info.Width,
		Height: info.Height,
	}}, nil
}

// RenderTargets scales PDF page sizes to the pixel sizes the renderer
// should produce.
func RenderTargets(pages []PageGeometry, scale float64) []domain.Vec {
	out := make([]domain.Vec, len(pages))
	for i, p := range pages {
		out[i] = domain.Vec{X: p.Width * scale, Y: p.Height * scale}
	}
	return out
}
