package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"markup/internal/domain"
	"markup/internal/importer"
)

var defaultInk = namedColors["black"]

var regularFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// AssetLookup resolves the bitmap behind an image shape.
type AssetLookup func(domain.AssetID) (domain.Asset, bool)

// Renderer rasterizes shapes into bitmaps. It caches decoded assets and
// font faces, so one Renderer should be reused across pages.
type Renderer struct {
	assets AssetLookup
	images map[domain.AssetID]image.Image
	faces  map[float64]font.Face
}

func NewRenderer(assets AssetLookup) *Renderer {
	return &Renderer{
		assets: assets,
		images: make(map[domain.AssetID]image.Image),
		faces:  make(map[float64]font.Face),
	}
}

// canvas maps page space onto one output bitmap.
type canvas struct {
	dst   *image.RGBA
	ras   *vector.Rasterizer
	area  domain.Rect
	scale float64
}

func (c *canvas) pt(p domain.Vec) (float32, float32) {
	return float32((p.X - c.area.X) * c.scale), float32((p.Y - c.area.Y) * c.scale)
}

// Render draws shapes, bottommost first, over a white background covering
// area at the given scale.
func (r *Renderer) Render(area domain.Rect, shapes []domain.Shape, scale float64) (*image.RGBA, error) {
	w := int(math.Ceil(area.W * scale))
	h := int(math.Ceil(area.H * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: empty area %+v", area)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	c := &canvas{dst: dst, ras: vector.NewRasterizer(w, h), area: area, scale: scale}

	for _, s := range shapes {
		var err error
		switch s.Type {
		case domain.ShapeTypeImage:
			err = r.drawImage(c, s)
		case domain.ShapeTypeDraw:
			r.drawStroke(c, s)
		case domain.ShapeTypeGeo:
			r.drawGeo(c, s)
		case domain.ShapeTypeText:
			err = r.drawText(c, s)
		case domain.ShapeTypeSticker:
			r.drawSticker(c, s)
		}
		if err != nil {
			return nil, fmt.Errorf("render shape %s: %w", s.ID, err)
		}
	}
	return dst, nil
}

func (r *Renderer) drawImage(c *canvas, s domain.Shape) error {
	id, _ := s.Props["assetId"].(string)
	img, ok := r.images[domain.AssetID(id)]
	if !ok {
		asset, found := r.assets(domain.AssetID(id))
		if !found {
			return fmt.Errorf("asset %q not found", id)
		}
		decoded, err := importer.DecodeSource(asset.Src)
		if err != nil {
			return err
		}
		r.images[asset.ID] = decoded
		img = decoded
	}
	x0, y0 := c.pt(domain.Vec{X: s.X, Y: s.Y})
	x1, y1 := c.pt(domain.Vec{X: s.X + s.W, Y: s.Y + s.H})
	dr := image.Rect(int(math.Round(float64(x0))), int(math.Round(float64(y0))), int(math.Round(float64(x1))), int(math.Round(float64(y1))))
	xdraw.CatmullRom.Scale(c.dst, dr, img, img.Bounds(), draw.Over, nil)
	return nil
}

// polygon adds a closed polygon to the rasterizer, counter-clockwise so
// that overlapping pieces of one shape accumulate instead of cancelling.
func (c *canvas) polygon(pts []domain.Vec) {
	if len(pts) < 3 {
		return
	}
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if area < 0 {
		pts = append([]domain.Vec(nil), pts...)
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	c.ras.MoveTo(c.pt(pts[0]))
	for _, p := range pts[1:] {
		c.ras.LineTo(c.pt(p))
	}
	c.ras.ClosePath()
}

func (c *canvas) fill(col color.Color) {
	c.ras.Draw(c.dst, c.dst.Bounds(), image.NewUniform(col), image.Point{})
	c.ras.Reset(c.dst.Bounds().Dx(), c.dst.Bounds().Dy())
}

func disc(center domain.Vec, radius float64) []domain.Vec {
	const n = 16
	pts := make([]domain.Vec, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = domain.Vec{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return pts
}

// stroke outlines a polyline with round joins and caps.
func (c *canvas) stroke(pts []domain.Vec, width float64, col color.Color) {
	half := width / 2
	for i, p := range pts {
		c.polygon(disc(p, half))
		if i == 0 {
			continue
		}
		q := pts[i-1]
		dx, dy := p.X-q.X, p.Y-q.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		c.polygon([]domain.Vec{
			{X: q.X + nx, Y: q.Y + ny},
			{X: p.X + nx, Y: p.Y + ny},
			{X: p.X - nx, Y: p.Y - ny},
			{X: q.X - nx, Y: q.Y - ny},
		})
	}
	c.fill(col)
}

func offset(pts []domain.Vec, by domain.Vec) []domain.Vec {
	out := make([]domain.Vec, len(pts))
	for i, p := range pts {
		out[i] = domain.Vec{X: p.X + by.X, Y: p.Y + by.Y}
	}
	return out
}

func (r *Renderer) drawStroke(c *canvas, s domain.Shape) {
	pts := offset(pointsProp(s.Props["points"]), domain.Vec{X: s.X, Y: s.Y})
	if len(pts) == 0 {
		return
	}
	c.stroke(pts, sizeProp(s.Props["size"], strokeSizes, strokeSizes["m"]), parseColor(s.Props["color"], defaultInk))
}

func (r *Renderer) drawGeo(c *canvas, s domain.Shape) {
	var outline []domain.Vec
	if g, _ := s.Props["geo"].(string); g == "ellipse" {
		const n = 48
		cx, cy := s.X+s.W/2, s.Y+s.H/2
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / n
			outline = append(outline, domain.Vec{X: cx + s.W/2*math.Cos(a), Y: cy + s.H/2*math.Sin(a)})
		}
	} else {
		outline = []domain.Vec{{X: s.X, Y: s.Y}, {X: s.X + s.W, Y: s.Y}, {X: s.X + s.W, Y: s.Y + s.H}, {X: s.X, Y: s.Y + s.H}}
	}
	col := parseColor(s.Props["color"], defaultInk)
	if f, _ := s.Props["fill"].(string); f == "solid" {
		c.polygon(outline)
		c.fill(col)
		return
	}
	c.stroke(append(outline, outline[0]), sizeProp(s.Props["size"], strokeSizes, strokeSizes["m"]), col)
}

func (r *Renderer) face(size float64) (font.Face, error) {
	if f, ok := r.faces[size]; ok {
		return f, nil
	}
	ft, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	f, err := opentype.NewFace(ft, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	r.faces[size] = f
	return f, nil
}

func (r *Renderer) drawText(c *canvas, s domain.Shape) error {
	text, _ := s.Props["text"].(string)
	if text == "" {
		return nil
	}
	size := sizeProp(s.Props["size"], fontSizes, fontSizes["m"]) * c.scale
	face, err := r.face(size)
	if err != nil {
		return err
	}
	x, y := c.pt(domain.Vec{X: s.X, Y: s.Y})
	d := &font.Drawer{Dst: c.dst, Src: image.NewUniform(parseColor(s.Props["color"], defaultInk)), Face: face}
	ascent := face.Metrics().Ascent
	lineHeight := fixed.Int26_6(math.Round(size * 1.2 * 64))
	d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y*64) + ascent}
	for _, line := range strings.Split(text, "\n") {
		start := d.Dot
		d.DrawString(line)
		d.Dot = fixed.Point26_6{X: start.X, Y: start.Y + lineHeight}
	}
	return nil
}

// drawSticker fills a heart inside the shape bounds.
func (r *Renderer) drawSticker(c *canvas, s domain.Shape) {
	w, h := s.W, s.H
	if w <= 0 || h <= 0 {
		w, h = 64, 64
	}
	at := func(u, v float64) (float32, float32) {
		return c.pt(domain.Vec{X: s.X + u*w, Y: s.Y + v*h})
	}
	c.ras.MoveTo(at(0.5, 0.25))
	x1, y1 := at(0.5, 0)
	x2, y2 := at(0, 0)
	x3, y3 := at(0, 0.3)
	c.ras.CubeTo(x1, y1, x2, y2, x3, y3)
	x1, y1 = at(0, 0.6)
	x2, y2 = at(0.35, 0.8)
	x3, y3 = at(0.5, 1)
	c.ras.CubeTo(x1, y1, x2, y2, x3, y3)
	x1, y1 = at(0.65, 0.8)
	x2, y2 = at(1, 0.6)
	x3, y3 = at(1, 0.3)
	c.ras.CubeTo(x1, y1, x2, y2, x3, y3)
	x1, y1 = at(1, 0)
	x2, y2 = at(0.5, 0)
	x3, y3 = at(0.5, 0.25)
	c.ras.CubeTo(x1, y1, x2, y2, x3, y3)
	c.ras.ClosePath()
	c.fill(parseColor(s.Props["color"], namedColors["red"]))
}
