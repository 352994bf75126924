package domain

import "math"

// Rect is an axis-aligned rectangle in document (page) space.
// Y grows downward, matching the canvas.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Collides reports whether r and o overlap or touch.
func (r Rect) Collides(o Rect) bool {
	return !(r.MaxX() < o.X || r.X > o.MaxX() || r.MaxY() < o.Y || r.Y > o.MaxY())
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.MaxX() <= r.MaxX() && o.MaxY() <= r.MaxY()
}

// valid is false for non-positive or non-finite extents.
func (r Rect) valid() bool {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.W > 0 && r.H > 0
}

// Aggregate returns the union of all page bounds, folding from the first
// page. The result does not depend on page order. An empty list yields the
// zero Rect; callers never open a document without pages.
func Aggregate(pages []Page) Rect {
	if len(pages) == 0 {
		return Rect{}
	}
	acc := pages[0].Bounds
	for _, p := range pages[1:] {
		acc = acc.Union(p.Bounds)
	}
	return acc
}
