package domain

import "maps"

type ShapeType string

const (
	ShapeTypeImage   ShapeType = "image"
	ShapeTypeDraw    ShapeType = "draw"
	ShapeTypeText    ShapeType = "text"
	ShapeTypeGeo     ShapeType = "geo"
	ShapeTypeSticker ShapeType = "sticker"
)

// CanvasPageID is the single canvas page every document lives on.
const CanvasPageID = "page:page"

// Shape is a snapshot of one record in the editor scene. Index is the
// fractional ordering key among siblings with the same ParentID.
type Shape struct {
	ID       ShapeID        `json:"id"`
	Type     ShapeType      `json:"type"`
	ParentID string         `json:"parentId"`
	Index    string         `json:"index"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	W        float64        `json:"w"`
	H        float64        `json:"h"`
	IsLocked bool           `json:"isLocked"`
	Props    map[string]any `json:"props,omitempty"`
}

// Bounds returns the shape's axis-aligned page bounds.
func (s Shape) Bounds() Rect {
	return Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
}

// Clone returns a copy that does not share Props with s.
func (s Shape) Clone() Shape {
	if s.Props != nil {
		s.Props = maps.Clone(s.Props)
	}
	return s
}

// ShapePatch is a partial update. Nil fields are left unchanged.
type ShapePatch struct {
	ID       ShapeID        `json:"id"`
	Index    *string        `json:"index,omitempty"`
	X        *float64       `json:"x,omitempty"`
	Y        *float64       `json:"y,omitempty"`
	W        *float64       `json:"w,omitempty"`
	H        *float64       `json:"h,omitempty"`
	IsLocked *bool          `json:"isLocked,omitempty"`
	Props    map[string]any `json:"props,omitempty"`
}

// Apply returns s with the patch fields applied.
func (p ShapePatch) Apply(s Shape) Shape {
	out := s.Clone()
	if p.Index != nil {
		out.Index = *p.Index
	}
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.W != nil {
		out.W = *p.W
	}
	if p.H != nil {
		out.H = *p.H
	}
	if p.IsLocked != nil {
		out.IsLocked = *p.IsLocked
	}
	if len(p.Props) > 0 {
		if out.Props == nil {
			out.Props = map[string]any{}
		}
		maps.Copy(out.Props, p.Props)
	}
	return out
}

// Asset is a bitmap resource referenced by image shapes.
type Asset struct {
	ID       AssetID `json:"id"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	MimeType string  `json:"mimeType"`
	Src      string  `json:"src"`
}
