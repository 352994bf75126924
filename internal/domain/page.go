package domain

import "github.com/google/uuid"

type AssetID string
type ShapeID string

// PageDescriptor is one rasterized page handed over by the importer.
type PageDescriptor struct {
	Bounds Rect   `json:"bounds"`
	Source string `json:"source"` // URI or data URI of the page bitmap
	Width  int    `json:"width"`  // bitmap pixel size, 0 if unknown
	Height int    `json:"height"`
}

// Page is one placed page of an open document. Pages are created in a batch
// when the document opens and never change afterwards.
type Page struct {
	AssetID AssetID `json:"assetId"`
	ShapeID ShapeID `json:"shapeId"`
	Bounds  Rect    `json:"bounds"`
	Source  string  `json:"source"`
}

func NewAssetID() AssetID { return AssetID("asset:" + uuid.New().String()) }
func NewShapeID() ShapeID { return ShapeID("shape:" + uuid.New().String()) }

// NewPages validates every descriptor and allocates fresh asset and shape ids.
// It has no side effects; on error nothing has been allocated for the caller
// to clean up.
func NewPages(descs []PageDescriptor) ([]Page, error) {
	if len(descs) == 0 {
		return nil, ErrNoPages
	}
	for i, d := range descs {
		if !d.Bounds.valid() {
			return nil, &InvalidPageError{Index: i, Bounds: d.Bounds}
		}
	}
	pages := make([]Page, len(descs))
	for i, d := range descs {
		pages[i] = Page{
			AssetID: NewAssetID(),
			ShapeID: NewShapeID(),
			Bounds:  d.Bounds,
			Source:  d.Source,
		}
	}
	return pages, nil
}

// ShapeIDs returns the page shape ids in page order.
func ShapeIDs(pages []Page) []ShapeID {
	ids := make([]ShapeID, len(pages))
	for i, p := range pages {
		ids[i] = p.ShapeID
	}
	return ids
}
