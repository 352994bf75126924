// Package importer turns PDF files and images into page descriptors laid
// out on the canvas.
package importer

import (
	"errors"
	"fmt"
	"io"

	"github.com/digitorus/pdf"
)

var ErrNotPDF = errors.New("not a PDF document")

// letter is the default MediaBox when a page tree carries none.
var letter = [4]float64{0, 0, 612, 792}

// PageGeometry is the size of one PDF page in points after rotation.
type PageGeometry struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate int     `json:"rotate"`
}

// ReadPDFGeometry lists the page sizes of a PDF document.
func ReadPDFGeometry(r io.ReaderAt, size int64) (pages []PageGeometry, err error) {
	defer func() {
		// the reader panics on some malformed xref tables
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("%w: %v", ErrNotPDF, rec)
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := rdr.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrNotPDF)
	}
	pages = make([]PageGeometry, 0, n)
	for i := 1; i <= n; i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			return nil, fmt.Errorf("page %d not found", i)
		}
		box := mediaBox(page.V)
		w, h := box[2]-box[0], box[3]-box[1]
		if w < 0 {
			w = -w
		}
		if h < 0 {
			h = -h
		}
		rot := int(inherited(page.V, "Rotate").Int64()) % 360
		if rot < 0 {
			rot += 360
		}
		if rot == 90 || rot == 270 {
			w, h = h, w
		}
		pages = append(pages, PageGeometry{Number: i, Width: w, Height: h, Rotate: rot})
	}
	return pages, nil
}

// inherited looks key up on the page and then on its ancestors in the
// page tree.
func inherited(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

func mediaBox(page pdf.Value) [4]float64 {
	v := inherited(page, "CropBox")
	if v.Kind() != pdf.Array || v.Len() < 4 {
		v = inherited(page, "MediaBox")
	}
	if v.Kind() != pdf.Array || v.Len() < 4 {
		return letter
	}
	var box [4]float64
	for i := range box {
		box[i] = v.Index(i).Float64()
	}
	return box
}
