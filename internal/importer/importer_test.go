package importer_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/google/go-cmp/cmp"

	"markup/internal/domain"
	"markup/internal/importer"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLayout_StacksAndCentres(t *testing.T) {
	rects := importer.Layout([]domain.Vec{{X: 100, Y: 100}, {X: 200, Y: 50}, {X: 150, Y: 80}}, 32)
	want := []domain.Rect{
		{X: 50, Y: 0, W: 100, H: 100},
		{X: 0, Y: 132, W: 200, H: 50},
		{X: 25, Y: 214, W: 150, H: 80},
	}
	if diff := cmp.Diff(want, rects); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	a := importer.DataURI("image/png", pngBytes(t, 40, 30))
	b := importer.DataURI("image/png", pngBytes(t, 80, 60))
	descs, err := importer.Describe([]importer.RenderedPage{
		{Source: a},
		{Source: b, Width: 40, Height: 30},
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(descs) != 2 {
		t.Fatalf("got %d descriptors", len(descs))
	}
	if descs[0].Bounds != (domain.Rect{W: 40, H: 30}) {
		t.Errorf("page 1 bounds = %+v", descs[0].Bounds)
	}
	if descs[1].Bounds != (domain.Rect{Y: 40, W: 40, H: 30}) {
		t.Errorf("page 2 bounds = %+v", descs[1].Bounds)
	}
	if descs[1].Width != 80 || descs[1].Height != 60 || descs[1].Source != b {
		t.Errorf("page 2 descriptor = %+v", descs[1])
	}
	if _, err := domain.NewPages(descs); err != nil {
		t.Errorf("descriptors rejected by page model: %v", err)
	}
}

func TestDescribe_RejectsGarbage(t *testing.T) {
	_, err := importer.Describe([]importer.RenderedPage{{Source: importer.DataURI("image/png", []byte("nope"))}}, 0)
	if !errors.Is(err, importer.ErrUnsupportedImage) {
		t.Errorf("expected ErrUnsupportedImage, got %v", err)
	}
	if _, err := importer.Describe([]importer.RenderedPage{{Source: "http://example.com/a.png"}}, 0); err == nil {
		t.Error("expected non data URI to fail")
	}
}

func TestDescribeImage(t *testing.T) {
	descs, err := importer.DescribeImage(pngBytes(t, 64, 48))
	if err != nil {
		t.Fatal(err)
	}
	if len(descs) != 1 || descs[0].Bounds != (domain.Rect{W: 64, H: 48}) {
		t.Fatalf("descriptors = %+v", descs)
	}
	mime, data, err := importer.DecodeDataURI(descs[0].Source)
	if err != nil || mime != "image/png" || len(data) == 0 {
		t.Errorf("source round trip: %q %d %v", mime, len(data), err)
	}
	img, err := importer.DecodeSource(descs[0].Source)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("decoded width = %d", img.Bounds().Dx())
	}
}

func TestReadPDFGeometry(t *testing.T) {
	doc := fpdf.New("P", "pt", "", "")
	doc.AddPageFormat("P", fpdf.SizeType{Wd: 300, Ht: 400})
	doc.AddPageFormat("P", fpdf.SizeType{Wd: 500, Ht: 200})
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatal(err)
	}

	pages, err := importer.ReadPDFGeometry(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	want := []importer.PageGeometry{
		{Number: 1, Width: 300, Height: 400},
		{Number: 2, Width: 500, Height: 200},
	}
	if diff := cmp.Diff(want, pages); diff != "" {
		t.Errorf("geometry mismatch (-want +got):\n%s", diff)
	}

	targets := importer.RenderTargets(pages, 1.5)
	if targets[0] != (domain.Vec{X: 450, Y: 600}) {
		t.Errorf("render target = %+v", targets[0])
	}
}

func TestReadPDFGeometry_NotPDF(t *testing.T) {
	data := []byte("definitely not a pdf")
	if _, err := importer.ReadPDFGeometry(bytes.NewReader(data), int64(len(data))); !errors.Is(err, importer.ErrNotPDF) {
		t.Errorf("expected ErrNotPDF, got %v", err)
	}
}
