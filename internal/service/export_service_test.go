package service_test

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"markup/internal/config"
	"markup/internal/domain"
	"markup/internal/export"
	"markup/internal/importer"
	"markup/internal/service"
	"markup/internal/storage"
)

func newExportFixture(t *testing.T) (*service.ExportService, *service.DocumentService, *service.MockEmitter, *storage.ExportRunStore) {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "markup.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	runs := storage.NewExportRunStore(db)

	cfg := config.Default()
	cfg.Export.Dir = t.TempDir()
	cfg.Export.Scale = 1
	emitter := &service.MockEmitter{}
	docs := service.NewDocumentService(cfg, emitter)
	if _, err := docs.OpenRendered(context.Background(), "scan.pdf", "", twoPages(t)); err != nil {
		t.Fatal(err)
	}
	return service.NewExportService(docs, runs, emitter), docs, emitter, runs
}

func TestExportService_ExportPNG(t *testing.T) {
	exports, docs, emitter, runs := newExportFixture(t)
	ctx := context.Background()

	box := domain.Shape{Type: domain.ShapeTypeGeo, X: 10, Y: 10, W: 40, H: 20, Props: map[string]any{"geo": "rectangle"}}
	if err := docs.CreateShapes(ctx, box); err != nil {
		t.Fatal(err)
	}

	res, err := exports.ExportPNG(ctx, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 109 {
		t.Errorf("exported size = %v, want 200x109", b)
	}

	var fractions []float64
	for _, p := range emitter.Named(service.EventExportProgress) {
		fractions = append(fractions, p.(service.ExportProgress).Fraction)
	}
	if diff := cmp.Diff([]float64{1.0 / 3, 2.0 / 3, 1}, fractions); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
	if got := emitter.Named(service.EventExportCompleted); len(got) != 1 {
		t.Errorf("export:completed emitted %d times", len(got))
	}

	history, err := runs.ListExportRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Format != "png" || history[0].Path != res.Path || history[0].Error != "" {
		t.Errorf("history = %+v", history)
	}
}

func TestExportService_ExportPDF(t *testing.T) {
	exports, _, _, _ := newExportFixture(t)
	dir := t.TempDir()

	res, err := exports.ExportPDF(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != filepath.Join(dir, "scan-annotated.pdf") || res.Pages != 2 {
		t.Errorf("result = %+v", res)
	}
	f, err := os.Open(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	info, _ := f.Stat()
	pages, err := importer.ReadPDFGeometry(f, info.Size())
	if err != nil {
		t.Fatal(err)
	}
	want := []importer.PageGeometry{{Number: 1, Width: 200, Height: 109}, {Number: 2, Width: 200, Height: 109}}
	if diff := cmp.Diff(want, pages); diff != "" {
		t.Errorf("pdf pages mismatch (-want +got):\n%s", diff)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestExportService_FailureIsRecorded(t *testing.T) {
	exports, _, _, runs := newExportFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := exports.ExportPDF(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	history, _ := runs.ListExportRuns(1)
	if len(history) != 1 || history[0].Error == "" {
		t.Errorf("failed run not recorded: %+v", history)
	}
}

func TestExportService_PageOutOfRange(t *testing.T) {
	exports, _, _, _ := newExportFixture(t)
	if _, err := exports.ExportPNG(context.Background(), 5, ""); err == nil {
		t.Error("expected out of range page to fail")
	}
}

func TestExportService_NoDocument(t *testing.T) {
	docs := service.NewDocumentService(config.Default(), &service.MockEmitter{})
	exports := service.NewExportService(docs, nil, &service.MockEmitter{})
	if _, err := exports.ExportPDF(context.Background(), t.TempDir()); !errors.Is(err, service.ErrNoDocument) {
		t.Errorf("expected ErrNoDocument, got %v", err)
	}
	if runs, err := exports.History(10); err != nil || runs != nil {
		t.Errorf("history without store = %v, %v", runs, err)
	}
}

func TestExportService_PruneHistory(t *testing.T) {
	exports, _, _, runs := newExportFixture(t)
	if err := runs.CreateExportRun(&domain.ExportRun{Document: "old.pdf", Format: string(export.FormatPDF)}); err != nil {
		t.Fatal(err)
	}
	if n, err := exports.PruneHistory(-time.Hour); err != nil || n != 1 {
		t.Errorf("pruned %d (err %v), want 1", n, err)
	}
}

func TestHistoryJanitor_PrunesOnStart(t *testing.T) {
	exports, _, _, runs := newExportFixture(t)
	if err := runs.CreateExportRun(&domain.ExportRun{Document: "old.pdf", Format: string(export.FormatPNG)}); err != nil {
		t.Fatal(err)
	}
	j := service.NewHistoryJanitor(exports)
	if err := j.Start("@daily", -time.Hour); err != nil {
		t.Fatal(err)
	}
	defer j.Stop()

	history, err := runs.ListExportRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("%d runs left after start", len(history))
	}
}

func TestHistoryJanitor_RejectsBadSchedule(t *testing.T) {
	exports, _, _, _ := newExportFixture(t)
	j := service.NewHistoryJanitor(exports)
	if err := j.Start("every tuesday", time.Hour); err == nil {
		t.Error("expected invalid cron expression to fail")
	}
	j.Stop()
}
