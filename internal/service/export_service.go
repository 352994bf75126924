package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"markup/internal/domain"
	"markup/internal/export"
)

var ErrExportRunning = errors.New("export already running")

// ─────────────────────────────────────────────────────────────
// Export Service: PNG / PDF export with progress events
// ─────────────────────────────────────────────────────────────

// ExportProgress is the payload of export:progress events.
type ExportProgress struct {
	Format   export.Format `json:"format"`
	Fraction float64       `json:"fraction"`
}

// ExportResult is the payload of export:completed events.
type ExportResult struct {
	Format export.Format `json:"format"`
	Path   string        `json:"path"`
	Pages  int           `json:"pages"`
}

// ExportService writes the open document to disk and logs every run.
type ExportService struct {
	docs    *DocumentService
	runs    domain.ExportRunStore
	emitter EventEmitter
	guard   exportGuard
}

// NewExportService creates an ExportService. runs may be nil when no
// database is available.
func NewExportService(docs *DocumentService, runs domain.ExportRunStore, emitter EventEmitter) *ExportService {
	return &ExportService{docs: docs, runs: runs, emitter: emitter}
}

// ExportPNG renders one page into dir, or the configured export dir when
// dir is empty.
func (s *ExportService) ExportPNG(ctx context.Context, pageIndex int, dir string) (ExportResult, error) {
	snap, err := s.docs.Snapshot()
	if err != nil {
		return ExportResult{}, err
	}
	if pageIndex < 0 || pageIndex >= len(snap.Pages) {
		return ExportResult{}, fmt.Errorf("export png: page %d out of range", pageIndex+1)
	}
	page := snap.Pages[pageIndex]
	path := filepath.Join(s.dir(dir), export.FileName(page, export.FormatPNG))

	return s.run(ctx, snap, export.FormatPNG, path, 1, func(ex *export.Exporter, f *os.File, progress export.Progress) error {
		return ex.WritePNG(ctx, f, page, snap.Shapes, progress)
	})
}

// ExportPDF renders every page into one PDF named after the document.
func (s *ExportService) ExportPDF(ctx context.Context, dir string) (ExportResult, error) {
	snap, err := s.docs.Snapshot()
	if err != nil {
		return ExportResult{}, err
	}
	path := filepath.Join(s.dir(dir), pdfName(snap.Name))

	return s.run(ctx, snap, export.FormatPDF, path, len(snap.Pages), func(ex *export.Exporter, f *os.File, progress export.Progress) error {
		return ex.WritePDF(ctx, f, snap.Name, snap.Pages, snap.Shapes, progress)
	})
}

// History lists the most recent export runs.
func (s *ExportService) History(limit int) ([]domain.ExportRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListExportRuns(limit)
}

// PruneHistory deletes export runs older than maxAge.
func (s *ExportService) PruneHistory(maxAge time.Duration) (int64, error) {
	if s.runs == nil {
		return 0, nil
	}
	n, err := s.runs.DeleteExportRunsBefore(time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("prune export runs: %w", err)
	}
	return n, nil
}

// Running lists the exports in flight.
func (s *ExportService) Running() []RunningExport {
	return s.guard.Running()
}

// WaitRunning blocks until all running exports finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

type writeFunc func(ex *export.Exporter, f *os.File, progress export.Progress) error

func (s *ExportService) run(ctx context.Context, snap Snapshot, format export.Format, path string, pages int, write writeFunc) (ExportResult, error) {
	document := snap.Name
	job := ExportJob{Document: document, Format: format}
	if !s.guard.TryLock(job) {
		return ExportResult{}, fmt.Errorf("%w: %s %s", ErrExportRunning, document, format)
	}
	defer s.guard.Unlock(job)

	start := time.Now()
	result := ExportResult{Format: format, Path: path, Pages: pages}
	err := s.writeFile(path, snap, write, func(p float64) {
		s.emitter.Emit(ctx, EventExportProgress, ExportProgress{Format: format, Fraction: p})
	})
	s.record(document, result, time.Since(start), err)
	if err != nil {
		log.Printf("[EXPORT] %s %s failed: %v", document, format, err)
		return ExportResult{}, err
	}
	log.Printf("[EXPORT] %s -> %s (%d page(s), %s)", document, path, pages, time.Since(start).Round(time.Millisecond))
	s.emitter.Emit(ctx, EventExportCompleted, result)
	return result, nil
}

func (s *ExportService) writeFile(path string, snap Snapshot, write writeFunc, progress export.Progress) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	ex := export.New(snap.Asset, s.docs.Config().Export.Scale)
	if err := write(ex, tmp, progress); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move export file: %w", err)
	}
	return nil
}

func (s *ExportService) record(document string, r ExportResult, d time.Duration, err error) {
	if s.runs == nil {
		return
	}
	run := &domain.ExportRun{
		Document:   document,
		Format:     string(r.Format),
		Pages:      r.Pages,
		Path:       r.Path,
		DurationMS: d.Milliseconds(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	if rerr := s.runs.CreateExportRun(run); rerr != nil {
		log.Printf("[EXPORT] record run: %v", rerr)
	}
}

func (s *ExportService) dir(dir string) string {
	if dir != "" {
		return dir
	}
	if d := s.docs.Config().Export.Dir; d != "" {
		return d
	}
	return os.TempDir()
}

func pdfName(document string) string {
	base := strings.TrimSuffix(document, filepath.Ext(document))
	if base == "" {
		base = "document"
	}
	return base + "-annotated.pdf"
}
