package app

import (
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"markup/internal/domain"
	"markup/internal/service"
)

// ExportPNG writes one page, 1-based, with its annotations as a PNG.
func (a *App) ExportPNG(page int, dir string) (service.ExportResult, error) {
	return a.exports.ExportPNG(a.ctx, page-1, dir)
}

// ExportPDF writes the annotated document as a PDF.
func (a *App) ExportPDF(dir string) (service.ExportResult, error) {
	return a.exports.ExportPDF(a.ctx, dir)
}

// ChooseExportDir shows a directory dialog. It returns "" when cancelled.
func (a *App) ChooseExportDir() (string, error) {
	return wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            "Export to",
		DefaultDirectory: a.cfg.Export.Dir,
	})
}

// ExportHistory returns the most recent export runs.
func (a *App) ExportHistory(limit int) ([]domain.ExportRun, error) {
	return a.exports.History(limit)
}

// RunningExports lists the exports in flight.
func (a *App) RunningExports() []service.RunningExport {
	return a.exports.Running()
}
