package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"markup/internal/config"
	"markup/internal/domain"
	mcpserver "markup/internal/mcp"
	"markup/internal/service"
	"markup/internal/storage"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// When path names an image it is opened before serving. Destructive tools are
// approved automatically since there is nobody to ask.
func ServeMCP(path string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	emitter := noopEmitter{}
	docs := service.NewDocumentService(cfg, emitter)

	var runs *storage.ExportRunStore
	db, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Printf("[MCP] Export history disabled: %v", err)
	} else {
		defer db.Close()
		runs = storage.NewExportRunStore(db)
	}
	exports := service.NewExportService(docs, exportRuns(runs), emitter)

	if path != "" {
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			log.Fatalf("PDF pages need a renderer; open %s from the desktop app", path)
		}
		if _, err := docs.OpenImageFile(ctx, path); err != nil {
			log.Fatalf("Failed to open %s: %v", path, err)
		}
	}

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:     emitter,
		Docs:        docs,
		Exports:     exports,
		AutoApprove: true,
	})

	if err := mcpSrv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
	exports.WaitRunning(ctx)
}

// exportRuns keeps a nil store a nil interface.
func exportRuns(s *storage.ExportRunStore) domain.ExportRunStore {
	if s == nil {
		return nil
	}
	return s
}
