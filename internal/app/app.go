package app

import (
	"context"
	"time"

	"github.com/spf13/viper"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"markup/internal/config"
	mcpserver "markup/internal/mcp"
	"markup/internal/service"
	"markup/internal/storage"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	v   *viper.Viper
	cfg config.Config
	db  *storage.DB

	docs    *service.DocumentService
	exports *service.ExportService
	windows *service.WindowSettingsService
	watcher *service.SourceWatcher
	janitor *service.HistoryJanitor
	mcp     *mcpserver.Server
}

// New creates a new App.
func New() *App {
	return &App{}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	a.v = config.New()
	cfg, err := config.Read(a.v)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Invalid config, using defaults: %v", err)
		cfg = config.Default()
	}
	a.cfg = cfg

	emitter := wailsEmitter{}
	a.docs = service.NewDocumentService(cfg, emitter)
	a.watcher = service.NewSourceWatcher(emitter)
	a.docs.OnOpen(func(path string) {
		if err := a.watcher.Watch(ctx, path); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to watch %s: %v", path, err)
		}
	})

	// Settings and export history are optional; the editor works without them.
	db, err := storage.New(cfg.Storage.Path)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to open database: %v", err)
		a.windows = service.NewWindowSettingsService(nil)
		a.exports = service.NewExportService(a.docs, nil, emitter)
	} else {
		a.db = db
		a.windows = service.NewWindowSettingsService(storage.NewSettingsStore(db))
		a.exports = service.NewExportService(a.docs, storage.NewExportRunStore(db), emitter)
	}
	a.janitor = service.NewHistoryJanitor(a.exports)
	a.scheduleJanitor(cfg)

	size := a.windows.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	config.Watch(a.v, func(c config.Config) {
		if c.Export.PruneSchedule != a.cfg.Export.PruneSchedule || c.Export.HistoryDays != a.cfg.Export.HistoryDays {
			a.scheduleJanitor(c)
		}
		a.cfg = c
		a.docs.ApplyConfig(ctx, c)
	})

	if cfg.MCP.Addr != "" {
		a.mcp = mcpserver.New(ctx, mcpserver.Deps{
			Emitter: emitter,
			Docs:    a.docs,
			Exports: a.exports,
		})
		go func() {
			if err := a.mcp.StartHTTP(cfg.MCP.Addr); err != nil {
				wailsRuntime.LogErrorf(ctx, "MCP server stopped: %v", err)
			}
		}()
	}
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if w, h := wailsRuntime.WindowGetSize(ctx); w > 0 && h > 0 {
		if err := a.windows.SaveWindowSize(w, h); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to save window size: %v", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a.exports.WaitRunning(waitCtx)

	if a.mcp != nil {
		if err := a.mcp.Shutdown(waitCtx); err != nil {
			wailsRuntime.LogErrorf(ctx, "Failed to stop MCP server: %v", err)
		}
	}
	a.janitor.Stop()
	a.watcher.Stop()
	if err := a.docs.Close(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to close document: %v", err)
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) scheduleJanitor(cfg config.Config) {
	maxAge := time.Duration(cfg.Export.HistoryDays) * 24 * time.Hour
	if err := a.janitor.Start(cfg.Export.PruneSchedule, maxAge); err != nil {
		wailsRuntime.LogErrorf(a.ctx, "Export history pruning disabled: %v", err)
	}
}

// ============================================================
// MCP approvals
// ============================================================

// ApproveMCPAction approves a destructive MCP tool call.
func (a *App) ApproveMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Approve(actionID)
	}
}

// RejectMCPAction rejects a destructive MCP tool call.
func (a *App) RejectMCPAction(actionID string) {
	if a.mcp != nil {
		a.mcp.Reject(actionID)
	}
}

// PendingMCPActions lists tool calls waiting for approval, e.g. after a
// frontend reload.
func (a *App) PendingMCPActions() []mcpserver.PendingAction {
	if a.mcp == nil {
		return nil
	}
	return a.mcp.PendingApprovals()
}
