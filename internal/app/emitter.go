package app

import (
	"context"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// wailsEmitter delivers service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}
