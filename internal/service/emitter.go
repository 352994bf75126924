package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter pushes document events to the frontend editor. The App
// implements it with wailsRuntime.EventsEmit; the MCP server runs with a
// no-op emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Frontend event names.
const (
	EventDocumentOpened  = "document:opened"
	EventDocumentClosed  = "document:closed"
	EventSourceChanged   = "document:source-changed"
	EventSceneDiff       = "scene:diff"
	EventCameraChanged   = "camera:changed"
	EventExportProgress  = "export:progress"
	EventExportCompleted = "export:completed"
)

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Safe for use from export goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded payloads for one event name, in order.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}
