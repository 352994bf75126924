package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"markup/internal/domain"
	"markup/internal/service"
)

// Server is the MCP server for Markup. It exposes the open document's
// pages, shapes and camera so AI agents can inspect and annotate it.
type Server struct {
	mcp      *server.MCPServer
	http     *server.StreamableHTTPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	docs    *service.DocumentService
	exports *service.ExportService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Docs    *service.DocumentService
	Exports *service.ExportService
	// AutoApprove skips the approval queue. Set in standalone mode where
	// no frontend is around to answer.
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	approval := NewApprovalQueue(ctx, deps.Emitter)
	approval.autoApprove = deps.AutoApprove
	s := &Server{
		emitter:  deps.Emitter,
		approval: approval,
		docs:     deps.Docs,
		exports:  deps.Exports,
	}

	s.mcp = server.NewMCPServer(
		"markup-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerShapeTools()
	s.registerCameraTools()
	s.registerExportTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// StartHTTP serves MCP over streamable HTTP on addr until Shutdown.
// Used by the desktop app so agents talk to the document on screen.
func (s *Server) StartHTTP(addr string) error {
	s.http = server.NewStreamableHTTPServer(s.mcp)
	log.Printf("[MCP] Starting HTTP server on %s", addr)
	return s.http.Start(addr)
}

// Shutdown stops the HTTP server, if running.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) bool {
	return s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) bool {
	return s.approval.Reject(actionID)
}

// PendingApprovals lists the tool calls waiting for the user.
func (s *Server) PendingApprovals() []PendingAction {
	return s.approval.Pending()
}

// ── Helpers ────────────────────────────────────────────────

// EventShapesChanged tells the frontend an agent edited the canvas, so it
// can flash the affected shapes.
const EventShapesChanged = "mcp:shapes-changed"

// ShapesChanged is the payload of mcp:shapes-changed.
type ShapesChanged struct {
	Action   string           `json:"action"`
	ShapeIDs []domain.ShapeID `json:"shapeIds,omitempty"`
}

func (s *Server) notifyShapesChanged(ctx context.Context, action string, ids ...domain.ShapeID) {
	s.emitter.Emit(ctx, EventShapesChanged, ShapesChanged{Action: action, ShapeIDs: ids})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
