package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"markup/internal/domain"
)

func (s *Server) registerDocumentTools() {
	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Describe the open document: name, pages, pinned page shapes, aggregate bounds and camera"),
	), s.handleGetDocument)

	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List the document pages with their page shape IDs and canvas bounds, top to bottom"),
	), s.handleListPages)

	// ── get_document_bounds ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document_bounds",
		mcp.WithDescription("Get the smallest rectangle containing every page"),
	), s.handleGetDocumentBounds)

	// ── open_image ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_image",
		mcp.WithDescription("Open an image file (png, jpeg, gif, bmp, tiff, webp) as a one-page document, replacing the open one"),
		mcp.WithString("path",
			mcp.Description("Absolute path of the image file"),
			mcp.Required(),
		),
	), s.handleOpenImage)

	// ── inspect_pdf ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("inspect_pdf",
		mcp.WithDescription("Read the page sizes of a PDF file without opening it"),
		mcp.WithString("path",
			mcp.Description("Absolute path of the PDF file"),
			mcp.Required(),
		),
	), s.handleInspectPDF)
}

type pageSummary struct {
	Number  int            `json:"number"`
	ShapeID domain.ShapeID `json:"shapeId"`
	Bounds  domain.Rect    `json:"bounds"`
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	// Page sources are data URIs; keep them out of agent context.
	for i := range info.Pages {
		info.Pages[i].Source = ""
	}
	return jsonResult(info)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	pages := make([]pageSummary, len(info.Pages))
	for i, p := range info.Pages {
		pages[i] = pageSummary{Number: i + 1, ShapeID: p.ShapeID, Bounds: p.Bounds}
	}
	return jsonResult(pages)
}

func (s *Server) handleGetDocumentBounds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	return jsonResult(info.Bounds)
}

func (s *Server) handleOpenImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	info, err := s.docs.OpenImageFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Opened %s (%d page, %.0fx%.0f)", info.Name, len(info.Pages), info.Bounds.W, info.Bounds.H)), nil
}

func (s *Server) handleInspectPDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	pages, _, err := s.docs.InspectPDF(path)
	if err != nil {
		return nil, err
	}
	return jsonResult(pages)
}
