package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("export_png",
		mcp.WithDescription("Export one annotated page as a PNG file"),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1"), mcp.Required()),
		mcp.WithString("dir", mcp.Description("Output directory (optional, defaults to the configured export dir)")),
	), s.handleExportPNG)

	s.mcp.AddTool(mcp.NewTool("export_pdf",
		mcp.WithDescription("Export every annotated page into one PDF file"),
		mcp.WithString("dir", mcp.Description("Output directory (optional, defaults to the configured export dir)")),
	), s.handleExportPDF)

	s.mcp.AddTool(mcp.NewTool("list_exports",
		mcp.WithDescription("List recent exports"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (optional, default 20)")),
	), s.handleListExports)
}

func (s *Server) handleExportPNG(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, ok := numberArg(req.GetArguments(), "page")
	if !ok || page < 1 {
		return nil, fmt.Errorf("page must be 1 or more")
	}
	res, err := s.exports.ExportPNG(ctx, int(page)-1, req.GetString("dir", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleExportPDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.exports.ExportPDF(ctx, req.GetString("dir", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleListExports(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 20
	if v, ok := numberArg(req.GetArguments(), "limit"); ok && v > 0 {
		limit = int(v)
	}
	runs, err := s.exports.History(limit)
	if err != nil {
		return nil, err
	}
	return jsonResult(runs)
}
