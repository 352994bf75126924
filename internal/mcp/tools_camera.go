package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"markup/internal/domain"
)

func (s *Server) registerCameraTools() {
	s.mcp.AddTool(mcp.NewTool("get_overlay",
		mcp.WithDescription("Get the viewport and the screen rectangles of the visible pages, with the even-odd path shading everything outside them"),
	), s.handleGetOverlay)

	s.mcp.AddTool(mcp.NewTool("set_camera",
		mcp.WithDescription("Move the camera. The position is clamped so the document stays in view."),
		mcp.WithNumber("x", mcp.Description("Camera X offset in page units"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Camera Y offset in page units"), mcp.Required()),
		mcp.WithNumber("z", mcp.Description("Zoom level (optional, keeps the current zoom)")),
	), s.handleSetCamera)

	s.mcp.AddTool(mcp.NewTool("zoom_in",
		mcp.WithDescription("Zoom in one step around the viewport centre"),
	), s.handleZoomIn)

	s.mcp.AddTool(mcp.NewTool("zoom_out",
		mcp.WithDescription("Zoom out one step around the viewport centre"),
	), s.handleZoomOut)

	s.mcp.AddTool(mcp.NewTool("reset_camera",
		mcp.WithDescription("Fit the document width and scroll to the first page"),
	), s.handleResetCamera)
}

func (s *Server) handleGetOverlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ov, err := s.docs.Overlay()
	if err != nil {
		return nil, err
	}
	return jsonResult(ov)
}

func (s *Server) handleSetCamera(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	p, err := pointArg(args)
	if err != nil {
		return nil, err
	}
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	z := info.Camera.Z
	if v, ok := numberArg(args, "z"); ok && v > 0 {
		z = v
	}
	cam, err := s.docs.SetCamera(ctx, domain.Camera{X: p.X, Y: p.Y, Z: z})
	if err != nil {
		return nil, err
	}
	return jsonResult(cam)
}

func (s *Server) handleZoomIn(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cam, err := s.docs.ZoomIn(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(cam)
}

func (s *Server) handleZoomOut(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cam, err := s.docs.ZoomOut(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(cam)
}

func (s *Server) handleResetCamera(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cam, err := s.docs.ResetCamera(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(cam)
}
