package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"markup/internal/domain"
)

func (s *Server) registerShapeTools() {
	// ── list_shapes ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_shapes",
		mcp.WithDescription("List shapes on the canvas, bottommost first. Page images are included and marked pinned."),
		mcp.WithString("type", mcp.Description("Only shapes of this type: image, draw, text, geo, sticker (optional)")),
		mcp.WithBoolean("annotationsOnly", mcp.Description("Skip the pinned page shapes (optional)")),
	), s.handleListShapes)

	// ── get_shape ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_shape",
		mcp.WithDescription("Get one shape by ID"),
		mcp.WithString("shapeId", mcp.Description("Shape ID"), mcp.Required()),
	), s.handleGetShape)

	// ── add_text ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_text",
		mcp.WithDescription("Add a text annotation at a canvas position"),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithString("text", mcp.Description("Text content"), mcp.Required()),
		mcp.WithString("color", mcp.Description("Color name or hex (optional, e.g. red, #1d4ed8)")),
		mcp.WithString("size", mcp.Description("s, m, l or xl (optional)")),
	), s.handleAddText)

	// ── add_geo ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_geo",
		mcp.WithDescription("Add a rectangle or ellipse, e.g. to box or circle a region of a page"),
		mcp.WithString("geo", mcp.Description("rectangle or ellipse"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Height"), mcp.Required()),
		mcp.WithString("color", mcp.Description("Color name or hex (optional)")),
		mcp.WithBoolean("filled", mcp.Description("Solid fill instead of an outline (optional)")),
	), s.handleAddGeo)

	// ── add_stroke ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_stroke",
		mcp.WithDescription("Add a freehand stroke through canvas points, e.g. to underline text"),
		mcp.WithString("pointsJSON", mcp.Description(`JSON array of [x, y] pairs, e.g. [[10,20],[200,20]]`), mcp.Required()),
		mcp.WithString("color", mcp.Description("Color name or hex (optional)")),
		mcp.WithString("size", mcp.Description("s, m, l or xl (optional)")),
	), s.handleAddStroke)

	// ── add_sticker ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_sticker",
		mcp.WithDescription("Place a heart sticker centred on a canvas position"),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
	), s.handleAddSticker)

	// ── add_date_stamp ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_date_stamp",
		mcp.WithDescription("Stamp today's date as text near a canvas position"),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
	), s.handleAddDateStamp)

	// ── update_shape ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_shape",
		mcp.WithDescription("Update a shape. Page shapes always stay locked and beneath every annotation."),
		mcp.WithString("shapeId", mcp.Description("Shape ID"), mcp.Required()),
		mcp.WithString("patchJSON", mcp.Description("JSON object with fields to change (x, y, w, h, index, isLocked, props)"), mcp.Required()),
	), s.handleUpdateShape)

	// ── delete_shapes ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_shapes",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete annotation shapes. Page shapes cannot be deleted. Requires user approval."),
		mcp.WithString("shapeIdsJSON", mcp.Description(`JSON array of shape IDs, e.g. ["shape:..."]`), mcp.Required()),
	), s.handleDeleteShapes)

	// ── clear_annotations ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("clear_annotations",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete every annotation, keeping the pages. Requires user approval."),
	), s.handleClearAnnotations)
}

type shapeSummary struct {
	domain.Shape
	Pinned bool `json:"pinned"`
}

func (s *Server) handleListShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.docs.Document(); err != nil {
		return nil, err
	}
	kind := req.GetString("type", "")
	annotationsOnly := req.GetBool("annotationsOnly", false)

	summaries := []shapeSummary{}
	for _, sh := range s.docs.Shapes() {
		pinned := s.docs.IsPinned(sh.ID)
		if (kind != "" && string(sh.Type) != kind) || (annotationsOnly && pinned) {
			continue
		}
		summaries = append(summaries, shapeSummary{Shape: sh, Pinned: pinned})
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("shapeId", "")
	if id == "" {
		return nil, fmt.Errorf("shapeId is required")
	}
	sh, err := s.docs.Shape(domain.ShapeID(id))
	if err != nil {
		return nil, err
	}
	return jsonResult(shapeSummary{Shape: sh, Pinned: s.docs.IsPinned(sh.ID)})
}

func (s *Server) handleAddText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	at, err := pointArg(args)
	if err != nil {
		return nil, err
	}
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	size := req.GetString("size", "m")
	lines := strings.Split(text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, len([]rune(l)))
	}
	// Rough box for hit testing and export collection; the editor
	// re-measures on load.
	em := map[string]float64{"s": 18, "m": 24, "l": 36, "xl": 44}[size]
	if em == 0 {
		em = 24
	}
	sh := domain.Shape{
		Type:  domain.ShapeTypeText,
		X:     at.X,
		Y:     at.Y,
		W:     math.Ceil(float64(longest) * em * 0.6),
		H:     math.Ceil(float64(len(lines)) * em * 1.2),
		Props: map[string]any{"text": text, "size": size},
	}
	if c := req.GetString("color", ""); c != "" {
		sh.Props["color"] = c
	}
	return s.create(ctx, sh)
}

func (s *Server) handleAddGeo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	at, err := pointArg(args)
	if err != nil {
		return nil, err
	}
	geo := req.GetString("geo", "")
	if geo != "rectangle" && geo != "ellipse" {
		return nil, fmt.Errorf("geo must be rectangle or ellipse, got %q", geo)
	}
	w, okW := numberArg(args, "width")
	h, okH := numberArg(args, "height")
	if !okW || !okH || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("positive width and height are required")
	}
	sh := domain.Shape{
		Type:  domain.ShapeTypeGeo,
		X:     at.X,
		Y:     at.Y,
		W:     w,
		H:     h,
		Props: map[string]any{"geo": geo},
	}
	if c := req.GetString("color", ""); c != "" {
		sh.Props["color"] = c
	}
	if req.GetBool("filled", false) {
		sh.Props["fill"] = "solid"
	}
	return s.create(ctx, sh)
}

func (s *Server) handleAddStroke(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var pairs [][2]float64
	if err := parseJSON(req.GetString("pointsJSON", ""), &pairs); err != nil {
		return nil, fmt.Errorf("parse pointsJSON: %w", err)
	}
	if len(pairs) < 2 {
		return nil, fmt.Errorf("a stroke needs at least two points")
	}
	sh := strokeShape(pairs)
	sh.Props["size"] = req.GetString("size", "m")
	if c := req.GetString("color", ""); c != "" {
		sh.Props["color"] = c
	}
	return s.create(ctx, sh)
}

// strokeShape positions a draw shape at the top-left of its points and
// stores the points relative to it.
func strokeShape(pairs [][2]float64) domain.Shape {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pairs {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	points := make([]any, len(pairs))
	for i, p := range pairs {
		points[i] = map[string]any{"x": p[0] - minX, "y": p[1] - minY}
	}
	return domain.Shape{
		Type:  domain.ShapeTypeDraw,
		X:     minX,
		Y:     minY,
		W:     math.Max(maxX-minX, 1),
		H:     math.Max(maxY-minY, 1),
		Props: map[string]any{"points": points},
	}
}

func (s *Server) handleAddSticker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	at, err := pointArg(req.GetArguments())
	if err != nil {
		return nil, err
	}
	sh, err := s.docs.PlaceSticker(ctx, at)
	if err != nil {
		return nil, err
	}
	s.notifyShapesChanged(ctx, "created", sh.ID)
	return jsonResult(sh)
}

func (s *Server) handleAddDateStamp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	at, err := pointArg(req.GetArguments())
	if err != nil {
		return nil, err
	}
	sh, err := s.docs.PlaceDateStamp(ctx, at)
	if err != nil {
		return nil, err
	}
	s.notifyShapesChanged(ctx, "created", sh.ID)
	return jsonResult(sh)
}

func (s *Server) create(ctx context.Context, sh domain.Shape) (*mcp.CallToolResult, error) {
	sh.ID = domain.NewShapeID()
	if err := s.docs.CreateShapes(ctx, sh); err != nil {
		return nil, fmt.Errorf("create %s: %w", sh.Type, err)
	}
	created, err := s.docs.Shape(sh.ID)
	if err != nil {
		return nil, err
	}
	s.notifyShapesChanged(ctx, "created", sh.ID)
	return jsonResult(created)
}

func (s *Server) handleUpdateShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("shapeId", "")
	if id == "" {
		return nil, fmt.Errorf("shapeId is required")
	}
	var patch domain.ShapePatch
	if err := parseJSON(req.GetString("patchJSON", ""), &patch); err != nil {
		return nil, fmt.Errorf("parse patchJSON: %w", err)
	}
	patch.ID = domain.ShapeID(id)
	if err := s.docs.UpdateShapes(ctx, patch); err != nil {
		return nil, fmt.Errorf("update shape: %w", err)
	}
	sh, err := s.docs.Shape(patch.ID)
	if err != nil {
		return nil, err
	}
	s.notifyShapesChanged(ctx, "updated", sh.ID)
	return jsonResult(sh)
}

func (s *Server) handleDeleteShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := shapeIDsArg(req.GetArguments(), "shapeIdsJSON")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if s.docs.IsPinned(id) {
			return nil, fmt.Errorf("%s is a page shape and cannot be deleted", id)
		}
	}

	err = s.approval.Ask(ctx, "delete_shapes",
		fmt.Sprintf("Delete %d shape(s)", len(ids)), map[string]any{"shapeIds": ids})
	if errors.Is(err, ErrRejected) {
		return textResult("Action rejected by user"), nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.docs.DeleteShapes(ctx, ids...); err != nil {
		return nil, fmt.Errorf("delete shapes: %w", err)
	}
	s.notifyShapesChanged(ctx, "deleted", ids...)
	return textResult(fmt.Sprintf("Deleted %d shape(s)", len(ids))), nil
}

func (s *Server) handleClearAnnotations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	err = s.approval.Ask(ctx, "clear_annotations",
		fmt.Sprintf("Remove every annotation from %s", info.Name), nil)
	if errors.Is(err, ErrRejected) {
		return textResult("Action rejected by user"), nil
	}
	if err != nil {
		return nil, err
	}
	n, err := s.docs.ClearAnnotations(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear annotations: %w", err)
	}
	s.notifyShapesChanged(ctx, "cleared")
	return textResult(fmt.Sprintf("Removed %d annotation(s)", n)), nil
}
