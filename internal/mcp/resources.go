package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"markup/internal/export"
)

func (s *Server) registerResources() {
	// ── markup://document ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"markup://document",
		"Open Document",
		mcp.WithMIMEType("application/json"),
	), s.handleDocumentResource)

	// ── markup://page/{number}/shapes ──────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"markup://page/{number}/shapes",
			"Shapes on a Page",
		),
		s.handlePageShapesResource,
	)
}

func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	pages := make([]pageSummary, len(info.Pages))
	for i, p := range info.Pages {
		pages[i] = pageSummary{Number: i + 1, ShapeID: p.ShapeID, Bounds: p.Bounds}
	}
	return jsonContents("markup://document", map[string]any{
		"name":   info.Name,
		"bounds": info.Bounds,
		"pages":  pages,
	})
}

func (s *Server) handlePageShapesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	n, err := pageNumberFromURI(uri)
	if err != nil {
		return nil, err
	}
	info, err := s.docs.Document()
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(info.Pages) {
		return nil, fmt.Errorf("page %d out of range (document has %d)", n, len(info.Pages))
	}
	page := info.Pages[n-1]

	var summaries []shapeSummary
	for _, sh := range export.ShapesIn(s.docs.Shapes(), page.Bounds) {
		summaries = append(summaries, shapeSummary{Shape: sh, Pinned: s.docs.IsPinned(sh.ID)})
	}
	return jsonContents(uri, summaries)
}

// pageNumberFromURI extracts the page number from "markup://page/{n}/shapes".
func pageNumberFromURI(uri string) (int, error) {
	rest, ok := strings.CutPrefix(uri, "markup://page/")
	if !ok {
		return 0, fmt.Errorf("unexpected resource URI: %s", uri)
	}
	num, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, fmt.Errorf("could not extract page number from URI: %s", uri)
	}
	return n, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
