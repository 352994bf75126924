package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("review_page",
		mcp.WithPromptDescription("Review one page of the open document and mark up what needs attention"),
		mcp.WithArgument("page",
			mcp.ArgumentDescription("Page number, starting at 1"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription("What to look for, e.g. typos, missing signatures"),
		),
	), s.handleReviewPagePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("sign_and_date",
		mcp.WithPromptDescription("Stamp today's date next to every signature line and export the result"),
	), s.handleSignAndDatePrompt)
}

func (s *Server) handleReviewPagePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	page := req.Params.Arguments["page"]
	focus := req.Params.Arguments["focus"]
	if focus == "" {
		focus = "anything a careful reader would flag"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review page %s", page),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review page %s of the open document, looking for %s. Follow these steps:

1. Use list_pages to find the bounds of page %s. All coordinates are canvas coordinates.
2. Read markup://page/%s/shapes to see the annotations already on it.
3. Circle each finding with add_geo (ellipse, red) and put a short note next to it with add_text.
4. Keep every annotation inside the page bounds so it is included in exports.

Never try to move, unlock or delete the page images themselves.`, page, focus, page, page),
				},
			},
		},
	}, nil
}

func (s *Server) handleSignAndDatePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Date every signature line",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Date the signature lines of the open document. Follow these steps:

1. Use get_document to see the pages and their bounds.
2. For each signature line, call add_date_stamp just right of the line.
3. Export the result with export_pdf and report the file path.`,
				},
			},
		},
	}, nil
}
