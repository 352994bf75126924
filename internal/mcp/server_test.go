package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"markup/internal/config"
	"markup/internal/domain"
	"markup/internal/importer"
	"markup/internal/service"
)

func newTestServer(t *testing.T) (*Server, *service.DocumentService) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	src := importer.DataURI("image/png", buf.Bytes())

	cfg := config.Default()
	cfg.Export.Dir = t.TempDir()
	emitter := &service.MockEmitter{}
	docs := service.NewDocumentService(cfg, emitter)
	_, err := docs.OpenRendered(context.Background(), "scan.pdf", "", []importer.RenderedPage{
		{Source: src, Width: 200, Height: 100},
		{Source: src, Width: 200, Height: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := New(context.Background(), Deps{
		Emitter:     emitter,
		Docs:        docs,
		Exports:     service.NewExportService(docs, nil, emitter),
		AutoApprove: true,
	})
	return s, docs
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return text.Text
}

func TestGetDocument_OmitsPageSources(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleGetDocument(context.Background(), call(nil))
	if err != nil {
		t.Fatal(err)
	}
	var info service.DocumentInfo
	if err := json.Unmarshal([]byte(resultText(t, res)), &info); err != nil {
		t.Fatal(err)
	}
	if len(info.Pinned) != 2 || info.Bounds != (domain.Rect{W: 200, H: 232}) {
		t.Errorf("info = %+v", info)
	}
	for _, p := range info.Pages {
		if p.Source != "" {
			t.Error("page source leaked into the tool result")
		}
	}
}

func TestAddStroke_StoresRelativePoints(t *testing.T) {
	s, docs := newTestServer(t)
	res, err := s.handleAddStroke(context.Background(), call(map[string]any{
		"pointsJSON": "[[10,50],[110,50],[110,70]]",
		"color":      "blue",
	}))
	if err != nil {
		t.Fatal(err)
	}
	var sh domain.Shape
	if err := json.Unmarshal([]byte(resultText(t, res)), &sh); err != nil {
		t.Fatal(err)
	}
	if sh.X != 10 || sh.Y != 50 || sh.W != 100 || sh.H != 20 {
		t.Errorf("stroke placed at %+v", sh.Bounds())
	}
	stored, err := docs.Shape(sh.ID)
	if err != nil {
		t.Fatal(err)
	}
	points := stored.Props["points"].([]any)
	last := points[2].(map[string]any)
	if last["x"] != 100.0 || last["y"] != 20.0 {
		t.Errorf("last point = %v", last)
	}
}

func TestAddStroke_RejectsSinglePoint(t *testing.T) {
	s, _ := newTestServer(t)
	if _, err := s.handleAddStroke(context.Background(), call(map[string]any{"pointsJSON": "[[1,2]]"})); err == nil {
		t.Error("expected a one-point stroke to fail")
	}
}

func TestUpdateShape_PageStaysLocked(t *testing.T) {
	s, docs := newTestServer(t)
	info, _ := docs.Document()
	page := info.Pinned[1]

	res, err := s.handleUpdateShape(context.Background(), call(map[string]any{
		"shapeId":   string(page),
		"patchJSON": `{"isLocked": false, "x": 40}`,
	}))
	if err != nil {
		t.Fatal(err)
	}
	var sh domain.Shape
	if err := json.Unmarshal([]byte(resultText(t, res)), &sh); err != nil {
		t.Fatal(err)
	}
	if !sh.IsLocked || sh.X != 40 {
		t.Errorf("page after update = %+v", sh)
	}
}

func TestDeleteShapes_RefusesPages(t *testing.T) {
	s, docs := newTestServer(t)
	ctx := context.Background()
	info, _ := docs.Document()

	ids, _ := json.Marshal([]domain.ShapeID{info.Pinned[0]})
	if _, err := s.handleDeleteShapes(ctx, call(map[string]any{"shapeIdsJSON": string(ids)})); err == nil {
		t.Fatal("expected page delete to be refused")
	}

	sticker, err := docs.PlaceSticker(ctx, domain.Vec{X: 50, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	ids, _ = json.Marshal([]domain.ShapeID{sticker.ID})
	res, err := s.handleDeleteShapes(ctx, call(map[string]any{"shapeIdsJSON": string(ids)}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "Deleted 1 shape(s)" {
		t.Errorf("result = %q", got)
	}
	if len(docs.Shapes()) != 2 {
		t.Errorf("%d shapes left", len(docs.Shapes()))
	}
	notices := s.emitter.(*service.MockEmitter).Named(EventShapesChanged)
	if len(notices) != 1 || notices[0].(ShapesChanged).Action != "deleted" {
		t.Errorf("shape notices = %+v", notices)
	}
}

func TestListShapes_AnnotationsOnly(t *testing.T) {
	s, docs := newTestServer(t)
	ctx := context.Background()
	if _, err := s.handleAddGeo(ctx, call(map[string]any{"geo": "ellipse", "x": 5.0, "y": 5.0, "width": 30.0, "height": 20.0})); err != nil {
		t.Fatal(err)
	}

	res, err := s.handleListShapes(ctx, call(map[string]any{"annotationsOnly": true}))
	if err != nil {
		t.Fatal(err)
	}
	var shapes []shapeSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &shapes); err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 1 || shapes[0].Type != domain.ShapeTypeGeo || shapes[0].Pinned {
		t.Errorf("shapes = %+v", shapes)
	}
	if len(docs.Shapes()) != 3 {
		t.Error("geo not added")
	}
}

func TestExportPNG_Tool(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleExportPNG(context.Background(), call(map[string]any{"page": 2.0}))
	if err != nil {
		t.Fatal(err)
	}
	var out service.ExportResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
	if _, err := s.handleExportPNG(context.Background(), call(map[string]any{"page": 0.0})); err == nil {
		t.Error("expected page 0 to be rejected")
	}
}

func TestPageNumberFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want int
		ok   bool
	}{
		{"markup://page/3/shapes", 3, true},
		{"markup://page/12/shapes", 12, true},
		{"markup://page/x/shapes", 0, false},
		{"file://page/1/shapes", 0, false},
	}
	for _, tt := range tests {
		got, err := pageNumberFromURI(tt.uri)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("pageNumberFromURI(%q) = %d, %v", tt.uri, got, err)
		}
	}
}

func TestPageShapesResource(t *testing.T) {
	s, docs := newTestServer(t)
	ctx := context.Background()
	// Inside page 2 only.
	if _, err := docs.PlaceSticker(ctx, domain.Vec{X: 100, Y: 180}); err != nil {
		t.Fatal(err)
	}

	var req mcp.ReadResourceRequest
	req.Params.URI = "markup://page/2/shapes"
	contents, err := s.handlePageShapesResource(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var shapes []shapeSummary
	if err := json.Unmarshal([]byte(text), &shapes); err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 2 || !shapes[0].Pinned || shapes[1].Type != domain.ShapeTypeSticker {
		t.Errorf("page 2 shapes = %+v", shapes)
	}
}

// ─────────────────────────────────────────────────────────────
// ApprovalQueue tests
// ─────────────────────────────────────────────────────────────

func waitPending(t *testing.T, emitter *service.MockEmitter) PendingAction {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := emitter.Named(EventApprovalRequired); len(got) > 0 {
			return got[0].(PendingAction)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no approval request emitted")
	return PendingAction{}
}

func TestApprovalQueue_Approve(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)

	done := make(chan error, 1)
	go func() {
		done <- q.Ask(context.Background(), "delete_shapes", "Delete 1 shape(s)",
			map[string]any{"shapeIds": []string{"shape:a"}})
	}()
	action := waitPending(t, emitter)
	if action.Tool != "delete_shapes" || !strings.Contains(action.Metadata, "shape:a") {
		t.Errorf("pending action = %+v", action)
	}
	if got := q.Pending(); len(got) != 1 || got[0].ID != action.ID {
		t.Errorf("Pending() = %+v", got)
	}
	if !q.Approve(action.ID) {
		t.Fatal("Approve did not find the request")
	}
	if err := <-done; err != nil {
		t.Errorf("approved request failed: %v", err)
	}
	if q.Approve(action.ID) {
		t.Error("second answer should find nothing")
	}
}

func TestApprovalQueue_Reject(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)

	done := make(chan error, 1)
	go func() {
		done <- q.Ask(context.Background(), "clear_annotations", "Remove every annotation", nil)
	}()
	q.Reject(waitPending(t, emitter).ID)
	if err := <-done; !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
	if len(q.Pending()) != 0 {
		t.Error("rejected request still pending")
	}
}

func TestApprovalQueue_Timeout(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)
	q.timeout = 20 * time.Millisecond

	err := q.Ask(context.Background(), "clear_annotations", "Remove every annotation", nil)
	if !errors.Is(err, ErrApprovalTimeout) {
		t.Errorf("expected ErrApprovalTimeout, got %v", err)
	}
	if got := emitter.Named(EventApprovalDismissed); len(got) != 1 {
		t.Errorf("dismiss events = %d", len(got))
	}
}

func TestApprovalQueue_CallerGone(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- q.Ask(ctx, "delete_shapes", "Delete 2 shape(s)", nil)
	}()
	waitPending(t, emitter)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := emitter.Named(EventApprovalDismissed); len(got) != 1 {
		t.Errorf("dismiss events = %d", len(got))
	}
}

func TestApprovalQueue_AutoApprove(t *testing.T) {
	emitter := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), emitter)
	q.autoApprove = true
	if err := q.Ask(context.Background(), "clear_annotations", "", nil); err != nil {
		t.Fatal(err)
	}
	if len(emitter.Named(EventApprovalRequired)) != 0 {
		t.Error("auto-approved request reached the frontend")
	}
}
