package scene_test

import (
	"errors"
	"testing"

	"markup/internal/domain"
	"markup/internal/scene"
)

func ptr[T any](v T) *T { return &v }

func TestCreateShapes_AssignsAscendingIndices(t *testing.T) {
	s := scene.New()
	if err := s.CreateShapes(
		domain.Shape{ID: "shape:a", Type: domain.ShapeTypeDraw},
		domain.Shape{ID: "shape:b", Type: domain.ShapeTypeDraw},
	); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateShapes(domain.Shape{ID: "shape:c", Type: domain.ShapeTypeText}); err != nil {
		t.Fatal(err)
	}
	got := s.SortedChildIDs(domain.CanvasPageID)
	want := []domain.ShapeID{"shape:a", "shape:b", "shape:c"}
	if len(got) != len(want) {
		t.Fatalf("children = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("children[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	a, _ := s.Shape("shape:a")
	if a.ParentID != domain.CanvasPageID {
		t.Errorf("parent = %q", a.ParentID)
	}
}

func TestCreateShapes_Duplicate(t *testing.T) {
	s := scene.New()
	if err := s.CreateShapes(domain.Shape{ID: "shape:a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateShapes(domain.Shape{ID: "shape:a"}); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestUpdateShapes_BeforeChangeRewrites(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a", IsLocked: true})
	s.RegisterBeforeChange(func(prev, next domain.Shape) domain.Shape {
		next.IsLocked = true
		return next
	})

	changes := 0
	s.RegisterAfterChange(func(prev, next domain.Shape) error {
		changes++
		return nil
	})

	if err := s.UpdateShapes(domain.ShapePatch{ID: "shape:a", IsLocked: ptr(false)}); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Shape("shape:a")
	if !a.IsLocked {
		t.Error("before-change hook was bypassed")
	}
	if changes != 0 {
		t.Errorf("rewritten no-op update fired %d after-change hooks", changes)
	}

	if err := s.UpdateShapes(domain.ShapePatch{ID: "shape:a", IsLocked: ptr(false), X: ptr(10.0)}); err != nil {
		t.Fatal(err)
	}
	a, _ = s.Shape("shape:a")
	if !a.IsLocked || a.X != 10 {
		t.Errorf("got %+v", a)
	}
	if changes != 1 {
		t.Errorf("after-change fired %d times, want 1", changes)
	}
}

func TestUpdateShapes_Missing(t *testing.T) {
	s := scene.New()
	err := s.UpdateShapes(domain.ShapePatch{ID: "shape:nope", X: ptr(1.0)})
	if !errors.Is(err, scene.ErrShapeNotFound) {
		t.Errorf("expected ErrShapeNotFound, got %v", err)
	}
}

func TestBatch_HooksRunAfterCommitAndDiffIsSingle(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a"}, domain.Shape{ID: "shape:b"})

	var diffs []scene.Diff
	s.Subscribe(func(d scene.Diff) { diffs = append(diffs, d) })

	var seenX []float64
	s.RegisterAfterChange(func(prev, next domain.Shape) error {
		// Both writes are committed before any hook runs.
		b, _ := s.Shape("shape:b")
		seenX = append(seenX, b.X)
		return nil
	})

	if err := s.UpdateShapes(
		domain.ShapePatch{ID: "shape:a", X: ptr(1.0)},
		domain.ShapePatch{ID: "shape:b", X: ptr(2.0)},
	); err != nil {
		t.Fatal(err)
	}
	if len(seenX) != 2 || seenX[0] != 2 || seenX[1] != 2 {
		t.Errorf("hooks saw %v", seenX)
	}
	if len(diffs) != 1 || len(diffs[0].Updated) != 2 {
		t.Errorf("diffs = %+v", diffs)
	}
}

func TestBatch_HookWritesAreDrained(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a"}, domain.Shape{ID: "shape:b"})

	s.RegisterAfterChange(func(prev, next domain.Shape) error {
		if next.ID == "shape:a" {
			return s.UpdateShapes(domain.ShapePatch{ID: "shape:b", Y: ptr(next.X)})
		}
		return nil
	})
	var diffs []scene.Diff
	s.Subscribe(func(d scene.Diff) { diffs = append(diffs, d) })

	if err := s.UpdateShapes(domain.ShapePatch{ID: "shape:a", X: ptr(7.0)}); err != nil {
		t.Fatal(err)
	}
	b, _ := s.Shape("shape:b")
	if b.Y != 7 {
		t.Errorf("hook write lost: %+v", b)
	}
	if len(diffs) != 1 || len(diffs[0].Updated) != 2 {
		t.Errorf("expected one diff with both updates, got %+v", diffs)
	}
}

func TestBatch_RollsBackOnHookError(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a"})
	boom := errors.New("boom")
	s.RegisterAfterCreate(func(sh domain.Shape) error {
		if sh.ID == "shape:bad" {
			return boom
		}
		return nil
	})
	notified := false
	s.Subscribe(func(scene.Diff) { notified = true })

	err := s.CreateShapes(domain.Shape{ID: "shape:ok"}, domain.Shape{ID: "shape:bad"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	if _, ok := s.Shape("shape:ok"); ok {
		t.Error("failed batch left a shape behind")
	}
	if notified {
		t.Error("listeners notified for a rolled back batch")
	}
	if got := len(s.Shapes()); got != 1 {
		t.Errorf("shape count = %d, want 1", got)
	}
}

func TestUnregisterHook(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a"})
	calls := 0
	off := s.RegisterAfterChange(func(prev, next domain.Shape) error { calls++; return nil })
	s.UpdateShapes(domain.ShapePatch{ID: "shape:a", X: ptr(1.0)})
	off()
	s.UpdateShapes(domain.ShapePatch{ID: "shape:a", X: ptr(2.0)})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDeleteShapes(t *testing.T) {
	s := scene.New()
	s.CreateShapes(domain.Shape{ID: "shape:a"}, domain.Shape{ID: "shape:b"})
	if err := s.DeleteShapes("shape:a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Shape("shape:a"); ok {
		t.Error("shape still present")
	}
	if err := s.DeleteShapes("shape:a"); !errors.Is(err, scene.ErrShapeNotFound) {
		t.Errorf("expected ErrShapeNotFound, got %v", err)
	}
}

func TestViewport(t *testing.T) {
	s := scene.New()
	var resized []domain.Rect
	s.OnViewportResize(func(r domain.Rect) { resized = append(resized, r) })
	s.SetViewportSize(1000, 800)
	s.SetViewportSize(1000, 800)
	if len(resized) != 1 {
		t.Errorf("resize notifications = %d, want 1", len(resized))
	}

	s.SetCameraConstraints(domain.CameraConstraints{
		Bounds:      domain.Rect{W: 200, H: 250},
		Padding:     domain.Vec{X: 164, Y: 64},
		Origin:      domain.Vec{X: 0.5},
		InitialZoom: domain.ZoomFitX100,
		Behavior:    domain.BehaviorContain,
	})
	s.ResetCamera()
	if got := s.PageToViewport(domain.Vec{}); got != (domain.Vec{X: 400, Y: 64}) {
		t.Errorf("page origin on screen = %+v", got)
	}
	vp := s.ViewportPageBounds()
	if vp != (domain.Rect{X: -400, Y: -64, W: 1000, H: 800}) {
		t.Errorf("viewport page bounds = %+v", vp)
	}

	s.ClearCameraConstraints()
	s.ResetCamera()
	if s.Camera() != (domain.Camera{Z: 1}) {
		t.Errorf("unconstrained reset = %+v", s.Camera())
	}
}
