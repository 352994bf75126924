package layer_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"markup/internal/domain"
	"markup/internal/fracindex"
	"markup/internal/layer"
	"markup/internal/scene"
)

func ptr[T any](v T) *T { return &v }

// setup builds a scene with n locked page shapes at the bottom.
func setup(t *testing.T, n int) (*scene.Scene, []domain.ShapeID) {
	t.Helper()
	s := scene.New()
	var pinned []domain.ShapeID
	for i := 0; i < n; i++ {
		id := domain.ShapeID(fmt.Sprintf("shape:page%d", i))
		pinned = append(pinned, id)
		if err := s.CreateShapes(domain.Shape{ID: id, Type: domain.ShapeTypeImage, IsLocked: true, W: 100, H: 100}); err != nil {
			t.Fatal(err)
		}
	}
	return s, pinned
}

func assertPinnedAtBottom(t *testing.T, s *scene.Scene, pinned []domain.ShapeID) {
	t.Helper()
	children := s.SortedChildIDs(domain.CanvasPageID)
	if len(children) < len(pinned) {
		t.Fatalf("only %d children for %d pinned shapes", len(children), len(pinned))
	}
	for i, id := range pinned {
		if children[i] != id {
			t.Fatalf("slot %d holds %s, want %s (children %v)", i, children[i], id, children)
		}
		sh, _ := s.Shape(id)
		if !sh.IsLocked {
			t.Fatalf("pinned shape %s is unlocked", id)
		}
	}
}

func TestResolve(t *testing.T) {
	pinned := map[domain.ShapeID]bool{"shape:p": true}
	prior := domain.Shape{ID: "shape:p", IsLocked: true}

	got := layer.Resolve(pinned, prior, domain.Shape{ID: "shape:p", IsLocked: false, X: 42})
	if !got.IsLocked || got.X != 42 {
		t.Errorf("pinned unlock not rewritten correctly: %+v", got)
	}

	free := domain.Shape{ID: "shape:x", IsLocked: false, X: 1}
	if got := layer.Resolve(pinned, domain.Shape{ID: "shape:x", IsLocked: true}, free); got.IsLocked {
		t.Errorf("non-pinned shape was touched: %+v", got)
	}
}

func TestPlan_NoWriteWhenInPlace(t *testing.T) {
	s, pinned := setup(t, 3)
	s.CreateShapes(domain.Shape{ID: "shape:ink"})
	patches, err := layer.Plan(pinned, s.Shape, s.SortedChildIDs(domain.CanvasPageID))
	if err != nil {
		t.Fatal(err)
	}
	if patches != nil {
		t.Errorf("expected no patches, got %+v", patches)
	}
}

func TestPlan_KeysBelowLowestNonPinned(t *testing.T) {
	s := scene.New()
	s.CreateShapes(
		domain.Shape{ID: "shape:ink", Index: "a0"},
		domain.Shape{ID: "shape:p0", Index: "a1", IsLocked: true},
		domain.Shape{ID: "shape:p1", Index: "a2", IsLocked: true},
	)
	pinned := []domain.ShapeID{"shape:p0", "shape:p1"}
	patches, err := layer.Plan(pinned, s.Shape, s.SortedChildIDs(domain.CanvasPageID))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(patches))
	}
	if patches[0].ID != "shape:p0" || patches[1].ID != "shape:p1" {
		t.Errorf("relative order not preserved: %s, %s", patches[0].ID, patches[1].ID)
	}
	if !(*patches[0].Index < *patches[1].Index && *patches[1].Index < "a0") {
		t.Errorf("keys %q, %q not ascending below a0", *patches[0].Index, *patches[1].Index)
	}
	for _, p := range patches {
		if p.IsLocked == nil || !*p.IsLocked {
			t.Errorf("patch %s does not lock", p.ID)
		}
	}
}

func TestPlan_SwappedPagesFollowPageListOrder(t *testing.T) {
	s := scene.New()
	s.CreateShapes(
		domain.Shape{ID: "shape:p1", Index: "a0", IsLocked: true},
		domain.Shape{ID: "shape:p0", Index: "a1", IsLocked: true},
		domain.Shape{ID: "shape:ink", Index: "a2"},
	)
	pinned := []domain.ShapeID{"shape:p0", "shape:p1"}
	patches, err := layer.Plan(pinned, s.Shape, s.SortedChildIDs(domain.CanvasPageID))
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 2 || patches[0].ID != "shape:p0" || patches[1].ID != "shape:p1" {
		t.Fatalf("patches = %+v", patches)
	}
	if !(*patches[0].Index < *patches[1].Index && *patches[1].Index < "a2") {
		t.Errorf("keys %q, %q not ascending below a2", *patches[0].Index, *patches[1].Index)
	}
}

func TestEnforcer_RestoresPageListOrder(t *testing.T) {
	s, pinned := setup(t, 2)
	e := layer.NewEnforcer(s, pinned)
	if _, err := e.Install(); err != nil {
		t.Fatal(err)
	}
	first, _ := s.Shape(pinned[0])
	below, err := fracindex.KeyBetween("", first.Index)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateShapes(domain.ShapePatch{ID: pinned[1], Index: &below}); err != nil {
		t.Fatal(err)
	}
	assertPinnedAtBottom(t, s, pinned)
	if e.Batches() != 1 {
		t.Errorf("batches = %d, want 1", e.Batches())
	}
}

func TestPlan_MissingPinnedShape(t *testing.T) {
	s, pinned := setup(t, 2)
	pinned = append(pinned, "shape:gone")
	_, err := layer.Plan(pinned, s.Shape, s.SortedChildIDs(domain.CanvasPageID))
	var missing *domain.MissingPinnedShapeError
	if !errors.As(err, &missing) || missing.ID != "shape:gone" {
		t.Errorf("expected MissingPinnedShapeError for shape:gone, got %v", err)
	}
}

func TestEnforcer_CorrectsShapeMovedBelowPages(t *testing.T) {
	s, pinned := setup(t, 2)
	e := layer.NewEnforcer(s, pinned)
	if _, err := e.Install(); err != nil {
		t.Fatal(err)
	}
	if e.Batches() != 0 {
		t.Errorf("install wrote %d batches on a correct scene", e.Batches())
	}

	// An annotation created below everything is pushed back above the pages.
	lowest := s.SortedChildIDs(domain.CanvasPageID)[0]
	first, _ := s.Shape(lowest)
	below, err := fracindex.KeyBetween("", first.Index)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateShapes(domain.Shape{ID: "shape:ink", Index: below}); err != nil {
		t.Fatal(err)
	}
	assertPinnedAtBottom(t, s, pinned)
	if e.Batches() != 1 {
		t.Errorf("expected exactly one corrective batch, got %d", e.Batches())
	}

	// Idempotent: running again writes nothing.
	if err := e.Correct(); err != nil {
		t.Fatal(err)
	}
	if e.Batches() != 1 {
		t.Errorf("second correction wrote a batch")
	}
}

func TestEnforcer_UnlockNeverSucceeds(t *testing.T) {
	s, pinned := setup(t, 2)
	e := layer.NewEnforcer(s, pinned)
	if _, err := e.Install(); err != nil {
		t.Fatal(err)
	}
	var observed []domain.Shape
	s.Subscribe(func(d scene.Diff) { observed = append(observed, d.Updated...) })

	for _, id := range pinned {
		if err := s.UpdateShapes(domain.ShapePatch{ID: id, IsLocked: ptr(false), X: ptr(5.0)}); err != nil {
			t.Fatal(err)
		}
		sh, _ := s.Shape(id)
		if !sh.IsLocked {
			t.Errorf("%s committed unlocked", id)
		}
		if sh.X != 5 {
			t.Errorf("%s lost the rest of the proposal: %+v", id, sh)
		}
	}
	for _, sh := range observed {
		if e.IsPinned(sh.ID) && !sh.IsLocked {
			t.Errorf("listener observed unlocked pinned shape %s", sh.ID)
		}
	}
}

func TestEnforcer_MissingShapeFailsMutation(t *testing.T) {
	s, pinned := setup(t, 2)
	s.CreateShapes(domain.Shape{ID: "shape:ink"})
	e := layer.NewEnforcer(s, pinned)
	if _, err := e.Install(); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteShapes(pinned[1]); err != nil {
		t.Fatal(err)
	}
	err := s.UpdateShapes(domain.ShapePatch{ID: "shape:ink", X: ptr(3.0)})
	var missing *domain.MissingPinnedShapeError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPinnedShapeError, got %v", err)
	}
	ink, _ := s.Shape("shape:ink")
	if ink.X != 0 {
		t.Error("failed mutation was committed")
	}
}

func TestEnforcer_Uninstall(t *testing.T) {
	s, pinned := setup(t, 1)
	e := layer.NewEnforcer(s, pinned)
	off, err := e.Install()
	if err != nil {
		t.Fatal(err)
	}
	off()
	if err := s.UpdateShapes(domain.ShapePatch{ID: pinned[0], IsLocked: ptr(false)}); err != nil {
		t.Fatal(err)
	}
	if sh, _ := s.Shape(pinned[0]); sh.IsLocked {
		t.Error("interceptor still active after uninstall")
	}
}

// Random mutation sequences never leave the pinned shapes out of place.
func TestEnforcer_InvariantUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		s, pinned := setup(t, 1+rng.Intn(4))
		e := layer.NewEnforcer(s, pinned)
		if _, err := e.Install(); err != nil {
			t.Fatal(err)
		}
		var others []domain.ShapeID
		for step := 0; step < 40; step++ {
			children := s.SortedChildIDs(domain.CanvasPageID)
			switch op := rng.Intn(4); {
			case op == 0 || len(others) == 0:
				id := domain.ShapeID(fmt.Sprintf("shape:r%d-%d", round, step))
				others = append(others, id)
				pos := rng.Intn(len(children) + 1)
				idx := randomKey(t, s, children, pos)
				if err := s.CreateShapes(domain.Shape{ID: id, Type: domain.ShapeTypeDraw, Index: idx}); err != nil {
					t.Fatal(err)
				}
			case op == 1:
				// Reorder any shape, pinned ones included.
				target := children[rng.Intn(len(children))]
				pos := rng.Intn(len(children) + 1)
				idx := randomKey(t, s, children, pos)
				if err := s.UpdateShapes(domain.ShapePatch{ID: target, Index: &idx}); err != nil {
					t.Fatal(err)
				}
			case op == 2:
				target := pinned[rng.Intn(len(pinned))]
				if err := s.UpdateShapes(domain.ShapePatch{ID: target, IsLocked: ptr(false)}); err != nil {
					t.Fatal(err)
				}
			default:
				target := others[rng.Intn(len(others))]
				if err := s.UpdateShapes(domain.ShapePatch{ID: target, X: ptr(rng.Float64() * 100)}); err != nil {
					t.Fatal(err)
				}
			}
			assertPinnedAtBottom(t, s, pinned)

			before := e.Batches()
			if err := e.Correct(); err != nil {
				t.Fatal(err)
			}
			if e.Batches() != before {
				t.Fatalf("round %d step %d: correction after convergence wrote a batch", round, step)
			}
		}
	}
}

func randomKey(t *testing.T, s *scene.Scene, children []domain.ShapeID, pos int) string {
	t.Helper()
	var a, b string
	if pos > 0 {
		sh, _ := s.Shape(children[pos-1])
		a = sh.Index
	}
	if pos < len(children) {
		sh, _ := s.Shape(children[pos])
		b = sh.Index
	}
	k, err := fracindex.KeyBetween(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return k
}
