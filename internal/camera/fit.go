package camera

import (
	"math"

	"seehuhn.de/go/geom/matrix"

	"markup/internal/domain"
)

// zoomSteps are the stops used by the zoom in/out controls.
var zoomSteps = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8}

// PageToScreen returns the transform from page space to screen space.
func PageToScreen(cam domain.Camera) matrix.Matrix {
	return matrix.Matrix{cam.Z, 0, 0, cam.Z, cam.X * cam.Z, cam.Y * cam.Z}
}

// ScreenToPage is the inverse of PageToScreen.
func ScreenToPage(cam domain.Camera) matrix.Matrix {
	return matrix.Matrix{1 / cam.Z, 0, 0, 1 / cam.Z, -cam.X, -cam.Y}
}

// ToScreen maps a page point to screen coordinates.
func ToScreen(cam domain.Camera, p domain.Vec) domain.Vec {
	x, y := PageToScreen(cam).Apply(p.X, p.Y)
	return domain.Vec{X: x, Y: y}
}

// ToPage maps a screen point to page coordinates.
func ToPage(cam domain.Camera, p domain.Vec) domain.Vec {
	x, y := ScreenToPage(cam).Apply(p.X, p.Y)
	return domain.Vec{X: x, Y: y}
}

// VisibleBounds is the page-space rectangle covered by a viewport of the
// given screen size.
func VisibleBounds(cam domain.Camera, width, height float64) domain.Rect {
	return domain.Rect{X: -cam.X, Y: -cam.Y, W: width / cam.Z, H: height / cam.Z}
}

func initialZoom(c domain.CameraConstraints, mode domain.InitialZoom, viewport domain.Rect) float64 {
	avail := viewport.W - 2*c.Padding.X
	if avail <= 0 || c.Bounds.W <= 0 {
		return 1
	}
	fit := avail / c.Bounds.W
	switch mode {
	case domain.ZoomFitX:
		return fit
	case domain.ZoomFitX100:
		return math.Min(1, fit)
	}
	return 1
}

// place returns the screen offset of the bounds' leading edge along one
// axis when the content does not overflow.
func place(size, view, pad, origin float64) float64 {
	return pad + (view-2*pad-size)*origin
}

// Fit returns the camera the editor resets to under constraints c.
func Fit(c domain.CameraConstraints, viewport domain.Rect) domain.Camera {
	z := initialZoom(c, c.InitialZoom, viewport)
	left := place(c.Bounds.W*z, viewport.W, c.Padding.X, c.Origin.X)
	top := place(c.Bounds.H*z, viewport.H, c.Padding.Y, c.Origin.Y)
	if c.Bounds.H*z > viewport.H-2*c.Padding.Y {
		top = c.Padding.Y
	}
	return domain.Camera{
		X: left/z - c.Bounds.X,
		Y: top/z - c.Bounds.Y,
		Z: z,
	}
}

func clampAxis(screenLead, size, view, pad, origin float64, behavior domain.ConstraintBehavior) float64 {
	avail := view - 2*pad
	if size <= avail && behavior == domain.BehaviorContain {
		return place(size, view, pad, origin)
	}
	lo, hi := view-pad-size, pad
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, screenLead))
}

// Clamp moves cam so the bounds stay within the padded viewport as the
// constraint behavior requires. The zoom level is left untouched.
func Clamp(cam domain.Camera, c domain.CameraConstraints, viewport domain.Rect) domain.Camera {
	if c.Behavior == domain.BehaviorFree || cam.Z <= 0 {
		return cam
	}
	z := cam.Z
	left := clampAxis((c.Bounds.X+cam.X)*z, c.Bounds.W*z, viewport.W, c.Padding.X, c.Origin.X, c.Behavior)
	top := clampAxis((c.Bounds.Y+cam.Y)*z, c.Bounds.H*z, viewport.H, c.Padding.Y, c.Origin.Y, c.Behavior)
	return domain.Camera{X: left/z - c.Bounds.X, Y: top/z - c.Bounds.Y, Z: z}
}

// ZoomStep returns the next zoom stop from current. Zooming in is only
// allowed below max and zooming out only above min.
func ZoomStep(current float64, in bool, min, max float64) float64 {
	if in {
		if current >= max {
			return current
		}
		for _, s := range zoomSteps {
			if s > current {
				return s
			}
		}
		return current
	}
	if current <= min {
		return current
	}
	for i := len(zoomSteps) - 1; i >= 0; i-- {
		if zoomSteps[i] < current {
			return zoomSteps[i]
		}
	}
	return current
}

// ZoomAround returns cam zoomed to z while keeping the screen point p fixed.
func ZoomAround(cam domain.Camera, z float64, p domain.Vec) domain.Camera {
	page := ToPage(cam, p)
	return domain.Camera{X: p.X/z - page.X, Y: p.Y/z - page.Y, Z: z}
}
