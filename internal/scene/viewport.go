package scene

import (
	"markup/internal/camera"
	"markup/internal/domain"
)

func (s *Scene) Camera() domain.Camera { return s.cam }

// SetCamera moves the camera, clamped by the active constraints.
func (s *Scene) SetCamera(cam domain.Camera) {
	if cam.Z <= 0 {
		return
	}
	if s.constraints != nil {
		cam = camera.Clamp(cam, *s.constraints, s.viewport)
	}
	s.cam = cam
}

// ViewportScreenBounds is the size of the editor viewport in screen pixels.
func (s *Scene) ViewportScreenBounds() domain.Rect { return s.viewport }

// SetViewportSize records a resize and notifies resize subscribers.
func (s *Scene) SetViewportSize(width, height float64) {
	next := domain.Rect{W: width, H: height}
	if next == s.viewport {
		return
	}
	s.viewport = next
	for _, h := range append([]hookEntry[func(domain.Rect)](nil), s.resizers...) {
		h.fn(next)
	}
}

// ViewportPageBounds is the part of page space currently visible.
func (s *Scene) ViewportPageBounds() domain.Rect {
	return camera.VisibleBounds(s.cam, s.viewport.W, s.viewport.H)
}

// PageToViewport maps a page point to viewport pixels.
func (s *Scene) PageToViewport(p domain.Vec) domain.Vec {
	return camera.ToScreen(s.cam, p)
}

func (s *Scene) SetCameraConstraints(c domain.CameraConstraints) {
	s.constraints = &c
}

// ClearCameraConstraints removes the constraints and leaves the camera free.
func (s *Scene) ClearCameraConstraints() { s.constraints = nil }

func (s *Scene) CameraConstraints() (domain.CameraConstraints, bool) {
	if s.constraints == nil {
		return domain.CameraConstraints{}, false
	}
	return *s.constraints, true
}

// ResetCamera moves the camera to the initial position of the active
// constraints, or to the origin at 100% when there are none.
func (s *Scene) ResetCamera() {
	if s.constraints == nil {
		s.cam = domain.Camera{Z: 1}
		return
	}
	s.cam = camera.Fit(*s.constraints, s.viewport)
}

// ZoomTo zooms around the viewport center.
func (s *Scene) ZoomTo(z float64) {
	if z <= 0 {
		return
	}
	center := domain.Vec{X: s.viewport.W / 2, Y: s.viewport.H / 2}
	s.SetCamera(camera.ZoomAround(s.cam, z, center))
}
