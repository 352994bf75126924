package camera

import (
	"log"

	"markup/internal/domain"
)

// Editor is the part of the canvas editor the controller drives.
type Editor interface {
	ViewportScreenBounds() domain.Rect
	SetCameraConstraints(c domain.CameraConstraints)
	ResetCamera()
}

// Controller keeps the camera constraint policy applied. It re-applies the
// policy only when the size class flips, the bounds change or the config
// changes; resizes within one class are ignored.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	editor  Editor
	cfg     Config
	bounds  domain.Rect
	class   domain.SizeClass
	mounted bool
	applied int

	// OnApply, when set, is called after every application of the policy.
	OnApply func(domain.CameraConstraints)
}

func NewController(editor Editor, cfg Config) *Controller {
	return &Controller{editor: editor, cfg: cfg}
}

// Mount applies the policy for bounds using the current viewport width.
func (c *Controller) Mount(bounds domain.Rect) domain.CameraConstraints {
	c.bounds = bounds
	c.class = Classify(c.editor.ViewportScreenBounds().W, c.cfg.CompactThreshold)
	c.mounted = true
	return c.apply()
}

// ViewportChanged reports whether the new width flipped the size class and
// the policy was re-applied.
func (c *Controller) ViewportChanged(width float64) bool {
	if !c.mounted {
		return false
	}
	class := Classify(width, c.cfg.CompactThreshold)
	if class == c.class {
		return false
	}
	log.Printf("[CAMERA] size class %s -> %s (width %.0f)", c.class, class, width)
	c.class = class
	c.apply()
	return true
}

// SetBounds re-applies the policy when bounds differ from the mounted ones.
func (c *Controller) SetBounds(bounds domain.Rect) bool {
	if !c.mounted || bounds == c.bounds {
		return false
	}
	c.bounds = bounds
	c.apply()
	return true
}

// SetConfig swaps the policy constants and re-applies the policy.
func (c *Controller) SetConfig(cfg Config) {
	c.cfg = cfg
	if !c.mounted {
		return
	}
	c.class = Classify(c.editor.ViewportScreenBounds().W, cfg.CompactThreshold)
	c.apply()
}

func (c *Controller) Config() Config          { return c.cfg }
func (c *Controller) Class() domain.SizeClass { return c.class }
func (c *Controller) Applied() int            { return c.applied }

// Policy returns the currently applied constraints.
func (c *Controller) Policy() domain.CameraConstraints {
	return Derive(c.bounds, c.class, c.cfg)
}

func (c *Controller) apply() domain.CameraConstraints {
	policy := Derive(c.bounds, c.class, c.cfg)
	c.editor.SetCameraConstraints(policy)
	c.editor.ResetCamera()
	c.applied++
	if c.OnApply != nil {
		c.OnApply(policy)
	}
	return policy
}
