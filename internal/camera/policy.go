// Package camera derives the pan/zoom policy for a document from the
// aggregate page bounds and the current viewport width, and keeps it
// applied to the editor as the viewport size class changes.
package camera

import (
	"markup/internal/domain"
)

// Config holds the tunable constants of the constraint policy.
type Config struct {
	CompactThreshold float64
	CompactPadding   domain.Vec
	RegularPadding   domain.Vec
	Origin           domain.Vec
	InitialZoom      domain.InitialZoom
	BaseZoom         domain.InitialZoom
	Behavior         domain.ConstraintBehavior
	MinZoom          float64
	MaxZoom          float64
}

func DefaultConfig() Config {
	return Config{
		CompactThreshold: 840,
		CompactPadding:   domain.Vec{X: 16, Y: 64},
		RegularPadding:   domain.Vec{X: 164, Y: 64},
		Origin:           domain.Vec{X: 0.5, Y: 0},
		InitialZoom:      domain.ZoomFitX100,
		BaseZoom:         domain.ZoomDefault,
		Behavior:         domain.BehaviorContain,
		MinZoom:          0.25,
		MaxZoom:          5,
	}
}

// Classify reports compact for widths strictly below threshold.
func Classify(width, threshold float64) domain.SizeClass {
	if width < threshold {
		return domain.SizeCompact
	}
	return domain.SizeRegular
}

// Derive builds the constraint policy for bounds under the given size
// class. Only the horizontal padding depends on the class.
func Derive(bounds domain.Rect, class domain.SizeClass, cfg Config) domain.CameraConstraints {
	padding := cfg.RegularPadding
	if class == domain.SizeCompact {
		padding = cfg.CompactPadding
	}
	return domain.CameraConstraints{
		Bounds:      bounds,
		Padding:     padding,
		Origin:      cfg.Origin,
		InitialZoom: cfg.InitialZoom,
		BaseZoom:    cfg.BaseZoom,
		Behavior:    cfg.Behavior,
	}
}
