package domain

// SizeClass classifies the viewport width.
type SizeClass string

const (
	SizeCompact SizeClass = "compact"
	SizeRegular SizeClass = "regular"
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Camera positions the canvas: a page point p appears on screen at
// (p + (X, Y)) * Z.
type Camera struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type InitialZoom string

const (
	// ZoomFitX100 fits the bounds' width to the viewport, never above 100%.
	ZoomFitX100 InitialZoom = "fit-x-100"
	ZoomFitX    InitialZoom = "fit-x"
	ZoomDefault InitialZoom = "default"
)

type ConstraintBehavior string

const (
	BehaviorContain ConstraintBehavior = "contain"
	BehaviorInside  ConstraintBehavior = "inside"
	BehaviorFree    ConstraintBehavior = "free"
)

// CameraConstraints is the pan/zoom policy applied to the editor. It is
// always derived from scratch, never patched.
type CameraConstraints struct {
	Bounds      Rect               `json:"bounds"`
	Padding     Vec                `json:"padding"`
	Origin      Vec                `json:"origin"`
	InitialZoom InitialZoom        `json:"initialZoom"`
	BaseZoom    InitialZoom        `json:"baseZoom"`
	Behavior    ConstraintBehavior `json:"behavior"`
}
