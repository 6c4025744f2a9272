package explorer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera defaults.
const (
	DefaultFocusDistance   = 40.0
	DefaultFocusDurationMs = 1000
	DefaultZoomDurationMs  = 500
	ZoomInFactor           = 0.8
	ZoomOutFactor          = 1.2
)

// DefaultHome is the camera position of the reset view, looking at the
// origin.
var DefaultHome = r3.Vec{X: 0, Y: 0, Z: 200}

// Point is a JSON-friendly 3D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PointOf converts a vector.
func PointOf(v r3.Vec) Point { return Point{X: v.X, Y: v.Y, Z: v.Z} }

// Vec converts back to a vector.
func (p Point) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

// FocusTarget is a camera animation request: move to (X, Y, Z) while
// turning to LookAt over DurationMs.
type FocusTarget struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	LookAt     Point   `json:"lookAt"`
	DurationMs int     `json:"durationMs"`
}

// Position returns the target camera position.
func (f FocusTarget) Position() r3.Vec { return r3.Vec{X: f.X, Y: f.Y, Z: f.Z} }

// FocusError reports a node sitting exactly at the origin, which has no
// direction to back the camera away along.
type FocusError struct {
	ID string
}

func (e *FocusError) Error() string {
	return fmt.Sprintf("cannot focus node %q: position is the origin", e.ID)
}

// Camera computes camera targets. The zero value is not usable; start from
// DefaultCamera.
type Camera struct {
	FocusDistance   float64
	FocusDurationMs int
	ZoomDurationMs  int
	Home            r3.Vec
}

// DefaultCamera returns the stock camera settings.
func DefaultCamera() Camera {
	return Camera{
		FocusDistance:   DefaultFocusDistance,
		FocusDurationMs: DefaultFocusDurationMs,
		ZoomDurationMs:  DefaultZoomDurationMs,
		Home:            DefaultHome,
	}
}

func (c Camera) target(pos, lookAt r3.Vec, ms int) FocusTarget {
	return FocusTarget{X: pos.X, Y: pos.Y, Z: pos.Z, LookAt: PointOf(lookAt), DurationMs: ms}
}

// Focus places the camera on the ray from the origin through nodePos,
// FocusDistance units beyond the node, looking at the node:
//
//	camera = nodePos * (1 + FocusDistance/|nodePos|)
//
// The current viewing direction is kept because the camera stays on the
// same ray. A node at the origin yields *FocusError.
func (c Camera) Focus(id string, nodePos r3.Vec) (FocusTarget, error) {
	dist := r3.Norm(nodePos)
	if dist == 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
		return FocusTarget{}, &FocusError{ID: id}
	}
	ratio := 1 + c.FocusDistance/dist
	return c.target(r3.Scale(ratio, nodePos), nodePos, c.FocusDurationMs), nil
}

// FocusRoot returns the home view for the root, kept on the current
// camera's side of the scene. A camera at the origin falls back to Home.
func (c Camera) FocusRoot(camera r3.Vec) FocusTarget {
	home := c.Home
	if n := r3.Norm(camera); n > 0 {
		home = r3.Scale(r3.Norm(c.Home)/n, camera)
	}
	return c.target(home, r3.Vec{}, c.FocusDurationMs)
}

// ZoomIn moves the camera toward the origin by ZoomInFactor.
func (c Camera) ZoomIn(camera, lookAt r3.Vec) FocusTarget {
	return c.target(r3.Scale(ZoomInFactor, camera), lookAt, c.ZoomDurationMs)
}

// ZoomOut moves the camera away from the origin by ZoomOutFactor.
func (c Camera) ZoomOut(camera, lookAt r3.Vec) FocusTarget {
	return c.target(r3.Scale(ZoomOutFactor, camera), lookAt, c.ZoomDurationMs)
}

// Reset returns the home view looking at the origin.
func (c Camera) Reset() FocusTarget {
	return c.target(c.Home, r3.Vec{}, c.ZoomDurationMs)
}
