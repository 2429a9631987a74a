// Package camera provides the orbit camera the viewport inspects
// vehicles with.
package camera

import (
	gomath "math"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/pkg/math"
)

// OrbitCamera orbits around a center point. It idles in a slow
// auto-rotation until the user grabs it.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Idle rotation
	AutoRotate      bool
	AutoRotateSpeed float32 // radians per second

	// Framing snapshot restored by Reset
	home homePose
}

type homePose struct {
	center   math.Vec3
	distance float32
	pitch    float32
	yaw      float32
}

// NewOrbitCamera creates an orbit camera with vehicle-inspection
// defaults: a gentle three-quarter view, pitch range from slightly below
// the beltline to nearly top-down.
func NewOrbitCamera() *OrbitCamera {
	c := &OrbitCamera{
		Distance:        6.0,
		Pitch:           0.35,
		Yaw:             0.6,
		MinDistance:     1.0,
		MaxDistance:     50.0,
		MinPitch:        -0.2,
		MaxPitch:        1.45,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		AutoRotate:      true,
		AutoRotateSpeed: 0.25,
	}
	c.saveHome()
	return c
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.Pitch))*gomath.Sin(float64(c.Yaw)))
	y := c.Distance * float32(gomath.Sin(float64(c.Pitch)))
	z := c.Distance * float32(gomath.Cos(float64(c.Pitch))*gomath.Cos(float64(c.Yaw)))

	return math.Vec3{
		X: c.Center.X + x,
		Y: c.Center.Y + y,
		Z: c.Center.Z + z,
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(c.Position(), c.Center, up)
}

// Update advances the idle auto-rotation. No-op once the user has
// grabbed the camera.
func (c *OrbitCamera) Update(dt float32) {
	if c.AutoRotate {
		c.Yaw += c.AutoRotateSpeed * dt
	}
}

// HandleDrag updates rotation from a mouse drag delta and stops the idle
// rotation.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.AutoRotate = false
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity

	if c.Pitch < c.MinPitch {
		c.Pitch = c.MinPitch
	}
	if c.Pitch > c.MaxPitch {
		c.Pitch = c.MaxPitch
	}
}

// HandleZoom updates distance from a scroll wheel delta. Zoom speed
// scales with distance for a consistent feel.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.AutoRotate = false
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}
	if c.Distance > c.MaxDistance {
		c.Distance = c.MaxDistance
	}
}

// Frame positions the camera so the given bounds fill the view at the
// given vertical field of view, and records the pose as the Reset home.
func (c *OrbitCamera) Frame(b scenegraph.Bounds, fovRadians float32) {
	c.Center = b.Center()

	radius := b.Radius()
	if radius <= 0 {
		radius = 1
	}
	// Distance that fits the bounding sphere, with a little margin.
	c.Distance = radius / float32(gomath.Tan(float64(fovRadians)/2)) * 1.2
	if c.Distance < c.MinDistance {
		c.Distance = c.MinDistance
	}

	c.MaxDistance = c.Distance * 8
	c.Pitch = 0.35
	c.Yaw = 0.6
	c.saveHome()
}

// Reset restores the last framed pose and resumes the idle rotation.
func (c *OrbitCamera) Reset() {
	c.Center = c.home.center
	c.Distance = c.home.distance
	c.Pitch = c.home.pitch
	c.Yaw = c.home.yaw
	c.AutoRotate = true
}

func (c *OrbitCamera) saveHome() {
	c.home = homePose{
		center:   c.Center,
		distance: c.Distance,
		pitch:    c.Pitch,
		yaw:      c.Yaw,
	}
}
