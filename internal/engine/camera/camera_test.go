package camera

import (
	gomath "math"
	"testing"

	"github.com/wrapstudio/wrapview/internal/engine/scenegraph"
	"github.com/wrapstudio/wrapview/pkg/math"
)

func almostEqual(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestPositionAtZeroAngles(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{}
	c.Distance = 10
	c.Pitch = 0
	c.Yaw = 0

	pos := c.Position()
	if !almostEqual(pos.X, 0) || !almostEqual(pos.Y, 0) || !almostEqual(pos.Z, 10) {
		t.Errorf("position = %+v, want (0,0,10)", pos)
	}
}

func TestPositionStraightUp(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 1, Y: 2, Z: 3}
	c.Distance = 5
	c.Pitch = float32(gomath.Pi / 2)
	c.Yaw = 0

	pos := c.Position()
	if !almostEqual(pos.X, 1) || !almostEqual(pos.Y, 7) || !almostEqual(pos.Z, 3) {
		t.Errorf("position = %+v, want (1,7,3)", pos)
	}
}

func TestDragClampsPitchAndStopsAutoRotate(t *testing.T) {
	c := NewOrbitCamera()
	if !c.AutoRotate {
		t.Fatal("camera should idle in auto-rotation")
	}

	c.HandleDrag(0, 10000)
	if c.AutoRotate {
		t.Error("drag should stop auto-rotation")
	}
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch = %v, want clamped to %v", c.Pitch, c.MaxPitch)
	}

	c.HandleDrag(0, -20000)
	if c.Pitch != c.MinPitch {
		t.Errorf("pitch = %v, want clamped to %v", c.Pitch, c.MinPitch)
	}
}

func TestZoomClampsDistance(t *testing.T) {
	c := NewOrbitCamera()

	for i := 0; i < 100; i++ {
		c.HandleZoom(10)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("distance = %v, want min %v", c.Distance, c.MinDistance)
	}

	for i := 0; i < 200; i++ {
		c.HandleZoom(-10)
	}
	if c.Distance != c.MaxDistance {
		t.Errorf("distance = %v, want max %v", c.Distance, c.MaxDistance)
	}
}

func TestAutoRotateAdvancesYaw(t *testing.T) {
	c := NewOrbitCamera()
	before := c.Yaw
	c.Update(1.0)
	if c.Yaw <= before {
		t.Error("auto-rotation should advance yaw")
	}

	c.AutoRotate = false
	before = c.Yaw
	c.Update(1.0)
	if c.Yaw != before {
		t.Error("yaw must hold still after interaction")
	}
}

func TestFrameCentersAndFits(t *testing.T) {
	c := NewOrbitCamera()
	b := scenegraph.Bounds{
		Min: math.Vec3{X: -2, Y: 0, Z: -1},
		Max: math.Vec3{X: 2, Y: 1.5, Z: 1},
	}

	c.Frame(b, float32(gomath.Pi/4))

	center := b.Center()
	if c.Center != center {
		t.Errorf("center = %+v, want %+v", c.Center, center)
	}
	if c.Distance <= b.Radius() {
		t.Errorf("distance %v should exceed bounding radius %v", c.Distance, b.Radius())
	}
}

func TestResetRestoresFramedPose(t *testing.T) {
	c := NewOrbitCamera()
	b := scenegraph.Bounds{
		Min: math.Vec3{X: -1, Y: -1, Z: -1},
		Max: math.Vec3{X: 1, Y: 1, Z: 1},
	}
	c.Frame(b, float32(gomath.Pi/4))

	framedDist := c.Distance
	framedPitch := c.Pitch

	c.HandleDrag(300, 150)
	c.HandleZoom(5)
	if c.AutoRotate {
		t.Fatal("interaction should stop auto-rotation")
	}

	c.Reset()
	if c.Distance != framedDist || c.Pitch != framedPitch {
		t.Errorf("reset pose = (%v, %v), want (%v, %v)",
			c.Distance, c.Pitch, framedDist, framedPitch)
	}
	if !c.AutoRotate {
		t.Error("reset should resume auto-rotation")
	}
}
