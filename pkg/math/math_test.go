package math

import (
	gomath "math"
	"testing"
)

const eps = 1e-5

func vecNear(a, b Vec3) bool {
	return gomath.Abs(float64(a.X-b.X)) < eps &&
		gomath.Abs(float64(a.Y-b.Y)) < eps &&
		gomath.Abs(float64(a.Z-b.Z)) < eps
}

func TestVec3Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Vec3
		want Vec3
	}{
		{"unit x", Vec3{2, 0, 0}, Vec3{1, 0, 0}},
		{"diagonal", Vec3{3, 0, 4}, Vec3{0.6, 0, 0.8}},
		{"zero stays zero", Vec3{}, Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); !vecNear(got, tt.want) {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVec3Cross(t *testing.T) {
	got := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	if !vecNear(got, Vec3{0, 0, 1}) {
		t.Errorf("x cross y = %v, want z", got)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := Translate(1, 2, 3).Mul(RotateY(0.7))
	if got := m.Mul(Identity()); got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
	if got := Identity().Mul(m); got != m {
		t.Errorf("I * m = %v, want %v", got, m)
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		p    Vec3
		want Vec3
	}{
		{"translate", Translate(1, 2, 3), Vec3{0, 0, 0}, Vec3{1, 2, 3}},
		{"scale", Scale(2, 2, 2), Vec3{1, 1, 1}, Vec3{2, 2, 2}},
		{"rotate y 90", RotateY(gomath.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.TransformPoint(tt.p); !vecNear(got, tt.want) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestTRSIdentityQuaternion(t *testing.T) {
	m := TRS(Vec3{5, 6, 7}, [4]float32{0, 0, 0, 1}, Vec3{1, 1, 1})
	got := m.TransformPoint(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{6, 6, 7}) {
		t.Errorf("TRS identity rotation moved point to %v, want {6 6 7}", got)
	}
}

func TestTRSQuarterTurnY(t *testing.T) {
	// 90 degrees around Y: q = (0, sin45, 0, cos45)
	s := float32(gomath.Sqrt(0.5))
	m := TRS(Vec3{}, [4]float32{0, s, 0, s}, Vec3{1, 1, 1})
	got := m.TransformPoint(Vec3{1, 0, 0})
	if !vecNear(got, Vec3{0, 0, -1}) {
		t.Errorf("quarter turn moved point to %v, want {0 0 -1}", got)
	}
}

func TestLookAtPlacesEyeAtOrigin(t *testing.T) {
	eye := Vec3{0, 0, 10}
	m := LookAt(eye, Vec3{}, Vec3{0, 1, 0})
	got := m.TransformPoint(eye)
	if !vecNear(got, Vec3{}) {
		t.Errorf("view matrix maps eye to %v, want origin", got)
	}
}
