package rendering

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func vecAlmostEqual(a, b mgl32.Vec3, eps float32) bool {
	for i := 0; i < 3; i++ {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func TestPointerRay(t *testing.T) {
	cam := DefaultCamera()
	viewport := mgl32.Vec2{800, 600}
	proj := cam.Projection(viewport.X() / viewport.Y())
	view := cam.View()
	forward := cam.Target.Sub(cam.Position).Normalize()

	tests := []struct {
		name    string
		pointer mgl32.Vec2
		offset  mgl32.Vec2
		check   func(t *testing.T, dir mgl32.Vec3)
	}{
		{
			name:    "centre looks at target",
			pointer: mgl32.Vec2{400, 300},
			check: func(t *testing.T, dir mgl32.Vec3) {
				if !vecAlmostEqual(dir, forward, 1e-3) {
					t.Errorf("dir = %v, want %v", dir, forward)
				}
			},
		},
		{
			name:    "offset viewport centre",
			pointer: mgl32.Vec2{600, 350},
			offset:  mgl32.Vec2{200, 50},
			check: func(t *testing.T, dir mgl32.Vec3) {
				if !vecAlmostEqual(dir, forward, 1e-3) {
					t.Errorf("dir = %v, want %v", dir, forward)
				}
			},
		},
		{
			name:    "right half points right",
			pointer: mgl32.Vec2{700, 300},
			check: func(t *testing.T, dir mgl32.Vec3) {
				if dir.X() <= 0 {
					t.Errorf("dir = %v, want positive x", dir)
				}
			},
		},
		{
			name:    "top half points up",
			pointer: mgl32.Vec2{400, 50},
			check: func(t *testing.T, dir mgl32.Vec3) {
				if dir.Y() <= forward.Y() {
					t.Errorf("dir.y = %v, want above %v", dir.Y(), forward.Y())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, dir := PointerRay(tt.pointer, viewport, tt.offset, proj, view)
			if !vecAlmostEqual(origin, cam.Position, 1e-3) {
				t.Errorf("origin = %v, want camera position %v", origin, cam.Position)
			}
			if l := dir.Len(); math.Abs(float64(l-1)) > 1e-4 {
				t.Errorf("dir not normalized: len %v", l)
			}
			tt.check(t, dir)
		})
	}
}

func TestCamera_OrbitKeepsDistance(t *testing.T) {
	cam := DefaultCamera()
	before := cam.Position.Sub(cam.Target).Len()
	cam.Orbit(0.3, 0.1, 0)
	after := cam.Position.Sub(cam.Target).Len()
	if math.Abs(float64(before-after)) > 1e-3 {
		t.Errorf("orbit changed distance from %v to %v", before, after)
	}
}
