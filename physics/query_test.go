package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestWorld_CastRay(t *testing.T) {
	const radius = 1.0

	tests := []struct {
		name    string
		origin  mgl32.Vec3
		dir     mgl32.Vec3
		wantHit bool
		wantToi float32
	}{
		{"head on", mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, -1}, true, 10 - radius},
		{"grazing inside radius", mgl32.Vec3{0.5, 0, 10}, mgl32.Vec3{0, 0, -1}, true, 10 - 0.8660254},
		{"lateral miss", mgl32.Vec3{radius + 0.5, 0, 10}, mgl32.Vec3{0, 0, -1}, false, 0},
		{"pointing away", mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 1}, false, 0},
		{"solid from inside", mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{0, 0, -1}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			bh, ch, err := w.AddBody(NewRigidBody(BodyTypeDynamic), NewBall(radius))
			if err != nil {
				t.Fatalf("AddBody: %v", err)
			}

			hit, ok := w.CastRay(Ray{Origin: tt.origin, Dir: tt.dir}, DefaultMaxToi, true, nil)
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			if hit.Collider != ch {
				t.Errorf("hit collider %v, want %v", hit.Collider, ch)
			}
			if !almostEqual(hit.Toi, tt.wantToi, 1e-4) {
				t.Errorf("toi = %v, want %v", hit.Toi, tt.wantToi)
			}
			c, _ := w.Colliders.Get(hit.Collider)
			if parent, ok := c.Parent(); !ok || parent != bh {
				t.Errorf("collider parent = %v, want %v", parent, bh)
			}
		})
	}
}

func TestQueryPipeline_NearestHitWins(t *testing.T) {
	w := NewWorld()
	_, near, _ := w.AddBody(NewRigidBody(BodyTypeFixed).WithTranslation(mgl32.Vec3{0, 0, 2}), NewCuboid(0.5, 0.5, 0.5))
	_, far, _ := w.AddBody(NewRigidBody(BodyTypeFixed).WithTranslation(mgl32.Vec3{0, 0, -2}), NewBall(0.5))
	ray := Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, -1}}

	hit, ok := w.CastRay(ray, DefaultMaxToi, true, nil)
	if !ok || hit.Collider != near {
		t.Fatalf("hit %v (ok=%v), want %v", hit.Collider, ok, near)
	}
	if !vecAlmostEqual(hit.Point, mgl32.Vec3{0, 0, 2.5}, 1e-4) {
		t.Errorf("hit point = %v, want (0,0,2.5)", hit.Point)
	}
	if !vecAlmostEqual(hit.Normal, mgl32.Vec3{0, 0, 1}, 1e-4) {
		t.Errorf("hit normal = %v, want (0,0,1)", hit.Normal)
	}

	skipNear := func(h ColliderHandle, _ *Collider) bool { return h != near }
	hit, ok = w.CastRay(ray, DefaultMaxToi, true, skipNear)
	if !ok || hit.Collider != far {
		t.Fatalf("filtered hit %v (ok=%v), want %v", hit.Collider, ok, far)
	}
}

func TestQueryPipeline_MaxToi(t *testing.T) {
	w := NewWorld()
	w.AddBody(NewRigidBody(BodyTypeFixed), NewBall(1))
	ray := Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, -1}}
	if _, ok := w.CastRay(ray, 5, true, nil); ok {
		t.Error("hit beyond max toi")
	}
}

func TestRotatedCuboidRay(t *testing.T) {
	w := NewWorld()
	rot := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	w.AddBody(NewRigidBody(BodyTypeFixed).WithRotation(rot), NewCuboid(1, 1, 1))

	hit, ok := w.CastRay(Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, -1}}, DefaultMaxToi, true, nil)
	if !ok {
		t.Fatal("expected a hit")
	}
	// The corner of a unit cube turned 45 degrees sits sqrt(2) from the centre
	if !almostEqual(hit.Toi, 10-1.4142135, 1e-3) {
		t.Errorf("toi = %v, want %v", hit.Toi, 10-1.4142135)
	}
}
