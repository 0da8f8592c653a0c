package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func poseAt(x, y, z float32) Pose {
	p := IdentityPose()
	p.Translation = mgl32.Vec3{x, y, z}
	return p
}

func TestCollide(t *testing.T) {
	tests := []struct {
		name       string
		a          Shape
		pa         Pose
		b          Shape
		pb         Pose
		wantHit    bool
		wantNormal mgl32.Vec3
		wantDepth  float32
		minPoints  int
	}{
		{
			name: "balls overlapping",
			a:    Ball{Radius: 1}, pa: poseAt(0, 0, 0),
			b: Ball{Radius: 1}, pb: poseAt(1.5, 0, 0),
			wantHit: true, wantNormal: mgl32.Vec3{1, 0, 0}, wantDepth: 0.5, minPoints: 1,
		},
		{
			name: "balls apart",
			a:    Ball{Radius: 1}, pa: poseAt(0, 0, 0),
			b: Ball{Radius: 1}, pb: poseAt(3, 0, 0),
		},
		{
			name: "ball on box",
			a:    Cuboid{HalfExtents: mgl32.Vec3{5, 0.5, 5}}, pa: poseAt(0, -0.5, 0),
			b: Ball{Radius: 0.5}, pb: poseAt(0, 0.4, 0),
			wantHit: true, wantNormal: mgl32.Vec3{0, 1, 0}, wantDepth: 0.1, minPoints: 1,
		},
		{
			name: "box under ball flips normal",
			a:    Ball{Radius: 0.5}, pa: poseAt(0, 0.4, 0),
			b: Cuboid{HalfExtents: mgl32.Vec3{5, 0.5, 5}}, pb: poseAt(0, -0.5, 0),
			wantHit: true, wantNormal: mgl32.Vec3{0, -1, 0}, wantDepth: 0.1, minPoints: 1,
		},
		{
			name: "box resting on box",
			a:    Cuboid{HalfExtents: mgl32.Vec3{5, 0.5, 5}}, pa: poseAt(0, -0.5, 0),
			b: Cuboid{HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}}, pb: poseAt(0, 0.49, 0),
			wantHit: true, wantNormal: mgl32.Vec3{0, 1, 0}, wantDepth: 0.01, minPoints: 4,
		},
		{
			name: "boxes apart",
			a:    Cuboid{HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}}, pa: poseAt(0, 0, 0),
			b: Cuboid{HalfExtents: mgl32.Vec3{0.5, 0.5, 0.5}}, pb: poseAt(0, 2, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, pts, ok := collide(tt.a, tt.pa, tt.b, tt.pb)
			if ok != tt.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tt.wantHit)
			}
			if !ok {
				return
			}
			if !vecAlmostEqual(n, tt.wantNormal, 1e-4) {
				t.Errorf("normal = %v, want %v", n, tt.wantNormal)
			}
			if len(pts) < tt.minPoints {
				t.Fatalf("got %d contact points, want at least %d", len(pts), tt.minPoints)
			}
			if !almostEqual(pts[0].Depth, tt.wantDepth, 1e-4) {
				t.Errorf("depth = %v, want %v", pts[0].Depth, tt.wantDepth)
			}
		})
	}
}

func TestBroadPhase_SkipsStaticPairs(t *testing.T) {
	w := NewWorld()
	w.AddFloor(mgl32.Vec3{10, 0.1, 10})
	w.AddBody(NewRigidBody(BodyTypeFixed).WithTranslation(mgl32.Vec3{0, 0.5, 0}), NewCuboid(0.5, 0.5, 0.5))
	if pairs := w.BroadPhase.update(w.Bodies, w.Colliders, 0.02); len(pairs) != 0 {
		t.Errorf("got %d pairs between static colliders", len(pairs))
	}

	w.AddBody(NewRigidBody(BodyTypeDynamic).WithTranslation(mgl32.Vec3{0, 0.5, 0}), NewBall(0.5))
	if pairs := w.BroadPhase.update(w.Bodies, w.Colliders, 0.02); len(pairs) != 2 {
		t.Errorf("got %d pairs, want 2", len(pairs))
	}
}
