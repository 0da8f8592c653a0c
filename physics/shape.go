package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a rigid transform: rotate, then translate
type Pose struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// IdentityPose returns the pose at the origin without rotation
func IdentityPose() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// TransformPoint maps a local point into the pose's parent frame
func (p Pose) TransformPoint(v mgl32.Vec3) mgl32.Vec3 {
	return p.Translation.Add(p.Rotation.Rotate(v))
}

// InverseTransformPoint maps a parent-frame point into local space
func (p Pose) InverseTransformPoint(v mgl32.Vec3) mgl32.Vec3 {
	return p.Rotation.Inverse().Rotate(v.Sub(p.Translation))
}

// InverseTransformVector rotates a direction into local space
func (p Pose) InverseTransformVector(v mgl32.Vec3) mgl32.Vec3 {
	return p.Rotation.Inverse().Rotate(v)
}

// Mul composes p with a pose expressed in p's local frame
func (p Pose) Mul(local Pose) Pose {
	return Pose{
		Translation: p.TransformPoint(local.Translation),
		Rotation:    p.Rotation.Mul(local.Rotation).Normalize(),
	}
}

// Axes returns the rotated unit axes of the pose
func (p Pose) Axes() [3]mgl32.Vec3 {
	m := p.Rotation.Mat4()
	return [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
}

// AABB is an axis-aligned bounding box
type AABB struct {
	Min, Max mgl32.Vec3
}

// Intersects reports whether the two boxes overlap
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// castRay runs a slab test and returns the entry distance along the ray
func (a AABB) castRay(origin, dir mgl32.Vec3, maxToi float32) (float32, bool) {
	tmin, tmax := float32(0), maxToi
	for i := 0; i < 3; i++ {
		if mgl32.Abs(dir[i]) < 1e-8 {
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (a.Min[i] - origin[i]) * inv
		t2 := (a.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// ShapeType tags the concrete shape behind a Shape
type ShapeType int

const (
	ShapeBall ShapeType = iota
	ShapeCuboid
)

// Shape is the collision geometry of a collider
type Shape interface {
	Type() ShapeType
	Volume() float32
	// InertiaFactor k gives the scalar inertia I = k * mass
	InertiaFactor() float32
	AABB(p Pose) AABB
	// castLocalRay intersects a ray already expressed in shape space
	castLocalRay(origin, dir mgl32.Vec3, maxToi float32, solid bool) (float32, mgl32.Vec3, bool)
}

// Ball is a sphere centered on the collider origin
type Ball struct {
	Radius float32
}

func (b Ball) Type() ShapeType { return ShapeBall }

func (b Ball) Volume() float32 {
	return 4.0 / 3.0 * math.Pi * b.Radius * b.Radius * b.Radius
}

func (b Ball) InertiaFactor() float32 {
	return 0.4 * b.Radius * b.Radius
}

func (b Ball) AABB(p Pose) AABB {
	r := mgl32.Vec3{b.Radius, b.Radius, b.Radius}
	return AABB{Min: p.Translation.Sub(r), Max: p.Translation.Add(r)}
}

func (b Ball) castLocalRay(origin, dir mgl32.Vec3, maxToi float32, solid bool) (float32, mgl32.Vec3, bool) {
	a := dir.LenSqr()
	if a == 0 {
		return 0, mgl32.Vec3{}, false
	}
	half := origin.Dot(dir)
	c := origin.LenSqr() - b.Radius*b.Radius
	if c <= 0 && solid {
		return 0, mgl32.Vec3{}, true
	}
	disc := half*half - a*c
	if disc < 0 {
		return 0, mgl32.Vec3{}, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-half - sq) / a
	if t < 0 {
		// Origin inside a hollow ball: report the exit point
		t = (-half + sq) / a
	}
	if t < 0 || t > maxToi {
		return 0, mgl32.Vec3{}, false
	}
	n := origin.Add(dir.Mul(t))
	if n.LenSqr() > 0 {
		n = n.Normalize()
	}
	return t, n, true
}

// Cuboid is a box centered on the collider origin
type Cuboid struct {
	HalfExtents mgl32.Vec3
}

func (c Cuboid) Type() ShapeType { return ShapeCuboid }

func (c Cuboid) Volume() float32 {
	h := c.HalfExtents
	return 8 * h.X() * h.Y() * h.Z()
}

func (c Cuboid) InertiaFactor() float32 {
	// Mean of the three principal moments of a solid box
	return 2.0 / 9.0 * c.HalfExtents.LenSqr()
}

func (c Cuboid) AABB(p Pose) AABB {
	axes := p.Axes()
	var ext mgl32.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ext[i] += mgl32.Abs(axes[j][i]) * c.HalfExtents[j]
		}
	}
	return AABB{Min: p.Translation.Sub(ext), Max: p.Translation.Add(ext)}
}

func (c Cuboid) castLocalRay(origin, dir mgl32.Vec3, maxToi float32, solid bool) (float32, mgl32.Vec3, bool) {
	box := AABB{Min: c.HalfExtents.Mul(-1), Max: c.HalfExtents}
	inside := true
	for i := 0; i < 3; i++ {
		if mgl32.Abs(origin[i]) > c.HalfExtents[i] {
			inside = false
			break
		}
	}
	if inside {
		if solid {
			return 0, mgl32.Vec3{}, true
		}
		// Hollow: march to the exit face
		far := origin.Add(dir.Mul(maxToi))
		t, ok := box.castRay(far, dir.Mul(-1), maxToi)
		if !ok {
			return 0, mgl32.Vec3{}, false
		}
		toi := maxToi - t
		return toi, cuboidNormal(origin.Add(dir.Mul(toi)), c.HalfExtents), true
	}
	t, ok := box.castRay(origin, dir, maxToi)
	if !ok {
		return 0, mgl32.Vec3{}, false
	}
	return t, cuboidNormal(origin.Add(dir.Mul(t)), c.HalfExtents), true
}

// cuboidNormal picks the face normal closest to a surface point
func cuboidNormal(p, half mgl32.Vec3) mgl32.Vec3 {
	best, axis := float32(math.MaxFloat32), 0
	for i := 0; i < 3; i++ {
		d := mgl32.Abs(half[i] - mgl32.Abs(p[i]))
		if d < best {
			best, axis = d, i
		}
	}
	var n mgl32.Vec3
	if p[axis] < 0 {
		n[axis] = -1
	} else {
		n[axis] = 1
	}
	return n
}
