package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ContactPoint is one point of a contact manifold in world space
type ContactPoint struct {
	Point mgl32.Vec3
	Depth float32
}

// Contact is the manifold between two touching colliders. Normal points
// from A toward B.
type Contact struct {
	A, B   ColliderHandle
	Normal mgl32.Vec3
	Points []ContactPoint
}

// NarrowPhase turns candidate pairs into contact manifolds
type NarrowPhase struct {
	contacts []Contact
}

// NewNarrowPhase creates an empty narrow phase
func NewNarrowPhase() *NarrowPhase {
	return &NarrowPhase{}
}

// Contacts returns the manifolds found by the last update
func (np *NarrowPhase) Contacts() []Contact {
	return np.contacts
}

// ContactsWith returns the manifolds involving collider h
func (np *NarrowPhase) ContactsWith(h ColliderHandle) []Contact {
	var out []Contact
	for _, c := range np.contacts {
		if c.A == h || c.B == h {
			out = append(out, c)
		}
	}
	return out
}

func (np *NarrowPhase) update(pairs []ColliderPair, bodies *BodySet, colliders *ColliderSet) []Contact {
	np.contacts = np.contacts[:0]
	for _, p := range pairs {
		ca, okA := colliders.Get(p.A)
		cb, okB := colliders.Get(p.B)
		if !okA || !okB {
			continue
		}
		normal, points, ok := collide(ca.shape, ca.WorldPose(bodies), cb.shape, cb.WorldPose(bodies))
		if !ok {
			continue
		}
		np.contacts = append(np.contacts, Contact{A: p.A, B: p.B, Normal: normal, Points: points})
	}
	return np.contacts
}

// collide dispatches on the shape pair. The returned normal points from a to b.
func collide(a Shape, pa Pose, b Shape, pb Pose) (mgl32.Vec3, []ContactPoint, bool) {
	switch sa := a.(type) {
	case Ball:
		switch sb := b.(type) {
		case Ball:
			return collideBalls(sa, pa, sb, pb)
		case Cuboid:
			n, pts, ok := collideCuboidBall(sb, pb, sa, pa)
			return n.Mul(-1), pts, ok
		}
	case Cuboid:
		switch sb := b.(type) {
		case Ball:
			return collideCuboidBall(sa, pa, sb, pb)
		case Cuboid:
			return collideCuboids(sa, pa, sb, pb)
		}
	}
	return mgl32.Vec3{}, nil, false
}

func collideBalls(a Ball, pa Pose, b Ball, pb Pose) (mgl32.Vec3, []ContactPoint, bool) {
	d := pb.Translation.Sub(pa.Translation)
	dist := d.Len()
	depth := a.Radius + b.Radius - dist
	if depth < 0 {
		return mgl32.Vec3{}, nil, false
	}
	n := mgl32.Vec3{0, 1, 0}
	if dist > 1e-6 {
		n = d.Mul(1 / dist)
	}
	point := pa.Translation.Add(n.Mul(a.Radius - depth*0.5))
	return n, []ContactPoint{{Point: point, Depth: depth}}, true
}

// collideCuboidBall returns a normal pointing from the box to the ball
func collideCuboidBall(box Cuboid, pbox Pose, ball Ball, pball Pose) (mgl32.Vec3, []ContactPoint, bool) {
	center := pbox.InverseTransformPoint(pball.Translation)
	h := box.HalfExtents

	var closest mgl32.Vec3
	inside := true
	for i := 0; i < 3; i++ {
		closest[i] = mgl32.Clamp(center[i], -h[i], h[i])
		if closest[i] != center[i] {
			inside = false
		}
	}

	var localNormal mgl32.Vec3
	var depth float32
	if inside {
		// Push out through the nearest face
		best, axis := float32(math.MaxFloat32), 0
		for i := 0; i < 3; i++ {
			if d := h[i] - mgl32.Abs(center[i]); d < best {
				best, axis = d, i
			}
		}
		if center[axis] < 0 {
			localNormal[axis] = -1
			closest[axis] = -h[axis]
		} else {
			localNormal[axis] = 1
			closest[axis] = h[axis]
		}
		depth = ball.Radius + best
	} else {
		d := center.Sub(closest)
		dist := d.Len()
		if dist > ball.Radius {
			return mgl32.Vec3{}, nil, false
		}
		localNormal = d.Mul(1 / dist)
		depth = ball.Radius - dist
	}

	n := pbox.Rotation.Rotate(localNormal)
	point := pbox.TransformPoint(closest)
	return n, []ContactPoint{{Point: point, Depth: depth}}, true
}

// collideCuboids runs a separating axis test over face and edge axes and
// builds the manifold from corners of each box lying inside the other
func collideCuboids(a Cuboid, pa Pose, b Cuboid, pb Pose) (mgl32.Vec3, []ContactPoint, bool) {
	axesA := pa.Axes()
	axesB := pb.Axes()
	offset := pb.Translation.Sub(pa.Translation)

	axes := make([]mgl32.Vec3, 0, 15)
	axes = append(axes, axesA[:]...)
	axes = append(axes, axesB[:]...)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c := axesA[i].Cross(axesB[j])
			if c.LenSqr() > 1e-4 {
				axes = append(axes, c.Normalize())
			}
		}
	}

	minOverlap := float32(math.MaxFloat32)
	var normal mgl32.Vec3
	for _, axis := range axes {
		overlap := projectRadius(axesA, a.HalfExtents, axis) + projectRadius(axesB, b.HalfExtents, axis) -
			mgl32.Abs(offset.Dot(axis))
		if overlap < 0 {
			return mgl32.Vec3{}, nil, false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			normal = axis
		}
	}
	if offset.Dot(normal) < 0 {
		normal = normal.Mul(-1)
	}

	var points []ContactPoint
	for _, p := range corners(pa, axesA, a.HalfExtents) {
		if insideBox(p, pb, axesB, b.HalfExtents) {
			points = append(points, ContactPoint{Point: p, Depth: minOverlap})
		}
	}
	for _, p := range corners(pb, axesB, b.HalfExtents) {
		if insideBox(p, pa, axesA, a.HalfExtents) {
			points = append(points, ContactPoint{Point: p, Depth: minOverlap})
		}
	}
	if len(points) == 0 {
		// Edge-edge contact: no corner is inside, use the midpoint
		mid := pa.Translation.Add(pb.Translation).Mul(0.5)
		points = append(points, ContactPoint{Point: mid, Depth: minOverlap})
	}
	return normal, points, true
}

func projectRadius(axes [3]mgl32.Vec3, half, axis mgl32.Vec3) float32 {
	var r float32
	for i := 0; i < 3; i++ {
		r += mgl32.Abs(axes[i].Dot(axis)) * half[i]
	}
	return r
}

func corners(p Pose, axes [3]mgl32.Vec3, half mgl32.Vec3) [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		c := p.Translation
		for k := 0; k < 3; k++ {
			s := half[k]
			if i&(1<<k) == 0 {
				s = -s
			}
			c = c.Add(axes[k].Mul(s))
		}
		out[i] = c
	}
	return out
}

const cornerSlop = 0.01

func insideBox(point mgl32.Vec3, p Pose, axes [3]mgl32.Vec3, half mgl32.Vec3) bool {
	d := point.Sub(p.Translation)
	for i := 0; i < 3; i++ {
		if mgl32.Abs(d.Dot(axes[i])) > half[i]+cornerSlop {
			return false
		}
	}
	return true
}
