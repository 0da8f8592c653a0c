package rendering

import "github.com/go-gl/mathgl/mgl32"

// PointerRay converts a pointer position in window pixels into a world space
// ray leaving the camera. offset is the top-left corner of the 3D viewport
// inside the window and viewport its size, so UI panels around the view do
// not skew the ray.
func PointerRay(pointer, viewport, offset mgl32.Vec2, proj, view mgl32.Mat4) (origin, dir mgl32.Vec3) {
	// Convert to NDC, y up
	x := 2*(pointer.X()-offset.X())/viewport.X() - 1
	y := 1 - 2*(pointer.Y()-offset.Y())/viewport.Y()

	invViewProj := proj.Mul4(view).Inv()
	far := invViewProj.Mul4x1(mgl32.Vec4{x, y, 1, 1})
	far = far.Mul(1 / far.W())

	origin = view.Inv().Col(3).Vec3()
	dir = far.Vec3().Sub(origin).Normalize()
	return origin, dir
}

// Camera is a perspective look-at camera
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 // degrees
	Near     float32
	Far      float32
}

// DefaultCamera looks at the origin from above and behind
func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 8, 16},
		Target:   mgl32.Vec3{0, 1, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     45,
		Near:     0.01,
		Far:      1000,
	}
}

// View returns the world to eye matrix
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the eye to clip matrix for the given aspect ratio
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// Orbit rotates the camera around its target by yaw and pitch radians and
// moves it toward the target by zoom
func (c *Camera) Orbit(yaw, pitch, zoom float32) {
	offset := c.Position.Sub(c.Target)
	dist := offset.Len() - zoom
	if dist < 1 {
		dist = 1
	}
	q := mgl32.QuatRotate(yaw, c.Up)
	offset = q.Rotate(offset)

	right := offset.Cross(c.Up).Normalize()
	tilted := mgl32.QuatRotate(pitch, right).Rotate(offset)
	// Keep away from the poles so the look-at basis stays defined
	if mgl32.Abs(tilted.Normalize().Dot(c.Up)) < 0.98 {
		offset = tilted
	}
	c.Position = c.Target.Add(offset.Normalize().Mul(dist))
}
