package rendering

import (
	"errors"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
)

// ErrUnknownMesh is returned for handles that were never created or were destroyed
var ErrUnknownMesh = errors.New("unknown mesh")

// MeshHandle identifies a mesh owned by a Renderer
type MeshHandle uint64

// MeshSpec describes a primitive mesh to create
type MeshSpec struct {
	Kind  core.ShapeKind
	Scale float32
	Color color.RGBA
}

// Transform places a mesh in the world
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// Matrix returns the model matrix for the transform and a uniform scale
func (t Transform) Matrix(scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// AxisAngle returns the rotation as a unit axis and an angle in radians.
// The identity rotation returns the y axis and zero.
func (t Transform) AxisAngle() (mgl32.Vec3, float32) {
	q := t.Rotation.Normalize()
	w := float64(mgl32.Clamp(q.W, -1, 1))
	s := math.Sqrt(1 - w*w)
	if s < 1e-4 {
		return mgl32.Vec3{0, 1, 0}, 0
	}
	return q.V.Mul(float32(1 / s)), float32(2 * math.Acos(w))
}

// Renderer is the mesh store the simulation writes poses into. Drawing is
// done separately by a view reading the same meshes.
type Renderer interface {
	CreateMesh(spec MeshSpec) (MeshHandle, error)
	DestroyMesh(h MeshHandle) error
	SetTransform(h MeshHandle, t Transform) error
	SetColor(h MeshHandle, c color.RGBA) error
}

// Default palette
var (
	ColorSphere    = color.RGBA{R: 230, G: 120, B: 60, A: 255}
	ColorCube      = color.RGBA{R: 70, G: 140, B: 220, A: 255}
	ColorHighlight = color.RGBA{R: 255, G: 230, B: 40, A: 255}
	ColorFloor     = color.RGBA{R: 90, G: 90, B: 96, A: 255}
)

// ColorFor returns the default colour for a shape kind
func ColorFor(kind core.ShapeKind) color.RGBA {
	if kind == core.ShapeCube {
		return ColorCube
	}
	return ColorSphere
}
