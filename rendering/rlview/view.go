// Package rlview draws a rendering.Scene with raylib. Everything here must
// run on the thread that opened the window.
package rlview

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
	"sandbox/rendering"
)

// Window opens the raylib window and context
func Window(title string, width, height, fps int) {
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(width), int32(height), title)
	if fps > 0 {
		rl.SetTargetFPS(int32(fps))
	}
	rl.SetExitKey(rl.KeyEscape)
}

func ShouldClose() bool { return rl.WindowShouldClose() }
func CloseWindow()      { rl.CloseWindow() }

// View draws every mesh of a scene. Unit models are uploaded on the first
// Draw, once the GL context exists.
type View struct {
	scene  *rendering.Scene
	models map[core.ShapeKind]rl.Model
	floor  mgl32.Vec3
	ready  bool
}

// NewView creates a view of scene with a floor of the given half extents
// whose top face sits at y = 0
func NewView(scene *rendering.Scene, floorHalfExtents mgl32.Vec3) *View {
	return &View{scene: scene, floor: floorHalfExtents}
}

func (v *View) load() {
	v.models = map[core.ShapeKind]rl.Model{
		core.ShapeSphere: rl.LoadModelFromMesh(rl.GenMeshSphere(1, 16, 16)),
		// Cubes are scaled by half extents, so the unit model spans [-1, 1]
		core.ShapeCube: rl.LoadModelFromMesh(rl.GenMeshCube(2, 2, 2)),
	}
	v.ready = true
}

// Draw renders the scene from cam
func (v *View) Draw(cam rendering.Camera) {
	if !v.ready {
		v.load()
	}
	rl.BeginMode3D(camera3D(cam))
	rl.DrawCube(rl.NewVector3(0, -v.floor.Y(), 0), 2*v.floor.X(), 2*v.floor.Y(), 2*v.floor.Z(), toColor(rendering.ColorFloor))
	rl.DrawGrid(int32(2*v.floor.X()), 1)

	v.scene.Each(func(_ rendering.MeshHandle, m rendering.Mesh) {
		model, ok := v.models[m.Spec.Kind]
		if !ok {
			return
		}
		axis, angle := m.Transform.AxisAngle()
		t := m.Transform.Translation
		s := m.Spec.Scale
		rl.DrawModelEx(model,
			rl.NewVector3(t.X(), t.Y(), t.Z()),
			rl.NewVector3(axis.X(), axis.Y(), axis.Z()),
			mgl32.RadToDeg(angle),
			rl.NewVector3(s, s, s),
			toColor(m.Color))
	})
	rl.EndMode3D()
}

// Unload frees the GPU models
func (v *View) Unload() {
	for _, m := range v.models {
		rl.UnloadModel(m)
	}
	v.models = nil
	v.ready = false
}

func camera3D(c rendering.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   rl.NewVector3(c.Position.X(), c.Position.Y(), c.Position.Z()),
		Target:     rl.NewVector3(c.Target.X(), c.Target.Y(), c.Target.Z()),
		Up:         rl.NewVector3(c.Up.X(), c.Up.Y(), c.Up.Z()),
		Fovy:       c.FovY,
		Projection: rl.CameraPerspective,
	}
}

func toColor(c color.RGBA) rl.Color {
	return rl.NewColor(c.R, c.G, c.B, c.A)
}
