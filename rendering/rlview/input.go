package rlview

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"sandbox/editor"
)

// orbit speeds
const (
	dragSpeed = 0.005
	zoomSpeed = 1.0
)

// Poll reads this frame's input into editor actions. Keys and buttons are
// edge-triggered; camera drag is level-triggered on the middle button.
func Poll() editor.Actions {
	a := editor.Actions{
		Dt:         rl.GetFrameTime(),
		Pointer:    vec2(rl.GetMousePosition()),
		Viewport:   mgl32.Vec2{float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())},
		Select:     rl.IsMouseButtonPressed(rl.MouseLeftButton),
		Place:      rl.IsMouseButtonPressed(rl.MouseRightButton),
		SpawnBatch: rl.IsKeyPressed(rl.KeyF),
		DestroyAll: rl.IsKeyPressed(rl.KeyR),
		ScaleUp:    rl.IsKeyPressed(rl.KeyRightBracket),
		ScaleDown:  rl.IsKeyPressed(rl.KeyLeftBracket),
		ToggleEdit: rl.IsKeyPressed(rl.KeyTab),
	}
	if rl.IsMouseButtonDown(rl.MouseMiddleButton) {
		d := rl.GetMouseDelta()
		a.Orbit = mgl32.Vec3{-d.X * dragSpeed, -d.Y * dragSpeed, 0}
	}
	a.Orbit[2] = rl.GetMouseWheelMove() * zoomSpeed
	return a
}

func vec2(v rl.Vector2) mgl32.Vec2 { return mgl32.Vec2{v.X, v.Y} }

// BeginFrame clears the back buffer
func BeginFrame() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(24, 24, 28, 255))
}

func EndFrame() { rl.EndDrawing() }

// DrawHUD draws lines of text in a translucent panel at the top left
func DrawHUD(lines []string) {
	if len(lines) == 0 {
		return
	}
	const (
		fontSize = 18
		lineH    = 22
		pad      = 8
	)
	width := int32(0)
	for _, l := range lines {
		if w := rl.MeasureText(l, fontSize); w > width {
			width = w
		}
	}
	rl.DrawRectangle(0, 0, width+2*pad, int32(len(lines))*lineH+2*pad, rl.NewColor(20, 20, 20, 200))
	for i, l := range lines {
		rl.DrawText(l, pad, pad+int32(i)*lineH, fontSize, rl.RayWhite)
	}
}

// DrawFooter draws a single status line at the bottom of the window
func DrawFooter(format string, args ...any) {
	rl.DrawText(fmt.Sprintf(format, args...), 8, int32(rl.GetScreenHeight())-24, 16, rl.LightGray)
}
