// Package editor turns per-frame input into registry changes and commands:
// spawning, selecting, placing and the edit-mode HUD.
package editor

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
	"sandbox/logging"
	"sandbox/rendering"
	"sandbox/sim"
)

// ErrNoHit is returned by Place when the pointer ray hits nothing
var ErrNoHit = errors.New("nothing under the pointer")

const (
	MinScale  float32 = 0.1
	MaxScale  float32 = 5
	ScaleStep float32 = 0.1
)

// Actions is one frame of input. The view fills it in; the editor never
// reads devices itself.
type Actions struct {
	Dt       float32
	Pointer  mgl32.Vec2
	Viewport mgl32.Vec2

	Select     bool
	Place      bool
	SpawnBatch bool
	DestroyAll bool
	ScaleUp    bool
	ScaleDown  bool
	ToggleEdit bool

	// Orbit is camera yaw, pitch and zoom for this frame
	Orbit mgl32.Vec3
}

type Config struct {
	Scale      float32
	SpawnBatch int

	// Offset is the top-left corner of the 3D viewport inside the window
	Offset mgl32.Vec2
	Seed   int64
}

// Editor applies actions to the sandbox. It runs on the frame loop.
type Editor struct {
	registry *sim.Registry
	picker   *sim.Picker
	link     *sim.Link
	sync     *sim.FrontendSync
	renderer rendering.Renderer
	log      logging.Logger

	Camera   rendering.Camera
	scale    float32
	batch    int
	offset   mgl32.Vec2
	rng      *rand.Rand
	selected core.Handle
	editMode bool

	// pending holds commands the full queue turned away, oldest first
	pending []sim.Command
}

// New creates an editor. renderer must be the one the registry writes to.
func New(cfg Config, registry *sim.Registry, link *sim.Link, fs *sim.FrontendSync, renderer rendering.Renderer, log logging.Logger) *Editor {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 0.5
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Editor{
		registry: registry,
		picker:   sim.NewPicker(registry),
		link:     link,
		sync:     fs,
		renderer: renderer,
		log:      log,
		Camera:   rendering.DefaultCamera(),
		scale:    clampScale(cfg.Scale),
		batch:    cfg.SpawnBatch,
		offset:   cfg.Offset,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		editMode: true,
	}
}

func (e *Editor) Scale() float32        { return e.scale }
func (e *Editor) Selected() core.Handle { return e.selected }
func (e *Editor) EditMode() bool        { return e.editMode }
func (e *Editor) Pending() int          { return len(e.pending) }

// Apply handles one frame of input. Failures of individual actions are
// logged and do not stop the others. It never waits on the scheduler:
// commands that do not fit in the queue are retried on the next frame.
func (e *Editor) Apply(a Actions) {
	if err := e.flushPending(); err != nil {
		e.log.Warn("pending commands dropped", "error", err)
	}
	if a.ToggleEdit {
		e.editMode = !e.editMode
	}
	if a.ScaleUp {
		e.AdjustScale(ScaleStep)
	}
	if a.ScaleDown {
		e.AdjustScale(-ScaleStep)
	}
	if a.Orbit != (mgl32.Vec3{}) {
		e.Camera.Orbit(a.Orbit[0], a.Orbit[1], a.Orbit[2])
	}
	if a.DestroyAll {
		n := e.DestroyAll()
		e.log.Info("destroyed all entities", "count", n)
	}
	if a.SpawnBatch {
		if n, err := e.SpawnBatch(); err != nil {
			e.log.Error("spawn batch failed", "spawned", n, "error", err)
		}
	}
	if a.Viewport.X() <= 0 || a.Viewport.Y() <= 0 {
		return
	}
	if a.Select {
		e.Select(a.Pointer, a.Viewport)
	}
	if a.Place {
		if _, err := e.Place(a.Pointer, a.Viewport); err != nil {
			e.log.Warn("place failed", "error", err)
		}
	}
}

// AdjustScale changes the size used for new entities, clamped to
// [MinScale, MaxScale]
func (e *Editor) AdjustScale(delta float32) float32 {
	e.scale = clampScale(e.scale + delta)
	return e.scale
}

func clampScale(s float32) float32 {
	return mgl32.Clamp(s, MinScale, MaxScale)
}

// Ray returns the world space ray under the pointer
func (e *Editor) Ray(pointer, viewport mgl32.Vec2) (origin, dir mgl32.Vec3) {
	proj := e.Camera.Projection(viewport.X() / viewport.Y())
	return rendering.PointerRay(pointer, viewport, e.offset, proj, e.Camera.View())
}

// SpawnBatch creates the configured number of spheres at random positions
// above the floor
func (e *Editor) SpawnBatch() (int, error) {
	for i := 0; i < e.batch; i++ {
		pos := mgl32.Vec3{
			e.rng.Float32()*10 - 5,
			5 + e.rng.Float32()*10,
			e.rng.Float32()*10 - 5,
		}
		if _, err := e.registry.CreateAt(core.ShapeSphere, e.scale, pos); err != nil {
			return i, err
		}
	}
	return e.batch, nil
}

// DestroyAll removes every entity, clears the selection and forgets
// pending commands since they all target removed bodies
func (e *Editor) DestroyAll() int {
	e.selected = core.InvalidHandle
	e.pending = nil
	e.sync.Watch(core.InvalidHandle)
	return e.registry.DestroyAll()
}

// Select highlights the entity under the pointer, or clears the selection
// when the pointer is over nothing selectable
func (e *Editor) Select(pointer, viewport mgl32.Vec2) core.Handle {
	h, ok := e.picker.PickHandle(e.Ray(pointer, viewport))
	if !ok {
		h = core.InvalidHandle
	}
	if h == e.selected {
		return h
	}
	e.paint(e.selected, false)
	e.paint(h, true)
	e.selected = h
	e.sync.Watch(h)
	return h
}

func (e *Editor) paint(h core.Handle, highlight bool) {
	if h == core.InvalidHandle {
		return
	}
	ent, ok := e.registry.Lookup(h)
	if !ok {
		return
	}
	c := rendering.ColorFor(ent.Kind)
	if highlight {
		c = rendering.ColorHighlight
	}
	if err := e.renderer.SetColor(ent.Mesh, c); err != nil {
		e.log.Debug("set color failed", "handle", h.String(), "error", err)
	}
}

// Place spawns a cube and queues a move to the surface point under the
// pointer, raised by the current scale so it rests on top. If the command
// queue is full the move stays pending until a later frame.
func (e *Editor) Place(pointer, viewport mgl32.Vec2) (core.Handle, error) {
	point, ok := e.picker.PickPoint(e.Ray(pointer, viewport))
	if !ok {
		return core.InvalidHandle, ErrNoHit
	}
	h, err := e.registry.Create(core.ShapeCube, e.scale)
	if err != nil {
		return core.InvalidHandle, err
	}
	ent, ok := e.registry.Lookup(h)
	if !ok {
		return h, fmt.Errorf("%v: %w", h, sim.ErrNotFound)
	}
	target := point.Add(mgl32.Vec3{0, e.scale, 0})
	e.pending = append(e.pending, sim.Translate{Vector: target, Body: ent.Body})
	if err := e.flushPending(); err != nil {
		return h, fmt.Errorf("queue translate: %w", err)
	}
	return h, nil
}

// flushPending submits pending commands in order until the queue is full.
// A closed link discards them.
func (e *Editor) flushPending() error {
	for len(e.pending) > 0 {
		err := e.link.TrySubmitCommand(e.pending[0])
		switch {
		case err == nil:
			e.pending[0] = nil
			e.pending = e.pending[1:]
		case errors.Is(err, sim.ErrQueueFull):
			return nil
		default:
			n := len(e.pending)
			e.pending = nil
			return fmt.Errorf("%d commands: %w", n, err)
		}
	}
	return nil
}
