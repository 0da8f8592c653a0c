package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
	"sandbox/physics"
)

// Pick is the result of a pointer ray query
type Pick struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3

	// Body is set when the hit collider is attached to a body; the floor has none
	Body    physics.BodyHandle
	HasBody bool
	Handle  core.Handle
}

// Picker answers ray queries against the registry's world
type Picker struct {
	registry *Registry
}

// NewPicker creates a picker over registry
func NewPicker(registry *Registry) *Picker {
	return &Picker{registry: registry}
}

// Pick casts the ray and resolves the hit collider to its body and entity.
// It holds the owner lock, so it waits for a running step.
func (p *Picker) Pick(origin, dir mgl32.Vec3) (Pick, bool) {
	owner := p.registry.owner
	owner.Lock()
	defer owner.Unlock()

	hit, ok := owner.castRayLocked(origin, dir)
	if !ok {
		return Pick{}, false
	}
	out := Pick{Point: hit.Point, Normal: hit.Normal}
	c, ok := owner.world.Colliders.Get(hit.Collider)
	if !ok {
		return out, true
	}
	if parent, ok := c.Parent(); ok {
		out.Body, out.HasBody = parent, true
		out.Handle = p.registry.byBody[parent]
	}
	return out, true
}

// PickBody returns the body under the ray, if any
func (p *Picker) PickBody(origin, dir mgl32.Vec3) (physics.BodyHandle, bool) {
	pick, ok := p.Pick(origin, dir)
	if !ok || !pick.HasBody {
		return physics.BodyHandle{}, false
	}
	return pick.Body, true
}

// PickHandle returns the entity under the ray, if any
func (p *Picker) PickHandle(origin, dir mgl32.Vec3) (core.Handle, bool) {
	pick, ok := p.Pick(origin, dir)
	if !ok || pick.Handle == core.InvalidHandle {
		return core.InvalidHandle, false
	}
	return pick.Handle, true
}

// PickPoint returns the first surface point under the ray, floor included
func (p *Picker) PickPoint(origin, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	pick, ok := p.Pick(origin, dir)
	return pick.Point, ok
}
