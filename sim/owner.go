package sim

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/physics"
)

// Owner guards the physics world with one exclusive lock. Steps, entity
// creation and destruction, pose reads and ray queries all go through it.
type Owner struct {
	mu      sync.Mutex
	world   *physics.World
	gravity mgl32.Vec3
}

// NewOwner takes ownership of world. The world must not be touched
// afterwards except through the owner.
func NewOwner(world *physics.World, gravity mgl32.Vec3) *Owner {
	return &Owner{world: world, gravity: gravity}
}

func (o *Owner) Lock()         { o.mu.Lock() }
func (o *Owner) Unlock()       { o.mu.Unlock() }
func (o *Owner) TryLock() bool { return o.mu.TryLock() }

// Gravity returns the gravity vector used for every step
func (o *Owner) Gravity() mgl32.Vec3 { return o.gravity }

// World returns the guarded world. Callers must hold the lock.
func (o *Owner) World() *physics.World { return o.world }

// With runs fn while holding the lock, waiting for it if needed
func (o *Owner) With(fn func(w *physics.World)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(o.world)
}

// TryWith runs fn only if the lock is free right now
func (o *Owner) TryWith(fn func(w *physics.World)) bool {
	if !o.mu.TryLock() {
		return false
	}
	defer o.mu.Unlock()
	fn(o.world)
	return true
}

// CastRay returns the nearest solid hit along origin + t*dir within
// physics.DefaultMaxToi. It waits for any running step.
func (o *Owner) CastRay(origin, dir mgl32.Vec3) (physics.RayHit, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.castRayLocked(origin, dir)
}

func (o *Owner) castRayLocked(origin, dir mgl32.Vec3) (physics.RayHit, bool) {
	return o.world.CastRay(physics.Ray{Origin: origin, Dir: dir}, physics.DefaultMaxToi, true, nil)
}
