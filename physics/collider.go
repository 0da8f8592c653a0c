package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ColliderHandle references a collider inside a ColliderSet
type ColliderHandle struct {
	Index      uint32
	Generation uint32
}

func (h ColliderHandle) String() string {
	return fmt.Sprintf("collider(%d:%d)", h.Index, h.Generation)
}

// Collider attaches a shape and surface material to an optional parent body.
// The local pose is relative to the parent, or the world when there is none.
type Collider struct {
	shape       Shape
	local       Pose
	parent      BodyHandle
	hasParent   bool
	restitution float32
	friction    float32
	density     float32

	UserData uint64
}

// NewCollider wraps a shape with default material values
func NewCollider(shape Shape) *Collider {
	return &Collider{
		shape:    shape,
		local:    IdentityPose(),
		friction: 0.5,
		density:  1.0,
	}
}

// NewBall builds a spherical collider
func NewBall(radius float32) *Collider {
	return NewCollider(Ball{Radius: radius})
}

// NewCuboid builds a box collider from half extents
func NewCuboid(hx, hy, hz float32) *Collider {
	return NewCollider(Cuboid{HalfExtents: mgl32.Vec3{hx, hy, hz}})
}

// WithTranslation sets the local offset
func (c *Collider) WithTranslation(v mgl32.Vec3) *Collider {
	c.local.Translation = v
	return c
}

// WithRestitution sets the bounciness in [0, 1]
func (c *Collider) WithRestitution(r float32) *Collider {
	c.restitution = r
	return c
}

// WithFriction sets the Coulomb friction coefficient
func (c *Collider) WithFriction(f float32) *Collider {
	c.friction = f
	return c
}

// WithDensity sets the density used for mass computation
func (c *Collider) WithDensity(d float32) *Collider {
	c.density = d
	return c
}

func (c *Collider) Shape() Shape         { return c.shape }
func (c *Collider) Restitution() float32 { return c.restitution }
func (c *Collider) Friction() float32    { return c.friction }
func (c *Collider) Density() float32     { return c.density }

// Parent returns the body the collider is attached to, if any
func (c *Collider) Parent() (BodyHandle, bool) {
	return c.parent, c.hasParent
}

// WorldPose resolves the collider pose through its parent body
func (c *Collider) WorldPose(bodies *BodySet) Pose {
	if !c.hasParent {
		return c.local
	}
	b, ok := bodies.Get(c.parent)
	if !ok {
		return c.local
	}
	return b.Pose().Mul(c.local)
}

// ColliderSet stores colliders in a generational arena
type ColliderSet struct {
	arena arena[Collider]
}

// NewColliderSet creates an empty collider set
func NewColliderSet() *ColliderSet {
	return &ColliderSet{}
}

// Insert adds a parentless collider
func (s *ColliderSet) Insert(c *Collider) ColliderHandle {
	c.hasParent = false
	idx, gen := s.arena.insert(c)
	return ColliderHandle{Index: idx, Generation: gen}
}

// InsertWithParent attaches c to parent and updates the parent's mass
func (s *ColliderSet) InsertWithParent(c *Collider, parent BodyHandle, bodies *BodySet) (ColliderHandle, error) {
	b, ok := bodies.Get(parent)
	if !ok {
		return ColliderHandle{}, fmt.Errorf("attach collider to %v: %w", parent, ErrBodyNotFound)
	}
	c.parent = parent
	c.hasParent = true
	idx, gen := s.arena.insert(c)
	h := ColliderHandle{Index: idx, Generation: gen}
	b.colliders = append(b.colliders, h)
	b.recomputeMass(s)
	return h, nil
}

// Get returns the collider for h, or false when h is stale
func (s *ColliderSet) Get(h ColliderHandle) (*Collider, bool) {
	return s.arena.get(h.Index, h.Generation)
}

// Len returns the number of live colliders
func (s *ColliderSet) Len() int { return s.arena.count }

// Each calls fn for every live collider in slot order
func (s *ColliderSet) Each(fn func(ColliderHandle, *Collider)) {
	s.arena.each(func(idx, gen uint32, c *Collider) {
		fn(ColliderHandle{Index: idx, Generation: gen}, c)
	})
}

// Remove detaches and deletes a collider. The parent's mass is recomputed
// and, when wake is set, the parent is woken.
func (s *ColliderSet) Remove(h ColliderHandle, islands *IslandManager, bodies *BodySet, wake bool) (*Collider, bool) {
	c, ok := s.removeRaw(h)
	if !ok {
		return nil, false
	}
	if !c.hasParent {
		return c, true
	}
	if b, ok := bodies.Get(c.parent); ok {
		b.detachCollider(h)
		b.recomputeMass(s)
		if wake && b.IsDynamic() {
			islands.wake(c.parent, b)
		}
	}
	return c, true
}

func (s *ColliderSet) removeRaw(h ColliderHandle) (*Collider, bool) {
	return s.arena.remove(h.Index, h.Generation)
}
