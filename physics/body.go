package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// BodyType decides how a body reacts to forces and contacts
type BodyType int

const (
	BodyTypeDynamic BodyType = iota
	BodyTypeFixed
	BodyTypeKinematicPositionBased
	BodyTypeKinematicVelocityBased
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDynamic:
		return "dynamic"
	case BodyTypeFixed:
		return "fixed"
	case BodyTypeKinematicPositionBased:
		return "kinematic_position"
	case BodyTypeKinematicVelocityBased:
		return "kinematic_velocity"
	}
	return fmt.Sprintf("BodyType(%d)", int(t))
}

// ParseBodyType converts a body type name back into a BodyType
func ParseBodyType(s string) (BodyType, error) {
	for t := BodyTypeDynamic; t <= BodyTypeKinematicVelocityBased; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown body type %q", s)
}

// IsDynamic reports whether bodies of this type are moved by the solver
func (t BodyType) IsDynamic() bool { return t == BodyTypeDynamic }

// IsKinematic reports whether bodies of this type are moved by the user only
func (t BodyType) IsKinematic() bool {
	return t == BodyTypeKinematicPositionBased || t == BodyTypeKinematicVelocityBased
}

// BodyHandle references a body inside a BodySet. The generation makes
// handles to removed bodies fail lookups even after the slot is reused.
type BodyHandle struct {
	Index      uint32
	Generation uint32
}

func (h BodyHandle) String() string {
	return fmt.Sprintf("body(%d:%d)", h.Index, h.Generation)
}

// RigidBody holds the dynamic state of one body. Mass properties are
// derived from the attached colliders.
type RigidBody struct {
	bodyType    BodyType
	translation mgl32.Vec3
	rotation    mgl32.Quat
	linvel      mgl32.Vec3
	angvel      mgl32.Vec3

	// Kinematic position-based bodies move toward this pose during the next step
	nextTranslation mgl32.Vec3
	hasNext         bool

	linearDamping  float32
	angularDamping float32
	gravityScale   float32

	mass       float32
	invMass    float32
	inertia    float32 // scalar approximation of the inertia tensor
	invInertia float32

	colliders []ColliderHandle

	sleeping bool
	idleTime float32

	UserData uint64
}

// NewRigidBody creates a body of the given type at the origin
func NewRigidBody(t BodyType) *RigidBody {
	return &RigidBody{
		bodyType:       t,
		rotation:       mgl32.QuatIdent(),
		linearDamping:  0.0,
		angularDamping: 0.05,
		gravityScale:   1.0,
		mass:           1,
		invMass:        1,
		inertia:        1,
		invInertia:     1,
	}
}

// WithTranslation sets the initial position
func (b *RigidBody) WithTranslation(v mgl32.Vec3) *RigidBody {
	b.translation = v
	b.nextTranslation = v
	return b
}

// WithRotation sets the initial orientation
func (b *RigidBody) WithRotation(q mgl32.Quat) *RigidBody {
	b.rotation = q.Normalize()
	return b
}

// WithLinvel sets the initial linear velocity
func (b *RigidBody) WithLinvel(v mgl32.Vec3) *RigidBody {
	b.linvel = v
	return b
}

// WithDamping sets linear and angular damping coefficients
func (b *RigidBody) WithDamping(linear, angular float32) *RigidBody {
	b.linearDamping = linear
	b.angularDamping = angular
	return b
}

// WithGravityScale scales the world gravity for this body
func (b *RigidBody) WithGravityScale(s float32) *RigidBody {
	b.gravityScale = s
	return b
}

func (b *RigidBody) BodyType() BodyType          { return b.bodyType }
func (b *RigidBody) Translation() mgl32.Vec3     { return b.translation }
func (b *RigidBody) Rotation() mgl32.Quat        { return b.rotation }
func (b *RigidBody) Linvel() mgl32.Vec3          { return b.linvel }
func (b *RigidBody) Angvel() mgl32.Vec3          { return b.angvel }
func (b *RigidBody) Mass() float32               { return b.mass }
func (b *RigidBody) IsSleeping() bool            { return b.sleeping }
func (b *RigidBody) Colliders() []ColliderHandle { return b.colliders }

// IsDynamic reports whether the solver moves this body
func (b *RigidBody) IsDynamic() bool { return b.bodyType.IsDynamic() }

// Pose returns translation and rotation as one value
func (b *RigidBody) Pose() Pose {
	return Pose{Translation: b.translation, Rotation: b.rotation}
}

// GravitationalPotentialEnergy returns m * (-g . p) for the current position
func (b *RigidBody) GravitationalPotentialEnergy(gravity mgl32.Vec3) float32 {
	if !b.IsDynamic() {
		return 0
	}
	return -b.mass * gravity.Dot(b.translation)
}

// KineticEnergy returns the translational plus rotational kinetic energy
func (b *RigidBody) KineticEnergy() float32 {
	return 0.5*b.mass*b.linvel.LenSqr() + 0.5*b.inertia*b.angvel.LenSqr()
}

// SetTranslation teleports the body. Kinematic position-based bodies are
// moved at the next step instead so contacts see the motion.
func (b *RigidBody) SetTranslation(v mgl32.Vec3, wake bool) {
	if b.bodyType == BodyTypeKinematicPositionBased {
		b.nextTranslation = v
		b.hasNext = true
	} else {
		b.translation = v
	}
	if wake {
		b.WakeUp()
	}
}

// SetBodyType switches how the body is simulated. Bodies that stop being
// dynamic lose their velocity.
func (b *RigidBody) SetBodyType(t BodyType, wake bool) {
	if t == b.bodyType {
		return
	}
	b.bodyType = t
	b.nextTranslation = b.translation
	b.hasNext = false
	if !t.IsDynamic() {
		b.linvel = mgl32.Vec3{}
		b.angvel = mgl32.Vec3{}
	}
	if wake {
		b.WakeUp()
	}
}

// SetLinvel overrides the linear velocity
func (b *RigidBody) SetLinvel(v mgl32.Vec3, wake bool) {
	b.linvel = v
	if wake {
		b.WakeUp()
	}
}

// ApplyImpulse changes the linear velocity by impulse / mass. Non-dynamic
// bodies ignore impulses.
func (b *RigidBody) ApplyImpulse(impulse mgl32.Vec3, wake bool) {
	if !b.IsDynamic() {
		return
	}
	b.linvel = b.linvel.Add(impulse.Mul(b.invMass))
	if wake {
		b.WakeUp()
	}
}

// ApplyTorqueImpulse changes the angular velocity
func (b *RigidBody) ApplyTorqueImpulse(torque mgl32.Vec3, wake bool) {
	if !b.IsDynamic() {
		return
	}
	b.angvel = b.angvel.Add(torque.Mul(b.invInertia))
	if wake {
		b.WakeUp()
	}
}

// WakeUp clears the sleeping state
func (b *RigidBody) WakeUp() {
	b.sleeping = false
	b.idleTime = 0
}

func (b *RigidBody) sleep() {
	b.sleeping = true
	b.linvel = mgl32.Vec3{}
	b.angvel = mgl32.Vec3{}
}

// effectiveInvMass is zero for anything the solver must not move
func (b *RigidBody) effectiveInvMass() float32 {
	if b == nil || !b.IsDynamic() {
		return 0
	}
	return b.invMass
}

func (b *RigidBody) effectiveInvInertia() float32 {
	if b == nil || !b.IsDynamic() {
		return 0
	}
	return b.invInertia
}

func (b *RigidBody) velocityAt(point mgl32.Vec3) mgl32.Vec3 {
	if b == nil {
		return mgl32.Vec3{}
	}
	r := point.Sub(b.translation)
	return b.linvel.Add(b.angvel.Cross(r))
}

func (b *RigidBody) applyImpulseAt(impulse, point mgl32.Vec3) {
	if b == nil || !b.IsDynamic() {
		return
	}
	r := point.Sub(b.translation)
	b.linvel = b.linvel.Add(impulse.Mul(b.invMass))
	b.angvel = b.angvel.Add(r.Cross(impulse).Mul(b.invInertia))
}

// recomputeMass sums mass and inertia over the attached colliders
func (b *RigidBody) recomputeMass(colliders *ColliderSet) {
	var mass, inertia float32
	for _, ch := range b.colliders {
		c, ok := colliders.Get(ch)
		if !ok {
			continue
		}
		m := c.density * c.shape.Volume()
		mass += m
		inertia += c.shape.InertiaFactor() * m
	}
	if mass <= 0 {
		// Colliderless dynamic bodies still need to respond to impulses
		mass, inertia = 1, 1
	}
	b.mass = mass
	b.invMass = 1 / mass
	b.inertia = inertia
	b.invInertia = 0
	if inertia > 0 {
		b.invInertia = 1 / inertia
	}
}

func (b *RigidBody) detachCollider(h ColliderHandle) {
	for i, ch := range b.colliders {
		if ch == h {
			b.colliders = append(b.colliders[:i], b.colliders[i+1:]...)
			return
		}
	}
}

// BodySet stores rigid bodies in a generational arena
type BodySet struct {
	arena arena[RigidBody]
}

// NewBodySet creates an empty body set
func NewBodySet() *BodySet {
	return &BodySet{}
}

// Insert adds a body and returns its handle
func (s *BodySet) Insert(b *RigidBody) BodyHandle {
	idx, gen := s.arena.insert(b)
	return BodyHandle{Index: idx, Generation: gen}
}

// Get returns the body for h, or false when h is stale
func (s *BodySet) Get(h BodyHandle) (*RigidBody, bool) {
	return s.arena.get(h.Index, h.Generation)
}

// Contains reports whether h refers to a live body
func (s *BodySet) Contains(h BodyHandle) bool {
	_, ok := s.Get(h)
	return ok
}

// Len returns the number of live bodies
func (s *BodySet) Len() int { return s.arena.count }

// Each calls fn for every live body in slot order
func (s *BodySet) Each(fn func(BodyHandle, *RigidBody)) {
	s.arena.each(func(idx, gen uint32, b *RigidBody) {
		fn(BodyHandle{Index: idx, Generation: gen}, b)
	})
}

// Handles returns the handles of all live bodies
func (s *BodySet) Handles() []BodyHandle {
	out := make([]BodyHandle, 0, s.Len())
	s.Each(func(h BodyHandle, _ *RigidBody) {
		out = append(out, h)
	})
	return out
}

// Remove deletes a body, drops it from island bookkeeping, removes every
// joint attached to it and, when removeColliders is set, its colliders.
// Colliders that are kept become parentless at their last world pose.
func (s *BodySet) Remove(h BodyHandle, islands *IslandManager, colliders *ColliderSet, joints *ImpulseJointSet, removeColliders bool) (*RigidBody, bool) {
	b, ok := s.Get(h)
	if !ok {
		return nil, false
	}

	islands.remove(h)
	joints.RemoveAttachedTo(h, s, true)
	for _, ch := range append([]ColliderHandle(nil), b.colliders...) {
		if removeColliders {
			colliders.removeRaw(ch)
			continue
		}
		if c, ok := colliders.Get(ch); ok {
			c.local = b.Pose().Mul(c.local)
			c.hasParent = false
		}
	}
	b.colliders = nil

	s.arena.remove(h.Index, h.Generation)
	return b, true
}
