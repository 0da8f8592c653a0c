package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// IntegrationParameters tune the step
type IntegrationParameters struct {
	// Dt is the nominal timestep, used when Step is given a non-positive dt
	Dt               float32
	MaxDt            float32
	Substeps         int
	SolverIterations int
	Baumgarte        float32
	Slop             float32
	PredictionMargin float32
}

// DefaultIntegrationParameters returns values suited to a 60 Hz step
func DefaultIntegrationParameters() IntegrationParameters {
	return IntegrationParameters{
		Dt:               1.0 / 60.0,
		MaxDt:            1.0 / 15.0,
		Substeps:         2,
		SolverIterations: 8,
		Baumgarte:        0.2,
		Slop:             0.005,
		PredictionMargin: 0.02,
	}
}

// World bundles every set and pipeline stage of a simulation
type World struct {
	Bodies      *BodySet
	Colliders   *ColliderSet
	Joints      *ImpulseJointSet
	Islands     *IslandManager
	BroadPhase  *BroadPhase
	NarrowPhase *NarrowPhase
	Queries     *QueryPipeline
	Params      IntegrationParameters

	solver solver
	steps  uint64
}

// NewWorld creates an empty world with default parameters
func NewWorld() *World {
	return &World{
		Bodies:      NewBodySet(),
		Colliders:   NewColliderSet(),
		Joints:      NewImpulseJointSet(),
		Islands:     NewIslandManager(),
		BroadPhase:  NewBroadPhase(),
		NarrowPhase: NewNarrowPhase(),
		Queries:     NewQueryPipeline(),
		Params:      DefaultIntegrationParameters(),
	}
}

// Steps returns how many times Step has run
func (w *World) Steps() uint64 { return w.steps }

// Step advances the simulation by dt seconds. It cannot fail; dt is
// clamped to MaxDt and a non-positive dt falls back to Params.Dt.
func (w *World) Step(gravity mgl32.Vec3, dt float32) {
	if dt <= 0 {
		dt = w.Params.Dt
	}
	if w.Params.MaxDt > 0 && dt > w.Params.MaxDt {
		dt = w.Params.MaxDt
	}
	substeps := w.Params.Substeps
	if substeps < 1 {
		substeps = 1
	}
	h := dt / float32(substeps)
	for i := 0; i < substeps; i++ {
		w.substep(gravity, h)
	}
	w.Queries.Update(w.Bodies, w.Colliders)
	w.steps++
}

func (w *World) substep(gravity mgl32.Vec3, h float32) {
	w.Islands.refresh(w.Bodies)

	w.Bodies.Each(func(_ BodyHandle, b *RigidBody) {
		if b.bodyType == BodyTypeKinematicPositionBased {
			if b.hasNext {
				b.linvel = b.nextTranslation.Sub(b.translation).Mul(1 / h)
			} else {
				b.linvel = mgl32.Vec3{}
			}
		}
	})

	for _, bh := range w.Islands.active {
		b, _ := w.Bodies.Get(bh)
		b.linvel = b.linvel.Add(gravity.Mul(b.gravityScale * h))
		b.linvel = b.linvel.Mul(1 / (1 + h*b.linearDamping))
		b.angvel = b.angvel.Mul(1 / (1 + h*b.angularDamping))
	}

	pairs := w.BroadPhase.update(w.Bodies, w.Colliders, w.Params.PredictionMargin)
	contacts := w.NarrowPhase.update(pairs, w.Bodies, w.Colliders)
	w.wakeTouched(contacts)

	w.solver.prepare(contacts, w.Joints, w.Bodies, w.Colliders, w.Params, h)
	w.solver.solve(w.Params.SolverIterations)

	w.Bodies.Each(func(_ BodyHandle, b *RigidBody) {
		switch {
		case b.bodyType == BodyTypeKinematicPositionBased:
			if b.hasNext {
				b.translation = b.nextTranslation
				b.hasNext = false
			}
		case b.bodyType == BodyTypeKinematicVelocityBased,
			b.IsDynamic() && !b.sleeping:
			integratePose(b, h)
		}
	})

	w.Islands.updateSleep(w.Bodies, h)
}

// wakeTouched wakes sleeping bodies in contact with something moving
func (w *World) wakeTouched(contacts []Contact) {
	for _, ct := range contacts {
		ca, _ := w.Colliders.Get(ct.A)
		cb, _ := w.Colliders.Get(ct.B)
		if ca == nil || cb == nil {
			continue
		}
		w.wakeIfPushed(ca, cb)
		w.wakeIfPushed(cb, ca)
	}
}

func (w *World) wakeIfPushed(pusher, pushed *Collider) {
	if !pusher.hasParent || !pushed.hasParent {
		return
	}
	a, okA := w.Bodies.Get(pusher.parent)
	b, okB := w.Bodies.Get(pushed.parent)
	if !okA || !okB || !b.sleeping || !b.IsDynamic() {
		return
	}
	moving := (a.IsDynamic() && !a.sleeping) || (a.bodyType.IsKinematic() && a.linvel.LenSqr() > 0)
	if moving {
		w.Islands.wake(pushed.parent, b)
	}
}

func integratePose(b *RigidBody, h float32) {
	b.translation = b.translation.Add(b.linvel.Mul(h))
	if b.angvel.LenSqr() > 0 {
		spin := mgl32.Quat{W: 0, V: b.angvel.Mul(0.5 * h)}
		b.rotation = b.rotation.Add(spin.Mul(b.rotation)).Normalize()
	}
}

// AddBody inserts a body with one collider attached
func (w *World) AddBody(b *RigidBody, c *Collider) (BodyHandle, ColliderHandle, error) {
	bh := w.Bodies.Insert(b)
	ch, err := w.Colliders.InsertWithParent(c, bh, w.Bodies)
	if err != nil {
		w.Bodies.Remove(bh, w.Islands, w.Colliders, w.Joints, true)
		return BodyHandle{}, ColliderHandle{}, err
	}
	if b.IsDynamic() {
		w.Islands.wake(bh, b)
	}
	return bh, ch, nil
}

// AddFloor inserts a fixed parentless cuboid whose top face lies at y = 0
func (w *World) AddFloor(halfExtents mgl32.Vec3) ColliderHandle {
	c := NewCuboid(halfExtents.X(), halfExtents.Y(), halfExtents.Z()).
		WithTranslation(mgl32.Vec3{0, -halfExtents.Y(), 0})
	h := w.Colliders.Insert(c)
	w.Queries.Update(w.Bodies, w.Colliders)
	return h
}

// RemoveBody deletes a body along with its colliders and joints
func (w *World) RemoveBody(h BodyHandle) error {
	if _, ok := w.Bodies.Remove(h, w.Islands, w.Colliders, w.Joints, true); !ok {
		return fmt.Errorf("remove %v: %w", h, ErrBodyNotFound)
	}
	return nil
}

// Body resolves h or fails with ErrBodyNotFound
func (w *World) Body(h BodyHandle) (*RigidBody, error) {
	b, ok := w.Bodies.Get(h)
	if !ok {
		return nil, fmt.Errorf("%v: %w", h, ErrBodyNotFound)
	}
	return b, nil
}

// ApplyImpulse applies a linear impulse at the centre of mass and wakes the body
func (w *World) ApplyImpulse(h BodyHandle, impulse mgl32.Vec3) error {
	b, err := w.Body(h)
	if err != nil {
		return err
	}
	b.ApplyImpulse(impulse, true)
	return nil
}

// SetTranslation moves a body and wakes it
func (w *World) SetTranslation(h BodyHandle, pos mgl32.Vec3) error {
	b, err := w.Body(h)
	if err != nil {
		return err
	}
	b.SetTranslation(pos, true)
	return nil
}

// SetBodyType changes how the body is simulated and wakes it
func (w *World) SetBodyType(h BodyHandle, t BodyType) error {
	b, err := w.Body(h)
	if err != nil {
		return err
	}
	b.SetBodyType(t, true)
	if !t.IsDynamic() {
		w.Islands.remove(h)
	}
	return nil
}

// CastRay refreshes the query pipeline and returns the nearest hit
func (w *World) CastRay(ray Ray, maxToi float32, solid bool, filter QueryFilter) (RayHit, bool) {
	w.Queries.Update(w.Bodies, w.Colliders)
	return w.Queries.CastRay(ray, maxToi, solid, filter)
}
