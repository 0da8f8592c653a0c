package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/core"
	"sandbox/logging"
	"sandbox/physics"
	"sandbox/rendering"
)

// DefaultSpawn is where Create places new entities
var DefaultSpawn = mgl32.Vec3{0, 1, 0}

// Entity pairs a physics body with the mesh drawn for it
type Entity struct {
	Mesh  rendering.MeshHandle
	Body  physics.BodyHandle
	Kind  core.ShapeKind
	Scale float32
}

// EntityState is a copy of an entity's simulated state
type EntityState struct {
	Handle   core.Handle
	Kind     core.ShapeKind
	Scale    float32
	BodyType physics.BodyType
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Linvel   mgl32.Vec3
	Sleeping bool

	// Potential is the gravitational potential energy relative to y = 0
	Potential float32
}

// Registry maps entity handles to body and mesh pairs. Its maps are guarded
// by the owner's lock so they always agree with the world's body set.
type Registry struct {
	owner    *Owner
	renderer rendering.Renderer
	log      logging.Logger

	entities map[core.Handle]Entity
	byBody   map[physics.BodyHandle]core.Handle
	last     core.Handle
}

// NewRegistry creates an empty registry over owner's world
func NewRegistry(owner *Owner, renderer rendering.Renderer, log logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{
		owner:    owner,
		renderer: renderer,
		log:      log,
		entities: make(map[core.Handle]Entity),
		byBody:   make(map[physics.BodyHandle]core.Handle),
	}
}

// Owner returns the owner guarding the registry
func (r *Registry) Owner() *Owner { return r.owner }

// Create spawns an entity at DefaultSpawn
func (r *Registry) Create(kind core.ShapeKind, scale float32) (core.Handle, error) {
	return r.CreateAt(kind, scale, DefaultSpawn)
}

// CreateAt spawns a dynamic body with a collider for kind and a matching
// mesh. Either both are created or neither.
func (r *Registry) CreateAt(kind core.ShapeKind, scale float32, pos mgl32.Vec3) (core.Handle, error) {
	if !kind.Valid() {
		return core.InvalidHandle, fmt.Errorf("%w: unknown kind %v", ErrInvalidShape, kind)
	}
	if scale <= 0 {
		return core.InvalidHandle, fmt.Errorf("%w: scale must be positive, got %v", ErrInvalidShape, scale)
	}

	r.owner.Lock()
	defer r.owner.Unlock()
	w := r.owner.world

	body := physics.NewRigidBody(physics.BodyTypeDynamic).WithTranslation(pos)
	bh, _, err := w.AddBody(body, colliderFor(kind, scale))
	if err != nil {
		return core.InvalidHandle, fmt.Errorf("create %v body: %w", kind, err)
	}

	mesh, err := r.renderer.CreateMesh(rendering.MeshSpec{Kind: kind, Scale: scale, Color: rendering.ColorFor(kind)})
	if err != nil {
		if rmErr := w.RemoveBody(bh); rmErr != nil {
			r.log.Error("rollback failed", "body", bh.String(), "error", rmErr)
		}
		return core.InvalidHandle, fmt.Errorf("create %v mesh: %w", kind, err)
	}
	if err := r.renderer.SetTransform(mesh, transformOf(body)); err != nil {
		r.log.Warn("initial transform failed", "mesh", mesh, "error", err)
	}

	r.last++
	h := r.last
	body.UserData = uint64(h)
	r.entities[h] = Entity{Mesh: mesh, Body: bh, Kind: kind, Scale: scale}
	r.byBody[bh] = h
	return h, nil
}

func colliderFor(kind core.ShapeKind, scale float32) *physics.Collider {
	if kind == core.ShapeCube {
		return physics.NewCuboid(scale, scale, scale).WithRestitution(0.3).WithFriction(0.5)
	}
	return physics.NewBall(scale).WithRestitution(0.7).WithFriction(0.5)
}

// Destroy removes the entity's body, colliders, joints and mesh
func (r *Registry) Destroy(h core.Handle) error {
	r.owner.Lock()
	defer r.owner.Unlock()
	return r.destroyLocked(h)
}

// DestroyAll removes every entity and returns how many were removed
func (r *Registry) DestroyAll() int {
	r.owner.Lock()
	defer r.owner.Unlock()
	n := 0
	for _, h := range r.handlesLocked() {
		if r.destroyLocked(h) == nil {
			n++
		}
	}
	return n
}

func (r *Registry) destroyLocked(h core.Handle) error {
	e, ok := r.entities[h]
	if !ok {
		return fmt.Errorf("destroy %v: %w", h, ErrNotFound)
	}
	var errs []error
	if err := r.owner.world.RemoveBody(e.Body); err != nil {
		errs = append(errs, err)
	}
	if err := r.renderer.DestroyMesh(e.Mesh); err != nil {
		errs = append(errs, err)
	}
	delete(r.entities, h)
	delete(r.byBody, e.Body)
	if err := errors.Join(errs...); err != nil {
		r.log.Warn("entity destroyed with errors", "handle", h.String(), "error", err)
	}
	return nil
}

// ResolveBody returns the handle of the entity owning body
func (r *Registry) ResolveBody(body physics.BodyHandle) (core.Handle, bool) {
	r.owner.Lock()
	defer r.owner.Unlock()
	h, ok := r.byBody[body]
	return h, ok
}

// Lookup returns the entity record for h
func (r *Registry) Lookup(h core.Handle) (Entity, bool) {
	r.owner.Lock()
	defer r.owner.Unlock()
	e, ok := r.entities[h]
	return e, ok
}

// Handles returns every live handle in ascending order
func (r *Registry) Handles() []core.Handle {
	r.owner.Lock()
	defer r.owner.Unlock()
	return r.handlesLocked()
}

func (r *Registry) handlesLocked() []core.Handle {
	out := make([]core.Handle, 0, len(r.entities))
	for h := range r.entities {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of live entities
func (r *Registry) Len() int {
	r.owner.Lock()
	defer r.owner.Unlock()
	return len(r.entities)
}

// Snapshot copies the state of every entity, waiting for any running step
func (r *Registry) Snapshot() []EntityState {
	r.owner.Lock()
	defer r.owner.Unlock()
	out := make([]EntityState, 0, len(r.entities))
	for _, h := range r.handlesLocked() {
		if st, ok := r.stateLocked(h); ok {
			out = append(out, st)
		}
	}
	return out
}

func (r *Registry) stateLocked(h core.Handle) (EntityState, bool) {
	e, ok := r.entities[h]
	if !ok {
		return EntityState{}, false
	}
	b, ok := r.owner.world.Bodies.Get(e.Body)
	if !ok {
		return EntityState{}, false
	}
	return EntityState{
		Handle:    h,
		Kind:      e.Kind,
		Scale:     e.Scale,
		BodyType:  b.BodyType(),
		Position:  b.Translation(),
		Rotation:  b.Rotation(),
		Linvel:    b.Linvel(),
		Sleeping:  b.IsSleeping(),
		Potential: b.GravitationalPotentialEnergy(r.owner.gravity),
	}, true
}

// syncLocked copies every body pose into its mesh
func (r *Registry) syncLocked() error {
	var errs []error
	for _, e := range r.entities {
		b, ok := r.owner.world.Bodies.Get(e.Body)
		if !ok {
			continue
		}
		if err := r.renderer.SetTransform(e.Mesh, transformOf(b)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func transformOf(b *physics.RigidBody) rendering.Transform {
	return rendering.Transform{Translation: b.Translation(), Rotation: b.Rotation()}
}
