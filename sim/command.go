package sim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"sandbox/physics"
)

// Command mutates one body. Commands are applied by the scheduler right
// after a successful step.
type Command interface {
	Target() physics.BodyHandle
	apply(w *physics.World) error
}

// Impulse applies a linear impulse at the body's centre of mass
type Impulse struct {
	Vector mgl32.Vec3
	Body   physics.BodyHandle
}

// SetBodyType switches a body between dynamic, fixed and kinematic
type SetBodyType struct {
	Type physics.BodyType
	Body physics.BodyHandle
}

// Translate teleports a body to an absolute position
type Translate struct {
	Vector mgl32.Vec3
	Body   physics.BodyHandle
}

func (c Impulse) Target() physics.BodyHandle     { return c.Body }
func (c SetBodyType) Target() physics.BodyHandle { return c.Body }
func (c Translate) Target() physics.BodyHandle   { return c.Body }

func (c Impulse) apply(w *physics.World) error {
	return staleIfMissing(w.ApplyImpulse(c.Body, c.Vector))
}

func (c SetBodyType) apply(w *physics.World) error {
	return staleIfMissing(w.SetBodyType(c.Body, c.Type))
}

func (c Translate) apply(w *physics.World) error {
	return staleIfMissing(w.SetTranslation(c.Body, c.Vector))
}

func (c Impulse) String() string {
	return fmt.Sprintf("impulse %v on %v", c.Vector, c.Body)
}

func (c SetBodyType) String() string {
	return fmt.Sprintf("set %v to %v", c.Body, c.Type)
}

func (c Translate) String() string {
	return fmt.Sprintf("translate %v to %v", c.Body, c.Vector)
}

func staleIfMissing(err error) error {
	if errors.Is(err, physics.ErrBodyNotFound) {
		return fmt.Errorf("%w: %w", ErrStaleBody, err)
	}
	return err
}
