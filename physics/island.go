package physics

import "github.com/go-gl/mathgl/mgl32"

const (
	sleepLinearThreshold  = 0.05
	sleepAngularThreshold = 0.05
	timeToSleep           = 1.0
)

// IslandManager tracks which dynamic bodies are awake. Sleeping bodies are
// skipped by integration until a contact, joint or user call wakes them.
type IslandManager struct {
	active []BodyHandle
	index  map[BodyHandle]int
}

// NewIslandManager creates an empty island manager
func NewIslandManager() *IslandManager {
	return &IslandManager{index: make(map[BodyHandle]int)}
}

// ActiveDynamicBodies returns the bodies simulated during the last step
func (m *IslandManager) ActiveDynamicBodies() []BodyHandle {
	return append([]BodyHandle(nil), m.active...)
}

// IsActive reports whether h is in the active set
func (m *IslandManager) IsActive(h BodyHandle) bool {
	_, ok := m.index[h]
	return ok
}

func (m *IslandManager) add(h BodyHandle) {
	if _, ok := m.index[h]; ok {
		return
	}
	m.index[h] = len(m.active)
	m.active = append(m.active, h)
}

func (m *IslandManager) remove(h BodyHandle) {
	i, ok := m.index[h]
	if !ok {
		return
	}
	last := len(m.active) - 1
	if i != last {
		moved := m.active[last]
		m.active[i] = moved
		m.index[moved] = i
	}
	m.active = m.active[:last]
	delete(m.index, h)
}

func (m *IslandManager) wake(h BodyHandle, b *RigidBody) {
	b.WakeUp()
	if b.IsDynamic() {
		m.add(h)
	}
}

// refresh syncs the active set with body state changed outside the step
func (m *IslandManager) refresh(bodies *BodySet) {
	bodies.Each(func(h BodyHandle, b *RigidBody) {
		if b.IsDynamic() && !b.sleeping {
			m.add(h)
		} else {
			m.remove(h)
		}
	})
	for _, h := range m.ActiveDynamicBodies() {
		if !bodies.Contains(h) {
			m.remove(h)
		}
	}
}

// updateSleep puts bodies to sleep once they have been slow for long enough
func (m *IslandManager) updateSleep(bodies *BodySet, dt float32) {
	for _, h := range m.ActiveDynamicBodies() {
		b, ok := bodies.Get(h)
		if !ok {
			m.remove(h)
			continue
		}
		if isIdle(b.linvel, sleepLinearThreshold) && isIdle(b.angvel, sleepAngularThreshold) {
			b.idleTime += dt
		} else {
			b.idleTime = 0
		}
		if b.idleTime >= timeToSleep {
			b.sleep()
			m.remove(h)
		}
	}
}

func isIdle(v mgl32.Vec3, threshold float32) bool {
	return v.LenSqr() < threshold*threshold
}
