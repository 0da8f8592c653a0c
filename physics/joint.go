package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// JointHandle references a joint inside an ImpulseJointSet
type JointHandle struct {
	Index      uint32
	Generation uint32
}

func (h JointHandle) String() string {
	return fmt.Sprintf("joint(%d:%d)", h.Index, h.Generation)
}

// BallJoint pins an anchor on one body to an anchor on another, leaving
// rotation free. Anchors are in each body's local frame.
type BallJoint struct {
	Body1, Body2     BodyHandle
	Anchor1, Anchor2 mgl32.Vec3
}

// ImpulseJointSet stores joints and the per-body adjacency used to remove
// them when a body goes away
type ImpulseJointSet struct {
	arena    arena[BallJoint]
	attached map[BodyHandle][]JointHandle
}

// NewImpulseJointSet creates an empty joint set
func NewImpulseJointSet() *ImpulseJointSet {
	return &ImpulseJointSet{attached: make(map[BodyHandle][]JointHandle)}
}

// Insert adds a joint between two live bodies and wakes them
func (s *ImpulseJointSet) Insert(j BallJoint, bodies *BodySet) (JointHandle, error) {
	b1, ok1 := bodies.Get(j.Body1)
	b2, ok2 := bodies.Get(j.Body2)
	if !ok1 || !ok2 {
		return JointHandle{}, fmt.Errorf("joint %v-%v: %w", j.Body1, j.Body2, ErrBodyNotFound)
	}
	jj := j
	idx, gen := s.arena.insert(&jj)
	h := JointHandle{Index: idx, Generation: gen}
	s.attached[j.Body1] = append(s.attached[j.Body1], h)
	s.attached[j.Body2] = append(s.attached[j.Body2], h)
	b1.WakeUp()
	b2.WakeUp()
	return h, nil
}

// Get returns the joint for h
func (s *ImpulseJointSet) Get(h JointHandle) (*BallJoint, bool) {
	return s.arena.get(h.Index, h.Generation)
}

// Len returns the number of live joints
func (s *ImpulseJointSet) Len() int { return s.arena.count }

// Remove deletes one joint
func (s *ImpulseJointSet) Remove(h JointHandle, bodies *BodySet, wake bool) (*BallJoint, bool) {
	j, ok := s.arena.remove(h.Index, h.Generation)
	if !ok {
		return nil, false
	}
	s.detach(j.Body1, h)
	s.detach(j.Body2, h)
	if wake {
		for _, bh := range [2]BodyHandle{j.Body1, j.Body2} {
			if b, ok := bodies.Get(bh); ok {
				b.WakeUp()
			}
		}
	}
	return j, true
}

// RemoveAttachedTo deletes every joint touching body
func (s *ImpulseJointSet) RemoveAttachedTo(body BodyHandle, bodies *BodySet, wake bool) int {
	hs := append([]JointHandle(nil), s.attached[body]...)
	n := 0
	for _, h := range hs {
		if _, ok := s.Remove(h, bodies, wake); ok {
			n++
		}
	}
	delete(s.attached, body)
	return n
}

// AttachedTo returns the joints touching body
func (s *ImpulseJointSet) AttachedTo(body BodyHandle) []JointHandle {
	return append([]JointHandle(nil), s.attached[body]...)
}

func (s *ImpulseJointSet) detach(body BodyHandle, h JointHandle) {
	list := s.attached[body]
	for i, jh := range list {
		if jh == h {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.attached, body)
		return
	}
	s.attached[body] = list
}

func (s *ImpulseJointSet) each(fn func(JointHandle, *BallJoint)) {
	s.arena.each(func(idx, gen uint32, j *BallJoint) {
		fn(JointHandle{Index: idx, Generation: gen}, j)
	})
}
