package physics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// ColliderPair is a candidate pair reported by the broad phase
type ColliderPair struct {
	A, B ColliderHandle
}

type sapEntry struct {
	handle  ColliderHandle
	box     AABB
	parent  BodyHandle
	hasBody bool
	moving  bool
}

// BroadPhase finds collider pairs whose bounding boxes overlap using
// sweep and prune along the x axis
type BroadPhase struct {
	entries []sapEntry
	pairs   []ColliderPair
}

// NewBroadPhase creates an empty broad phase
func NewBroadPhase() *BroadPhase {
	return &BroadPhase{}
}

// Pairs returns the candidate pairs found by the last update
func (bp *BroadPhase) Pairs() []ColliderPair {
	return bp.pairs
}

// update recomputes bounding boxes and candidate pairs. Pairs between two
// colliders that cannot move, or that share a parent, are skipped.
func (bp *BroadPhase) update(bodies *BodySet, colliders *ColliderSet, margin float32) []ColliderPair {
	bp.entries = bp.entries[:0]
	colliders.Each(func(h ColliderHandle, c *Collider) {
		e := sapEntry{handle: h, box: c.shape.AABB(c.WorldPose(bodies))}
		e.box.Min = e.box.Min.Sub(marginVec(margin))
		e.box.Max = e.box.Max.Add(marginVec(margin))
		if c.hasParent {
			if b, ok := bodies.Get(c.parent); ok {
				e.parent = c.parent
				e.hasBody = true
				e.moving = (b.IsDynamic() && !b.sleeping) || b.bodyType.IsKinematic()
			}
		}
		bp.entries = append(bp.entries, e)
	})

	sort.Slice(bp.entries, func(i, j int) bool {
		return bp.entries[i].box.Min.X() < bp.entries[j].box.Min.X()
	})

	bp.pairs = bp.pairs[:0]
	for i := range bp.entries {
		a := &bp.entries[i]
		for j := i + 1; j < len(bp.entries); j++ {
			b := &bp.entries[j]
			if b.box.Min.X() > a.box.Max.X() {
				break
			}
			if !a.moving && !b.moving {
				continue
			}
			if a.hasBody && b.hasBody && a.parent == b.parent {
				continue
			}
			if !a.box.Intersects(b.box) {
				continue
			}
			bp.pairs = append(bp.pairs, ColliderPair{A: a.handle, B: b.handle})
		}
	}
	return bp.pairs
}

func marginVec(m float32) mgl32.Vec3 {
	return mgl32.Vec3{m, m, m}
}
