package physics

import "github.com/go-gl/mathgl/mgl32"

// DefaultMaxToi is the ray length used by pointer picking
const DefaultMaxToi float32 = 1000

// Ray is a half line. Dir does not need to be normalized; hit distances
// are expressed in multiples of it.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// PointAt returns Origin + Dir * t
func (r Ray) PointAt(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// RayHit is the nearest intersection found by a ray cast
type RayHit struct {
	Collider ColliderHandle
	Toi      float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

// QueryFilter skips colliders during queries. A nil filter accepts everything.
type QueryFilter func(ColliderHandle, *Collider) bool

type queryEntry struct {
	handle   ColliderHandle
	collider *Collider
	pose     Pose
	box      AABB
}

// QueryPipeline caches collider world poses for scene queries. It reflects
// the world as of its last update.
type QueryPipeline struct {
	entries []queryEntry
}

// NewQueryPipeline creates an empty query pipeline
func NewQueryPipeline() *QueryPipeline {
	return &QueryPipeline{}
}

// Update rebuilds the cache from the current collider poses
func (q *QueryPipeline) Update(bodies *BodySet, colliders *ColliderSet) {
	q.entries = q.entries[:0]
	colliders.Each(func(h ColliderHandle, c *Collider) {
		pose := c.WorldPose(bodies)
		q.entries = append(q.entries, queryEntry{
			handle:   h,
			collider: c,
			pose:     pose,
			box:      c.shape.AABB(pose),
		})
	})
}

// CastRay returns the nearest hit within maxToi. With solid set, a ray
// starting inside a shape hits it at distance zero.
func (q *QueryPipeline) CastRay(ray Ray, maxToi float32, solid bool, filter QueryFilter) (RayHit, bool) {
	best := RayHit{Toi: maxToi}
	found := false
	for _, e := range q.entries {
		if filter != nil && !filter(e.handle, e.collider) {
			continue
		}
		if _, ok := e.box.castRay(ray.Origin, ray.Dir, best.Toi); !ok {
			continue
		}
		origin := e.pose.InverseTransformPoint(ray.Origin)
		dir := e.pose.InverseTransformVector(ray.Dir)
		toi, localNormal, ok := e.collider.shape.castLocalRay(origin, dir, best.Toi, solid)
		if !ok || (found && toi >= best.Toi) {
			continue
		}
		best = RayHit{
			Collider: e.handle,
			Toi:      toi,
			Point:    ray.PointAt(toi),
			Normal:   e.pose.Rotation.Rotate(localNormal),
		}
		found = true
	}
	return best, found
}
