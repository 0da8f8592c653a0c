package physics

import "github.com/go-gl/mathgl/mgl32"

// restitutionThreshold is the approach speed below which contacts do not bounce
const restitutionThreshold = 1.0

type pointConstraint struct {
	rA, rB      mgl32.Vec3
	normalMass  float32
	tangentMass [2]float32
	bias        float32
	accNormal   float32
	accTangent  [2]float32
}

type contactConstraint struct {
	a, b        *RigidBody
	normal      mgl32.Vec3
	tangents    [2]mgl32.Vec3
	friction    float32
	restitution float32
	points      []pointConstraint
}

type jointConstraint struct {
	a, b   *RigidBody
	rA, rB mgl32.Vec3
	mass   mgl32.Mat3 // inverse of the point constraint matrix
	bias   mgl32.Vec3
}

// solver resolves contacts and joints with sequential impulses and
// accumulated clamping
type solver struct {
	contacts []contactConstraint
	joints   []jointConstraint
}

func parentBody(c *Collider, bodies *BodySet) *RigidBody {
	if !c.hasParent {
		return nil
	}
	b, _ := bodies.Get(c.parent)
	return b
}

func solverActive(b *RigidBody) bool {
	return b != nil && b.IsDynamic() && !b.sleeping
}

func (s *solver) prepare(contacts []Contact, joints *ImpulseJointSet, bodies *BodySet, colliders *ColliderSet, params IntegrationParameters, dt float32) {
	s.contacts = s.contacts[:0]
	for _, ct := range contacts {
		ca, okA := colliders.Get(ct.A)
		cb, okB := colliders.Get(ct.B)
		if !okA || !okB {
			continue
		}
		ba, bb := parentBody(ca, bodies), parentBody(cb, bodies)
		if !solverActive(ba) && !solverActive(bb) {
			continue
		}

		cc := contactConstraint{
			a:           ba,
			b:           bb,
			normal:      ct.Normal,
			tangents:    tangentBasis(ct.Normal),
			friction:    (ca.friction + cb.friction) * 0.5,
			restitution: (ca.restitution + cb.restitution) * 0.5,
		}
		invMass := ba.effectiveInvMass() + bb.effectiveInvMass()
		invIA, invIB := ba.effectiveInvInertia(), bb.effectiveInvInertia()

		for _, p := range ct.Points {
			pc := pointConstraint{}
			if ba != nil {
				pc.rA = p.Point.Sub(ba.translation)
			}
			if bb != nil {
				pc.rB = p.Point.Sub(bb.translation)
			}
			pc.normalMass = effectiveMass(invMass, invIA, invIB, pc.rA, pc.rB, cc.normal)
			for k := 0; k < 2; k++ {
				pc.tangentMass[k] = effectiveMass(invMass, invIA, invIB, pc.rA, pc.rB, cc.tangents[k])
			}

			vn := bb.velocityAt(p.Point).Sub(ba.velocityAt(p.Point)).Dot(cc.normal)
			if vn < -restitutionThreshold {
				pc.bias = -cc.restitution * vn
			}
			if pen := p.Depth - params.Slop; pen > 0 {
				if b := params.Baumgarte * pen / dt; b > pc.bias {
					pc.bias = b
				}
			}
			cc.points = append(cc.points, pc)
		}
		s.contacts = append(s.contacts, cc)
	}

	s.joints = s.joints[:0]
	joints.each(func(_ JointHandle, j *BallJoint) {
		ba, okA := bodies.Get(j.Body1)
		bb, okB := bodies.Get(j.Body2)
		if !okA || !okB || (!solverActive(ba) && !solverActive(bb)) {
			return
		}
		rA := ba.rotation.Rotate(j.Anchor1)
		rB := bb.rotation.Rotate(j.Anchor2)
		drift := bb.translation.Add(rB).Sub(ba.translation.Add(rA))
		sa, sb := skew(rA), skew(rB)
		k := mgl32.Ident3().Mul(ba.effectiveInvMass() + bb.effectiveInvMass()).
			Sub(sa.Mul3(sa).Mul(ba.effectiveInvInertia())).
			Sub(sb.Mul3(sb).Mul(bb.effectiveInvInertia()))
		if k.Det() == 0 {
			return
		}
		s.joints = append(s.joints, jointConstraint{
			a: ba, b: bb, rA: rA, rB: rB,
			mass: k.Inv(),
			bias: drift.Mul(-params.Baumgarte / dt),
		})
	})
}

func (s *solver) solve(iterations int) {
	for it := 0; it < iterations; it++ {
		for i := range s.joints {
			s.solveJoint(&s.joints[i])
		}
		for i := range s.contacts {
			s.solveContact(&s.contacts[i])
		}
	}
}

func (s *solver) solveContact(cc *contactConstraint) {
	for i := range cc.points {
		pc := &cc.points[i]
		pa := pointOf(cc.a, pc.rA)
		pb := pointOf(cc.b, pc.rB)

		rel := cc.b.velocityAt(pb).Sub(cc.a.velocityAt(pa))
		vn := rel.Dot(cc.normal)
		lambda := pc.normalMass * (pc.bias - vn)
		acc := pc.accNormal + lambda
		if acc < 0 {
			acc = 0
		}
		lambda = acc - pc.accNormal
		pc.accNormal = acc
		applyPair(cc.a, cc.b, cc.normal.Mul(lambda), pa, pb)

		maxFriction := cc.friction * pc.accNormal
		for k := 0; k < 2; k++ {
			rel = cc.b.velocityAt(pb).Sub(cc.a.velocityAt(pa))
			vt := rel.Dot(cc.tangents[k])
			lt := -pc.tangentMass[k] * vt
			acct := mgl32.Clamp(pc.accTangent[k]+lt, -maxFriction, maxFriction)
			lt = acct - pc.accTangent[k]
			pc.accTangent[k] = acct
			applyPair(cc.a, cc.b, cc.tangents[k].Mul(lt), pa, pb)
		}
	}
}

func (s *solver) solveJoint(jc *jointConstraint) {
	pa := jc.a.translation.Add(jc.rA)
	pb := jc.b.translation.Add(jc.rB)
	rel := jc.b.velocityAt(pb).Sub(jc.a.velocityAt(pa))
	impulse := jc.mass.Mul3x1(jc.bias.Sub(rel))
	applyPair(jc.a, jc.b, impulse, pa, pb)
}

// applyPair applies +impulse to b and -impulse to a
func applyPair(a, b *RigidBody, impulse, pa, pb mgl32.Vec3) {
	a.applyImpulseAt(impulse.Mul(-1), pa)
	b.applyImpulseAt(impulse, pb)
}

func pointOf(b *RigidBody, r mgl32.Vec3) mgl32.Vec3 {
	if b == nil {
		return r
	}
	return b.translation.Add(r)
}

func effectiveMass(invMass, invIA, invIB float32, rA, rB, dir mgl32.Vec3) float32 {
	ra := rA.Cross(dir)
	rb := rB.Cross(dir)
	k := invMass + invIA*ra.LenSqr() + invIB*rb.LenSqr()
	if k <= 0 {
		return 0
	}
	return 1 / k
}

// skew returns the matrix form of v x _
func skew(v mgl32.Vec3) mgl32.Mat3 {
	return mgl32.Mat3{0, v.Z(), -v.Y(), -v.Z(), 0, v.X(), v.Y(), -v.X(), 0}
}

// tangentBasis returns two unit vectors orthogonal to n and to each other
func tangentBasis(n mgl32.Vec3) [2]mgl32.Vec3 {
	ref := mgl32.Vec3{1, 0, 0}
	if mgl32.Abs(n.X()) > 0.9 {
		ref = mgl32.Vec3{0, 1, 0}
	}
	t1 := n.Cross(ref).Normalize()
	return [2]mgl32.Vec3{t1, n.Cross(t1)}
}
