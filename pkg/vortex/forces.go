package vortex

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// parallelTol is the fraction of edge length below which an edge's
// projection onto the Trefftz plane counts as zero.
const parallelTol = 1e-9

// CalculateForces stores the Kutta-Joukowski force ρΓ (V × l) on the edge,
// with V the local velocity at loop.
func (e *Edge) CalculateForces(loop Loop, fc FlowCondition) {
	e.mustBeReady()
	l := r3.Scale(e.length, e.vec)
	e.forces = r3.Scale(fc.Density()*e.Gamma, r3.Cross(loop.LocalVelocity(), l))
}

// trefftzProjection returns V̂ × l and its length, the span of the edge seen
// in the Trefftz plane.
func (e *Edge) trefftzProjection(fc FlowCondition) (r3.Vec, float64) {
	l := r3.Scale(e.length, e.vec)
	lift := r3.Cross(fc.Direction(), l)
	return lift, r3.Norm(lift)
}

// toTrefftzPlane drops the free-stream component of v.
func toTrefftzPlane(v, f r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, f), f))
}

// TrefftzInducedVelocity returns the velocity that the edge's trailing vortex
// pair, shed from X1 and X2 along the free stream with unit circulation,
// induces at p far downstream. Only the traces of p and the two legs in the
// Trefftz plane matter, so the result lies in that plane. A leg whose trace
// falls within the collocation radius of p contributes nothing.
//
// The pair of a chain of edges telescopes: legs shared by consecutive edges
// of equal circulation cancel, so the far wake of a subdivided edge equals
// that of its parent.
func (e *Edge) TrefftzInducedVelocity(p r3.Vec, fc FlowCondition) r3.Vec {
	e.mustBeReady()
	if _, span := e.trefftzProjection(fc); span <= parallelTol*e.length {
		return r3.Vec{}
	}
	f := fc.Direction()
	return r3.Sub(e.trefftzLeg(p, e.x2, f), e.trefftzLeg(p, e.x1, f))
}

// trefftzLeg is the two-dimensional point vortex Γ/(2π) (f × r)/|r|² of a
// unit leg leaving x along f.
func (e *Edge) trefftzLeg(p, x, f r3.Vec) r3.Vec {
	r := toTrefftzPlane(r3.Sub(p, x), f)
	r2 := r3.Norm2(r)
	if r2 <= e.tol.Collocation {
		return r3.Vec{}
	}
	return r3.Scale(1/(2*math.Pi*r2), r3.Cross(f, r))
}

// GeneralizedPrincipalPartOfDownWash returns the downwash per unit
// circulation that the edge's own trailing vortex pair induces at the edge
// centre in the Trefftz plane, 2/(πΔ) for projected span Δ. It is zero for
// edges aligned with the free stream.
//
// This is the self term of an isolated horseshoe. It does not scale with
// the edge length, so it is not summed into forces; solvers use
// TrefftzInducedVelocity to assemble the wake wash instead.
func (e *Edge) GeneralizedPrincipalPartOfDownWash(fc FlowCondition) float64 {
	e.mustBeReady()
	lift, span := e.trefftzProjection(fc)
	if span <= parallelTol*e.length {
		return 0
	}
	return -r3.Dot(r3.Scale(1/span, lift), e.TrefftzInducedVelocity(e.centroid, fc))
}

// WakeWeight returns the fraction of the edge's circulation shed into the
// wake, min(DownWindWeight(0) + DownWindWeight(1), 1). It is zero until
// ClassifyWake has found a downwind loop.
func (e *Edge) WakeWeight() float64 {
	return min(e.downWindWeight[0]+e.downWindWeight[1], 1)
}

// CalculateTrefftzForces stores the far-field force
//
//	s ρΓ (V∞ × l + ½ w × l⊥)
//
// where s is WakeWeight, l⊥ the projection of the edge onto the Trefftz
// plane and w the Trefftz-plane wash blended from w1 and w2 by the downwind
// weights. w1 and w2 are the far-wake velocities, free stream excluded, that
// the solver evaluated at the traces of the loops behind Loop1 and Loop2;
// the value for an upwind loop is ignored. The force is linear in the edge
// length, so the forces of subdivided edges sum to their parent's.
//
// ClassifyWake must have run first; an edge with no downwind loop sheds no
// wake and gets zero.
func (e *Edge) CalculateTrefftzForces(w1, w2 r3.Vec, fc FlowCondition) {
	e.mustBeReady()
	e.trefftzForces = r3.Vec{}

	s := e.WakeWeight()
	if s == 0 {
		return
	}
	wt := e.downWindWeight[0] + e.downWindWeight[1]
	w := r3.Scale(1/wt, r3.Add(r3.Scale(e.downWindWeight[0], w1), r3.Scale(e.downWindWeight[1], w2)))

	f := fc.Direction()
	l := r3.Scale(e.length, e.vec)
	v := r3.Add(
		r3.Cross(fc.Velocity(), l),
		r3.Scale(0.5, r3.Cross(toTrefftzPlane(w, f), toTrefftzPlane(l, f))),
	)
	e.trefftzForces = r3.Scale(s*fc.Density()*e.Gamma, v)
}
