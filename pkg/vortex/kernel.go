package vortex

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Branch identifies which kernel tier produced an induced velocity.
type Branch int

const (
	// BranchCollocation: the field point lies on the edge's supporting line.
	BranchCollocation Branch = iota
	// BranchCore: inside the vortex core, fully regularized.
	BranchCore
	// BranchTransition: regularization fading out between core and
	// transition radius.
	BranchTransition
	// BranchFar: classical compressible Biot-Savart.
	BranchFar
	// BranchSupersonic: supersonic finite-part integral.
	BranchSupersonic

	NumBranches = int(BranchSupersonic) + 1
)

func (b Branch) String() string {
	switch b {
	case BranchCollocation:
		return "collocation"
	case BranchCore:
		return "core"
	case BranchTransition:
		return "transition"
	case BranchFar:
		return "far"
	case BranchSupersonic:
		return "supersonic"
	default:
		return "unknown"
	}
}

// degenerateTol bounds the dimensionless quadratic coefficients below which
// the supersonic integral is taken as zero.
const degenerateTol = 1e-12

// InducedVelocity returns the velocity induced at p by the edge carrying unit
// circulation.
func (e *Edge) InducedVelocity(p r3.Vec, fc FlowCondition) r3.Vec {
	q, _ := e.InducedVelocityBranch(p, fc)
	return q
}

// InducedVelocityBranch is InducedVelocity that also reports the tier used.
//
// With f the free-stream direction and r = p - s·t the offset from the point
// s along the edge, the compressible kernel is
//
//	q = β²/(κπ) (t × r) ∫ ds / R³,   R² = β²|r|² + M²(f·r)²
//
// with κ = 4 in subsonic and κ = 2 in supersonic flow. In supersonic flow only
// the part of the edge inside the upstream Mach cone of p contributes, and the
// integral is taken as a finite part.
func (e *Edge) InducedVelocityBranch(p r3.Vec, fc FlowCondition) (r3.Vec, Branch) {
	e.mustBeReady()

	pl := e.frame.ToLocal(p)
	f := e.frame.RotateToLocal(fc.Direction())
	beta2 := fc.Beta2()
	m2 := fc.Mach() * fc.Mach()
	fp := r3.Dot(f, pl)

	q := quadratic{
		a: beta2 + m2*f.X*f.X,
		b: -2 * (beta2*pl.X + m2*f.X*fp),
		c: beta2*r3.Norm2(pl) + m2*fp*fp,
	}

	var (
		integral float64
		branch   Branch
		kappa    = 4.0
	)
	if fc.Supersonic() {
		if pl.Y*pl.Y+pl.Z*pl.Z <= e.tol.Collocation {
			return r3.Vec{}, BranchCollocation
		}
		integral = e.supersonicIntegral(q, f, fp)
		branch, kappa = BranchSupersonic, 2
	} else {
		if _, _, hit := lineConeIntersection(q, 4*q.a*e.tol.Collocation); hit {
			return r3.Vec{}, BranchCollocation
		}
		var sig2 float64
		sig2, branch = e.coreRadius2(math.Max(q.disc()/(4*q.a), 0))
		integral = e.subsonicIntegral(q, sig2)
	}

	scale := beta2 / (kappa * math.Pi) * integral
	local := r3.Vec{Y: -pl.Z * scale, Z: pl.Y * scale}
	return e.frame.RotateToWorld(local), branch
}

// coreRadius2 picks the squared effective core radius for a field point whose
// minimum squared hyperbolic distance to the supporting line is d2.
func (e *Edge) coreRadius2(d2 float64) (float64, Branch) {
	switch {
	case d2 < e.tol.Core:
		return e.tol.Core, BranchCore
	case d2 < e.tol.Transition:
		t := (d2 - e.tol.Core) / (e.tol.Transition - e.tol.Core)
		return e.tol.Core * (1 - t*t*(3-2*t)), BranchTransition
	default:
		return 0, BranchFar
	}
}

// subsonicIntegral integrates the high-order algebraic core
// (Q + 3σ²/2) / Q^(5/2), Q = R² + σ², over [0, L]. With σ = 0 it reduces to
// the exact ∫ ds/R³.
func (e *Edge) subsonicIntegral(q quadratic, sig2 float64) float64 {
	qs := q.shift(sig2)
	l := e.length
	integral := qs.F(l) - qs.F(0)
	if sig2 > 0 {
		integral += 1.5 * sig2 * (qs.G(l) - qs.G(0))
	}
	return integral
}

type span struct{ lo, hi float64 }

// supersonicIntegral returns the finite part of ∫ ds/R³ over the parts of
// [0, L] lying inside the upstream Mach cone of the field point. f is the
// local free-stream direction and fp its projection onto the local field
// point.
func (e *Edge) supersonicIntegral(q quadratic, f r3.Vec, fp float64) float64 {
	if math.Abs(q.a) < degenerateTol || math.Abs(q.disc()) < degenerateTol*e.length*e.length {
		return 0
	}

	t1, t2, hit := lineConeIntersection(q, 0)
	var (
		spans [2]span
		n     int
	)
	switch {
	case q.a < 0 && hit:
		spans[0], n = span{t1, t2}, 1
	case q.a > 0 && hit:
		spans[0], spans[1], n = span{math.Inf(-1), t1}, span{t2, math.Inf(1)}, 2
	case q.a > 0:
		spans[0], n = span{math.Inf(-1), math.Inf(1)}, 1
	default:
		return 0
	}

	var integral float64
	for _, sp := range spans[:n] {
		lo, hi := math.Max(sp.lo, 0), math.Min(sp.hi, e.length)
		if hi <= lo {
			continue
		}
		// Only the nappe with the edge upstream of the field point counts.
		mid := 0.5 * (lo + hi)
		if fp-mid*f.X <= 0 {
			continue
		}
		integral += finitePart(q, hi, hi == sp.hi) - finitePart(q, lo, lo == sp.lo)
	}
	return integral
}

// finitePart evaluates F at s, dropping the divergent term where s lies on
// the Mach cone.
func finitePart(q quadratic, s float64, onCone bool) float64 {
	if onCone {
		return 0
	}
	return q.F(s)
}
