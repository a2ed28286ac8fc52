package vortex

import "math"

// quadratic is Q(s) = a s² + b s + c, the squared hyperbolic distance from a
// field point to the point s along an edge's supporting line.
type quadratic struct {
	a, b, c float64
}

func (q quadratic) at(s float64) float64 { return (q.a*s+q.b)*s + q.c }

// disc returns 4ac - b². For a > 0 it equals 4a times the minimum of Q.
func (q quadratic) disc() float64 { return 4*q.a*q.c - q.b*q.b }

// shift returns Q + d.
func (q quadratic) shift(d float64) quadratic { return quadratic{q.a, q.b, q.c + d} }

// F is an antiderivative of Q^(-3/2).
//
// Influences are F(s2) - F(s1) and G(s2) - G(s1), which cancel badly for
// points far out near the extension of the supporting line, where disc is
// tiny and both ends are nearly equal. At a distance of 1e5 edge lengths and
// 0.001 rad off the line the relative error reaches about 1.4e-5, and it
// grows as the point moves further out or closer to the line.
func (q quadratic) F(s float64) float64 {
	qs := q.at(s)
	return 2 * (2*q.a*s + q.b) / (q.disc() * math.Sqrt(qs))
}

// G is an antiderivative of Q^(-5/2).
func (q quadratic) G(s float64) float64 {
	d := q.disc()
	qs := q.at(s)
	k := 2*q.a*s + q.b
	root := math.Sqrt(qs)
	return 2*k/(3*d*qs*root) + 16*q.a*k/(3*d*d*root)
}

// lineConeIntersection solves Q(s) = 0 for the two parameters where an edge's
// supporting line crosses the characteristic cone centred on the field point.
// A negative 4ac - b² no larger in magnitude than tol is treated as a double
// root. Roots are returned in ascending order.
func lineConeIntersection(q quadratic, tol float64) (t1, t2 float64, ok bool) {
	if q.a == 0 {
		if q.b == 0 {
			return 0, 0, false
		}
		t := -q.c / q.b
		return t, t, true
	}

	disc := q.b*q.b - 4*q.a*q.c
	if disc < -math.Abs(tol) {
		return 0, 0, false
	}
	if disc < 0 {
		disc = 0
	}

	// Stable form avoids cancellation when b² >> 4ac.
	root := math.Sqrt(disc)
	var h float64
	if q.b >= 0 {
		h = -0.5 * (q.b + root)
	} else {
		h = -0.5 * (q.b - root)
	}

	if h == 0 {
		return 0, 0, true
	}
	t1, t2 = h/q.a, q.c/h
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1, t2, true
}
