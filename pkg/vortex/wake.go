package vortex

import (
	"reflect"

	"gonum.org/v1/gonum/spatial/r3"
)

// WakeBlendCos is the half-width, in cosine of the angle to the free stream,
// of the band over which a loop's downwind weight ramps from 0 to 1.
const WakeBlendCos = 0.1

// ClassifyWake decides for each adjacent loop whether it lies downwind of the
// edge and how strongly. The loop centroid's offset from the edge's
// supporting line makes an angle θ with the free stream; the loop is downwind
// when cosθ > -WakeBlendCos, weighted linearly from 0 there to 1 at
// cosθ = WakeBlendCos, so collinear child edges classify like their parent.
// Nil loops, and loops centred on the line, are upwind.
func (e *Edge) ClassifyWake(loop1, loop2 Loop, fc FlowCondition) {
	e.mustBeReady()
	for k, loop := range [2]Loop{loop1, loop2} {
		e.downWind[k], e.downWindWeight[k] = e.classify(loop, fc)
	}
}

func (e *Edge) classify(loop Loop, fc FlowCondition) (bool, float64) {
	if isNilLoop(loop) {
		return false, 0
	}
	d := r3.Sub(loop.Centroid(), e.centroid)
	d = r3.Sub(d, r3.Scale(r3.Dot(d, e.vec), e.vec))
	n := r3.Norm(d)
	if n <= MinEdgeLength {
		return false, 0
	}
	cos := r3.Dot(fc.Direction(), d) / n
	if cos <= -WakeBlendCos {
		return false, 0
	}
	w := (cos + WakeBlendCos) / (2 * WakeBlendCos)
	return true, min(w, 1)
}

// isNilLoop catches typed nil pointers stored in the interface.
func isNilLoop(l Loop) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
