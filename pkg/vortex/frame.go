package vortex

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// alignTol is the sine below which an edge counts as already lying along ±x.
const alignTol = 1e-12

// Frame is the local coordinate system of an edge: origin at X1, the edge
// along +x. Forward rotates world vectors into the frame and Inverse rotates
// them back. A and B are the world images of the local y and z axes.
type Frame struct {
	Forward quat.Number
	Inverse quat.Number
	A, B    r3.Vec

	origin r3.Vec
}

// newFrame builds the frame that carries the unit vector dir onto +x.
func newFrame(origin, dir r3.Vec) Frame {
	xhat := r3.Vec{X: 1}
	axis := r3.Cross(dir, xhat)
	sin := r3.Norm(axis)
	cos := r3.Dot(dir, xhat)

	var q quat.Number
	switch {
	case sin < alignTol && cos > 0:
		q = quat.Number{Real: 1}
	case sin < alignTol:
		// half turn about z
		q = quat.Number{Kmag: 1}
	default:
		half := 0.5 * math.Atan2(sin, cos)
		axis = r3.Scale(math.Sin(half)/sin, axis)
		q = quat.Number{Real: math.Cos(half), Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	}

	f := Frame{
		Forward: q,
		Inverse: quat.Conj(q),
		origin:  origin,
	}
	f.A = f.RotateToWorld(r3.Vec{Y: 1})
	f.B = f.RotateToWorld(r3.Vec{Z: 1})
	return f
}

// Origin returns the world position of the local origin.
func (f Frame) Origin() r3.Vec { return f.origin }

// RotateToLocal rotates a world direction into the frame.
func (f Frame) RotateToLocal(v r3.Vec) r3.Vec { return rotate(f.Forward, v) }

// RotateToWorld rotates a local direction back to world axes.
func (f Frame) RotateToWorld(v r3.Vec) r3.Vec { return rotate(f.Inverse, v) }

// ToLocal maps a world point into the frame.
func (f Frame) ToLocal(p r3.Vec) r3.Vec {
	return rotate(f.Forward, r3.Sub(p, f.origin))
}

// ToWorld maps a local point back to world coordinates.
func (f Frame) ToWorld(p r3.Vec) r3.Vec {
	return r3.Add(rotate(f.Inverse, p), f.origin)
}

// rotate applies the unit quaternion q to v as q v q*.
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
