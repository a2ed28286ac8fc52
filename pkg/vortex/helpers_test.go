package vortex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newEdge(t *testing.T, a, b r3.Vec) *Edge {
	t.Helper()
	e := &Edge{}
	require.NoError(t, e.Setup(Vertex{ID: 1, Pos: a}, Vertex{ID: 2, Pos: b}))
	return e
}

func flow(t *testing.T, mach float64, v r3.Vec) FlowCondition {
	t.Helper()
	fc, err := NewFlowCondition(mach, v, 1.0)
	require.NoError(t, err)
	return fc
}

// classical is the incompressible Biot-Savart speed of a unit segment of
// half-length l/2 at perpendicular distance h from its midpoint.
func classical(l, h float64) float64 {
	return l / (4 * math.Pi * h * math.Sqrt(h*h+l*l/4))
}

// dirFromAngles maps two unit-interval numbers onto the sphere.
func dirFromAngles(u, v float64) r3.Vec {
	theta := 2 * math.Pi * u
	z := 2*v - 1
	s := math.Sqrt(math.Max(0, 1-z*z))
	return r3.Vec{X: s * math.Cos(theta), Y: s * math.Sin(theta), Z: z}
}

func vecClose(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol*math.Max(1, math.Max(r3.Norm(a), r3.Norm(b)))
}
