package influence

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Matrix holds the unit-circulation velocity of every edge (column) at every
// field point (row), one dense matrix per velocity component.
type Matrix struct {
	U, V, W *mat.Dense
}

func newMatrix(rows, cols int) *Matrix {
	return &Matrix{
		U: mat.NewDense(rows, cols, nil),
		V: mat.NewDense(rows, cols, nil),
		W: mat.NewDense(rows, cols, nil),
	}
}

// Dims returns the number of field points and edges.
func (m *Matrix) Dims() (rows, cols int) { return m.U.Dims() }

// At returns the velocity induced at point i by edge j.
func (m *Matrix) At(i, j int) r3.Vec {
	return r3.Vec{X: m.U.At(i, j), Y: m.V.At(i, j), Z: m.W.At(i, j)}
}

// NormalWash projects each row onto the matching normal, giving the
// normal-velocity influence coefficients n_i · q_ij.
func (m *Matrix) NormalWash(normals []r3.Vec) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if len(normals) != rows {
		return nil, fmt.Errorf("%w: %d normals for %d points", ErrDimensionMismatch, len(normals), rows)
	}

	a := mat.NewDense(rows, cols, nil)
	for i, n := range normals {
		for j := 0; j < cols; j++ {
			a.Set(i, j, n.X*m.U.At(i, j)+n.Y*m.V.At(i, j)+n.Z*m.W.At(i, j))
		}
	}
	return a, nil
}

// Apply returns the velocity induced at every point by edges carrying the
// given circulations.
func (m *Matrix) Apply(gamma []float64) ([]r3.Vec, error) {
	rows, cols := m.Dims()
	if len(gamma) != cols {
		return nil, fmt.Errorf("%w: %d circulations for %d edges", ErrDimensionMismatch, len(gamma), cols)
	}

	g := mat.NewVecDense(cols, gamma)
	var u, v, w mat.VecDense
	u.MulVec(m.U, g)
	v.MulVec(m.V, g)
	w.MulVec(m.W, g)

	out := make([]r3.Vec, rows)
	for i := range out {
		out[i] = r3.Vec{X: u.AtVec(i), Y: v.AtVec(i), Z: w.AtVec(i)}
	}
	return out, nil
}
