package vortex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSetupGeometry(t *testing.T) {
	e := &Edge{Kind: LatticeBoundary}
	require.NoError(t, e.Setup(
		Vertex{ID: 4, Pos: r3.Vec{X: 1, Y: 1, Z: 1}},
		Vertex{ID: 9, Pos: r3.Vec{X: 1, Y: 4, Z: 5}},
	))

	assert.True(t, e.Ready())
	assert.Equal(t, 4, e.Node1)
	assert.Equal(t, 9, e.Node2)
	assert.Equal(t, r3.Vec{X: 1, Y: 2.5, Z: 3}, e.Centroid())
	assert.InDelta(t, 5, e.Length(), 1e-15)
	assert.True(t, vecClose(r3.Vec{Y: 0.6, Z: 0.8}, e.Vec(), 1e-15))

	assert.InDelta(t, 0.5, e.Sigma(), 1e-15)
	assert.InDelta(t, 5, e.LocalSpacing(), 1e-15)
	tol := e.Tolerances()
	assert.InDelta(t, 25e-12, tol.Collocation, 1e-24)
	assert.InDelta(t, 0.25, tol.Core, 1e-15)
	assert.InDelta(t, 1.0, tol.Transition, 1e-15)
	assert.Less(t, tol.Collocation, tol.Core)
	assert.Less(t, tol.Core, tol.Transition)

	assert.Contains(t, e.String(), "lattice_boundary")
}

func TestSetupErrors(t *testing.T) {
	e := &Edge{}
	p := Vertex{ID: 1, Pos: r3.Vec{X: 1}}

	assert.ErrorIs(t, e.Setup(nil, p), ErrNilNode)
	assert.ErrorIs(t, e.Setup(p, nil), ErrNilNode)
	assert.ErrorIs(t, e.Setup(p, Vertex{ID: 2, Pos: r3.Vec{X: 1}}), ErrDegenerateEdge)
	assert.ErrorIs(t, e.SetupWithSettings(p, Vertex{ID: 2}, Settings{}), ErrInvalidSettings)
	assert.False(t, e.Ready())
}

func TestOperationsRequireSetup(t *testing.T) {
	e := &Edge{}
	fc := flow(t, 0, r3.Vec{X: 1})

	ops := map[string]func(){
		"X1":              func() { e.X1() },
		"X2":              func() { e.X2() },
		"Centroid":        func() { e.Centroid() },
		"Length":          func() { e.Length() },
		"Frame":           func() { e.Frame() },
		"InducedVelocity": func() { e.InducedVelocity(r3.Vec{X: 1}, fc) },
		"CalculateForces": func() { e.CalculateForces(nil, fc) },
		"Trefftz":         func() { e.CalculateTrefftzForces(r3.Vec{}, r3.Vec{}, fc) },
		"DownWash":        func() { e.GeneralizedPrincipalPartOfDownWash(fc) },
		"ClassifyWake":    func() { e.ClassifyWake(nil, nil, fc) },
		"SetSigma":        func() { _ = e.SetSigma(1) },
		"SetLocalSpacing": func() { _ = e.SetLocalSpacing(1) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.PanicsWithValue(t, ErrNotSetup, op)
		})
	}
}

func TestSettingsAndWakeAccessors(t *testing.T) {
	e := &Edge{}
	assert.Equal(t, Settings{}, e.Settings())

	require.NoError(t, e.Setup(Vertex{ID: 1}, Vertex{ID: 2, Pos: r3.Vec{Y: 1}}))
	assert.Equal(t, DefaultSettings(), e.Settings())
	assert.Equal(t, r3.Vec{}, e.X1())
	assert.Equal(t, r3.Vec{Y: 1}, e.X2())

	for k := 0; k < 2; k++ {
		assert.False(t, e.DownWind(k))
		assert.Zero(t, e.DownWindWeight(k))
	}
	assert.Panics(t, func() { e.DownWind(2) })
	assert.Panics(t, func() { e.DownWindWeight(-1) })
}

func TestSetSigmaAndSpacing(t *testing.T) {
	e := newEdge(t, r3.Vec{}, r3.Vec{X: 2})

	require.NoError(t, e.SetSigma(0.05))
	assert.InDelta(t, 0.05, e.Sigma(), 1e-15)
	assert.InDelta(t, 0.0025, e.Tolerances().Core, 1e-15)
	assert.InDelta(t, 0.01, e.Tolerances().Transition, 1e-15)

	assert.ErrorIs(t, e.SetSigma(0), ErrInvalidSigma)
	assert.ErrorIs(t, e.SetSigma(math.Inf(1)), ErrInvalidSigma)
	assert.ErrorIs(t, e.SetSigma(1e-7), ErrInvalidSigma)
	assert.InDelta(t, 0.05, e.Sigma(), 1e-15, "failed SetSigma must not change state")

	require.NoError(t, e.SetLocalSpacing(0.5))
	assert.InDelta(t, 0.5, e.LocalSpacing(), 1e-15)
	assert.InDelta(t, 0.05, e.Sigma(), 1e-15)
	assert.ErrorIs(t, e.SetLocalSpacing(-1), ErrInvalidSpacing)
}

func TestSetupResetsSolution(t *testing.T) {
	e := newEdge(t, r3.Vec{}, r3.Vec{Y: 1})
	e.Gamma = 1
	fc := flow(t, 0, r3.Vec{X: 1})
	e.ClassifyWake(&testLoop{centroid: r3.Vec{X: 1}}, nil, fc)
	e.CalculateTrefftzForces(r3.Vec{}, r3.Vec{}, fc)
	require.NotEqual(t, r3.Vec{}, e.TrefftzForces())

	require.NoError(t, e.Setup(Vertex{Pos: r3.Vec{}}, Vertex{Pos: r3.Vec{Z: 1}}))
	assert.Equal(t, r3.Vec{}, e.TrefftzForces())
	assert.Zero(t, e.WakeWeight())
	assert.Equal(t, 1.0, e.Gamma)
}

func TestCloneIsIndependent(t *testing.T) {
	e := newEdge(t, r3.Vec{}, r3.Vec{Y: 1})
	e.Gamma = 3
	c := e.Clone()
	c.Gamma = 4
	require.NoError(t, c.SetSigma(0.3))

	assert.Equal(t, 3.0, e.Gamma)
	assert.InDelta(t, 0.1, e.Sigma(), 1e-15)
	assert.Equal(t, e.Centroid(), c.Centroid())
}
