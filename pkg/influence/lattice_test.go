package influence

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

func newLattice(t *testing.T, opts LatticeOptions) *Lattice {
	t.Helper()
	l, err := NewLattice(opts, vortex.DefaultSettings(), nil)
	require.NoError(t, err)
	return l
}

func TestNewLatticeLayout(t *testing.T) {
	l := newLattice(t, LatticeOptions{Span: 4, Chord: 2, SpanPanels: 4, ChordPanels: 2})

	// (nx+1)·ny spanwise plus nx·(ny+1) chordwise
	require.Len(t, l.Edges(), 3*4+2*5)
	assert.Equal(t, 8, l.NumLoops())
	assert.Equal(t, len(l.Edges()), l.Forest().Len())

	var leading, trailing, boundary int
	for _, e := range l.Edges() {
		if e.IsLeadingEdge {
			leading++
			assert.InDelta(t, 0, e.Centroid().X, 1e-15)
		}
		if e.IsTrailingEdge {
			trailing++
			assert.InDelta(t, 2, e.Centroid().X, 1e-15)
		}
		if e.IsBoundaryEdge {
			boundary++
			assert.Equal(t, vortex.LatticeBoundary, e.Kind)
		}
		assert.InDelta(t, 0.1, e.Sigma(), 1e-15)
	}
	assert.Equal(t, 4, leading)
	assert.Equal(t, 4, trailing)
	assert.Equal(t, 2*4+2*2, boundary)

	points := l.Points()
	assert.Equal(t, r3.Vec{X: 0.5, Y: -1.5}, points[0])
	assert.Equal(t, r3.Vec{X: 1.5, Y: 1.5}, points[7])
	for _, n := range l.Normals() {
		assert.Equal(t, r3.Vec{Z: 1}, n)
	}
}

func TestNewLatticeRefine(t *testing.T) {
	l := newLattice(t, LatticeOptions{Span: 2, Chord: 1, SpanPanels: 2, ChordPanels: 1, Refine: 2})

	roots := 2*2 + 1*3
	assert.Len(t, l.Forest().Roots(), roots)
	require.Len(t, l.Edges(), roots*4)
	for _, e := range l.Edges() {
		assert.True(t, e.FineGrid)
		assert.False(t, e.CoarseGrid)
	}

	// fine edges still cover the coarse ones exactly
	var coarse, fine float64
	for _, id := range l.Forest().Roots() {
		e, _ := l.Forest().Edge(id)
		coarse += e.Length()
		assert.True(t, e.CoarseGrid)
	}
	for _, e := range l.Edges() {
		fine += e.Length()
	}
	assert.InDelta(t, coarse, fine, 1e-12)
}

func TestNewLatticeInvalidOptions(t *testing.T) {
	for _, opts := range []LatticeOptions{
		{Span: 0, Chord: 1, SpanPanels: 1, ChordPanels: 1},
		{Span: 1, Chord: 1, SpanPanels: 0, ChordPanels: 1},
		{Span: 1, Chord: 1, SpanPanels: 1, ChordPanels: 1, Refine: 9},
	} {
		_, err := NewLattice(opts, vortex.DefaultSettings(), nil)
		assert.Error(t, err, "%+v", opts)
	}

	_, err := NewLattice(DefaultLatticeOptions(), vortex.Settings{}, nil)
	assert.ErrorIs(t, err, vortex.ErrInvalidSettings)
}

func TestLatticeCirculation(t *testing.T) {
	l := newLattice(t, LatticeOptions{Span: 2, Chord: 1, SpanPanels: 2, ChordPanels: 1, Refine: 1})
	l.SetCirculation(func(int) float64 { return 1 })

	for _, e := range l.Forest().Edges() {
		switch {
		case e.IsLeadingEdge:
			assert.Equal(t, 1.0, e.Gamma)
		case e.IsTrailingEdge:
			assert.Equal(t, -1.0, e.Gamma)
		case !e.IsBoundaryEdge:
			// neighbouring rings cancel on shared edges
			assert.Equal(t, 0.0, e.Gamma)
		}
	}
	assert.Len(t, l.Circulations(), len(l.Edges()))
}

func TestLatticeAdjacency(t *testing.T) {
	l := newLattice(t, LatticeOptions{Span: 1, Chord: 1, SpanPanels: 1, ChordPanels: 1})

	for _, e := range l.Edges() {
		near := l.NearLoop(e)
		require.NotNil(t, near)
		l1, l2 := l.Loops(e)
		// a single panel: every edge borders the one loop on exactly one side
		assert.True(t, (l1 == nil) != (l2 == nil), "edge %v", e)
	}
}

// solveForces runs the force pass on a lattice with the given ring
// strengths and returns the totals.
func solveForces(t *testing.T, opts LatticeOptions, ring func(int) float64, fc vortex.FlowCondition) (near, trefftz r3.Vec) {
	t.Helper()
	l := newLattice(t, opts)
	l.SetCirculation(ring)
	l.ResetVelocities(fc)

	b, _ := newTestBuilder(t, 3)
	require.NoError(t, b.ComputeForces(context.Background(), l.Edges(), l, fc))
	return l.TotalForces()
}

func TestLatticeSinglePanelForces(t *testing.T) {
	fc, err := vortex.NewFlowCondition(0, r3.Vec{X: 10}, 1.2)
	require.NoError(t, err)

	near, trefftz := solveForces(t, LatticeOptions{Span: 1, Chord: 1, SpanPanels: 1, ChordPanels: 1},
		func(int) float64 { return 1 }, fc)

	assert.InDelta(t, 0, r3.Norm(near), 1e-12)
	// the trailing edge sheds into the wake: a unit horseshoe remains
	assert.InDelta(t, 1.2/math.Pi, trefftz.X, 1e-12)
	assert.InDelta(t, 0, trefftz.Y, 1e-12)
	assert.InDelta(t, 1.2*10*1, trefftz.Z, 1e-12)
}

func TestLatticeTrefftzHorseshoe(t *testing.T) {
	const rho = 1.225
	fc := mustFlow(t, 0)

	// One strip sheds a single horseshoe whatever its chordwise loading or
	// refinement: drag ρΓ²/π and lift ρUΓb with Γ the trailing ring.
	rows := []float64{0.3, 0.7, 1}
	for _, span := range []float64{0.5, 2, 8} {
		for _, refine := range []int{0, 2} {
			opts := LatticeOptions{Span: span, Chord: 1, SpanPanels: 1, ChordPanels: 3, Refine: refine}
			_, trefftz := solveForces(t, opts, func(k int) float64 { return rows[k] }, fc)

			assert.InDelta(t, rho/math.Pi, trefftz.X, 1e-10, "span %g refine %d", span, refine)
			assert.InDelta(t, rho*10*span, trefftz.Z, 1e-10, "span %g refine %d", span, refine)
		}
	}
}

func TestLatticeTrefftzTwoStrips(t *testing.T) {
	const rho = 1.225
	fc := mustFlow(t, 0)

	// Two uniformly loaded strips leave tip vortices at ±b/2; the wash at
	// each strip centre is -Γ/(2π)·16/(3b), so the drag is 4ρΓ²/(3π).
	_, trefftz := solveForces(t, LatticeOptions{Span: 6, Chord: 1, SpanPanels: 2, ChordPanels: 1},
		func(int) float64 { return 1 }, fc)
	assert.InDelta(t, 4*rho/(3*math.Pi), trefftz.X, 1e-10)
	assert.InDelta(t, rho*10*6, trefftz.Z, 1e-10)
}

func TestLatticeTrefftzRefinementInvariant(t *testing.T) {
	fc := mustFlow(t, 0.4)
	ring := func(k int) float64 { return 1 + 0.25*float64(k%4) }

	for _, ny := range []int{4, 16} {
		base := LatticeOptions{Span: 8, Chord: 1, SpanPanels: ny, ChordPanels: 1}
		_, coarse := solveForces(t, base, ring, fc)

		base.Refine = 2
		_, fine := solveForces(t, base, ring, fc)

		assert.InDelta(t, coarse.X, fine.X, 1e-9*math.Abs(coarse.X), "ny %d", ny)
		assert.InDelta(t, coarse.Z, fine.Z, 1e-9*math.Abs(coarse.Z), "ny %d", ny)
	}
}

func TestLatticeUpdateVelocities(t *testing.T) {
	l := newLattice(t, LatticeOptions{Span: 4, Chord: 1, SpanPanels: 4, ChordPanels: 2})
	fc := mustFlow(t, 0.3)
	l.SetCirculation(func(k int) float64 { return 0.1 * float64(k%4+1) })

	b, _ := newTestBuilder(t, 2)
	m, err := b.Build(context.Background(), l.Edges(), l.Points(), fc)
	require.NoError(t, err)
	require.NoError(t, l.UpdateVelocities(m, fc))

	induced, err := m.Apply(l.Circulations())
	require.NoError(t, err)
	for k, p := range l.Points() {
		got := l.loop(k).LocalVelocity()
		assert.Equal(t, r3.Add(fc.Velocity(), induced[k]), got, "loop at %v", p)
	}

	small, err := b.Build(context.Background(), l.Edges(), l.Points()[:2], fc)
	require.NoError(t, err)
	assert.ErrorIs(t, l.UpdateVelocities(small, fc), ErrDimensionMismatch)
}
