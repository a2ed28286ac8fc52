package influence

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/validation"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

// LatticeOptions sizes a synthetic flat rectangular lattice.
type LatticeOptions struct {
	Span        float64 `yaml:"span" validate:"gt=0"`
	Chord       float64 `yaml:"chord" validate:"gt=0"`
	SpanPanels  int     `yaml:"span_panels" validate:"min=1,max=1024"`
	ChordPanels int     `yaml:"chord_panels" validate:"min=1,max=1024"`
	// Refine splits every edge this many times into fine grid edges.
	Refine int `yaml:"refine" validate:"min=0,max=6"`
}

// DefaultLatticeOptions is an aspect ratio 8 plate.
func DefaultLatticeOptions() LatticeOptions {
	return LatticeOptions{Span: 8, Chord: 1, SpanPanels: 32, ChordPanels: 8}
}

// Lattice is a flat rectangular vortex-ring lattice in the z = 0 plane with
// the chord along +x. Loop k sits in chordwise row k / SpanPanels and
// spanwise column k % SpanPanels; its centroid is the collocation point.
//
// Every edge is oriented so that Loop1 is the loop whose ring traverses it
// forwards, so its circulation is Γ(Loop1) - Γ(Loop2). Spanwise edges run
// along +y with Loop1 downstream; chordwise edges run along +x with Loop1 on
// the -y side.
//
// There are no wake rings. Trailing-edge edges have no downwind loop, so the
// last ring row is what the far field sees shed.
type Lattice struct {
	opts   LatticeOptions
	forest *vortex.Forest
	loops  []*latticeLoop
	edges  []*vortex.Edge
}

type latticeLoop struct {
	centroid r3.Vec
	velocity r3.Vec
}

func (l *latticeLoop) Centroid() r3.Vec      { return l.centroid }
func (l *latticeLoop) LocalVelocity() r3.Vec { return l.velocity }

// NewLattice builds the lattice edges with settings s and refines them
// opts.Refine times through a vortex.Forest.
func NewLattice(opts LatticeOptions, s vortex.Settings, logger logging.Logger) (*Lattice, error) {
	if err := validation.ValidateStruct(opts); err != nil {
		return nil, fmt.Errorf("lattice options: %w", err)
	}
	nx, ny := opts.ChordPanels, opts.SpanPanels
	roots := (nx+1)*ny + nx*(ny+1)

	l := &Lattice{
		opts:   opts,
		forest: vortex.NewForest(roots<<(opts.Refine+1), logger),
		loops:  make([]*latticeLoop, nx*ny),
	}

	node := func(i, j int) vortex.Vertex {
		return vortex.Vertex{
			ID: i*(ny+1) + j,
			Pos: r3.Vec{
				X: opts.Chord * float64(i) / float64(nx),
				Y: opts.Span * (float64(j)/float64(ny) - 0.5),
			},
		}
	}
	loop := func(i, j int) int {
		if i < 0 || i >= nx || j < 0 || j >= ny {
			return -1
		}
		return i*ny + j
	}

	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			a, b := node(i, j).Pos, node(i+1, j+1).Pos
			l.loops[loop(i, j)] = &latticeLoop{centroid: r3.Scale(0.5, r3.Add(a, b))}
		}
	}

	add := func(n1, n2 vortex.Vertex, loop1, loop2 int) (*vortex.Edge, error) {
		e := &vortex.Edge{
			Loop1:       loop1,
			Loop2:       loop2,
			LoopL:       loop1,
			LoopR:       loop2,
			VortexLoop1: loop1,
			VortexLoop2: loop2,
			VortexEdge:  l.forest.Len(),
		}
		if err := e.SetupWithSettings(n1, n2, s); err != nil {
			return nil, err
		}
		if loop1 < 0 || loop2 < 0 {
			e.IsBoundaryEdge = true
			e.Kind = vortex.LatticeBoundary
		}
		l.forest.Add(e)
		return e, nil
	}

	for i := 0; i <= nx; i++ {
		for j := 0; j < ny; j++ {
			e, err := add(node(i, j), node(i, j+1), loop(i, j), loop(i-1, j))
			if err != nil {
				return nil, fmt.Errorf("spanwise edge (%d, %d): %w", i, j, err)
			}
			e.IsLeadingEdge = i == 0
			e.IsTrailingEdge = i == nx
		}
	}
	for i := 0; i < nx; i++ {
		for j := 0; j <= ny; j++ {
			if _, err := add(node(i, j), node(i+1, j), loop(i, j-1), loop(i, j)); err != nil {
				return nil, fmt.Errorf("chordwise edge (%d, %d): %w", i, j, err)
			}
		}
	}

	for level := 0; level < opts.Refine; level++ {
		n := l.forest.Len()
		for id := vortex.EdgeID(0); int(id) < n; id++ {
			if l.forest.HasChildren(id) {
				continue
			}
			e, _ := l.forest.Edge(id)
			mid := vortex.Vertex{ID: -1, Pos: e.Centroid()}
			if _, _, err := l.forest.Subdivide(id, mid); err != nil {
				return nil, fmt.Errorf("refine level %d: %w", level+1, err)
			}
		}
	}

	for _, root := range l.forest.Roots() {
		leaves, err := l.forest.Leaves(root)
		if err != nil {
			return nil, err
		}
		for _, id := range leaves {
			e, _ := l.forest.Edge(id)
			l.edges = append(l.edges, e)
		}
	}
	return l, nil
}

// Options returns the options the lattice was built with.
func (l *Lattice) Options() LatticeOptions { return l.opts }

// Forest returns the refinement forest owning every edge.
func (l *Lattice) Forest() *vortex.Forest { return l.forest }

// Edges returns the finest edges, the ones that carry circulation.
func (l *Lattice) Edges() []*vortex.Edge { return l.edges }

// NumLoops returns the number of panels.
func (l *Lattice) NumLoops() int { return len(l.loops) }

// Points returns the collocation point of every loop.
func (l *Lattice) Points() []r3.Vec {
	points := make([]r3.Vec, len(l.loops))
	for k, lp := range l.loops {
		points[k] = lp.centroid
	}
	return points
}

// Normals returns the unit normal of every loop.
func (l *Lattice) Normals() []r3.Vec {
	normals := make([]r3.Vec, len(l.loops))
	for k := range normals {
		normals[k] = r3.Vec{Z: 1}
	}
	return normals
}

// SetCirculation writes Γ(Loop1) - Γ(Loop2) onto every edge, coarse and fine,
// from per-loop ring strengths. Missing loops count as zero.
func (l *Lattice) SetCirculation(ring func(loop int) float64) {
	g := func(k int) float64 {
		if k < 0 {
			return 0
		}
		return ring(k)
	}
	for _, e := range l.forest.Edges() {
		e.Gamma = g(e.Loop1) - g(e.Loop2)
	}
}

// Circulations returns the circulation of every fine edge in Edges order.
func (l *Lattice) Circulations() []float64 {
	gamma := make([]float64, len(l.edges))
	for j, e := range l.edges {
		gamma[j] = e.Gamma
	}
	return gamma
}

// ResetVelocities sets every loop's local velocity to the free stream.
func (l *Lattice) ResetVelocities(fc vortex.FlowCondition) {
	for _, lp := range l.loops {
		lp.velocity = fc.Velocity()
	}
}

// UpdateVelocities sets every loop's local velocity to the free stream plus
// the velocity the current circulations induce, with m built over Points
// and Edges.
func (l *Lattice) UpdateVelocities(m *Matrix, fc vortex.FlowCondition) error {
	if rows, _ := m.Dims(); rows != len(l.loops) {
		return fmt.Errorf("%w: %d rows for %d loops", ErrDimensionMismatch, rows, len(l.loops))
	}
	induced, err := m.Apply(l.Circulations())
	if err != nil {
		return err
	}
	for k, lp := range l.loops {
		lp.velocity = r3.Add(fc.Velocity(), induced[k])
	}
	return nil
}

// NearLoop implements Adjacency with the edge's first existing loop.
func (l *Lattice) NearLoop(e *vortex.Edge) vortex.Loop {
	if e.Loop1 >= 0 {
		return l.loop(e.Loop1)
	}
	return l.loop(e.Loop2)
}

// Loops implements Adjacency.
func (l *Lattice) Loops(e *vortex.Edge) (vortex.Loop, vortex.Loop) {
	return l.loop(e.Loop1), l.loop(e.Loop2)
}

func (l *Lattice) loop(k int) vortex.Loop {
	if k < 0 || k >= len(l.loops) {
		return nil
	}
	return l.loops[k]
}

// TotalForces sums the near-field and Trefftz forces of the fine edges.
func (l *Lattice) TotalForces() (near, trefftz r3.Vec) {
	for _, e := range l.edges {
		near = r3.Add(near, e.Forces())
		trefftz = r3.Add(trefftz, e.TrefftzForces())
	}
	return near, trefftz
}
