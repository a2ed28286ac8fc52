package vortex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MinEdgeLength is the shortest edge Setup accepts.
const MinEdgeLength = 1e-12

// Node is a mesh vertex an edge can be built on.
type Node interface {
	Index() int
	Position() r3.Vec
}

// Loop is a solved surface loop bordering an edge.
type Loop interface {
	Centroid() r3.Vec
	// LocalVelocity is the total velocity at the loop, free stream included.
	LocalVelocity() r3.Vec
}

// Vertex is a plain Node.
type Vertex struct {
	ID  int
	Pos r3.Vec
}

func (v Vertex) Index() int       { return v.ID }
func (v Vertex) Position() r3.Vec { return v.Pos }

// EdgeKind classifies where an edge sits in the mesh.
type EdgeKind int

const (
	Interior EdgeKind = iota
	// PanelBoundary edges bound a thick-surface panel region.
	PanelBoundary
	// LatticeBoundary edges bound a vortex-lattice region.
	LatticeBoundary
)

func (k EdgeKind) String() string {
	switch k {
	case Interior:
		return "interior"
	case PanelBoundary:
		return "panel_boundary"
	case LatticeBoundary:
		return "lattice_boundary"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Surface records which geometry component owns an edge.
type Surface struct {
	Wing   int
	Body   int
	Cart3D int
	// Node is the trailing wake node the edge belongs to, if any.
	Node int
}

// Edge is a straight bound-vortex segment shared by up to two surface loops.
//
// Topology and classification fields are filled by the mesh assembler. Gamma
// is written by the external solve. Geometry is fixed by Setup and only read
// afterwards, so concurrent kernel evaluations on one edge are safe. Forces
// and wake classification write per-edge state and must not race on the same
// edge.
//
// An Edge holds no references to refined children; those live in a Forest.
// Copying an Edge by value therefore always yields a leaf.
type Edge struct {
	Node1, Node2 int

	Loop1, Loop2             int
	LoopL, LoopR             int
	VortexLoop1, VortexLoop2 int
	VortexEdge               int

	Kind           EdgeKind
	IsTrailingEdge bool
	IsLeadingEdge  bool
	IsBoundaryEdge bool
	CoarseGrid     bool
	FineGrid       bool
	UsedForLoop    bool
	Verbose        bool

	Surface Surface

	Gamma float64

	ready    bool
	settings Settings

	x1, x2   r3.Vec
	centroid r3.Vec
	vec      r3.Vec
	length   float64
	frame    Frame

	sigma   float64
	spacing float64
	tol     Tolerances

	forces        r3.Vec
	trefftzForces r3.Vec

	downWind       [2]bool
	downWindWeight [2]float64
}

// Tolerances are the squared radii separating the kernel tiers.
type Tolerances struct {
	Collocation float64
	Core        float64
	Transition  float64
}

// Setup builds the edge geometry between n1 and n2 with DefaultSettings.
func (e *Edge) Setup(n1, n2 Node) error {
	return e.SetupWithSettings(n1, n2, DefaultSettings())
}

// SetupWithSettings builds the edge geometry between n1 and n2. It may be
// called again to rebuild the edge; solution state is cleared.
func (e *Edge) SetupWithSettings(n1, n2 Node, s Settings) error {
	if n1 == nil || n2 == nil {
		return ErrNilNode
	}
	if err := s.Validate(); err != nil {
		return err
	}

	x1, x2 := n1.Position(), n2.Position()
	d := r3.Sub(x2, x1)
	length := r3.Norm(d)
	if !(length > MinEdgeLength) || math.IsInf(length, 0) {
		return fmt.Errorf("%w: nodes %d and %d are %g apart", ErrDegenerateEdge, n1.Index(), n2.Index(), length)
	}

	e.Node1, e.Node2 = n1.Index(), n2.Index()
	e.settings = s
	e.x1, e.x2 = x1, x2
	e.centroid = r3.Scale(0.5, r3.Add(x1, x2))
	e.length = length
	e.vec = r3.Scale(1/length, d)
	e.frame = newFrame(x1, e.vec)
	e.spacing = length
	e.sigma = s.CoreRatio * length
	e.updateTolerances()

	e.forces = r3.Vec{}
	e.trefftzForces = r3.Vec{}
	e.downWind = [2]bool{}
	e.downWindWeight = [2]float64{}
	e.ready = true
	return nil
}

func (e *Edge) updateTolerances() {
	coll := e.settings.CollocationRatio * e.length
	trans := e.settings.TransitionFactor * e.sigma
	e.tol = Tolerances{
		Collocation: coll * coll,
		Core:        e.sigma * e.sigma,
		Transition:  trans * trans,
	}
}

// mustBeReady panics with ErrNotSetup when Setup has not succeeded.
func (e *Edge) mustBeReady() {
	if !e.ready {
		panic(ErrNotSetup)
	}
}

// Ready reports whether Setup has succeeded.
func (e *Edge) Ready() bool { return e.ready }

// X1 returns the start node position captured by Setup.
func (e *Edge) X1() r3.Vec { e.mustBeReady(); return e.x1 }

// X2 returns the end node position captured by Setup.
func (e *Edge) X2() r3.Vec { e.mustBeReady(); return e.x2 }

// Centroid returns the midpoint of X1 and X2.
func (e *Edge) Centroid() r3.Vec { e.mustBeReady(); return e.centroid }

// Vec returns the unit vector from X1 to X2.
func (e *Edge) Vec() r3.Vec { e.mustBeReady(); return e.vec }

// Length returns |X2 - X1|.
func (e *Edge) Length() float64 { e.mustBeReady(); return e.length }

// Frame returns the local frame with origin at X1 and +x along Vec.
func (e *Edge) Frame() Frame { e.mustBeReady(); return e.frame }

// Settings returns the settings passed to the last Setup, or the zero value
// before Setup. Unlike the geometric getters it does not panic.
func (e *Edge) Settings() Settings { return e.settings }

// Sigma returns the vortex core radius.
func (e *Edge) Sigma() float64 { e.mustBeReady(); return e.sigma }

// SetSigma overrides the core radius and recomputes the tier tolerances.
// The core must stay wider than the collocation radius.
func (e *Edge) SetSigma(sigma float64) error {
	e.mustBeReady()
	coll := e.settings.CollocationRatio * e.length
	if !(sigma > coll) || math.IsInf(sigma, 0) {
		return fmt.Errorf("%w: %g (collocation radius %g)", ErrInvalidSigma, sigma, coll)
	}
	e.sigma = sigma
	e.updateTolerances()
	return nil
}

// LocalSpacing returns the mesh spacing the core radius is scaled from.
func (e *Edge) LocalSpacing() float64 { e.mustBeReady(); return e.spacing }

// SetLocalSpacing sets the local mesh spacing and resets the core radius to
// CoreRatio times that spacing.
func (e *Edge) SetLocalSpacing(h float64) error {
	e.mustBeReady()
	if !(h > 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidSpacing, h)
	}
	if err := e.SetSigma(e.settings.CoreRatio * h); err != nil {
		return err
	}
	e.spacing = h
	return nil
}

// Tolerances returns the squared tier radii.
func (e *Edge) Tolerances() Tolerances { e.mustBeReady(); return e.tol }

// Forces returns the near-field force from the last CalculateForces call.
func (e *Edge) Forces() r3.Vec { return e.forces }

// TrefftzForces returns the far-field force from the last
// CalculateTrefftzForces call.
func (e *Edge) TrefftzForces() r3.Vec { return e.trefftzForces }

// DownWind reports whether loop k (0 for Loop1, 1 for Loop2) lies downwind.
// k must be 0 or 1; any other value panics with an index out of range.
func (e *Edge) DownWind(k int) bool { return e.downWind[k] }

// DownWindWeight returns the blending weight for loop k, with k 0 or 1 as
// for DownWind. It is zero unless DownWind(k) is set.
func (e *Edge) DownWindWeight(k int) float64 { return e.downWindWeight[k] }

// Clone returns a copy of the edge. The copy is a leaf in any Forest it is
// added to.
func (e *Edge) Clone() *Edge {
	c := *e
	return &c
}

// String implements fmt.Stringer.
func (e *Edge) String() string {
	if !e.ready {
		return fmt.Sprintf("Edge(%d->%d, not set up)", e.Node1, e.Node2)
	}
	return fmt.Sprintf("Edge(%d->%d, L=%.4g, sigma=%.4g, %s)", e.Node1, e.Node2, e.length, e.sigma, e.Kind)
}
