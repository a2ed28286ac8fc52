package vortex

import (
	"fmt"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
)

// EdgeID addresses an edge inside a Forest.
type EdgeID int

// NoEdge is returned where an edge has no parent.
const NoEdge EdgeID = -1

// Forest owns edges and the coarse/fine refinement links between them. Every
// edge has at most one parent and either zero or two children, so the links
// always form a forest.
//
// A Forest is not safe for concurrent mutation. Reading edges while no
// mutation is in flight is safe.
type Forest struct {
	edges    []*Edge
	children [][2]EdgeID
	parent   []EdgeID
	logger   logging.Logger
}

// NewForest creates an empty forest. A nil logger discards output.
func NewForest(capacity int, logger logging.Logger) *Forest {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Forest{
		edges:    make([]*Edge, 0, capacity),
		children: make([][2]EdgeID, 0, capacity),
		parent:   make([]EdgeID, 0, capacity),
		logger:   logger.With(logging.Component("vortex_forest")),
	}
}

// Add takes ownership of e and returns its id.
func (f *Forest) Add(e *Edge) EdgeID {
	id := EdgeID(len(f.edges))
	f.edges = append(f.edges, e)
	f.children = append(f.children, [2]EdgeID{NoEdge, NoEdge})
	f.parent = append(f.parent, NoEdge)
	return id
}

// Len returns the number of edges in the forest.
func (f *Forest) Len() int { return len(f.edges) }

func (f *Forest) valid(id EdgeID) bool { return id >= 0 && int(id) < len(f.edges) }

// Edge returns the edge with the given id.
func (f *Forest) Edge(id EdgeID) (*Edge, error) {
	if !f.valid(id) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	return f.edges[id], nil
}

// Edges returns the backing slice of edges indexed by EdgeID.
func (f *Forest) Edges() []*Edge { return f.edges }

// SetChildren links two existing edges as the refined children of parent.
// Either both links are made or none.
func (f *Forest) SetChildren(parent, c1, c2 EdgeID) error {
	for _, id := range [3]EdgeID{parent, c1, c2} {
		if !f.valid(id) {
			return fmt.Errorf("%w: %d", ErrUnknownEdge, id)
		}
	}
	switch {
	case c1 == c2 || c1 == parent || c2 == parent:
		return fmt.Errorf("%w: parent %d children %d, %d", ErrInvalidChildren, parent, c1, c2)
	case f.children[parent][0] != NoEdge:
		return fmt.Errorf("%w: %d", ErrAlreadySubdivided, parent)
	case f.parent[c1] != NoEdge:
		return fmt.Errorf("%w: %d", ErrChildOwned, c1)
	case f.parent[c2] != NoEdge:
		return fmt.Errorf("%w: %d", ErrChildOwned, c2)
	}
	for _, c := range [2]EdgeID{c1, c2} {
		if f.isAncestor(c, parent) {
			return fmt.Errorf("%w: %d is an ancestor of %d", ErrInvalidChildren, c, parent)
		}
	}

	f.children[parent] = [2]EdgeID{c1, c2}
	f.parent[c1] = parent
	f.parent[c2] = parent

	if f.edges[parent].Verbose {
		f.logger.Debug("edge subdivided",
			logging.EdgeID(int(parent)), logging.Int("child1", int(c1)), logging.Int("child2", int(c2)))
	}
	return nil
}

// isAncestor reports whether a is id or one of its ancestors.
func (f *Forest) isAncestor(a, id EdgeID) bool {
	for ; id != NoEdge; id = f.parent[id] {
		if id == a {
			return true
		}
	}
	return false
}

// HasChildren reports whether the edge has been refined.
func (f *Forest) HasChildren(id EdgeID) bool {
	return f.valid(id) && f.children[id][0] != NoEdge
}

// Children returns the two refined children of id, if any.
func (f *Forest) Children(id EdgeID) (EdgeID, EdgeID, bool) {
	if !f.HasChildren(id) {
		return NoEdge, NoEdge, false
	}
	c := f.children[id]
	return c[0], c[1], true
}

// Parent returns the coarse parent of id, if any.
func (f *Forest) Parent(id EdgeID) (EdgeID, bool) {
	if !f.valid(id) || f.parent[id] == NoEdge {
		return NoEdge, false
	}
	return f.parent[id], true
}

// Subdivide splits the edge at mid into two fine edges that inherit its
// topology, flags, settings and circulation. The parent is marked as coarse
// grid and the children as fine grid.
func (f *Forest) Subdivide(id EdgeID, mid Node) (EdgeID, EdgeID, error) {
	if !f.valid(id) {
		return NoEdge, NoEdge, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	if f.HasChildren(id) {
		return NoEdge, NoEdge, fmt.Errorf("%w: %d", ErrAlreadySubdivided, id)
	}
	p := f.edges[id]
	p.mustBeReady()

	first := p.child()
	if err := first.SetupWithSettings(Vertex{ID: p.Node1, Pos: p.x1}, mid, p.settings); err != nil {
		return NoEdge, NoEdge, fmt.Errorf("subdivide edge %d: %w", id, err)
	}
	second := p.child()
	if err := second.SetupWithSettings(mid, Vertex{ID: p.Node2, Pos: p.x2}, p.settings); err != nil {
		return NoEdge, NoEdge, fmt.Errorf("subdivide edge %d: %w", id, err)
	}

	c1, c2 := f.Add(first), f.Add(second)
	if err := f.SetChildren(id, c1, c2); err != nil {
		return NoEdge, NoEdge, err
	}
	p.CoarseGrid = true
	return c1, c2, nil
}

// child returns an unset-up edge carrying e's topology and classification.
func (e *Edge) child() *Edge {
	return &Edge{
		Loop1:          e.Loop1,
		Loop2:          e.Loop2,
		LoopL:          e.LoopL,
		LoopR:          e.LoopR,
		VortexLoop1:    e.VortexLoop1,
		VortexLoop2:    e.VortexLoop2,
		VortexEdge:     e.VortexEdge,
		Kind:           e.Kind,
		IsTrailingEdge: e.IsTrailingEdge,
		IsLeadingEdge:  e.IsLeadingEdge,
		IsBoundaryEdge: e.IsBoundaryEdge,
		FineGrid:       true,
		UsedForLoop:    e.UsedForLoop,
		Verbose:        e.Verbose,
		Surface:        e.Surface,
		Gamma:          e.Gamma,
	}
}

// Walk visits id and then, while visit returns true, its descendants depth
// first. depth is 0 at id.
func (f *Forest) Walk(id EdgeID, visit func(id EdgeID, depth int) bool) error {
	if !f.valid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	f.walk(id, 0, visit)
	return nil
}

func (f *Forest) walk(id EdgeID, depth int, visit func(EdgeID, int) bool) {
	if !visit(id, depth) {
		return
	}
	if c := f.children[id]; c[0] != NoEdge {
		f.walk(c[0], depth+1, visit)
		f.walk(c[1], depth+1, visit)
	}
}

// Leaves returns the finest descendants of id in edge order, or id itself
// when it has no children.
func (f *Forest) Leaves(id EdgeID) ([]EdgeID, error) {
	var leaves []EdgeID
	err := f.Walk(id, func(id EdgeID, _ int) bool {
		if !f.HasChildren(id) {
			leaves = append(leaves, id)
		}
		return true
	})
	return leaves, err
}

// Roots returns every edge without a parent.
func (f *Forest) Roots() []EdgeID {
	roots := make([]EdgeID, 0, len(f.edges))
	for i, p := range f.parent {
		if p == NoEdge {
			roots = append(roots, EdgeID(i))
		}
	}
	return roots
}
