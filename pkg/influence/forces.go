package influence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/metrics"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

// Adjacency resolves the solved loops bordering an edge. Loops are used as
// map keys, so implementations must return comparable values, typically
// pointers.
type Adjacency interface {
	// NearLoop is the loop whose local velocity drives the edge's
	// near-field force.
	NearLoop(e *vortex.Edge) vortex.Loop
	// Loops returns the loops behind Loop1 and Loop2; either may be nil.
	Loops(e *vortex.Edge) (vortex.Loop, vortex.Loop)
}

// TrefftzWash returns the far-wake velocity at every point: the sum over
// edges of WakeWeight·Γ times the edge's TrefftzInducedVelocity. Edges must
// have been classified with ClassifyWake.
func (b *Builder) TrefftzWash(ctx context.Context, edges []*vortex.Edge, points []r3.Vec, fc vortex.FlowCondition) ([]r3.Vec, error) {
	if len(edges) == 0 {
		return nil, ErrNoEdges
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if err := checkEdges(edges); err != nil {
		return nil, err
	}
	log := b.logger.With(
		logging.RunID(uuid.NewString()),
		logging.Rows(len(points)),
		logging.Cols(len(edges)),
		logging.Operation("trefftz_wash"),
	)
	wash, err := b.trefftzWash(ctx, log, edges, points, fc)
	if err != nil {
		return nil, fmt.Errorf("trefftz wash: %w", err)
	}
	return wash, nil
}

func (b *Builder) trefftzWash(ctx context.Context, log logging.Logger, edges []*vortex.Edge, points []r3.Vec, fc vortex.FlowCondition) ([]r3.Vec, error) {
	wash := make([]r3.Vec, len(points))
	err := b.run(ctx, log, len(points), func(lo, hi int) {
		for i := lo; i < hi && ctx.Err() == nil; i++ {
			var w r3.Vec
			for _, e := range edges {
				s := e.WakeWeight() * e.Gamma
				if s == 0 {
					continue
				}
				w = r3.Add(w, r3.Scale(s, e.TrefftzInducedVelocity(points[i], fc)))
			}
			wash[i] = w
		}
	})
	return wash, err
}

func checkEdges(edges []*vortex.Edge) error {
	for j, e := range edges {
		if e == nil || !e.Ready() {
			return fmt.Errorf("edge %d: %w", j, vortex.ErrNotSetup)
		}
	}
	return nil
}

// ComputeForces classifies the wake and evaluates near-field and Trefftz
// forces of every edge. It runs in three passes: wake classification with
// near-field forces, the far-wake wash at the centroid of every downwind
// loop, then the Trefftz forces from that wash. Within a pass each edge is
// touched by exactly one task.
func (b *Builder) ComputeForces(ctx context.Context, edges []*vortex.Edge, adj Adjacency, fc vortex.FlowCondition) error {
	if len(edges) == 0 {
		return ErrNoEdges
	}
	if err := checkEdges(edges); err != nil {
		return err
	}

	log := b.logger.With(
		logging.RunID(uuid.NewString()),
		logging.Cols(len(edges)),
		logging.Mach(fc.Mach()),
		logging.Operation("forces"),
	)
	timer := logging.StartTimer(log, "edge forces computed")

	if err := b.computeForces(ctx, log, edges, adj, fc); err != nil {
		timer.EndError(err)
		return fmt.Errorf("compute forces: %w", err)
	}
	timer.End()
	return nil
}

func (b *Builder) computeForces(ctx context.Context, log logging.Logger, edges []*vortex.Edge, adj Adjacency, fc vortex.FlowCondition) error {
	loops := make([][2]vortex.Loop, len(edges))
	err := b.run(ctx, log, len(edges), func(lo, hi int) {
		done := 0
		for j := lo; j < hi && ctx.Err() == nil; j++ {
			e := edges[j]
			l1, l2 := adj.Loops(e)
			loops[j] = [2]vortex.Loop{l1, l2}
			e.ClassifyWake(l1, l2, fc)
			e.CalculateForces(adj.NearLoop(e), fc)
			done++
			if e.Verbose {
				log.Debug("edge wake",
					logging.Any("edge", e.String()),
					logging.Float64("gamma", e.Gamma),
					logging.Float64("wake_weight", e.WakeWeight()))
			}
		}
		b.metrics.RecordForceEvaluations(metrics.KindWake, done)
		b.metrics.RecordForceEvaluations(metrics.KindNearField, done)
	})
	if err != nil {
		return err
	}

	// Only downwind loops enter the blend, so only their traces are needed.
	index := make(map[vortex.Loop]int)
	var traces []r3.Vec
	for j, e := range edges {
		for k, lp := range loops[j] {
			if !e.DownWind(k) {
				continue
			}
			if _, ok := index[lp]; !ok {
				index[lp] = len(traces)
				traces = append(traces, lp.Centroid())
			}
		}
	}

	var wash []r3.Vec
	if len(traces) > 0 {
		if wash, err = b.trefftzWash(ctx, log, edges, traces, fc); err != nil {
			return err
		}
	}

	return b.run(ctx, log, len(edges), func(lo, hi int) {
		done := 0
		for j := lo; j < hi && ctx.Err() == nil; j++ {
			e := edges[j]
			var w [2]r3.Vec
			for k, lp := range loops[j] {
				if e.DownWind(k) {
					w[k] = wash[index[lp]]
				}
			}
			e.CalculateTrefftzForces(w[0], w[1], fc)
			done++
		}
		b.metrics.RecordForceEvaluations(metrics.KindTrefftz, done)
	})
}
