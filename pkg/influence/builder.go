// Package influence assembles point-by-edge influence matrices and per-edge
// force passes on a worker pool.
package influence

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/metrics"
	"github.com/dd0wney/cluso-vortex/pkg/parallel"
	"github.com/dd0wney/cluso-vortex/pkg/pools"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

var (
	ErrNoEdges           = errors.New("no edges")
	ErrNoPoints          = errors.New("no field points")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrWorkerPanic reports that at least one task panicked; the result
	// is discarded.
	ErrWorkerPanic = errors.New("worker panicked")
)

// Options configures a Builder.
type Options struct {
	// Workers is the pool size; zero or negative means one worker.
	Workers int
}

// Builder runs kernel and force evaluations over many edges in parallel.
// Each Build or ComputeForces call starts its own pool, so one Builder may be
// used from several goroutines.
type Builder struct {
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewBuilder validates opts and returns a Builder. A nil logger discards
// output and a nil registry selects metrics.DefaultRegistry.
func NewBuilder(opts Options, logger logging.Logger, registry *metrics.Registry) (*Builder, error) {
	workers := max(opts.Workers, 1)
	if workers > parallel.MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", parallel.ErrTooManyWorkers, workers, parallel.MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if registry == nil {
		registry = metrics.DefaultRegistry()
	}
	return &Builder{
		workers: workers,
		logger:  logger.With(logging.Component("influence")),
		metrics: registry,
	}, nil
}

// Workers returns the pool size used per call.
func (b *Builder) Workers() int { return b.workers }

// run starts a pool, feeds it n items in chunks and tears it down. It returns
// the context error if the run was cancelled and ErrWorkerPanic if any task
// panicked.
func (b *Builder) run(ctx context.Context, log logging.Logger, n int, fn func(lo, hi int)) error {
	var panicked atomic.Bool
	pool, err := parallel.NewWorkerPool(b.workers, log, parallel.WithPanicHandler(func(any) {
		panicked.Store(true)
		b.metrics.RecordWorkerPanic()
	}))
	if err != nil {
		return err
	}
	defer pool.Close()
	b.metrics.SetWorkerPoolSize(pool.Workers())

	// Small chunks keep cancellation responsive and balance uneven rows.
	size := max(parallel.ChunkSize(n, 4*pool.Workers()), 1)
	parallel.ForEachChunk(pool, n, size, func(lo, hi int) {
		if ctx.Err() != nil {
			return
		}
		fn(lo, hi)
	})

	switch {
	case panicked.Load():
		return ErrWorkerPanic
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return nil
}

// Build evaluates every edge at every point with unit circulation.
func (b *Builder) Build(ctx context.Context, edges []*vortex.Edge, points []r3.Vec, fc vortex.FlowCondition) (*Matrix, error) {
	if len(edges) == 0 {
		return nil, ErrNoEdges
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	if err := checkEdges(edges); err != nil {
		return nil, err
	}

	rows, cols := len(points), len(edges)
	log := b.logger.With(
		logging.RunID(uuid.NewString()),
		logging.Rows(rows),
		logging.Cols(cols),
		logging.Mach(fc.Mach()),
		logging.Workers(b.workers),
	)
	timer := logging.StartTimer(log, "influence matrix built")
	m := newMatrix(rows, cols)

	err := b.run(ctx, log, rows, func(lo, hi int) {
		var counts [vortex.NumBranches]int
		for i := lo; i < hi && ctx.Err() == nil; i++ {
			b.fillRow(m, i, points[i], edges, fc, &counts)
		}
		for br, n := range counts {
			b.metrics.RecordKernelEvaluations(vortex.Branch(br).String(), n)
		}
	})

	status := metrics.StatusOK
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		status = metrics.StatusCancelled
	case err != nil:
		status = metrics.StatusFailed
	}
	entries := 0
	if err == nil {
		entries = rows * cols
	}
	b.metrics.RecordInfluenceBuild(status, timer.Elapsed(), entries)

	if err != nil {
		timer.EndError(err)
		return nil, fmt.Errorf("build influence matrix: %w", err)
	}
	b.metrics.SetInfluenceMatrixSize(rows, cols)
	timer.End()
	return m, nil
}

// fillRow evaluates one field point against every edge.
func (b *Builder) fillRow(m *Matrix, i int, p r3.Vec, edges []*vortex.Edge, fc vortex.FlowCondition, counts *[vortex.NumBranches]int) {
	n := len(edges)
	u, v, w := pools.GetFloat64s(n), pools.GetFloat64s(n), pools.GetFloat64s(n)
	defer func() {
		pools.PutFloat64s(u)
		pools.PutFloat64s(v)
		pools.PutFloat64s(w)
	}()

	for _, e := range edges {
		q, br := e.InducedVelocityBranch(p, fc)
		u, v, w = append(u, q.X), append(v, q.Y), append(w, q.Z)
		counts[br]++
	}

	// Rows are disjoint, so concurrent SetRow calls never overlap.
	m.U.SetRow(i, u)
	m.V.SetRow(i, v)
	m.W.SetRow(i, w)
}
