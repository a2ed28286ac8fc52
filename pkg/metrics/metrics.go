package metrics

import (
	"runtime"
	"time"
)

// Build outcomes used as the status label.
const (
	StatusOK        = "ok"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Force evaluation kinds used as the kind label.
const (
	KindNearField = "near_field"
	KindTrefftz   = "trefftz"
	KindWake      = "wake"
)

// RecordKernelEvaluations adds n evaluations that took the named branch.
func (r *Registry) RecordKernelEvaluations(branch string, n int) {
	if n <= 0 {
		return
	}
	r.KernelEvaluationsTotal.WithLabelValues(branch).Add(float64(n))
}

// RecordInfluenceBuild records one finished build and the pairs it evaluated.
func (r *Registry) RecordInfluenceBuild(status string, duration time.Duration, entries int) {
	r.InfluenceBuildsTotal.WithLabelValues(status).Inc()
	r.InfluenceBuildDuration.Observe(duration.Seconds())
	if entries > 0 {
		r.InfluenceEntriesTotal.Add(float64(entries))
	}
}

// RecordForceEvaluations adds n per-edge evaluations of the given kind.
func (r *Registry) RecordForceEvaluations(kind string, n int) {
	if n <= 0 {
		return
	}
	r.ForceEvaluationsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordWorkerPanic counts one recovered task panic.
func (r *Registry) RecordWorkerPanic() {
	r.WorkerPanicsTotal.Inc()
}

// SetWorkerPoolSize publishes the size of a newly started pool.
func (r *Registry) SetWorkerPoolSize(n int) {
	r.WorkerPoolSize.Set(float64(n))
}

// SetInfluenceMatrixSize publishes the memory held by a rows × cols
// influence matrix of three float64 blocks.
func (r *Registry) SetInfluenceMatrixSize(rows, cols int) {
	r.InfluenceMatrixBytes.Set(float64(3 * 8 * rows * cols))
}

// UpdateSystemMetrics samples uptime, goroutines and memory.
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
