package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initRunMetrics registers the gauges describing one solver run: how long
// it has been going, how much memory its influence matrices pin and what
// the process holds while the kernel fans out.
func (r *Registry) initRunMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_uptime_seconds",
			Help: "Seconds since this run's registry was created",
		},
	)

	r.InfluenceMatrixBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_influence_matrix_bytes",
			Help: "Bytes held by the U, V and W blocks of the last influence matrix built",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_goroutines",
			Help: "Goroutines alive, kernel workers included",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_memory_alloc_bytes",
			Help: "Heap bytes allocated, influence matrices and pooled rows included",
		},
	)

	r.MemorySysBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_memory_sys_bytes",
			Help: "Bytes obtained from the OS by the solver process",
		},
	)
}
