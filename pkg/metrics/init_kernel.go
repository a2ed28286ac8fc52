package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initKernelMetrics() {
	r.KernelEvaluationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_vortex_kernel_evaluations_total",
			Help: "Induced velocity evaluations by kernel branch",
		},
		[]string{"branch"},
	)

	r.ForceEvaluationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_vortex_force_evaluations_total",
			Help: "Per-edge force and wake evaluations by kind",
		},
		[]string{"kind"},
	)
}
