package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInfluenceMetrics() {
	r.InfluenceBuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cluso_vortex_influence_builds_total",
			Help: "Influence matrix builds by outcome",
		},
		[]string{"status"},
	)

	r.InfluenceBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cluso_vortex_influence_build_duration_seconds",
			Help:    "Wall time of influence matrix builds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	r.InfluenceEntriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluso_vortex_influence_entries_total",
			Help: "Point-edge pairs evaluated by influence builds",
		},
	)

	r.WorkerPanicsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "cluso_vortex_worker_panics_total",
			Help: "Panics recovered inside worker pool tasks",
		},
	)

	r.WorkerPoolSize = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "cluso_vortex_worker_pool_size",
			Help: "Workers in the most recently started pool",
		},
	)
}
