package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the Prometheus collectors of the vortex kernel and the
// influence assembly around it.
type Registry struct {
	// Kernel metrics
	KernelEvaluationsTotal *prometheus.CounterVec
	ForceEvaluationsTotal  *prometheus.CounterVec

	// Influence metrics
	InfluenceBuildsTotal   *prometheus.CounterVec
	InfluenceBuildDuration prometheus.Histogram
	InfluenceEntriesTotal  prometheus.Counter

	// Worker pool metrics
	WorkerPanicsTotal prometheus.Counter
	WorkerPoolSize    prometheus.Gauge

	// Run metrics
	UptimeSeconds        prometheus.Gauge
	InfluenceMatrixBytes prometheus.Gauge
	GoRoutines           prometheus.Gauge
	MemoryAllocBytes     prometheus.Gauge
	MemorySysBytes       prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every collector registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initKernelMetrics()
	r.initInfluenceMetrics()
	r.initRunMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
