package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
)

// MetricsRegistry manages all metric collectors and produces the resource
// snapshot served by the health endpoint.
type MetricsRegistry struct {
	collectors map[string]MetricCollector
}

// NewMetricsRegistry creates a new MetricsRegistry instance.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		collectors: make(map[string]MetricCollector),
	}
}

// DefaultRegistry returns a registry with the standard server collectors.
func DefaultRegistry(logger zerolog.Logger) *MetricsRegistry {
	r := NewMetricsRegistry()
	r.Register(&CPUMetricCollector{Logger: logger})
	r.Register(&MemoryMetricCollector{Logger: logger})
	r.Register(&DiskMetricCollector{Logger: logger})
	r.Register(&GoroutineMetricCollector{Logger: logger})
	return r
}

// Register adds a new metric collector to the registry.
func (r *MetricsRegistry) Register(collector MetricCollector) {
	r.collectors[collector.Name()] = collector
}

// GetCollectors returns all the metric collectors registered in the registry.
func (r *MetricsRegistry) GetCollectors() map[string]MetricCollector {
	return r.collectors
}

// Snapshot collects every registered metric. Collectors that fail are
// simply absent from the snapshot; health reporting is best effort.
func (r *MetricsRegistry) Snapshot(ctx context.Context) map[string]float64 {
	snapshot := make(map[string]float64, len(r.collectors))
	for name, collector := range r.collectors {
		value, err := collector.Collect(ctx)
		if err != nil {
			continue
		}
		snapshot[name] = value
	}
	return snapshot
}
