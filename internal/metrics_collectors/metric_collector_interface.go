package metrics_collectors

import (
	"context"
)

// MetricCollector defines the interface for collecting a specific resource
// metric reported by the health endpoint.
type MetricCollector interface {
	Name() string                                // Name of the metric (e.g., "cpu", "memory")
	Collect(ctx context.Context) (float64, error) // Collect the current metric value
	Unit() string                                // Unit of the metric (e.g., "percentage", "count")
	Description() string                         // Description of the metric
}
