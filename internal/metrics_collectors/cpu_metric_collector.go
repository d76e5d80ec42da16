package metrics_collectors

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
)

// CPUMetricCollector collects CPU usage metrics.
type CPUMetricCollector struct {
	Logger zerolog.Logger
}

func (c *CPUMetricCollector) Name() string {
	return "cpu"
}

func (c *CPUMetricCollector) Collect(ctx context.Context) (float64, error) {
	cpuPercentages, err := cpu.Percent(0, false)
	if err != nil {
		c.Logger.Error().Err(err).Msg("Failed to get CPU usage")
		return 0, err
	}

	if len(cpuPercentages) == 0 {
		c.Logger.Warn().Msg("CPU usage data is empty")
		return 0, errors.New("cpu usage data is empty")
	}

	return cpuPercentages[0], nil
}

func (c *CPUMetricCollector) Unit() string {
	return "percentage"
}

func (c *CPUMetricCollector) Description() string {
	return "Percentage of CPU utilization across all cores."
}
