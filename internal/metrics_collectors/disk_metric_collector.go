package metrics_collectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/disk"
)

// DiskMetricCollector collects disk usage metrics. Disk pressure is the one
// that actually takes the sample store down, so it is always reported.
type DiskMetricCollector struct {
	Logger zerolog.Logger
}

func (d *DiskMetricCollector) Name() string {
	return "disk"
}

func (d *DiskMetricCollector) Collect(ctx context.Context) (float64, error) {
	diskStats, err := disk.Usage("/")
	if err != nil {
		d.Logger.Error().Err(err).Msg("Failed to get disk usage")
		return 0, err
	}
	return diskStats.UsedPercent, nil
}

func (d *DiskMetricCollector) Unit() string {
	return "percentage"
}

func (d *DiskMetricCollector) Description() string {
	return "Percentage of disk space used on the root filesystem."
}
