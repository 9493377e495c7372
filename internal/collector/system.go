package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// Collector produces metric samples for the orchestrator to ingest at the
// start of each tick.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]models.Metric, error)
}

// CPUCollector samples host CPU utilisation as a cpu_usage metric.
type CPUCollector struct {
	source string
}

// NewCPUCollector creates a CPU collector tagged with the given source.
func NewCPUCollector(source string) *CPUCollector {
	if source == "" {
		source = "sentinel-host"
	}
	return &CPUCollector{source: source}
}

// Name returns the collector's logical name.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect reads total CPU utilisation since the previous call.
func (c *CPUCollector) Collect(ctx context.Context) ([]models.Metric, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("read cpu percent: %w", err)
	}
	if len(total) == 0 {
		return nil, nil
	}
	return []models.Metric{{
		Type:      models.MetricCPUUsage,
		Value:     total[0],
		Timestamp: time.Now().UTC(),
		Source:    c.source,
		Tags:      []string{"self"},
	}}, nil
}

// MemoryCollector samples host memory utilisation as a memory_usage metric.
type MemoryCollector struct {
	source string
}

// NewMemoryCollector creates a memory collector tagged with the given source.
func NewMemoryCollector(source string) *MemoryCollector {
	if source == "" {
		source = "sentinel-host"
	}
	return &MemoryCollector{source: source}
}

// Name returns the collector's logical name.
func (c *MemoryCollector) Name() string { return "memory" }

// Collect reads used-memory percentage from the kernel.
func (c *MemoryCollector) Collect(ctx context.Context) ([]models.Metric, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("read virtual memory: %w", err)
	}
	return []models.Metric{{
		Type:      models.MetricMemoryUsage,
		Value:     vm.UsedPercent,
		Timestamp: time.Now().UTC(),
		Source:    c.source,
		Tags:      []string{"self"},
	}}, nil
}
