package models

import "time"

// MetricType enumerates the performance signals the loop monitors.
type MetricType string

const (
	MetricResponseTime MetricType = "response_time"
	MetricErrorRate    MetricType = "error_rate"
	MetricMemoryUsage  MetricType = "memory_usage"
	MetricCPUUsage     MetricType = "cpu_usage"
	MetricThroughput   MetricType = "throughput"
	MetricLatency      MetricType = "latency"
	MetricSuccessRate  MetricType = "success_rate"
)

// AllMetricTypes lists every recognised metric type.
var AllMetricTypes = []MetricType{
	MetricResponseTime,
	MetricErrorRate,
	MetricMemoryUsage,
	MetricCPUUsage,
	MetricThroughput,
	MetricLatency,
	MetricSuccessRate,
}

// ValidMetricType reports whether t is a recognised metric type.
func ValidMetricType(t MetricType) bool {
	for _, known := range AllMetricTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Metric is one immutable performance sample. Producers create it, the store
// persists it, and only the retention sweep ever removes it.
type Metric struct {
	ID        string                 `json:"metric_id"`
	Type      MetricType             `json:"metric_type"`
	Value     float64                `json:"value"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Tags      []string               `json:"tags,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
