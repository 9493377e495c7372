package models

import "time"

// Severity captures how far a metric has strayed.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AnomalyEvent records one detected deviation for a metric type within an
// analysis window. Events are ephemeral; only the actions they trigger are
// persisted.
type AnomalyEvent struct {
	MetricType          MetricType
	Severity            Severity
	ObservedValue       float64
	Baseline            float64
	WindowStart         time.Time
	WindowEnd           time.Time
	TriggeringMetricIDs []string
}

// MaxSeverity returns the stronger of two severities; critical always wins.
func MaxSeverity(a, b Severity) Severity {
	if a == SeverityCritical || b == SeverityCritical {
		return SeverityCritical
	}
	return SeverityWarning
}
