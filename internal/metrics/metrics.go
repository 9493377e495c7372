package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels ticks and actions that completed cleanly.
	OutcomeSuccess = "success"
	// OutcomeError labels ticks and actions that failed.
	OutcomeError = "error"

	// DecisionAdmitted labels admissions that created an action.
	DecisionAdmitted = "admitted"
	// DecisionCooldown labels rejections due to an active cooldown.
	DecisionCooldown = "cooldown"
	// DecisionCapacity labels rejections due to the concurrency cap.
	DecisionCapacity = "capacity"
	// DecisionNoHandler labels events with no registered action.
	DecisionNoHandler = "no_handler"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "ticks_total",
			Help:      "Total orchestrator ticks, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	tickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "tick_seconds",
			Help:      "Orchestrator tick latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "anomalies_total",
			Help:      "Anomaly events emitted, partitioned by metric type and severity.",
		},
		[]string{"metric_type", "severity"},
	)

	admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "admissions_total",
			Help:      "Governor admission decisions, partitioned by decision.",
		},
		[]string{"decision"},
	)

	actionsExecuting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "actions_executing",
			Help:      "Number of corrective actions currently executing.",
		},
	)

	actionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "action_seconds",
			Help:      "Corrective action execution latency in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"action_type", "outcome"},
	)

	metricsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "metrics_ingested_total",
			Help:      "Metrics accepted by the ingestion surface, by metric type.",
		},
		[]string{"metric_type"},
	)
)

// Register attaches all collectors to the supplied registerer, tolerating
// double registration so tests can call it freely.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ticksTotal,
		tickDurationSeconds,
		anomaliesTotal,
		admissionsTotal,
		actionsExecuting,
		actionDurationSeconds,
		metricsIngested,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTick records one orchestrator pass.
func ObserveTick(duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	ticksTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	tickDurationSeconds.Observe(duration.Seconds())
}

// ObserveAnomaly counts one emitted anomaly event.
func ObserveAnomaly(metricType, severity string) {
	anomaliesTotal.WithLabelValues(metricType, severity).Inc()
}

// ObserveAdmission counts one governor decision.
func ObserveAdmission(decision string) {
	admissionsTotal.WithLabelValues(decision).Inc()
}

// SetExecuting tracks the in-flight action count.
func SetExecuting(n int) {
	actionsExecuting.Set(float64(n))
}

// ObserveAction records one execution attempt.
func ObserveAction(actionType string, duration time.Duration, outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	if duration < 0 {
		duration = 0
	}
	actionDurationSeconds.WithLabelValues(actionType, outcome).Observe(duration.Seconds())
}

// ObserveIngested counts one accepted metric.
func ObserveIngested(metricType string) {
	metricsIngested.WithLabelValues(metricType).Inc()
}
