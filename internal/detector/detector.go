package detector

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

// Detector evaluates each metric type's trailing window against its
// configured thresholds and the statistical deviation rule, emitting at most
// one AnomalyEvent per type per pass.
type Detector struct {
	logger     *slog.Logger
	store      store.MetricStore
	thresholds map[models.MetricType]config.Threshold
	multiplier float64
}

// New constructs a Detector over the given store and threshold table.
func New(logger *slog.Logger, metricStore store.MetricStore, thresholds map[models.MetricType]config.Threshold, multiplier float64) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if multiplier <= 0 {
		multiplier = 2.5
	}
	return &Detector{
		logger:     logger,
		store:      metricStore,
		thresholds: thresholds,
		multiplier: multiplier,
	}
}

// Detect runs one pass over the window [from, to). A failure reading one
// metric type is logged and skipped; it never aborts the other types.
func (d *Detector) Detect(ctx context.Context, from, to time.Time) []models.AnomalyEvent {
	events := make([]models.AnomalyEvent, 0, len(d.thresholds))

	for _, metricType := range models.AllMetricTypes {
		threshold, configured := d.thresholds[metricType]
		if !configured {
			continue
		}

		window, err := d.store.Query(ctx, metricType, from, to)
		if err != nil {
			d.logger.Warn("window query failed, skipping type this pass",
				slog.String("metric_type", string(metricType)), slog.Any("error", err))
			continue
		}
		if len(window) == 0 {
			continue
		}

		event, fired := d.evaluate(metricType, threshold, window, from, to)
		if !fired {
			continue
		}
		metrics.ObserveAnomaly(string(event.MetricType), string(event.Severity))
		events = append(events, event)
	}

	return events
}

// evaluate applies both rules to a non-empty window and merges their
// severities, critical winning.
func (d *Detector) evaluate(metricType models.MetricType, threshold config.Threshold, window []models.Metric, from, to time.Time) (models.AnomalyEvent, bool) {
	latest := window[len(window)-1]
	mean, stddev := meanStddev(window)

	var (
		fired    bool
		severity models.Severity
		baseline float64
	)

	// Threshold rule: compare the most recent value against the static levels.
	if breaches(metricType, latest.Value, threshold.Critical) {
		fired, severity, baseline = true, models.SeverityCritical, threshold.Critical
	} else if breaches(metricType, latest.Value, threshold.Warning) {
		fired, severity, baseline = true, models.SeverityWarning, threshold.Warning
	}

	// Deviation rule: requires at least two samples and non-zero spread.
	if len(window) >= 2 && stddev > 0 {
		deviation := math.Abs(latest.Value - mean)
		if deviation > d.multiplier*stddev {
			devSeverity := models.SeverityWarning
			if deviation >= 2*d.multiplier*stddev {
				devSeverity = models.SeverityCritical
			}
			if !fired {
				severity, baseline = devSeverity, mean
			} else {
				severity = models.MaxSeverity(severity, devSeverity)
			}
			fired = true
		}
	}

	if !fired {
		return models.AnomalyEvent{}, false
	}

	ids := make([]string, 0, len(window))
	for _, m := range window {
		ids = append(ids, m.ID)
	}

	return models.AnomalyEvent{
		MetricType:          metricType,
		Severity:            severity,
		ObservedValue:       latest.Value,
		Baseline:            baseline,
		WindowStart:         from,
		WindowEnd:           to,
		TriggeringMetricIDs: ids,
	}, true
}

// breaches reports whether value crosses level in the degrading direction.
// success_rate degrades downward; every other type degrades upward.
func breaches(metricType models.MetricType, value, level float64) bool {
	if metricType == models.MetricSuccessRate {
		return value < level
	}
	return value > level
}

func meanStddev(window []models.Metric) (float64, float64) {
	mean := 0.0
	for _, m := range window {
		mean += m.Value
	}
	mean /= float64(len(window))

	variance := 0.0
	for _, m := range window {
		variance += math.Pow(m.Value-mean, 2)
	}
	variance /= float64(len(window))

	return mean, math.Sqrt(variance)
}
