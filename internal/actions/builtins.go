package actions

import (
	"context"
	"log/slog"

	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// Effector applies a remediation in the outside world (scale a resource,
// restart a component, adjust a rate limit). The concrete implementation is
// injected at startup; the loop only sees its contract.
type Effector interface {
	Apply(ctx context.Context, actionType models.ActionType, params map[string]interface{}) (map[string]interface{}, error)
}

// LogEffector records the remediation it would have taken and reports
// success. It is the default when no real collaborator is wired in.
type LogEffector struct {
	Logger *slog.Logger
}

// Apply logs the intended remediation.
func (e LogEffector) Apply(ctx context.Context, actionType models.ActionType, params map[string]interface{}) (map[string]interface{}, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("remediation applied (dry-run)", slog.String("action_type", string(actionType)))
	return map[string]interface{}{"applied": string(actionType), "dry_run": true}, nil
}

func bind(effector Effector, actionType models.ActionType, params map[string]interface{}) Definition {
	return Definition{
		Type:       actionType,
		Parameters: params,
		Handler: func(ctx context.Context, p map[string]interface{}) (map[string]interface{}, error) {
			return effector.Apply(ctx, actionType, p)
		},
	}
}

// RegisterDefaults installs the stock anomaly-to-remediation table, routing
// every handler through the supplied effector.
func RegisterDefaults(r *Registry, effector Effector) {
	for _, severity := range []models.Severity{models.SeverityWarning, models.SeverityCritical} {
		r.Register(models.MetricResponseTime, severity, bind(effector, models.ActionScaleUp, map[string]interface{}{"increment": 1}))
		r.Register(models.MetricLatency, severity, bind(effector, models.ActionScaleUp, map[string]interface{}{"increment": 1}))
		r.Register(models.MetricErrorRate, severity, bind(effector, models.ActionRestartComponent, nil))
		r.Register(models.MetricMemoryUsage, severity, bind(effector, models.ActionClearCache, nil))
		r.Register(models.MetricSuccessRate, severity, bind(effector, models.ActionRestartComponent, nil))
	}
	// CPU pressure throttles first and only scales when critical.
	r.Register(models.MetricCPUUsage, models.SeverityWarning, bind(effector, models.ActionThrottleRequests, map[string]interface{}{"factor": 0.8}))
	r.Register(models.MetricCPUUsage, models.SeverityCritical, bind(effector, models.ActionScaleUp, map[string]interface{}{"increment": 2}))
}
