package models

import "time"

// ActionStatus tracks a corrective action through its lifecycle. Transitions
// only move forward: pending → executing → completed|failed.
type ActionStatus string

const (
	StatusPending   ActionStatus = "pending"
	StatusExecuting ActionStatus = "executing"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
)

// ActionType names a remediation the loop can dispatch.
type ActionType string

const (
	ActionScaleUp          ActionType = "scale_up"
	ActionRestartComponent ActionType = "restart_component"
	ActionClearCache       ActionType = "clear_cache"
	ActionThrottleRequests ActionType = "throttle_requests"
)

// CorrectiveAction is one admitted remediation attempt. The governor owns it
// from creation until admission, the executor until a terminal status, after
// which it is persisted read-only.
type CorrectiveAction struct {
	ID          string                 `json:"action_id"`
	Type        ActionType             `json:"action_type"`
	Trigger     AnomalyEvent           `json:"-"`
	TriggerType MetricType             `json:"trigger_metric_type"`
	Severity    Severity               `json:"trigger_severity"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Status      ActionStatus           `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}
