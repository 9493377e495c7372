package actions

import (
	"context"

	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// Handler performs one remediation's side effect. The executor enforces the
// timeout; handlers must respect ctx cancellation.
type Handler func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error)

// Definition binds an action type to its handler and the parameters passed on
// every dispatch.
type Definition struct {
	Type       models.ActionType
	Parameters map[string]interface{}
	Handler    Handler
}

type key struct {
	metricType models.MetricType
	severity   models.Severity
}

// Registry maps (metric type, severity) to the corrective action dispatched
// when an anomaly of that shape is admitted. Populated once at startup; reads
// after that are lock-free.
type Registry struct {
	entries map[key]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]Definition)}
}

// Register binds a definition to a (metric type, severity) pair, replacing
// any previous binding.
func (r *Registry) Register(metricType models.MetricType, severity models.Severity, def Definition) {
	r.entries[key{metricType, severity}] = def
}

// Resolve returns the definition for an anomaly shape, if one is registered.
func (r *Registry) Resolve(metricType models.MetricType, severity models.Severity) (Definition, bool) {
	def, ok := r.entries[key{metricType, severity}]
	return def, ok
}
