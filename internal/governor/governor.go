package governor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loopback-labs/sentinel-loop/internal/actions"
	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// Decision is the outcome of one admission attempt.
type Decision string

const (
	// Admitted means a CorrectiveAction was created and handed to execution.
	Admitted Decision = "admitted"
	// RejectedCooldown means the action type ran too recently.
	RejectedCooldown Decision = "cooldown"
	// RejectedCapacity means the concurrency cap is saturated.
	RejectedCapacity Decision = "capacity"
	// RejectedNoHandler means no action is registered for the anomaly shape.
	RejectedNoHandler Decision = "no_handler"
)

// Governor owns admission: it resolves an anomaly event to a candidate
// action, then applies the per-type cooldown and the global concurrency cap.
// One mutex guards the executing count and the cooldown clock together, so
// two concurrent admissions can never both observe spare capacity and both
// proceed past the cap.
//
// Rejected events create nothing: no action record is persisted and nothing
// is queued. If the condition persists, the next detection pass re-emits the
// event and admission runs fresh.
type Governor struct {
	logger        *slog.Logger
	registry      *actions.Registry
	cooldown      time.Duration
	maxConcurrent int

	mu           sync.Mutex
	executing    int
	inFlight     map[models.ActionType]bool
	lastActivity map[models.ActionType]time.Time

	now func() time.Time
}

// New constructs a Governor with the given cooldown and concurrency cap.
func New(logger *slog.Logger, registry *actions.Registry, cooldown time.Duration, maxConcurrent int) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Governor{
		logger:        logger,
		registry:      registry,
		cooldown:      cooldown,
		maxConcurrent: maxConcurrent,
		inFlight:      make(map[models.ActionType]bool),
		lastActivity:  make(map[models.ActionType]time.Time),
		now:           time.Now,
	}
}

// Admit decides whether event may trigger a corrective action. On admission
// it returns the action already transitioned to executing, with capacity
// reserved; the caller must call Finish exactly once when the action reaches
// a terminal status.
func (g *Governor) Admit(event models.AnomalyEvent) (models.CorrectiveAction, actions.Definition, Decision) {
	def, ok := g.registry.Resolve(event.MetricType, event.Severity)
	if !ok {
		g.logger.Debug("no action registered for anomaly, dropping",
			slog.String("metric_type", string(event.MetricType)),
			slog.String("severity", string(event.Severity)))
		metrics.ObserveAdmission(metrics.DecisionNoHandler)
		return models.CorrectiveAction{}, actions.Definition{}, RejectedNoHandler
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	// An action type still executing blocks new admissions of the same type
	// regardless of the cooldown value; the clock alone cannot cover this
	// when the cooldown is zero.
	if g.inFlight[def.Type] {
		g.logger.Info("admission rejected: action type already executing",
			slog.String("action_type", string(def.Type)))
		metrics.ObserveAdmission(metrics.DecisionCooldown)
		return models.CorrectiveAction{}, actions.Definition{}, RejectedCooldown
	}

	if last, seen := g.lastActivity[def.Type]; seen && now.Sub(last) < g.cooldown {
		g.logger.Info("admission rejected: cooldown active",
			slog.String("action_type", string(def.Type)),
			slog.Duration("remaining", g.cooldown-now.Sub(last)))
		metrics.ObserveAdmission(metrics.DecisionCooldown)
		return models.CorrectiveAction{}, actions.Definition{}, RejectedCooldown
	}

	if g.executing >= g.maxConcurrent {
		g.logger.Info("admission rejected: concurrency cap reached",
			slog.String("action_type", string(def.Type)),
			slog.Int("cap", g.maxConcurrent))
		metrics.ObserveAdmission(metrics.DecisionCapacity)
		return models.CorrectiveAction{}, actions.Definition{}, RejectedCapacity
	}

	// Admission: reserve capacity and stamp the cooldown clock while the
	// lock is held, then move the new action straight through pending into
	// executing. The two transitions are atomic from any observer's view.
	g.executing++
	g.inFlight[def.Type] = true
	g.lastActivity[def.Type] = now
	metrics.SetExecuting(g.executing)
	metrics.ObserveAdmission(metrics.DecisionAdmitted)

	started := now
	action := models.CorrectiveAction{
		ID:          uuid.NewString(),
		Type:        def.Type,
		Trigger:     event,
		TriggerType: event.MetricType,
		Severity:    event.Severity,
		Parameters:  def.Parameters,
		Status:      models.StatusExecuting,
		CreatedAt:   now,
		StartedAt:   &started,
	}
	return action, def, Admitted
}

// Finish releases the capacity reserved at admission and refreshes the
// action type's cooldown clock with the completion time.
func (g *Governor) Finish(actionType models.ActionType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.executing > 0 {
		g.executing--
	}
	delete(g.inFlight, actionType)
	g.lastActivity[actionType] = g.now()
	metrics.SetExecuting(g.executing)
}

// Executing reports the number of actions currently holding capacity.
func (g *Governor) Executing() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.executing
}
