package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/actions"
	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

// Executor runs admitted corrective actions. Exactly one attempt per action:
// on success the action completes with a result payload, on error or timeout
// it fails with the message recorded. Retry, if wanted, happens by a fresh
// anomaly event after the cooldown expires.
type Executor struct {
	logger  *slog.Logger
	actions store.ActionStore
	timeout time.Duration
}

// New constructs an Executor persisting outcomes to the given store.
func New(logger *slog.Logger, actionStore store.ActionStore, timeout time.Duration) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Executor{logger: logger, actions: actionStore, timeout: timeout}
}

// Execute runs the handler under the configured timeout and returns the
// action in its terminal state. The terminal record is persisted before
// returning; persistence failures are logged, never propagated, so an action
// outcome cannot crash the loop.
func (e *Executor) Execute(ctx context.Context, action models.CorrectiveAction, handler actions.Handler) models.CorrectiveAction {
	if err := e.actions.SaveAction(ctx, action); err != nil {
		e.logger.Warn("failed to persist executing action", slog.String("action_id", action.ID), slog.Any("error", err))
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()

	type outcome struct {
		result map[string]interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := handler(runCtx, action.Parameters)
		done <- outcome{result: result, err: err}
	}()

	var result map[string]interface{}
	var execErr error
	select {
	case out := <-done:
		result, execErr = out.result, out.err
	case <-runCtx.Done():
		// Cancellation does not roll back whatever the handler already did;
		// best effort is all the contract promises.
		execErr = fmt.Errorf("action timed out after %s: %w", e.timeout, runCtx.Err())
	}

	completed := time.Now()
	action.CompletedAt = &completed

	duration := completed.Sub(started)
	if execErr != nil {
		action.Status = models.StatusFailed
		action.Error = execErr.Error()
		metrics.ObserveAction(string(action.Type), duration, metrics.OutcomeError)
		e.logger.Error("corrective action failed",
			slog.String("action_id", action.ID),
			slog.String("action_type", string(action.Type)),
			slog.Any("error", execErr))
	} else {
		action.Status = models.StatusCompleted
		action.Result = result
		metrics.ObserveAction(string(action.Type), duration, metrics.OutcomeSuccess)
		e.logger.Info("corrective action completed",
			slog.String("action_id", action.ID),
			slog.String("action_type", string(action.Type)),
			slog.Duration("duration", duration))
	}

	// Persist with the parent ctx so a timed-out run can still record its outcome.
	if err := e.actions.SaveAction(ctx, action); err != nil {
		e.logger.Error("failed to persist action outcome", slog.String("action_id", action.ID), slog.Any("error", err))
	}

	return action
}
