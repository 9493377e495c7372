package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

func executingAction(actionType models.ActionType) models.CorrectiveAction {
	now := time.Now()
	return models.CorrectiveAction{
		ID:        "act-1",
		Type:      actionType,
		Status:    models.StatusExecuting,
		CreatedAt: now,
		StartedAt: &now,
	}
}

func TestExecuteSuccessRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	exec := New(nil, st, time.Second)

	handler := func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{"scaled_to": 4}, nil
	}

	result := exec.Execute(context.Background(), executingAction(models.ActionScaleUp), handler)
	if result.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if result.CompletedAt == nil {
		t.Fatalf("completed action must have a completion time")
	}

	// The terminal record must be reloadable from storage with its result.
	reloaded, err := st.GetAction(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("reload action: %v", err)
	}
	if reloaded.Status != models.StatusCompleted {
		t.Fatalf("persisted status %s, want completed", reloaded.Status)
	}
	if reloaded.Result == nil {
		t.Fatalf("persisted action must carry a non-nil result")
	}
	if reloaded.Error != "" {
		t.Fatalf("successful action must not record an error, got %q", reloaded.Error)
	}
}

func TestExecuteFailureRecordsError(t *testing.T) {
	st := store.NewMemoryStore()
	exec := New(nil, st, time.Second)

	handler := func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		return nil, errors.New("scaling api returned 500")
	}

	result := exec.Execute(context.Background(), executingAction(models.ActionScaleUp), handler)
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "scaling api returned 500") {
		t.Fatalf("expected handler error recorded, got %q", result.Error)
	}

	reloaded, err := st.GetAction(context.Background(), "act-1")
	if err != nil {
		t.Fatalf("reload action: %v", err)
	}
	if reloaded.Status != models.StatusFailed {
		t.Fatalf("persisted status %s, want failed", reloaded.Status)
	}
}

func TestExecuteTimeoutCancelsAndFails(t *testing.T) {
	st := store.NewMemoryStore()
	exec := New(nil, st, 20*time.Millisecond)

	cancelled := make(chan struct{})
	handler := func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}

	result := exec.Execute(context.Background(), executingAction(models.ActionRestartComponent), handler)
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed on timeout, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Fatalf("expected timeout error, got %q", result.Error)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatalf("handler context was never cancelled")
	}
}

func TestExecutePanicIsContained(t *testing.T) {
	st := store.NewMemoryStore()
	exec := New(nil, st, time.Second)

	handler := func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
		panic("remediation blew up")
	}

	result := exec.Execute(context.Background(), executingAction(models.ActionClearCache), handler)
	if result.Status != models.StatusFailed {
		t.Fatalf("expected failed after panic, got %s", result.Status)
	}
	if !strings.Contains(result.Error, "remediation blew up") {
		t.Fatalf("expected panic message recorded, got %q", result.Error)
	}
}
