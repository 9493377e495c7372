package store

import (
	"context"
	"errors"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// ErrStorageUnavailable signals that the backing datastore could not be
// reached. Callers retry with backoff; a tick that cannot read metrics skips
// detection for that tick only.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrNotFound signals that a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// MetricStore is the durable, append-only record of performance samples.
type MetricStore interface {
	// Record persists a metric and returns its id, assigning one when absent.
	Record(ctx context.Context, metric models.Metric) (string, error)
	// Query returns metrics of the given type with from <= timestamp < to,
	// ordered by timestamp ascending.
	Query(ctx context.Context, metricType models.MetricType, from, to time.Time) ([]models.Metric, error)
	// PurgeOlderThan removes metrics with timestamp < cutoff. Idempotent.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ActionStore persists corrective actions and their outcomes.
type ActionStore interface {
	// SaveAction upserts an action record under its id.
	SaveAction(ctx context.Context, action models.CorrectiveAction) error
	// GetAction loads one action by id, or ErrNotFound.
	GetAction(ctx context.Context, id string) (models.CorrectiveAction, error)
	// ListActions returns actions created at or after since, newest first.
	ListActions(ctx context.Context, since time.Time) ([]models.CorrectiveAction, error)
}

// Store combines the metric and action surfaces; both backends implement it.
type Store interface {
	MetricStore
	ActionStore
	Close() error
}
