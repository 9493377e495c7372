package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loopback-labs/sentinel-loop/internal/models"
)

// MemoryStore keeps metrics and actions in process memory. It backs tests and
// single-process deployments; durability is the redis backend's job.
type MemoryStore struct {
	mu      sync.RWMutex
	metrics map[models.MetricType][]models.Metric
	actions map[string]models.CorrectiveAction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: make(map[models.MetricType][]models.Metric),
		actions: make(map[string]models.CorrectiveAction),
	}
}

// Record appends a metric, keeping each type's slice sorted by timestamp.
func (s *MemoryStore) Record(ctx context.Context, metric models.Metric) (string, error) {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.metrics[metric.Type]
	series = append(series, metric)
	// Producers usually arrive in order; sort only when this one did not.
	if n := len(series); n > 1 && series[n-1].Timestamp.Before(series[n-2].Timestamp) {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Timestamp.Before(series[j].Timestamp)
		})
	}
	s.metrics[metric.Type] = series
	return metric.ID, nil
}

// Query returns metrics of one type within [from, to), ascending.
func (s *MemoryStore) Query(ctx context.Context, metricType models.MetricType, from, to time.Time) ([]models.Metric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Metric
	for _, m := range s.metrics[metricType] {
		if m.Timestamp.Before(from) || !m.Timestamp.Before(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// PurgeOlderThan drops metrics older than cutoff across all types.
func (s *MemoryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for mt, series := range s.metrics {
		kept := series[:0]
		for _, m := range series {
			if m.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		s.metrics[mt] = kept
	}
	return removed, nil
}

// SaveAction upserts an action record.
func (s *MemoryStore) SaveAction(ctx context.Context, action models.CorrectiveAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[action.ID] = action
	return nil
}

// GetAction loads one action by id.
func (s *MemoryStore) GetAction(ctx context.Context, id string) (models.CorrectiveAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[id]
	if !ok {
		return models.CorrectiveAction{}, ErrNotFound
	}
	return action, nil
}

// ListActions returns actions created at or after since, newest first.
func (s *MemoryStore) ListActions(ctx context.Context, since time.Time) ([]models.CorrectiveAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CorrectiveAction
	for _, a := range s.actions {
		if a.CreatedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
