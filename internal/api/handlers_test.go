package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/config"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

func testServer(st store.Store) *Server {
	return NewServer(config.ServerConfig{Address: ":0"}, nil, st)
}

func postMetric(t *testing.T, s *Server, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestIngestStoresMetricAndReturnsID(t *testing.T) {
	st := store.NewMemoryStore()
	s := testServer(st)

	rec := postMetric(t, s, models.Metric{
		Type:   models.MetricResponseTime,
		Value:  1.25,
		Source: "checkout-api",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID string `json:"metric_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("expected assigned metric id")
	}

	stored, err := st.Query(context.Background(), models.MetricResponseTime,
		time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != resp.ID {
		t.Fatalf("metric not stored under returned id: %+v", stored)
	}
}

func TestIngestRejectsBadPayloads(t *testing.T) {
	s := testServer(store.NewMemoryStore())

	rec := postMetric(t, s, map[string]interface{}{"metric_type": "disk_temperature", "source": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown type: expected 400, got %d", rec.Code)
	}

	rec = postMetric(t, s, map[string]interface{}{"metric_type": "cpu_usage"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing source: expected 400, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics", bytes.NewReader([]byte("{not json")))
	raw := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(raw, req)
	if raw.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: expected 400, got %d", raw.Code)
	}
}

func TestIngestMapsStorageUnavailableTo503(t *testing.T) {
	s := testServer(&unavailableStore{})

	rec := postMetric(t, s, models.Metric{
		Type:   models.MetricCPUUsage,
		Value:  50,
		Source: "host-1",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestQueryReturnsMetricsInRange(t *testing.T) {
	st := store.NewMemoryStore()
	s := testServer(st)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if _, err := st.Record(context.Background(), models.Metric{
			Type:      models.MetricLatency,
			Value:     float64(i),
			Timestamp: now.Add(time.Duration(-i) * time.Minute),
			Source:    "test",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics?type=latency", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []models.Metric
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(got))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/metrics?type=not_a_type", nil)
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type: expected 400, got %d", rec.Code)
	}
}

func TestListActionsEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	s := testServer(st)

	if err := st.SaveAction(context.Background(), models.CorrectiveAction{
		ID:        "act-9",
		Type:      models.ActionScaleUp,
		Status:    models.StatusCompleted,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed action: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/actions", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got []models.CorrectiveAction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "act-9" {
		t.Fatalf("unexpected actions payload: %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// unavailableStore fails every operation with ErrStorageUnavailable.
type unavailableStore struct{}

func (unavailableStore) Record(context.Context, models.Metric) (string, error) {
	return "", store.ErrStorageUnavailable
}

func (unavailableStore) Query(context.Context, models.MetricType, time.Time, time.Time) ([]models.Metric, error) {
	return nil, store.ErrStorageUnavailable
}

func (unavailableStore) PurgeOlderThan(context.Context, time.Time) (int, error) {
	return 0, store.ErrStorageUnavailable
}

func (unavailableStore) SaveAction(context.Context, models.CorrectiveAction) error {
	return store.ErrStorageUnavailable
}

func (unavailableStore) GetAction(context.Context, string) (models.CorrectiveAction, error) {
	return models.CorrectiveAction{}, store.ErrStorageUnavailable
}

func (unavailableStore) ListActions(context.Context, time.Time) ([]models.CorrectiveAction, error) {
	return nil, store.ErrStorageUnavailable
}

func (unavailableStore) Close() error { return nil }
