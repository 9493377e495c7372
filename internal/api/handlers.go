package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/loopback-labs/sentinel-loop/internal/metrics"
	"github.com/loopback-labs/sentinel-loop/internal/models"
	"github.com/loopback-labs/sentinel-loop/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type ingestResponse struct {
	ID string `json:"metric_id"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleIngest accepts one metric from an external producer.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var metric models.Metric
	if err := json.NewDecoder(r.Body).Decode(&metric); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid metric payload: " + err.Error()})
		return
	}
	if !models.ValidMetricType(metric.Type) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown metric_type"})
		return
	}
	if metric.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "source is required"})
		return
	}
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}

	id, err := s.store.Record(r.Context(), metric)
	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable, retry later"})
			return
		}
		s.logger.Error("metric ingestion failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store metric"})
		return
	}

	metrics.ObserveIngested(string(metric.Type))
	writeJSON(w, http.StatusCreated, ingestResponse{ID: id})
}

// handleQuery returns metrics of one type within a time range. Range bounds
// are RFC3339; the default range is the trailing hour.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	metricType := models.MetricType(r.URL.Query().Get("type"))
	if !models.ValidMetricType(metricType) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown or missing type parameter"})
		return
	}

	to := time.Now().UTC()
	from := to.Add(-time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid from timestamp"})
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid to timestamp"})
			return
		}
		to = t
	}

	results, err := s.store.Query(r.Context(), metricType, from, to)
	if err != nil {
		if errors.Is(err, store.ErrStorageUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable, retry later"})
			return
		}
		s.logger.Error("metric query failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to query metrics"})
		return
	}
	if results == nil {
		results = []models.Metric{}
	}
	writeJSON(w, http.StatusOK, results)
}

// handleListActions returns recently created corrective actions.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid since timestamp"})
			return
		}
		since = t
	}

	results, err := s.store.ListActions(r.Context(), since)
	if err != nil {
		s.logger.Error("action list failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list actions"})
		return
	}
	if results == nil {
		results = []models.CorrectiveAction{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
