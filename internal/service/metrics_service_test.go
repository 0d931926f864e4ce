package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordTransition("SCHEDULE", outcomeSuccess)
	m.RecordTransition("SCHEDULE", outcomeConflict)
	m.RecordTransition("SCHEDULE", outcomeConflict)
	m.RecordConflict()
	m.RecordBulkItem("assign", true)
	m.RecordBulkItem("assign", false)
	m.RecordIntent("LOG_ACTIVITY", nil)
	m.RecordIntent("SEND_EMAIL", errors.New("smtp down"))
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	m.ObserveTx("transition", time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "lifecycle_transitions_total", map[string]string{"action": "SCHEDULE", "outcome": outcomeConflict}))
	assert.Equal(t, 1.0, counterValue(t, m, "schedule_conflicts_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "bulk_items_total", map[string]string{"operation": "assign", "outcome": outcomeError}))
	assert.Equal(t, 1.0, counterValue(t, m, "side_effect_intents_total", map[string]string{"kind": "SEND_EMAIL", "outcome": outcomeError}))
	assert.Equal(t, 1.0, counterValue(t, m, "schedule_cache_lookups_total", map[string]string{"result": "hit"}))
	assert.Equal(t, 1.0, counterValue(t, m, "http_requests_total", map[string]string{"path": "/health", "status": "200"}))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordTransition("START", outcomeSuccess)
		m.RecordConflict()
		m.RecordIntent("LOG_ACTIVITY", nil)
		m.ObserveTx("transition", time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServiceHandlerExposesFamilies(t *testing.T) {
	m := NewMetricsService()
	m.RecordConflict()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schedule_conflicts_total 1")
}
