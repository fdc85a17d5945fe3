package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hyprice/metrics"
)

func TestHealthCheckHandlerReportsRefreshStats(t *testing.T) {
	metrics.IncrementRefreshPasses()

	RegisterLoopCounter(func() int { return 3 })
	RegisterHealthCheck("storage", func() bool { return true })

	rec := httptest.NewRecorder()
	HealthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad health body: %v", err)
	}

	if status.Status != "ok" {
		t.Errorf("Status = %q with all components healthy", status.Status)
	}
	if status.ActiveLoops != 3 {
		t.Errorf("ActiveLoops = %d, want 3", status.ActiveLoops)
	}
	if status.RefreshPasses == 0 {
		t.Error("RefreshPasses missing from the health report")
	}
	if status.LastRefresh == "" {
		t.Error("LastRefresh missing after a completed pass")
	}
	if status.ComponentStatus["storage"] != "healthy" {
		t.Errorf("storage component = %q", status.ComponentStatus["storage"])
	}
}

func TestHealthCheckHandlerDegraded(t *testing.T) {
	RegisterHealthCheck("storage", func() bool { return false })
	defer RegisterHealthCheck("storage", func() bool { return true })

	rec := httptest.NewRecorder()
	HealthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("bad health body: %v", err)
	}
	if status.Status != "degraded" {
		t.Errorf("Status = %q with a failing component, want degraded", status.Status)
	}
}
