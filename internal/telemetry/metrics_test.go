package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecordStepAndAssertionExposedViaHandler(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordStep("pass")
	metrics.RecordStep("fail")
	metrics.RecordAssertion("pass")

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, "uiflow_steps_total") {
		t.Fatalf("expected steps_total metric in exposition, got: %s", body)
	}
	if !strings.Contains(body, "uiflow_assertions_total") {
		t.Fatalf("expected assertions_total metric in exposition, got: %s", body)
	}
}
