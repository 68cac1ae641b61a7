package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/server"
)

type orchestratorStub struct {
	report  *model.TestReport
	overall *model.OverallReport
	err     error
	lastReq model.Request
}

func (stub *orchestratorStub) Run(ctx context.Context, req model.Request) (*model.TestReport, *model.OverallReport, error) {
	stub.lastReq = req
	return stub.report, stub.overall, stub.err
}

func newTestRouter(t *testing.T, stub *orchestratorStub) http.Handler {
	t.Helper()
	router, err := server.NewRouter(server.RouterConfig{Orchestrator: stub})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router
}

func TestHealthReturnsOK(t *testing.T) {
	router := newTestRouter(t, &orchestratorStub{})

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRunAutomationReturnsSingleReport(t *testing.T) {
	stub := &orchestratorStub{report: &model.TestReport{TestCaseID: "tc-1", Status: model.StatusPass}}
	router := newTestRouter(t, stub)

	body, _ := json.Marshal(model.Request{TestCaseID: "tc-1", BrowserName: model.BrowserChromium})
	request := httptest.NewRequest(http.MethodPost, "/api/run-automation", bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var decoded model.TestReport
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.TestCaseID != "tc-1" {
		t.Fatalf("unexpected report: %+v", decoded)
	}
	if stub.lastReq.TestCaseID != "tc-1" {
		t.Fatalf("orchestrator did not receive decoded request: %+v", stub.lastReq)
	}
}

func TestRunAutomationReturnsOverallReportForBatch(t *testing.T) {
	stub := &orchestratorStub{overall: &model.OverallReport{TotalTestCases: 2}}
	router := newTestRouter(t, stub)

	body, _ := json.Marshal(model.Request{ModuleIDs: []string{"m1"}, BrowserName: model.BrowserChromium})
	request := httptest.NewRequest(http.MethodPost, "/api/run-automation", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var decoded model.OverallReport
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.TotalTestCases != 2 {
		t.Fatalf("unexpected overall report: %+v", decoded)
	}
}

func TestRunAutomationRejectsInvalidRequest(t *testing.T) {
	stub := &orchestratorStub{err: model.ErrInvalidRequest}
	router := newTestRouter(t, stub)

	body, _ := json.Marshal(model.Request{BrowserName: model.BrowserChromium})
	request := httptest.NewRequest(http.MethodPost, "/api/run-automation", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestRunAutomationRejectsMalformedJSON(t *testing.T) {
	router := newTestRouter(t, &orchestratorStub{})

	request := httptest.NewRequest(http.MethodPost, "/api/run-automation", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestRunAutomationMapsNotFoundToStatus(t *testing.T) {
	stub := &orchestratorStub{err: model.ErrTestCaseNotFound}
	router := newTestRouter(t, stub)

	body, _ := json.Marshal(model.Request{TestCaseID: "missing", BrowserName: model.BrowserChromium})
	request := httptest.NewRequest(http.MethodPost, "/api/run-automation", bytes.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestMetricsRouteServesExposition(t *testing.T) {
	router := newTestRouter(t, &orchestratorStub{})

	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
