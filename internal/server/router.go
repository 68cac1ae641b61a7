// Package server exposes the HTTP surface of spec §6: POST
// /api/run-automation plus /healthz and /metrics, built on Gin the way
// the teacher's comparison router is, down to the RouterConfig/NewRouter
// constructor shape and the errorResponse/writeJSONError helpers.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/telemetry"
)

const (
	runAutomationRoutePath = "/api/run-automation"
	healthRoutePath        = "/healthz"
	metricsRoutePath       = "/metrics"
	jsonContentType        = "application/json; charset=utf-8"
	healthStatusKey        = "status"
	healthStatusOK         = "ok"
	errMessageInvalidJSON  = "request body is not valid JSON"
	errMessageRunFailure   = "automation run failed"
	logMessageRunFailure   = "automation run failure"
	ginModeRelease         = "release"
)

// RouterConfig wires the Gin engine's collaborators.
type RouterConfig struct {
	Orchestrator Orchestrator
	Logger       *zap.Logger
}

// Orchestrator is the Session Orchestrator capability the router needs:
// satisfied by *orchestrator.Orchestrator without internal/server
// importing internal/orchestrator's own dependency graph.
type Orchestrator interface {
	Run(ctx context.Context, req model.Request) (*model.TestReport, *model.OverallReport, error)
}

// NewRouter constructs a Gin engine exposing the automation endpoints.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := applicationHandler{orchestrator: configuration.Orchestrator, logger: logger}

	engine.POST(runAutomationRoutePath, handler.runAutomation)
	engine.GET(healthRoutePath, handler.healthStatus)
	engine.GET(metricsRoutePath, gin.WrapH(telemetry.Handler()))

	return engine, nil
}

type applicationHandler struct {
	orchestrator Orchestrator
	logger       *zap.Logger
}

func (handler applicationHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

func (handler applicationHandler) runAutomation(ginContext *gin.Context) {
	var req model.Request
	if err := ginContext.ShouldBindJSON(&req); err != nil {
		handler.writeJSONError(ginContext, http.StatusBadRequest, errMessageInvalidJSON)
		return
	}

	report, overall, err := handler.orchestrator.Run(ginContext.Request.Context(), req)
	if err != nil {
		status, message := statusForError(err)
		if status == http.StatusInternalServerError {
			handler.logger.Error(logMessageRunFailure, zap.Error(err))
		}
		handler.writeJSONError(ginContext, status, message)
		return
	}

	ginContext.Header("Content-Type", jsonContentType)
	if overall != nil {
		ginContext.JSON(http.StatusOK, overall)
		return
	}
	ginContext.JSON(http.StatusOK, report)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest), errors.Is(err, model.ErrMissingSocialAuth), errors.Is(err, model.ErrUnsupportedEngine):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrTestCaseNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, errMessageRunFailure
	}
}

func (handler applicationHandler) writeJSONError(ginContext *gin.Context, statusCode int, message string) {
	ginContext.Header("Content-Type", jsonContentType)
	ginContext.JSON(statusCode, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}
