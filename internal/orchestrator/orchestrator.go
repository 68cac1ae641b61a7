// Package orchestrator implements the Session Orchestrator of spec §4.7:
// it validates a request, decides how the browser/context/page trio is
// shared across the test cases it runs, seeds auth state, drives the
// Step Runner for each test case, and hands the result to the
// persistence collaborator.
package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/catalog"
	"github.com/f-sync/uiflow/internal/interpreter"
	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/results"
	"github.com/f-sync/uiflow/internal/steprunner"
	"github.com/f-sync/uiflow/internal/telemetry"
)

const (
	tracerName             = "github.com/f-sync/uiflow/internal/orchestrator"
	logFieldRunID          = "run_id"
	logFieldTestCaseID     = "test_case_id"
	logMessageAuthTestCase = "running social-login auth test case"
	logMessageTestCase     = "running test case"
	logMessageTestCaseFail = "test case run panicked"
	logMessagePersistFail  = "persisting test result failed"
	syntheticFailureMessage = "test case execution failed unexpectedly"
)

// defaultLaunchLimiter is used when Config.LaunchLimiter is nil: launches share a single
// process-wide bucket, not one per request, since the host's Chrome
// process budget is shared across concurrent requests.
var defaultLaunchLimiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 1)

// Config wires the Orchestrator's collaborators.
type Config struct {
	Browser       browserdrv.Browser
	Catalog       catalog.Client
	Store         results.Store
	Interpreter   *interpreter.Interpreter
	Logger        *zap.Logger
	LaunchLimiter *rate.Limiter
	Metrics       *telemetry.Metrics
}

// Orchestrator runs requests end to end.
type Orchestrator struct {
	browser       browserdrv.Browser
	catalogClient catalog.Client
	store         results.Store
	runner        *steprunner.Runner
	logger        *zap.Logger
	launchLimiter *rate.Limiter
	tracer        trace.Tracer
	metrics       *telemetry.Metrics
}

// New constructs an Orchestrator.
func New(configuration Config) *Orchestrator {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := configuration.LaunchLimiter
	if limiter == nil {
		limiter = defaultLaunchLimiter
	}
	runner := steprunner.New(configuration.Interpreter)
	runner.Metrics = configuration.Metrics
	return &Orchestrator{
		browser:       configuration.Browser,
		catalogClient: configuration.Catalog,
		store:         configuration.Store,
		runner:        runner,
		logger:        logger,
		launchLimiter: limiter,
		tracer:        otel.Tracer(tracerName),
		metrics:       configuration.Metrics,
	}
}

// Run validates and executes req, returning either a single TestReport or
// an OverallReport depending on whether the request names a batch.
func (o *Orchestrator) Run(ctx context.Context, req model.Request) (*model.TestReport, *model.OverallReport, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	runID := ulid.Make().String()
	logger := o.logger.With(zap.String(logFieldRunID, runID))

	ctx, span := o.tracer.Start(ctx, "orchestrator.Run", trace.WithAttributes(attribute.String(logFieldRunID, runID)))
	defer span.End()

	if err := o.launchLimiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("orchestrator: wait for launch slot: %w", err)
	}

	engine, err := engineFor(req.BrowserName)
	if err != nil {
		return nil, nil, err
	}

	session, err := o.browser.NewSession(ctx, browserdrv.LaunchOptions{Engine: engine, Headless: req.HeadlessOrDefault()})
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: launch browser: %w", err)
	}
	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil {
			logger.Warn("closing browser session failed", zap.Error(closeErr))
		}
	}()

	page := session.Page()

	if req.LoginRequired {
		switch req.LoginMode {
		case model.LoginModeSocial:
			if err := o.runAuthTestCase(ctx, logger, req.SocialAuth.AuthTestCaseID, page); err != nil {
				return nil, nil, err
			}
		case model.LoginModeOTP:
			if err := o.seedOTP(ctx, page, *req.OTP); err != nil {
				return nil, nil, fmt.Errorf("orchestrator: seed otp: %w", err)
			}
		}
	}

	if req.IsBatch() {
		overall, err := o.runBatch(ctx, logger, runID, req, page)
		return nil, overall, err
	}

	report, err := o.runOne(ctx, logger, runID, req.TestCaseID, req.UserID, req.ProjectID, page)
	return report, nil, err
}

func engineFor(name model.BrowserName) (browserdrv.Engine, error) {
	switch name {
	case model.BrowserChromium, "":
		return browserdrv.EngineChromium, nil
	case model.BrowserFirefox:
		return browserdrv.EngineFirefox, nil
	case model.BrowserWebKit:
		return browserdrv.EngineWebKit, nil
	default:
		return "", model.ErrUnsupportedEngine
	}
}

// translateCatalogError maps the catalog package's not-found sentinel to
// the orchestrator-facing one the router matches on, so a request naming
// a missing test case surfaces as a 404 rather than falling through to
// the generic error path.
func translateCatalogError(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return model.ErrTestCaseNotFound
	}
	return err
}

// runAuthTestCase fetches and executes the named auth test case; its
// result is never persisted and is discarded once it has seeded the
// shared session's login state.
func (o *Orchestrator) runAuthTestCase(ctx context.Context, logger *zap.Logger, authTestCaseID string, page browserdrv.Page) error {
	logger.Info(logMessageAuthTestCase, zap.String(logFieldTestCaseID, authTestCaseID))
	testCase, err := o.catalogClient.FetchTestCase(ctx, authTestCaseID)
	if err != nil {
		return fmt.Errorf("orchestrator: fetch auth test case: %w", translateCatalogError(err))
	}
	if testCase.URL != "" {
		if err := page.Navigate(ctx, testCase.URL, true); err != nil {
			return fmt.Errorf("orchestrator: navigate auth test case: %w", err)
		}
	}
	o.runner.RunStopOnFailure(ctx, testCase.Actions, page)
	return nil
}

func (o *Orchestrator) seedOTP(ctx context.Context, page browserdrv.Page, otp model.OTPConfig) error {
	values, err := decodeOTPObject(otp.Object)
	if err != nil {
		return err
	}

	switch otp.StorageType {
	case model.StorageCookies:
		currentURL, err := page.URL(ctx)
		if err != nil {
			return fmt.Errorf("read current page url: %w", err)
		}
		domain := hostnameOf(currentURL)
		for name, value := range values {
			if err := page.SetCookie(ctx, browserdrv.Cookie{Name: name, Value: value, Domain: domain, Path: "/"}); err != nil {
				return fmt.Errorf("set cookie %s: %w", name, err)
			}
		}
	case model.StorageSessionStorage:
		return seedWebStorage(ctx, page, "sessionStorage", values)
	default:
		return seedWebStorage(ctx, page, "localStorage", values)
	}
	return nil
}

func seedWebStorage(ctx context.Context, page browserdrv.Page, storageObjectName string, values map[string]string) error {
	for key, value := range values {
		script := fmt.Sprintf("%s.setItem(%q, %q)", storageObjectName, key, value)
		var discard any
		if err := page.Evaluate(ctx, script, &discard); err != nil {
			return fmt.Errorf("seed %s key %s: %w", storageObjectName, key, err)
		}
	}
	return nil
}

// decodeOTPObject accepts otp.object either as a JSON string payload
// (the wire format's documented "json-string or object" shape) or as an
// already-decoded JSON object.
func decodeOTPObject(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return map[string]string{}, nil
		}
		var nested map[string]string
		if err := json.Unmarshal([]byte(asString), &nested); err != nil {
			return nil, fmt.Errorf("decode otp object string: %w", err)
		}
		return nested, nil
	}

	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode otp object: %w", err)
	}
	return values, nil
}

func hostnameOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// runBatch fetches the module-scoped test cases ordered by creation
// time, drops the auth test case per P10, and runs each sequentially on
// the shared page.
func (o *Orchestrator) runBatch(ctx context.Context, logger *zap.Logger, runID string, req model.Request, page browserdrv.Page) (*model.OverallReport, error) {
	testCases, err := o.catalogClient.FetchTestCasesByModuleIDs(ctx, catalog.Filter{
		ModuleIDs: req.ModuleIDs,
		UserID:    req.UserID,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: fetch batch test cases: %w", err)
	}

	var authTestCaseID string
	if req.SocialAuth != nil {
		authTestCaseID = req.SocialAuth.AuthTestCaseID
	}

	overall := &model.OverallReport{}
	for _, testCase := range testCases {
		if authTestCaseID != "" && testCase.ID == authTestCaseID {
			continue
		}
		report := o.runTestCaseContained(ctx, logger, runID, testCase, req.UserID, req.ProjectID, page)
		overall.Accumulate(*report)
	}
	return overall, nil
}

func (o *Orchestrator) runOne(ctx context.Context, logger *zap.Logger, runID, testCaseID, userID, projectID string, page browserdrv.Page) (*model.TestReport, error) {
	testCase, err := o.catalogClient.FetchTestCase(ctx, testCaseID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: fetch test case: %w", translateCatalogError(err))
	}
	report := o.runTestCaseContained(ctx, logger, runID, *testCase, userID, projectID, page)
	return report, nil
}

// runTestCaseContained executes one test case, containing any panic into
// a synthetic failing report per spec §4.7(5), capturing a failure
// screenshot, and persisting the result without letting a persistence
// error abort the run.
func (o *Orchestrator) runTestCaseContained(ctx context.Context, logger *zap.Logger, runID string, testCase model.TestCase, userID, projectID string, page browserdrv.Page) (report *model.TestReport) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.runTestCase", trace.WithAttributes(attribute.String(logFieldTestCaseID, testCase.ID)))
	defer span.End()

	startedAt := time.Now()
	defer func() {
		if o.metrics != nil {
			o.metrics.TestCaseDuration.Observe(time.Since(startedAt).Seconds())
		}
	}()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error(logMessageTestCaseFail, zap.String(logFieldTestCaseID, testCase.ID), zap.Any("recovered", recovered))
			report = syntheticFailureReport(testCase)
		}
		o.persist(ctx, logger, runID, testCase, userID, projectID, page, *report)
	}()

	logger.Info(logMessageTestCase, zap.String(logFieldTestCaseID, testCase.ID))

	if testCase.URL != "" {
		if err := page.Navigate(ctx, testCase.URL, true); err != nil {
			report = syntheticFailureReport(testCase)
			return report
		}
	}

	results := o.runner.RunStopOnFailure(ctx, testCase.Actions, page)
	built := model.TestReport{TestCaseID: testCase.ID, TestCaseName: testCase.Name, Results: results}
	built.Summarize()
	report = &built
	return report
}

func syntheticFailureReport(testCase model.TestCase) *model.TestReport {
	report := &model.TestReport{
		TestCaseID:   testCase.ID,
		TestCaseName: testCase.Name,
		Status:       model.StatusFail,
		Failed:       1,
		Total:        1,
		Results: []model.StepResult{{
			Sequence: 1,
			Status:   model.StatusFail,
			Message:  syntheticFailureMessage,
		}},
	}
	return report
}

func (o *Orchestrator) persist(ctx context.Context, logger *zap.Logger, runID string, testCase model.TestCase, userID, projectID string, page browserdrv.Page, report model.TestReport) {
	record := results.Record{
		RunID:        runID,
		UserID:       userID,
		TestCaseID:   testCase.ID,
		TestCaseName: testCase.Name,
		ProjectID:    projectID,
		Status:       report.Status,
		Report:       report,
	}

	if report.Status == model.StatusFail {
		if png, err := page.Screenshot(ctx); err != nil {
			logger.Warn("capturing failure screenshot failed", zap.String(logFieldTestCaseID, testCase.ID), zap.Error(err))
		} else {
			record.FailScreenshot = encodePNGDataURL(png)
		}
	}

	if err := o.store.SaveTestResult(ctx, record); err != nil {
		logger.Warn(logMessagePersistFail, zap.String(logFieldTestCaseID, testCase.ID), zap.Error(err))
	}
}

const pngDataURLPrefix = "data:image/png;base64,"

func encodePNGDataURL(png []byte) string {
	return pngDataURLPrefix + base64.StdEncoding.EncodeToString(png)
}
