// Package steprunner implements the Step Runner of spec §4.6: it iterates
// a test case's action list under one of two policies, collecting
// per-step results.
package steprunner

import (
	"context"
	"time"

	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/interpreter"
	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/telemetry"
)

// Runner executes a TestCase's actions against a live page.
type Runner struct {
	interpreter *interpreter.Interpreter
	// Metrics is optional; when nil, step/assertion outcomes simply go
	// unrecorded. Orchestrator sets it after construction so callers that
	// don't care about Prometheus (like this package's own tests) can keep
	// calling New(interp) unchanged.
	Metrics *telemetry.Metrics
}

// New constructs a Runner.
func New(interp *interpreter.Interpreter) *Runner {
	return &Runner{interpreter: interp}
}

// RunStopOnFailure executes actions in order, stopping at the first
// failing step (spec §4.6, used for every persisted run). It sleeps for
// the completed step's `wait` seconds before starting the next one.
func (r *Runner) RunStopOnFailure(ctx context.Context, actions []model.Action, page browserdrv.Page) []model.StepResult {
	results := make([]model.StepResult, 0, len(actions))
	for index, action := range actions {
		result := r.runOne(ctx, action, nextOf(actions, index), page, index)
		results = append(results, result)
		if result.Status != model.StatusPass {
			break
		}
		sleepSeconds(ctx, action.WaitSeconds())
	}
	return results
}

// RunBestEffort is the legacy policy (spec §9 "Legacy best-effort
// runner"): it keeps going after a failing step instead of stopping,
// matching the manual-harness behavior it was kept compatible with. It is
// not used by any persisted execution path.
func (r *Runner) RunBestEffort(ctx context.Context, actions []model.Action, page browserdrv.Page) []model.StepResult {
	results := make([]model.StepResult, 0, len(actions))
	for index, action := range actions {
		result := r.runOne(ctx, action, nextOf(actions, index), page, index)
		results = append(results, result)
		sleepSeconds(ctx, action.WaitSeconds())
	}
	return results
}

func (r *Runner) runOne(ctx context.Context, action model.Action, next *model.Action, page browserdrv.Page, index int) model.StepResult {
	outcome, assertionResults := r.interpreter.Run(ctx, action, next, page)

	status := model.StatusPass
	message := outcome.Message
	if !outcome.Success {
		status = model.StatusFail
	}
	// Spec I4/P5: an action that itself succeeded is still reported fail
	// if any assertion afterward failed, and the failing assertion's
	// message takes over.
	for _, assertionResult := range assertionResults {
		if !assertionResult.Success {
			status = model.StatusFail
			message = assertionResult.Message
			break
		}
	}

	if r.Metrics != nil {
		r.Metrics.RecordStep(string(status))
		for _, assertionResult := range assertionResults {
			assertionStatus := model.StatusPass
			if !assertionResult.Success {
				assertionStatus = model.StatusFail
			}
			r.Metrics.RecordAssertion(string(assertionStatus))
		}
	}

	return model.StepResult{
		Sequence:    action.SequenceOrIndex(index),
		Description: action.DescriptionOrType(),
		Status:      status,
		Message:     message,
		Assertions:  assertionResults,
	}
}

func nextOf(actions []model.Action, index int) *model.Action {
	if index+1 >= len(actions) {
		return nil
	}
	return &actions[index+1]
}

func sleepSeconds(ctx context.Context, seconds float64) {
	if seconds <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(seconds * float64(time.Second))):
	}
}
