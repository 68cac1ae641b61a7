// Package assertions implements the Assertion Evaluator of spec §4.5: the
// post-condition checks run after every action, in declared order,
// stopping at the first failure.
package assertions

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/model"
)

const (
	KindValidEmail      = "ValidEmail"
	KindFormHasValue    = "formHasValue"
	KindPageHasTitle    = "pageHasTitle"
	KindPageHasText     = "pageHasText"
	KindElementHasText  = "elementHasText"
	KindElementIsVisible = "elementIsVisible"
	KindDownloadStarted = "downloadStarted"

	downloadTimeout = 5 * time.Second
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const failurePrefix = "Assertion failed: "

// Evaluator implements the Assertion Evaluator contract.
type Evaluator struct{}

// NewEvaluator constructs an Evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate runs action.Assertions in order against the current frame and
// the action's element descriptor, stopping at the first failure. It
// always returns every result evaluated up to and including that first
// failure (spec §4.4 "Post-action assertions").
func (e *Evaluator) Evaluate(ctx context.Context, action model.Action, frame browserdrv.Frame, descriptor *model.ElementDescriptor) []model.AssertionResult {
	results := make([]model.AssertionResult, 0, len(action.Assertions))
	for _, spec := range action.Assertions {
		result := e.evaluateOne(ctx, spec, frame, descriptor)
		results = append(results, result)
		if !result.Success {
			break
		}
	}
	return results
}

func (e *Evaluator) evaluateOne(ctx context.Context, spec model.AssertionSpec, frame browserdrv.Frame, descriptor *model.ElementDescriptor) model.AssertionResult {
	switch spec.Type {
	case KindValidEmail:
		return e.validEmail(descriptor)
	case KindFormHasValue:
		return e.formHasValue(spec, descriptor)
	case KindPageHasTitle:
		return e.pageHasTitle(ctx, spec, frame)
	case KindPageHasText:
		return e.pageHasText(ctx, spec, frame)
	case KindElementHasText:
		return e.elementHasText(spec, descriptor)
	case KindElementIsVisible:
		return e.elementIsVisible(ctx, spec, descriptor, frame)
	case KindDownloadStarted:
		return e.downloadStarted(ctx, frame)
	default:
		return fail(spec.Type, "Unsupported assertion")
	}
}

func (e *Evaluator) validEmail(descriptor *model.ElementDescriptor) model.AssertionResult {
	value := descriptorValue(descriptor)
	if emailPattern.MatchString(value) {
		return pass(KindValidEmail, "valid email")
	}
	return fail(KindValidEmail, fmt.Sprintf("%q is not a valid email", value))
}

func (e *Evaluator) formHasValue(spec model.AssertionSpec, descriptor *model.ElementDescriptor) model.AssertionResult {
	value := descriptorValue(descriptor)
	if value == spec.Value {
		return pass(KindFormHasValue, "form value matches")
	}
	return fail(KindFormHasValue, fmt.Sprintf("expected %q, got %q", spec.Value, value))
}

func (e *Evaluator) pageHasTitle(ctx context.Context, spec model.AssertionSpec, frame browserdrv.Frame) model.AssertionResult {
	title, err := frame.Title(ctx)
	if err != nil {
		return fail(KindPageHasTitle, err.Error())
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(spec.Value)) {
		return pass(KindPageHasTitle, "title contains expected text")
	}
	return fail(KindPageHasTitle, fmt.Sprintf("title %q does not contain %q", title, spec.Value))
}

func (e *Evaluator) pageHasText(ctx context.Context, spec model.AssertionSpec, frame browserdrv.Frame) model.AssertionResult {
	var bodyText string
	if err := frame.Evaluate(ctx, "document.body.innerText", &bodyText); err != nil {
		return fail(KindPageHasText, err.Error())
	}
	if strings.Contains(strings.ToLower(bodyText), strings.ToLower(spec.Value)) {
		return pass(KindPageHasText, "page contains expected text")
	}
	return fail(KindPageHasText, fmt.Sprintf("page does not contain %q", spec.Value))
}

func (e *Evaluator) elementHasText(spec model.AssertionSpec, descriptor *model.ElementDescriptor) model.AssertionResult {
	text := ""
	if descriptor != nil {
		text = strings.TrimSpace(descriptor.TextContent)
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(spec.Value)) {
		return pass(KindElementHasText, "element text contains expected text")
	}
	return fail(KindElementHasText, fmt.Sprintf("element text %q does not contain %q", text, spec.Value))
}

func (e *Evaluator) elementIsVisible(ctx context.Context, spec model.AssertionSpec, descriptor *model.ElementDescriptor, frame browserdrv.Frame) model.AssertionResult {
	if descriptor == nil || len(descriptor.XPath) == 0 {
		return fail(KindElementIsVisible, "no xpath candidates on descriptor")
	}
	firstHidden := ""
	for _, xpath := range descriptor.XPath {
		visible, err := frame.IsVisibleXPath(ctx, xpath, elements3SecondTimeout)
		if err != nil {
			continue
		}
		if visible {
			return pass(KindElementIsVisible, "element is visible")
		}
		if firstHidden == "" {
			firstHidden = xpath
		}
	}
	if firstHidden != "" {
		return fail(KindElementIsVisible, fmt.Sprintf("element at %q is not visible", firstHidden))
	}
	return fail(KindElementIsVisible, "no xpath candidate resolved")
}

const elements3SecondTimeout = 3 * time.Second

func (e *Evaluator) downloadStarted(ctx context.Context, frame browserdrv.Frame) model.AssertionResult {
	page, ok := frame.(browserdrv.Page)
	if !ok {
		return fail(KindDownloadStarted, "download assertion requires the top page")
	}
	if err := page.WaitForDownload(ctx, downloadTimeout); err != nil {
		return fail(KindDownloadStarted, err.Error())
	}
	return pass(KindDownloadStarted, "download started")
}

func descriptorValue(descriptor *model.ElementDescriptor) string {
	if descriptor == nil {
		return ""
	}
	return descriptor.Value
}

func pass(kind, message string) model.AssertionResult {
	return model.AssertionResult{Type: kind, Message: message, Success: true}
}

func fail(kind, message string) model.AssertionResult {
	return model.AssertionResult{Type: kind, Message: failurePrefix + message, Success: false}
}
