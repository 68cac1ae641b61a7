package steprunner

import (
	"context"
	"testing"
	"time"

	"github.com/f-sync/uiflow/internal/assertions"
	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/elements"
	"github.com/f-sync/uiflow/internal/frames"
	"github.com/f-sync/uiflow/internal/interpreter"
	"github.com/f-sync/uiflow/internal/model"
	"github.com/f-sync/uiflow/internal/variables"
)

// fakePage is a minimal browserdrv.Page good enough to drive System_Navigate
// and unsupported-action steps deterministically.
type fakePage struct{}

func (p *fakePage) URL(ctx context.Context) (string, error)   { return "https://example.org", nil }
func (p *fakePage) Title(ctx context.Context) (string, error) { return "Example", nil }
func (p *fakePage) Navigate(ctx context.Context, url string, waitNetworkIdle bool) error { return nil }
func (p *fakePage) Evaluate(ctx context.Context, expression string, out any) error       { return nil }
func (p *fakePage) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (p *fakePage) WaitXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	return nil
}
func (p *fakePage) IsVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) (bool, error) {
	return true, nil
}
func (p *fakePage) BoundingBoxSelector(ctx context.Context, selector string) (browserdrv.Box, error) {
	return browserdrv.Box{}, nil
}
func (p *fakePage) BoundingBoxXPath(ctx context.Context, xpath string) (browserdrv.Box, error) {
	return browserdrv.Box{}, nil
}
func (p *fakePage) ScrollIntoViewSelector(ctx context.Context, selector string) error { return nil }
func (p *fakePage) ScrollIntoViewXPath(ctx context.Context, xpath string) error       { return nil }
func (p *fakePage) HoverSelector(ctx context.Context, selector string) error          { return nil }
func (p *fakePage) HoverXPath(ctx context.Context, xpath string) error                { return nil }
func (p *fakePage) ClickXPath(ctx context.Context, xpath string) error                { return nil }
func (p *fakePage) DescribeElementSelector(ctx context.Context, selector string) (browserdrv.ElementKind, error) {
	return browserdrv.ElementUnknown, nil
}
func (p *fakePage) DescribeElementXPath(ctx context.Context, xpath string) (browserdrv.ElementKind, error) {
	return browserdrv.ElementUnknown, nil
}
func (p *fakePage) FillSelector(ctx context.Context, selector, value string) error { return nil }
func (p *fakePage) FillXPath(ctx context.Context, xpath, value string) error       { return nil }
func (p *fakePage) CheckSelector(ctx context.Context, selector string, force bool) error { return nil }
func (p *fakePage) CheckXPath(ctx context.Context, xpath string, force bool) error       { return nil }
func (p *fakePage) ClickLabelFor(ctx context.Context, forAttribute string) error { return nil }
func (p *fakePage) SelectByValueSelector(ctx context.Context, selector, value string) error { return nil }
func (p *fakePage) SelectByValueXPath(ctx context.Context, xpath, value string) error        { return nil }
func (p *fakePage) SetInputFilesSelector(ctx context.Context, selector string, file browserdrv.UploadFile) error {
	return nil
}
func (p *fakePage) SetInputFilesXPath(ctx context.Context, xpath string, file browserdrv.UploadFile) error {
	return nil
}
func (p *fakePage) ScrollWindow(ctx context.Context, x, y float64) error { return nil }
func (p *fakePage) ScrollContainer(ctx context.Context, containerXPath string, x, y float64) error {
	return nil
}
func (p *fakePage) InjectNoScrollStyle(ctx context.Context) error { return nil }
func (p *fakePage) RemoveNoScrollStyle(ctx context.Context) error { return nil }
func (p *fakePage) Frames(ctx context.Context) ([]browserdrv.FrameHandle, error) { return nil, nil }
func (p *fakePage) Keyboard() browserdrv.Keyboard                               { return nil }
func (p *fakePage) RawInput() (browserdrv.RawInput, bool)                       { return nil, false }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)               { return nil, nil }
func (p *fakePage) SetCookie(ctx context.Context, cookie browserdrv.Cookie) error { return nil }
func (p *fakePage) WaitForDownload(ctx context.Context, timeout time.Duration) error {
	return nil
}

func newRunner() *Runner {
	interp := interpreter.New(frames.NewLocator(), elements.NewResolver(), variables.NewResolver(), assertions.NewEvaluator())
	return New(interp)
}

func TestStopOnFailureStopsAtFirstFailure(t *testing.T) {
	actions := []model.Action{
		{Type: model.ActionSystemNavigate, URL: "https://example.org", Wait: floatPtr(0)},
		{Type: "teleport", Wait: floatPtr(0)},
		{Type: model.ActionSystemNavigate, URL: "https://example.org/next", Wait: floatPtr(0)},
	}

	runner := newRunner()
	results := runner.RunStopOnFailure(context.Background(), actions, &fakePage{})

	if len(results) != 2 {
		t.Fatalf("expected exactly 2 results (stop after failure), got %d", len(results))
	}
	if results[0].Status != model.StatusPass {
		t.Fatalf("expected first step to pass, got %+v", results[0])
	}
	if results[1].Status != model.StatusFail {
		t.Fatalf("expected second step to fail, got %+v", results[1])
	}
}

func TestStopOnFailureSequenceFallsBackToIndex(t *testing.T) {
	actions := []model.Action{
		{Type: model.ActionSystemNavigate, URL: "https://example.org", Wait: floatPtr(0)},
	}
	runner := newRunner()
	results := runner.RunStopOnFailure(context.Background(), actions, &fakePage{})
	if results[0].Sequence != 1 {
		t.Fatalf("expected sequence to fall back to 1-based index, got %d", results[0].Sequence)
	}
}

func TestBestEffortContinuesPastFailure(t *testing.T) {
	actions := []model.Action{
		{Type: "teleport", Wait: floatPtr(0)},
		{Type: model.ActionSystemNavigate, URL: "https://example.org", Wait: floatPtr(0)},
	}
	runner := newRunner()
	results := runner.RunBestEffort(context.Background(), actions, &fakePage{})
	if len(results) != 2 {
		t.Fatalf("expected both steps to run under best-effort, got %d", len(results))
	}
	if results[1].Status != model.StatusPass {
		t.Fatalf("expected second step to still pass, got %+v", results[1])
	}
}

func floatPtr(f float64) *float64 { return &f }
