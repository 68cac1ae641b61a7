package assertions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/model"
)

// fakeFrame is a minimal hand-rolled stand-in for browserdrv.Page used to
// drive the evaluator deterministically, without a mocking framework.
type fakeFrame struct {
	title          string
	titleErr       error
	bodyText       string
	evalErr        error
	visibleByXPath map[string]bool
	visibleErr     error
	downloadErr    error
}

func (f *fakeFrame) URL(ctx context.Context) (string, error)  { return "", nil }
func (f *fakeFrame) Title(ctx context.Context) (string, error) {
	return f.title, f.titleErr
}
func (f *fakeFrame) Navigate(ctx context.Context, url string, waitNetworkIdle bool) error { return nil }
func (f *fakeFrame) Evaluate(ctx context.Context, expression string, out any) error {
	if f.evalErr != nil {
		return f.evalErr
	}
	if ptr, ok := out.(*string); ok {
		*ptr = f.bodyText
	}
	return nil
}
func (f *fakeFrame) WaitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (f *fakeFrame) WaitXPath(ctx context.Context, xpath string, timeout time.Duration) error {
	return nil
}
func (f *fakeFrame) IsVisibleXPath(ctx context.Context, xpath string, timeout time.Duration) (bool, error) {
	if f.visibleErr != nil {
		return false, f.visibleErr
	}
	return f.visibleByXPath[xpath], nil
}
func (f *fakeFrame) BoundingBoxSelector(ctx context.Context, selector string) (browserdrv.Box, error) {
	return browserdrv.Box{}, nil
}
func (f *fakeFrame) BoundingBoxXPath(ctx context.Context, xpath string) (browserdrv.Box, error) {
	return browserdrv.Box{}, nil
}
func (f *fakeFrame) ScrollIntoViewSelector(ctx context.Context, selector string) error { return nil }
func (f *fakeFrame) ScrollIntoViewXPath(ctx context.Context, xpath string) error       { return nil }
func (f *fakeFrame) HoverSelector(ctx context.Context, selector string) error          { return nil }
func (f *fakeFrame) HoverXPath(ctx context.Context, xpath string) error                { return nil }
func (f *fakeFrame) ClickXPath(ctx context.Context, xpath string) error                { return nil }
func (f *fakeFrame) DescribeElementSelector(ctx context.Context, selector string) (browserdrv.ElementKind, error) {
	return browserdrv.ElementUnknown, nil
}
func (f *fakeFrame) DescribeElementXPath(ctx context.Context, xpath string) (browserdrv.ElementKind, error) {
	return browserdrv.ElementUnknown, nil
}
func (f *fakeFrame) FillSelector(ctx context.Context, selector, value string) error { return nil }
func (f *fakeFrame) FillXPath(ctx context.Context, xpath, value string) error       { return nil }
func (f *fakeFrame) CheckSelector(ctx context.Context, selector string, force bool) error { return nil }
func (f *fakeFrame) CheckXPath(ctx context.Context, xpath string, force bool) error       { return nil }
func (f *fakeFrame) ClickLabelFor(ctx context.Context, forAttribute string) error { return nil }
func (f *fakeFrame) SelectByValueSelector(ctx context.Context, selector, value string) error { return nil }
func (f *fakeFrame) SelectByValueXPath(ctx context.Context, xpath, value string) error        { return nil }
func (f *fakeFrame) SetInputFilesSelector(ctx context.Context, selector string, file browserdrv.UploadFile) error {
	return nil
}
func (f *fakeFrame) SetInputFilesXPath(ctx context.Context, xpath string, file browserdrv.UploadFile) error {
	return nil
}
func (f *fakeFrame) ScrollWindow(ctx context.Context, x, y float64) error { return nil }
func (f *fakeFrame) ScrollContainer(ctx context.Context, containerXPath string, x, y float64) error {
	return nil
}
func (f *fakeFrame) InjectNoScrollStyle(ctx context.Context) error { return nil }
func (f *fakeFrame) RemoveNoScrollStyle(ctx context.Context) error { return nil }

// fakePage wraps fakeFrame with the page-scoped capabilities so tests can
// exercise downloadStarted, which requires a browserdrv.Page.
type fakePage struct {
	fakeFrame
}

func (p *fakePage) Frames(ctx context.Context) ([]browserdrv.FrameHandle, error) { return nil, nil }
func (p *fakePage) Keyboard() browserdrv.Keyboard                               { return nil }
func (p *fakePage) RawInput() (browserdrv.RawInput, bool)                       { return nil, false }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)               { return nil, nil }
func (p *fakePage) SetCookie(ctx context.Context, cookie browserdrv.Cookie) error { return nil }
func (p *fakePage) WaitForDownload(ctx context.Context, timeout time.Duration) error {
	return p.downloadErr
}

func TestEvaluateStopsAtFirstFailure(t *testing.T) {
	frame := &fakeFrame{title: "Sign In"}
	action := model.Action{
		Assertions: model.AssertionSet{
			{Type: KindFormHasValue, Value: "expected"},
			{Type: KindPageHasTitle, Value: "never reached because prior failed"},
		},
	}
	descriptor := &model.ElementDescriptor{Value: "actual"}

	e := NewEvaluator()
	results := e.Evaluate(context.Background(), action, frame, descriptor)

	if len(results) != 1 {
		t.Fatalf("expected evaluation to stop after first failure, got %d results", len(results))
	}
	if results[0].Success {
		t.Fatalf("expected first assertion to fail")
	}
}

func TestValidEmail(t *testing.T) {
	e := NewEvaluator()
	cases := []struct {
		value string
		want  bool
	}{
		{"person@example.com", true},
		{"not-an-email", false},
		{"", false},
	}
	for _, c := range cases {
		result := e.validEmail(&model.ElementDescriptor{Value: c.value})
		if result.Success != c.want {
			t.Errorf("validEmail(%q) success = %v, want %v", c.value, result.Success, c.want)
		}
	}
}

func TestPageHasTitleCaseInsensitive(t *testing.T) {
	e := NewEvaluator()
	frame := &fakeFrame{title: "Welcome To Checkout"}
	result := e.pageHasTitle(context.Background(), model.AssertionSpec{Value: "checkout"}, frame)
	if !result.Success {
		t.Fatalf("expected case-insensitive title match, got %q", result.Message)
	}
}

func TestPageHasTextUsesBodyInnerText(t *testing.T) {
	e := NewEvaluator()
	frame := &fakeFrame{bodyText: "Order Confirmed"}
	result := e.pageHasText(context.Background(), model.AssertionSpec{Value: "confirmed"}, frame)
	if !result.Success {
		t.Fatalf("expected match against innerText, got %q", result.Message)
	}
}

func TestElementHasTextTrimsAndLowercases(t *testing.T) {
	e := NewEvaluator()
	descriptor := &model.ElementDescriptor{TextContent: "  Total: $42.00  "}
	result := e.elementHasText(model.AssertionSpec{Value: "total:"}, descriptor)
	if !result.Success {
		t.Fatalf("expected trimmed/lowercased contains match, got %q", result.Message)
	}
}

func TestElementIsVisible(t *testing.T) {
	e := NewEvaluator()
	descriptor := &model.ElementDescriptor{XPath: model.XPathList{"//div[@id='a']", "//div[@id='b']"}}
	frame := &fakeFrame{visibleByXPath: map[string]bool{"//div[@id='a']": false, "//div[@id='b']": true}}
	result := e.elementIsVisible(context.Background(), model.AssertionSpec{}, descriptor, frame)
	if !result.Success {
		t.Fatalf("expected visible candidate to pass, got %q", result.Message)
	}
}

func TestDownloadStartedRequiresPage(t *testing.T) {
	e := NewEvaluator()
	frame := &fakeFrame{}
	result := e.downloadStarted(context.Background(), frame)
	if result.Success {
		t.Fatalf("expected failure when frame is not a Page")
	}

	page := &fakePage{}
	result = e.downloadStarted(context.Background(), page)
	if !result.Success {
		t.Fatalf("expected success for a page with no download error, got %q", result.Message)
	}

	page.downloadErr = errors.New("no download event observed")
	result = e.downloadStarted(context.Background(), page)
	if result.Success {
		t.Fatalf("expected failure to propagate from WaitForDownload")
	}
}

func TestUnsupportedAssertionKind(t *testing.T) {
	e := NewEvaluator()
	frame := &fakeFrame{}
	result := e.evaluateOne(context.Background(), model.AssertionSpec{Type: "somethingElse"}, frame, nil)
	if result.Success {
		t.Fatalf("expected unknown assertion kind to fail")
	}
	if result.Message != failurePrefix+"Unsupported assertion" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}
